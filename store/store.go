// Package store persists simulation runs and per-cell observation history.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pthm-cable/organoid/cell"
)

// Run describes one simulation run.
type Run struct {
	ID        string
	Kind      string
	Cells     int
	Steps     int
	Scheduler string
	Seed      uint64
	Started   time.Time
}

// Observation is one recorded value of one cell at one step.
type Observation struct {
	RunID  string
	Step   int
	CellID int
	Value  float64
	Label  string
}

// Store defines persistence operations for runs and their observations.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, bool, error)
	// RunIDs lists stored runs by start time.
	RunIDs(ctx context.Context) ([]string, error)
	AppendObservations(ctx context.Context, obs []Observation) error
	// History returns a cell's observations in step order.
	History(ctx context.Context, runID string, cellID int) ([]Observation, error)
	Close() error
}

// NewStore returns an uninitialized store for the named backend.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		if sqlitePath == "" {
			return nil, fmt.Errorf("%w: sqlite store requires a path", cell.ErrConfig)
		}
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, fmt.Errorf("%w: unsupported store backend %q", cell.ErrConfig, kind)
	}
}
