package store

import (
	"context"

	"github.com/pthm-cable/organoid/cell"
)

// Recorder persists each updated cell's latest observation after every step.
// It implements scheduler.Observer; writes use the context the scheduler
// was started with.
type Recorder struct {
	store Store
	runID string
	buf   []Observation
}

// NewRecorder binds a store and run ID.
func NewRecorder(s Store, runID string) *Recorder {
	return &Recorder{store: s, runID: runID}
}

func (r *Recorder) StepStarted(context.Context, int) error { return nil }

func (r *Recorder) StepFinished(ctx context.Context, step int, updated []cell.Agent) error {
	r.buf = r.buf[:0]
	for _, a := range updated {
		c, ok := a.(*cell.Cell)
		if !ok {
			continue
		}
		last, ok := c.LastObservation()
		if !ok {
			continue
		}
		r.buf = append(r.buf, Observation{
			RunID:  r.runID,
			Step:   step,
			CellID: c.ID,
			Value:  last.Value,
			Label:  last.Label,
		})
	}
	return r.store.AppendObservations(ctx, r.buf)
}
