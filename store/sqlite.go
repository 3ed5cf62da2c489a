package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run Run) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, cells, steps, scheduler, seed, started)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			cells = excluded.cells,
			steps = excluded.steps,
			scheduler = excluded.scheduler,
			seed = excluded.seed,
			started = excluded.started
	`, run.ID, run.Kind, run.Cells, run.Steps, run.Scheduler, int64(run.Seed), run.Started.UnixNano())
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (Run, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Run{}, false, err
	}

	run := Run{ID: id}
	var seed, started int64
	err = db.QueryRowContext(ctx,
		`SELECT kind, cells, steps, scheduler, seed, started FROM runs WHERE id = ?`, id,
	).Scan(&run.Kind, &run.Cells, &run.Steps, &run.Scheduler, &seed, &started)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, false, nil
		}
		return Run{}, false, err
	}
	run.Seed = uint64(seed)
	run.Started = time.Unix(0, started)
	return run, true, nil
}

func (s *SQLiteStore) RunIDs(ctx context.Context) ([]string, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id FROM runs ORDER BY started, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AppendObservations inserts obs in a single transaction.
func (s *SQLiteStore) AppendObservations(ctx context.Context, obs []Observation) error {
	if len(obs) == 0 {
		return nil
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations (run_id, step, cell_id, value, label)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx, o.RunID, o.Step, o.CellID, o.Value, o.Label); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert observation %s/%d/%d: %w", o.RunID, o.Step, o.CellID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) History(ctx context.Context, runID string, cellID int) ([]Observation, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT step, value, label FROM observations
		WHERE run_id = ? AND cell_id = ?
		ORDER BY step, rowid
	`, runID, cellID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		o := Observation{RunID: runID, CellID: cellID}
		if err := rows.Scan(&o.Step, &o.Value, &o.Label); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			cells INTEGER NOT NULL,
			steps INTEGER NOT NULL,
			scheduler TEXT NOT NULL,
			seed INTEGER NOT NULL,
			started INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS observations (
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			cell_id INTEGER NOT NULL,
			value REAL NOT NULL,
			label TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS observations_cell ON observations (run_id, cell_id, step);
	`)
	return err
}
