package store

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/pthm-cable/organoid/cell"
	"github.com/pthm-cable/organoid/environment"
	"github.com/pthm-cable/organoid/neural"
	"github.com/pthm-cable/organoid/organoid"
	"github.com/pthm-cable/organoid/scheduler"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": NewSQLiteStore(filepath.Join(t.TempDir(), "organoid.db")),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Init(ctx); err != nil {
				t.Fatalf("init: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })

			run := Run{
				ID:        "r1",
				Kind:      "spiking",
				Cells:     2,
				Steps:     3,
				Scheduler: "sequential",
				Seed:      42,
				Started:   time.Unix(1700000000, 0),
			}
			if err := s.SaveRun(ctx, run); err != nil {
				t.Fatalf("save run: %v", err)
			}
			got, ok, err := s.GetRun(ctx, "r1")
			if err != nil || !ok {
				t.Fatalf("get run: %v, %v", ok, err)
			}
			if got.Kind != run.Kind || got.Seed != run.Seed || !got.Started.Equal(run.Started) {
				t.Errorf("run = %+v, want %+v", got, run)
			}
			if _, ok, _ := s.GetRun(ctx, "missing"); ok {
				t.Error("found missing run")
			}
			early := Run{ID: "r0", Kind: "growth", Started: time.Unix(1600000000, 0)}
			if err := s.SaveRun(ctx, early); err != nil {
				t.Fatal(err)
			}
			ids, err := s.RunIDs(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(ids) != 2 || ids[0] != "r0" || ids[1] != "r1" {
				t.Errorf("RunIDs = %v, want [r0 r1]", ids)
			}

			obs := []Observation{
				{RunID: "r1", Step: 1, CellID: 0, Value: 1.2},
				{RunID: "r1", Step: 0, CellID: 0, Value: 0.6},
				{RunID: "r1", Step: 0, CellID: 1, Value: 0.3, Label: "x"},
				{RunID: "r2", Step: 0, CellID: 0, Value: 9},
			}
			if err := s.AppendObservations(ctx, obs); err != nil {
				t.Fatalf("append: %v", err)
			}

			h, err := s.History(ctx, "r1", 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(h) != 2 || h[0].Step != 0 || h[1].Step != 1 {
				t.Fatalf("history = %+v", h)
			}
			if math.Abs(h[1].Value-1.2) > 1e-12 {
				t.Errorf("value = %v, want 1.2", h[1].Value)
			}

			h, _ = s.History(ctx, "r1", 1)
			if len(h) != 1 || h[0].Label != "x" {
				t.Errorf("cell 1 history = %+v", h)
			}
			if h, _ := s.History(ctx, "r3", 0); len(h) != 0 {
				t.Errorf("unknown run history = %+v", h)
			}
		})
	}
}

func TestUninitializedStore(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.AppendObservations(ctx, []Observation{{RunID: "r"}}); err == nil {
				t.Error("expected error appending before Init")
			}
		})
	}
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		kind, path string
		wantErr    bool
	}{
		{"", "", false},
		{"memory", "", false},
		{"sqlite", "run.db", false},
		{"sqlite", "", true},
		{"postgres", "x", true},
	}
	for _, tt := range tests {
		t.Run(tt.kind+"/"+tt.path, func(t *testing.T) {
			_, err := NewStore(tt.kind, tt.path)
			if tt.wantErr {
				if !errors.Is(err, cell.ErrConfig) {
					t.Errorf("err = %v, want configuration error", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRecorderPersistsHistory(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Init(ctx); err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { _ = s.Close() })

			env, _ := environment.New(2, 10)
			org, err := organoid.NewSpiking(env, neural.Constant(0.6), 3, nil, rand.New(rand.NewPCG(1, 9)))
			if err != nil {
				t.Fatal(err)
			}
			rec := NewRecorder(s, "run")
			if err := scheduler.New(org, scheduler.WithObserver(rec)).Simulate(ctx, 3); err != nil {
				t.Fatal(err)
			}

			for _, c := range org.Cells() {
				h, err := s.History(ctx, "run", c.ID)
				if err != nil {
					t.Fatal(err)
				}
				want := c.History()
				if len(h) != len(want) {
					t.Fatalf("cell %d stored %d observations, want %d", c.ID, len(h), len(want))
				}
				for i := range want {
					if h[i].Step != i || math.Abs(h[i].Value-want[i].Value) > 1e-12 {
						t.Errorf("cell %d step %d = %+v, want %v", c.ID, i, h[i], want[i].Value)
					}
				}
			}
		})
	}
}

type ctxKey struct{}

// ctxStore remembers the context of the last append.
type ctxStore struct {
	*MemoryStore
	seen any
}

func (s *ctxStore) AppendObservations(ctx context.Context, obs []Observation) error {
	s.seen = ctx.Value(ctxKey{})
	return s.MemoryStore.AppendObservations(ctx, obs)
}

func TestRecorderUsesSimulateContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), ctxKey{}, "sim")
	s := &ctxStore{MemoryStore: NewMemoryStore()}
	if err := s.Init(ctx); err != nil {
		t.Fatal(err)
	}
	env, _ := environment.New(2, 10)
	org, err := organoid.NewSpiking(env, neural.Constant(0.6), 2, nil, rand.New(rand.NewPCG(1, 9)))
	if err != nil {
		t.Fatal(err)
	}
	if err := scheduler.New(org, scheduler.WithObserver(NewRecorder(s, "run"))).Simulate(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if s.seen != "sim" {
		t.Errorf("append context value = %v, want the Simulate context", s.seen)
	}
}
