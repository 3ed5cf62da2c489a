// Package sim assembles a runnable simulation from configuration: the
// environment, the shared predictor, the organoid, and the scheduler with
// its telemetry and storage observers.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/pthm-cable/organoid/config"
	"github.com/pthm-cable/organoid/environment"
	"github.com/pthm-cable/organoid/neural"
	"github.com/pthm-cable/organoid/organoid"
	"github.com/pthm-cable/organoid/scheduler"
	"github.com/pthm-cable/organoid/store"
	"github.com/pthm-cable/organoid/telemetry"
)

// Sim is one configured run.
type Sim struct {
	cfg    *config.Config
	seed   uint64
	logger *slog.Logger

	env       *environment.Environment
	predictor neural.Predictor
	org       *organoid.Organoid
	out       *telemetry.OutputManager
	perf      *telemetry.PerfCollector
	collector *telemetry.Collector
	store     store.Store
	runID     string
	sched     *scheduler.Scheduler
}

// New builds everything cfg describes. A zero simulation seed is replaced
// with a time-based one. The caller must Close the result.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *Sim, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1^0x9e3779b97f4a7c15))

	s := &Sim{cfg: cfg, seed: seed, logger: logger}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	if s.env, err = BuildEnvironment(cfg, seed, rng); err != nil {
		return nil, err
	}
	if s.predictor, err = BuildPredictor(cfg); err != nil {
		return nil, err
	}
	spec, err := BuildSpec(cfg, s.env, logger)
	if err != nil {
		return nil, err
	}
	if s.org, err = organoid.Build(s.env, s.predictor, spec, rng); err != nil {
		return nil, err
	}
	logger.Info("organoid built", "seed", seed, "summary", s.org.Summary())

	if s.out, err = telemetry.NewOutputManager(cfg.Telemetry.OutputDir); err != nil {
		return nil, err
	}
	if err = s.out.WriteConfig(cfg); err != nil {
		return nil, err
	}

	s.perf = telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	s.collector = telemetry.NewCollector(s.org, s.out, cfg.Telemetry.StatsWindow, logger).WithPerf(s.perf)

	opts := []scheduler.Option{
		scheduler.WithPolicy(cfg.Derived.Policy),
		scheduler.WithProbability(cfg.Simulation.Probability),
		scheduler.WithPriorities(Priorities(s.org, cfg.Simulation.Priorities)),
		scheduler.WithRand(rng),
		scheduler.WithObserver(s.collector),
		scheduler.WithPhaseTimer(s.perf),
		scheduler.WithLogger(logger, cfg.Simulation.LogEvery),
	}

	if backend := cfg.Store.Backend; backend != "" && backend != "none" {
		rec, err := s.openStore(ctx, spec.Kind.String())
		if err != nil {
			return nil, err
		}
		opts = append(opts, scheduler.WithObserver(rec))
	}

	s.sched = scheduler.New(s.org, opts...)
	return s, nil
}

func (s *Sim) openStore(ctx context.Context, kind string) (*store.Recorder, error) {
	backend := s.cfg.Store.Backend
	st, err := store.NewStore(backend, s.cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Init(ctx); err != nil {
		return nil, fmt.Errorf("initializing %s store: %w", backend, err)
	}
	s.store = st

	run := store.Run{
		ID:        fmt.Sprintf("%s-%d-%d", kind, s.seed, time.Now().Unix()),
		Kind:      kind,
		Cells:     s.org.Len(),
		Steps:     s.cfg.Simulation.Steps,
		Scheduler: s.cfg.Derived.Policy.String(),
		Seed:      s.seed,
		Started:   time.Now(),
	}
	if err := st.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("saving run: %w", err)
	}
	s.runID = run.ID
	s.logger.Info("recording run", "store", backend, "run_id", run.ID)
	return store.NewRecorder(st, run.ID), nil
}

// Run simulates the configured number of steps.
func (s *Sim) Run(ctx context.Context) error {
	if err := s.sched.Simulate(ctx, s.cfg.Simulation.Steps); err != nil {
		return err
	}
	s.logger.Info("final", "stats", s.collector.Last(), "perf", s.perf.Stats())
	return nil
}

// Seed returns the effective seed.
func (s *Sim) Seed() uint64 { return s.seed }

// Organoid returns the simulated organoid.
func (s *Sim) Organoid() *organoid.Organoid { return s.org }

// Stats returns the most recent step stats.
func (s *Sim) Stats() telemetry.StepStats { return s.collector.Last() }

// RunID returns the stored run ID, or "" when no store is configured.
func (s *Sim) RunID() string { return s.runID }

// Close releases the organoid, output files and store.
func (s *Sim) Close() error {
	var errs []error
	if s.org != nil {
		s.org.Close()
	}
	if err := s.out.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
