package main

import (
	"context"
	"log/slog"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/pthm-cable/organoid/config"
	"github.com/pthm-cable/organoid/sim"
)

// FitnessEvaluator runs quiet simulations and scores how far the population's
// mean final observation lands from the target.
type FitnessEvaluator struct {
	params     *ParamVector
	baseConfig *config.Config
	seeds      []uint64
	target     float64

	mu       sync.Mutex
	lastMean float64 // mean final observation from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, baseCfg *config.Config, seeds []uint64, target float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		baseConfig: baseCfg,
		seeds:      seeds,
		target:     target,
	}
}

// LastMean returns the mean final observation from the most recent evaluation.
func (fe *FitnessEvaluator) LastMean() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastMean
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	mean float64
	err  error
}

// Evaluate computes fitness for raw parameter values (lower = better).
// Fitness is the squared error of the final mean observation, averaged
// over seeds. A failed run scores +Inf.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s uint64) {
			defer wg.Done()
			mean, err := fe.runSimulation(x, s)
			results[idx] = seedResult{mean: mean, err: err}
		}(i, seed)
	}
	wg.Wait()

	var totalErr, totalMean float64
	for _, r := range results {
		if r.err != nil {
			slog.Warn("evaluation failed", "error", r.err)
			return math.Inf(1)
		}
		d := r.mean - fe.target
		totalErr += d * d
		totalMean += r.mean
	}

	n := float64(len(fe.seeds))
	fe.mu.Lock()
	fe.lastMean = totalMean / n
	fe.mu.Unlock()
	return totalErr / n
}

// runSimulation executes one run with x applied and returns the mean final observation.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed uint64) (float64, error) {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	cfg.Simulation.Seed = seed
	if err := cfg.Finalize(); err != nil {
		return 0, err
	}

	ctx := context.Background()
	s, err := sim.New(ctx, cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		return 0, err
	}
	defer s.Close()
	if err := s.Run(ctx); err != nil {
		return 0, err
	}
	return s.Stats().Mean, nil
}

// copyConfig returns a deep copy of the base config with file output and
// persistence disabled.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Simulation.Priorities = maps.Clone(cfg.Simulation.Priorities)
	cfg.Environment.Conditions = slices.Clone(cfg.Environment.Conditions)
	for i := range cfg.Environment.Conditions {
		cfg.Environment.Conditions[i].Range = slices.Clone(cfg.Environment.Conditions[i].Range)
	}
	cfg.Organoid.States = slices.Clone(cfg.Organoid.States)
	cfg.Predictor.Hidden = slices.Clone(cfg.Predictor.Hidden)

	cfg.Telemetry.OutputDir = ""
	cfg.Store.Backend = "none"
	cfg.Simulation.LogEvery = 0
	return &cfg
}
