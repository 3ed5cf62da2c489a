// Package main calibrates organoid module parameters with CMA-ES so that the
// population's mean final observation reaches a target value.
package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/organoid/config"
)

// formatDuration formats a duration as HhMMmSSs or MmSSs for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

// Options configures one calibration.
type Options struct {
	ConfigPath string
	Target     float64
	Steps      int // 0 keeps the config value
	Seeds      int
	MaxEvals   int
	Population int // 0 = auto
	OutputDir  string
}

// Result is the best parameter set found.
type Result struct {
	Params  []float64
	Fitness float64
	Evals   int
}

func main() {
	var opts Options
	cmd := &cobra.Command{
		Use:          "calibrate",
		Short:        "Calibrate organoid parameters toward a target mean observation",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := calibrate(opts, cmd.OutOrStdout())
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.ConfigPath, "config", "", "Base config YAML file (empty = use defaults)")
	f.Float64Var(&opts.Target, "target", 0, "Target mean final observation")
	f.IntVar(&opts.Steps, "steps", 0, "Steps per run (0 = use config)")
	f.IntVar(&opts.Seeds, "seeds", 3, "Number of seeds per evaluation")
	f.IntVar(&opts.MaxEvals, "max-evals", 200, "Maximum number of evaluations")
	f.IntVar(&opts.Population, "population", 0, "CMA-ES population size (0 = auto)")
	f.StringVar(&opts.OutputDir, "output", "", "Output directory for results")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("output")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func calibrate(opts Options, w io.Writer) (Result, error) {
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return Result{}, fmt.Errorf("creating output directory: %w", err)
	}

	baseCfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return Result{}, err
	}
	if opts.Steps > 0 {
		baseCfg.Simulation.Steps = opts.Steps
	}
	params, err := NewParamVector(baseCfg)
	if err != nil {
		return Result{}, err
	}

	seeds := make([]uint64, max(opts.Seeds, 1))
	for i := range seeds {
		seeds[i] = uint64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, baseCfg, seeds, opts.Target)

	dim := params.Dim()
	initX := params.Normalize(params.DefaultVector(baseCfg))

	popSize := opts.Population
	if popSize == 0 {
		// 4 + floor(3*ln(n))
		popSize = 4 + int(3*math.Log(float64(dim)))
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}
	settings := &optimize.Settings{
		FuncEvaluations: opts.MaxEvals,
		Concurrent:      0, // Sequential evaluation
	}

	logFile, err := os.Create(filepath.Join(opts.OutputDir, "calibrate_log.csv"))
	if err != nil {
		return Result{}, fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()
	logWriter := csv.NewWriter(logFile)
	defer logWriter.Flush()

	header := []string{"eval", "fitness", "mean"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := logWriter.Write(header); err != nil {
		return Result{}, err
	}

	var (
		mu    sync.Mutex
		best  = Result{Fitness: math.Inf(1)}
		count int
		start = time.Now()
	)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			clamped := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(clamped)
			mean := evaluator.LastMean()

			mu.Lock()
			defer mu.Unlock()
			count++
			if fitness < best.Fitness {
				best.Fitness = fitness
				best.Params = clamped
			}

			row := []string{strconv.Itoa(count), fmt.Sprintf("%.6f", fitness), fmt.Sprintf("%.6f", mean)}
			for _, v := range clamped {
				row = append(row, fmt.Sprintf("%.6f", v))
			}
			_ = logWriter.Write(row)
			logWriter.Flush()

			elapsed := time.Since(start)
			remaining := time.Duration(opts.MaxEvals-count) * (elapsed / time.Duration(count))
			fmt.Fprintf(w, "Eval %d/%d: mean=%.4f fitness=%.6f (best=%.6f) | elapsed: %s, ETA: %s\n",
				count, opts.MaxEvals, mean, fitness, best.Fitness,
				formatDuration(elapsed), formatDuration(remaining))
			return fitness
		},
	}

	fmt.Fprintf(w, "Starting CMA-ES calibration of %d parameters for %s organoids, population=%d, max_evals=%d, target=%g\n",
		dim, baseCfg.Derived.Kind, popSize, opts.MaxEvals, opts.Target)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		fmt.Fprintf(w, "calibration ended: %v\n", err)
	}
	if best.Params == nil && result != nil {
		best.Params = params.Clamp(params.Denormalize(result.X))
	}
	best.Evals = count

	fmt.Fprintf(w, "\nCalibration complete after %d evaluations in %s\n", count, formatDuration(time.Since(start)))
	fmt.Fprintf(w, "Best fitness: %.6f\n\nBest parameters:\n", best.Fitness)
	for i, spec := range params.Specs {
		fmt.Fprintf(w, "  %s (%s): %.6f\n", spec.Name, spec.Path, best.Params[i])
	}

	bestCfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return best, err
	}
	if opts.Steps > 0 {
		bestCfg.Simulation.Steps = opts.Steps
	}
	params.ApplyToConfig(bestCfg, best.Params)
	outPath := filepath.Join(opts.OutputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(outPath); err != nil {
		return best, err
	}
	fmt.Fprintf(w, "\nBest config saved to: %s\n", outPath)
	return best, nil
}
