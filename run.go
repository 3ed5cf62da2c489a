package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/organoid/config"
	"github.com/pthm-cable/organoid/sim"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build an organoid from the configuration and simulate it",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg); err != nil {
				return err
			}

			logger := newLogger(cmd.OutOrStdout(), cfg.Logging, cfg.Derived.LogLevel)
			slog.SetDefault(logger)

			s, err := sim.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.Uint64("seed", 0, "RNG seed (0 = time-based; overrides simulation.seed)")
	f.Int("steps", 0, "Number of steps to simulate (overrides simulation.steps)")
	f.String("scheduler", "", "Scheduling policy: sequential, stochastic, priority, parallel")
	f.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	f.String("store", "", "Run store backend: none, memory, sqlite")
	f.String("store-path", "", "SQLite database path")
	f.String("log-level", "", "Log level: debug, info, warn, error")
	return cmd
}

// applyRunFlags overlays explicitly set flags on cfg and revalidates it.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("seed") {
		cfg.Simulation.Seed, _ = f.GetUint64("seed")
	}
	if f.Changed("steps") {
		cfg.Simulation.Steps, _ = f.GetInt("steps")
	}
	if f.Changed("scheduler") {
		cfg.Simulation.Scheduler, _ = f.GetString("scheduler")
	}
	if f.Changed("output-dir") {
		cfg.Telemetry.OutputDir, _ = f.GetString("output-dir")
	}
	if f.Changed("store") {
		cfg.Store.Backend, _ = f.GetString("store")
	}
	if f.Changed("store-path") {
		cfg.Store.Path, _ = f.GetString("store-path")
	}
	if f.Changed("log-level") {
		cfg.Logging.Level, _ = f.GetString("log-level")
	}
	return cfg.Finalize()
}
