package telemetry

import (
	"context"
	"log/slog"

	"github.com/pthm-cable/organoid/cell"
	"github.com/pthm-cable/organoid/organoid"
)

// Collector observes scheduler steps. It streams per-cell history rows
// and emits StepStats (and optionally perf stats) every window steps.
type Collector struct {
	org    *organoid.Organoid
	out    *OutputManager
	window int
	perf   *PerfCollector
	logger *slog.Logger

	last StepStats
	rows []HistoryRow
}

// NewCollector creates a collector for org. out may be nil (no file output).
// window is the number of steps between stats emissions; values below 1 mean every step.
func NewCollector(org *organoid.Organoid, out *OutputManager, window int, logger *slog.Logger) *Collector {
	if window < 1 {
		window = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		org:    org,
		out:    out,
		window: window,
		logger: logger,
	}
}

// WithPerf attaches a perf collector whose stats are written alongside step stats.
func (c *Collector) WithPerf(p *PerfCollector) *Collector {
	c.perf = p
	return c
}

// StepStarted implements scheduler.Observer.
func (c *Collector) StepStarted(context.Context, int) error { return nil }

// StepFinished implements scheduler.Observer.
func (c *Collector) StepFinished(_ context.Context, step int, updated []cell.Agent) error {
	c.rows = c.rows[:0]
	for _, a := range updated {
		cl, ok := a.(*cell.Cell)
		if !ok {
			continue
		}
		obs, ok := cl.LastObservation()
		if !ok {
			continue
		}
		c.rows = append(c.rows, HistoryRow{
			Step:  step,
			Cell:  cl.ID,
			Kind:  cl.Kind().String(),
			Value: obs.Value,
			Label: obs.Label,
		})
	}
	if err := c.out.WriteHistory(c.rows); err != nil {
		return err
	}

	c.last = ComputeStepStats(step, c.org, len(updated))
	if (step+1)%c.window != 0 {
		return nil
	}

	c.logger.Info("stats", "stats", c.last)
	if err := c.out.WriteStats(c.last); err != nil {
		return err
	}
	if c.perf != nil {
		ps := c.perf.Stats()
		c.logger.Debug("perf", "perf", ps)
		if err := c.out.WritePerf(ps, step+1); err != nil {
			return err
		}
	}
	return nil
}

// Last returns the stats of the most recent step.
func (c *Collector) Last() StepStats { return c.last }

// ComputeStepStats summarizes the latest observation of every cell in org.
// Cells with no history yet are skipped.
func ComputeStepStats(step int, org *organoid.Organoid, updated int) StepStats {
	cells := org.Cells()
	s := StepStats{Step: step, Cells: len(cells), Updated: updated}

	values := make([]float64, 0, len(cells))
	var immune, active int
	for _, cl := range cells {
		obs, ok := cl.LastObservation()
		if !ok {
			continue
		}
		v := obs.Value
		values = append(values, v)

		if sp, ok := cl.Spiking(); ok && v >= sp.Threshold {
			s.Spikes++
		}
		if im, ok := cl.Immune(); ok {
			immune++
			if im.Active {
				active++
			}
		}
	}

	d := ComputeDistribution(values)
	s.Mean, s.Std = d.Mean, d.Std
	s.Min, s.Max = d.Min, d.Max
	s.P10, s.P50, s.P90 = d.P10, d.P50, d.P90

	if immune > 0 {
		s.ActiveFraction = float64(active) / float64(immune)
	}
	if a := org.Arena(); a != nil && a.Len() > 0 {
		s.MeanWeight = ComputeDistribution(a.Weights()).Mean
	}
	return s
}
