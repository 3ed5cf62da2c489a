package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// StepStats summarizes a population's latest observations after one step.
type StepStats struct {
	Step    int `csv:"step"`
	Cells   int `csv:"cells"`
	Updated int `csv:"updated"`

	// Distribution of each cell's latest observed value
	Mean float64 `csv:"mean"`
	Std  float64 `csv:"std"`
	Min  float64 `csv:"min"`
	Max  float64 `csv:"max"`
	P10  float64 `csv:"p10"`
	P50  float64 `csv:"p50"`
	P90  float64 `csv:"p90"`

	// Spiking cells whose latest observation reached threshold
	Spikes int `csv:"spikes"`
	// Fraction of immune cells that are active
	ActiveFraction float64 `csv:"active_fraction"`
	// Synapse weights (synaptic organoids only)
	MeanWeight float64 `csv:"mean_weight"`
}

// Percentile returns the p-th empirical quantile of a sorted slice.
// p should be in [0, 1]. Returns 0 if the slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// Distribution holds summary statistics of a sample.
type Distribution struct {
	Mean, Std, Min, Max, P10, P50, P90 float64
}

// ComputeDistribution summarizes values. Std is the population standard deviation.
func ComputeDistribution(values []float64) Distribution {
	n := len(values)
	if n == 0 {
		return Distribution{}
	}

	mean, std := stat.PopMeanStdDev(values, nil)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	return Distribution{
		Mean: mean,
		Std:  std,
		Min:  sorted[0],
		Max:  sorted[n-1],
		P10:  Percentile(sorted, 0.10),
		P50:  Percentile(sorted, 0.50),
		P90:  Percentile(sorted, 0.90),
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s StepStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("step", s.Step),
		slog.Int("cells", s.Cells),
		slog.Int("updated", s.Updated),
		slog.Float64("mean", s.Mean),
		slog.Float64("std", s.Std),
		slog.Float64("p10", s.P10),
		slog.Float64("p50", s.P50),
		slog.Float64("p90", s.P90),
		slog.Int("spikes", s.Spikes),
		slog.Float64("active_fraction", s.ActiveFraction),
		slog.Float64("mean_weight", s.MeanWeight),
	)
}
