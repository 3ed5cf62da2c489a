package systems

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/organoid/cell"
	"github.com/pthm-cable/organoid/neural"
)

// Growth defaults.
const (
	DefaultGrowthAmount    = 0.1
	DefaultGrowthVariance  = 0.05
	DefaultGrowthThreshold = 0.5
)

// CheckGrowth reports a configuration error unless 0 <= variance < amount,
// the range in which every growth step changes the volume in the predicted
// direction.
func CheckGrowth(amount, variance float64) error {
	if variance < 0 {
		return fmt.Errorf("%w: growth variance must not be negative, got %g", cell.ErrConfig, variance)
	}
	if variance >= amount {
		return fmt.Errorf("%w: growth variance %g must be below growth amount %g", cell.ErrConfig, variance, amount)
	}
	return nil
}

// ActivationThreshold splits a prediction into on/off for binary modules.
const ActivationThreshold = 0.5

// DefaultStates is the differentiation state table used when none is given.
var DefaultStates = []string{"undifferentiated", "progenitor", "differentiated"}

// SpikingModule adds the prediction to the membrane potential.
type SpikingModule struct {
	Predicted
}

func NewSpikingModule(p neural.Predictor) *SpikingModule {
	return &SpikingModule{Predicted: Predicted{Predictor: p}}
}

func (m *SpikingModule) Run(c *cell.Cell) error {
	return m.Dispatch(c, func(c *cell.Cell, pred []float64) error {
		return c.AddPotential(pred[0])
	})
}

// GrowthModule grows the cell when the prediction exceeds Threshold and
// shrinks it otherwise. The change is Amount + U(-Variance, Variance).
type GrowthModule struct {
	Predicted
	Amount    float64
	Variance  float64
	Threshold float64

	jitter distuv.Uniform
}

func NewGrowthModule(p neural.Predictor, amount, variance, threshold float64, rng *rand.Rand) *GrowthModule {
	return &GrowthModule{
		Predicted: Predicted{Predictor: p},
		Amount:    amount,
		Variance:  variance,
		Threshold: threshold,
		jitter:    distuv.Uniform{Min: -variance, Max: variance, Src: source(rng)},
	}
}

// Change draws one growth step.
func (m *GrowthModule) Change() float64 {
	if m.Variance == 0 {
		return m.Amount
	}
	return m.Amount + m.jitter.Rand()
}

func (m *GrowthModule) Run(c *cell.Cell) error {
	if err := CheckGrowth(m.Amount, m.Variance); err != nil {
		return fmt.Errorf("cell %d: %w", c.ID, err)
	}
	return m.Dispatch(c, func(c *cell.Cell, pred []float64) error {
		change := m.Change()
		if pred[0] > m.Threshold {
			return c.Grow(change)
		}
		return c.Shrink(change)
	})
}

// DifferentiationModule maps the prediction to a state in States by rounding
// and clamping into the table.
type DifferentiationModule struct {
	Predicted
	States []string
}

func NewDifferentiationModule(p neural.Predictor, states []string) *DifferentiationModule {
	if len(states) == 0 {
		states = DefaultStates
	}
	return &DifferentiationModule{Predicted: Predicted{Predictor: p}, States: states}
}

// StateIndex maps a prediction to a table index.
func (m *DifferentiationModule) StateIndex(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return clampInt(int(math.Round(v)), 0, len(m.States)-1)
}

func (m *DifferentiationModule) Run(c *cell.Cell) error {
	return m.Dispatch(c, func(c *cell.Cell, pred []float64) error {
		idx := m.StateIndex(pred[0])
		return c.Differentiate(idx, m.States[idx])
	})
}

// GradientField supplies a movement direction at a position.
type GradientField interface {
	Direction(pos []float64) []float64
}

// ChemotaxisModule moves the cell by the prediction, along Field's direction
// when a field is set and along every axis otherwise.
type ChemotaxisModule struct {
	Predicted
	Field GradientField
}

func NewChemotaxisModule(p neural.Predictor, field GradientField) *ChemotaxisModule {
	return &ChemotaxisModule{Predicted: Predicted{Predictor: p}, Field: field}
}

func (m *ChemotaxisModule) Run(c *cell.Cell) error {
	return m.Dispatch(c, func(c *cell.Cell, pred []float64) error {
		var dir []float64
		if m.Field != nil {
			dir = m.Field.Direction(c.Position())
		}
		return c.MoveTowardsGradient(pred[0], dir)
	})
}

// ImmuneModule activates the cell on a prediction above ActivationThreshold.
type ImmuneModule struct {
	Predicted
}

func NewImmuneModule(p neural.Predictor) *ImmuneModule {
	return &ImmuneModule{Predicted: Predicted{Predictor: p}}
}

func (m *ImmuneModule) Run(c *cell.Cell) error {
	return m.Dispatch(c, func(c *cell.Cell, pred []float64) error {
		if pred[0] > ActivationThreshold {
			return c.Activate()
		}
		return c.Deactivate()
	})
}

// MetabolicModule scales the cell's energy by the prediction.
type MetabolicModule struct {
	Predicted
}

func NewMetabolicModule(p neural.Predictor) *MetabolicModule {
	return &MetabolicModule{Predicted: Predicted{Predictor: p}}
}

func (m *MetabolicModule) Run(c *cell.Cell) error {
	return m.Dispatch(c, func(c *cell.Cell, pred []float64) error {
		return c.Metabolize(pred[0])
	})
}

// GeneRegulationModule scales expression by (0.5 + prediction) and adds
// N(0, Variance) noise.
type GeneRegulationModule struct {
	Predicted
	Variance float64

	noise distuv.Normal
}

func NewGeneRegulationModule(p neural.Predictor, variance float64, rng *rand.Rand) *GeneRegulationModule {
	return &GeneRegulationModule{
		Predicted: Predicted{Predictor: p},
		Variance:  variance,
		noise:     distuv.Normal{Mu: 0, Sigma: variance, Src: source(rng)},
	}
}

func (m *GeneRegulationModule) Run(c *cell.Cell) error {
	return m.Dispatch(c, func(c *cell.Cell, pred []float64) error {
		var jitter float64
		if m.Variance > 0 {
			jitter = m.noise.Rand()
		}
		return c.RegulateGenes(0.5+pred[0], jitter)
	})
}
