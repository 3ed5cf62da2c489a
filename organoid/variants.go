package organoid

import (
	"fmt"
	"math/rand/v2"

	"github.com/pthm-cable/organoid/cell"
	"github.com/pthm-cable/organoid/components"
	"github.com/pthm-cable/organoid/environment"
	"github.com/pthm-cable/organoid/neural"
	"github.com/pthm-cable/organoid/systems"
)

// NewSpiking builds spiking neurons. A nil inputs keeps the default [0.5]*10.
func NewSpiking(env *environment.Environment, p neural.Predictor, numCells int, inputs cell.InputProvider, rng *rand.Rand) (*Organoid, error) {
	spec := DefaultSpec(components.KindSpiking)
	spec.NumCells = numCells
	spec.Inputs = inputs
	return Build(env, p, spec, rng)
}

// NewGrowth builds growing/shrinking cells. initialVolume <= 0 randomizes volumes.
func NewGrowth(env *environment.Environment, p neural.Predictor, numCells int, initialVolume, amount, variance, threshold float64, rng *rand.Rand) (*Organoid, error) {
	spec := DefaultSpec(components.KindGrowth)
	spec.NumCells = numCells
	spec.InitialVolume = initialVolume
	spec.GrowthAmount = amount
	spec.GrowthVariance = variance
	spec.GrowthThreshold = threshold
	spec.Inputs = StateInputs
	return Build(env, p, spec, rng)
}

// NewDifferentiation builds differentiating cells over states (nil uses the default table).
func NewDifferentiation(env *environment.Environment, p neural.Predictor, numCells int, states []string, rng *rand.Rand) (*Organoid, error) {
	spec := DefaultSpec(components.KindDifferentiating)
	spec.NumCells = numCells
	if states != nil {
		spec.States = states
	}
	spec.Inputs = StateInputs
	return Build(env, p, spec, rng)
}

// NewChemotaxis builds chemotactic cells. A nil field moves cells along every axis.
func NewChemotaxis(env *environment.Environment, p neural.Predictor, numCells int, field systems.GradientField, rng *rand.Rand) (*Organoid, error) {
	spec := DefaultSpec(components.KindChemotactic)
	spec.NumCells = numCells
	spec.Field = field
	spec.Inputs = PositionInputs
	return Build(env, p, spec, rng)
}

// NewImmune builds immune cells.
func NewImmune(env *environment.Environment, p neural.Predictor, numCells int, rng *rand.Rand) (*Organoid, error) {
	spec := DefaultSpec(components.KindImmune)
	spec.NumCells = numCells
	spec.Inputs = StateInputs
	return Build(env, p, spec, rng)
}

// NewSynaptic builds synaptic neurons and wires numSynapses random synapses.
func NewSynaptic(env *environment.Environment, p neural.Predictor, numCells, numSynapses int, rng *rand.Rand) (*Organoid, error) {
	spec := DefaultSpec(components.KindSynaptic)
	spec.NumCells = numCells
	spec.NumSynapses = numSynapses
	return Build(env, p, spec, rng)
}

// NewMetabolic builds metabolic cells starting at components.InitialEnergy.
func NewMetabolic(env *environment.Environment, p neural.Predictor, numCells int, rng *rand.Rand) (*Organoid, error) {
	spec := DefaultSpec(components.KindMetabolic)
	spec.NumCells = numCells
	spec.Inputs = StateInputs
	return Build(env, p, spec, rng)
}

// NewGeneRegulation builds gene-regulating cells.
func NewGeneRegulation(env *environment.Environment, p neural.Predictor, numCells int, variance float64, rng *rand.Rand) (*Organoid, error) {
	spec := DefaultSpec(components.KindGeneRegulation)
	spec.NumCells = numCells
	spec.RegulationVariance = variance
	spec.Inputs = StateInputs
	return Build(env, p, spec, rng)
}

// StateInputs feeds the cell's current observation value.
func StateInputs(c *cell.Cell) ([]float64, error) {
	return []float64{c.Observe().Value}, nil
}

// PositionInputs feeds a copy of the cell's position.
func PositionInputs(c *cell.Cell) ([]float64, error) {
	return c.Position().Clone(), nil
}

// InputsByName resolves a configured input provider name.
// "default" returns nil so the cell keeps its variant default.
func InputsByName(name string) (cell.InputProvider, error) {
	switch name {
	case "", "default":
		return nil, nil
	case "state":
		return StateInputs, nil
	case "position":
		return PositionInputs, nil
	}
	return nil, fmt.Errorf("%w: unknown input provider %q", cell.ErrConfig, name)
}
