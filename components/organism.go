package components

import "github.com/mlange-42/ark/ecs"

// DefaultThreshold is the spike threshold used when none is configured.
const DefaultThreshold = 1.0

// InitialEnergy is the starting energy of a metabolic cell.
const InitialEnergy = 100.0

// Undifferentiated is the initial state of a differentiating cell.
const Undifferentiated = "undifferentiated"

// Spiking holds a spiking neuron's membrane state.
type Spiking struct {
	MembranePotential float64
	Threshold         float64
}

func (*Spiking) Kind() Kind { return KindSpiking }

func (s *Spiking) Observe() Observation {
	return Observation{Value: s.MembranePotential}
}

// Fired reports whether the potential has reached the threshold.
func (s *Spiking) Fired() bool {
	return s.MembranePotential >= s.Threshold
}

func (*Spiking) isState() {}

// Growth holds a growing/shrinking cell's volume.
type Growth struct {
	Volume float64
}

func (*Growth) Kind() Kind { return KindGrowth }

func (g *Growth) Observe() Observation {
	return Observation{Value: g.Volume}
}

func (*Growth) isState() {}

// Differentiating holds a discrete differentiation state.
// Index is the position of State in the module's state table (0 = undifferentiated).
type Differentiating struct {
	State string
	Index int
}

func (*Differentiating) Kind() Kind { return KindDifferentiating }

func (d *Differentiating) Observe() Observation {
	return Observation{Value: float64(d.Index), Label: d.State}
}

func (*Differentiating) isState() {}

// Chemotactic holds the last gradient a cell moved along.
type Chemotactic struct {
	Gradient float64
}

func (*Chemotactic) Kind() Kind { return KindChemotactic }

func (c *Chemotactic) Observe() Observation {
	return Observation{Value: c.Gradient}
}

func (*Chemotactic) isState() {}

// Immune holds an immune cell's activation flag.
type Immune struct {
	Active bool
}

func (*Immune) Kind() Kind { return KindImmune }

func (i *Immune) Observe() Observation {
	if i.Active {
		return Observation{Value: 1, Label: "active"}
	}
	return Observation{Value: 0, Label: "inactive"}
}

func (*Immune) isState() {}

// Synaptic is a spiking neuron that owns outgoing synapses.
// Outgoing holds arena handles; the arena owns the synapse records.
type Synaptic struct {
	Spiking
	Outgoing []ecs.Entity
}

func (*Synaptic) Kind() Kind { return KindSynaptic }

func (*Synaptic) isState() {}

// Metabolic holds a cell's energy reserve.
type Metabolic struct {
	Energy         float64
	MetabolismRate float64
}

func (*Metabolic) Kind() Kind { return KindMetabolic }

func (m *Metabolic) Observe() Observation {
	return Observation{Value: m.Energy}
}

func (*Metabolic) isState() {}

// GeneRegulation holds a gene expression level and its stochastic variance.
type GeneRegulation struct {
	ExpressionLevel    float64
	RegulationVariance float64
}

func (*GeneRegulation) Kind() Kind { return KindGeneRegulation }

func (g *GeneRegulation) Observe() Observation {
	return Observation{Value: g.ExpressionLevel}
}

func (*GeneRegulation) isState() {}
