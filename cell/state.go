package cell

import "github.com/pthm-cable/organoid/components"

// spiking returns the membrane state of a spiking or synaptic cell.
func (c *Cell) spiking() (*components.Spiking, bool) {
	switch s := c.state.(type) {
	case *components.Spiking:
		return s, true
	case *components.Synaptic:
		return &s.Spiking, true
	}
	return nil, false
}

// Spiking returns a copy of the membrane state (spiking and synaptic cells).
func (c *Cell) Spiking() (components.Spiking, bool) {
	s, ok := c.spiking()
	if !ok {
		return components.Spiking{}, false
	}
	return *s, true
}

// Growth returns a copy of the growth state.
func (c *Cell) Growth() (components.Growth, bool) {
	s, ok := c.state.(*components.Growth)
	if !ok {
		return components.Growth{}, false
	}
	return *s, true
}

// Differentiating returns a copy of the differentiation state.
func (c *Cell) Differentiating() (components.Differentiating, bool) {
	s, ok := c.state.(*components.Differentiating)
	if !ok {
		return components.Differentiating{}, false
	}
	return *s, true
}

// Chemotactic returns a copy of the chemotaxis state.
func (c *Cell) Chemotactic() (components.Chemotactic, bool) {
	s, ok := c.state.(*components.Chemotactic)
	if !ok {
		return components.Chemotactic{}, false
	}
	return *s, true
}

// Immune returns a copy of the immune state.
func (c *Cell) Immune() (components.Immune, bool) {
	s, ok := c.state.(*components.Immune)
	if !ok {
		return components.Immune{}, false
	}
	return *s, true
}

// Synaptic returns a copy of the synaptic state. Outgoing is copied too.
func (c *Cell) Synaptic() (components.Synaptic, bool) {
	s, ok := c.state.(*components.Synaptic)
	if !ok {
		return components.Synaptic{}, false
	}
	out := *s
	out.Outgoing = append(out.Outgoing[:0:0], s.Outgoing...)
	return out, true
}

// Metabolic returns a copy of the metabolic state.
func (c *Cell) Metabolic() (components.Metabolic, bool) {
	s, ok := c.state.(*components.Metabolic)
	if !ok {
		return components.Metabolic{}, false
	}
	return *s, true
}

// GeneRegulation returns a copy of the gene regulation state.
func (c *Cell) GeneRegulation() (components.GeneRegulation, bool) {
	s, ok := c.state.(*components.GeneRegulation)
	if !ok {
		return components.GeneRegulation{}, false
	}
	return *s, true
}

// AddPotential shifts the membrane potential of a spiking or synaptic cell.
func (c *Cell) AddPotential(delta float64) error {
	s, ok := c.spiking()
	if !ok {
		return c.wrongState("spiking")
	}
	s.MembranePotential += delta
	return nil
}

// Grow increases volume by amount.
func (c *Cell) Grow(amount float64) error {
	s, ok := c.state.(*components.Growth)
	if !ok {
		return c.wrongState("growth")
	}
	s.Volume += amount
	return nil
}

// Shrink decreases volume by amount.
func (c *Cell) Shrink(amount float64) error {
	s, ok := c.state.(*components.Growth)
	if !ok {
		return c.wrongState("growth")
	}
	s.Volume -= amount
	return nil
}

// Differentiate reassigns the discrete differentiation state.
func (c *Cell) Differentiate(index int, label string) error {
	s, ok := c.state.(*components.Differentiating)
	if !ok {
		return c.wrongState("differentiating")
	}
	s.Index = index
	s.State = label
	return nil
}

// MoveTowardsGradient moves the cell by step along direction.
// A nil direction moves every axis by step.
func (c *Cell) MoveTowardsGradient(step float64, direction []float64) error {
	s, ok := c.state.(*components.Chemotactic)
	if !ok {
		return c.wrongState("chemotactic")
	}
	if direction == nil {
		c.position.Shift(step)
	} else {
		delta := make([]float64, len(direction))
		for i, d := range direction {
			delta[i] = d * step
		}
		c.position.Add(delta)
	}
	s.Gradient = step
	return nil
}

// Activate sets the immune flag.
func (c *Cell) Activate() error {
	s, ok := c.state.(*components.Immune)
	if !ok {
		return c.wrongState("immune")
	}
	s.Active = true
	return nil
}

// Deactivate clears the immune flag.
func (c *Cell) Deactivate() error {
	s, ok := c.state.(*components.Immune)
	if !ok {
		return c.wrongState("immune")
	}
	s.Active = false
	return nil
}

// Metabolize multiplies energy by factor.
func (c *Cell) Metabolize(factor float64) error {
	s, ok := c.state.(*components.Metabolic)
	if !ok {
		return c.wrongState("metabolic")
	}
	s.Energy *= factor
	return nil
}

// RegulateGenes multiplies the expression level by factor, then adds jitter.
func (c *Cell) RegulateGenes(factor, jitter float64) error {
	s, ok := c.state.(*components.GeneRegulation)
	if !ok {
		return c.wrongState("gene_regulation")
	}
	s.ExpressionLevel = s.ExpressionLevel*factor + jitter
	return nil
}

// attachSynapse records an outgoing synapse handle on a synaptic cell.
func (c *Cell) attachSynapse(h SynapseHandle) error {
	s, ok := c.state.(*components.Synaptic)
	if !ok {
		return c.wrongState("synaptic")
	}
	s.Outgoing = append(s.Outgoing, h)
	return nil
}
