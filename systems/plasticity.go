package systems

import (
	"fmt"

	"github.com/pthm-cable/organoid/cell"
)

// DefaultLearningRate is the plasticity learning rate.
const DefaultLearningRate = 0.01

// PlasticityModule adapts one synapse's weight from pre/post spiking:
// both fired pulls the weight toward 1, pre alone pushes it toward 0,
// anything else leaves it unchanged. It uses no predictor.
type PlasticityModule struct {
	Arena  *cell.Arena
	Handle cell.SynapseHandle
	Rate   float64
}

func NewPlasticityModule(arena *cell.Arena, h cell.SynapseHandle, rate float64) *PlasticityModule {
	return &PlasticityModule{Arena: arena, Handle: h, Rate: rate}
}

func (m *PlasticityModule) Run(*cell.Cell) error {
	if m.Arena == nil {
		return fmt.Errorf("%w: plasticity module has no arena", cell.ErrConfig)
	}
	syn, err := m.Arena.Get(m.Handle)
	if err != nil {
		return err
	}
	pre, ok := syn.Pre.Spiking()
	if !ok {
		return fmt.Errorf("plasticity pre cell %d: %w", syn.Pre.ID, cell.ErrWrongState)
	}
	post, ok := syn.Post.Spiking()
	if !ok {
		return fmt.Errorf("plasticity post cell %d: %w", syn.Post.ID, cell.ErrWrongState)
	}
	syn.Weight = Plasticity(syn.Weight, m.Rate, pre.Fired(), post.Fired())
	return nil
}

// Plasticity returns the updated weight for one pre/post spike pairing.
func Plasticity(w, rate float64, preSpike, postSpike bool) float64 {
	switch {
	case preSpike && postSpike:
		return w + rate*(1-w)
	case preSpike:
		return w - rate*w
	}
	return w
}
