package cell

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"
)

// DefaultWeight is the initial weight of a newly wired synapse.
const DefaultWeight = 0.5

// SynapseHandle addresses a synapse inside an Arena.
type SynapseHandle = ecs.Entity

// Synapse is a weighted directed connection between two spiking cells.
// The cell pointers are non-owning; the organoid owns the cells.
type Synapse struct {
	Pre    *Cell
	Post   *Cell
	Weight float64
}

// Arena owns every synapse of an organoid. Cells hold handles into it.
type Arena struct {
	world    *ecs.World
	synapses *ecs.Map1[Synapse]
	filter   *ecs.Filter1[Synapse]
	handles  []SynapseHandle
}

// NewArena creates an empty synapse arena.
func NewArena() *Arena {
	world := ecs.NewWorld()
	return &Arena{
		world:    world,
		synapses: ecs.NewMap1[Synapse](world),
		filter:   ecs.NewFilter1[Synapse](world),
	}
}

// Connect creates a synapse pre -> post and records the handle on pre.
// Pre must be a synaptic cell; post may be any spiking cell.
func (a *Arena) Connect(pre, post *Cell, weight float64) (SynapseHandle, error) {
	if _, ok := post.spiking(); !ok {
		return SynapseHandle{}, post.wrongState("spiking")
	}
	syn := Synapse{Pre: pre, Post: post, Weight: weight}
	h := a.synapses.NewEntity(&syn)
	if err := pre.attachSynapse(h); err != nil {
		a.world.RemoveEntity(h)
		return SynapseHandle{}, err
	}
	if pre.arena == nil {
		pre.arena = a
	}
	a.handles = append(a.handles, h)
	return h, nil
}

// Get resolves a handle to its synapse record.
func (a *Arena) Get(h SynapseHandle) (*Synapse, error) {
	if h.IsZero() || !a.world.Alive(h) {
		return nil, fmt.Errorf("synapse %v: %w", h, ErrUnknownSynapse)
	}
	return a.synapses.Get(h), nil
}

// Transmit propagates a spike across h: if the pre cell's potential has
// reached its threshold, the post cell's potential rises by the weight.
func (a *Arena) Transmit(h SynapseHandle) error {
	syn, err := a.Get(h)
	if err != nil {
		return err
	}
	pre, ok := syn.Pre.spiking()
	if !ok {
		return syn.Pre.wrongState("spiking")
	}
	if !pre.Fired() {
		return nil
	}
	return syn.Post.AddPotential(syn.Weight)
}

// Len returns the number of live synapses.
func (a *Arena) Len() int {
	return len(a.handles)
}

// Handles returns the live handles in creation order.
func (a *Arena) Handles() []SynapseHandle {
	out := make([]SynapseHandle, len(a.handles))
	copy(out, a.handles)
	return out
}

// Each calls fn for every live synapse. Iteration order is unspecified.
func (a *Arena) Each(fn func(h SynapseHandle, s *Synapse)) {
	query := a.filter.Query()
	for query.Next() {
		fn(query.Entity(), query.Get())
	}
}

// Weights returns the weight of each synapse in creation order.
func (a *Arena) Weights() []float64 {
	out := make([]float64, 0, len(a.handles))
	for _, h := range a.handles {
		out = append(out, a.synapses.Get(h).Weight)
	}
	return out
}

// Close removes every synapse. Handles held by cells become invalid.
func (a *Arena) Close() {
	for _, h := range a.handles {
		if a.world.Alive(h) {
			a.world.RemoveEntity(h)
		}
	}
	a.handles = nil
}
