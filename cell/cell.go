// Package cell implements the simulated entity model: agents, cells, the
// behavior modules attached to them, and the synapse arena that links
// spiking cells.
package cell

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/organoid/components"
)

// Module is a behavior unit attached to a cell. Run mutates the cell's state.
type Module interface {
	Run(c *Cell) error
}

// Agent is anything a scheduler can update once per simulated step.
type Agent interface {
	Update() error
	Position() components.Position
	Modules() []Module
	AddModule(m Module)
}

// InputProvider maps a cell's position/state to a predictor input vector.
type InputProvider func(c *Cell) ([]float64, error)

// DefaultSpikingInputs is the input vector of a spiking cell with no provider.
func DefaultSpikingInputs(*Cell) ([]float64, error) {
	in := make([]float64, 10)
	for i := range in {
		in[i] = 0.5
	}
	return in, nil
}

// Cell is the single entity record. Shared fields live here; variant
// fields live in the tagged State payload.
type Cell struct {
	ID int

	position components.Position
	modules  []Module
	history  []components.Observation
	inputs   InputProvider
	state    components.State
	arena    *Arena
	logger   *slog.Logger
}

var _ Agent = (*Cell)(nil)

// Option configures a Cell at construction.
type Option func(*Cell)

// WithInputProvider sets the cell's input data provider. A nil provider keeps the default.
func WithInputProvider(p InputProvider) Option {
	return func(c *Cell) {
		if p != nil {
			c.inputs = p
		}
	}
}

// WithArena sets the arena used to resolve the cell's outgoing synapses.
func WithArena(a *Arena) Option {
	return func(c *Cell) {
		c.arena = a
	}
}

// WithLogger sets the logger used for verbose spike reporting.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cell) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a cell of the variant described by state.
// Spiking and synaptic cells default their input provider to DefaultSpikingInputs.
func New(id int, pos components.Position, state components.State, opts ...Option) *Cell {
	c := &Cell{
		ID:       id,
		position: pos,
		state:    state,
		logger:   slog.Default(),
	}
	switch state.(type) {
	case *components.Spiking, *components.Synaptic:
		c.inputs = DefaultSpikingInputs
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Kind returns the cell variant.
func (c *Cell) Kind() components.Kind {
	return c.state.Kind()
}

// Position returns the cell's coordinate. Callers must not mutate it.
func (c *Cell) Position() components.Position {
	return c.position
}

// Modules returns the attached modules in execution order.
func (c *Cell) Modules() []Module {
	return c.modules
}

// AddModule appends a module to the end of the execution order.
func (c *Cell) AddModule(m Module) {
	c.modules = append(c.modules, m)
}

// History returns a copy of the recorded observations.
func (c *Cell) History() []components.Observation {
	out := make([]components.Observation, len(c.history))
	copy(out, c.history)
	return out
}

// LastObservation returns the most recent recorded observation.
func (c *Cell) LastObservation() (components.Observation, bool) {
	if len(c.history) == 0 {
		return components.Observation{}, false
	}
	return c.history[len(c.history)-1], true
}

// HistoryLen returns the number of recorded observations.
func (c *Cell) HistoryLen() int {
	return len(c.history)
}

// Observe returns the variant's current natural observation.
func (c *Cell) Observe() components.Observation {
	return c.state.Observe()
}


// InputData evaluates the cell's input data provider.
func (c *Cell) InputData() ([]float64, error) {
	if c.inputs == nil {
		return nil, fmt.Errorf("cell %d (%s): %w", c.ID, c.Kind(), ErrMissingInputProvider)
	}
	return c.inputs(c)
}

// RunModules runs every attached module in attachment order.
// The first failing module aborts the update.
func (c *Cell) RunModules() error {
	for i, m := range c.modules {
		if err := m.Run(c); err != nil {
			return fmt.Errorf("cell %d module %d: %w", c.ID, i, err)
		}
	}
	return nil
}

// Record appends obs to history. A nil obs means "no observation".
func (c *Cell) Record(obs *components.Observation) {
	if obs == nil {
		return
	}
	c.history = append(c.history, *obs)
}

// UpdateWith runs the module chain and then records obs.
func (c *Cell) UpdateWith(obs *components.Observation) error {
	if err := c.RunModules(); err != nil {
		return err
	}
	c.Record(obs)
	return nil
}

// Update runs the module chain, records the variant's natural observation,
// and applies variant post-conditions (synaptic transmission, spike reset).
func (c *Cell) Update() error {
	if err := c.RunModules(); err != nil {
		return err
	}
	obs := c.state.Observe()
	c.Record(&obs)

	switch s := c.state.(type) {
	case *components.Spiking:
		if s.Fired() {
			c.Spike(false)
		}
	case *components.Synaptic:
		if len(s.Outgoing) > 0 && c.arena == nil {
			return fmt.Errorf("%w: synaptic cell %d has no arena", ErrConfig, c.ID)
		}
		for _, h := range s.Outgoing {
			if err := c.arena.Transmit(h); err != nil {
				return fmt.Errorf("cell %d: %w", c.ID, err)
			}
		}
		if s.Fired() {
			c.Spike(false)
		}
	}
	return nil
}

// Spike resets the membrane potential of a spiking cell.
func (c *Cell) Spike(verbose bool) {
	s, ok := c.spiking()
	if !ok {
		return
	}
	s.MembranePotential = 0
	if verbose {
		c.logger.Info("neuron spiked", "cell", c.ID, "position", []float64(c.position))
	}
}

func (c *Cell) wrongState(want string) error {
	return fmt.Errorf("cell %d is %s, want %s: %w", c.ID, c.Kind(), want, ErrWrongState)
}
