// Package organoid composes populations of cells bound to one environment.
package organoid

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/pthm-cable/organoid/cell"
	"github.com/pthm-cable/organoid/components"
	"github.com/pthm-cable/organoid/environment"
	"github.com/pthm-cable/organoid/neural"
	"github.com/pthm-cable/organoid/systems"
)

// Organoid owns a population of agents and the synapses between them.
type Organoid struct {
	env       *environment.Environment
	agents    []cell.Agent
	arena     *cell.Arena
	kind      components.Kind
	predictor neural.Predictor
}

// New creates an empty organoid bound to env.
func New(env *environment.Environment) *Organoid {
	return &Organoid{env: env, arena: cell.NewArena()}
}

// Add appends an agent. Agents update in insertion order under a
// sequential scheduler.
func (o *Organoid) Add(a cell.Agent) {
	o.agents = append(o.agents, a)
}

// Agents returns the population in insertion order. Callers must not modify the slice.
func (o *Organoid) Agents() []cell.Agent {
	return o.agents
}

// Cells returns every agent that is a *cell.Cell, in insertion order.
func (o *Organoid) Cells() []*cell.Cell {
	out := make([]*cell.Cell, 0, len(o.agents))
	for _, a := range o.agents {
		if c, ok := a.(*cell.Cell); ok {
			out = append(out, c)
		}
	}
	return out
}

// CellByID finds a cell by its ID.
func (o *Organoid) CellByID(id int) (*cell.Cell, bool) {
	for _, a := range o.agents {
		if c, ok := a.(*cell.Cell); ok && c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// Len returns the population size.
func (o *Organoid) Len() int { return len(o.agents) }

// Environment returns the shared environment.
func (o *Organoid) Environment() *environment.Environment { return o.env }

// Arena returns the synapse arena.
func (o *Organoid) Arena() *cell.Arena { return o.arena }

// Kind returns the variant the factory built.
func (o *Organoid) Kind() components.Kind { return o.kind }

// Close releases the synapse arena.
func (o *Organoid) Close() {
	o.arena.Close()
}

// Summary is a structural description of an organoid.
type Summary struct {
	Dimensions int
	Size       float64
	Conditions []string
	Cells      int
	Kinds      map[string]int
	Modules    map[string]int
	Synapses   int
	Predictor  string
}

// Summary describes the organoid's structure.
func (o *Organoid) Summary() Summary {
	reg := systems.NewModuleRegistry()
	s := Summary{
		Cells:     len(o.agents),
		Kinds:     make(map[string]int),
		Modules:   make(map[string]int),
		Synapses:  o.arena.Len(),
		Predictor: neural.Describe(o.predictor).String(),
	}
	if o.env != nil {
		s.Dimensions = o.env.Dimensions
		s.Size = o.env.Size
		for _, c := range o.env.Conditions() {
			s.Conditions = append(s.Conditions, c.Name())
		}
	}
	for _, a := range o.agents {
		if c, ok := a.(*cell.Cell); ok {
			s.Kinds[c.Kind().String()]++
		}
		for _, m := range a.Modules() {
			s.Modules[reg.GetName(systems.ModuleID(m))]++
		}
	}
	return s
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "environment: %dD size=%g", s.Dimensions, s.Size)
	if len(s.Conditions) > 0 {
		fmt.Fprintf(&b, " conditions=[%s]", strings.Join(s.Conditions, ", "))
	}
	fmt.Fprintf(&b, "\ncells: %d %s", s.Cells, formatCounts(s.Kinds))
	fmt.Fprintf(&b, "\nmodules: %s", formatCounts(s.Modules))
	fmt.Fprintf(&b, "\nsynapses: %d\npredictor: %s", s.Synapses, s.Predictor)
	return b.String()
}

// LogValue implements slog.LogValuer.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("dimensions", s.Dimensions),
		slog.Float64("size", s.Size),
		slog.Int("cells", s.Cells),
		slog.String("kinds", formatCounts(s.Kinds)),
		slog.Int("synapses", s.Synapses),
		slog.String("predictor", s.Predictor),
	)
}

func formatCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
