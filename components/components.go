// Package components defines the state records carried by simulated cells.
package components

import (
	"fmt"
	"strings"
)

// Kind identifies a cell variant. Variants differ in state shape, not behavior.
type Kind uint8

const (
	KindSpiking         Kind = iota // Membrane potential + threshold
	KindGrowth                      // Volume
	KindDifferentiating             // Discrete state tag
	KindChemotactic                 // Gradient scalar
	KindImmune                      // Active flag
	KindSynaptic                    // Spiking state + outgoing synapses
	KindMetabolic                   // Energy scalar
	KindGeneRegulation              // Expression level + regulation variance
)

var kindNames = []string{
	"spiking",
	"growth",
	"differentiating",
	"chemotactic",
	"immune",
	"synaptic",
	"metabolic",
	"gene_regulation",
}

// String returns the config name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// ParseKind resolves a config name (case-insensitive, '-' or '_') to a Kind.
func ParseKind(name string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for i, n := range kindNames {
		if n == norm {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown cell kind %q", name)
}

// Observation is one recorded history entry.
// Boolean states record 0/1; discrete states record their index with a label.
type Observation struct {
	Value float64
	Label string
}

// State is the tagged payload of a cell. Only types in this package implement it.
type State interface {
	Kind() Kind
	// Observe returns the variant's natural observation for history.
	Observe() Observation
	isState()
}
