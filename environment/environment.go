// Package environment holds the ambient state shared by every cell of one or
// more organoids: an extent and an ordered list of conditions.
package environment

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/organoid/components"
)

// Defaults for a new environment.
const (
	DefaultDimensions = 3
	DefaultSize       = 100.0
)

// Condition is an independently updatable piece of ambient state.
type Condition interface {
	Name() string
	Update()
}

// Environment is a cubic extent [0, Size)^Dimensions plus its conditions.
type Environment struct {
	Dimensions int
	Size       float64

	conditions []Condition
}

// New creates an empty environment.
func New(dimensions int, size float64) (*Environment, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: environment dimensions must be positive, got %d", components.ErrConfig, dimensions)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: environment size must be positive, got %g", components.ErrConfig, size)
	}
	return &Environment{Dimensions: dimensions, Size: size}, nil
}

// AddCondition appends c. Conditions update in registration order.
func (e *Environment) AddCondition(c Condition) {
	e.conditions = append(e.conditions, c)
}

// Conditions returns the registered conditions in order.
func (e *Environment) Conditions() []Condition {
	return e.conditions
}

// Update advances every condition once.
func (e *Environment) Update() {
	for _, c := range e.conditions {
		c.Update()
	}
}

// RandomPosition draws a position uniformly inside the extent.
func (e *Environment) RandomPosition(rng *rand.Rand) components.Position {
	u := distuv.Uniform{Min: 0, Max: e.Size}
	if rng != nil {
		u.Src = rng
	}
	pos := make(components.Position, e.Dimensions)
	for i := range pos {
		pos[i] = u.Rand()
	}
	return pos
}

// Contains reports whether pos lies inside the extent.
func (e *Environment) Contains(pos components.Position) bool {
	if len(pos) != e.Dimensions {
		return false
	}
	for _, v := range pos {
		if v < 0 || v >= e.Size {
			return false
		}
	}
	return true
}

// Find returns the first condition of type T.
func Find[T Condition](e *Environment) (T, bool) {
	for _, c := range e.conditions {
		if t, ok := c.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}
