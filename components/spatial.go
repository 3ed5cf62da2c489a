package components

import "gonum.org/v1/gonum/floats"

// Position is an n-dimensional coordinate inside the environment.
// A one-element Position stands in for the scalar placeholder.
type Position []float64

// Dim returns the dimensionality of the position.
func (p Position) Dim() int {
	return len(p)
}

// Clone returns an independent copy.
func (p Position) Clone() Position {
	if p == nil {
		return nil
	}
	out := make(Position, len(p))
	copy(out, p)
	return out
}

// Add moves the position by delta in place. Extra delta axes are ignored.
func (p Position) Add(delta []float64) {
	n := len(p)
	if len(delta) < n {
		n = len(delta)
	}
	floats.Add(p[:n], delta[:n])
}

// Shift moves every axis by the same amount.
func (p Position) Shift(amount float64) {
	floats.AddConst(amount, p)
}

// Norm returns the Euclidean length of the position vector.
func (p Position) Norm() float64 {
	if len(p) == 0 {
		return 0
	}
	return floats.Norm(p, 2)
}
