package environment

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Temperature is a scalar that is either static or redrawn uniformly from
// Range on every update.
type Temperature struct {
	Value float64
	Range *[2]float64

	dist distuv.Uniform
}

// NewTemperature creates a static temperature.
func NewTemperature(initial float64) *Temperature {
	return &Temperature{Value: initial}
}

// NewRangedTemperature creates a temperature redrawn from [lo, hi] each update.
func NewRangedTemperature(initial, lo, hi float64, rng *rand.Rand) *Temperature {
	t := &Temperature{
		Value: initial,
		Range: &[2]float64{lo, hi},
		dist:  distuv.Uniform{Min: lo, Max: hi},
	}
	if rng != nil {
		t.dist.Src = rng
	}
	return t
}

func (t *Temperature) Name() string { return "temperature" }

func (t *Temperature) Update() {
	if t.Range != nil {
		t.Value = t.dist.Rand()
	}
}

// Set overwrites the current temperature.
func (t *Temperature) Set(v float64) { t.Value = v }

// Get returns the current temperature.
func (t *Temperature) Get() float64 { return t.Value }

// Noise draws zero-mean Gaussian samples on demand.
type Noise struct {
	Level float64

	dist distuv.Normal
}

func NewNoise(level float64, rng *rand.Rand) *Noise {
	n := &Noise{Level: level, dist: distuv.Normal{Mu: 0, Sigma: level}}
	if rng != nil {
		n.dist.Src = rng
	}
	return n
}

func (n *Noise) Name() string { return "noise" }

func (n *Noise) Update() {}

// Sample draws one value from N(0, Level).
func (n *Noise) Sample() float64 {
	if n.Level == 0 {
		return 0
	}
	return n.dist.Rand()
}

// Gradient is a caller-defined vector field. A nil Func is the zero field.
type Gradient struct {
	Func func(pos []float64) []float64
}

func NewGradient(fn func(pos []float64) []float64) *Gradient {
	return &Gradient{Func: fn}
}

func (g *Gradient) Name() string { return "gradient" }

func (g *Gradient) Update() {}

// At evaluates the field at pos.
func (g *Gradient) At(pos []float64) []float64 {
	if g.Func == nil {
		return make([]float64, len(pos))
	}
	return g.Func(pos)
}

// Direction returns the unit vector of the field at pos, or a zero vector
// where the field vanishes.
func (g *Gradient) Direction(pos []float64) []float64 {
	return unit(g.At(pos))
}

// ChemicalGradient is a scalar concentration field. The default
// concentration is the distance from the origin.
type ChemicalGradient struct {
	Concentration func(pos []float64) float64
}

func NewChemicalGradient(fn func(pos []float64) float64) *ChemicalGradient {
	if fn == nil {
		fn = func(pos []float64) float64 {
			if len(pos) == 0 {
				return 0
			}
			return floats.Norm(pos, 2)
		}
	}
	return &ChemicalGradient{Concentration: fn}
}

func (c *ChemicalGradient) Name() string { return "chemical_gradient" }

func (c *ChemicalGradient) Update() {}

// At returns the concentration at pos.
func (c *ChemicalGradient) At(pos []float64) float64 {
	return c.Concentration(pos)
}

// Direction returns the unit direction of increasing concentration.
func (c *ChemicalGradient) Direction(pos []float64) []float64 {
	return unit(finiteDiff(c.Concentration, pos))
}

// ElectricField is a linear field proportional to position.
type ElectricField struct {
	Strength float64
}

func NewElectricField(strength float64) *ElectricField {
	return &ElectricField{Strength: strength}
}

func (e *ElectricField) Name() string { return "electric_field" }

func (e *ElectricField) Update() {}

// Effect returns Strength * pos.
func (e *ElectricField) Effect(pos []float64) []float64 {
	out := make([]float64, len(pos))
	floats.ScaleTo(out, e.Strength, pos)
	return out
}

// Direction returns the unit direction of the field at pos.
func (e *ElectricField) Direction(pos []float64) []float64 {
	return unit(e.Effect(pos))
}

const diffStep = 1e-4

// finiteDiff estimates the gradient of f at pos with central differences.
func finiteDiff(f func([]float64) float64, pos []float64) []float64 {
	grad := make([]float64, len(pos))
	x := make([]float64, len(pos))
	for i := range pos {
		copy(x, pos)
		x[i] = pos[i] + diffStep
		hi := f(x)
		x[i] = pos[i] - diffStep
		lo := f(x)
		grad[i] = (hi - lo) / (2 * diffStep)
	}
	return grad
}

// unit scales v to length 1. A zero vector stays zero.
func unit(v []float64) []float64 {
	out := make([]float64, len(v))
	if len(v) == 0 {
		return out
	}
	n := floats.Norm(v, 2)
	if n == 0 {
		return out
	}
	floats.ScaleTo(out, 1/n, v)
	return out
}
