package environment

import (
	"github.com/ojrac/opensimplex-go"
)

// NoiseField is a coherent scalar field that drifts over time. Values come
// from normalized simplex noise in [0, 1]; time is the last noise axis.
type NoiseField struct {
	Scale float64 // spatial frequency
	Speed float64 // time advanced per update

	noise opensimplex.Noise
	t     float64
}

func NewNoiseField(seed int64, scale, speed float64) *NoiseField {
	return &NoiseField{
		Scale: scale,
		Speed: speed,
		noise: opensimplex.NewNormalized(seed),
	}
}

func (f *NoiseField) Name() string { return "noise_field" }

// Update advances field time.
func (f *NoiseField) Update() {
	f.t += f.Speed
}

// Time returns the current field time.
func (f *NoiseField) Time() float64 { return f.t }

// At samples the field at pos. Axes beyond the third are ignored.
func (f *NoiseField) At(pos []float64) float64 {
	s := f.Scale
	switch len(pos) {
	case 0:
		return f.noise.Eval2(0, f.t)
	case 1:
		return f.noise.Eval2(pos[0]*s, f.t)
	case 2:
		return f.noise.Eval3(pos[0]*s, pos[1]*s, f.t)
	default:
		return f.noise.Eval4(pos[0]*s, pos[1]*s, pos[2]*s, f.t)
	}
}

// Direction returns the unit direction of increasing field value at pos.
func (f *NoiseField) Direction(pos []float64) []float64 {
	return unit(finiteDiff(f.At, pos))
}
