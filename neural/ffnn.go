package neural

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/organoid/cell"
)

// FFNNConfig sizes a feed-forward network.
type FFNNConfig struct {
	Inputs  int   `yaml:"inputs"`
	Hidden  []int `yaml:"hidden"`
	Outputs int   `yaml:"outputs"`
}

type layer struct {
	w *mat.Dense    // out x in
	b *mat.VecDense // out
}

// FFNN is a dense feed-forward network. Hidden layers use tanh, the output
// layer uses a sigmoid, so every prediction lies in (0, 1).
type FFNN struct {
	inputs int
	layers []layer
}

// NewFFNN creates a network with Xavier-scaled random weights and zero biases.
// A missing input size is a configuration error: the network cannot infer it.
func NewFFNN(cfg FFNNConfig, rng *rand.Rand) (*FFNN, error) {
	if cfg.Inputs <= 0 {
		return nil, fmt.Errorf("%w: ffnn input size must be positive, got %d", cell.ErrConfig, cfg.Inputs)
	}
	if cfg.Outputs <= 0 {
		cfg.Outputs = 1
	}
	sizes := append([]int{cfg.Inputs}, cfg.Hidden...)
	sizes = append(sizes, cfg.Outputs)

	nn := &FFNN{inputs: cfg.Inputs}
	for i := 1; i < len(sizes); i++ {
		in, out := sizes[i-1], sizes[i]
		if out <= 0 {
			return nil, fmt.Errorf("%w: ffnn layer %d has size %d", cell.ErrConfig, i, out)
		}
		scale := math.Sqrt(2.0 / float64(in))
		data := make([]float64, out*in)
		for j := range data {
			data[j] = rng.NormFloat64() * scale
		}
		nn.layers = append(nn.layers, layer{
			w: mat.NewDense(out, in, data),
			b: mat.NewVecDense(out, nil),
		})
	}
	return nn, nil
}

// Inputs returns the expected input length.
func (nn *FFNN) Inputs() int { return nn.inputs }

// Outputs returns the output width.
func (nn *FFNN) Outputs() int {
	r, _ := nn.layers[len(nn.layers)-1].w.Dims()
	return r
}

// Forward runs the network on one input vector.
func (nn *FFNN) Forward(input []float64) ([]float64, error) {
	if len(input) != nn.inputs {
		return nil, fmt.Errorf("%w: ffnn wants %d inputs, got %d", cell.ErrUsage, nn.inputs, len(input))
	}
	x := mat.NewVecDense(len(input), append([]float64(nil), input...))
	for i, l := range nn.layers {
		r, _ := l.w.Dims()
		y := mat.NewVecDense(r, nil)
		y.MulVec(l.w, x)
		y.AddVec(y, l.b)
		last := i == len(nn.layers)-1
		for j := 0; j < r; j++ {
			if last {
				y.SetVec(j, sigmoid(y.AtVec(j)))
			} else {
				y.SetVec(j, math.Tanh(y.AtVec(j)))
			}
		}
		x = y
	}
	return append([]float64(nil), x.RawVector().Data...), nil
}

// Predict returns a 1 x Outputs batch.
func (nn *FFNN) Predict(input []float64, verbose bool) (Output, error) {
	out, err := nn.Forward(input)
	if err != nil {
		return Output{}, err
	}
	if verbose {
		slog.Debug("ffnn predict", "input", input, "output", out)
	}
	return BatchedOutput(mat.NewDense(1, len(out), out)), nil
}

func (nn *FFNN) Describe() Descriptor {
	return Descriptor{Name: "ffnn", Inputs: nn.inputs, Outputs: nn.Outputs()}
}

// Clone creates a deep copy of the network.
func (nn *FFNN) Clone() *FFNN {
	clone := &FFNN{inputs: nn.inputs, layers: make([]layer, len(nn.layers))}
	for i, l := range nn.layers {
		clone.layers[i] = layer{w: mat.DenseCopyOf(l.w), b: mat.VecDenseCopyOf(l.b)}
	}
	return clone
}

// LayerWeights holds one flattened layer for serialization.
type LayerWeights struct {
	Rows int       `yaml:"rows"`
	Cols int       `yaml:"cols"`
	W    []float64 `yaml:"w,flow"` // [Rows * Cols] row-major
	B    []float64 `yaml:"b,flow"` // [Rows]
}

// Weights holds a whole network in flattened form.
type Weights struct {
	Inputs int            `yaml:"inputs"`
	Layers []LayerWeights `yaml:"layers"`
}

// MarshalWeights flattens the network weights.
func (nn *FFNN) MarshalWeights() Weights {
	w := Weights{Inputs: nn.inputs}
	for _, l := range nn.layers {
		r, c := l.w.Dims()
		lw := LayerWeights{Rows: r, Cols: c, W: make([]float64, 0, r*c), B: make([]float64, r)}
		for i := 0; i < r; i++ {
			lw.W = append(lw.W, mat.Row(nil, i, l.w)...)
		}
		copy(lw.B, l.b.RawVector().Data)
		w.Layers = append(w.Layers, lw)
	}
	return w
}

// FFNNFromWeights rebuilds a network from flattened weights.
func FFNNFromWeights(w Weights) (*FFNN, error) {
	if w.Inputs <= 0 || len(w.Layers) == 0 {
		return nil, fmt.Errorf("%w: ffnn weights missing input size or layers", cell.ErrConfig)
	}
	nn := &FFNN{inputs: w.Inputs}
	prev := w.Inputs
	for i, lw := range w.Layers {
		if lw.Cols != prev || len(lw.W) != lw.Rows*lw.Cols || len(lw.B) != lw.Rows {
			return nil, fmt.Errorf("%w: ffnn layer %d is %dx%d with %d weights and %d biases",
				cell.ErrConfig, i, lw.Rows, lw.Cols, len(lw.W), len(lw.B))
		}
		nn.layers = append(nn.layers, layer{
			w: mat.NewDense(lw.Rows, lw.Cols, append([]float64(nil), lw.W...)),
			b: mat.NewVecDense(lw.Rows, append([]float64(nil), lw.B...)),
		})
		prev = lw.Rows
	}
	return nn, nil
}

// SaveWeights writes the network to a YAML file.
func (nn *FFNN) SaveWeights(path string) error {
	data, err := yaml.Marshal(nn.MarshalWeights())
	if err != nil {
		return fmt.Errorf("marshaling weights: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing weights: %w", err)
	}
	return nil
}

// LoadFFNN reads a network from a YAML weights file.
func LoadFFNN(path string) (*FFNN, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading weights: %w", err)
	}
	var w Weights
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parsing weights: %w", err)
	}
	return FFNNFromWeights(w)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
