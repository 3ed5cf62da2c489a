// Package neural provides the predictor capability consumed by cell modules
// and a few reference predictors built on gonum.
package neural

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"
)

// Shape tags the layout of a predictor output.
type Shape uint8

const (
	ShapeScalar  Shape = iota + 1 // single value in Output.Scalar
	ShapeFlat                     // Values is a flat vector
	ShapeBatched                  // Values is Rows x Cols row-major, one row per batch item
	ShapeTensor                   // Values is Rows x Cols row-major, flattened whole
)

var shapeNames = map[Shape]string{
	ShapeScalar:  "scalar",
	ShapeFlat:    "flat",
	ShapeBatched: "batched",
	ShapeTensor:  "tensor",
}

func (s Shape) String() string {
	if n, ok := shapeNames[s]; ok {
		return n
	}
	return fmt.Sprintf("shape(%d)", uint8(s))
}

// Output is a raw prediction tagged with its shape.
type Output struct {
	Shape  Shape
	Scalar float64
	Values []float64
	Rows   int
	Cols   int
}

// ScalarOutput wraps a single value.
func ScalarOutput(v float64) Output {
	return Output{Shape: ShapeScalar, Scalar: v}
}

// FlatOutput wraps a flat vector. The slice is not copied.
func FlatOutput(v []float64) Output {
	return Output{Shape: ShapeFlat, Values: v, Rows: 1, Cols: len(v)}
}

// BatchedOutput copies m into a batched output, one row per batch item.
func BatchedOutput(m mat.Matrix) Output {
	out := fromMatrix(m)
	out.Shape = ShapeBatched
	return out
}

// TensorOutput copies m into a tensor output.
func TensorOutput(m mat.Matrix) Output {
	out := fromMatrix(m)
	out.Shape = ShapeTensor
	return out
}

func fromMatrix(m mat.Matrix) Output {
	r, c := m.Dims()
	vals := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			vals = append(vals, m.At(i, j))
		}
	}
	return Output{Values: vals, Rows: r, Cols: c}
}

// Predictor maps an input vector to an output. Implementations stand in for
// trained models and must be safe to call repeatedly from one goroutine.
type Predictor interface {
	Predict(input []float64, verbose bool) (Output, error)
}

// Constant always predicts the same scalar.
type Constant float64

func (c Constant) Predict(input []float64, verbose bool) (Output, error) {
	if verbose {
		slog.Debug("constant predict", "inputs", len(input), "value", float64(c))
	}
	return ScalarOutput(float64(c)), nil
}

// Describe implements Describer.
func (c Constant) Describe() Descriptor {
	return Descriptor{Name: fmt.Sprintf("constant(%g)", float64(c))}
}

// Func adapts a plain function to Predictor.
type Func func(input []float64) (Output, error)

func (f Func) Predict(input []float64, _ bool) (Output, error) {
	return f(input)
}

// Descriptor is a structural summary of a predictor.
// Inputs is 0 when the predictor accepts any input length.
type Descriptor struct {
	Name    string
	Inputs  int
	Outputs int
}

func (d Descriptor) String() string {
	if d.Inputs == 0 {
		return d.Name
	}
	return fmt.Sprintf("%s(%d->%d)", d.Name, d.Inputs, d.Outputs)
}

// Describer is implemented by predictors that can summarize themselves.
type Describer interface {
	Describe() Descriptor
}

// Describe returns p's descriptor, falling back to its Go type name.
func Describe(p Predictor) Descriptor {
	if p == nil {
		return Descriptor{Name: "none"}
	}
	if d, ok := p.(Describer); ok {
		return d.Describe()
	}
	return Descriptor{Name: fmt.Sprintf("%T", p)}
}
