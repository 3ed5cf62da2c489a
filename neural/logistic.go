package neural

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/pthm-cable/organoid/cell"
)

// Logistic is a single-layer logistic model. Its output is a k x 1 tensor.
type Logistic struct {
	w *mat.Dense
	b *mat.VecDense
}

// NewLogistic builds a model from a k x n weight matrix and k biases.
func NewLogistic(weights [][]float64, bias []float64) (*Logistic, error) {
	if len(weights) == 0 || len(weights[0]) == 0 {
		return nil, fmt.Errorf("%w: logistic model needs a non-empty weight matrix", cell.ErrConfig)
	}
	k, n := len(weights), len(weights[0])
	if len(bias) != k {
		return nil, fmt.Errorf("%w: logistic model has %d rows but %d biases", cell.ErrConfig, k, len(bias))
	}
	w := mat.NewDense(k, n, nil)
	for i, row := range weights {
		if len(row) != n {
			return nil, fmt.Errorf("%w: logistic weight row %d has %d columns, want %d", cell.ErrConfig, i, len(row), n)
		}
		w.SetRow(i, row)
	}
	return &Logistic{w: w, b: mat.NewVecDense(k, append([]float64(nil), bias...))}, nil
}

func (l *Logistic) Predict(input []float64, verbose bool) (Output, error) {
	k, n := l.w.Dims()
	if len(input) != n {
		return Output{}, fmt.Errorf("%w: logistic model wants %d inputs, got %d", cell.ErrUsage, n, len(input))
	}
	z := mat.NewVecDense(k, nil)
	z.MulVec(l.w, mat.NewVecDense(n, append([]float64(nil), input...)))
	z.AddVec(z, l.b)
	for i := 0; i < k; i++ {
		z.SetVec(i, sigmoid(z.AtVec(i)))
	}
	if verbose {
		slog.Debug("logistic predict", "input", input, "output", z.RawVector().Data)
	}
	return TensorOutput(z), nil
}

func (l *Logistic) Describe() Descriptor {
	k, n := l.w.Dims()
	return Descriptor{Name: "logistic", Inputs: n, Outputs: k}
}
