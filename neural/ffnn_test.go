package neural

import (
	"errors"
	"math"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/organoid/cell"
)

func newTestFFNN(t *testing.T) *FFNN {
	t.Helper()
	nn, err := NewFFNN(FFNNConfig{Inputs: 4, Hidden: []int{8, 3}, Outputs: 2}, rand.New(rand.NewPCG(42, 0)))
	if err != nil {
		t.Fatal(err)
	}
	return nn
}

func TestNewFFNNRequiresInputs(t *testing.T) {
	_, err := NewFFNN(FFNNConfig{Hidden: []int{4}}, rand.New(rand.NewPCG(1, 0)))
	if !errors.Is(err, cell.ErrConfig) {
		t.Errorf("err = %v, want configuration error", err)
	}
}

func TestFFNNPredict(t *testing.T) {
	nn := newTestFFNN(t)

	out, err := nn.Predict([]float64{0.5, 0.5, 0.5, 0.5}, false)
	if err != nil {
		t.Fatal(err)
	}
	if out.Shape != ShapeBatched || out.Rows != 1 || out.Cols != 2 {
		t.Fatalf("output = %v %dx%d, want batched 1x2", out.Shape, out.Rows, out.Cols)
	}
	for i, v := range out.Values {
		if v <= 0 || v >= 1 {
			t.Errorf("output[%d] = %f out of range (0,1)", i, v)
		}
	}

	if _, err := nn.Predict([]float64{1}, false); !errors.Is(err, cell.ErrUsage) {
		t.Errorf("short input: err = %v, want usage error", err)
	}
}

func TestFFNNDeterministic(t *testing.T) {
	nn := newTestFFNN(t)
	in := []float64{0.1, 0.2, 0.3, 0.4}

	a, _ := nn.Forward(in)
	b, _ := nn.Forward(in)
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("Forward is not deterministic")
		}
	}
}

func TestFFNNClone(t *testing.T) {
	nn := newTestFFNN(t)
	clone := nn.Clone()

	clone.layers[0].w.Set(0, 0, 999)
	if nn.layers[0].w.At(0, 0) == 999 {
		t.Error("Clone is not independent")
	}
}

func TestFFNNWeightsRoundTrip(t *testing.T) {
	nn := newTestFFNN(t)
	path := filepath.Join(t.TempDir(), "weights.yaml")
	if err := nn.SaveWeights(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadFFNN(path)
	if err != nil {
		t.Fatal(err)
	}

	in := []float64{0.9, -0.3, 0.2, 0.7}
	want, _ := nn.Forward(in)
	got, err := loaded.Forward(in)
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if math.Abs(want[i]-got[i]) > 1e-12 {
			t.Errorf("output[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFFNNFromWeightsRejectsMismatch(t *testing.T) {
	w := newTestFFNN(t).MarshalWeights()
	w.Layers[1].Cols++
	if _, err := FFNNFromWeights(w); !errors.Is(err, cell.ErrConfig) {
		t.Errorf("err = %v, want configuration error", err)
	}
}

func TestLogisticPredict(t *testing.T) {
	l, err := NewLogistic([][]float64{{1, 0}, {0, -1}}, []float64{0, 0})
	if err != nil {
		t.Fatal(err)
	}
	out, err := l.Predict([]float64{0, 0}, false)
	if err != nil {
		t.Fatal(err)
	}
	if out.Shape != ShapeTensor || len(out.Values) != 2 {
		t.Fatalf("output = %+v, want 2-value tensor", out)
	}
	for _, v := range out.Values {
		if math.Abs(v-0.5) > 1e-12 {
			t.Errorf("sigmoid(0) = %v, want 0.5", v)
		}
	}

	if _, err := NewLogistic([][]float64{{1, 2}}, nil); !errors.Is(err, cell.ErrConfig) {
		t.Errorf("bias mismatch: err = %v, want configuration error", err)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		p    Predictor
		want string
	}{
		{"nil", nil, "none"},
		{"constant", Constant(0.6), "constant(0.6)"},
		{"ffnn", newTestFFNN(t), "ffnn(4->2)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Describe(tt.p).String(); got != tt.want {
				t.Errorf("Describe = %q, want %q", got, tt.want)
			}
		})
	}
}
