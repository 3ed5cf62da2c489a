package cell

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/pthm-cable/organoid/components"
)

type addPotential float64

func (a addPotential) Run(c *Cell) error {
	return c.AddPotential(float64(a))
}

type failing struct{}

func (failing) Run(*Cell) error {
	return ErrEmptyPrediction
}

func newSpiking(id int, threshold float64) *Cell {
	return New(id, components.Position{0, 0}, &components.Spiking{Threshold: threshold})
}

func TestSpikeResetScenario(t *testing.T) {
	c := newSpiking(1, 1.0)
	c.AddModule(addPotential(0.6))

	if err := c.Update(); err != nil {
		t.Fatalf("update 1: %v", err)
	}
	s, _ := c.Spiking()
	if math.Abs(s.MembranePotential-0.6) > 1e-9 {
		t.Errorf("after update 1 potential = %v, want 0.6", s.MembranePotential)
	}

	if err := c.Update(); err != nil {
		t.Fatalf("update 2: %v", err)
	}
	s, _ = c.Spiking()
	if s.MembranePotential != 0 {
		t.Errorf("after update 2 potential = %v, want 0 (spike reset)", s.MembranePotential)
	}

	want := []float64{0.6, 1.2}
	hist := c.History()
	if len(hist) != len(want) {
		t.Fatalf("history len = %d, want %d", len(hist), len(want))
	}
	for i, w := range want {
		if math.Abs(hist[i].Value-w) > 1e-9 {
			t.Errorf("history[%d] = %v, want %v", i, hist[i].Value, w)
		}
	}
}

func TestHistoryLengthMatchesUpdates(t *testing.T) {
	states := []components.State{
		&components.Spiking{Threshold: 1},
		&components.Growth{Volume: 1},
		&components.Differentiating{State: components.Undifferentiated},
		&components.Chemotactic{},
		&components.Immune{},
		&components.Synaptic{Spiking: components.Spiking{Threshold: 1}},
		&components.Metabolic{Energy: components.InitialEnergy},
		&components.GeneRegulation{ExpressionLevel: 1},
	}
	for _, st := range states {
		t.Run(st.Kind().String(), func(t *testing.T) {
			c := New(0, components.Position{1}, st)
			for i := 0; i < 7; i++ {
				if err := c.Update(); err != nil {
					t.Fatalf("update %d: %v", i, err)
				}
			}
			if c.HistoryLen() != 7 {
				t.Errorf("history len = %d, want 7", c.HistoryLen())
			}
		})
	}
}

func TestRecordNilSkips(t *testing.T) {
	c := newSpiking(1, 1)
	if err := c.UpdateWith(nil); err != nil {
		t.Fatal(err)
	}
	if c.HistoryLen() != 0 {
		t.Errorf("nil observation recorded")
	}
	obs := components.Observation{Value: 3}
	if err := c.UpdateWith(&obs); err != nil {
		t.Fatal(err)
	}
	if c.HistoryLen() != 1 {
		t.Errorf("history len = %d, want 1", c.HistoryLen())
	}
}

func TestLastObservation(t *testing.T) {
	c := newSpiking(1, 10)
	if _, ok := c.LastObservation(); ok {
		t.Error("empty history reported an observation")
	}
	c.AddModule(addPotential(0.25))
	for i := 0; i < 3; i++ {
		if err := c.Update(); err != nil {
			t.Fatal(err)
		}
	}
	last, ok := c.LastObservation()
	if !ok || math.Abs(last.Value-0.75) > 1e-9 {
		t.Errorf("LastObservation = %v %v, want 0.75", last, ok)
	}
	h := c.History()
	if last != h[len(h)-1] {
		t.Errorf("LastObservation %v differs from history tail %v", last, h[len(h)-1])
	}
}

func TestModuleErrorAbortsUpdate(t *testing.T) {
	c := newSpiking(1, 1)
	c.AddModule(failing{})
	c.AddModule(addPotential(0.3))

	err := c.Update()
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("err = %v, want usage error", err)
	}
	if c.HistoryLen() != 0 {
		t.Errorf("failed update recorded history")
	}
	if s, _ := c.Spiking(); s.MembranePotential != 0 {
		t.Errorf("later module ran after failure")
	}
}

func TestInputData(t *testing.T) {
	t.Run("spiking default", func(t *testing.T) {
		in, err := newSpiking(1, 1).InputData()
		if err != nil {
			t.Fatal(err)
		}
		if len(in) != 10 || in[0] != 0.5 {
			t.Errorf("default inputs = %v", in)
		}
	})
	t.Run("missing provider", func(t *testing.T) {
		c := New(1, components.Position{0}, &components.Growth{Volume: 1})
		_, err := c.InputData()
		if !errors.Is(err, ErrConfig) {
			t.Errorf("err = %v, want configuration error", err)
		}
	})
	t.Run("custom provider", func(t *testing.T) {
		c := New(1, components.Position{2, 3}, &components.Growth{Volume: 1},
			WithInputProvider(func(c *Cell) ([]float64, error) {
				return c.Position().Clone(), nil
			}))
		in, err := c.InputData()
		if err != nil {
			t.Fatal(err)
		}
		if len(in) != 2 || in[1] != 3 {
			t.Errorf("inputs = %v, want [2 3]", in)
		}
	})
}

func TestWrongStateMutators(t *testing.T) {
	c := New(1, components.Position{0}, &components.Growth{Volume: 1})
	checks := map[string]error{
		"AddPotential":  c.AddPotential(1),
		"Differentiate": c.Differentiate(1, "x"),
		"Activate":      c.Activate(),
		"Metabolize":    c.Metabolize(0.5),
		"RegulateGenes": c.RegulateGenes(1, 0),
		"Move":          c.MoveTowardsGradient(1, nil),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrWrongState) {
			t.Errorf("%s: err = %v, want ErrWrongState", name, err)
		}
	}
}

func TestMoveTowardsGradient(t *testing.T) {
	tests := []struct {
		name      string
		direction []float64
		want      components.Position
	}{
		{"every axis", nil, components.Position{1.5, 2.5}},
		{"along direction", []float64{1, 0}, components.Position{1.5, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(1, components.Position{1, 2}, &components.Chemotactic{})
			if err := c.MoveTowardsGradient(0.5, tt.direction); err != nil {
				t.Fatal(err)
			}
			for i, w := range tt.want {
				if math.Abs(c.Position()[i]-w) > 1e-9 {
					t.Errorf("position = %v, want %v", c.Position(), tt.want)
				}
			}
			if s, _ := c.Chemotactic(); s.Gradient != 0.5 {
				t.Errorf("gradient = %v, want 0.5", s.Gradient)
			}
		})
	}
}

func TestSpike(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	c := New(3, components.Position{1, 2}, &components.Spiking{MembranePotential: 0.7, Threshold: 1}, WithLogger(logger))

	c.Spike(false)
	if s, _ := c.Spiking(); s.MembranePotential != 0 {
		t.Errorf("potential = %v, want 0", s.MembranePotential)
	}
	if buf.Len() != 0 {
		t.Errorf("quiet spike logged %q", buf.String())
	}

	c.Spike(true)
	if !strings.Contains(buf.String(), "neuron spiked") {
		t.Errorf("verbose spike not logged: %q", buf.String())
	}

	// Non-spiking cells ignore the call.
	g := New(4, components.Position{0}, &components.Growth{Volume: 1})
	g.Spike(true)
	if s, _ := g.Growth(); s.Volume != 1 {
		t.Errorf("growth volume changed to %v", s.Volume)
	}
}
