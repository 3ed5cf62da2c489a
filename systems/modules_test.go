package systems

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/pthm-cable/organoid/cell"
	"github.com/pthm-cable/organoid/components"
	"github.com/pthm-cable/organoid/neural"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(42, 7))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		out  neural.Output
		want []float64
	}{
		{"scalar", neural.ScalarOutput(0.7), []float64{0.7}},
		{"flat", neural.FlatOutput([]float64{0.1, 0.2}), []float64{0.1, 0.2}},
		{"batched first row", neural.BatchedOutput(mat.NewDense(2, 2, []float64{1, 2, 3, 4})), []float64{1, 2}},
		{"tensor flattened", neural.TensorOutput(mat.NewDense(2, 2, []float64{1, 2, 3, 4})), []float64{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.out)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Normalize = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Normalize = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestNormalizeErrors(t *testing.T) {
	if _, err := Normalize(neural.FlatOutput(nil)); !errors.Is(err, cell.ErrEmptyPrediction) {
		t.Errorf("empty flat: err = %v, want ErrEmptyPrediction", err)
	}
	if _, err := Normalize(neural.Output{Shape: neural.ShapeBatched}); !errors.Is(err, cell.ErrEmptyPrediction) {
		t.Errorf("empty batch: err = %v, want ErrEmptyPrediction", err)
	}
	if _, err := Normalize(neural.Output{}); !errors.Is(err, cell.ErrUsage) {
		t.Errorf("unknown shape: err = %v, want usage error", err)
	}
}

func TestEmptyPredictionHaltsUpdate(t *testing.T) {
	c := cell.New(1, components.Position{0}, &components.Spiking{Threshold: 1})
	c.AddModule(NewSpikingModule(neural.Func(func([]float64) (neural.Output, error) {
		return neural.FlatOutput(nil), nil
	})))

	err := c.Update()
	if !errors.Is(err, cell.ErrEmptyPrediction) {
		t.Fatalf("err = %v, want ErrEmptyPrediction", err)
	}
	if c.HistoryLen() != 0 {
		t.Errorf("history recorded after failed update")
	}
}

func TestMissingPredictor(t *testing.T) {
	c := cell.New(1, components.Position{0}, &components.Spiking{Threshold: 1})
	c.AddModule(NewSpikingModule(nil))
	if err := c.Update(); !errors.Is(err, cell.ErrConfig) {
		t.Errorf("err = %v, want configuration error", err)
	}
}

func TestSpikingModuleScenario(t *testing.T) {
	c := cell.New(1, components.Position{0, 0}, &components.Spiking{Threshold: 1.0})
	c.AddModule(NewSpikingModule(neural.Constant(0.6)))

	for i := 0; i < 2; i++ {
		if err := c.Update(); err != nil {
			t.Fatal(err)
		}
	}
	want := []float64{0.6, 1.2}
	for i, obs := range c.History() {
		if math.Abs(obs.Value-want[i]) > 1e-9 {
			t.Errorf("history[%d] = %v, want %v", i, obs.Value, want[i])
		}
	}
	if s, _ := c.Spiking(); s.MembranePotential != 0 {
		t.Errorf("potential = %v, want 0 after spike", s.MembranePotential)
	}
}

func TestGrowthModuleBounds(t *testing.T) {
	tests := []struct {
		name string
		pred float64
		grow bool
	}{
		{"grow", 0.9, true},
		{"shrink at threshold", 0.5, false},
		{"shrink", 0.1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewGrowthModule(neural.Constant(tt.pred), DefaultGrowthAmount, DefaultGrowthVariance, DefaultGrowthThreshold, testRand())
			c := cell.New(1, components.Position{0}, &components.Growth{Volume: 10},
				cell.WithInputProvider(func(c *cell.Cell) ([]float64, error) {
					g, _ := c.Growth()
					return []float64{g.Volume}, nil
				}))
			c.AddModule(m)

			for i := 0; i < 50; i++ {
				before, _ := c.Growth()
				if err := c.Update(); err != nil {
					t.Fatal(err)
				}
				after, _ := c.Growth()
				delta := after.Volume - before.Volume
				if !tt.grow {
					delta = -delta
				}
				lo := DefaultGrowthAmount - DefaultGrowthVariance
				hi := DefaultGrowthAmount + DefaultGrowthVariance
				if delta <= 0 || delta < lo-1e-12 || delta > hi+1e-12 {
					t.Fatalf("step %d: |change| = %v, want in [%v, %v]", i, delta, lo, hi)
				}
			}
		})
	}
}

func TestGrowthModuleRejectsWideVariance(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		variance float64
	}{
		{"variance above amount", 0.1, 0.3},
		{"variance equals amount", 0.1, 0.1},
		{"negative variance", 0.1, -0.01},
		{"zero amount", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := CheckGrowth(tt.amount, tt.variance); !errors.Is(err, cell.ErrConfig) {
				t.Errorf("CheckGrowth = %v, want configuration error", err)
			}
			m := NewGrowthModule(neural.Constant(0.9), tt.amount, tt.variance, DefaultGrowthThreshold, testRand())
			c := cell.New(1, components.Position{0}, &components.Growth{Volume: 1},
				cell.WithInputProvider(func(*cell.Cell) ([]float64, error) { return []float64{0}, nil }))
			c.AddModule(m)
			if err := c.Update(); !errors.Is(err, cell.ErrConfig) {
				t.Errorf("Update = %v, want configuration error", err)
			}
			if g, _ := c.Growth(); g.Volume != 1 {
				t.Errorf("volume changed to %v", g.Volume)
			}
		})
	}
}

func TestGrowthAlwaysIncreasesAboveThreshold(t *testing.T) {
	rng := testRand()
	for i := 0; i < 100; i++ {
		m := NewGrowthModule(neural.Constant(0.9), 0.1, 0.099, DefaultGrowthThreshold, rng)
		c := cell.New(i, components.Position{0}, &components.Growth{Volume: 1},
			cell.WithInputProvider(func(*cell.Cell) ([]float64, error) { return []float64{0}, nil }))
		c.AddModule(m)
		if err := c.Update(); err != nil {
			t.Fatal(err)
		}
		if g, _ := c.Growth(); g.Volume <= 1 {
			t.Fatalf("cell %d: volume %v did not increase", i, g.Volume)
		}
	}
}

func TestDifferentiationModule(t *testing.T) {
	tests := []struct {
		pred float64
		want string
	}{
		{-3, "undifferentiated"},
		{0.4, "undifferentiated"},
		{0.6, "progenitor"},
		{2.2, "differentiated"},
		{9, "differentiated"},
		{math.NaN(), "undifferentiated"},
	}
	for _, tt := range tests {
		m := NewDifferentiationModule(neural.Constant(tt.pred), nil)
		c := cell.New(1, components.Position{0}, &components.Differentiating{State: components.Undifferentiated},
			cell.WithInputProvider(func(*cell.Cell) ([]float64, error) { return []float64{0}, nil }))
		c.AddModule(m)
		if err := c.Update(); err != nil {
			t.Fatal(err)
		}
		d, _ := c.Differentiating()
		if d.State != tt.want {
			t.Errorf("pred %v: state = %q, want %q", tt.pred, d.State, tt.want)
		}
	}
}

type fixedField []float64

func (f fixedField) Direction([]float64) []float64 { return f }

func TestChemotaxisModule(t *testing.T) {
	in := func(*cell.Cell) ([]float64, error) { return []float64{0}, nil }

	t.Run("every axis", func(t *testing.T) {
		c := cell.New(1, components.Position{1, 1}, &components.Chemotactic{}, cell.WithInputProvider(in))
		c.AddModule(NewChemotaxisModule(neural.Constant(0.25), nil))
		if err := c.Update(); err != nil {
			t.Fatal(err)
		}
		if p := c.Position(); p[0] != 1.25 || p[1] != 1.25 {
			t.Errorf("position = %v, want [1.25 1.25]", p)
		}
		if h := c.History(); h[0].Value != 0.25 {
			t.Errorf("recorded gradient = %v, want 0.25", h[0].Value)
		}
	})
	t.Run("along field", func(t *testing.T) {
		c := cell.New(1, components.Position{1, 1}, &components.Chemotactic{}, cell.WithInputProvider(in))
		c.AddModule(NewChemotaxisModule(neural.Constant(2), fixedField{0, -1}))
		if err := c.Update(); err != nil {
			t.Fatal(err)
		}
		if p := c.Position(); p[0] != 1 || p[1] != -1 {
			t.Errorf("position = %v, want [1 -1]", p)
		}
	})
}

func TestImmuneAndMetabolicModules(t *testing.T) {
	in := cell.WithInputProvider(func(*cell.Cell) ([]float64, error) { return []float64{1}, nil })

	immune := cell.New(1, components.Position{0}, &components.Immune{}, in)
	immune.AddModule(NewImmuneModule(neural.Constant(0.8)))
	if err := immune.Update(); err != nil {
		t.Fatal(err)
	}
	if s, _ := immune.Immune(); !s.Active {
		t.Error("prediction 0.8 did not activate")
	}

	met := cell.New(2, components.Position{0}, &components.Metabolic{Energy: components.InitialEnergy}, in)
	met.AddModule(NewMetabolicModule(neural.Constant(0.9)))
	if err := met.Update(); err != nil {
		t.Fatal(err)
	}
	if s, _ := met.Metabolic(); math.Abs(s.Energy-90) > 1e-9 {
		t.Errorf("energy = %v, want 90", s.Energy)
	}
}

func TestGeneRegulationModule(t *testing.T) {
	in := cell.WithInputProvider(func(*cell.Cell) ([]float64, error) { return []float64{1}, nil })

	c := cell.New(1, components.Position{0}, &components.GeneRegulation{ExpressionLevel: 2}, in)
	c.AddModule(NewGeneRegulationModule(neural.Constant(1.0), 0, testRand()))
	if err := c.Update(); err != nil {
		t.Fatal(err)
	}
	if s, _ := c.GeneRegulation(); math.Abs(s.ExpressionLevel-3) > 1e-9 {
		t.Errorf("level = %v, want 3 (2 * 1.5, no noise)", s.ExpressionLevel)
	}

	noisy := cell.New(2, components.Position{0}, &components.GeneRegulation{ExpressionLevel: 2}, in)
	noisy.AddModule(NewGeneRegulationModule(neural.Constant(0.5), 0.1, testRand()))
	if err := noisy.Update(); err != nil {
		t.Fatal(err)
	}
	if s, _ := noisy.GeneRegulation(); math.Abs(s.ExpressionLevel-2) > 1 {
		t.Errorf("level = %v, want near 2", s.ExpressionLevel)
	}
}

func TestPlasticityRule(t *testing.T) {
	tests := []struct {
		name      string
		pre, post bool
		check     func(before, after float64) bool
	}{
		{"both spike increases", true, true, func(b, a float64) bool { return a > b && a < 1 }},
		{"pre only decreases", true, false, func(b, a float64) bool { return a < b && a > 0 }},
		{"post only unchanged", false, true, func(b, a float64) bool { return a == b }},
		{"neither unchanged", false, false, func(b, a float64) bool { return a == b }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, w := range []float64{0.01, 0.5, 0.99} {
				got := Plasticity(w, DefaultLearningRate, tt.pre, tt.post)
				if !tt.check(w, got) {
					t.Errorf("w=%v -> %v", w, got)
				}
			}
		})
	}
}

func TestPlasticityModuleUpdatesArena(t *testing.T) {
	arena := cell.NewArena()
	defer arena.Close()
	pre := cell.New(1, components.Position{0}, &components.Synaptic{
		Spiking: components.Spiking{MembranePotential: 1.5, Threshold: 1},
	})
	post := cell.New(2, components.Position{1}, &components.Synaptic{
		Spiking: components.Spiking{MembranePotential: 0, Threshold: 1},
	})
	h, err := arena.Connect(pre, post, cell.DefaultWeight)
	if err != nil {
		t.Fatal(err)
	}
	m := NewPlasticityModule(arena, h, DefaultLearningRate)
	if err := m.Run(post); err != nil {
		t.Fatal(err)
	}
	syn, _ := arena.Get(h)
	if math.Abs(syn.Weight-0.495) > 1e-12 {
		t.Errorf("weight = %v, want 0.495", syn.Weight)
	}
}

func TestModuleRegistry(t *testing.T) {
	reg := NewModuleRegistry()
	for _, m := range []cell.Module{
		NewSpikingModule(nil),
		NewGrowthModule(nil, 0, 0, 0, nil),
		NewPlasticityModule(nil, cell.SynapseHandle{}, 0),
	} {
		if _, ok := reg.Get(ModuleID(m)); !ok {
			t.Errorf("module %T not registered", m)
		}
	}
	if len(reg.ByCategory("logic")) != 1 {
		t.Errorf("logic modules = %d, want 1", len(reg.ByCategory("logic")))
	}
}
