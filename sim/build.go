package sim

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/organoid/cell"
	"github.com/pthm-cable/organoid/components"
	"github.com/pthm-cable/organoid/config"
	"github.com/pthm-cable/organoid/environment"
	"github.com/pthm-cable/organoid/neural"
	"github.com/pthm-cable/organoid/organoid"
	"github.com/pthm-cable/organoid/systems"
)

// BuildEnvironment creates the environment and its configured conditions in order.
func BuildEnvironment(cfg *config.Config, seed uint64, rng *rand.Rand) (*environment.Environment, error) {
	env, err := environment.New(cfg.Environment.Dimensions, cfg.Environment.Size)
	if err != nil {
		return nil, err
	}
	for i, cc := range cfg.Environment.Conditions {
		var c environment.Condition
		switch cc.Type {
		case "temperature":
			if len(cc.Range) == 2 {
				c = environment.NewRangedTemperature(cc.Value, cc.Range[0], cc.Range[1], rng)
			} else {
				c = environment.NewTemperature(cc.Value)
			}
		case "noise":
			c = environment.NewNoise(cc.Level, rng)
		case "chemical_gradient":
			c = environment.NewChemicalGradient(nil)
		case "electric_field":
			c = environment.NewElectricField(cc.Strength)
		case "noise_field":
			s := cc.Seed
			if s == 0 {
				s = int64(seed)
			}
			c = environment.NewNoiseField(s, cc.Scale, cc.Speed)
		default:
			return nil, fmt.Errorf("%w: condition %d: unknown type %q", cell.ErrConfig, i, cc.Type)
		}
		env.AddCondition(c)
	}
	return env, nil
}

// BuildPredictor creates the predictor shared by every module of the organoid.
func BuildPredictor(cfg *config.Config) (neural.Predictor, error) {
	pc := cfg.Predictor
	n := cfg.Derived.InputSize
	rng := rand.New(rand.NewPCG(pc.Seed, pc.Seed+1))

	switch pc.Kind {
	case "constant":
		return neural.Constant(pc.Constant), nil
	case "ffnn":
		if pc.WeightsFile != "" {
			nn, err := neural.LoadFFNN(pc.WeightsFile)
			if err != nil {
				return nil, err
			}
			if nn.Inputs() != n {
				return nil, fmt.Errorf("%w: weights file expects %d inputs, organoid provides %d",
					cell.ErrConfig, nn.Inputs(), n)
			}
			return nn, nil
		}
		return neural.NewFFNN(neural.FFNNConfig{Inputs: n, Hidden: pc.Hidden, Outputs: 1}, rng)
	case "logistic":
		dist := distuv.Normal{Mu: 0, Sigma: 1 / math.Sqrt(float64(n)), Src: rng}
		w := make([]float64, n)
		for i := range w {
			w[i] = dist.Rand()
		}
		return neural.NewLogistic([][]float64{w}, []float64{0})
	}
	return nil, fmt.Errorf("%w: unknown predictor kind %q", cell.ErrConfig, pc.Kind)
}

// BuildSpec maps the organoid section to a factory spec.
func BuildSpec(cfg *config.Config, env *environment.Environment, logger *slog.Logger) (organoid.Spec, error) {
	oc := cfg.Organoid
	spec := organoid.DefaultSpec(cfg.Derived.Kind)
	spec.NumCells = oc.NumCells
	spec.NumSynapses = oc.NumSynapses
	spec.Threshold = oc.Threshold
	spec.SynapseWeight = oc.SynapseWeight
	spec.LearningRate = oc.LearningRate
	spec.InitialVolume = oc.InitialVolume
	spec.GrowthAmount = oc.GrowthAmount
	spec.GrowthVariance = oc.GrowthVariance
	spec.GrowthThreshold = oc.GrowthThreshold
	if len(oc.States) > 0 {
		spec.States = oc.States
	}
	spec.MetabolismRate = oc.MetabolismRate
	spec.InitialExpression = oc.InitialExpression
	spec.RegulationVariance = oc.RegulationVariance
	spec.Verbose = oc.Verbose || cfg.Predictor.Verbose
	spec.Logger = logger

	inputs, err := organoid.InputsByName(oc.Inputs)
	if err != nil {
		return spec, err
	}
	if inputs == nil && spec.Kind != components.KindSpiking && spec.Kind != components.KindSynaptic {
		inputs = organoid.StateInputs
	}
	spec.Inputs = inputs

	if oc.Gradient != "" {
		field, err := gradientField(env, oc.Gradient)
		if err != nil {
			return spec, err
		}
		spec.Field = field
	}
	return spec, nil
}

// gradientField finds the named gradient condition in env.
func gradientField(env *environment.Environment, name string) (systems.GradientField, error) {
	var (
		field systems.GradientField
		ok    bool
	)
	switch name {
	case "chemical_gradient":
		field, ok = environment.Find[*environment.ChemicalGradient](env)
	case "electric_field":
		field, ok = environment.Find[*environment.ElectricField](env)
	case "noise_field":
		field, ok = environment.Find[*environment.NoiseField](env)
	}
	if !ok {
		return nil, fmt.Errorf("%w: organoid.gradient %q has no matching environment condition", cell.ErrConfig, name)
	}
	return field, nil
}

// Priorities resolves configured cell IDs to agents. Unknown IDs are ignored.
func Priorities(org *organoid.Organoid, byID map[int]float64) map[cell.Agent]float64 {
	out := make(map[cell.Agent]float64, len(byID))
	for id, p := range byID {
		if c, ok := org.CellByID(id); ok {
			out[c] = p
		}
	}
	return out
}
