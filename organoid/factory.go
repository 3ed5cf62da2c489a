package organoid

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/organoid/cell"
	"github.com/pthm-cable/organoid/components"
	"github.com/pthm-cable/organoid/environment"
	"github.com/pthm-cable/organoid/neural"
	"github.com/pthm-cable/organoid/systems"
)

// DefaultNumCells is the population size used by the CLI defaults.
const DefaultNumCells = 10

// Spec configures one factory run. Fields that do not apply to Kind are ignored.
type Spec struct {
	Kind        components.Kind
	NumCells    int
	NumSynapses int

	// Spiking and synaptic
	Threshold     float64
	SynapseWeight float64
	LearningRate  float64

	// Growth. InitialVolume <= 0 draws each cell's volume from U(0.5, 1.5).
	InitialVolume   float64
	GrowthAmount    float64
	GrowthVariance  float64
	GrowthThreshold float64

	// Differentiation state table; index 0 is the initial state.
	States []string

	// Chemotaxis direction source. Nil moves along every axis.
	Field systems.GradientField

	// Metabolism
	MetabolismRate float64

	// Gene regulation
	InitialExpression  float64
	RegulationVariance float64

	// Inputs overrides the per-cell input provider.
	Inputs  cell.InputProvider
	Verbose bool
	Logger  *slog.Logger
}

// DefaultSpec returns the defaults for kind.
func DefaultSpec(kind components.Kind) Spec {
	return Spec{
		Kind:               kind,
		NumCells:           DefaultNumCells,
		NumSynapses:        5,
		Threshold:          components.DefaultThreshold,
		SynapseWeight:      cell.DefaultWeight,
		LearningRate:       systems.DefaultLearningRate,
		InitialVolume:      1.0,
		GrowthAmount:       systems.DefaultGrowthAmount,
		GrowthVariance:     systems.DefaultGrowthVariance,
		GrowthThreshold:    systems.DefaultGrowthThreshold,
		States:             systems.DefaultStates,
		MetabolismRate:     1.0,
		InitialExpression:  1.0,
		RegulationVariance: 0.1,
	}
}

// Build constructs an organoid of spec.NumCells cells of spec.Kind, each at a
// uniformly random position in env with one module bound to p.
func Build(env *environment.Environment, p neural.Predictor, spec Spec, rng *rand.Rand) (*Organoid, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: organoid needs an environment", cell.ErrConfig)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: organoid needs a predictor", cell.ErrConfig)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: organoid needs a random source", cell.ErrConfig)
	}
	if spec.NumCells < 0 {
		return nil, fmt.Errorf("%w: num_cells must not be negative, got %d", cell.ErrConfig, spec.NumCells)
	}
	if spec.Kind == components.KindSynaptic && spec.NumSynapses > 0 && spec.NumCells < 2 {
		return nil, fmt.Errorf("%w: %d synapses need at least 2 cells, got %d",
			cell.ErrConfig, spec.NumSynapses, spec.NumCells)
	}
	if spec.Kind == components.KindGrowth {
		if err := systems.CheckGrowth(spec.GrowthAmount, spec.GrowthVariance); err != nil {
			return nil, err
		}
	}
	inputs := spec.Inputs
	if inputs == nil && !defaultsInputs(spec.Kind) {
		return nil, fmt.Errorf("%s organoid: %w", spec.Kind, cell.ErrMissingInputProvider)
	}
	logger := spec.Logger
	if logger == nil {
		logger = slog.Default()
	}

	o := New(env)
	o.kind = spec.Kind
	o.predictor = p

	volume := distuv.Uniform{Min: 0.5, Max: 1.5, Src: rng}
	for i := 0; i < spec.NumCells; i++ {
		pos := env.RandomPosition(rng)

		var state components.State
		var mod cell.Module
		switch spec.Kind {
		case components.KindSpiking:
			state = &components.Spiking{Threshold: spec.Threshold}
			mod = systems.NewSpikingModule(p)
		case components.KindSynaptic:
			state = &components.Synaptic{Spiking: components.Spiking{Threshold: spec.Threshold}}
			mod = systems.NewSpikingModule(p)
		case components.KindGrowth:
			v := spec.InitialVolume
			if v <= 0 {
				v = volume.Rand()
			}
			state = &components.Growth{Volume: v}
			mod = systems.NewGrowthModule(p, spec.GrowthAmount, spec.GrowthVariance, spec.GrowthThreshold, rng)
		case components.KindDifferentiating:
			dm := systems.NewDifferentiationModule(p, spec.States)
			state = &components.Differentiating{State: dm.States[0]}
			mod = dm
		case components.KindChemotactic:
			state = &components.Chemotactic{}
			mod = systems.NewChemotaxisModule(p, spec.Field)
		case components.KindImmune:
			state = &components.Immune{}
			mod = systems.NewImmuneModule(p)
		case components.KindMetabolic:
			state = &components.Metabolic{Energy: components.InitialEnergy, MetabolismRate: spec.MetabolismRate}
			mod = systems.NewMetabolicModule(p)
		case components.KindGeneRegulation:
			state = &components.GeneRegulation{
				ExpressionLevel:    spec.InitialExpression,
				RegulationVariance: spec.RegulationVariance,
			}
			mod = systems.NewGeneRegulationModule(p, spec.RegulationVariance, rng)
		default:
			return nil, fmt.Errorf("%w: unknown cell kind %v", cell.ErrConfig, spec.Kind)
		}

		setVerbose(mod, spec.Verbose, logger)

		c := cell.New(i, pos, state,
			cell.WithInputProvider(inputs),
			cell.WithArena(o.arena),
			cell.WithLogger(logger),
		)
		c.AddModule(mod)
		o.Add(c)
	}

	if spec.Kind == components.KindSynaptic {
		if err := o.wire(spec, rng); err != nil {
			o.Close()
			return nil, err
		}
	}
	return o, nil
}

// wire draws spec.NumSynapses random ordered pairs (pre != post), connects
// each in the arena, and attaches a plasticity module to the post cell.
// Duplicate pairs are not resampled.
func (o *Organoid) wire(spec Spec, rng *rand.Rand) error {
	cells := o.Cells()
	n := len(cells)
	for k := 0; k < spec.NumSynapses; k++ {
		i := rng.IntN(n)
		j := rng.IntN(n - 1)
		if j >= i {
			j++
		}
		pre, post := cells[i], cells[j]
		h, err := o.arena.Connect(pre, post, spec.SynapseWeight)
		if err != nil {
			return fmt.Errorf("wiring synapse %d: %w", k, err)
		}
		post.AddModule(systems.NewPlasticityModule(o.arena, h, spec.LearningRate))
	}
	return nil
}

func defaultsInputs(k components.Kind) bool {
	return k == components.KindSpiking || k == components.KindSynaptic
}

func setVerbose(m cell.Module, verbose bool, logger *slog.Logger) {
	type predicted interface{ Base() *systems.Predicted }
	if pm, ok := m.(predicted); ok {
		b := pm.Base()
		b.Verbose = verbose
		b.Logger = logger
	}
}
