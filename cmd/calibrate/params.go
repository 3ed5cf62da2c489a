package main

import (
	"fmt"

	"github.com/pthm-cable/organoid/cell"
	"github.com/pthm-cable/organoid/components"
	"github.com/pthm-cable/organoid/config"
)

// ParamSpec defines a single calibrated parameter.
type ParamSpec struct {
	Name string  // Human-readable name
	Path string  // Config path for logging
	Min  float64 // Lower bound
	Max  float64 // Upper bound

	// Kinds the parameter applies to; nil means every kind.
	Kinds []components.Kind

	get func(*config.Config) float64
	set func(*config.Config, float64)
}

func (s ParamSpec) appliesTo(k components.Kind) bool {
	if s.Kinds == nil {
		return true
	}
	for _, kk := range s.Kinds {
		if kk == k {
			return true
		}
	}
	return false
}

var allParams = []ParamSpec{
	{
		Name: "predictor_constant", Path: "predictor.constant", Min: 0, Max: 1,
		get: func(c *config.Config) float64 { return c.Predictor.Constant },
		set: func(c *config.Config, v float64) { c.Predictor.Constant = v },
	},
	{
		Name: "threshold", Path: "organoid.threshold", Min: 0.1, Max: 5,
		Kinds: []components.Kind{components.KindSpiking, components.KindSynaptic},
		get:   func(c *config.Config) float64 { return c.Organoid.Threshold },
		set:   func(c *config.Config, v float64) { c.Organoid.Threshold = v },
	},
	{
		Name: "synapse_weight", Path: "organoid.synapse_weight", Min: 0, Max: 1,
		Kinds: []components.Kind{components.KindSynaptic},
		get:   func(c *config.Config) float64 { return c.Organoid.SynapseWeight },
		set:   func(c *config.Config, v float64) { c.Organoid.SynapseWeight = v },
	},
	{
		Name: "learning_rate", Path: "organoid.learning_rate", Min: 0, Max: 0.2,
		Kinds: []components.Kind{components.KindSynaptic},
		get:   func(c *config.Config) float64 { return c.Organoid.LearningRate },
		set:   func(c *config.Config, v float64) { c.Organoid.LearningRate = v },
	},
	{
		Name: "initial_volume", Path: "organoid.initial_volume", Min: 0.1, Max: 5,
		Kinds: []components.Kind{components.KindGrowth},
		get:   func(c *config.Config) float64 { return c.Organoid.InitialVolume },
		set:   func(c *config.Config, v float64) { c.Organoid.InitialVolume = v },
	},
	{
		Name: "growth_amount", Path: "organoid.growth_amount", Min: 0.01, Max: 1,
		Kinds: []components.Kind{components.KindGrowth},
		get:   func(c *config.Config) float64 { return c.Organoid.GrowthAmount },
		set:   func(c *config.Config, v float64) { c.Organoid.GrowthAmount = v },
	},
	{
		Name: "growth_variance", Path: "organoid.growth_variance", Min: 0, Max: 0.5,
		Kinds: []components.Kind{components.KindGrowth},
		get:   func(c *config.Config) float64 { return c.Organoid.GrowthVariance },
		set:   func(c *config.Config, v float64) { c.Organoid.GrowthVariance = v },
	},
	{
		Name: "growth_threshold", Path: "organoid.growth_threshold", Min: 0, Max: 1,
		Kinds: []components.Kind{components.KindGrowth},
		get:   func(c *config.Config) float64 { return c.Organoid.GrowthThreshold },
		set:   func(c *config.Config, v float64) { c.Organoid.GrowthThreshold = v },
	},
	{
		Name: "metabolism_rate", Path: "organoid.metabolism_rate", Min: 0, Max: 5,
		Kinds: []components.Kind{components.KindMetabolic},
		get:   func(c *config.Config) float64 { return c.Organoid.MetabolismRate },
		set:   func(c *config.Config, v float64) { c.Organoid.MetabolismRate = v },
	},
	{
		Name: "initial_expression", Path: "organoid.initial_expression", Min: 0, Max: 10,
		Kinds: []components.Kind{components.KindGeneRegulation},
		get:   func(c *config.Config) float64 { return c.Organoid.InitialExpression },
		set:   func(c *config.Config, v float64) { c.Organoid.InitialExpression = v },
	},
	{
		Name: "regulation_variance", Path: "organoid.regulation_variance", Min: 0, Max: 1,
		Kinds: []components.Kind{components.KindGeneRegulation},
		get:   func(c *config.Config) float64 { return c.Organoid.RegulationVariance },
		set:   func(c *config.Config, v float64) { c.Organoid.RegulationVariance = v },
	},
}

// ParamVector holds the parameters calibrated for one configuration.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector selects the parameters that affect cfg's organoid kind.
// The predictor constant is only calibrated for the constant predictor.
func NewParamVector(cfg *config.Config) (*ParamVector, error) {
	pv := &ParamVector{}
	for _, s := range allParams {
		if s.Name == "predictor_constant" && cfg.Predictor.Kind != "constant" {
			continue
		}
		if s.appliesTo(cfg.Derived.Kind) {
			pv.Specs = append(pv.Specs, s)
		}
	}
	if len(pv.Specs) == 0 {
		return nil, fmt.Errorf("%w: nothing to calibrate for %s organoid with %s predictor",
			cell.ErrConfig, cfg.Derived.Kind, cfg.Predictor.Kind)
	}
	return pv, nil
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns cfg's current values, clamped to bounds.
func (pv *ParamVector) DefaultVector(cfg *config.Config) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.get(cfg)
	}
	return pv.Clamp(v)
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// maxVarianceRatio caps growth_variance relative to growth_amount so a grow
// step never shrinks the cell.
const maxVarianceRatio = 0.9

// ApplyToConfig writes clamped values into cfg. A growth variance at or above
// the growth amount is pulled back below it.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		pv.Specs[i].set(cfg, v)
	}
	if o := &cfg.Organoid; o.GrowthVariance >= o.GrowthAmount {
		o.GrowthVariance = o.GrowthAmount * maxVarianceRatio
	}
}
