// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/organoid/cell"
	"github.com/pthm-cable/organoid/components"
	"github.com/pthm-cable/organoid/scheduler"
	"github.com/pthm-cable/organoid/systems"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Simulation  SimulationConfig  `yaml:"simulation"`
	Environment EnvironmentConfig `yaml:"environment"`
	Organoid    OrganoidConfig    `yaml:"organoid"`
	Predictor   PredictorConfig   `yaml:"predictor"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Store       StoreConfig       `yaml:"store"`
	Logging     LoggingConfig     `yaml:"logging"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds run-level parameters.
type SimulationConfig struct {
	Seed        uint64  `yaml:"seed"`
	Steps       int     `yaml:"steps"`
	Scheduler   string  `yaml:"scheduler"`   // sequential, stochastic, priority, parallel
	Probability float64 `yaml:"probability"` // Stochastic per-step update probability
	// Priorities maps cell ID to priority for the priority scheduler. Absent cells are 0.
	Priorities map[int]float64 `yaml:"priorities"`
	LogEvery   int             `yaml:"log_every"` // Progress log interval in steps (0 = off)
}

// EnvironmentConfig holds the environment's geometry and conditions.
type EnvironmentConfig struct {
	Dimensions int               `yaml:"dimensions"`
	Size       float64           `yaml:"size"`
	Conditions []ConditionConfig `yaml:"conditions"`
}

// ConditionConfig describes one environment condition. Fields that do not
// apply to Type are ignored.
type ConditionConfig struct {
	Type     string    `yaml:"type"` // temperature, noise, chemical_gradient, electric_field, noise_field
	Value    float64   `yaml:"value,omitempty"`
	Range    []float64 `yaml:"range,omitempty"` // [lo, hi]; temperature redraws each step when set
	Level    float64   `yaml:"level,omitempty"`
	Strength float64   `yaml:"strength,omitempty"`
	Scale    float64   `yaml:"scale,omitempty"`
	Speed    float64   `yaml:"speed,omitempty"`
	Seed     int64     `yaml:"seed,omitempty"`
}

// OrganoidConfig holds the population and per-variant module parameters.
type OrganoidConfig struct {
	Kind        string `yaml:"kind"`
	NumCells    int    `yaml:"num_cells"`
	NumSynapses int    `yaml:"num_synapses"`
	Inputs      string `yaml:"inputs"` // default, state, position
	Verbose     bool   `yaml:"verbose"`

	Threshold     float64 `yaml:"threshold"`
	SynapseWeight float64 `yaml:"synapse_weight"`
	LearningRate  float64 `yaml:"learning_rate"`

	InitialVolume   float64 `yaml:"initial_volume"` // <= 0 draws U(0.5, 1.5) per cell
	GrowthAmount    float64 `yaml:"growth_amount"`
	GrowthVariance  float64 `yaml:"growth_variance"`
	GrowthThreshold float64 `yaml:"growth_threshold"`

	States []string `yaml:"states"`

	// Gradient names the condition chemotactic cells follow; empty moves along every axis.
	Gradient string `yaml:"gradient"`

	MetabolismRate     float64 `yaml:"metabolism_rate"`
	InitialExpression  float64 `yaml:"initial_expression"`
	RegulationVariance float64 `yaml:"regulation_variance"`
}

// PredictorConfig selects and parameterizes the shared predictor.
type PredictorConfig struct {
	Kind     string  `yaml:"kind"` // constant, ffnn, logistic
	Constant float64 `yaml:"constant"`
	Hidden   []int   `yaml:"hidden"`
	// Inputs overrides the input size; 0 derives it from organoid.inputs.
	Inputs      int    `yaml:"inputs"`
	WeightsFile string `yaml:"weights_file"` // ffnn weights YAML; empty initializes randomly
	Seed        uint64 `yaml:"seed"`
	Verbose     bool   `yaml:"verbose"`
}

// TelemetryConfig holds stats output parameters.
type TelemetryConfig struct {
	StatsWindow int    `yaml:"stats_window"` // Steps between stats records
	PerfWindow  int    `yaml:"perf_window"`  // Steps averaged by the perf collector
	OutputDir   string `yaml:"output_dir"`   // Empty disables file output
}

// StoreConfig selects the run persistence backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // none, memory, sqlite
	Path    string `yaml:"path"`
}

// LoggingConfig holds slog handler settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DerivedConfig holds values computed from the loaded configuration.
type DerivedConfig struct {
	Kind      components.Kind
	Policy    scheduler.Policy
	InputSize int
	LogLevel  slog.Level
}

var global *Config

// Init loads configuration from path (or embedded defaults if empty)
// and sets the global config.
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit calls Init and panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load reads configuration from path, overlaying the embedded defaults.
// The result is validated.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing config file: %v", cell.ErrConfig, err)
		}
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize recomputes derived values and validates. Call it after
// changing fields of a loaded config.
func (c *Config) Finalize() error {
	c.computeDerived()
	return c.Validate()
}

func (c *Config) computeDerived() {
	if k, err := components.ParseKind(c.Organoid.Kind); err == nil {
		c.Derived.Kind = k
	}
	if p, err := scheduler.ParsePolicy(c.Simulation.Scheduler); err == nil {
		c.Derived.Policy = p
	}
	_ = c.Derived.LogLevel.UnmarshalText([]byte(c.Logging.Level))

	switch {
	case c.Predictor.Inputs > 0:
		c.Derived.InputSize = c.Predictor.Inputs
	case c.Organoid.Inputs == "position":
		c.Derived.InputSize = c.Environment.Dimensions
	case c.Organoid.Inputs == "state":
		c.Derived.InputSize = 1
	default:
		// Spiking default input is [0.5]*10; other kinds default to state inputs.
		if c.Derived.Kind == components.KindSpiking || c.Derived.Kind == components.KindSynaptic {
			c.Derived.InputSize = 10
		} else {
			c.Derived.InputSize = 1
		}
	}
}

var (
	conditionTypes = []string{"temperature", "noise", "chemical_gradient", "electric_field", "noise_field"}
	predictorKinds = []string{"constant", "ffnn", "logistic"}
	storeBackends  = []string{"", "none", "memory", "sqlite"}
	inputNames     = []string{"", "default", "state", "position"}
	logFormats     = []string{"text", "json"}
)

// Validate reports every configuration problem found. Each error wraps cell.ErrConfig.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{cell.ErrConfig}, args...)...))
	}

	if _, err := components.ParseKind(c.Organoid.Kind); err != nil {
		bad("organoid.kind: %v", err)
	}
	if _, err := scheduler.ParsePolicy(c.Simulation.Scheduler); err != nil {
		bad("simulation.scheduler: unknown policy %q", c.Simulation.Scheduler)
	}
	if c.Simulation.Steps < 0 {
		bad("simulation.steps must not be negative, got %d", c.Simulation.Steps)
	}
	if p := c.Simulation.Probability; p < 0 || p > 1 {
		bad("simulation.probability must be in [0, 1], got %v", p)
	}
	if c.Environment.Dimensions <= 0 {
		bad("environment.dimensions must be positive, got %d", c.Environment.Dimensions)
	}
	if c.Environment.Size <= 0 {
		bad("environment.size must be positive, got %v", c.Environment.Size)
	}
	for i, cond := range c.Environment.Conditions {
		if !oneOf(cond.Type, conditionTypes) {
			bad("environment.conditions[%d]: unknown type %q", i, cond.Type)
		}
		if cond.Range != nil && (len(cond.Range) != 2 || cond.Range[0] > cond.Range[1]) {
			bad("environment.conditions[%d]: range must be [lo, hi]", i)
		}
	}
	if c.Organoid.NumCells < 0 {
		bad("organoid.num_cells must not be negative, got %d", c.Organoid.NumCells)
	}
	if c.Organoid.NumSynapses < 0 {
		bad("organoid.num_synapses must not be negative, got %d", c.Organoid.NumSynapses)
	}
	if k, err := components.ParseKind(c.Organoid.Kind); err == nil && k == components.KindGrowth {
		if err := systems.CheckGrowth(c.Organoid.GrowthAmount, c.Organoid.GrowthVariance); err != nil {
			errs = append(errs, fmt.Errorf("organoid.growth_variance: %w", err))
		}
	}
	if !oneOf(c.Organoid.Inputs, inputNames) {
		bad("organoid.inputs: unknown provider %q", c.Organoid.Inputs)
	}
	if g := c.Organoid.Gradient; g != "" && !oneOf(g, conditionTypes[2:]) {
		bad("organoid.gradient: %q is not a gradient condition", g)
	}
	if !oneOf(c.Predictor.Kind, predictorKinds) {
		bad("predictor.kind: unknown predictor %q", c.Predictor.Kind)
	}
	for _, h := range c.Predictor.Hidden {
		if h <= 0 {
			bad("predictor.hidden: layer sizes must be positive, got %d", h)
		}
	}
	if !oneOf(c.Store.Backend, storeBackends) {
		bad("store.backend: unsupported backend %q", c.Store.Backend)
	}
	if c.Store.Backend == "sqlite" && c.Store.Path == "" {
		bad("store.path is required for the sqlite backend")
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		bad("logging.level: %v", err)
	}
	if !oneOf(c.Logging.Format, logFormats) {
		bad("logging.format: unknown format %q", c.Logging.Format)
	}
	return errors.Join(errs...)
}

func oneOf(s string, set []string) bool {
	s = strings.ToLower(s)
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// WriteYAML saves the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// YAML returns the configuration encoded as YAML.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}
