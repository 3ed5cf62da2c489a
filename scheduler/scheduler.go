// Package scheduler drives simulated time: each step updates the environment
// and then the organoid's agents in a policy-defined order.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/pthm-cable/organoid/cell"
	"github.com/pthm-cable/organoid/organoid"
)

// Policy selects the per-step agent ordering.
type Policy uint8

const (
	Sequential Policy = iota // insertion order
	Stochastic               // each agent updates with a fixed probability
	Priority                 // descending priority, stable
	Parallel                 // declared, not supported
)

var policyNames = []string{"sequential", "stochastic", "priority", "parallel"}

func (p Policy) String() string {
	if int(p) < len(policyNames) {
		return policyNames[p]
	}
	return fmt.Sprintf("policy(%d)", uint8(p))
}

// ParsePolicy resolves a policy name (case-insensitive).
func ParsePolicy(name string) (Policy, error) {
	norm := strings.ToLower(strings.TrimSpace(name))
	for i, n := range policyNames {
		if n == norm {
			return Policy(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown scheduler policy %q", cell.ErrUsage, name)
}

// DefaultProbability is the per-step update probability of the stochastic policy.
const DefaultProbability = 0.5

// Phase names reported to a PhaseTimer.
const (
	PhaseEnvironment = "environment"
	PhaseAgents      = "agents"
	PhaseTelemetry   = "telemetry"
)

// Observer receives step boundaries with the context passed to Simulate.
// Returning an error halts the run.
type Observer interface {
	StepStarted(ctx context.Context, step int) error
	StepFinished(ctx context.Context, step int, updated []cell.Agent) error
}

// PhaseTimer receives per-step phase boundaries.
type PhaseTimer interface {
	StartTick()
	StartPhase(phase string)
	EndTick()
}

// Scheduler advances one organoid through simulated time.
type Scheduler struct {
	org         *organoid.Organoid
	policy      Policy
	priorities  map[cell.Agent]float64
	probability float64
	rng         *rand.Rand
	observers   []Observer
	timer       PhaseTimer
	logger      *slog.Logger
	logEvery    int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPolicy sets the ordering policy. The default is Sequential.
func WithPolicy(p Policy) Option {
	return func(s *Scheduler) { s.policy = p }
}

// WithPriorities sets the priority table. Absent agents have priority 0.
func WithPriorities(p map[cell.Agent]float64) Option {
	return func(s *Scheduler) { s.priorities = p }
}

// WithProbability sets the stochastic update probability.
func WithProbability(p float64) Option {
	return func(s *Scheduler) { s.probability = p }
}

// WithRand sets the random source used by the stochastic policy.
func WithRand(rng *rand.Rand) Option {
	return func(s *Scheduler) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithObserver appends an observer. Observers run in registration order.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observers = append(s.observers, o) }
}

// WithPhaseTimer sets a timer for step phases.
func WithPhaseTimer(t PhaseTimer) Option {
	return func(s *Scheduler) { s.timer = t }
}

// WithLogger sets the logger and how often (in steps) progress is logged at info level.
func WithLogger(l *slog.Logger, every int) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
		s.logEvery = every
	}
}

// New creates a scheduler for org.
func New(org *organoid.Organoid, opts ...Option) *Scheduler {
	s := &Scheduler{
		org:         org,
		policy:      Sequential,
		probability: DefaultProbability,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// Policy returns the configured policy.
func (s *Scheduler) Policy() Policy { return s.policy }

// Simulate runs steps steps. The step counter is local to the call.
// The first failing agent or observer halts the run and its error is returned.
// ctx is checked between steps; a step in progress always completes.
func (s *Scheduler) Simulate(ctx context.Context, steps int) error {
	switch s.policy {
	case Sequential, Stochastic, Priority:
	case Parallel:
		return fmt.Errorf("parallel scheduler: %w", cell.ErrNotImplemented)
	default:
		return fmt.Errorf("%w: unsupported scheduler policy %v", cell.ErrUsage, s.policy)
	}
	if steps < 0 {
		return fmt.Errorf("%w: steps must not be negative, got %d", cell.ErrUsage, steps)
	}
	if s.org == nil {
		return fmt.Errorf("%w: scheduler has no organoid", cell.ErrConfig)
	}

	s.logger.Info("simulation started",
		"policy", s.policy.String(),
		"steps", steps,
		"agents", s.org.Len(),
	)
	for step := 0; step < steps; step++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("before step %d: %w", step, err)
		}
		if err := s.step(ctx, step); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
		if s.logEvery > 0 && (step+1)%s.logEvery == 0 {
			s.logger.Info("step", "step", step+1, "of", steps)
		}
	}
	s.logger.Info("simulation finished", "steps", steps)
	return nil
}

func (s *Scheduler) step(ctx context.Context, step int) error {
	if s.timer != nil {
		s.timer.StartTick()
		defer s.timer.EndTick()
	}
	for _, o := range s.observers {
		if err := o.StepStarted(ctx, step); err != nil {
			return fmt.Errorf("observer: %w", err)
		}
	}

	s.phase(PhaseEnvironment)
	if env := s.org.Environment(); env != nil {
		env.Update()
	}

	s.phase(PhaseAgents)
	order := s.order()
	for _, a := range order {
		if err := a.Update(); err != nil {
			return err
		}
	}

	s.phase(PhaseTelemetry)
	for _, o := range s.observers {
		if err := o.StepFinished(ctx, step, order); err != nil {
			return fmt.Errorf("observer: %w", err)
		}
	}
	return nil
}

func (s *Scheduler) phase(name string) {
	if s.timer != nil {
		s.timer.StartPhase(name)
	}
}

// order returns the agents to update this step, in update order.
func (s *Scheduler) order() []cell.Agent {
	agents := s.org.Agents()
	switch s.policy {
	case Stochastic:
		out := make([]cell.Agent, 0, len(agents))
		for _, a := range agents {
			if s.rng.Float64() < s.probability {
				out = append(out, a)
			}
		}
		return out
	case Priority:
		out := make([]cell.Agent, len(agents))
		copy(out, agents)
		sort.SliceStable(out, func(i, j int) bool {
			return s.priorities[out[i]] > s.priorities[out[j]]
		})
		return out
	}
	return agents
}
