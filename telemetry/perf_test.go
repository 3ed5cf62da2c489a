package telemetry

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/pthm-cable/organoid/environment"
	"github.com/pthm-cable/organoid/neural"
	"github.com/pthm-cable/organoid/organoid"
	"github.com/pthm-cable/organoid/scheduler"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(scheduler.PhaseEnvironment)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(scheduler.PhaseAgents)
		time.Sleep(200 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average step duration")
	}
	if _, ok := stats.PhaseAvg[scheduler.PhaseEnvironment]; !ok {
		t.Error("expected environment phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[scheduler.PhaseAgents]; !ok {
		t.Error("expected agents phase to be tracked")
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.StartTick()
		pc.StartPhase(scheduler.PhaseAgents)
		time.Sleep(10 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average step duration after window filled")
	}
	if stats.TicksPerSecond <= 0 {
		t.Error("expected positive steps per second")
	}
	if pc.sampleCount != 5 {
		t.Errorf("sampleCount = %d, want window size 5", pc.sampleCount)
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase("fast")
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase("slow")
		time.Sleep(2 * time.Millisecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.PhasePct["slow"] <= stats.PhasePct["fast"] {
		t.Errorf("expected slow phase (%v%%) > fast phase (%v%%)", stats.PhasePct["slow"], stats.PhasePct["fast"])
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	stats := NewPerfCollector(10).Stats()

	if stats.AvgTickDuration != 0 {
		t.Error("expected zero avg step duration for empty collector")
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}

func TestPerfCollector_AsSchedulerTimer(t *testing.T) {
	env, _ := environment.New(2, 10)
	org, err := organoid.NewSpiking(env, neural.Constant(0.2), 4, nil, rand.New(rand.NewPCG(3, 4)))
	if err != nil {
		t.Fatal(err)
	}
	pc := NewPerfCollector(8)
	if err := scheduler.New(org, scheduler.WithPhaseTimer(pc)).Simulate(context.Background(), 3); err != nil {
		t.Fatal(err)
	}
	stats := pc.Stats()
	for _, phase := range []string{scheduler.PhaseEnvironment, scheduler.PhaseAgents, scheduler.PhaseTelemetry} {
		if _, ok := stats.PhaseAvg[phase]; !ok {
			t.Errorf("phase %q not tracked", phase)
		}
	}
	row := stats.ToCSV(3)
	if row.WindowEnd != 3 || row.AgentsPct != stats.PhasePct[scheduler.PhaseAgents] {
		t.Errorf("ToCSV = %+v", row)
	}
}
