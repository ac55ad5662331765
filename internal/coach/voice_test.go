package coach

import (
	"math"
	"testing"
	"time"
)

func TestVoice_RateBounds(t *testing.T) {
	v := DefaultVoice()
	for i := 0; i < 10; i++ {
		v = v.Slower()
	}
	if v.Rate != MinVoiceRate {
		t.Fatalf("expected floor %v, got %v", MinVoiceRate, v.Rate)
	}
	for i := 0; i < 10; i++ {
		v = v.Faster()
	}
	if v.Rate != MaxVoiceRate {
		t.Fatalf("expected ceiling %v, got %v", MaxVoiceRate, v.Rate)
	}
}

func TestVoice_StepsAreExact(t *testing.T) {
	v := DefaultVoice().Faster().Faster()
	if v.Rate != 1.15 {
		t.Fatalf("expected 1.15, got %v", v.Rate)
	}
	if v.Slower().Rate != 1.05 {
		t.Fatalf("expected 1.05, got %v", v.Slower().Rate)
	}
}

func TestCycleFor(t *testing.T) {
	c := CycleFor(6)
	if c.Cycle != 10*time.Second || c.Inhale != 5*time.Second || c.Exhale != 5*time.Second {
		t.Fatalf("unexpected 6 bpm cycle %+v", c)
	}
	if got := CycleFor(30).Cycle; got != MinBreathCycle {
		t.Fatalf("expected 4s floor for fast breathing, got %v", got)
	}
	if got := CycleFor(0).TargetBPM; got != DefaultTargetBPM {
		t.Fatalf("expected default bpm, got %v", got)
	}
}

func TestScaleAt(t *testing.T) {
	c := CycleFor(6)
	if got := c.ScaleAt(0); got != 0.85 {
		t.Fatalf("expected 0.85 at start, got %v", got)
	}
	if got := c.ScaleAt(5 * time.Second); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("expected 1.0 at top of inhale, got %v", got)
	}
	if got := c.ScaleAt(10 * time.Second); got != 0.85 {
		t.Fatalf("expected loop back to 0.85, got %v", got)
	}
	mid := c.ScaleAt(2500 * time.Millisecond)
	if mid <= 0.85 || mid >= 1.0 {
		t.Fatalf("expected mid-inhale scale strictly inside range, got %v", mid)
	}
	if !c.Inhaling(time.Second) || c.Inhaling(6*time.Second) {
		t.Fatal("unexpected inhale/exhale phase")
	}
}
