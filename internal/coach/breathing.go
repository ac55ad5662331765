package coach

import (
	"math"
	"time"
)

const (
	DefaultTargetBPM = 6.0
	MinBreathCycle   = 4 * time.Second

	minScale = 0.85
	maxScale = 1.0
)

// CycleFor returns the inhale/exhale loop for a target breathing rate:
// max(4s, round(60000/bpm) ms), split evenly. A non-positive bpm uses the default.
func CycleFor(bpm float64) BreathingCycle {
	if bpm <= 0 {
		bpm = DefaultTargetBPM
	}
	ms := math.Round(60000 / bpm)
	cycle := time.Duration(ms) * time.Millisecond
	if cycle < MinBreathCycle {
		cycle = MinBreathCycle
	}
	return BreathingCycle{
		TargetBPM: bpm,
		Cycle:     cycle,
		Inhale:    cycle / 2,
		Exhale:    cycle - cycle/2,
	}
}

// ScaleAt returns the circle scale at elapsed time into the loop: it grows
// from 0.85 to 1.0 during the inhale and shrinks back during the exhale,
// with quadratic in-out easing.
func (b BreathingCycle) ScaleAt(elapsed time.Duration) float64 {
	if b.Cycle <= 0 {
		return minScale
	}
	pos := elapsed % b.Cycle
	if pos < 0 {
		pos += b.Cycle
	}
	var t float64
	if pos < b.Inhale {
		t = easeInOutQuad(float64(pos) / float64(b.Inhale))
	} else {
		t = 1 - easeInOutQuad(float64(pos-b.Inhale)/float64(b.Exhale))
	}
	return minScale + (maxScale-minScale)*t
}

// Inhaling reports whether elapsed falls in the inhale half.
func (b BreathingCycle) Inhaling(elapsed time.Duration) bool {
	if b.Cycle <= 0 {
		return true
	}
	pos := elapsed % b.Cycle
	if pos < 0 {
		pos += b.Cycle
	}
	return pos < b.Inhale
}

func easeInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - math.Pow(-2*t+2, 2)/2
}
