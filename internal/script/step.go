package script

import (
	"errors"
	"fmt"
	"strings"
)

// #region step

// Step is the clinical procedure phase chosen by the clinician.
type Step string

const (
	StepIdle      Step = "IDLE"
	StepDrill     Step = "DRILL"
	StepInjection Step = "INJECTION"
)

// Steps lists every phase in procedure order.
var Steps = []Step{StepIdle, StepDrill, StepInjection}

// ErrUnknownStep is returned when a phase name is outside the closed set.
var ErrUnknownStep = errors.New("unknown procedure step")

// ParseStep accepts the canonical names case-insensitively.
// An empty string parses to StepIdle.
func ParseStep(s string) (Step, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(StepIdle), "RESET":
		return StepIdle, nil
	case string(StepDrill):
		return StepDrill, nil
	case string(StepInjection):
		return StepInjection, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStep, s)
	}
}

// Valid reports whether s is one of the known phases.
func (s Step) Valid() bool {
	for _, known := range Steps {
		if s == known {
			return true
		}
	}
	return false
}

// #endregion step
