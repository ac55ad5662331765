package triage

import (
	"errors"
	"fmt"
)

// #region status

// Status is the clinician-facing traffic light.
type Status string

const (
	StatusRed    Status = "RED"
	StatusYellow Status = "YELLOW"
	StatusGreen  Status = "GREEN"
)

// #endregion status

// #region state-tag

// StateTag selects the narrative script shown to the child.
type StateTag string

const (
	TagAlert   StateTag = "ALERT"
	TagRecover StateTag = "RECOVER"
	TagCalm    StateTag = "CALM"
)

// StateTags lists every tag in ascending calmness order.
var StateTags = []StateTag{TagAlert, TagRecover, TagCalm}

// #endregion state-tag

// #region thresholds

// Thresholds are the two RMSSD cut points shared by Status and StateTag.
// Both bounds are inclusive: rmssd == Green is GREEN/CALM, rmssd == Yellow is YELLOW/RECOVER.
type Thresholds struct {
	Green  int `json:"green" yaml:"green" env:"GREEN"`
	Yellow int `json:"yellow" yaml:"yellow" env:"YELLOW"`
}

// DefaultThresholds returns the 50/30 ms cut points.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Green:  50,
		Yellow: 30,
	}
}

// ErrInvalidThresholds is returned by Validate.
var ErrInvalidThresholds = errors.New("invalid thresholds")

// Validate checks that the cut points are ordered and non-negative.
func (t Thresholds) Validate() error {
	if t.Yellow < 0 || t.Green < 0 {
		return fmt.Errorf("%w: negative cut point (green=%d yellow=%d)", ErrInvalidThresholds, t.Green, t.Yellow)
	}
	if t.Yellow >= t.Green {
		return fmt.Errorf("%w: yellow %d must be below green %d", ErrInvalidThresholds, t.Yellow, t.Green)
	}
	return nil
}

// #endregion thresholds

// #region assessment

// Assessment is the full classification of one RMSSD value.
type Assessment struct {
	RMSSD  int      `json:"rmssd"`
	Status Status   `json:"status"`
	Tag    StateTag `json:"state_tag"`
	Label  string   `json:"label"`
}

// #endregion assessment
