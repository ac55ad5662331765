package coach

import (
	"time"

	"github.com/danielpatrickdp/calmbridge/internal/script"
	"github.com/danielpatrickdp/calmbridge/internal/signals"
	"github.com/danielpatrickdp/calmbridge/internal/triage"
)

// #region session-state

// SessionState is everything the coach screen depends on. It is a value:
// every change produces a new copy.
type SessionState struct {
	Calmness  int         `json:"calmness"`
	Step      script.Step `json:"step"`
	AnchorKey string      `json:"anchor_key,omitempty"` // "" means no child selection
	Language  string      `json:"language"`
	Voice     Voice       `json:"voice"`
}

// DefaultSessionState is the state a new session opens with.
func DefaultSessionState() SessionState {
	return SessionState{
		Calmness: 40,
		Step:     script.StepIdle,
		Language: script.DefaultLanguage,
		Voice:    DefaultVoice(),
	}
}

// #endregion session-state

// #region frame

// Utterance is what a speech engine would be asked to say.
type Utterance struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Rate     float64 `json:"rate"`
	Pitch    float64 `json:"pitch"`
}

// Frame is the fully derived view of a SessionState.
type Frame struct {
	Calmness    int             `json:"calmness"`
	RMSSD       int             `json:"rmssd"`
	Status      triage.Status   `json:"status"`
	StateTag    triage.StateTag `json:"state_tag"`
	StatusLabel string          `json:"status_label"`
	Step        script.Step     `json:"step"`
	AnchorKey   string          `json:"anchor_key,omitempty"`
	Anchor      string          `json:"anchor"`
	Text        string          `json:"text"`
	Language    string          `json:"language"`
	Breathing   BreathingCycle  `json:"breathing"`
	Utterance   *Utterance      `json:"utterance,omitempty"` // nil when voice is muted
	Signals     signals.Signals `json:"signals"`
	Warnings    []string        `json:"warnings,omitempty"`
}

// BreathingCycle describes one inhale/exhale loop of the coach circle.
type BreathingCycle struct {
	TargetBPM float64       `json:"target_bpm"`
	Cycle     time.Duration `json:"cycle_ns"`
	Inhale    time.Duration `json:"inhale_ns"`
	Exhale    time.Duration `json:"exhale_ns"`
}

// #endregion frame

// #region pipeline-config

// PipelineConfig bundles the tunables of every stage.
type PipelineConfig struct {
	Producer   signals.ProducerConfig
	Thresholds triage.Thresholds
	TargetBPM  float64
}

// DefaultPipelineConfig returns the stock proxy, 50/30 cut points and 6 bpm.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Producer:   signals.DefaultProducerConfig(),
		Thresholds: triage.DefaultThresholds(),
		TargetBPM:  DefaultTargetBPM,
	}
}

// #endregion pipeline-config
