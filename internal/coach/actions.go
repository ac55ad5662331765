package coach

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/calmbridge/internal/script"
	"github.com/danielpatrickdp/calmbridge/internal/signals"
)

// #region action-types

// ActionType names a user interaction on the coach or selection screen.
type ActionType string

const (
	ActionSetCalmness ActionType = "set_calmness"
	ActionSetStep     ActionType = "set_step"
	ActionPickAnchor  ActionType = "pick_anchor"
	ActionClearAnchor ActionType = "clear_anchor"
	ActionToggleVoice ActionType = "toggle_voice"
	ActionVoiceSlower ActionType = "voice_slower"
	ActionVoiceFaster ActionType = "voice_faster"
)

// ErrUnknownAction is returned by Apply for an unrecognised action type.
var ErrUnknownAction = errors.New("unknown action")

// Action is one user interaction. Only the field matching Type is read.
type Action struct {
	Type     ActionType     `json:"type"`
	Calmness int            `json:"calmness,omitempty"`
	Step     script.Step    `json:"step,omitempty"`
	Anchor   string         `json:"anchor,omitempty"`
	Source   signals.Source `json:"source,omitempty"`
}

// SetCalmness builds a slider/sensor action.
func SetCalmness(v int, src signals.Source) Action {
	return Action{Type: ActionSetCalmness, Calmness: v, Source: src}
}

// SetStep builds a Start Drill / Start Injection / Reset action.
func SetStep(s script.Step) Action {
	return Action{Type: ActionSetStep, Step: s}
}

// PickAnchor builds a selection-screen action.
func PickAnchor(key string) Action {
	return Action{Type: ActionPickAnchor, Anchor: key}
}

// #endregion action-types

// #region apply

// Apply returns the state that results from a. It never mutates st.
// Calmness is clamped into [0,100]; an unknown step is rejected. Anchor keys
// are stored as given: resolution treats unknown keys as no selection.
func Apply(st SessionState, a Action) (SessionState, error) {
	switch a.Type {
	case ActionSetCalmness:
		st.Calmness = signals.ClampCalmness(a.Calmness)
	case ActionSetStep:
		step, err := script.ParseStep(string(a.Step))
		if err != nil {
			return st, err
		}
		st.Step = step
	case ActionPickAnchor:
		st.AnchorKey = a.Anchor
	case ActionClearAnchor:
		st.AnchorKey = ""
	case ActionToggleVoice:
		st.Voice = st.Voice.Toggle()
	case ActionVoiceSlower:
		st.Voice = st.Voice.Slower()
	case ActionVoiceFaster:
		st.Voice = st.Voice.Faster()
	default:
		return st, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
	return st, nil
}

// #endregion apply
