package coach

import "github.com/danielpatrickdp/calmbridge/internal/script"

// Query is a complete session state described by outside input, used for
// stateless narration.
type Query struct {
	Calmness int    `json:"calmness"`
	Step     string `json:"step,omitempty"`
	Anchor   string `json:"anchor,omitempty"`
	Language string `json:"language,omitempty"`
	Muted    bool   `json:"muted,omitempty"`
}

// State validates the step, clamps calmness and fills the rest from
// DefaultSessionState. Anchor keys are not validated.
func (q Query) State() (SessionState, error) {
	st := DefaultSessionState()
	step, err := script.ParseStep(q.Step)
	if err != nil {
		return st, err
	}
	st.Step = step
	st.AnchorKey = q.Anchor
	if q.Language != "" {
		st.Language = q.Language
	}
	st.Voice.Enabled = !q.Muted
	return Apply(st, SetCalmness(q.Calmness, ""))
}
