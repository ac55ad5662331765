package codec

import "github.com/danielpatrickdp/calmbridge/internal/coach"

// NarrateRequest asks for a stateless frame.
type NarrateRequest = coach.Query

// StartRequest opens a session.
type StartRequest struct {
	Language string `json:"language,omitempty"`
	Calmness *int   `json:"calmness,omitempty"`
	Step     string `json:"step,omitempty"`
}

// SessionRequest addresses an existing session.
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// ApplyRequest runs one action against a session.
type ApplyRequest struct {
	SessionID string       `json:"session_id"`
	Action    coach.Action `json:"action"`
}
