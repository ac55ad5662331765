package session

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/calmbridge/internal/coach"
	"github.com/danielpatrickdp/calmbridge/internal/script"
)

// ErrNothingToUndo is returned by Undo on a session's first version.
var ErrNothingToUndo = errors.New("nothing to undo")

// StartInput configures a new session. Zero fields keep the service's
// initial state.
type StartInput struct {
	Language string
	Calmness *int
	Step     script.Step
}

// View is a session's active version together with its derived frame.
type View struct {
	SessionID string             `json:"session_id"`
	VersionID string             `json:"version_id"`
	ParentID  string             `json:"parent_id,omitempty"`
	Trigger   string             `json:"trigger"`
	State     coach.SessionState `json:"state"`
	Frame     coach.Frame        `json:"frame"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Version is one entry of a session's history.
type Version struct {
	VersionID string             `json:"version_id"`
	ParentID  string             `json:"parent_id,omitempty"`
	Trigger   string             `json:"trigger"`
	State     coach.SessionState `json:"state"`
	Active    bool               `json:"active"`
	CreatedAt time.Time          `json:"created_at"`
}

// Summary is a row of the session listing.
type Summary struct {
	SessionID     string    `json:"session_id"`
	ActiveVersion string    `json:"active_version"`
	Versions      int       `json:"versions"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
