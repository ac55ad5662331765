package state

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/calmbridge/internal/coach"
)

// ErrNotFound is returned when a session or version does not exist.
var ErrNotFound = errors.New("not found")

// #region state-record
// StateRecord is one immutable version of a session's state. Every user
// action produces a new record whose ParentID is the version it replaced.
type StateRecord struct {
	VersionID string
	SessionID string
	ParentID  string
	State     coach.SessionState
	Trigger   string // action type that produced this version, "start" for the first
	CreatedAt time.Time
}
// #endregion state-record

// #region session-summary
// SessionSummary is a row of the session listing.
type SessionSummary struct {
	SessionID     string
	ActiveVersion string
	Versions      int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
// #endregion session-summary
