package logging

import "time"

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table.
type ProvenanceEntry struct {
	ID          int64
	VersionID   string
	SessionID   string
	TriggerType string // action type, "start" or "undo"
	SignalsJSON string // FrameRecord as JSON
	Decision    string // "commit" | "undo" | "no_op"
	Reason      string
	CreatedAt   time.Time
}
// #endregion provenance-entry

// #region frame-record
// FrameRecord captures what the coach showed and said after a state change.
// Serialized as JSON into provenance_log.signals_json so a session can be
// exported and replayed.
type FrameRecord struct {
	Action   string `json:"action"`
	Calmness int    `json:"calmness"`
	RMSSD    int    `json:"rmssd"`
	Status   string `json:"status"`
	StateTag string `json:"state_tag"`
	Step     string `json:"step"`

	AnchorKey string `json:"anchor_key,omitempty"`
	Anchor    string `json:"anchor"`
	Text      string `json:"text"`
	Language  string `json:"language"`

	VoiceEnabled bool    `json:"voice_enabled"`
	VoiceRate    float64 `json:"voice_rate"`

	Warnings []string `json:"warnings,omitempty"`
}
// #endregion frame-record
