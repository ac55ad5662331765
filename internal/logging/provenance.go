package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// #region log-decision
// LogDecision writes a provenance entry to the provenance_log table.
func LogDecision(db *sql.DB, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (version_id, session_id, trigger_type, signals_json, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.VersionID,
		entry.SessionID,
		entry.TriggerType,
		nullIfEmpty(entry.SignalsJSON),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}
// #endregion log-decision

// #region log-frame
// LogFrame marshals rec and records it against a state version.
func LogFrame(db *sql.DB, sessionID, versionID, decision, reason string, rec FrameRecord, at time.Time) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal frame record: %w", err)
	}
	return LogDecision(db, ProvenanceEntry{
		VersionID:   versionID,
		SessionID:   sessionID,
		TriggerType: rec.Action,
		SignalsJSON: string(data),
		Decision:    decision,
		Reason:      reason,
		CreatedAt:   at,
	})
}
// #endregion log-frame

// #region list-by-session
// ListBySession returns a session's provenance entries oldest first. A
// limit <= 0 returns all of them.
func ListBySession(db *sql.DB, sessionID string, limit int) ([]ProvenanceEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(
		`SELECT id, version_id, session_id, trigger_type, COALESCE(signals_json, ''), decision, COALESCE(reason, ''), created_at
		 FROM provenance_log WHERE session_id = ? ORDER BY id ASC LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list provenance: %w", err)
	}
	defer rows.Close()

	var out []ProvenanceEntry
	for rows.Next() {
		var e ProvenanceEntry
		var created string
		if err := rows.Scan(&e.ID, &e.VersionID, &e.SessionID, &e.TriggerType, &e.SignalsJSON, &e.Decision, &e.Reason, &created); err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}
// #endregion list-by-session

// #region decode
// FrameRecord decodes the entry's signals payload. Entries without one yield
// a zero record and false.
func (e ProvenanceEntry) FrameRecord() (FrameRecord, bool, error) {
	if e.SignalsJSON == "" {
		return FrameRecord{}, false, nil
	}
	var rec FrameRecord
	if err := json.Unmarshal([]byte(e.SignalsJSON), &rec); err != nil {
		return FrameRecord{}, false, fmt.Errorf("decode frame record %d: %w", e.ID, err)
	}
	return rec, true, nil
}
// #endregion decode

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
