package logging

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE provenance_log (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		version_id   TEXT NOT NULL,
		session_id   TEXT NOT NULL,
		trigger_type TEXT NOT NULL,
		signals_json TEXT,
		decision     TEXT NOT NULL,
		reason       TEXT,
		created_at   TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-decision-tests
func TestLogDecision_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := ProvenanceEntry{
		VersionID:   "v1",
		SessionID:   "s1",
		TriggerType: "set_calmness",
		SignalsJSON: `{"rmssd":45}`,
		Decision:    "commit",
		Reason:      "calmness 40 -> 50",
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogDecision(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM provenance_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var versionID, sessionID, decision string
	db.QueryRow("SELECT version_id, session_id, decision FROM provenance_log").Scan(&versionID, &sessionID, &decision)
	if versionID != "v1" || sessionID != "s1" {
		t.Errorf("unexpected ids %q/%q", versionID, sessionID)
	}
	if decision != "commit" {
		t.Errorf("expected decision 'commit', got %q", decision)
	}
}

func TestLogDecision_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	err := LogDecision(db, ProvenanceEntry{VersionID: "v2", SessionID: "s1", TriggerType: "undo", Decision: "undo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM provenance_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogDecision_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	err := LogDecision(db, ProvenanceEntry{VersionID: "v3", SessionID: "s1", TriggerType: "start", Decision: "commit"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var signals, reason sql.NullString
	db.QueryRow("SELECT signals_json, reason FROM provenance_log").Scan(&signals, &reason)
	if signals.Valid {
		t.Error("expected signals_json to be NULL")
	}
	if reason.Valid {
		t.Error("expected reason to be NULL")
	}
}

func TestLogDecision_ClosedDB(t *testing.T) {
	db := setupDB(t)
	db.Close()

	if err := LogDecision(db, ProvenanceEntry{VersionID: "v4", SessionID: "s1", TriggerType: "start", Decision: "commit"}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-decision-tests

// #region list-tests
func TestLogFrameAndListBySession(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	at := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	frames := []FrameRecord{
		{Action: "start", Calmness: 40, RMSSD: 38, Status: "YELLOW", StateTag: "RECOVER", Step: "IDLE", Anchor: "a colorful pinwheel"},
		{Action: "set_calmness", Calmness: 80, RMSSD: 66, Status: "GREEN", StateTag: "CALM", Step: "IDLE", Anchor: "a colorful pinwheel"},
	}
	for i, f := range frames {
		if err := LogFrame(db, "s1", "v"+string(rune('a'+i)), "commit", "", f, at.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("LogFrame: %v", err)
		}
	}
	if err := LogFrame(db, "other", "vx", "commit", "", frames[0], at); err != nil {
		t.Fatalf("LogFrame: %v", err)
	}

	entries, err := ListBySession(db, "s1", 0)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[1].TriggerType != "set_calmness" {
		t.Errorf("expected oldest first, got %q last", entries[1].TriggerType)
	}
	if !entries[0].CreatedAt.Equal(at) {
		t.Errorf("expected created_at %v, got %v", at, entries[0].CreatedAt)
	}

	rec, ok, err := entries[1].FrameRecord()
	if err != nil || !ok {
		t.Fatalf("FrameRecord: ok=%v err=%v", ok, err)
	}
	if rec.Status != "GREEN" || rec.RMSSD != 66 {
		t.Errorf("unexpected decoded record %+v", rec)
	}

	limited, _ := ListBySession(db, "s1", 1)
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d", len(limited))
	}
}

func TestFrameRecord_Empty(t *testing.T) {
	_, ok, err := ProvenanceEntry{}.FrameRecord()
	if ok || err != nil {
		t.Fatalf("expected no record, got ok=%v err=%v", ok, err)
	}
	_, _, err = ProvenanceEntry{SignalsJSON: "{"}.FrameRecord()
	if err == nil {
		t.Fatal("expected decode error")
	}
}

// #endregion list-tests

// #region null-if-empty-tests
func TestNullIfEmpty_Empty(t *testing.T) {
	result := nullIfEmpty("")
	if result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
}

func TestNullIfEmpty_NonEmpty(t *testing.T) {
	result := nullIfEmpty("hello")
	if result != "hello" {
		t.Errorf("expected 'hello', got %v", result)
	}
}

// #endregion null-if-empty-tests
