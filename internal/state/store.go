package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/calmbridge/internal/coach"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id     TEXT PRIMARY KEY,
	active_version TEXT,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS state_versions (
	version_id  TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	parent_id   TEXT,
	state_json  TEXT NOT NULL,
	trigger     TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id),
	FOREIGN KEY (parent_id) REFERENCES state_versions(version_id)
);

CREATE INDEX IF NOT EXISTS idx_state_versions_session ON state_versions(session_id, created_at);

CREATE TABLE IF NOT EXISTS provenance_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id    TEXT NOT NULL,
	session_id    TEXT NOT NULL,
	trigger_type  TEXT NOT NULL,
	signals_json  TEXT,
	decision      TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES state_versions(version_id)
);

CREATE INDEX IF NOT EXISTS idx_provenance_session ON provenance_log(session_id, id);
`
// #endregion schema

// #region store-struct
// Store keeps versioned session state in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations. ":memory:" gives a
// private in-process database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		// each pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an already-migrated database.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region create-session
// CreateSession creates a session whose first version holds initial.
func (s *Store) CreateSession(initial coach.SessionState, now time.Time) (StateRecord, error) {
	rec := StateRecord{
		VersionID: uuid.New().String(),
		SessionID: uuid.New().String(),
		State:     initial,
		Trigger:   "start",
		CreatedAt: now.UTC(),
	}

	stateJSON, err := json.Marshal(rec.State)
	if err != nil {
		return StateRecord{}, fmt.Errorf("marshal state: %w", err)
	}
	ts := rec.CreatedAt.Format(time.RFC3339Nano)

	tx, err := s.db.Begin()
	if err != nil {
		return StateRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO sessions (session_id, active_version, created_at, updated_at) VALUES (?, NULL, ?, ?)`,
		rec.SessionID, ts, ts,
	)
	if err != nil {
		return StateRecord{}, fmt.Errorf("insert session: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO state_versions (version_id, session_id, parent_id, state_json, trigger, created_at)
		 VALUES (?, ?, NULL, ?, ?, ?)`,
		rec.VersionID, rec.SessionID, string(stateJSON), rec.Trigger, ts,
	)
	if err != nil {
		return StateRecord{}, fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.Exec(`UPDATE sessions SET active_version = ? WHERE session_id = ?`, rec.VersionID, rec.SessionID)
	if err != nil {
		return StateRecord{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return StateRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}
// #endregion create-session

// #region get-current
// GetCurrent reads the active version of a session.
func (s *Store) GetCurrent(sessionID string) (StateRecord, error) {
	var versionID sql.NullString
	err := s.db.QueryRow(`SELECT active_version FROM sessions WHERE session_id = ?`, sessionID).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return StateRecord{}, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return StateRecord{}, fmt.Errorf("get active: %w", err)
	}
	if !versionID.Valid {
		return StateRecord{}, fmt.Errorf("session %s has no active version: %w", sessionID, ErrNotFound)
	}
	return s.GetVersion(versionID.String)
}
// #endregion get-current

// #region get-version
// GetVersion retrieves a specific version by ID.
func (s *Store) GetVersion(id string) (StateRecord, error) {
	row := s.db.QueryRow(
		`SELECT version_id, session_id, parent_id, state_json, trigger, created_at
		 FROM state_versions WHERE version_id = ?`, id,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StateRecord{}, fmt.Errorf("version %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return StateRecord{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return rec, nil
}
// #endregion get-version

// #region commit-state
// CommitState inserts a new version and moves the session's active pointer
// to it atomically.
func (s *Store) CommitState(rec StateRecord) error {
	stateJSON, err := json.Marshal(rec.State)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parentPtr interface{}
	if rec.ParentID != "" {
		parentPtr = rec.ParentID
	}
	ts := rec.CreatedAt.UTC().Format(time.RFC3339Nano)

	_, err = tx.Exec(
		`INSERT INTO state_versions (version_id, session_id, parent_id, state_json, trigger, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.VersionID, rec.SessionID, parentPtr, string(stateJSON), rec.Trigger, ts,
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	res, err := tx.Exec(
		`UPDATE sessions SET active_version = ?, updated_at = ? WHERE session_id = ?`,
		rec.VersionID, ts, rec.SessionID,
	)
	if err != nil {
		return fmt.Errorf("update active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", rec.SessionID, ErrNotFound)
	}

	return tx.Commit()
}
// #endregion commit-state

// #region rollback
// Rollback points a session back at one of its earlier versions.
func (s *Store) Rollback(sessionID, targetVersionID string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM state_versions WHERE version_id = ? AND session_id = ?`,
		targetVersionID, sessionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s in session %s: %w", targetVersionID, sessionID, ErrNotFound)
	}

	_, err = s.db.Exec(
		`UPDATE sessions SET active_version = ?, updated_at = ? WHERE session_id = ?`,
		targetVersionID, time.Now().UTC().Format(time.RFC3339Nano), sessionID,
	)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}
// #endregion rollback

// #region list-versions
// ListVersions returns the most recent versions of a session, newest first.
func (s *Store) ListVersions(sessionID string, limit int) ([]StateRecord, error) {
	rows, err := s.db.Query(
		`SELECT version_id, session_id, parent_id, state_json, trigger, created_at
		 FROM state_versions WHERE session_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []StateRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
// #endregion list-versions

// #region list-sessions
// ListSessions returns the most recently updated sessions.
func (s *Store) ListSessions(limit int) ([]SessionSummary, error) {
	rows, err := s.db.Query(
		`SELECT s.session_id, COALESCE(s.active_version, ''), s.created_at, s.updated_at,
		        (SELECT COUNT(*) FROM state_versions v WHERE v.session_id = s.session_id)
		 FROM sessions s ORDER BY s.updated_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var created, updated string
		if err := rows.Scan(&sum.SessionID, &sum.ActiveVersion, &created, &updated, &sum.Versions); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sum.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		sum.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, sum)
	}
	return out, rows.Err()
}
// #endregion list-sessions

// #region scan
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (StateRecord, error) {
	var rec StateRecord
	var parentID sql.NullString
	var stateJSON, createdStr string

	if err := row.Scan(&rec.VersionID, &rec.SessionID, &parentID, &stateJSON, &rec.Trigger, &createdStr); err != nil {
		return StateRecord{}, err
	}
	if parentID.Valid {
		rec.ParentID = parentID.String
	}
	if err := json.Unmarshal([]byte(stateJSON), &rec.State); err != nil {
		return StateRecord{}, fmt.Errorf("unmarshal state: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}
// #endregion scan
