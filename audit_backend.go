// audit_backend.go: JSONL and SQLite storage for the audit trail
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

// auditBackend persists batches of audit events.
type auditBackend interface {
	// Write persists a batch. Implementations must be safe for concurrent use.
	Write(events []AuditEvent) error
	// Flush commits pending writes to stable storage.
	Flush() error
	// Close releases resources; the backend must not be used afterwards.
	Close() error
}

// isSQLitePath reports whether path names a SQLite database.
func isSQLitePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

func createAuditBackend(config AuditConfig) (auditBackend, error) {
	if isSQLitePath(config.OutputFile) {
		return newSQLiteAuditBackend(config.OutputFile)
	}
	return newJSONLAuditBackend(config.OutputFile)
}

// OpenSQLite opens a SQLite database in WAL mode, creating its directory.
// The pragmas favor frequent small writes with concurrent readers.
func OpenSQLite(path string) (*sql.DB, error) {
	if err := ValidateStorePath(path); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, errors.Wrap(err, ErrCodeIOError, "failed to create database directory").
			WithContext("path", path)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeIOError, "failed to open database").WithContext("path", path)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, ErrCodeIOError, "failed to ping database").WithContext("path", path)
	}
	return db, nil
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	level TEXT NOT NULL,
	event TEXT NOT NULL,
	key TEXT NOT NULL,
	provider TEXT NOT NULL,
	old_value TEXT,
	new_value TEXT,
	process_id INTEGER NOT NULL,
	checksum TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_key_time ON audit_events(key, timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_level ON audit_events(level);`

// sqliteAuditBackend stores events in the audit_events table.
type sqliteAuditBackend struct {
	db         *sql.DB
	insertStmt *sql.Stmt
	mu         sync.RWMutex
	closed     bool
}

func newSQLiteAuditBackend(path string) (*sqliteAuditBackend, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(auditSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, ErrCodeIOError, "failed to create audit schema")
	}
	stmt, err := db.Prepare(`INSERT INTO audit_events
		(timestamp, level, event, key, provider, old_value, new_value, process_id, checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, ErrCodeIOError, "failed to prepare audit statement")
	}
	return &sqliteAuditBackend{db: db, insertStmt: stmt}, nil
}

// Write inserts the batch in one transaction.
func (s *sqliteAuditBackend) Write(events []AuditEvent) (err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New(ErrCodeIOError, "cannot write to closed SQLite audit backend")
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, ErrCodeIOError, "failed to begin audit transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt := tx.Stmt(s.insertStmt)
	defer func() { _ = stmt.Close() }()

	for _, ev := range events {
		oldJSON, merr := json.Marshal(ev.OldValue)
		if merr != nil {
			return errors.Wrap(merr, ErrCodeSerializationError, "failed to serialize old value")
		}
		newJSON, merr := json.Marshal(ev.NewValue)
		if merr != nil {
			return errors.Wrap(merr, ErrCodeSerializationError, "failed to serialize new value")
		}
		if _, err = stmt.Exec(
			ev.Timestamp.UTC().Format(time.RFC3339Nano),
			ev.Level.String(),
			ev.Event,
			ev.Key,
			ev.Provider,
			string(oldJSON),
			string(newJSON),
			ev.ProcessID,
			ev.Checksum,
		); err != nil {
			return errors.Wrap(err, ErrCodeIOError, "failed to insert audit event")
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, ErrCodeIOError, "failed to commit audit transaction")
	}
	return nil
}

// Flush checkpoints the WAL.
func (s *sqliteAuditBackend) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.Wrap(err, ErrCodeIOError, "failed to flush SQLite audit backend")
	}
	return nil
}

// Close is safe to call multiple times.
func (s *sqliteAuditBackend) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.insertStmt.Close()
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, ErrCodeIOError, "failed to close audit database")
	}
	return nil
}

// jsonlAuditBackend appends one JSON object per line.
type jsonlAuditBackend struct {
	file   *os.File
	mu     sync.Mutex
	closed bool
}

func newJSONLAuditBackend(path string) (*jsonlAuditBackend, error) {
	if err := ValidateStorePath(path); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, errors.Wrap(err, ErrCodeIOError, "failed to create audit log directory").
			WithContext("path", path)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) // #nosec G304 -- path comes from configuration
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeIOError, "failed to open audit log").WithContext("path", path)
	}
	return &jsonlAuditBackend{file: file}, nil
}

func (j *jsonlAuditBackend) Write(events []AuditEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return errors.New(ErrCodeIOError, "cannot write to closed JSONL audit backend")
	}
	var buf []byte
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return errors.Wrap(err, ErrCodeSerializationError, "failed to serialize audit event")
		}
		buf = append(append(buf, data...), '\n')
	}
	if _, err := j.file.Write(buf); err != nil {
		return errors.Wrap(err, ErrCodeIOError, "failed to append audit events")
	}
	return nil
}

func (j *jsonlAuditBackend) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	if err := j.file.Sync(); err != nil {
		return errors.Wrap(err, ErrCodeIOError, "failed to sync audit log")
	}
	return nil
}

func (j *jsonlAuditBackend) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.file.Close()
}

// ReadAuditTrail returns the last limit events stored at path, oldest first.
// A limit of zero or less returns everything.
func ReadAuditTrail(path string, limit int) ([]AuditEvent, error) {
	if isSQLitePath(path) {
		return readSQLiteAudit(path, limit)
	}
	return readJSONLAudit(path, limit)
}

func readJSONLAudit(path string, limit int) ([]AuditEvent, error) {
	file, err := os.Open(path) // #nosec G304 -- caller supplied audit path
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeIOError, "failed to open audit log").WithContext("path", path)
	}
	defer func() { _ = file.Close() }()

	var events []AuditEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev AuditEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return nil, errors.Wrap(err, ErrCodeSerializationError, "malformed audit record").
				WithContext("path", path)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, ErrCodeIOError, "failed to read audit log").WithContext("path", path)
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}

func readSQLiteAudit(path string, limit int) ([]AuditEvent, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(err, ErrCodeIOError, "audit database not found").WithContext("path", path)
	}
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	query := `SELECT timestamp, level, event, key, provider, old_value, new_value, process_id, checksum
		FROM (SELECT * FROM audit_events ORDER BY id DESC LIMIT ?) ORDER BY id ASC`
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(query, limit)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeIOError, "failed to query audit events")
	}
	defer func() { _ = rows.Close() }()

	var events []AuditEvent
	for rows.Next() {
		var (
			ev               AuditEvent
			ts, level        string
			oldJSON, newJSON sql.NullString
		)
		if err := rows.Scan(&ts, &level, &ev.Event, &ev.Key, &ev.Provider, &oldJSON, &newJSON, &ev.ProcessID, &ev.Checksum); err != nil {
			return nil, errors.Wrap(err, ErrCodeIOError, "failed to scan audit event")
		}
		ev.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		_ = ev.Level.UnmarshalText([]byte(level))
		if oldJSON.Valid && oldJSON.String != "" {
			_ = json.Unmarshal([]byte(oldJSON.String), &ev.OldValue)
		}
		if newJSON.Valid && newJSON.String != "" {
			_ = json.Unmarshal([]byte(newJSON.String), &ev.NewValue)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, ErrCodeIOError, "failed to read audit events")
	}
	return events, nil
}
