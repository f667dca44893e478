// Package sqlite provides a SQLite-backed flag store for Vexilla
//
// USAGE:
//
//	store, err := sqlite.Open("flags.db", sqlite.Options{})
//	loader, err := vexilla.NewLoader(root, vexilla.WithProviders(store))
//
// SCHEMA:
//
//	flags(key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TEXT NOT NULL)
//
// Keys are stored as full paths joined with Options.Separator. Values are
// stored in the kind-preserving JSON form of vexilla.EncodedValue, so a value
// reads back with exactly the kind it was written with.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package sqlite

import (
	"database/sql"
	"encoding/json"
	goerrors "errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	"github.com/agilira/vexilla"
)

const schema = `
CREATE TABLE IF NOT EXISTS flags (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// Options configures a Provider.
type Options struct {
	// Name identifies the provider. Default: the database base name.
	Name string

	// ReadOnly makes the provider decline all writes.
	ReadOnly bool

	// Separator joins key segments in the key column. Default: "/".
	Separator string

	// ErrorHandler receives read failures, which otherwise count as misses.
	ErrorHandler vexilla.ErrorHandler
}

// Provider stores flag values in a SQLite table.
//
// Thread safety: safe for concurrent use; database/sql pools connections.
type Provider struct {
	path    string
	options Options
	db      *sql.DB

	getStmt  *sql.Stmt
	putStmt  *sql.Stmt
	delStmt  *sql.Stmt
	keysStmt *sql.Stmt

	mu     sync.RWMutex
	closed bool
}

// Open opens or creates the database at path and prepares its statements.
func Open(path string, options Options) (*Provider, error) {
	if path == "" {
		return nil, errors.New(vexilla.ErrCodeInvalidConfig, "sqlite provider path cannot be empty")
	}
	if options.Name == "" {
		options.Name = filepath.Base(path)
	}
	if options.Separator == "" {
		options.Separator = vexilla.DefaultSeparator
	}

	db, err := vexilla.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	p := &Provider{path: path, options: options, db: db}
	if err := p.prepare(); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

func (p *Provider) prepare() error {
	if _, err := p.db.Exec(schema); err != nil {
		return errors.Wrap(err, vexilla.ErrCodeIOError, "failed to create flags table").
			WithContext("path", p.path)
	}
	statements := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&p.getStmt, `SELECT value FROM flags WHERE key = ?`},
		{&p.putStmt, `INSERT INTO flags (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`},
		{&p.delStmt, `DELETE FROM flags WHERE key = ?`},
		{&p.keysStmt, `SELECT key FROM flags ORDER BY key`},
	}
	for _, s := range statements {
		stmt, err := p.db.Prepare(s.query)
		if err != nil {
			return errors.Wrap(err, vexilla.ErrCodeIOError, "failed to prepare statement").
				WithContext("path", p.path)
		}
		*s.dst = stmt
	}
	return nil
}

// Name implements vexilla.Provider.
func (p *Provider) Name() string { return p.options.Name }

// Path returns the database path.
func (p *Provider) Path() string { return p.path }

// IsWritable implements vexilla.Provider.
func (p *Provider) IsWritable() bool { return !p.options.ReadOnly }

// Read implements vexilla.Provider. Query and decode failures are reported
// to the ErrorHandler and count as misses.
func (p *Provider) Read(key vexilla.KeyPath) (vexilla.EncodedValue, bool) {
	if key.IsEmpty() {
		return vexilla.EncodedValue{}, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return vexilla.EncodedValue{}, false
	}

	var raw string
	err := p.getStmt.QueryRow(p.column(key)).Scan(&raw)
	if err != nil {
		if !goerrors.Is(err, sql.ErrNoRows) {
			p.handleError(errors.Wrap(err, vexilla.ErrCodeIOError, "failed to read flag").
				WithContext("key", p.column(key)))
		}
		return vexilla.EncodedValue{}, false
	}
	var v vexilla.EncodedValue
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		p.handleError(err)
		return vexilla.EncodedValue{}, false
	}
	return v, !v.IsAbsent()
}

// Write implements vexilla.Provider. An Absent value deletes the row.
func (p *Provider) Write(key vexilla.KeyPath, value vexilla.EncodedValue) (bool, error) {
	if p.options.ReadOnly {
		return false, vexilla.ReadOnlyError(p.options.Name)
	}
	if key.IsEmpty() {
		return false, nil
	}
	if value.IsAbsent() {
		return true, p.Reset(key)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return false, errors.Wrap(err, vexilla.ErrCodeSerializationError, "failed to encode flag value").
			WithContext("key", p.column(key))
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false, errors.New(vexilla.ErrCodeProviderIO, "sqlite provider is closed")
	}
	updated := timecache.CachedTime().UTC().Format(time.RFC3339Nano)
	if _, err := p.putStmt.Exec(p.column(key), string(data), updated); err != nil {
		return false, errors.Wrap(err, vexilla.ErrCodeProviderIO, "failed to store flag").
			WithContext("key", p.column(key)).
			WithContext("path", p.path)
	}
	return true, nil
}

// Reset implements vexilla.Provider.
func (p *Provider) Reset(key vexilla.KeyPath) error {
	if p.options.ReadOnly {
		return vexilla.ReadOnlyError(p.options.Name)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.New(vexilla.ErrCodeProviderIO, "sqlite provider is closed")
	}
	if _, err := p.delStmt.Exec(p.column(key)); err != nil {
		return errors.Wrap(err, vexilla.ErrCodeProviderIO, "failed to delete flag").
			WithContext("key", p.column(key)).
			WithContext("path", p.path)
	}
	return nil
}

// Keys implements vexilla.KeyLister.
func (p *Provider) Keys() []vexilla.KeyPath {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil
	}
	rows, err := p.keysStmt.Query()
	if err != nil {
		p.handleError(err)
		return nil
	}
	defer func() { _ = rows.Close() }()

	var keys []vexilla.KeyPath
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			p.handleError(err)
			return keys
		}
		keys = append(keys, vexilla.ParseKeyPath(k, p.options.Separator))
	}
	return keys
}

// Close releases the statements and the database. Safe to call twice.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for _, stmt := range []*sql.Stmt{p.getStmt, p.putStmt, p.delStmt, p.keysStmt} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	if err := p.db.Close(); err != nil {
		return errors.Wrap(err, vexilla.ErrCodeIOError, "failed to close database").
			WithContext("path", p.path)
	}
	return nil
}

func (p *Provider) column(key vexilla.KeyPath) string {
	return vexilla.NewKeyPath(p.options.Separator, key.Segments()...).FullPath()
}

func (p *Provider) handleError(err error) {
	if p.options.ErrorHandler != nil {
		p.options.ErrorHandler(err, p.path)
	}
}
