// provider_file.go: File-backed flag store
//
// The store persists a nested string-keyed map: one map level per key path
// segment, the last segment holding the leaf value. Every accepted write is
// flushed to disk atomically (temporary file + rename) before it is reported
// as accepted.
//
// Philosophy:
// - Polling-based change detection for maximum OS portability
// - In-memory state always mirrors the last successful write or reload
// - Serialized writes, concurrent reads
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
)

// FileProviderOptions configures a FileProvider.
type FileProviderOptions struct {
	// Name identifies the provider. Default: the file's base name.
	Name string

	// Format overrides extension-based detection. Files without a known
	// extension are treated as JSON.
	Format ConfigFormat

	// ReadOnly makes the provider decline all writes.
	ReadOnly bool

	// Separator is used by Keys. Default: DefaultSeparator.
	Separator string

	// PollInterval is how often Watch checks the file. Default: 2s.
	PollInterval time.Duration

	// ChangeBuffer is the capacity of the Changes channel. Default: 64.
	ChangeBuffer int

	// ErrorHandler receives reload failures detected by Watch.
	ErrorHandler ErrorHandler
}

// WithDefaults fills unset options for path.
func (o FileProviderOptions) WithDefaults(path string) FileProviderOptions {
	if o.Name == "" {
		o.Name = filepath.Base(path)
	}
	if o.Format == FormatJSON && DetectFormat(path) != FormatUnknown {
		o.Format = DetectFormat(path)
	}
	if o.Separator == "" {
		o.Separator = DefaultSeparator
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.ChangeBuffer <= 0 {
		o.ChangeBuffer = 64
	}
	return o
}

// fileStat is the metadata compared between polls.
type fileStat struct {
	modTime time.Time
	size    int64
	exists  bool
}

// FileProvider is a writable Provider persisted to a JSON, YAML or TOML file.
//
// Thread safety: safe for concurrent reads, serialized writes.
type FileProvider struct {
	path    string
	options FileProviderOptions

	mu       sync.RWMutex
	data     map[string]interface{}
	lastStat fileStat
	loadedAt int64

	changes  chan ChangeEvent
	watching atomic.Bool
}

// NewFileProvider opens the store at path. A missing file is an empty store
// and is created on the first write.
func NewFileProvider(path string, options FileProviderOptions) (*FileProvider, error) {
	if path == "" {
		return nil, errors.New(ErrCodeInvalidConfig, "file provider path cannot be empty")
	}
	if err := ValidateStorePath(path); err != nil {
		return nil, err
	}
	options = options.WithDefaults(path)
	if options.Format == FormatUnknown {
		return nil, errors.New(ErrCodeUnsupportedFormat, "cannot detect store format").
			WithContext("path", path)
	}

	p := &FileProvider{
		path:    path,
		options: options,
		data:    make(map[string]interface{}),
		changes: make(chan ChangeEvent, options.ChangeBuffer),
	}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Name implements Provider.
func (p *FileProvider) Name() string { return p.options.Name }

// Path returns the store's file path.
func (p *FileProvider) Path() string { return p.path }

// Format returns the store's serialization format.
func (p *FileProvider) Format() ConfigFormat { return p.options.Format }

// IsWritable implements Provider.
func (p *FileProvider) IsWritable() bool { return !p.options.ReadOnly }

// Read implements Provider.
//
// Performance: map lookups only, O(depth)
func (p *FileProvider) Read(key KeyPath) (EncodedValue, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	raw, ok := GetNested(p.data, key.segments)
	if !ok {
		return EncodedValue{}, false
	}
	return FromNative(raw)
}

// Write implements Provider. An Absent value deletes the key. If the file
// cannot be written the in-memory state is rolled back and a
// VEXILLA_PROVIDER_IO error is returned.
func (p *FileProvider) Write(key KeyPath, value EncodedValue) (bool, error) {
	if p.options.ReadOnly {
		return false, ReadOnlyError(p.Name())
	}
	if key.IsEmpty() {
		return false, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	previous := deepCopy(p.data)
	if value.IsAbsent() {
		DeleteNested(p.data, key.segments)
	} else {
		SetNested(p.data, key.segments, ToNative(value))
	}
	if err := p.saveLocked(); err != nil {
		p.data = previous
		return false, errors.Wrap(err, ErrCodeProviderIO, "failed to persist flag value").
			WithContext("provider", p.Name()).
			WithContext("key", key.FullPath())
	}
	return true, nil
}

// Reset implements Provider.
func (p *FileProvider) Reset(key KeyPath) error {
	if p.options.ReadOnly {
		return ReadOnlyError(p.Name())
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	previous := deepCopy(p.data)
	if !DeleteNested(p.data, key.segments) {
		return nil
	}
	if err := p.saveLocked(); err != nil {
		p.data = previous
		return errors.Wrap(err, ErrCodeProviderIO, "failed to persist flag reset").
			WithContext("provider", p.Name()).
			WithContext("key", key.FullPath())
	}
	return nil
}

// Keys implements KeyLister. Entries of map-valued flags are listed as
// separate keys; see CollectKeys.
func (p *FileProvider) Keys() []KeyPath {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return CollectKeys(p.data, p.options.Separator)
}

// Snapshot returns a deep copy of the stored map.
func (p *FileProvider) Snapshot() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return deepCopy(p.data)
}

// Replace swaps the whole store for data and persists it.
func (p *FileProvider) Replace(data map[string]interface{}) error {
	if p.options.ReadOnly {
		return ReadOnlyError(p.Name())
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	previous := p.data
	p.data = deepCopy(data)
	if p.data == nil {
		p.data = make(map[string]interface{})
	}
	if err := p.saveLocked(); err != nil {
		p.data = previous
		return errors.Wrap(err, ErrCodeProviderIO, "failed to persist store").
			WithContext("provider", p.Name())
	}
	return nil
}

// LoadedAt returns when the in-memory state last changed.
func (p *FileProvider) LoadedAt() time.Time {
	return time.Unix(0, atomic.LoadInt64(&p.loadedAt))
}

// Reload re-reads the file, replacing the in-memory state.
func (p *FileProvider) Reload() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.reloadLocked()
	return err
}

// Changes implements ChangeNotifier. Events are only produced while Watch runs.
func (p *FileProvider) Changes() <-chan ChangeEvent { return p.changes }

// Watch polls the file until ctx is done, reloading it and emitting one
// ChangeEvent per changed leaf whenever another process modifies it.
// Only one Watch may run at a time.
func (p *FileProvider) Watch(ctx context.Context) error {
	if !p.watching.CompareAndSwap(false, true) {
		return errors.New(ErrCodeWatcherBusy, "file provider is already being watched").
			WithContext("path", p.path)
	}
	defer p.watching.Store(false)

	ticker := time.NewTicker(p.options.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.checkFile()
		}
	}
}

// checkFile compares the current stat with the last known one and reloads on change.
func (p *FileProvider) checkFile() {
	current, err := statFile(p.path)
	if err != nil {
		p.handleError(errors.Wrap(err, ErrCodeIOError, "failed to stat store").
			WithContext("path", p.path))
		return
	}

	p.mu.Lock()
	if current == p.lastStat {
		p.mu.Unlock()
		return
	}
	before := p.data
	changed, err := p.reloadLocked()
	var events []ChangeEvent
	if err == nil && changed {
		events = DiffSnapshots(p.Name(), before, p.data, p.options.Separator)
	}
	p.mu.Unlock()

	if err != nil {
		p.handleError(err)
		return
	}
	for _, ev := range events {
		Notify(p.changes, ev)
	}
}

func (p *FileProvider) handleError(err error) {
	if p.options.ErrorHandler != nil {
		p.options.ErrorHandler(err, p.path)
	}
}

// reloadLocked reads the file into p.data. It reports whether the stat changed.
func (p *FileProvider) reloadLocked() (bool, error) {
	stat, err := statFile(p.path)
	if err != nil {
		return false, errors.Wrap(err, ErrCodeIOError, "failed to stat store").
			WithContext("path", p.path)
	}
	if stat == p.lastStat && p.loadedAt != 0 {
		return false, nil
	}

	data := make(map[string]interface{})
	if stat.exists {
		raw, err := os.ReadFile(p.path) // #nosec G304 -- path is supplied by the application
		if err != nil {
			return false, errors.Wrap(err, ErrCodeIOError, "failed to read store").
				WithContext("path", p.path)
		}
		data, err = ParseConfig(raw, p.options.Format)
		if err != nil {
			return false, errors.Wrap(err, ErrCodeSerializationError, "failed to parse store").
				WithContext("path", p.path)
		}
	}

	p.data = data
	p.lastStat = stat
	atomic.StoreInt64(&p.loadedAt, timecache.CachedTimeNano())
	return true, nil
}

// saveLocked serializes p.data and writes it atomically.
func (p *FileProvider) saveLocked() error {
	payload, err := SerializeConfig(p.data, p.options.Format)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(p.path, payload); err != nil {
		return err
	}
	if stat, err := statFile(p.path); err == nil {
		p.lastStat = stat
	}
	atomic.StoreInt64(&p.loadedAt, timecache.CachedTimeNano())
	return nil
}

// DiffSnapshots lists the leaves that differ between two nested maps, as
// change events from provider. Removed leaves carry an Absent value.
func DiffSnapshots(provider string, before, after map[string]interface{}, separator string) []ChangeEvent {
	var events []ChangeEvent
	seen := make(map[string]bool)
	for _, key := range CollectKeys(after, separator) {
		seen[key.FullPath()] = true
		now, _ := GetNested(after, key.segments)
		if old, ok := GetNested(before, key.segments); ok && hashValue(old) == hashValue(now) {
			continue
		}
		ev, _ := FromNative(now)
		events = append(events, ChangeEvent{Provider: provider, Key: key, Value: ev})
	}
	for _, key := range CollectKeys(before, separator) {
		if !seen[key.FullPath()] {
			events = append(events, ChangeEvent{Provider: provider, Key: key, Value: Absent()})
		}
	}
	return events
}

func statFile(path string) (fileStat, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileStat{}, nil
		}
		return fileStat{}, err
	}
	return fileStat{modTime: info.ModTime(), size: info.Size(), exists: true}, nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it over path, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.Wrap(err, ErrCodeIOError, "failed to create store directory").
			WithContext("dir", dir)
	}

	// Same directory keeps the rename on one filesystem.
	tempPath := filepath.Join(dir, fmt.Sprintf(".%s.tmp.%d", filepath.Base(path), timecache.CachedTimeNano()))
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return errors.Wrap(err, ErrCodeIOError, "failed to write temp file").
			WithContext("path", tempPath)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, ErrCodeIOError, "failed to rename temp file").
			WithContext("path", path)
	}
	return nil
}
