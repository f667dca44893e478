// audit.go: Audit trail for flag writes
//
// Every accepted write, clear and reset is recorded together with the value
// it replaced. Rejected writes and provider IO failures are recorded too, at
// higher levels. Records are buffered and flushed in the background; each
// carries a SHA-256 checksum over its content for tamper detection.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
)

// AuditLevel represents the severity of audit events
type AuditLevel int

const (
	AuditInfo AuditLevel = iota
	AuditWarn
	AuditCritical
)

// Audit event names.
const (
	AuditFlagSet         = "flag_set"
	AuditFlagCleared     = "flag_cleared"
	AuditFlagReset       = "flag_reset"
	AuditWriteRejected   = "write_rejected"
	AuditProviderIOError = "provider_io_error"
)

func (al AuditLevel) String() string {
	switch al {
	case AuditInfo:
		return "INFO"
	case AuditWarn:
		return "WARN"
	case AuditCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the level by name.
func (al AuditLevel) MarshalText() ([]byte, error) { return []byte(al.String()), nil }

// UnmarshalText accepts info, warn or critical in any case.
func (al *AuditLevel) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(text))) {
	case "", "INFO":
		*al = AuditInfo
	case "WARN", "WARNING":
		*al = AuditWarn
	case "CRITICAL":
		*al = AuditCritical
	default:
		return errors.New(ErrCodeInvalidAuditConfig, "unknown audit level").
			WithContext("level", string(text))
	}
	return nil
}

// AuditEvent is one recorded flag change.
type AuditEvent struct {
	Timestamp time.Time    `json:"timestamp"`
	Level     AuditLevel   `json:"level"`
	Event     string       `json:"event"`
	Key       string       `json:"key"`
	Provider  string       `json:"provider"`
	OldValue  EncodedValue `json:"old_value"`
	NewValue  EncodedValue `json:"new_value"`
	ProcessID int          `json:"process_id"`
	Checksum  string       `json:"checksum"`
}

// AuditConfig configures the audit trail. OutputFile ending in .db or
// .sqlite selects the SQLite backend; any other path is written as JSONL.
type AuditConfig struct {
	Enabled       bool          `json:"enabled" env:"ENABLED"`
	OutputFile    string        `json:"output_file" env:"OUTPUT_FILE"`
	MinLevel      AuditLevel    `json:"min_level" env:"MIN_LEVEL"`
	BufferSize    int           `json:"buffer_size" env:"BUFFER_SIZE"`
	FlushInterval time.Duration `json:"flush_interval" env:"FLUSH_INTERVAL"`
}

// DefaultAuditConfig returns an enabled configuration writing JSONL to
// vexilla-audit.jsonl in the temp directory.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:       true,
		OutputFile:    defaultAuditPath(),
		MinLevel:      AuditInfo,
		BufferSize:    256,
		FlushInterval: 5 * time.Second,
	}
}

func defaultAuditPath() string {
	return os.TempDir() + string(os.PathSeparator) + "vexilla-audit.jsonl"
}

// WithDefaults fills unset buffer and interval values.
func (c AuditConfig) WithDefaults() AuditConfig {
	if c.BufferSize == 0 {
		c.BufferSize = 256
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = 5 * time.Second
	}
	if c.Enabled && c.OutputFile == "" {
		c.OutputFile = defaultAuditPath()
	}
	return c
}

// Validate checks an enabled configuration.
func (c AuditConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.BufferSize < 0 {
		return errors.New(ErrCodeInvalidBufferSize, "audit buffer size cannot be negative").
			WithContext("buffer_size", c.BufferSize)
	}
	if c.FlushInterval < 0 {
		return errors.New(ErrCodeInvalidFlushInterval, "audit flush interval cannot be negative").
			WithContext("flush_interval", c.FlushInterval.String())
	}
	if strings.TrimSpace(c.OutputFile) == "" {
		return errors.New(ErrCodeInvalidOutputFile, "audit output file is required")
	}
	if c.MinLevel < AuditInfo || c.MinLevel > AuditCritical {
		return errors.New(ErrCodeInvalidAuditConfig, "audit level out of range").
			WithContext("min_level", int(c.MinLevel))
	}
	return nil
}

// AuditLogger buffers audit events and flushes them to a JSONL or SQLite
// backend, on a timer and whenever the buffer fills.
type AuditLogger struct {
	config      AuditConfig
	backend     auditBackend
	buffer      []AuditEvent
	bufferMu    sync.Mutex
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closeOnce   sync.Once
	processID   int
}

// NewAuditLogger validates config and opens its backend.
func NewAuditLogger(config AuditConfig) (*AuditLogger, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	backend, err := createAuditBackend(config)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidAuditConfig, "failed to initialize audit backend").
			WithContext("output_file", config.OutputFile)
	}

	logger := &AuditLogger{
		config:    config,
		backend:   backend,
		buffer:    make([]AuditEvent, 0, config.BufferSize),
		stopCh:    make(chan struct{}),
		processID: os.Getpid(),
	}
	if config.FlushInterval > 0 {
		logger.flushTicker = time.NewTicker(config.FlushInterval)
		go logger.flushLoop()
	}
	return logger, nil
}

// Config returns the effective configuration.
func (al *AuditLogger) Config() AuditConfig { return al.config }

// LogFlagChange records a change of the value stored at key in provider.
func (al *AuditLogger) LogFlagChange(level AuditLevel, event, key, provider string, oldVal, newVal EncodedValue) {
	if al == nil || al.backend == nil || !al.config.Enabled || level < al.config.MinLevel {
		return
	}

	ev := AuditEvent{
		Timestamp: timecache.CachedTime(),
		Level:     level,
		Event:     event,
		Key:       key,
		Provider:  provider,
		OldValue:  oldVal,
		NewValue:  newVal,
		ProcessID: al.processID,
	}
	ev.Checksum = auditChecksum(ev)

	al.bufferMu.Lock()
	al.buffer = append(al.buffer, ev)
	if len(al.buffer) >= al.config.BufferSize {
		_ = al.flushBufferUnsafe() // retried on the next flush
	}
	al.bufferMu.Unlock()
}

// Flush immediately writes all buffered events
func (al *AuditLogger) Flush() error {
	al.bufferMu.Lock()
	defer al.bufferMu.Unlock()
	if err := al.flushBufferUnsafe(); err != nil {
		return err
	}
	return al.backend.Flush()
}

// Close flushes pending events and releases the backend. Safe to call twice.
func (al *AuditLogger) Close() error {
	var err error
	al.closeOnce.Do(func() {
		close(al.stopCh)
		if al.flushTicker != nil {
			al.flushTicker.Stop()
		}
		if ferr := al.Flush(); ferr != nil {
			err = errors.Wrap(ferr, ErrCodeIOError, "failed to flush audit logger during close")
		}
		if cerr := al.backend.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, ErrCodeIOError, "failed to close audit backend")
		}
	})
	return err
}

func (al *AuditLogger) flushLoop() {
	for {
		select {
		case <-al.flushTicker.C:
			_ = al.Flush() // retried on the next tick
		case <-al.stopCh:
			return
		}
	}
}

// flushBufferUnsafe writes the buffer to the backend. Caller holds bufferMu.
func (al *AuditLogger) flushBufferUnsafe() error {
	if len(al.buffer) == 0 {
		return nil
	}
	if err := al.backend.Write(al.buffer); err != nil {
		return errors.Wrap(err, ErrCodeIOError, "failed to write audit events")
	}
	al.buffer = al.buffer[:0]
	return nil
}

// auditChecksum hashes the event content, excluding the checksum itself.
func auditChecksum(ev AuditEvent) string {
	var b strings.Builder
	b.WriteString(ev.Timestamp.UTC().Format(time.RFC3339Nano))
	for _, part := range []string{ev.Level.String(), ev.Event, ev.Key, ev.Provider, ev.OldValue.String(), ev.NewValue.String()} {
		b.WriteByte(':')
		b.WriteString(part)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// VerifyAuditEvent reports whether ev still matches its checksum.
func VerifyAuditEvent(ev AuditEvent) bool {
	return ev.Checksum != "" && ev.Checksum == auditChecksum(ev)
}
