// manager_test.go: CLI manager construction and helpers
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/agilira/vexilla"
)

// TestNewManager verifies proper initialization of CLI manager.
func TestNewManager(t *testing.T) {
	manager := NewManager()

	if manager == nil {
		t.Fatal("NewManager() returned nil")
	}
	if manager.app == nil {
		t.Fatal("Manager.app not initialized")
	}
	if manager.out == nil || manager.logOut == nil {
		t.Fatal("Manager outputs not initialized")
	}
	if manager.auditLogger != nil {
		t.Error("Manager.auditLogger should be nil by default")
	}
	if manager.context() == nil {
		t.Error("Manager context should default to Background")
	}
}

// TestManagerWithAudit verifies audit logger integration.
func TestManagerWithAudit(t *testing.T) {
	auditLogger, err := vexilla.NewAuditLogger(vexilla.AuditConfig{
		Enabled:       true,
		OutputFile:    filepath.Join(t.TempDir(), "manager_audit.db"),
		MinLevel:      vexilla.AuditInfo,
		BufferSize:    100,
		FlushInterval: time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create audit logger: %v", err)
	}
	defer func() {
		if err := auditLogger.Close(); err != nil {
			t.Logf("Failed to close audit logger: %v", err)
		}
	}()

	manager := NewManager()
	if result := manager.WithAudit(auditLogger); result != manager {
		t.Error("WithAudit should return the same manager")
	}
	if manager.auditLogger != auditLogger {
		t.Error("Audit logger not set")
	}
}

// TestManagerWithOutput verifies that nil writers keep the defaults.
func TestManagerWithOutput(t *testing.T) {
	out := &bytes.Buffer{}
	manager := NewManager().WithOutput(out, nil)
	if manager.out != out {
		t.Error("Output writer not set")
	}
	if manager.logOut == nil {
		t.Error("Log writer should keep its default")
	}
}

// TestRequireArgs tests the argument check used by every handler.
func TestRequireArgs(t *testing.T) {
	if err := requireArgs("get <store> <key>", "a.json", "k"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	err := requireArgs("get <store> <key>", "a.json", "")
	if err == nil {
		t.Fatal("Expected error for empty argument")
	}
	if !vexilla.HasCode(err, vexilla.ErrCodeUserInput) {
		t.Errorf("Expected %s, got %v", vexilla.ErrCodeUserInput, err)
	}
}

// TestNotFound tests the missing key error code.
func TestNotFound(t *testing.T) {
	err := notFound(vexilla.NewKeyPath("/", "ui", "theme"), "flags.json")
	if !vexilla.HasCode(err, ErrCodeKeyNotFound) {
		t.Errorf("Expected %s, got %v", ErrCodeKeyNotFound, err)
	}
}
