// config_test.go: Testing environment configuration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"testing"
	"time"
)

func TestLoadConfigFromMap(t *testing.T) {
	cfg, err := LoadConfigFromMap(map[string]string{
		"VEXILLA_KEY_PREFIX":           "myApp",
		"VEXILLA_KEY_SEPARATOR":        ".",
		"VEXILLA_KEY_TRANSFORM":        "kebab",
		"VEXILLA_AUDIT_ENABLED":        "true",
		"VEXILLA_AUDIT_OUTPUT_FILE":    "/tmp/vexilla-test-audit.db",
		"VEXILLA_AUDIT_MIN_LEVEL":      "warn",
		"VEXILLA_AUDIT_BUFFER_SIZE":    "16",
		"VEXILLA_AUDIT_FLUSH_INTERVAL": "250ms",
	})
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Keys.Prefix != "myApp" || cfg.Keys.Separator != "." || cfg.Keys.Transform != TransformKebabCase {
		t.Errorf("Unexpected key config %+v", cfg.Keys)
	}
	a := cfg.Audit
	if !a.Enabled || a.OutputFile != "/tmp/vexilla-test-audit.db" || a.MinLevel != AuditWarn {
		t.Errorf("Unexpected audit config %+v", a)
	}
	if a.BufferSize != 16 || a.FlushInterval != 250*time.Millisecond {
		t.Errorf("Unexpected buffering %d / %v", a.BufferSize, a.FlushInterval)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfigFromMap(map[string]string{})
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Keys.Separator != DefaultSeparator || cfg.Keys.Transform != TransformSnakeCase {
		t.Errorf("Unexpected defaults %+v", cfg.Keys)
	}
	if cfg.Audit.Enabled {
		t.Error("Audit must be disabled by default")
	}

	enabled, err := LoadConfigFromMap(map[string]string{"VEXILLA_AUDIT_ENABLED": "1"})
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if enabled.Audit.OutputFile == "" || enabled.Audit.BufferSize != 256 || enabled.Audit.FlushInterval != 5*time.Second {
		t.Errorf("Expected audit defaults, got %+v", enabled.Audit)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"transform":   {"VEXILLA_KEY_TRANSFORM": "camel"},
		"level":       {"VEXILLA_AUDIT_MIN_LEVEL": "loud"},
		"interval":    {"VEXILLA_AUDIT_FLUSH_INTERVAL": "often"},
		"buffer_size": {"VEXILLA_AUDIT_ENABLED": "true", "VEXILLA_AUDIT_BUFFER_SIZE": "-1"},
		"separator":   {"VEXILLA_KEY_SEPARATOR": " "},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfigFromMap(vars); err == nil {
				t.Errorf("Expected %v to be rejected", vars)
			}
		})
	}
}

func TestConfigValidateCodes(t *testing.T) {
	cfg := &Config{Audit: AuditConfig{Enabled: true, OutputFile: "a.jsonl", BufferSize: -1}}
	if err := cfg.Validate(); !HasCode(err, ErrCodeInvalidBufferSize) {
		t.Errorf("Expected %s, got %v", ErrCodeInvalidBufferSize, err)
	}
	cfg.Audit.BufferSize = 1
	cfg.Audit.OutputFile = " "
	if err := cfg.Validate(); !HasCode(err, ErrCodeInvalidOutputFile) {
		t.Errorf("Expected %s, got %v", ErrCodeInvalidOutputFile, err)
	}
	cfg.Audit.OutputFile = "a.jsonl"
	cfg.Audit.MinLevel = AuditLevel(9)
	if err := cfg.Validate(); !HasCode(err, ErrCodeInvalidAuditConfig) {
		t.Errorf("Expected %s, got %v", ErrCodeInvalidAuditConfig, err)
	}
	disabled := &Config{Audit: AuditConfig{BufferSize: -1}}
	if err := disabled.Validate(); err != nil {
		t.Errorf("Disabled audit must not be validated, got %v", err)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("VEXILLA_KEY_PREFIX", "fromEnv")
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Keys.Prefix != "fromEnv" {
		t.Errorf("Expected prefix from the environment, got %q", cfg.Keys.Prefix)
	}
}
