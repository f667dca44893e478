// cli_integration_test.go: End-to-end tests running CLI commands on real stores
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agilira/vexilla"
)

// CLITestFixture provides an isolated environment for CLI tests.
type CLITestFixture struct {
	t       *testing.T
	tempDir string
	manager *Manager
	out     *bytes.Buffer
	logs    *bytes.Buffer
}

// NewCLITestFixture creates a manager writing into buffers.
func NewCLITestFixture(t *testing.T) *CLITestFixture {
	t.Helper()

	out := &bytes.Buffer{}
	logs := &bytes.Buffer{}
	return &CLITestFixture{
		t:       t,
		tempDir: t.TempDir(),
		manager: NewManager().WithOutput(out, logs),
		out:     out,
		logs:    logs,
	}
}

// RunCLI executes a command and returns its trimmed output.
func (f *CLITestFixture) RunCLI(args ...string) (string, error) {
	f.t.Helper()
	f.out.Reset()
	f.logs.Reset()
	err := f.manager.Run(args)
	return strings.TrimSpace(f.out.String()), err
}

// Path returns name inside the fixture directory.
func (f *CLITestFixture) Path(name string) string {
	return filepath.Join(f.tempDir, name)
}

// CreateStore writes content to name and returns its path.
func (f *CLITestFixture) CreateStore(name, content string) string {
	f.t.Helper()
	path := f.Path(name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		f.t.Fatalf("Failed to create store: %v", err)
	}
	return path
}

// AssertFileContains verifies the file at path contains expected.
func (f *CLITestFixture) AssertFileContains(path, expected string) {
	f.t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		f.t.Fatalf("Failed to read store: %v", err)
	}
	if !strings.Contains(string(content), expected) {
		f.t.Errorf("File %s should contain %q. Actual content:\n%s", path, expected, content)
	}
}

// TestCLI_SetGet tests set followed by get on every store backend.
func TestCLI_SetGet(t *testing.T) {
	stores := []string{"flags.json", "flags.yaml", "flags.toml", "flags.db"}
	for _, name := range stores {
		t.Run(name, func(t *testing.T) {
			fixture := NewCLITestFixture(t)
			path := fixture.Path(name)

			if _, err := fixture.RunCLI("set", path, "ui/dark_mode", "true", "--type", "bool"); err != nil {
				t.Fatalf("Failed to set value: %v", err)
			}
			if _, err := fixture.RunCLI("set", path, "limits/max_items", "42", "--type", "int"); err != nil {
				t.Fatalf("Failed to set value: %v", err)
			}

			output, err := fixture.RunCLI("get", path, "ui/dark_mode")
			if err != nil {
				t.Fatalf("Failed to get value: %v", err)
			}
			if output != "true" {
				t.Errorf("Expected 'true', got %q", output)
			}

			output, err = fixture.RunCLI("get", path, "limits/max_items")
			if err != nil {
				t.Fatalf("Failed to get value: %v", err)
			}
			if output != "42" {
				t.Errorf("Expected '42', got %q", output)
			}
		})
	}
}

// TestCLI_SetAutoType tests kind inference when --type is omitted.
func TestCLI_SetAutoType(t *testing.T) {
	fixture := NewCLITestFixture(t)
	path := fixture.Path("flags.json")

	output, err := fixture.RunCLI("set", path, "ui/theme", "dark")
	if err != nil {
		t.Fatalf("Failed to set value: %v", err)
	}
	if !strings.Contains(output, "Set ui/theme = dark") {
		t.Errorf("Unexpected output: %q", output)
	}
	if _, err := fixture.RunCLI("set", path, "ui/ratio", "0.5"); err != nil {
		t.Fatalf("Failed to set value: %v", err)
	}

	fixture.AssertFileContains(path, `"theme": "dark"`)
	fixture.AssertFileContains(path, `"ratio": 0.5`)
}

// TestCLI_SetInvalidInput tests that unconvertible values are rejected.
func TestCLI_SetInvalidInput(t *testing.T) {
	fixture := NewCLITestFixture(t)
	path := fixture.Path("flags.json")

	if _, err := fixture.RunCLI("set", path, "limits/max", "lots", "--type", "int"); err == nil {
		t.Error("Expected error for non-integer input")
	}
	if _, err := fixture.RunCLI("set", path, "limits/max", "1", "--type", "uuid"); err == nil {
		t.Error("Expected error for unknown type")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Rejected input should not create the store")
	}
}

// TestCLI_Separator tests custom key separators.
func TestCLI_Separator(t *testing.T) {
	fixture := NewCLITestFixture(t)
	path := fixture.Path("flags.json")

	if _, err := fixture.RunCLI("set", path, "ui.theme", "dark", "--separator", "."); err != nil {
		t.Fatalf("Failed to set value: %v", err)
	}

	output, err := fixture.RunCLI("get", path, "ui/theme")
	if err != nil {
		t.Fatalf("Failed to get value: %v", err)
	}
	if output != "dark" {
		t.Errorf("Expected 'dark', got %q", output)
	}
}

// TestCLI_Delete tests key removal and missing keys.
func TestCLI_Delete(t *testing.T) {
	fixture := NewCLITestFixture(t)
	path := fixture.CreateStore("flags.json", `{"ui": {"dark_mode": true, "theme": "light"}}`)

	if _, err := fixture.RunCLI("delete", path, "ui/dark_mode"); err != nil {
		t.Fatalf("Failed to delete key: %v", err)
	}
	if _, err := fixture.RunCLI("get", path, "ui/dark_mode"); err == nil {
		t.Error("Deleted key should not be readable")
	}
	if _, err := fixture.RunCLI("delete", path, "ui/dark_mode"); err == nil {
		t.Error("Deleting a missing key should fail")
	}

	output, err := fixture.RunCLI("get", path, "ui/theme")
	if err != nil {
		t.Fatalf("Sibling key should survive: %v", err)
	}
	if output != "light" {
		t.Errorf("Expected 'light', got %q", output)
	}
}

// TestCLI_List tests listing with and without a prefix.
func TestCLI_List(t *testing.T) {
	fixture := NewCLITestFixture(t)
	path := fixture.CreateStore("flags.yaml", "ui:\n  dark_mode: true\n  theme: dark\nlimits:\n  max: 10\n")

	output, err := fixture.RunCLI("list", path)
	if err != nil {
		t.Fatalf("Failed to list keys: %v", err)
	}
	for _, expected := range []string{"ui/dark_mode = true", "ui/theme = dark", "limits/max = 10"} {
		if !strings.Contains(output, expected) {
			t.Errorf("List output should contain %q:\n%s", expected, output)
		}
	}

	output, err = fixture.RunCLI("list", path, "--prefix", "ui/")
	if err != nil {
		t.Fatalf("Failed to list keys: %v", err)
	}
	if strings.Contains(output, "limits/max") {
		t.Errorf("Prefix filter should hide limits/max:\n%s", output)
	}

	output, err = fixture.RunCLI("list", path, "--prefix", "nothing")
	if err != nil {
		t.Fatalf("Failed to list keys: %v", err)
	}
	if !strings.Contains(output, "No keys found") {
		t.Errorf("Expected empty listing message, got %q", output)
	}
}

// TestCLI_Convert tests copying between formats and backends.
func TestCLI_Convert(t *testing.T) {
	fixture := NewCLITestFixture(t)
	src := fixture.CreateStore("source.json", `{"app": {"name": "shop", "workers": 4}, "beta": false}`)

	t.Run("json_to_toml", func(t *testing.T) {
		dst := fixture.Path("out.toml")
		output, err := fixture.RunCLI("convert", src, dst)
		if err != nil {
			t.Fatalf("Failed to convert: %v", err)
		}
		if !strings.Contains(output, "Converted 3 values") {
			t.Errorf("Unexpected output: %q", output)
		}
		fixture.AssertFileContains(dst, "shop")
	})

	t.Run("json_to_sqlite", func(t *testing.T) {
		dst := fixture.Path("out.db")
		if _, err := fixture.RunCLI("convert", src, dst); err != nil {
			t.Fatalf("Failed to convert: %v", err)
		}
		output, err := fixture.RunCLI("get", dst, "app/workers")
		if err != nil {
			t.Fatalf("Failed to read converted value: %v", err)
		}
		if output != "4" {
			t.Errorf("Expected '4', got %q", output)
		}
	})

	t.Run("same_store", func(t *testing.T) {
		if _, err := fixture.RunCLI("convert", src, src); err == nil {
			t.Error("Converting a store onto itself should fail")
		}
	})

	t.Run("missing_source", func(t *testing.T) {
		if _, err := fixture.RunCLI("convert", fixture.Path("missing.json"), fixture.Path("x.yaml")); err == nil {
			t.Error("Missing source should fail")
		}
	})
}

// TestCLI_AuditTail tests that changes are audited and printed back.
func TestCLI_AuditTail(t *testing.T) {
	fixture := NewCLITestFixture(t)
	trail := fixture.Path("audit.jsonl")

	auditLogger, err := vexilla.NewAuditLogger(vexilla.AuditConfig{
		Enabled:       true,
		OutputFile:    trail,
		MinLevel:      vexilla.AuditInfo,
		BufferSize:    10,
		FlushInterval: time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create audit logger: %v", err)
	}
	defer func() { _ = auditLogger.Close() }()
	fixture.manager.WithAudit(auditLogger)

	path := fixture.Path("flags.json")
	if _, err := fixture.RunCLI("set", path, "ui/theme", "dark"); err != nil {
		t.Fatalf("Failed to set value: %v", err)
	}
	if _, err := fixture.RunCLI("delete", path, "ui/theme"); err != nil {
		t.Fatalf("Failed to delete value: %v", err)
	}

	output, err := fixture.RunCLI("audit", "tail", trail)
	if err != nil {
		t.Fatalf("Failed to tail audit trail: %v", err)
	}
	if !strings.Contains(output, vexilla.AuditFlagSet) || !strings.Contains(output, vexilla.AuditFlagCleared) {
		t.Errorf("Audit output should list both events:\n%s", output)
	}
	if strings.Contains(output, "checksum mismatch") {
		t.Errorf("Fresh events should verify:\n%s", output)
	}

	output, err = fixture.RunCLI("audit", "tail", trail, "--limit", "1")
	if err != nil {
		t.Fatalf("Failed to tail audit trail: %v", err)
	}
	if lines := strings.Split(output, "\n"); len(lines) != 1 {
		t.Errorf("Expected 1 line with --limit 1, got %d:\n%s", len(lines), output)
	}
}

// TestCLI_Watch tests that external edits are reported until the context ends.
func TestCLI_Watch(t *testing.T) {
	fixture := NewCLITestFixture(t)
	path := fixture.CreateStore("flags.json", `{"feature": "off"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
	defer cancel()
	fixture.manager.ctx = ctx

	go func() {
		time.Sleep(150 * time.Millisecond)
		_ = os.WriteFile(path, []byte(`{"feature": "on", "extra": 1}`), 0644)
	}()

	output, err := fixture.RunCLI("watch", path, "--interval", "20ms")
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if !strings.Contains(output, "Changed feature = on") {
		t.Errorf("Watch should report the change:\n%s", output)
	}
}

// TestCLI_ErrorCases tests argument and store validation.
func TestCLI_ErrorCases(t *testing.T) {
	fixture := NewCLITestFixture(t)

	tests := []struct {
		name string
		args []string
	}{
		{"get_missing_args", []string{"get"}},
		{"get_missing_key", []string{"get", fixture.Path("flags.json"), "absent/key"}},
		{"unsupported_extension", []string{"list", fixture.Path("flags.ini")}},
		{"watch_bad_interval", []string{"watch", fixture.Path("flags.json"), "--interval", "soon"}},
		{"watch_sqlite", []string{"watch", fixture.Path("flags.db")}},
		{"audit_missing_trail", []string{"audit", "tail"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fixture.RunCLI(tt.args...); err == nil {
				t.Errorf("Expected error for %v", tt.args)
			}
		})
	}
}
