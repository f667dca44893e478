// security_test.go: Testing store path validation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateStorePathAccepts(t *testing.T) {
	valid := []string{
		"flags.json",
		"config/flags.yaml",
		filepath.Join(t.TempDir(), "flags.toml"),
		"/home/user/dev/flags.db",
		"/var/lib/app/flags.json",
	}
	for _, path := range valid {
		if err := ValidateStorePath(path); err != nil {
			t.Errorf("Expected %q to be accepted, got %v", path, err)
		}
	}
}

func TestValidateStorePathRejects(t *testing.T) {
	invalid := map[string]string{
		"empty":          "",
		"traversal":      "../flags.json",
		"nested":         "config/../../etc/flags.json",
		"encoded":        "config/%2e%2e/flags.json",
		"double_encoded": "config/%252e%252e/flags.json",
		"encoded_slash":  "config%2fflags.json",
		"null_byte":      "flags.json%00.txt",
		"passwd":         "/etc/passwd",
		"proc":           "/proc/self/environ",
		"ssh":            "/home/user/.ssh/flags.json",
		"system32":       "C:\\Windows\\System32\\flags.json",
		"device":         "CON.json",
		"device_lpt":     "dir/lpt1",
		"control":        "flags\n.json",
		"too_long":       strings.Repeat("a", 5000),
		"too_deep":       strings.Repeat("a/", 60) + "flags.json",
	}
	for name, path := range invalid {
		t.Run(name, func(t *testing.T) {
			if err := ValidateStorePath(path); !HasCode(err, ErrCodeInsecurePath) {
				t.Errorf("Expected %s for %q, got %v", ErrCodeInsecurePath, path, err)
			}
		})
	}
}
