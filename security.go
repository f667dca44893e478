// security.go: Path validation for store, fallback and audit files
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"path/filepath"
	"strings"

	"github.com/agilira/go-errors"
)

const (
	maxPathLength = 4096
	maxPathDepth  = 50
)

var traversalPatterns = []string{"..", "%2e%2e", "%252e%252e", "%2f", "%252f", "%5c", "%255c", "%00"}

// systemPrefixes are matched at the start of the path, sensitiveParts anywhere.
var (
	systemPrefixes = []string{"/etc/passwd", "/etc/shadow", "/proc/", "/sys/", "/dev/"}
	sensitiveParts = []string{"windows/system32", "/.ssh/", "/.aws/"}
)

var windowsDevices = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// ValidateStorePath rejects paths a flag store must never be read from or
// written to: parent directory traversal (plain or URL-encoded), system
// files, Windows device names, control characters and very long or deep
// paths. It returns VEXILLA_INSECURE_PATH.
func ValidateStorePath(path string) error {
	if path == "" {
		return errors.New(ErrCodeInsecurePath, "empty path not allowed")
	}
	if len(path) > maxPathLength {
		return insecure(path, "path too long", "")
	}
	if strings.Count(path, "/")+strings.Count(path, "\\") > maxPathDepth {
		return insecure(path, "path too deep", "")
	}

	lower := strings.ToLower(path)
	for _, pattern := range traversalPatterns {
		if strings.Contains(lower, pattern) {
			return insecure(path, "path contains traversal pattern", pattern)
		}
	}
	slashed := strings.ReplaceAll(filepath.ToSlash(lower), "\\", "/")
	for _, prefix := range systemPrefixes {
		if strings.HasPrefix(slashed, prefix) {
			return insecure(path, "system path not allowed", prefix)
		}
	}
	for _, part := range sensitiveParts {
		if strings.Contains(slashed, part) {
			return insecure(path, "system path not allowed", part)
		}
	}

	base := strings.ToUpper(filepath.Base(path))
	if dot := strings.IndexByte(base, '.'); dot != -1 {
		base = base[:dot]
	}
	if _, device := windowsDevices[base]; device {
		return insecure(path, "device name not allowed", "")
	}

	for _, r := range path {
		if r < 32 {
			return insecure(path, "control character in path", "")
		}
	}
	return nil
}

func insecure(path, msg, pattern string) error {
	if pattern == "" {
		return errors.New(ErrCodeInsecurePath, msg).WithContext("path", path)
	}
	return errors.New(ErrCodeInsecurePath, msg).
		WithContext("path", path).
		WithContext("pattern", pattern)
}
