// provider_env.go: Read-only provider backed by environment variables
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"os"
	"strings"
)

// EnvProvider reads flag values from environment variables. The key path
// ui/dark_mode with prefix APP maps to APP_UI_DARK_MODE: segments are
// uppercased and every character outside [A-Z0-9] becomes an underscore.
// Values are always strings; codecs convert them.
type EnvProvider struct {
	name   string
	prefix string
	lookup func(string) (string, bool)
}

// NewEnvProvider returns a provider reading variables under prefix, which
// may be empty. The name defaults to "env".
func NewEnvProvider(name, prefix string) *EnvProvider {
	if name == "" {
		name = "env"
	}
	return &EnvProvider{name: name, prefix: prefix, lookup: os.LookupEnv}
}

// WithLookup replaces os.LookupEnv, for embedding environments and tests.
func (e *EnvProvider) WithLookup(lookup func(string) (string, bool)) *EnvProvider {
	if lookup != nil {
		e.lookup = lookup
	}
	return e
}

// Name returns the provider name.
func (e *EnvProvider) Name() string { return e.name }

// IsWritable is always false.
func (e *EnvProvider) IsWritable() bool { return false }

// VariableName returns the variable consulted for key.
func (e *EnvProvider) VariableName(key KeyPath) string {
	parts := make([]string, 0, key.Len()+1)
	if e.prefix != "" {
		parts = append(parts, envSegment(e.prefix))
	}
	for _, seg := range key.Segments() {
		parts = append(parts, envSegment(seg))
	}
	return strings.Join(parts, "_")
}

// Read returns the variable's value as a string.
func (e *EnvProvider) Read(key KeyPath) (EncodedValue, bool) {
	if key.IsEmpty() {
		return EncodedValue{}, false
	}
	v, ok := e.lookup(e.VariableName(key))
	if !ok {
		return EncodedValue{}, false
	}
	return StringValue(v), true
}

// Write refuses every value.
func (e *EnvProvider) Write(KeyPath, EncodedValue) (bool, error) {
	return false, ReadOnlyError(e.name)
}

// Reset refuses to modify the environment.
func (e *EnvProvider) Reset(KeyPath) error { return ReadOnlyError(e.name) }

func envSegment(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
