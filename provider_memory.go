// provider_memory.go: Ephemeral in-memory provider
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import "sync"

// MemoryProvider keeps values in a nested map for the lifetime of the process.
// It is typically placed first in the provider list to hold runtime overrides.
//
// Thread safety: safe for concurrent use.
type MemoryProvider struct {
	name      string
	separator string
	mu        sync.RWMutex
	data      map[string]interface{}
}

// MemoryOption configures a MemoryProvider.
type MemoryOption func(*MemoryProvider)

// WithMemorySeparator sets the separator used by Keys. Default: "/".
func WithMemorySeparator(separator string) MemoryOption {
	return func(m *MemoryProvider) {
		if separator != "" {
			m.separator = separator
		}
	}
}

// NewMemoryProvider creates an empty provider.
func NewMemoryProvider(name string, opts ...MemoryOption) *MemoryProvider {
	if name == "" {
		name = "memory"
	}
	m := &MemoryProvider{name: name, separator: DefaultSeparator, data: make(map[string]interface{})}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name implements Provider.
func (m *MemoryProvider) Name() string { return m.name }

// IsWritable implements Provider.
func (m *MemoryProvider) IsWritable() bool { return true }

// Read implements Provider.
func (m *MemoryProvider) Read(key KeyPath) (EncodedValue, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := GetNested(m.data, key.segments)
	if !ok {
		return EncodedValue{}, false
	}
	ev, ok := raw.(EncodedValue)
	return ev, ok
}

// Write implements Provider. Values are kept as EncodedValue so every kind
// survives unchanged.
func (m *MemoryProvider) Write(key KeyPath, value EncodedValue) (bool, error) {
	if key.IsEmpty() {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if value.IsAbsent() {
		DeleteNested(m.data, key.segments)
		return true, nil
	}
	SetNested(m.data, key.segments, value)
	return true, nil
}

// Reset implements Provider.
func (m *MemoryProvider) Reset(key KeyPath) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	DeleteNested(m.data, key.segments)
	return nil
}

// Keys implements KeyLister, joining segments with the configured separator.
func (m *MemoryProvider) Keys() []KeyPath {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return CollectKeys(m.data, m.separator)
}

// Clear drops every stored value.
func (m *MemoryProvider) Clear() {
	m.mu.Lock()
	m.data = make(map[string]interface{})
	m.mu.Unlock()
}
