// manager.go: Named loaders sharing one provider stack
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	goerrors "errors"
	"sync"

	"github.com/agilira/go-errors"
)

// Manager owns several loaders, typically one per subsystem, built with a
// common set of options. Holding the Manager keeps every loader, and thus
// every registered flag, resolving through its providers.
type Manager struct {
	mu      sync.RWMutex
	shared  []LoaderOption
	loaders map[string]*Loader
	order   []string
}

// NewManager returns a manager applying opts to every loader it creates.
func NewManager(opts ...LoaderOption) *Manager {
	return &Manager{
		shared:  append([]LoaderOption(nil), opts...),
		loaders: make(map[string]*Loader),
	}
}

// Load registers root under name. Shared options apply first, then opts.
func (m *Manager) Load(name string, root Configurable, opts ...LoaderOption) (*Loader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.loaders[name]; exists {
		return nil, errors.New(ErrCodeLoaderExists, "loader already registered").
			WithContext("name", name)
	}

	all := make([]LoaderOption, 0, len(m.shared)+len(opts)+1)
	all = append(all, m.shared...)
	all = append(all, WithLoaderMetadata(Metadata{Name: name}))
	all = append(all, opts...)
	l, err := NewLoader(root, all...)
	if err != nil {
		return nil, err
	}
	m.loaders[name] = l
	m.order = append(m.order, name)
	return l, nil
}

// Loader returns the loader registered under name.
func (m *Manager) Loader(name string) (*Loader, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.loaders[name]
	return l, ok
}

// Remove unregisters and closes the loader under name. Its flags fall back
// to their defaults once the loader is collected.
func (m *Manager) Remove(name string) error {
	m.mu.Lock()
	l, ok := m.loaders[name]
	if ok {
		delete(m.loaders, name)
		for i, n := range m.order {
			if n == name {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return l.Close()
}

// Names returns loader names in registration order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// Loaders returns the loaders in registration order.
func (m *Manager) Loaders() []*Loader {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Loader, 0, len(m.order))
	for _, n := range m.order {
		out = append(out, m.loaders[n])
	}
	return out
}

// Flag finds the flag registered at fullPath in any loader, searching in
// registration order.
func (m *Manager) Flag(fullPath string) (AnyFlag, bool) {
	for _, l := range m.Loaders() {
		if f, ok := l.Flag(fullPath); ok {
			return f, true
		}
	}
	return nil, false
}

// Close closes every loader and forgets them.
func (m *Manager) Close() error {
	m.mu.Lock()
	loaders := make([]*Loader, 0, len(m.order))
	for _, n := range m.order {
		loaders = append(loaders, m.loaders[n])
	}
	m.loaders = make(map[string]*Loader)
	m.order = nil
	m.mu.Unlock()

	var failures []error
	for _, l := range loaders {
		if err := l.Close(); err != nil {
			failures = append(failures, err)
		}
	}
	return goerrors.Join(failures...)
}
