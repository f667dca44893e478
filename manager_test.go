// manager_test.go: Testing named loaders
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import "testing"

func TestManagerLoad(t *testing.T) {
	mem := NewMemoryProvider("shared")
	m := NewManager(WithProviders(mem))
	defer m.Close()

	ui := newAppFlags()
	l, err := m.Load("ui", ui, WithPrefix("ui_app"))
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if l.Metadata().Name != "ui" {
		t.Errorf("Expected loader named after its registration, got %s", l.Metadata().Name)
	}
	if got := ui.Retries.KeyPath().FullPath(); got != "ui_app/retries" {
		t.Errorf("Expected per-loader prefix, got %s", got)
	}

	billing := newAppFlags()
	if _, err := m.Load("billing", billing); err != nil {
		t.Fatalf("Failed to load billing: %v", err)
	}
	if _, err := m.Load("ui", newAppFlags()); !HasCode(err, ErrCodeLoaderExists) {
		t.Errorf("Expected %s, got %v", ErrCodeLoaderExists, err)
	}

	names := m.Names()
	if len(names) != 2 || names[0] != "ui" || names[1] != "billing" {
		t.Errorf("Unexpected names %v", names)
	}
	if got, ok := m.Loader("billing"); !ok || got.Root() != Configurable(billing) {
		t.Error("Expected billing loader lookup")
	}

	_, _ = billing.Retries.Set(9)
	if ui.Retries.Value() != 3 {
		t.Error("Prefixed loader must not see unprefixed values")
	}
	if stored, ok := mem.Read(NewKeyPath("/", "retries")); !ok || !stored.Equal(IntValue(9)) {
		t.Errorf("Expected shared provider to hold the value, got %s", stored)
	}
}

func TestManagerFlagLookup(t *testing.T) {
	m := NewManager()
	defer m.Close()
	first := newAppFlags()
	second := newAppFlags()
	_, _ = m.Load("first", first)
	_, _ = m.Load("second", second, WithPrefix("two"))

	f, ok := m.Flag("two/ui/theme")
	if !ok || f != AnyFlag(second.UI.Theme) {
		t.Error("Expected lookup across loaders")
	}
	f, ok = m.Flag("ui/theme")
	if !ok || f != AnyFlag(first.UI.Theme) {
		t.Error("Expected first loader to answer first")
	}
	if _, ok := m.Flag("nope"); ok {
		t.Error("Expected missing flag lookup to fail")
	}
}

func TestManagerRemove(t *testing.T) {
	m := NewManager()
	flags := newAppFlags()
	if _, err := m.Load("app", flags); err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if err := m.Remove("app"); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}
	if _, ok := m.Loader("app"); ok {
		t.Error("Expected removed loader to be gone")
	}
	if len(m.Loaders()) != 0 {
		t.Error("Expected no loaders after remove")
	}
	if err := m.Remove("app"); err != nil {
		t.Errorf("Removing twice should be a no-op, got %v", err)
	}
	if _, err := m.Load("app", newAppFlags()); err != nil {
		t.Errorf("Expected name to be reusable, got %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Failed to close: %v", err)
	}
	if len(m.Names()) != 0 {
		t.Error("Expected Close to forget loaders")
	}
}

func TestManagerInvalidTree(t *testing.T) {
	m := NewManager()
	if _, err := m.Load("bad", nil); !HasCode(err, ErrCodeInvalidTree) {
		t.Errorf("Expected %s, got %v", ErrCodeInvalidTree, err)
	}
	if len(m.Names()) != 0 {
		t.Error("A failed load must not be registered")
	}
}
