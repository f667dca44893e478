// vexilla_provider_sqlite_test.go: Testing the SQLite flag store
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/agilira/vexilla"
)

type storeFlags []vexilla.Child

func (s storeFlags) Children() []vexilla.Child { return s }

func openTestStore(t *testing.T, options Options) *Provider {
	t.Helper()
	p, err := Open(filepath.Join(t.TempDir(), "flags.db"), options)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestProviderRoundTrip(t *testing.T) {
	p := openTestStore(t, Options{})
	if p.Name() != "flags.db" || !p.IsWritable() {
		t.Errorf("Unexpected identity %s writable=%v", p.Name(), p.IsWritable())
	}

	values := map[string]vexilla.EncodedValue{
		"bool":   vexilla.BoolValue(true),
		"int":    vexilla.IntValue(-42),
		"double": vexilla.DoubleValue(2.5),
		"string": vexilla.StringValue("dark"),
		"bytes":  vexilla.BytesValue([]byte{0, 1, 2}),
		"array":  vexilla.ArrayValue(vexilla.StringValue("a"), vexilla.StringValue("b")),
		"map":    vexilla.MapOf(map[string]vexilla.EncodedValue{"k": vexilla.IntValue(1)}),
		"doc":    vexilla.DocumentValue(vexilla.Document{"n": int64(2), "s": "x"}),
	}
	for name, v := range values {
		key := vexilla.NewKeyPath("/", "kinds", name)
		ok, err := p.Write(key, v)
		if err != nil || !ok {
			t.Fatalf("Failed to write %s: ok=%v err=%v", name, ok, err)
		}
		got, found := p.Read(key)
		if !found {
			t.Fatalf("Expected %s to be stored", name)
		}
		if got.Kind() != v.Kind() || !got.Equal(v) {
			t.Errorf("Round trip of %s changed %s into %s", name, v, got)
		}
	}

	if _, ok := p.Read(vexilla.NewKeyPath("/", "missing")); ok {
		t.Error("Expected miss for unknown key")
	}
	if _, ok := p.Read(vexilla.NewKeyPath("/")); ok {
		t.Error("Expected miss for empty key")
	}
}

func TestProviderOverwriteAndReset(t *testing.T) {
	p := openTestStore(t, Options{})
	key := vexilla.NewKeyPath("/", "ui", "theme")
	_, _ = p.Write(key, vexilla.StringValue("dark"))
	_, _ = p.Write(key, vexilla.StringValue("light"))
	if got, _ := p.Read(key); !got.Equal(vexilla.StringValue("light")) {
		t.Errorf("Expected overwrite, got %s", got)
	}

	if err := p.Reset(key); err != nil {
		t.Fatalf("Failed to reset: %v", err)
	}
	if _, ok := p.Read(key); ok {
		t.Error("Expected reset key to be gone")
	}
	if err := p.Reset(key); err != nil {
		t.Errorf("Resetting a missing key should succeed, got %v", err)
	}

	_, _ = p.Write(key, vexilla.StringValue("dark"))
	if ok, err := p.Write(key, vexilla.Absent()); err != nil || !ok {
		t.Fatalf("Expected Absent write to delete, ok=%v err=%v", ok, err)
	}
	if _, ok := p.Read(key); ok {
		t.Error("Expected Absent write to remove the row")
	}
}

func TestProviderKeys(t *testing.T) {
	p := openTestStore(t, Options{Separator: "."})
	_, _ = p.Write(vexilla.NewKeyPath("/", "b", "x"), vexilla.IntValue(1))
	_, _ = p.Write(vexilla.NewKeyPath("/", "a"), vexilla.IntValue(2))

	keys := p.Keys()
	if len(keys) != 2 {
		t.Fatalf("Expected 2 keys, got %d", len(keys))
	}
	if keys[0].FullPath() != "a" || keys[1].FullPath() != "b.x" {
		t.Errorf("Expected sorted keys joined with the store separator, got %s, %s", keys[0].FullPath(), keys[1].FullPath())
	}
	if _, ok := p.Read(vexilla.NewKeyPath(".", "b", "x")); !ok {
		t.Error("Expected lookup independent of the caller separator")
	}
}

func TestProviderReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.db")
	rw, err := Open(path, Options{Name: "rw"})
	if err != nil {
		t.Fatalf("Failed to open: %v", err)
	}
	key := vexilla.NewKeyPath("/", "retries")
	_, _ = rw.Write(key, vexilla.IntValue(5))
	_ = rw.Close()

	ro, err := Open(path, Options{Name: "ro", ReadOnly: true})
	if err != nil {
		t.Fatalf("Failed to open read-only: %v", err)
	}
	defer ro.Close()
	if ro.IsWritable() {
		t.Error("Expected read-only store")
	}
	if got, ok := ro.Read(key); !ok || !got.Equal(vexilla.IntValue(5)) {
		t.Errorf("Expected stored value, got %s", got)
	}
	if ok, err := ro.Write(key, vexilla.IntValue(6)); ok || !vexilla.HasCode(err, vexilla.ErrCodeProviderReadOnly) {
		t.Errorf("Expected %s, got ok=%v err=%v", vexilla.ErrCodeProviderReadOnly, ok, err)
	}
	if err := ro.Reset(key); !vexilla.HasCode(err, vexilla.ErrCodeProviderReadOnly) {
		t.Errorf("Expected %s on reset, got %v", vexilla.ErrCodeProviderReadOnly, err)
	}
}

func TestProviderClosed(t *testing.T) {
	p, err := Open(filepath.Join(t.TempDir(), "flags.db"), Options{})
	if err != nil {
		t.Fatalf("Failed to open: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Second close should be a no-op, got %v", err)
	}
	key := vexilla.NewKeyPath("/", "a")
	if _, ok := p.Read(key); ok {
		t.Error("Expected closed store to miss")
	}
	if _, err := p.Write(key, vexilla.IntValue(1)); !vexilla.HasCode(err, vexilla.ErrCodeProviderIO) {
		t.Errorf("Expected %s, got %v", vexilla.ErrCodeProviderIO, err)
	}
	if p.Keys() != nil {
		t.Error("Expected no keys from a closed store")
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open("", Options{}); !vexilla.HasCode(err, vexilla.ErrCodeInvalidConfig) {
		t.Errorf("Expected %s, got %v", vexilla.ErrCodeInvalidConfig, err)
	}
	if _, err := Open("../flags.db", Options{}); !vexilla.HasCode(err, vexilla.ErrCodeInsecurePath) {
		t.Errorf("Expected %s, got %v", vexilla.ErrCodeInsecurePath, err)
	}
}

func TestProviderBacksFlags(t *testing.T) {
	store := openTestStore(t, Options{Name: "db"})
	retries := vexilla.Int(3)
	tags := vexilla.StringSlice(nil)
	loader, err := vexilla.NewLoader(storeFlags{
		vexilla.Field("retries", retries),
		vexilla.Field("tags", tags),
	}, vexilla.WithProviders(store))
	if err != nil {
		t.Fatalf("Failed to create loader: %v", err)
	}
	defer loader.Close()

	if retries.Value() != 3 {
		t.Errorf("Expected default, got %d", retries.Value())
	}
	if _, err := retries.Set(7); err != nil {
		t.Fatalf("Failed to set: %v", err)
	}
	if _, err := tags.Set([]string{"beta", "eu"}); err != nil {
		t.Fatalf("Failed to set tags: %v", err)
	}
	r := retries.Resolve()
	if r.Value != 7 || r.Origin != vexilla.OriginProvider || r.Source.Name() != "db" {
		t.Errorf("Expected value from db, got %+v", r)
	}
	if got := tags.Value(); len(got) != 2 || got[1] != "eu" {
		t.Errorf("Unexpected tags %v", got)
	}
	if err := retries.Reset(); err != nil {
		t.Fatalf("Failed to reset: %v", err)
	}
	if retries.Value() != 3 {
		t.Error("Expected default after reset")
	}
}
