// keypath_test.go: Testing key paths and key composition
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import "testing"

func TestNewKeyPathDropsEmptySegments(t *testing.T) {
	k := NewKeyPath("", "ui", "", "dark_mode")
	if k.Len() != 2 {
		t.Fatalf("Expected 2 segments, got %d", k.Len())
	}
	if k.FullPath() != "ui/dark_mode" {
		t.Errorf("Expected ui/dark_mode, got %s", k.FullPath())
	}
	if k.Separator() != DefaultSeparator {
		t.Errorf("Expected default separator, got %q", k.Separator())
	}
	if !NewKeyPath(".").IsEmpty() {
		t.Error("Expected empty path")
	}
}

func TestParseKeyPath(t *testing.T) {
	k := ParseKeyPath("app.ui.theme", ".")
	if k.First() != "app" || k.Last() != "theme" || k.Len() != 3 {
		t.Errorf("Unexpected segments %v", k.Segments())
	}
	if ParseKeyPath("/a//b/", "").FullPath() != "a/b" {
		t.Errorf("Expected leading, trailing and doubled separators to be dropped")
	}
}

func TestKeyPathDerivation(t *testing.T) {
	k := NewKeyPath(".", "ui", "theme")
	dropped := k.DropFirst()
	if dropped.FullPath() != "theme" || dropped.Separator() != "." {
		t.Errorf("DropFirst: got %s with %q", dropped.FullPath(), dropped.Separator())
	}
	if k.FullPath() != "ui.theme" {
		t.Error("DropFirst must not modify the receiver")
	}
	prefixed := k.WithPrefix("app")
	if prefixed.FullPath() != "app.ui.theme" {
		t.Errorf("WithPrefix: got %s", prefixed.FullPath())
	}
	if k.WithPrefix("").FullPath() != "ui.theme" {
		t.Error("WithPrefix with an empty segment should be a no-op")
	}
	if !NewKeyPath("/").DropFirst().IsEmpty() {
		t.Error("DropFirst on an empty path should stay empty")
	}

	segments := k.Segments()
	segments[0] = "changed"
	if k.First() != "ui" {
		t.Error("Segments must return a copy")
	}
}

func TestKeyPathEqualAndHash(t *testing.T) {
	a := NewKeyPath("/", "ui", "theme")
	b := ParseKeyPath("ui/theme", "/")
	c := NewKeyPath(".", "ui", "theme")

	if !a.Equal(b) || a.Hash() != b.Hash() {
		t.Error("Structurally equal paths must be equal with the same hash")
	}
	if a.Equal(c) {
		t.Error("Paths with different separators must differ")
	}
	if a.Hash() == c.Hash() {
		t.Error("Expected hashes to differ for different separators")
	}
	if NewKeyPath("/", "ab", "c").Equal(NewKeyPath("/", "a", "bc")) {
		t.Error("Segment boundaries must matter")
	}
	if NewKeyPath("/", "ab", "c").Hash() == NewKeyPath("/", "a", "bc").Hash() {
		t.Error("Expected hashes to respect segment boundaries")
	}
}

func TestSplitCamel(t *testing.T) {
	cases := map[string]string{
		"darkMode":      "dark_mode",
		"DarkMode":      "dark_mode",
		"HTTPServer":    "httpserver",
		"retry2Backoff": "retry2_backoff",
		"already_snake": "already_snake",
		"":              "",
	}
	for in, want := range cases {
		if got := splitCamel(in, '_'); got != want {
			t.Errorf("splitCamel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKeyTransform(t *testing.T) {
	if got := TransformKebabCase.Apply("maxRetries"); got != "max-retries" {
		t.Errorf("Expected max-retries, got %s", got)
	}
	if got := TransformNone.Apply("maxRetries"); got != "maxRetries" {
		t.Errorf("Expected maxRetries, got %s", got)
	}
	for _, tr := range []KeyTransform{TransformSnakeCase, TransformKebabCase, TransformNone} {
		parsed, err := ParseKeyTransform(tr.String())
		if err != nil || parsed != tr {
			t.Errorf("ParseKeyTransform(%q) = %v, %v", tr.String(), parsed, err)
		}
	}
	if _, err := ParseKeyTransform("camel"); !HasCode(err, ErrCodeInvalidConfig) {
		t.Errorf("Expected %s, got %v", ErrCodeInvalidConfig, err)
	}

	var tr KeyTransform
	if err := tr.UnmarshalText([]byte("kebab")); err != nil || tr != TransformKebabCase {
		t.Errorf("UnmarshalText: got %v, %v", tr, err)
	}
}

func TestKeyPolicyString(t *testing.T) {
	cases := map[string]KeyPolicy{
		"inherit":      Inherit(),
		"snake":        SnakeCase(),
		"kebab":        KebabCase(),
		"none":         AsIs(),
		"skip":         Skip(),
		"fixed(theme)": FixedSegment("theme"),
	}
	for want, p := range cases {
		if got := p.String(); got != want {
			t.Errorf("Expected %s, got %s", want, got)
		}
	}
	if !Skip().IsSkip() || Inherit().IsSkip() {
		t.Error("IsSkip mismatch")
	}
}

func TestComposeKeyPath(t *testing.T) {
	ancestors := []Segment{
		{Name: "userInterface", Policy: Inherit()},
		{Name: "advanced", Policy: Skip()},
		{Name: "colorScheme", Policy: KebabCase()},
	}
	cases := []struct {
		name     string
		leaf     Segment
		fixedKey string
		keys     KeyConfig
		expected string
	}{
		{
			name:     "default",
			leaf:     Segment{Name: "darkMode"},
			expected: "user_interface/color-scheme/dark_mode",
		},
		{
			name:     "prefix",
			leaf:     Segment{Name: "darkMode"},
			keys:     KeyConfig{Prefix: "myApp"},
			expected: "my_app/user_interface/color-scheme/dark_mode",
		},
		{
			name:     "separator_and_transform",
			leaf:     Segment{Name: "darkMode"},
			keys:     KeyConfig{Separator: ".", Transform: TransformNone},
			expected: "userInterface.color-scheme.darkMode",
		},
		{
			name:     "fixed_segment",
			leaf:     Segment{Name: "darkMode", Policy: FixedSegment("DM")},
			expected: "user_interface/color-scheme/DM",
		},
		{
			name:     "fixed_key_ignores_prefix",
			leaf:     Segment{Name: "darkMode"},
			fixedKey: "legacy.dark",
			keys:     KeyConfig{Prefix: "app"},
			expected: "legacy.dark",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := composeKeyPath(ancestors, tc.leaf, tc.fixedKey, tc.keys)
			if got.FullPath() != tc.expected {
				t.Errorf("Expected %s, got %s", tc.expected, got.FullPath())
			}
		})
	}
}

// TestComposeKeyPathSkippedLeaf tests that a skipped flag lands on its
// parent's path.
func TestComposeKeyPathSkippedLeaf(t *testing.T) {
	got := composeKeyPath([]Segment{{Name: "ui"}}, Segment{Name: "enabled", Policy: Skip()}, "", KeyConfig{})
	if got.FullPath() != "ui" {
		t.Errorf("Expected ui, got %s", got.FullPath())
	}
}
