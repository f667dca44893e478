// keycase.go: Key composition policies
//
// Each group and flag contributes one segment to its flags' key paths. The
// segment's policy decides whether the declared name is transformed, replaced
// by a fixed string, or left out of the path altogether.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"strings"
	"unicode"

	"github.com/agilira/go-errors"
)

// KeyTransform converts a declared camelCase name into a key segment.
type KeyTransform int

const (
	// TransformSnakeCase turns fooBar into foo_bar. It is the zero value and the loader default.
	TransformSnakeCase KeyTransform = iota
	// TransformKebabCase turns fooBar into foo-bar.
	TransformKebabCase
	// TransformNone keeps the declared name as is.
	TransformNone
)

// String returns the name accepted by ParseKeyTransform.
func (t KeyTransform) String() string {
	switch t {
	case TransformSnakeCase:
		return "snake"
	case TransformKebabCase:
		return "kebab"
	case TransformNone:
		return "none"
	}
	return "unknown"
}

// ParseKeyTransform parses "snake", "kebab" or "none".
func ParseKeyTransform(name string) (KeyTransform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "snake", "snake_case":
		return TransformSnakeCase, nil
	case "kebab", "kebab-case":
		return TransformKebabCase, nil
	case "none", "asis":
		return TransformNone, nil
	}
	return TransformSnakeCase, errors.New(ErrCodeInvalidConfig, "unknown key transform").
		WithContext("transform", name)
}

// Apply transforms name.
func (t KeyTransform) Apply(name string) string {
	switch t {
	case TransformSnakeCase:
		return splitCamel(name, '_')
	case TransformKebabCase:
		return splitCamel(name, '-')
	}
	return name
}

// splitCamel inserts sep between a lowercase letter or digit and a following
// uppercase letter, then lowercases the whole string. HTTPServer stays httpserver.
func splitCamel(name string, sep rune) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	prev := rune(-1)
	for _, r := range name {
		if unicode.IsUpper(r) && prev != -1 && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
			b.WriteRune(sep)
		}
		b.WriteRune(unicode.ToLower(r))
		prev = r
	}
	return b.String()
}

type policyKind uint8

const (
	policyInherit policyKind = iota
	policyTransform
	policySkip
	policyFixed
)

// KeyPolicy decides how a single group or flag segment enters a key path.
// The zero value is Inherit.
type KeyPolicy struct {
	kind      policyKind
	transform KeyTransform
	fixed     string
}

// Inherit uses the loader's default transform.
func Inherit() KeyPolicy { return KeyPolicy{} }

// SnakeCase forces snake_case for this segment.
func SnakeCase() KeyPolicy { return KeyPolicy{kind: policyTransform, transform: TransformSnakeCase} }

// KebabCase forces kebab-case for this segment.
func KebabCase() KeyPolicy { return KeyPolicy{kind: policyTransform, transform: TransformKebabCase} }

// AsIs keeps the declared name untouched.
func AsIs() KeyPolicy { return KeyPolicy{kind: policyTransform, transform: TransformNone} }

// Skip keeps the node in the tree but out of every descendant's path.
func Skip() KeyPolicy { return KeyPolicy{kind: policySkip} }

// FixedSegment replaces the declared name with segment at this level only.
func FixedSegment(segment string) KeyPolicy { return KeyPolicy{kind: policyFixed, fixed: segment} }

// IsSkip reports whether the policy removes its segment.
func (p KeyPolicy) IsSkip() bool { return p.kind == policySkip }

// String describes the policy.
func (p KeyPolicy) String() string {
	switch p.kind {
	case policyTransform:
		return p.transform.String()
	case policySkip:
		return "skip"
	case policyFixed:
		return "fixed(" + p.fixed + ")"
	}
	return "inherit"
}

// segment returns the contribution of name under p, or "" when skipped.
func (p KeyPolicy) segment(name string, fallback KeyTransform) string {
	switch p.kind {
	case policySkip:
		return ""
	case policyFixed:
		return p.fixed
	case policyTransform:
		return p.transform.Apply(name)
	}
	return fallback.Apply(name)
}

// Segment is a declared name together with its policy.
type Segment struct {
	Name   string
	Policy KeyPolicy
}

// KeyConfig holds the loader-wide composition settings.
type KeyConfig struct {
	// Prefix is prepended to every composed path, transformed with Transform.
	Prefix string `env:"PREFIX"`

	// Separator joins segments. Empty means DefaultSeparator.
	Separator string `env:"SEPARATOR"`

	// Transform applies to every segment whose policy is Inherit.
	Transform KeyTransform `env:"TRANSFORM"`
}

// WithDefaults fills unset fields.
func (c KeyConfig) WithDefaults() KeyConfig {
	if c.Separator == "" {
		c.Separator = DefaultSeparator
	}
	return c
}

// UnmarshalText lets env and flag parsers accept transform names.
func (t *KeyTransform) UnmarshalText(text []byte) error {
	parsed, err := ParseKeyTransform(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// composeKeyPath builds the path of a node from its ancestors and its own
// segment. A non-empty fixedKey replaces the whole path and never receives
// the global prefix.
func composeKeyPath(ancestors []Segment, leaf Segment, fixedKey string, keys KeyConfig) KeyPath {
	keys = keys.WithDefaults()
	if fixedKey != "" {
		return NewKeyPath(keys.Separator, fixedKey)
	}
	parts := make([]string, 0, len(ancestors)+2)
	if keys.Prefix != "" {
		parts = append(parts, keys.Transform.Apply(keys.Prefix))
	}
	for _, seg := range ancestors {
		parts = append(parts, seg.Policy.segment(seg.Name, keys.Transform))
	}
	parts = append(parts, leaf.Policy.segment(leaf.Name, keys.Transform))
	return NewKeyPath(keys.Separator, parts...)
}
