// options.go: Declaration options shared by flags and groups
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

// Metadata describes a flag, group or loader for browsing tools.
type Metadata struct {
	// Name is the display name. Empty means the declared field name.
	Name string

	// Description is a short human readable explanation.
	Description string

	// Order sorts siblings in ListChildren; ties keep declaration order.
	Order int

	// Internal marks developer-only nodes a UI may hide.
	Internal bool

	// Locked marks nodes a UI must not let the user change.
	Locked bool

	// Icon is an opaque icon reference for UIs.
	Icon string
}

// Presentation tells a browsing UI how to show a group.
type Presentation uint8

const (
	// PresentAsNavigation shows the group as a link to its own page.
	PresentAsNavigation Presentation = iota
	// PresentAsSection shows the group's children inline under a header.
	PresentAsSection
)

// String returns "navigation" or "section".
func (p Presentation) String() string {
	if p == PresentAsSection {
		return "section"
	}
	return "navigation"
}

// nodeSettings collects what options declare on a flag or group.
type nodeSettings struct {
	meta         Metadata
	policy       KeyPolicy
	fixedKey     string
	excluded     []ProviderType
	presentation Presentation
}

// Option configures a flag or a group at declaration time. Options that only
// make sense for one of them are ignored by the other.
type Option func(*nodeSettings)

func applyOptions(opts []Option) nodeSettings {
	var s nodeSettings
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// DisplayName sets Metadata.Name.
func DisplayName(name string) Option {
	return func(s *nodeSettings) { s.meta.Name = name }
}

// Description sets Metadata.Description.
func Description(text string) Option {
	return func(s *nodeSettings) { s.meta.Description = text }
}

// Order sets Metadata.Order.
func Order(order int) Option {
	return func(s *nodeSettings) { s.meta.Order = order }
}

// Internal marks the node as developer-only.
func Internal() Option {
	return func(s *nodeSettings) { s.meta.Internal = true }
}

// Locked marks the node as not user-editable. SetValue refuses locked flags.
func Locked() Option {
	return func(s *nodeSettings) { s.meta.Locked = true }
}

// Icon sets Metadata.Icon.
func Icon(ref string) Option {
	return func(s *nodeSettings) { s.meta.Icon = ref }
}

// WithMetadata replaces the whole metadata block.
func WithMetadata(meta Metadata) Option {
	return func(s *nodeSettings) { s.meta = meta }
}

// WithPolicy sets how the node's own segment enters key paths.
func WithPolicy(policy KeyPolicy) Option {
	return func(s *nodeSettings) { s.policy = policy }
}

// WithKey gives a flag a fully qualified key that replaces its composed
// path. The loader prefix is not applied to it. Flags only.
func WithKey(key string) Option {
	return func(s *nodeSettings) { s.fixedKey = key }
}

// ExcludeProviders keeps a flag from reading or writing providers of the
// given types, unless a call names those types explicitly. Flags only.
func ExcludeProviders(types ...ProviderType) Option {
	return func(s *nodeSettings) { s.excluded = append(s.excluded, types...) }
}

// AsSection presents a group inline. Groups only.
func AsSection() Option {
	return func(s *nodeSettings) { s.presentation = PresentAsSection }
}

// AsNavigation presents a group as its own page. Groups only.
func AsNavigation() Option {
	return func(s *nodeSettings) { s.presentation = PresentAsNavigation }
}
