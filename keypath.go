// keypath.go: Immutable lookup keys sent to providers
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DefaultSeparator joins key path segments unless a loader configures another one.
const DefaultSeparator = "/"

// KeyPath is an ordered, immutable list of non-empty segments plus the
// separator used to join them. Derive new paths with DropFirst and WithPrefix.
type KeyPath struct {
	segments  []string
	separator string
}

// NewKeyPath builds a key path, dropping empty segments.
// An empty separator falls back to DefaultSeparator.
func NewKeyPath(separator string, segments ...string) KeyPath {
	if separator == "" {
		separator = DefaultSeparator
	}
	kept := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return KeyPath{segments: kept, separator: separator}
}

// ParseKeyPath splits a full path on separator.
func ParseKeyPath(full, separator string) KeyPath {
	if separator == "" {
		separator = DefaultSeparator
	}
	return NewKeyPath(separator, strings.Split(full, separator)...)
}

// Segments returns a copy of the path segments.
func (k KeyPath) Segments() []string { return append([]string(nil), k.segments...) }

// Separator returns the separator used by FullPath.
func (k KeyPath) Separator() string {
	if k.separator == "" {
		return DefaultSeparator
	}
	return k.separator
}

// Len returns the number of segments.
func (k KeyPath) Len() int { return len(k.segments) }

// IsEmpty reports whether the path has no segments.
func (k KeyPath) IsEmpty() bool { return len(k.segments) == 0 }

// First returns the first segment, or "" for an empty path.
func (k KeyPath) First() string {
	if len(k.segments) == 0 {
		return ""
	}
	return k.segments[0]
}

// Last returns the last segment, or "" for an empty path.
func (k KeyPath) Last() string {
	if len(k.segments) == 0 {
		return ""
	}
	return k.segments[len(k.segments)-1]
}

// FullPath joins the segments with the separator.
func (k KeyPath) FullPath() string { return strings.Join(k.segments, k.Separator()) }

// String implements fmt.Stringer.
func (k KeyPath) String() string { return k.FullPath() }

// DropFirst returns the path without its first segment.
func (k KeyPath) DropFirst() KeyPath {
	if len(k.segments) == 0 {
		return k
	}
	return KeyPath{segments: append([]string(nil), k.segments[1:]...), separator: k.separator}
}

// WithPrefix returns the path with segment inserted at position 0.
func (k KeyPath) WithPrefix(segment string) KeyPath {
	if segment == "" {
		return k
	}
	out := make([]string, 0, len(k.segments)+1)
	out = append(out, segment)
	out = append(out, k.segments...)
	return KeyPath{segments: out, separator: k.separator}
}

// Equal reports structural equality: same segments and same separator.
func (k KeyPath) Equal(o KeyPath) bool {
	if k.Separator() != o.Separator() || len(k.segments) != len(o.segments) {
		return false
	}
	for i := range k.segments {
		if k.segments[i] != o.segments[i] {
			return false
		}
	}
	return true
}

// Hash returns a structural hash consistent with Equal.
func (k KeyPath) Hash() uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(k.Separator())
	for _, s := range k.segments {
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(s)
	}
	return h.Sum64()
}
