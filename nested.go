// nested.go: Nested map storage shared by map-backed providers
//
// Multi-segment key paths are stored as nested maps, one level per segment,
// with the last segment holding the leaf value. Storing below an existing
// leaf replaces that leaf with a map.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"fmt"
	"hash"
	"reflect"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// GetNested returns the leaf stored at segments.
//
// Complexity: O(depth), typically 2-4 levels
func GetNested(m map[string]interface{}, segments []string) (interface{}, bool) {
	if len(segments) == 0 {
		return nil, false
	}
	current := m
	for i, seg := range segments {
		value, exists := current[seg]
		if !exists {
			return nil, false
		}
		if i == len(segments)-1 {
			return value, true
		}
		next, ok := asStringMap(value)
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

// SetNested stores value at segments, creating intermediate maps as needed.
func SetNested(m map[string]interface{}, segments []string, value interface{}) {
	if len(segments) == 0 {
		return
	}
	current := m
	for _, seg := range segments[:len(segments)-1] {
		next, ok := asStringMap(current[seg])
		if !ok {
			next = make(map[string]interface{})
			current[seg] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}

// DeleteNested removes the leaf at segments and prunes parents left empty.
// It reports whether a leaf was removed.
func DeleteNested(m map[string]interface{}, segments []string) bool {
	if len(segments) == 0 {
		return false
	}
	head := segments[0]
	if len(segments) == 1 {
		if _, exists := m[head]; !exists {
			return false
		}
		delete(m, head)
		return true
	}
	next, ok := asStringMap(m[head])
	if !ok {
		return false
	}
	removed := DeleteNested(next, segments[1:])
	if removed && len(next) == 0 {
		delete(m, head)
	}
	return removed
}

// CollectKeys returns the key path of every leaf in m, sorted by full path.
//
// Nested maps are descended, so a map-valued flag (StringMap, Document, or a
// JSON object decoded as a map) lists each of its entries as a separate key.
// The persisted layout carries no marker that tells such a value apart from
// a group. Empty maps are reported as leaves.
func CollectKeys(m map[string]interface{}, separator string) []KeyPath {
	var keys []KeyPath
	collectKeys(m, nil, separator, &keys)
	sortKeyPaths(keys)
	return keys
}

func sortKeyPaths(keys []KeyPath) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].FullPath() < keys[j].FullPath() })
}

func collectKeys(m map[string]interface{}, prefix []string, separator string, keys *[]KeyPath) {
	for key, value := range m {
		path := append(append([]string(nil), prefix...), key)
		if nested, ok := asStringMap(value); ok && len(nested) > 0 {
			collectKeys(nested, path, separator, keys)
			continue
		}
		*keys = append(*keys, NewKeyPath(separator, path...))
	}
}

// asStringMap accepts the map shapes produced by the supported decoders.
func asStringMap(v interface{}) (map[string]interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		return t, true
	case Document:
		return t, true
	}
	return nil, false
}

// deepCopy creates a deep copy of a nested map.
func deepCopy(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = deepCopyValue(v)
	}
	return dst
}

func deepCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return deepCopy(t)
	case Document:
		return deepCopy(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = deepCopyValue(item)
		}
		return out
	case []byte:
		return append([]byte(nil), t...)
	}
	return v
}

// hashValue computes an order-independent xxHash of a native value.
// Used for change detection and document equality.
func hashValue(v interface{}) uint64 {
	h := xxhash.New()
	writeHash(h, v)
	return h.Sum64()
}

func writeHash(h hash.Hash64, v interface{}) {
	switch t := v.(type) {
	case nil:
		_, _ = h.Write([]byte{0})
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		_, _ = h.Write([]byte{'{'})
		for _, k := range keys {
			_, _ = h.Write([]byte(k))
			_, _ = h.Write([]byte{':'})
			writeHash(h, t[k])
		}
		_, _ = h.Write([]byte{'}'})
	case Document:
		writeHash(h, map[string]interface{}(t))
	case []interface{}:
		_, _ = h.Write([]byte{'['})
		for _, item := range t {
			writeHash(h, item)
			_, _ = h.Write([]byte{','})
		}
		_, _ = h.Write([]byte{']'})
	case []byte:
		_, _ = h.Write([]byte("b:"))
		_, _ = h.Write(t)
	default:
		// Numeric kinds hash by value and type so 1 and "1" differ.
		_, _ = fmt.Fprintf(h, "%s:%v", reflect.TypeOf(v).Kind(), v)
	}
}
