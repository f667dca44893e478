// value.go: Encoded values exchanged between flags and providers
//
// An EncodedValue is the closed set of shapes every provider understands.
// Flags encode into it on write and decode out of it on read; providers
// convert it to and from their own native representation at the boundary.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/agilira/go-errors"
)

// Kind identifies the variant held by an EncodedValue.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindBool
	KindInt
	KindFloat
	KindDouble
	KindString
	KindBytes
	KindArray
	KindMap
	KindDocument
)

var kindNames = [...]string{
	KindAbsent:   "absent",
	KindBool:     "bool",
	KindInt:      "int",
	KindFloat:    "float",
	KindDouble:   "double",
	KindString:   "string",
	KindBytes:    "bytes",
	KindArray:    "array",
	KindMap:      "map",
	KindDocument: "document",
}

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return KindAbsent, false
}

// MapEntry is a single key/value pair of a Map value.
type MapEntry struct {
	Key   string
	Value EncodedValue
}

// Document is a free-form structured map, as produced by JSON or YAML decoders.
type Document map[string]interface{}

// EncodedValue is an immutable tagged union. The zero value is Absent.
type EncodedValue struct {
	kind    Kind
	b       bool
	i       int64
	f32     float32
	f64     float64
	s       string
	raw     []byte
	items   []EncodedValue
	entries []MapEntry
	doc     Document
}

// Absent returns the value that stands for "no value".
func Absent() EncodedValue { return EncodedValue{} }

// BoolValue wraps a boolean.
func BoolValue(v bool) EncodedValue { return EncodedValue{kind: KindBool, b: v} }

// IntValue wraps a signed integer.
func IntValue(v int64) EncodedValue { return EncodedValue{kind: KindInt, i: v} }

// FloatValue wraps a single precision float.
func FloatValue(v float32) EncodedValue { return EncodedValue{kind: KindFloat, f32: v} }

// DoubleValue wraps a double precision float.
func DoubleValue(v float64) EncodedValue { return EncodedValue{kind: KindDouble, f64: v} }

// StringValue wraps a string.
func StringValue(v string) EncodedValue { return EncodedValue{kind: KindString, s: v} }

// BytesValue wraps a byte blob. The slice is copied.
func BytesValue(v []byte) EncodedValue {
	return EncodedValue{kind: KindBytes, raw: append([]byte(nil), v...)}
}

// ArrayValue wraps an ordered list of values.
func ArrayValue(items ...EncodedValue) EncodedValue {
	return EncodedValue{kind: KindArray, items: append([]EncodedValue(nil), items...)}
}

// MapValue wraps ordered entries. A repeated key keeps its first position and its last value.
func MapValue(entries ...MapEntry) EncodedValue {
	out := make([]MapEntry, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, e := range entries {
		if i, ok := index[e.Key]; ok {
			out[i].Value = e.Value
			continue
		}
		index[e.Key] = len(out)
		out = append(out, e)
	}
	return EncodedValue{kind: KindMap, entries: out}
}

// MapOf builds a Map from a Go map, ordering entries by key.
func MapOf(m map[string]EncodedValue) EncodedValue {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]MapEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, MapEntry{Key: k, Value: m[k]})
	}
	return EncodedValue{kind: KindMap, entries: entries}
}

// DocumentValue wraps a structured document. The document is deep-copied.
func DocumentValue(d Document) EncodedValue {
	if d == nil {
		d = Document{}
	}
	return EncodedValue{kind: KindDocument, doc: Document(deepCopy(d))}
}

// Kind returns the variant held by v.
func (v EncodedValue) Kind() Kind { return v.kind }

// IsAbsent reports whether v holds no value.
func (v EncodedValue) IsAbsent() bool { return v.kind == KindAbsent }

// AsBool returns the boolean held by v.
func (v EncodedValue) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer held by v.
func (v EncodedValue) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the single precision float held by v.
func (v EncodedValue) AsFloat() (float32, bool) { return v.f32, v.kind == KindFloat }

// AsDouble returns the double held by v.
func (v EncodedValue) AsDouble() (float64, bool) { return v.f64, v.kind == KindDouble }

// AsString returns the string held by v.
func (v EncodedValue) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsBytes returns a copy of the blob held by v.
func (v EncodedValue) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return append([]byte(nil), v.raw...), true
}

// AsArray returns the elements held by v.
func (v EncodedValue) AsArray() ([]EncodedValue, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return append([]EncodedValue(nil), v.items...), true
}

// AsMap returns the entries held by v, in order.
func (v EncodedValue) AsMap() ([]MapEntry, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return append([]MapEntry(nil), v.entries...), true
}

// AsDocument returns a copy of the document held by v.
func (v EncodedValue) AsDocument() (Document, bool) {
	if v.kind != KindDocument {
		return nil, false
	}
	return Document(deepCopy(v.doc)), true
}

// Get returns the value stored under key in a Map.
func (v EncodedValue) Get(key string) (EncodedValue, bool) {
	for _, e := range v.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return EncodedValue{}, false
}

// Equal reports structural equality. Documents compare through their native form.
func (v EncodedValue) Equal(o EncodedValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindAbsent:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f32 == o.f32 || (v.f32 != v.f32 && o.f32 != o.f32)
	case KindDouble:
		return v.f64 == o.f64 || (math.IsNaN(v.f64) && math.IsNaN(o.f64))
	case KindString:
		return v.s == o.s
	case KindBytes:
		return bytes.Equal(v.raw, o.raw)
	case KindArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.entries) != len(o.entries) {
			return false
		}
		for i := range v.entries {
			if v.entries[i].Key != o.entries[i].Key || !v.entries[i].Value.Equal(o.entries[i].Value) {
				return false
			}
		}
		return true
	case KindDocument:
		return hashValue(map[string]interface{}(v.doc)) == hashValue(map[string]interface{}(o.doc))
	}
	return false
}

// String renders v for humans: CLI output, descriptions, logs.
func (v EncodedValue) String() string {
	switch v.kind {
	case KindAbsent:
		return "<absent>"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(float64(v.f32), 'g', -1, 32)
	case KindDouble:
		return strconv.FormatFloat(v.f64, 'g', -1, 64)
	case KindString:
		return v.s
	case KindBytes:
		return base64.StdEncoding.EncodeToString(v.raw)
	default:
		data, err := json.Marshal(ToNative(v))
		if err != nil {
			return fmt.Sprintf("<%s>", v.kind)
		}
		return string(data)
	}
}

// ToNative converts v into plain Go values suitable for JSON, YAML or TOML
// encoders: bool, int64, float32, float64, string, []byte, []interface{},
// map[string]interface{} or nil.
func ToNative(v EncodedValue) interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f32
	case KindDouble:
		return v.f64
	case KindString:
		return v.s
	case KindBytes:
		return append([]byte(nil), v.raw...)
	case KindArray:
		out := make([]interface{}, len(v.items))
		for i, item := range v.items {
			out[i] = ToNative(item)
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, len(v.entries))
		for _, e := range v.entries {
			out[e.Key] = ToNative(e.Value)
		}
		return out
	case KindDocument:
		return deepCopy(v.doc)
	}
	return nil
}

// unsignedValue keeps integers above math.MaxInt64 exact as decimal strings.
func unsignedValue(u uint64) EncodedValue {
	if u > math.MaxInt64 {
		return StringValue(strconv.FormatUint(u, 10))
	}
	return IntValue(int64(u))
}

// FromNative converts a decoded Go value into an EncodedValue. Nested maps
// become Map values ordered by key. It reports false for unsupported types.
func FromNative(x interface{}) (EncodedValue, bool) {
	switch t := x.(type) {
	case nil:
		return Absent(), true
	case EncodedValue:
		return t, true
	case bool:
		return BoolValue(t), true
	case int:
		return IntValue(int64(t)), true
	case int8:
		return IntValue(int64(t)), true
	case int16:
		return IntValue(int64(t)), true
	case int32:
		return IntValue(int64(t)), true
	case int64:
		return IntValue(t), true
	case uint:
		return unsignedValue(uint64(t)), true
	case uintptr:
		return unsignedValue(uint64(t)), true
	case uint8:
		return IntValue(int64(t)), true
	case uint16:
		return IntValue(int64(t)), true
	case uint32:
		return IntValue(int64(t)), true
	case uint64:
		return unsignedValue(t), true
	case float32:
		return FloatValue(t), true
	case float64:
		return DoubleValue(t), true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return IntValue(i), true
		}
		if u, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return unsignedValue(u), true
		}
		if f, err := t.Float64(); err == nil {
			return DoubleValue(f), true
		}
		return StringValue(t.String()), true
	case string:
		return StringValue(t), true
	case []byte:
		return BytesValue(t), true
	case time.Time:
		return StringValue(t.Format(time.RFC3339Nano)), true
	case []string:
		items := make([]EncodedValue, len(t))
		for i, s := range t {
			items[i] = StringValue(s)
		}
		return EncodedValue{kind: KindArray, items: items}, true
	case []interface{}:
		items := make([]EncodedValue, 0, len(t))
		for _, item := range t {
			if ev, ok := FromNative(item); ok {
				items = append(items, ev)
			}
		}
		return EncodedValue{kind: KindArray, items: items}, true
	case map[string]interface{}:
		return nativeMap(t), true
	case Document:
		return nativeMap(t), true
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = val
		}
		return nativeMap(m), true
	}
	return EncodedValue{}, false
}

func nativeMap(m map[string]interface{}) EncodedValue {
	entries := make(map[string]EncodedValue, len(m))
	for k, val := range m {
		if ev, ok := FromNative(val); ok {
			entries[k] = ev
		}
	}
	return MapOf(entries)
}

// taggedValue is the kind-preserving JSON form of an EncodedValue.
type taggedValue struct {
	Kind  string          `json:"k"`
	Value json.RawMessage `json:"v,omitempty"`
}

type taggedEntry struct {
	Key   string       `json:"key"`
	Value EncodedValue `json:"value"`
}

// MarshalJSON encodes v together with its kind so that the exact variant
// survives storage in backends without a native type system.
func (v EncodedValue) MarshalJSON() ([]byte, error) {
	var payload interface{}
	switch v.kind {
	case KindAbsent:
		return json.Marshal(taggedValue{Kind: v.kind.String()})
	case KindBool:
		payload = v.b
	case KindInt:
		payload = strconv.FormatInt(v.i, 10)
	case KindFloat:
		payload = strconv.FormatFloat(float64(v.f32), 'g', -1, 32)
	case KindDouble:
		payload = strconv.FormatFloat(v.f64, 'g', -1, 64)
	case KindString:
		payload = v.s
	case KindBytes:
		payload = v.raw
	case KindArray:
		items := v.items
		if items == nil {
			items = []EncodedValue{}
		}
		payload = items
	case KindMap:
		entries := make([]taggedEntry, len(v.entries))
		for i, e := range v.entries {
			entries[i] = taggedEntry{Key: e.Key, Value: e.Value}
		}
		payload = entries
	case KindDocument:
		payload = v.doc
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeSerializationError, "failed to encode value").
			WithContext("kind", v.kind.String())
	}
	return json.Marshal(taggedValue{Kind: v.kind.String(), Value: raw})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *EncodedValue) UnmarshalJSON(data []byte) error {
	var tv taggedValue
	if err := json.Unmarshal(data, &tv); err != nil {
		return errors.Wrap(err, ErrCodeSerializationError, "malformed encoded value")
	}
	kind, ok := ParseKind(tv.Kind)
	if !ok {
		return errors.New(ErrCodeSerializationError, "unknown value kind").WithContext("kind", tv.Kind)
	}
	out := EncodedValue{kind: kind}
	var err error
	switch kind {
	case KindAbsent:
	case KindBool:
		err = json.Unmarshal(tv.Value, &out.b)
	case KindInt, KindFloat, KindDouble:
		var text string
		if err = json.Unmarshal(tv.Value, &text); err != nil {
			break
		}
		switch kind {
		case KindInt:
			out.i, err = strconv.ParseInt(text, 10, 64)
		case KindFloat:
			var f float64
			f, err = strconv.ParseFloat(text, 32)
			out.f32 = float32(f)
		default:
			out.f64, err = strconv.ParseFloat(text, 64)
		}
	case KindString:
		err = json.Unmarshal(tv.Value, &out.s)
	case KindBytes:
		err = json.Unmarshal(tv.Value, &out.raw)
	case KindArray:
		err = json.Unmarshal(tv.Value, &out.items)
	case KindMap:
		var entries []taggedEntry
		if err = json.Unmarshal(tv.Value, &entries); err == nil {
			out.entries = make([]MapEntry, len(entries))
			for i, e := range entries {
				out.entries[i] = MapEntry{Key: e.Key, Value: e.Value}
			}
		}
	case KindDocument:
		dec := json.NewDecoder(bytes.NewReader(tv.Value))
		dec.UseNumber()
		var doc map[string]interface{}
		if err = dec.Decode(&doc); err == nil {
			out.doc = Document(normalizeNumbers(doc).(map[string]interface{}))
		}
	}
	if err != nil {
		return errors.Wrap(err, ErrCodeSerializationError, "malformed encoded value").
			WithContext("kind", tv.Kind)
	}
	*v = out
	return nil
}

// normalizeNumbers replaces json.Number leaves with int64 or float64.
func normalizeNumbers(x interface{}) interface{} {
	switch t := x.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]interface{}:
		for k, val := range t {
			t[k] = normalizeNumbers(val)
		}
		return t
	case []interface{}:
		for i, val := range t {
			t[i] = normalizeNumbers(val)
		}
		return t
	}
	return x
}
