// codec.go: Typed encoding and permissive decoding of flag values
//
// Decoding is lenient so that string-only stores interoperate: numbers and
// booleans parse from strings, floats widen from integers, and collections
// drop the elements they cannot decode.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Codec converts a flag's Go type to and from an EncodedValue.
// Implementations hold no state.
type Codec[T any] interface {
	Encode(v T) EncodedValue
	Decode(v EncodedValue) (T, bool)
	// TypeName describes T for browsing and CLI output.
	TypeName() string
}

// FallibleCodec is implemented by codecs whose encoding can fail, such as
// JSON of a value holding a NaN. Their Encode returns Absent on failure.
type FallibleCodec[T any] interface {
	TryEncode(v T) (EncodedValue, error)
}

// EncodeValue encodes v with c and reports encoding failures of fallible codecs.
func EncodeValue[T any](c Codec[T], v T) (EncodedValue, error) {
	if fc, ok := c.(FallibleCodec[T]); ok {
		return fc.TryEncode(v)
	}
	return c.Encode(v), nil
}

// integer lists the signed and unsigned integer kinds accepted by IntCodec.
type integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// ParseTruthy parses a boolean the same way regardless of locale.
func ParseTruthy(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes", "on":
		return true, true
	case "0", "f", "false", "n", "no", "off":
		return false, true
	}
	return false, false
}

type boolCodec struct{}

// BoolCodec decodes Bool, Int (nonzero is true) and truthy strings.
func BoolCodec() Codec[bool] { return boolCodec{} }

func (boolCodec) Encode(v bool) EncodedValue { return BoolValue(v) }
func (boolCodec) TypeName() string          { return "bool" }
func (boolCodec) Decode(v EncodedValue) (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindInt:
		return v.i != 0, true
	case KindString:
		return ParseTruthy(v.s)
	}
	return false, false
}

type intCodec[T integer] struct{}

// IntCodec decodes Int and base-10 strings. Values that overflow T fail.
// Unsigned values above math.MaxInt64 are stored as decimal strings.
func IntCodec[T integer]() Codec[T] { return intCodec[T]{} }

func (intCodec[T]) Encode(v T) EncodedValue {
	if v > 0 && uint64(v) > math.MaxInt64 {
		return StringValue(strconv.FormatUint(uint64(v), 10))
	}
	return IntValue(int64(v))
}
func (intCodec[T]) TypeName() string { return "int" }
func (intCodec[T]) Decode(v EncodedValue) (T, bool) {
	var zero T
	unsigned := ^zero > 0
	switch v.kind {
	case KindInt:
		if unsigned && v.i < 0 {
			return zero, false
		}
		return narrowInt[T](v.i)
	case KindString:
		text := strings.TrimSpace(v.s)
		if unsigned {
			u, err := strconv.ParseUint(text, 10, 64)
			if err != nil || uint64(T(u)) != u {
				return zero, false
			}
			return T(u), true
		}
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return zero, false
		}
		return narrowInt[T](i)
	}
	return zero, false
}

func narrowInt[T integer](i int64) (T, bool) {
	t := T(i)
	if int64(t) != i || (t < 0) != (i < 0) {
		var zero T
		return zero, false
	}
	return t, true
}

// decodeFloat accepts Float, Double, Int and numeric strings.
func decodeFloat(v EncodedValue) (float64, bool) {
	switch v.kind {
	case KindFloat:
		return float64(v.f32), true
	case KindDouble:
		return v.f64, true
	case KindInt:
		return float64(v.i), true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		return f, err == nil
	}
	return 0, false
}

type float32Codec struct{}

// Float32Codec stores single precision floats as Float.
func Float32Codec() Codec[float32] { return float32Codec{} }

func (float32Codec) Encode(v float32) EncodedValue { return FloatValue(v) }
func (float32Codec) TypeName() string             { return "float" }
func (float32Codec) Decode(v EncodedValue) (float32, bool) {
	if v.kind == KindFloat {
		return v.f32, true
	}
	f, ok := decodeFloat(v)
	return float32(f), ok
}

type float64Codec struct{}

// Float64Codec stores double precision floats as Double.
func Float64Codec() Codec[float64] { return float64Codec{} }

func (float64Codec) Encode(v float64) EncodedValue { return DoubleValue(v) }
func (float64Codec) TypeName() string             { return "double" }
func (float64Codec) Decode(v EncodedValue) (float64, bool) {
	return decodeFloat(v)
}

type stringCodec struct{}

// StringCodec accepts String only.
func StringCodec() Codec[string] { return stringCodec{} }

func (stringCodec) Encode(v string) EncodedValue { return StringValue(v) }
func (stringCodec) TypeName() string            { return "string" }
func (stringCodec) Decode(v EncodedValue) (string, bool) {
	return v.s, v.kind == KindString
}

type bytesCodec struct{}

// BytesCodec accepts Bytes, or a base64 String as written by text formats.
func BytesCodec() Codec[[]byte] { return bytesCodec{} }

func (bytesCodec) Encode(v []byte) EncodedValue { return BytesValue(v) }
func (bytesCodec) TypeName() string            { return "bytes" }
func (bytesCodec) Decode(v EncodedValue) ([]byte, bool) {
	switch v.kind {
	case KindBytes:
		return append([]byte(nil), v.raw...), true
	case KindString:
		data, err := base64.StdEncoding.DecodeString(v.s)
		return data, err == nil
	}
	return nil, false
}

type durationCodec struct{}

// DurationCodec stores durations as strings like "1m30s" and also accepts
// integer nanoseconds.
func DurationCodec() Codec[time.Duration] { return durationCodec{} }

func (durationCodec) Encode(v time.Duration) EncodedValue { return StringValue(v.String()) }
func (durationCodec) TypeName() string                   { return "duration" }
func (durationCodec) Decode(v EncodedValue) (time.Duration, bool) {
	switch v.kind {
	case KindInt:
		return time.Duration(v.i), true
	case KindString:
		d, err := time.ParseDuration(strings.TrimSpace(v.s))
		return d, err == nil
	}
	return 0, false
}

type timeCodec struct{}

// TimeCodec stores instants as RFC 3339 strings.
func TimeCodec() Codec[time.Time] { return timeCodec{} }

func (timeCodec) Encode(v time.Time) EncodedValue { return StringValue(v.Format(time.RFC3339Nano)) }
func (timeCodec) TypeName() string               { return "time" }
func (timeCodec) Decode(v EncodedValue) (time.Time, bool) {
	if v.kind != KindString {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v.s))
	return t, err == nil
}

type urlCodec struct{}

// URLCodec stores URLs as strings. A nil URL encodes as Absent and back.
func URLCodec() Codec[*url.URL] { return urlCodec{} }

func (urlCodec) Encode(v *url.URL) EncodedValue {
	if v == nil {
		return Absent()
	}
	return StringValue(v.String())
}
func (urlCodec) TypeName() string { return "url" }
func (urlCodec) Decode(v EncodedValue) (*url.URL, bool) {
	if v.kind == KindAbsent {
		return nil, true
	}
	if v.kind != KindString {
		return nil, false
	}
	u, err := url.Parse(v.s)
	return u, err == nil
}

type sliceCodec[T any] struct{ elem Codec[T] }

// SliceCodec encodes a slice as an Array. Elements that fail to decode are dropped.
func SliceCodec[T any](elem Codec[T]) Codec[[]T] { return sliceCodec[T]{elem: elem} }

func (c sliceCodec[T]) Encode(v []T) EncodedValue {
	items := make([]EncodedValue, len(v))
	for i, item := range v {
		items[i] = c.elem.Encode(item)
	}
	return EncodedValue{kind: KindArray, items: items}
}
func (c sliceCodec[T]) TryEncode(v []T) (EncodedValue, error) {
	items := make([]EncodedValue, len(v))
	for i, item := range v {
		encoded, err := EncodeValue(c.elem, item)
		if err != nil {
			return Absent(), err
		}
		items[i] = encoded
	}
	return EncodedValue{kind: KindArray, items: items}, nil
}
func (c sliceCodec[T]) TypeName() string { return "[]" + c.elem.TypeName() }
func (c sliceCodec[T]) Decode(v EncodedValue) ([]T, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	out := make([]T, 0, len(v.items))
	for _, item := range v.items {
		if decoded, ok := c.elem.Decode(item); ok {
			out = append(out, decoded)
		}
	}
	return out, true
}

type mapCodec[T any] struct{ elem Codec[T] }

// MapCodec encodes a string map as a Map ordered by key. Entries that fail
// to decode are dropped. Documents are accepted too.
func MapCodec[T any](elem Codec[T]) Codec[map[string]T] { return mapCodec[T]{elem: elem} }

func (c mapCodec[T]) Encode(v map[string]T) EncodedValue {
	entries := make(map[string]EncodedValue, len(v))
	for k, item := range v {
		entries[k] = c.elem.Encode(item)
	}
	return MapOf(entries)
}
func (c mapCodec[T]) TryEncode(v map[string]T) (EncodedValue, error) {
	entries := make(map[string]EncodedValue, len(v))
	for k, item := range v {
		encoded, err := EncodeValue(c.elem, item)
		if err != nil {
			return Absent(), err
		}
		entries[k] = encoded
	}
	return MapOf(entries), nil
}
func (c mapCodec[T]) TypeName() string { return "map[string]" + c.elem.TypeName() }
func (c mapCodec[T]) Decode(v EncodedValue) (map[string]T, bool) {
	if v.kind == KindDocument {
		v = nativeMap(v.doc)
	}
	if v.kind != KindMap {
		return nil, false
	}
	out := make(map[string]T, len(v.entries))
	for _, e := range v.entries {
		if decoded, ok := c.elem.Decode(e.Value); ok {
			out[e.Key] = decoded
		}
	}
	return out, true
}

type optionalCodec[T any] struct{ inner Codec[T] }

// OptionalCodec encodes nil as Absent and decodes Absent as nil.
func OptionalCodec[T any](inner Codec[T]) Codec[*T] { return optionalCodec[T]{inner: inner} }

func (c optionalCodec[T]) Encode(v *T) EncodedValue {
	if v == nil {
		return Absent()
	}
	return c.inner.Encode(*v)
}
func (c optionalCodec[T]) TryEncode(v *T) (EncodedValue, error) {
	if v == nil {
		return Absent(), nil
	}
	return EncodeValue(c.inner, *v)
}
func (c optionalCodec[T]) TypeName() string { return "optional " + c.inner.TypeName() }
func (c optionalCodec[T]) Decode(v EncodedValue) (*T, bool) {
	if v.kind == KindAbsent {
		return nil, true
	}
	decoded, ok := c.inner.Decode(v)
	if !ok {
		return nil, false
	}
	return &decoded, true
}

type documentCodec struct{}

// DocumentCodec stores structured documents. It also accepts Map values and
// JSON objects held in String or Bytes.
func DocumentCodec() Codec[Document] { return documentCodec{} }

func (documentCodec) Encode(v Document) EncodedValue { return DocumentValue(v) }
func (documentCodec) TypeName() string              { return "document" }
func (documentCodec) Decode(v EncodedValue) (Document, bool) {
	switch v.kind {
	case KindDocument:
		return Document(deepCopy(v.doc)), true
	case KindMap:
		return Document(ToNative(v).(map[string]interface{})), true
	case KindString:
		return decodeJSONDocument([]byte(v.s))
	case KindBytes:
		return decodeJSONDocument(v.raw)
	}
	return nil, false
}

func decodeJSONDocument(data []byte) (Document, bool) {
	parsed, err := parseJSON(data)
	if err != nil {
		return nil, false
	}
	return Document(parsed), true
}

type jsonCodec[T any] struct{}

// JSONCodec stores any JSON-serializable type as JSON text in a String, which
// every file format keeps verbatim. It also accepts JSON Bytes, base64 JSON
// written by older text stores, and a Map/Document with a matching shape.
func JSONCodec[T any]() Codec[T] { return jsonCodec[T]{} }

func (c jsonCodec[T]) Encode(v T) EncodedValue {
	encoded, err := c.TryEncode(v)
	if err != nil {
		return Absent()
	}
	return encoded
}
func (jsonCodec[T]) TryEncode(v T) (EncodedValue, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Absent(), err
	}
	return StringValue(string(data)), nil
}
func (jsonCodec[T]) TypeName() string { return "json" }
func (jsonCodec[T]) Decode(v EncodedValue) (T, bool) {
	var data []byte
	switch v.kind {
	case KindBytes:
		data = v.raw
	case KindString:
		if out, ok := unmarshalJSON[T]([]byte(v.s)); ok {
			return out, true
		}
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(v.s))
		if err != nil {
			var zero T
			return zero, false
		}
		data = decoded
	case KindMap, KindDocument:
		encoded, err := json.Marshal(ToNative(v))
		if err != nil {
			var zero T
			return zero, false
		}
		data = encoded
	default:
		var zero T
		return zero, false
	}
	return unmarshalJSON[T](data)
}

func unmarshalJSON[T any](data []byte) (T, bool) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

type enumCodec[T ~string] struct{ allowed map[T]struct{} }

// EnumCodec stores string enums by raw value. When allowed is non-empty,
// unknown raw values fail to decode.
func EnumCodec[T ~string](allowed ...T) Codec[T] {
	c := enumCodec[T]{}
	if len(allowed) > 0 {
		c.allowed = make(map[T]struct{}, len(allowed))
		for _, a := range allowed {
			c.allowed[a] = struct{}{}
		}
	}
	return c
}

func (enumCodec[T]) Encode(v T) EncodedValue { return StringValue(string(v)) }
func (enumCodec[T]) TypeName() string        { return "enum" }
func (c enumCodec[T]) Decode(v EncodedValue) (T, bool) {
	if v.kind != KindString {
		var zero T
		return zero, false
	}
	t := T(v.s)
	if c.allowed != nil {
		if _, ok := c.allowed[t]; !ok {
			var zero T
			return zero, false
		}
	}
	return t, true
}
