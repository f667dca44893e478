// value_test.go: Testing encoded values
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func sampleValues() map[string]EncodedValue {
	return map[string]EncodedValue{
		"absent": Absent(),
		"bool":   BoolValue(true),
		"int":    IntValue(math.MaxInt64),
		"float":  FloatValue(1.5),
		"double": DoubleValue(0.1),
		"string": StringValue("dark"),
		"bytes":  BytesValue([]byte{0, 1, 2, 255}),
		"array":  ArrayValue(StringValue("a"), IntValue(2)),
		"empty":  ArrayValue(),
		"map": MapValue(
			MapEntry{Key: "z", Value: IntValue(1)},
			MapEntry{Key: "a", Value: ArrayValue(BoolValue(false))},
		),
		"document": DocumentValue(Document{
			"retries": int64(3),
			"nested":  map[string]interface{}{"enabled": true, "ratio": 0.25},
		}),
	}
}

// TestEncodedValueJSONPreservesKind tests that the tagged JSON form keeps
// the exact variant of every kind.
func TestEncodedValueJSONPreservesKind(t *testing.T) {
	for name, original := range sampleValues() {
		t.Run(name, func(t *testing.T) {
			data, err := json.Marshal(original)
			if err != nil {
				t.Fatalf("Failed to marshal value: %v", err)
			}
			var decoded EncodedValue
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Failed to unmarshal %s: %v", data, err)
			}
			if decoded.Kind() != original.Kind() {
				t.Errorf("Expected kind %s, got %s", original.Kind(), decoded.Kind())
			}
			if !decoded.Equal(original) {
				t.Errorf("Round trip changed value: %s became %s", original, decoded)
			}
		})
	}
}

func TestEncodedValueUnmarshalErrors(t *testing.T) {
	cases := []string{
		`{"k":"complex","v":"1"}`,
		`{"k":"int","v":"twelve"}`,
		`{"k":"bool","v":"yes"}`,
		`not json`,
	}
	for _, input := range cases {
		var v EncodedValue
		err := json.Unmarshal([]byte(input), &v)
		if err == nil {
			t.Errorf("Expected error for %s", input)
			continue
		}
		if !HasCode(err, ErrCodeSerializationError) {
			t.Errorf("Expected %s for %s, got %v", ErrCodeSerializationError, input, err)
		}
	}
}

// TestEncodedValueIntKeepsPrecision tests that large integers are not routed
// through float64.
func TestEncodedValueIntKeepsPrecision(t *testing.T) {
	var v EncodedValue
	data, _ := json.Marshal(IntValue(9007199254740993))
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	got, ok := v.AsInt()
	if !ok || got != 9007199254740993 {
		t.Errorf("Expected 9007199254740993, got %d (ok=%v)", got, ok)
	}
}

func TestEncodedValueEqual(t *testing.T) {
	if IntValue(1).Equal(DoubleValue(1)) {
		t.Error("Int and Double must not be equal")
	}
	if !DoubleValue(math.NaN()).Equal(DoubleValue(math.NaN())) {
		t.Error("NaN doubles should compare equal")
	}
	if StringValue("1").Equal(IntValue(1)) {
		t.Error("String and Int must not be equal")
	}
	if !Absent().Equal(EncodedValue{}) {
		t.Error("Zero value should equal Absent")
	}

	ab := MapValue(MapEntry{Key: "a", Value: IntValue(1)}, MapEntry{Key: "b", Value: IntValue(2)})
	ba := MapValue(MapEntry{Key: "b", Value: IntValue(2)}, MapEntry{Key: "a", Value: IntValue(1)})
	if ab.Equal(ba) {
		t.Error("Map equality must respect entry order")
	}

	d1 := DocumentValue(Document{"x": int64(1), "y": "z"})
	d2 := DocumentValue(Document{"y": "z", "x": int64(1)})
	if !d1.Equal(d2) {
		t.Error("Documents with the same content should be equal")
	}
}

func TestMapValueDuplicateKeys(t *testing.T) {
	v := MapValue(
		MapEntry{Key: "a", Value: IntValue(1)},
		MapEntry{Key: "b", Value: IntValue(2)},
		MapEntry{Key: "a", Value: IntValue(3)},
	)
	entries, ok := v.AsMap()
	if !ok {
		t.Fatal("Expected map kind")
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Key != "a" || !entries[0].Value.Equal(IntValue(3)) {
		t.Errorf("Expected a=3 in first position, got %s=%s", entries[0].Key, entries[0].Value)
	}
	if got, ok := v.Get("b"); !ok || !got.Equal(IntValue(2)) {
		t.Errorf("Expected b=2, got %s", got)
	}
}

func TestMapOfSortsKeys(t *testing.T) {
	v := MapOf(map[string]EncodedValue{"c": IntValue(3), "a": IntValue(1), "b": IntValue(2)})
	entries, _ := v.AsMap()
	var keys []string
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Errorf("Expected sorted keys, got %v", keys)
	}
}

func TestBytesValueCopies(t *testing.T) {
	raw := []byte("abc")
	v := BytesValue(raw)
	raw[0] = 'x'
	got, _ := v.AsBytes()
	if string(got) != "abc" {
		t.Errorf("BytesValue must copy its input, got %q", got)
	}
	got[1] = 'y'
	again, _ := v.AsBytes()
	if string(again) != "abc" {
		t.Errorf("AsBytes must return a copy, got %q", again)
	}
}

func TestEncodedValueString(t *testing.T) {
	cases := []struct {
		value    EncodedValue
		expected string
	}{
		{Absent(), "<absent>"},
		{BoolValue(false), "false"},
		{IntValue(-42), "-42"},
		{FloatValue(0.5), "0.5"},
		{DoubleValue(2.25), "2.25"},
		{StringValue("on"), "on"},
		{BytesValue([]byte("hi")), "aGk="},
		{ArrayValue(IntValue(1), StringValue("x")), `[1,"x"]`},
		{MapOf(map[string]EncodedValue{"b": BoolValue(true), "a": IntValue(1)}), `{"a":1,"b":true}`},
	}
	for _, tc := range cases {
		if got := tc.value.String(); got != tc.expected {
			t.Errorf("Expected %q, got %q", tc.expected, got)
		}
	}
}

func TestFromNative(t *testing.T) {
	cases := []struct {
		name     string
		input    interface{}
		expected EncodedValue
	}{
		{"nil", nil, Absent()},
		{"bool", true, BoolValue(true)},
		{"int", 7, IntValue(7)},
		{"uint8", uint8(200), IntValue(200)},
		{"float32", float32(1.25), FloatValue(1.25)},
		{"float64", 3.5, DoubleValue(3.5)},
		{"json_int", json.Number("12"), IntValue(12)},
		{"json_float", json.Number("1.5"), DoubleValue(1.5)},
		{"json_big_unsigned", json.Number("18446744073709551615"), StringValue("18446744073709551615")},
		{"uint", uint(9), IntValue(9)},
		{"uint64_max_int", uint64(math.MaxInt64), IntValue(math.MaxInt64)},
		{"uint64_big", uint64(math.MaxUint64), StringValue("18446744073709551615")},
		{"string", "x", StringValue("x")},
		{"bytes", []byte("x"), BytesValue([]byte("x"))},
		{"strings", []string{"a", "b"}, ArrayValue(StringValue("a"), StringValue("b"))},
		{"slice", []interface{}{int64(1), "two"}, ArrayValue(IntValue(1), StringValue("two"))},
		{"map", map[string]interface{}{"b": 2, "a": true}, MapValue(
			MapEntry{Key: "a", Value: BoolValue(true)},
			MapEntry{Key: "b", Value: IntValue(2)},
		)},
		{"yaml_map", map[interface{}]interface{}{1: "one"}, MapValue(MapEntry{Key: "1", Value: StringValue("one")})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FromNative(tc.input)
			if !ok {
				t.Fatalf("FromNative rejected %#v", tc.input)
			}
			if !got.Equal(tc.expected) {
				t.Errorf("Expected %s (%s), got %s (%s)", tc.expected, tc.expected.Kind(), got, got.Kind())
			}
		})
	}

	if _, ok := FromNative(struct{}{}); ok {
		t.Error("FromNative should reject unsupported types")
	}

	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	got, ok := FromNative(ts)
	if s, _ := got.AsString(); !ok || s != "2025-03-01T12:00:00Z" {
		t.Errorf("Expected RFC3339 string for time, got %s", got)
	}
}

func TestToNative(t *testing.T) {
	v := MapValue(
		MapEntry{Key: "list", Value: ArrayValue(IntValue(1), DoubleValue(2.5))},
		MapEntry{Key: "flag", Value: BoolValue(true)},
	)
	native, ok := ToNative(v).(map[string]interface{})
	if !ok {
		t.Fatalf("Expected map, got %T", ToNative(v))
	}
	list, ok := native["list"].([]interface{})
	if !ok || len(list) != 2 {
		t.Fatalf("Expected two element list, got %#v", native["list"])
	}
	if list[0] != int64(1) || list[1] != 2.5 {
		t.Errorf("Unexpected list contents %#v", list)
	}
	if native["flag"] != true {
		t.Errorf("Expected flag=true, got %#v", native["flag"])
	}
	if ToNative(Absent()) != nil {
		t.Error("Absent should convert to nil")
	}
}

func TestParseKind(t *testing.T) {
	for k := KindAbsent; k <= KindDocument; k++ {
		parsed, ok := ParseKind(k.String())
		if !ok || parsed != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), parsed, ok)
		}
	}
	if _, ok := ParseKind("complex"); ok {
		t.Error("Unknown kind name should not parse")
	}
}
