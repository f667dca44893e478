// flag_types.go: Flag constructors for the supported value types
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"net/url"
	"time"
)

// Bool declares a boolean flag.
func Bool(def bool, opts ...Option) *Flag[bool] { return New(def, BoolCodec(), opts...) }

// Int declares an int flag.
func Int(def int, opts ...Option) *Flag[int] { return New(def, IntCodec[int](), opts...) }

// Int64 declares an int64 flag.
func Int64(def int64, opts ...Option) *Flag[int64] { return New(def, IntCodec[int64](), opts...) }

// Uint declares a uint flag.
func Uint(def uint, opts ...Option) *Flag[uint] { return New(def, IntCodec[uint](), opts...) }

// Float32 declares a single precision flag.
func Float32(def float32, opts ...Option) *Flag[float32] { return New(def, Float32Codec(), opts...) }

// Float64 declares a double precision flag.
func Float64(def float64, opts ...Option) *Flag[float64] { return New(def, Float64Codec(), opts...) }

// String declares a string flag.
func String(def string, opts ...Option) *Flag[string] { return New(def, StringCodec(), opts...) }

// Bytes declares a byte blob flag.
func Bytes(def []byte, opts ...Option) *Flag[[]byte] { return New(def, BytesCodec(), opts...) }

// Duration declares a time.Duration flag.
func Duration(def time.Duration, opts ...Option) *Flag[time.Duration] {
	return New(def, DurationCodec(), opts...)
}

// Time declares a time.Time flag.
func Time(def time.Time, opts ...Option) *Flag[time.Time] { return New(def, TimeCodec(), opts...) }

// URL declares a *url.URL flag.
func URL(def *url.URL, opts ...Option) *Flag[*url.URL] { return New(def, URLCodec(), opts...) }

// StringSlice declares a []string flag.
func StringSlice(def []string, opts ...Option) *Flag[[]string] {
	return New(def, SliceCodec(StringCodec()), opts...)
}

// IntSlice declares a []int flag.
func IntSlice(def []int, opts ...Option) *Flag[[]int] {
	return New(def, SliceCodec(IntCodec[int]()), opts...)
}

// StringMap declares a map[string]string flag.
func StringMap(def map[string]string, opts ...Option) *Flag[map[string]string] {
	return New(def, MapCodec(StringCodec()), opts...)
}

// Optional declares a flag whose value may be absent. A provider holding an
// explicit Absent resolves to nil.
func Optional[T any](def *T, inner Codec[T], opts ...Option) *Flag[*T] {
	return New(def, OptionalCodec(inner), opts...)
}

// DocumentFlag declares a structured document flag.
func DocumentFlag(def Document, opts ...Option) *Flag[Document] {
	return New(def, DocumentCodec(), opts...)
}

// JSON declares a flag holding any JSON-serializable value.
func JSON[T any](def T, opts ...Option) *Flag[T] { return New(def, JSONCodec[T](), opts...) }

// Enum declares a string enum flag. Stored values outside allowed are ignored.
func Enum[T ~string](def T, allowed []T, opts ...Option) *Flag[T] {
	return New(def, EnumCodec(allowed...), opts...)
}
