// browse.go: Read and write API for flag browsing tools
//
// A browsing UI walks the tree one level at a time with ListChildren, shows a
// flag with Describe, and applies user-typed overrides with SetValue. Parse
// failures of user input are returned as VEXILLA_USER_INPUT errors so the UI
// can prompt again; they never reach the resolution engine.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"encoding/base64"
	"sort"
	"strconv"
	"strings"

	"github.com/agilira/go-errors"
)

// NodeInfo is one entry of ListChildren. Exactly one of Flag and Group is set.
type NodeInfo struct {
	Field        string
	Metadata     Metadata
	KeyPath      KeyPath
	Presentation Presentation
	Flag         AnyFlag
	Group        Group
}

// IsGroup reports whether the entry is a group.
func (n NodeInfo) IsGroup() bool { return n.Group != nil }

// ListChildren returns the immediate children of node sorted by
// Metadata.Order, declaration order breaking ties.
func ListChildren(node Configurable) []NodeInfo {
	if isNilNode(node) {
		return nil
	}
	children := node.Children()
	out := make([]NodeInfo, 0, len(children))
	for _, child := range children {
		if isNilNode(child.Node) {
			continue
		}
		info := NodeInfo{Field: child.Name}
		switch n := child.Node.(type) {
		case Group:
			gi := n.groupInfo()
			info.Group = n
			info.Metadata = gi.Metadata()
			info.KeyPath = gi.KeyPath()
			info.Presentation = gi.Presentation()
		case AnyFlag:
			info.Flag = n
			info.Metadata = n.Metadata()
			info.KeyPath = n.KeyPath()
		default:
			continue
		}
		if info.Metadata.Name == "" {
			info.Metadata.Name = child.Name
		}
		out = append(out, info)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Metadata.Order < out[j].Metadata.Order })
	return out
}

// FlagDescription is what a browsing UI shows for one flag.
type FlagDescription struct {
	Name        string
	Description string
	KeyPath     string
	DataType    string
	Value       EncodedValue
	Source      string
	Origin      Origin
	Default     EncodedValue
	Locked      bool
	Internal    bool
}

// Describe resolves f and summarizes it. Source is the provider name, or ""
// for default and computed values.
func Describe(f AnyFlag) FlagDescription {
	meta := f.Metadata()
	r := f.ResolveEncoded()
	d := FlagDescription{
		Name:        meta.Name,
		Description: meta.Description,
		KeyPath:     f.KeyPath().FullPath(),
		DataType:    f.DataType(),
		Value:       r.Value,
		Origin:      r.Origin,
		Default:     f.DefaultEncoded(),
		Locked:      meta.Locked,
		Internal:    meta.Internal,
	}
	if r.Source != nil {
		d.Source = r.Source.Name()
	}
	return d
}

// SetValue converts raw user input for f and writes it. The input is parsed
// according to the kind of f's encoded default; JSON flags take JSON text.
// When the default is Absent the kind is inferred, falling back to the raw
// string if the guess does not fit the flag. Locked flags are refused with
// VEXILLA_FLAG_LOCKED, unparsable input with VEXILLA_USER_INPUT.
func SetValue(f AnyFlag, raw string, only ...ProviderType) ([]Provider, error) {
	if f.Metadata().Locked {
		return nil, errors.New(ErrCodeFlagLocked, "flag is locked").
			WithContext("key", f.KeyPath().FullPath())
	}
	kind := f.DefaultEncoded().Kind()
	if f.DataType() == "json" {
		kind = KindString
	}
	ev, err := ParseInput(kind, raw)
	if err != nil {
		return nil, err
	}
	if kind != KindAbsent {
		return f.SetEncoded(ev, only...)
	}

	ev = InferInput(raw)
	accepted, err := f.SetEncoded(ev, only...)
	if HasCode(err, ErrCodeUserInput) && ev.Kind() != KindString && !ev.IsAbsent() {
		return f.SetEncoded(StringValue(raw), only...)
	}
	return accepted, err
}

// ParseInput converts user text into a value of the given kind. Arrays, maps
// and documents are read as JSON; bytes as base64.
func ParseInput(kind Kind, raw string) (EncodedValue, error) {
	text := strings.TrimSpace(raw)
	switch kind {
	case KindBool:
		b, ok := ParseTruthy(text)
		if !ok {
			return EncodedValue{}, inputError(kind, raw, nil)
		}
		return BoolValue(b), nil
	case KindInt:
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			if _, uerr := strconv.ParseUint(text, 10, 64); uerr == nil {
				return StringValue(text), nil
			}
			return EncodedValue{}, inputError(kind, raw, err)
		}
		return IntValue(i), nil
	case KindFloat:
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return EncodedValue{}, inputError(kind, raw, err)
		}
		return FloatValue(float32(f)), nil
	case KindDouble:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return EncodedValue{}, inputError(kind, raw, err)
		}
		return DoubleValue(f), nil
	case KindString, KindAbsent:
		return StringValue(raw), nil
	case KindBytes:
		data, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return EncodedValue{}, inputError(kind, raw, err)
		}
		return BytesValue(data), nil
	case KindArray, KindMap, KindDocument:
		return parseJSONInput(kind, raw)
	}
	return EncodedValue{}, inputError(kind, raw, nil)
}

func parseJSONInput(kind Kind, raw string) (EncodedValue, error) {
	wrapped, err := parseJSON([]byte(`{"v":` + raw + `}`))
	if err != nil {
		return EncodedValue{}, inputError(kind, raw, err)
	}
	value := wrapped["v"]
	switch kind {
	case KindArray:
		if _, ok := value.([]interface{}); !ok {
			return EncodedValue{}, inputError(kind, raw, nil)
		}
	case KindMap, KindDocument:
		m, ok := value.(map[string]interface{})
		if !ok {
			return EncodedValue{}, inputError(kind, raw, nil)
		}
		if kind == KindDocument {
			return DocumentValue(m), nil
		}
	}
	ev, _ := FromNative(value)
	return ev, nil
}

// InferInput guesses a kind for untyped input, such as a value for a flag
// whose default is nil. Integers, doubles, booleans and JSON are tried in turn.
func InferInput(raw string) EncodedValue {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Absent()
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return IntValue(i)
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return DoubleValue(f)
	}
	if b, ok := ParseTruthy(text); ok && !strings.ContainsAny(text, "0123456789") {
		return BoolValue(b)
	}
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		if wrapped, err := parseJSON([]byte(`{"v":` + text + `}`)); err == nil {
			ev, _ := FromNative(wrapped["v"])
			return ev
		}
	}
	return StringValue(raw)
}

func inputError(kind Kind, raw string, cause error) error {
	if cause == nil {
		return errors.New(ErrCodeUserInput, "cannot convert input").
			WithContext("kind", kind.String()).
			WithContext("input", raw)
	}
	return errors.Wrap(cause, ErrCodeUserInput, "cannot convert input").
		WithContext("kind", kind.String()).
		WithContext("input", raw)
}
