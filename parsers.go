// parsers.go: Serialization formats for file-backed flag stores
//
// Supported Formats:
// - JSON (.json) - encoding/json, numbers decoded exactly
// - YAML (.yml, .yaml) - go.yaml.in/yaml/v3
// - TOML (.toml) - github.com/BurntSushi/toml
//
// All formats parse into the same nested map[string]interface{} shape, so a
// store can be converted from one format to another without loss.
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
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/agilira/go-errors"
	"go.yaml.in/yaml/v3"
)

// ConfigFormat represents a supported serialization format.
type ConfigFormat int

const (
	FormatJSON ConfigFormat = iota
	FormatYAML
	FormatTOML
	FormatUnknown
)

// String returns the canonical format name.
func (f ConfigFormat) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	}
	return "unknown"
}

// DetectFormat detects the format from the file extension.
func DetectFormat(path string) ConfigFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yml", ".yaml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	}
	return FormatUnknown
}

// ParseConfig decodes data into a nested map. Empty input yields an empty map.
func ParseConfig(data []byte, format ConfigFormat) (map[string]interface{}, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return make(map[string]interface{}), nil
	}
	switch format {
	case FormatJSON:
		return parseJSON(data)
	case FormatYAML:
		out := make(map[string]interface{})
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, errors.Wrap(err, ErrCodeSerializationError, "failed to parse YAML")
		}
		return normalizeYAML(out), nil
	case FormatTOML:
		out := make(map[string]interface{})
		if _, err := toml.Decode(string(data), &out); err != nil {
			return nil, errors.Wrap(err, ErrCodeSerializationError, "failed to parse TOML")
		}
		return out, nil
	}
	return nil, errors.New(ErrCodeUnsupportedFormat, "unsupported format").
		WithContext("format", format.String())
}

// SerializeConfig encodes a nested map. Byte blobs are written as base64
// strings so that every format can carry them.
func SerializeConfig(config map[string]interface{}, format ConfigFormat) ([]byte, error) {
	portable := portableMap(config, format)
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(portable, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeSerializationError, "failed to serialize JSON")
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(portable); err != nil {
			return nil, errors.Wrap(err, ErrCodeSerializationError, "failed to serialize YAML")
		}
		if err := enc.Close(); err != nil {
			return nil, errors.Wrap(err, ErrCodeSerializationError, "failed to serialize YAML")
		}
		return buf.Bytes(), nil
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(portable); err != nil {
			return nil, errors.Wrap(err, ErrCodeSerializationError, "failed to serialize TOML")
		}
		return buf.Bytes(), nil
	}
	return nil, errors.New(ErrCodeUnsupportedFormat, "unsupported format").
		WithContext("format", format.String())
}

// parseJSON decodes a JSON object keeping integers as int64.
func parseJSON(data []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, errors.Wrap(err, ErrCodeSerializationError, "failed to parse JSON")
	}
	if out == nil {
		out = make(map[string]interface{})
	}
	return normalizeNumbers(out).(map[string]interface{}), nil
}

// normalizeYAML converts map[interface{}]interface{} nodes left by YAML
// anchors or non-string keys into string-keyed maps.
func normalizeYAML(m map[string]interface{}) map[string]interface{} {
	for k, v := range m {
		m[k] = normalizeYAMLValue(v)
	}
	return m
}

func normalizeYAMLValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return normalizeYAML(t)
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAMLValue(val)
		}
		return out
	case []interface{}:
		for i, item := range t {
			t[i] = normalizeYAMLValue(item)
		}
		return t
	}
	return v
}

// portableMap copies config, replacing values a format cannot hold natively.
func portableMap(config map[string]interface{}, format ConfigFormat) map[string]interface{} {
	out := make(map[string]interface{}, len(config))
	for k, v := range config {
		if pv, keep := portableValue(v, format); keep {
			out[k] = pv
		}
	}
	return out
}

func portableValue(v interface{}, format ConfigFormat) (interface{}, bool) {
	switch t := v.(type) {
	case nil:
		// TOML has no null.
		return nil, format != FormatTOML
	case EncodedValue:
		return portableValue(ToNative(t), format)
	case []byte:
		return base64.StdEncoding.EncodeToString(t), true
	case float32:
		return float64(t), true
	case map[string]interface{}:
		return portableMap(t, format), true
	case Document:
		return portableMap(t, format), true
	case []interface{}:
		out := make([]interface{}, 0, len(t))
		for _, item := range t {
			if pv, keep := portableValue(item, format); keep {
				out = append(out, pv)
			}
		}
		return out, true
	}
	return v, true
}
