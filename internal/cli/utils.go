// Store helpers for the Vexilla CLI
//
// This file maps a store path to the provider backing it and converts values
// between command-line text and encoded form.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/vexilla"
	"github.com/agilira/vexilla/providers/sqlite"
)

// Store is a provider the CLI can enumerate and release.
type Store interface {
	vexilla.Provider
	vexilla.KeyLister
	Close() error
}

// fileStore gives FileProvider the Close method it does not need.
type fileStore struct {
	*vexilla.FileProvider
}

func (fileStore) Close() error { return nil }

// IsSQLitePath reports whether path names a SQLite store.
func IsSQLitePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// StoreOptions configures OpenStore.
type StoreOptions struct {
	// Separator splits and joins key segments. Default: "/".
	Separator string

	// PollInterval is used when a file store is watched.
	PollInterval time.Duration
}

// OpenStore opens the store at path: SQLite for .db/.sqlite/.sqlite3, a
// JSON, YAML or TOML file otherwise.
func OpenStore(path string, options StoreOptions) (Store, error) {
	if path == "" {
		return nil, errors.New(vexilla.ErrCodeUserInput, "store path is required")
	}
	if options.Separator == "" {
		options.Separator = vexilla.DefaultSeparator
	}
	if IsSQLitePath(path) {
		p, err := sqlite.Open(path, sqlite.Options{Separator: options.Separator})
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	if vexilla.DetectFormat(path) == vexilla.FormatUnknown {
		return nil, errors.New(vexilla.ErrCodeUnsupportedFormat, "unsupported store extension").
			WithContext("path", path)
	}
	p, err := vexilla.NewFileProvider(path, vexilla.FileProviderOptions{
		Separator:    options.Separator,
		PollInterval: options.PollInterval,
	})
	if err != nil {
		return nil, err
	}
	return fileStore{p}, nil
}

// ParseTyped converts raw into a value of the named kind. "auto" or an empty
// name infers the kind from the text.
func ParseTyped(raw, typeName string) (vexilla.EncodedValue, error) {
	name := strings.ToLower(strings.TrimSpace(typeName))
	if name == "" || name == "auto" {
		return vexilla.InferInput(raw), nil
	}
	kind, ok := vexilla.ParseKind(name)
	if !ok || kind == vexilla.KindAbsent {
		return vexilla.EncodedValue{}, errors.New(vexilla.ErrCodeUserInput, "unknown value type").
			WithContext("type", typeName)
	}
	return vexilla.ParseInput(kind, raw)
}

// FilterKeys returns the keys whose full path starts with prefix, keeping
// their order.
func FilterKeys(keys []vexilla.KeyPath, prefix string) []vexilla.KeyPath {
	if prefix == "" {
		return keys
	}
	out := make([]vexilla.KeyPath, 0, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k.FullPath(), prefix) {
			out = append(out, k)
		}
	}
	return out
}

// Copy writes every value of src into dst and returns how many were copied.
func Copy(src, dst Store) (int, error) {
	copied := 0
	for _, key := range src.Keys() {
		v, ok := src.Read(key)
		if !ok {
			continue
		}
		if _, err := dst.Write(key, v); err != nil {
			return copied, errors.Wrap(err, vexilla.ErrCodeProviderIO, "failed to copy value").
				WithContext("key", key.FullPath())
		}
		copied++
	}
	return copied, nil
}
