// flag.go: Typed flags and the resolution engine
//
// A flag resolves its value by asking the providers of its loader, in order,
// for the value stored at its key path. The first value that decodes into the
// flag's type wins. Writes push an encoded value to every candidate provider
// and report which ones accepted it.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	goerrors "errors"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/agilira/go-errors"
	"github.com/google/uuid"
)

// Origin tells where a resolved value came from.
type Origin uint8

const (
	// OriginDefault means no provider had a decodable value.
	OriginDefault Origin = iota
	// OriginComputed means the flag's computed function produced the value.
	OriginComputed
	// OriginProvider means Resolution.Source produced the value.
	OriginProvider
)

// String returns "default", "computed" or "provider".
func (o Origin) String() string {
	switch o {
	case OriginComputed:
		return "computed"
	case OriginProvider:
		return "provider"
	}
	return "default"
}

// Resolution is the outcome of resolving a flag. Source is nil unless
// Origin is OriginProvider.
type Resolution[T any] struct {
	Value  T
	Source Provider
	Origin Origin
}

// ResolveOption narrows a single resolution.
type ResolveOption func(*resolveSettings)

type resolveSettings struct {
	only []ProviderType
}

// OnlyFrom restricts a resolution to providers of the given types. Exclusion
// lists are ignored for an explicit request.
func OnlyFrom(types ...ProviderType) ResolveOption {
	return func(s *resolveSettings) { s.only = append(s.only, types...) }
}

// binding links a registered node to its loader without keeping it alive.
type binding struct {
	loader  weak.Pointer[Loader]
	name    string
	key     KeyPath
	parents []Segment
}

// Flag is a typed configuration value with a default, resolved through the
// providers of the loader it is registered with.
//
// Thread safety: safe for concurrent use once registered.
type Flag[T any] struct {
	id       uuid.UUID
	codec    Codec[T]
	settings nodeSettings

	mu       sync.RWMutex
	def      T
	computed func() (T, bool)

	bound atomic.Pointer[binding]
}

// New declares a flag of any type with an explicit codec.
func New[T any](def T, codec Codec[T], opts ...Option) *Flag[T] {
	return &Flag[T]{
		id:       uuid.New(),
		codec:    codec,
		settings: applyOptions(opts),
		def:      def,
	}
}

// WithComputed attaches a function consulted before any provider. When it
// reports true its value short-circuits resolution. It returns f for chaining.
func (f *Flag[T]) WithComputed(fn func() (T, bool)) *Flag[T] {
	f.mu.Lock()
	f.computed = fn
	f.mu.Unlock()
	return f
}

// ID returns the flag's stable identity.
func (f *Flag[T]) ID() uuid.UUID { return f.id }

// Name returns the declared field name, or "" before registration.
func (f *Flag[T]) Name() string {
	if b := f.bound.Load(); b != nil {
		return b.name
	}
	return ""
}

// Metadata returns the flag's metadata; Name defaults to the declared field name.
func (f *Flag[T]) Metadata() Metadata {
	meta := f.settings.meta
	if meta.Name == "" {
		meta.Name = f.Name()
	}
	return meta
}

// KeyPath returns the path composed at registration, empty before it.
func (f *Flag[T]) KeyPath() KeyPath {
	if b := f.bound.Load(); b != nil {
		return b.key
	}
	return KeyPath{}
}

// Policy returns the flag's own composition policy.
func (f *Flag[T]) Policy() KeyPolicy { return f.settings.policy }

// FixedKey returns the key set with WithKey, if any.
func (f *Flag[T]) FixedKey() string { return f.settings.fixedKey }

// ExcludedProviders returns the provider types this flag ignores.
func (f *Flag[T]) ExcludedProviders() []ProviderType {
	return append([]ProviderType(nil), f.settings.excluded...)
}

// Codec returns the flag's codec.
func (f *Flag[T]) Codec() Codec[T] { return f.codec }

// DataType describes the flag's value type.
func (f *Flag[T]) DataType() string { return f.codec.TypeName() }

// Loader returns the owning loader, or nil if unregistered or collected.
func (f *Flag[T]) Loader() *Loader {
	if b := f.bound.Load(); b != nil {
		return b.loader.Value()
	}
	return nil
}

// DefaultValue returns the current default.
func (f *Flag[T]) DefaultValue() T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.def
}

// SetDefault replaces the default returned when no provider has a value.
func (f *Flag[T]) SetDefault(v T) {
	f.mu.Lock()
	f.def = v
	f.mu.Unlock()
}

// DefaultEncoded returns the encoded default.
func (f *Flag[T]) DefaultEncoded() EncodedValue { return f.codec.Encode(f.DefaultValue()) }

// Value resolves the flag and returns only the value.
func (f *Flag[T]) Value() T { return f.Resolve().Value }

// Resolve determines the flag's effective value and where it came from.
//
// Order: computed function, then providers in loader order, then default.
// Values that fail to decode are skipped like missing ones.
func (f *Flag[T]) Resolve(opts ...ResolveOption) Resolution[T] {
	f.mu.RLock()
	computed := f.computed
	def := f.def
	f.mu.RUnlock()

	if computed != nil {
		if v, ok := computed(); ok {
			return Resolution[T]{Value: v, Origin: OriginComputed}
		}
	}

	b := f.bound.Load()
	if b == nil {
		return Resolution[T]{Value: def}
	}
	loader := b.loader.Value()
	if loader == nil {
		return Resolution[T]{Value: def}
	}

	var rs resolveSettings
	for _, opt := range opts {
		opt(&rs)
	}

	for _, p := range loader.candidates(f.settings.excluded, rs.only) {
		raw, ok := p.Read(b.key)
		if !ok {
			continue
		}
		if v, ok := f.codec.Decode(raw); ok {
			return Resolution[T]{Value: v, Source: p, Origin: OriginProvider}
		}
	}
	return Resolution[T]{Value: def}
}

// Set writes v to every candidate provider and returns those that accepted
// it. With explicit types only providers of those types are written, even if
// excluded. Providers are written in order without rollback; IO failures are
// joined into a VEXILLA_PROVIDER_IO error returned alongside the accepted set.
// A value the codec cannot encode is refused with VEXILLA_SERIALIZATION_ERROR
// before any provider is touched.
func (f *Flag[T]) Set(v T, only ...ProviderType) ([]Provider, error) {
	ev, err := EncodeValue(f.codec, v)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeSerializationError, "failed to encode flag value").
			WithContext("key", f.KeyPath().FullPath()).
			WithContext("type", f.DataType())
	}
	return f.write(ev, only, AuditFlagSet)
}

// Clear deletes the flag's value from every candidate provider.
func (f *Flag[T]) Clear(only ...ProviderType) ([]Provider, error) {
	return f.write(Absent(), only, AuditFlagCleared)
}

// SetEncoded writes an already encoded value. The value must decode into the
// flag's type; Absent clears.
func (f *Flag[T]) SetEncoded(v EncodedValue, only ...ProviderType) ([]Provider, error) {
	if v.IsAbsent() {
		return f.Clear(only...)
	}
	decoded, ok := f.codec.Decode(v)
	if !ok {
		return nil, errors.New(ErrCodeUserInput, "value does not match flag type").
			WithContext("key", f.KeyPath().FullPath()).
			WithContext("type", f.DataType()).
			WithContext("kind", v.Kind().String())
	}
	return f.Set(decoded, only...)
}

// ResolveEncoded resolves the flag and returns the encoded value.
func (f *Flag[T]) ResolveEncoded(opts ...ResolveOption) EncodedResolution {
	r := f.Resolve(opts...)
	return EncodedResolution{Value: f.codec.Encode(r.Value), Source: r.Source, Origin: r.Origin}
}

// Reset removes stored overrides from every writable, non-excluded provider
// so that resolution falls back to the next provider or the default. Every
// provider is attempted; IO failures are joined into the returned error.
func (f *Flag[T]) Reset() error {
	b := f.bound.Load()
	if b == nil {
		return errors.New(ErrCodeFlagNotBound, "flag is not registered with a loader")
	}
	loader := b.loader.Value()
	if loader == nil {
		return errors.New(ErrCodeFlagNotBound, "flag loader is no longer available").
			WithContext("key", b.key.FullPath())
	}

	var failures []error
	for _, p := range loader.candidates(f.settings.excluded, nil) {
		if !p.IsWritable() {
			continue
		}
		old, _ := p.Read(b.key)
		if err := p.Reset(b.key); err != nil {
			failures = append(failures, err)
			loader.logger.Warn().Err(err).
				Str("key", b.key.FullPath()).
				Str("provider", p.Name()).
				Msg("flag reset failed")
			loader.recordAudit(AuditCritical, AuditProviderIOError, b.key, p, old, Absent())
			continue
		}
		loader.recordAudit(AuditInfo, AuditFlagReset, b.key, p, old, Absent())
	}
	if len(failures) > 0 {
		return errors.Wrap(goerrors.Join(failures...), ErrCodeProviderIO, "failed to reset flag").
			WithContext("key", b.key.FullPath())
	}
	return nil
}

func (f *Flag[T]) write(ev EncodedValue, only []ProviderType, event string) ([]Provider, error) {
	b := f.bound.Load()
	if b == nil {
		return nil, errors.New(ErrCodeFlagNotBound, "flag is not registered with a loader")
	}
	loader := b.loader.Value()
	if loader == nil {
		return nil, errors.New(ErrCodeFlagNotBound, "flag loader is no longer available").
			WithContext("key", b.key.FullPath())
	}

	var accepted []Provider
	var failures []error
	for _, p := range loader.candidates(f.settings.excluded, only) {
		if !p.IsWritable() {
			loader.recordAudit(AuditWarn, AuditWriteRejected, b.key, p, Absent(), ev)
			continue
		}
		old, _ := p.Read(b.key)
		ok, err := p.Write(b.key, ev)
		switch {
		case err != nil && HasCode(err, ErrCodeProviderReadOnly):
			loader.recordAudit(AuditWarn, AuditWriteRejected, b.key, p, old, ev)
		case err != nil:
			failures = append(failures, err)
			loader.logger.Warn().Err(err).
				Str("key", b.key.FullPath()).
				Str("provider", p.Name()).
				Msg("flag write failed")
			loader.recordAudit(AuditCritical, AuditProviderIOError, b.key, p, old, ev)
		case !ok:
			loader.recordAudit(AuditWarn, AuditWriteRejected, b.key, p, old, ev)
		default:
			accepted = append(accepted, p)
			loader.recordAudit(AuditInfo, event, b.key, p, old, ev)
		}
	}
	if len(failures) > 0 {
		return accepted, errors.Wrap(goerrors.Join(failures...), ErrCodeProviderIO, "failed to write flag").
			WithContext("key", b.key.FullPath())
	}
	return accepted, nil
}

func (f *Flag[T]) isNode() {}

func (f *Flag[T]) nodeSettings() *nodeSettings { return &f.settings }

func (f *Flag[T]) bind(l *Loader, name string, key KeyPath, parents []Segment) {
	f.bound.Store(&binding{
		loader:  weak.Make(l),
		name:    name,
		key:     key,
		parents: append([]Segment(nil), parents...),
	})
}

// EncodedResolution is a Resolution carrying the encoded value, used by
// tools that handle flags of any type.
type EncodedResolution struct {
	Value  EncodedValue
	Source Provider
	Origin Origin
}

// AnyFlag is the type-erased view of a Flag used by loaders, browsing tools
// and the CLI.
type AnyFlag interface {
	Node
	ID() uuid.UUID
	Name() string
	Metadata() Metadata
	KeyPath() KeyPath
	DataType() string
	Loader() *Loader
	ExcludedProviders() []ProviderType
	DefaultEncoded() EncodedValue
	ResolveEncoded(opts ...ResolveOption) EncodedResolution
	SetEncoded(v EncodedValue, only ...ProviderType) ([]Provider, error)
	Clear(only ...ProviderType) ([]Provider, error)
	Reset() error

	nodeSettings() *nodeSettings
	bind(l *Loader, name string, key KeyPath, parents []Segment)
}
