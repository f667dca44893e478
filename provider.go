// provider.go: The contract every flag data source implements
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"reflect"

	"github.com/agilira/go-errors"
)

// Provider is a named value store queried by flags in precedence order.
//
// Implementations synchronize their own state; the engine may call them from
// several goroutines. Read must not block on the network: remote providers
// serve reads from a local snapshot.
type Provider interface {
	// Name identifies the provider in descriptions and audit records.
	Name() string

	// IsWritable reports whether Write and Reset may be called. The engine
	// checks it before every write.
	IsWritable() bool

	// Read returns the value stored at key, if any.
	Read(key KeyPath) (EncodedValue, bool)

	// Write stores value at key, or deletes it when value is Absent.
	// It returns false when the provider declined the write.
	Write(key KeyPath, value EncodedValue) (bool, error)

	// Reset removes any value stored at key.
	Reset(key KeyPath) error
}

// ChangeEvent reports a value that changed outside the engine.
// Value is Absent when the key was removed.
type ChangeEvent struct {
	Provider string
	Key      KeyPath
	Value    EncodedValue
}

// ChangeNotifier is implemented by providers that can push external changes.
//
// Events are best-effort: a slow consumer misses events rather than stalling
// the provider.
type ChangeNotifier interface {
	Changes() <-chan ChangeEvent
}

// KeyLister is implemented by providers that can enumerate their keys.
type KeyLister interface {
	Keys() []KeyPath
}

// ProviderType identifies the concrete type of a provider. Exclusion lists and
// read filters match on it.
type ProviderType struct {
	t reflect.Type
}

// ProviderTypeOf returns the type identity of P.
//
//	flag := vexilla.Bool(false, vexilla.ExcludeProviders(vexilla.ProviderTypeOf[*remote.Provider]()))
func ProviderTypeOf[P Provider]() ProviderType {
	return ProviderType{t: reflect.TypeFor[P]()}
}

// TypeOfProvider returns the type identity of p.
func TypeOfProvider(p Provider) ProviderType {
	if p == nil {
		return ProviderType{}
	}
	return ProviderType{t: reflect.TypeOf(p)}
}

// Matches reports whether p is of type pt.
func (pt ProviderType) Matches(p Provider) bool {
	return pt.t != nil && p != nil && reflect.TypeOf(p) == pt.t
}

// String returns the Go type name.
func (pt ProviderType) String() string {
	if pt.t == nil {
		return "<nil>"
	}
	return pt.t.String()
}

// ReadOnlyError is the contract error returned by a read-only provider whose
// Write or Reset is called anyway.
func ReadOnlyError(name string) error {
	return errors.New(ErrCodeProviderReadOnly, "provider is read-only").
		WithContext("provider", name)
}

// Notify sends ev on ch without blocking.
func Notify(ch chan ChangeEvent, ev ChangeEvent) {
	select {
	case ch <- ev:
	default:
	}
}
