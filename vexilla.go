// vexilla: typed feature flags resolved from an ordered chain of providers
//
// Philosophy:
// - Flags are declared once as a plain Go tree of groups and typed flags
// - Key paths are composed once, at registration, never on the read path
// - Providers are queried in order; the first decodable value wins
// - Anything below the provider boundary is absorbed, anything at or above it is returned
//
// Example Usage:
//   type UIFlags struct {
//       vexilla.GroupInfo
//       DarkMode *vexilla.Flag[bool]
//   }
//
//   func (u *UIFlags) Children() []vexilla.Child {
//       return []vexilla.Child{vexilla.Field("darkMode", u.DarkMode)}
//   }
//
//   loader, err := vexilla.NewLoader(root, vexilla.WithProviders(local, remote))
//   enabled := root.UI.DarkMode.Value()
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"github.com/agilira/go-errors"
)

// Error codes for Vexilla operations
const (
	ErrCodeInvalidTree          = "VEXILLA_INVALID_TREE"
	ErrCodeInvalidConfig        = "VEXILLA_INVALID_CONFIG"
	ErrCodeProviderIO           = "VEXILLA_PROVIDER_IO"
	ErrCodeProviderReadOnly     = "VEXILLA_PROVIDER_READ_ONLY"
	ErrCodeUserInput            = "VEXILLA_USER_INPUT"
	ErrCodeFlagLocked           = "VEXILLA_FLAG_LOCKED"
	ErrCodeFlagNotBound         = "VEXILLA_FLAG_NOT_BOUND"
	ErrCodeUnsupportedFormat    = "VEXILLA_UNSUPPORTED_FORMAT"
	ErrCodeSerializationError   = "VEXILLA_SERIALIZATION_ERROR"
	ErrCodeIOError              = "VEXILLA_IO_ERROR"
	ErrCodeInvalidExpression    = "VEXILLA_INVALID_EXPRESSION"
	ErrCodeLoaderExists         = "VEXILLA_LOADER_EXISTS"
	ErrCodeWatcherBusy          = "VEXILLA_WATCHER_BUSY"
	ErrCodeInvalidAuditConfig   = "VEXILLA_INVALID_AUDIT_CONFIG"
	ErrCodeInvalidBufferSize    = "VEXILLA_INVALID_BUFFER_SIZE"
	ErrCodeInvalidFlushInterval = "VEXILLA_INVALID_FLUSH_INTERVAL"
	ErrCodeInvalidOutputFile    = "VEXILLA_INVALID_OUTPUT_FILE"
	ErrCodeInsecurePath         = "VEXILLA_INSECURE_PATH"
)

// ErrorHandler receives failures raised by background work (file watching,
// remote refreshes) that has no caller to return them to.
type ErrorHandler func(err error, source string)

// HasCode reports whether any error in err's chain carries the given code.
// Joined errors are searched branch by branch.
func HasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	if coder, ok := err.(errors.ErrorCoder); ok && string(coder.ErrorCode()) == code {
		return true
	}
	switch wrapped := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range wrapped.Unwrap() {
			if HasCode(e, code) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return HasCode(wrapped.Unwrap(), code)
	}
	return false
}
