// Utility functions for the Vexilla CLI
//
// This file provides argument checks, store opening and audit recording
// shared by the command handlers.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/agilira/vexilla"
	store "github.com/agilira/vexilla/internal/cli"
)

// requireArgs fails with the command usage when any value is empty.
func requireArgs(usage string, values ...string) error {
	for _, v := range values {
		if v == "" {
			return errors.New(vexilla.ErrCodeUserInput, "missing arguments").
				WithContext("usage", usage)
		}
	}
	return nil
}

func notFound(key vexilla.KeyPath, path string) error {
	return errors.New(ErrCodeKeyNotFound, "key not found").
		WithContext("key", key.FullPath()).
		WithContext("path", path)
}

// openStore opens path using the command's --separator.
func (m *Manager) openStore(ctx *orpheus.Context, path string, pollInterval time.Duration) (store.Store, error) {
	s, err := store.OpenStore(path, store.StoreOptions{
		Separator:    ctx.GetFlagString("separator"),
		PollInterval: pollInterval,
	})
	if err != nil {
		return nil, err
	}
	logger := m.logger(ctx)
	logger.Debug().Str("path", path).Str("store", s.Name()).Msg("store opened")
	return s, nil
}

func closeStore(s store.Store) {
	_ = s.Close()
}

// audit records a change when an audit logger is configured.
func (m *Manager) audit(event string, key vexilla.KeyPath, s store.Store, oldVal, newVal vexilla.EncodedValue) {
	if m.auditLogger == nil {
		return
	}
	m.auditLogger.LogFlagChange(vexilla.AuditInfo, event, key.FullPath(), s.Name(), oldVal, newVal)
	_ = m.auditLogger.Flush()
}

func (m *Manager) context() context.Context {
	if m.ctx == nil {
		return context.Background()
	}
	return m.ctx
}
