// Command handlers for the Vexilla CLI
//
// Every handler opens the store named by its first argument, performs one
// operation and closes the store again.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/agilira/vexilla"
	store "github.com/agilira/vexilla/internal/cli"
)

// ErrCodeKeyNotFound is returned by get and delete for a missing key.
const ErrCodeKeyNotFound = "VEXILLA_KEY_NOT_FOUND"

// handleGet prints the value stored at a key.
func (m *Manager) handleGet(ctx *orpheus.Context) error {
	path, rawKey := ctx.GetArg(0), ctx.GetArg(1)
	if err := requireArgs("get <store> <key>", path, rawKey); err != nil {
		return err
	}
	log := m.logger(ctx)

	s, err := m.openStore(ctx, path, 0)
	if err != nil {
		return err
	}
	defer closeStore(s)

	key := vexilla.ParseKeyPath(rawKey, ctx.GetFlagString("separator"))
	value, ok := s.Read(key)
	if !ok {
		return notFound(key, path)
	}
	log.Debug().Str("key", key.FullPath()).Str("kind", value.Kind().String()).Msg("value read")

	_, _ = fmt.Fprintln(m.out, value.String())
	return nil
}

// handleSet stores a value at a key. The value's kind comes from --type.
func (m *Manager) handleSet(ctx *orpheus.Context) error {
	path, rawKey, raw := ctx.GetArg(0), ctx.GetArg(1), ctx.GetArg(2)
	if err := requireArgs("set <store> <key> <value>", path, rawKey); err != nil {
		return err
	}
	log := m.logger(ctx)

	value, err := store.ParseTyped(raw, ctx.GetFlagString("type"))
	if err != nil {
		return err
	}
	if value.IsAbsent() {
		return errors.New(vexilla.ErrCodeUserInput, "value cannot be empty; use delete to remove a key").
			WithContext("key", rawKey)
	}

	s, err := m.openStore(ctx, path, 0)
	if err != nil {
		return err
	}
	defer closeStore(s)

	key := vexilla.ParseKeyPath(rawKey, ctx.GetFlagString("separator"))
	previous, _ := s.Read(key)
	written, err := s.Write(key, value)
	if err != nil {
		return err
	}
	if !written {
		return errors.New(vexilla.ErrCodeProviderReadOnly, "store declined the write").
			WithContext("path", path)
	}
	m.audit(vexilla.AuditFlagSet, key, s, previous, value)
	log.Debug().Str("key", key.FullPath()).Str("kind", value.Kind().String()).Msg("value stored")

	_, _ = fmt.Fprintf(m.out, "Set %s = %s in %s\n", key.FullPath(), value.String(), path)
	return nil
}

// handleDelete removes the value stored at a key.
func (m *Manager) handleDelete(ctx *orpheus.Context) error {
	path, rawKey := ctx.GetArg(0), ctx.GetArg(1)
	if err := requireArgs("delete <store> <key>", path, rawKey); err != nil {
		return err
	}
	log := m.logger(ctx)

	s, err := m.openStore(ctx, path, 0)
	if err != nil {
		return err
	}
	defer closeStore(s)

	key := vexilla.ParseKeyPath(rawKey, ctx.GetFlagString("separator"))
	previous, ok := s.Read(key)
	if !ok {
		return notFound(key, path)
	}
	if err := s.Reset(key); err != nil {
		return err
	}
	m.audit(vexilla.AuditFlagCleared, key, s, previous, vexilla.Absent())
	log.Debug().Str("key", key.FullPath()).Msg("value deleted")

	_, _ = fmt.Fprintf(m.out, "Deleted %s from %s\n", key.FullPath(), path)
	return nil
}

// handleList prints every stored key with its value.
func (m *Manager) handleList(ctx *orpheus.Context) error {
	path := ctx.GetArg(0)
	if err := requireArgs("list <store>", path); err != nil {
		return err
	}
	prefix := ctx.GetFlagString("prefix")

	s, err := m.openStore(ctx, path, 0)
	if err != nil {
		return err
	}
	defer closeStore(s)

	keys := store.FilterKeys(s.Keys(), prefix)
	if len(keys) == 0 {
		if prefix != "" {
			_, _ = fmt.Fprintf(m.out, "No keys found with prefix '%s'\n", prefix)
		} else {
			_, _ = fmt.Fprintln(m.out, "No keys found")
		}
		return nil
	}

	_, _ = fmt.Fprintf(m.out, "Keys in %s:\n", path)
	for _, key := range keys {
		value, ok := s.Read(key)
		if !ok {
			continue
		}
		_, _ = fmt.Fprintf(m.out, "  %s = %s\n", key.FullPath(), value.String())
	}
	return nil
}

// handleConvert copies every value of one store into another, which may use
// a different format or backend.
func (m *Manager) handleConvert(ctx *orpheus.Context) error {
	srcPath, dstPath := ctx.GetArg(0), ctx.GetArg(1)
	if err := requireArgs("convert <src> <dst>", srcPath, dstPath); err != nil {
		return err
	}
	if filepath.Clean(srcPath) == filepath.Clean(dstPath) {
		return errors.New(vexilla.ErrCodeUserInput, "source and destination are the same store").
			WithContext("path", srcPath)
	}
	log := m.logger(ctx)

	if _, err := os.Stat(srcPath); err != nil {
		return errors.Wrap(err, vexilla.ErrCodeIOError, "cannot open source store").
			WithContext("path", srcPath)
	}
	src, err := m.openStore(ctx, srcPath, 0)
	if err != nil {
		return err
	}
	defer closeStore(src)

	dst, err := m.openStore(ctx, dstPath, 0)
	if err != nil {
		return err
	}
	defer closeStore(dst)

	copied, err := store.Copy(src, dst)
	if err != nil {
		return err
	}
	log.Debug().Int("values", copied).Str("from", srcPath).Str("to", dstPath).Msg("store converted")

	_, _ = fmt.Fprintf(m.out, "Converted %d values: %s -> %s\n", copied, srcPath, dstPath)
	return nil
}

// handleWatch prints external changes to a file store until interrupted.
func (m *Manager) handleWatch(ctx *orpheus.Context) error {
	path := ctx.GetArg(0)
	if err := requireArgs("watch <store>", path); err != nil {
		return err
	}
	interval, err := time.ParseDuration(ctx.GetFlagString("interval"))
	if err != nil || interval <= 0 {
		return errors.New(vexilla.ErrCodeUserInput, "invalid interval").
			WithContext("interval", ctx.GetFlagString("interval"))
	}
	log := m.logger(ctx)

	s, err := m.openStore(ctx, path, interval)
	if err != nil {
		return err
	}
	defer closeStore(s)

	w, ok := s.(interface {
		vexilla.ChangeNotifier
		Watch(context.Context) error
	})
	if !ok {
		return errors.New(vexilla.ErrCodeUnsupportedFormat, "only file stores can be watched").
			WithContext("path", path)
	}

	runCtx, stop := signal.NotifyContext(m.context(), os.Interrupt)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- w.Watch(runCtx) }()

	_, _ = fmt.Fprintf(m.out, "Watching %s (interval: %v)\n", path, interval)
	for {
		select {
		case ev := <-w.Changes():
			if ev.Value.IsAbsent() {
				_, _ = fmt.Fprintf(m.out, "Removed %s\n", ev.Key.FullPath())
			} else {
				_, _ = fmt.Fprintf(m.out, "Changed %s = %s\n", ev.Key.FullPath(), ev.Value.String())
			}
		case err := <-done:
			log.Debug().Str("path", path).Msg("watch stopped")
			return err
		}
	}
}

// handleAuditTail prints the most recent audit events, oldest first.
func (m *Manager) handleAuditTail(ctx *orpheus.Context) error {
	path := ctx.GetArg(0)
	if path == "" && m.auditLogger != nil {
		path = m.auditLogger.Config().OutputFile
	}
	if err := requireArgs("audit tail <trail>", path); err != nil {
		return err
	}

	events, err := vexilla.ReadAuditTrail(path, ctx.GetFlagInt("limit"))
	if err != nil {
		return err
	}
	if len(events) == 0 {
		_, _ = fmt.Fprintln(m.out, "No audit events")
		return nil
	}
	for _, ev := range events {
		mark := ""
		if !vexilla.VerifyAuditEvent(ev) {
			mark = " [checksum mismatch]"
		}
		_, _ = fmt.Fprintf(m.out, "%s %-8s %-14s %s@%s: %s -> %s%s\n",
			ev.Timestamp.UTC().Format(time.RFC3339),
			ev.Level.String(),
			ev.Event,
			ev.Key,
			ev.Provider,
			ev.OldValue.String(),
			ev.NewValue.String(),
			mark)
	}
	return nil
}
