// Package cli provides the command-line interface for Vexilla flag stores.
//
// The CLI is built on the Orpheus framework and operates directly on a
// store: a JSON, YAML or TOML file, or a SQLite database. Keys are full
// flag paths such as ui/dark_mode.
//
// Commands:
//   - get <store> <key>
//   - set <store> <key> <value> [--type=auto]
//   - delete <store> <key>
//   - list <store> [--prefix=]
//   - convert <src> <dst>
//   - watch <store> [--interval=1s]
//   - audit tail <trail> [--limit=20]
//
// Every command accepts --separator and --verbose.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"io"
	"os"

	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/agilira/vexilla"
	"github.com/rs/zerolog"
)

// Version is reported by --version.
const Version = "1.0.0"

// Manager wires the Orpheus application to the store operations.
type Manager struct {
	app         *orpheus.App
	ctx         context.Context
	out         io.Writer
	logOut      io.Writer
	auditLogger *vexilla.AuditLogger // Optional audit integration
}

// NewManager creates a CLI manager writing results to stdout and logs to
// stderr.
func NewManager() *Manager {
	app := orpheus.New("vexilla").
		SetDescription("Inspect and edit feature flag stores").
		SetVersion(Version)

	manager := &Manager{
		app:    app,
		ctx:    context.Background(),
		out:    os.Stdout,
		logOut: os.Stderr,
	}

	manager.setupStoreCommands()
	manager.setupAuditCommands()

	return manager
}

// WithAudit records every change made through the CLI.
func (m *Manager) WithAudit(auditLogger *vexilla.AuditLogger) *Manager {
	m.auditLogger = auditLogger
	return m
}

// WithOutput redirects command results and logs.
func (m *Manager) WithOutput(out, logOut io.Writer) *Manager {
	if out != nil {
		m.out = out
	}
	if logOut != nil {
		m.logOut = logOut
	}
	return m
}

// Run executes the CLI application with the provided arguments, without the
// program name.
func (m *Manager) Run(args []string) error {
	return m.app.Run(args)
}

// Command Setup Methods

// setupStoreCommands configures the commands operating on a single store.
func (m *Manager) setupStoreCommands() {
	// get <store> <key>
	getCmd := orpheus.NewCommand("get", "Print the value stored at a key").
		SetHandler(m.handleGet)
	m.addCommonFlags(getCmd)
	m.app.AddCommand(getCmd)

	// set <store> <key> <value> [--type=auto]
	setCmd := orpheus.NewCommand("set", "Store a value at a key").
		AddFlag("type", "t", "auto", "Value type (auto|bool|int|float|double|string|bytes|array|map|document)").
		SetHandler(m.handleSet)
	m.addCommonFlags(setCmd)
	m.app.AddCommand(setCmd)

	// watch <store> [--interval=1s]
	watchCmd := orpheus.NewCommand("watch", "Print external changes to a file store").
		AddFlag("interval", "i", "1s", "Polling interval").
		SetHandler(m.handleWatch)
	m.addCommonFlags(watchCmd)
	m.app.AddCommand(watchCmd)

	// delete <store> <key>
	deleteCmd := orpheus.NewCommand("delete", "Remove the value stored at a key").
		SetHandler(m.handleDelete)
	m.addCommonFlags(deleteCmd)
	m.app.AddCommand(deleteCmd)

	// list <store> [--prefix=]
	listCmd := orpheus.NewCommand("list", "List stored keys and values").
		AddFlag("prefix", "p", "", "Key prefix filter").
		SetHandler(m.handleList)
	m.addCommonFlags(listCmd)
	m.app.AddCommand(listCmd)

	// convert <src> <dst>
	convertCmd := orpheus.NewCommand("convert", "Copy every value of one store into another").
		SetHandler(m.handleConvert)
	m.addCommonFlags(convertCmd)
	m.app.AddCommand(convertCmd)
}

// setupAuditCommands configures the 'audit' command group.
func (m *Manager) setupAuditCommands() {
	auditCmd := orpheus.NewCommand("audit", "Audit trail inspection")

	// audit tail <trail> [--limit=20]
	tailCmd := auditCmd.Subcommand("tail", "Print the most recent audit events", m.handleAuditTail)
	tailCmd.AddIntFlag("limit", "l", 20, "Maximum events (0 for all)")
	m.addCommonFlags(tailCmd)

	m.app.AddCommand(auditCmd)
}

func (m *Manager) addCommonFlags(cmd *orpheus.Command) {
	cmd.AddFlag("separator", "s", vexilla.DefaultSeparator, "Key segment separator")
	cmd.AddBoolFlag("verbose", "v", false, "Verbose output")
}

// logger returns a console logger honoring --verbose.
func (m *Manager) logger(ctx *orpheus.Context) zerolog.Logger {
	level := zerolog.WarnLevel
	if ctx.GetFlagBool("verbose") {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: m.logOut, NoColor: true}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
