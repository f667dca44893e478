// Vexilla CLI - inspect and edit feature flag stores
//
// Set VEXILLA_AUDIT_ENABLED=true and VEXILLA_AUDIT_OUTPUT_FILE to record every
// change made through the CLI.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/agilira/vexilla"
	"github.com/agilira/vexilla/cmd/cli"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	config, err := vexilla.LoadConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	manager := cli.NewManager()
	if config.Audit.Enabled {
		auditLogger, err := vexilla.NewAuditLogger(config.Audit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer func() { _ = auditLogger.Close() }()
		manager.WithAudit(auditLogger)
	}

	if err := manager.Run(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
