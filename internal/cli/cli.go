// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the runloom command-line entrypoint: starting
// pipeline runs, interactively selecting a step subgraph before starting
// one, watching a run's steps progress, cancelling a run, and reading
// back its current status.
package cli

import (
	"fmt"
	"os"
)

const (
	appName    = "runloom"
	appVersion = "0.1.0-alpha"
)

// Execute runs the CLI application.
func Execute() error {
	if len(os.Args) < 2 {
		return printUsage()
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "run":
		return runCommand(args)
	case "watch":
		return watchCommand(args)
	case "select":
		return selectCommand(args)
	case "cancel":
		return cancelCommand(args)
	case "status":
		return statusCommand(args)
	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)
		return nil
	case "help", "-h", "--help":
		return printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		return printUsage()
	}
}

func printUsage() error {
	fmt.Printf(`%s - pipeline run orchestrator

Usage:
  %s <command> [arguments]

Commands:
  run <pipeline.json>    Start a pipeline run
  select <pipeline.json> Interactively pick a step subgraph, then start it
  watch <task-id>        Watch a run's steps progress
  cancel <task-id>       Request cancellation of a run
  status <task-id>       Print a run's current status
  version                Print version information
  help                   Show this help message

Examples:
  %s run pipeline.json
  %s run pipeline.json --select <uuid>,<uuid> --inclusive
  %s run pipeline.json --incoming <uuid>
  %s select pipeline.json
  %s watch task-abc123
  %s cancel task-abc123
  %s status task-abc123

`, appName, appName, appName, appName, appName, appName, appName, appName, appName)
	return nil
}
