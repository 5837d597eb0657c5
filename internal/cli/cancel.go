// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/runloom/runloom/internal/cancel"
	"github.com/runloom/runloom/internal/config"
)

func cancelCommand(args []string) error {
	var configPath string
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "config.yaml", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	remaining := fs.Args()
	if len(remaining) != 1 {
		return fmt.Errorf("task id required\n\nUsage:\n  %s cancel <task-id>", appName)
	}
	taskID := remaining[0]

	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	prober := cancel.NewHTTPProber(cfg.Cancel.BaseURL)

	ctx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()

	if err := prober.Abort(ctx, taskID); err != nil {
		return fmt.Errorf("failed to cancel run %s: %w", taskID, err)
	}

	fmt.Printf("▸ Cancellation requested for run %s\n", taskID)
	fmt.Println("▸ Unfinished steps will be reported as ABORTED; work already running at the engine is not stopped")
	return nil
}
