// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/runloom/runloom/internal/config"
)

func statusCommand(args []string) error {
	var configPath string
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "config.yaml", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	remaining := fs.Args()
	if len(remaining) != 1 {
		return fmt.Errorf("task id required\n\nUsage:\n  %s status <task-id>", appName)
	}
	taskID := remaining[0]

	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client := newAPIClient(cfg)
	ctx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()

	run, err := client.getRun(ctx, taskID)
	if err != nil {
		return err
	}

	fmt.Printf("run:      %s\n", run.TaskID)
	fmt.Printf("pipeline: %s\n", run.PipelineUUID)
	fmt.Printf("status:   %s\n", run.Status)
	if run.StartedTime != nil {
		fmt.Printf("started:  %s\n", run.StartedTime.Format(time.RFC3339))
	}
	if run.FinishedTime != nil {
		fmt.Printf("finished: %s\n", run.FinishedTime.Format(time.RFC3339))
	}
	fmt.Println()
	fmt.Printf("%-36s  %s\n", "STEP", "STATUS")
	for _, step := range run.Steps {
		fmt.Printf("%-36s  %s\n", step.StepUUID, step.Status)
	}
	return nil
}
