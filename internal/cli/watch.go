// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"flag"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/runloom/runloom/internal/config"
	"github.com/runloom/runloom/internal/tracker"
	"github.com/runloom/runloom/internal/tui/watch"
)

func watchCommand(args []string) error {
	var configPath string
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "config.yaml", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	remaining := fs.Args()
	if len(remaining) != 1 {
		return fmt.Errorf("task id required\n\nUsage:\n  %s watch <task-id>", appName)
	}
	taskID := remaining[0]

	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client := newAPIClient(cfg)
	fetcher := func(ctx context.Context) (*watch.DataMsg, error) {
		run, err := client.getRun(ctx, taskID)
		if err != nil {
			return nil, err
		}

		steps := make([]watch.StepRow, len(run.Steps))
		for i, s := range run.Steps {
			steps[i] = watch.StepRow{UUID: s.StepUUID, Status: tracker.Status(s.Status)}
		}
		return &watch.DataMsg{
			PipelineStatus: tracker.Status(run.Status),
			Steps:          steps,
		}, nil
	}

	model := watch.New(taskID, fetcher)
	p := tea.NewProgram(model)
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	if m, ok := finalModel.(watch.Model); ok {
		fmt.Printf("final status: %s\n", m.PipelineStatus())
		if m.PipelineStatus() == tracker.StatusFailure {
			return fmt.Errorf("run %s failed", taskID)
		}
	}
	return nil
}
