// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/runloom/runloom/internal/pipeline"
)

func selectCommand(args []string) error {
	opts := &runOptions{}
	fs := flag.NewFlagSet("select", flag.ExitOnError)
	fs.StringVar(&opts.configPath, "config", "config.yaml", "Path to config file")
	fs.StringVar(&opts.taskID, "task-id", "", "Task id to use (random UUID if empty)")
	fs.StringVar(&opts.projectUUID, "project-uuid", "", "Project UUID")
	fs.StringVar(&opts.projectDir, "project-dir", ".", "Project directory mounted into step containers")
	fs.StringVar(&opts.userdirPVC, "userdir-pvc", "userdir-pvc", "Userdir PersistentVolumeClaim name")
	fs.StringVar(&opts.sessionUUID, "session-uuid", "", "Session UUID (random UUID if empty)")
	fs.StringVar(&opts.sessionType, "session-type", "non-interactive", "Session type: interactive or non-interactive")
	fs.StringVar(&opts.runEndpoint, "run-endpoint", "runs", "Tracker run endpoint segment")
	if err := fs.Parse(args); err != nil {
		return err
	}

	remaining := fs.Args()
	if len(remaining) != 1 {
		return fmt.Errorf("pipeline file required\n\nUsage:\n  %s select <pipeline.json>", appName)
	}
	pipelineFile := remaining[0]

	data, err := os.ReadFile(pipelineFile)
	if err != nil {
		return fmt.Errorf("failed to read pipeline file: %w", err)
	}
	p, err := pipeline.FromJSON(data)
	if err != nil {
		return fmt.Errorf("failed to parse pipeline: %w", err)
	}

	uuids := make([]string, 0, len(p.Steps))
	for uuid := range p.Steps {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)

	stepOptions := make([]huh.Option[string], len(uuids))
	for i, uuid := range uuids {
		step := p.Steps[uuid]
		label := step.Title
		if label == "" {
			label = uuid
		} else {
			label = fmt.Sprintf("%s (%s)", label, uuid)
		}
		stepOptions[i] = huh.NewOption(label, uuid)
	}

	var chosen []string
	mode := "induced"
	inclusive := false

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Select steps to run").
				Options(stepOptions...).
				Value(&chosen).
				Validate(func(s []string) error {
					if len(s) == 0 {
						return fmt.Errorf("select at least one step")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How should the selection be expanded?").
				Options(
					huh.NewOption("Run exactly the selected steps (induced subgraph)", "induced"),
					huh.NewOption("Run the selected steps plus everything they depend on (ancestor closure)", "incoming"),
				).
				Value(&mode),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Include the selected steps themselves, not just their ancestors?").
				Value(&inclusive),
		).WithHideFunc(func() bool { return mode != "incoming" }),
	).WithTheme(huh.ThemeCharm())

	if err := form.Run(); err != nil {
		return fmt.Errorf("selection cancelled: %w", err)
	}

	switch mode {
	case "induced":
		opts.selectStr = strings.Join(chosen, ",")
	case "incoming":
		opts.incoming = strings.Join(chosen, ",")
		opts.inclusive = inclusive
	}

	return executeRun(pipelineFile, opts)
}
