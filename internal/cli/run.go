// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/runloom/runloom/internal/config"
	"github.com/runloom/runloom/internal/manifest"
	"github.com/runloom/runloom/internal/orchestrator/temporal"
	"github.com/runloom/runloom/internal/pipeline"
	"github.com/runloom/runloom/internal/runconfig"
	"github.com/runloom/runloom/internal/runcontrol"
)

type runOptions struct {
	configPath string
	taskID     string
	selectStr  string // --select uuid,uuid: induced subgraph
	incoming   string // --incoming uuid,uuid: ancestor closure
	inclusive  bool   // --inclusive: seed steps are kept when using --incoming

	projectUUID string
	projectDir  string
	userdirPVC  string
	sessionUUID string
	sessionType string
	runEndpoint string
}

func runCommand(args []string) error {
	opts := &runOptions{}
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.StringVar(&opts.configPath, "config", "config.yaml", "Path to config file")
	fs.StringVar(&opts.taskID, "task-id", "", "Task id to use (random UUID if empty)")
	fs.StringVar(&opts.selectStr, "select", "", "Comma-separated step UUIDs: run only the induced subgraph")
	fs.StringVar(&opts.incoming, "incoming", "", "Comma-separated step UUIDs: run their ancestor closure")
	fs.BoolVar(&opts.inclusive, "inclusive", false, "With --incoming, also run the named steps themselves")
	fs.StringVar(&opts.projectUUID, "project-uuid", "", "Project UUID")
	fs.StringVar(&opts.projectDir, "project-dir", ".", "Project directory mounted into step containers")
	fs.StringVar(&opts.userdirPVC, "userdir-pvc", "userdir-pvc", "Userdir PersistentVolumeClaim name")
	fs.StringVar(&opts.sessionUUID, "session-uuid", "", "Session UUID (random UUID if empty)")
	fs.StringVar(&opts.sessionType, "session-type", string(runconfig.SessionNonInteractive), "Session type: interactive or non-interactive")
	fs.StringVar(&opts.runEndpoint, "run-endpoint", "runs", "Tracker run endpoint segment")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.selectStr != "" && opts.incoming != "" {
		return fmt.Errorf("--select and --incoming are mutually exclusive")
	}

	remaining := fs.Args()
	if len(remaining) != 1 {
		return fmt.Errorf("pipeline file required\n\nUsage:\n  %s run <pipeline.json>", appName)
	}

	return executeRun(remaining[0], opts)
}

func executeRun(pipelineFile string, opts *runOptions) error {
	cfg, err := config.NewConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	data, err := os.ReadFile(pipelineFile)
	if err != nil {
		return fmt.Errorf("failed to read pipeline file: %w", err)
	}

	p, err := pipeline.FromJSON(data)
	if err != nil {
		return fmt.Errorf("failed to parse pipeline: %w", err)
	}

	p, err = applySubgraph(p, opts)
	if err != nil {
		return err
	}

	if opts.taskID == "" {
		opts.taskID = uuid.New().String()
	}
	if opts.sessionUUID == "" {
		opts.sessionUUID = uuid.New().String()
	}
	sessionType := runconfig.SessionType(opts.sessionType)
	if sessionType != runconfig.SessionInteractive && sessionType != runconfig.SessionNonInteractive {
		return fmt.Errorf("invalid --session-type %q (want %q or %q)", opts.sessionType, runconfig.SessionInteractive, runconfig.SessionNonInteractive)
	}

	rc := runconfig.RunConfig{
		ProjectUUID:  opts.projectUUID,
		PipelineUUID: p.UUID,
		PipelinePath: pipelineFile,
		ProjectDir:   opts.projectDir,
		UserdirPVC:   opts.userdirPVC,
		SessionUUID:  opts.sessionUUID,
		SessionType:  sessionType,
		RunEndpoint:  opts.runEndpoint,
	}

	manifestCfg := manifest.Config{
		Namespace:                  cfg.Manifest.Namespace,
		Cluster:                    cfg.Manifest.Cluster,
		HostGID:                    cfg.Manifest.HostGID,
		SingleNode:                 cfg.Manifest.SingleNode,
		UserContainersCPU:          cfg.Manifest.UserContainersCPU,
		EnvironmentAsServicePrefix: cfg.Manifest.EnvironmentAsServicePrefix,
	}

	temporalClient, err := temporal.NewClient(cfg.Temporal.HostPort, cfg.Temporal.Namespace, cfg.Temporal.TaskQueue)
	if err != nil {
		return fmt.Errorf("failed to connect to Temporal: %w", err)
	}
	defer temporalClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	workflowID := fmt.Sprintf("pipeline-run-task-%s", opts.taskID)
	_, err = temporalClient.StartWorkflow(ctx, workflowID, runcontrol.RunPipelineWorkflow, runcontrol.RunPipelineWorkflowInput{
		SessionUUID:  opts.sessionUUID,
		TaskID:       opts.taskID,
		PipelineDict: p.ToDict(),
		RunConfig:    rc,
		ManifestCfg:  manifestCfg,
	})
	if err != nil {
		return fmt.Errorf("failed to start pipeline run: %w", err)
	}

	fmt.Printf("▸ Started run %s (workflow %s)\n", opts.taskID, workflowID)
	fmt.Printf("▸ Watch with: %s watch %s\n", appName, opts.taskID)
	return nil
}

// applySubgraph narrows p to the induced subgraph or ancestor closure
// named by --select/--incoming, or returns p unchanged when neither was
// given.
func applySubgraph(p *pipeline.Pipeline, opts *runOptions) (*pipeline.Pipeline, error) {
	switch {
	case opts.selectStr != "":
		selection, err := parseUUIDSet(opts.selectStr)
		if err != nil {
			return nil, err
		}
		return p.GetInducedSubgraph(selection), nil
	case opts.incoming != "":
		selection, err := parseUUIDSet(opts.incoming)
		if err != nil {
			return nil, err
		}
		return p.Incoming(selection, opts.inclusive), nil
	default:
		return p, nil
	}
}

func parseUUIDSet(s string) (map[string]struct{}, error) {
	parts := strings.Split(s, ",")
	set := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		id := strings.TrimSpace(part)
		if id == "" {
			return nil, fmt.Errorf("empty step UUID in list %q", s)
		}
		set[id] = struct{}{}
	}
	return set, nil
}
