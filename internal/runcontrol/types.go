// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package runcontrol implements the run controller (C5/C10): a Temporal
// workflow that submits a compiled manifest, polls the workflow engine,
// translates engine node state into the step status machine, and
// relays every transition to the status tracker while honoring
// cancellation.
package runcontrol

import (
	"github.com/runloom/runloom/internal/manifest"
	"github.com/runloom/runloom/internal/runconfig"
	"github.com/runloom/runloom/internal/tracker"
)

const (
	RunPipelineWorkflowName = "RunPipelineWorkflow"

	pollInterval = 250 // milliseconds, per spec's 250ms poll loop
)

// RunPipelineWorkflowInput is RunPipelineWorkflow's sole argument.
// PipelineDict is the pipeline's to_dict() representation rather than
// the live Pipeline value: Step carries cyclic parent/child pointers
// that cannot round-trip through Temporal's JSON data converter, so the
// workflow reconstructs the graph from the dict on entry via
// pipeline.FromJSON.
type RunPipelineWorkflowInput struct {
	SessionUUID  string
	TaskID       string
	PipelineDict map[string]any
	RunConfig    runconfig.RunConfig
	ManifestCfg  manifest.Config
}

// RunPipelineWorkflowOutput is RunPipelineWorkflow's result.
type RunPipelineWorkflowOutput struct {
	PipelineStatus tracker.Status
	HadFailed      bool
}

// SubmitWorkflowManifestInput is SubmitWorkflowManifestActivity's input.
type SubmitWorkflowManifestInput struct {
	PipelineDict map[string]any
	RunConfig    runconfig.RunConfig
	ManifestCfg  manifest.Config
	TaskID       string
}

// SubmitWorkflowManifestOutput is SubmitWorkflowManifestActivity's result.
type SubmitWorkflowManifestOutput struct {
	WorkflowName string
}

// PollWorkflowEngineInput is PollWorkflowEngineActivity's input.
type PollWorkflowEngineInput struct {
	Namespace    string
	WorkflowName string
	SingleNode   bool
}

// NodeUpdate is one engine node reduced to the fields the step state
// machine needs, after shape-specific filtering (single-node vs.
// multi-node) has already been applied.
type NodeUpdate struct {
	StepUUID string
	Phase    string
	Message  string
}

// PollWorkflowEngineOutput is PollWorkflowEngineActivity's result.
type PollWorkflowEngineOutput struct {
	Nodes []NodeUpdate
}

// PutStatusInput is PutStatusActivity's input. PipelineUUID/ProjectUUID/
// SessionUUID are only consulted for the pipeline-kind STARTED
// transition, which is the row store.RunProjector.RecordPipelineStarted
// needs them for; every other transition ignores them.
type PutStatusInput struct {
	RunEndpoint  string
	TaskID       string
	Kind         tracker.Kind
	Status       tracker.Status
	StepUUID     string
	PipelineUUID string
	ProjectUUID  string
	SessionUUID  string
}

// GetTrackerStatusInput is GetTrackerStatusActivity's input.
type GetTrackerStatusInput struct {
	RunEndpoint string
	TaskID      string
}

// IsAbortedInput is IsAbortedActivity's input.
type IsAbortedInput struct {
	TaskID string
}

// StatusEvent mirrors one PutStatusActivity call, emitted on the
// optional sink channel an Activities bundle is constructed with. The
// HTTP/WS surface (C8) is the only consumer: it re-broadcasts these to
// connected websocket clients as "event" messages whose event_type is
// runcontrol.StatusEvent.
type StatusEvent struct {
	TaskID   string
	Kind     tracker.Kind
	Status   tracker.Status
	StepUUID string
}

// GetRunID lets the HTTP surface's subscription filter match events by
// run (task) id without this package depending on it.
func (e StatusEvent) GetRunID() string {
	return e.TaskID
}
