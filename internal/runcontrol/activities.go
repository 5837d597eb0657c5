// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package runcontrol

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.temporal.io/sdk/activity"

	"github.com/runloom/runloom/internal/cancel"
	"github.com/runloom/runloom/internal/engine"
	"github.com/runloom/runloom/internal/manifest"
	"github.com/runloom/runloom/internal/pipeline"
	"github.com/runloom/runloom/internal/runconfig"
	"github.com/runloom/runloom/internal/runerr"
	"github.com/runloom/runloom/internal/store"
	"github.com/runloom/runloom/internal/tracker"
)

// Activities bundles the five C10 activities' external collaborators:
// the workflow engine client (C11), the tracker client (C4), the
// cancellation probe (C6), and the store's RunProjector (C7). The
// manifest compiler (C3) is constructed per call from the registry
// resolver and scheduling hook supplied here, combined with the per-run
// Config carried in the activity input.
type Activities struct {
	engine    *engine.Client
	tracker   *tracker.Client
	prober    cancel.Prober
	registry  manifest.RegistryResolver
	schedule  manifest.SchedulingHook
	projector store.RunProjector
	sink      chan<- StatusEvent
}

// NewActivities builds an Activities bundle. projector is optional (nil
// is safe) and, when supplied, is fed one RunProjector call per
// PutStatusActivity so C8's reads have something to serve. sink is
// likewise optional and, when supplied, receives one StatusEvent per
// PutStatusActivity call for the HTTP/WS surface to re-broadcast; a full
// channel drops the event rather than blocking the workflow.
func NewActivities(engineClient *engine.Client, trackerClient *tracker.Client, prober cancel.Prober, registry manifest.RegistryResolver, schedule manifest.SchedulingHook, projector store.RunProjector, sink chan<- StatusEvent) *Activities {
	return &Activities{
		engine:    engineClient,
		tracker:   trackerClient,
		prober:    prober,
		registry:  registry,
		schedule:  schedule,
		projector: projector,
		sink:      sink,
	}
}

// volumesForRunConfig derives the volumes/volumeMounts every step
// container receives from the run's userdir PVC, mounted at the
// project-relative path each step's working directory is joined
// against.
func volumesForRunConfig(rc runconfig.RunConfig) ([]manifest.Volume, []manifest.VolumeMount) {
	volumes := []manifest.Volume{
		{
			"name":                  "userdir-pvc",
			"persistentVolumeClaim": map[string]any{"claimName": rc.UserdirPVC},
		},
	}
	volumeMounts := []manifest.VolumeMount{
		{Name: "userdir-pvc", MountPath: "/userdir"},
	}
	return volumes, volumeMounts
}

// SubmitWorkflowManifestActivity compiles the manifest for the pipeline
// described by input.PipelineDict and submits it to the workflow
// engine. Compilation failures (unresolved registry, missing
// environment image) and engine rejections are returned verbatim; the
// workflow treats both the same way per the error handling design.
func (a *Activities) SubmitWorkflowManifestActivity(ctx context.Context, input SubmitWorkflowManifestInput) (SubmitWorkflowManifestOutput, error) {
	logger := activity.GetLogger(ctx)

	data, err := json.Marshal(input.PipelineDict)
	if err != nil {
		return SubmitWorkflowManifestOutput{}, fmt.Errorf("%w: %v", runerr.ErrInvalidPipeline, err)
	}
	p, err := pipeline.FromJSON(data)
	if err != nil {
		return SubmitWorkflowManifestOutput{}, err
	}

	compiler := manifest.NewCompiler(input.ManifestCfg, a.registry, a.schedule)
	volumes, volumeMounts := volumesForRunConfig(input.RunConfig)

	m, err := compiler.Compile(ctx, p, input.RunConfig, input.TaskID, volumes, volumeMounts)
	if err != nil {
		logger.Error("manifest compilation failed", "task_id", input.TaskID, "error", err)
		return SubmitWorkflowManifestOutput{}, err
	}

	if err := a.engine.Submit(ctx, input.ManifestCfg.Namespace, m); err != nil {
		logger.Error("engine submission failed", "task_id", input.TaskID, "error", err)
		return SubmitWorkflowManifestOutput{}, err
	}

	logger.Info("submitted workflow manifest", "task_id", input.TaskID, "workflow", m.Metadata.Name)
	return SubmitWorkflowManifestOutput{WorkflowName: m.Metadata.Name}, nil
}

// PollWorkflowEngineActivity fetches the named workflow resource and
// reduces its status.nodes to the NodeUpdate set relevant to the
// configured manifest shape.
func (a *Activities) PollWorkflowEngineActivity(ctx context.Context, input PollWorkflowEngineInput) (PollWorkflowEngineOutput, error) {
	resource, err := a.engine.Get(ctx, input.Namespace, input.WorkflowName)
	if err != nil {
		return PollWorkflowEngineOutput{}, err
	}

	var updates []NodeUpdate
	for _, node := range resource.Status.Nodes {
		stepUUID, ok := nodeStepUUID(node, input.SingleNode)
		if !ok {
			continue
		}
		if stepUUID == "" {
			return PollWorkflowEngineOutput{}, fmt.Errorf("%w: node %q missing step identity", runerr.ErrMalformedEngineState, node.DisplayName)
		}
		updates = append(updates, NodeUpdate{StepUUID: stepUUID, Phase: node.Phase, Message: node.Message})
	}
	return PollWorkflowEngineOutput{Nodes: updates}, nil
}

// nodeStepUUID derives a node's step UUID per the manifest shape in
// effect, and reports whether the node is even relevant to the step
// state machine. A relevant node with no derivable UUID is reported as
// (ok=true, ""), which the caller turns into ErrMalformedEngineState.
func nodeStepUUID(node engine.Node, singleNode bool) (string, bool) {
	if singleNode {
		if node.Type != "Container" {
			return "", false
		}
		if node.DisplayName == "" {
			return "", true
		}
		return strings.TrimPrefix(node.DisplayName, "step-"), true
	}

	if node.TemplateName != manifest.StepTemplateName || node.Type != "Pod" || node.Inputs == nil {
		return "", false
	}
	uuid, ok := node.StepUUID()
	if !ok {
		return "", true
	}
	return uuid, true
}

// PutStatusActivity relays one status transition to the tracker,
// projects it into the store for C8's reads, and, if a sink was
// configured, fans it out for the HTTP/WS surface.
func (a *Activities) PutStatusActivity(ctx context.Context, input PutStatusInput) error {
	err := a.tracker.PutStatus(ctx, input.RunEndpoint, input.TaskID, input.Kind, input.Status, input.StepUUID)
	if err != nil {
		return err
	}

	if a.projector != nil {
		if projErr := a.recordStatus(ctx, input); projErr != nil {
			// The tracker remains the system of record; a projection
			// failure must not fail the tracker PUT that already
			// succeeded, so this is logged and swallowed.
			activity.GetLogger(ctx).Error("store projection failed", "task_id", input.TaskID, "kind", input.Kind, "error", projErr)
		}
	}

	if a.sink != nil {
		select {
		case a.sink <- StatusEvent{TaskID: input.TaskID, Kind: input.Kind, Status: input.Status, StepUUID: input.StepUUID}:
		default:
			// Slow or absent consumer: the tracker is the system of
			// record, the websocket feed is best-effort.
		}
	}
	return nil
}

// recordStatus dispatches one status transition to the RunProjector
// method it belongs to: a pipeline's first STARTED transition creates
// its row, every later pipeline transition updates it, and every step
// transition upserts that step's row.
func (a *Activities) recordStatus(ctx context.Context, input PutStatusInput) error {
	switch input.Kind {
	case tracker.KindStep:
		return a.projector.RecordStepStatus(ctx, input.TaskID, input.StepUUID, string(input.Status))
	case tracker.KindPipeline:
		if input.Status == tracker.StatusStarted {
			return a.projector.RecordPipelineStarted(ctx, input.TaskID, input.PipelineUUID, input.ProjectUUID, input.SessionUUID)
		}
		return a.projector.RecordPipelineStatus(ctx, input.TaskID, string(input.Status))
	default:
		return nil
	}
}

// GetTrackerStatusActivity reads back the tracker's current pipeline
// status, used to detect out-of-band cancellation.
func (a *Activities) GetTrackerStatusActivity(ctx context.Context, input GetTrackerStatusInput) (tracker.Status, error) {
	return a.tracker.GetPipelineStatus(ctx, input.RunEndpoint, input.TaskID)
}

// IsAbortedActivity checks the cancellation probe for task_id.
func (a *Activities) IsAbortedActivity(ctx context.Context, input IsAbortedInput) (bool, error) {
	return a.prober.IsAborted(ctx, input.TaskID)
}
