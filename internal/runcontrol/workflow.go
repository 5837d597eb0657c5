// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package runcontrol

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/runloom/runloom/internal/pipeline"
	"github.com/runloom/runloom/internal/runerr"
	"github.com/runloom/runloom/internal/tracker"
)

var activityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 30 * time.Second,
	RetryPolicy: &temporal.RetryPolicy{
		MaximumAttempts: 1, // tracker/engine errors are never retried, per policy
	},
}

// Activity names, registered by the worker against an *Activities
// instance; the workflow refers to them by name only, per the
// orchestrator's usual Temporal convention.
const (
	submitWorkflowManifestActivity = "SubmitWorkflowManifestActivity"
	pollWorkflowEngineActivity     = "PollWorkflowEngineActivity"
	putStatusActivityName          = "PutStatusActivity"
	getTrackerStatusActivity       = "GetTrackerStatusActivity"
	isAbortedActivity              = "IsAbortedActivity"
)

// RunPipelineWorkflow drives one pipeline run from submission to
// terminal pipeline status. It owns pipeline, stepsToStart,
// stepsToFinish, and hadFailed exclusively for its entire lifetime; no
// other workflow or activity touches them.
func RunPipelineWorkflow(ctx workflow.Context, input RunPipelineWorkflowInput) (*RunPipelineWorkflowOutput, error) {
	ctx = workflow.WithActivityOptions(ctx, activityOptions)
	logger := workflow.GetLogger(ctx)

	p, err := decodePipeline(input.PipelineDict)
	if err != nil {
		// InvalidPipeline: surfaced to the caller, no tracker calls made.
		return nil, err
	}

	stepUUIDs := make([]string, 0, len(p.Steps))
	for uuid := range p.Steps {
		stepUUIDs = append(stepUUIDs, uuid)
	}

	output := &RunPipelineWorkflowOutput{}

	putPipelineStatus(ctx, input, tracker.StatusStarted, logger)

	var submitOut SubmitWorkflowManifestOutput
	submitErr := workflow.ExecuteActivity(ctx, submitWorkflowManifestActivity, SubmitWorkflowManifestInput{
		PipelineDict: input.PipelineDict,
		RunConfig:    input.RunConfig,
		ManifestCfg:  input.ManifestCfg,
		TaskID:       input.TaskID,
	}).Get(ctx, &submitOut)

	if submitErr != nil {
		logger.Error("manifest compilation or engine submission failed", "error", submitErr)
		return finalize(ctx, input, stepUUIDs, true, logger), submitErr
	}

	stepsToStart := toSet(stepUUIDs)
	stepsToFinish := toSet(stepUUIDs)
	hadFailed := false

	for {
		var pollOut PollWorkflowEngineOutput
		err := workflow.ExecuteActivity(ctx, pollWorkflowEngineActivity, PollWorkflowEngineInput{
			Namespace:    input.ManifestCfg.Namespace,
			WorkflowName: submitOut.WorkflowName,
			SingleNode:   input.ManifestCfg.SingleNode,
		}).Get(ctx, &pollOut)

		if err != nil {
			// Activity errors reach the workflow re-encoded, without their
			// wrapped sentinel, so the sentinel's message is matched too.
			if errors.Is(err, runerr.ErrMalformedEngineState) ||
				strings.Contains(err.Error(), runerr.ErrMalformedEngineState.Error()) {
				logger.Error("malformed engine state, failing run", "error", err)
				output = finalize(ctx, input, setToSlice(stepsToFinish), true, logger)
				return output, err
			}
			// Transport-level poll failures: log and retry next iteration,
			// mirroring tracker error handling.
			logger.Warn("poll failed, retrying next iteration", "error", err)
		}

		for _, node := range pollOut.Nodes {
			update, ok := stepStatusUpdate(p, node, stepsToStart, stepsToFinish)
			if !ok {
				continue
			}

			if update == tracker.StatusFailure {
				hadFailed = true
			}
			if update.IsTerminal() {
				delete(stepsToStart, node.StepUUID)
				delete(stepsToFinish, node.StepUUID)
			} else if update == tracker.StatusStarted {
				delete(stepsToStart, node.StepUUID)
			}

			putStepStatus(ctx, input, node.StepUUID, update, logger)
		}

		if len(stepsToFinish) == 0 || hadFailed {
			break
		}

		var aborted bool
		_ = workflow.ExecuteActivity(ctx, isAbortedActivity, IsAbortedInput{TaskID: input.TaskID}).Get(ctx, &aborted)
		if aborted {
			break
		}

		var trackerStatus tracker.Status
		_ = workflow.ExecuteActivity(ctx, getTrackerStatusActivity, GetTrackerStatusInput{
			RunEndpoint: input.RunConfig.RunEndpoint,
			TaskID:      input.TaskID,
		}).Get(ctx, &trackerStatus)
		if trackerStatus.IsTerminal() {
			break
		}

		_ = workflow.Sleep(ctx, pollInterval*time.Millisecond)
	}

	output = finalize(ctx, input, setToSlice(stepsToFinish), hadFailed, logger)
	return output, nil
}

// decodePipeline reconstructs the Pipeline from its to_dict()
// representation. Pure and deterministic, safe to run directly in
// workflow code.
func decodePipeline(dict map[string]any) (*pipeline.Pipeline, error) {
	data, err := json.Marshal(dict)
	if err != nil {
		return nil, err
	}
	return pipeline.FromJSON(data)
}

// stepStatusUpdate computes the decision-table status for one polled
// node, returning ok=false when no update applies.
func stepStatusUpdate(p *pipeline.Pipeline, node NodeUpdate, stepsToStart, stepsToFinish map[string]struct{}) (tracker.Status, bool) {
	_, toStart := stepsToStart[node.StepUUID]
	_, toFinish := stepsToFinish[node.StepUUID]

	if (node.Phase == "Pending" || node.Phase == "Running") &&
		(strings.Contains(node.Message, "ImagePullBackOff") || strings.Contains(node.Message, "ErrImagePull")) {
		return tracker.StatusFailure, true
	}

	if node.Phase == "Running" && toStart && !anyParentUnfinished(p, node.StepUUID, stepsToFinish) {
		return tracker.StatusStarted, true
	}

	if node.Phase == "Succeeded" && toFinish {
		return tracker.StatusSuccess, true
	}

	if (node.Phase == "Failed" || node.Phase == "Error") && toFinish {
		return tracker.StatusFailure, true
	}

	return "", false
}

// anyParentUnfinished reports whether any parent of stepUUID is still
// present in stepsToFinish, i.e. has not yet reached a terminal status.
func anyParentUnfinished(p *pipeline.Pipeline, stepUUID string, stepsToFinish map[string]struct{}) bool {
	step, err := p.GetStep(stepUUID)
	if err != nil {
		return false
	}
	for parentUUID := range step.Parents {
		if _, unfinished := stepsToFinish[parentUUID]; unfinished {
			return true
		}
	}
	return false
}

// finalize flushes ABORTED for every step still unfinished and emits
// the pipeline's terminal status.
func finalize(ctx workflow.Context, input RunPipelineWorkflowInput, remaining []string, hadFailed bool, logger workflow.Logger) *RunPipelineWorkflowOutput {
	for _, stepUUID := range remaining {
		putStepStatus(ctx, input, stepUUID, tracker.StatusAborted, logger)
	}

	final := tracker.StatusSuccess
	if hadFailed {
		final = tracker.StatusFailure
	}
	putPipelineStatus(ctx, input, final, logger)

	return &RunPipelineWorkflowOutput{PipelineStatus: final, HadFailed: hadFailed}
}

func putPipelineStatus(ctx workflow.Context, input RunPipelineWorkflowInput, status tracker.Status, logger workflow.Logger) {
	err := workflow.ExecuteActivity(ctx, putStatusActivityName, PutStatusInput{
		RunEndpoint:  input.RunConfig.RunEndpoint,
		TaskID:       input.TaskID,
		Kind:         tracker.KindPipeline,
		Status:       status,
		PipelineUUID: input.RunConfig.PipelineUUID,
		ProjectUUID:  input.RunConfig.ProjectUUID,
		SessionUUID:  input.RunConfig.SessionUUID,
	}).Get(ctx, nil)
	if err != nil {
		logger.Warn("tracker unavailable for pipeline status", "status", status, "error", err)
	}
}

func putStepStatus(ctx workflow.Context, input RunPipelineWorkflowInput, stepUUID string, status tracker.Status, logger workflow.Logger) {
	err := workflow.ExecuteActivity(ctx, putStatusActivityName, PutStatusInput{
		RunEndpoint: input.RunConfig.RunEndpoint,
		TaskID:      input.TaskID,
		Kind:        tracker.KindStep,
		Status:      status,
		StepUUID:    stepUUID,
	}).Get(ctx, nil)
	if err != nil {
		logger.Warn("tracker unavailable for step status", "step_uuid", stepUUID, "status", status, "error", err)
	}
}

func toSet(uuids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(uuids))
	for _, u := range uuids {
		set[u] = struct{}{}
	}
	return set
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	return out
}
