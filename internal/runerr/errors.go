// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package runerr defines the typed error kinds raised across the run
// lifecycle: graph construction, manifest compilation, engine submission,
// and the control loop. Callers wrap a sentinel with fmt.Errorf("...: %w")
// at each boundary and match with errors.Is.
package runerr

import "errors"

var (
	// ErrInvalidPipeline is raised by the graph transforms when the input
	// JSON is malformed, references an unknown UUID, or contains a cycle.
	// No tracker calls are made for this error.
	ErrInvalidPipeline = errors.New("invalid pipeline")

	// ErrManifestCompilationFailure is raised when the registry lookup
	// fails or a step's environment has no entry in env_uuid_to_image.
	ErrManifestCompilationFailure = errors.New("manifest compilation failure")

	// ErrEngineSubmissionFailure is raised when the workflow engine
	// rejects the manifest submission. The engine client also wraps a
	// failed poll of an already submitted workflow in it.
	ErrEngineSubmissionFailure = errors.New("engine submission failure")

	// ErrMalformedEngineState is raised when a polled node record is
	// missing its expected identifying fields (displayName or the
	// step_uuid input parameter).
	ErrMalformedEngineState = errors.New("malformed engine state")

	// ErrTrackerUnavailable is raised when a tracker PUT or GET call
	// fails at the transport level. It is logged and the current
	// iteration proceeds; tracker errors are never retried.
	ErrTrackerUnavailable = errors.New("tracker unavailable")

	// ErrCancelled marks a run that exited via the cancellation probe or
	// because the tracker already reports a terminal pipeline status.
	// Treated as a normal exit path, not a failure.
	ErrCancelled = errors.New("run cancelled")

	// ErrCancelProbeUnavailable is raised when the cancellation probe
	// fails at the transport level. Like tracker errors, it is logged
	// and the current iteration proceeds treating the run as not
	// aborted, rather than failing the run outright.
	ErrCancelProbeUnavailable = errors.New("cancellation probe unavailable")
)
