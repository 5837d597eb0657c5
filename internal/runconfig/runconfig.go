// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package runconfig defines RunConfig, the value object a caller supplies
// to start a pipeline run. It is read by the manifest compiler, the
// status tracker client, and the run controller, and is never mutated
// after construction.
package runconfig

// SessionType distinguishes interactive (JupyterLab-backed) sessions
// from non-interactive (scheduled/triggered) ones; it feeds both the
// ORCHEST_SESSION_TYPE env var and the scheduling hook.
type SessionType string

const (
	SessionInteractive    SessionType = "interactive"
	SessionNonInteractive SessionType = "non-interactive"
)

// RunConfig carries everything the compiler and controller need about a
// single pipeline run besides the Pipeline itself.
type RunConfig struct {
	ProjectUUID  string
	PipelineUUID string
	PipelinePath string
	ProjectDir   string
	UserdirPVC   string
	SessionUUID  string
	SessionType  SessionType
	RunEndpoint  string

	UserEnvVariables map[string]string
	EnvUUIDToImage   map[string]string
}
