// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package logger

import (
	"github.com/rs/zerolog"
)

// Static logger getters that map directly to config.yaml log.levels
// These ensure consistent logger names across the codebase

// GetPipelineLogger returns a logger for graph construction and transforms.
func GetPipelineLogger() zerolog.Logger {
	return GetLogger("pipeline")
}

// GetManifestLogger returns a logger for manifest compilation.
func GetManifestLogger() zerolog.Logger {
	return GetLogger("manifest")
}

// GetRunControlLogger returns a logger for the run controller workflow.
func GetRunControlLogger() zerolog.Logger {
	return GetLogger("runcontrol")
}

// GetTrackerLogger returns a logger for the status tracker client.
func GetTrackerLogger() zerolog.Logger {
	return GetLogger("tracker")
}

// GetEngineLogger returns a logger for the workflow-engine REST client.
func GetEngineLogger() zerolog.Logger {
	return GetLogger("engine")
}

// GetCancelLogger returns a logger for the cancellation probe.
func GetCancelLogger() zerolog.Logger {
	return GetLogger("cancel")
}

// GetStoreLogger returns a logger for the run store read adapter.
func GetStoreLogger() zerolog.Logger {
	return GetLogger("store")
}

// GetTemporalLogger returns a logger for Temporal components.
func GetTemporalLogger() zerolog.Logger {
	return GetLogger("temporal")
}

// GetAPILogger returns a logger for API operations.
func GetAPILogger() zerolog.Logger {
	return GetLogger("api")
}

// GetCLILogger returns a logger for CLI operations.
func GetCLILogger() zerolog.Logger {
	return GetLogger("cli")
}
