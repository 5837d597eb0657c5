// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/runloom/runloom/internal/store"
)

// runReader is the read side of the run store the HTTP surface depends
// on: list and lookup of the durable run projection.
type runReader interface {
	ListRuns(ctx context.Context) ([]*store.PipelineRunRecord, error)
	GetRun(ctx context.Context, taskID string) (*store.PipelineRunRecord, error)
	DeleteRun(ctx context.Context, taskID string) error
}

// runCanceller marks a run's task id as aborted with the cancellation
// probe service; the next IsAbortedActivity poll inside the running
// workflow observes it.
type runCanceller interface {
	Abort(ctx context.Context, taskID string) error
}

// Handlers holds the dependencies the run-lifecycle HTTP handlers need.
type Handlers struct {
	broadcaster *EventBroadcaster
	runs        runReader
	canceller   runCanceller
}

// NewHandlers creates the handler set.
func NewHandlers(broadcaster *EventBroadcaster, runs runReader, canceller runCanceller) *Handlers {
	return &Handlers{broadcaster: broadcaster, runs: runs, canceller: canceller}
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		getLog().Error().Err(err).Msg("failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, clientMsg string, err error) {
	if err != nil {
		getLog().Error().Err(err).Msg(clientMsg)
	}
	writeJSON(w, status, map[string]string{"error": clientMsg})
}

// ListRuns handles GET /api/v1/runs
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load runs", err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /api/v1/runs/{id}
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(chi.URLParam(r, "id"))
	if taskID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id is required"})
		return
	}

	run, err := h.runs.GetRun(r.Context(), taskID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load run", err)
		return
	}
	if run == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// CancelRun handles POST /api/v1/runs/{id}/cancel
func (h *Handlers) CancelRun(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(chi.URLParam(r, "id"))
	if taskID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id is required"})
		return
	}

	if err := h.canceller.Abort(r.Context(), taskID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to cancel run", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

// DeleteRun handles DELETE /api/v1/runs/{id}
func (h *Handlers) DeleteRun(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(chi.URLParam(r, "id"))
	if taskID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id is required"})
		return
	}

	if err := h.runs.DeleteRun(r.Context(), taskID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete run", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
