// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutStatus_Step_IncludesStartedTime(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.PutStatus(context.Background(), "runs", "task-1", KindStep, StatusStarted, "step-a")
	require.NoError(t, err)

	assert.Equal(t, "/runs/task-1/step-a", gotPath)
	assert.Equal(t, "STARTED", gotBody["status"])
	assert.NotEmpty(t, gotBody["started_time"])
	assert.Nil(t, gotBody["finished_time"])
}

func TestPutStatus_Pipeline_NoStepSuffix(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.PutStatus(context.Background(), "runs", "task-1", KindPipeline, StatusSuccess, "")
	require.NoError(t, err)
	assert.Equal(t, "/runs/task-1", gotPath)
}

func TestPutStatus_Aborted_NoTimestamp(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.PutStatus(context.Background(), "runs", "task-1", KindStep, StatusAborted, "step-a")
	require.NoError(t, err)
	assert.Nil(t, gotBody["started_time"])
	assert.Nil(t, gotBody["finished_time"])
}

func TestPutStatus_TransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:0")
	err := c.PutStatus(context.Background(), "runs", "task-1", KindPipeline, StatusStarted, "")
	require.Error(t, err)
}

func TestGetPipelineStatus_MissingRecordIsAborted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	status, err := c.GetPipelineStatus(context.Background(), "runs", "task-1")
	require.NoError(t, err)
	assert.Equal(t, StatusAborted, status)
}

func TestGetPipelineStatus_ReturnsRecordedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "SUCCESS"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	status, err := c.GetPipelineStatus(context.Background(), "runs", "task-1")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)
}
