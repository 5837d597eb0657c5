// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cancel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAborted_True(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/task-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"aborted": true}`))
	}))
	defer srv.Close()

	p := NewHTTPProber(srv.URL)
	aborted, err := p.IsAborted(context.Background(), "task-1")
	require.NoError(t, err)
	assert.True(t, aborted)
}

func TestIsAborted_False(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"aborted": false}`))
	}))
	defer srv.Close()

	p := NewHTTPProber(srv.URL)
	aborted, err := p.IsAborted(context.Background(), "task-1")
	require.NoError(t, err)
	assert.False(t, aborted)
}

func TestIsAborted_MissingRecordIsNotAborted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewHTTPProber(srv.URL)
	aborted, err := p.IsAborted(context.Background(), "task-1")
	require.NoError(t, err)
	assert.False(t, aborted)
}

func TestIsAborted_TransportError(t *testing.T) {
	p := NewHTTPProber("http://127.0.0.1:0")
	_, err := p.IsAborted(context.Background(), "task-1")
	require.Error(t, err)
}

func TestAbort_PutsAbortedTrue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/task-1", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewHTTPProber(srv.URL)
	require.NoError(t, p.Abort(context.Background(), "task-1"))
}

func TestAbort_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPProber(srv.URL)
	require.Error(t, p.Abort(context.Background(), "task-1"))
}
