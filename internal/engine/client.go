// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/runloom/runloom/internal/logger"
	"github.com/runloom/runloom/internal/manifest"
	"github.com/runloom/runloom/internal/runerr"
)

var log = logger.GetEngineLogger()

// Client submits manifests to, and polls, an Argo-Server-compatible
// REST API: POST /api/v1/workflows/{namespace} to submit, GET
// /api/v1/workflows/{namespace}/{name} to poll. No retries — engine
// errors are not retried per the controller's error handling policy.
type Client struct {
	http    *resty.Client
	baseURL string
}

// NewClient builds an engine Client whose every request targets baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		http:    resty.New().SetTimeout(15 * time.Second),
		baseURL: baseURL,
	}
}

// Submit creates the workflow resource for manifest m in namespace.
func (c *Client) Submit(ctx context.Context, namespace string, m *manifest.Manifest) error {
	url := fmt.Sprintf("%s/api/v1/workflows/%s", c.baseURL, namespace)

	resp, err := c.http.R().SetContext(ctx).SetBody(m).Post(url)
	if err != nil {
		return fmt.Errorf("%w: %v", runerr.ErrEngineSubmissionFailure, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: engine returned status %d", runerr.ErrEngineSubmissionFailure, resp.StatusCode())
	}

	log.Info().Str("workflow", m.Metadata.Name).Str("namespace", namespace).Msg("submitted workflow manifest")
	return nil
}

// Get polls the named workflow resource in namespace.
func (c *Client) Get(ctx context.Context, namespace, name string) (*WorkflowResource, error) {
	url := fmt.Sprintf("%s/api/v1/workflows/%s/%s", c.baseURL, namespace, name)

	var resource WorkflowResource
	resp, err := c.http.R().SetContext(ctx).SetResult(&resource).Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", runerr.ErrEngineSubmissionFailure, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: engine returned status %d", runerr.ErrEngineSubmissionFailure, resp.StatusCode())
	}

	return &resource, nil
}
