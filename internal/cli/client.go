// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/runloom/runloom/internal/config"
	"github.com/runloom/runloom/internal/store"
)

// apiClient reads run records from the HTTP/WS surface's REST API. The
// CLI never opens the run store or tracker directly for reads: the
// server is the single source of truth for what a run's status is.
type apiClient struct {
	http    *resty.Client
	baseURL string
}

func newAPIClient(cfg *config.AppConfig) *apiClient {
	return &apiClient{
		http:    resty.New().SetTimeout(10 * time.Second),
		baseURL: fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port),
	}
}

func (c *apiClient) getRun(ctx context.Context, taskID string) (*store.PipelineRunRecord, error) {
	var run store.PipelineRunRecord
	resp, err := c.http.R().SetContext(ctx).SetResult(&run).Get(c.baseURL + "/api/v1/runs/" + taskID)
	if err != nil {
		return nil, fmt.Errorf("request to runloom server failed: %w", err)
	}
	if resp.StatusCode() == 404 {
		return nil, fmt.Errorf("run %s not found", taskID)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("runloom server returned status %d", resp.StatusCode())
	}
	return &run, nil
}
