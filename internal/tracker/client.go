// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/runloom/runloom/internal/logger"
	"github.com/runloom/runloom/internal/runerr"
)

var log = logger.GetTrackerLogger()

// statusPayload is the PUT body: status plus the timestamps that apply
// to STARTED/SUCCESS/FAILURE transitions. ABORTED carries no timestamp.
type statusPayload struct {
	Status       Status  `json:"status"`
	StartedTime  *string `json:"started_time,omitempty"`
	FinishedTime *string `json:"finished_time,omitempty"`
}

// getResponse is the GET response's shape.
type getResponse struct {
	Status Status `json:"status"`
}

// Client is the tracker HTTP client. A single instance is confined to
// the run controller's lifetime.
type Client struct {
	http    *resty.Client
	baseURL string
}

// NewClient builds a tracker Client whose every request targets baseURL
// (ORCHEST_API_ADDRESS).
func NewClient(baseURL string) *Client {
	return &Client{
		http:    resty.New().SetTimeout(10 * time.Second),
		baseURL: baseURL,
	}
}

// PutStatus issues the status PUT for either a pipeline or a step. For
// kind=step, stepUUID must be non-empty. Transport errors are wrapped in
// runerr.ErrTrackerUnavailable.
func (c *Client) PutStatus(ctx context.Context, runEndpoint, taskID string, kind Kind, status Status, stepUUID string) error {
	url := c.baseURL + "/" + runEndpoint + "/" + taskID
	if kind == KindStep {
		url += "/" + stepUUID
	}

	payload := statusPayload{Status: status}
	now := time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	switch status {
	case StatusStarted:
		payload.StartedTime = &now
	case StatusSuccess, StatusFailure:
		payload.FinishedTime = &now
	}

	resp, err := c.http.R().SetContext(ctx).SetBody(payload).Put(url)
	if err != nil {
		return fmt.Errorf("%w: %v", runerr.ErrTrackerUnavailable, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: tracker returned status %d", runerr.ErrTrackerUnavailable, resp.StatusCode())
	}

	log.Debug().Str("task_id", taskID).Str("kind", string(kind)).Str("status", string(status)).Msg("put status")
	return nil
}

// GetPipelineStatus reads back the tracker's current recorded status for
// the pipeline run. A missing record is treated as ABORTED per spec.
func (c *Client) GetPipelineStatus(ctx context.Context, runEndpoint, taskID string) (Status, error) {
	url := c.baseURL + "/" + runEndpoint + "/" + taskID

	resp, err := c.http.R().SetContext(ctx).SetResult(&getResponse{}).Get(url)
	if err != nil {
		return "", fmt.Errorf("%w: %v", runerr.ErrTrackerUnavailable, err)
	}
	if resp.StatusCode() == 404 {
		return StatusAborted, nil
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: tracker returned status %d", runerr.ErrTrackerUnavailable, resp.StatusCode())
	}

	result, ok := resp.Result().(*getResponse)
	if !ok {
		return "", fmt.Errorf("%w: unexpected tracker response shape", runerr.ErrTrackerUnavailable)
	}
	return result.Status, nil
}
