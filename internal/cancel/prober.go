// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cancel implements the cancellation probe (C6): one HTTP call
// asking whether a run's task_id has been marked aborted.
package cancel

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/runloom/runloom/internal/logger"
	"github.com/runloom/runloom/internal/runerr"
)

var log = logger.GetCancelLogger()

// Prober answers whether taskID has been cancelled, and lets a caller
// mark it as such.
type Prober interface {
	IsAborted(ctx context.Context, taskID string) (bool, error)
	Abort(ctx context.Context, taskID string) error
}

type abortedResponse struct {
	Aborted bool `json:"aborted"`
}

// httpProber hits a cancellation-token service endpoint:
// GET {baseURL}/{taskID} -> {"aborted": bool}.
type httpProber struct {
	http    *resty.Client
	baseURL string
}

// NewHTTPProber builds a Prober backed by baseURL.
func NewHTTPProber(baseURL string) Prober {
	return &httpProber{
		http:    resty.New().SetTimeout(5 * time.Second),
		baseURL: baseURL,
	}
}

func (p *httpProber) IsAborted(ctx context.Context, taskID string) (bool, error) {
	url := p.baseURL + "/" + taskID

	var result abortedResponse
	resp, err := p.http.R().SetContext(ctx).SetResult(&result).Get(url)
	if err != nil {
		return false, fmt.Errorf("%w: %v", runerr.ErrCancelProbeUnavailable, err)
	}
	if resp.StatusCode() == 404 {
		// No cancellation record for this task_id: treat as not aborted.
		return false, nil
	}
	if resp.IsError() {
		return false, fmt.Errorf("%w: cancellation probe returned status %d", runerr.ErrCancelProbeUnavailable, resp.StatusCode())
	}

	if result.Aborted {
		log.Debug().Str("task_id", taskID).Msg("run marked aborted")
	}
	return result.Aborted, nil
}

// Abort marks taskID as cancelled with the cancellation-token service via
// PUT {baseURL}/{taskID}. Used by the HTTP surface's cancel endpoint; the
// run controller only ever reads this state through IsAborted.
func (p *httpProber) Abort(ctx context.Context, taskID string) error {
	url := p.baseURL + "/" + taskID

	resp, err := p.http.R().SetContext(ctx).SetBody(abortedResponse{Aborted: true}).Put(url)
	if err != nil {
		return fmt.Errorf("%w: %v", runerr.ErrCancelProbeUnavailable, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: cancellation mark returned status %d", runerr.ErrCancelProbeUnavailable, resp.StatusCode())
	}

	log.Info().Str("task_id", taskID).Msg("marked run aborted")
	return nil
}
