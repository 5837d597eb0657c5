// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the run-lifecycle REST + WebSocket surface
// (C8): read-only run listing/lookup, a cancel endpoint that marks the
// cancellation probe, a delete endpoint for the run store, and a
// websocket stream re-broadcasting the status events the run
// controller (C10) emits.
package server

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/runloom/runloom/internal/logger"
	"github.com/runloom/runloom/internal/runcontrol"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetAPILogger()
		log = &l
	})
	return log
}

// EventBroadcaster reads every StatusEvent the run controller's
// activities emit and fans them out to all connected WebSocket clients.
type EventBroadcaster struct {
	events  <-chan runcontrol.StatusEvent
	clients *ClientRegistry
}

// NewEventBroadcaster creates a broadcaster reading from events.
func NewEventBroadcaster(events <-chan runcontrol.StatusEvent, clients *ClientRegistry) *EventBroadcaster {
	return &EventBroadcaster{events: events, clients: clients}
}

// Run reads events until the channel is closed or ctx is cancelled.
func (b *EventBroadcaster) Run(ctx context.Context) {
	for {
		select {
		case event, ok := <-b.events:
			if !ok {
				getLog().Info().Msg("event broadcaster stopped (channel closed)")
				return
			}
			b.clients.Broadcast(event)
		case <-ctx.Done():
			getLog().Info().Msg("event broadcaster stopped (context cancelled)")
			return
		}
	}
}
