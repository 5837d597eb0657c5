// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/runloom/runloom/internal/cancel"
	"github.com/runloom/runloom/internal/config"
	"github.com/runloom/runloom/internal/engine"
	"github.com/runloom/runloom/internal/logger"
	"github.com/runloom/runloom/internal/manifest"
	"github.com/runloom/runloom/internal/orchestrator/temporal"
	"github.com/runloom/runloom/internal/orchestrator/temporal/workers"
	"github.com/runloom/runloom/internal/runcontrol"
	"github.com/runloom/runloom/internal/server"
	"github.com/runloom/runloom/internal/store"
	"github.com/runloom/runloom/internal/tracker"
)

func main() {
	cfg, err := config.NewConfig("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.CloseGlobal()

	mainLog := logger.GetLogger("main")
	mainLog.Info().Msg("Starting runloom server")

	ctx, cancelCtx := context.WithCancel(context.Background())

	runStore, err := store.NewGormStore(cfg.Database.GetDSN())
	if err != nil {
		mainLog.Error().Err(err).Msg("Error connecting to run store")
		os.Exit(1)
	}
	if err := runStore.AutoMigrate(); err != nil {
		mainLog.Error().Err(err).Msg("Error migrating run store")
		os.Exit(1)
	}
	defer runStore.Close()

	temporalClient, err := temporal.NewClient(cfg.Temporal.HostPort, cfg.Temporal.Namespace, cfg.Temporal.TaskQueue)
	if err != nil {
		mainLog.Error().Err(err).Msg("Error connecting to Temporal")
		os.Exit(1)
	}
	defer temporalClient.Close()

	engineClient := engine.NewClient(cfg.Engine.BaseURL)
	trackerClient := tracker.NewClient(cfg.Tracker.BaseURL)
	prober := cancel.NewHTTPProber(cfg.Cancel.BaseURL)
	registry := manifest.NewHTTPRegistryResolver(resty.New(), cfg.Manifest.RegistryDiscoveryURL)

	// statusEvents carries every PutStatusActivity call from the worker
	// to the HTTP/WS surface's broadcaster; a full buffer drops events
	// rather than stalling the workflow.
	statusEvents := make(chan runcontrol.StatusEvent, 256)

	worker := workers.NewWorker(
		temporalClient.GetTemporalClient(),
		cfg,
		engineClient,
		trackerClient,
		prober,
		registry,
		manifest.DefaultSchedulingHook,
		runStore,
		statusEvents,
	)
	if err := worker.Start(ctx); err != nil {
		mainLog.Error().Err(err).Msg("Error starting Temporal worker")
		os.Exit(1)
	}

	srv := server.New(&cfg.Server, statusEvents, runStore, prober)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- srv.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		mainLog.Info().Msgf("Received signal %v, shutting down...", sig)
	case err := <-serverErrChan:
		if err != nil {
			mainLog.Error().Err(err).Msg("Server error")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLog.Error().Err(err).Msg("Error shutting down server")
	}

	mainLog.Info().Msg("Shutting down worker...")
	cancelCtx()
	if err := worker.Stop(); err != nil {
		mainLog.Error().Err(err).Msg("Error stopping worker")
	}

	mainLog.Info().Msg("runloom server shut down")
}
