// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/runloom/runloom/internal/cancel"
	"github.com/runloom/runloom/internal/config"
	"github.com/runloom/runloom/internal/engine"
	"github.com/runloom/runloom/internal/logger"
	"github.com/runloom/runloom/internal/manifest"
	"github.com/runloom/runloom/internal/runcontrol"
	"github.com/runloom/runloom/internal/store"
	"github.com/runloom/runloom/internal/tracker"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetTemporalLogger().With().Str("component", "worker").Logger()
		log = &l
	})
	return log
}

// Worker represents a Temporal worker running the run controller
// workflow against its bundled activities.
type Worker struct {
	temporalClient client.Client
	taskQueue      string
	worker         worker.Worker
	activities     *runcontrol.Activities
	config         *config.AppConfig
	mu             sync.Mutex
	stopped        bool
}

// NewWorker creates a new Temporal worker wired to the workflow
// engine, tracker, and cancellation probe clients it needs.
func NewWorker(
	temporalClient client.Client,
	cfg *config.AppConfig,
	engineClient *engine.Client,
	trackerClient *tracker.Client,
	prober cancel.Prober,
	registry manifest.RegistryResolver,
	schedule manifest.SchedulingHook,
	projector store.RunProjector,
	statusSink chan<- runcontrol.StatusEvent,
) *Worker {
	activities := runcontrol.NewActivities(engineClient, trackerClient, prober, registry, schedule, projector, statusSink)

	return &Worker{
		temporalClient: temporalClient,
		taskQueue:      cfg.Temporal.TaskQueue,
		activities:     activities,
		config:         cfg,
	}
}

// Start starts the worker
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	getLog().Info().Str("task_queue", w.taskQueue).Msg("Starting Temporal worker")

	// Check if this worker instance has been stopped before
	if w.stopped {
		return fmt.Errorf("cannot restart a stopped worker - create a new worker instance")
	}

	// Check if worker already exists
	if w.worker != nil {
		getLog().Info().Msg("Worker already started")
		return nil
	}

	// Create worker options from config
	// Note: Worker inherits logger from the client, so no need to set it here
	workerOptions := worker.Options{
		MaxConcurrentActivityExecutionSize:      w.config.Temporal.Worker.MaxConcurrentActivityExecutions,
		MaxConcurrentWorkflowTaskExecutionSize:  w.config.Temporal.Worker.MaxConcurrentWorkflows,
		MaxConcurrentLocalActivityExecutionSize: w.config.Temporal.Worker.MaxConcurrentActivityExecutions,
		WorkerActivitiesPerSecond:               w.config.Temporal.Worker.ActivitiesPerSecond,
		WorkerLocalActivitiesPerSecond:          w.config.Temporal.Worker.ActivitiesPerSecond,
		TaskQueueActivitiesPerSecond:            w.config.Temporal.Worker.ActivitiesPerSecond,
	}

	// Create a fresh worker instance
	w.worker = worker.New(w.temporalClient, w.taskQueue, workerOptions)

	// Register the run controller workflow
	w.worker.RegisterWorkflow(runcontrol.RunPipelineWorkflow)

	// Register activities
	w.registerActivities()

	// Capture worker reference to avoid race condition
	workerInstance := w.worker

	// Start the worker
	go func() {
		if err := workerInstance.Run(worker.InterruptCh()); err != nil {
			getLog().Error().Err(err).Msg("Worker stopped with error")
		}
	}()

	getLog().Info().Msg("Temporal worker started successfully")
	return nil
}

// registerActivities registers all activities with the worker
func (w *Worker) registerActivities() {
	w.worker.RegisterActivity(w.activities.SubmitWorkflowManifestActivity)
	w.worker.RegisterActivity(w.activities.PollWorkflowEngineActivity)
	w.worker.RegisterActivity(w.activities.PutStatusActivity)
	w.worker.RegisterActivity(w.activities.GetTrackerStatusActivity)
	w.worker.RegisterActivity(w.activities.IsAbortedActivity)

	getLog().Info().Msg("All activities registered with worker")
}

// Stop stops the worker gracefully
func (w *Worker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.worker != nil {
		getLog().Info().Msg("Stopping Temporal worker gracefully...")

		// Stop the worker and wait for it to finish current tasks
		w.worker.Stop()

		// Mark this worker instance as stopped to prevent reuse
		w.stopped = true

		// Clear the worker reference
		w.worker = nil

		// Give a moment for graceful shutdown to complete
		time.Sleep(200 * time.Millisecond)

		getLog().Info().Msg("Temporal worker stopped")
	}
	return nil
}

// GetRegisteredActivities returns a list of registered activity names (for testing)
func (w *Worker) GetRegisteredActivities() []string {
	return []string{
		"SubmitWorkflowManifestActivity",
		"PollWorkflowEngineActivity",
		"PutStatusActivity",
		"GetTrackerStatusActivity",
		"IsAbortedActivity",
	}
}

// GetRegisteredWorkflows returns a list of registered workflow names (for testing)
func (w *Worker) GetRegisteredWorkflows() []string {
	return []string{
		runcontrol.RunPipelineWorkflowName,
	}
}
