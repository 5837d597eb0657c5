// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/runloom/runloom/internal/runconfig"
)

// RunConfigSource assembles a RunConfig from the project+session pair a
// run is scoped to. The run controller depends only on this interface,
// never on the relational store directly.
type RunConfigSource interface {
	BuildRunConfig(ctx context.Context, projectUUID, sessionUUID, pipelineUUID string) (runconfig.RunConfig, error)
}

// RunProjector records status transitions for read access by the HTTP
// surface (C8). The run controller depends only on this interface.
type RunProjector interface {
	RecordPipelineStarted(ctx context.Context, taskID, pipelineUUID, projectUUID, sessionUUID string) error
	RecordPipelineStatus(ctx context.Context, taskID, status string) error
	RecordStepStatus(ctx context.Context, taskID, stepUUID, status string) error
}

// GormStore is a postgres-backed implementation of RunConfigSource and
// RunProjector.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens a postgres connection using dsn.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &GormStore{db: db}, nil
}

// AutoMigrate creates or updates the store's tables.
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(
		&Project{},
		&Session{},
		&PipelineRunRecord{},
		&StepRunRecord{},
	)
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// BuildRunConfig assembles a RunConfig from the project and session
// records, mirroring the fields the compiler needs from them.
func (s *GormStore) BuildRunConfig(ctx context.Context, projectUUID, sessionUUID, pipelineUUID string) (runconfig.RunConfig, error) {
	var project Project
	if err := s.db.WithContext(ctx).First(&project, "id = ?", projectUUID).Error; err != nil {
		return runconfig.RunConfig{}, fmt.Errorf("project %s not found: %w", projectUUID, err)
	}

	var session Session
	if err := s.db.WithContext(ctx).First(&session, "uuid = ?", sessionUUID).Error; err != nil {
		return runconfig.RunConfig{}, fmt.Errorf("session %s not found: %w", sessionUUID, err)
	}

	sessionType := runconfig.SessionNonInteractive
	if session.Type == "interactive" {
		sessionType = runconfig.SessionInteractive
	}

	userEnv := make(map[string]string, len(session.UserEnvVariables))
	for k, v := range session.UserEnvVariables {
		userEnv[k] = fmt.Sprintf("%v", v)
	}
	envToImage := make(map[string]string, len(session.EnvUUIDToImage))
	for k, v := range session.EnvUUIDToImage {
		envToImage[k] = fmt.Sprintf("%v", v)
	}

	return runconfig.RunConfig{
		ProjectUUID:      projectUUID,
		PipelineUUID:     pipelineUUID,
		ProjectDir:       project.Dir,
		UserdirPVC:       project.UserdirPVC,
		SessionUUID:      sessionUUID,
		SessionType:      sessionType,
		UserEnvVariables: userEnv,
		EnvUUIDToImage:   envToImage,
	}, nil
}

// RecordPipelineStarted inserts the run's initial row.
func (s *GormStore) RecordPipelineStarted(ctx context.Context, taskID, pipelineUUID, projectUUID, sessionUUID string) error {
	return s.db.WithContext(ctx).Create(&PipelineRunRecord{
		TaskID:       taskID,
		PipelineUUID: pipelineUUID,
		ProjectUUID:  projectUUID,
		SessionUUID:  sessionUUID,
		Status:       "PENDING",
	}).Error
}

// RecordPipelineStatus updates the run's top-level status.
func (s *GormStore) RecordPipelineStatus(ctx context.Context, taskID, status string) error {
	return s.db.WithContext(ctx).
		Model(&PipelineRunRecord{}).
		Where("task_id = ?", taskID).
		Update("status", status).Error
}

// RecordStepStatus upserts the status of one step within a run.
func (s *GormStore) RecordStepStatus(ctx context.Context, taskID, stepUUID, status string) error {
	var existing StepRunRecord
	err := s.db.WithContext(ctx).
		Where("task_id = ? AND step_uuid = ?", taskID, stepUUID).
		First(&existing).Error

	if err == gorm.ErrRecordNotFound {
		return s.db.WithContext(ctx).Create(&StepRunRecord{
			TaskID:   taskID,
			StepUUID: stepUUID,
			Status:   status,
		}).Error
	}
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).
		Model(&StepRunRecord{}).
		Where("task_id = ? AND step_uuid = ?", taskID, stepUUID).
		Update("status", status).Error
}

// GetRun retrieves a pipeline run with its steps.
func (s *GormStore) GetRun(ctx context.Context, taskID string) (*PipelineRunRecord, error) {
	var run PipelineRunRecord
	err := s.db.WithContext(ctx).
		Preload("Steps").
		First(&run, "task_id = ?", taskID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// ListRuns retrieves all pipeline runs, most recent first.
func (s *GormStore) ListRuns(ctx context.Context) ([]*PipelineRunRecord, error) {
	var runs []*PipelineRunRecord
	err := s.db.WithContext(ctx).
		Preload("Steps").
		Order("created_at DESC").
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// DeleteRun deletes a pipeline run and its step records.
func (s *GormStore) DeleteRun(ctx context.Context, taskID string) error {
	return s.db.WithContext(ctx).Delete(&PipelineRunRecord{}, "task_id = ?", taskID).Error
}
