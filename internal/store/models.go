// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store implements the run store (C7): gorm models for the
// relational projections the rest of the system reads and writes, and
// the two narrow interfaces (RunConfigSource, RunProjector) that keep
// the run controller decoupled from the schema.
package store

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONMap is a map[string]any persisted as a JSON text column.
type JSONMap map[string]any

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("cannot scan JSONMap from non-string/[]byte value")
	}
}

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	return json.Marshal(m)
}

// Project is the owning entity a pipeline belongs to.
type Project struct {
	ID         string    `gorm:"primaryKey;type:text" json:"id"`
	Name       string    `gorm:"not null;type:text" json:"name"`
	Dir        string    `gorm:"type:text" json:"dir"`
	UserdirPVC string    `gorm:"type:text;column:userdir_pvc" json:"userdir_pvc"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`

	Sessions []Session `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"sessions,omitempty"`
}

// TableName returns the table name for Project.
func (Project) TableName() string { return "projects" }

// Session is an interactive or non-interactive session scoped to a
// project; it carries the user environment variables and
// environment-image bindings a run inherits.
type Session struct {
	UUID             string    `gorm:"primaryKey;type:text" json:"uuid"`
	ProjectID        string    `gorm:"not null;type:text;index" json:"project_id"`
	Type             string    `gorm:"type:text;not null" json:"type"` // "interactive" | "non-interactive"
	UserEnvVariables JSONMap   `gorm:"type:text;column:user_env_variables" json:"user_env_variables"`
	EnvUUIDToImage   JSONMap   `gorm:"type:text;column:env_uuid_to_image" json:"env_uuid_to_image"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Session.
func (Session) TableName() string { return "sessions" }

// PipelineRunRecord is the durable projection of one run_config +
// pipeline submission: the row the HTTP surface (C8) reads to answer
// GET /api/v1/runs and GET /api/v1/runs/{id}.
type PipelineRunRecord struct {
	TaskID       string     `gorm:"primaryKey;type:text;column:task_id" json:"task_id"`
	PipelineUUID string     `gorm:"type:text;index" json:"pipeline_uuid"`
	ProjectUUID  string     `gorm:"type:text;index" json:"project_uuid"`
	SessionUUID  string     `gorm:"type:text;index" json:"session_uuid"`
	Status       string     `gorm:"type:text;not null" json:"status"`
	StartedTime  *time.Time `json:"started_time,omitempty"`
	FinishedTime *time.Time `json:"finished_time,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`

	Steps []StepRunRecord `gorm:"foreignKey:TaskID;references:TaskID;constraint:OnDelete:CASCADE" json:"steps,omitempty"`
}

// TableName returns the table name for PipelineRunRecord.
func (PipelineRunRecord) TableName() string { return "pipeline_run_records" }

// StepRunRecord is the durable projection of one step's status
// transitions within a run.
type StepRunRecord struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	TaskID       string     `gorm:"not null;type:text;index:idx_step_run_task_step,unique" json:"task_id"`
	StepUUID     string     `gorm:"not null;type:text;index:idx_step_run_task_step,unique" json:"step_uuid"`
	Status       string     `gorm:"type:text;not null" json:"status"`
	StartedTime  *time.Time `json:"started_time,omitempty"`
	FinishedTime *time.Time `json:"finished_time,omitempty"`
}

// TableName returns the table name for StepRunRecord.
func (StepRunRecord) TableName() string { return "step_run_records" }
