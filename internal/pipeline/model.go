// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pipeline implements the pipeline graph model and its transforms:
// parsing a JSON pipeline description into an in-memory DAG, and deriving
// induced subgraphs and ancestor closures from it.
package pipeline

import (
	"sort"

	"github.com/samber/lo"
)

// Step is a single node in a pipeline DAG. Two Steps are equal iff their
// UUIDs match; that equality is what transforms use to filter adjacency
// lists when they drop steps from a derived pipeline.
type Step struct {
	UUID                string
	Title               string
	FilePath            string
	Environment         string
	IncomingConnections []string

	// Properties carries any field of the source JSON step object that
	// the orchestrator does not interpret, preserved verbatim for
	// ToDict round-tripping.
	Properties map[string]any

	Parents  map[string]*Step
	Children map[string]*Step
}

// NewStep constructs a Step with empty adjacency sets.
func NewStep(uuid, title, filePath, environment string, incoming []string, properties map[string]any) *Step {
	return &Step{
		UUID:                uuid,
		Title:               title,
		FilePath:            filePath,
		Environment:         environment,
		IncomingConnections: append([]string(nil), incoming...),
		Properties:          properties,
		Parents:             make(map[string]*Step),
		Children:            make(map[string]*Step),
	}
}

// clone deep-copies a Step's scalar/Properties data but leaves its
// adjacency maps empty — callers rebuild adjacency after cloning.
func (s *Step) clone() *Step {
	return NewStep(s.UUID, s.Title, s.FilePath, s.Environment, s.IncomingConnections, deepCopyMap(s.Properties))
}

// parentUUIDs returns the sorted UUID set of s.Parents.
func (s *Step) parentUUIDs() []string {
	uuids := make([]string, 0, len(s.Parents))
	for uuid := range s.Parents {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)
	return lo.Uniq(uuids)
}

// Service is an auxiliary sidecar container belonging to a Pipeline.
// Image may be prefixed with a sentinel marker indicating it references
// an environment image by UUID rather than a literal registry reference.
type Service struct {
	Image string
	Rest  map[string]any
}

// Pipeline is a DAG of Steps plus the pipeline-level metadata the
// compiler and run controller need.
type Pipeline struct {
	UUID       string
	Name       string
	Version    string
	Settings   map[string]any
	Parameters map[string]any
	Services   map[string]Service

	// Steps is the uuid->Step arena. This doubles as the O(1) index
	// mentioned in the graph model's notes; GetStep never needs to scan.
	Steps map[string]*Step
}

// NewPipeline constructs an empty Pipeline ready to receive Steps.
func NewPipeline(uuid, name, version string, settings, parameters map[string]any, services map[string]Service) *Pipeline {
	return &Pipeline{
		UUID:       uuid,
		Name:       name,
		Version:    version,
		Settings:   settings,
		Parameters: parameters,
		Services:   services,
		Steps:      make(map[string]*Step),
	}
}

// GetStep returns the step with the given UUID, or an error if absent.
func (p *Pipeline) GetStep(uuid string) (*Step, error) {
	step, ok := p.Steps[uuid]
	if !ok {
		return nil, newInvalidPipelineErrorf("step %q not found in pipeline", uuid)
	}
	return step, nil
}

// GetParams returns the pipeline's parameter mapping.
func (p *Pipeline) GetParams() map[string]any {
	return p.Parameters
}

// deepCopyMap performs a recursive deep copy of a JSON-shaped map so
// derived pipelines never alias the source's property storage.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return val
	}
}
