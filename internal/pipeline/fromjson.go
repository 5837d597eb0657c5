// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"encoding/json"

	"github.com/runloom/runloom/internal/logger"
)

var log = logger.GetPipelineLogger()

// jsonStep mirrors the wire shape of a single entry in the pipeline
// JSON's "steps" map. Unknown fields are retained via the Rest map so
// ToDict can round-trip them.
type jsonStep struct {
	UUID                string          `json:"uuid"`
	Title               string          `json:"title"`
	FilePath            string          `json:"file_path"`
	Environment         string          `json:"environment"`
	IncomingConnections []string        `json:"incoming_connections"`
	Rest                map[string]any  `json:"-"`
}

type jsonService struct {
	Image string         `json:"image"`
	Rest  map[string]any `json:"-"`
}

type jsonPipeline struct {
	UUID       string                  `json:"uuid"`
	Name       string                  `json:"name"`
	Version    string                  `json:"version"`
	Settings   map[string]any          `json:"settings"`
	Parameters map[string]any          `json:"parameters"`
	Services   map[string]jsonService  `json:"services"`
	Steps      map[string]jsonStep     `json:"steps"`
}

// FromJSON builds a Pipeline from a pipeline description document. It
// builds the uuid->Step map first, then resolves parents/children in a
// second pass so forward references work regardless of key order. Fails
// with runerr.ErrInvalidPipeline when incoming_connections references an
// unknown UUID or a cycle is detected.
func FromJSON(data []byte) (*Pipeline, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, newInvalidPipelineErrorf("malformed pipeline json: %v", err)
	}

	var doc jsonPipeline
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, newInvalidPipelineErrorf("malformed pipeline json: %v", err)
	}

	rawSteps, _ := raw["steps"].(map[string]any)
	rawServices, _ := raw["services"].(map[string]any)

	p := NewPipeline(doc.UUID, doc.Name, doc.Version, doc.Settings, doc.Parameters, make(map[string]Service))
	for name, svc := range doc.Services {
		rest := sideCar(rawServices, name, "image")
		p.Services[name] = Service{Image: svc.Image, Rest: rest}
	}

	// First pass: construct every Step with no adjacency populated yet.
	for uuid, js := range doc.Steps {
		if js.UUID != "" && js.UUID != uuid {
			return nil, newInvalidPipelineErrorf("step key %q does not match its uuid field %q", uuid, js.UUID)
		}
		rest := sideCar(rawSteps, uuid, "uuid", "title", "file_path", "environment", "incoming_connections")
		p.Steps[uuid] = NewStep(uuid, js.Title, js.FilePath, js.Environment, js.IncomingConnections, rest)
	}

	// Second pass: resolve incoming_connections into parent/child edges.
	for uuid, step := range p.Steps {
		for _, parentUUID := range step.IncomingConnections {
			parent, ok := p.Steps[parentUUID]
			if !ok {
				return nil, newInvalidPipelineErrorf("step %q references unknown parent %q", uuid, parentUUID)
			}
			step.Parents[parentUUID] = parent
			parent.Children[uuid] = step
		}
	}

	if err := detectCycle(p); err != nil {
		return nil, err
	}

	log.Debug().Str("pipeline_uuid", p.UUID).Int("steps", len(p.Steps)).Msg("constructed pipeline from json")
	return p, nil
}

// sideCar extracts every key of raw[id] not in known, for ToDict
// round-tripping of fields the model does not interpret.
func sideCar(raw map[string]any, id string, known ...string) map[string]any {
	obj, ok := raw[id].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	skip := make(map[string]struct{}, len(known))
	for _, k := range known {
		skip[k] = struct{}{}
	}
	rest := make(map[string]any)
	for k, v := range obj {
		if _, ok := skip[k]; ok {
			continue
		}
		rest[k] = v
	}
	return rest
}

// detectCycle runs a DFS over the parent relation, per step, to confirm
// acyclicity. Uses the classic white/gray/black coloring.
func detectCycle(p *Pipeline) error {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(p.Steps))

	var visit func(uuid string, path []string) error
	visit = func(uuid string, path []string) error {
		switch color[uuid] {
		case black:
			return nil
		case gray:
			return newInvalidPipelineErrorf("cycle detected at step %q", uuid)
		}
		color[uuid] = gray
		step := p.Steps[uuid]
		for parentUUID := range step.Parents {
			if err := visit(parentUUID, append(path, uuid)); err != nil {
				return err
			}
		}
		color[uuid] = black
		return nil
	}

	for uuid := range p.Steps {
		if err := visit(uuid, nil); err != nil {
			return err
		}
	}
	return nil
}

// ToDict renders the pipeline back to its wire shape. It is the inverse
// of FromJSON up to key presence: parents/children are not serialized,
// only incoming_connections is.
func (p *Pipeline) ToDict() map[string]any {
	steps := make(map[string]any, len(p.Steps))
	for uuid, step := range p.Steps {
		entry := map[string]any{
			"uuid":                 step.UUID,
			"title":                step.Title,
			"file_path":            step.FilePath,
			"environment":          step.Environment,
			"incoming_connections": append([]string(nil), step.IncomingConnections...),
		}
		for k, v := range step.Properties {
			entry[k] = v
		}
		steps[uuid] = entry
	}

	services := make(map[string]any, len(p.Services))
	for name, svc := range p.Services {
		entry := map[string]any{"image": svc.Image}
		for k, v := range svc.Rest {
			entry[k] = v
		}
		services[name] = entry
	}

	return map[string]any{
		"uuid":       p.UUID,
		"name":       p.Name,
		"version":    p.Version,
		"settings":   p.Settings,
		"parameters": p.Parameters,
		"services":   services,
		"steps":      steps,
	}
}
