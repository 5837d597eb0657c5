// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import "sort"

// GetInducedSubgraph returns a new Pipeline whose steps are exactly those
// whose UUID is in selection. Every kept step is a deep copy; adjacency
// edges to steps outside selection are dropped and incoming_connections
// is rewritten to match the surviving parents.
func (p *Pipeline) GetInducedSubgraph(selection map[string]struct{}) *Pipeline {
	out := p.cloneTopLevel()

	// Clone every selected step first so cross-references can be wired.
	for uuid := range selection {
		step, ok := p.Steps[uuid]
		if !ok {
			continue
		}
		out.Steps[uuid] = step.clone()
	}

	for uuid, clone := range out.Steps {
		original := p.Steps[uuid]
		for parentUUID := range original.Parents {
			if parentClone, ok := out.Steps[parentUUID]; ok {
				clone.Parents[parentUUID] = parentClone
				parentClone.Children[uuid] = clone
			}
		}
	}

	for _, clone := range out.Steps {
		clone.IncomingConnections = sortedKeys(clone.Parents)
	}

	return out
}

// ConvertToInducedSubgraph is the in-place variant of GetInducedSubgraph,
// retained only as an optimization: it is behaviorally identical.
func (p *Pipeline) ConvertToInducedSubgraph(selection map[string]struct{}) {
	derived := p.GetInducedSubgraph(selection)
	p.Steps = derived.Steps
	p.Settings = derived.Settings
	p.Parameters = derived.Parameters
	p.Services = derived.Services
}

// Incoming returns the ancestor closure of selection: every step reachable
// by following parent edges from the selection's steps, optionally
// including the seed steps themselves. Traversal order does not matter;
// each visited step is emitted at most once.
func (p *Pipeline) Incoming(selection map[string]struct{}, inclusive bool) *Pipeline {
	visited := make(map[string]struct{})
	queue := make([]string, 0, len(selection))
	for uuid := range selection {
		queue = append(queue, uuid)
	}

	for len(queue) > 0 {
		uuid := queue[0]
		queue = queue[1:]
		if _, ok := visited[uuid]; ok {
			continue
		}
		step, ok := p.Steps[uuid]
		if !ok {
			continue
		}
		visited[uuid] = struct{}{}
		for parentUUID := range step.Parents {
			if _, ok := visited[parentUUID]; !ok {
				queue = append(queue, parentUUID)
			}
		}
	}

	out := p.cloneTopLevel()
	for uuid := range visited {
		out.Steps[uuid] = p.Steps[uuid].clone()
	}
	for uuid, clone := range out.Steps {
		original := p.Steps[uuid]
		// parents preserves original references until the set is
		// finalized, so wire every visited parent now.
		for parentUUID := range original.Parents {
			if parentClone, ok := out.Steps[parentUUID]; ok {
				clone.Parents[parentUUID] = parentClone
			}
		}
	}
	// Now that parents are final, rewrite children to drop anything not
	// in the result.
	for uuid, clone := range out.Steps {
		for parentUUID := range clone.Parents {
			out.Steps[parentUUID].Children[uuid] = clone
		}
	}

	if !inclusive {
		// A removed seed must not simply sever its edges: any step that
		// depended on it has to be re-linked to the seed's own surviving
		// ancestors, walking past chains of consecutive removed seeds, so
		// e.g. A->B->C->D with selection {B, D} leaves A->C rather than
		// stranding C with no parent.
		survivors := make(map[string]map[string]struct{}, len(out.Steps))
		for uuid := range out.Steps {
			if _, excluded := selection[uuid]; excluded {
				continue
			}
			survivors[uuid] = survivingParents(out, selection, uuid)
		}

		for uuid := range selection {
			delete(out.Steps, uuid)
		}
		for _, step := range out.Steps {
			step.Parents = make(map[string]*Step)
			step.Children = make(map[string]*Step)
		}
		for uuid, parentUUIDs := range survivors {
			clone := out.Steps[uuid]
			for parentUUID := range parentUUIDs {
				parentClone := out.Steps[parentUUID]
				clone.Parents[parentUUID] = parentClone
				parentClone.Children[uuid] = clone
			}
		}
	}

	for _, clone := range out.Steps {
		clone.IncomingConnections = sortedKeys(clone.Parents)
	}

	return out
}

// survivingParents returns the parent UUIDs step uuid should carry once
// every step in excluded is removed: excluded parents are replaced by
// their own parents, recursively, so a chain of removed seeds collapses
// to the nearest kept ancestors instead of leaving a dangling edge.
func survivingParents(p *Pipeline, excluded map[string]struct{}, uuid string) map[string]struct{} {
	result := make(map[string]struct{})
	seen := make(map[string]struct{})

	var walk func(string)
	walk = func(u string) {
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		for parentUUID := range p.Steps[u].Parents {
			if _, isExcluded := excluded[parentUUID]; isExcluded {
				walk(parentUUID)
			} else {
				result[parentUUID] = struct{}{}
			}
		}
	}
	walk(uuid)
	return result
}

// cloneTopLevel deep-copies the pipeline's top-level properties into a
// fresh Pipeline with an empty Steps arena.
func (p *Pipeline) cloneTopLevel() *Pipeline {
	services := make(map[string]Service, len(p.Services))
	for name, svc := range p.Services {
		services[name] = Service{Image: svc.Image, Rest: deepCopyMap(svc.Rest)}
	}
	return NewPipeline(p.UUID, p.Name, p.Version, deepCopyMap(p.Settings), deepCopyMap(p.Parameters), services)
}

func sortedKeys(m map[string]*Step) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
