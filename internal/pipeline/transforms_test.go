// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uuidSet(uuids ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(uuids))
	for _, u := range uuids {
		s[u] = struct{}{}
	}
	return s
}

func stepUUIDs(p *Pipeline) map[string]struct{} {
	out := make(map[string]struct{}, len(p.Steps))
	for uuid := range p.Steps {
		out[uuid] = struct{}{}
	}
	return out
}

// P2. For any selection S, GetInducedSubgraph(S).steps has UUID set
// exactly S, and every kept step's incoming_connections equals its
// original connections intersected with S.
func TestP2_InducedSubgraph(t *testing.T) {
	p := mustLinearPipeline(t)

	sub := p.GetInducedSubgraph(uuidSet("a", "c"))

	assert.Equal(t, uuidSet("a", "c"), stepUUIDs(sub))

	c, err := sub.GetStep("c")
	require.NoError(t, err)
	assert.Empty(t, c.IncomingConnections, "b was dropped, so c has no surviving parent")

	a, err := sub.GetStep("a")
	require.NoError(t, err)
	assert.Empty(t, a.Parents)
	assert.NotContains(t, a.Children, "b")
}

// P3. incoming(S, inclusive=true).steps is the ancestor closure of S.
func TestP3_IncomingInclusive(t *testing.T) {
	p := mustLinearPipeline(t)

	closure := p.Incoming(uuidSet("c"), true)
	assert.Equal(t, uuidSet("a", "b", "c"), stepUUIDs(closure))
}

// P4. incoming(S, inclusive=false).steps = incoming(S, true).steps \ S.
func TestP4_IncomingExclusive(t *testing.T) {
	p := mustLinearPipeline(t)

	exclusive := p.Incoming(uuidSet("c"), false)
	assert.Equal(t, uuidSet("a", "b"), stepUUIDs(exclusive))
}

// Edge case from spec.md §4.2: selection {B, C} in A->B->C with
// inclusive=false yields exactly {A}.
func TestIncoming_DocumentedEdgeCase(t *testing.T) {
	p := mustLinearPipeline(t)

	result := p.Incoming(uuidSet("b", "c"), false)
	assert.Equal(t, uuidSet("a"), stepUUIDs(result))

	a, err := result.GetStep("a")
	require.NoError(t, err)
	assert.Empty(t, a.Children, "b was a seed step and must be dropped from a's children")
}

// Scenario 3: selection {B, D} in A->B->C->D with incoming(_,
// inclusive=false) yields {A, C} with edge A->C.
func TestScenario3_DiscontiguousSelection(t *testing.T) {
	doc := `{"uuid":"p","name":"n","version":"v","steps":{
		"a":{"uuid":"a","title":"A","file_path":"a.py","environment":"e","incoming_connections":[]},
		"b":{"uuid":"b","title":"B","file_path":"b.py","environment":"e","incoming_connections":["a"]},
		"c":{"uuid":"c","title":"C","file_path":"c.py","environment":"e","incoming_connections":["b"]},
		"d":{"uuid":"d","title":"D","file_path":"d.py","environment":"e","incoming_connections":["c"]}
	}}`
	p, err := FromJSON([]byte(doc))
	require.NoError(t, err)

	result := p.Incoming(uuidSet("b", "d"), false)
	assert.Equal(t, uuidSet("a", "c"), stepUUIDs(result))

	c, err := result.GetStep("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, c.IncomingConnections)
}

// P5. Adjacency symmetry: after any transform, for every step T and every
// P in T.parents, T in P.children.
func TestP5_AdjacencySymmetry(t *testing.T) {
	p := mustLinearPipeline(t)

	for _, derived := range []*Pipeline{
		p.GetInducedSubgraph(uuidSet("a", "b", "c")),
		p.Incoming(uuidSet("c"), true),
		p.Incoming(uuidSet("c"), false),
	} {
		for uuid, step := range derived.Steps {
			for parentUUID, parent := range step.Parents {
				assert.Contains(t, parent.Children, uuid, "parent %s must list %s as a child", parentUUID, uuid)
			}
		}
	}
}

func TestConvertToInducedSubgraph_IsInPlace(t *testing.T) {
	p := mustLinearPipeline(t)
	p.ConvertToInducedSubgraph(uuidSet("a", "b"))

	assert.Equal(t, uuidSet("a", "b"), stepUUIDs(p))
}
