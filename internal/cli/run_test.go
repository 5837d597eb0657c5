// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runloom/runloom/internal/pipeline"
)

const testPipelineJSON = `{
	"uuid": "pipe-1",
	"name": "test",
	"version": "1.0",
	"steps": {
		"a": {"uuid": "a", "title": "A", "file_path": "a.py", "environment": "env-1", "incoming_connections": []},
		"b": {"uuid": "b", "title": "B", "file_path": "b.py", "environment": "env-1", "incoming_connections": ["a"]}
	}
}`

func pipelineJSON() (*pipeline.Pipeline, error) {
	return pipeline.FromJSON([]byte(testPipelineJSON))
}

func TestParseUUIDSet(t *testing.T) {
	set, err := parseUUIDSet("a,b, c ")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}, "c": {}}, set)
}

func TestParseUUIDSet_RejectsEmptyEntry(t *testing.T) {
	_, err := parseUUIDSet("a,,b")
	require.Error(t, err)
}

func TestApplySubgraph_NoFlagsReturnsOriginal(t *testing.T) {
	p, err := pipelineJSON()
	require.NoError(t, err)

	out, err := applySubgraph(p, &runOptions{})
	require.NoError(t, err)
	assert.Same(t, p, out)
}

func TestApplySubgraph_SelectNarrowsToInducedSubgraph(t *testing.T) {
	// applySubgraph itself only ever sees one of select/incoming set, since
	// runCommand rejects both being set before calling it; verify the
	// induced-subgraph path narrows the step set as expected.
	p, err := pipelineJSON()
	require.NoError(t, err)

	out, err := applySubgraph(p, &runOptions{selectStr: "a"})
	require.NoError(t, err)
	assert.Len(t, out.Steps, 1)
	_, ok := out.Steps["a"]
	assert.True(t, ok)
}
