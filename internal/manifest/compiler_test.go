// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package manifest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runloom/runloom/internal/pipeline"
	"github.com/runloom/runloom/internal/runconfig"
)

type fakeRegistry struct{ address string }

func (f *fakeRegistry) ResolveRegistryAddress(ctx context.Context) (string, error) {
	return f.address, nil
}

func twoStepPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	doc := `{"uuid":"pipe","name":"n","version":"v","steps":{
		"a":{"uuid":"a","title":"A","file_path":"nb/a.py","environment":"env-1","incoming_connections":[]},
		"b":{"uuid":"b","title":"B","file_path":"nb/b.py","environment":"env-1","incoming_connections":["a"]}
	}}`
	p, err := pipeline.FromJSON([]byte(doc))
	require.NoError(t, err)
	return p
}

func testRunConfig() runconfig.RunConfig {
	return runconfig.RunConfig{
		ProjectUUID:  "proj-1",
		PipelineUUID: "pipe",
		PipelinePath: "project/pipeline.orchest",
		SessionUUID:  "sess-1",
		SessionType:  runconfig.SessionInteractive,
		RunEndpoint:  "runs",
		UserEnvVariables: map[string]string{
			"MY_VAR": "1",
		},
		EnvUUIDToImage: map[string]string{
			"env-1": "myproject/env-1:latest",
		},
	}
}

// M1. Every step yields exactly one task named step-<uuid> whose
// dependencies UUID-set equals its parents' UUID set.
func TestM1_TaskNamesAndDependencies(t *testing.T) {
	p := twoStepPipeline(t)
	c := NewCompiler(Config{SingleNode: false, UserContainersCPU: "100m"}, &fakeRegistry{address: "10.0.0.1"}, nil)

	m, err := c.Compile(context.Background(), p, testRunConfig(), "task-1", nil, nil)
	require.NoError(t, err)

	dag := m.Spec.Templates[0].DAG
	require.NotNil(t, dag)
	require.Len(t, dag.Tasks, 2)

	byName := map[string]DAGTask{}
	for _, task := range dag.Tasks {
		byName[task.Name] = task
	}
	require.Contains(t, byName, "step-a")
	require.Contains(t, byName, "step-b")
	assert.Empty(t, byName["step-a"].Dependencies)
	assert.Equal(t, []string{"step-a"}, byName["step-b"].Dependencies)
}

// M2. Env-var order: all user env-vars precede all reserved env-vars;
// reserved set is exactly the eight names.
func TestM2_EnvVarOrder(t *testing.T) {
	p := twoStepPipeline(t)
	c := NewCompiler(Config{SingleNode: true, UserContainersCPU: "100m"}, &fakeRegistry{address: "10.0.0.1"}, nil)

	m, err := c.Compile(context.Background(), p, testRunConfig(), "task-1", nil, nil)
	require.NoError(t, err)

	containers := m.Spec.Templates[0].ContainerSet.Containers
	require.Len(t, containers, 2)

	env := containers[0].Env
	require.Len(t, env, 1+8)
	assert.Equal(t, "MY_VAR", env[0].Name)

	reserved := []string{
		"ORCHEST_STEP_UUID", "ORCHEST_SESSION_UUID", "ORCHEST_SESSION_TYPE",
		"ORCHEST_PIPELINE_UUID", "ORCHEST_PIPELINE_PATH", "ORCHEST_PROJECT_UUID",
	}
	for i, name := range reserved {
		assert.Equal(t, name, env[1+i].Name)
	}
}

// M3. Single-node manifests contain exactly one template; multi-node
// manifests contain exactly two, with the second named "step".
func TestM3_TemplateCounts(t *testing.T) {
	p := twoStepPipeline(t)

	single := NewCompiler(Config{SingleNode: true, UserContainersCPU: "100m"}, &fakeRegistry{address: "10.0.0.1"}, nil)
	m1, err := single.Compile(context.Background(), p, testRunConfig(), "task-1", nil, nil)
	require.NoError(t, err)
	assert.Len(t, m1.Spec.Templates, 1)

	multi := NewCompiler(Config{SingleNode: false, UserContainersCPU: "100m"}, &fakeRegistry{address: "10.0.0.1"}, nil)
	m2, err := multi.Compile(context.Background(), p, testRunConfig(), "task-1", nil, nil)
	require.NoError(t, err)
	require.Len(t, m2.Spec.Templates, 2)
	assert.Equal(t, StepTemplateName, m2.Spec.Templates[1].Name)
}

// M4. ttlStrategy values are 1000 on all three keys.
func TestM4_TTLStrategy(t *testing.T) {
	p := twoStepPipeline(t)
	c := NewCompiler(Config{SingleNode: true, UserContainersCPU: "100m"}, &fakeRegistry{address: "10.0.0.1"}, nil)

	m, err := c.Compile(context.Background(), p, testRunConfig(), "task-1", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1000, m.Spec.TTLStrategy.SecondsAfterCompletion)
	assert.Equal(t, 1000, m.Spec.TTLStrategy.SecondsAfterSuccess)
	assert.Equal(t, 1000, m.Spec.TTLStrategy.SecondsAfterFailure)
}

// Scenario 4: single-node manifest of a two-step pipeline A->B: one
// template with a containerSet of two containers named step-A, step-B,
// with B.dependencies=[step-A].
func TestScenario4_SingleNodeManifest(t *testing.T) {
	p := twoStepPipeline(t)
	c := NewCompiler(Config{SingleNode: true, UserContainersCPU: "250m"}, &fakeRegistry{address: "10.0.0.1"}, nil)

	m, err := c.Compile(context.Background(), p, testRunConfig(), "task-1", nil, nil)
	require.NoError(t, err)

	require.Len(t, m.Spec.Templates, 1)
	cs := m.Spec.Templates[0].ContainerSet
	require.NotNil(t, cs)
	require.Len(t, cs.Containers, 2)
	assert.Equal(t, "step-a", cs.Containers[0].Name)
	assert.Equal(t, "step-b", cs.Containers[1].Name)
	assert.Equal(t, []string{"step-a"}, cs.Containers[1].Dependencies)
}

// Scenario 5: multi-node manifest of the same input: first template
// dag.tasks has two tasks referencing template "step"; second template
// named "step" with the six parameters.
func TestScenario5_MultiNodeManifest(t *testing.T) {
	p := twoStepPipeline(t)
	c := NewCompiler(Config{SingleNode: false, UserContainersCPU: "250m"}, &fakeRegistry{address: "10.0.0.1"}, nil)

	m, err := c.Compile(context.Background(), p, testRunConfig(), "task-1", nil, nil)
	require.NoError(t, err)

	require.Len(t, m.Spec.Templates, 2)
	for _, task := range m.Spec.Templates[0].DAG.Tasks {
		assert.Equal(t, StepTemplateName, task.Template)
	}

	stepTemplate := m.Spec.Templates[1]
	assert.Equal(t, StepTemplateName, stepTemplate.Name)
	require.NotNil(t, stepTemplate.Inputs)
	assert.Len(t, stepTemplate.Inputs.Parameters, 6)
}

func TestCompile_MissingEnvironmentImageFails(t *testing.T) {
	p := twoStepPipeline(t)
	c := NewCompiler(Config{SingleNode: true, UserContainersCPU: "100m"}, &fakeRegistry{address: "10.0.0.1"}, nil)

	rc := testRunConfig()
	rc.EnvUUIDToImage = map[string]string{}

	_, err := c.Compile(context.Background(), p, rc, "task-1", nil, nil)
	require.Error(t, err)
}
