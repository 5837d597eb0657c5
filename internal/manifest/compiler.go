// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package manifest

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/runloom/runloom/internal/pipeline"
	"github.com/runloom/runloom/internal/runconfig"
	"github.com/runloom/runloom/internal/runerr"
)

// Config holds the process-wide, read-once-at-startup settings the
// compiler needs beyond what a single RunConfig/Pipeline carry.
type Config struct {
	Namespace                  string
	Cluster                    string
	HostGID                    int
	SingleNode                 bool
	UserContainersCPU          string
	EnvironmentAsServicePrefix string
}

// Compiler turns a Pipeline + RunConfig into a Manifest.
type Compiler struct {
	cfg      Config
	registry RegistryResolver
	schedule SchedulingHook
}

// NewCompiler constructs a Compiler. schedule defaults to
// DefaultSchedulingHook when nil.
func NewCompiler(cfg Config, registry RegistryResolver, schedule SchedulingHook) *Compiler {
	if schedule == nil {
		schedule = DefaultSchedulingHook
	}
	return &Compiler{cfg: cfg, registry: registry, schedule: schedule}
}

// Compile builds the workflow manifest for pipeline p under run config
// rc, naming the workflow "pipeline-run-task-<taskID>" and mounting
// volumes/volumeMounts verbatim into every step container.
func (c *Compiler) Compile(
	ctx context.Context,
	p *pipeline.Pipeline,
	rc runconfig.RunConfig,
	taskID string,
	volumes []Volume,
	volumeMounts []VolumeMount,
) (*Manifest, error) {
	registryAddress, err := c.registry.ResolveRegistryAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", runerr.ErrManifestCompilationFailure, err)
	}

	steps := sortedSteps(p)
	tasks := make([]stepTask, 0, len(steps))
	for _, step := range steps {
		task, err := c.compileStep(step, rc, registryAddress)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	m := &Manifest{
		APIVersion: "argoproj.io/v1alpha1",
		Kind:       "Workflow",
		Metadata: ManifestMetadata{
			Name: fmt.Sprintf("pipeline-run-task-%s", taskID),
			Labels: map[string]string{
				"project_uuid": rc.ProjectUUID,
				"session_uuid": rc.SessionUUID,
			},
		},
		Spec: ManifestSpec{
			Entrypoint: EntrypointName,
			Volumes:    volumes,
			TTLStrategy: TTLStrategy{
				SecondsAfterCompletion: 1000,
				SecondsAfterSuccess:    1000,
				SecondsAfterFailure:    1000,
			},
			DNSPolicy: "ClusterFirst",
			DNSConfig: DNSConfig{
				Options: []DNSOption{
					{Name: "timeout", Value: "10"},
					{Name: "attempts", Value: "5"},
				},
			},
			RestartPolicy: "Never",
			Templates:     c.templates(tasks, volumeMounts),
		},
	}

	c.schedule(rc.SessionType, m)
	return m, nil
}

// stepTask carries both manifest shapes' per-step task so templates()
// can pick the one it needs without recompiling anything.
type stepTask struct {
	singleNode ContainerTask
	multiNode  DAGTask
}

func (c *Compiler) compileStep(step *pipeline.Step, rc runconfig.RunConfig, registryAddress string) (stepTask, error) {
	image, ok := rc.EnvUUIDToImage[step.Environment]
	if !ok {
		return stepTask{}, fmt.Errorf("%w: no image for environment %q (step %q)", runerr.ErrManifestCompilationFailure, step.Environment, step.UUID)
	}
	fullImage := registryAddress + "/" + image

	projectRelativeFilePath := path.Join(path.Dir(rc.PipelinePath), step.FilePath)
	workingDir := path.Dir(projectRelativeFilePath)

	env := envVars(rc, c.cfg, step.UUID)
	name := "step-" + step.UUID
	dependencies := parentTaskNames(step)

	task := stepTask{
		singleNode: ContainerTask{
			Name:            name,
			Dependencies:    dependencies,
			RestartPolicy:   "Never",
			ImagePullPolicy: "IfNotPresent",
			Env:             env,
			Image:           fullImage,
			Command:         []string{"/orchest/bootscript.sh", "runnable", workingDir, projectRelativeFilePath},
			Resources:       ResourceRequests{Requests: map[string]string{"cpu": c.cfg.UserContainersCPU}},
		},
		multiNode: DAGTask{
			Name:         name,
			Dependencies: dependencies,
			Template:     StepTemplateName,
			Arguments: Arguments{Parameters: []Parameter{
				{Name: "step_uuid", Value: step.UUID},
				{Name: "image", Value: fullImage},
				{Name: "working_dir", Value: workingDir},
				{Name: "project_relative_file_path", Value: projectRelativeFilePath},
				{Name: "pod_spec_patch", Value: podSpecPatch(env)},
				{Name: "tests_uuid", Value: step.UUID},
			}},
		},
	}
	return task, nil
}

// envVars returns user_env_variables first, then the eight reserved
// ORCHEST_* variables. Order matters: reserved names shadow user names
// via the runner's last-write-wins semantics.
func envVars(rc runconfig.RunConfig, cfg Config, stepUUID string) []EnvVar {
	env := make([]EnvVar, 0, len(rc.UserEnvVariables)+8)
	for _, name := range sortedKeys(rc.UserEnvVariables) {
		env = append(env, EnvVar{Name: name, Value: rc.UserEnvVariables[name]})
	}
	env = append(env,
		EnvVar{Name: "ORCHEST_STEP_UUID", Value: stepUUID},
		EnvVar{Name: "ORCHEST_SESSION_UUID", Value: rc.SessionUUID},
		EnvVar{Name: "ORCHEST_SESSION_TYPE", Value: string(rc.SessionType)},
		EnvVar{Name: "ORCHEST_PIPELINE_UUID", Value: rc.PipelineUUID},
		EnvVar{Name: "ORCHEST_PIPELINE_PATH", Value: rc.PipelinePath},
		EnvVar{Name: "ORCHEST_PROJECT_UUID", Value: rc.ProjectUUID},
		EnvVar{Name: "ORCHEST_NAMESPACE", Value: cfg.Namespace},
		EnvVar{Name: "ORCHEST_CLUSTER", Value: cfg.Cluster},
	)
	return env
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func parentTaskNames(step *pipeline.Step) []string {
	uuids := make([]string, 0, len(step.Parents))
	for uuid := range step.Parents {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)
	names := make([]string, len(uuids))
	for i, uuid := range uuids {
		names[i] = "step-" + uuid
	}
	return names
}

func sortedSteps(p *pipeline.Pipeline) []*pipeline.Step {
	uuids := make([]string, 0, len(p.Steps))
	for uuid := range p.Steps {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)
	steps := make([]*pipeline.Step, len(uuids))
	for i, uuid := range uuids {
		steps[i] = p.Steps[uuid]
	}
	return steps
}

func (c *Compiler) templates(tasks []stepTask, volumeMounts []VolumeMount) []Template {
	failFast := true
	securityContext := &SecurityContext{RunAsUser: 0, RunAsGroup: c.cfg.HostGID, FsGroup: c.cfg.HostGID}
	retry := &RetryStrategy{Limit: "0", Backoff: Backoff{MaxDuration: "0s"}}

	if c.cfg.SingleNode {
		containers := make([]ContainerTask, len(tasks))
		for i, t := range tasks {
			containers[i] = t.singleNode
		}
		return []Template{
			{
				Name:            EntrypointName,
				FailFast:        &failFast,
				RetryStrategy:   retry,
				PodSpecPatch:    `{"terminationGracePeriodSeconds":1}`,
				SecurityContext: securityContext,
				ContainerSet: &ContainerSet{
					RetryStrategy: ContainerSetRetry{Retries: 0},
					VolumeMounts:  volumeMounts,
					Containers:    containers,
				},
			},
		}
	}

	dagTasks := make([]DAGTask, len(tasks))
	for i, t := range tasks {
		dagTasks[i] = t.multiNode
	}
	return []Template{
		{
			Name:          EntrypointName,
			RetryStrategy: retry,
			DAG:           &DAGSpec{FailFast: true, Tasks: dagTasks},
		},
		{
			Name:            StepTemplateName,
			SecurityContext: securityContext,
			RetryStrategy:   retry,
			Inputs: &Inputs{Parameters: []Parameter{
				{Name: "step_uuid"}, {Name: "image"}, {Name: "working_dir"},
				{Name: "project_relative_file_path"}, {Name: "pod_spec_patch"}, {Name: "tests_uuid"},
			}},
			Container: &Container{
				Image:        "{{inputs.parameters.image}}",
				Command:      []string{"/orchest/bootscript.sh", "runnable", "{{inputs.parameters.working_dir}}", "{{inputs.parameters.project_relative_file_path}}"},
				VolumeMounts: volumeMounts,
				Resources:    ResourceRequests{Requests: map[string]string{"cpu": c.cfg.UserContainersCPU}},
			},
			PodSpecPatch: "{{inputs.parameters.pod_spec_patch}}",
		},
	}
}

// podSpecPatch renders the per-task pod spec patch the multi-node shape
// feeds to the "step" template, carrying env vars scoped to this step.
func podSpecPatch(env []EnvVar) string {
	entries := make([]string, len(env))
	for i, e := range env {
		entries[i] = fmt.Sprintf(`{"name":%q,"value":%q}`, e.Name, e.Value)
	}
	envJSON := "[" + strings.Join(entries, ",") + "]"
	return fmt.Sprintf(`{"terminationGracePeriodSeconds":1,"containers":[{"name":"main","env":%s,"restartPolicy":"Never"}]}`, envJSON)
}
