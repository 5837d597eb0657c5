// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package manifest compiles a pipeline.Pipeline plus a runconfig.RunConfig
// into an Argo-Workflows-compatible manifest, in one of two shapes:
// single-node (a containerSet) or multi-node (a dag of pods).
package manifest

// EnvVar is a single container environment variable entry.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// VolumeMount describes where a volume is mounted inside a step
// container. Callers derive these from RunConfig (project dir, userdir
// PVC) before calling Compile.
type VolumeMount struct {
	Name      string `json:"name"`
	MountPath string `json:"mountPath"`
}

// Volume is an opaque Argo volume entry; its exact shape depends on the
// backing PVC/hostPath setup, which is out of this component's scope.
type Volume map[string]any

// ResourceRequests is the containers' "resources.requests" block.
type ResourceRequests struct {
	Requests map[string]string `json:"requests"`
}

// ContainerTask is a single-node manifest's per-step container entry.
type ContainerTask struct {
	Name            string           `json:"name"`
	Dependencies    []string         `json:"dependencies"`
	RestartPolicy   string           `json:"restartPolicy"`
	ImagePullPolicy string           `json:"imagePullPolicy"`
	Env             []EnvVar         `json:"env"`
	Image           string           `json:"image"`
	Command         []string         `json:"command"`
	Resources       ResourceRequests `json:"resources"`
}

// Parameter is an Argo template input/argument parameter.
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// Arguments wraps a task's argument parameters.
type Arguments struct {
	Parameters []Parameter `json:"parameters"`
}

// DAGTask is a multi-node manifest's per-step dag task entry,
// referencing the shared "step" template.
type DAGTask struct {
	Name         string    `json:"name"`
	Dependencies []string  `json:"dependencies"`
	Template     string    `json:"template"`
	Arguments    Arguments `json:"arguments"`
}

// RetryStrategy configures Argo's retry behavior; runs never retry, so
// every template and task sets Limit to "0".
type RetryStrategy struct {
	Limit   string  `json:"limit"`
	Backoff Backoff `json:"backoff"`
}

type Backoff struct {
	MaxDuration string `json:"maxDuration"`
}

// SecurityContext pins the pod's runAsGroup/fsGroup to ORCHEST_HOST_GID.
type SecurityContext struct {
	RunAsUser  int `json:"runAsUser"`
	RunAsGroup int `json:"runAsGroup"`
	FsGroup    int `json:"fsGroup"`
}

// ContainerSetRetry is the containerSet-level retry block (distinct from
// the template-level RetryStrategy).
type ContainerSetRetry struct {
	Retries int `json:"retries"`
}

// ContainerSet is the single-node template's containerSet block.
type ContainerSet struct {
	RetryStrategy ContainerSetRetry `json:"retryStrategy"`
	VolumeMounts  []VolumeMount     `json:"volumeMounts"`
	Containers    []ContainerTask   `json:"containers"`
}

// DAGSpec is the multi-node manifest's dag template body.
type DAGSpec struct {
	FailFast bool      `json:"failFast"`
	Tasks    []DAGTask `json:"tasks"`
}

// Inputs declares a template's accepted parameters.
type Inputs struct {
	Parameters []Parameter `json:"parameters"`
}

// Container is the multi-node manifest's shared "step" template body.
type Container struct {
	Image        string           `json:"image"`
	Command      []string         `json:"command"`
	VolumeMounts []VolumeMount    `json:"volumeMounts"`
	Resources    ResourceRequests `json:"resources"`
}

// Template is one entry of the manifest's top-level "templates" list.
// Exactly one of ContainerSet, DAG, or Container is set, depending on
// which template this is.
type Template struct {
	Name            string           `json:"name"`
	FailFast        *bool            `json:"failFast,omitempty"`
	RetryStrategy   *RetryStrategy   `json:"retryStrategy,omitempty"`
	PodSpecPatch    string           `json:"podSpecPatch,omitempty"`
	SecurityContext *SecurityContext `json:"securityContext,omitempty"`
	ContainerSet    *ContainerSet    `json:"containerSet,omitempty"`
	DAG             *DAGSpec         `json:"dag,omitempty"`
	Inputs          *Inputs          `json:"inputs,omitempty"`
	Container       *Container       `json:"container,omitempty"`
}

// TTLStrategy is the failsafe cleanup window; all three values are fixed
// at 1000 seconds per spec.
type TTLStrategy struct {
	SecondsAfterCompletion int `json:"secondsAfterCompletion"`
	SecondsAfterSuccess    int `json:"secondsAfterSuccess"`
	SecondsAfterFailure    int `json:"secondsAfterFailure"`
}

// DNSOption is a single dnsConfig.options entry.
type DNSOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DNSConfig fixes DNS lookup timeout/attempts for step pods.
type DNSConfig struct {
	Options []DNSOption `json:"options"`
}

// Toleration is a pod scheduling toleration, populated by the scheduling
// hook for non-interactive sessions.
type Toleration struct {
	Key      string `json:"key"`
	Operator string `json:"operator"`
	Value    string `json:"value,omitempty"`
	Effect   string `json:"effect"`
}

// ManifestMetadata is the manifest's top-level metadata block.
type ManifestMetadata struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels"`
}

// ManifestSpec is the manifest's top-level spec block. NodeSelector and
// Tolerations are left nil until a SchedulingHook populates them.
type ManifestSpec struct {
	Entrypoint    string            `json:"entrypoint"`
	Volumes       []Volume          `json:"volumes,omitempty"`
	TTLStrategy   TTLStrategy       `json:"ttlStrategy"`
	DNSPolicy     string            `json:"dnsPolicy"`
	DNSConfig     DNSConfig         `json:"dnsConfig"`
	RestartPolicy string            `json:"restartPolicy"`
	Templates     []Template        `json:"templates"`
	NodeSelector  map[string]string `json:"nodeSelector,omitempty"`
	Tolerations   []Toleration      `json:"tolerations,omitempty"`
}

// Manifest is the full Argo Workflow custom resource body submitted to
// the workflow engine verbatim.
type Manifest struct {
	APIVersion string           `json:"apiVersion"`
	Kind       string           `json:"kind"`
	Metadata   ManifestMetadata `json:"metadata"`
	Spec       ManifestSpec     `json:"spec"`
}

// StepTemplateName is the multi-node manifest's shared per-step template
// name; downstream polling (internal/runcontrol) relies on this exact
// value to recognize step nodes.
const StepTemplateName = "step"

// EntrypointName is the manifest's top-level template name.
const EntrypointName = "pipeline"
