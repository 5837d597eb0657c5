// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine implements the workflow-engine REST client (C11): it
// submits a compiled manifest to the external Argo-compatible workflow
// engine and polls the resulting workflow resource.
package engine

// NodeParameter is one entry of a node's inputs.parameters list.
type NodeParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NodeInputs mirrors a workflow node's "inputs" block, present only for
// multi-node "step" template pods.
type NodeInputs struct {
	Parameters []NodeParameter `json:"parameters"`
}

// Node is one entry of a workflow resource's status.nodes map.
type Node struct {
	DisplayName  string      `json:"displayName"`
	Type         string      `json:"type"`
	TemplateName string      `json:"templateName"`
	Phase        string      `json:"phase"`
	Message      string      `json:"message"`
	Inputs       *NodeInputs `json:"inputs,omitempty"`
}

// StepUUID returns the node's step_uuid input parameter, for multi-node
// "step" nodes.
func (n Node) StepUUID() (string, bool) {
	if n.Inputs == nil {
		return "", false
	}
	for _, p := range n.Inputs.Parameters {
		if p.Name == "step_uuid" {
			return p.Value, true
		}
	}
	return "", false
}

// WorkflowStatus is a workflow resource's status block.
type WorkflowStatus struct {
	Nodes map[string]Node `json:"nodes"`
}

// WorkflowResource mirrors the Argo Workflow custom resource as read
// back from a GET.
type WorkflowResource struct {
	Metadata struct {
		Name string `json:"name"`
	} `json:"metadata"`
	Status WorkflowStatus `json:"status"`
}
