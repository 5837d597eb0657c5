// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package manifest

import "github.com/runloom/runloom/internal/runconfig"

// SchedulingHook is a pure manifest post-processor: given the session
// type, it mutates manifest in place. It runs after every other field of
// the manifest is set, matching the original's note that the hook relies
// on the manifest's structure and must run last.
type SchedulingHook func(sessionType runconfig.SessionType, manifest *Manifest)

// DefaultSchedulingHook prefers low-latency nodes for interactive
// sessions and tolerates preemptible nodes for non-interactive ones.
func DefaultSchedulingHook(sessionType runconfig.SessionType, m *Manifest) {
	switch sessionType {
	case runconfig.SessionInteractive:
		m.Spec.NodeSelector = map[string]string{"runloom.io/node-tier": "low-latency"}
	case runconfig.SessionNonInteractive:
		m.Spec.Tolerations = append(m.Spec.Tolerations, Toleration{
			Key:      "runloom.io/preemptible",
			Operator: "Exists",
			Effect:   "NoSchedule",
		})
	}
}
