// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import "strings"

// GetEnvironments returns the set of environment UUIDs used by the
// pipeline's steps together with any service whose image references an
// environment via the environmentAsServicePrefix sentinel.
func (p *Pipeline) GetEnvironments(environmentAsServicePrefix string) map[string]struct{} {
	envs := make(map[string]struct{}, len(p.Steps))
	for _, step := range p.Steps {
		if step.Environment != "" {
			envs[step.Environment] = struct{}{}
		}
	}
	for _, svc := range p.Services {
		if strings.HasPrefix(svc.Image, environmentAsServicePrefix) {
			envs[strings.TrimPrefix(svc.Image, environmentAsServicePrefix)] = struct{}{}
		}
	}
	return envs
}
