// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package manifest

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/runloom/runloom/internal/logger"
)

// RegistryResolver resolves the in-cluster image registry service to a
// reachable address. The result must never be cached across manifest
// builds: a restart of the registry service can change its address.
type RegistryResolver interface {
	ResolveRegistryAddress(ctx context.Context) (string, error)
}

// httpRegistryResolver issues one GET against a small discovery endpoint
// on every call, mirroring the "do not cache across builds" requirement.
type httpRegistryResolver struct {
	client       *resty.Client
	discoveryURL string
}

// NewHTTPRegistryResolver builds a RegistryResolver backed by an HTTP GET
// to discoveryURL, expected to return a plain-text cluster IP or host.
func NewHTTPRegistryResolver(client *resty.Client, discoveryURL string) RegistryResolver {
	return &httpRegistryResolver{client: client, discoveryURL: discoveryURL}
}

func (r *httpRegistryResolver) ResolveRegistryAddress(ctx context.Context) (string, error) {
	resp, err := r.client.R().SetContext(ctx).Get(r.discoveryURL)
	if err != nil {
		return "", fmt.Errorf("registry discovery request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("registry discovery returned status %d", resp.StatusCode())
	}

	address := string(resp.Body())
	logger.GetManifestLogger().Debug().Str("address", address).Msg("resolved registry address")
	return address, nil
}
