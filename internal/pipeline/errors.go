// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"fmt"

	"github.com/runloom/runloom/internal/runerr"
)

func newInvalidPipelineErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", runerr.ErrInvalidPipeline, fmt.Sprintf(format, args...))
}
