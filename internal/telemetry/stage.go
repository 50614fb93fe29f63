// SPDX-License-Identifier: MIT

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// StartStage opens a span for one pipeline stage. With telemetry disabled
// the noop provider makes this free. The caller owns the returned span and
// must End it.
func StartStage(ctx context.Context, stage, cohort string) (context.Context, trace.Span) {
	return Tracer("talos/pipeline").Start(ctx, stage,
		trace.WithAttributes(StageAttributes(stage, cohort)...))
}
