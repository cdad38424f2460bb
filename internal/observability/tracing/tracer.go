// Package tracing provides the process-wide OpenTelemetry tracer used to
// instrument Runtime.Run, FeedCache.Fetch, and FeedFetcher.Fetch.
package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the global tracer instance for feedhub.
var tracer = otel.Tracer("feedhub")

// GetTracer returns the global tracer for creating spans.
//
//	ctx, span := tracing.GetTracer().Start(ctx, "FeedCache.Fetch")
//	defer span.End()
func GetTracer() trace.Tracer {
	return tracer
}
