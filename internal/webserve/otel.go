// SPDX-License-Identifier: MIT

package webserve

import (
	"context"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// traceService names the report server in span attributes, distinct
// from the pipeline stages sharing the process resource.
const traceService = "talos-serve"

// tracing wraps the handler with OpenTelemetry HTTP instrumentation.
// When no exporter is configured the global provider is a noop and
// nothing is recorded.
func tracing(next http.Handler) http.Handler {
	return otelhttp.NewHandler(
		next,
		traceService,
		otelhttp.WithTracerProvider(otel.GetTracerProvider()),
		otelhttp.WithSpanOptions(
			trace.WithAttributes(semconv.ServiceName(traceService)),
		),
		otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents),
		otelhttp.WithFilter(shouldTrace),
		otelhttp.WithSpanNameFormatter(spanName),
	)
}

// shouldTrace filters the probe and scrape endpoints out of tracing.
func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/metrics":
		return false
	}
	return true
}

// spanName builds "HTTP GET /reports/acute/report.html" style names.
// Query values never reach the span name, only a marker that a query
// string was present.
func spanName(_ string, r *http.Request) string {
	name := "HTTP " + r.Method + " " + r.URL.Path
	if r.URL.RawQuery != "" {
		name += "?"
	}
	return name
}

// traceIDFrom returns the active trace id, or the empty string when the
// context carries no valid span.
func traceIDFrom(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
