// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the pipeline.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Pipeline stage attributes
	StageNameKey   = "stage.name"
	StageCohortKey = "stage.cohort"

	// Panel attributes
	PanelIDKey      = "panel.id"
	PanelVersionKey = "panel.version"

	// Variant processing attributes
	ContigKey        = "variants.contig"
	VariantCountKey  = "variants.count"
	GeneCountKey     = "variants.genes"
	SkippedCountKey  = "variants.skipped"
	CategoryCountKey = "variants.categorised"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// StageAttributes creates pipeline-stage span attributes.
func StageAttributes(stage, cohort string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if stage != "" {
		attrs = append(attrs, attribute.String(StageNameKey, stage))
	}
	if cohort != "" {
		attrs = append(attrs, attribute.String(StageCohortKey, cohort))
	}
	return attrs
}

// PanelAttributes creates panel-query span attributes.
func PanelAttributes(panelID int, version string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(PanelIDKey, panelID),
		attribute.String(PanelVersionKey, version),
	}
}

// ContigAttributes creates per-contig variant processing attributes.
func ContigAttributes(contig string, variants, genes int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ContigKey, contig),
		attribute.Int(VariantCountKey, variants),
		attribute.Int(GeneCountKey, genes),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
