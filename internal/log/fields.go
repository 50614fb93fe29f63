// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRunID  = "run_id"
	FieldCohort = "cohort"
	FieldStage  = "stage"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Domain fields
	FieldPanelID  = "panel_id"
	FieldGene     = "gene"
	FieldSample   = "sample"
	FieldFamily   = "family"
	FieldCategory = "category"
	FieldContig   = "contig"
	FieldVariant  = "variant"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"
)
