// SPDX-License-Identifier: MIT

// Package report renders a validated result set as a static HTML report,
// one section per sample, and maintains the cross-cohort index page that
// links every generated report. All writes land atomically so a webserver
// pointed at the results root never sees a partial page.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/talosproj/talos/internal/clinvar"
	"github.com/talosproj/talos/internal/config"
	"github.com/talosproj/talos/internal/fileio"
	"github.com/talosproj/talos/internal/log"
	"github.com/talosproj/talos/internal/variant"
)

// Builder renders reports for one cohort, carrying the cohort's seqr
// identity mapping and any curator labels to merge into the rows.
type Builder struct {
	cohort config.CohortConfig
	seqr   map[string]string
	labels map[string]map[string][]string
	logger zerolog.Logger
}

// NewBuilder loads the cohort's report side inputs. The seqr lookup maps
// sample IDs to seqr family GUIDs; the external labels file maps sample ->
// variant coordinates -> curator labels. Both are optional.
func NewBuilder(cohort config.CohortConfig) (*Builder, error) {
	b := &Builder{
		cohort: cohort,
		seqr:   map[string]string{},
		labels: map[string]map[string][]string{},
		logger: log.WithComponent("report"),
	}
	if cohort.SeqrLookup != "" {
		if err := fileio.ReadJSON(cohort.SeqrLookup, &b.seqr); err != nil {
			return nil, fmt.Errorf("report: seqr lookup: %w", err)
		}
	}
	if cohort.ExternalLabels != "" {
		if err := fileio.ReadJSON(cohort.ExternalLabels, &b.labels); err != nil {
			return nil, fmt.Errorf("report: external labels: %w", err)
		}
	}
	return b, nil
}

// Page is the template context for one rendered report.
type Page struct {
	Title      string
	Cohort     string
	RunID      string
	RunTime    string
	Version    string
	Categories map[string]string
	Panels     []variant.PanelShort
	Samples    []SampleSection
}

// SampleSection groups one sample's rows with its participant context.
type SampleSection struct {
	ID         string
	ExtID      string
	FamilyID   string
	Phenotypes []string
	PanelNames []string
	Rows       []Row
}

// Row is one rendered variant record.
type Row struct {
	VarType            string
	Chrom              string
	Pos                int
	Change             string
	Gene               string
	Categories         []string
	Reasons            []string
	ManeCSQ            string
	ClinvarSig         string
	ClinvarStars       string
	PhenotypeMatchDate string
	ExtLabels          []string
	WarningFlags       []string
	SupportVars        []string
	FirstSeen          string
	SeqrLink           string
}

// Render writes the report for a result set to path. Rows appear in
// chromosome order within each sample and samples in ID order, so repeat
// renders of the same set are byte-identical.
func (b *Builder) Render(set *variant.ResultSet, path string) error {
	if set == nil {
		return fmt.Errorf("report: nil result set")
	}
	set.SortVariants()

	page := Page{
		Title:      "Talos report: " + set.Metadata.Cohort,
		Cohort:     set.Metadata.Cohort,
		RunID:      set.Metadata.RunID,
		RunTime:    set.Metadata.RunTime,
		Version:    set.Metadata.Version,
		Categories: set.Metadata.Categories,
		Panels:     set.Metadata.Panels,
	}
	for _, sample := range set.SampleIDs() {
		res := set.Results[sample]
		section := SampleSection{
			ID:         sample,
			ExtID:      res.Metadata.ExtID,
			FamilyID:   res.Metadata.FamilyID,
			Phenotypes: res.Metadata.Phenotypes,
			PanelNames: res.Metadata.PanelNames,
		}
		if section.ExtID == "" {
			section.ExtID = sample
		}
		for _, rv := range res.Variants {
			section.Rows = append(section.Rows, b.row(set.Metadata, rv))
		}
		page.Samples = append(page.Samples, section)
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{"join": strings.Join}).Parse(reportHTML)
	if err != nil {
		return fmt.Errorf("report: template parse: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, page); err != nil {
		return fmt.Errorf("report: template execute: %w", err)
	}
	if err := fileio.WriteBytes(path, buf.Bytes()); err != nil {
		return err
	}
	b.logger.Info().
		Str("path", path).
		Str("cohort", page.Cohort).
		Int("samples", len(page.Samples)).
		Msg("report written")
	return nil
}

func (b *Builder) row(meta variant.ResultMeta, rv *variant.ReportVariant) Row {
	coords := rv.Var.Coords()
	return Row{
		VarType:            string(rv.Var.VarType()),
		Chrom:              coords.Chrom,
		Pos:                coords.Pos,
		Change:             changeDisplay(coords),
		Gene:               geneDisplay(rv),
		Categories:         categoryLabels(meta.Categories, rv.Categories),
		Reasons:            rv.Reasons.Sorted(),
		ManeCSQ:            maneConsequence(rv),
		ClinvarSig:         infoText(rv.Var.Info(), clinvar.InfoSignificance),
		ClinvarStars:       infoText(rv.Var.Info(), clinvar.InfoStars),
		PhenotypeMatchDate: rv.PhenotypeMatchDate,
		ExtLabels:          b.extLabels(rv),
		WarningFlags:       rv.Flags,
		SupportVars:        rv.SupportVars.Sorted(),
		FirstSeen:          rv.FirstSeen,
		SeqrLink:           b.seqrLink(rv),
	}
}

// changeDisplay renders the allele change. Symbolic alts stand alone.
func changeDisplay(coords variant.Coordinates) string {
	if strings.HasPrefix(coords.Alt, "<") {
		return coords.Alt
	}
	return coords.Ref + ">" + coords.Alt
}

// geneDisplay renders the gene as "SYMBOL (ENSG...)" when the annotation
// carries a symbol for the variant's gene, else the bare gene ID.
func geneDisplay(rv *variant.ReportVariant) string {
	for _, csq := range consequences(rv) {
		if csq.Get("gene") != rv.Gene {
			continue
		}
		if symbol := csq.Get("symbol"); symbol != "" && symbol != rv.Gene {
			return fmt.Sprintf("%s (%s)", symbol, rv.Gene)
		}
		break
	}
	return rv.Gene
}

// maneConsequence renders the consequence terms on the MANE-select
// transcript for the variant's gene, falling back to any transcript of
// that gene when no MANE annotation is present.
func maneConsequence(rv *variant.ReportVariant) string {
	var fallback string
	for _, csq := range consequences(rv) {
		if csq.Get("gene") != rv.Gene {
			continue
		}
		terms := strings.Join(csq.Terms(), ", ")
		if terms == "" {
			continue
		}
		if mane := csq.Get("mane_select"); mane != "" {
			return fmt.Sprintf("%s (%s)", terms, mane)
		}
		if fallback == "" {
			fallback = terms
		}
	}
	return fallback
}

func consequences(rv *variant.ReportVariant) []variant.Consequence {
	if small, ok := rv.Var.Var.(*variant.Small); ok {
		return small.Consequences
	}
	return nil
}

// categoryLabels maps category IDs through the run's display names,
// keeping the raw ID when no name was configured.
func categoryLabels(names map[string]string, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if label, ok := names[id]; ok && label != "" {
			out = append(out, label)
		} else {
			out = append(out, id)
		}
	}
	return out
}

// extLabels merges the labels already on the record with the cohort's
// curator labels for this sample and locus.
func (b *Builder) extLabels(rv *variant.ReportVariant) []string {
	merged := variant.NewStringSet(rv.Labels...)
	if byCoords, ok := b.labels[rv.Sample]; ok {
		for _, label := range byCoords[rv.Var.Coords().String()] {
			merged.Add(label)
		}
	}
	return merged.Sorted()
}

// seqrLink builds the deep link into the cohort's seqr project, or ""
// when the cohort has no seqr instance or the family is not mapped.
func (b *Builder) seqrLink(rv *variant.ReportVariant) string {
	if b.cohort.SeqrInstance == "" {
		return ""
	}
	guid, ok := b.seqr[rv.Sample]
	if !ok {
		return ""
	}
	variantID := strings.TrimPrefix(rv.Var.Coords().String(), "chr")
	return fmt.Sprintf("%s/variant_search/variant/%s/family/%s",
		strings.TrimRight(b.cohort.SeqrInstance, "/"), variantID, guid)
}

// infoText renders an annotation value for display, tolerating the
// numeric widening a JSON round-trip applies.
func infoText(info map[string]any, key string) string {
	switch v := info[key].(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
