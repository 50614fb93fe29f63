// SPDX-License-Identifier: MIT

package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talosproj/talos/internal/config"
	"github.com/talosproj/talos/internal/variant"
)

func smallVar(chrom string, pos int, ref, alt string, csq []variant.Consequence, info map[string]any) *variant.Small {
	if info == nil {
		info = map[string]any{}
	}
	return &variant.Small{
		Coordinates:  variant.Coordinates{Chrom: chrom, Pos: pos, Ref: ref, Alt: alt},
		InfoMap:      info,
		Consequences: csq,
	}
}

func testSet() *variant.ResultSet {
	dominant := &variant.ReportVariant{
		Var: variant.VarEnvelope{Var: smallVar("chr1", 100, "A", "G",
			[]variant.Consequence{{
				"gene":        "ENSG00000004848",
				"symbol":      "ARX",
				"consequence": "missense_variant",
				"mane_select": "NM_139058.3",
			}},
			map[string]any{"clinvar_sig": "Pathogenic", "clinvar_stars": 2},
		)},
		Sample:             "PROBAND",
		Family:             "fam1",
		Gene:               "ENSG00000004848",
		Categories:         []string{"1"},
		Reasons:            variant.NewStringSet("Autosomal Dominant"),
		Flags:              []string{"AB Ratio"},
		Panels:             variant.PanelTags{Matched: []int{126}},
		FirstSeen:          "2026-01-01",
		PhenotypeMatchDate: "2026-08-25",
	}
	supported := &variant.ReportVariant{
		Var: variant.VarEnvelope{Var: smallVar("chr2", 500, "G", "C",
			[]variant.Consequence{{
				"gene":        "ENSG00000157764",
				"consequence": "stop_gained&splice_region_variant",
			}},
			nil,
		)},
		Sample:      "PROBAND",
		Family:      "fam1",
		Gene:        "ENSG00000157764",
		Categories:  []string{"4"},
		Reasons:     variant.NewStringSet("Autosomal Recessive Comp-Het"),
		SupportVars: variant.NewStringSet("chr2-600-T-A__ENSG00000157764__Unsupported"),
		Labels:      []string{"Reported"},
		FirstSeen:   "2026-08-25",
	}
	return &variant.ResultSet{
		Metadata: variant.ResultMeta{
			RunID:      "run-0001",
			Cohort:     "acute",
			RunTime:    "2026-08-25T10:00:00Z",
			Categories: map[string]string{"1": "ClinVar P/LP", "4": "de Novo"},
			Panels:     []variant.PanelShort{{ID: 137, Name: "Mendeliome", Version: "14.1"}},
			Version:    "v1.0.0",
		},
		Results: map[string]variant.SampleResults{
			"PROBAND": {
				Metadata: variant.SampleMeta{
					ExtID:      "PROBAND",
					FamilyID:   "fam1",
					Phenotypes: []string{"HP:0001250 - Seizure"},
					PanelNames: []string{"Mendeliome"},
				},
				// deliberately unsorted; Render must order by chromosome
				Variants: []*variant.ReportVariant{supported, dominant},
			},
		},
	}
}

func testCohort(t *testing.T) config.CohortConfig {
	t.Helper()
	dir := t.TempDir()
	lookup := filepath.Join(dir, "seqr_lookup.json")
	require.NoError(t, os.WriteFile(lookup, []byte(`{"PROBAND": "F000123"}`), 0o644))
	labels := filepath.Join(dir, "labels.json")
	require.NoError(t, os.WriteFile(labels,
		[]byte(`{"PROBAND": {"chr1-100-A-G": ["Confirmed <script>alert(1)</script>"]}}`), 0o644))
	return config.CohortConfig{
		SeqrInstance:   "https://seqr.populationgenomics.org.au/",
		SeqrProject:    "acute",
		SeqrLookup:     lookup,
		ExternalLabels: labels,
	}
}

func renderToString(t *testing.T, b *Builder, set *variant.ResultSet) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, b.Render(set, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRenderRowContract(t *testing.T) {
	b, err := NewBuilder(testCohort(t))
	require.NoError(t, err)

	out := renderToString(t, b, testSet())

	assert.Contains(t, out, "Talos report: acute")
	assert.Contains(t, out, "run-0001")
	assert.Contains(t, out, "family fam1")
	assert.Contains(t, out, "HP:0001250 - Seizure")
	assert.Contains(t, out, "Mendeliome (137) v14.1")

	// gene symbol with stable ID, category display names, MANE consequence
	assert.Contains(t, out, "ARX (ENSG00000004848)")
	assert.Contains(t, out, "ClinVar P/LP")
	assert.Contains(t, out, "de Novo")
	assert.Contains(t, out, "missense_variant (NM_139058.3)")
	assert.Contains(t, out, "stop_gained, splice_region_variant")
	assert.Contains(t, out, "Pathogenic")
	assert.Contains(t, out, `<td class="num">2</td>`)
	assert.Contains(t, out, "Autosomal Dominant")
	assert.Contains(t, out, "AB Ratio")
	assert.Contains(t, out, "2026-01-01")
	assert.Contains(t, out, "chr2-600-T-A__ENSG00000157764__Unsupported")

	// the seqr deep link drops the chr prefix and carries the family GUID
	assert.Contains(t, out,
		"https://seqr.populationgenomics.org.au/variant_search/variant/1-100-A-G/family/F000123")

	// curator labels merge with on-record labels and are escaped
	assert.Contains(t, out, "Reported")
	assert.Contains(t, out, "Confirmed &lt;script&gt;")
	assert.NotContains(t, out, "<script>alert(1)</script>")

	// rows come out in chromosome order despite unsorted input
	first := strings.Index(out, "<td>chr1</td>")
	second := strings.Index(out, "<td>chr2</td>")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second)

	assert.NotContains(t, out, "{{")
}

func TestRenderWithoutSideInputs(t *testing.T) {
	b, err := NewBuilder(config.CohortConfig{})
	require.NoError(t, err)

	out := renderToString(t, b, testSet())

	assert.NotContains(t, out, "variant_search")
	assert.Contains(t, out, "ARX (ENSG00000004848)")
	// on-record labels still render without an external labels file
	assert.Contains(t, out, "Reported")
}

func TestRenderEmptySet(t *testing.T) {
	b, err := NewBuilder(config.CohortConfig{})
	require.NoError(t, err)

	set := &variant.ResultSet{
		Metadata: variant.ResultMeta{Cohort: "acute", RunID: "run-0002"},
		Results:  map[string]variant.SampleResults{},
	}
	out := renderToString(t, b, set)
	assert.Contains(t, out, "No reportable variants")
}

func TestNewBuilderMissingLookup(t *testing.T) {
	_, err := NewBuilder(config.CohortConfig{
		SeqrLookup: filepath.Join(t.TempDir(), "absent.json"),
	})
	assert.Error(t, err)
}

func TestChangeDisplay(t *testing.T) {
	assert.Equal(t, "A>G", changeDisplay(variant.Coordinates{Ref: "A", Alt: "G"}))
	assert.Equal(t, "<DEL>", changeDisplay(variant.Coordinates{Ref: "N", Alt: "<DEL>"}))
}
