// SPDX-License-Identifier: MIT

package label

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talosproj/talos/internal/config"
	"github.com/talosproj/talos/internal/panelapp"
	"github.com/talosproj/talos/internal/variant"
)

const (
	greenGene = "ENSG00000075043"
	newGene   = "ENSG00000171862"
)

// testOptions returns run options with two green genes, one of them new.
func testOptions() Options {
	cfg := config.New()
	panel := panelapp.NewData()
	panel.Genes[greenGene] = &panelapp.PanelDetail{
		Symbol: "KCNQ2",
		Panels: variant.NewIntSet(panelapp.DefaultPanel),
	}
	panel.Genes[newGene] = &panelapp.PanelDetail{
		Symbol: "PTEN",
		Panels: variant.NewIntSet(panelapp.DefaultPanel),
		New:    variant.NewIntSet(panelapp.DefaultPanel),
	}
	return Options{
		Filter:    cfg.Filter,
		CSQFields: cfg.CSQ.CSQString,
		Panel:     panel,
	}
}

func testLabeller() *Labeller {
	return New(testOptions())
}

// smallVar builds a PASS variant on the established green gene with the
// given INFO overrides and consequences.
func smallVar(info map[string]any, csqs ...variant.Consequence) *variant.Small {
	v := &variant.Small{
		Coordinates: variant.Coordinates{Chrom: "chr1", Pos: 12345, Ref: "A", Alt: "G"},
		InfoMap: map[string]any{
			"filter":   "PASS",
			InfoGeneID: greenGene,
		},
		HetSamples:   variant.NewStringSet(),
		HomSamples:   variant.NewStringSet(),
		Depths:       map[string]int{},
		ABRatios:     map[string]float64{},
		Consequences: csqs,
	}
	maps.Copy(v.InfoMap, info)
	return v
}

func csq(fields map[string]string) variant.Consequence {
	c := variant.Consequence{"gene": greenGene, "biotype": "protein_coding"}
	maps.Copy(c, fields)
	return c
}

func TestCategory1(t *testing.T) {
	l := testLabeller()

	t.Run("strong flag labels", func(t *testing.T) {
		v := smallVar(map[string]any{InfoTalos: 1, InfoTalosStrong: 1})
		l.categorise(v)
		assert.True(t, v.Categories.Boolean["1"])
	})

	t.Run("starless pathogenic does not", func(t *testing.T) {
		v := smallVar(map[string]any{InfoTalos: 1})
		l.categorise(v)
		assert.False(t, v.Categories.Boolean["1"])
	})
}

func TestCategory2(t *testing.T) {
	l := testLabeller()

	cases := []struct {
		name string
		info map[string]any
		csqs []variant.Consequence
		want bool
	}{
		{
			name: "new gene with critical consequence",
			info: map[string]any{InfoGeneID: newGene},
			csqs: []variant.Consequence{csq(map[string]string{"consequence": "frameshift_variant"})},
			want: true,
		},
		{
			name: "established gene never qualifies",
			info: map[string]any{InfoGeneID: greenGene, "cadd": 99.0},
			csqs: []variant.Consequence{csq(map[string]string{"consequence": "frameshift_variant"})},
			want: false,
		},
		{
			name: "new gene with clinvar flag",
			info: map[string]any{InfoGeneID: newGene, InfoTalos: 1},
			want: true,
		},
		{
			name: "new gene just over the cadd bar",
			info: map[string]any{InfoGeneID: newGene, "cadd": 28.11},
			want: true,
		},
		{
			name: "new gene at the cadd bar fails",
			info: map[string]any{InfoGeneID: newGene, "cadd": 28.1},
			want: false,
		},
		{
			name: "new gene over the revel bar",
			info: map[string]any{InfoGeneID: newGene, "revel": 0.8},
			want: true,
		},
		{
			name: "new gene without corroboration",
			info: map[string]any{InfoGeneID: newGene},
			csqs: []variant.Consequence{csq(map[string]string{"consequence": "synonymous_variant"})},
			want: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := smallVar(tc.info, tc.csqs...)
			l.categorise(v)
			assert.Equal(t, tc.want, v.Categories.Boolean["2"])
		})
	}
}

func TestCategory3(t *testing.T) {
	l := testLabeller()

	cases := []struct {
		name string
		info map[string]any
		csqs []variant.Consequence
		want bool
	}{
		{
			name: "critical with high confidence loftee",
			csqs: []variant.Consequence{csq(map[string]string{"consequence": "stop_gained", "lof": "HC"})},
			want: true,
		},
		{
			name: "loftee call is case sensitive",
			csqs: []variant.Consequence{csq(map[string]string{"consequence": "stop_gained", "lof": "hc"})},
			want: false,
		},
		{
			name: "absent loftee counts as unchallenged",
			csqs: []variant.Consequence{csq(map[string]string{"consequence": "stop_gained"})},
			want: true,
		},
		{
			name: "high confidence on a non-critical transcript does not rescue",
			csqs: []variant.Consequence{
				csq(map[string]string{"consequence": "stop_gained", "lof": "LC"}),
				csq(map[string]string{"consequence": "synonymous_variant", "lof": "HC"}),
			},
			want: false,
		},
		{
			name: "low confidence rescued by clinvar",
			info: map[string]any{InfoTalos: 1},
			csqs: []variant.Consequence{csq(map[string]string{"consequence": "stop_gained", "lof": "LC"})},
			want: true,
		},
		{
			name: "no critical consequence",
			info: map[string]any{InfoTalos: 1},
			csqs: []variant.Consequence{csq(map[string]string{"consequence": "missense_variant", "lof": "HC"})},
			want: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := smallVar(tc.info, tc.csqs...)
			l.categorise(v)
			assert.Equal(t, tc.want, v.Categories.Boolean["3"])
		})
	}
}

func TestCategory5(t *testing.T) {
	l := testLabeller()

	cases := []struct {
		name  string
		delta any
		want  bool
	}{
		{"at threshold", 0.5, true},
		{"just under", 0.49, false},
		{"well over", 0.9, true},
		{"missing", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := map[string]any{}
			if tc.delta != nil {
				info["splice_ai_delta"] = tc.delta
			}
			v := smallVar(info)
			l.categorise(v)
			assert.Equal(t, tc.want, v.Categories.Boolean["5"])
		})
	}
}

func TestCategory6(t *testing.T) {
	l := testLabeller()

	t.Run("likely pathogenic class", func(t *testing.T) {
		v := smallVar(nil, csq(map[string]string{"am_class": "likely_pathogenic"}))
		l.categorise(v)
		assert.True(t, v.Categories.Boolean["6"])
	})

	t.Run("ambiguous class", func(t *testing.T) {
		v := smallVar(nil, csq(map[string]string{"am_class": "ambiguous"}))
		l.categorise(v)
		assert.False(t, v.Categories.Boolean["6"])
	})

	t.Run("unscored", func(t *testing.T) {
		v := smallVar(nil, csq(nil))
		l.categorise(v)
		assert.False(t, v.Categories.Boolean["6"])
	})
}

func TestCategorySupport(t *testing.T) {
	l := testLabeller()

	cases := []struct {
		name string
		info map[string]any
		csqs []variant.Consequence
		want bool
	}{
		{
			name: "cadd and revel agree",
			info: map[string]any{"cadd": 28.2, "revel": 0.78},
			want: true,
		},
		{
			name: "cadd alone is not enough",
			info: map[string]any{"cadd": 99.0},
			want: false,
		},
		{
			name: "sift polyphen and mutationtaster agree",
			info: map[string]any{"mutationtaster": "D,D"},
			csqs: []variant.Consequence{csq(map[string]string{"sift": "deleterious(0)", "polyphen": "probably_damaging(1.0)"})},
			want: true,
		},
		{
			name: "unscored mutationtaster counts as agreement",
			info: map[string]any{"mutationtaster": "missing"},
			csqs: []variant.Consequence{csq(map[string]string{"sift": "0.0", "polyphen": "1.0"})},
			want: true,
		},
		{
			name: "benign mutationtaster breaks consensus",
			info: map[string]any{"mutationtaster": "P,P"},
			csqs: []variant.Consequence{csq(map[string]string{"sift": "0.0", "polyphen": "1.0"})},
			want: false,
		},
		{
			name: "unscored sift defaults high and fails",
			info: map[string]any{"mutationtaster": "D"},
			csqs: []variant.Consequence{csq(map[string]string{"polyphen": "1.0"})},
			want: false,
		},
		{
			name: "unscored polyphen defaults low and fails",
			info: map[string]any{"mutationtaster": "D"},
			csqs: []variant.Consequence{csq(map[string]string{"sift": "0.0"})},
			want: false,
		},
		{
			name: "agreement may span transcripts",
			info: map[string]any{"mutationtaster": "D"},
			csqs: []variant.Consequence{
				csq(map[string]string{"sift": "tolerated(0.4)", "polyphen": "probably_damaging(1.0)"}),
				csq(map[string]string{"sift": "deleterious(0)"}),
			},
			want: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := smallVar(tc.info, tc.csqs...)
			l.categorise(v)
			assert.Equal(t, tc.want, v.Categories.Support)
		})
	}
}

func TestDeNovoEligible(t *testing.T) {
	l := testLabeller()

	t.Run("critical consequence", func(t *testing.T) {
		v := smallVar(nil, csq(map[string]string{"consequence": "stop_gained"}))
		assert.True(t, l.deNovoEligible(v))
	})

	t.Run("missense consequence", func(t *testing.T) {
		v := smallVar(nil, csq(map[string]string{"consequence": "missense_variant"}))
		assert.True(t, l.deNovoEligible(v))
	})

	t.Run("synonymous only", func(t *testing.T) {
		v := smallVar(nil, csq(map[string]string{"consequence": "synonymous_variant"}))
		assert.False(t, l.deNovoEligible(v))
	})

	t.Run("splice flag admits any consequence", func(t *testing.T) {
		v := smallVar(nil, csq(map[string]string{"consequence": "synonymous_variant"}))
		v.Categories.SetBoolean("5")
		assert.True(t, l.deNovoEligible(v))
	})
}

func TestPredictionScore(t *testing.T) {
	assert.InDelta(t, 0.001, predictionScore("deleterious(0.001)", 1.0), 1e-9)
	assert.InDelta(t, 0.998, predictionScore("0.998", 0.0), 1e-9)
	assert.InDelta(t, 1.0, predictionScore("", 1.0), 1e-9)
	assert.InDelta(t, 1.0, predictionScore("deleterious", 1.0), 1e-9)
}

func TestNewGeneSets(t *testing.T) {
	l := testLabeller()
	require.True(t, l.green.Has(greenGene))
	require.True(t, l.green.Has(newGene))
	assert.False(t, l.newGenes.Has(greenGene))
	assert.True(t, l.newGenes.Has(newGene))
}
