// SPDX-License-Identifier: MIT

package variant

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSmall(chrom string, pos int, gene string) *Small {
	return &Small{
		Coordinates: Coordinates{Chrom: chrom, Pos: pos, Ref: "A", Alt: "C"},
		InfoMap:     map[string]any{"gene_id": gene},
	}
}

func TestReportVariantUID(t *testing.T) {
	rv := &ReportVariant{
		Var:  VarEnvelope{newSmall("1", 123, "ENSG123")},
		Gene: "ENSG123",
	}
	assert.Equal(t, "1-123-A-C__ENSG123__Unsupported", rv.UID())
	assert.True(t, rv.IsIndependent())

	rv.SupportVars = NewStringSet("2-20-G-T", "1-10-A-G")
	assert.Equal(t, "1-123-A-C__ENSG123__1-10-A-G,2-20-G-T", rv.UID())
	assert.False(t, rv.IsIndependent())
}

func TestReportVariantSameEvent(t *testing.T) {
	a := &ReportVariant{Var: VarEnvelope{newSmall("1", 100, "ENSG1")}, Sample: "sam1"}
	b := &ReportVariant{Var: VarEnvelope{newSmall("1", 100, "ENSG2")}, Sample: "sam1"}
	c := &ReportVariant{Var: VarEnvelope{newSmall("1", 100, "ENSG1")}, Sample: "sam2"}

	assert.True(t, a.SameEvent(b))
	assert.False(t, a.SameEvent(c))
}

func TestReportVariantAddFlags(t *testing.T) {
	rv := &ReportVariant{}
	rv.AddFlags(FlagABRatio)
	rv.AddFlags(FlagABRatio, FlagLowReadDepth)
	rv.AddFlags(FlagLowReadDepth)
	assert.Equal(t, []string{FlagABRatio, FlagLowReadDepth}, rv.Flags)
}

func TestVarEnvelopeRoundTripSmall(t *testing.T) {
	small := newSmall("7", 998877, "ENSG00000012048")
	small.Categories.SetBoolean("1")
	small.Consequences = []Consequence{{"consequence": "missense_variant", "symbol": "BRCA1"}}

	data, err := json.Marshal(VarEnvelope{small})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"var_type":"small"`)

	var decoded VarEnvelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, TypeSmall, decoded.VarType())
	assert.Equal(t, small.Coordinates, decoded.Coords())
	assert.Equal(t, "ENSG00000012048", GeneID(decoded.Var))
	assert.True(t, decoded.Cat().HasBoolean())

	got, ok := decoded.Var.(*Small)
	require.True(t, ok)
	require.Len(t, got.Consequences, 1)
	assert.Equal(t, "missense_variant", got.Consequences[0]["consequence"])
}

func TestVarEnvelopeRoundTripSV(t *testing.T) {
	sv := &SV{
		Coordinates: Coordinates{Chrom: "2", Pos: 555, Ref: "N", Alt: "<DEL>"},
		InfoMap:     map[string]any{"gene_id": "ENSG2", "svlen": float64(5000)},
	}
	sv.Categories.SetBoolean("sv1")

	data, err := json.Marshal(VarEnvelope{sv})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"var_type":"sv"`)

	var decoded VarEnvelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, TypeSV, decoded.VarType())
	assert.Equal(t, sv.Coordinates, decoded.Coords())
	_, ok := decoded.Var.(*SV)
	assert.True(t, ok)
}

func TestVarEnvelopeDefaultsToSmall(t *testing.T) {
	// payloads written before the discriminator existed decode as small
	raw := `{"coordinates":{"chrom":"1","pos":1,"ref":"A","alt":"T"},"info":{}}`
	var decoded VarEnvelope
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, TypeSmall, decoded.VarType())
}

func TestVarEnvelopeRejectsUnknownType(t *testing.T) {
	var decoded VarEnvelope
	err := json.Unmarshal([]byte(`{"var_type":"cnv"}`), &decoded)
	assert.Error(t, err)
}

func TestResultSetSortVariants(t *testing.T) {
	rs := &ResultSet{
		Results: map[string]SampleResults{
			"sam1": {
				Variants: []*ReportVariant{
					{Var: VarEnvelope{newSmall("2", 100, "ENSG3")}, Gene: "ENSG3"},
					{Var: VarEnvelope{newSmall("X", 5, "ENSG5")}, Gene: "ENSG5"},
					{Var: VarEnvelope{newSmall("1", 200, "ENSG2")}, Gene: "ENSG2"},
					{Var: VarEnvelope{newSmall("1", 100, "ENSG1")}, Gene: "ENSG1"},
				},
			},
		},
	}
	rs.SortVariants()

	var got []string
	for _, rv := range rs.Results["sam1"].Variants {
		got = append(got, rv.Var.Coords().String())
	}
	assert.Equal(t, []string{"1-100-A-C", "1-200-A-C", "2-100-A-C", "X-5-A-C"}, got)
}

func TestResultSetSortVariantsTieBreaksOnGene(t *testing.T) {
	same := Coordinates{Chrom: "1", Pos: 100, Ref: "A", Alt: "C"}
	mk := func(gene string) *ReportVariant {
		s := newSmall(same.Chrom, same.Pos, gene)
		return &ReportVariant{Var: VarEnvelope{s}, Gene: gene}
	}
	rs := &ResultSet{Results: map[string]SampleResults{
		"sam1": {Variants: []*ReportVariant{mk("ENSGB"), mk("ENSGA")}},
	}}
	rs.SortVariants()
	assert.Equal(t, "ENSGA", rs.Results["sam1"].Variants[0].Gene)
	assert.Equal(t, "ENSGB", rs.Results["sam1"].Variants[1].Gene)
}

func TestResultSetSampleIDs(t *testing.T) {
	rs := &ResultSet{Results: map[string]SampleResults{
		"sam3": {}, "sam1": {}, "sam2": {},
	}}
	assert.Equal(t, []string{"sam1", "sam2", "sam3"}, rs.SampleIDs())
}

func TestStringSetJSON(t *testing.T) {
	s := NewStringSet("b", "a")
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, string(data))

	var decoded StringSet
	require.NoError(t, json.Unmarshal([]byte(`["x","y"]`), &decoded))
	assert.True(t, decoded.Has("x"))
	assert.True(t, decoded.Has("y"))
}

func TestReportVariantJSONShape(t *testing.T) {
	rv := &ReportVariant{
		Var:        VarEnvelope{newSmall("1", 123, "ENSG1")},
		Sample:     "sam1",
		Family:     "fam1",
		Gene:       "ENSG1",
		Categories: []string{"1", "3"},
		Reasons:    NewStringSet("Autosomal Dominant"),
		FirstSeen:  "2024-06-01",
	}
	data, err := json.Marshal(rv)
	require.NoError(t, err)

	var decoded ReportVariant
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rv.Sample, decoded.Sample)
	assert.Equal(t, rv.Gene, decoded.Gene)
	assert.Equal(t, rv.Categories, decoded.Categories)
	assert.True(t, decoded.Reasons.Has("Autosomal Dominant"))
	assert.Equal(t, "2024-06-01", decoded.FirstSeen)
	assert.Equal(t, rv.UID(), decoded.UID())
}
