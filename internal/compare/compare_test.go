// SPDX-License-Identifier: MIT

package compare

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talosproj/talos/internal/pedigree"
	"github.com/talosproj/talos/internal/variant"
)

const quadPED = `fam1	PROBAND	FATHER	MOTHER	1	2
fam1	FATHER	0	0	1	1
fam1	MOTHER	0	0	2	1
fam1	SIBLING	FATHER	MOTHER	2	1
`

func TestKeyNormalisation(t *testing.T) {
	a := NewKey("chr7", 93105286, "t", "a")
	b := KeyFromCoords(variant.Coordinates{Chrom: "7", Pos: 93105286, Ref: "T", Alt: "A"})
	assert.Equal(t, a, b)
	assert.Equal(t, "7-93105286-T-A", a.String())
}

func TestFromResults(t *testing.T) {
	set := &variant.ResultSet{
		Results: map[string]variant.SampleResults{
			"PROBAND": {Variants: []*variant.ReportVariant{{
				Var: variant.VarEnvelope{Var: &variant.Small{
					Coordinates: variant.Coordinates{Chrom: "chr1", Pos: 100, Ref: "A", Alt: "G"},
				}},
			}}},
			"QUIET": {},
		},
	}

	calls := FromResults(set)
	require.Len(t, calls, 2)
	require.Len(t, calls["PROBAND"], 1)
	assert.Equal(t, NewKey("1", 100, "A", "G"), calls["PROBAND"][0].Key)

	// analysed samples with no hits keep their entry
	_, ok := calls["QUIET"]
	assert.True(t, ok)
	assert.Empty(t, calls["QUIET"])
}

func TestProbandsByFamily(t *testing.T) {
	ped, err := pedigree.Parse(strings.NewReader(quadPED))
	require.NoError(t, err)

	// the unaffected sibling is not a proband
	assert.Equal(t, map[string][]string{"fam1": {"PROBAND"}}, ProbandsByFamily(ped))
}

func TestFindMissingAllMatched(t *testing.T) {
	flagged := Calls{"PROBAND": {
		{Key: NewKey("1", 1, "A", "C"), Confidence: []Confidence{ConfidencePossible}},
	}}
	results := Calls{"PROBAND": {
		{Key: NewKey("1", 1, "A", "C")},
		// extra reported variants are not discrepancies
		{Key: NewKey("2", 2, "A", "G")},
	}}

	assert.Empty(t, FindMissing(results, flagged))
}

func TestFindMissingMiss(t *testing.T) {
	flagged := Calls{"PROBAND": {
		{Key: NewKey("1", 1, "A", "C"), Confidence: []Confidence{ConfidencePossible}},
	}}
	results := Calls{"PROBAND": {{Key: NewKey("2", 2, "A", "G")}}}

	missing := FindMissing(results, flagged)
	require.Len(t, missing, 1)
	require.Len(t, missing["PROBAND"], 1)
	assert.Equal(t, NewKey("1", 1, "A", "C"), missing["PROBAND"][0].Key)
}

func TestFindMissingAbsentSample(t *testing.T) {
	flagged := Calls{"PROBAND": {{Key: NewKey("1", 1, "A", "C")}}}
	results := Calls{"OTHER": {{Key: NewKey("1", 1, "A", "C")}}}

	missing := FindMissing(results, flagged)
	require.Len(t, missing["PROBAND"], 1)
}

func TestFindMissingConfidenceIrrelevant(t *testing.T) {
	flagged := Calls{"PROBAND": {
		{Key: NewKey("1", 1, "GC", "G"), Confidence: []Confidence{ConfidenceUnlikely}},
	}}
	results := Calls{"PROBAND": {{Key: NewKey("chr1", 1, "GC", "G")}}}

	assert.Empty(t, FindMissing(results, flagged))
}

func TestFindMissingSortsByLocus(t *testing.T) {
	flagged := Calls{"PROBAND": {
		{Key: NewKey("2", 50, "A", "C")},
		{Key: NewKey("1", 900, "A", "C")},
		{Key: NewKey("1", 100, "A", "C")},
	}}

	missing := FindMissing(Calls{}, flagged)
	require.Len(t, missing["PROBAND"], 3)
	assert.Equal(t, "1-100-A-C", missing["PROBAND"][0].Key.String())
	assert.Equal(t, "1-900-A-C", missing["PROBAND"][1].Key.String())
	assert.Equal(t, "2-50-A-C", missing["PROBAND"][2].Key.String())
}
