// SPDX-License-Identifier: MIT

package pedigree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoTrios = `#family_id	individual_id	father_id	mother_id	sex	phenotype
FAM1	male	father_1	mother_1	1	2
FAM1	father_1	0	0	1	1
FAM1	mother_1	0	0	2	1
FAM2	female	father_2	mother_2	2	2
FAM2	father_2	0	0	1	1
FAM2	mother_2	0	0	2	1
`

func parsePed(t *testing.T, content string) *Pedigree {
	t.Helper()
	ped, err := Parse(strings.NewReader(content))
	require.NoError(t, err)
	return ped
}

func TestParseLinksFamilies(t *testing.T) {
	ped := parsePed(t, twoTrios)

	require.Len(t, ped.Participants, 6)
	assert.Equal(t, []string{"male", "father_1", "mother_1", "female", "father_2", "mother_2"}, ped.SampleIDs())
	assert.Equal(t, []string{"FAM1", "FAM2"}, ped.FamilyIDs())

	proband, ok := ped.Participant("male")
	require.True(t, ok)
	require.NotNil(t, proband.Father)
	require.NotNil(t, proband.Mother)
	assert.Equal(t, "father_1", proband.Father.ID)
	assert.Equal(t, "mother_1", proband.Mother.ID)
	assert.True(t, proband.Affected)
	assert.True(t, proband.IsMale())
	assert.True(t, proband.HasBothParents())

	father, ok := ped.Participant("father_1")
	require.True(t, ok)
	assert.Nil(t, father.Father)
	assert.False(t, father.Affected)
	require.Len(t, father.Children, 1)
	assert.Equal(t, "male", father.Children[0].ID)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"short row", "FAM1 male father mother 1\n", "expected 6 columns"},
		{"duplicate sample", "FAM1 s1 0 0 1 2\nFAM1 s1 0 0 1 2\n", "duplicate sample ID"},
		{"zero sample id", "FAM1 0 0 0 1 2\n", "invalid sample ID"},
		{"empty file", "# only a comment\n", "no samples"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParseIgnoresExtraColumns(t *testing.T) {
	ped := parsePed(t, "FAM1 s1 0 0 2 2 A A G G\n")
	p, ok := ped.Participant("s1")
	require.True(t, ok)
	assert.True(t, p.IsFemale())
	assert.True(t, p.Affected)
}

func TestMissingParentStaysNil(t *testing.T) {
	ped := parsePed(t, "FAM1 kid dad_not_listed 0 1 2\n")
	p, ok := ped.Participant("kid")
	require.True(t, ok)
	assert.Equal(t, "dad_not_listed", p.FatherID)
	assert.Nil(t, p.Father)
	assert.False(t, p.HasBothParents())
}

func TestBreakdownTwoTrios(t *testing.T) {
	ped := parsePed(t, twoTrios)

	bd := ped.Breakdown(ped.SampleIDs())

	assert.Equal(t, 2, bd.Affected)
	assert.Equal(t, 3, bd.Male)
	assert.Equal(t, 3, bd.Female)
	assert.Equal(t, 2, bd.Trios)
	assert.Equal(t, map[int]int{3: 2}, bd.FamilySizes)
}

func TestBreakdownRestrictedToCallset(t *testing.T) {
	ped := parsePed(t, twoTrios)

	// FAM2 parents absent from the callset: no trio, family size 1
	bd := ped.Breakdown([]string{"male", "father_1", "mother_1", "female", "not_in_ped"})

	assert.Equal(t, 2, bd.Affected)
	assert.Equal(t, 2, bd.Male)
	assert.Equal(t, 2, bd.Female)
	assert.Equal(t, 1, bd.Trios)
	assert.Equal(t, map[int]int{3: 1, 1: 1}, bd.FamilySizes)
}

func TestProbandsTrio(t *testing.T) {
	ped := parsePed(t, `FAM1	PROBAND	FATHER	MOTHER	1	2
FAM1	MOTHER	0	0	2	1
FAM1	FATHER	0	0	1	1
`)
	assert.Equal(t, []string{"PROBAND"}, ped.Probands())
}

func TestProbandsQuadExcludesUnaffectedSibling(t *testing.T) {
	ped := parsePed(t, `FAM1	PROBAND	FATHER	MOTHER	1	2
FAM1	SIBLING	FATHER	MOTHER	2	1
FAM1	MOTHER	0	0	2	1
FAM1	FATHER	0	0	1	1
`)
	assert.Equal(t, []string{"PROBAND"}, ped.Probands())
}
