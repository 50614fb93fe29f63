// SPDX-License-Identifier: MIT

package hpo

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talosproj/talos/internal/variant"
)

const oboFixture = `format-version: 1.2
data-version: hp/releases/2024-03-06

[Term]
id: HP:0000001
name: All

[Term]
id: HP:0000118
name: Phenotypic abnormality
is_a: HP:0000001 ! All

[Term]
id: HP:0000707
name: Abnormality of the nervous system
is_a: HP:0000118 ! Phenotypic abnormality

[Term]
id: HP:0012638
name: Abnormal nervous system physiology
is_a: HP:0000707 ! Abnormality of the nervous system

[Term]
id: HP:0001250
name: Seizure
is_a: HP:0012638 ! Abnormal nervous system physiology

[Term]
id: HP:0002197
name: Generalized-onset seizure
is_a: HP:0001250 ! Seizure

[Term]
id: HP:0011097
name: Epileptic spasm
is_a: HP:0002197 ! Generalized-onset seizure

[Term]
id: HP:0099999
name: Obsolete seizure term
is_obsolete: true
replaced_by: HP:0001250

[Typedef]
id: part_of
name: part of
`

func fixtureGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := ParseGraph(strings.NewReader(oboFixture))
	require.NoError(t, err)
	return g
}

func fixturePanelMap() map[string]variant.IntSet {
	return map[string]variant.IntSet{
		"HP:0001250": variant.NewIntSet(202),
		"HP:0000707": variant.NewIntSet(57),
	}
}

func TestParseGraph(t *testing.T) {
	g := fixtureGraph(t)

	assert.Equal(t, "hp/releases/2024-03-06", g.DataVersion)
	assert.Equal(t, 8, g.Len())

	seizure, ok := g.Term("HP:0001250")
	require.True(t, ok)
	assert.Equal(t, "Seizure", seizure.Name)
	assert.Equal(t, []string{"HP:0012638"}, seizure.Parents, "inline comment should be stripped from is_a")
	assert.False(t, seizure.Obsolete)

	obsolete, ok := g.Term("HP:0099999")
	require.True(t, ok)
	assert.True(t, obsolete.Obsolete)
	assert.Equal(t, []string{"HP:0001250"}, obsolete.ReplacedBy)

	_, ok = g.Term("part_of")
	assert.False(t, ok, "typedef stanzas must not enter the graph")
}

func TestParseGraphNormalisesNames(t *testing.T) {
	// Decomposed e + combining acute should fold to the composed form.
	obo := "[Term]\nid: HP:0500001\nname: Sézary syndrome\n"
	g, err := ParseGraph(strings.NewReader(obo))
	require.NoError(t, err)

	term, ok := g.Term("HP:0500001")
	require.True(t, ok)
	assert.Equal(t, "Sézary syndrome", term.Name)
}

func TestParseGraphEmpty(t *testing.T) {
	_, err := ParseGraph(strings.NewReader("format-version: 1.2\n"))
	require.Error(t, err)
}

func TestMatch(t *testing.T) {
	panelMap := fixturePanelMap()
	panelMap["HP:7777777"] = variant.NewIntSet(99)
	m := NewMatcher(fixtureGraph(t), panelMap)

	tests := []struct {
		name string
		term string
		want []int
	}{
		{
			name: "exact match plus ancestor within reach",
			term: "HP:0001250",
			want: []int{57, 202},
		},
		{
			name: "ancestor at the depth limit still matches",
			term: "HP:0002197",
			want: []int{57, 202},
		},
		{
			name: "ancestor beyond the depth limit is not reached",
			term: "HP:0011097",
			want: []int{202},
		},
		{
			name: "obsolete term follows its replacement",
			term: "HP:0099999",
			want: []int{57, 202},
		},
		{
			name: "term absent from ontology and panel map",
			term: "HP:4040404",
			want: []int{},
		},
		{
			name: "term absent from ontology still takes an exact panel match",
			term: "HP:7777777",
			want: []int{99},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, m.Match(tc.term).Sorted())
		})
	}
}

func TestSetMaxDepth(t *testing.T) {
	m := NewMatcher(fixtureGraph(t), fixturePanelMap())

	m.SetMaxDepth(4)
	assert.Equal(t, []int{57, 202}, m.Match("HP:0011097").Sorted(),
		"a wider bound reaches the more general ancestor")

	m.SetMaxDepth(1)
	assert.Equal(t, []int{}, m.Match("HP:0011097").Sorted())

	m.SetMaxDepth(0)
	assert.Equal(t, []int{}, m.Match("HP:0011097").Sorted(), "zero keeps the previous bound")
}

func TestDescribe(t *testing.T) {
	m := NewMatcher(fixtureGraph(t), nil)

	assert.Equal(t, "HP:0001250 - Seizure", m.Describe("HP:0001250"))
	assert.Equal(t, "HP:4040404 - Unknown", m.Describe("HP:4040404"))
}

const pedFixture = `#FamilyID	IndividualID	PaternalID	MaternalID	Sex	Affected	Phenotypes
FAM1	PROBAND1	FATHER1	MOTHER1	1	2	HP:0001250,HP:0002197
FAM1	FATHER1	0	0	1	1
FAM1	MOTHER1	0	0	2	1	healthy;no terms recorded
FAM2	PROBAND2	0	0	2	2	Epileptic spasm HP:0011097 and HP:4040404
`

func TestParseParticipants(t *testing.T) {
	p, err := ParseParticipants(strings.NewReader(pedFixture))
	require.NoError(t, err)

	require.Len(t, p.Samples, 4)
	assert.Equal(t, []int{DefaultPanel}, p.AllPanels.Sorted())

	proband := p.Samples["PROBAND1"]
	require.NotNil(t, proband)
	assert.Equal(t, "FAM1", proband.FamilyID)
	assert.Equal(t, "PROBAND1", proband.ExternalID)
	assert.Equal(t, []string{"HP:0001250", "HP:0002197"}, proband.HPOTerms.Sorted())
	assert.Equal(t, []int{DefaultPanel}, proband.Panels.Sorted())

	father := p.Samples["FATHER1"]
	require.NotNil(t, father)
	assert.Empty(t, father.HPOTerms)

	mother := p.Samples["MOTHER1"]
	require.NotNil(t, mother)
	assert.Empty(t, mother.HPOTerms, "free text without HP terms yields none")

	assert.Equal(t, []string{"HP:0011097", "HP:4040404"}, p.Samples["PROBAND2"].HPOTerms.Sorted())
}

func TestParseParticipantsErrors(t *testing.T) {
	_, err := ParseParticipants(strings.NewReader("FAM1\tX\t0\t0\t1\n"))
	require.Error(t, err, "short row")

	_, err = ParseParticipants(strings.NewReader("# only a header\n"))
	require.Error(t, err, "no samples")
}

func TestMatchParticipants(t *testing.T) {
	p, err := ParseParticipants(strings.NewReader(pedFixture))
	require.NoError(t, err)

	m := NewMatcher(fixtureGraph(t), fixturePanelMap())
	m.MatchParticipants(p)

	assert.Equal(t, []int{57, DefaultPanel, 202}, p.Samples["PROBAND1"].Panels.Sorted())
	assert.Equal(t, []int{DefaultPanel}, p.Samples["FATHER1"].Panels.Sorted())
	// PROBAND2's only reachable panel is via the seizure grandparent.
	assert.Equal(t, []int{DefaultPanel, 202}, p.Samples["PROBAND2"].Panels.Sorted())
	assert.Equal(t, []int{57, DefaultPanel, 202}, p.AllPanels.Sorted())
}

func TestDescribeParticipants(t *testing.T) {
	p, err := ParseParticipants(strings.NewReader(pedFixture))
	require.NoError(t, err)

	m := NewMatcher(fixtureGraph(t), fixturePanelMap())
	m.DescribeParticipants(p)

	assert.Equal(t,
		[]string{"HP:0001250 - Seizure", "HP:0002197 - Generalized-onset seizure"},
		p.Samples["PROBAND1"].HPOTerms.Sorted())
	assert.Equal(t,
		[]string{"HP:0011097 - Epileptic spasm", "HP:4040404 - Unknown"},
		p.Samples["PROBAND2"].HPOTerms.Sorted())
}

func TestPhenotypePanelsRoundTrip(t *testing.T) {
	p, err := ParseParticipants(strings.NewReader(pedFixture))
	require.NoError(t, err)
	m := NewMatcher(fixtureGraph(t), fixturePanelMap())
	m.MatchParticipants(p)
	m.DescribeParticipants(p)

	path := filepath.Join(t.TempDir(), "phenotype_panels.json")
	require.NoError(t, p.Save(path))

	loaded, err := LoadPhenotypePanels(path)
	require.NoError(t, err)
	assert.Equal(t, p.AllPanels.Sorted(), loaded.AllPanels.Sorted())
	require.Contains(t, loaded.Samples, "PROBAND1")
	assert.Equal(t, p.Samples["PROBAND1"].Panels.Sorted(), loaded.Samples["PROBAND1"].Panels.Sorted())
	assert.Equal(t, p.Samples["PROBAND1"].HPOTerms.Sorted(), loaded.Samples["PROBAND1"].HPOTerms.Sorted())
}

func TestPhenotypePanelsJSONShape(t *testing.T) {
	p := NewPhenotypePanels()
	p.Samples["SAM1"] = &Participant{
		ExternalID: "SAM1",
		FamilyID:   "FAM1",
		HPOTerms:   variant.NewStringSet("HP:0001250 - Seizure"),
		Panels:     variant.NewIntSet(202, DefaultPanel),
	}

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	text := string(raw)
	assert.Contains(t, text, `"all_panels":[137]`)
	assert.Contains(t, text, `"panels":[137,202]`, "panel sets must serialise sorted")
	assert.Contains(t, text, `"external_id":"SAM1"`)
	assert.Contains(t, text, `"family_id":"FAM1"`)
	assert.Contains(t, text, `"hpo_terms":["HP:0001250 - Seizure"]`)
}
