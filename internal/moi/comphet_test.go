// SPDX-License-Identifier: MIT

package moi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talosproj/talos/internal/variant"
)

func pairVar(chrom string, pos int, alt string, hets ...string) *variant.Small {
	v := &variant.Small{
		Coordinates: variant.Coordinates{Chrom: chrom, Pos: pos, Ref: "A", Alt: alt},
		InfoMap:     map[string]any{"gene_id": testGene},
		HetSamples:  variant.NewStringSet(hets...),
		HomSamples:  variant.NewStringSet(),
	}
	v.Categories.SetBoolean("1")
	return v
}

func TestBuildCompHet(t *testing.T) {
	ped := moiPedigree(t)

	t.Run("shared het pair indexed both ways", func(t *testing.T) {
		first := pairVar("chr1", 100, "G", "GIRL")
		second := pairVar("chr1", 200, "G", "GIRL")
		ix := BuildCompHet(ped, map[string][]*variant.Small{testGene: {first, second}})

		partners := ix.SecondHits("GIRL", testGene, first.Coordinates)
		require.Len(t, partners, 1)
		assert.Equal(t, second, partners[0])

		partners = ix.SecondHits("GIRL", testGene, second.Coordinates)
		require.Len(t, partners, 1)
		assert.Equal(t, first, partners[0])
	})

	t.Run("same locus never pairs", func(t *testing.T) {
		first := pairVar("chr1", 100, "G", "GIRL")
		second := pairVar("chr1", 100, "T", "GIRL")
		ix := BuildCompHet(ped, map[string][]*variant.Small{testGene: {first, second}})
		assert.Empty(t, ix)
	})

	t.Run("sample must be het in both", func(t *testing.T) {
		first := pairVar("chr1", 100, "G", "GIRL")
		second := pairVar("chr1", 200, "G", "MUM")
		ix := BuildCompHet(ped, map[string][]*variant.Small{testGene: {first, second}})
		assert.Empty(t, ix)
	})

	t.Run("same haplotype excluded by phase", func(t *testing.T) {
		first := pairVar("chr1", 100, "G", "GIRL")
		first.Phases = map[string]map[int]string{"GIRL": {12345: "1|0"}}
		second := pairVar("chr1", 200, "G", "GIRL")
		second.Phases = map[string]map[int]string{"GIRL": {12345: "1|0"}}
		ix := BuildCompHet(ped, map[string][]*variant.Small{testGene: {first, second}})
		assert.Empty(t, ix)
	})

	t.Run("opposite haplotypes pair", func(t *testing.T) {
		first := pairVar("chr1", 100, "G", "GIRL")
		first.Phases = map[string]map[int]string{"GIRL": {12345: "1|0"}}
		second := pairVar("chr1", 200, "G", "GIRL")
		second.Phases = map[string]map[int]string{"GIRL": {12345: "0|1"}}
		ix := BuildCompHet(ped, map[string][]*variant.Small{testGene: {first, second}})
		assert.Len(t, ix.SecondHits("GIRL", testGene, first.Coordinates), 1)
	})

	t.Run("distinct phase sets pair", func(t *testing.T) {
		first := pairVar("chr1", 100, "G", "GIRL")
		first.Phases = map[string]map[int]string{"GIRL": {100: "1|0"}}
		second := pairVar("chr1", 200, "G", "GIRL")
		second.Phases = map[string]map[int]string{"GIRL": {200: "1|0"}}
		ix := BuildCompHet(ped, map[string][]*variant.Small{testGene: {first, second}})
		assert.Len(t, ix.SecondHits("GIRL", testGene, first.Coordinates), 1)
	})

	t.Run("phased with unphased pairs", func(t *testing.T) {
		first := pairVar("chr1", 100, "G", "GIRL")
		first.Phases = map[string]map[int]string{"GIRL": {100: "1|0"}}
		second := pairVar("chr1", 200, "G", "GIRL")
		ix := BuildCompHet(ped, map[string][]*variant.Small{testGene: {first, second}})
		assert.Len(t, ix.SecondHits("GIRL", testGene, first.Coordinates), 1)
	})

	t.Run("two support-only calls never pair", func(t *testing.T) {
		first := pairVar("chr1", 100, "G", "GIRL")
		first.Categories = variant.CategorySet{Support: true}
		second := pairVar("chr1", 200, "G", "GIRL")
		second.Categories = variant.CategorySet{Support: true}
		ix := BuildCompHet(ped, map[string][]*variant.Small{testGene: {first, second}})
		assert.Empty(t, ix)
	})

	t.Run("support partners a full category", func(t *testing.T) {
		first := pairVar("chr1", 100, "G", "GIRL")
		first.Categories = variant.CategorySet{Support: true}
		second := pairVar("chr1", 200, "G", "GIRL")
		ix := BuildCompHet(ped, map[string][]*variant.Small{testGene: {first, second}})
		assert.Len(t, ix.SecondHits("GIRL", testGene, first.Coordinates), 1)
	})

	t.Run("males never pair on X", func(t *testing.T) {
		first := pairVar("chrX", 100, "G", "PROBAND", "GIRL")
		second := pairVar("chrX", 200, "G", "PROBAND", "GIRL")
		ix := BuildCompHet(ped, map[string][]*variant.Small{testGene: {first, second}})
		assert.Empty(t, ix.SecondHits("PROBAND", testGene, first.Coordinates))
		assert.Len(t, ix.SecondHits("GIRL", testGene, first.Coordinates), 1)
	})

	t.Run("y chromosome never pairs", func(t *testing.T) {
		first := pairVar("chrY", 100, "G", "GIRL")
		second := pairVar("chrY", 200, "G", "GIRL")
		ix := BuildCompHet(ped, map[string][]*variant.Small{testGene: {first, second}})
		assert.Empty(t, ix)
	})

	t.Run("nil index returns nothing", func(t *testing.T) {
		var ix CompHetIndex
		assert.Empty(t, ix.SecondHits("GIRL", testGene, variant.Coordinates{Chrom: "chr1", Pos: 1}))
	})
}
