// SPDX-License-Identifier: MIT

package moi

import (
	"strings"

	"github.com/talosproj/talos/internal/panelapp"
	"github.com/talosproj/talos/internal/pedigree"
	"github.com/talosproj/talos/internal/variant"
)

// CompHetIndex maps sample -> gene -> variant coordinate string -> the
// partner variants that could complete a compound het.
type CompHetIndex map[string]map[string]map[string][]*variant.Small

// SecondHits returns the recorded partners for one sample's variant
// within a gene. A nil index returns nothing.
func (ix CompHetIndex) SecondHits(sample, gene string, coords variant.Coordinates) []*variant.Small {
	return ix[sample][gene][coords.String()]
}

func (ix CompHetIndex) add(sample, gene string, v, partner *variant.Small) {
	bySample, ok := ix[sample]
	if !ok {
		bySample = make(map[string]map[string][]*variant.Small)
		ix[sample] = bySample
	}
	byGene, ok := bySample[gene]
	if !ok {
		byGene = make(map[string][]*variant.Small)
		bySample[gene] = byGene
	}
	key := v.Coordinates.String()
	byGene[key] = append(byGene[key], partner)
}

// BuildCompHet indexes candidate compound-het pairs per sample over a
// gene-keyed variant collection.
//
// A pair is two heterozygous calls at distinct loci in the same gene for
// the same sample. Pairs are dropped when phase data places both calls on
// one haplotype, when the sample is a male and the gene sits on X, and
// when both calls are support-only for the sample. Y and MT never form
// compound hets.
func BuildCompHet(ped *pedigree.Pedigree, genes map[string][]*variant.Small) CompHetIndex {
	ix := make(CompHetIndex)
	for gene, vars := range genes {
		for i, first := range vars {
			if noCompHetChrom(first.Coordinates.Chrom) {
				continue
			}
			for _, second := range vars[i+1:] {
				if first.Coordinates.SameLocus(second.Coordinates) {
					continue
				}
				for sample := range first.HetSamples {
					if !second.HetSamples.Has(sample) {
						continue
					}
					if maleOnX(ped, sample, first.Coordinates.Chrom) {
						continue
					}
					if first.Categories.SampleSupportOnly(sample) &&
						second.Categories.SampleSupportOnly(sample) {
						continue
					}
					if sameHaplotype(first, second, sample) {
						continue
					}
					ix.add(sample, gene, first, second)
					ix.add(sample, gene, second, first)
				}
			}
		}
	}
	return ix
}

func noCompHetChrom(chrom string) bool {
	bare := strings.TrimPrefix(strings.ToUpper(chrom), "CHR")
	return bare == "Y" || bare == "MT" || bare == "M"
}

func maleOnX(ped *pedigree.Pedigree, sample, chrom string) bool {
	if !panelapp.IsXChrom(chrom) {
		return false
	}
	p, ok := ped.Participant(sample)
	return ok && p.IsMale()
}

// sameHaplotype reports whether both calls sit in a shared phase set with
// identical phased genotypes.
func sameHaplotype(first, second *variant.Small, sample string) bool {
	firstPhases, ok := first.Phases[sample]
	if !ok {
		return false
	}
	secondPhases, ok := second.Phases[sample]
	if !ok {
		return false
	}
	for set, gt := range firstPhases {
		if other, present := secondPhases[set]; present && other == gt {
			return true
		}
	}
	return false
}
