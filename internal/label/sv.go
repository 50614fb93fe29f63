// SPDX-License-Identifier: MIT

package label

import (
	"maps"

	"github.com/talosproj/talos/internal/variant"
	"github.com/talosproj/talos/internal/vcf"
)

// processSV labels one structural-variant row. The single SV category is
// sv1: rare in the callset and in gnomAD, with a loss-of-function
// consequence on a green gene. Rows fan out per qualifying gene like the
// small-variant split.
func (l *Labeller) processSV(rec *vcf.Record, stats *Stats) []*vcf.Record {
	small := rec.Small
	if small.InfoString("filter") != "PASS" {
		stats.Quality++
		return nil
	}
	if !l.svFrequencyPass(small) {
		stats.Common++
		return nil
	}

	genes := variant.NewStringSet()
	for _, csq := range small.Consequences {
		if !lofConsequence(csq) {
			continue
		}
		if g := csq.Get("gene"); g != "" && l.green.Has(g) {
			genes.Add(g)
		}
	}
	if len(genes) == 0 {
		stats.NonGreen++
		return nil
	}

	var out []*vcf.Record
	for _, gene := range genes.Sorted() {
		clone := cloneSVForGene(small, gene)
		clone.Categories.SetBoolean("sv1")
		out = append(out, &vcf.Record{Small: clone, Columns: rec.Columns})
	}
	return out
}

// svFrequencyPass applies the SV gates: the sex-split joint-call allele
// frequencies and the gnomAD v2.1 SV population frequency, all under the
// configured ceiling. GATK-SV emits AF per sex rather than a single AC.
func (l *Labeller) svFrequencyPass(small *variant.Small) bool {
	ceiling := l.filter.SVAFMax
	return small.InfoFloat("male_af", 0) <= ceiling &&
		small.InfoFloat("female_af", 0) < ceiling &&
		small.InfoFloat("gnomad_v2.1_sv_af", 0) < ceiling
}

// lofConsequence reports the LOF consequence class on one annotation.
func lofConsequence(csq variant.Consequence) bool {
	for _, term := range csq.Terms() {
		if term == "LOF" {
			return true
		}
	}
	return false
}

// cloneSVForGene copies an SV row for one gene, keeping every annotation
// for that gene. SV consequences carry no biotype, so no transcript
// filter applies.
func cloneSVForGene(src *variant.Small, gene string) *variant.Small {
	out := &variant.Small{
		Coordinates: src.Coordinates,
		InfoMap:     maps.Clone(src.InfoMap),
		HetSamples:  src.HetSamples,
		HomSamples:  src.HomSamples,
		Depths:      src.Depths,
		ABRatios:    src.ABRatios,
	}
	out.InfoMap[InfoGeneID] = gene
	for _, csq := range src.Consequences {
		if csq.Get("gene") == gene {
			out.Consequences = append(out.Consequences, csq)
		}
	}
	return out
}
