// SPDX-License-Identifier: MIT

package label

import (
	"maps"
	"strings"

	"github.com/talosproj/talos/internal/clinvar"
	"github.com/talosproj/talos/internal/variant"
	"github.com/talosproj/talos/internal/vcf"
)

// processSmall runs one small-variant row through the quality gates, the
// ClinVar re-summary, the frequency gates and the green-gene split, then
// categorises each per-gene copy. Rows survive only when at least one
// copy holds a category.
func (l *Labeller) processSmall(rec *vcf.Record, stats *Stats) []*vcf.Record {
	small := rec.Small
	if small.InfoString("filter") != "PASS" {
		stats.Quality++
		return nil
	}
	if l.annotateClinvar(small) {
		stats.Benign++
		return nil
	}
	if !l.frequencyPass(small) {
		stats.Common++
		return nil
	}

	copies := l.greenSplit(rec)
	if len(copies) == 0 {
		stats.NonGreen++
		return nil
	}

	kept := copies[:0]
	for _, c := range copies {
		l.categorise(c.Small)
		if c.Small.Categories.Classified() {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		stats.Uncategorised++
		return nil
	}
	return kept
}

// annotateClinvar applies the private re-summary decision for this locus.
// A benign decision drops the row outright (the return value); a
// pathogenic one sets the talos flags that gate categories and exempt the
// variant from the frequency filters. Decisions overwrite the baked-in
// clinvar annotation; without a stored decision the flags fall back to it.
func (l *Labeller) annotateClinvar(small *variant.Small) (drop bool) {
	var dec *clinvar.Decision
	if l.decisions != nil {
		c := small.Coordinates
		dec = l.decisions.Lookup(c.Chrom, c.Pos, c.Ref, c.Alt)
	}
	if dec == nil {
		if pathogenicSig(small.InfoString(clinvar.InfoSignificance)) {
			small.InfoMap[InfoTalos] = 1
			if small.InfoFloat(clinvar.InfoStars, 0) > 0 {
				small.InfoMap[InfoTalosStrong] = 1
			}
		}
		return false
	}

	if dec.Classification == clinvar.Benign {
		return true
	}
	small.InfoMap[clinvar.InfoSignificance] = string(dec.Classification)
	small.InfoMap[clinvar.InfoStars] = dec.Stars
	small.InfoMap[clinvar.InfoAlleleID] = dec.Allele.ID
	if dec.Classification == clinvar.Pathogenic {
		small.InfoMap[InfoTalos] = 1
		if dec.Stars > 0 {
			small.InfoMap[InfoTalosStrong] = 1
		}
	}
	return false
}

// pathogenicSig is the baked-annotation fallback predicate: pathogenic
// without conflicting or benign overtones.
func pathogenicSig(sig string) bool {
	s := strings.ToLower(sig)
	return strings.Contains(s, "pathogenic") &&
		!strings.Contains(s, "conflicting") &&
		!strings.Contains(s, "benign")
}

// frequencyPass applies the joint-call AC gate (AC at most the cap, or
// AC/AN under the callset ceiling) and the gnomAD exome and genome
// rarity gate. A pathogenic re-summary flag exempts the variant from
// both; known disease alleles can be common in an affected cohort.
func (l *Labeller) frequencyPass(small *variant.Small) bool {
	if small.InfoFloat(InfoTalos, 0) == 1 {
		return true
	}
	ac := small.InfoFloat("ac", 0)
	an := small.InfoFloat("an", 0)
	if ac > float64(l.filter.CallsetACMax) && !(an > 0 && ac/an < l.filter.CallsetAFMax) {
		return false
	}
	return small.InfoFloat("gnomad_ex_af", 0) < l.filter.AFSemiRare &&
		small.InfoFloat("gnomad_af", 0) < l.filter.AFSemiRare
}

// greenSplit fans a record out into one copy per green gene it annotates,
// restricting each copy's consequences to that gene on protein-coding or
// MANE transcripts. Copies keep their row even when no consequence
// survives the transcript filter; the splice and clinvar categories do
// not read transcript fields.
func (l *Labeller) greenSplit(rec *vcf.Record) []*vcf.Record {
	genes := variant.NewStringSet()
	for _, csq := range rec.Small.Consequences {
		if g := csq.Get("gene"); g != "" && l.green.Has(g) {
			genes.Add(g)
		}
	}

	var out []*vcf.Record
	for _, gene := range genes.Sorted() {
		small := cloneForGene(rec.Small, gene)
		out = append(out, &vcf.Record{Small: small, Columns: rec.Columns})
	}
	return out
}

// cloneForGene copies a variant for one gene of its split. Genotype maps
// are shared; they are read-only from here on. Categories start empty so
// each gene copy is classified independently.
func cloneForGene(src *variant.Small, gene string) *variant.Small {
	out := &variant.Small{
		Coordinates: src.Coordinates,
		InfoMap:     maps.Clone(src.InfoMap),
		HetSamples:  src.HetSamples,
		HomSamples:  src.HomSamples,
		Depths:      src.Depths,
		ABRatios:    src.ABRatios,
		Phases:      src.Phases,
	}
	out.InfoMap[InfoGeneID] = gene
	for _, csq := range src.Consequences {
		if csq.Get("gene") != gene {
			continue
		}
		if csq.Get("biotype") == "protein_coding" || strings.Contains(csq.Get("mane_select"), "NM") {
			out.Consequences = append(out.Consequences, csq)
		}
	}
	return out
}
