// SPDX-License-Identifier: MIT

package label

import (
	"github.com/talosproj/talos/internal/variant"
)

// De novo call gates. The caller is deliberately lenient compared to a
// full Bayesian model; the validation stage re-examines every call in
// family context and the report flags marginal calls.
const (
	minDeNovoChildDepth  = 10
	minDeNovoParentDepth = 5
	// the child call must sit in the het allele-balance band
	minDeNovoChildAB = 0.25
	maxDeNovoChildAB = 0.75
	// measurable alt support in a parent vetoes the call
	maxDeNovoParentAB = 0.02
)

// deNovoSamples returns the affected children carrying this variant as an
// apparent de novo: the child is het with both parents present,
// unaffected, and confirmed reference. Sorted for stable output.
func (l *Labeller) deNovoSamples(small *variant.Small) []string {
	if l.ped == nil {
		return nil
	}
	var out []string
	for _, sample := range small.HetSamples.Sorted() {
		p, ok := l.ped.Participant(sample)
		if !ok || !p.Affected || !p.HasBothParents() {
			continue
		}
		if p.Mother.Affected || p.Father.Affected {
			continue
		}
		if !deNovoChildCall(small, sample) {
			continue
		}
		if deNovoParentRef(small, p.Mother.ID) && deNovoParentRef(small, p.Father.ID) {
			out = append(out, sample)
		}
	}
	return out
}

// deNovoChildCall gates the child genotype on depth and allele balance.
// Balance is checked only when AD was present in the call.
func deNovoChildCall(small *variant.Small, sample string) bool {
	depth, ok := small.Depths[sample]
	if !ok || depth < minDeNovoChildDepth {
		return false
	}
	if ab, ok := small.ABRatios[sample]; ok && (ab < minDeNovoChildAB || ab > maxDeNovoChildAB) {
		return false
	}
	return true
}

// deNovoParentRef accepts a parent only on a confirmed reference call:
// genotyped in the VCF with no alt allele, adequate depth, and no
// measurable alt support. An absent call is not evidence of absence.
func deNovoParentRef(small *variant.Small, parent string) bool {
	if small.HetSamples.Has(parent) || small.HomSamples.Has(parent) {
		return false
	}
	depth, ok := small.Depths[parent]
	if !ok || depth < minDeNovoParentDepth {
		return false
	}
	if ab, ok := small.ABRatios[parent]; ok && ab > maxDeNovoParentAB {
		return false
	}
	return true
}
