// SPDX-License-Identifier: MIT

package label

import (
	"strconv"
	"strings"

	"github.com/talosproj/talos/internal/variant"
)

// categorise runs every category predicate against one green-gene row.
// Categories are independent; a variant may hold several. Category 5 runs
// before the de novo search, which admits splice-flagged rows alongside
// the consequence-restricted set.
func (l *Labeller) categorise(small *variant.Small) {
	cats := small.Cat()
	talos := small.InfoFloat(InfoTalos, 0) == 1

	// category 1: pathogenic re-summary decision with star support
	if small.InfoFloat(InfoTalosStrong, 0) == 1 {
		cats.SetBoolean("1")
	}

	critical := l.hasCritical(small.Consequences)

	// category 2: gene newly green on a panel, with any corroboration
	if l.newGenes.Has(variant.GeneID(small)) &&
		(critical || talos || l.highInSilico(small)) {
		cats.SetBoolean("2")
	}

	// category 3: critical consequence, LOFTEE-confirmed or clinvar-backed
	if critical && (l.lofteeConfirmed(small.Consequences) || talos) {
		cats.SetBoolean("3")
	}

	if small.InfoFloat("splice_ai_delta", 0) >= l.filter.SpliceAIFull {
		cats.SetBoolean("5")
	}

	if anyAlphaMissense(small.Consequences) {
		cats.SetBoolean("6")
	}

	if l.deNovoEligible(small) {
		if samples := l.deNovoSamples(small); len(samples) > 0 {
			cats.AddSamples("4", samples...)
		}
	}

	if l.supportConsensus(small) {
		cats.Support = true
	}
}

// hasCritical reports a critical consequence term on any transcript.
func (l *Labeller) hasCritical(csqs []variant.Consequence) bool {
	for _, csq := range csqs {
		for _, term := range csq.Terms() {
			if l.critical.Has(term) {
				return true
			}
		}
	}
	return false
}

// lofteeConfirmed requires a critical-consequence transcript whose LOFTEE
// call is high-confidence or absent. Only the upper-case HC call counts;
// low-confidence and case variants do not.
func (l *Labeller) lofteeConfirmed(csqs []variant.Consequence) bool {
	for _, csq := range csqs {
		hit := false
		for _, term := range csq.Terms() {
			if l.critical.Has(term) {
				hit = true
				break
			}
		}
		if !hit {
			continue
		}
		if lof := csq.Get("lof"); lof == "HC" || lof == "" {
			return true
		}
	}
	return false
}

// highInSilico is the score arm of category 2.
func (l *Labeller) highInSilico(small *variant.Small) bool {
	return small.InfoFloat("cadd", 0) > l.filter.InSilico.CADD ||
		small.InfoFloat("revel", 0) > l.filter.InSilico.REVEL
}

// anyAlphaMissense reports a likely-pathogenic AlphaMissense class on any
// transcript.
func anyAlphaMissense(csqs []variant.Consequence) bool {
	for _, csq := range csqs {
		if csq.Get("am_class") == "likely_pathogenic" {
			return true
		}
	}
	return false
}

// supportConsensus is the in-silico agreement category: CADD and REVEL
// both over threshold, or SIFT, PolyPhen and MutationTaster all in
// agreement. SIFT qualifies downwards with a missing default of 1.0,
// PolyPhen upwards with a default of 0.0, so an unscored transcript never
// qualifies on the missing side.
func (l *Labeller) supportConsensus(small *variant.Small) bool {
	is := l.filter.InSilico
	if small.InfoFloat("cadd", 0) > is.CADD && small.InfoFloat("revel", 0) > is.REVEL {
		return true
	}

	sift, polyphen := false, false
	for _, csq := range small.Consequences {
		if predictionScore(csq.Get("sift"), 1.0) <= is.SIFT {
			sift = true
		}
		if predictionScore(csq.Get("polyphen"), 0.0) >= is.Polyphen {
			polyphen = true
		}
	}
	if !sift || !polyphen {
		return false
	}

	mt := small.InfoString("mutationtaster")
	if mt == "" {
		mt = "missing"
	}
	return strings.Contains(mt, "D") || mt == "missing"
}

// predictionScore pulls the numeric score out of a VEP prediction(score)
// field, also accepting a bare number. Unparseable values take the
// fallback.
func predictionScore(raw string, fallback float64) float64 {
	if raw == "" {
		return fallback
	}
	if i := strings.IndexByte(raw, '('); i >= 0 {
		if j := strings.IndexByte(raw[i:], ')'); j > 0 {
			raw = raw[i+1 : i+j]
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return f
}

// deNovoEligible restricts the de novo search to rows carrying a critical
// or missense consequence, or rows already flagged for splice impact.
func (l *Labeller) deNovoEligible(small *variant.Small) bool {
	if small.Categories.Boolean["5"] {
		return true
	}
	for _, csq := range small.Consequences {
		for _, term := range csq.Terms() {
			if l.denovoCSQ.Has(term) {
				return true
			}
		}
	}
	return false
}
