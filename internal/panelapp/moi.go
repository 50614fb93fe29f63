// SPDX-License-Identifier: MIT

package panelapp

import (
	"strings"

	"github.com/talosproj/talos/internal/variant"
)

// Simplified mode-of-inheritance categories, reduced from PanelApp's
// free-text MOI strings to what the inheritance tests implement.
const (
	MOIMonoAndBiallelic = "Mono_And_Biallelic"
	MOIMonoallelic      = "Monoallelic"
	MOIHemiMonoInFemale = "Hemi_Mono_In_Female"
	MOIHemiBiInFemale   = "Hemi_Bi_In_Female"
	MOIBiallelic        = "Biallelic"
	MOIYChromVariant    = "Y_Chrom_Variant"
)

// OrderedMOIs ranks the simplified categories from most to least lenient.
// When a gene carries several, the analysis runs the most lenient one.
var OrderedMOIs = []string{
	MOIMonoAndBiallelic,
	MOIMonoallelic,
	MOIHemiMonoInFemale,
	MOIHemiBiInFemale,
	MOIBiallelic,
	MOIYChromVariant,
}

var moiRank = func() map[string]int {
	rank := make(map[string]int, len(OrderedMOIs))
	for i, moi := range OrderedMOIs {
		rank[moi] = i
	}
	return rank
}()

// IsXChrom reports whether chrom names the X chromosome, with or without
// a chr prefix.
func IsXChrom(chrom string) bool {
	return strings.TrimPrefix(strings.ToUpper(chrom), "CHR") == "X"
}

// SimpleMOI reduces a gene's collected raw MOI strings to simplified
// categories. Uninformative entries are dropped; if nothing informative
// remains, the chromosome default applies: biallelic on autosomes,
// hemizygous-male/biallelic-female on X.
func SimpleMOI(raw variant.StringSet, chrom string) variant.StringSet {
	onX := IsXChrom(chrom)
	simplified := variant.NewStringSet()
	for moi := range raw {
		lowered := strings.ToLower(moi)
		switch {
		case lowered == "unknown" || lowered == "other" || lowered == "none":
			continue
		case strings.HasPrefix(lowered, "both"):
			simplified.Add(MOIMonoAndBiallelic)
		case strings.HasPrefix(lowered, "mono"):
			if onX {
				simplified.Add(MOIHemiMonoInFemale)
			} else {
				simplified.Add(MOIMonoallelic)
			}
		case strings.HasPrefix(lowered, "bi"):
			if onX {
				simplified.Add(MOIHemiBiInFemale)
			} else {
				simplified.Add(MOIBiallelic)
			}
		case strings.HasPrefix(lowered, "x-linked"):
			if strings.Contains(lowered, "biallelic") {
				simplified.Add(MOIHemiBiInFemale)
			} else {
				simplified.Add(MOIHemiMonoInFemale)
			}
		case strings.HasPrefix(lowered, "y-linked"):
			simplified.Add(MOIYChromVariant)
		}
	}
	if len(simplified) == 0 {
		if onX {
			simplified.Add(MOIHemiBiInFemale)
		} else {
			simplified.Add(MOIBiallelic)
		}
	}
	return simplified
}

// BestMOI picks the single MOI to analyse a gene under: the most lenient
// simplified category, except that monoallelic and biallelic evidence
// together force the combined category.
func BestMOI(raw variant.StringSet, chrom string) string {
	simplified := SimpleMOI(raw, chrom)
	if simplified.Has(MOIBiallelic) && simplified.Has(MOIMonoallelic) {
		return MOIMonoAndBiallelic
	}
	best := ""
	bestRank := len(OrderedMOIs)
	for moi := range simplified {
		if rank, ok := moiRank[moi]; ok && rank < bestRank {
			best, bestRank = moi, rank
		}
	}
	return best
}

// ApplyBestMOI resolves every gene's collected MOI set in place.
func ApplyBestMOI(d *Data) {
	for _, detail := range d.Genes {
		detail.MOI = BestMOI(detail.AllMOI, detail.Chrom)
	}
}
