// SPDX-License-Identifier: MIT

// Package compare reconciles a validated result set against the variants
// curators flagged in seqr. Flagged variants the pipeline reported are
// counted as matches; the rest are explained by replaying the labelling
// gates against the labelled VCF, so every miss carries a cause.
package compare

import (
	"fmt"
	"sort"
	"strings"

	"github.com/talosproj/talos/internal/pedigree"
	"github.com/talosproj/talos/internal/variant"
)

// Confidence grades a curator flag.
type Confidence string

const (
	ConfidenceExpected Confidence = "Expected"
	ConfidencePossible Confidence = "Possible"
	ConfidenceUnlikely Confidence = "Unlikely"
)

// DefaultTagPrefix namespaces the seqr tags this tool consumes. A tag
// reads "<prefix>: <confidence>"; anything else on the row is ignored.
const DefaultTagPrefix = "Talos training"

// Key identifies a variant across callsets. Chromosomes compare without
// the chr prefix so seqr exports and VCF contigs line up, and alleles
// compare case-insensitively.
type Key struct {
	Chrom string `json:"chrom"`
	Pos   int    `json:"pos"`
	Ref   string `json:"ref"`
	Alt   string `json:"alt"`
}

// NewKey normalises the identity fields into a comparable Key.
func NewKey(chrom string, pos int, ref, alt string) Key {
	return Key{
		Chrom: strings.TrimPrefix(chrom, "chr"),
		Pos:   pos,
		Ref:   strings.ToUpper(ref),
		Alt:   strings.ToUpper(alt),
	}
}

// KeyFromCoords normalises VCF coordinates into a Key.
func KeyFromCoords(c variant.Coordinates) Key {
	return NewKey(c.Chrom, c.Pos, c.Ref, c.Alt)
}

func (k Key) String() string {
	return fmt.Sprintf("%s-%d-%s-%s", k.Chrom, k.Pos, k.Ref, k.Alt)
}

// Flagged is one curator-flagged call for one sample.
type Flagged struct {
	Key        Key          `json:"key"`
	Confidence []Confidence `json:"confidence,omitempty"`
}

// Calls maps sample IDs to variants in a comparable shape.
type Calls map[string][]Flagged

// FromResults flattens a result set into comparable calls. Samples with
// zero reported variants keep their entry; an analysed sample with no
// hits is not the same as a sample the run never saw.
func FromResults(set *variant.ResultSet) Calls {
	out := make(Calls, len(set.Results))
	for sample, res := range set.Results {
		out[sample] = nil
		for _, rv := range res.Variants {
			out[sample] = append(out[sample], Flagged{Key: KeyFromCoords(rv.Var.Coords())})
		}
	}
	return out
}

// ProbandsByFamily maps family IDs to their probands. Seqr flags are
// recorded per family; the probands are the samples they resolve to.
func ProbandsByFamily(ped *pedigree.Pedigree) map[string][]string {
	out := make(map[string][]string)
	for _, id := range ped.Probands() {
		if p, ok := ped.Participant(id); ok {
			out[p.FamilyID] = append(out[p.FamilyID], id)
		}
	}
	return out
}

// FindMissing diffs the flagged calls against the pipeline's calls and
// returns, per sample, the flagged variants the pipeline did not report.
// A sample absent from the results entirely keeps all its flags.
// Matching ignores confidence; a flag at any grade is satisfied by a
// reported variant at the same locus and alleles.
func FindMissing(results, flagged Calls) Calls {
	missing := make(Calls)
	for sample, flags := range flagged {
		reported := make(map[Key]struct{})
		for _, call := range results[sample] {
			reported[call.Key] = struct{}{}
		}
		for _, flag := range flags {
			if _, ok := reported[flag.Key]; !ok {
				missing[sample] = append(missing[sample], flag)
			}
		}
	}
	for sample := range missing {
		sort.Slice(missing[sample], func(i, j int) bool {
			a, b := missing[sample][i].Key, missing[sample][j].Key
			if a.Chrom != b.Chrom {
				return variant.ChromRank(a.Chrom) < variant.ChromRank(b.Chrom)
			}
			return a.Pos < b.Pos
		})
	}
	return missing
}
