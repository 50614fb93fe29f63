// SPDX-License-Identifier: MIT

// Package clinvar re-summarises raw ClinVar submissions into one decision
// per allele. ClinVar's own aggregate ratings mark a variant as conflicting
// whenever any submitter disagrees; the blind majority here recovers a
// usable classification from lopsided disagreements and stores the result
// in a local key-value database for annotation lookups.
package clinvar

import (
	"strings"
	"time"
)

// Classification is the reduced significance vocabulary. Values are
// lower-case so downstream contains-checks need no further folding.
type Classification string

const (
	Benign      Classification = "benign"
	Uncertain   Classification = "uncertain"
	Pathogenic  Classification = "pathogenic"
	Conflicting Classification = "conflicting"
	Unknown     Classification = "unknown"
)

// ParseClassification folds a raw ClinVar significance string onto the
// reduced vocabulary. Non-diagnostic significances (drug response, risk
// factor, association, and friends) map to Unknown and carry no weight in
// a consensus.
func ParseClassification(raw string) Classification {
	sig := strings.ToLower(raw)
	switch {
	case strings.Contains(sig, "conflicting"):
		return Conflicting
	case strings.Contains(sig, "pathogenic"):
		return Pathogenic
	case strings.Contains(sig, "benign"):
		return Benign
	case strings.Contains(sig, "uncertain"):
		return Uncertain
	default:
		return Unknown
	}
}

// Submission is one submitter's assertion about a variation.
type Submission struct {
	Date           time.Time
	Submitter      string
	Classification Classification
	ReviewStatus   string
}

// Allele is one GRCh38 allele of a ClinVar variation.
type Allele struct {
	ID    int64  `json:"id"`
	Chrom string `json:"chrom"`
	Pos   int    `json:"pos"`
	Ref   string `json:"ref"`
	Alt   string `json:"alt"`
}

// Decision is the stored per-allele outcome: the consensus classification,
// the collective star rating, and how many submissions produced it.
type Decision struct {
	Allele         Allele         `json:"allele"`
	Classification Classification `json:"classification"`
	Stars          int            `json:"stars"`
	Submissions    int            `json:"submissions"`
}

// INFO keys used to carry decisions on annotated variants.
const (
	InfoSignificance = "clinvar_sig"
	InfoStars        = "clinvar_stars"
	InfoAlleleID     = "clinvar_allele_id"
)
