// SPDX-License-Identifier: MIT

package clinvar

import (
	"strings"
	"time"
)

// ACMGThreshold is the publication date of the ACMG/AMP interpretation
// guidelines. Submissions evaluated before it used laxer criteria and are
// dropped from crowd consensus; the threshold date itself is kept.
var ACMGThreshold = time.Date(2015, time.May, 1, 0, 0, 0, 0, time.UTC)

// Review statuses that outrank the crowd.
const (
	ReviewPracticeGuideline = "practice guideline"
	ReviewExpertPanel       = "reviewed by expert panel"

	reviewCriteriaProvided = "criteria provided"
)

// FilterACMG keeps submissions evaluated on or after the ACMG threshold.
func FilterACMG(subs []Submission) []Submission {
	out := make([]Submission, 0, len(subs))
	for _, sub := range subs {
		if !sub.Date.Before(ACMGThreshold) {
			out = append(out, sub)
		}
	}
	return out
}

// CheckStars assigns the collective review rating: 4 for a practice
// guideline, 3 for an expert panel, 1 when any submitter provided
// assertion criteria, otherwise 0.
func CheckStars(subs []Submission) int {
	stars := 0
	for _, sub := range subs {
		switch {
		case sub.ReviewStatus == ReviewPracticeGuideline:
			return 4
		case sub.ReviewStatus == ReviewExpertPanel:
			stars = 3
		case stars < 1 && strings.Contains(sub.ReviewStatus, reviewCriteriaProvided):
			stars = 1
		}
	}
	return stars
}

// Consensus reduces submissions to one classification by blind majority.
// Unknown submissions carry no vote. When pathogenic and benign camps both
// exist, a call needs at least 60% of the vote with the opposing camp at
// 20% or below, anything tighter is conflicting. Otherwise a variant where
// half or more of the vote is uncertain stays uncertain.
func Consensus(subs []Submission) Classification {
	var path, benign, uncertain int
	for _, sub := range subs {
		switch sub.Classification {
		case Pathogenic:
			path++
		case Benign:
			benign++
		case Uncertain:
			uncertain++
		}
	}
	total := path + benign + uncertain
	if total == 0 {
		return Uncertain
	}

	if path > 0 && benign > 0 {
		switch {
		case path*5 >= total*3 && benign*5 <= total:
			return Pathogenic
		case benign*5 >= total*3 && path*5 <= total:
			return Benign
		default:
			return Conflicting
		}
	}

	if uncertain*2 >= total {
		return Uncertain
	}
	if path > 0 {
		return Pathogenic
	}
	if benign > 0 {
		return Benign
	}
	return Uncertain
}

// Decide reduces one allele's submissions to a stored decision. Practice
// guideline and expert panel submissions override the crowd: when any
// exist, only they are counted, regardless of date.
func Decide(allele Allele, subs []Submission) Decision {
	considered := topTier(subs)
	if len(considered) == 0 {
		considered = FilterACMG(subs)
	}
	return Decision{
		Allele:         allele,
		Classification: Consensus(considered),
		Stars:          CheckStars(considered),
		Submissions:    len(considered),
	}
}

func topTier(subs []Submission) []Submission {
	var out []Submission
	for _, sub := range subs {
		if sub.ReviewStatus == ReviewPracticeGuideline || sub.ReviewStatus == ReviewExpertPanel {
			out = append(out, sub)
		}
	}
	return out
}
