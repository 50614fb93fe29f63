// SPDX-License-Identifier: MIT

package moi

import (
	"github.com/talosproj/talos/internal/pedigree"
	"github.com/talosproj/talos/internal/variant"
)

// familyAllows walks the linked family out from one candidate and checks
// every reachable member against the carrier set. Under complete
// penetrance an affected member must carry the variant and a carrier must
// be affected; partialPen drops the second requirement. One failing
// member fails the whole family.
func (b *base) familyAllows(p *pedigree.Participant, carriers variant.StringSet, partialPen bool) bool {
	return b.walkFamily(p, carriers, variant.NewStringSet(), partialPen)
}

func (b *base) walkFamily(p *pedigree.Participant, carriers, checked variant.StringSet, partialPen bool) bool {
	checked.Add(p.ID)

	carrier := carriers.Has(p.ID)
	if p.Affected && !carrier {
		return false
	}
	if carrier && !p.Affected && !partialPen {
		return false
	}

	relatives := make([]*pedigree.Participant, 0, len(p.Children)+2)
	relatives = append(relatives, p.Children...)
	relatives = append(relatives, p.Mother, p.Father)
	for _, rel := range relatives {
		if rel == nil || checked.Has(rel.ID) {
			continue
		}
		if !b.walkFamily(rel, carriers, checked, partialPen) {
			return false
		}
	}
	return true
}
