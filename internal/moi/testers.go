// SPDX-License-Identifier: MIT

package moi

import (
	"github.com/rs/zerolog"

	"github.com/talosproj/talos/internal/config"
	"github.com/talosproj/talos/internal/log"
	"github.com/talosproj/talos/internal/panelapp"
	"github.com/talosproj/talos/internal/pedigree"
	"github.com/talosproj/talos/internal/variant"
)

// Population-count INFO fields consulted by the frequency gates. Any one
// field breaching its cap rejects the variant.
var (
	homFields  = []string{"gnomad_hom", "gnomad_ex_hom", "exac_ac_hom"}
	hemiFields = []string{"gnomad_hemi", "gnomad_ex_hemi"}
)

type base struct {
	ped          *pedigree.Pedigree
	cfg          config.MOIConfig
	compHet      CompHetIndex
	allowSupport bool
	logger       zerolog.Logger
}

func newBase(opts Options) *base {
	return &base{
		ped:          opts.Pedigree,
		cfg:          opts.Tests,
		compHet:      opts.CompHet,
		allowSupport: opts.SupportIndependent,
		logger:       log.WithComponent("moi"),
	}
}

// peak returns the largest value recorded under any of the given INFO
// keys, with missing keys reading as zero.
func peak(v variant.Var, keys []string) float64 {
	top := 0.0
	for _, key := range keys {
		if val := v.InfoFloat(key, 0); val > top {
			top = val
		}
	}
	return top
}

// dominantRarityPass applies the stricter dominant-population caps:
// gnomAD AF, homozygote counts or allele count above the configured caps
// reject the variant. Values equal to a cap pass.
func (b *base) dominantRarityPass(v variant.Var) bool {
	if v.InfoFloat("gnomad_af", 0) > b.cfg.GnomadDominant {
		return false
	}
	if peak(v, homFields) > float64(b.cfg.GnomadMaxHomsDominant) {
		return false
	}
	return v.InfoFloat("gnomad_ac", 0) <= float64(b.cfg.GnomadMaxACDominant)
}

// recessiveRarityPass rejects a variant once the population homozygote
// count reaches the recessive cap.
func (b *base) recessiveRarityPass(v variant.Var) bool {
	return peak(v, homFields) < float64(b.cfg.GnomadMaxHomsRecessive)
}

// hemiRarityPass rejects a variant once the population hemizygote count
// reaches the cap. Applied to the male side of X-linked tests only.
func (b *base) hemiRarityPass(v variant.Var) bool {
	return peak(v, hemiFields) < float64(b.cfg.GnomadMaxHemi)
}

// affected resolves a sample to its pedigree entry when that entry is
// marked affected. Samples absent from the pedigree are not analysed.
func (b *base) affected(sample string) (*pedigree.Participant, bool) {
	p, ok := b.ped.Participant(sample)
	if !ok || !p.Affected {
		return nil, false
	}
	return p, true
}

// callSet collects every sample with an alt call, het or hom.
func callSet(v variant.Var) variant.StringSet {
	all := variant.NewStringSet(v.Hets()...)
	for _, s := range v.Homs() {
		all.Add(s)
	}
	return all
}

// newReport assembles the ReportVariant for one passing (sample, reason)
// fit, stamping the sample's categories, call flags and family genotypes.
func (b *base) newReport(v variant.Var, sample, reason string, partners ...*variant.Small) *variant.ReportVariant {
	family := ""
	p, ok := b.ped.Participant(sample)
	if ok {
		family = p.FamilyID
	}
	support := variant.NewStringSet()
	for _, partner := range partners {
		support.Add(partner.Coordinates.String())
	}
	return &variant.ReportVariant{
		Var:         variant.VarEnvelope{Var: v},
		Sample:      sample,
		Family:      family,
		Gene:        variant.GeneID(v),
		Categories:  v.Cat().Values(sample),
		Reasons:     variant.NewStringSet(reason),
		Genotypes:   b.familyGenotypes(v, p),
		SupportVars: support,
		Flags:       v.SampleFlags(sample),
		Independent: len(partners) == 0,
	}
}

// familyGenotypes labels the calls across the sample's family for report
// context. Uncalled members are omitted.
func (b *base) familyGenotypes(v variant.Var, p *pedigree.Participant) map[string]string {
	if p == nil {
		return nil
	}
	out := make(map[string]string)
	for _, member := range b.ped.Families[p.FamilyID] {
		switch {
		case v.IsHom(member.ID):
			out[member.ID] = "hom"
		case v.IsHet(member.ID):
			out[member.ID] = "het"
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// compHetFamilyPass rejects a candidate pair when any unaffected member
// of the sample's family carries both calls.
func (b *base) compHetFamilyPass(p *pedigree.Participant, first, second *variant.Small) bool {
	for _, member := range b.ped.Families[p.FamilyID] {
		if member.ID == p.ID || member.Affected {
			continue
		}
		if first.IsHet(member.ID) && second.IsHet(member.ID) {
			return false
		}
	}
	return true
}

// secondHits returns the indexed partners for a variant, restricted to
// concrete small variants. Phase data only exists for those.
func (b *base) secondHits(v variant.Var, sample string) []*variant.Small {
	small, ok := v.(*variant.Small)
	if ok {
		return b.compHet.SecondHits(sample, variant.GeneID(v), small.Coordinates)
	}
	return nil
}

// dominantAutosomal accepts affected carriers, het or hom, of variants
// under the dominant population caps whose whole family is consistent
// with dominant inheritance.
type dominantAutosomal struct {
	*base
}

func (m *dominantAutosomal) apply(v variant.Var) []*variant.ReportVariant {
	if !m.dominantRarityPass(v) {
		return nil
	}
	carriers := callSet(v)
	var out []*variant.ReportVariant
	for _, sample := range carriers.Sorted() {
		p, ok := m.affected(sample)
		if !ok || !v.Cat().CategorisedFor(sample, m.allowSupport) {
			continue
		}
		if !m.familyAllows(p, carriers, deNovoFor(v, sample)) {
			continue
		}
		out = append(out, m.newReport(v, sample, ReasonDominant))
	}
	return out
}

// recessiveAutosomal accepts affected homozygotes, and affected
// heterozygotes with a second hit in the same gene.
type recessiveAutosomal struct {
	*base
}

func (m *recessiveAutosomal) apply(v variant.Var) []*variant.ReportVariant {
	if !m.recessiveRarityPass(v) {
		return nil
	}
	var out []*variant.ReportVariant

	homs := variant.NewStringSet(v.Homs()...)
	for _, sample := range v.Homs() {
		p, ok := m.affected(sample)
		if !ok || !v.Cat().CategorisedFor(sample, m.allowSupport) {
			continue
		}
		if !m.familyAllows(p, homs, deNovoFor(v, sample)) {
			continue
		}
		out = append(out, m.newReport(v, sample, ReasonRecessiveHom))
	}

	for _, sample := range v.Hets() {
		p, ok := m.affected(sample)
		if !ok || !v.Cat().CategorisedFor(sample, true) {
			continue
		}
		for _, partner := range m.secondHits(v, sample) {
			if !m.compHetFamilyPass(p, v.(*variant.Small), partner) {
				continue
			}
			out = append(out, m.newReport(v, sample, ReasonRecessiveCompHet, partner))
		}
	}
	return out
}

// xDominant accepts affected carriers of X variants under the dominant
// caps, labelling the reason by recorded sex.
type xDominant struct {
	*base
}

func (m *xDominant) apply(v variant.Var) []*variant.ReportVariant {
	if !panelapp.IsXChrom(v.Coords().Chrom) {
		m.logger.Warn().
			Str("variant", v.Coords().String()).
			Msg("x-linked MOI for a variant off the X chromosome")
		return nil
	}
	if !m.dominantRarityPass(v) {
		return nil
	}
	carriers := callSet(v)
	var out []*variant.ReportVariant
	for _, sample := range carriers.Sorted() {
		p, ok := m.affected(sample)
		if !ok || !v.Cat().CategorisedFor(sample, m.allowSupport) {
			continue
		}
		if p.Sex == pedigree.SexUnknown {
			m.logger.Debug().Str("sample", sample).Msg("sex unknown, skipping sex-linked test")
			continue
		}
		if !m.familyAllows(p, carriers, deNovoFor(v, sample)) {
			continue
		}
		reason := ReasonXDominantMale
		if p.IsFemale() {
			reason = ReasonXDominantFemale
		}
		out = append(out, m.newReport(v, sample, reason))
	}
	return out
}

// xRecessive covers the hemizygous-male, homozygous-female and
// compound-het-female patterns on X. Male variant calls are treated as
// hemizygous whether recorded het or hom.
type xRecessive struct {
	*base
}

func (m *xRecessive) apply(v variant.Var) []*variant.ReportVariant {
	if !panelapp.IsXChrom(v.Coords().Chrom) {
		m.logger.Warn().
			Str("variant", v.Coords().String()).
			Msg("x-linked MOI for a variant off the X chromosome")
		return nil
	}
	if !m.recessiveRarityPass(v) {
		return nil
	}

	var out []*variant.ReportVariant
	males := variant.NewStringSet()
	homFemales := variant.NewStringSet()
	for _, sample := range callSet(v).Sorted() {
		p, ok := m.ped.Participant(sample)
		if !ok {
			continue
		}
		switch {
		case p.IsMale():
			males.Add(sample)
		case p.IsFemale() && v.IsHom(sample):
			homFemales.Add(sample)
		case p.Sex == pedigree.SexUnknown:
			m.logger.Debug().Str("sample", sample).Msg("sex unknown, skipping sex-linked test")
		}
	}

	// het females only report with a second hit
	for _, sample := range v.Hets() {
		p, ok := m.affected(sample)
		if !ok || !p.IsFemale() || !v.Cat().CategorisedFor(sample, true) {
			continue
		}
		for _, partner := range m.secondHits(v, sample) {
			if !m.compHetFamilyPass(p, v.(*variant.Small), partner) {
				continue
			}
			out = append(out, m.newReport(v, sample, ReasonXRecessiveCompHet, partner))
		}
	}

	// hemizygous males and homozygous females check the family against
	// the combined carrier set
	carriers := variant.NewStringSet()
	carriers.Merge(males)
	carriers.Merge(homFemales)
	for _, sample := range carriers.Sorted() {
		p, ok := m.affected(sample)
		if !ok || !v.Cat().CategorisedFor(sample, m.allowSupport) {
			continue
		}
		if p.IsMale() && !m.hemiRarityPass(v) {
			continue
		}
		if !m.familyAllows(p, carriers, deNovoFor(v, sample)) {
			continue
		}
		reason := ReasonXRecessiveFemale
		if p.IsMale() {
			reason = ReasonXRecessiveMale
		}
		out = append(out, m.newReport(v, sample, reason))
	}
	return out
}

// yHemi accepts affected carriers on Y. Hom calls and calls in recorded
// females are anomalies; both are logged, the latter still reported for
// manual review.
type yHemi struct {
	*base
}

func (m *yHemi) apply(v variant.Var) []*variant.ReportVariant {
	if v.InfoFloat("gnomad_af", 0) >= m.cfg.GnomadDominant ||
		v.InfoFloat("gnomad_ac", 0) >= float64(m.cfg.GnomadMaxACDominant) {
		return nil
	}

	for _, sample := range v.Homs() {
		m.logger.Warn().
			Str("sample", sample).
			Str("variant", v.Coords().String()).
			Msg("hom call on Y chromosome")
	}

	var out []*variant.ReportVariant
	for _, sample := range callSet(v).Sorted() {
		p, ok := m.affected(sample)
		if !ok || !v.Cat().CategorisedFor(sample, m.allowSupport) {
			continue
		}
		if p.IsFemale() {
			m.logger.Warn().
				Str("sample", sample).
				Str("variant", v.Coords().String()).
				Msg("female call on Y chromosome")
		}
		out = append(out, m.newReport(v, sample, ReasonYHemi))
	}
	return out
}
