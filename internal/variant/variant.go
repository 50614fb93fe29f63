// SPDX-License-Identifier: MIT

// Package variant holds the data model shared across the pipeline: genomic
// coordinates, small and structural variants, category labels, and the
// report-facing result types.
package variant

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Canonical chromosome ordering: 1..22, then the non-hom contigs.
var chromOrder = buildChromOrder()

func buildChromOrder() map[string]int {
	order := make(map[string]int, 26)
	for i := 1; i <= 22; i++ {
		order[fmt.Sprintf("%d", i)] = i
	}
	for i, c := range []string{"X", "Y", "MT", "M"} {
		order[c] = 23 + i
	}
	return order
}

// ChromRank returns the sort rank for a chromosome name, tolerating a "chr"
// prefix. Contigs outside the canonical set sort after everything else.
func ChromRank(chrom string) int {
	c := strings.TrimPrefix(chrom, "chr")
	if rank, ok := chromOrder[c]; ok {
		return rank
	}
	return len(chromOrder) + 1
}

// Coordinates is a single-position genomic locus with its allele change.
type Coordinates struct {
	Chrom string `json:"chrom"`
	Pos   int    `json:"pos"`
	Ref   string `json:"ref"`
	Alt   string `json:"alt"`
}

// String forms the canonical representation: chrom-pos-ref-alt.
func (c Coordinates) String() string {
	return fmt.Sprintf("%s-%d-%s-%s", c.Chrom, c.Pos, c.Ref, c.Alt)
}

// Less orders coordinates by canonical chromosome rank, then position.
// Canonical contigs sort before HLA/decoy contigs.
func (c Coordinates) Less(other Coordinates) bool {
	if c.Chrom == other.Chrom {
		return c.Pos < other.Pos
	}
	return ChromRank(c.Chrom) < ChromRank(other.Chrom)
}

// SameLocus reports whether two coordinates share a position, regardless
// of the allele change. Split multi-allelic rows share a locus.
func (c Coordinates) SameLocus(other Coordinates) bool {
	return c.Chrom == other.Chrom && c.Pos == other.Pos
}

// Type discriminates the variant classes handled by the pipeline.
type Type string

const (
	TypeSmall Type = "small"
	TypeSV    Type = "sv"
)

// CategorySet carries every category label applied to a variant.
// Boolean categories apply to the whole variant; sample categories carry the
// samples they apply to, where "all" is a wildcard for every sample.
type CategorySet struct {
	Boolean map[string]bool     `json:"boolean,omitempty"`
	Samples map[string][]string `json:"samples,omitempty"`
	Support bool                `json:"support,omitempty"`
}

// SampleWildcard marks a sample category that applies to every sample.
const SampleWildcard = "all"

// SetBoolean assigns a whole-variant category.
func (c *CategorySet) SetBoolean(name string) {
	if c.Boolean == nil {
		c.Boolean = make(map[string]bool)
	}
	c.Boolean[name] = true
}

// AddSamples appends samples to a per-sample category.
func (c *CategorySet) AddSamples(name string, samples ...string) {
	if c.Samples == nil {
		c.Samples = make(map[string][]string)
	}
	c.Samples[name] = append(c.Samples[name], samples...)
}

// HasBoolean reports whether any whole-variant category is assigned.
func (c *CategorySet) HasBoolean() bool {
	for _, v := range c.Boolean {
		if v {
			return true
		}
	}
	return false
}

// HasSampleCategories reports whether any per-sample category holds samples.
func (c *CategorySet) HasSampleCategories() bool {
	for _, samples := range c.Samples {
		if len(samples) > 0 {
			return true
		}
	}
	return false
}

// NonSupport reports whether at least one non-support category is assigned.
func (c *CategorySet) NonSupport() bool {
	return c.HasBoolean() || c.HasSampleCategories()
}

// Classified reports at least one assigned category, including support.
func (c *CategorySet) Classified() bool {
	return c.NonSupport() || c.Support
}

// SupportOnly reports whether the variant is exclusively category support.
func (c *CategorySet) SupportOnly() bool {
	return c.Support && !c.NonSupport()
}

// SampleCategorised reports whether any per-sample category names this
// sample, including via the "all" wildcard.
func (c *CategorySet) SampleCategorised(sample string) bool {
	for _, samples := range c.Samples {
		for _, s := range samples {
			if s == sample || s == SampleWildcard {
				return true
			}
		}
	}
	return false
}

// CategorisedFor checks whether the variant is categorised for this sample,
// optionally counting support.
func (c *CategorySet) CategorisedFor(sample string, allowSupport bool) bool {
	big := c.HasBoolean() || c.SampleCategorised(sample)
	if allowSupport {
		return big || c.Support
	}
	return big
}

// SampleSupportOnly reports whether, for this sample, the variant only
// carries the support category.
func (c *CategorySet) SampleSupportOnly(sample string) bool {
	return c.Support && !c.HasBoolean() && !c.SampleCategorised(sample)
}

// Values flattens all categories applied to this variant for one sample:
// per-sample categories where the sample (or "all") is named, every assigned
// boolean category, and "support" when set. Sorted for stable output.
func (c *CategorySet) Values(sample string) []string {
	var out []string
	for name, samples := range c.Samples {
		for _, s := range samples {
			if s == sample || s == SampleWildcard {
				out = append(out, name)
				break
			}
		}
	}
	for name, v := range c.Boolean {
		if v {
			out = append(out, name)
		}
	}
	if c.Support {
		out = append(out, "support")
	}
	sort.Strings(out)
	return out
}

// Consequence is one VEP transcript consequence. Keys follow the configured
// csq_string field order, lower-cased.
type Consequence map[string]string

// Get returns a consequence field, or "" when absent.
func (c Consequence) Get(key string) string { return c[key] }

// Terms splits the &-joined consequence field into individual terms.
func (c Consequence) Terms() []string {
	raw := c["consequence"]
	if raw == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(raw, "&") {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Float parses a numeric consequence field, returning the fallback when
// the field is absent or not numeric.
func (c Consequence) Float(key string, fallback float64) float64 {
	raw, ok := c[key]
	if !ok || raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return f
}

// Var is the behaviour shared by small and structural variants.
type Var interface {
	Coords() Coordinates
	Cat() *CategorySet
	Info() map[string]any
	InfoFloat(key string, fallback float64) float64
	IsHet(sample string) bool
	IsHom(sample string) bool
	Hets() []string
	Homs() []string
	SampleFlags(sample string) []string
	VarType() Type
}

// Small is a small variant (SNV / short indel) lifted out of the annotated
// VCF with its per-sample calls and annotation payload.
type Small struct {
	Coordinates Coordinates    `json:"coordinates"`
	InfoMap     map[string]any `json:"info"`
	Categories  CategorySet    `json:"categories"`
	HetSamples  StringSet      `json:"-"`
	HomSamples  StringSet      `json:"-"`
	Depths      map[string]int `json:"-"`
	ABRatios    map[string]float64
	// Phases maps sample -> phase-set ID -> genotype; used to exclude
	// comp-het pairs inherited on the same haplotype.
	Phases       map[string]map[int]string `json:"-"`
	Consequences []Consequence             `json:"transcript_consequences"`
}

func (v *Small) Coords() Coordinates  { return v.Coordinates }
func (v *Small) Cat() *CategorySet    { return &v.Categories }
func (v *Small) Info() map[string]any { return v.InfoMap }
func (v *Small) VarType() Type        { return TypeSmall }

func (v *Small) IsHet(sample string) bool { return v.HetSamples.Has(sample) }
func (v *Small) IsHom(sample string) bool { return v.HomSamples.Has(sample) }

// Hets returns the heterozygous samples, sorted.
func (v *Small) Hets() []string { return v.HetSamples.Sorted() }

// Homs returns the homozygous-alt samples, sorted.
func (v *Small) Homs() []string { return v.HomSamples.Sorted() }

const (
	lowDepthThreshold = 10

	FlagABRatio      = "AB Ratio"
	FlagLowReadDepth = "Low Read Depth"
)

// SampleFlags collects the report flags for one sample's call.
func (v *Small) SampleFlags(sample string) []string {
	flags := v.checkABRatio(sample)
	flags = append(flags, v.checkReadDepth(sample)...)
	return flags
}

func (v *Small) checkReadDepth(sample string) []string {
	depth, ok := v.Depths[sample]
	if ok && depth < lowDepthThreshold {
		return []string{FlagLowReadDepth}
	}
	return nil
}

// checkABRatio flags calls whose allele balance is inconsistent with the
// called genotype: ref-like (<= 0.15), het outside 0.25..0.75, or hom
// below 0.85.
func (v *Small) checkABRatio(sample string) []string {
	het := v.HetSamples.Has(sample)
	hom := v.HomSamples.Has(sample)
	ab, ok := v.ABRatios[sample]
	if !ok {
		ab = 0.0
	}
	if ab <= 0.15 || (het && !(ab >= 0.25 && ab <= 0.75)) || (hom && ab <= 0.85) {
		return []string{FlagABRatio}
	}
	return nil
}

// InfoFloat reads a numeric info value, accepting int or float payloads.
// Missing or non-numeric values return the fallback.
func (v *Small) InfoFloat(key string, fallback float64) float64 {
	return infoFloat(v.InfoMap, key, fallback)
}

// InfoString reads a string info value, returning "" when absent.
func (v *Small) InfoString(key string) string {
	return infoString(v.InfoMap, key)
}

func infoFloat(info map[string]any, key string, fallback float64) float64 {
	raw, ok := info[key]
	if !ok {
		return fallback
	}
	switch n := raw.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return fallback
}

func infoString(info map[string]any, key string) string {
	if raw, ok := info[key]; ok {
		if s, ok := raw.(string); ok {
			return s
		}
	}
	return ""
}

// SV is a structural variant. AB-ratio and depth flags do not apply.
type SV struct {
	Coordinates Coordinates    `json:"coordinates"`
	InfoMap     map[string]any `json:"info"`
	Categories  CategorySet    `json:"categories"`
	HetSamples  StringSet      `json:"-"`
	HomSamples  StringSet      `json:"-"`
}

func (v *SV) Coords() Coordinates  { return v.Coordinates }
func (v *SV) Cat() *CategorySet    { return &v.Categories }
func (v *SV) Info() map[string]any { return v.InfoMap }
func (v *SV) VarType() Type        { return TypeSV }

func (v *SV) IsHet(sample string) bool { return v.HetSamples.Has(sample) }
func (v *SV) IsHom(sample string) bool { return v.HomSamples.Has(sample) }

// Hets returns the heterozygous samples, sorted.
func (v *SV) Hets() []string { return v.HetSamples.Sorted() }

// Homs returns the homozygous-alt samples, sorted.
func (v *SV) Homs() []string { return v.HomSamples.Sorted() }

// SampleFlags is a no-op for structural variants.
func (v *SV) SampleFlags(string) []string { return nil }

// InfoFloat reads a numeric info value with a fallback, as for Small.
func (v *SV) InfoFloat(key string, fallback float64) float64 {
	return infoFloat(v.InfoMap, key, fallback)
}

// InfoString reads a string info value, returning "" when absent.
func (v *SV) InfoString(key string) string {
	return infoString(v.InfoMap, key)
}

// GeneID returns the gene annotation a variant was evaluated under.
func GeneID(v Var) string {
	return infoString(v.Info(), "gene_id")
}
