// SPDX-License-Identifier: MIT

package variant

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateFormat is the day-granular date stamp used across results.
const DateFormat = "2006-01-02"

// Today returns the current date at day granularity.
func Today() string {
	return time.Now().Format(DateFormat)
}

// VarEnvelope wraps the Var interface for JSON round-trips, discriminating
// the concrete type through a var_type field.
type VarEnvelope struct {
	Var
}

// MarshalJSON emits the concrete variant with an injected var_type.
func (e VarEnvelope) MarshalJSON() ([]byte, error) {
	switch v := e.Var.(type) {
	case *Small:
		return json.Marshal(struct {
			VarType Type `json:"var_type"`
			*Small
		}{TypeSmall, v})
	case *SV:
		return json.Marshal(struct {
			VarType Type `json:"var_type"`
			*SV
		}{TypeSV, v})
	default:
		return nil, fmt.Errorf("unsupported variant type %T", e.Var)
	}
}

// UnmarshalJSON sniffs var_type and decodes the matching concrete type.
func (e *VarEnvelope) UnmarshalJSON(data []byte) error {
	var probe struct {
		VarType Type `json:"var_type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch probe.VarType {
	case TypeSV:
		sv := &SV{}
		if err := json.Unmarshal(data, sv); err != nil {
			return err
		}
		e.Var = sv
	case TypeSmall, "":
		small := &Small{}
		if err := json.Unmarshal(data, small); err != nil {
			return err
		}
		e.Var = small
	default:
		return fmt.Errorf("unknown var_type %q", probe.VarType)
	}
	return nil
}

// PanelTags records which panels brought a gene into the analysis.
type PanelTags struct {
	Matched []int `json:"matched,omitempty"`
	Forced  []int `json:"forced,omitempty"`
}

// ReportVariant is a single prioritised variant for one sample, as it
// appears in the results JSON and the rendered report.
type ReportVariant struct {
	Var        VarEnvelope       `json:"var_data"`
	Sample     string            `json:"sample"`
	Family     string            `json:"family"`
	Gene       string            `json:"gene"`
	Categories []string          `json:"categories"`
	Reasons    StringSet         `json:"reasons"`
	Genotypes  map[string]string `json:"genotypes,omitempty"`
	// SupportVars holds partner variant identifiers for compound-het calls.
	SupportVars StringSet `json:"support_vars,omitempty"`
	Flags       []string  `json:"flags"`
	Panels      PanelTags `json:"panels"`
	Phenotypes  []string  `json:"phenotypes,omitempty"`
	Labels      []string  `json:"labels,omitempty"`
	FirstSeen   string    `json:"first_seen"`
	Independent bool      `json:"independent"`
	// PhenotypeMatchDate is set when the gene was phenotype-matched for
	// this participant.
	PhenotypeMatchDate string `json:"phenotype_match_date,omitempty"`
}

// IsIndependent reports whether the variant acts without partner support.
func (rv *ReportVariant) IsIndependent() bool {
	return len(rv.SupportVars) == 0
}

// UID builds the deduplication identity for a reported variant:
// coordinates, gene and the sorted partner set.
func (rv *ReportVariant) UID() string {
	supportID := "Unsupported"
	if len(rv.SupportVars) > 0 {
		supportID = strings.Join(rv.SupportVars.Sorted(), ",")
	}
	return fmt.Sprintf("%s__%s__%s", rv.Var.Coords().String(), rv.Gene, supportID)
}

// SameEvent reports whether two records describe the same sample + locus.
func (rv *ReportVariant) SameEvent(other *ReportVariant) bool {
	return rv.Sample == other.Sample && rv.Var.Coords() == other.Var.Coords()
}

// AddFlags appends flags, keeping order and dropping duplicates.
func (rv *ReportVariant) AddFlags(flags ...string) {
	for _, f := range flags {
		seen := false
		for _, existing := range rv.Flags {
			if existing == f {
				seen = true
				break
			}
		}
		if !seen {
			rv.Flags = append(rv.Flags, f)
		}
	}
}

// PanelShort identifies one queried panel at one version.
type PanelShort struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// FamilyBreakdown summarises the cohort pedigree for result metadata.
type FamilyBreakdown struct {
	Affected    int         `json:"affected"`
	Male        int         `json:"male"`
	Female      int         `json:"female"`
	Trios       int         `json:"trios"`
	FamilySizes map[int]int `json:"family_sizes"`
}

// ResultMeta describes one pipeline run.
type ResultMeta struct {
	RunID       string            `json:"run_id"`
	Cohort      string            `json:"cohort"`
	RunTime     string            `json:"run_time"`
	InputFile   string            `json:"input_file,omitempty"`
	GenomeBuild string            `json:"genome_build,omitempty"`
	Categories  map[string]string `json:"categories"`
	Panels      []PanelShort      `json:"panels"`
	Family      FamilyBreakdown   `json:"family_breakdown"`
	Version     string            `json:"version,omitempty"`
}

// SampleMeta carries the per-participant context shown in reports.
type SampleMeta struct {
	ExtID      string   `json:"ext_id"`
	FamilyID   string   `json:"family_id"`
	Phenotypes []string `json:"phenotypes,omitempty"`
	PanelIDs   []int    `json:"panel_ids,omitempty"`
	PanelNames []string `json:"panel_names,omitempty"`
}

// SampleResults groups one sample's reportable variants.
type SampleResults struct {
	Metadata SampleMeta       `json:"metadata"`
	Variants []*ReportVariant `json:"variants"`
}

// ResultSet is the complete output of a validation run.
type ResultSet struct {
	Metadata ResultMeta               `json:"metadata"`
	Results  map[string]SampleResults `json:"results"`
}

// SortVariants fixes the variant ordering within each sample: chromosome
// rank, then position, then gene.
func (rs *ResultSet) SortVariants() {
	for _, sample := range rs.Results {
		sort.SliceStable(sample.Variants, func(i, j int) bool {
			a, b := sample.Variants[i], sample.Variants[j]
			if a.Var.Coords() == b.Var.Coords() {
				return a.Gene < b.Gene
			}
			return a.Var.Coords().Less(b.Var.Coords())
		})
	}
}

// SampleIDs returns the samples present in the result set, sorted.
func (rs *ResultSet) SampleIDs() []string {
	out := make([]string, 0, len(rs.Results))
	for sample := range rs.Results {
		out = append(out, sample)
	}
	sort.Strings(out)
	return out
}
