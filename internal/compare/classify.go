// SPDX-License-Identifier: MIT

package compare

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/talosproj/talos/internal/config"
	"github.com/talosproj/talos/internal/fileio"
	"github.com/talosproj/talos/internal/log"
	"github.com/talosproj/talos/internal/panelapp"
	"github.com/talosproj/talos/internal/pedigree"
	"github.com/talosproj/talos/internal/variant"
	"github.com/talosproj/talos/internal/vcf"
)

// Cause explains why a flagged variant is absent from the results.
type Cause string

const (
	CauseNotInVCF      Cause = "absent from VCF"
	CauseFilters       Cause = "failed joint-call filters"
	CauseACRatio       Cause = "AC too high in joint call"
	CauseRarity        Cause = "exceeds rarity threshold"
	CauseNonGreen      Cause = "no green gene at this locus"
	CauseConsequence   Cause = "no qualifying transcript consequence"
	CauseNoCall        Cause = "no alt call for sample"
	CauseUncategorised Cause = "no category assigned"
	CauseSupportOnly   Cause = "support category only"
	CauseMOI           Cause = "rejected by inheritance checks"
)

// Options wires a comparison run. The labelled VCF decides whether a
// miss survived labelling; the annotated VCF (the labelling input) lets
// the earlier gates be replayed for rows labelling dropped. Either may
// be omitted, narrowing what the classifier can explain.
type Options struct {
	Config       *config.Config
	Results      *variant.ResultSet
	Pedigree     *pedigree.Pedigree
	Panels       *panelapp.Data
	SeqrExport   string
	LabelledVCF  string
	AnnotatedVCF string
	TagPrefix    string
}

// Comparator diffs curator flags against a result set and explains the
// misses by replaying the pipeline's gates.
type Comparator struct {
	opts   Options
	logger zerolog.Logger
}

// New validates the wiring for a comparison run.
func New(opts Options) (*Comparator, error) {
	if opts.Config == nil || opts.Results == nil || opts.Pedigree == nil || opts.Panels == nil {
		return nil, errors.New("compare: config, results, pedigree and panel data are all required")
	}
	if opts.SeqrExport == "" {
		return nil, errors.New("compare: seqr export path is required")
	}
	return &Comparator{opts: opts, logger: log.WithComponent("compare")}, nil
}

// MissedVariant is one flagged variant the pipeline did not report.
type MissedVariant struct {
	Variant    string       `json:"variant"`
	Confidence []Confidence `json:"confidence,omitempty"`
	Cause      Cause        `json:"cause"`
	Detail     string       `json:"detail,omitempty"`
}

// Summary is the JSON output of a comparison run.
type Summary struct {
	Cohort  string                     `json:"cohort"`
	RunID   string                     `json:"run_id"`
	Flagged int                        `json:"flagged"`
	Matched int                        `json:"matched"`
	Missed  int                        `json:"missed"`
	ByCause map[Cause]int              `json:"by_cause,omitempty"`
	Samples map[string][]MissedVariant `json:"samples,omitempty"`
}

// Run parses the seqr export, diffs it against the results and
// classifies every miss.
func (c *Comparator) Run(ctx context.Context) (*Summary, error) {
	flagged, err := ParseSeqrExport(c.opts.SeqrExport, ProbandsByFamily(c.opts.Pedigree), c.opts.TagPrefix)
	if err != nil {
		return nil, err
	}
	results := FromResults(c.opts.Results)
	missing := FindMissing(results, flagged)

	summary := &Summary{
		Cohort:  c.opts.Results.Metadata.Cohort,
		RunID:   c.opts.Results.Metadata.RunID,
		ByCause: make(map[Cause]int),
		Samples: make(map[string][]MissedVariant),
	}
	for _, sample := range sortedSamples(flagged) {
		flags := flagged[sample]
		miss := len(missing[sample])
		summary.Flagged += len(flags)
		summary.Matched += len(flags) - miss
		if _, analysed := results[sample]; !analysed {
			c.logger.Warn().Str("sample", sample).Msg("flagged sample absent from results")
		}
		c.logger.Info().
			Str("sample", sample).
			Int("matched", len(flags)-miss).
			Int("missing", miss).
			Msg("sample reconciled")
	}

	labelled, err := c.collectRows(ctx, c.opts.LabelledVCF, missing)
	if err != nil {
		return nil, err
	}
	annotated, err := c.collectRows(ctx, c.opts.AnnotatedVCF, missing)
	if err != nil {
		return nil, err
	}

	for sample, flags := range missing {
		for _, flag := range flags {
			mv := c.classify(sample, flag, labelled[flag.Key], annotated[flag.Key])
			summary.Samples[sample] = append(summary.Samples[sample], mv)
			summary.ByCause[mv.Cause]++
			summary.Missed++
		}
	}
	c.logger.Info().
		Int("flagged", summary.Flagged).
		Int("matched", summary.Matched).
		Int("missed", summary.Missed).
		Msg("comparison complete")
	return summary, nil
}

// collectRows scans one VCF for the loci in the missing set. A single
// pass serves every miss; the wanted set is small.
func (c *Comparator) collectRows(ctx context.Context, path string, missing Calls) (map[Key][]*variant.Small, error) {
	rows := make(map[Key][]*variant.Small)
	if path == "" {
		return rows, nil
	}
	wanted := make(map[Key]struct{})
	for _, flags := range missing {
		for _, flag := range flags {
			wanted[flag.Key] = struct{}{}
		}
	}
	if len(wanted) == 0 {
		return rows, nil
	}

	f, err := vcf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	defer f.Close()
	for {
		small, err := f.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("compare: %s: %w", path, err)
		}
		key := KeyFromCoords(small.Coordinates)
		if _, ok := wanted[key]; ok {
			rows[key] = append(rows[key], small)
		}
	}
	return rows, nil
}

// classify explains one miss. Rows in the labelled VCF survived every
// upstream gate, so the explanation is per-sample; rows only in the
// annotated VCF are walked through the labelling gates in funnel order,
// and the row that got furthest explains the miss.
func (c *Comparator) classify(sample string, flag Flagged, labelled, annotated []*variant.Small) MissedVariant {
	mv := MissedVariant{Variant: flag.Key.String(), Confidence: flag.Confidence}

	if len(labelled) > 0 {
		mv.Cause, mv.Detail = classifyLabelled(labelled, sample)
		return mv
	}
	if len(annotated) > 0 {
		mv.Cause, mv.Detail = c.classifyAnnotated(annotated, sample)
		return mv
	}
	mv.Cause = CauseNotInVCF
	return mv
}

func classifyLabelled(rows []*variant.Small, sample string) (Cause, string) {
	// genotypes are shared across per-gene row copies
	if !rows[0].IsHet(sample) && !rows[0].IsHom(sample) {
		return CauseNoCall, ""
	}
	cause := CauseUncategorised
	var gene string
	for _, row := range rows {
		switch {
		case row.Categories.CategorisedFor(sample, false):
			return CauseMOI, "gene " + row.InfoString("gene_id")
		case row.Categories.Support:
			cause = CauseSupportOnly
			gene = row.InfoString("gene_id")
		}
	}
	if gene != "" {
		return cause, "gene " + gene
	}
	return cause, ""
}

func (c *Comparator) classifyAnnotated(rows []*variant.Small, sample string) (Cause, string) {
	bestRank := 0
	bestCause, bestDetail := CauseFilters, ""
	for _, row := range rows {
		rank, cause, detail := c.annotatedRank(row, sample)
		if rank > bestRank {
			bestRank, bestCause, bestDetail = rank, cause, detail
		}
	}
	return bestCause, bestDetail
}

// annotatedRank walks one pre-labelling row through the gates labelling
// applies, returning how far it got and the gate that stopped it.
func (c *Comparator) annotatedRank(row *variant.Small, sample string) (int, Cause, string) {
	filter := c.opts.Config.Filter

	if f := row.InfoString("filter"); f != "" && f != "PASS" {
		return 1, CauseFilters, f
	}

	ac := row.InfoFloat("ac", 0)
	an := row.InfoFloat("an", 0)
	if ac > float64(filter.CallsetACMax) && !(an > 0 && ac/an < filter.CallsetAFMax) {
		return 2, CauseACRatio, fmt.Sprintf("AC %.0f / AN %.0f", ac, an)
	}

	exAF := row.InfoFloat("gnomad_ex_af", 0)
	gAF := row.InfoFloat("gnomad_af", 0)
	if exAF >= filter.AFSemiRare || gAF >= filter.AFSemiRare {
		return 3, CauseRarity, fmt.Sprintf("gnomAD AF %.4g", max(exAF, gAF))
	}

	greens := c.greenGenes(row)
	if len(greens) == 0 {
		return 4, CauseNonGreen, ""
	}

	if !qualifyingConsequence(row, greens) {
		return 5, CauseConsequence, "genes " + strings.Join(greens, ",")
	}

	if !row.IsHet(sample) && !row.IsHom(sample) {
		return 6, CauseNoCall, ""
	}
	return 7, CauseUncategorised, "genes " + strings.Join(greens, ",")
}

func (c *Comparator) greenGenes(row *variant.Small) []string {
	greens := variant.NewStringSet()
	for _, csq := range row.Consequences {
		if g := csq.Get("gene"); g != "" && c.opts.Panels.Genes[g] != nil {
			greens.Add(g)
		}
	}
	return greens.Sorted()
}

// qualifyingConsequence mirrors the labelling transcript gate: the row
// needs a consequence on a green gene's protein-coding or MANE
// transcript to be assessed.
func qualifyingConsequence(row *variant.Small, greens []string) bool {
	greenSet := variant.NewStringSet(greens...)
	for _, csq := range row.Consequences {
		if !greenSet.Has(csq.Get("gene")) {
			continue
		}
		if csq.Get("biotype") == "protein_coding" || strings.Contains(csq.Get("mane_select"), "NM") {
			return true
		}
	}
	return false
}

func sortedSamples(calls Calls) []string {
	out := make([]string, 0, len(calls))
	for sample := range calls {
		out = append(out, sample)
	}
	sort.Strings(out)
	return out
}

// SaveSummary writes the comparison summary as JSON.
func SaveSummary(path string, summary *Summary) error {
	return fileio.WriteJSON(path, summary)
}
