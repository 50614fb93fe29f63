// SPDX-License-Identifier: MIT

package runner

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/talosproj/talos/internal/history"
	"github.com/talosproj/talos/internal/panelapp"
	"github.com/talosproj/talos/internal/variant"
	"github.com/talosproj/talos/internal/version"
)

// clean condenses raw model hits into the final result set: one record
// per sample and uid with merged evidence, solved families removed,
// every affected callset member present, and dates stamped.
func (r *Runner) clean(ctx context.Context, raw []*variant.ReportVariant, samples []string) (*variant.ResultSet, error) {
	today := variant.Today()
	for _, rv := range raw {
		r.tagPanels(rv, today)
	}

	merged := r.dedupe(raw)
	r.dropSolved(merged)
	r.backfill(merged, samples)
	if err := r.dateFirstSeen(ctx, merged, today); err != nil {
		return nil, err
	}

	set := &variant.ResultSet{
		Metadata: r.metadata(samples),
		Results:  make(map[string]variant.SampleResults, len(merged)),
	}
	for sample, byUID := range merged {
		uids := make([]string, 0, len(byUID))
		for uid := range byUID {
			uids = append(uids, uid)
		}
		sort.Strings(uids)
		variants := make([]*variant.ReportVariant, 0, len(uids))
		for _, uid := range uids {
			variants = append(variants, byUID[uid])
		}
		set.Results[sample] = variant.SampleResults{
			Metadata: r.sampleMeta(sample),
			Variants: variants,
		}
	}
	set.SortVariants()
	return set, nil
}

// dedupe folds repeat calls of the same event. A variant can satisfy
// several models; the report wants one row carrying every reason.
func (r *Runner) dedupe(raw []*variant.ReportVariant) map[string]map[string]*variant.ReportVariant {
	merged := make(map[string]map[string]*variant.ReportVariant)
	for _, rv := range raw {
		byUID := merged[rv.Sample]
		if byUID == nil {
			byUID = make(map[string]*variant.ReportVariant)
			merged[rv.Sample] = byUID
		}
		uid := rv.UID()
		existing, ok := byUID[uid]
		if !ok {
			byUID[uid] = rv
			continue
		}
		existing.Reasons.Merge(rv.Reasons)
		existing.AddFlags(rv.Flags...)
		existing.Panels = mergeTags(existing.Panels, rv.Panels)
	}
	return merged
}

func mergeTags(a, b variant.PanelTags) variant.PanelTags {
	matched := variant.NewIntSet(a.Matched...)
	matched.Merge(variant.NewIntSet(b.Matched...))
	forced := variant.NewIntSet(a.Forced...)
	forced.Merge(variant.NewIntSet(b.Forced...))

	var out variant.PanelTags
	if len(matched) > 0 {
		out.Matched = matched.Sorted()
	}
	if len(forced) > 0 {
		out.Forced = forced.Sorted()
	}
	return out
}

// tagPanels stamps the panel provenance for one record and dates the
// phenotype match when a matched panel carries the gene. The default
// panel and cohort-forced panels never count as phenotype matches.
func (r *Runner) tagPanels(rv *variant.ReportVariant, today string) {
	detail := r.opts.Panels.Genes[rv.Gene]
	if detail == nil {
		return
	}

	forced := variant.NewIntSet()
	for _, id := range r.cohort.CohortPanels {
		if detail.Panels.Has(id) {
			forced.Add(id)
		}
	}

	matched := variant.NewIntSet()
	if r.opts.Phenotypes != nil {
		if part := r.opts.Phenotypes.Samples[rv.Sample]; part != nil {
			for _, id := range part.Panels.Sorted() {
				if id == panelapp.DefaultPanel || forced.Has(id) {
					continue
				}
				if detail.Panels.Has(id) {
					matched.Add(id)
				}
			}
		}
	}

	var tags variant.PanelTags
	if len(matched) > 0 {
		tags.Matched = matched.Sorted()
		rv.PhenotypeMatchDate = today
	}
	if len(forced) > 0 {
		tags.Forced = forced.Sorted()
	}
	rv.Panels = tags
}

// dropSolved removes samples whose family is recorded as solved.
func (r *Runner) dropSolved(merged map[string]map[string]*variant.ReportVariant) {
	if len(r.cohort.SolvedFamilies) == 0 {
		return
	}
	solved := variant.NewStringSet(r.cohort.SolvedFamilies...)
	for sample := range merged {
		if r.isSolved(solved, sample) {
			delete(merged, sample)
			r.logger.Info().Str("sample", sample).Msg("solved family dropped")
		}
	}
}

func (r *Runner) isSolved(solved variant.StringSet, sample string) bool {
	if solved.Has(sample) {
		return true
	}
	if p, ok := r.opts.Pedigree.Participant(sample); ok {
		return solved.Has(p.FamilyID)
	}
	return false
}

// backfill inserts empty entries so every affected callset member
// shows up with an explicit negative finding.
func (r *Runner) backfill(merged map[string]map[string]*variant.ReportVariant, samples []string) {
	solved := variant.NewStringSet(r.cohort.SolvedFamilies...)
	for _, sample := range samples {
		p, ok := r.opts.Pedigree.Participant(sample)
		if !ok || !p.Affected {
			continue
		}
		if r.isSolved(solved, sample) {
			continue
		}
		if _, ok := merged[sample]; !ok {
			merged[sample] = make(map[string]*variant.ReportVariant)
		}
	}
}

// dateFirstSeen annotates every record with the earliest date its uid
// was reported for the cohort. Without a history store everything
// dates from today.
func (r *Runner) dateFirstSeen(ctx context.Context, merged map[string]map[string]*variant.ReportVariant, today string) error {
	byUID := make(map[string]*history.Sighting)
	for _, sampleResults := range merged {
		for uid, rv := range sampleResults {
			rv.FirstSeen = today
			s := byUID[uid]
			if s == nil {
				s = &history.Sighting{UID: uid, Date: today}
				byUID[uid] = s
			}
			categories := variant.NewStringSet(s.Categories...)
			for _, c := range rv.Categories {
				categories.Add(c)
			}
			s.Categories = categories.Sorted()
		}
	}
	if r.opts.History == nil || len(byUID) == 0 {
		return nil
	}

	uids := make([]string, 0, len(byUID))
	for uid := range byUID {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	sightings := make([]history.Sighting, 0, len(uids))
	for _, uid := range uids {
		sightings = append(sightings, *byUID[uid])
	}

	dates, err := r.opts.History.Observe(ctx, r.opts.Cohort, sightings)
	if err != nil {
		return err
	}
	for _, sampleResults := range merged {
		for uid, rv := range sampleResults {
			if date, ok := dates[uid]; ok {
				rv.FirstSeen = date
			}
		}
	}
	return nil
}

func (r *Runner) metadata(samples []string) variant.ResultMeta {
	meta := variant.ResultMeta{
		RunID:       uuid.New().String(),
		Cohort:      r.opts.Cohort,
		RunTime:     time.Now().UTC().Format(time.RFC3339),
		InputFile:   r.opts.InputPath,
		GenomeBuild: r.opts.Config.References.GenomeBuild,
		Categories:  r.opts.Config.Categories,
		Family:      r.opts.Pedigree.Breakdown(samples),
		Version:     version.Version,
	}
	for _, p := range r.opts.Panels.Metadata {
		meta.Panels = append(meta.Panels, variant.PanelShort{
			ID:      p.ID,
			Name:    p.Name,
			Version: p.Version,
		})
	}
	return meta
}

func (r *Runner) sampleMeta(sample string) variant.SampleMeta {
	meta := variant.SampleMeta{ExtID: sample}
	if p, ok := r.opts.Pedigree.Participant(sample); ok {
		meta.FamilyID = p.FamilyID
	}
	if r.opts.Phenotypes == nil {
		return meta
	}
	part := r.opts.Phenotypes.Samples[sample]
	if part == nil {
		return meta
	}

	meta.Phenotypes = part.HPOTerms.Sorted()
	meta.PanelIDs = part.Panels.Sorted()
	names := make(map[int]string, len(r.opts.Panels.Metadata))
	for _, p := range r.opts.Panels.Metadata {
		names[p.ID] = p.Name
	}
	for _, id := range meta.PanelIDs {
		if name, ok := names[id]; ok {
			meta.PanelNames = append(meta.PanelNames, name)
		}
	}
	return meta
}

// recordPanelRuns stores the panel versions this run analysed under,
// logging any version drift against the previous recorded run first.
func (r *Runner) recordPanelRuns(ctx context.Context) error {
	if len(r.opts.Panels.Metadata) == 0 {
		return nil
	}

	prior, err := r.opts.History.LatestPanelRuns(ctx, r.opts.Cohort)
	if err != nil {
		return err
	}
	for _, p := range r.opts.Panels.Metadata {
		last, seen := prior[p.ID]
		if seen && last.Version != p.Version {
			r.logger.Info().
				Int("panel", p.ID).
				Str("name", p.Name).
				Str("previous", last.Version).
				Str("current", p.Version).
				Msg("panel version changed since last run")
		}
	}

	now := time.Now().UTC()
	runs := make([]history.PanelRun, 0, len(r.opts.Panels.Metadata))
	for _, p := range r.opts.Panels.Metadata {
		runs = append(runs, history.PanelRun{PanelID: p.ID, Version: p.Version, RunTime: now})
	}
	return r.opts.History.RecordPanelRuns(ctx, r.opts.Cohort, runs)
}
