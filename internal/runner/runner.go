// SPDX-License-Identifier: MIT

// Package runner drives the validation stage: it reads the labelled
// callset, applies the inheritance models each panel gene calls for,
// and condenses the hits into the per-sample result artefact the
// report builder consumes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/talosproj/talos/internal/config"
	"github.com/talosproj/talos/internal/fileio"
	"github.com/talosproj/talos/internal/history"
	"github.com/talosproj/talos/internal/hpo"
	"github.com/talosproj/talos/internal/log"
	"github.com/talosproj/talos/internal/moi"
	"github.com/talosproj/talos/internal/panelapp"
	"github.com/talosproj/talos/internal/pedigree"
	"github.com/talosproj/talos/internal/variant"
)

// Options wires one validation run together. Phenotypes and History are
// optional: without the former no phenotype-match dates are stamped,
// without the latter every first-seen date is the run date.
type Options struct {
	Config     *config.Config
	Cohort     string
	InputPath  string
	Pedigree   *pedigree.Pedigree
	Panels     *panelapp.Data
	Phenotypes *hpo.PhenotypePanels
	History    history.Store
	// Workers bounds contig-level parallelism; 0 means GOMAXPROCS.
	Workers int
}

// Runner executes the validation stage for one cohort.
type Runner struct {
	opts    Options
	cohort  config.CohortConfig
	workers int
	logger  zerolog.Logger
}

// New checks the wiring. Config, Pedigree, Panels and InputPath are
// required; an unknown cohort name runs with empty cohort settings.
func New(opts Options) (*Runner, error) {
	if opts.Config == nil {
		return nil, errors.New("runner: config is required")
	}
	if opts.Pedigree == nil {
		return nil, errors.New("runner: pedigree is required")
	}
	if opts.Panels == nil {
		return nil, errors.New("runner: panel data is required")
	}
	if opts.InputPath == "" {
		return nil, errors.New("runner: input path is required")
	}

	cohort, err := opts.Config.RequireCohort(opts.Cohort)
	if err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Runner{
		opts:    opts,
		cohort:  cohort,
		workers: workers,
		logger:  log.WithComponent("validate"),
	}, nil
}

// Run reads the labelled callset, applies the inheritance checks and
// returns the cleaned result set.
func (r *Runner) Run(ctx context.Context) (*variant.ResultSet, error) {
	g, err := r.gather(ctx)
	if err != nil {
		return nil, err
	}
	r.logger.Info().
		Int("contigs", len(g.contigs)).
		Int("genes", len(g.genes)).
		Int("variants", g.count).
		Msg("callset gathered")

	compHet := moi.BuildCompHet(r.opts.Pedigree, g.genes)
	runners, err := r.moiRunners(compHet)
	if err != nil {
		return nil, err
	}

	raw, err := r.apply(ctx, g, runners)
	if err != nil {
		return nil, err
	}

	set, err := r.clean(ctx, raw, g.samples)
	if err != nil {
		return nil, err
	}

	if r.opts.History != nil {
		if err := r.recordPanelRuns(ctx); err != nil {
			return nil, err
		}
	}

	r.logger.Info().
		Int("raw", len(raw)).
		Int("samples", len(set.Results)).
		Msg("validation complete")
	return set, nil
}

// moiRunners builds one model runner per simplified MOI present in the
// panel data. Genes sharing a category share the instance.
func (r *Runner) moiRunners(compHet moi.CompHetIndex) (map[string]*moi.Runner, error) {
	opts := moi.Options{
		Pedigree:           r.opts.Pedigree,
		Tests:              r.opts.Config.MOITests,
		CompHet:            compHet,
		SupportIndependent: r.opts.Config.CategoryRules.SupportIndependent,
	}

	runners := make(map[string]*moi.Runner)
	for ensg, detail := range r.opts.Panels.Genes {
		category := r.geneMOI(detail)
		if _, ok := runners[category]; ok {
			continue
		}
		runner, err := moi.NewRunner(category, opts)
		if err != nil {
			return nil, fmt.Errorf("gene %s: %w", ensg, err)
		}
		runners[category] = runner
	}
	return runners, nil
}

// geneMOI returns the simplified category a gene is analysed under,
// resolving it from the raw MOI set when the query stage left it unset.
func (r *Runner) geneMOI(detail *panelapp.PanelDetail) string {
	if detail.MOI != "" {
		return detail.MOI
	}
	return panelapp.BestMOI(detail.AllMOI, detail.Chrom)
}

// apply runs the inheritance models contig-parallel. Genes iterate in
// sorted order within a contig so the merged output is deterministic.
func (r *Runner) apply(ctx context.Context, g *gathered, runners map[string]*moi.Runner) ([]*variant.ReportVariant, error) {
	perContig := make([][]*variant.ReportVariant, len(g.contigs))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.workers)
	for i, contig := range g.contigs {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perContig[i] = r.applyContig(g.byContig[contig], runners)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var results []*variant.ReportVariant
	for _, batch := range perContig {
		results = append(results, batch...)
	}
	return results, nil
}

func (r *Runner) applyContig(idx GeneIndex, runners map[string]*moi.Runner) []*variant.ReportVariant {
	genes := make([]string, 0, len(idx))
	for gene := range idx {
		genes = append(genes, gene)
	}
	sort.Strings(genes)

	var results []*variant.ReportVariant
	for _, gene := range genes {
		detail := r.opts.Panels.Genes[gene]
		if detail == nil {
			continue
		}
		runner := runners[r.geneMOI(detail)]
		if runner == nil {
			r.logger.Error().Str("gene", gene).Str("moi", r.geneMOI(detail)).Msg("no inheritance model for gene")
			continue
		}
		for _, v := range idx[gene] {
			// support-only variants partner compound hets but are
			// never principals themselves, unless the category rules
			// promote them
			if !v.Categories.NonSupport() && !r.opts.Config.CategoryRules.SupportIndependent {
				continue
			}
			results = append(results, runner.Run(v)...)
		}
	}
	return results
}

// SaveResults writes the result artefact atomically; a failed run
// leaves any previous artefact in place.
func SaveResults(path string, set *variant.ResultSet) error {
	return fileio.WriteJSON(path, set)
}

// LoadResults reads an artefact written by SaveResults.
func LoadResults(path string) (*variant.ResultSet, error) {
	var set variant.ResultSet
	if err := fileio.ReadJSON(path, &set); err != nil {
		return nil, err
	}
	if set.Results == nil {
		set.Results = make(map[string]variant.SampleResults)
	}
	return &set, nil
}
