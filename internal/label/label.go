// SPDX-License-Identifier: MIT

// Package label filters an annotated joint-call VCF down to rare variants
// on green panel genes and applies the category labels that mark them for
// inheritance checking. Labels applied here are treated as unconfirmed;
// the validation stage re-examines every one in family context.
package label

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/talosproj/talos/internal/clinvar"
	"github.com/talosproj/talos/internal/config"
	"github.com/talosproj/talos/internal/fileio"
	"github.com/talosproj/talos/internal/log"
	"github.com/talosproj/talos/internal/panelapp"
	"github.com/talosproj/talos/internal/pedigree"
	"github.com/talosproj/talos/internal/variant"
	"github.com/talosproj/talos/internal/vcf"
)

// INFO keys written by the labelling stage.
const (
	// InfoGeneID marks the single green gene each output row was
	// assessed against after the per-gene split.
	InfoGeneID = "gene_id"
	// InfoTalos flags a pathogenic ClinVar re-summary decision;
	// InfoTalosStrong additionally requires at least one star.
	InfoTalos       = "clinvar_talos"
	InfoTalosStrong = "clinvar_talos_strong"
)

// Options configures a Labeller. Panel supplies the green and new gene
// sets, Pedigree the trios for the de novo category, and Decisions the
// ClinVar re-summary; any of the three may be nil, disabling the
// dependent checks.
type Options struct {
	Filter config.FilterConfig
	// CSQFields is the output CSQ field order for small variants.
	CSQFields []string
	Panel     *panelapp.Data
	Pedigree  *pedigree.Pedigree
	Decisions clinvar.Index
	// Workers bounds contig-level parallelism; 0 means GOMAXPROCS.
	Workers int
}

// Labeller is the filtering and labelling pass over one callset.
type Labeller struct {
	filter    config.FilterConfig
	csqFields []string
	green     variant.StringSet
	newGenes  variant.StringSet
	critical  variant.StringSet
	// denovoCSQ is the consequence restriction for the de novo search:
	// the critical terms plus the additional (missense) tier.
	denovoCSQ variant.StringSet
	ped       *pedigree.Pedigree
	decisions clinvar.Index
	workers   int
	logger    zerolog.Logger
}

// New builds a Labeller from the run configuration and panel data.
func New(opts Options) *Labeller {
	l := &Labeller{
		filter:    opts.Filter,
		csqFields: opts.CSQFields,
		green:     variant.NewStringSet(),
		newGenes:  variant.NewStringSet(),
		critical:  variant.NewStringSet(opts.Filter.CriticalCSQ...),
		denovoCSQ: variant.NewStringSet(opts.Filter.CriticalCSQ...),
		ped:       opts.Pedigree,
		decisions: opts.Decisions,
		workers:   opts.Workers,
		logger:    log.WithComponent("label"),
	}
	for _, csq := range opts.Filter.AdditionalCSQ {
		l.denovoCSQ.Add(csq)
	}
	if opts.Panel != nil {
		for ensg, detail := range opts.Panel.Genes {
			l.green.Add(ensg)
			if len(detail.New) > 0 {
				l.newGenes.Add(ensg)
			}
		}
	}
	if l.workers <= 0 {
		l.workers = runtime.GOMAXPROCS(0)
	}
	return l
}

// Stats counts the fate of every input row across one run.
type Stats struct {
	// Read is the number of parsed data rows; Skipped counts rows the
	// reader dropped for normalisation violations.
	Read    int
	Skipped int
	// Quality, Benign and Common count rows removed by the FILTER
	// column, a benign re-summary decision, and the frequency gates.
	Quality int
	Benign  int
	Common  int
	// NonGreen rows annotate no green gene; Uncategorised rows reached
	// a green gene but took no category.
	NonGreen      int
	Uncategorised int
	// Written counts output rows, after the per-gene split.
	Written int
}

func (s *Stats) merge(other Stats) {
	s.Quality += other.Quality
	s.Benign += other.Benign
	s.Common += other.Common
	s.NonGreen += other.NonGreen
	s.Uncategorised += other.Uncategorised
}

// Run labels the small-variant callset at in, writing surviving rows to
// out. Output is gzip-compressed when out ends in .gz. The CSQ string is
// re-encoded in the configured field order.
func (l *Labeller) Run(ctx context.Context, in, out string) (Stats, error) {
	return l.run(ctx, in, out, l.processSmall, l.csqFields)
}

// RunSV labels the structural-variant callset at in. SV rows keep their
// source CSQ field order.
func (l *Labeller) RunSV(ctx context.Context, in, out string) (Stats, error) {
	return l.run(ctx, in, out, l.processSV, nil)
}

type processFn func(*vcf.Record, *Stats) []*vcf.Record

func (l *Labeller) run(ctx context.Context, in, out string, fn processFn, csqFields []string) (Stats, error) {
	var stats Stats

	f, err := vcf.Open(in)
	if err != nil {
		return stats, err
	}
	defer f.Close()
	header := f.Header()
	if csqFields == nil {
		csqFields = header.CSQFields
	}

	// bucket rows per contig, preserving first-seen order; contigs are
	// independent units for the classification pass
	var order []string
	buckets := make(map[string][]*vcf.Record)
	for {
		rec, err := f.NextRecord(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, err
		}
		stats.Read++
		chrom := rec.Small.Coordinates.Chrom
		if _, seen := buckets[chrom]; !seen {
			order = append(order, chrom)
		}
		buckets[chrom] = append(buckets[chrom], rec)
	}
	stats.Skipped = f.Skipped()

	results := make([][]*vcf.Record, len(order))
	partial := make([]Stats, len(order))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, contig := range order {
		g.Go(func() error {
			kept := make([]*vcf.Record, 0, len(buckets[contig]))
			for _, rec := range buckets[contig] {
				if err := gctx.Err(); err != nil {
					return err
				}
				kept = append(kept, fn(rec, &partial[i])...)
			}
			results[i] = kept
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	for _, p := range partial {
		stats.merge(p)
	}

	if err := l.write(out, header, csqFields, results, &stats); err != nil {
		return stats, err
	}

	l.logger.Info().
		Str("output", out).
		Int("read", stats.Read).
		Int("skipped", stats.Skipped).
		Int("quality_failed", stats.Quality).
		Int("benign_dropped", stats.Benign).
		Int("common", stats.Common).
		Int("non_green", stats.NonGreen).
		Int("uncategorised", stats.Uncategorised).
		Int("written", stats.Written).
		Msg("labelling complete")
	return stats, nil
}

func (l *Labeller) write(out string, header *vcf.Header, csqFields []string, results [][]*vcf.Record, stats *Stats) error {
	pending, err := fileio.CreatePending(out)
	if err != nil {
		return err
	}
	defer func() { _ = pending.Cleanup() }()

	var sink io.Writer = pending
	var gz *gzip.Writer
	if strings.HasSuffix(out, ".gz") || strings.HasSuffix(out, ".bgz") {
		gz = gzip.NewWriter(pending)
		sink = gz
	}

	w, err := vcf.NewWriter(sink, header, csqFields, extraInfoFields()...)
	if err != nil {
		return err
	}
	for _, recs := range results {
		for _, rec := range recs {
			if err := w.Write(rec); err != nil {
				return fmt.Errorf("write %s: %w", rec.Small.Coordinates, err)
			}
			stats.Written++
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("close gzip: %w", err)
		}
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", out, err)
	}
	return nil
}

// extraInfoFields declares the INFO keys this stage can add, so the
// output header describes every key the writer may emit.
func extraInfoFields() []vcf.InfoField {
	return []vcf.InfoField{
		{ID: InfoGeneID, Number: "1", Type: vcf.InfoString, Description: "Green gene this row was assessed against"},
		{ID: InfoTalos, Number: "1", Type: vcf.InfoInteger, Description: "ClinVar re-summary: pathogenic"},
		{ID: InfoTalosStrong, Number: "1", Type: vcf.InfoInteger, Description: "ClinVar re-summary: pathogenic with stars"},
		{ID: "clinvar_allele_id", Number: "1", Type: vcf.InfoInteger, Description: "ClinVar allele ID"},
		{ID: "categoryboolean1", Number: "1", Type: vcf.InfoInteger, Description: "ClinVar Pathogenic"},
		{ID: "categoryboolean2", Number: "1", Type: vcf.InfoInteger, Description: "New Gene-Disease Association"},
		{ID: "categoryboolean3", Number: "1", Type: vcf.InfoInteger, Description: "High Impact Variant"},
		{ID: "categorysample4", Number: ".", Type: vcf.InfoString, Description: "de Novo"},
		{ID: "categoryboolean5", Number: "1", Type: vcf.InfoInteger, Description: "High SpliceAI Score"},
		{ID: "categoryboolean6", Number: "1", Type: vcf.InfoInteger, Description: "AlphaMissense P/LP"},
		{ID: "categorybooleansv1", Number: "1", Type: vcf.InfoInteger, Description: "Predicted LOF SV"},
		{ID: "categorysupport", Number: "1", Type: vcf.InfoInteger, Description: "High in Silico Scores"},
	}
}
