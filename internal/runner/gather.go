// SPDX-License-Identifier: MIT

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/talosproj/talos/internal/fileio"
	"github.com/talosproj/talos/internal/variant"
	"github.com/talosproj/talos/internal/vcf"
)

// GeneIndex groups one contig's retained variants by gene.
type GeneIndex map[string][]*variant.Small

// gathered is the whole callset held in memory. Labelled VCFs are
// small, so full indexes are cheap and let the compound-het search
// span every contig before the models run.
type gathered struct {
	contigs  []string // first-appearance order
	byContig map[string]GeneIndex
	genes    map[string][]*variant.Small
	samples  []string
	count    int
}

func (r *Runner) gather(ctx context.Context) (*gathered, error) {
	f, err := vcf.Open(r.opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("open labelled vcf: %w", err)
	}
	defer f.Close()

	blacklist, err := r.loadVariantBlacklist()
	if err != nil {
		return nil, err
	}
	blockedGenes := variant.NewStringSet(r.cohort.GeneBlacklist...)

	g := &gathered{
		byContig: make(map[string]GeneIndex),
		genes:    make(map[string][]*variant.Small),
	}
	dropped := 0
	for {
		v, err := f.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read labelled vcf: %w", err)
		}

		gene := variant.GeneID(v)
		if gene == "" {
			r.logger.Warn().Str("variant", v.Coordinates.String()).Msg("row without gene annotation")
			continue
		}
		if blockedGenes.Has(gene) || blacklist.Has(v.Coordinates.String()) {
			dropped++
			continue
		}
		if r.opts.Panels.Genes[gene] == nil {
			r.logger.Error().Str("gene", gene).Msg("gene absent from panel data")
			continue
		}

		chrom := v.Coordinates.Chrom
		if _, seen := g.byContig[chrom]; !seen {
			g.contigs = append(g.contigs, chrom)
			g.byContig[chrom] = make(GeneIndex)
		}
		g.byContig[chrom][gene] = append(g.byContig[chrom][gene], v)
		g.genes[gene] = append(g.genes[gene], v)
		g.count++
	}

	g.samples = append(g.samples, f.Header().Samples...)
	if dropped > 0 {
		r.logger.Info().Int("dropped", dropped).Msg("blacklisted variants removed")
	}
	return g, nil
}

// loadVariantBlacklist reads the cohort's known-artefact list, a JSON
// array of coordinate strings.
func (r *Runner) loadVariantBlacklist() (variant.StringSet, error) {
	if r.cohort.VariantBlacklist == "" {
		return variant.NewStringSet(), nil
	}
	var coords []string
	if err := fileio.ReadJSON(r.cohort.VariantBlacklist, &coords); err != nil {
		return nil, fmt.Errorf("variant blacklist: %w", err)
	}
	return variant.NewStringSet(coords...), nil
}
