// SPDX-License-Identifier: MIT

package panelapp

import (
	"context"
	"slices"
	"strings"

	"github.com/talosproj/talos/internal/variant"
)

// GreenOptions controls a single panel query.
type GreenOptions struct {
	// PanelID selects the panel; zero means the Mendeliome.
	PanelID int
	// Version pins the panel to a historical version. Empty takes latest.
	Version string
	// Blacklist removes genes (by symbol or Ensembl ID) from this panel
	// only. Used to restrict greedy Mendeliome genes to phenotype-matched
	// panels.
	Blacklist []string
	// Forbidden removes genes (by symbol or Ensembl ID) from the whole
	// cohort.
	Forbidden variant.StringSet
	// History, when set, is consulted and updated for new-gene detection.
	History *History
}

// GetPanelGreen pulls all GRCh38 green genes from one panel into d.
// Confidence below green, non-gene entities and blacklisted or forbidden
// genes are dropped. Genes already in d gain the panel, its MOI string
// and any new-gene flag.
func (c *Client) GetPanelGreen(ctx context.Context, d *Data, opts GreenOptions) error {
	if opts.PanelID == 0 {
		opts.PanelID = DefaultPanel
	}

	resp, err := c.Panel(ctx, opts.PanelID, opts.Version)
	if err != nil {
		return err
	}
	c.logger.Info().Str("panel", resp.Name).Str("version", resp.Version).Msg("panel retrieved")

	d.Metadata = append(d.Metadata, PanelShort{Name: resp.Name, Version: resp.Version, ID: opts.PanelID})

	for _, gene := range resp.Genes {
		symbol := gene.EntityName

		// only retain green genes
		if gene.ConfidenceLevel != "3" || gene.EntityType != "gene" || opts.Forbidden.Has(symbol) {
			continue
		}

		ensg, chrom := gene.GeneData.GRCh38()
		if chrom == "" {
			c.logger.Info().Str("symbol", symbol).Str("panel", resp.Name).
				Msg("gene removed for lack of chrom annotation")
			continue
		}
		if ensg == "" || slices.Contains(opts.Blacklist, ensg) || slices.Contains(opts.Blacklist, symbol) || opts.Forbidden.Has(ensg) {
			c.logger.Info().Str("symbol", symbol).Str("ensg", ensg).Str("panel", resp.Name).
				Msg("gene removed from panel")
			continue
		}

		// a gene-panel pairing absent from the history is new this round
		newGene := false
		if opts.History != nil && !opts.History.Seen(ensg, opts.PanelID) {
			newGene = true
			// record it, so it won't be new next time
			opts.History.Record(ensg, opts.PanelID)
		}

		moi := strings.ToLower(gene.ModeOfInheritance)
		if moi == "" {
			moi = "unknown"
		}

		if detail, ok := d.Genes[ensg]; ok {
			detail.Panels.Add(opts.PanelID)
			detail.AllMOI.Add(moi)
			if newGene {
				detail.New.Add(opts.PanelID)
			}
		} else {
			newSet := variant.NewIntSet()
			if newGene {
				newSet.Add(opts.PanelID)
			}
			d.Genes[ensg] = &PanelDetail{
				Symbol: symbol,
				Chrom:  chrom,
				AllMOI: variant.NewStringSet(moi),
				New:    newSet,
				Panels: variant.NewIntSet(opts.PanelID),
			}
		}
	}
	return nil
}

// QueryOptions assembles a full panel query for a cohort.
type QueryOptions struct {
	// PhenotypePanels is the cohort-wide panel union from phenotype
	// matching.
	PhenotypePanels variant.IntSet
	// CohortPanels are panels forced on by cohort configuration.
	CohortPanels []int
	// RequirePhenoMatch lists genes reported only when a phenotype-matched
	// panel carries them; they are blacklisted from the Mendeliome.
	RequirePhenoMatch []string
	// Forbidden removes genes across the whole cohort.
	Forbidden variant.StringSet
	// History enables new-gene detection; nil means nothing is new.
	History *History
}

// QueryAll queries the Mendeliome and then every phenotype-matched and
// cohort-forced panel, resolving each gene's best MOI at the end.
func (c *Client) QueryAll(ctx context.Context, opts QueryOptions) (*Data, error) {
	d := NewData()

	c.logger.Info().Msg("querying base panel")
	err := c.GetPanelGreen(ctx, d, GreenOptions{
		PanelID:   DefaultPanel,
		Blacklist: opts.RequirePhenoMatch,
		Forbidden: opts.Forbidden,
		History:   opts.History,
	})
	if err != nil {
		return nil, err
	}

	panelList := variant.NewIntSet()
	panelList.Merge(opts.PhenotypePanels)
	for _, panel := range opts.CohortPanels {
		panelList.Add(panel)
	}

	for _, panel := range panelList.Sorted() {
		// the base panel is already in
		if panel == DefaultPanel {
			continue
		}
		c.logger.Info().Int("panel", panel).Msg("querying panel")
		err := c.GetPanelGreen(ctx, d, GreenOptions{
			PanelID:   panel,
			Forbidden: opts.Forbidden,
			History:   opts.History,
		})
		if err != nil {
			return nil, err
		}
	}

	ApplyBestMOI(d)
	return d, nil
}
