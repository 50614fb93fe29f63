// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/talosproj/talos/internal/clinvar"
	"github.com/talosproj/talos/internal/config"
	"github.com/talosproj/talos/internal/label"
	"github.com/talosproj/talos/internal/log"
	"github.com/talosproj/talos/internal/panelapp"
	"github.com/talosproj/talos/internal/pedigree"
	"github.com/talosproj/talos/internal/telemetry"
)

var labelOpts struct {
	configJSON string
	inputPath  string
	panelGenes string
	plinkFile  string
	clinvar    string
	output     string
	workers    int
}

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Filter and categorise the small-variant callset",
	Long: `Stream the annotated callset, drop rows failing quality, frequency or
green-gene gates and assign evidence categories to the rest. Surviving rows
are split per green gene and written with their category annotations, which
the validate stage turns into inheritance-checked results.`,
	RunE: func(cmd *cobra.Command, _ []string) error { return runLabelStage(cmd, false) },
}

var labelSVCmd = &cobra.Command{
	Use:   "label-sv",
	Short: "Filter and categorise the structural-variant callset",
	Long: `Stream the annotated SV callset and label rare loss-of-function
deletions on green genes. SV rows keep their source CSQ field order.`,
	RunE: func(cmd *cobra.Command, _ []string) error { return runLabelStage(cmd, true) },
}

func init() {
	for _, cmd := range []*cobra.Command{labelCmd, labelSVCmd} {
		rootCmd.AddCommand(cmd)
		cmd.Flags().StringVar(&labelOpts.configJSON, "config_json", "", "per-stage config override")
		cmd.Flags().StringVar(&labelOpts.inputPath, "input_path", "", "annotated VCF, plain or gzip")
		cmd.Flags().StringVar(&labelOpts.panelGenes, "panel_genes", "", "panel data artefact from query-panelapp")
		cmd.Flags().StringVar(&labelOpts.plinkFile, "plink_file", "", "cohort pedigree")
		cmd.Flags().StringVar(&labelOpts.output, "output", "", "labelled VCF path, gzip-compressed when it ends in .gz")
		cmd.Flags().IntVar(&labelOpts.workers, "workers", 0, "contig-level parallelism, 0 means GOMAXPROCS")
		_ = cmd.MarkFlagRequired("input_path")
		_ = cmd.MarkFlagRequired("panel_genes")
		_ = cmd.MarkFlagRequired("plink_file")
		_ = cmd.MarkFlagRequired("output")
	}
	labelCmd.Flags().StringVar(&labelOpts.clinvar, "clinvar", "", "decision store path (overrides clinvar.store_path)")
}

// labelDecisions loads the ClinVar re-summary index when a store is
// configured and present. Labelling runs without one; the pathogenic
// category then falls back to the callset's own ClinVar annotations.
func labelDecisions(ctx context.Context, stage config.Config) (clinvar.Index, error) {
	path := labelOpts.clinvar
	if path == "" {
		path = stage.ClinVar.StorePath
	}
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger := log.WithComponent("cli")
		logger.Warn().Str("path", path).
			Msg("clinvar store absent, labelling without re-summary decisions")
		return nil, nil
	}
	store, err := clinvar.OpenStore(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Index(ctx)
}

func runLabelStage(cmd *cobra.Command, sv bool) error {
	stage, err := stageConfig(labelOpts.configJSON)
	if err != nil {
		return err
	}
	name := "label"
	if sv {
		name = "label-sv"
	}
	ctx, span := telemetry.StartStage(cmd.Context(), name, "")
	defer span.End()

	panel, err := panelapp.LoadData(labelOpts.panelGenes)
	if err != nil {
		return err
	}
	ped, err := pedigree.Load(labelOpts.plinkFile)
	if err != nil {
		return err
	}

	var decisions clinvar.Index
	if !sv {
		decisions, err = labelDecisions(ctx, stage)
		if err != nil {
			return err
		}
	}

	labeller := label.New(label.Options{
		Filter:    stage.Filter,
		CSQFields: stage.CSQ.CSQString,
		Panel:     panel,
		Pedigree:  ped,
		Decisions: decisions,
		Workers:   labelOpts.workers,
	})

	var stats label.Stats
	if sv {
		stats, err = labeller.RunSV(ctx, labelOpts.inputPath, labelOpts.output)
	} else {
		stats, err = labeller.Run(ctx, labelOpts.inputPath, labelOpts.output)
	}
	if err != nil {
		return err
	}

	logger := log.WithComponent("cli")
	logger.Info().
		Str("stage", name).
		Int("read", stats.Read).
		Int("skipped", stats.Skipped).
		Int("quality", stats.Quality).
		Int("benign", stats.Benign).
		Int("common", stats.Common).
		Int("non_green", stats.NonGreen).
		Int("uncategorised", stats.Uncategorised).
		Int("written", stats.Written).
		Msg("labelling finished")
	return nil
}
