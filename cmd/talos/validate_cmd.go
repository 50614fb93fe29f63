// SPDX-License-Identifier: MIT

package main

import (
	"github.com/spf13/cobra"

	"github.com/talosproj/talos/internal/history"
	"github.com/talosproj/talos/internal/hpo"
	"github.com/talosproj/talos/internal/panelapp"
	"github.com/talosproj/talos/internal/pedigree"
	"github.com/talosproj/talos/internal/runner"
	"github.com/talosproj/talos/internal/telemetry"
)

var validateOpts struct {
	configJSON string
	inputPath  string
	panelGenes string
	plinkFile  string
	phenotypes string
	cohort     string
	output     string
	workers    int
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check labelled variants against inheritance models",
	Long: `Gather the labelled callset per gene, run each variant through the
gene's mode-of-inheritance model with the family structure, and keep the
fits. Solved families, blacklists and support-only rows are removed, first
sightings are recorded in the run history, and the result set artefact is
written for reporting.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateOpts.configJSON, "config_json", "", "per-stage config override")
	validateCmd.Flags().StringVar(&validateOpts.inputPath, "input_path", "", "labelled VCF from the label stage")
	validateCmd.Flags().StringVar(&validateOpts.panelGenes, "panel_genes", "", "panel data artefact from query-panelapp")
	validateCmd.Flags().StringVar(&validateOpts.plinkFile, "plink_file", "", "cohort pedigree")
	validateCmd.Flags().StringVar(&validateOpts.phenotypes, "phenotypes", "", "phenotype panel artefact for per-participant panel views")
	validateCmd.Flags().StringVar(&validateOpts.cohort, "cohort", "", "cohort name for solved families and blacklists")
	validateCmd.Flags().StringVar(&validateOpts.output, "output", "", "result set artefact path")
	validateCmd.Flags().IntVar(&validateOpts.workers, "workers", 0, "contig-level parallelism, 0 means GOMAXPROCS")
	_ = validateCmd.MarkFlagRequired("input_path")
	_ = validateCmd.MarkFlagRequired("panel_genes")
	_ = validateCmd.MarkFlagRequired("plink_file")
	_ = validateCmd.MarkFlagRequired("output")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	stage, err := stageConfig(validateOpts.configJSON)
	if err != nil {
		return err
	}
	ctx, span := telemetry.StartStage(cmd.Context(), "validate", validateOpts.cohort)
	defer span.End()

	panel, err := panelapp.LoadData(validateOpts.panelGenes)
	if err != nil {
		return err
	}
	ped, err := pedigree.Load(validateOpts.plinkFile)
	if err != nil {
		return err
	}
	var phenotypes *hpo.PhenotypePanels
	if validateOpts.phenotypes != "" {
		phenotypes, err = hpo.LoadPhenotypePanels(validateOpts.phenotypes)
		if err != nil {
			return err
		}
	}

	var hist history.Store
	if stage.History.DBPath != "" {
		hist, err = history.Open(stage.History.DBPath)
		if err != nil {
			return err
		}
	} else {
		hist = history.NewMemory()
	}
	defer hist.Close()

	r, err := runner.New(runner.Options{
		Config:     &stage,
		Cohort:     validateOpts.cohort,
		InputPath:  validateOpts.inputPath,
		Pedigree:   ped,
		Panels:     panel,
		Phenotypes: phenotypes,
		History:    hist,
		Workers:    validateOpts.workers,
	})
	if err != nil {
		return err
	}
	set, err := r.Run(ctx)
	if err != nil {
		return err
	}
	return runner.SaveResults(validateOpts.output, set)
}
