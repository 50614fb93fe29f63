// SPDX-License-Identifier: MIT

package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/talosproj/talos/internal/clinvar"
	"github.com/talosproj/talos/internal/log"
	"github.com/talosproj/talos/internal/telemetry"
)

var clinvarLoadOpts struct {
	configJSON  string
	submissions string
	variants    string
	assembly    string
	store       string
}

var clinvarLoadCmd = &cobra.Command{
	Use:   "clinvar-load",
	Short: "Re-summarise ClinVar submissions into the decision store",
	Long: `Re-aggregate the raw ClinVar submission and variant summary dumps
into per-allele pathogenicity decisions, ignoring submitters the ACMG
criteria exclude, and load them into the decision store consulted during
labelling.`,
	RunE: runClinvarLoad,
}

func init() {
	rootCmd.AddCommand(clinvarLoadCmd)
	clinvarLoadCmd.Flags().StringVar(&clinvarLoadOpts.configJSON, "config_json", "", "per-stage config override")
	clinvarLoadCmd.Flags().StringVar(&clinvarLoadOpts.submissions, "submissions", "", "ClinVar submission_summary dump, plain or gzip")
	clinvarLoadCmd.Flags().StringVar(&clinvarLoadOpts.variants, "variants", "", "ClinVar variant_summary dump, plain or gzip")
	clinvarLoadCmd.Flags().StringVar(&clinvarLoadOpts.assembly, "assembly", "", "genome assembly to keep coordinates for (defaults to references.genome_build)")
	clinvarLoadCmd.Flags().StringVar(&clinvarLoadOpts.store, "store", "", "decision store path (overrides clinvar.store_path)")
}

func runClinvarLoad(cmd *cobra.Command, _ []string) error {
	stage, err := stageConfig(clinvarLoadOpts.configJSON)
	if err != nil {
		return err
	}
	ctx, span := telemetry.StartStage(cmd.Context(), "clinvar-load", "")
	defer span.End()
	logger := log.WithComponent("clinvar")

	storePath := clinvarLoadOpts.store
	if storePath == "" {
		storePath = stage.ClinVar.StorePath
	}
	if storePath == "" {
		return errors.New("clinvar-load: no store path configured (set --store or clinvar.store_path)")
	}
	submissions := clinvarLoadOpts.submissions
	if submissions == "" {
		submissions = stage.References.ClinVarSubmissions
	}
	variants := clinvarLoadOpts.variants
	if variants == "" {
		variants = stage.References.ClinVarVariants
	}
	if submissions == "" || variants == "" {
		return errors.New("clinvar-load: submission and variant summary paths are required (flags or [references])")
	}
	assembly := clinvarLoadOpts.assembly
	if assembly == "" {
		assembly = stage.References.GenomeBuild
	}

	subs, err := clinvar.LoadSubmissionSummary(submissions)
	if err != nil {
		return err
	}
	alleles, err := clinvar.LoadVariantSummary(variants, assembly)
	if err != nil {
		return err
	}
	logger.Info().
		Int("variations", len(subs)).
		Int("alleles", len(alleles)).
		Msg("summaries parsed")

	decisions := clinvar.BuildDecisions(subs, alleles)

	store, err := clinvar.OpenStore(storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.PutAll(ctx, decisions); err != nil {
		return err
	}
	total, err := store.Count(ctx)
	if err != nil {
		return err
	}
	logger.Info().
		Int("loaded", len(decisions)).
		Int("stored", total).
		Str("path", storePath).
		Msg("decision store updated")
	return nil
}
