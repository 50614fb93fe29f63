// SPDX-License-Identifier: MIT

package main

import (
	"github.com/spf13/cobra"

	"github.com/talosproj/talos/internal/compare"
	"github.com/talosproj/talos/internal/panelapp"
	"github.com/talosproj/talos/internal/pedigree"
	"github.com/talosproj/talos/internal/runner"
	"github.com/talosproj/talos/internal/telemetry"
)

var compareOpts struct {
	configJSON   string
	inputPath    string
	panelGenes   string
	plinkFile    string
	seqrExport   string
	labelledVCF  string
	annotatedVCF string
	tagPrefix    string
	output       string
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Explain curator-flagged variants missing from a result set",
	Long: `Diff the variants curators flagged in a seqr export against a result
set and classify every miss by replaying the pipeline's gates: the labelled
VCF decides whether a miss survived labelling, and the annotated VCF lets
the earlier frequency and consequence gates be replayed for rows labelling
dropped. Either VCF may be omitted, narrowing what the classifier can
explain.`,
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().StringVar(&compareOpts.configJSON, "config_json", "", "per-stage config override")
	compareCmd.Flags().StringVar(&compareOpts.inputPath, "input_path", "", "result set artefact from validate")
	compareCmd.Flags().StringVar(&compareOpts.panelGenes, "panel_genes", "", "panel data artefact from query-panelapp")
	compareCmd.Flags().StringVar(&compareOpts.plinkFile, "plink_file", "", "cohort pedigree")
	compareCmd.Flags().StringVar(&compareOpts.seqrExport, "seqr_export", "", "seqr variant export TSV with curator tags")
	compareCmd.Flags().StringVar(&compareOpts.labelledVCF, "labelled_vcf", "", "labelled callset for replaying the category gates")
	compareCmd.Flags().StringVar(&compareOpts.annotatedVCF, "annotated_vcf", "", "annotated callset for replaying the earlier gates")
	compareCmd.Flags().StringVar(&compareOpts.tagPrefix, "tag_prefix", "", "count only curator tags with this prefix")
	compareCmd.Flags().StringVar(&compareOpts.output, "output", "", "comparison summary JSON path")
	_ = compareCmd.MarkFlagRequired("input_path")
	_ = compareCmd.MarkFlagRequired("panel_genes")
	_ = compareCmd.MarkFlagRequired("plink_file")
	_ = compareCmd.MarkFlagRequired("seqr_export")
	_ = compareCmd.MarkFlagRequired("output")
}

func runCompare(cmd *cobra.Command, _ []string) error {
	stage, err := stageConfig(compareOpts.configJSON)
	if err != nil {
		return err
	}

	set, err := runner.LoadResults(compareOpts.inputPath)
	if err != nil {
		return err
	}
	ctx, span := telemetry.StartStage(cmd.Context(), "compare", set.Metadata.Cohort)
	defer span.End()

	panel, err := panelapp.LoadData(compareOpts.panelGenes)
	if err != nil {
		return err
	}
	ped, err := pedigree.Load(compareOpts.plinkFile)
	if err != nil {
		return err
	}

	comparator, err := compare.New(compare.Options{
		Config:       &stage,
		Results:      set,
		Pedigree:     ped,
		Panels:       panel,
		SeqrExport:   compareOpts.seqrExport,
		LabelledVCF:  compareOpts.labelledVCF,
		AnnotatedVCF: compareOpts.annotatedVCF,
		TagPrefix:    compareOpts.tagPrefix,
	})
	if err != nil {
		return err
	}
	summary, err := comparator.Run(ctx)
	if err != nil {
		return err
	}
	return compare.SaveSummary(compareOpts.output, summary)
}
