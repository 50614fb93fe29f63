// SPDX-License-Identifier: MIT

package main

import (
	"github.com/spf13/cobra"

	"github.com/talosproj/talos/internal/report"
	"github.com/talosproj/talos/internal/runner"
	"github.com/talosproj/talos/internal/telemetry"
)

var reportOpts struct {
	configJSON string
	inputPath  string
	cohort     string
	output     string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a result set as a standalone HTML report",
	Long: `Render the validated result set into a self-contained HTML page with
per-sample variant tables, category badges, external curator labels and
seqr deep links where the cohort configures them.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportOpts.configJSON, "config_json", "", "per-stage config override")
	reportCmd.Flags().StringVar(&reportOpts.inputPath, "input_path", "", "result set artefact from validate")
	reportCmd.Flags().StringVar(&reportOpts.cohort, "cohort", "", "cohort name for labels and seqr links")
	reportCmd.Flags().StringVar(&reportOpts.output, "output", "", "HTML report path")
	_ = reportCmd.MarkFlagRequired("input_path")
	_ = reportCmd.MarkFlagRequired("output")
}

func runReport(cmd *cobra.Command, _ []string) error {
	stage, err := stageConfig(reportOpts.configJSON)
	if err != nil {
		return err
	}
	_, span := telemetry.StartStage(cmd.Context(), "report", reportOpts.cohort)
	defer span.End()

	set, err := runner.LoadResults(reportOpts.inputPath)
	if err != nil {
		return err
	}
	cohortCfg, err := stage.RequireCohort(reportOpts.cohort)
	if err != nil {
		return err
	}
	builder, err := report.NewBuilder(cohortCfg)
	if err != nil {
		return err
	}
	return builder.Render(set, reportOpts.output)
}
