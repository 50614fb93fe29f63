// SPDX-License-Identifier: MIT

package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/talosproj/talos/internal/report"
	"github.com/talosproj/talos/internal/telemetry"
)

var indexOpts struct {
	configJSON string
	root       string
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the report index page over a results root",
	Long: `Scan the results root for rendered cohort reports and write the
index.html listing them, newest first. The serve command does this
automatically whenever a report changes; this command covers roots
published without a running server.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVar(&indexOpts.configJSON, "config_json", "", "per-stage config override")
	indexCmd.Flags().StringVar(&indexOpts.root, "root", "", "results root to index (overrides serve.results_root)")
}

func runIndex(cmd *cobra.Command, _ []string) error {
	stage, err := stageConfig(indexOpts.configJSON)
	if err != nil {
		return err
	}
	_, span := telemetry.StartStage(cmd.Context(), "index", "")
	defer span.End()

	// an explicitly empty --root must not fall back to the serve default
	root := indexOpts.root
	if root == "" && !cmd.Flags().Changed("root") {
		root = stage.Serve.ResultsRoot
	}
	if root == "" {
		return errors.New("index: no results root configured (set --root or serve.results_root)")
	}
	return report.RenderIndex(root)
}
