// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/talosproj/talos/internal/hpo"
	"github.com/talosproj/talos/internal/panelapp"
	"github.com/talosproj/talos/internal/telemetry"
	"github.com/talosproj/talos/internal/variant"
)

var queryPanelappOpts struct {
	configJSON string
	inputPath  string
	cohort     string
	history    string
	output     string
}

var queryPanelappCmd = &cobra.Command{
	Use:   "query-panelapp",
	Short: "Pull green genes for the matched and cohort-forced panels",
	Long: `Query the Mendeliome plus every panel selected by phenotype matching
or forced on by cohort configuration, and aggregate their green genes into
the panel data artefact. With a history file, gene-panel pairings unseen in
prior rounds are flagged as new; a missing history file is seeded from this
round so nothing counts as new until a panel actually changes.`,
	RunE: runQueryPanelapp,
}

func init() {
	rootCmd.AddCommand(queryPanelappCmd)
	queryPanelappCmd.Flags().StringVar(&queryPanelappOpts.configJSON, "config_json", "", "per-stage config override")
	queryPanelappCmd.Flags().StringVar(&queryPanelappOpts.inputPath, "input_path", "", "phenotype panel artefact from hpo-match")
	queryPanelappCmd.Flags().StringVar(&queryPanelappOpts.cohort, "cohort", "", "cohort name for forced panels")
	queryPanelappCmd.Flags().StringVar(&queryPanelappOpts.history, "history", "", "panel history artefact, read and updated for new-gene detection")
	queryPanelappCmd.Flags().StringVar(&queryPanelappOpts.output, "output", "", "panel data artefact path")
	_ = queryPanelappCmd.MarkFlagRequired("input_path")
	_ = queryPanelappCmd.MarkFlagRequired("output")
}

func runQueryPanelapp(cmd *cobra.Command, _ []string) error {
	stage, err := stageConfig(queryPanelappOpts.configJSON)
	if err != nil {
		return err
	}
	ctx, span := telemetry.StartStage(cmd.Context(), "query-panelapp", queryPanelappOpts.cohort)
	defer span.End()

	phenotypes, err := hpo.LoadPhenotypePanels(queryPanelappOpts.inputPath)
	if err != nil {
		return err
	}

	var hist *panelapp.History
	if queryPanelappOpts.history != "" {
		hist, err = panelapp.LoadHistory(queryPanelappOpts.history)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	cohortCfg, err := stage.RequireCohort(queryPanelappOpts.cohort)
	if err != nil {
		return err
	}
	data, err := newPanelClient(stage).QueryAll(ctx, panelapp.QueryOptions{
		PhenotypePanels:   phenotypes.AllPanels,
		CohortPanels:      cohortCfg.CohortPanels,
		RequirePhenoMatch: stage.Panels.RequirePhenoMatch,
		Forbidden:         variant.NewStringSet(stage.Panels.ForbiddenGenes...),
		History:           hist,
	})
	if err != nil {
		return err
	}

	if err := data.Save(queryPanelappOpts.output); err != nil {
		return err
	}
	if queryPanelappOpts.history != "" {
		if hist == nil {
			hist = panelapp.NewHistoryFromData(data)
		}
		return hist.Save(queryPanelappOpts.history)
	}
	return nil
}
