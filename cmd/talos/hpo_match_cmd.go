// SPDX-License-Identifier: MIT

package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/talosproj/talos/internal/hpo"
	"github.com/talosproj/talos/internal/telemetry"
)

var hpoMatchOpts struct {
	configJSON string
	plinkFile  string
	obo        string
	output     string
}

var hpoMatchCmd = &cobra.Command{
	Use:   "hpo-match",
	Short: "Match participant phenotypes to PanelApp panels",
	Long: `Walk each participant's HPO terms up the ontology and select every
panel whose relevant disorders mention a term within reach. The phenotype
panel artefact written here drives the panel query stage.`,
	RunE: runHPOMatch,
}

func init() {
	rootCmd.AddCommand(hpoMatchCmd)
	hpoMatchCmd.Flags().StringVar(&hpoMatchOpts.configJSON, "config_json", "", "per-stage config override")
	hpoMatchCmd.Flags().StringVar(&hpoMatchOpts.plinkFile, "plink_file", "", "pedigree with trailing phenotype columns")
	hpoMatchCmd.Flags().StringVar(&hpoMatchOpts.obo, "obo", "", "HPO ontology in OBO format (overrides hpo.obo_file)")
	hpoMatchCmd.Flags().StringVar(&hpoMatchOpts.output, "output", "", "phenotype panel artefact path")
	_ = hpoMatchCmd.MarkFlagRequired("plink_file")
	_ = hpoMatchCmd.MarkFlagRequired("output")
}

func runHPOMatch(cmd *cobra.Command, _ []string) error {
	stage, err := stageConfig(hpoMatchOpts.configJSON)
	if err != nil {
		return err
	}
	ctx, span := telemetry.StartStage(cmd.Context(), "hpo-match", "")
	defer span.End()

	oboPath := hpoMatchOpts.obo
	if oboPath == "" {
		oboPath = stage.HPO.OboFile
	}
	if oboPath == "" {
		return errors.New("hpo-match: no ontology configured (set --obo or hpo.obo_file)")
	}

	participants, err := hpo.LoadParticipants(hpoMatchOpts.plinkFile)
	if err != nil {
		return err
	}
	graph, err := hpo.LoadGraph(oboPath)
	if err != nil {
		return err
	}
	panelsByTerm, err := newPanelClient(stage).PanelsByHPO(ctx)
	if err != nil {
		return err
	}

	matcher := hpo.NewMatcher(graph, panelsByTerm)
	matcher.SetMaxDepth(stage.HPO.MaxDepth)
	matcher.MatchParticipants(participants)
	matcher.DescribeParticipants(participants)

	return participants.Save(hpoMatchOpts.output)
}
