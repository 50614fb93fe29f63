// SPDX-License-Identifier: MIT

package main

import (
	"github.com/spf13/cobra"

	"github.com/talosproj/talos/internal/webserve"
)

var serveOpts struct {
	listenAddr  string
	resultsRoot string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve rendered reports and keep their index current",
	Long: `Serve the results root over HTTP with the report index rebuilt
automatically whenever a cohort report lands. The process runs until
interrupted and drains in-flight requests on shutdown.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveOpts.listenAddr, "listen", "", "listen address (overrides serve.listen_addr)")
	serveCmd.Flags().StringVar(&serveOpts.resultsRoot, "results-root", "", "directory of rendered reports (overrides serve.results_root)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	serveCfg := cfg.Serve
	if serveOpts.listenAddr != "" {
		serveCfg.ListenAddr = serveOpts.listenAddr
	}
	if serveOpts.resultsRoot != "" {
		serveCfg.ResultsRoot = serveOpts.resultsRoot
	}

	srv, err := webserve.New(serveCfg)
	if err != nil {
		return err
	}
	return srv.Run(cmd.Context())
}
