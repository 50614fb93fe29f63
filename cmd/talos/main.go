// SPDX-License-Identifier: MIT

// Command talos runs the rare-disease variant prioritisation pipeline:
// phenotype-to-panel matching, PanelApp queries, ClinVar re-summary,
// category labelling, inheritance validation, report rendering and the
// report index server. Stage subcommands are thin wrappers over the
// internal packages and compose through files on disk, so any stage can
// be re-run in isolation.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talosproj/talos/internal/config"
	"github.com/talosproj/talos/internal/log"
	"github.com/talosproj/talos/internal/telemetry"
	"github.com/talosproj/talos/internal/version"
)

var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string

	cfg      config.Config
	provider *telemetry.Provider
)

var rootCmd = &cobra.Command{
	Use:           "talos",
	Short:         "Rare-disease variant prioritisation pipeline",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagLogLevel != "" {
			cfg.LogLevel = flagLogLevel
		}
		if flagLogFormat != "" {
			cfg.LogFormat = flagLogFormat
		}
		log.Configure(log.Config{
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Service: "talos",
		})

		if cfg.Telemetry.Endpoint != "" {
			protocol := cfg.Telemetry.Protocol
			if protocol == "" {
				protocol = "grpc"
			}
			provider, err = telemetry.NewProvider(cmd.Context(), telemetry.Config{
				Enabled:        true,
				ServiceName:    "talos",
				ServiceVersion: version.Version,
				ExporterType:   protocol,
				Endpoint:       cfg.Telemetry.Endpoint,
				Insecure:       cfg.Telemetry.Insecure,
				SamplingRate:   cfg.Telemetry.SampleRatio,
			})
			if err != nil {
				return fmt.Errorf("telemetry init: %w", err)
			}
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
		if provider != nil {
			return provider.Shutdown(context.WithoutCancel(cmd.Context()))
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "talos %s (commit: %s, built: %s)\n",
			version.Version, version.Commit, version.Date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (TOML, YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "override log format (json, console)")
	rootCmd.AddCommand(versionCmd)
}

// stageConfig honours a per-stage config_json override; without one the
// globally loaded configuration applies.
func stageConfig(configJSON string) (config.Config, error) {
	if configJSON == "" {
		return cfg, nil
	}
	return config.Load(configJSON)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
