// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/talosproj/talos/internal/log"
)

// Environment variables recognised as overrides. Each maps onto exactly one
// config field; the file keeps everything else.
const (
	EnvLogLevel     = "TALOS_LOG_LEVEL"
	EnvLogFormat    = "TALOS_LOG_FORMAT"
	EnvPanelAppURL  = "TALOS_PANELAPP_URL"
	EnvRedisAddr    = "TALOS_REDIS_ADDR"
	EnvListenAddr   = "TALOS_LISTEN_ADDR"
	EnvResultsRoot  = "TALOS_RESULTS_ROOT"
	EnvHistoryDB    = "TALOS_HISTORY_DB"
	EnvClinVarStore = "TALOS_CLINVAR_STORE"
	EnvOTLPEndpoint = "TALOS_OTLP_ENDPOINT"
	EnvHPOFile      = "TALOS_HPO_OBO"
)

// applyEnv overlays recognised environment variables onto cfg.
// Environment wins over file values.
func applyEnv(cfg *Config) {
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)
	cfg.LogFormat = ParseString(EnvLogFormat, cfg.LogFormat)
	cfg.Panels.PanelApp = ParseString(EnvPanelAppURL, cfg.Panels.PanelApp)
	cfg.Cache.RedisAddr = ParseString(EnvRedisAddr, cfg.Cache.RedisAddr)
	cfg.Serve.ListenAddr = ParseString(EnvListenAddr, cfg.Serve.ListenAddr)
	cfg.Serve.ResultsRoot = ParseString(EnvResultsRoot, cfg.Serve.ResultsRoot)
	cfg.History.DBPath = ParseString(EnvHistoryDB, cfg.History.DBPath)
	cfg.ClinVar.StorePath = ParseString(EnvClinVarStore, cfg.ClinVar.StorePath)
	cfg.Telemetry.Endpoint = ParseString(EnvOTLPEndpoint, cfg.Telemetry.Endpoint)
	cfg.HPO.OboFile = ParseString(EnvHPOFile, cfg.HPO.OboFile)
}

// ParseString reads a string environment variable, falling back to the
// default when unset or empty.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	if v, ok := os.LookupEnv(key); ok && v != "" {
		logger.Debug().
			Str("key", key).
			Str("source", "env").
			Msg("environment override applied")
		return v
	}
	return defaultValue
}

// ParseInt reads an integer environment variable, falling back to the
// default when unset, empty, or malformed.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			logger.Debug().
				Str("key", key).
				Int("value", i).
				Str("source", "env").
				Msg("environment override applied")
			return i
		}
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Int("default", defaultValue).
			Msg("invalid integer in environment, using default")
	}
	return defaultValue
}

// ParseFloat reads a float environment variable, falling back to the
// default when unset, empty, or malformed.
func ParseFloat(key string, defaultValue float64) float64 {
	logger := log.WithComponent("config")
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			logger.Debug().
				Str("key", key).
				Float64("value", f).
				Str("source", "env").
				Msg("environment override applied")
			return f
		}
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Float64("default", defaultValue).
			Msg("invalid float in environment, using default")
	}
	return defaultValue
}

// ParseBool reads a boolean environment variable, accepting the usual
// true/false spellings, falling back to the default otherwise.
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	if v, ok := os.LookupEnv(key); ok && v != "" {
		switch strings.ToLower(v) {
		case "1", "t", "true", "y", "yes", "on":
			return true
		case "0", "f", "false", "n", "no", "off":
			return false
		default:
			logger.Warn().
				Str("key", key).
				Str("value", v).
				Bool("default", defaultValue).
				Msg("invalid boolean in environment, using default")
		}
	}
	return defaultValue
}
