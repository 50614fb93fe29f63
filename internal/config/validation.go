// SPDX-License-Identifier: MIT

package config

import (
	"github.com/talosproj/talos/internal/validate"
)

// Validate checks a Config using the centralized validation package.
// The PanelApp base URL is normalized in place on success.
func Validate(cfg *Config) error {
	v := validate.New()

	if _, err := validate.ParseLogLevel(cfg.LogLevel); err != nil {
		v.AddError("LogLevel", err.Error(), cfg.LogLevel)
	}
	v.OneOf("LogFormat", cfg.LogFormat, []string{"json", "console"})

	// PanelApp base URL, host normalized for outbound requests
	if normalized, err := validate.NormalizeBaseURL(cfg.Panels.PanelApp); err != nil {
		v.AddError("Panels.PanelApp", err.Error(), cfg.Panels.PanelApp)
	} else {
		cfg.Panels.PanelApp = normalized
	}
	v.Positive("Panels.DefaultPanel", cfg.Panels.DefaultPanel)
	v.Range("Panels.TimeoutMS", cfg.Panels.TimeoutMS, 100, 600000)
	v.NonNegativeFloat("Panels.RateLimit", cfg.Panels.RateLimit)
	v.Positive("Panels.Burst", cfg.Panels.Burst)
	v.Range("Panels.Retries", cfg.Panels.Retries, 0, 10)

	// Frequency thresholds are allele-frequency ratios
	v.Ratio("MOITests.GnomadDominant", cfg.MOITests.GnomadDominant)
	v.NonNegative("MOITests.GnomadMaxACDominant", cfg.MOITests.GnomadMaxACDominant)
	v.NonNegative("MOITests.GnomadMaxHomsDominant", cfg.MOITests.GnomadMaxHomsDominant)
	v.NonNegative("MOITests.GnomadMaxHomsRecessive", cfg.MOITests.GnomadMaxHomsRecessive)
	v.NonNegative("MOITests.GnomadMaxHemi", cfg.MOITests.GnomadMaxHemi)

	v.Ratio("Filter.AFSemiRare", cfg.Filter.AFSemiRare)
	v.Ratio("Filter.CallsetAFMax", cfg.Filter.CallsetAFMax)
	v.Ratio("Filter.SVAFMax", cfg.Filter.SVAFMax)
	v.NonNegative("Filter.CallsetACMax", cfg.Filter.CallsetACMax)
	v.Ratio("Filter.SpliceAIFull", cfg.Filter.SpliceAIFull)
	v.NonNegativeFloat("Filter.InSilico.CADD", cfg.Filter.InSilico.CADD)
	v.Ratio("Filter.InSilico.REVEL", cfg.Filter.InSilico.REVEL)
	v.Ratio("Filter.InSilico.SIFT", cfg.Filter.InSilico.SIFT)
	v.Ratio("Filter.InSilico.Polyphen", cfg.Filter.InSilico.Polyphen)
	if len(cfg.Filter.CriticalCSQ) == 0 {
		v.AddError("Filter.CriticalCSQ", "at least one critical consequence is required", nil)
	}

	if len(cfg.CSQ.CSQString) == 0 {
		v.AddError("CSQ.CSQString", "csq_string field order cannot be empty", nil)
	}

	if len(cfg.Categories) == 0 {
		v.AddError("Categories", "category label table cannot be empty", nil)
	}

	v.OneOf("References.GenomeBuild", cfg.References.GenomeBuild, []string{"GRCh37", "GRCh38"})

	v.Range("HPO.MaxDepth", cfg.HPO.MaxDepth, 0, 10)
	v.NonNegativeFloat("HPO.MinSimilarity", cfg.HPO.MinSimilarity)

	v.Range("Serve.RateLimit", cfg.Serve.RateLimit, 1, 10000)
	v.ListenAddr("Serve.ListenAddr", cfg.Serve.ListenAddr)

	if cfg.Cache.RedisAddr != "" {
		v.ListenAddr("Cache.RedisAddr", cfg.Cache.RedisAddr)
		v.Positive("Cache.TTLSeconds", cfg.Cache.TTLSeconds)
	}

	if cfg.Telemetry.Endpoint != "" {
		v.OneOf("Telemetry.Protocol", cfg.Telemetry.Protocol, []string{"grpc", "http"})
		v.Ratio("Telemetry.SampleRatio", cfg.Telemetry.SampleRatio)
	}

	return v.Err()
}
