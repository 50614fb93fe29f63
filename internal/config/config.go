// SPDX-License-Identifier: MIT

// Package config provides configuration management for the pipeline.
// Precedence is Defaults < File (TOML or YAML, strict) < Environment.
package config

import (
	"fmt"
	"time"
)

// Config is the root runtime configuration shared by every stage.
type Config struct {
	LogLevel  string `toml:"log_level" yaml:"log_level"`
	LogFormat string `toml:"log_format" yaml:"log_format"`

	Panels        PanelsConfig        `toml:"panels" yaml:"panels"`
	MOITests      MOIConfig           `toml:"moi_tests" yaml:"moi_tests"`
	Filter        FilterConfig        `toml:"filter" yaml:"filter"`
	CSQ           CSQConfig           `toml:"csq" yaml:"csq"`
	Categories    map[string]string   `toml:"categories" yaml:"categories"`
	CategoryRules CategoryRulesConfig `toml:"category_rules" yaml:"category_rules"`
	References    ReferencesConfig    `toml:"references" yaml:"references"`
	HPO           HPOConfig           `toml:"hpo" yaml:"hpo"`
	ClinVar       ClinVarConfig       `toml:"clinvar" yaml:"clinvar"`
	History       HistoryConfig       `toml:"history" yaml:"history"`
	Report        ReportConfig        `toml:"report" yaml:"report"`
	Serve         ServeConfig         `toml:"serve" yaml:"serve"`
	Cache         CacheConfig         `toml:"cache" yaml:"cache"`
	Telemetry     TelemetryConfig     `toml:"telemetry" yaml:"telemetry"`

	Cohorts map[string]CohortConfig `toml:"cohorts" yaml:"cohorts"`
}

// PanelsConfig covers PanelApp access and panel selection.
type PanelsConfig struct {
	// PanelApp is the API base, e.g. https://panelapp.agha.umccr.org/api/v1/panels
	PanelApp     string `toml:"panelapp" yaml:"panelapp"`
	DefaultPanel int    `toml:"default_panel" yaml:"default_panel"`
	TimeoutMS    int    `toml:"timeout_ms" yaml:"timeout_ms"`
	// RateLimit is requests per second against the API; Burst its bucket size.
	RateLimit float64 `toml:"rate_limit" yaml:"rate_limit"`
	Burst     int     `toml:"burst" yaml:"burst"`
	Retries   int     `toml:"retries" yaml:"retries"`
	// ForbiddenGenes are never analysed regardless of panel content.
	ForbiddenGenes []string `toml:"forbidden_genes" yaml:"forbidden_genes"`
	// RequirePhenoMatch genes only survive on phenotype-matched panels.
	RequirePhenoMatch []string `toml:"require_pheno_match" yaml:"require_pheno_match"`
}

// RequestTimeout converts the configured millisecond timeout.
func (p PanelsConfig) RequestTimeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

// MOIConfig carries the frequency thresholds for inheritance tests.
// Key names follow the gnomAD-derived INFO annotations they gate.
type MOIConfig struct {
	GnomadDominant         float64 `toml:"gnomad_dominant" yaml:"gnomad_dominant"`
	GnomadMaxACDominant    int     `toml:"gnomad_max_ac_dominant" yaml:"gnomad_max_ac_dominant"`
	GnomadMaxHomsDominant  int     `toml:"gnomad_max_homs_dominant" yaml:"gnomad_max_homs_dominant"`
	GnomadMaxHomsRecessive int     `toml:"gnomad_max_homs_recessive" yaml:"gnomad_max_homs_recessive"`
	GnomadMaxHemi          int     `toml:"gnomad_max_hemi" yaml:"gnomad_max_hemi"`
}

// FilterConfig drives variant quality and rarity filtering plus the
// category predicates.
type FilterConfig struct {
	// AFSemiRare is the gnomAD exome/genome AF ceiling for analysis.
	AFSemiRare float64 `toml:"af_semi_rare" yaml:"af_semi_rare"`
	// CallsetACMax and CallsetAFMax form the joint-call frequency gate:
	// keep when AC <= CallsetACMax or AC/AN < CallsetAFMax.
	CallsetACMax int     `toml:"callset_ac_max" yaml:"callset_ac_max"`
	CallsetAFMax float64 `toml:"callset_af_max" yaml:"callset_af_max"`
	// SpliceAIFull is the delta-score floor for the splice category.
	SpliceAIFull float64 `toml:"spliceai_full" yaml:"spliceai_full"`
	// SVAFMax is the frequency ceiling for structural variant labelling.
	SVAFMax float64 `toml:"sv_af_max" yaml:"sv_af_max"`

	CriticalCSQ   []string `toml:"critical_csq" yaml:"critical_csq"`
	AdditionalCSQ []string `toml:"additional_csq" yaml:"additional_csq"`

	InSilico InSilicoConfig `toml:"in_silico" yaml:"in_silico"`
}

// InSilicoConfig holds the in-silico tool thresholds. SIFT scores qualify at
// or below the threshold; the others at or above.
type InSilicoConfig struct {
	CADD     float64 `toml:"cadd" yaml:"cadd"`
	REVEL    float64 `toml:"revel" yaml:"revel"`
	SIFT     float64 `toml:"sift" yaml:"sift"`
	Polyphen float64 `toml:"polyphen" yaml:"polyphen"`
}

// CSQConfig fixes the ordered CSQ field layout used when decoding and
// re-encoding the VEP annotation string.
type CSQConfig struct {
	CSQString []string `toml:"csq_string" yaml:"csq_string"`
}

// CategoryRulesConfig gates how individual categories count towards
// reporting.
type CategoryRulesConfig struct {
	// SupportIndependent treats support-only variants as reportable on
	// their own. Off by default: support calls normally only ride along
	// as compound-het partners.
	SupportIndependent bool `toml:"support_independent" yaml:"support_independent"`
}

// ReferencesConfig pins the reference resources a run was built against.
type ReferencesConfig struct {
	GenomeBuild string `toml:"genome_build" yaml:"genome_build"`
	// ClinVarSubmissions and ClinVarVariants are the raw summary dumps
	// consumed by the re-summary step when the flags leave them unset.
	ClinVarSubmissions string `toml:"clinvar_submissions" yaml:"clinvar_submissions"`
	ClinVarVariants    string `toml:"clinvar_variants" yaml:"clinvar_variants"`
}

// HPOConfig locates the ontology and tunes phenotype matching.
type HPOConfig struct {
	OboFile string `toml:"obo_file" yaml:"obo_file"`
	// MaxDepth bounds the parent-term walk during panel matching.
	MaxDepth int `toml:"max_depth" yaml:"max_depth"`
	// MinSimilarity is accepted for configs tuned against a termset
	// similarity scorer; the graph-distance matcher does not consult it.
	MinSimilarity float64 `toml:"min_similarity" yaml:"min_similarity"`
}

// ClinVarConfig locates the decision store built by the re-summary step.
type ClinVarConfig struct {
	StorePath string `toml:"store_path" yaml:"store_path"`
}

// HistoryConfig locates the run-history database.
type HistoryConfig struct {
	DBPath string `toml:"db_path" yaml:"db_path"`
}

// ReportConfig controls rendered report output.
type ReportConfig struct {
	OutputDir string `toml:"output_dir" yaml:"output_dir"`
}

// ServeConfig controls the report index server.
type ServeConfig struct {
	ListenAddr string `toml:"listen_addr" yaml:"listen_addr"`
	// ResultsRoot is the directory watched and served.
	ResultsRoot string `toml:"results_root" yaml:"results_root"`
	// RateLimit is requests per client per minute.
	RateLimit int `toml:"rate_limit" yaml:"rate_limit"`
}

// CacheConfig enables the optional redis-backed response cache.
type CacheConfig struct {
	RedisAddr  string `toml:"redis_addr" yaml:"redis_addr"`
	TTLSeconds int    `toml:"ttl_seconds" yaml:"ttl_seconds"`
}

// TTL converts the configured second-granular cache lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// TelemetryConfig enables the opt-in OTLP trace exporter.
type TelemetryConfig struct {
	Endpoint string `toml:"endpoint" yaml:"endpoint"`
	// Protocol selects the exporter transport: grpc or http.
	Protocol    string  `toml:"protocol" yaml:"protocol"`
	SampleRatio float64 `toml:"sample_ratio" yaml:"sample_ratio"`
	Insecure    bool    `toml:"insecure" yaml:"insecure"`
}

// CohortConfig is the per-cohort analysis context.
type CohortConfig struct {
	// CohortPanels are force-applied to every participant in the cohort.
	CohortPanels []int `toml:"cohort_panels" yaml:"cohort_panels"`
	// SolvedFamilies are dropped from results.
	SolvedFamilies []string `toml:"solved_families" yaml:"solved_families"`
	// GeneBlacklist removes known artefact genes for this cohort.
	GeneBlacklist []string `toml:"gene_blacklist" yaml:"gene_blacklist"`
	// VariantBlacklist is a JSON file of coords strings to exclude.
	VariantBlacklist string `toml:"variant_blacklist" yaml:"variant_blacklist"`
	// SeqrInstance and SeqrProject build report deep links.
	SeqrInstance string `toml:"seqr_instance" yaml:"seqr_instance"`
	SeqrProject  string `toml:"seqr_project" yaml:"seqr_project"`
	// SeqrLookup maps internal to seqr family identifiers.
	SeqrLookup string `toml:"seqr_lookup" yaml:"seqr_lookup"`
	// ExternalLabels is a JSON file of curator labels merged into reports.
	ExternalLabels string `toml:"external_labels" yaml:"external_labels"`
}

// DefaultPanelAppBase is the public PanelApp Australia API.
const DefaultPanelAppBase = "https://panelapp.agha.umccr.org/api/v1/panels"

// DefaultPanelID is the Mendeliome, applied to every participant.
const DefaultPanelID = 137

// New returns a Config carrying the documented defaults.
func New() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "json",
		Panels: PanelsConfig{
			PanelApp:     DefaultPanelAppBase,
			DefaultPanel: DefaultPanelID,
			TimeoutMS:    60000,
			RateLimit:    5,
			Burst:        5,
			Retries:      3,
		},
		MOITests: MOIConfig{
			GnomadDominant:         0.001,
			GnomadMaxACDominant:    10,
			GnomadMaxHomsDominant:  0,
			GnomadMaxHomsRecessive: 1,
			GnomadMaxHemi:          1,
		},
		Filter: FilterConfig{
			AFSemiRare:   0.01,
			CallsetACMax: 5,
			CallsetAFMax: 0.01,
			SpliceAIFull: 0.5,
			SVAFMax:      0.05,
			CriticalCSQ: []string{
				"frameshift_variant",
				"splice_acceptor_variant",
				"splice_donor_variant",
				"start_lost",
				"stop_gained",
				"stop_lost",
				"transcript_ablation",
			},
			AdditionalCSQ: []string{"missense_variant"},
			InSilico: InSilicoConfig{
				CADD:     28.1,
				REVEL:    0.77,
				SIFT:     0.0,
				Polyphen: 1.0,
			},
		},
		CSQ: CSQConfig{
			CSQString: []string{
				"allele",
				"consequence",
				"symbol",
				"gene",
				"feature",
				"mane_select",
				"biotype",
				"exon",
				"hgvsc",
				"hgvsp",
				"cdna_position",
				"cds_position",
				"protein_position",
				"variant_class",
				"ensp",
				"lof",
				"sift",
				"polyphen",
				"am_class",
				"am_pathogenicity",
			},
		},
		Categories: map[string]string{
			"1":       "ClinVar Pathogenic",
			"2":       "New Gene-Disease Association",
			"3":       "High Impact Variant",
			"4":       "de Novo",
			"5":       "High SpliceAI Score",
			"6":       "AlphaMissense P/LP",
			"support": "High in Silico Scores",
			"sv1":     "Predicted LOF SV",
		},
		References: ReferencesConfig{
			GenomeBuild: "GRCh38",
		},
		HPO: HPOConfig{
			MaxDepth:      3,
			MinSimilarity: 14.0,
		},
		ClinVar: ClinVarConfig{
			StorePath: "clinvar_decisions",
		},
		History: HistoryConfig{
			DBPath: "talos_history.db",
		},
		Report: ReportConfig{
			OutputDir: "reports",
		},
		Serve: ServeConfig{
			ListenAddr:  ":8080",
			ResultsRoot: "reports",
			RateLimit:   100,
		},
		Cache: CacheConfig{
			TTLSeconds: 86400,
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			SampleRatio: 0,
		},
		Cohorts: map[string]CohortConfig{},
	}
}

// Cohort returns the named cohort context.
func (c *Config) Cohort(name string) (CohortConfig, bool) {
	cohort, ok := c.Cohorts[name]
	return cohort, ok
}

// RequireCohort resolves a cohort named on the command line. A name with
// no [cohorts.<name>] section is a configuration error: running without
// the section would silently drop solved families, blacklists and seqr
// links. An empty name runs without cohort context.
func (c *Config) RequireCohort(name string) (CohortConfig, error) {
	if name == "" {
		return CohortConfig{}, nil
	}
	cohort, ok := c.Cohorts[name]
	if !ok {
		return CohortConfig{}, fmt.Errorf("no [cohorts.%s] section in configuration", name)
	}
	return cohort, nil
}
