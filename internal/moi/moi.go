// SPDX-License-Identifier: MIT

// Package moi applies mode-of-inheritance tests to categorised variants.
//
// Each green gene carries one simplified MOI category (see
// panelapp.BestMOI); a Runner holds the inheritance models that category
// makes relevant and applies all of them to a variant, collecting every
// (sample, reason) fit. Models check population-frequency caps, genotype
// pattern, affection status and familial consistency; the recessive
// models additionally search the compound-het index for second hits.
package moi

import (
	"fmt"

	"github.com/talosproj/talos/internal/config"
	"github.com/talosproj/talos/internal/panelapp"
	"github.com/talosproj/talos/internal/pedigree"
	"github.com/talosproj/talos/internal/variant"
)

// MOIUnknown is accepted alongside the panelapp categories: panel data
// predating MOI curation may carry it, and it is analysed permissively.
const MOIUnknown = "Unknown"

// Reason strings attached to reported variants. Result deduplication and
// the rendered report rely on these exact values.
const (
	ReasonDominant          = "Autosomal Dominant"
	ReasonRecessiveHom      = "Autosomal Recessive Homozygous"
	ReasonRecessiveCompHet  = "Autosomal Recessive Compound-Het"
	ReasonXDominantFemale   = "X_Dominant Female"
	ReasonXDominantMale     = "X_Dominant Male"
	ReasonXRecessiveMale    = "X_Recessive Male"
	ReasonXRecessiveFemale  = "X_Recessive Female"
	ReasonXRecessiveCompHet = "X_Recessive Compound-Het Female"
	ReasonYHemi             = "Y_Hemi"
)

// Options configures the inheritance models behind a Runner.
type Options struct {
	Pedigree *pedigree.Pedigree
	Tests    config.MOIConfig
	// CompHet is the second-hit index for the variants under analysis.
	// May be nil when no compound-het search is wanted.
	CompHet CompHetIndex
	// SupportIndependent lets support-only variants pass the categorised
	// check on the single-variant paths.
	SupportIndependent bool
}

// model is one inheritance pattern check.
type model interface {
	apply(v variant.Var) []*variant.ReportVariant
}

// Runner applies every inheritance model one simplified MOI calls for.
// Runners are built once per MOI category, not once per variant.
type Runner struct {
	models []model
}

// NewRunner builds the model list for a simplified MOI category.
func NewRunner(moi string, opts Options) (*Runner, error) {
	b := newBase(opts)
	var models []model
	switch moi {
	case panelapp.MOIMonoallelic:
		models = []model{&dominantAutosomal{b}}
	case panelapp.MOIMonoAndBiallelic, MOIUnknown:
		models = []model{&dominantAutosomal{b}, &recessiveAutosomal{b}}
	case panelapp.MOIBiallelic:
		models = []model{&recessiveAutosomal{b}}
	case panelapp.MOIHemiMonoInFemale:
		models = []model{&xRecessive{b}, &xDominant{b}}
	case panelapp.MOIHemiBiInFemale:
		models = []model{&xRecessive{b}}
	case panelapp.MOIYChromVariant:
		models = []model{&yHemi{b}}
	default:
		return nil, fmt.Errorf("unhandled MOI category %q", moi)
	}
	return &Runner{models: models}, nil
}

// Run collects the classifications from every applicable model.
func (r *Runner) Run(v variant.Var) []*variant.ReportVariant {
	var out []*variant.ReportVariant
	for _, m := range r.models {
		out = append(out, m.apply(v)...)
	}
	return out
}

// deNovoFor reports whether the de novo category names this sample.
// Such calls run the familial check under partial penetrance.
func deNovoFor(v variant.Var, sample string) bool {
	for _, s := range v.Cat().Samples["4"] {
		if s == sample || s == variant.SampleWildcard {
			return true
		}
	}
	return false
}
