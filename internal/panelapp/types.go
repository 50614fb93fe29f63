// SPDX-License-Identifier: MIT

// Package panelapp queries the PanelApp API and aggregates green genes
// across the Mendeliome and every phenotype-matched panel into the gene
// data used by variant labelling and inheritance checks.
package panelapp

import (
	"github.com/talosproj/talos/internal/fileio"
	"github.com/talosproj/talos/internal/variant"
)

// DefaultPanel is the Mendeliome, the base panel of every analysis.
const DefaultPanel = 137

// HistoryVersion identifies the panel-history artefact schema.
const HistoryVersion = "1.0.0"

// PanelShort records one queried panel's identity for the run metadata.
type PanelShort struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	ID      int    `json:"id"`
}

// PanelDetail is the aggregated view of one green gene across all queried
// panels. MOI holds the single simplified mode of inheritance once
// ApplyBestMOI has run.
type PanelDetail struct {
	Symbol string            `json:"symbol"`
	Chrom  string            `json:"chrom,omitempty"`
	AllMOI variant.StringSet `json:"all_moi"`
	MOI    string            `json:"moi,omitempty"`
	New    variant.IntSet    `json:"new"`
	Panels variant.IntSet    `json:"panels"`
}

// Data is the panel-query artefact: per-panel metadata plus every green
// gene keyed by Ensembl ID.
type Data struct {
	Metadata []PanelShort            `json:"metadata"`
	Genes    map[string]*PanelDetail `json:"genes"`
}

// NewData returns an empty aggregate ready for panel queries.
func NewData() *Data {
	return &Data{Genes: make(map[string]*PanelDetail)}
}

// Save writes the panel data artefact.
func (d *Data) Save(path string) error {
	return fileio.WriteJSON(path, d)
}

// LoadData reads a panel data artefact written by Save.
func LoadData(path string) (*Data, error) {
	var d Data
	if err := fileio.ReadJSON(path, &d); err != nil {
		return nil, err
	}
	if d.Genes == nil {
		d.Genes = make(map[string]*PanelDetail)
	}
	return &d, nil
}

// History records which panels each gene has previously appeared on.
// A gene-panel pairing absent from the history is new in this round,
// which feeds the new-gene labelling category.
type History struct {
	Version string                    `json:"version"`
	Genes   map[string]variant.IntSet `json:"genes"`
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{Version: HistoryVersion, Genes: make(map[string]variant.IntSet)}
}

// NewHistoryFromData seeds a first-round history from the current query,
// so nothing is treated as new until a later panel actually changes.
func NewHistoryFromData(d *Data) *History {
	h := NewHistory()
	for ensg, detail := range d.Genes {
		h.Genes[ensg] = detail.Panels
	}
	return h
}

// Seen reports whether the gene was already on the panel in a prior round.
func (h *History) Seen(ensg string, panelID int) bool {
	return h.Genes[ensg].Has(panelID)
}

// Record marks the gene as seen on the panel.
func (h *History) Record(ensg string, panelID int) {
	if h.Genes[ensg] == nil {
		h.Genes[ensg] = variant.NewIntSet()
	}
	h.Genes[ensg].Add(panelID)
}

// Save writes the history artefact.
func (h *History) Save(path string) error {
	return fileio.WriteJSON(path, h)
}

// LoadHistory reads a history artefact written by Save.
func LoadHistory(path string) (*History, error) {
	var h History
	if err := fileio.ReadJSON(path, &h); err != nil {
		return nil, err
	}
	if h.Genes == nil {
		h.Genes = make(map[string]variant.IntSet)
	}
	return &h, nil
}
