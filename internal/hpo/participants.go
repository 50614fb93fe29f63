// SPDX-License-Identifier: MIT

package hpo

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/talosproj/talos/internal/fileio"
	"github.com/talosproj/talos/internal/variant"
)

// DefaultPanel is the Mendeliome, applied to every participant regardless
// of phenotype.
const DefaultPanel = 137

var hpoTermRe = regexp.MustCompile(`HP:[0-9]+`)

// Participant carries one sample's phenotype terms and the panels matched
// to them.
type Participant struct {
	ExternalID string            `json:"external_id"`
	FamilyID   string            `json:"family_id"`
	HPOTerms   variant.StringSet `json:"hpo_terms"`
	Panels     variant.IntSet    `json:"panels"`
}

// PhenotypePanels is the phenotype-matching output consumed by the panel
// query and validation stages: per-sample panel assignments plus the union
// of every panel matched across the cohort.
type PhenotypePanels struct {
	Samples   map[string]*Participant `json:"samples"`
	AllPanels variant.IntSet          `json:"all_panels"`
}

// NewPhenotypePanels starts a cohort on the default panel.
func NewPhenotypePanels() *PhenotypePanels {
	return &PhenotypePanels{
		Samples:   make(map[string]*Participant),
		AllPanels: variant.NewIntSet(DefaultPanel),
	}
}

// LoadParticipants reads a PED file whose trailing columns carry phenotype
// annotations, extracting HP terms per sample by pattern so the surrounding
// free text does not matter.
func LoadParticipants(path string) (*PhenotypePanels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pedigree: %w", err)
	}
	defer f.Close()

	p, err := ParseParticipants(f)
	if err != nil {
		return nil, fmt.Errorf("parse pedigree %s: %w", path, err)
	}
	return p, nil
}

// ParseParticipants parses PED rows. Every participant starts on the
// default panel.
func ParseParticipants(r io.Reader) (*PhenotypePanels, error) {
	p := NewPhenotypePanels()

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 6 {
			return nil, fmt.Errorf("line %d: expected 6 columns, got %d", line, len(fields))
		}
		terms := variant.NewStringSet()
		for _, extra := range fields[6:] {
			for _, hit := range hpoTermRe.FindAllString(extra, -1) {
				terms.Add(hit)
			}
		}
		p.Samples[fields[1]] = &Participant{
			ExternalID: fields[1],
			FamilyID:   fields[0],
			HPOTerms:   terms,
			Panels:     variant.NewIntSet(DefaultPanel),
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read pedigree: %w", err)
	}
	if len(p.Samples) == 0 {
		return nil, errors.New("pedigree contains no samples")
	}
	return p, nil
}

// Terms returns every distinct raw HP term across the cohort.
func (p *PhenotypePanels) Terms() []string {
	all := variant.NewStringSet()
	for _, sample := range p.Samples {
		all.Merge(sample.HPOTerms)
	}
	return all.Sorted()
}

// MatchParticipants unions each participant's matched panels into their
// private panel set and into the cohort-wide set.
func (m *Matcher) MatchParticipants(p *PhenotypePanels) {
	matched := m.MatchAll(p.Terms())
	for _, sample := range p.Samples {
		for term := range sample.HPOTerms {
			panels, ok := matched[term]
			if !ok || len(panels) == 0 {
				continue
			}
			sample.Panels.Merge(panels)
			p.AllPanels.Merge(panels)
		}
	}
}

// DescribeParticipants rewrites each participant's raw terms in the
// human-readable "HP:0001250 - Seizure" form for the final artefact.
func (m *Matcher) DescribeParticipants(p *PhenotypePanels) {
	for _, sample := range p.Samples {
		described := variant.NewStringSet()
		for term := range sample.HPOTerms {
			described.Add(m.Describe(term))
		}
		sample.HPOTerms = described
	}
}

// Save writes the phenotype panel artefact.
func (p *PhenotypePanels) Save(path string) error {
	return fileio.WriteJSON(path, p)
}

// LoadPhenotypePanels reads an artefact written by Save. A missing sample
// map or panel set is replaced with its default.
func LoadPhenotypePanels(path string) (*PhenotypePanels, error) {
	var p PhenotypePanels
	if err := fileio.ReadJSON(path, &p); err != nil {
		return nil, err
	}
	if p.Samples == nil {
		p.Samples = make(map[string]*Participant)
	}
	if p.AllPanels == nil {
		p.AllPanels = variant.NewIntSet(DefaultPanel)
	}
	return &p, nil
}
