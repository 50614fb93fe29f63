// SPDX-License-Identifier: MIT

// Package pedigree parses PLINK-format PED files and resolves family
// structure (parent and child links) for inheritance checks.
package pedigree

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/talosproj/talos/internal/log"
	"github.com/talosproj/talos/internal/variant"
)

// Sex is PED column 5: 1 male, 2 female, anything else unknown.
type Sex int

const (
	SexUnknown Sex = 0
	SexMale    Sex = 1
	SexFemale  Sex = 2
)

func (s Sex) String() string {
	switch s {
	case SexMale:
		return "male"
	case SexFemale:
		return "female"
	default:
		return "unknown"
	}
}

// Participant is one PED row with resolved family links. Mother and Father
// are nil when the referenced sample is absent from the file.
type Participant struct {
	FamilyID string
	ID       string
	FatherID string
	MotherID string
	Sex      Sex
	Affected bool

	Mother   *Participant
	Father   *Participant
	Children []*Participant
}

// IsFemale reports whether the participant is recorded as female.
func (p *Participant) IsFemale() bool { return p.Sex == SexFemale }

// IsMale reports whether the participant is recorded as male.
func (p *Participant) IsMale() bool { return p.Sex == SexMale }

// HasBothParents reports whether both parents are present in the pedigree.
func (p *Participant) HasBothParents() bool { return p.Mother != nil && p.Father != nil }

// Pedigree indexes participants by sample ID and family ID.
type Pedigree struct {
	Participants map[string]*Participant
	Families     map[string][]*Participant

	order []string
}

// Load reads and parses a PED file from disk.
func Load(path string) (*Pedigree, error) {
	// #nosec G304 -- pedigree paths are provided by the operator via CLI
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pedigree: %w", err)
	}
	defer fh.Close()

	ped, err := Parse(fh)
	if err != nil {
		return nil, fmt.Errorf("parse pedigree %s: %w", path, err)
	}
	return ped, nil
}

// Parse reads whitespace-delimited PED rows:
//
//	family_id individual_id father_id mother_id sex phenotype
//
// Blank lines and lines starting with '#' are skipped. Extra columns
// (genotype data in full PED files) are ignored. A parent ID of "0" or
// "-9" means missing; phenotype 2 means affected.
func Parse(r io.Reader) (*Pedigree, error) {
	ped := &Pedigree{
		Participants: make(map[string]*Participant),
		Families:     make(map[string][]*Participant),
	}

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

		p := &Participant{
			FamilyID: fields[0],
			ID:       fields[1],
			FatherID: normaliseParent(fields[2]),
			MotherID: normaliseParent(fields[3]),
			Sex:      parseSex(fields[4]),
			Affected: fields[5] == "2",
		}
		if p.ID == "" || p.ID == "0" {
			return nil, fmt.Errorf("line %d: invalid sample ID %q", line, fields[1])
		}
		if _, dup := ped.Participants[p.ID]; dup {
			return nil, fmt.Errorf("line %d: duplicate sample ID %q", line, p.ID)
		}

		ped.Participants[p.ID] = p
		ped.Families[p.FamilyID] = append(ped.Families[p.FamilyID], p)
		ped.order = append(ped.order, p.ID)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read pedigree: %w", err)
	}
	if len(ped.Participants) == 0 {
		return nil, fmt.Errorf("pedigree contains no samples")
	}

	ped.linkFamilies()
	return ped, nil
}

// linkFamilies resolves parent/child pointers in file order. Referenced
// parents missing from the file stay nil; sex mismatches are logged but
// not fatal, matching permissive handling of real-world PED files.
func (ped *Pedigree) linkFamilies() {
	logger := log.WithComponent("pedigree")
	for _, id := range ped.order {
		p := ped.Participants[id]
		if p.FatherID != "" {
			if father, ok := ped.Participants[p.FatherID]; ok {
				p.Father = father
				father.Children = append(father.Children, p)
				if father.Sex == SexFemale {
					logger.Warn().
						Str("sample", p.ID).
						Str("father", father.ID).
						Msg("father recorded as female")
				}
			}
		}
		if p.MotherID != "" {
			if mother, ok := ped.Participants[p.MotherID]; ok {
				p.Mother = mother
				mother.Children = append(mother.Children, p)
				if mother.Sex == SexMale {
					logger.Warn().
						Str("sample", p.ID).
						Str("mother", mother.ID).
						Msg("mother recorded as male")
				}
			}
		}
	}
}

// Participant looks up a sample by ID.
func (ped *Pedigree) Participant(id string) (*Participant, bool) {
	p, ok := ped.Participants[id]
	return p, ok
}

// SampleIDs returns all sample IDs in file order.
func (ped *Pedigree) SampleIDs() []string {
	out := make([]string, len(ped.order))
	copy(out, ped.order)
	return out
}

// Probands returns the affected participants with both parents present,
// in file order. Used to restrict external comparisons to complete trios.
func (ped *Pedigree) Probands() []string {
	var out []string
	for _, id := range ped.order {
		p := ped.Participants[id]
		if p.Affected && p.HasBothParents() {
			out = append(out, id)
		}
	}
	return out
}

// Breakdown summarises the cohort for run metadata, restricted to the
// given sample IDs (the callset). Samples absent from the pedigree are
// ignored. A nil or empty slice means the whole pedigree.
//
// Trios counts affected participants whose parents are both in the
// callset; FamilySizes maps family size to the number of families of
// that size, counting only callset members.
func (ped *Pedigree) Breakdown(samples []string) variant.FamilyBreakdown {
	if len(samples) == 0 {
		samples = ped.order
	}
	present := make(map[string]struct{}, len(samples))
	for _, id := range samples {
		if _, ok := ped.Participants[id]; ok {
			present[id] = struct{}{}
		}
	}

	bd := variant.FamilyBreakdown{FamilySizes: make(map[int]int)}
	for id := range present {
		p := ped.Participants[id]
		if p.Affected {
			bd.Affected++
		}
		switch p.Sex {
		case SexMale:
			bd.Male++
		case SexFemale:
			bd.Female++
		}
		if p.Affected && p.HasBothParents() {
			if _, ok := present[p.Mother.ID]; !ok {
				continue
			}
			if _, ok := present[p.Father.ID]; !ok {
				continue
			}
			bd.Trios++
		}
	}

	for _, members := range ped.Families {
		size := 0
		for _, p := range members {
			if _, ok := present[p.ID]; ok {
				size++
			}
		}
		if size > 0 {
			bd.FamilySizes[size]++
		}
	}

	return bd
}

// FamilyIDs returns all family IDs, sorted.
func (ped *Pedigree) FamilyIDs() []string {
	out := make([]string, 0, len(ped.Families))
	for id := range ped.Families {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func normaliseParent(raw string) string {
	if raw == "0" || raw == "-9" || raw == "" {
		return ""
	}
	return raw
}

func parseSex(raw string) Sex {
	switch raw {
	case "1":
		return SexMale
	case "2":
		return SexFemale
	default:
		return SexUnknown
	}
}
