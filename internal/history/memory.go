// SPDX-License-Identifier: MIT

package history

import (
	"context"
	"sync"
)

// Memory is an in-memory Store for tests and dry runs. Nothing
// survives the process.
type Memory struct {
	mu   sync.Mutex
	seen map[string]map[string]map[string]string // cohort -> uid -> category -> date
	runs map[string][]PanelRun
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		seen: make(map[string]map[string]map[string]string),
		runs: make(map[string][]PanelRun),
	}
}

// Observe mirrors the SQL semantics: earliest date per category wins,
// and the reported date is the minimum across the UID's categories.
func (m *Memory) Observe(_ context.Context, cohort string, sightings []Sighting) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byUID := m.seen[cohort]
	if byUID == nil {
		byUID = make(map[string]map[string]string)
		m.seen[cohort] = byUID
	}

	dates := make(map[string]string, len(sightings))
	for _, sighting := range sightings {
		if len(sighting.Categories) == 0 {
			continue
		}
		categories := byUID[sighting.UID]
		if categories == nil {
			categories = make(map[string]string)
			byUID[sighting.UID] = categories
		}
		for _, category := range sighting.Categories {
			if prior, ok := categories[category]; !ok || sighting.Date < prior {
				categories[category] = sighting.Date
			}
		}
		earliest := ""
		for _, date := range categories {
			if earliest == "" || date < earliest {
				earliest = date
			}
		}
		dates[sighting.UID] = earliest
	}

	return dates, nil
}

// RecordPanelRuns appends the runs for the cohort.
func (m *Memory) RecordPanelRuns(_ context.Context, cohort string, runs []PanelRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[cohort] = append(m.runs[cohort], runs...)
	return nil
}

// LatestPanelRuns returns the most recent recorded run per panel.
func (m *Memory) LatestPanelRuns(_ context.Context, cohort string) (map[int]PanelRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	latest := make(map[int]PanelRun)
	for _, run := range m.runs[cohort] {
		if prior, ok := latest[run.PanelID]; !ok || run.RunTime.After(prior.RunTime) {
			latest[run.PanelID] = run
		}
	}
	return latest, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
