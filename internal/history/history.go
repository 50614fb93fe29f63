// SPDX-License-Identifier: MIT

// Package history persists analysis state between runs: the date each
// reported variant was first seen in a cohort, and the panel versions
// each run queried. Result annotation uses the former to separate new
// findings from known ones; panel diffing uses the latter.
package history

import (
	"context"
	"time"
)

// Sighting is one categorised result observed by the current run.
type Sighting struct {
	// UID is the report deduplication identity.
	UID string
	// Categories the result currently holds. Each category is dated
	// independently, so evidence gained later keeps its own date.
	Categories []string
	// Date is the day-granular observation stamp.
	Date string
}

// PanelRun records one panel version used for a cohort run.
type PanelRun struct {
	PanelID int
	Version string
	RunTime time.Time
}

// Store is the run-history backend.
type Store interface {
	// Observe upserts one row per sighting category, keeping the
	// earliest date ever recorded, and returns the earliest date per
	// UID so results can be annotated in the same pass. Sightings
	// without categories are skipped.
	Observe(ctx context.Context, cohort string, sightings []Sighting) (map[string]string, error)

	// RecordPanelRuns stores the panel versions a run queried.
	RecordPanelRuns(ctx context.Context, cohort string, runs []PanelRun) error

	// LatestPanelRuns returns the most recent recorded run per panel.
	LatestPanelRuns(ctx context.Context, cohort string) (map[int]PanelRun, error)

	Close() error
}
