// SPDX-License-Identifier: MIT

package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/talosproj/talos/internal/log"
	"github.com/talosproj/talos/internal/persistence/sqlite"
)

// SQL is the SQLite-backed Store shared by successive runs.
type SQL struct {
	db     *sql.DB
	logger zerolog.Logger
}

var _ Store = (*SQL)(nil)

// Open opens or creates the history database at path and applies the
// schema. An existing file is integrity-checked first, since a damaged
// database would silently mis-date every result in the report.
func Open(path string) (*SQL, error) {
	if _, err := os.Stat(path); err == nil {
		issues, err := sqlite.VerifyIntegrity(path, "quick")
		if err != nil {
			return nil, fmt.Errorf("history: verify %s: %w", path, err)
		}
		if issues != nil {
			return nil, fmt.Errorf("history: database %s is damaged: %s", path, strings.Join(issues, "; "))
		}
	}

	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	s := &SQL{db: db, logger: log.WithComponent("history")}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}

	s.logger.Debug().Str("path", path).Msg("history database open")
	return s, nil
}

func (s *SQL) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS first_seen (
		cohort   TEXT NOT NULL,
		uid      TEXT NOT NULL,
		category TEXT NOT NULL,
		date     TEXT NOT NULL,
		PRIMARY KEY (cohort, uid, category)
	);

	CREATE INDEX IF NOT EXISTS idx_first_seen_uid ON first_seen(cohort, uid);

	CREATE TABLE IF NOT EXISTS panel_runs (
		cohort   TEXT NOT NULL,
		panel_id INTEGER NOT NULL,
		version  TEXT NOT NULL,
		run_time TEXT NOT NULL,
		PRIMARY KEY (cohort, panel_id, run_time)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *SQL) Close() error {
	return s.db.Close()
}

// Observe records the run's sightings and reports each UID's earliest
// recorded date. Day-granular stamps compare correctly as text.
func (s *SQL) Observe(ctx context.Context, cohort string, sightings []Sighting) (map[string]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("history: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsert := `
	INSERT INTO first_seen (cohort, uid, category, date)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(cohort, uid, category) DO UPDATE SET
		date = MIN(date, excluded.date)
	`
	earliest := `SELECT MIN(date) FROM first_seen WHERE cohort = ? AND uid = ?`

	dates := make(map[string]string, len(sightings))
	for _, sighting := range sightings {
		if len(sighting.Categories) == 0 {
			continue
		}
		for _, category := range sighting.Categories {
			if _, err := tx.ExecContext(ctx, upsert, cohort, sighting.UID, category, sighting.Date); err != nil {
				return nil, fmt.Errorf("history: record %s: %w", sighting.UID, err)
			}
		}
		var date string
		if err := tx.QueryRowContext(ctx, earliest, cohort, sighting.UID).Scan(&date); err != nil {
			return nil, fmt.Errorf("history: first seen %s: %w", sighting.UID, err)
		}
		dates[sighting.UID] = date
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("history: commit: %w", err)
	}
	return dates, nil
}

// RecordPanelRuns stores one row per queried panel.
func (s *SQL) RecordPanelRuns(ctx context.Context, cohort string, runs []PanelRun) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert := `
	INSERT INTO panel_runs (cohort, panel_id, version, run_time)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(cohort, panel_id, run_time) DO UPDATE SET
		version = excluded.version
	`

	for _, run := range runs {
		stamp := run.RunTime.UTC().Format(time.RFC3339)
		if _, err := tx.ExecContext(ctx, insert, cohort, run.PanelID, run.Version, stamp); err != nil {
			return fmt.Errorf("history: record panel %d: %w", run.PanelID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}
	return nil
}

// LatestPanelRuns returns the most recent recorded run per panel.
func (s *SQL) LatestPanelRuns(ctx context.Context, cohort string) (map[int]PanelRun, error) {
	query := `
	SELECT panel_id, version, MAX(run_time)
	FROM panel_runs
	WHERE cohort = ?
	GROUP BY panel_id
	`

	rows, err := s.db.QueryContext(ctx, query, cohort)
	if err != nil {
		return nil, fmt.Errorf("history: latest panel runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	latest := make(map[int]PanelRun)
	for rows.Next() {
		var run PanelRun
		var stamp string
		if err := rows.Scan(&run.PanelID, &run.Version, &stamp); err != nil {
			return nil, fmt.Errorf("history: scan panel run: %w", err)
		}
		run.RunTime, _ = time.Parse(time.RFC3339, stamp)
		latest[run.PanelID] = run
	}

	return latest, rows.Err()
}
