// SPDX-License-Identifier: MIT

package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/talosproj/talos/internal/fileio"
	"github.com/talosproj/talos/internal/log"
	"github.com/talosproj/talos/internal/variant"
	"github.com/talosproj/talos/internal/version"
)

// dateRE extracts the day stamp embedded in report file names.
var dateRE = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// IndexEntry is one report listed on the index page.
type IndexEntry struct {
	Cohort string
	Name   string
	Href   string
	Date   string
	Latest bool
}

type indexPage struct {
	Generated string
	Version   string
	Latest    []IndexEntry
	History   []IndexEntry
}

// ScanReports walks a results root laid out as <root>/<cohort>/<name>.html
// and returns every report found, newest first. Names containing "latest"
// mark the rolling per-cohort copy; the date comes from the file name
// stamp, falling back to the file's modification day.
func ScanReports(root string) ([]IndexEntry, error) {
	cohorts, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("report: scan %s: %w", root, err)
	}
	var entries []IndexEntry
	for _, cohort := range cohorts {
		if !cohort.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(root, cohort.Name()))
		if err != nil {
			return nil, fmt.Errorf("report: scan %s: %w", cohort.Name(), err)
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".html") {
				continue
			}
			date := dateRE.FindString(f.Name())
			if date == "" {
				if info, err := f.Info(); err == nil {
					date = info.ModTime().Format(variant.DateFormat)
				}
			}
			entries = append(entries, IndexEntry{
				Cohort: cohort.Name(),
				Name:   f.Name(),
				Href:   path.Join(cohort.Name(), f.Name()),
				Date:   date,
				Latest: strings.Contains(f.Name(), "latest"),
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if a.Cohort != b.Cohort {
			return a.Cohort < b.Cohort
		}
		return a.Name < b.Name
	})
	return entries, nil
}

// RenderIndex rebuilds <root>/index.html from the reports under root.
// The write is atomic, so the index a webserver hands out is always
// either the old page or the new one.
func RenderIndex(root string) error {
	entries, err := ScanReports(root)
	if err != nil {
		return err
	}
	page := indexPage{
		Generated: time.Now().UTC().Format(time.RFC3339),
		Version:   version.Version,
	}
	for _, e := range entries {
		if e.Latest {
			page.Latest = append(page.Latest, e)
		} else {
			page.History = append(page.History, e)
		}
	}

	tmpl, err := template.New("index").Parse(indexHTML)
	if err != nil {
		return fmt.Errorf("report: template parse: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, page); err != nil {
		return fmt.Errorf("report: template execute: %w", err)
	}
	if err := fileio.WriteBytes(filepath.Join(root, "index.html"), buf.Bytes()); err != nil {
		return err
	}
	logger := log.WithComponent("report")
	logger.Info().
		Str("root", root).
		Int("reports", len(entries)).
		Msg("index rebuilt")
	return nil
}
