// SPDX-License-Identifier: MIT

package clinvar

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/talosproj/talos/internal/fileio"
	"github.com/talosproj/talos/internal/log"
)

// Tab-separated column layout of ClinVar's submission_summary.txt.
const (
	subColVariation    = 0
	subColSignificance = 1
	subColDate         = 2
	subColReview       = 6
	subColSubmitter    = 9

	subColumns = 10
)

// Tab-separated column layout of ClinVar's variant_summary.txt.
const (
	varColAllele    = 0
	varColAssembly  = 16
	varColChrom     = 18
	varColVariation = 30
	varColPos       = 31
	varColRef       = 32
	varColAlt       = 33

	varColumns = 34
)

// DefaultAssembly selects which genome build's rows are taken from the
// variant summary.
const DefaultAssembly = "GRCh38"

// dateLayout matches ClinVar's DateLastEvaluated strings, with or without
// zero-padded days. Unevaluated dates appear as "-".
const dateLayout = "Jan 2, 2006"

const (
	maxLineBytes     = 4 * 1024 * 1024
	initialLineBytes = 64 * 1024
)

// ParseSubmissionSummary reads ClinVar's submission_summary.txt, grouping
// submissions by variation ID. Malformed rows are skipped, not fatal; the
// dump is third-party and a handful of bad rows should not sink a load.
func ParseSubmissionSummary(r io.Reader) (map[int64][]Submission, error) {
	logger := log.WithComponent("clinvar")
	out := make(map[int64][]Submission)
	skipped := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, initialLineBytes), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < subColumns {
			skipped++
			continue
		}
		varID, err := strconv.ParseInt(fields[subColVariation], 10, 64)
		if err != nil {
			skipped++
			continue
		}

		var date time.Time
		if raw := fields[subColDate]; raw != "-" {
			if date, err = time.Parse(dateLayout, raw); err != nil {
				// Undated submissions predate everything.
				date = time.Time{}
			}
		}
		out[varID] = append(out[varID], Submission{
			Date:           date,
			Submitter:      fields[subColSubmitter],
			Classification: ParseClassification(fields[subColSignificance]),
			ReviewStatus:   strings.ToLower(fields[subColReview]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read submission summary: %w", err)
	}
	if skipped > 0 {
		logger.Warn().Int("skipped", skipped).Msg("malformed submission rows dropped")
	}
	return out, nil
}

// ParseVariantSummary reads ClinVar's variant_summary.txt, mapping each
// variation ID to its alleles on the requested assembly. Rows without VCF
// coordinates (marked "na") are skipped.
func ParseVariantSummary(r io.Reader, assembly string) (map[int64][]Allele, error) {
	if assembly == "" {
		assembly = DefaultAssembly
	}
	out := make(map[int64][]Allele)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, initialLineBytes), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < varColumns || !strings.EqualFold(fields[varColAssembly], assembly) {
			continue
		}
		alleleID, err := strconv.ParseInt(fields[varColAllele], 10, 64)
		if err != nil || alleleID < 0 {
			continue
		}
		varID, err := strconv.ParseInt(fields[varColVariation], 10, 64)
		if err != nil {
			continue
		}
		pos, err := strconv.Atoi(fields[varColPos])
		if err != nil || pos < 0 {
			continue
		}
		ref, alt := fields[varColRef], fields[varColAlt]
		if ref == "na" || alt == "na" {
			continue
		}
		out[varID] = append(out[varID], Allele{
			ID:    alleleID,
			Chrom: fields[varColChrom],
			Pos:   pos,
			Ref:   ref,
			Alt:   alt,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read variant summary: %w", err)
	}
	return out, nil
}

// LoadSubmissionSummary parses a plain or gzipped submission summary file.
func LoadSubmissionSummary(path string) (map[int64][]Submission, error) {
	rc, err := fileio.OpenMaybeGzip(path)
	if err != nil {
		return nil, fmt.Errorf("open submission summary: %w", err)
	}
	defer func() { _ = rc.Close() }()
	return ParseSubmissionSummary(rc)
}

// LoadVariantSummary parses a plain or gzipped variant summary file.
func LoadVariantSummary(path, assembly string) (map[int64][]Allele, error) {
	rc, err := fileio.OpenMaybeGzip(path)
	if err != nil {
		return nil, fmt.Errorf("open variant summary: %w", err)
	}
	defer func() { _ = rc.Close() }()
	return ParseVariantSummary(rc, assembly)
}

// BuildDecisions joins per-variation submissions onto their alleles and
// reduces each allele to a decision, sorted by allele ID. Variations with
// no allele on the chosen assembly are dropped.
func BuildDecisions(subs map[int64][]Submission, alleles map[int64][]Allele) []Decision {
	var out []Decision
	for varID, varSubs := range subs {
		for _, allele := range alleles[varID] {
			out = append(out, Decide(allele, varSubs))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Allele.ID < out[j].Allele.ID })
	return out
}
