// SPDX-License-Identifier: MIT

package compare

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/talosproj/talos/internal/fileio"
	"github.com/talosproj/talos/internal/log"
)

// ParseSeqrExport reads a seqr variant export (tab-separated with a
// header row) and returns the flagged calls per proband. Rows without a
// "<tagPrefix>: <confidence>" tag are dropped; flags for families with
// no proband in the pedigree are logged and dropped.
func ParseSeqrExport(path string, probands map[string][]string, tagPrefix string) (Calls, error) {
	if tagPrefix == "" {
		tagPrefix = DefaultTagPrefix
	}
	fh, err := fileio.OpenMaybeGzip(path)
	if err != nil {
		return nil, fmt.Errorf("compare: open seqr export: %w", err)
	}
	defer fh.Close()

	logger := log.WithComponent("compare")
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("compare: read seqr export: %w", err)
		}
		return nil, fmt.Errorf("compare: seqr export %s is empty", path)
	}
	cols, err := headerIndex(sc.Text())
	if err != nil {
		return nil, err
	}

	out := make(Calls)
	line := 1
	for sc.Scan() {
		line++
		fields := strings.Split(sc.Text(), "\t")
		flag, family, err := parseSeqrRow(fields, cols, tagPrefix)
		if err != nil {
			return nil, fmt.Errorf("compare: seqr export line %d: %w", line, err)
		}
		if flag == nil {
			continue
		}
		samples := probands[family]
		if len(samples) == 0 {
			logger.Warn().
				Str("family", family).
				Str("variant", flag.Key.String()).
				Msg("flagged family has no proband")
			continue
		}
		for _, sample := range samples {
			out[sample] = append(out[sample], *flag)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("compare: read seqr export: %w", err)
	}
	return out, nil
}

// headerIndex locates the columns this tool needs, by lower-cased name.
// Seqr has exported the family column as both "family" and "family_id".
func headerIndex(header string) (map[string]int, error) {
	idx := make(map[string]int)
	for i, name := range strings.Split(header, "\t") {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := idx["family"]; !ok {
		if alt, ok := idx["family_id"]; ok {
			idx["family"] = alt
		}
	}
	for _, want := range []string{"chrom", "pos", "ref", "alt", "family", "tags"} {
		if _, ok := idx[want]; !ok {
			return nil, fmt.Errorf("compare: seqr export missing %q column", want)
		}
	}
	return idx, nil
}

func parseSeqrRow(fields []string, cols map[string]int, tagPrefix string) (*Flagged, string, error) {
	get := func(name string) string {
		i := cols[name]
		if i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	conf := parseTags(get("tags"), tagPrefix)
	if len(conf) == 0 {
		return nil, "", nil
	}

	pos, err := strconv.Atoi(get("pos"))
	if err != nil {
		return nil, "", fmt.Errorf("invalid pos %q", get("pos"))
	}
	key := NewKey(get("chrom"), pos, get("ref"), get("alt"))
	return &Flagged{Key: key, Confidence: conf}, get("family"), nil
}

// parseTags extracts the confidence grades from a tags field, where tags
// are |-separated and graded tags read "<prefix>: <grade>".
func parseTags(raw, tagPrefix string) []Confidence {
	var out []Confidence
	for _, tag := range strings.Split(raw, "|") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(tag), tagPrefix+":")
		if !ok {
			continue
		}
		switch Confidence(strings.TrimSpace(rest)) {
		case ConfidenceExpected:
			out = append(out, ConfidenceExpected)
		case ConfidencePossible:
			out = append(out, ConfidencePossible)
		case ConfidenceUnlikely:
			out = append(out, ConfidenceUnlikely)
		}
	}
	return out
}
