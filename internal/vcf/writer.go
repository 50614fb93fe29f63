// SPDX-License-Identifier: MIT

package vcf

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/talosproj/talos/internal/variant"
)

// Writer emits a labelled VCF: the source header with category INFO
// declarations added and the CSQ field order rewritten, then records with
// their INFO column rebuilt from the variant model. All other columns
// (coordinates, quality, genotypes) pass through untouched.
type Writer struct {
	w         *bufio.Writer
	csqFields []string
}

// NewWriter writes the header immediately. csqFields sets the transcript
// field order for re-encoded CSQ payloads; extra declares INFO keys the
// labelling stage will add (categories, gene_id).
func NewWriter(w io.Writer, src *Header, csqFields []string, extra ...InfoField) (*Writer, error) {
	bw := bufio.NewWriterSize(w, initialBufBytes)
	out := &Writer{w: bw, csqFields: csqFields}

	csqLine := fmt.Sprintf(
		`##INFO=<ID=CSQ,Number=.,Type=String,Description="Consequence annotations from Ensembl VEP. Format: %s">`,
		strings.Join(csqFields, "|"),
	)

	wroteCSQ := false
	for _, line := range src.MetaLines {
		if isCSQInfoLine(line) {
			line = csqLine
			wroteCSQ = true
		}
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	if !wroteCSQ && len(csqFields) > 0 {
		if _, err := fmt.Fprintln(bw, csqLine); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for _, f := range extra {
		if src.HasInfo(f.ID) {
			continue
		}
		line := fmt.Sprintf(`##INFO=<ID=%s,Number=%s,Type=%s,Description="%s">`,
			f.ID, f.Number, f.Type, f.Description)
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	cols := []string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO"}
	if len(src.Samples) > 0 {
		cols = append(cols, "FORMAT")
		cols = append(cols, src.Samples...)
	}
	if _, err := fmt.Fprintln(bw, strings.Join(cols, "\t")); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return out, nil
}

func isCSQInfoLine(line string) bool {
	if !strings.HasPrefix(line, "##INFO=<") {
		return false
	}
	attrs := parseStructuredFields(strings.TrimSuffix(strings.TrimPrefix(line, "##INFO=<"), ">"))
	return strings.EqualFold(attrs["ID"], "csq")
}

// Write emits one record, replacing the INFO column with the variant's
// current info map, categories and consequences. Keys are sorted for
// reproducible output, with CSQ last.
func (w *Writer) Write(rec *Record) error {
	if len(rec.Columns) < 8 {
		return fmt.Errorf("record has %d columns, need at least 8", len(rec.Columns))
	}

	info := w.encodeInfo(rec.Small)
	for i, col := range rec.Columns {
		if i > 0 {
			if err := w.w.WriteByte('\t'); err != nil {
				return err
			}
		}
		if i == 7 {
			col = info
		}
		if _, err := w.w.WriteString(col); err != nil {
			return err
		}
	}
	return w.w.WriteByte('\n')
}

// Flush drains buffered output to the underlying writer.
func (w *Writer) Flush() error { return w.w.Flush() }

func (w *Writer) encodeInfo(small *variant.Small) string {
	pairs := make([]string, 0, len(small.InfoMap)+8)

	for key, value := range small.InfoMap {
		if key == "filter" {
			// carried in the FILTER column
			continue
		}
		if encoded, ok := encodeInfoValue(value); ok {
			if encoded == "" {
				pairs = append(pairs, key)
			} else {
				pairs = append(pairs, key+"="+encoded)
			}
		}
	}

	for name, set := range small.Categories.Boolean {
		if set {
			pairs = append(pairs, "categoryboolean"+name+"=1")
		}
	}
	for name, samples := range small.Categories.Samples {
		if len(samples) == 0 {
			continue
		}
		dedup := variant.NewStringSet(samples...)
		pairs = append(pairs, "categorysample"+name+"="+strings.Join(dedup.Sorted(), ","))
	}
	if small.Categories.Support {
		pairs = append(pairs, "categorysupport=1")
	}

	sort.Strings(pairs)

	if len(small.Consequences) > 0 && len(w.csqFields) > 0 {
		pairs = append(pairs, "CSQ="+w.encodeCSQ(small.Consequences))
	}
	if len(pairs) == 0 {
		return "."
	}
	return strings.Join(pairs, ";")
}

func (w *Writer) encodeCSQ(csqs []variant.Consequence) string {
	blocks := make([]string, 0, len(csqs))
	values := make([]string, len(w.csqFields))
	for _, csq := range csqs {
		for i, field := range w.csqFields {
			values[i] = csq[field]
		}
		blocks = append(blocks, strings.Join(values, "|"))
	}
	return strings.Join(blocks, ",")
}

// encodeInfoValue renders a typed info value. Empty strings are treated
// as missing and dropped; boolean true renders as a bare flag.
func encodeInfoValue(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	case bool:
		if !v {
			return "", false
		}
		return "", true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}
