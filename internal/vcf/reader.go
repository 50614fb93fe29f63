// SPDX-License-Identifier: MIT

package vcf

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"github.com/talosproj/talos/internal/log"
	"github.com/talosproj/talos/internal/variant"
)

const (
	// initial and maximum scanner buffer; joint-call lines with deep CSQ
	// annotation and thousands of sample columns get very long.
	initialBufBytes = 1 << 20
	maxLineBytes    = 64 << 20
)

// Record is one data line: the parsed variant plus the raw tab-separated
// columns, kept so the labelling stage can re-emit genotype columns
// untouched.
type Record struct {
	Small   *variant.Small
	Columns []string
}

// Reader streams VCF data lines into the shared variant model.
//
// INFO keys are lower-cased on read. Category annotations
// (categoryboolean*, categorysample*, categorysupport*) are lifted out of
// the info map into the variant's category set, and the CSQ payload is
// decoded into per-transcript consequence maps using the header's field
// order. Multi-allelic and star-allele records are counted and skipped;
// inputs are expected to be normalised upstream.
type Reader struct {
	sc     *bufio.Scanner
	header *Header
	logger zerolog.Logger

	line    int
	skipped int
}

// File is a Reader bound to an opened (optionally gzip-compressed) file.
type File struct {
	*Reader
	closers []io.Closer
}

// Close releases the underlying file handles.
func (f *File) Close() error {
	var err error
	for _, c := range f.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Open opens a plain or gzip-compressed VCF. Compression is detected by
// magic bytes, not file extension.
func Open(path string) (*File, error) {
	// #nosec G304 -- VCF paths are provided by the operator via CLI
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf: %w", err)
	}

	var sig [2]byte
	n, _ := io.ReadFull(fh, sig[:])
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		_ = fh.Close()
		return nil, fmt.Errorf("rewind vcf: %w", err)
	}

	var src io.Reader = fh
	closers := []io.Closer{fh}
	if n == 2 && sig[0] == 0x1f && sig[1] == 0x8b {
		gz, err := gzip.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, fmt.Errorf("open gzip vcf: %w", err)
		}
		src = gz
		closers = append([]io.Closer{gz}, closers...)
	}

	r, err := NewReader(src)
	if err != nil {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, fmt.Errorf("parse vcf header %s: %w", path, err)
	}
	return &File{Reader: r, closers: closers}, nil
}

// NewReader wraps an uncompressed VCF stream, consuming the header
// immediately. The stream must start with ## meta lines followed by the
// #CHROM column line.
func NewReader(r io.Reader) (*Reader, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, initialBufBytes), maxLineBytes)

	rd := &Reader{
		sc:     sc,
		header: &Header{},
		logger: log.WithComponent("vcf"),
	}
	if err := rd.readHeader(); err != nil {
		return nil, err
	}
	return rd, nil
}

// Header returns the parsed header.
func (r *Reader) Header() *Header { return r.header }

// Skipped returns the number of data lines dropped for normalisation
// violations (multi-allelic or star-allele records).
func (r *Reader) Skipped() int { return r.skipped }

func (r *Reader) readHeader() error {
	for r.sc.Scan() {
		r.line++
		line := r.sc.Text()
		switch {
		case strings.HasPrefix(line, "##"):
			if err := r.header.parseMetaLine(line); err != nil {
				return fmt.Errorf("line %d: %w", r.line, err)
			}
		case strings.HasPrefix(line, "#"):
			return r.header.parseColumnLine(line)
		default:
			return fmt.Errorf("line %d: data line before #CHROM header", r.line)
		}
	}
	if err := r.sc.Err(); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	return fmt.Errorf("vcf stream ended before #CHROM header")
}

// Next returns the next normalised small variant, or io.EOF.
func (r *Reader) Next(ctx context.Context) (*variant.Small, error) {
	rec, err := r.NextRecord(ctx)
	if err != nil {
		return nil, err
	}
	return rec.Small, nil
}

// NextSV returns the next record as a structural variant. SV records use
// the same column layout with symbolic alternate alleles; per-call depth
// and allele-balance checks do not apply.
func (r *Reader) NextSV(ctx context.Context) (*variant.SV, error) {
	small, err := r.Next(ctx)
	if err != nil {
		return nil, err
	}
	return &variant.SV{
		Coordinates: small.Coordinates,
		InfoMap:     small.InfoMap,
		Categories:  small.Categories,
		HetSamples:  small.HetSamples,
		HomSamples:  small.HomSamples,
	}, nil
}

// NextRecord returns the next normalised record with its raw columns,
// or io.EOF once the stream is exhausted.
func (r *Reader) NextRecord(ctx context.Context) (*Record, error) {
	for r.sc.Scan() {
		r.line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := r.sc.Text()
		if line == "" {
			continue
		}

		cols := strings.Split(line, "\t")
		if len(cols) < 8 {
			return nil, fmt.Errorf("line %d: expected at least 8 columns, got %d", r.line, len(cols))
		}

		small, err := r.parseSmall(cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		if small == nil {
			// normalisation violation, move on
			continue
		}
		return &Record{Small: small, Columns: cols}, nil
	}
	if err := r.sc.Err(); err != nil {
		return nil, fmt.Errorf("read vcf: %w", err)
	}
	return nil, io.EOF
}

// parseSmall converts one data line. A nil, nil return means the record
// was skipped for a normalisation violation.
func (r *Reader) parseSmall(cols []string) (*variant.Small, error) {
	alt := cols[4]
	if strings.Contains(alt, ",") || alt == "*" {
		r.skipped++
		r.logger.Debug().
			Str("chrom", cols[0]).
			Str("pos", cols[1]).
			Str("alt", alt).
			Msg("skipping non-normalised record")
		return nil, nil
	}

	pos, err := strconv.Atoi(cols[1])
	if err != nil {
		return nil, fmt.Errorf("invalid POS %q", cols[1])
	}

	small := &variant.Small{
		Coordinates: variant.Coordinates{
			Chrom: cols[0],
			Pos:   pos,
			Ref:   cols[3],
			Alt:   alt,
		},
		InfoMap:    make(map[string]any),
		HetSamples: variant.NewStringSet(),
		HomSamples: variant.NewStringSet(),
		Depths:     make(map[string]int),
		ABRatios:   make(map[string]float64),
	}
	small.InfoMap["filter"] = normaliseFilter(cols[6])

	r.parseInfo(small, cols[7])
	r.enrich(small)

	if len(cols) > 9 {
		r.parseGenotypes(small, cols[8], cols[9:])
	}
	return small, nil
}

func normaliseFilter(raw string) string {
	if raw == "." || raw == "" {
		return "PASS"
	}
	return raw
}

// parseInfo lifts the INFO column into the variant: category annotations
// into the category set, CSQ into transcript consequences, everything
// else typed into the info map.
func (r *Reader) parseInfo(small *variant.Small, raw string) {
	if raw == "." || raw == "" {
		return
	}
	for _, pair := range strings.Split(raw, ";") {
		if pair == "" {
			continue
		}
		key, value, hasValue := strings.Cut(pair, "=")
		lkey := strings.ToLower(key)

		switch {
		case lkey == "csq":
			small.Consequences = r.parseCSQ(value)
		case strings.HasPrefix(lkey, "categorysupport"):
			if !hasValue || truthy(value) {
				small.Categories.Support = true
			}
		case strings.HasPrefix(lkey, "categoryboolean"):
			if !hasValue || truthy(value) {
				small.Categories.SetBoolean(strings.TrimPrefix(lkey, "categoryboolean"))
			}
		case strings.HasPrefix(lkey, "categorysample"):
			name := strings.TrimPrefix(lkey, "categorysample")
			for _, sample := range strings.Split(value, ",") {
				if sample != "" && sample != "missing" {
					small.Categories.AddSamples(name, sample)
				}
			}
		case !hasValue:
			small.InfoMap[lkey] = true
		default:
			small.InfoMap[lkey] = r.typedInfoValue(key, value)
		}
	}
}

// typedInfoValue coerces an INFO value using the header declaration,
// falling back to numeric sniffing for undeclared keys. Multi-valued
// numeric fields keep their first entry; records are biallelic here.
func (r *Reader) typedInfoValue(key, value string) any {
	first := value
	if i := strings.IndexByte(value, ','); i >= 0 {
		first = value[:i]
	}

	decl, declared := r.header.Infos[key]
	if declared {
		switch decl.Type {
		case InfoInteger:
			if n, err := strconv.Atoi(first); err == nil {
				return n
			}
		case InfoFloat:
			if f, err := strconv.ParseFloat(first, 64); err == nil {
				return f
			}
		case InfoFlag:
			return true
		}
		return value
	}

	if n, err := strconv.Atoi(first); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(first, 64); err == nil {
		return f
	}
	return value
}

// parseCSQ decodes the comma-separated transcript blocks against the
// header's field order.
func (r *Reader) parseCSQ(raw string) []variant.Consequence {
	fields := r.header.CSQFields
	if len(fields) == 0 || raw == "" {
		return nil
	}
	var out []variant.Consequence
	for _, block := range strings.Split(raw, ",") {
		values := strings.Split(block, "|")
		csq := make(variant.Consequence, len(fields))
		for i, name := range fields {
			if i < len(values) {
				csq[name] = values[i]
			} else {
				csq[name] = ""
			}
		}
		out = append(out, csq)
	}
	return out
}

// enrich fills the gnomAD frequency keys from the first transcript
// consequence when the upstream annotation did not provide them as INFO.
// VEP carries per-transcript gnomade_af / gnomadg_af instead.
func (r *Reader) enrich(small *variant.Small) {
	if len(small.Consequences) == 0 {
		return
	}
	first := small.Consequences[0]
	if _, ok := small.InfoMap["gnomad_af"]; !ok {
		small.InfoMap["gnomad_af"] = first.Float("gnomadg_af", 0)
	}
	if _, ok := small.InfoMap["gnomad_ex_af"]; !ok {
		small.InfoMap["gnomad_ex_af"] = first.Float("gnomade_af", 0)
	}
}

// parseGenotypes extracts per-sample call data: het/hom membership from
// GT, depth from DP (or the AD sum), allele balance from AD, and phase
// set groupings from PS on phased calls.
func (r *Reader) parseGenotypes(small *variant.Small, format string, sampleCols []string) {
	keys := strings.Split(format, ":")
	gtIdx, adIdx, dpIdx, psIdx := -1, -1, -1, -1
	for i, k := range keys {
		switch k {
		case "GT":
			gtIdx = i
		case "AD":
			adIdx = i
		case "DP":
			dpIdx = i
		case "PS":
			psIdx = i
		}
	}
	if gtIdx < 0 {
		return
	}

	samples := r.header.Samples
	for i, col := range sampleCols {
		if i >= len(samples) {
			break
		}
		sample := samples[i]
		fields := strings.Split(col, ":")
		if gtIdx >= len(fields) {
			continue
		}

		gt := fields[gtIdx]
		phased := strings.Contains(gt, "|")
		alleles := strings.FieldsFunc(gt, func(c rune) bool { return c == '/' || c == '|' })

		altCount, refCount, missing := 0, 0, false
		for _, a := range alleles {
			switch a {
			case ".":
				missing = true
			case "0":
				refCount++
			default:
				altCount++
			}
		}
		if missing {
			continue
		}

		var adSum, adAlt int
		if adIdx >= 0 && adIdx < len(fields) {
			parts := strings.Split(fields[adIdx], ",")
			for j, p := range parts {
				n, err := strconv.Atoi(p)
				if err != nil {
					continue
				}
				adSum += n
				if j > 0 {
					adAlt += n
				}
			}
		}

		depth := adSum
		if dpIdx >= 0 && dpIdx < len(fields) {
			if n, err := strconv.Atoi(fields[dpIdx]); err == nil {
				depth = n
			}
		}
		small.Depths[sample] = depth
		if adSum > 0 {
			small.ABRatios[sample] = float64(adAlt) / float64(adSum)
		}

		if altCount == 0 {
			// reference call; depth and balance still count as evidence
			// when testing parents for de novo inheritance
			continue
		}

		if refCount > 0 {
			small.HetSamples.Add(sample)
		} else {
			small.HomSamples.Add(sample)
		}

		if phased && psIdx >= 0 && psIdx < len(fields) {
			if ps, err := strconv.Atoi(fields[psIdx]); err == nil {
				if small.Phases == nil {
					small.Phases = make(map[string]map[int]string)
				}
				if small.Phases[sample] == nil {
					small.Phases[sample] = make(map[int]string)
				}
				small.Phases[sample][ps] = gt
			}
		}
	}
}

// truthy interprets category INFO payloads: hail exports them as 0/1
// integers, but bare flags and "true" spellings are accepted.
func truthy(value string) bool {
	switch strings.ToLower(value) {
	case "", "0", "false", "missing", ".":
		return false
	default:
		return true
	}
}
