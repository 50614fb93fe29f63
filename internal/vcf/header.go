// SPDX-License-Identifier: MIT

// Package vcf streams VEP-annotated VCF files into the shared variant
// model and writes category-labelled VCFs back out.
package vcf

import (
	"fmt"
	"regexp"
	"strings"
)

// InfoType is the declared VCF INFO value type.
type InfoType string

const (
	InfoInteger InfoType = "Integer"
	InfoFloat   InfoType = "Float"
	InfoFlag    InfoType = "Flag"
	InfoString  InfoType = "String"
)

// InfoField is one ##INFO declaration.
type InfoField struct {
	ID          string
	Number      string
	Type        InfoType
	Description string
}

// Header carries the parsed VCF meta lines and the sample column order.
type Header struct {
	// MetaLines holds every ## line verbatim, in file order, for
	// round-tripping into the labelled output.
	MetaLines []string
	Infos     map[string]InfoField
	Samples   []string
	Contigs   []string

	// CSQFields is the lower-cased transcript annotation field order from
	// the CSQ INFO Description ("... Format: Allele|Consequence|...").
	CSQFields []string
}

// canonical contigs: 1..22, X, Y, M or MT, with or without "chr".
var canonicalContigRe = regexp.MustCompile(`^(chr)?([0-9]{1,2}|[XYM]|MT)$`)

// CanonicalContigs filters the declared contigs down to the canonical
// chromosome set, preserving declaration order.
func (h *Header) CanonicalContigs() []string {
	var out []string
	for _, c := range h.Contigs {
		if canonicalContigRe.MatchString(c) {
			out = append(out, c)
		}
	}
	return out
}

// HasInfo reports whether an INFO key is declared in the header.
func (h *Header) HasInfo(id string) bool {
	_, ok := h.Infos[id]
	return ok
}

// parseMetaLine dispatches one ## header line into the Header.
func (h *Header) parseMetaLine(line string) error {
	h.MetaLines = append(h.MetaLines, line)

	switch {
	case strings.HasPrefix(line, "##INFO=<"):
		field, err := parseInfoLine(line)
		if err != nil {
			return err
		}
		if h.Infos == nil {
			h.Infos = make(map[string]InfoField)
		}
		h.Infos[field.ID] = field
		if strings.EqualFold(field.ID, "csq") {
			h.CSQFields = csqFieldsFromDescription(field.Description)
		}
	case strings.HasPrefix(line, "##contig=<"):
		attrs := parseStructuredFields(strings.TrimSuffix(strings.TrimPrefix(line, "##contig=<"), ">"))
		if id := attrs["ID"]; id != "" {
			h.Contigs = append(h.Contigs, id)
		}
	}
	return nil
}

// parseColumnLine reads the #CHROM line; samples are columns ten onward.
func (h *Header) parseColumnLine(line string) error {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 || fields[0] != "#CHROM" {
		return fmt.Errorf("malformed column header line: %q", truncate(line, 80))
	}
	if len(fields) > 9 {
		h.Samples = append(h.Samples, fields[9:]...)
	}
	return nil
}

func parseInfoLine(line string) (InfoField, error) {
	body := strings.TrimSuffix(strings.TrimPrefix(line, "##INFO=<"), ">")
	attrs := parseStructuredFields(body)
	if attrs["ID"] == "" {
		return InfoField{}, fmt.Errorf("INFO header line missing ID: %q", truncate(line, 80))
	}
	return InfoField{
		ID:          attrs["ID"],
		Number:      attrs["Number"],
		Type:        InfoType(attrs["Type"]),
		Description: attrs["Description"],
	}, nil
}

// csqFieldsFromDescription extracts the VEP annotation field order.
// The Description reads "Consequence annotations from Ensembl VEP.
// Format: Allele|Consequence|..."; everything after the final "Format: "
// is the pipe-separated field list, taken lower-case.
func csqFieldsFromDescription(desc string) []string {
	parts := strings.Split(desc, "Format: ")
	spec := strings.ToLower(parts[len(parts)-1])
	fields := strings.Split(spec, "|")
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

// parseStructuredFields splits `ID=CSQ,Number=.,Description="a, b"` into a
// key/value map, honouring quoted values containing commas.
func parseStructuredFields(body string) map[string]string {
	attrs := make(map[string]string)
	var key, value strings.Builder
	inKey, inQuote := true, false

	flush := func() {
		if k := key.String(); k != "" {
			attrs[k] = value.String()
		}
		key.Reset()
		value.Reset()
		inKey = true
	}

	for _, r := range body {
		switch {
		case inQuote:
			if r == '"' {
				inQuote = false
			} else {
				value.WriteRune(r)
			}
		case r == '"' && !inKey:
			inQuote = true
		case r == '=' && inKey:
			inKey = false
		case r == ',' && !inQuote:
			flush()
		case inKey:
			key.WriteRune(r)
		default:
			value.WriteRune(r)
		}
	}
	flush()
	return attrs
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
