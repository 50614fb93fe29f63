// SPDX-License-Identifier: MIT

// Package hpo links participant phenotype terms to PanelApp panels by
// walking the Human Phenotype Ontology. A term matches a panel directly or
// through any ancestor up to three layers less specific.
package hpo

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Term is one [Term] stanza from an OBO ontology file.
type Term struct {
	ID         string
	Name       string
	Parents    []string
	Obsolete   bool
	ReplacedBy []string
}

// Graph is a parsed ontology keyed by term ID.
type Graph struct {
	terms map[string]*Term

	// DataVersion is the ontology release, e.g. "hp/releases/2024-03-06".
	DataVersion string
}

// LoadGraph parses the ontology at path.
func LoadGraph(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ontology: %w", err)
	}
	defer f.Close()

	g, err := ParseGraph(f)
	if err != nil {
		return nil, fmt.Errorf("parse ontology %s: %w", path, err)
	}
	return g, nil
}

// ParseGraph reads OBO-format stanzas. Only the tags the panel matcher
// needs are retained: id, name, is_a, is_obsolete and replaced_by.
func ParseGraph(r io.Reader) (*Graph, error) {
	g := &Graph{terms: make(map[string]*Term)}

	var cur *Term
	flush := func() {
		if cur != nil && cur.ID != "" {
			g.terms[cur.ID] = cur
		}
		cur = nil
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case line == "[Term]":
			flush()
			cur = &Term{}
		case strings.HasPrefix(line, "["):
			// [Typedef] and any other stanza kinds are irrelevant here.
			flush()
		default:
			key, value, ok := strings.Cut(line, ": ")
			if !ok {
				continue
			}
			value = stripOBOComment(value)
			if cur == nil {
				// Header tags appear before the first stanza.
				if key == "data-version" {
					g.DataVersion = value
				}
				continue
			}
			switch key {
			case "id":
				cur.ID = value
			case "name":
				// Ontology names carry accented characters; normalise so
				// report text compares and sorts consistently.
				cur.Name = norm.NFC.String(value)
			case "is_a":
				cur.Parents = append(cur.Parents, value)
			case "is_obsolete":
				cur.Obsolete = value == "true"
			case "replaced_by":
				cur.ReplacedBy = append(cur.ReplacedBy, value)
			}
		}
	}
	flush()
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ontology: %w", err)
	}
	if len(g.terms) == 0 {
		return nil, errors.New("ontology contains no terms")
	}
	return g, nil
}

// Term looks up a node by ID.
func (g *Graph) Term(id string) (*Term, bool) {
	t, ok := g.terms[id]
	return t, ok
}

// Len returns the number of terms in the graph.
func (g *Graph) Len() int {
	return len(g.terms)
}

// stripOBOComment removes an unescaped trailing " ! comment" from a tag value.
func stripOBOComment(value string) string {
	if i := strings.Index(value, " ! "); i >= 0 {
		value = value[:i]
	}
	return strings.TrimSpace(value)
}
