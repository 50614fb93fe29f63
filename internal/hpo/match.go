// SPDX-License-Identifier: MIT

package hpo

import (
	"github.com/rs/zerolog"

	"github.com/talosproj/talos/internal/log"
	"github.com/talosproj/talos/internal/variant"
)

// DefaultMaxDepth bounds the ancestor traversal. Each layer up the is_a
// hierarchy is a reduction in term specificity, so three layers is as far
// as a panel match stays clinically meaningful.
const DefaultMaxDepth = 3

// Matcher resolves phenotype terms to panel IDs through the ontology.
type Matcher struct {
	graph    *Graph
	panelMap map[string]variant.IntSet
	maxDepth int
	logger   zerolog.Logger
}

// NewMatcher builds a Matcher over graph and a map of panel IDs per
// phenotype term, as discovered from PanelApp relevant_disorders fields.
func NewMatcher(graph *Graph, panelMap map[string]variant.IntSet) *Matcher {
	return &Matcher{
		graph:    graph,
		panelMap: panelMap,
		maxDepth: DefaultMaxDepth,
		logger:   log.WithComponent("hpo"),
	}
}

// SetMaxDepth overrides the traversal bound. Values below one keep the
// default.
func (m *Matcher) SetMaxDepth(depth int) {
	if depth > 0 {
		m.maxDepth = depth
	}
}

// Match collects the panel IDs for term and for every ancestor up to
// DefaultMaxDepth layers away. Obsolete terms recurse through their
// replacements as well as their parents.
func (m *Matcher) Match(term string) variant.IntSet {
	selections := variant.NewIntSet()
	m.match(term, 0, selections)
	return selections
}

func (m *Matcher) match(term string, depth int, selections variant.IntSet) {
	// An identical match selects the panel even when the term is missing
	// from the graph.
	if ids, ok := m.panelMap[term]; ok {
		selections.Merge(ids)
	}
	if depth >= m.maxDepth {
		return
	}
	node, ok := m.graph.Term(term)
	if !ok {
		m.logger.Error().Str("term", term).Msg("hpo term absent from ontology")
		return
	}
	if node.Obsolete {
		for _, replacement := range node.ReplacedBy {
			m.match(replacement, depth+1, selections)
		}
	}
	// Parents are searched even when the term is obsolete.
	for _, parent := range node.Parents {
		m.match(parent, depth+1, selections)
	}
}

// MatchAll maps each distinct term to its matched panel IDs.
func (m *Matcher) MatchAll(terms []string) map[string]variant.IntSet {
	out := make(map[string]variant.IntSet, len(terms))
	for _, term := range terms {
		if _, done := out[term]; done {
			continue
		}
		out[term] = m.Match(term)
	}
	return out
}

// Describe renders a term with its ontology name, "HP:0001250 - Seizure".
// Terms absent from the ontology render as Unknown.
func (m *Matcher) Describe(term string) string {
	node, ok := m.graph.Term(term)
	if !ok || node.Name == "" {
		m.logger.Error().Str("term", term).Msg("hpo term absent from ontology")
		return term + " - Unknown"
	}
	return term + " - " + node.Name
}
