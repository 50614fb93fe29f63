// SPDX-License-Identifier: MIT

package clinvar

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Index is an in-memory coordinate-keyed view of decisions. The labelling
// stage joins it against variant rows; VCF contigs carry a chr prefix that
// ClinVar coordinates lack, so keys are formed through CoordinateKey.
type Index map[string]Decision

// CoordinateKey normalises a locus to the chr-less chrom-pos-ref-alt form
// shared by both sides of the join.
func CoordinateKey(chrom string, pos int, ref, alt string) string {
	return fmt.Sprintf("%s-%d-%s-%s", strings.TrimPrefix(chrom, "chr"), pos, ref, alt)
}

// Key returns the allele's coordinate key.
func (a Allele) Key() string {
	return CoordinateKey(a.Chrom, a.Pos, a.Ref, a.Alt)
}

// NewIndex builds an index from a decision list.
func NewIndex(decisions ...Decision) Index {
	ix := make(Index, len(decisions))
	for _, d := range decisions {
		ix.Add(d)
	}
	return ix
}

// Add inserts one decision under its coordinate key.
func (ix Index) Add(d Decision) {
	ix[d.Allele.Key()] = d
}

// Lookup returns the decision at a locus, or nil when none is indexed.
func (ix Index) Lookup(chrom string, pos int, ref, alt string) *Decision {
	if d, ok := ix[CoordinateKey(chrom, pos, ref, alt)]; ok {
		return &d
	}
	return nil
}

// Index loads every stored decision into a coordinate-keyed map. A full
// release fits comfortably in memory and the labelling stage performs one
// lookup per variant row, so a single upfront scan beats point reads.
func (s *Store) Index(ctx context.Context) (Index, error) {
	ix := make(Index)
	prefix := []byte(keyPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			var d Decision
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &d)
			})
			if err != nil {
				return fmt.Errorf("decode decision %s: %w", it.Item().Key(), err)
			}
			ix.Add(d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Int("decisions", len(ix)).Msg("decision index loaded")
	return ix, nil
}
