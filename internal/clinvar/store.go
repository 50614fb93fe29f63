// SPDX-License-Identifier: MIT

package clinvar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/talosproj/talos/internal/log"
)

const keyPrefix = "clinvar:"

// Store holds per-allele decisions in a local badger database, keyed
// "clinvar:<allele_id>". One load serves every labelling run against the
// same ClinVar release.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
}

// OpenStore opens the decision database at path, creating it when absent.
func OpenStore(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clinvar store: %w", err)
	}
	return &Store{db: db, logger: log.WithComponent("clinvar")}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

func storeKey(alleleID int64) []byte {
	return []byte(fmt.Sprintf("%s%d", keyPrefix, alleleID))
}

// Put stores one decision.
func (s *Store) Put(d Decision) error {
	buf, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(storeKey(d.Allele.ID), buf)
	})
}

// PutAll bulk-loads decisions through a write batch. A full ClinVar release
// holds a few million decisions; individual transactions would take hours.
func (s *Store) PutAll(ctx context.Context, decisions []Decision) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i, d := range decisions {
		if i%10000 == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		buf, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("encode decision %d: %w", d.Allele.ID, err)
		}
		if err := wb.Set(storeKey(d.Allele.ID), buf); err != nil {
			return fmt.Errorf("batch decision %d: %w", d.Allele.ID, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush decisions: %w", err)
	}
	s.logger.Info().Int("decisions", len(decisions)).Msg("decision store loaded")
	return nil
}

// Get returns the decision for an allele, or nil when none is stored.
func (s *Store) Get(alleleID int64) (*Decision, error) {
	var out Decision
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storeKey(alleleID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// Count iterates the decision keyspace.
func (s *Store) Count(ctx context.Context) (int, error) {
	n := 0
	prefix := []byte(keyPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			n++
		}
		return nil
	})
	return n, err
}
