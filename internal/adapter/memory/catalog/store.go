// Package catalog is an in-memory catalog store used for dry runs and tests.
package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

// Store is a map of records keyed by natural key. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	rows map[string]domain.VehicleRecord
	keys []string
}

// New returns an empty Store.
func New() *Store {
	return &Store{rows: make(map[string]domain.VehicleRecord)}
}

// Upsert merges rec into the store with domain.MergeVehicle.
func (s *Store) Upsert(ctx context.Context, rec domain.VehicleRecord) (domain.UpsertOutcome, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := rec.Key()
	if key.IsZero() {
		return "", fmt.Errorf("vehicle: empty natural key: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(rec.CarModel) == "" {
		return "", fmt.Errorf("vehicle %s: car model required: %w", key, domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key.String()
	stored, ok := s.rows[k]
	if !ok {
		rec.PackItems = slices.Clone(rec.PackItems)
		s.rows[k] = rec
		s.keys = append(s.keys, k)
		return domain.UpsertInserted, nil
	}

	merged, changed := domain.MergeVehicle(stored, rec)
	if !changed {
		return domain.UpsertUnchanged, nil
	}
	s.rows[k] = merged
	return domain.UpsertUpdated, nil
}

// BulkUpsert merges recs in order.
func (s *Store) BulkUpsert(ctx context.Context, recs []domain.VehicleRecord) ([]domain.UpsertResult, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	results := make([]domain.UpsertResult, len(recs))
	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outcome, err := s.Upsert(ctx, rec)
		results[i] = domain.UpsertResult{Key: rec.Key(), Outcome: outcome, Err: err}
	}
	return results, nil
}

// Get returns the record stored under key.
func (s *Store) Get(key domain.NaturalKey) (domain.VehicleRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.rows[key.String()]
	return rec, ok
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// All returns the stored records in first-insert order.
func (s *Store) All() []domain.VehicleRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.VehicleRecord, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, s.rows[k])
	}
	return out
}
