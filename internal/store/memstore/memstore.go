// Package memstore is an in-memory store.Store backed by a manufacturer
// snapshot, used when no database is configured and in tests.
package memstore

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Matchmaker/internal/eligibility"
	"github.com/MikeSquared-Agency/Matchmaker/internal/store"
)

type Store struct {
	mu            sync.RWMutex
	manufacturers []*store.Manufacturer
}

func New(manufacturers ...*store.Manufacturer) *Store {
	s := &Store{}
	for _, m := range manufacturers {
		s.Put(m)
	}
	return s
}

type seedFile struct {
	Manufacturers []*store.Manufacturer `yaml:"manufacturers"`
}

// LoadFile builds a Store from a YAML seed file with a top-level
// "manufacturers" list.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return New(seed.Manufacturers...), nil
}

// Put adds or replaces a manufacturer, assigning an ID when it has none.
func (s *Store) Put(m *store.Manufacturer) {
	if m == nil {
		return
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.manufacturers {
		if existing.ID == m.ID {
			s.manufacturers[i] = m
			return
		}
	}
	s.manufacturers = append(s.manufacturers, m)
}

func (s *Store) ListCandidates(ctx context.Context, q store.CandidateQuery) ([]*store.Manufacturer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return eligibility.Apply(s.manufacturers, q), nil
}

func (s *Store) GetManufacturer(_ context.Context, id uuid.UUID) (*store.Manufacturer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.manufacturers {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetManufacturers(_ context.Context, ids []uuid.UUID) ([]*store.Manufacturer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.OrderByIDs(s.manufacturers, ids), nil
}

// All returns a snapshot of every manufacturer held, active or not.
func (s *Store) All() []*store.Manufacturer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*store.Manufacturer, len(s.manufacturers))
	copy(out, s.manufacturers)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.manufacturers)
}

func (s *Store) Close() error { return nil }
