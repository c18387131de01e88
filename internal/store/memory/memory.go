package memory

import (
	"context"
	"sync"

	"eventcontrol/backend/internal/domain"
	"eventcontrol/backend/internal/store"
)

// Store keeps snapshots in process memory. Used for development, tests and
// as the last-resort local fallback.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]domain.Snapshot
	saves     int
}

func New() *Store {
	return &Store{snapshots: make(map[string]domain.Snapshot)}
}

func (s *Store) Load(_ context.Context, accountID string) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[accountID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return snap.Clone(), nil
}

func (s *Store) Save(_ context.Context, accountID string, snapshot domain.Snapshot) error {
	if !store.ValidAccountID(accountID) {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := s.snapshots[accountID].Clone()
	if merged == nil {
		merged = make(domain.Snapshot, len(snapshot))
	}
	for key, raw := range snapshot.Clone() {
		merged[key] = raw
	}
	s.snapshots[accountID] = merged
	s.saves++
	return nil
}

// Saves reports how many successful saves the store has taken.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
