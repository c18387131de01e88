package fallback

import (
	"context"
	"errors"
	"log"

	"eventcontrol/backend/internal/domain"
	"eventcontrol/backend/internal/store"
)

// Store writes to the primary backend and drops to the local one whenever
// the primary fails. Reads prefer the primary and use the local copy when
// the primary errors or has nothing for the account.
type Store struct {
	primary store.SnapshotStore
	local   store.SnapshotStore
}

func New(primary, local store.SnapshotStore) *Store {
	return &Store{primary: primary, local: local}
}

func (s *Store) Load(ctx context.Context, accountID string) (domain.Snapshot, error) {
	snap, err := s.primary.Load(ctx, accountID)
	if err == nil {
		return snap, nil
	}
	if errors.Is(err, store.ErrInvalidInput) {
		return nil, err
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Printf("[store] WARN: primary load failed for %s, using local copy: %v", accountID, err)
	}
	return s.local.Load(ctx, accountID)
}

func (s *Store) Save(ctx context.Context, accountID string, snapshot domain.Snapshot) error {
	err := s.primary.Save(ctx, accountID, snapshot)
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrInvalidInput) {
		return err
	}
	log.Printf("[store] WARN: primary save failed for %s, saving locally: %v", accountID, err)
	if localErr := s.local.Save(ctx, accountID, snapshot); localErr != nil {
		return errors.Join(err, localErr)
	}
	return nil
}
