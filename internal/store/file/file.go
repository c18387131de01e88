package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"eventcontrol/backend/internal/domain"
	"eventcontrol/backend/internal/store"
)

// Store writes every snapshot key to its own file under
// <dir>/<account>/<key>.json, the on-disk twin of browser local storage.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store: directory required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Load(_ context.Context, accountID string) (domain.Snapshot, error) {
	if !store.ValidAccountID(accountID) {
		return nil, store.ErrInvalidInput
	}

	accountDir := filepath.Join(s.dir, accountID)
	snap := make(domain.Snapshot, len(domain.SnapshotKeys))
	for _, key := range domain.SnapshotKeys {
		raw, err := os.ReadFile(filepath.Join(accountDir, key+".json"))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !json.Valid(raw) {
			continue
		}
		snap[key] = raw
	}
	if len(snap) == 0 {
		return nil, store.ErrNotFound
	}
	return snap, nil
}

func (s *Store) Save(_ context.Context, accountID string, snapshot domain.Snapshot) error {
	if !store.ValidAccountID(accountID) {
		return store.ErrInvalidInput
	}

	accountDir := filepath.Join(s.dir, accountID)
	if err := os.MkdirAll(accountDir, 0o750); err != nil {
		return err
	}

	var errs []error
	for _, key := range domain.SnapshotKeys {
		raw, ok := snapshot[key]
		if !ok {
			continue
		}
		if err := writeAtomic(filepath.Join(accountDir, key+".json"), raw); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
