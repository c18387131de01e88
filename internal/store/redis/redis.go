package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"eventcontrol/backend/internal/domain"
	"eventcontrol/backend/internal/store"
)

const keyPrefix = "eventcontrol"

type Store struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewStore connects lazily; call Ping to verify the server is reachable.
// A zero ttl keeps keys forever.
func NewStore(addr string, password string, db int, ttl time.Duration) *Store {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &Store{client: client, ttl: ttl}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func Key(accountID, collection string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, accountID, collection)
}

func (s *Store) Load(ctx context.Context, accountID string) (domain.Snapshot, error) {
	if !store.ValidAccountID(accountID) {
		return nil, store.ErrInvalidInput
	}

	keys := make([]string, len(domain.SnapshotKeys))
	for i, collection := range domain.SnapshotKeys {
		keys[i] = Key(accountID, collection)
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	snap := make(domain.Snapshot, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok || str == "" {
			continue
		}
		snap[domain.SnapshotKeys[i]] = []byte(str)
	}
	if len(snap) == 0 {
		return nil, store.ErrNotFound
	}
	return snap, nil
}

func (s *Store) Save(ctx context.Context, accountID string, snapshot domain.Snapshot) error {
	if !store.ValidAccountID(accountID) {
		return store.ErrInvalidInput
	}
	if len(snapshot) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, collection := range domain.SnapshotKeys {
			raw, ok := snapshot[collection]
			if !ok {
				continue
			}
			pipe.Set(ctx, Key(accountID, collection), []byte(raw), s.ttl)
		}
		return nil
	})
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	return err
}
