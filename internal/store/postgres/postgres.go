package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"eventcontrol/backend/internal/domain"
	"eventcontrol/backend/internal/store"
)

const tableName = "user_data"

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS " + tableName + " (\n\t\tuser_id TEXT PRIMARY KEY")
	for _, key := range domain.SnapshotKeys {
		b.WriteString(",\n\t\t" + store.ColumnName(key) + " JSONB")
	}
	b.WriteString(",\n\t\tupdated_at TIMESTAMPTZ NOT NULL DEFAULT now()\n\t)")

	_, err := s.db.ExecContext(ctx, b.String())
	return err
}

func (s *Store) Load(ctx context.Context, accountID string) (domain.Snapshot, error) {
	if !store.ValidAccountID(accountID) {
		return nil, store.ErrInvalidInput
	}

	columns := make([]string, len(domain.SnapshotKeys))
	for i, key := range domain.SnapshotKeys {
		columns[i] = store.ColumnName(key)
	}

	values := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT `+strings.Join(columns, ", ")+`
		FROM `+tableName+`
		WHERE user_id = $1
	`, accountID).Scan(dest...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	snap := make(domain.Snapshot, len(columns))
	for i, v := range values {
		if !v.Valid {
			continue
		}
		snap[domain.SnapshotKeys[i]] = []byte(v.String)
	}
	if len(snap) == 0 {
		return nil, store.ErrNotFound
	}
	return snap, nil
}

// Save upserts the keys present in snapshot and leaves the other columns
// untouched.
func (s *Store) Save(ctx context.Context, accountID string, snapshot domain.Snapshot) error {
	if !store.ValidAccountID(accountID) {
		return store.ErrInvalidInput
	}

	columns := make([]string, 0, len(snapshot))
	args := []any{accountID}
	for _, key := range domain.SnapshotKeys {
		raw, ok := snapshot[key]
		if !ok {
			continue
		}
		columns = append(columns, store.ColumnName(key))
		args = append(args, string(raw))
	}
	if len(columns) == 0 {
		return nil
	}

	placeholders := make([]string, len(columns))
	updates := make([]string, len(columns))
	for i, col := range columns {
		placeholders[i] = fmt.Sprintf("$%d::jsonb", i+2)
		updates[i] = col + " = EXCLUDED." + col
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+tableName+` (user_id, `+strings.Join(columns, ", ")+`, updated_at)
		VALUES ($1, `+strings.Join(placeholders, ", ")+`, now())
		ON CONFLICT (user_id)
		DO UPDATE SET `+strings.Join(updates, ", ")+`, updated_at = now()
	`, args...)
	if err != nil {
		if isInvalidJSON(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

// Delete drops every stored key of the account.
func (s *Store) Delete(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM `+tableName+` WHERE user_id = $1`, accountID)
	return err
}

func isInvalidJSON(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "22P02"
	}
	return false
}
