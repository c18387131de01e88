package store

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"eventcontrol/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrHasSales          = errors.New("product has recorded sales")
)

// SnapshotStore persists one ledger snapshot per account. Save is
// best-effort from the caller's point of view; Load returns ErrNotFound when
// nothing was ever saved for the account.
type SnapshotStore interface {
	Load(ctx context.Context, accountID string) (domain.Snapshot, error)
	Save(ctx context.Context, accountID string, snapshot domain.Snapshot) error
}

// ColumnName maps a snapshot key to its snake_case column name.
func ColumnName(key string) string {
	var b strings.Builder
	for i, r := range key {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ValidAccountID rejects identifiers that cannot safely be used as a key,
// a file name or a row id.
func ValidAccountID(accountID string) bool {
	if accountID == "" || len(accountID) > 128 {
		return false
	}
	for _, r := range accountID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == '@':
		default:
			return false
		}
	}
	return accountID != "." && accountID != ".."
}
