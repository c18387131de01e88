package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Snapshot is the persisted form of a Ledger: one JSON document per
// collection. Every key is saved and loaded independently and a missing key
// means "use the default".
type Snapshot map[string]json.RawMessage

const (
	KeyEvents            = "events"
	KeyProducts          = "products"
	KeySales             = "sales"
	KeyExpenses          = "expenses"
	KeyExpenseCategories = "expenseCategories"
	KeyRevenues          = "revenues"
	KeyNotifications     = "notifications"
	KeyTemplates         = "templates"
	KeyTicketInfo        = "ticketInfo"
	KeyUndoHistory       = "undoHistory"
)

// SnapshotKeys lists every collection key in a stable order.
var SnapshotKeys = []string{
	KeyEvents,
	KeyProducts,
	KeySales,
	KeyExpenses,
	KeyExpenseCategories,
	KeyRevenues,
	KeyNotifications,
	KeyTemplates,
	KeyTicketInfo,
	KeyUndoHistory,
}

// Clone copies the map and every raw document.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for key, raw := range s {
		out[key] = append(json.RawMessage(nil), raw...)
	}
	return out
}

// Has reports whether key holds a document; absent, empty and JSON null
// entries do not count.
func (s Snapshot) Has(key string) bool {
	raw, ok := s[key]
	return ok && len(raw) > 0 && string(raw) != "null"
}

// EncodeSnapshot serialises the ledger together with the undo history
// (newest action first).
func EncodeSnapshot(l *Ledger, history []UndoAction) (Snapshot, error) {
	if history == nil {
		history = []UndoAction{}
	}
	parts := map[string]any{
		KeyEvents:            l.Events,
		KeyProducts:          l.Products,
		KeySales:             l.Sales,
		KeyExpenses:          l.Expenses,
		KeyExpenseCategories: l.ExpenseCategories,
		KeyRevenues:          l.Revenues,
		KeyNotifications:     l.Notifications,
		KeyTemplates:         l.Templates,
		KeyTicketInfo:        l.TicketInfo,
		KeyUndoHistory:       history,
	}

	snap := make(Snapshot, len(parts))
	for _, key := range SnapshotKeys {
		raw, err := json.Marshal(parts[key])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		snap[key] = raw
	}
	return snap, nil
}

// DecodeSnapshot rebuilds a ledger and its undo history. A key that is
// missing or malformed falls back to its default; malformed keys are reported
// in the joined error while the remaining keys still load.
func DecodeSnapshot(s Snapshot) (*Ledger, []UndoAction, error) {
	l := NewLedger()
	history := []UndoAction{}

	decoders := map[string]func(json.RawMessage) error{
		KeyEvents:            func(raw json.RawMessage) error { return decodeInto(raw, &l.Events) },
		KeyProducts:          func(raw json.RawMessage) error { return decodeInto(raw, &l.Products) },
		KeySales:             func(raw json.RawMessage) error { return decodeInto(raw, &l.Sales) },
		KeyExpenses:          func(raw json.RawMessage) error { return decodeInto(raw, &l.Expenses) },
		KeyExpenseCategories: func(raw json.RawMessage) error { return decodeInto(raw, &l.ExpenseCategories) },
		KeyRevenues:          func(raw json.RawMessage) error { return decodeInto(raw, &l.Revenues) },
		KeyNotifications:     func(raw json.RawMessage) error { return decodeInto(raw, &l.Notifications) },
		KeyTemplates:         func(raw json.RawMessage) error { return decodeInto(raw, &l.Templates) },
		KeyTicketInfo:        func(raw json.RawMessage) error { return decodeInto(raw, &l.TicketInfo) },
		KeyUndoHistory:       func(raw json.RawMessage) error { return decodeInto(raw, &history) },
	}

	var errs []error
	for _, key := range SnapshotKeys {
		if !s.Has(key) {
			continue
		}
		if err := decoders[key](s[key]); err != nil {
			errs = append(errs, fmt.Errorf("decode %s: %w", key, err))
		}
	}

	fresh := NewLedger()
	if l.Events == nil {
		l.Events = fresh.Events
	}
	if l.Products == nil {
		l.Products = fresh.Products
	}
	if l.Sales == nil {
		l.Sales = fresh.Sales
	}
	if l.Expenses == nil {
		l.Expenses = fresh.Expenses
	}
	if l.ExpenseCategories == nil {
		l.ExpenseCategories = fresh.ExpenseCategories
	}
	if l.Revenues == nil {
		l.Revenues = fresh.Revenues
	}
	if l.Notifications == nil {
		l.Notifications = fresh.Notifications
	}
	if l.Templates == nil {
		l.Templates = fresh.Templates
	}
	if history == nil {
		history = []UndoAction{}
	}

	return l, history, errors.Join(errs...)
}

// decodeInto only touches dst when raw decodes cleanly.
func decodeInto[T any](raw json.RawMessage, dst *T) error {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*dst = v
	return nil
}
