package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"eventcontrol/backend/internal/domain"
	"eventcontrol/backend/internal/metrics"
	"eventcontrol/backend/internal/recommendation"
	"eventcontrol/backend/internal/store"
	"eventcontrol/backend/internal/undo"
	"eventcontrol/backend/internal/xid"
)

const (
	DefaultAccountID = "local"
	saveTimeout      = 5 * time.Second
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// workspace is the live ledger and edit history of one account. All access
// goes through mu.
type workspace struct {
	mu      sync.Mutex
	loaded  bool
	ledger  *domain.Ledger
	history *undo.History
}

type Service struct {
	snapshots        store.SnapshotStore
	recommender      *recommendation.Engine
	undoCapacity     int
	defaultAccountID string
	now              func() time.Time

	mu         sync.Mutex
	workspaces map[string]*workspace
}

func New(snapshots store.SnapshotStore, recommender *recommendation.Engine, undoCapacity int, defaultAccountID string) *Service {
	if undoCapacity < 1 {
		undoCapacity = undo.DefaultCapacity
	}
	if defaultAccountID == "" {
		defaultAccountID = DefaultAccountID
	}

	return &Service{
		snapshots:        snapshots,
		recommender:      recommender,
		undoCapacity:     undoCapacity,
		defaultAccountID: defaultAccountID,
		now:              time.Now,
		workspaces:       make(map[string]*workspace),
	}
}

func (s *Service) accountID(ctx context.Context) string {
	actor, ok := ActorFromContext(ctx)
	if !ok || strings.TrimSpace(actor.AccountID) == "" {
		return s.defaultAccountID
	}
	return actor.AccountID
}

// acquire returns the caller's workspace locked and loaded. The caller must
// unlock it.
func (s *Service) acquire(ctx context.Context) (*workspace, string) {
	accountID := s.accountID(ctx)

	s.mu.Lock()
	w, ok := s.workspaces[accountID]
	if !ok {
		w = &workspace{}
		s.workspaces[accountID] = w
	}
	s.mu.Unlock()

	w.mu.Lock()
	if !w.loaded {
		ledger, history, ok := s.load(ctx, accountID)
		switch {
		case ok:
			w.ledger, w.history = ledger, history
			w.loaded = true
		case w.ledger == nil:
			w.ledger, w.history = ledger, history
		}
	}
	return w, accountID
}

// load reports ok=false when the store could not be read. The returned seeded
// ledger then only serves in memory until a later load succeeds.
func (s *Service) load(ctx context.Context, accountID string) (*domain.Ledger, *undo.History, bool) {
	snap, err := s.snapshots.Load(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.NewSeededLedger(), undo.New(s.undoCapacity), true
	}
	if err != nil {
		log.Printf("[service] WARN: failed to load snapshot account=%s, retrying on next request: %v", accountID, err)
		return domain.NewSeededLedger(), undo.New(s.undoCapacity), false
	}

	ledger, history, err := domain.DecodeSnapshot(snap)
	if err != nil {
		log.Printf("[service] WARN: snapshot for account=%s partially unreadable: %v", accountID, err)
	}
	if !snap.Has(domain.KeyExpenseCategories) {
		ledger.ExpenseCategories = domain.NewSeededLedger().ExpenseCategories
	}
	return ledger, undo.Restore(s.undoCapacity, history), true
}

// read runs fn against the caller's ledger without persisting.
func (s *Service) read(ctx context.Context, fn func(w *workspace)) {
	w, _ := s.acquire(ctx)
	defer w.mu.Unlock()
	fn(w)
}

// mutate runs fn and mirrors the ledger to the snapshot store afterwards,
// whether or not fn failed: rejected operations still leave a notification.
func (s *Service) mutate(ctx context.Context, fn func(w *workspace) error) error {
	w, accountID := s.acquire(ctx)
	defer w.mu.Unlock()

	err := fn(w)
	s.persist(ctx, accountID, w)
	return err
}

// persist never writes a workspace whose stored state was not read, so an
// unreachable store cannot be overwritten with seed data.
func (s *Service) persist(ctx context.Context, accountID string, w *workspace) {
	if !w.loaded {
		log.Printf("[service] WARN: snapshot for account=%s not loaded yet, skipping save", accountID)
		return
	}
	snap, err := domain.EncodeSnapshot(w.ledger, w.history.UndoActions())
	if err != nil {
		log.Printf("[service] WARN: failed to encode snapshot account=%s: %v", accountID, err)
		return
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := s.snapshots.Save(saveCtx, accountID, snap); err != nil {
		log.Printf("[service] WARN: failed to save snapshot account=%s: %v", accountID, err)
	}
}

func (s *Service) notify(l *domain.Ledger, kind domain.NotificationType, title string, message string) {
	n := domain.Notification{
		ID:        xid.New("ntf"),
		Type:      kind,
		Title:     title,
		Message:   message,
		Timestamp: s.now().UTC(),
	}
	l.Notifications = append([]domain.Notification{n}, l.Notifications...)
}

// reject records an error notification and returns err wrapped with message.
func (s *Service) reject(l *domain.Ledger, err error, title string, message string) error {
	s.notify(l, domain.NotificationError, title, message)
	return fmt.Errorf("%w: %s", err, message)
}

func (s *Service) today() string {
	return s.now().UTC().Format("2006-01-02")
}

func (s *Service) Summary(ctx context.Context) domain.Summary {
	var out domain.Summary
	s.read(ctx, func(w *workspace) {
		out = metrics.Summarize(w.ledger)
	})
	return out
}

// Recommend computes the sales mix for the caller's shortfall. A nil weight
// uses the engine default.
func (s *Service) Recommend(ctx context.Context, weight *int) domain.MixRecommendation {
	w := s.recommender.DefaultWeight()
	if weight != nil {
		w = *weight
	}

	var out domain.MixRecommendation
	s.read(ctx, func(ws *workspace) {
		out = s.recommender.Recommend(ws.ledger, w)
	})
	return out
}

func (s *Service) Report(ctx context.Context) domain.Report {
	var out domain.Report
	s.read(ctx, func(w *workspace) {
		l := w.ledger.Clone()
		out = domain.Report{
			Summary:     metrics.ReportSummary(w.ledger),
			Products:    l.Products,
			Sales:       l.Sales,
			Expenses:    l.Expenses,
			Revenues:    l.Revenues,
			GeneratedAt: s.now().UTC(),
		}
	})
	return out
}

func (s *Service) ListEvents(ctx context.Context) []domain.Event {
	var out []domain.Event
	s.read(ctx, func(w *workspace) {
		out = w.ledger.Clone().Events
	})
	return out
}

func (s *Service) ListTemplates(ctx context.Context) []domain.EventTemplate {
	var out []domain.EventTemplate
	s.read(ctx, func(w *workspace) {
		out = w.ledger.Clone().Templates
	})
	return out
}

func (s *Service) ListNotifications(ctx context.Context) []domain.Notification {
	var out []domain.Notification
	s.read(ctx, func(w *workspace) {
		out = w.ledger.Clone().Notifications
	})
	return out
}

func (s *Service) MarkNotificationRead(ctx context.Context, id string) error {
	return s.mutate(ctx, func(w *workspace) error {
		for i := range w.ledger.Notifications {
			if w.ledger.Notifications[i].ID == id {
				w.ledger.Notifications[i].Read = true
				return nil
			}
		}
		return store.ErrNotFound
	})
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context) error {
	return s.mutate(ctx, func(w *workspace) error {
		for i := range w.ledger.Notifications {
			w.ledger.Notifications[i].Read = true
		}
		return nil
	})
}
