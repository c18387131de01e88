package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"eventcontrol/backend/internal/domain"
	"eventcontrol/backend/internal/store"
	"eventcontrol/backend/internal/xid"
)

func (s *Service) TicketInfo(ctx context.Context) domain.TicketInfo {
	var out domain.TicketInfo
	s.read(ctx, func(w *workspace) {
		out = w.ledger.TicketInfo
	})
	return out
}

func (s *Service) UpdateTicketInfo(ctx context.Context, req domain.TicketInfoUpdateRequest) (domain.TicketInfo, error) {
	var out domain.TicketInfo
	err := s.mutate(ctx, func(w *workspace) error {
		next := w.ledger.TicketInfo
		if req.CurrentTicketPrice != nil {
			if req.CurrentTicketPrice.IsNegative() {
				return s.reject(w.ledger, store.ErrInvalidInput, "Invalid ticket info", "Ticket price cannot be negative")
			}
			next.CurrentTicketPrice = *req.CurrentTicketPrice
		}
		if req.TicketsSold != nil {
			if *req.TicketsSold < 0 {
				return s.reject(w.ledger, store.ErrInvalidInput, "Invalid ticket info", "Tickets sold cannot be negative")
			}
			next.TicketsSold = *req.TicketsSold
		}
		if req.EventTotalCost != nil {
			if req.EventTotalCost.IsNegative() {
				return s.reject(w.ledger, store.ErrInvalidInput, "Invalid ticket info", "Event cost cannot be negative")
			}
			next.EventTotalCost = *req.EventTotalCost
		}

		w.ledger.TicketInfo = next
		out = next
		return nil
	})
	return out, err
}

func (s *Service) ListExpenseCategories(ctx context.Context) []domain.ExpenseCategory {
	var out []domain.ExpenseCategory
	s.read(ctx, func(w *workspace) {
		out = w.ledger.Clone().ExpenseCategories
	})
	return out
}

func (s *Service) AddExpenseCategory(ctx context.Context, req domain.ExpenseCategoryCreateRequest) (domain.ExpenseCategory, error) {
	var created domain.ExpenseCategory
	err := s.mutate(ctx, func(w *workspace) error {
		name := strings.TrimSpace(req.Name)
		if name == "" {
			return s.reject(w.ledger, store.ErrInvalidInput, "Invalid category", "Category name is required")
		}

		created = domain.ExpenseCategory{
			ID:    xid.New("cat"),
			Name:  name,
			Items: []domain.ExpenseItem{},
		}
		w.ledger.ExpenseCategories = append(w.ledger.ExpenseCategories, created)
		return nil
	})
	return created, err
}

func (s *Service) AddExpenseItem(ctx context.Context, categoryID string, req domain.ExpenseItemCreateRequest) (domain.ExpenseItem, error) {
	var created domain.ExpenseItem
	err := s.mutate(ctx, func(w *workspace) error {
		idx := w.ledger.ExpenseCategoryIndex(categoryID)
		if idx < 0 {
			return store.ErrNotFound
		}
		description := strings.TrimSpace(req.Description)
		if description == "" || !req.Amount.IsPositive() {
			return s.reject(w.ledger, store.ErrInvalidInput, "Invalid expense", "Description and a positive amount are required")
		}

		created = domain.ExpenseItem{
			ID:          xid.New("itm"),
			Description: description,
			Amount:      req.Amount,
		}
		category := &w.ledger.ExpenseCategories[idx]
		category.Items = append(category.Items, created)
		s.notify(w.ledger, domain.NotificationSuccess, "Expense added", fmt.Sprintf("%s was added", description))
		return nil
	})
	return created, err
}

func (s *Service) RemoveExpenseItem(ctx context.Context, categoryID string, itemID string) error {
	return s.mutate(ctx, func(w *workspace) error {
		idx := w.ledger.ExpenseCategoryIndex(categoryID)
		if idx < 0 {
			return store.ErrNotFound
		}
		category := &w.ledger.ExpenseCategories[idx]
		itemIdx := slices.IndexFunc(category.Items, func(item domain.ExpenseItem) bool { return item.ID == itemID })
		if itemIdx < 0 {
			return store.ErrNotFound
		}
		category.Items = slices.Delete(category.Items, itemIdx, itemIdx+1)
		return nil
	})
}

func (s *Service) ToggleExpenseCategory(ctx context.Context, categoryID string) (domain.ExpenseCategory, error) {
	var out domain.ExpenseCategory
	err := s.mutate(ctx, func(w *workspace) error {
		idx := w.ledger.ExpenseCategoryIndex(categoryID)
		if idx < 0 {
			return store.ErrNotFound
		}
		category := &w.ledger.ExpenseCategories[idx]
		category.Expanded = !category.Expanded
		out = *category
		out.Items = slices.Clone(category.Items)
		return nil
	})
	return out, err
}

func (s *Service) ListExpenses(ctx context.Context) []domain.Expense {
	var out []domain.Expense
	s.read(ctx, func(w *workspace) {
		out = w.ledger.Clone().Expenses
	})
	return out
}

func (s *Service) AddExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	var created domain.Expense
	err := s.mutate(ctx, func(w *workspace) error {
		description := strings.TrimSpace(req.Description)
		if description == "" || !req.Amount.IsPositive() {
			return s.reject(w.ledger, store.ErrInvalidInput, "Invalid expense", "Description and a positive amount are required")
		}

		created = domain.Expense{
			ID:          xid.New("exp"),
			EventID:     s.eventID(w.ledger, req.EventID),
			Description: description,
			Amount:      req.Amount,
			Category:    defaultString(strings.TrimSpace(req.Category), "other"),
			Date:        s.today(),
			Approved:    req.Approved,
		}
		w.ledger.Expenses = append(w.ledger.Expenses, created)
		s.notify(w.ledger, domain.NotificationSuccess, "Expense added", fmt.Sprintf("%s was added", description))
		return nil
	})
	return created, err
}

func (s *Service) RemoveExpense(ctx context.Context, id string) error {
	return s.mutate(ctx, func(w *workspace) error {
		idx := slices.IndexFunc(w.ledger.Expenses, func(e domain.Expense) bool { return e.ID == id })
		if idx < 0 {
			return store.ErrNotFound
		}
		w.ledger.Expenses = slices.Delete(w.ledger.Expenses, idx, idx+1)
		return nil
	})
}

func (s *Service) ListRevenues(ctx context.Context) []domain.Revenue {
	var out []domain.Revenue
	s.read(ctx, func(w *workspace) {
		out = w.ledger.Clone().Revenues
	})
	return out
}

func (s *Service) AddRevenue(ctx context.Context, req domain.RevenueCreateRequest) (domain.Revenue, error) {
	var created domain.Revenue
	err := s.mutate(ctx, func(w *workspace) error {
		description := strings.TrimSpace(req.Description)
		if description == "" || !req.Amount.IsPositive() {
			return s.reject(w.ledger, store.ErrInvalidInput, "Invalid revenue", "Description and a positive amount are required")
		}

		created = domain.Revenue{
			ID:          xid.New("rev"),
			EventID:     s.eventID(w.ledger, req.EventID),
			Description: description,
			Amount:      req.Amount,
			Date:        s.today(),
			Category:    defaultString(strings.TrimSpace(req.Category), "other"),
		}
		w.ledger.Revenues = append(w.ledger.Revenues, created)
		s.notify(w.ledger, domain.NotificationSuccess, "Revenue added", fmt.Sprintf("%s was added", description))
		return nil
	})
	return created, err
}

func (s *Service) RemoveRevenue(ctx context.Context, id string) error {
	return s.mutate(ctx, func(w *workspace) error {
		idx := slices.IndexFunc(w.ledger.Revenues, func(r domain.Revenue) bool { return r.ID == id })
		if idx < 0 {
			return store.ErrNotFound
		}
		w.ledger.Revenues = slices.Delete(w.ledger.Revenues, idx, idx+1)
		return nil
	})
}

// eventID defaults to the first event on the ledger.
func (s *Service) eventID(l *domain.Ledger, requested string) string {
	requested = strings.TrimSpace(requested)
	if requested != "" || len(l.Events) == 0 {
		return requested
	}
	return l.Events[0].ID
}

func defaultString(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
