package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"eventcontrol/backend/internal/domain"
	"eventcontrol/backend/internal/store"
	"eventcontrol/backend/internal/xid"
)

var unitCostShare = decimal.RequireFromString("0.6")

// maxStockUnits bounds package counts, units per package and their product.
const maxStockUnits = 1_000_000

func (s *Service) ListProducts(ctx context.Context) []domain.Product {
	var out []domain.Product
	s.read(ctx, func(w *workspace) {
		out = w.ledger.Clone().Products
	})
	return out
}

func (s *Service) ListSales(ctx context.Context) []domain.Sale {
	var out []domain.Sale
	s.read(ctx, func(w *workspace) {
		out = w.ledger.Clone().Sales
	})
	return out
}

func (s *Service) AddProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	var created domain.Product
	err := s.mutate(ctx, func(w *workspace) error {
		product, err := buildProduct(req)
		if err != nil {
			return s.reject(w.ledger, store.ErrInvalidInput, "Invalid product", err.Error())
		}
		product.ID = xid.New("prd")

		position := len(w.ledger.Products)
		w.ledger.InsertProduct(position, product)
		w.history.Record(domain.UndoAction{
			ID:          xid.New("act"),
			Kind:        domain.UndoAddProduct,
			Product:     product,
			Position:    position,
			Timestamp:   s.now().UTC(),
			Description: fmt.Sprintf("Product %s added", product.Name),
		})
		s.notify(w.ledger, domain.NotificationSuccess, "Product added", fmt.Sprintf("%s was added", product.Name))

		created = product
		return nil
	})
	return created, err
}

// buildProduct derives the stored product from a create request. Package
// products split the package price across its units; unit products are
// stocked one by one.
func buildProduct(req domain.ProductCreateRequest) (domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, fmt.Errorf("name is required")
	}
	channel := req.Channel
	if channel == "" {
		channel = domain.ChannelBar
	}
	if !channel.Valid() {
		return domain.Product{}, fmt.Errorf("unknown channel %q", req.Channel)
	}
	mode := req.Mode
	if mode == "" {
		mode = domain.ModePackage
	}
	if !mode.Valid() {
		return domain.Product{}, fmt.Errorf("unknown mode %q", req.Mode)
	}
	if !req.SalePrice.IsPositive() {
		return domain.Product{}, fmt.Errorf("sale price must be positive")
	}
	if req.PackageQuantity < 1 {
		return domain.Product{}, fmt.Errorf("quantity must be at least 1")
	}
	if req.PackageQuantity > maxStockUnits {
		return domain.Product{}, fmt.Errorf("quantity cannot exceed %d", maxStockUnits)
	}
	if req.PurchasePrice.Valid && req.PurchasePrice.Decimal.IsNegative() {
		return domain.Product{}, fmt.Errorf("purchase price cannot be negative")
	}

	product := domain.Product{
		Name:            name,
		Channel:         channel,
		Mode:            mode,
		SalePrice:       req.SalePrice,
		PackageQuantity: req.PackageQuantity,
	}

	switch mode {
	case domain.ModePackage:
		if !req.PackagePrice.IsPositive() {
			return domain.Product{}, fmt.Errorf("package price must be positive")
		}
		if req.PackageUnits < 1 {
			return domain.Product{}, fmt.Errorf("units per package must be at least 1")
		}
		if req.PackageUnits > maxStockUnits/req.PackageQuantity {
			return domain.Product{}, fmt.Errorf("total stock cannot exceed %d units", maxStockUnits)
		}
		product.PackagePrice = req.PackagePrice
		product.PackageUnits = req.PackageUnits
		product.UnitPrice = req.PackagePrice.Div(decimal.NewFromInt(int64(req.PackageUnits)))
		product.PurchasePrice = product.UnitPrice
		product.Quantity = req.PackageQuantity * req.PackageUnits
	case domain.ModeUnit:
		product.PurchasePrice = req.SalePrice.Mul(unitCostShare)
		product.PackageUnits = 1
		product.Quantity = req.PackageQuantity
	}
	if req.PurchasePrice.Valid {
		product.PurchasePrice = req.PurchasePrice.Decimal
	}
	if mode == domain.ModeUnit {
		product.UnitPrice = product.PurchasePrice
		product.PackagePrice = product.PurchasePrice
	}

	return product, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.mutate(ctx, func(w *workspace) error {
		product, ok := w.ledger.Product(id)
		if !ok {
			return store.ErrNotFound
		}
		if w.ledger.HasSales(id) {
			return s.reject(w.ledger, store.ErrHasSales, "Cannot delete product", "This product has recorded sales")
		}

		position, _ := w.ledger.RemoveProduct(id)
		w.history.Record(domain.UndoAction{
			ID:          xid.New("act"),
			Kind:        domain.UndoDeleteProduct,
			Product:     product,
			Position:    position,
			Timestamp:   s.now().UTC(),
			Description: fmt.Sprintf("Product %s deleted", product.Name),
		})
		s.notify(w.ledger, domain.NotificationSuccess, "Product deleted", fmt.Sprintf("%s was deleted", product.Name))
		return nil
	})
}

// UpdateProductSale sets the running sold count of a product and rewrites its
// sale record to match.
func (s *Service) UpdateProductSale(ctx context.Context, id string, req domain.SaleUpdateRequest) (domain.Product, error) {
	var updated domain.Product
	err := s.mutate(ctx, func(w *workspace) error {
		before, ok := w.ledger.Product(id)
		if !ok {
			return store.ErrNotFound
		}
		if req.Sold < 0 {
			return s.reject(w.ledger, store.ErrInvalidInput, "Invalid sale", "Sold quantity cannot be negative")
		}
		if req.Sold > before.Quantity {
			return s.reject(w.ledger, store.ErrInsufficientStock, "Insufficient stock", "Not enough stock for this sale")
		}

		after := before
		after.Sold = req.Sold
		s.applyProductUpdate(w, before, after, fmt.Sprintf("Sale of %s updated", before.Name))
		s.notify(w.ledger, domain.NotificationSuccess, "Sale updated", fmt.Sprintf("Sale of %s updated", before.Name))

		updated = after
		return nil
	})
	return updated, err
}

// UpdateProductReturns reconciles the sold count from what came back: bar
// packages count the loose units left over, everything else counts whole
// items returned.
func (s *Service) UpdateProductReturns(ctx context.Context, id string, req domain.ReturnsUpdateRequest) (domain.Product, error) {
	var updated domain.Product
	err := s.mutate(ctx, func(w *workspace) error {
		before, ok := w.ledger.Product(id)
		if !ok {
			return store.ErrNotFound
		}
		if req.ReturnedPackages < 0 || req.RemainingUnits < 0 {
			return s.reject(w.ledger, store.ErrInvalidInput, "Invalid returns", "Returned and remaining counts cannot be negative")
		}
		if req.ReturnedPackages > before.PackageQuantity {
			return s.reject(w.ledger, store.ErrInvalidInput, "Invalid returns", "More packages returned than were stocked")
		}

		kept := before.PackageQuantity - req.ReturnedPackages
		keptUnits := kept * max(1, before.PackageUnits)
		if req.RemainingUnits > keptUnits {
			return s.reject(w.ledger, store.ErrInvalidInput, "Invalid returns", "More units remaining than were kept")
		}
		sold := kept
		if before.Channel == domain.ChannelBar && before.Mode == domain.ModePackage {
			sold = keptUnits - req.RemainingUnits
		}

		after := before
		after.Sold = max(0, sold)
		after.ReturnedPackages = req.ReturnedPackages
		after.RemainingUnits = req.RemainingUnits
		s.applyProductUpdate(w, before, after, fmt.Sprintf("Returns of %s updated", before.Name))
		s.notify(w.ledger, domain.NotificationSuccess, "Returns updated", fmt.Sprintf("Returns of %s updated", before.Name))

		updated = after
		return nil
	})
	return updated, err
}

// applyProductUpdate replaces before with after, upserts the sale record and
// records both states for undo.
func (s *Service) applyProductUpdate(w *workspace, before domain.Product, after domain.Product, description string) {
	var saleBefore *domain.Sale
	if existing, ok := w.ledger.SaleForProduct(before.ID); ok {
		saleBefore = &existing
	}
	saleAfter := s.saleFor(after, saleBefore)

	w.ledger.ReplaceProduct(after)
	w.ledger.PutSale(after.ID, saleAfter)

	result := after
	w.history.Record(domain.UndoAction{
		ID:          xid.New("act"),
		Kind:        domain.UndoUpdateProduct,
		Product:     before,
		Result:      &result,
		Position:    w.ledger.ProductIndex(before.ID),
		SaleBefore:  saleBefore,
		SaleAfter:   saleAfter,
		Timestamp:   s.now().UTC(),
		Description: description,
	})
}

// saleFor rewrites an existing sale in place, or opens one once something
// has been sold.
func (s *Service) saleFor(p domain.Product, existing *domain.Sale) *domain.Sale {
	total := p.SalePrice.Mul(decimal.NewFromInt(int64(p.Sold)))
	if existing != nil {
		sale := *existing
		sale.Quantity = p.Sold
		sale.Total = total
		return &sale
	}
	if p.Sold <= 0 {
		return nil
	}
	return &domain.Sale{
		ID:        xid.New("sale"),
		ProductID: p.ID,
		Quantity:  p.Sold,
		UnitPrice: p.SalePrice,
		Total:     total,
		Date:      s.today(),
		Channel:   p.Channel,
	}
}

func (s *Service) Undo(ctx context.Context) (domain.HistoryView, error) {
	var view domain.HistoryView
	err := s.mutate(ctx, func(w *workspace) error {
		action, ok := w.history.Undo(w.ledger)
		if ok {
			title, message := undoNotice(action)
			s.notify(w.ledger, domain.NotificationSuccess, title, message)
		}
		view = historyView(w, action, ok)
		return nil
	})
	return view, err
}

func (s *Service) Redo(ctx context.Context) (domain.HistoryView, error) {
	var view domain.HistoryView
	err := s.mutate(ctx, func(w *workspace) error {
		action, ok := w.history.Redo(w.ledger)
		if ok {
			title, message := redoNotice(action)
			s.notify(w.ledger, domain.NotificationSuccess, title, message)
		}
		view = historyView(w, action, ok)
		return nil
	})
	return view, err
}

func (s *Service) History(ctx context.Context) domain.HistoryView {
	var view domain.HistoryView
	s.read(ctx, func(w *workspace) {
		view = historyView(w, domain.UndoAction{}, false)
	})
	return view
}

func historyView(w *workspace, action domain.UndoAction, applied bool) domain.HistoryView {
	view := domain.HistoryView{
		Applied: applied,
		Undo:    w.history.UndoActions(),
		Redo:    w.history.RedoActions(),
		CanUndo: w.history.CanUndo(),
		CanRedo: w.history.CanRedo(),
	}
	if applied {
		view.Action = &action
	}
	return view
}

func undoNotice(action domain.UndoAction) (string, string) {
	name := action.Product.Name
	switch action.Kind {
	case domain.UndoDeleteProduct:
		return "Product restored", fmt.Sprintf("%s was restored", name)
	case domain.UndoAddProduct:
		return "Addition undone", fmt.Sprintf("%s was removed", name)
	default:
		return "Change undone", fmt.Sprintf("%s was restored", name)
	}
}

func redoNotice(action domain.UndoAction) (string, string) {
	name := action.Product.Name
	switch action.Kind {
	case domain.UndoDeleteProduct:
		return "Deletion redone", fmt.Sprintf("%s was deleted again", name)
	case domain.UndoAddProduct:
		return "Addition redone", fmt.Sprintf("%s was added again", name)
	default:
		return "Change redone", fmt.Sprintf("%s was changed again", name)
	}
}
