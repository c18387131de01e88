package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"eventcontrol/backend/internal/domain"
	"eventcontrol/backend/internal/recommendation"
	"eventcontrol/backend/internal/store"
	"eventcontrol/backend/internal/store/memory"
)

func newTestService() (*Service, *memory.Store) {
	snapshots := memory.New()
	return New(snapshots, recommendation.NewEngine(50), 10, "tester"), snapshots
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func addBeer(t *testing.T, svc *Service, ctx context.Context) domain.Product {
	t.Helper()
	product, err := svc.AddProduct(ctx, domain.ProductCreateRequest{
		Name:            "Beer",
		Channel:         domain.ChannelBar,
		Mode:            domain.ModePackage,
		PackagePrice:    dec("84.00"),
		PackageUnits:    24,
		PackageQuantity: 8,
		SalePrice:       dec("8.00"),
		PurchasePrice:   decimal.NewNullDecimal(dec("3.50")),
	})
	if err != nil {
		t.Fatalf("add product: %v", err)
	}
	return product
}

func TestFreshAccountIsSeeded(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if got := len(svc.ListExpenseCategories(ctx)); got != 7 {
		t.Fatalf("expected 7 default expense categories, got %d", got)
	}
	if got := len(svc.ListEvents(ctx)); got != 1 {
		t.Fatalf("expected sample event, got %d", got)
	}
	if got := len(svc.ListTemplates(ctx)); got != 1 {
		t.Fatalf("expected sample template, got %d", got)
	}
	ticket := svc.TicketInfo(ctx)
	if !ticket.CurrentTicketPrice.Equal(dec("50")) || !ticket.EventTotalCost.Equal(dec("15000")) {
		t.Fatalf("unexpected default ticket info %+v", ticket)
	}
}

func TestPackageProductSaleScenario(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	beer := addBeer(t, svc, ctx)
	if beer.Quantity != 192 {
		t.Fatalf("expected quantity 192, got %d", beer.Quantity)
	}
	if !beer.UnitPrice.Equal(dec("3.5")) {
		t.Fatalf("expected unit price 3.50, got %s", beer.UnitPrice)
	}

	if _, err := svc.UpdateProductSale(ctx, beer.ID, domain.SaleUpdateRequest{Sold: 45}); err != nil {
		t.Fatalf("update sale: %v", err)
	}

	sales := svc.ListSales(ctx)
	if len(sales) != 1 {
		t.Fatalf("expected one sale, got %d", len(sales))
	}
	if !sales[0].Total.Equal(dec("360")) {
		t.Fatalf("expected sale total 360.00, got %s", sales[0].Total)
	}
	if sales[0].Channel != domain.ChannelBar {
		t.Fatalf("expected bar sale, got %s", sales[0].Channel)
	}

	if _, err := svc.UpdateProductSale(ctx, beer.ID, domain.SaleUpdateRequest{Sold: 50}); err != nil {
		t.Fatalf("second update: %v", err)
	}
	sales = svc.ListSales(ctx)
	if len(sales) != 1 || sales[0].Quantity != 50 || !sales[0].Total.Equal(dec("400")) {
		t.Fatalf("expected the sale to be rewritten in place, got %+v", sales)
	}
}

func TestUnitProductDefaults(t *testing.T) {
	svc, _ := newTestService()
	shirt, err := svc.AddProduct(context.Background(), domain.ProductCreateRequest{
		Name:            "T-shirt",
		Channel:         domain.ChannelShop,
		Mode:            domain.ModeUnit,
		PackageQuantity: 50,
		SalePrice:       dec("35"),
	})
	if err != nil {
		t.Fatalf("add product: %v", err)
	}
	if shirt.Quantity != 50 || shirt.PackageUnits != 1 {
		t.Fatalf("unexpected unit stock %+v", shirt)
	}
	if !shirt.PurchasePrice.Equal(dec("21")) || !shirt.PackagePrice.Equal(dec("21")) {
		t.Fatalf("expected purchase price to default to 60%% of sale price, got %s", shirt.PurchasePrice)
	}
}

func TestAddProductRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, domain.ProductCreateRequest{
		Name:            "Broken",
		Mode:            domain.ModePackage,
		PackageQuantity: 2,
		SalePrice:       dec("5"),
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(svc.ListProducts(ctx)) != 0 {
		t.Fatalf("expected no product to be stored")
	}
	if svc.History(ctx).CanUndo {
		t.Fatalf("expected rejected add to leave no undo entry")
	}
	if n := svc.ListNotifications(ctx); len(n) == 0 || n[0].Type != domain.NotificationError {
		t.Fatalf("expected an error notification first, got %+v", n)
	}
}

func TestAddProductRejectsOversizedStock(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []domain.ProductCreateRequest{
		{Name: "Crates", Mode: domain.ModePackage, PackagePrice: dec("10"), PackageUnits: 1 << 40, PackageQuantity: 1 << 40, SalePrice: dec("1")},
		{Name: "Cups", Mode: domain.ModePackage, PackagePrice: dec("10"), PackageUnits: 2000, PackageQuantity: 1000, SalePrice: dec("1")},
		{Name: "Pins", Channel: domain.ChannelShop, Mode: domain.ModeUnit, PackageQuantity: maxStockUnits + 1, SalePrice: dec("1")},
	}
	for _, req := range cases {
		if _, err := svc.AddProduct(ctx, req); !errors.Is(err, store.ErrInvalidInput) {
			t.Fatalf("expected %s to be rejected, got %v", req.Name, err)
		}
	}
	if len(svc.ListProducts(ctx)) != 0 {
		t.Fatalf("expected no product to be stored")
	}
}

func TestOversellIsRejectedAndStateUnchanged(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	beer := addBeer(t, svc, ctx)

	_, err := svc.UpdateProductSale(ctx, beer.ID, domain.SaleUpdateRequest{Sold: 193})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	products := svc.ListProducts(ctx)
	if products[0].Sold != 0 {
		t.Fatalf("expected sold to stay 0, got %d", products[0].Sold)
	}
	if len(svc.ListSales(ctx)) != 0 {
		t.Fatalf("expected no sale record")
	}
	notifications := svc.ListNotifications(ctx)
	if notifications[0].Type != domain.NotificationError || notifications[0].Title != "Insufficient stock" {
		t.Fatalf("expected insufficient stock notification, got %+v", notifications[0])
	}
}

func TestDeleteBlockedWhenProductHasSales(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	beer := addBeer(t, svc, ctx)
	if _, err := svc.UpdateProductSale(ctx, beer.ID, domain.SaleUpdateRequest{Sold: 10}); err != nil {
		t.Fatalf("update sale: %v", err)
	}
	undoBefore := len(svc.History(ctx).Undo)

	err := svc.DeleteProduct(ctx, beer.ID)
	if !errors.Is(err, store.ErrHasSales) {
		t.Fatalf("expected ErrHasSales, got %v", err)
	}
	if len(svc.ListProducts(ctx)) != 1 {
		t.Fatalf("expected product to remain")
	}
	if got := len(svc.History(ctx).Undo); got != undoBefore {
		t.Fatalf("expected no undo entry for a blocked delete, got %d entries", got)
	}
	if n := svc.ListNotifications(ctx)[0]; n.Type != domain.NotificationError {
		t.Fatalf("expected error notification, got %+v", n)
	}
}

func TestUndoRedoRoundTripForSaleUpdate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	beer := addBeer(t, svc, ctx)
	if _, err := svc.UpdateProductSale(ctx, beer.ID, domain.SaleUpdateRequest{Sold: 45}); err != nil {
		t.Fatalf("update sale: %v", err)
	}

	view, err := svc.Undo(ctx)
	if err != nil || !view.Applied {
		t.Fatalf("expected undo to apply, view=%+v err=%v", view, err)
	}
	if svc.ListProducts(ctx)[0].Sold != 0 || len(svc.ListSales(ctx)) != 0 {
		t.Fatalf("expected undo to restore unsold product without a sale")
	}
	if !view.CanRedo {
		t.Fatalf("expected redo to be available")
	}

	view, err = svc.Redo(ctx)
	if err != nil || !view.Applied {
		t.Fatalf("expected redo to apply, view=%+v err=%v", view, err)
	}
	if svc.ListProducts(ctx)[0].Sold != 45 {
		t.Fatalf("expected redo to re-apply the sale")
	}
	if sales := svc.ListSales(ctx); len(sales) != 1 || !sales[0].Total.Equal(dec("360")) {
		t.Fatalf("expected redo to restore the sale record, got %+v", sales)
	}

	notifications := svc.ListNotifications(ctx)
	if notifications[0].Title != "Change redone" || notifications[1].Title != "Change undone" {
		t.Fatalf("unexpected undo/redo notifications %q, %q", notifications[0].Title, notifications[1].Title)
	}
}

func TestUndoDeleteRestoresPosition(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	first := addBeer(t, svc, ctx)
	second := addBeer(t, svc, ctx)
	third := addBeer(t, svc, ctx)

	if err := svc.DeleteProduct(ctx, second.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Undo(ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}

	products := svc.ListProducts(ctx)
	if len(products) != 3 || products[0].ID != first.ID || products[1].ID != second.ID || products[2].ID != third.ID {
		t.Fatalf("expected original order after undo, got %+v", products)
	}
}

func TestNewActionClearsRedo(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	addBeer(t, svc, ctx)

	if _, err := svc.Undo(ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !svc.History(ctx).CanRedo {
		t.Fatalf("expected redo after undo")
	}

	addBeer(t, svc, ctx)
	if svc.History(ctx).CanRedo {
		t.Fatalf("expected a new action to clear redo")
	}
}

func TestUndoOnEmptyHistoryIsNoop(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	view, err := svc.Undo(ctx)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if view.Applied || view.Action != nil {
		t.Fatalf("expected no-op undo, got %+v", view)
	}
	if len(svc.ListNotifications(ctx)) != 0 {
		t.Fatalf("expected no notification for a no-op undo")
	}
}

func TestHistoryIsBounded(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	for i := 0; i < 11; i++ {
		addBeer(t, svc, ctx)
	}
	if got := len(svc.History(ctx).Undo); got != 10 {
		t.Fatalf("expected 10 undo entries, got %d", got)
	}
}

func TestReturnsReconcileSold(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	beer := addBeer(t, svc, ctx)

	updated, err := svc.UpdateProductReturns(ctx, beer.ID, domain.ReturnsUpdateRequest{ReturnedPackages: 2, RemainingUnits: 10})
	if err != nil {
		t.Fatalf("update returns: %v", err)
	}
	if updated.Sold != 134 {
		t.Fatalf("expected 6*24-10=134 sold, got %d", updated.Sold)
	}
	sales := svc.ListSales(ctx)
	if len(sales) != 1 || !sales[0].Total.Equal(dec("1072")) {
		t.Fatalf("expected sale of 134*8=1072, got %+v", sales)
	}

	shirt, err := svc.AddProduct(ctx, domain.ProductCreateRequest{
		Name:            "T-shirt",
		Channel:         domain.ChannelShop,
		Mode:            domain.ModeUnit,
		PackageQuantity: 50,
		SalePrice:       dec("35"),
		PurchasePrice:   decimal.NewNullDecimal(dec("15")),
	})
	if err != nil {
		t.Fatalf("add shirt: %v", err)
	}
	updated, err = svc.UpdateProductReturns(ctx, shirt.ID, domain.ReturnsUpdateRequest{ReturnedPackages: 20})
	if err != nil {
		t.Fatalf("update shirt returns: %v", err)
	}
	if updated.Sold != 30 {
		t.Fatalf("expected 30 shirts sold, got %d", updated.Sold)
	}

	_, err = svc.UpdateProductReturns(ctx, shirt.ID, domain.ReturnsUpdateRequest{ReturnedPackages: 51})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected over-return to be rejected, got %v", err)
	}
}

func TestReturnsRejectMoreRemainingThanKept(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	pin, err := svc.AddProduct(ctx, domain.ProductCreateRequest{
		Name:            "Pin",
		Channel:         domain.ChannelShop,
		Mode:            domain.ModeUnit,
		PackageQuantity: 10,
		SalePrice:       dec("35"),
		PurchasePrice:   decimal.NewNullDecimal(dec("21")),
	})
	if err != nil {
		t.Fatalf("add pin: %v", err)
	}

	_, err = svc.UpdateProductReturns(ctx, pin.ID, domain.ReturnsUpdateRequest{RemainingUnits: 1000})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected remaining above stock to be rejected, got %v", err)
	}
	_, err = svc.UpdateProductReturns(ctx, pin.ID, domain.ReturnsUpdateRequest{ReturnedPackages: 4, RemainingUnits: 7})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected remaining above kept units to be rejected, got %v", err)
	}
	if leftover := svc.Summary(ctx).LeftoverValue; !leftover.IsZero() {
		t.Fatalf("expected no leftover value after rejected returns, got %s", leftover)
	}

	updated, err := svc.UpdateProductReturns(ctx, pin.ID, domain.ReturnsUpdateRequest{ReturnedPackages: 4, RemainingUnits: 6})
	if err != nil {
		t.Fatalf("update returns: %v", err)
	}
	if updated.Sold != 6 || updated.RemainingUnits != 6 {
		t.Fatalf("expected 6 sold and 6 remaining, got %+v", updated)
	}
}

func TestMutationsPersistAndReload(t *testing.T) {
	svc, snapshots := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{AccountID: "alice"})
	beer := addBeer(t, svc, ctx)
	if _, err := svc.UpdateProductSale(ctx, beer.ID, domain.SaleUpdateRequest{Sold: 12}); err != nil {
		t.Fatalf("update sale: %v", err)
	}
	if snapshots.Saves() < 2 {
		t.Fatalf("expected a save per mutation, got %d", snapshots.Saves())
	}

	reloaded := New(snapshots, recommendation.NewEngine(50), 10, "tester")
	products := reloaded.ListProducts(ctx)
	if len(products) != 1 || products[0].Sold != 12 {
		t.Fatalf("expected persisted product, got %+v", products)
	}
	history := reloaded.History(ctx)
	if len(history.Undo) != 2 || history.CanRedo {
		t.Fatalf("expected 2 persisted undo entries and empty redo, got %+v", history)
	}

	if _, err := reloaded.Undo(ctx); err != nil {
		t.Fatalf("undo after reload: %v", err)
	}
	if reloaded.ListProducts(ctx)[0].Sold != 0 || len(reloaded.ListSales(ctx)) != 0 {
		t.Fatalf("expected persisted action to undo cleanly")
	}
}

func TestAccountsAreIsolated(t *testing.T) {
	svc, _ := newTestService()
	alice := WithActor(context.Background(), domain.Actor{AccountID: "alice"})
	bob := WithActor(context.Background(), domain.Actor{AccountID: "bob"})

	addBeer(t, svc, alice)
	if len(svc.ListProducts(bob)) != 0 {
		t.Fatalf("expected bob to see no products")
	}
	if len(svc.ListProducts(alice)) != 1 {
		t.Fatalf("expected alice to see her product")
	}
}

type failingStore struct{}

func (failingStore) Load(context.Context, string) (domain.Snapshot, error) {
	return nil, errors.New("offline")
}

func (failingStore) Save(context.Context, string, domain.Snapshot) error {
	return errors.New("offline")
}

func TestPersistenceFailureIsNotSurfaced(t *testing.T) {
	svc := New(failingStore{}, recommendation.NewEngine(50), 10, "")
	ctx := context.Background()

	beer := addBeer(t, svc, ctx)
	if _, err := svc.UpdateProductSale(ctx, beer.ID, domain.SaleUpdateRequest{Sold: 1}); err != nil {
		t.Fatalf("expected update to succeed without storage, got %v", err)
	}
	if len(svc.ListExpenseCategories(ctx)) != 7 {
		t.Fatalf("expected seeded ledger when storage is unavailable")
	}
}

// flakyStore fails the first failLoads loads and then reads through.
type flakyStore struct {
	*memory.Store
	failLoads int
}

func (f *flakyStore) Load(ctx context.Context, accountID string) (domain.Snapshot, error) {
	if f.failLoads > 0 {
		f.failLoads--
		return nil, errors.New("timeout")
	}
	return f.Store.Load(ctx, accountID)
}

func TestFailedLoadDoesNotOverwriteStoredLedger(t *testing.T) {
	svc, snapshots := newTestService()
	ctx := context.Background()
	addBeer(t, svc, ctx)

	flaky := &flakyStore{Store: snapshots, failLoads: 1}
	restarted := New(flaky, recommendation.NewEngine(50), 10, "tester")
	if err := restarted.MarkAllNotificationsRead(ctx); err != nil {
		t.Fatalf("mark all read: %v", err)
	}

	snap, err := snapshots.Load(ctx, "tester")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	ledger, _, err := domain.DecodeSnapshot(snap)
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(ledger.Products) != 1 {
		t.Fatalf("expected stored product to survive a failed load, got %d products", len(ledger.Products))
	}

	products := restarted.ListProducts(ctx)
	if len(products) != 1 || products[0].Name != "Beer" {
		t.Fatalf("expected the next request to reload the stored ledger, got %+v", products)
	}
}

func TestNullExpenseCategoriesAreReseeded(t *testing.T) {
	snapshots := memory.New()
	ctx := context.Background()
	if err := snapshots.Save(ctx, "tester", domain.Snapshot{
		domain.KeyExpenseCategories: []byte("null"),
		domain.KeyProducts:          []byte("[]"),
	}); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	svc := New(snapshots, recommendation.NewEngine(50), 10, "tester")
	if got := len(svc.ListExpenseCategories(ctx)); got != 7 {
		t.Fatalf("expected 7 default categories for a null key, got %d", got)
	}
}

func TestTicketAndExpenseUpdatesFeedSummary(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	sold := 100
	cost := dec("1000")
	if _, err := svc.UpdateTicketInfo(ctx, domain.TicketInfoUpdateRequest{TicketsSold: &sold, EventTotalCost: &cost}); err != nil {
		t.Fatalf("update ticket info: %v", err)
	}
	negative := -1
	if _, err := svc.UpdateTicketInfo(ctx, domain.TicketInfoUpdateRequest{TicketsSold: &negative}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected negative tickets to be rejected, got %v", err)
	}

	categories := svc.ListExpenseCategories(ctx)
	item, err := svc.AddExpenseItem(ctx, categories[0].ID, domain.ExpenseItemCreateRequest{Description: "Balloons", Amount: dec("250")})
	if err != nil {
		t.Fatalf("add expense item: %v", err)
	}
	if _, err := svc.AddExpense(ctx, domain.ExpenseCreateRequest{Description: "Security", Amount: dec("750")}); err != nil {
		t.Fatalf("add expense: %v", err)
	}
	if _, err := svc.AddRevenue(ctx, domain.RevenueCreateRequest{Description: "Sponsor", Amount: dec("500")}); err != nil {
		t.Fatalf("add revenue: %v", err)
	}

	summary := svc.Summary(ctx)
	if !summary.TotalRevenue.Equal(dec("5500")) {
		t.Fatalf("expected revenue 50*100+500=5500, got %s", summary.TotalRevenue)
	}
	if !summary.TotalExpenses.Equal(dec("2000")) {
		t.Fatalf("expected expenses 250+750+1000=2000, got %s", summary.TotalExpenses)
	}
	if summary.ProfitLabel != domain.ProfitLabelProfit || !summary.AmountNeeded.IsZero() {
		t.Fatalf("expected a funded event, got %+v", summary)
	}
	if rec := svc.Recommend(ctx, nil); !rec.Funded {
		t.Fatalf("expected funded recommendation")
	}

	if err := svc.RemoveExpenseItem(ctx, categories[0].ID, item.ID); err != nil {
		t.Fatalf("remove expense item: %v", err)
	}
	if err := svc.RemoveExpenseItem(ctx, categories[0].ID, item.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second remove, got %v", err)
	}
}

func TestNotificationsMarkRead(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	addBeer(t, svc, ctx)
	addBeer(t, svc, ctx)

	notifications := svc.ListNotifications(ctx)
	if err := svc.MarkNotificationRead(ctx, notifications[1].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	notifications = svc.ListNotifications(ctx)
	if notifications[0].Read || !notifications[1].Read {
		t.Fatalf("expected only the second notification to be read")
	}
	if err := svc.MarkAllNotificationsRead(ctx); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	for _, n := range svc.ListNotifications(ctx) {
		if !n.Read {
			t.Fatalf("expected all notifications read")
		}
	}
	if err := svc.MarkNotificationRead(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReportCarriesChannelRevenue(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	beer := addBeer(t, svc, ctx)
	if _, err := svc.UpdateProductSale(ctx, beer.ID, domain.SaleUpdateRequest{Sold: 45}); err != nil {
		t.Fatalf("update sale: %v", err)
	}

	report := svc.Report(ctx)
	if !report.Summary.BarRevenue.Equal(dec("360")) || !report.Summary.ShopRevenue.IsZero() {
		t.Fatalf("unexpected report summary %+v", report.Summary)
	}
	if len(report.Products) != 1 || len(report.Sales) != 1 || report.GeneratedAt.IsZero() {
		t.Fatalf("unexpected report body %+v", report)
	}
}
