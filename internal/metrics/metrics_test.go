package metrics

import (
	"testing"

	"github.com/shopspring/decimal"

	"eventcontrol/backend/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func beer() domain.Product {
	return domain.Product{
		ID:              "p-beer",
		Name:            "Craft Beer",
		Channel:         domain.ChannelBar,
		Mode:            domain.ModePackage,
		PurchasePrice:   dec("3.50"),
		UnitPrice:       dec("3.50"),
		PackagePrice:    dec("84.00"),
		PackageUnits:    24,
		SalePrice:       dec("8.00"),
		Quantity:        192,
		PackageQuantity: 8,
		Sold:            45,
	}
}

func tshirt() domain.Product {
	return domain.Product{
		ID:              "p-shirt",
		Name:            "Event T-shirt",
		Channel:         domain.ChannelShop,
		Mode:            domain.ModeUnit,
		PurchasePrice:   dec("15.00"),
		UnitPrice:       dec("15.00"),
		PackagePrice:    dec("15.00"),
		PackageUnits:    1,
		SalePrice:       dec("35.00"),
		Quantity:        100,
		PackageQuantity: 100,
		Sold:            23,
	}
}

func sampleLedger() *domain.Ledger {
	l := domain.NewLedger()
	l.Products = []domain.Product{beer(), tshirt()}
	l.Sales = []domain.Sale{
		{ID: "s1", ProductID: "p-beer", Quantity: 45, UnitPrice: dec("8.00"), Total: dec("360.00"), Channel: domain.ChannelBar},
		{ID: "s2", ProductID: "p-shirt", Quantity: 23, UnitPrice: dec("35.00"), Total: dec("805.00"), Channel: domain.ChannelShop},
	}
	l.Revenues = []domain.Revenue{{ID: "r1", Description: "Sponsor", Amount: dec("500")}}
	l.Expenses = []domain.Expense{{ID: "e1", Description: "Sound", Amount: dec("1200")}}
	l.ExpenseCategories = []domain.ExpenseCategory{{
		ID:   "c1",
		Name: "Hotel",
		Items: []domain.ExpenseItem{
			{ID: "i1", Description: "Room", Amount: dec("300")},
			{ID: "i2", Description: "Breakfast", Amount: dec("45.50")},
		},
	}}
	l.TicketInfo = domain.TicketInfo{
		CurrentTicketPrice: dec("50"),
		TicketsSold:        100,
		EventTotalCost:     dec("15000"),
	}
	return l
}

func TestTotalRevenueIncludesSalesRevenuesAndTickets(t *testing.T) {
	l := sampleLedger()

	got := TotalRevenue(l)
	// 360 + 805 + 500 + 50*100
	if want := dec("6665"); !got.Equal(want) {
		t.Fatalf("expected total revenue %s, got %s", want, got)
	}
}

func TestTotalExpensesIncludesKeptPackagesCategoriesAndEventCost(t *testing.T) {
	l := sampleLedger()

	got := TotalExpenses(l)
	// 1200 + 84*8 + 15*100 + 345.50 + 15000
	if want := dec("18717.50"); !got.Equal(want) {
		t.Fatalf("expected total expenses %s, got %s", want, got)
	}

	l.Products[0].ReturnedPackages = 3
	got = TotalExpenses(l)
	if want := dec("18465.50"); !got.Equal(want) {
		t.Fatalf("expected returned packages to reduce expenses to %s, got %s", want, got)
	}
}

func TestNetProfitAndLabel(t *testing.T) {
	l := sampleLedger()

	net := NetProfit(l)
	if want := dec("-12052.50"); !net.Equal(want) {
		t.Fatalf("expected net profit %s, got %s", want, net)
	}
	if ProfitLabel(net) != domain.ProfitLabelOwed {
		t.Fatalf("expected owed label for negative net, got %q", ProfitLabel(net))
	}
	if ProfitLabel(decimal.Zero) != domain.ProfitLabelProfit {
		t.Fatalf("expected profit label for zero net")
	}
}

func TestChannelProfitCountsUnsoldPackagesUnlessReturned(t *testing.T) {
	l := sampleLedger()

	if got := ChannelRevenue(l, domain.ChannelBar); !got.Equal(dec("360")) {
		t.Fatalf("expected bar revenue 360, got %s", got)
	}
	if got := ChannelProfit(l, domain.ChannelBar); !got.Equal(dec("-312")) {
		t.Fatalf("expected bar profit -312 with no returns, got %s", got)
	}

	l.Products[0].ReturnedPackages = 3
	if got := ChannelInvestment(l, domain.ChannelBar); !got.Equal(dec("420")) {
		t.Fatalf("expected bar investment 420 after returns, got %s", got)
	}
	if got := ChannelProfit(l, domain.ChannelBar); !got.Equal(dec("-60")) {
		t.Fatalf("expected bar profit -60 after returns, got %s", got)
	}
}

func TestChannelMargin(t *testing.T) {
	l := domain.NewLedger()
	p := beer()
	p.PackagePrice = dec("90")
	p.PackageQuantity = 2
	l.Products = []domain.Product{p}
	l.Sales = []domain.Sale{{ID: "s1", ProductID: p.ID, Quantity: 45, Total: dec("360"), Channel: domain.ChannelBar}}

	if got := ChannelMargin(l, domain.ChannelBar); !got.Equal(dec("50")) {
		t.Fatalf("expected bar margin 50, got %s", got)
	}
	if got := ChannelMargin(l, domain.ChannelShop); !got.IsZero() {
		t.Fatalf("expected zero margin for channel without revenue, got %s", got)
	}
}

func TestNetRevenueAndLeftoverValue(t *testing.T) {
	l := sampleLedger()
	l.Products[0].RemainingUnits = 10

	if got := NetRevenue(l, domain.ChannelBar); !got.Equal(dec("202.50")) {
		t.Fatalf("expected bar net revenue 202.50, got %s", got)
	}
	if got := NetRevenue(l, ""); !got.Equal(dec("662.50")) {
		t.Fatalf("expected total net revenue 662.50, got %s", got)
	}
	if got := LeftoverValue(l, ""); !got.Equal(dec("35")) {
		t.Fatalf("expected leftover value 35, got %s", got)
	}
	if got := LeftoverValue(l, domain.ChannelShop); !got.IsZero() {
		t.Fatalf("expected no shop leftovers, got %s", got)
	}
}

func TestAmountNeededToBreakEvenIsClamped(t *testing.T) {
	l := sampleLedger()
	if got := AmountNeededToBreakEven(l); !got.Equal(dec("12052.50")) {
		t.Fatalf("expected shortfall 12052.50, got %s", got)
	}

	l.TicketInfo.TicketsSold = 1000
	if got := AmountNeededToBreakEven(l); !got.IsZero() {
		t.Fatalf("expected zero shortfall once funded, got %s", got)
	}
	if NetProfit(l).IsNegative() {
		t.Fatalf("expected positive net profit once funded")
	}
}

func TestSummarizeMatchesIndividualFigures(t *testing.T) {
	l := sampleLedger()
	s := Summarize(l)

	if !s.TotalRevenue.Equal(TotalRevenue(l)) || !s.TotalExpenses.Equal(TotalExpenses(l)) {
		t.Fatalf("summary totals disagree with metric functions")
	}
	if !s.AmountNeeded.Equal(AmountNeededToBreakEven(l)) {
		t.Fatalf("expected summary shortfall %s, got %s", AmountNeededToBreakEven(l), s.AmountNeeded)
	}
	if s.ProfitLabel != domain.ProfitLabelOwed {
		t.Fatalf("expected owed label, got %q", s.ProfitLabel)
	}
	if !s.Shop.Revenue.Equal(dec("805")) || s.Shop.Channel != domain.ChannelShop {
		t.Fatalf("unexpected shop summary: %+v", s.Shop)
	}
	if !s.GrossRevenue.Equal(dec("1165")) {
		t.Fatalf("expected gross revenue 1165, got %s", s.GrossRevenue)
	}
}
