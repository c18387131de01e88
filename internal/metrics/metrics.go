// Package metrics derives the event's financial figures from a ledger.
// Every function is a pure read: nothing here mutates the ledger and nothing
// is cached, so callers recompute on each request.
package metrics

import (
	"github.com/shopspring/decimal"

	"eventcontrol/backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// TotalRevenue is product sales plus extra revenues plus ticket sales.
func TotalRevenue(l *domain.Ledger) decimal.Decimal {
	total := decimal.Zero
	for _, sale := range l.Sales {
		total = total.Add(sale.Total)
	}
	for _, rev := range l.Revenues {
		total = total.Add(rev.Amount)
	}
	return total.Add(l.TicketInfo.TicketRevenue())
}

// TotalExpenses is ad-hoc expenses, the cost of kept packages, every
// expense-category item and the fixed event cost.
func TotalExpenses(l *domain.Ledger) decimal.Decimal {
	total := decimal.Zero
	for _, exp := range l.Expenses {
		total = total.Add(exp.Amount)
	}
	for _, p := range l.Products {
		total = total.Add(p.Investment())
	}
	for _, c := range l.ExpenseCategories {
		total = total.Add(c.Total())
	}
	return total.Add(l.TicketInfo.EventTotalCost)
}

func NetProfit(l *domain.Ledger) decimal.Decimal {
	return TotalRevenue(l).Sub(TotalExpenses(l))
}

// ProfitLabel names a net profit figure the way it is shown to the user.
func ProfitLabel(net decimal.Decimal) string {
	if net.IsNegative() {
		return domain.ProfitLabelOwed
	}
	return domain.ProfitLabelProfit
}

func ChannelRevenue(l *domain.Ledger, ch domain.Channel) decimal.Decimal {
	total := decimal.Zero
	for _, sale := range l.Sales {
		if sale.Channel == ch {
			total = total.Add(sale.Total)
		}
	}
	return total
}

func ChannelInvestment(l *domain.Ledger, ch domain.Channel) decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.ProductsIn(ch) {
		total = total.Add(p.Investment())
	}
	return total
}

func ChannelProfit(l *domain.Ledger, ch domain.Channel) decimal.Decimal {
	return ChannelRevenue(l, ch).Sub(ChannelInvestment(l, ch))
}

// ChannelMargin is profit over revenue in percent, 0 when nothing was sold.
func ChannelMargin(l *domain.Ledger, ch domain.Channel) decimal.Decimal {
	revenue := ChannelRevenue(l, ch)
	if !revenue.IsPositive() {
		return decimal.Zero
	}
	return ChannelProfit(l, ch).Mul(hundred).Div(revenue)
}

// GrossRevenue is sale price times sold over the products of ch (all when empty).
func GrossRevenue(l *domain.Ledger, ch domain.Channel) decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.ProductsIn(ch) {
		total = total.Add(p.SalePrice.Mul(decimal.NewFromInt(int64(p.Sold))))
	}
	return total
}

// NetRevenue is gross revenue minus the purchase cost of the units sold.
func NetRevenue(l *domain.Ledger, ch domain.Channel) decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.ProductsIn(ch) {
		sold := decimal.NewFromInt(int64(p.Sold))
		total = total.Add(p.SalePrice.Mul(sold).Sub(p.PurchasePrice.Mul(sold)))
	}
	return total
}

// LeftoverValue prices the loose units left over at purchase cost.
func LeftoverValue(l *domain.Ledger, ch domain.Channel) decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.ProductsIn(ch) {
		total = total.Add(p.PurchasePrice.Mul(decimal.NewFromInt(int64(p.RemainingUnits))))
	}
	return total
}

// AmountNeededToBreakEven is the break-even shortfall, never negative.
func AmountNeededToBreakEven(l *domain.Ledger) decimal.Decimal {
	return decimal.Max(decimal.Zero, TotalExpenses(l).Sub(TotalRevenue(l)))
}

func Channel(l *domain.Ledger, ch domain.Channel) domain.ChannelSummary {
	return domain.ChannelSummary{
		Channel:      ch,
		Revenue:      ChannelRevenue(l, ch),
		Investment:   ChannelInvestment(l, ch),
		Profit:       ChannelProfit(l, ch),
		Margin:       ChannelMargin(l, ch),
		GrossRevenue: GrossRevenue(l, ch),
		NetRevenue:   NetRevenue(l, ch),
		Leftover:     LeftoverValue(l, ch),
	}
}

func Summarize(l *domain.Ledger) domain.Summary {
	revenue := TotalRevenue(l)
	expenses := TotalExpenses(l)
	net := revenue.Sub(expenses)

	return domain.Summary{
		TotalRevenue:  revenue,
		TotalExpenses: expenses,
		NetProfit:     net,
		ProfitLabel:   ProfitLabel(net),
		AmountNeeded:  decimal.Max(decimal.Zero, net.Neg()),
		TicketRevenue: l.TicketInfo.TicketRevenue(),
		GrossRevenue:  GrossRevenue(l, ""),
		NetRevenue:    NetRevenue(l, ""),
		LeftoverValue: LeftoverValue(l, ""),
		Bar:           Channel(l, domain.ChannelBar),
		Shop:          Channel(l, domain.ChannelShop),
	}
}

// ReportSummary is the headline block of an exported report.
func ReportSummary(l *domain.Ledger) domain.ReportSummary {
	return domain.ReportSummary{
		TotalRevenue:  TotalRevenue(l),
		TotalExpenses: TotalExpenses(l),
		NetProfit:     NetProfit(l),
		BarRevenue:    ChannelRevenue(l, domain.ChannelBar),
		ShopRevenue:   ChannelRevenue(l, domain.ChannelShop),
	}
}
