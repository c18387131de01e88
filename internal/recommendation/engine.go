package recommendation

import (
	"github.com/shopspring/decimal"

	"eventcontrol/backend/internal/domain"
	"eventcontrol/backend/internal/metrics"
)

var hundred = decimal.NewFromInt(100)

// Engine turns the break-even shortfall into a sales mix. The weight is the
// bar/shop slider: 0 puts the whole shortfall on the bar, 100 on the shop.
// It is a linear allocation, not an optimiser; every count is rounded up so
// following the plan exactly always covers the shortfall.
type Engine struct {
	defaultWeight int
}

func NewEngine(defaultWeight int) *Engine {
	return &Engine{defaultWeight: clamp(defaultWeight, 0, 100)}
}

func (e *Engine) DefaultWeight() int {
	return e.defaultWeight
}

func (e *Engine) Recommend(l *domain.Ledger, weight int) domain.MixRecommendation {
	weight = clamp(weight, 0, 100)
	amountNeeded := metrics.AmountNeededToBreakEven(l)

	resp := domain.MixRecommendation{
		AmountNeeded:      amountNeeded,
		Weight:            weight,
		AverageBarProfit:  decimal.Zero,
		AverageShopProfit: decimal.Zero,
		Targets:           []domain.ProductTarget{},
	}
	if !amountNeeded.IsPositive() {
		resp.Funded = true
		return resp
	}

	bar := summarize(l.ProductsIn(domain.ChannelBar))
	shop := summarize(l.ProductsIn(domain.ChannelShop))
	resp.AverageBarProfit = bar.average()
	resp.AverageShopProfit = shop.average()

	resp.ProductsNeeded = domain.ProductsNeeded{
		Bar:   bar.unitsFor(amountNeeded),
		Shop:  shop.unitsFor(amountNeeded),
		Mixed: mixedUnits(amountNeeded, bar, shop, weight),
	}

	resp.Targets = append(resp.Targets, targets(bar, amountNeeded, decimal.NewFromInt(int64(100-weight)))...)
	resp.Targets = append(resp.Targets, targets(shop, amountNeeded, decimal.NewFromInt(int64(weight)))...)
	return resp
}

type channelStats struct {
	products  []domain.Product
	profitSum decimal.Decimal
}

func summarize(products []domain.Product) channelStats {
	stats := channelStats{products: products, profitSum: decimal.Zero}
	for _, p := range products {
		stats.profitSum = stats.profitSum.Add(p.UnitProfit())
	}
	return stats
}

func (c channelStats) count() decimal.Decimal {
	return decimal.NewFromInt(int64(len(c.products)))
}

func (c channelStats) average() decimal.Decimal {
	if len(c.products) == 0 {
		return decimal.Zero
	}
	return c.profitSum.Div(c.count())
}

func (c channelStats) profitable() bool {
	return len(c.products) > 0 && c.profitSum.IsPositive()
}

// unitsFor is ceil(amount / averageProfit), computed as amount*n/sum so the
// average is never rounded before the final division.
func (c channelStats) unitsFor(amount decimal.Decimal) int64 {
	if !c.profitable() {
		return 0
	}
	return ceil(amount.Mul(c.count()).Div(c.profitSum))
}

// mixedUnits is ceil(amount / (avgBar*(100-w)/100 + avgShop*w/100)) with both
// averages expanded over their product counts.
func mixedUnits(amount decimal.Decimal, bar, shop channelStats, weight int) int64 {
	if !bar.profitable() || !shop.profitable() {
		return 0
	}
	barWeight := decimal.NewFromInt(int64(100 - weight))
	shopWeight := decimal.NewFromInt(int64(weight))

	numerator := amount.Mul(hundred).Mul(bar.count()).Mul(shop.count())
	denominator := bar.profitSum.Mul(shop.count()).Mul(barWeight).
		Add(shop.profitSum.Mul(bar.count()).Mul(shopWeight))
	return ceil(numerator.Div(denominator))
}

// targets splits the channel's share of the shortfall evenly over all of its
// products; only products that earn something per unit get a target.
func targets(c channelStats, amount decimal.Decimal, channelWeight decimal.Decimal) []domain.ProductTarget {
	if len(c.products) == 0 || !channelWeight.IsPositive() {
		return nil
	}

	out := make([]domain.ProductTarget, 0, len(c.products))
	for _, p := range c.products {
		profit := p.UnitProfit()
		if !profit.IsPositive() {
			continue
		}
		qty := ceil(amount.Mul(channelWeight).Div(hundred.Mul(c.count()).Mul(profit)))
		if qty < 1 {
			continue
		}
		units := decimal.NewFromInt(qty)
		out = append(out, domain.ProductTarget{
			ProductID:      p.ID,
			Name:           p.Name,
			Channel:        p.Channel,
			SalePrice:      p.SalePrice,
			UnitProfit:     profit,
			NeededQuantity: qty,
			NeededRevenue:  units.Mul(p.SalePrice),
			NeededProfit:   units.Mul(profit),
		})
	}
	return out
}

func ceil(val decimal.Decimal) int64 {
	return val.Ceil().IntPart()
}

func clamp(val int, minVal int, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}
