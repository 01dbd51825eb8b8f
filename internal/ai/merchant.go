package ai

import (
	"math"
	"sort"

	"github.com/talgya/tradewinds/internal/economy"
	"github.com/talgya/tradewinds/internal/social"
)

// Buy/sell thresholds on market trend (price ÷ base price), supply/demand
// ratio and good volatility.
const (
	cheapTrend        = 0.5
	fairTrend         = 0.7
	dearTrend         = 1.3
	demandRatioSell   = 1.3
	stableVolatility  = 0.3
	buyVolatilityCeil = 0.4
)

const (
	maxRisk             = 0.9
	riskPerDistance     = 0.001
	defaultHoldCapacity = 100.0
)

// Route is a profitable pairing of a source and destination city.
type Route struct {
	From   social.CityID    `json:"from"`
	To     social.CityID    `json:"to"`
	Goods  []economy.GoodID `json:"goods"`
	Profit float64          `json:"profit"` // Expected, already discounted by risk
	Risk   float64          `json:"risk"`
}

// Merchant scores goods and routes from live market state. Scores are memoised
// until the next Update.
type Merchant struct {
	catalog  *economy.Catalog
	world    World
	capacity float64 // Cargo weight per voyage

	gen   Generation
	trend *memo[cityGood, trendValue]
	ratio *memo[cityGood, float64]
	risk  *memo[cityPair, float64]
}

type trendValue struct {
	value float64
	ok    bool
}

// NewMerchant returns a merchant with the given hold capacity (weight units).
// A non-positive capacity uses the default of 100.
func NewMerchant(cat *economy.Catalog, world World, capacity float64) *Merchant {
	if capacity <= 0 {
		capacity = defaultHoldCapacity
	}
	m := &Merchant{catalog: cat, world: world, capacity: capacity}
	m.trend = newMemo[cityGood, trendValue](&m.gen)
	m.ratio = newMemo[cityGood, float64](&m.gen)
	m.risk = newMemo[cityPair, float64](&m.gen)
	return m
}

// Update starts a new tick; every memoised score is recomputed on next access.
func (m *Merchant) Update(dt float64) {
	m.gen.Advance()
}

// MarketTrend is the city's effective price divided by the catalog base price.
// ok is false when the city does not price the good or the base price is zero.
func (m *Merchant) MarketTrend(c *social.City, id economy.GoodID) (float64, bool) {
	t := m.trend.get(cityGood{c.ID, id}, func() trendValue {
		g, ok := m.catalog.Get(id)
		if !ok || g.BasePrice == 0 {
			return trendValue{}
		}
		price, ok := c.GoodPrice(id)
		if !ok {
			return trendValue{}
		}
		return trendValue{value: price / float64(g.BasePrice), ok: true}
	})
	return t.value, t.ok
}

// DemandRatio compares local demand to stock. Demand is population/100,
// doubled in consumer cities and halved in producer cities, at least 1.
func (m *Merchant) DemandRatio(c *social.City, id economy.GoodID) float64 {
	return m.ratio.get(cityGood{c.ID, id}, func() float64 {
		demand := float64(c.Population) / 100
		if g, ok := m.catalog.Get(id); ok {
			if g.ConsumedBy(c.Type) {
				demand *= 2
			}
			if g.ProducedBy(c.Type) {
				demand *= 0.5
			}
		}
		demand = max(demand, 1)
		supply := max(float64(c.Stock(id)), 1)
		return demand / supply
	})
}

// Volatility returns the catalog volatility of a good (0 when unknown).
func (m *Merchant) Volatility(id economy.GoodID) float64 {
	g, ok := m.catalog.Get(id)
	if !ok {
		return 0
	}
	return g.Volatility
}

// RiskLevel estimates voyage risk from distance and the destination's
// stability, in [0, 0.9].
func (m *Merchant) RiskLevel(from, to *social.City) float64 {
	return m.risk.get(cityPair{from.ID, to.ID}, func() float64 {
		r := social.Distance(from, to)*riskPerDistance + (100-to.Stability)/200
		return min(max(r, 0), maxRisk)
	})
}

// ShouldBuyGood reports whether the city sells the good cheaply enough.
func (m *Merchant) ShouldBuyGood(c *social.City, id economy.GoodID) bool {
	if c.Stock(id) <= 0 {
		return false
	}
	trend, ok := m.MarketTrend(c, id)
	if !ok {
		return false
	}
	return trend < cheapTrend || (trend < fairTrend && m.Volatility(id) < buyVolatilityCeil)
}

// ShouldSellGood reports whether the city pays well or is short of the good.
func (m *Merchant) ShouldSellGood(c *social.City, id economy.GoodID) bool {
	trend, ok := m.MarketTrend(c, id)
	if !ok {
		return false
	}
	if trend > dearTrend {
		return true
	}
	return m.DemandRatio(c, id) > demandRatioSell && trend > fairTrend && m.Volatility(id) <= stableVolatility
}

// OptimalQuantity is the most the merchant can buy: city stock, bounded by
// hold capacity over unit weight.
func (m *Merchant) OptimalQuantity(c *social.City, id economy.GoodID) int {
	stock := c.Stock(id)
	g, ok := m.catalog.Get(id)
	if !ok || g.Weight <= 0 {
		return stock
	}
	return min(stock, int(math.Floor(m.capacity/g.Weight)))
}

// CalculateRouteProfit sums (sell − buy) × quantity over every good worth
// carrying from one city to the other, discounted by 1 − risk. It also returns
// the goods that qualified.
func (m *Merchant) CalculateRouteProfit(from, to *social.City) (float64, []economy.GoodID) {
	var (
		profit float64
		goods  []economy.GoodID
	)
	for _, id := range stockedGoods(from) {
		if !m.ShouldBuyGood(from, id) || !m.ShouldSellGood(to, id) {
			continue
		}
		buy, _ := from.GoodPrice(id)
		sell, _ := to.GoodPrice(id)
		profit += (sell - buy) * float64(m.OptimalQuantity(from, id))
		goods = append(goods, id)
	}
	return profit * (1 - m.RiskLevel(from, to)), goods
}

// FindBestTradeRoutes lists routes out of current with at least one qualifying
// good, most profitable first.
func (m *Merchant) FindBestTradeRoutes(current *social.City) []Route {
	var routes []Route
	for _, dest := range m.world.Cities() {
		if dest.ID == current.ID {
			continue
		}
		profit, goods := m.CalculateRouteProfit(current, dest)
		if len(goods) == 0 {
			continue
		}
		routes = append(routes, Route{
			From:   current.ID,
			To:     dest.ID,
			Goods:  goods,
			Profit: profit,
			Risk:   m.RiskLevel(current, dest),
		})
	}
	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].Profit > routes[j].Profit
	})
	return routes
}

func stockedGoods(c *social.City) []economy.GoodID {
	ids := make([]economy.GoodID, 0, len(c.Availability))
	for id, qty := range c.Availability {
		if qty > 0 {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}
