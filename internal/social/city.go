// Package social provides cities, kingdoms and the local rules that move them.
package social

import (
	"errors"
	"math"
	"sort"

	"github.com/talgya/tradewinds/internal/economy"
	"github.com/talgya/tradewinds/internal/entropy"
)

// CityID is a unique identifier for a city.
type CityID = int

// PlayerFaction is the faction tag owned by the human player.
const PlayerFaction = "Player"

// Market bounds.
const (
	MinGoodPrice      = 1.0
	MaxGoodPrice      = 1000.0
	MinMarketModifier = 0.5
	MaxMarketModifier = 2.0
	DefaultSellPrice  = 10.0 // Price assigned to a good first sold into a city
	saleWealthShare   = 0.10 // Fraction of a sale credited to city wealth
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInsufficientStock = errors.New("city has insufficient stock")
	ErrStockCapExceeded  = errors.New("city stock cap exceeded")
)

// Resource is a named stockpile held by a city (not traded on the market).
type Resource struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// City is a trading port with its own market, demographics and facilities.
type City struct {
	ID     CityID  `json:"id"`
	Name   string  `json:"name"`
	Type   string  `json:"type"` // economy.City* tag
	Region string  `json:"region"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`

	// Demographics and economy
	Population   int     `json:"population"`
	Wealth       int     `json:"wealth"`
	Influence    int     `json:"influence"`
	Stability    float64 `json:"stability"`     // 0–100
	DefenseLevel int     `json:"defense_level"`
	LoyaltyLevel float64 `json:"loyalty_level"` // 0–100
	TaxRate      int     `json:"tax_rate"`      // 0–30 percent
	Faction      string  `json:"faction"`

	// Commerce
	PortCapacity   int     `json:"port_capacity"`
	TradingVolume  int     `json:"trading_volume"`
	MarketModifier float64 `json:"market_modifier"` // 0.5–2.0
	StockCap       int     `json:"stock_cap"`       // Per-good ceiling on sells; 0 = unlimited

	Prices       map[economy.GoodID]float64 `json:"prices"`
	Availability map[economy.GoodID]int     `json:"availability"`
	Resources    map[string]Resource        `json:"resources"`

	AvailableShips []string   `json:"available_ships"`
	Facilities     Facilities `json:"facilities"`
}

// NewCity returns a city with neutral defaults and empty markets.
func NewCity(id CityID, name, cityType string) *City {
	return &City{
		ID:             id,
		Name:           name,
		Type:           cityType,
		Population:     1000,
		Wealth:         1000,
		Stability:      50,
		DefenseLevel:   10,
		LoyaltyLevel:   50,
		TaxRate:        10,
		Faction:        "Neutral",
		MarketModifier: 1.0,
		Prices:         make(map[economy.GoodID]float64),
		Availability:   make(map[economy.GoodID]int),
		Resources:      make(map[string]Resource),
	}
}

// GoodPrice returns the effective price (stored price × market modifier).
// ok is false when the city does not track the good.
func (c *City) GoodPrice(id economy.GoodID) (float64, bool) {
	p, ok := c.Prices[id]
	if !ok {
		return 0, false
	}
	return p * c.MarketModifier, true
}

// SetGoodPrice stores a raw (pre-modifier) price.
func (c *City) SetGoodPrice(id economy.GoodID, price float64) {
	c.Prices[id] = clamp(price, MinGoodPrice, MaxGoodPrice)
}

// Stock returns the stocked quantity of a good (0 when absent).
func (c *City) Stock(id economy.GoodID) int {
	return c.Availability[id]
}

// Trades reports whether the city currently stocks the good.
func (c *City) Trades(id economy.GoodID) bool {
	_, ok := c.Availability[id]
	return ok
}

// BuyGood removes stock bought from the city and credits a share of the sale to wealth.
func (c *City) BuyGood(id economy.GoodID, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	have := c.Availability[id]
	if have < quantity {
		return ErrInsufficientStock
	}

	if price, ok := c.GoodPrice(id); ok {
		c.Wealth += int(price * float64(quantity) * saleWealthShare)
	}

	if have == quantity {
		delete(c.Availability, id)
	} else {
		c.Availability[id] = have - quantity
	}
	return nil
}

// SellGood adds stock sold into the city. Untracked goods get DefaultSellPrice.
// Fails only when StockCap is set and would be exceeded.
func (c *City) SellGood(id economy.GoodID, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !c.CanAbsorb(id, quantity) {
		return ErrStockCapExceeded
	}
	c.Availability[id] += quantity
	if _, ok := c.Prices[id]; !ok {
		c.Prices[id] = DefaultSellPrice
	}
	return nil
}

// CanAbsorb reports whether quantity more units fit under the stock cap.
func (c *City) CanAbsorb(id economy.GoodID, quantity int) bool {
	return c.StockCap <= 0 || c.Availability[id]+quantity <= c.StockCap
}

// RemoveGood stops the city trading a good entirely.
func (c *City) RemoveGood(id economy.GoodID) {
	delete(c.Prices, id)
	delete(c.Availability, id)
}

// UpdateMarket runs one market tick: price jitter, stock replenishment and a
// slower random walk of the city-wide market modifier.
func (c *City) UpdateMarket(src entropy.Source) {
	for _, id := range sortedIDs(c.Prices) {
		c.Prices[id] = clamp(c.Prices[id]*entropy.Uniform(src, 0.9, 1.1), MinGoodPrice, MaxGoodPrice)
	}

	maxRestock := c.TradingVolume / 10
	stockCeiling := c.Population / 50
	for _, id := range sortedIDs(c.Availability) {
		qty := c.Availability[id]
		if qty >= stockCeiling {
			continue
		}
		c.Availability[id] = min(qty+entropy.UniformInt(src, 0, max(maxRestock, 0)), stockCeiling)
	}

	c.MarketModifier = clamp(c.MarketModifier*entropy.Uniform(src, 0.95, 1.05), MinMarketModifier, MaxMarketModifier)
}

// GrowthRate returns the per-tick population growth fraction.
func (c *City) GrowthRate() float64 {
	rate := c.Stability/100*0.01 + float64(c.Wealth)/10000*0.005
	if c.Faction == PlayerFaction {
		rate *= 1.1
	}
	return rate
}

// UpdatePopulation grows the population and recomputes port capacity and trading volume.
func (c *City) UpdatePopulation() {
	c.Population += int(float64(c.Population) * c.GrowthRate())
	if c.Population < 0 {
		c.Population = 0
	}
	c.RecomputeCommerce()
}

// RecomputeCommerce derives port capacity and trading volume from population and wealth.
func (c *City) RecomputeCommerce() {
	c.PortCapacity = c.Population / 1000
	c.TradingVolume = max(c.Wealth, 0)/5 + c.Population/20
}

// EffectiveDefense returns the defense an attacker has to beat.
func (c *City) EffectiveDefense() float64 {
	base := float64(c.DefenseLevel + c.Population/1000)
	if c.Facilities.Barracks {
		base += 15
	}
	return base * (0.5 + 0.5*c.Stability/100)
}

// AttackCity resolves an assault against the city and reports whether it fell.
func (c *City) AttackCity(attackStrength float64) bool {
	if attackStrength > c.EffectiveDefense() {
		c.DefenseLevel /= 2
		c.Population = int(float64(c.Population) * 0.8)
		c.Wealth = int(float64(c.Wealth) * 0.6)
		c.Stability = clamp(c.Stability-20, 0, 100)
		c.LoyaltyLevel = 10
		c.RecomputeCommerce()
		return true
	}

	c.DefenseLevel = int(float64(c.DefenseLevel) * 0.9)
	c.Population = int(float64(c.Population) * 0.95)
	c.Wealth = int(float64(c.Wealth) * 0.9)
	c.Stability = clamp(c.Stability-5, 0, 100)
	c.LoyaltyLevel = clamp(c.LoyaltyLevel+5, 0, 100)
	c.RecomputeCommerce()
	return false
}

// Distance returns the Euclidean distance between two cities.
func Distance(a, b *City) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// sortedIDs returns map keys in ascending order so seeded runs are reproducible.
func sortedIDs[V any](m map[economy.GoodID]V) []economy.GoodID {
	ids := make([]economy.GoodID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
