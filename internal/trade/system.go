// Package trade implements the transaction engine: buying and selling between
// players and cities, global price modifiers, transport costs, and the
// bounded transaction history.
package trade

import (
	"errors"
	"math"

	"github.com/talgya/tradewinds/internal/economy"
	"github.com/talgya/tradewinds/internal/entropy"
	"github.com/talgya/tradewinds/internal/social"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrUnknownGood       = errors.New("good is not in the catalog")
	ErrGoodNotTraded     = errors.New("city does not trade this good")
	ErrInsufficientStock = errors.New("city has insufficient stock")
	ErrInsufficientFunds = errors.New("player cannot afford purchase")
	ErrUnknownShip       = errors.New("player has no such ship")
	ErrCargoFull         = errors.New("ship cannot carry the cargo")
	ErrInsufficientGoods = errors.New("seller does not hold enough goods")
)

const (
	sameFactionDiscount = 0.95
	transportCostRate   = 0.5 // Gold per unit per distance
	nativeRestockChance = 0.30
)

// Config holds the tunable limits of a System.
type Config struct {
	HistorySize  int
	MaxModifiers int
	Eviction     EvictionPolicy
}

// DefaultConfig returns a history of 100 transactions and 20 modifiers,
// evicting the oldest modifier when full.
func DefaultConfig() Config {
	return Config{HistorySize: 100, MaxModifiers: 20, Eviction: EvictOldest}
}

// System is the central trading engine. It is owned by the simulation loop
// and is not safe for concurrent mutation.
type System struct {
	catalog *economy.Catalog
	cfg     Config

	history []TradeTransaction // ring buffer
	head    int                // next write position
	count   int

	modifiers []PriceModifier
	seq       uint64
	now       float64 // Game hours, never decreases

	onTransaction func(TradeTransaction)
}

// NewSystem creates a trading system over the given catalog.
func NewSystem(cat *economy.Catalog, cfg Config) *System {
	def := DefaultConfig()
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}
	if cfg.MaxModifiers <= 0 {
		cfg.MaxModifiers = def.MaxModifiers
	}
	return &System{
		catalog: cat,
		cfg:     cfg,
		history: make([]TradeTransaction, cfg.HistorySize),
	}
}

// Catalog returns the catalog the system prices against.
func (s *System) Catalog() *economy.Catalog { return s.catalog }

// Now returns the current game time.
func (s *System) Now() float64 { return s.now }

// SetOnTransaction registers a callback invoked after every completed trade.
// Pass nil to clear it.
func (s *System) SetOnTransaction(fn func(TradeTransaction)) {
	s.onTransaction = fn
}

// BuyGoods moves goods from a city to a player's ship hold (or inventory when
// shipID is NoShip). Every precondition is checked before anything changes, so
// a failed call leaves player, ship and city untouched.
func (s *System) BuyGoods(p *Player, c *social.City, goodID economy.GoodID, qty int, shipID ShipID) (TradeTransaction, error) {
	if qty <= 0 {
		return TradeTransaction{}, ErrInvalidQuantity
	}
	good, ok := s.catalog.Get(goodID)
	if !ok {
		return TradeTransaction{}, ErrUnknownGood
	}
	unit, ok := c.GoodPrice(goodID)
	if !ok {
		return TradeTransaction{}, ErrGoodNotTraded
	}
	if c.Stock(goodID) < qty {
		return TradeTransaction{}, ErrInsufficientStock
	}
	total := s.CalculateFinalPrice(unit*float64(qty), p.Faction, c.Faction)
	if p.Gold < total {
		return TradeTransaction{}, ErrInsufficientFunds
	}
	hold, ship, err := p.holding(shipID)
	if err != nil {
		return TradeTransaction{}, err
	}
	if ship != nil && !ship.CanCarry(s.catalog, good, qty) {
		return TradeTransaction{}, ErrCargoFull
	}

	if err := c.BuyGood(goodID, qty); err != nil {
		return TradeTransaction{}, err
	}
	p.Gold -= total
	hold[goodID] += qty

	return s.record(p.Name, good, c, qty, total, true), nil
}

// SellGoods moves goods from a player's hold into a city. The city pays its
// own price, or the catalog base price when it does not track the good.
func (s *System) SellGoods(p *Player, c *social.City, goodID economy.GoodID, qty int, shipID ShipID) (TradeTransaction, error) {
	if qty <= 0 {
		return TradeTransaction{}, ErrInvalidQuantity
	}
	good, ok := s.catalog.Get(goodID)
	if !ok {
		return TradeTransaction{}, ErrUnknownGood
	}
	hold, _, err := p.holding(shipID)
	if err != nil {
		return TradeTransaction{}, err
	}
	if hold[goodID] < qty {
		return TradeTransaction{}, ErrInsufficientGoods
	}
	if !c.CanAbsorb(goodID, qty) {
		return TradeTransaction{}, social.ErrStockCapExceeded
	}

	unit, ok := c.GoodPrice(goodID)
	if !ok {
		unit = float64(good.BasePrice)
	}
	total := s.CalculateFinalPrice(unit*float64(qty), p.Faction, c.Faction)

	if err := c.SellGood(goodID, qty); err != nil {
		return TradeTransaction{}, err
	}
	if hold[goodID] == qty {
		delete(hold, goodID)
	} else {
		hold[goodID] -= qty
	}
	p.Gold += total

	return s.record(p.Name, good, c, qty, total, false), nil
}

// CalculateFinalPrice applies every active modifier and the same-faction
// discount to base, rounding to whole gold with a floor of 1.
func (s *System) CalculateFinalPrice(base float64, buyerFaction, sellerFaction string) int {
	price := base * s.CombinedModifier()
	if buyerFaction == sellerFaction {
		price *= sameFactionDiscount
	}
	return max(int(math.Round(price)), 1)
}

// CalculateTransportCost is distance × 0.5 × quantity, rounded up, minimum 1.
func (s *System) CalculateTransportCost(from, to *social.City, qty int) int {
	cost := math.Ceil(social.Distance(from, to) * transportCostRate * float64(qty))
	return max(int(cost), 1)
}

// UpdateCityGoods reconciles a city's market with the catalog. Goods the city
// produces or consumes are always stocked; other goods join with a 30% chance
// and stay while the city holds stock. Anything else is removed.
func (s *System) UpdateCityGoods(c *social.City, src entropy.Source) {
	for id := range c.Prices {
		if !s.catalog.Has(id) {
			c.RemoveGood(id)
		}
	}
	for id := range c.Availability {
		if !s.catalog.Has(id) {
			c.RemoveGood(id)
		}
	}

	for _, g := range s.catalog.All() {
		produces := g.ProducedBy(c.Type)
		native := produces || g.ConsumedBy(c.Type)
		_, priced := c.Prices[g.ID]

		switch {
		case native && !c.Trades(g.ID):
			s.stockGood(c, g, produces, !priced, src)
		case !native && !priced:
			if entropy.Chance(src, nativeRestockChance) {
				s.stockGood(c, g, false, true, src)
			}
		case !native && !c.Trades(g.ID):
			c.RemoveGood(g.ID)
		}
	}
}

func (s *System) stockGood(c *social.City, g economy.TradeGood, producer, setPrice bool, src entropy.Source) {
	qty := entropy.UniformInt(src, 5, 20)
	if producer {
		qty = entropy.UniformInt(src, 10, 50)
	}
	c.Availability[g.ID] = qty
	if setPrice {
		c.SetGoodPrice(g.ID, float64(g.BasePrice)*entropy.Uniform(src, 0.8, 1.2))
	}
}
