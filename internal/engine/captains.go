// Merchant captains: NPC traders that follow the merchant AI's best route,
// buying at one port and selling at the next.
package engine

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/talgya/tradewinds/internal/ai"
	"github.com/talgya/tradewinds/internal/economy"
	"github.com/talgya/tradewinds/internal/logs"
	"github.com/talgya/tradewinds/internal/social"
	"github.com/talgya/tradewinds/internal/trade"
)

const (
	CaptainHold  = 100.0 // Cargo weight per merchant ship
	sailSpeed    = 25.0  // Map distance per game hour
	minRouteGain = 50.0  // Expected profit below this is not worth the voyage
)

// Captain is a trader with one ship. Automated captains sail on their own;
// manual ones only move when told to.
type Captain struct {
	Player      *trade.Player `json:"player"`
	Ship        trade.ShipID  `json:"ship"`
	Location    social.CityID `json:"location"`
	Destination social.CityID `json:"destination,omitempty"` // 0 while docked
	ArriveTick  uint64        `json:"arrive_tick,omitempty"`
	Voyages     int           `json:"voyages"`
	Manual      bool          `json:"manual"`
}

// Docked reports whether the captain is in port.
func (c *Captain) Docked() bool { return c.Destination == 0 }

func (s *Simulation) captain(name string) (*Captain, bool) {
	for _, c := range s.captains {
		if c.Player.Name == name {
			return c, true
		}
	}
	return nil, false
}

// sailCaptains lands arriving ships and sends idle automated ones out again.
func (s *Simulation) sailCaptains(tick uint64) {
	for _, cpt := range s.captains {
		if !cpt.Docked() {
			if tick < cpt.ArriveTick {
				continue
			}
			s.arrive(cpt, tick)
		}
		if cpt.Manual {
			continue
		}
		s.sellCargo(cpt)
		s.departOnBestRoute(cpt, tick)
	}
}

func (s *Simulation) arrive(cpt *Captain, tick uint64) {
	cpt.Location, cpt.Destination, cpt.ArriveTick = cpt.Destination, 0, 0
	cpt.Voyages++
	if c, ok := s.cityIndex[cpt.Location]; ok {
		logs.Debug("captain arrived", zap.String("captain", cpt.Player.Name), zap.String("city", c.Name), zap.String("time", SimTime(tick)))
	}
}

// sellCargo sells everything in the hold the current port will take.
func (s *Simulation) sellCargo(cpt *Captain) {
	city, ok := s.cityIndex[cpt.Location]
	if !ok {
		return
	}
	ship, ok := cpt.Player.Ship(cpt.Ship)
	if !ok {
		return
	}
	for _, id := range sortedGoods(ship.Cargo) {
		qty := cpt.Player.Owned(id, cpt.Ship)
		if city.StockCap > 0 {
			qty = min(qty, city.StockCap-city.Stock(id))
		}
		if qty <= 0 {
			continue
		}
		if _, err := s.trade.SellGoods(cpt.Player, city, id, qty, cpt.Ship); err != nil {
			logs.Debug("captain sale refused", zap.String("captain", cpt.Player.Name), zap.Int("good", id), zap.Error(err))
		}
	}
}

// departOnBestRoute loads the goods of the most profitable reachable route
// and sets sail. A captain with no worthwhile route stays in port.
func (s *Simulation) departOnBestRoute(cpt *Captain, tick uint64) {
	from, ok := s.cityIndex[cpt.Location]
	if !ok {
		return
	}
	for _, route := range s.merchants.FindBestTradeRoutes(from) {
		if route.Profit < minRouteGain {
			return
		}
		to := s.cityIndex[route.To]
		if to == nil || s.blockaded(cpt, to) {
			continue
		}
		if s.loadRoute(cpt, from, route) == 0 {
			continue
		}
		s.depart(cpt, from, to, tick)
		return
	}
}

// blockaded reports whether the captain's kingdom may not trade with the city.
func (s *Simulation) blockaded(cpt *Captain, c *social.City) bool {
	owner, ok := s.kingdomOf(c)
	if !ok {
		return false
	}
	for _, k := range s.kingdoms {
		if k.Faction == cpt.Player.Faction {
			return k.AtWarWith(owner.ID) || k.Embargoes[owner.ID]
		}
	}
	return false
}

func (s *Simulation) loadRoute(cpt *Captain, from *social.City, route ai.Route) int {
	bought := 0
	for _, id := range route.Goods {
		qty := s.affordable(cpt, from, id, s.merchants.OptimalQuantity(from, id))
		if qty <= 0 {
			continue
		}
		if _, err := s.trade.BuyGoods(cpt.Player, from, id, qty, cpt.Ship); err != nil {
			logs.Debug("captain purchase refused", zap.String("captain", cpt.Player.Name), zap.Int("good", id), zap.Error(err))
			continue
		}
		bought += qty
	}
	return bought
}

// affordable trims a quantity to what fits in the hold and the purse.
func (s *Simulation) affordable(cpt *Captain, c *social.City, id economy.GoodID, qty int) int {
	good, ok := s.catalog.Get(id)
	if !ok {
		return 0
	}
	ship, ok := cpt.Player.Ship(cpt.Ship)
	if !ok {
		return 0
	}
	qty = min(qty, c.Stock(id))
	if good.Weight > 0 {
		qty = min(qty, int(ship.FreeCapacity(s.catalog)/good.Weight))
	}
	unit, ok := c.GoodPrice(id)
	if !ok {
		return 0
	}
	for qty > 0 && s.trade.CalculateFinalPrice(unit*float64(qty), cpt.Player.Faction, c.Faction) > cpt.Player.Gold {
		qty--
	}
	return qty
}

func (s *Simulation) depart(cpt *Captain, from, to *social.City, tick uint64) {
	ship, _ := cpt.Player.Ship(cpt.Ship)
	load := 0
	for _, q := range ship.Cargo {
		load += q
	}
	cost := s.trade.CalculateTransportCost(from, to, load)
	cpt.Player.Gold = max(cpt.Player.Gold-cost, 0)

	hours := math.Ceil(social.Distance(from, to) / sailSpeed)
	cpt.Destination = to.ID
	cpt.ArriveTick = tick + uint64(max(hours, 1))*TicksPerSimHour

	s.EmitEvent(Event{
		Tick:        tick,
		Description: fmt.Sprintf("%s sails from %s to %s with %d crates", cpt.Player.Name, from.Name, to.Name, load),
		Category:    CategoryVoyage,
		CityID:      from.ID,
	})
}

// TradeRequest is a manual buy or sell by a named captain.
type TradeRequest struct {
	Captain string         `json:"captain"`
	CityID  social.CityID  `json:"city_id"`
	GoodID  economy.GoodID `json:"good_id"`
	Qty     int            `json:"quantity"`
	Buy     bool           `json:"buy"`
}

// Trade executes a manual trade for a docked captain.
func (s *Simulation) Trade(req TradeRequest) (trade.TradeTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cpt, ok := s.captain(req.Captain)
	if !ok {
		return trade.TradeTransaction{}, fmt.Errorf("%w: %q", ErrUnknownCaptain, req.Captain)
	}
	city, ok := s.cityIndex[req.CityID]
	if !ok {
		return trade.TradeTransaction{}, fmt.Errorf("%w: %d", ErrUnknownCity, req.CityID)
	}
	if !cpt.Docked() || cpt.Location != city.ID {
		return trade.TradeTransaction{}, ErrNotDocked
	}
	if req.Buy {
		return s.trade.BuyGoods(cpt.Player, city, req.GoodID, req.Qty, cpt.Ship)
	}
	return s.trade.SellGoods(cpt.Player, city, req.GoodID, req.Qty, cpt.Ship)
}

// Sail sends a manual captain to another city.
func (s *Simulation) Sail(name string, to social.CityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cpt, ok := s.captain(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCaptain, name)
	}
	if !cpt.Docked() {
		return ErrNotDocked
	}
	dest, ok := s.cityIndex[to]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownCity, to)
	}
	from, ok := s.cityIndex[cpt.Location]
	if !ok || from.ID == dest.ID {
		return ErrSameCity
	}
	s.depart(cpt, from, dest, s.lastTick)
	return nil
}

func sortedGoods(m map[economy.GoodID]int) []economy.GoodID {
	ids := make([]economy.GoodID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
