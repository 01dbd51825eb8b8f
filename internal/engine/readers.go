// Read-side accessors. Every method takes the read lock and returns copies
// that stay valid after the lock is released.
package engine

import (
	"maps"
	"slices"

	"github.com/talgya/tradewinds/internal/ai"
	"github.com/talgya/tradewinds/internal/economy"
	"github.com/talgya/tradewinds/internal/social"
	"github.com/talgya/tradewinds/internal/trade"
	"github.com/talgya/tradewinds/internal/world"
)

// Status is a summary of the running world.
type Status struct {
	Tick         uint64   `json:"tick"`
	Time         string   `json:"sim_time"`
	Season       string   `json:"season"`
	GameHours    float64  `json:"game_hours"`
	Cities       int      `json:"cities"`
	Kingdoms     int      `json:"kingdoms"`
	Captains     int      `json:"captains"`
	Transactions int      `json:"transactions"`
	PriceLevel   float64  `json:"price_level"`
	ActiveEvents int      `json:"active_events"`
	Stats        SimStats `json:"stats"`
}

// Status returns the current world summary.
func (s *Simulation) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Tick:         s.lastTick,
		Time:         SimTime(s.lastTick),
		Season:       SeasonName(s.season),
		GameHours:    s.trade.Now(),
		Cities:       len(s.cities),
		Kingdoms:     len(s.kingdoms),
		Captains:     len(s.captains),
		Transactions: s.trade.TransactionCount(),
		PriceLevel:   s.trade.CombinedModifier(),
		ActiveEvents: len(s.director.Active()),
		Stats:        s.stats,
	}
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTick
}

// Catalog returns the goods catalog. It is immutable and needs no lock.
func (s *Simulation) Catalog() *economy.Catalog { return s.catalog }

// Map returns the world map. It is never modified after generation.
func (s *Simulation) Map() *world.Map { return s.worldMap }

// Cities returns copies of every city, ordered by id.
func (s *Simulation) Cities() []social.City {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]social.City, len(s.cities))
	for i, c := range s.cities {
		out[i] = cloneCity(c)
	}
	return out
}

// City returns a copy of one city.
func (s *Simulation) City(id social.CityID) (social.City, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cityIndex[id]
	if !ok {
		return social.City{}, false
	}
	return cloneCity(c), true
}

// Kingdoms returns copies of every kingdom, ordered by id.
func (s *Simulation) Kingdoms() []social.Kingdom {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]social.Kingdom, len(s.kingdoms))
	for i, k := range s.kingdoms {
		out[i] = cloneKingdom(k)
	}
	return out
}

// Captains returns copies of every captain.
func (s *Simulation) Captains() []Captain {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Captain, len(s.captains))
	for i, c := range s.captains {
		out[i] = cloneCaptain(c)
	}
	return out
}

// Routes returns the merchant AI's best routes out of a city. Route scoring
// fills the AI caches, so this takes the write lock.
func (s *Simulation) Routes(from social.CityID) ([]ai.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cityIndex[from]
	if !ok {
		return nil, ErrUnknownCity
	}
	return s.merchants.FindBestTradeRoutes(c), nil
}

// RecentTransactions returns up to n trades, newest first.
func (s *Simulation) RecentTransactions(n int) []trade.TradeTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trade.RecentTransactions(n)
}

// RecentEvents returns up to n events, newest first.
func (s *Simulation) RecentEvents(n int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events.recent(n)
}

// ActiveEvents returns disasters and booms still running.
func (s *Simulation) ActiveEvents() []ai.ActiveEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.director.Active()
}

// Modifiers returns the active price modifiers.
func (s *Simulation) Modifiers() []trade.PriceModifier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trade.ActiveModifiers()
}

// Journal is what happened since the previous snapshot.
type Journal struct {
	Events       []Event
	Transactions []trade.TradeTransaction
}

// Snapshot captures the persistent state and hands over the events and trades
// recorded since the previous snapshot.
func (s *Simulation) Snapshot() (State, Journal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Tick:      s.lastTick,
		WorldSeed: s.worldSeed,
		Cities:    make([]*social.City, len(s.cities)),
		Kingdoms:  make([]*social.Kingdom, len(s.kingdoms)),
		Captains:  make([]*Captain, len(s.captains)),
		Modifiers: s.trade.ActiveModifiers(),
	}
	for i, c := range s.cities {
		cp := cloneCity(c)
		st.Cities[i] = &cp
	}
	for i, k := range s.kingdoms {
		cp := cloneKingdom(k)
		st.Kingdoms[i] = &cp
	}
	for i, c := range s.captains {
		cp := cloneCaptain(c)
		st.Captains[i] = &cp
	}
	j := Journal{Events: s.events.drain(), Transactions: s.pendingTx}
	s.pendingTx = nil
	return st, j
}

func cloneCity(c *social.City) social.City {
	cp := *c
	cp.Prices = maps.Clone(c.Prices)
	cp.Availability = maps.Clone(c.Availability)
	cp.Resources = maps.Clone(c.Resources)
	cp.AvailableShips = slices.Clone(c.AvailableShips)
	return cp
}

func cloneKingdom(k *social.Kingdom) social.Kingdom {
	cp := *k
	cp.Cities = slices.Clone(k.Cities)
	cp.Relations = maps.Clone(k.Relations)
	cp.Alliances = maps.Clone(k.Alliances)
	cp.Wars = maps.Clone(k.Wars)
	cp.TradeAgreements = maps.Clone(k.TradeAgreements)
	cp.Embargoes = maps.Clone(k.Embargoes)
	return cp
}

func cloneCaptain(c *Captain) Captain {
	cp := *c
	p := *c.Player
	p.Inventory = maps.Clone(c.Player.Inventory)
	p.Ships = make([]*trade.Ship, len(c.Player.Ships))
	for i, sh := range c.Player.Ships {
		shc := *sh
		shc.Cargo = maps.Clone(sh.Cargo)
		p.Ships[i] = &shc
	}
	cp.Player = &p
	return cp
}
