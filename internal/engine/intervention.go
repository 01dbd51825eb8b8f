// Admin interventions: the operator reaching into the running world.
package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/talgya/tradewinds/internal/ai"
	"github.com/talgya/tradewinds/internal/economy"
	"github.com/talgya/tradewinds/internal/logs"
	"github.com/talgya/tradewinds/internal/social"
)

var (
	ErrUnknownGood    = errors.New("unknown good")
	ErrUnknownEvent   = errors.New("unknown event kind")
	ErrUnknownKingdom = errors.New("unknown kingdom")
	ErrBadQuantity    = errors.New("quantity must be positive")
)

// ProvisionCity delivers goods straight into a city's market. Stock caps still
// apply; the returned quantity is what actually arrived.
func (s *Simulation) ProvisionCity(id social.CityID, goodID economy.GoodID, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrBadQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cityIndex[id]
	if !ok {
		return 0, fmt.Errorf("city %d: %w", id, ErrUnknownCity)
	}
	g, ok := s.catalog.Get(goodID)
	if !ok {
		return 0, fmt.Errorf("good %d: %w", goodID, ErrUnknownGood)
	}
	if c.StockCap > 0 {
		qty = min(qty, c.StockCap-c.Stock(goodID))
	}
	if qty <= 0 {
		return 0, nil
	}

	c.Availability[goodID] += qty
	if _, ok := c.Prices[goodID]; !ok {
		c.SetGoodPrice(goodID, float64(g.BasePrice))
	}
	s.EmitEvent(Event{
		Tick:        s.lastTick,
		Description: fmt.Sprintf("A relief convoy brings %d %s to %s", qty, g.Name, c.Name),
		Category:    CategoryEconomy,
		CityID:      c.ID,
	})
	logs.Info("provision intervention", zap.String("city", c.Name), zap.String("good", g.Name), zap.Int("quantity", qty))
	return qty, nil
}

// TriggerEvent starts a named local event in a city right away.
func (s *Simulation) TriggerEvent(kind string, id social.CityID) (ai.ActiveEvent, error) {
	k, ok := social.ParseEventKind(kind)
	if !ok {
		return ai.ActiveEvent{}, fmt.Errorf("%q: %w", kind, ErrUnknownEvent)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cityIndex[id]
	if !ok {
		return ai.ActiveEvent{}, fmt.Errorf("city %d: %w", id, ErrUnknownCity)
	}
	ev, ok := s.director.Trigger(k, c)
	if !ok {
		return ai.ActiveEvent{}, fmt.Errorf("%q: %w", kind, ErrUnknownEvent)
	}
	s.EmitEvent(Event{
		Tick:        s.lastTick,
		Description: describeTriggered(ev),
		Category:    CategoryDisaster,
		CityID:      c.ID,
	})
	logs.Info("event intervention", zap.String("city", c.Name), zap.String("kind", ev.KindName), zap.Int("severity", ev.Severity))
	return ev, nil
}

// GrantTreasury adds gold to a kingdom's treasury. Negative amounts levy it.
func (s *Simulation) GrantTreasury(id social.KingdomID, amount int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.kingdomIdx[id]
	if !ok {
		return 0, fmt.Errorf("kingdom %d: %w", id, ErrUnknownKingdom)
	}
	k.Treasury += amount
	s.EmitEvent(Event{
		Tick:        s.lastTick,
		Description: fmt.Sprintf("The treasury of %s changes by %d gold", k.Name, amount),
		Category:    CategoryEconomy,
		KingdomID:   k.ID,
	})
	return k.Treasury, nil
}
