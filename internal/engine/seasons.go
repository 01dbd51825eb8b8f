// Seasonal effects: a world-wide price modifier, the autumn harvest and
// winter hardship.
package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/talgya/tradewinds/internal/economy"
	"github.com/talgya/tradewinds/internal/entropy"
	"github.com/talgya/tradewinds/internal/logs"
	"github.com/talgya/tradewinds/internal/trade"
)

// Season constants.
const (
	SeasonSpring = 0
	SeasonSummer = 1
	SeasonAutumn = 2
	SeasonWinter = 3
)

var seasonNames = [4]string{"Spring", "Summer", "Autumn", "Winter"}

// SeasonName returns a human-readable season name.
func SeasonName(season uint8) string {
	if int(season) < len(seasonNames) {
		return seasonNames[season]
	}
	return "Unknown"
}

// SeasonalPriceFactor is the market-wide price multiplier for a season.
// Sailing is cheap in summer; winter storms close lanes and prices climb.
func SeasonalPriceFactor(season uint8) float64 {
	switch season {
	case SeasonSpring:
		return 1.05
	case SeasonSummer:
		return 0.95
	case SeasonAutumn:
		return 0.90 // Harvest glut
	case SeasonWinter:
		return 1.15
	}
	return 1.0
}

func seasonModifierName(season uint8) string {
	return fmt.Sprintf("season: %s", SeasonName(season))
}

// applySeason swaps the seasonal modifier for the one of the given season.
func (s *Simulation) applySeason(season uint8) {
	for i := range seasonNames {
		s.trade.RemovePriceModifier(trade.ModifierSeason, seasonModifierName(uint8(i)))
	}
	s.season = season
	if f := SeasonalPriceFactor(season); f != 1.0 {
		s.trade.AddPriceModifier(trade.ModifierSeason, seasonModifierName(season), f, 0)
	}
}

// processSeason handles seasonal transitions.
func (s *Simulation) processSeason(tick uint64) {
	s.applySeason(SeasonOf(tick))

	logs.Info("season change",
		zap.Uint64("tick", tick),
		zap.String("time", SimTime(tick)),
		zap.String("season", SeasonName(s.season)),
		zap.Float64("price_factor", SeasonalPriceFactor(s.season)),
	)

	switch s.season {
	case SeasonAutumn:
		s.autumnHarvest(tick)
	case SeasonWinter:
		s.winterHardship(tick)
	}
}

// autumnHarvest restocks the food a city produces.
func (s *Simulation) autumnHarvest(tick uint64) {
	for _, c := range s.cities {
		harvested := 0
		for _, g := range s.catalog.All() {
			if g.Type != economy.GoodFood || !g.ProducedBy(c.Type) {
				continue
			}
			qty := entropy.UniformInt(s.src, 10, 30)
			if c.StockCap > 0 {
				qty = min(qty, c.StockCap-c.Stock(g.ID))
			}
			if qty <= 0 {
				continue
			}
			c.Availability[g.ID] += qty
			if _, ok := c.Prices[g.ID]; !ok {
				c.SetGoodPrice(g.ID, float64(g.BasePrice))
			}
			harvested += qty
		}
		if harvested > 0 {
			s.EmitEvent(Event{
				Tick:        tick,
				Description: fmt.Sprintf("The harvest brings %d loads of food to %s", harvested, c.Name),
				Category:    CategoryEconomy,
				CityID:      c.ID,
			})
		}
	}
}

// winterHardship wears on stability in cities that cannot feed themselves.
func (s *Simulation) winterHardship(tick uint64) {
	for _, c := range s.cities {
		food := 0
		for _, g := range s.catalog.All() {
			if g.Type == economy.GoodFood {
				food += c.Stock(g.ID)
			}
		}
		if food*50 >= c.Population {
			continue
		}
		c.Stability = max(c.Stability-5, 0)
		s.EmitEvent(Event{
			Tick:        tick,
			Description: fmt.Sprintf("Winter stores run thin in %s", c.Name),
			Category:    CategorySocial,
			CityID:      c.ID,
		})
	}
}
