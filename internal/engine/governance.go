// Governance: daily city development by the governor AI and tax collection
// into kingdom treasuries.
package engine

import (
	"fmt"

	"github.com/talgya/tradewinds/internal/entropy"
)

// governorActChance is the daily chance a city council acts at all.
const governorActChance = 0.5

// processGovernance lets each city's council take its best development action.
func (s *Simulation) processGovernance(tick uint64) {
	s.governor.Update(24)
	for _, c := range s.cities {
		if !entropy.Chance(s.src, governorActChance) {
			continue
		}
		action, ok := s.governor.ExecuteBestAction(c)
		if !ok {
			continue
		}
		s.EmitEvent(Event{
			Tick:        tick,
			Description: fmt.Sprintf("The council of %s decides to %s", c.Name, action.Description),
			Category:    CategorySocial,
			CityID:      c.ID,
		})
	}
}

// collectTaxes moves a day's taxes from each city's people into its kingdom's
// treasury. Cities with no kingdom keep their taxes as city wealth.
func (s *Simulation) collectTaxes() {
	for _, c := range s.cities {
		due := c.Population * c.TaxRate / 1000
		if due <= 0 {
			continue
		}
		if k, ok := s.kingdomOf(c); ok {
			k.Treasury += due
			continue
		}
		c.Wealth += due
	}
}
