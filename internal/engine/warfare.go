// Warfare: kingdoms at war lay siege to each other's weakest city.
package engine

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/talgya/tradewinds/internal/entropy"
	"github.com/talgya/tradewinds/internal/logs"
	"github.com/talgya/tradewinds/internal/social"
)

const (
	siegeChance    = 0.10 // Per attacker, per enemy, per day
	siegeLevyShare = 0.5  // Fraction of each city's defense sent to a siege
	siegeCost      = 200  // Treasury spent per assault
)

// processSieges resolves one day of fighting for every war.
func (s *Simulation) processSieges(tick uint64) {
	for _, attacker := range s.kingdoms {
		for _, enemyID := range attacker.Others() {
			if !attacker.AtWarWith(enemyID) || attacker.Treasury < siegeCost {
				continue
			}
			if !entropy.Chance(s.src, siegeChance) {
				continue
			}
			defender := s.kingdomIdx[enemyID]
			target := s.weakestCity(defender)
			if target == nil {
				continue
			}
			s.besiege(tick, attacker, defender, target)
		}
	}
}

func (s *Simulation) weakestCity(k *social.Kingdom) *social.City {
	if k == nil {
		return nil
	}
	var weakest *social.City
	for _, id := range k.Cities {
		c := s.cityIndex[id]
		if c == nil {
			continue
		}
		if weakest == nil || c.EffectiveDefense() < weakest.EffectiveDefense() {
			weakest = c
		}
	}
	return weakest
}

// armyStrength sums the levies an attacker can raise from its cities.
func (s *Simulation) armyStrength(k *social.Kingdom) float64 {
	total := 0.0
	for _, id := range k.Cities {
		if c := s.cityIndex[id]; c != nil {
			total += c.EffectiveDefense() * siegeLevyShare
		}
	}
	return total
}

func (s *Simulation) besiege(tick uint64, attacker, defender *social.Kingdom, target *social.City) {
	attacker.Treasury -= siegeCost
	strength := s.armyStrength(attacker) * entropy.Uniform(s.src, 0.5, 1.5)

	if !target.AttackCity(strength) {
		s.EmitEvent(Event{
			Tick:        tick,
			Description: fmt.Sprintf("%s repels an assault by %s", target.Name, attacker.Name),
			Category:    CategoryWar,
			CityID:      target.ID,
			KingdomID:   attacker.ID,
		})
		return
	}

	s.transferCity(target, defender, attacker)
	logs.Info("city captured",
		zap.String("city", target.Name),
		zap.String("from", defender.Name),
		zap.String("to", attacker.Name),
		zap.String("time", SimTime(tick)),
	)
	s.EmitEvent(Event{
		Tick:        tick,
		Description: fmt.Sprintf("%s falls to %s", target.Name, attacker.Name),
		Category:    CategoryWar,
		CityID:      target.ID,
		KingdomID:   attacker.ID,
	})
}

// transferCity moves a city between kingdoms and retags its faction.
func (s *Simulation) transferCity(c *social.City, from, to *social.Kingdom) {
	if !from.HasCity(c.ID) {
		return
	}
	from.Cities = slices.DeleteFunc(from.Cities, func(id social.CityID) bool { return id == c.ID })
	to.Cities = append(to.Cities, c.ID)
	s.cityKingdom[c.ID] = to.ID
	c.Faction = to.Faction
	c.Region = to.Name
}
