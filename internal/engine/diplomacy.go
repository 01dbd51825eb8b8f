// Diplomacy: weekly relation drift, lifting stale embargoes, and the
// diplomat AI's chosen action for each kingdom.
package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/talgya/tradewinds/internal/ai"
	"github.com/talgya/tradewinds/internal/entropy"
	"github.com/talgya/tradewinds/internal/logs"
	"github.com/talgya/tradewinds/internal/social"
)

const (
	relationDrift      = 0.05 // Weekly decay toward neutral
	diplomacyFloor     = 25.0 // Actions below this priority are not worth an envoy
	diplomacyChance    = 0.5
	embargoLiftAbove   = -20.0
	peaceTreasuryFloor = 0 // A broke kingdom sues for peace
)

// processDiplomacy runs the weekly diplomatic cycle.
func (s *Simulation) processDiplomacy(tick uint64) {
	for _, k := range s.kingdoms {
		k.DriftRelations(relationDrift)
	}
	s.liftEmbargoes(tick)

	s.diplomat.Update(24 * 7)
	for _, k := range s.kingdoms {
		actions := s.diplomat.EvaluateDiplomaticActions(k)
		if len(actions) == 0 {
			continue
		}
		best := actions[0]
		forced := best.Kind == ai.DiplomacyMakePeace && k.Treasury <= peaceTreasuryFloor
		if !forced && (best.Priority < diplomacyFloor || !entropy.Chance(s.src, diplomacyChance)) {
			continue
		}
		if err := s.diplomat.ApplyAction(best); err != nil {
			logs.Warn("diplomatic action failed", zap.String("kingdom", k.Name), zap.Stringer("kind", best.Kind), zap.Error(err))
			continue
		}
		s.EmitEvent(Event{
			Tick:        tick,
			Description: describeDiplomacy(k, s.kingdomIdx[best.Target], best.Kind),
			Category:    CategoryDiplomacy,
			KingdomID:   k.ID,
		})
	}
	if n := s.diplomat.ReconcileModifiers(); n > 0 {
		logs.Debug("pact modifiers reconciled", zap.Int("changed", n))
	}
}

// liftEmbargoes ends embargoes once relations have recovered.
func (s *Simulation) liftEmbargoes(tick uint64) {
	for _, k := range s.kingdoms {
		for _, id := range k.Others() {
			other := s.kingdomIdx[id]
			if other == nil || !k.Embargoes[id] || k.Relation(id) <= embargoLiftAbove {
				continue
			}
			if err := s.diplomat.LiftEmbargo(k.ID, other.ID); err != nil {
				logs.Warn("embargo lift failed", zap.String("kingdom", k.Name), zap.Error(err))
				continue
			}
			s.EmitEvent(Event{
				Tick:        tick,
				Description: fmt.Sprintf("%s and %s lift their embargo", k.Name, other.Name),
				Category:    CategoryDiplomacy,
				KingdomID:   k.ID,
			})
		}
	}
}

func describeDiplomacy(from, to *social.Kingdom, kind ai.DiplomaticKind) string {
	target := "its neighbours"
	if to != nil {
		target = to.Name
	}
	switch kind {
	case ai.DiplomacyProposeAlliance:
		return fmt.Sprintf("%s forms an alliance with %s", from.Name, target)
	case ai.DiplomacyProposeTradeAgreement:
		return fmt.Sprintf("%s signs a trade agreement with %s", from.Name, target)
	case ai.DiplomacyImproveRelations:
		return fmt.Sprintf("%s sends envoys to %s", from.Name, target)
	case ai.DiplomacyImposeEmbargo:
		return fmt.Sprintf("%s imposes an embargo on %s", from.Name, target)
	case ai.DiplomacyDeclareWar:
		return fmt.Sprintf("%s declares war on %s", from.Name, target)
	case ai.DiplomacyMakePeace:
		return fmt.Sprintf("%s makes peace with %s", from.Name, target)
	}
	return fmt.Sprintf("%s acts toward %s", from.Name, target)
}
