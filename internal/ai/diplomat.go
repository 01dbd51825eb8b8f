package ai

import (
	"errors"
	"fmt"
	"sort"

	"github.com/talgya/tradewinds/internal/social"
	"github.com/talgya/tradewinds/internal/trade"
)

// DiplomaticKind is a category of action between two kingdoms.
type DiplomaticKind uint8

const (
	DiplomacyProposeAlliance DiplomaticKind = iota
	DiplomacyProposeTradeAgreement
	DiplomacyImproveRelations
	DiplomacyImposeEmbargo
	DiplomacyDeclareWar
	DiplomacyMakePeace
)

var diplomaticKindNames = map[DiplomaticKind]string{
	DiplomacyProposeAlliance:       "propose_alliance",
	DiplomacyProposeTradeAgreement: "propose_trade_agreement",
	DiplomacyImproveRelations:      "improve_relations",
	DiplomacyImposeEmbargo:         "impose_embargo",
	DiplomacyDeclareWar:            "declare_war",
	DiplomacyMakePeace:             "make_peace",
}

func (k DiplomaticKind) String() string {
	if s, ok := diplomaticKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Price effects of diplomacy, in game hours and multipliers.
const (
	warPriceFactor       = 1.25
	embargoPriceFactor   = 1.10
	agreementPriceFactor = 0.95
	envoyCost            = 100
)

var ErrUnknownKingdom = errors.New("unknown kingdom")

// DiplomaticAction is one candidate move by a kingdom toward another.
type DiplomaticAction struct {
	Kind     DiplomaticKind   `json:"kind"`
	From     social.KingdomID `json:"from"`
	Target   social.KingdomID `json:"target"`
	Priority float64          `json:"priority"`
}

// Diplomat scores and applies kingdom-to-kingdom actions. Pair scores are
// memoised for a tick.
type Diplomat struct {
	world World
	trade *trade.System

	gen        Generation
	relations  *memo[kingdomPair, float64]
	tradeValue *memo[kingdomPair, float64]
	military   *memo[[2]social.KingdomID, float64]
}

// NewDiplomat returns a diplomat that reports price effects to ts.
func NewDiplomat(world World, ts *trade.System) *Diplomat {
	d := &Diplomat{world: world, trade: ts}
	d.relations = newMemo[kingdomPair, float64](&d.gen)
	d.tradeValue = newMemo[kingdomPair, float64](&d.gen)
	d.military = newMemo[[2]social.KingdomID, float64](&d.gen)
	return d
}

// Update starts a new tick.
func (d *Diplomat) Update(dt float64) {
	d.gen.Advance()
}

// Relations returns the relation between two kingdoms, -100 to 100.
func (d *Diplomat) Relations(a, b *social.Kingdom) float64 {
	return d.relations.get(newKingdomPair(a.ID, b.ID), func() float64 {
		return a.Relation(b.ID)
	})
}

// TradeValue scores, 0–100, how much commerce the two kingdoms share: goods
// both sides' cities trade, weighted by trading volume.
func (d *Diplomat) TradeValue(a, b *social.Kingdom) float64 {
	return d.tradeValue.get(newKingdomPair(a.ID, b.ID), func() float64 {
		total := 0.0
		for _, ca := range d.cities(a) {
			for _, cb := range d.cities(b) {
				shared := 0
				for id := range ca.Availability {
					if cb.Trades(id) {
						shared++
					}
				}
				total += float64(shared) * float64(ca.TradingVolume+cb.TradingVolume) / 1000
			}
		}
		return clamp100(total)
	})
}

// MilitaryBalance is a's share of the pair's combined strength, 0–1. Two
// powerless kingdoms are balanced at 0.5.
func (d *Diplomat) MilitaryBalance(a, b *social.Kingdom) float64 {
	return d.military.get([2]social.KingdomID{a.ID, b.ID}, func() float64 {
		sa, sb := d.strength(a), d.strength(b)
		if sa+sb == 0 {
			return 0.5
		}
		return sa / (sa + sb)
	})
}

func (d *Diplomat) strength(k *social.Kingdom) float64 {
	s := float64(max(k.Treasury, 0)) / 1000
	for _, c := range d.cities(k) {
		s += c.EffectiveDefense()
	}
	return s
}

func (d *Diplomat) cities(k *social.Kingdom) []*social.City {
	out := make([]*social.City, 0, len(k.Cities))
	for _, id := range k.Cities {
		if c, ok := d.world.City(id); ok {
			out = append(out, c)
		}
	}
	return out
}

// EvaluateDiplomaticActions returns every candidate action from k toward each
// kingdom it knows, highest priority first.
func (d *Diplomat) EvaluateDiplomaticActions(k *social.Kingdom) []DiplomaticAction {
	var actions []DiplomaticAction
	add := func(kind DiplomaticKind, target social.KingdomID, priority float64) {
		actions = append(actions, DiplomaticAction{Kind: kind, From: k.ID, Target: target, Priority: priority})
	}

	for _, id := range k.Others() {
		other, ok := d.world.Kingdom(id)
		if !ok {
			continue
		}
		rel := d.Relations(k, other)
		balance := d.MilitaryBalance(k, other)
		value := d.TradeValue(k, other)

		if k.AtWarWith(id) {
			add(DiplomacyMakePeace, id, (1-balance)*100+max(rel, -50)*0.2+(1-k.MilitaryPreference)*10)
			continue
		}

		if rel > 50 && !k.AlliedWith(id) {
			add(DiplomacyProposeAlliance, id, (rel-50)*1.5)
		}
		if rel > 20 && !k.TradeAgreements[id] && !k.Embargoes[id] {
			add(DiplomacyProposeTradeAgreement, id, value*0.5+rel*0.3+k.TradePreference*20)
		}
		if rel < 20 {
			add(DiplomacyImproveRelations, id, (20-rel)*0.5+10)
		}
		if rel < -40 && !k.Embargoes[id] && !k.AlliedWith(id) {
			add(DiplomacyImposeEmbargo, id, -rel-40+(1-k.TradePreference)*10)
		}
		if rel < -60 && balance > 0.6 && !k.AlliedWith(id) {
			add(DiplomacyDeclareWar, id, -rel-60+(balance-0.5)*100*(k.MilitaryPreference+1)/2)
		}
	}

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Priority > actions[j].Priority
	})
	return actions
}

// ApplyAction carries out an action, updating both kingdoms and the price
// modifiers it implies.
func (d *Diplomat) ApplyAction(a DiplomaticAction) error {
	from, ok := d.world.Kingdom(a.From)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownKingdom, a.From)
	}
	to, ok := d.world.Kingdom(a.Target)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownKingdom, a.Target)
	}
	switch a.Kind {
	case DiplomacyProposeAlliance:
		social.SetPact(from, to, social.Alliances, true)
		social.AdjustRelation(from, to, 10)
	case DiplomacyProposeTradeAgreement:
		social.SetPact(from, to, social.TradeAgreements, true)
		social.AdjustRelation(from, to, 5)
		d.syncModifier(trade.ModifierTradeAgreement, pactName("Trade agreement", from, to), agreementPriceFactor, true)
	case DiplomacyImproveRelations:
		from.Treasury -= envoyCost
		social.AdjustRelation(from, to, 5)
	case DiplomacyImposeEmbargo:
		social.SetPact(from, to, social.Embargoes, true)
		social.SetPact(from, to, social.TradeAgreements, false)
		d.syncModifier(trade.ModifierTradeAgreement, pactName("Trade agreement", from, to), agreementPriceFactor, false)
		social.AdjustRelation(from, to, -10)
		d.syncModifier(trade.ModifierEmbargo, pactName("Embargo", from, to), embargoPriceFactor, true)
	case DiplomacyDeclareWar:
		social.SetPact(from, to, social.Wars, true)
		social.SetPact(from, to, social.Alliances, false)
		social.SetPact(from, to, social.TradeAgreements, false)
		d.syncModifier(trade.ModifierTradeAgreement, pactName("Trade agreement", from, to), agreementPriceFactor, false)
		social.AdjustRelation(from, to, -30)
		d.syncModifier(trade.ModifierWar, pactName("War", from, to), warPriceFactor, true)
	case DiplomacyMakePeace:
		social.SetPact(from, to, social.Wars, false)
		social.AdjustRelation(from, to, 15)
		d.syncModifier(trade.ModifierWar, pactName("War", from, to), warPriceFactor, false)
	default:
		return fmt.Errorf("unknown diplomatic action %d", a.Kind)
	}

	pair := newKingdomPair(from.ID, to.ID)
	d.relations.forget(pair)
	d.tradeValue.forget(pair)
	d.military.forget([2]social.KingdomID{from.ID, to.ID})
	d.military.forget([2]social.KingdomID{to.ID, from.ID})
	return nil
}

// LiftEmbargo ends an embargo between two kingdoms along with its surcharge.
func (d *Diplomat) LiftEmbargo(a, b social.KingdomID) error {
	from, ok := d.world.Kingdom(a)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownKingdom, a)
	}
	to, ok := d.world.Kingdom(b)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownKingdom, b)
	}
	social.SetPact(from, to, social.Embargoes, false)
	d.syncModifier(trade.ModifierEmbargo, pactName("Embargo", from, to), embargoPriceFactor, false)
	d.relations.forget(newKingdomPair(a, b))
	return nil
}

// ReconcileModifiers makes the pact price modifiers match the pact tables:
// every standing war, embargo and trade agreement has its modifier and no
// modifier outlives its pact. It returns how many modifiers changed.
func (d *Diplomat) ReconcileModifiers() int {
	kingdoms := d.world.Kingdoms()
	changed := 0
	for i, a := range kingdoms {
		for _, b := range kingdoms[i+1:] {
			for _, p := range []struct {
				t     trade.ModifierType
				kind  string
				value float64
				on    bool
			}{
				{trade.ModifierWar, "War", warPriceFactor, a.Wars[b.ID]},
				{trade.ModifierEmbargo, "Embargo", embargoPriceFactor, a.Embargoes[b.ID]},
				{trade.ModifierTradeAgreement, "Trade agreement", agreementPriceFactor, a.TradeAgreements[b.ID]},
			} {
				if d.syncModifier(p.t, pactName(p.kind, a, b), p.value, p.on) {
					changed++
				}
			}
		}
	}
	return changed
}

// syncModifier adds or removes a pact modifier so that its presence matches
// on. Pact modifiers never expire on their own. It reports whether anything
// changed.
func (d *Diplomat) syncModifier(t trade.ModifierType, name string, value float64, on bool) bool {
	has := d.trade.HasPriceModifier(t, name)
	switch {
	case on && !has:
		d.trade.AddPriceModifier(t, name, value, 0)
		return true
	case !on && has:
		return d.trade.RemovePriceModifier(t, name)
	}
	return false
}

// pactName names a pact independently of which side initiated it.
func pactName(kind string, a, b *social.Kingdom) string {
	if a.ID > b.ID {
		a, b = b, a
	}
	return fmt.Sprintf("%s: %s and %s", kind, a.Name, b.Name)
}
