// Kingdoms: political owners of cities, with relations, alliances and wars.
package social

import "sort"

// KingdomID is a unique identifier for a kingdom.
type KingdomID = int

// Relation bounds.
const (
	MinRelation = -100.0
	MaxRelation = 100.0
)

// Kingdom owns cities and keeps relations with its neighbours.
type Kingdom struct {
	ID      KingdomID `json:"id"`
	Name    string    `json:"name"`
	Faction string    `json:"faction"` // Tag shared with member cities for trade discounts

	Cities   []CityID `json:"cities"`
	Treasury int      `json:"treasury"`

	// Relations with other kingdoms (kingdom ID → -100 to +100).
	Relations map[KingdomID]float64 `json:"relations"`

	Alliances       map[KingdomID]bool `json:"alliances"`
	Wars            map[KingdomID]bool `json:"wars"`
	TradeAgreements map[KingdomID]bool `json:"trade_agreements"`
	Embargoes       map[KingdomID]bool `json:"embargoes"`

	// Policy tendencies
	TradePreference    float64 `json:"trade_preference"`    // -1 isolationist, +1 free trade
	MilitaryPreference float64 `json:"military_preference"` // -1 pacifist, +1 militarist
}

// NewKingdom returns a kingdom with empty relation tables.
func NewKingdom(id KingdomID, name, faction string) *Kingdom {
	return &Kingdom{
		ID:              id,
		Name:            name,
		Faction:         faction,
		Relations:       make(map[KingdomID]float64),
		Alliances:       make(map[KingdomID]bool),
		Wars:            make(map[KingdomID]bool),
		TradeAgreements: make(map[KingdomID]bool),
		Embargoes:       make(map[KingdomID]bool),
	}
}

// Relation returns the current relation with another kingdom (0 when unknown).
func (k *Kingdom) Relation(other KingdomID) float64 {
	return k.Relations[other]
}

// AtWarWith reports whether the two kingdoms are at war.
func (k *Kingdom) AtWarWith(other KingdomID) bool { return k.Wars[other] }

// AlliedWith reports whether the two kingdoms are allied.
func (k *Kingdom) AlliedWith(other KingdomID) bool { return k.Alliances[other] }

// HasCity reports whether the kingdom owns the city.
func (k *Kingdom) HasCity(id CityID) bool {
	for _, c := range k.Cities {
		if c == id {
			return true
		}
	}
	return false
}

// SetRelation sets a symmetric relation between two kingdoms.
func SetRelation(a, b *Kingdom, value float64) {
	v := clamp(value, MinRelation, MaxRelation)
	a.Relations[b.ID] = v
	b.Relations[a.ID] = v
}

// AdjustRelation shifts a symmetric relation by delta.
func AdjustRelation(a, b *Kingdom, delta float64) {
	SetRelation(a, b, a.Relations[b.ID]+delta)
}

// SetPact sets or clears a symmetric pact flag in the given table selector.
func SetPact(a, b *Kingdom, table func(*Kingdom) map[KingdomID]bool, on bool) {
	if on {
		table(a)[b.ID] = true
		table(b)[a.ID] = true
		return
	}
	delete(table(a), b.ID)
	delete(table(b), a.ID)
}

// Pact table selectors for SetPact.
func Alliances(k *Kingdom) map[KingdomID]bool       { return k.Alliances }
func Wars(k *Kingdom) map[KingdomID]bool            { return k.Wars }
func TradeAgreements(k *Kingdom) map[KingdomID]bool { return k.TradeAgreements }
func Embargoes(k *Kingdom) map[KingdomID]bool       { return k.Embargoes }

// DriftRelations decays every relation toward neutral by the given fraction.
func (k *Kingdom) DriftRelations(rate float64) {
	for other, rel := range k.Relations {
		k.Relations[other] = rel - rel*rate
	}
}

// Others returns ids of kingdoms this one has relations with, sorted.
func (k *Kingdom) Others() []KingdomID {
	ids := make([]KingdomID, 0, len(k.Relations))
	for id := range k.Relations {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SeedKingdoms creates the initial kingdoms of a fresh world.
func SeedKingdoms() []*Kingdom {
	crown := NewKingdom(1, "Crown of Aldmere", "Aldmere")
	crown.TradePreference, crown.MilitaryPreference = 0.1, 0.5

	league := NewKingdom(2, "Free League", "League")
	league.TradePreference, league.MilitaryPreference = 0.8, -0.3

	sultanate := NewKingdom(3, "Sultanate of Qadir", "Qadir")
	sultanate.TradePreference, sultanate.MilitaryPreference = 0.4, 0.2

	brethren := NewKingdom(4, "Brethren of the Coast", "Brethren")
	brethren.TradePreference, brethren.MilitaryPreference = -0.2, 0.9

	SetRelation(crown, league, -20)
	SetRelation(crown, sultanate, 10)
	SetRelation(crown, brethren, -60)
	SetRelation(league, sultanate, 30)
	SetRelation(league, brethren, -30)
	SetRelation(sultanate, brethren, -40)

	return []*Kingdom{crown, league, sultanate, brethren}
}
