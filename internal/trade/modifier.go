package trade

import (
	"fmt"
	"strings"
)

// ModifierType groups price modifiers by their cause.
type ModifierType uint8

const (
	ModifierEvent ModifierType = iota
	ModifierSeason
	ModifierWar
	ModifierEmbargo
	ModifierTradeAgreement
	ModifierPolicy
)

var modifierTypeNames = [...]string{
	ModifierEvent:          "Event",
	ModifierSeason:         "Season",
	ModifierWar:            "War",
	ModifierEmbargo:        "Embargo",
	ModifierTradeAgreement: "TradeAgreement",
	ModifierPolicy:         "Policy",
}

func (t ModifierType) String() string {
	if int(t) < len(modifierTypeNames) {
		return modifierTypeNames[t]
	}
	return "Unknown"
}

// ParseModifierType converts a modifier type name (case-insensitive).
func ParseModifierType(s string) (ModifierType, bool) {
	for i, name := range modifierTypeNames {
		if strings.EqualFold(name, s) {
			return ModifierType(i), true
		}
	}
	return 0, false
}

func (t ModifierType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *ModifierType) UnmarshalText(b []byte) error {
	v, ok := ParseModifierType(string(b))
	if !ok {
		return fmt.Errorf("unknown modifier type %q", b)
	}
	*t = v
	return nil
}

// PriceModifier is a named, time-bounded multiplier applied to every transaction.
type PriceModifier struct {
	Type        ModifierType `json:"type"`
	Description string       `json:"description"`
	Value       float64      `json:"value"`
	ExpiryTime  float64      `json:"expiry_time"` // Game hour; 0 = until removed

	seq uint64 // insertion order
}

// Expires reports whether the modifier has a finite lifetime.
func (m PriceModifier) Expires() bool { return m.ExpiryTime > 0 }

// EvictionPolicy decides which modifier is dropped when the list is full.
type EvictionPolicy uint8

const (
	// EvictOldest drops the earliest-added modifier regardless of expiry.
	EvictOldest EvictionPolicy = iota
	// EvictSoonestExpiring drops the modifier closest to expiry; permanent
	// modifiers are only dropped when nothing else expires.
	EvictSoonestExpiring
)

func (p EvictionPolicy) String() string {
	if p == EvictSoonestExpiring {
		return "soonest_expiring"
	}
	return "oldest"
}

// ParseEvictionPolicy accepts "oldest" and "soonest_expiring"; anything else is oldest.
func ParseEvictionPolicy(s string) EvictionPolicy {
	if strings.EqualFold(s, "soonest_expiring") {
		return EvictSoonestExpiring
	}
	return EvictOldest
}

// victim returns the index to evict from a non-empty list.
func (p EvictionPolicy) victim(mods []PriceModifier) int {
	oldest := 0
	for i := range mods {
		if mods[i].seq < mods[oldest].seq {
			oldest = i
		}
	}
	if p != EvictSoonestExpiring {
		return oldest
	}

	soonest := -1
	for i, m := range mods {
		if !m.Expires() {
			continue
		}
		if soonest < 0 || m.ExpiryTime < mods[soonest].ExpiryTime ||
			(m.ExpiryTime == mods[soonest].ExpiryTime && m.seq < mods[soonest].seq) {
			soonest = i
		}
	}
	if soonest < 0 {
		return oldest
	}
	return soonest
}
