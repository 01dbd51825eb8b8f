// Package ai holds the decision layers that read market and political state
// and act on it: merchants choosing routes, governors developing cities,
// diplomats managing kingdoms, and the director that rolls world events.
package ai

import (
	"github.com/talgya/tradewinds/internal/economy"
	"github.com/talgya/tradewinds/internal/social"
)

// Generation counts ticks. Every memo entry is tagged with the generation it
// was computed in and is stale once the counter moves on.
type Generation struct {
	n uint64
}

// Advance starts a new generation, invalidating every memo tied to it.
func (g *Generation) Advance() { g.n++ }

// Current returns the current generation number.
func (g *Generation) Current() uint64 { return g.n }

// memo caches values for one generation. The map is dropped wholesale when the
// generation changes.
type memo[K comparable, V any] struct {
	gen    *Generation
	seen   uint64
	values map[K]V
}

func newMemo[K comparable, V any](gen *Generation) *memo[K, V] {
	return &memo[K, V]{gen: gen, values: make(map[K]V)}
}

func (m *memo[K, V]) get(key K, compute func() V) V {
	if m.seen != m.gen.Current() {
		clear(m.values)
		m.seen = m.gen.Current()
	}
	if v, ok := m.values[key]; ok {
		return v
	}
	v := compute()
	m.values[key] = v
	return v
}

func (m *memo[K, V]) forget(key K) {
	delete(m.values, key)
}

func (m *memo[K, V]) len() int {
	if m.seen != m.gen.Current() {
		return 0
	}
	return len(m.values)
}

// cityGood keys per-city, per-good values.
type cityGood struct {
	city social.CityID
	good economy.GoodID
}

// cityPair keys ordered city pairs.
type cityPair struct {
	from, to social.CityID
}

// kingdomPair keys unordered kingdom pairs; build with newKingdomPair.
type kingdomPair struct {
	lo, hi social.KingdomID
}

func newKingdomPair(a, b social.KingdomID) kingdomPair {
	if a > b {
		a, b = b, a
	}
	return kingdomPair{lo: a, hi: b}
}
