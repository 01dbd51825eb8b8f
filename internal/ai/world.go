package ai

import "github.com/talgya/tradewinds/internal/social"

// World is the read view the decision layers need. The simulation implements
// it; tests use a StaticWorld.
type World interface {
	Cities() []*social.City
	City(id social.CityID) (*social.City, bool)
	Kingdoms() []*social.Kingdom
	Kingdom(id social.KingdomID) (*social.Kingdom, bool)
}

// StaticWorld is a fixed set of cities and kingdoms, kept in insertion order.
type StaticWorld struct {
	cities   []*social.City
	kingdoms []*social.Kingdom
}

// NewStaticWorld returns a world over the given cities and kingdoms.
func NewStaticWorld(cities []*social.City, kingdoms []*social.Kingdom) *StaticWorld {
	return &StaticWorld{cities: cities, kingdoms: kingdoms}
}

func (w *StaticWorld) Cities() []*social.City { return w.cities }

func (w *StaticWorld) City(id social.CityID) (*social.City, bool) {
	for _, c := range w.cities {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

func (w *StaticWorld) Kingdoms() []*social.Kingdom { return w.kingdoms }

func (w *StaticWorld) Kingdom(id social.KingdomID) (*social.Kingdom, bool) {
	for _, k := range w.kingdoms {
		if k.ID == id {
			return k, true
		}
	}
	return nil, false
}
