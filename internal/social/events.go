// City events: plague, fire, festivals, harvests and the sea's own troubles.
package social

import (
	"sort"
	"strings"
)

// EventKind is a local event that strikes a single city.
type EventKind uint8

const (
	EventPlague EventKind = iota
	EventFire
	EventFestival
	EventGoodHarvest
	EventBadHarvest
	EventStorm
	EventPirateRaid
	EventTradeBoom
)

var eventKindNames = map[EventKind]string{
	EventPlague:      "Plague",
	EventFire:        "Fire",
	EventFestival:    "Festival",
	EventGoodHarvest: "GoodHarvest",
	EventBadHarvest:  "BadHarvest",
	EventStorm:       "Storm",
	EventPirateRaid:  "PirateRaid",
	EventTradeBoom:   "TradeBoom",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// ParseEventKind converts an event name to an EventKind.
func ParseEventKind(s string) (EventKind, bool) {
	for k, name := range eventKindNames {
		if strings.EqualFold(name, s) {
			return k, true
		}
	}
	return 0, false
}

// ApplyEvent applies the deterministic effects of an event with magnitude 1–10.
// Stability is always reclamped to [0,100] afterwards.
func (c *City) ApplyEvent(kind EventKind, magnitude int) {
	m := float64(min(max(magnitude, 1), 10))

	switch kind {
	case EventPlague:
		// Up to 20% of the population at magnitude 10.
		c.Population -= int(float64(c.Population) * m * 0.02)
		c.Stability -= m * 2
	case EventFire:
		c.Wealth -= int(float64(c.Wealth) * m * 0.03)
		c.Stability -= m
		c.scaleResources(1 - m*0.05)
	case EventFestival:
		c.Wealth -= int(m * 20)
		c.Stability += m * 1.5
		c.LoyaltyLevel = clamp(c.LoyaltyLevel+m, 0, 100)
	case EventGoodHarvest:
		c.addResources(int(m * 10))
		c.Population += int(float64(c.Population) * m * 0.002)
		c.Stability += m * 0.5
	case EventBadHarvest:
		c.scaleResources(1 - m*0.1)
		c.Stability -= m * 1.5
	case EventStorm:
		c.Wealth -= int(float64(c.Wealth) * m * 0.01)
		c.Stability -= m * 0.5
	case EventPirateRaid:
		c.Wealth -= int(float64(c.Wealth) * m * 0.02)
		c.Stability -= m
		c.LoyaltyLevel = clamp(c.LoyaltyLevel-m*0.5, 0, 100)
	case EventTradeBoom:
		c.Wealth += int(m * 50)
		c.Stability += m * 0.5
	}

	if c.Population < 0 {
		c.Population = 0
	}
	if c.Wealth < 0 {
		c.Wealth = 0
	}
	c.Stability = clamp(c.Stability, 0, 100)
}

func (c *City) scaleResources(factor float64) {
	factor = max(factor, 0)
	for _, id := range c.resourceIDs() {
		r := c.Resources[id]
		r.Quantity = int(float64(r.Quantity) * factor)
		c.Resources[id] = r
	}
}

func (c *City) addResources(n int) {
	for _, id := range c.resourceIDs() {
		r := c.Resources[id]
		r.Quantity += n
		c.Resources[id] = r
	}
}

func (c *City) resourceIDs() []string {
	ids := make([]string, 0, len(c.Resources))
	for id := range c.Resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
