package ai

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/tradewinds/internal/entropy"
	"github.com/talgya/tradewinds/internal/social"
	"github.com/talgya/tradewinds/internal/trade"
)

// eventCategory describes how often an event strikes and how hard.
type eventCategory struct {
	kind        social.EventKind
	probability float64 // Per evaluation
	minSeverity int
	maxSeverity int
	minHours    float64
	maxHours    float64
	priceSlope  float64 // Price modifier change per severity point; 0 = no market effect
}

var eventTable = []eventCategory{
	{social.EventPlague, 0.05, 2, 8, 72, 240, 0},
	{social.EventFire, 0.10, 1, 6, 12, 48, 0},
	{social.EventFestival, 0.20, 1, 5, 24, 72, 0},
	{social.EventGoodHarvest, 0.15, 2, 8, 72, 168, -0.01},
	{social.EventBadHarvest, 0.15, 2, 8, 72, 168, 0.02},
	{social.EventStorm, 0.30, 1, 7, 6, 48, 0.015},
	{social.EventPirateRaid, 0.10, 2, 9, 24, 96, 0.03},
	{social.EventTradeBoom, 0.08, 1, 6, 48, 168, -0.02},
}

// EventEffects records what an event did to its city.
type EventEffects struct {
	Population  int     `json:"population"`
	Wealth      int     `json:"wealth"`
	Stability   float64 `json:"stability"`
	PriceFactor float64 `json:"price_factor,omitempty"` // 0 when prices were untouched
}

// ActiveEvent is an event still running its course.
type ActiveEvent struct {
	ID        string           `json:"id"`
	Kind      social.EventKind `json:"-"`
	KindName  string           `json:"kind"`
	CityID    social.CityID    `json:"city_id"`
	CityName  string           `json:"city_name"`
	Severity  int              `json:"severity"`
	Duration  float64          `json:"duration"`  // Hours at onset
	Remaining float64          `json:"remaining"` // Hours left
	Effects   EventEffects     `json:"effects"`
	Modifier  string           `json:"modifier,omitempty"` // Price modifier description, if any
}

// EventDirector rolls random world events and tracks them until they resolve.
type EventDirector struct {
	trade  *trade.System
	src    entropy.Source
	active []*ActiveEvent
}

// NewEventDirector returns a director drawing from src and posting market
// effects to ts.
func NewEventDirector(ts *trade.System, src entropy.Source) *EventDirector {
	return &EventDirector{trade: ts, src: src}
}

// Update ages running events by dt hours, resolves the finished ones, then
// rolls once per category for a new event in a random city. It returns the
// events triggered and the events resolved.
func (d *EventDirector) Update(dt float64, cities []*social.City) (triggered, resolved []ActiveEvent) {
	resolved = d.decay(dt)
	if len(cities) == 0 {
		return nil, resolved
	}
	for _, cat := range eventTable {
		if !entropy.Chance(d.src, cat.probability) {
			continue
		}
		c := cities[d.src.Intn(len(cities))]
		triggered = append(triggered, d.trigger(cat, c))
	}
	return triggered, resolved
}

// Trigger starts an event of the given kind in a city immediately.
func (d *EventDirector) Trigger(kind social.EventKind, c *social.City) (ActiveEvent, bool) {
	for _, cat := range eventTable {
		if cat.kind == kind {
			return d.trigger(cat, c), true
		}
	}
	return ActiveEvent{}, false
}

func (d *EventDirector) trigger(cat eventCategory, c *social.City) ActiveEvent {
	severity := entropy.UniformInt(d.src, cat.minSeverity, cat.maxSeverity)
	hours := entropy.Uniform(d.src, cat.minHours, cat.maxHours)

	pop, wealth, stability := c.Population, c.Wealth, c.Stability
	c.ApplyEvent(cat.kind, severity)

	ev := &ActiveEvent{
		ID:        uuid.NewString(),
		Kind:      cat.kind,
		KindName:  cat.kind.String(),
		CityID:    c.ID,
		CityName:  c.Name,
		Severity:  severity,
		Duration:  hours,
		Remaining: hours,
		Effects: EventEffects{
			Population: c.Population - pop,
			Wealth:     c.Wealth - wealth,
			Stability:  c.Stability - stability,
		},
	}

	if cat.priceSlope != 0 {
		factor := max(1+cat.priceSlope*float64(severity), 0.1)
		ev.Effects.PriceFactor = factor
		ev.Modifier = fmt.Sprintf("%s in %s (%s)", cat.kind, c.Name, ev.ID[:8])
		d.trade.AddPriceModifier(trade.ModifierEvent, ev.Modifier, factor, d.trade.Now()+hours)
	}

	d.active = append(d.active, ev)
	return *ev
}

func (d *EventDirector) decay(dt float64) []ActiveEvent {
	var resolved []ActiveEvent
	kept := d.active[:0]
	for _, ev := range d.active {
		ev.Remaining -= dt
		if ev.Remaining > 0 {
			kept = append(kept, ev)
			continue
		}
		if ev.Modifier != "" {
			d.trade.RemovePriceModifier(trade.ModifierEvent, ev.Modifier)
		}
		resolved = append(resolved, *ev)
	}
	clear(d.active[len(kept):])
	d.active = kept
	return resolved
}

// Active returns a snapshot of running events, oldest first.
func (d *EventDirector) Active() []ActiveEvent {
	out := make([]ActiveEvent, len(d.active))
	for i, ev := range d.active {
		out[i] = *ev
	}
	return out
}
