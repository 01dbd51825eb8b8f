// Package economy provides the trade-good catalog: goods, their types and base economics.
package economy

import (
	"sort"
	"strings"

	"github.com/talgya/tradewinds/internal/entropy"
)

// GoodID identifies a trade good in the catalog.
type GoodID = int

// InvalidGoodID is stored by callers that need to persist "no good".
const InvalidGoodID GoodID = -1

// GoodType categorises a trade good.
type GoodType uint8

const (
	GoodRawMaterial  GoodType = iota // Timber, ore, hemp
	GoodFood                         // Grain, fish, salt pork
	GoodManufactured                 // Tools, cloth, rope
	GoodLuxury                       // Spices, silk, wine
	GoodMilitary                     // Cannon, powder, muskets
	GoodNaval                        // Canvas, tar, naval stores
	GoodOther
)

var goodTypeNames = [...]string{
	GoodRawMaterial:  "RawMaterial",
	GoodFood:         "Food",
	GoodManufactured: "Manufactured",
	GoodLuxury:       "Luxury",
	GoodMilitary:     "Military",
	GoodNaval:        "Naval",
	GoodOther:        "Other",
}

func (t GoodType) String() string {
	if int(t) < len(goodTypeNames) {
		return goodTypeNames[t]
	}
	return "Other"
}

// ParseGoodType converts a type name to a GoodType. Unknown names map to GoodOther.
func ParseGoodType(s string) GoodType {
	for i, name := range goodTypeNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return GoodType(i)
		}
	}
	return GoodOther
}

// MarshalText implements encoding.TextMarshaler so catalogs and JSON use names.
func (t GoodType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Never fails.
func (t *GoodType) UnmarshalText(b []byte) error {
	*t = ParseGoodType(string(b))
	return nil
}

// GoodDef is the raw definition of a good as read from configuration.
// Zero values for Volatility, MinPrice and MaxPrice mean "derive".
type GoodDef struct {
	ID           GoodID   `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	Description  string   `yaml:"description" json:"description"`
	Type         GoodType `yaml:"type" json:"type"`
	BasePrice    int      `yaml:"base_price" json:"base_price"`
	Weight       float64  `yaml:"weight" json:"weight"`
	Rarity       int      `yaml:"rarity" json:"rarity"`
	IsContraband bool     `yaml:"contraband" json:"contraband"`
	Volatility   float64  `yaml:"volatility" json:"volatility"`
	MinPrice     int      `yaml:"min_price" json:"min_price"`
	MaxPrice     int      `yaml:"max_price" json:"max_price"`
	Producers    []string `yaml:"producers" json:"producers"`
	Consumers    []string `yaml:"consumers" json:"consumers"`
}

// TradeGood is an immutable catalog entry. Construct with NewTradeGood.
type TradeGood struct {
	ID           GoodID   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Type         GoodType `json:"type"`
	BasePrice    int      `json:"base_price"` // Gold per unit, >= 0
	Weight       float64  `json:"weight"`     // Cargo weight per unit, >= 0
	Rarity       int      `json:"rarity"`     // 1–10
	IsContraband bool     `json:"contraband"`
	Volatility   float64  `json:"volatility"`
	MinPrice     int      `json:"min_price"`
	MaxPrice     int      `json:"max_price"`

	producers map[string]struct{}
	consumers map[string]struct{}
}

// NewTradeGood normalises a definition: clamps rarity and negatives, derives
// volatility (0.1 + rarity×0.02) and the price band (50%–200% of base).
func NewTradeGood(def GoodDef) TradeGood {
	g := TradeGood{
		ID:           def.ID,
		Name:         def.Name,
		Description:  def.Description,
		Type:         def.Type,
		BasePrice:    max(def.BasePrice, 0),
		Weight:       max(def.Weight, 0),
		Rarity:       min(max(def.Rarity, 1), 10),
		IsContraband: def.IsContraband,
		Volatility:   def.Volatility,
		MinPrice:     def.MinPrice,
		MaxPrice:     def.MaxPrice,
		producers:    toSet(def.Producers),
		consumers:    toSet(def.Consumers),
	}
	if g.Volatility <= 0 {
		g.Volatility = 0.1 + float64(g.Rarity)*0.02
	}
	if g.MinPrice <= 0 {
		g.MinPrice = g.BasePrice / 2
	}
	if g.MaxPrice <= 0 {
		g.MaxPrice = g.BasePrice * 2
	}
	if g.MaxPrice < g.MinPrice {
		g.MaxPrice = g.MinPrice
	}
	return g
}

func toSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}

// ProducedBy reports whether cities of the given type produce this good.
func (g TradeGood) ProducedBy(cityType string) bool {
	_, ok := g.producers[cityType]
	return ok
}

// ConsumedBy reports whether cities of the given type consume this good.
func (g TradeGood) ConsumedBy(cityType string) bool {
	_, ok := g.consumers[cityType]
	return ok
}

// Producers returns the producer city types, sorted.
func (g TradeGood) Producers() []string { return sortedKeys(g.producers) }

// Consumers returns the consumer city types, sorted.
func (g TradeGood) Consumers() []string { return sortedKeys(g.consumers) }

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// GenerateRandomPrice draws a price uniformly from [MinPrice, MaxPrice].
func (g TradeGood) GenerateRandomPrice(src entropy.Source) int {
	return entropy.UniformInt(src, g.MinPrice, g.MaxPrice)
}
