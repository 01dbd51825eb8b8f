package economy

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// City-type tags used by producer/consumer sets.
const (
	CityPort       = "Port"
	CityFarming    = "Farming"
	CityMining     = "Mining"
	CityLumber     = "Lumber"
	CityIndustrial = "Industrial"
	CityCapital    = "Capital"
)

// CityTypes lists every known city-type tag.
var CityTypes = []string{CityPort, CityFarming, CityMining, CityLumber, CityIndustrial, CityCapital}

// Catalog is the read-only set of tradable goods keyed by id.
type Catalog struct {
	goods map[GoodID]TradeGood
	order []GoodID
}

// NewCatalog builds a catalog from definitions. Duplicate ids are an error.
func NewCatalog(defs []GoodDef) (*Catalog, error) {
	c := &Catalog{goods: make(map[GoodID]TradeGood, len(defs))}
	for _, d := range defs {
		if d.ID < 0 {
			return nil, fmt.Errorf("good %q: negative id %d", d.Name, d.ID)
		}
		if _, dup := c.goods[d.ID]; dup {
			return nil, fmt.Errorf("duplicate good id %d (%s)", d.ID, d.Name)
		}
		c.goods[d.ID] = NewTradeGood(d)
		c.order = append(c.order, d.ID)
	}
	sort.Ints(c.order)
	return c, nil
}

// Get returns the good with the given id. ok is false when the id is unknown.
func (c *Catalog) Get(id GoodID) (TradeGood, bool) {
	g, ok := c.goods[id]
	return g, ok
}

// Has reports whether the id is in the catalog.
func (c *Catalog) Has(id GoodID) bool {
	_, ok := c.goods[id]
	return ok
}

// All returns every good sorted by id.
func (c *Catalog) All() []TradeGood {
	out := make([]TradeGood, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.goods[id])
	}
	return out
}

// Len returns the number of goods.
func (c *Catalog) Len() int { return len(c.order) }

type catalogFile struct {
	Goods []GoodDef `yaml:"goods"`
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return NewCatalog(f.Goods)
}

// LoadCatalogFile reads a YAML catalog from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the built-in maritime goods.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultGoods)
	if err != nil {
		panic(err) // static table
	}
	return c
}

var defaultGoods = []GoodDef{
	{ID: 1, Name: "Grain", Description: "Sacks of wheat and barley", Type: GoodFood, BasePrice: 10, Weight: 1, Rarity: 1,
		Producers: []string{CityFarming}, Consumers: []string{CityCapital, CityMining, CityIndustrial}},
	{ID: 2, Name: "Fish", Description: "Salted cod in barrels", Type: GoodFood, BasePrice: 12, Weight: 1, Rarity: 1,
		Producers: []string{CityPort}, Consumers: []string{CityCapital, CityMining}},
	{ID: 3, Name: "Timber", Description: "Seasoned oak planks", Type: GoodRawMaterial, BasePrice: 18, Weight: 3, Rarity: 2,
		Producers: []string{CityLumber}, Consumers: []string{CityPort, CityIndustrial}},
	{ID: 4, Name: "Iron Ore", Description: "Unrefined ore", Type: GoodRawMaterial, BasePrice: 25, Weight: 4, Rarity: 3,
		Producers: []string{CityMining}, Consumers: []string{CityIndustrial}},
	{ID: 5, Name: "Tools", Description: "Hammers, saws and adzes", Type: GoodManufactured, BasePrice: 45, Weight: 2, Rarity: 3,
		Producers: []string{CityIndustrial}, Consumers: []string{CityFarming, CityMining, CityLumber}},
	{ID: 6, Name: "Cloth", Description: "Bolts of wool and linen", Type: GoodManufactured, BasePrice: 35, Weight: 1, Rarity: 3,
		Producers: []string{CityIndustrial}, Consumers: []string{CityCapital, CityPort}},
	{ID: 7, Name: "Spices", Description: "Pepper, clove and nutmeg", Type: GoodLuxury, BasePrice: 120, Weight: 0.5, Rarity: 8,
		Producers: []string{}, Consumers: []string{CityCapital}},
	{ID: 8, Name: "Wine", Description: "Casks of red wine", Type: GoodLuxury, BasePrice: 80, Weight: 2, Rarity: 5,
		Producers: []string{CityFarming}, Consumers: []string{CityCapital, CityPort}},
	{ID: 9, Name: "Gunpowder", Description: "Kegs of black powder", Type: GoodMilitary, BasePrice: 90, Weight: 2, Rarity: 6,
		Producers: []string{CityIndustrial}, Consumers: []string{CityCapital, CityPort}},
	{ID: 10, Name: "Cannon", Description: "Cast iron naval guns", Type: GoodMilitary, BasePrice: 250, Weight: 10, Rarity: 7,
		Producers: []string{CityIndustrial}, Consumers: []string{CityPort}},
	{ID: 11, Name: "Canvas", Description: "Sailcloth", Type: GoodNaval, BasePrice: 40, Weight: 1.5, Rarity: 4,
		Producers: []string{CityIndustrial}, Consumers: []string{CityPort}},
	{ID: 12, Name: "Tar", Description: "Pine tar and pitch", Type: GoodNaval, BasePrice: 22, Weight: 2, Rarity: 2,
		Producers: []string{CityLumber}, Consumers: []string{CityPort}},
	{ID: 13, Name: "Rum", Description: "Untaxed spirits", Type: GoodLuxury, BasePrice: 60, Weight: 1.5, Rarity: 5, IsContraband: true,
		Producers: []string{CityPort}, Consumers: []string{CityMining, CityLumber}},
	{ID: 14, Name: "Silk", Description: "Fine eastern silk", Type: GoodLuxury, BasePrice: 200, Weight: 0.5, Rarity: 9,
		Producers: []string{}, Consumers: []string{CityCapital}},
}
