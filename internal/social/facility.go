package social

import (
	"errors"
	"strings"
)

// Facility is a building a city can construct once.
type Facility uint8

const (
	FacilityShipyard Facility = iota
	FacilityBank
	FacilityGuild
	FacilityMarketplace
	FacilityTavern
	FacilityBarracks
)

// AllFacilities lists every facility in construction-table order.
var AllFacilities = []Facility{
	FacilityShipyard, FacilityBank, FacilityGuild,
	FacilityMarketplace, FacilityTavern, FacilityBarracks,
}

var (
	ErrUnknownFacility        = errors.New("unknown facility")
	ErrFacilityExists         = errors.New("facility already built")
	ErrInsufficientWealth     = errors.New("city cannot afford facility")
	ErrInsufficientPopulation = errors.New("city population too small for facility")
)

// FacilityRequirement is the construction cost and population gate of a facility.
type FacilityRequirement struct {
	Cost          int
	MinPopulation int
}

var facilityTable = map[Facility]FacilityRequirement{
	FacilityShipyard:    {Cost: 5000, MinPopulation: 1000},
	FacilityBank:        {Cost: 3000, MinPopulation: 2000},
	FacilityGuild:       {Cost: 2000, MinPopulation: 1500},
	FacilityMarketplace: {Cost: 1000, MinPopulation: 500},
	FacilityTavern:      {Cost: 500, MinPopulation: 200},
	FacilityBarracks:    {Cost: 2500, MinPopulation: 1000},
}

const barracksDefenseBonus = 10

var facilityNames = map[Facility]string{
	FacilityShipyard:    "Shipyard",
	FacilityBank:        "Bank",
	FacilityGuild:       "Guild",
	FacilityMarketplace: "Marketplace",
	FacilityTavern:      "Tavern",
	FacilityBarracks:    "Barracks",
}

func (f Facility) String() string {
	if name, ok := facilityNames[f]; ok {
		return name
	}
	return "Unknown"
}

// Requirement returns the cost and population gate for the facility.
func (f Facility) Requirement() (FacilityRequirement, bool) {
	r, ok := facilityTable[f]
	return r, ok
}

// ParseFacility converts a facility name (case-insensitive) to a Facility.
func ParseFacility(s string) (Facility, error) {
	for f, name := range facilityNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return 0, ErrUnknownFacility
}

// Facilities holds the built flag for each facility.
type Facilities struct {
	Shipyard    bool `json:"shipyard"`
	Bank        bool `json:"bank"`
	Guild       bool `json:"guild"`
	Marketplace bool `json:"marketplace"`
	Tavern      bool `json:"tavern"`
	Barracks    bool `json:"barracks"`
}

// Has reports whether the facility is built.
func (fs Facilities) Has(f Facility) bool {
	switch f {
	case FacilityShipyard:
		return fs.Shipyard
	case FacilityBank:
		return fs.Bank
	case FacilityGuild:
		return fs.Guild
	case FacilityMarketplace:
		return fs.Marketplace
	case FacilityTavern:
		return fs.Tavern
	case FacilityBarracks:
		return fs.Barracks
	}
	return false
}

func (fs *Facilities) set(f Facility) {
	switch f {
	case FacilityShipyard:
		fs.Shipyard = true
	case FacilityBank:
		fs.Bank = true
	case FacilityGuild:
		fs.Guild = true
	case FacilityMarketplace:
		fs.Marketplace = true
	case FacilityTavern:
		fs.Tavern = true
	case FacilityBarracks:
		fs.Barracks = true
	}
}

// Count returns how many facilities are built.
func (fs Facilities) Count() int {
	n := 0
	for _, f := range AllFacilities {
		if fs.Has(f) {
			n++
		}
	}
	return n
}

// CanBuild checks whether the facility could be built right now.
func (c *City) CanBuild(f Facility) error {
	req, ok := facilityTable[f]
	if !ok {
		return ErrUnknownFacility
	}
	if c.Facilities.Has(f) {
		return ErrFacilityExists
	}
	if c.Wealth < req.Cost {
		return ErrInsufficientWealth
	}
	if c.Population < req.MinPopulation {
		return ErrInsufficientPopulation
	}
	return nil
}

// BuildFacility constructs a facility, paying its cost from city wealth.
// Success grants +5 influence and +2 stability.
func (c *City) BuildFacility(f Facility) error {
	if err := c.CanBuild(f); err != nil {
		return err
	}
	c.Wealth -= facilityTable[f].Cost
	c.Facilities.set(f)
	if f == FacilityBarracks {
		c.DefenseLevel += barracksDefenseBonus
	}
	c.Influence += 5
	c.Stability = clamp(c.Stability+2, 0, 100)
	return nil
}
