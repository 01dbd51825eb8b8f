package trade

import "github.com/talgya/tradewinds/internal/economy"

// ShipID identifies a ship within its owner's fleet.
type ShipID = int

// NoShip selects the player's personal inventory instead of a ship hold.
const NoShip ShipID = -1

// Ship carries cargo up to a weight capacity.
type Ship struct {
	ID            ShipID                 `json:"id"`
	Name          string                 `json:"name"`
	CargoCapacity float64                `json:"cargo_capacity"`
	Cargo         map[economy.GoodID]int `json:"cargo"`
}

// NewShip returns an empty ship.
func NewShip(id ShipID, name string, capacity float64) *Ship {
	return &Ship{ID: id, Name: name, CargoCapacity: capacity, Cargo: make(map[economy.GoodID]int)}
}

// CargoWeight sums the catalog weight of everything in the hold.
// Goods missing from the catalog weigh nothing.
func (s *Ship) CargoWeight(cat *economy.Catalog) float64 {
	total := 0.0
	for id, qty := range s.Cargo {
		if g, ok := cat.Get(id); ok {
			total += g.Weight * float64(qty)
		}
	}
	return total
}

// FreeCapacity returns the remaining cargo weight.
func (s *Ship) FreeCapacity(cat *economy.Catalog) float64 {
	return max(s.CargoCapacity-s.CargoWeight(cat), 0)
}

// CanCarry reports whether qty units of the good fit in the remaining hold.
func (s *Ship) CanCarry(cat *economy.Catalog, good economy.TradeGood, qty int) bool {
	return s.FreeCapacity(cat) >= good.Weight*float64(qty)
}

// Player is a trader with gold, a personal inventory and a fleet.
type Player struct {
	Name      string                 `json:"name"`
	Faction   string                 `json:"faction"`
	Gold      int                    `json:"gold"`
	Inventory map[economy.GoodID]int `json:"inventory"`
	Ships     []*Ship                `json:"ships"`
}

// NewPlayer returns a player with empty holdings.
func NewPlayer(name, faction string, gold int) *Player {
	return &Player{Name: name, Faction: faction, Gold: gold, Inventory: make(map[economy.GoodID]int)}
}

// AddShip adds a ship to the fleet.
func (p *Player) AddShip(s *Ship) {
	p.Ships = append(p.Ships, s)
}

// Ship looks up a ship by id.
func (p *Player) Ship(id ShipID) (*Ship, bool) {
	for _, s := range p.Ships {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// holding returns the cargo map addressed by shipID.
func (p *Player) holding(shipID ShipID) (map[economy.GoodID]int, *Ship, error) {
	if shipID == NoShip {
		if p.Inventory == nil {
			p.Inventory = make(map[economy.GoodID]int)
		}
		return p.Inventory, nil, nil
	}
	s, ok := p.Ship(shipID)
	if !ok {
		return nil, nil, ErrUnknownShip
	}
	if s.Cargo == nil {
		s.Cargo = make(map[economy.GoodID]int)
	}
	return s.Cargo, s, nil
}

// Owned returns how many units of a good the player holds at the location.
func (p *Player) Owned(good economy.GoodID, shipID ShipID) int {
	hold, _, err := p.holding(shipID)
	if err != nil {
		return 0
	}
	return hold[good]
}
