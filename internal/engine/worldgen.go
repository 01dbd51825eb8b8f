// Fresh world creation: terrain, cities, kingdoms and merchant captains.
package engine

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/talgya/tradewinds/internal/economy"
	"github.com/talgya/tradewinds/internal/entropy"
	"github.com/talgya/tradewinds/internal/logs"
	"github.com/talgya/tradewinds/internal/social"
	"github.com/talgya/tradewinds/internal/trade"
	"github.com/talgya/tradewinds/internal/world"
)

// GenesisConfig controls what a fresh world is populated with.
type GenesisConfig struct {
	World        world.GenConfig
	Merchants    int
	MerchantGold int
	PlayerName   string // Adds a manual captain for the human player; empty = none
	PlayerGold   int
}

const startingTreasury = 5000

var captainNames = []string{
	"Captain Vey", "Captain Morrow", "Captain Hale", "Captain Isolde",
	"Captain Brand", "Captain Corvin", "Captain Maelis", "Captain Tarrow",
	"Captain Wren", "Captain Osk", "Captain Dagny", "Captain Pell",
}

var shipNames = []string{
	"Gull", "Fair Wind", "Saltspray", "Dawn Treader", "Heron", "Kestrel",
	"Lantern", "Mermaid", "Northstar", "Osprey", "Petrel", "Quillon",
}

// ResolveSeed replaces a zero seed with a random one so terrain and city
// placement agree on it.
func ResolveSeed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return int64(entropy.Crypto().Intn(math.MaxInt32)) + 1
}

// ResumeSeed derives the random stream for a world resumed at tick, so that
// restarts do not replay the stream the world began with. Tick 0 keeps seed.
func ResumeSeed(seed int64, tick uint64) int64 {
	mixed := seed ^ int64(tick*0x9E3779B97F4A7C15)
	if mixed == 0 {
		return seed
	}
	return mixed
}

// Genesis generates a new world map and its starting political state.
func Genesis(cat *economy.Catalog, cfg GenesisConfig, src entropy.Source) (*world.Map, State) {
	cfg.World.Seed = ResolveSeed(cfg.World.Seed)
	m := world.Generate(cfg.World)
	seeds := world.PlaceCities(m, cfg.World)

	kingdoms := social.SeedKingdoms()
	for _, k := range kingdoms {
		k.Treasury = startingTreasury
	}
	cities := make([]*social.City, 0, len(seeds))
	for i, seed := range seeds {
		cities = append(cities, foundCity(i+1, seed, src))
	}
	assignKingdoms(cities, kingdoms)

	stocker := trade.NewSystem(cat, trade.DefaultConfig())
	for _, c := range cities {
		stocker.UpdateCityGoods(c, src)
	}

	captains := spawnCaptains(cfg, cities, kingdoms)

	counts := m.TerrainCounts()
	logs.Info("world generated",
		zap.Int64("seed", cfg.World.Seed),
		zap.Int("hexes", m.HexCount()),
		zap.Int("ocean", counts[world.TerrainOcean]),
		zap.Int("cities", len(cities)),
		zap.Int("kingdoms", len(kingdoms)),
		zap.Int("captains", len(captains)),
	)
	return m, State{WorldSeed: cfg.World.Seed, Cities: cities, Kingdoms: kingdoms, Captains: captains}
}

// foundCity turns a placement seed into a city.
func foundCity(id social.CityID, seed world.CitySeed, src entropy.Source) *social.City {
	c := social.NewCity(id, seed.Name, seed.Type)
	c.X, c.Y = seed.X, seed.Y
	c.Population = seed.Population
	c.Wealth = seed.Population + entropy.UniformInt(src, 500, 2000)
	c.Stability = entropy.Uniform(src, 50, 80)
	c.DefenseLevel = 10 + seed.Population/500

	for res, qty := range seed.Resources {
		c.Resources[res.String()] = social.Resource{Name: res.String(), Quantity: int(qty)}
	}

	switch seed.Type {
	case economy.CityCapital:
		c.Wealth = 8000
		c.Stability = 75
		c.Facilities.Marketplace = true
		c.Facilities.Barracks = true
		c.AvailableShips = []string{"Sloop", "Brig", "Frigate"}
	case economy.CityPort:
		c.AvailableShips = []string{"Sloop", "Brig"}
	}
	c.RecomputeCommerce()
	return c
}

// assignKingdoms makes the best sites the kingdoms' seats and gives every
// other city to the nearest seat.
func assignKingdoms(cities []*social.City, kingdoms []*social.Kingdom) {
	if len(kingdoms) == 0 {
		return
	}
	seats := min(len(kingdoms), len(cities))
	for i, c := range cities {
		k := kingdoms[i%len(kingdoms)]
		if i >= seats {
			k = kingdoms[nearestSeat(c, cities[:seats])]
		}
		k.Cities = append(k.Cities, c.ID)
		c.Faction = k.Faction
		c.Region = k.Name
	}
}

func nearestSeat(c *social.City, seats []*social.City) int {
	best, bestDist := 0, math.Inf(1)
	for i, seat := range seats {
		if d := social.Distance(c, seat); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func spawnCaptains(cfg GenesisConfig, cities []*social.City, kingdoms []*social.Kingdom) []*Captain {
	if len(cities) == 0 {
		return nil
	}
	var out []*Captain
	for i := 0; i < cfg.Merchants; i++ {
		name := captainNames[i%len(captainNames)]
		if i >= len(captainNames) {
			name = fmt.Sprintf("%s %d", name, i/len(captainNames)+1)
		}
		faction := social.PlayerFaction
		if len(kingdoms) > 0 {
			faction = kingdoms[i%len(kingdoms)].Faction
		}
		out = append(out, newCaptain(name, faction, cfg.MerchantGold, shipNames[i%len(shipNames)], cities[i%len(cities)].ID))
	}
	if cfg.PlayerName != "" {
		cpt := newCaptain(cfg.PlayerName, social.PlayerFaction, cfg.PlayerGold, "Endeavour", cities[0].ID)
		cpt.Manual = true
		out = append(out, cpt)
	}
	return out
}

func newCaptain(name, faction string, gold int, ship string, home social.CityID) *Captain {
	p := trade.NewPlayer(name, faction, gold)
	p.AddShip(trade.NewShip(1, ship, CaptainHold))
	return &Captain{Player: p, Ship: 1, Location: home}
}

// RebuildMap regenerates the terrain a saved world was founded on. Terrain is
// never stored; the seed and generation settings reproduce it exactly.
func RebuildMap(cfg world.GenConfig, seed int64) *world.Map {
	cfg.Seed = seed
	m := world.Generate(cfg)
	world.PlaceCities(m, cfg)
	return m
}
