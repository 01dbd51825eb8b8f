// City placement: scores land hexes, seeds the initial cities and derives each
// city's economic type from the terrain around it.
package world

import (
	"math"
	"math/rand"
	"sort"

	"github.com/talgya/tradewinds/internal/economy"
)

// CitySeed holds the parameters for an initial city.
type CitySeed struct {
	Coord      HexCoord
	Type       string // economy.City* tag
	Score      float64
	Name       string
	Population int
	Terrain    Terrain
	X, Y       float64
	Resources  map[ResourceType]float64
}

const minCityDistance = 3

// PlaceCities picks up to cfg.Cities sites, best first. The best site becomes
// the capital; the rest take their type from local terrain.
func PlaceCities(m *Map, cfg GenConfig) []CitySeed {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed + 200))

	type scored struct {
		coord HexCoord
		score float64
	}
	var candidates []scored
	for _, coord := range m.Coords() {
		hex := m.Get(coord)
		if hex.Terrain == TerrainOcean {
			continue
		}
		if s := siteScore(m, coord, hex); s > 0 {
			candidates = append(candidates, scored{coord, s})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	var seeds []CitySeed
	for _, c := range candidates {
		if len(seeds) >= cfg.Cities {
			break
		}
		if tooClose(c.coord, seeds, minCityDistance) {
			continue
		}
		hex := m.Get(c.coord)
		cityType := economy.CityCapital
		pop := 4000 + rng.Intn(4000)
		if len(seeds) > 0 {
			cityType = cityTypeFor(m, c.coord, hex)
			pop = 800 + rng.Intn(2200)
		}
		x, y := c.coord.Plane(cfg.HexScale)
		seeds = append(seeds, CitySeed{
			Coord:      c.coord,
			Type:       cityType,
			Score:      c.score,
			Population: pop,
			Terrain:    hex.Terrain,
			X:          x,
			Y:          y,
			Resources:  hex.Resources,
		})
	}

	names := generateNames(rng, len(seeds))
	for i := range seeds {
		seeds[i].Name = names[i]
		id := i + 1
		m.Get(seeds[i].Coord).CityID = &id
	}
	return seeds
}

// portHarbour is the anchorage a shore city needs to trade as a port.
const portHarbour = 0.35

// siteScore rates a hex for a trading city. Good anchorage outweighs
// everything the land offers.
func siteScore(m *Map, coord HexCoord, hex *Hex) float64 {
	score := 4.0 * hex.Harbour

	switch hex.Terrain {
	case TerrainCoast:
		score += 2.0
	case TerrainRiver:
		score += 3.5
	case TerrainPlains:
		score += 3.0
	case TerrainForest:
		score += 1.5
	case TerrainDesert, TerrainSwamp, TerrainTundra:
		score += 0.5
	case TerrainMountain:
		score += 0.3
	default:
		return 0
	}

	// Mixed surroundings make for a busier market.
	terrainTypes := make(map[Terrain]bool)
	for _, nc := range coord.Neighbors() {
		if nh := m.Get(nc); nh != nil && nh.Terrain != TerrainOcean {
			terrainTypes[nh.Terrain] = true
		}
	}
	score += float64(len(terrainTypes)) * 0.3

	totalRes := 0.0
	for _, v := range hex.Resources {
		totalRes += v
	}
	score += math.Log1p(totalRes) * 0.2

	return score
}

// cityTypeFor maps a site to the city type that trades what the land yields.
func cityTypeFor(m *Map, coord HexCoord, hex *Hex) string {
	var mountains, forests int
	for _, nc := range coord.Neighbors() {
		nh := m.Get(nc)
		if nh == nil {
			continue
		}
		switch nh.Terrain {
		case TerrainMountain:
			mountains++
		case TerrainForest:
			forests++
		}
	}

	switch {
	case hex.Harbour >= portHarbour:
		return economy.CityPort
	case mountains > 0 && forests > 0:
		return economy.CityIndustrial
	case hex.Terrain == TerrainMountain, hex.Terrain == TerrainDesert, hex.Terrain == TerrainTundra:
		return economy.CityMining
	case hex.Terrain == TerrainForest, hex.Terrain == TerrainSwamp:
		return economy.CityLumber
	}
	return economy.CityFarming
}

func tooClose(coord HexCoord, existing []CitySeed, minDist int) bool {
	for _, s := range existing {
		if Distance(coord, s.Coord) < minDist {
			return true
		}
	}
	return false
}

// generateNames produces port names by combining syllables.
func generateNames(rng *rand.Rand, count int) []string {
	prefixes := []string{
		"Salt", "Gull", "Anchor", "Tide", "Storm", "Coral", "Brine",
		"Silver", "Red", "White", "Grey", "Bright", "High", "Low",
		"Old", "New", "Far", "Deep", "Long", "Broad", "Gold", "Frost",
		"Amber", "Thorn", "Elm", "Oak", "Pine", "Copper", "Wind",
	}
	suffixes := []string{
		"haven", "ford", "harbour", "wick", "bridge", "gate", "keep",
		"mouth", "wood", "field", "dale", "crest", "vale", "port",
		"town", "bury", "marsh", "well", "quay", "cliff", "moor",
		"ridge", "watch", "sound", "rest", "point", "reach", "helm",
	}

	used := make(map[string]bool)
	names := make([]string, 0, count)
	for len(names) < count {
		name := prefixes[rng.Intn(len(prefixes))] + suffixes[rng.Intn(len(suffixes))]
		if !used[name] {
			used[name] = true
			names = append(names, name)
		}
	}
	return names
}
