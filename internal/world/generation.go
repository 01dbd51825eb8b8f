// World generation using layered simplex noise.
// Generates elevation, rainfall, and temperature maps, then derives terrain and resources.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Radius      int     `mapstructure:"radius"`       // Hex grid radius
	Seed        int64   `mapstructure:"seed"`         // 0 = random
	SeaLevel    float64 `mapstructure:"sea_level"`    // Elevation threshold for ocean (0.0–1.0)
	MountainLvl float64 `mapstructure:"mountain_lvl"` // Elevation threshold for mountains (0.0–1.0)
	Cities      int     `mapstructure:"cities"`       // Cities to place
	HexScale    float64 `mapstructure:"hex_scale"`    // Plane distance between adjacent hexes
}

// DefaultGenConfig returns the configuration used for a fresh world.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Radius:      16,
		SeaLevel:    0.25,
		MountainLvl: 0.72,
		Cities:      12,
		HexScale:    10,
	}
}

// SmallTestConfig returns a tiny seeded world for tests.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Radius:      8,
		Seed:        42,
		SeaLevel:    0.20,
		MountainLvl: 0.75,
		Cities:      5,
		HexScale:    10,
	}
}

// Generate creates a complete world map with terrain and resources.
func Generate(cfg GenConfig) *Map {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	elevNoise := opensimplex.NewNormalized(seed)
	rainNoise := opensimplex.NewNormalized(seed + 1)
	tempNoise := opensimplex.NewNormalized(seed + 2)

	m := NewMap(cfg.Radius)

	for q := -cfg.Radius; q <= cfg.Radius; q++ {
		for r := -cfg.Radius; r <= cfg.Radius; r++ {
			coord := HexCoord{Q: q, R: r}
			if !m.InBounds(coord) {
				continue
			}

			x, y := coord.Plane(1)

			elev := octaveNoise(elevNoise, x, y, 4, 0.08, 0.5)
			rain := octaveNoise(rainNoise, x, y, 3, 0.06, 0.5)
			temp := octaveNoise(tempNoise, x, y, 3, 0.05, 0.5)

			// Continental shaping: sink the rim so the land is ringed by sea.
			distFromCenter := math.Sqrt(x*x+y*y) / float64(cfg.Radius)
			elev *= max(1.0-math.Pow(distFromCenter, 3.5), 0)

			// Colder toward the poles and on high ground.
			temp = temp*0.6 + (1.0-math.Abs(y)/float64(cfg.Radius))*0.3 + (1.0-elev)*0.1

			terrain := deriveTerrain(elev, rain, temp, cfg)
			m.Set(&Hex{
				Coord:       coord,
				Terrain:     terrain,
				Elevation:   elev,
				Rainfall:    rain,
				Temperature: temp,
				Resources:   makeResources(terrain, elev, rain),
			})
		}
	}

	shapeShoreline(m, cfg)
	placeRivers(m, seed)

	return m
}

// deriveTerrain determines terrain type from environmental parameters.
func deriveTerrain(elev, rain, temp float64, cfg GenConfig) Terrain {
	switch {
	case elev < cfg.SeaLevel:
		return TerrainOcean
	case elev > cfg.MountainLvl:
		return TerrainMountain
	case temp < 0.25:
		return TerrainTundra
	case rain < 0.25 && temp > 0.5:
		return TerrainDesert
	case rain > 0.7 && elev < 0.45:
		return TerrainSwamp
	case rain > 0.45 && elev > 0.45:
		return TerrainForest
	}
	return TerrainPlains
}

// makeResources populates initial resource yields based on terrain.
func makeResources(terrain Terrain, elev, rain float64) map[ResourceType]float64 {
	res := make(map[ResourceType]float64)

	switch terrain {
	case TerrainPlains:
		res[ResourceGrain] = 80 + rain*40
	case TerrainForest:
		res[ResourceTimber] = 100
		res[ResourcePitch] = 30
	case TerrainMountain:
		res[ResourceIronOre] = 60 + elev*30
		res[ResourceStone] = 80
		res[ResourceCoal] = 40
	case TerrainCoast:
		res[ResourceFish] = 60
	case TerrainRiver:
		res[ResourceFish] = 50
		res[ResourceGrain] = 40
	case TerrainSwamp:
		res[ResourcePitch] = 60
	case TerrainDesert:
		res[ResourceStone] = 30
	}

	return res
}

// Shoreline shaping. A hex ringed by sea on one to three sides is a bay or a
// cove; more than that is an exposed headland. Deep water just offshore lets
// big hulls come alongside, shallow shelves feed the fisheries instead.
const (
	cliffElevation = 0.5  // Land this high meets the sea as cliffs
	cliffHarbour   = 0.15 // Anchorage factor under cliffs
	estuaryHarbour = 0.8  // A river mouth is a natural harbour
)

// shelter by number of sea-facing sides, index 0..6. An islet has only its lee.
var shelterBySeaSides = [7]float64{0, 0.7, 1.0, 0.8, 0.5, 0.3, 0.2}

// shapeShoreline grades every shore hex for anchorage and turns low shore
// into coast with fisheries sized by the shelf.
func shapeShoreline(m *Map, cfg GenConfig) {
	type shore struct {
		coord   HexCoord
		harbour float64
		depth   float64
	}
	var shores []shore
	for _, coord := range m.Coords() {
		hex := m.Get(coord)
		if hex.Terrain == TerrainOcean {
			continue
		}
		sides, depth := 0, 0.0
		for _, nc := range coord.Neighbors() {
			nh := m.Get(nc)
			if nh == nil || nh.Terrain != TerrainOcean {
				continue
			}
			sides++
			if cfg.SeaLevel > 0 {
				depth += (cfg.SeaLevel - nh.Elevation) / cfg.SeaLevel
			}
		}
		if sides == 0 {
			continue
		}
		depth /= float64(sides)
		harbour := shelterBySeaSides[sides] * (0.5 + 0.5*depth)
		if hex.Elevation >= cliffElevation {
			harbour *= cliffHarbour
		}
		shores = append(shores, shore{coord, harbour, depth})
	}

	for _, s := range shores {
		hex := m.Get(s.coord)
		hex.Harbour = s.harbour
		if hex.Elevation >= cliffElevation {
			continue
		}
		switch hex.Terrain {
		case TerrainPlains, TerrainForest, TerrainSwamp:
		default:
			continue
		}
		grain := hex.Resources[ResourceGrain]
		hex.Terrain = TerrainCoast
		hex.Resources = makeResources(TerrainCoast, hex.Elevation, hex.Rainfall)
		hex.Resources[ResourceFish] += (1 - s.depth) * 40
		if hex.Rainfall > 0.4 && grain > 0 {
			hex.Resources[ResourceGrain] = min(grain, 20)
		}
	}
}

// placeRivers traces a handful of rivers downhill from the highlands.
func placeRivers(m *Map, seed int64) {
	rng := rand.New(rand.NewSource(seed + 100))

	var sources []HexCoord
	for _, coord := range m.Coords() {
		hex := m.Get(coord)
		if hex.Elevation > 0.65 && hex.Terrain != TerrainOcean {
			sources = append(sources, coord)
		}
	}

	numRivers := min(max(len(sources)/8, 2), 10)
	rng.Shuffle(len(sources), func(i, j int) {
		sources[i], sources[j] = sources[j], sources[i]
	})
	if len(sources) > numRivers {
		sources = sources[:numRivers]
	}

	for _, start := range sources {
		traceRiver(m, start)
	}
}

// traceRiver follows the steepest descent from a source hex until it reaches
// the sea or runs out of downhill path. The last land hex before the sea is an
// estuary.
func traceRiver(m *Map, start HexCoord) {
	current := start
	visited := make(map[HexCoord]bool)
	var mouth *Hex

	for step := 0; step < 50; step++ {
		visited[current] = true
		hex := m.Get(current)
		if hex == nil {
			return
		}
		if hex.Terrain == TerrainOcean {
			if mouth != nil {
				mouth.Harbour = max(mouth.Harbour, estuaryHarbour)
			}
			return
		}
		mouth = hex

		if hex.Terrain != TerrainMountain && hex.Terrain != TerrainCoast {
			hex.Terrain = TerrainRiver
			hex.Resources[ResourceFish] = 50
			hex.Resources[ResourceGrain] += 20
		}

		next, found := current, false
		bestElev := hex.Elevation
		for _, nc := range current.Neighbors() {
			if visited[nc] {
				continue
			}
			if nh := m.Get(nc); nh != nil && nh.Elevation < bestElev {
				bestElev = nh.Elevation
				next, found = nc, true
			}
		}
		if !found {
			return
		}
		current = next
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
