// Package world provides the hex grid the trading cities sit on: terrain from
// layered noise, resources, and placement of the initial cities.
// Uses axial coordinates (q, r) for the hex grid.
package world

import "math"

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// Plane converts the hex centre to cartesian coordinates, scaled so adjacent
// hexes are `scale` apart.
func (h HexCoord) Plane(scale float64) (x, y float64) {
	x = (float64(h.Q) + float64(h.R)*0.5) * scale
	y = float64(h.R) * math.Sqrt(3.0) / 2.0 * scale
	return x, y
}

// Terrain types for hex tiles.
type Terrain uint8

const (
	TerrainPlains   Terrain = iota // Grain and wine country
	TerrainForest                  // Timber and tar
	TerrainMountain                // Ore, stone and coal
	TerrainCoast                   // Harbours and fisheries
	TerrainRiver                   // Freshwater and barge traffic
	TerrainDesert
	TerrainSwamp
	TerrainTundra
	TerrainOcean // Open sea
)

var terrainNames = [...]string{
	TerrainPlains:   "Plains",
	TerrainForest:   "Forest",
	TerrainMountain: "Mountain",
	TerrainCoast:    "Coast",
	TerrainRiver:    "River",
	TerrainDesert:   "Desert",
	TerrainSwamp:    "Swamp",
	TerrainTundra:   "Tundra",
	TerrainOcean:    "Ocean",
}

func (t Terrain) String() string {
	if int(t) < len(terrainNames) {
		return terrainNames[t]
	}
	return "Unknown"
}

// Hex represents a single tile on the world map.
type Hex struct {
	Coord   HexCoord `json:"coord"`
	Terrain Terrain  `json:"terrain"`

	// Raw resource yields by type.
	Resources map[ResourceType]float64 `json:"resources"`

	Elevation   float64 `json:"elevation"`   // 0.0 (sea level) to 1.0 (peak)
	Rainfall    float64 `json:"rainfall"`    // 0.0 (arid) to 1.0 (tropical)
	Temperature float64 `json:"temperature"` // 0.0 (frozen) to 1.0 (hot)
	Harbour     float64 `json:"harbour"`     // Anchorage quality, 0 (none) to 1 (sheltered deep bay)

	CityID *int `json:"city_id,omitempty"`
}

// ResourceType enumerates primary resources harvestable from terrain.
type ResourceType uint8

const (
	ResourceGrain ResourceType = iota
	ResourceTimber
	ResourceIronOre
	ResourceStone
	ResourceFish
	ResourceCoal
	ResourcePitch
)

var resourceNames = [...]string{
	ResourceGrain:   "Grain",
	ResourceTimber:  "Timber",
	ResourceIronOre: "Iron Ore",
	ResourceStone:   "Stone",
	ResourceFish:    "Fish",
	ResourceCoal:    "Coal",
	ResourcePitch:   "Pitch",
}

func (r ResourceType) String() string {
	if int(r) < len(resourceNames) {
		return resourceNames[r]
	}
	return "Unknown"
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// Ring returns the cube-distance of the coordinate from the origin.
func (h HexCoord) Ring() int {
	return max(abs(h.Q), abs(h.R), abs(h.S()))
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	return HexCoord{Q: a.Q - b.Q, R: a.R - b.R}.Ring()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
