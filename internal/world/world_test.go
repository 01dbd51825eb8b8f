package world

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tradewinds/internal/economy"
)

func TestHexDistanceAndPlane(t *testing.T) {
	a := HexCoord{Q: 0, R: 0}
	b := HexCoord{Q: 2, R: -1}
	assert.Equal(t, 2, Distance(a, b))
	assert.Equal(t, 0, Distance(b, b))

	x, y := HexCoord{Q: 1, R: 0}.Plane(10)
	assert.InDelta(t, 10, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)

	for _, n := range a.Neighbors() {
		nx, ny := n.Plane(10)
		assert.InDelta(t, 10, math.Hypot(nx, ny), 1e-9, "neighbours are one scale apart")
	}
}

func TestGenerateIsReproducible(t *testing.T) {
	cfg := SmallTestConfig()
	m1 := Generate(cfg)
	m2 := Generate(cfg)

	assert.Equal(t, 3*cfg.Radius*(cfg.Radius+1)+1, m1.HexCount())
	assert.Equal(t, m1.TerrainCounts(), m2.TerrainCounts())
	for _, c := range m1.Coords() {
		require.True(t, m1.InBounds(c))
		assert.Equal(t, m1.Get(c).Terrain, m2.Get(c).Terrain)
	}
}

func TestPlaceCities(t *testing.T) {
	cfg := SmallTestConfig()
	m := Generate(cfg)
	seeds := PlaceCities(m, cfg)

	require.NotEmpty(t, seeds)
	assert.LessOrEqual(t, len(seeds), cfg.Cities)
	assert.Equal(t, economy.CityCapital, seeds[0].Type)

	names := map[string]bool{}
	for i, s := range seeds {
		assert.NotEqual(t, TerrainOcean, s.Terrain)
		assert.Contains(t, economy.CityTypes, s.Type)
		assert.False(t, names[s.Name], "duplicate name %s", s.Name)
		names[s.Name] = true

		hex := m.Get(s.Coord)
		require.NotNil(t, hex.CityID)
		assert.Equal(t, i+1, *hex.CityID)

		for _, other := range seeds[i+1:] {
			assert.GreaterOrEqual(t, Distance(s.Coord, other.Coord), minCityDistance)
		}
	}
}

func TestShorelineHarbours(t *testing.T) {
	cfg := SmallTestConfig()
	m := Generate(cfg)

	coasts := 0
	for _, c := range m.Coords() {
		hex := m.Get(c)
		assert.GreaterOrEqual(t, hex.Harbour, 0.0)
		assert.LessOrEqual(t, hex.Harbour, 1.0)
		if hex.Terrain == TerrainOcean {
			assert.Zero(t, hex.Harbour, "open water is not an anchorage")
			continue
		}
		if hex.Terrain == TerrainCoast {
			coasts++
			assert.Positive(t, hex.Harbour)
			assert.GreaterOrEqual(t, hex.Resources[ResourceFish], 60.0)
		}
	}
	require.Positive(t, coasts)

	seeds := PlaceCities(m, cfg)
	require.NotEmpty(t, seeds)
	for _, s := range seeds[1:] {
		if s.Type == economy.CityPort {
			assert.GreaterOrEqual(t, m.Get(s.Coord).Harbour, portHarbour)
		}
	}
}

func TestShelterFavoursBays(t *testing.T) {
	assert.Greater(t, shelterBySeaSides[2], shelterBySeaSides[5], "a bay beats a headland")
	assert.Greater(t, shelterBySeaSides[2], shelterBySeaSides[6], "a bay beats an islet")
	assert.Zero(t, shelterBySeaSides[0])
}
