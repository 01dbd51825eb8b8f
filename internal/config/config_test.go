package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tradewinds/internal/trade"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tradesim.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1.0, cfg.Sim.Speed)
	assert.Equal(t, time.Second, cfg.Sim.TickInterval)
	assert.Equal(t, 16, cfg.World.Radius)
	assert.Equal(t, 100, cfg.Trade.HistorySize)
	assert.Equal(t, trade.EvictOldest, cfg.Trade.System().Eviction)
	assert.Equal(t, "data/tradesim.db", cfg.DB.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Catalog)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
sim:
  speed: 2.5
  tick_interval: 250ms
  merchants: 3
world:
  radius: 8
  cities: 5
trade:
  max_modifiers: 4
  eviction: soonest_expiring
api:
  admin_token: secret
`)
	t.Setenv("TRADESIM_SIM_MERCHANTS", "9")
	t.Setenv("TRADESIM_DB_PATH", "/tmp/other.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.Sim.Speed)
	assert.Equal(t, 250*time.Millisecond, cfg.Sim.TickInterval)
	assert.Equal(t, 9, cfg.Sim.Merchants, "environment beats file")
	assert.Equal(t, 8, cfg.World.Radius)
	assert.Equal(t, 0.25, cfg.World.SeaLevel, "unset keys keep defaults")
	assert.Equal(t, "/tmp/other.db", cfg.DB.Path)
	assert.Equal(t, "secret", cfg.API.AdminToken)

	tc := cfg.Trade.System()
	assert.Equal(t, 4, tc.MaxModifiers)
	assert.Equal(t, 100, tc.HistorySize)
	assert.Equal(t, trade.EvictSoonestExpiring, tc.Eviction)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := writeConfig(t, `
sim:
  speed: -1
world:
  cities: 1
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sim.speed")
	assert.Contains(t, err.Error(), "world.cities")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatchSpeedWithoutFileIsNoop(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		cfg.WatchSpeed(func(float64) { t.Fatal("unexpected callback") })
	})
}
