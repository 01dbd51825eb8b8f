// Package config loads the simulation settings from YAML with environment
// overrides and watches the file for live speed changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/talgya/tradewinds/internal/logs"
	"github.com/talgya/tradewinds/internal/trade"
	"github.com/talgya/tradewinds/internal/world"
)

// EnvPrefix prefixes every environment override, e.g. TRADESIM_SIM_SPEED.
const EnvPrefix = "TRADESIM"

// Config is the full typed configuration.
type Config struct {
	Sim     SimConfig       `mapstructure:"sim"`
	World   world.GenConfig `mapstructure:"world"`
	Trade   TradeConfig     `mapstructure:"trade"`
	Log     logs.Config     `mapstructure:"log"`
	DB      DBConfig        `mapstructure:"db"`
	API     APIConfig       `mapstructure:"api"`
	Catalog string          `mapstructure:"catalog"` // YAML goods file; empty = built-in catalog

	v *viper.Viper
}

// SimConfig drives the tick loop and the NPC population.
type SimConfig struct {
	Speed         float64       `mapstructure:"speed"`          // 1.0 = one tick per interval, 0 = paused
	TickInterval  time.Duration `mapstructure:"tick_interval"`  // Real time per tick at speed 1
	Seed          int64         `mapstructure:"seed"`           // 0 = crypto randomness
	Merchants     int           `mapstructure:"merchants"`      // NPC merchant captains
	MerchantGold  int           `mapstructure:"merchant_gold"`  // Starting purse per captain
	EventLogSize  int           `mapstructure:"event_log_size"` // Events kept in memory
	StockCap      int           `mapstructure:"stock_cap"`      // Per-good city stock ceiling, 0 = unlimited
	SaveEveryDays int           `mapstructure:"save_every_days"`
	PlayerName    string        `mapstructure:"player_name"` // Manual captain driven through the API, empty = none
	PlayerGold    int           `mapstructure:"player_gold"`
}

// TradeConfig sizes the trading system.
type TradeConfig struct {
	HistorySize  int    `mapstructure:"history_size"`
	MaxModifiers int    `mapstructure:"max_modifiers"`
	Eviction     string `mapstructure:"eviction"` // "oldest" or "soonest_expiring"
}

// System converts the section into trade.Config.
func (t TradeConfig) System() trade.Config {
	return trade.Config{
		HistorySize:  t.HistorySize,
		MaxModifiers: t.MaxModifiers,
		Eviction:     trade.ParseEvictionPolicy(t.Eviction),
	}
}

// DBConfig locates the SQLite database.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Addr       string   `mapstructure:"addr"`
	AdminToken string   `mapstructure:"admin_token"`  // Empty disables admin endpoints
	RateLimit  int      `mapstructure:"rate_limit"`   // Requests per minute per client, 0 = off
	Origins    []string `mapstructure:"cors_origins"` // Extra allowed browser origins
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sim.speed", 1.0)
	v.SetDefault("sim.tick_interval", time.Second)
	v.SetDefault("sim.seed", 0)
	v.SetDefault("sim.merchants", 6)
	v.SetDefault("sim.merchant_gold", 2000)
	v.SetDefault("sim.event_log_size", 1000)
	v.SetDefault("sim.stock_cap", 0)
	v.SetDefault("sim.save_every_days", 1)
	v.SetDefault("sim.player_name", "Player")
	v.SetDefault("sim.player_gold", 1000)

	gen := world.DefaultGenConfig()
	v.SetDefault("world.radius", gen.Radius)
	v.SetDefault("world.seed", gen.Seed)
	v.SetDefault("world.sea_level", gen.SeaLevel)
	v.SetDefault("world.mountain_lvl", gen.MountainLvl)
	v.SetDefault("world.cities", gen.Cities)
	v.SetDefault("world.hex_scale", gen.HexScale)

	tc := trade.DefaultConfig()
	v.SetDefault("trade.history_size", tc.HistorySize)
	v.SetDefault("trade.max_modifiers", tc.MaxModifiers)
	v.SetDefault("trade.eviction", tc.Eviction.String())

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)
	v.SetDefault("log.dev", false)

	v.SetDefault("db.path", "data/tradesim.db")

	v.SetDefault("api.addr", ":8080")
	v.SetDefault("api.admin_token", "")
	v.SetDefault("api.rate_limit", 120)

	v.SetDefault("catalog", "")
}

// Load reads the YAML file at path (optional when empty), applies TRADESIM_*
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the simulation cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Sim.Speed < 0 {
		errs = append(errs, fmt.Errorf("sim.speed must be >= 0, got %v", c.Sim.Speed))
	}
	if c.Sim.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("sim.tick_interval must be positive, got %v", c.Sim.TickInterval))
	}
	if c.Sim.Merchants < 0 {
		errs = append(errs, fmt.Errorf("sim.merchants must be >= 0, got %d", c.Sim.Merchants))
	}
	if c.Sim.StockCap < 0 {
		errs = append(errs, fmt.Errorf("sim.stock_cap must be >= 0, got %d", c.Sim.StockCap))
	}
	if c.World.Radius < 2 {
		errs = append(errs, fmt.Errorf("world.radius must be >= 2, got %d", c.World.Radius))
	}
	if c.World.Cities < 2 {
		errs = append(errs, fmt.Errorf("world.cities must be >= 2, got %d", c.World.Cities))
	}
	if c.Trade.HistorySize <= 0 || c.Trade.MaxModifiers <= 0 {
		errs = append(errs, errors.New("trade.history_size and trade.max_modifiers must be positive"))
	}
	return errors.Join(errs...)
}

// WatchSpeed calls fn with the new sim.speed whenever the config file changes.
// It is a no-op for configs loaded without a file.
func (c *Config) WatchSpeed(fn func(speed float64)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		speed := c.v.GetFloat64("sim.speed")
		if speed < 0 {
			logs.Warn("ignoring negative speed from config", zap.String("file", e.Name), zap.Float64("speed", speed))
			return
		}
		logs.Info("config changed", zap.String("file", e.Name), zap.Float64("speed", speed))
		fn(speed)
	})
	c.v.WatchConfig()
}
