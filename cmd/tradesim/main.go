// Command tradesim runs the Tradewinds trade-economy simulation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/talgya/tradewinds/internal/api"
	"github.com/talgya/tradewinds/internal/config"
	"github.com/talgya/tradewinds/internal/economy"
	"github.com/talgya/tradewinds/internal/engine"
	"github.com/talgya/tradewinds/internal/entropy"
	"github.com/talgya/tradewinds/internal/logs"
	"github.com/talgya/tradewinds/internal/persistence"
	"github.com/talgya/tradewinds/internal/world"
)

func main() {
	cfgPath := flag.String("config", "configs/tradesim.yml", "path to the YAML config file")
	fresh := flag.Bool("fresh", false, "ignore any saved world and generate a new one")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := logs.Init("tradesim", cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer logs.Sync()

	if err := run(cfg, *fresh); err != nil {
		logs.Fatal("tradesim stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, fresh bool) error {
	logs.Info("Tradewinds starting", zap.String("db", cfg.DB.Path), zap.String("api", cfg.API.Addr))

	// ── Catalog ──────────────────────────────────────────────────────
	cat := economy.DefaultCatalog()
	if cfg.Catalog != "" {
		loaded, err := economy.LoadCatalogFile(cfg.Catalog)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		cat = loaded
	}
	logs.Info("goods catalog ready", zap.Int("goods", cat.Len()))

	// ── Database ─────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := persistence.Open(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	// ── Load or Generate World State ─────────────────────────────────
	var (
		worldMap *world.Map
		state    engine.State
	)
	seed := engine.ResolveSeed(cfg.Sim.Seed)
	runSeed := seed
	if db.HasWorldState() && !fresh {
		state, err = db.LoadState()
		if err != nil {
			return fmt.Errorf("restore world: %w", err)
		}
		worldMap = engine.RebuildMap(cfg.World, state.WorldSeed)
		runSeed = engine.ResumeSeed(seed, state.Tick)
		logs.Info("world state restored",
			zap.Int("cities", len(state.Cities)),
			zap.Int("captains", len(state.Captains)),
			zap.Uint64("tick", state.Tick),
			zap.String("sim_time", engine.SimTime(state.Tick)),
		)
	} else {
		genCfg := engine.GenesisConfig{
			World:        cfg.World,
			Merchants:    cfg.Sim.Merchants,
			MerchantGold: cfg.Sim.MerchantGold,
			PlayerName:   cfg.Sim.PlayerName,
			PlayerGold:   cfg.Sim.PlayerGold,
		}
		if genCfg.World.Seed == 0 {
			genCfg.World.Seed = seed
		}
		worldMap, state = engine.Genesis(cat, genCfg, entropy.NewSeeded(seed))
	}

	// ── Simulation ───────────────────────────────────────────────────
	sim := engine.New(cat, worldMap, state, engine.Options{
		Seed:         runSeed,
		Trade:        cfg.Trade.System(),
		EventLogSize: cfg.Sim.EventLogSize,
		StockCap:     cfg.Sim.StockCap,
	})
	if state.Tick == 0 {
		if err := db.SaveWorldState(sim); err != nil {
			logs.Error("initial save failed", zap.Error(err))
		}
	}

	eng := engine.NewEngine(state.Tick)
	eng.Interval = cfg.Sim.TickInterval
	eng.SetSpeed(cfg.Sim.Speed)
	sim.Attach(eng)

	// Auto-save every few sim-days.
	saveEvery := uint64(max(cfg.Sim.SaveEveryDays, 1))
	eng.OnDay = func(tick uint64) {
		sim.TickDay(tick)
		if (tick/engine.TicksPerSimDay)%saveEvery != 0 {
			return
		}
		if err := db.SaveWorldState(sim); err != nil {
			logs.Error("periodic save failed", zap.Error(err))
		}
	}

	cfg.WatchSpeed(eng.SetSpeed)

	// ── HTTP API ─────────────────────────────────────────────────────
	if cfg.API.AdminToken == "" {
		logs.Warn("api.admin_token not set, admin POST endpoints will be disabled")
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &api.Server{
		Sim:        sim,
		Eng:        eng,
		DB:         db,
		Addr:       cfg.API.Addr,
		AdminToken: cfg.API.AdminToken,
		RateLimit:  cfg.API.RateLimit,
		Origins:    cfg.API.Origins,
	}
	go func() {
		if err := srv.Start(ctx); err != nil {
			logs.Error("HTTP server error", zap.Error(err))
			stop()
		}
	}()

	// ── Start ────────────────────────────────────────────────────────
	status := sim.Status()
	logs.Info("world is alive",
		zap.Int("cities", status.Cities),
		zap.Int("kingdoms", status.Kingdoms),
		zap.Int("captains", status.Captains),
		zap.String("sim_time", status.Time),
	)
	eng.Run(ctx)

	logs.Info("final save...")
	if err := db.SaveWorldState(sim); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	logs.Info("simulation stopped, world state saved", zap.Uint64("tick", sim.CurrentTick()))
	return nil
}
