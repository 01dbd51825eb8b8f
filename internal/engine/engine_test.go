package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tradewinds/internal/economy"
	"github.com/talgya/tradewinds/internal/entropy"
	"github.com/talgya/tradewinds/internal/social"
	"github.com/talgya/tradewinds/internal/trade"
	"github.com/talgya/tradewinds/internal/world"
)

type fixedSource struct{ f float64 }

func (s *fixedSource) Float64() float64 { return s.f }
func (s *fixedSource) Intn(int) int     { return 0 }

func TestEngineStepFiresLayers(t *testing.T) {
	e := NewEngine(0)
	var ticks, hours, days int
	e.OnTick = func(uint64) { ticks++ }
	e.OnHour = func(uint64) { hours++ }
	e.OnDay = func(uint64) { days++ }

	for i := 0; i < TicksPerSimDay; i++ {
		e.Step()
	}
	assert.Equal(t, TicksPerSimDay, ticks)
	assert.Equal(t, 24, hours)
	assert.Equal(t, 1, days)
	assert.Equal(t, uint64(TicksPerSimDay), e.Tick())
}

func TestEngineSpeed(t *testing.T) {
	e := NewEngine(10)
	assert.Equal(t, uint64(10), e.Tick())
	assert.Equal(t, 1.0, e.Speed())
	e.SetSpeed(4)
	assert.Equal(t, 4.0, e.Speed())
	e.SetSpeed(-2)
	assert.Zero(t, e.Speed())
}

func TestSimTime(t *testing.T) {
	assert.Equal(t, "Spring Day 1, 0:00 Year 1", SimTime(0))
	assert.Equal(t, "Spring Day 2, 1:05 Year 1", SimTime(TicksPerSimDay+65))
	assert.Equal(t, "Summer Day 1, 0:00 Year 1", SimTime(TicksPerSimSeason))
	assert.Equal(t, "Spring Day 1, 0:00 Year 2", SimTime(4*TicksPerSimSeason))
	assert.Equal(t, uint8(SeasonWinter), SeasonOf(3*TicksPerSimSeason))
	assert.Equal(t, 2.0, GameHours(120))
}

func TestResumeSeedVariesWithTick(t *testing.T) {
	assert.Equal(t, int64(7), ResumeSeed(7, 0))
	a := ResumeSeed(7, 1440)
	b := ResumeSeed(7, 2880)
	assert.NotEqual(t, int64(7), a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, ResumeSeed(7, 1440))

	// Restarting at the same tick with the same seed draws a different
	// stream from the one the world started on.
	fresh := entropy.NewSeeded(7)
	resumed := entropy.NewSeeded(ResumeSeed(7, 1440))
	assert.NotEqual(t, fresh.Float64(), resumed.Float64())
}

func TestEventLogRing(t *testing.T) {
	l := newEventLog(3)
	for i := 1; i <= 5; i++ {
		l.add(Event{Tick: uint64(i)})
	}
	recent := l.recent(10)
	require.Len(t, recent, 3)
	assert.Equal(t, uint64(5), recent[0].Tick)
	assert.Equal(t, uint64(3), recent[2].Tick)

	pending := l.drain()
	require.Len(t, pending, 3)
	assert.Equal(t, uint64(3), pending[0].Tick)
	assert.Empty(t, l.drain())
}

func TestGenesisIsReproducible(t *testing.T) {
	cfg := GenesisConfig{World: world.SmallTestConfig(), Merchants: 3, MerchantGold: 500, PlayerName: "Player", PlayerGold: 100}
	_, a := Genesis(economy.DefaultCatalog(), cfg, entropy.NewSeeded(1))
	_, b := Genesis(economy.DefaultCatalog(), cfg, entropy.NewSeeded(1))

	require.NotEmpty(t, a.Cities)
	require.Len(t, b.Cities, len(a.Cities))
	for i := range a.Cities {
		assert.Equal(t, a.Cities[i].Name, b.Cities[i].Name)
		assert.Equal(t, a.Cities[i].Prices, b.Cities[i].Prices)
	}
	assert.Equal(t, int64(42), a.WorldSeed)
	assert.Equal(t, economy.CityCapital, a.Cities[0].Type)

	owned := 0
	for _, k := range a.Kingdoms {
		for _, id := range k.Cities {
			owned++
			assert.Equal(t, k.Faction, a.Cities[id-1].Faction)
		}
	}
	assert.Equal(t, len(a.Cities), owned, "every city has exactly one owner")

	require.Len(t, a.Captains, 4)
	assert.True(t, a.Captains[3].Manual)
	assert.Equal(t, social.PlayerFaction, a.Captains[3].Player.Faction)
}

func TestSimulationRunsAWeek(t *testing.T) {
	cat := economy.DefaultCatalog()
	m, st := Genesis(cat, GenesisConfig{World: world.SmallTestConfig(), Merchants: 4, MerchantGold: 2000}, entropy.NewSeeded(3))
	sim := New(cat, m, st, Options{Seed: 3, Trade: trade.DefaultConfig()})

	e := NewEngine(0)
	sim.Attach(e)
	for i := 0; i < TicksPerSimWeek; i++ {
		e.Step()
	}

	status := sim.Status()
	assert.Equal(t, uint64(TicksPerSimWeek), status.Tick)
	assert.Equal(t, "Spring", status.Season)
	assert.InDelta(t, 168, status.GameHours, 1e-9)
	assert.NotEmpty(t, sim.RecentEvents(50))

	for _, c := range sim.Cities() {
		assert.GreaterOrEqual(t, c.MarketModifier, social.MinMarketModifier)
		assert.LessOrEqual(t, c.MarketModifier, social.MaxMarketModifier)
		for _, p := range c.Prices {
			assert.GreaterOrEqual(t, p, social.MinGoodPrice)
			assert.LessOrEqual(t, p, social.MaxGoodPrice)
		}
	}

	seasons := 0
	for _, mod := range sim.Modifiers() {
		if mod.Type == trade.ModifierSeason {
			seasons++
		}
	}
	assert.Equal(t, 1, seasons)
}

func TestSnapshotRestores(t *testing.T) {
	cat := economy.DefaultCatalog()
	m, st := Genesis(cat, GenesisConfig{World: world.SmallTestConfig()}, entropy.NewSeeded(5))
	sim := New(cat, m, st, Options{Seed: 5})
	sim.TickHour(TicksPerSimHour)
	sim.mu.Lock()
	sim.EmitEvent(Event{Tick: 60, Description: "test", Category: CategoryEconomy})
	sim.mu.Unlock()

	saved, journal := sim.Snapshot()
	require.Len(t, journal.Events, 1)
	assert.Equal(t, uint64(TicksPerSimHour), saved.Tick)
	_, again := sim.Snapshot()
	assert.Empty(t, again.Events)
	assert.Empty(t, again.Transactions)

	// Snapshots are copies.
	saved.Cities[0].Wealth = -1
	orig, ok := sim.City(saved.Cities[0].ID)
	require.True(t, ok)
	assert.NotEqual(t, -1, orig.Wealth)

	restored := New(cat, m, saved, Options{Seed: 5})
	assert.Equal(t, sim.CurrentTick(), restored.CurrentTick())
	assert.Len(t, restored.Cities(), len(sim.Cities()))
	assert.Equal(t, sim.Modifiers()[0].Description, restored.Modifiers()[0].Description)
	assert.Len(t, restored.Modifiers(), len(sim.Modifiers()))
}

func tradeFixture(t *testing.T) *Simulation {
	t.Helper()
	a := social.NewCity(1, "Alder", economy.CityFarming)
	a.Faction = "Aldmere"
	a.Prices[1] = 10
	a.Availability[1] = 50

	b := social.NewCity(2, "Brine", economy.CityPort)
	b.Faction = "Aldmere"
	b.X = 100

	k := social.NewKingdom(1, "Crown of Aldmere", "Aldmere")
	k.Cities = []social.CityID{1, 2}

	player := newCaptain("Player", social.PlayerFaction, 1000, "Endeavour", 1)
	player.Manual = true

	return New(economy.DefaultCatalog(), nil, State{
		Cities:   []*social.City{a, b},
		Kingdoms: []*social.Kingdom{k},
		Captains: []*Captain{player},
	}, Options{Seed: 7})
}

func TestManualCaptainTradesAndSails(t *testing.T) {
	sim := tradeFixture(t)

	// Spring adds a 1.05 modifier: 4 × 10 × 1.05 = 42.
	tx, err := sim.Trade(TradeRequest{Captain: "Player", CityID: 1, GoodID: 1, Qty: 4, Buy: true})
	require.NoError(t, err)
	assert.Equal(t, 42, tx.TotalPrice)

	_, err = sim.Trade(TradeRequest{Captain: "Player", CityID: 2, GoodID: 1, Qty: 4})
	assert.ErrorIs(t, err, ErrNotDocked)
	_, err = sim.Trade(TradeRequest{Captain: "Nobody", CityID: 1, GoodID: 1, Qty: 1, Buy: true})
	assert.ErrorIs(t, err, ErrUnknownCaptain)
	assert.ErrorIs(t, sim.Sail("Player", 1), ErrSameCity)

	// 100 distance × 0.5 × 4 crates = 200 gold; four hours at sea.
	require.NoError(t, sim.Sail("Player", 2))
	cpt := sim.Captains()[0]
	assert.Equal(t, 1000-42-200, cpt.Player.Gold)
	assert.Equal(t, uint64(4*TicksPerSimHour), cpt.ArriveTick)

	_, err = sim.Trade(TradeRequest{Captain: "Player", CityID: 1, GoodID: 1, Qty: 1})
	assert.ErrorIs(t, err, ErrNotDocked)

	sim.TickHour(4 * TicksPerSimHour)
	cpt = sim.Captains()[0]
	require.True(t, cpt.Docked())
	assert.Equal(t, 2, cpt.Location)
	assert.Equal(t, 1, cpt.Voyages)

	// Brine does not price grain, so the catalog base price applies.
	tx, err = sim.Trade(TradeRequest{Captain: "Player", CityID: 2, GoodID: 1, Qty: 4})
	require.NoError(t, err)
	assert.Equal(t, 42, tx.TotalPrice)
	assert.Equal(t, 800, sim.Captains()[0].Player.Gold)

	require.Len(t, sim.RecentTransactions(10), 2)
	_, journal := sim.Snapshot()
	assert.Len(t, journal.Transactions, 2)
}

func TestSiegeTransfersCity(t *testing.T) {
	fort := social.NewCity(1, "Fort", economy.CityCapital)
	fort.DefenseLevel = 1000
	fort.Stability = 100
	hamlet := social.NewCity(2, "Hamlet", economy.CityFarming)
	hamlet.DefenseLevel = 10

	att := social.NewKingdom(1, "Attackers", "Att")
	att.Cities = []social.CityID{1}
	att.Treasury = 1000
	def := social.NewKingdom(2, "Defenders", "Def")
	def.Cities = []social.CityID{2}
	social.SetRelation(att, def, -90)
	social.SetPact(att, def, social.Wars, true)

	sim := New(economy.DefaultCatalog(), nil, State{
		Cities:   []*social.City{fort, hamlet},
		Kingdoms: []*social.Kingdom{att, def},
	}, Options{Seed: 1})
	sim.src = &fixedSource{f: 0.5}

	sim.mu.Lock()
	sim.besiege(100, att, def, hamlet)
	sim.mu.Unlock()

	assert.Equal(t, "Att", hamlet.Faction)
	assert.Equal(t, []social.CityID{1, 2}, att.Cities)
	assert.Empty(t, def.Cities)
	assert.True(t, att.HasCity(2))
	assert.False(t, def.HasCity(2))
	assert.Equal(t, 800, att.Treasury)
	assert.Equal(t, 10.0, hamlet.LoyaltyLevel)

	events := sim.RecentEvents(1)
	require.Len(t, events, 1)
	assert.Equal(t, CategoryWar, events[0].Category)
	assert.Nil(t, sim.weakestCity(def))
}

func TestSeasonSwapsModifier(t *testing.T) {
	sim := tradeFixture(t)
	sim.applySeason(SeasonWinter)
	sim.applySeason(SeasonSummer)

	mods := sim.Modifiers()
	require.Len(t, mods, 1)
	assert.Equal(t, 0.95, mods[0].Value)
	assert.Equal(t, "Summer", SeasonName(sim.season))
}

func TestTaxesFlowToTreasury(t *testing.T) {
	sim := tradeFixture(t)
	sim.collectTaxes()
	k := sim.Kingdoms()[0]
	// Two cities of 1000 people at 10%: 10 gold each.
	assert.Equal(t, 20, k.Treasury)
}

func TestInterventions(t *testing.T) {
	sim := tradeFixture(t)

	n, err := sim.ProvisionCity(2, 1, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, n)
	brine, _ := sim.City(2)
	assert.Equal(t, 30, brine.Availability[1])
	assert.Contains(t, brine.Prices, 1)

	_, err = sim.ProvisionCity(9, 1, 1)
	assert.ErrorIs(t, err, ErrUnknownCity)
	_, err = sim.ProvisionCity(1, 999, 1)
	assert.ErrorIs(t, err, ErrUnknownGood)
	_, err = sim.ProvisionCity(1, 1, 0)
	assert.ErrorIs(t, err, ErrBadQuantity)

	ev, err := sim.TriggerEvent("festival", 1)
	require.NoError(t, err)
	assert.Equal(t, "Festival", ev.KindName)
	assert.Len(t, sim.ActiveEvents(), 1)
	_, err = sim.TriggerEvent("meteor", 1)
	assert.ErrorIs(t, err, ErrUnknownEvent)

	total, err := sim.GrantTreasury(1, 250)
	require.NoError(t, err)
	assert.Equal(t, 250, total)
	_, err = sim.GrantTreasury(5, 1)
	assert.ErrorIs(t, err, ErrUnknownKingdom)

	assert.Len(t, sim.RecentEvents(10), 3)
}
