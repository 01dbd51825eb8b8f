package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tradewinds/internal/economy"
	"github.com/talgya/tradewinds/internal/social"
	"github.com/talgya/tradewinds/internal/trade"
)

// fixedSource always returns the same draw; Intn always returns 0.
type fixedSource struct{ f float64 }

func (s *fixedSource) Float64() float64 { return s.f }
func (s *fixedSource) Intn(int) int     { return 0 }

func singleGoodCatalog(t *testing.T) *economy.Catalog {
	t.Helper()
	cat, err := economy.NewCatalog([]economy.GoodDef{
		{ID: 1, Name: "Pepper", BasePrice: 100, Weight: 1, Rarity: 1},
	})
	require.NoError(t, err)
	return cat
}

func twoCityWorld() (*social.City, *social.City, *StaticWorld) {
	a := social.NewCity(1, "Alder", economy.CityPort)
	a.Stability = 100
	a.Prices[1] = 40
	a.Availability[1] = 20

	b := social.NewCity(2, "Brine", economy.CityPort)
	b.Stability = 100
	b.X = 100
	b.Population = 1400
	b.Prices[1] = 80
	b.Availability[1] = 10

	return a, b, NewStaticWorld([]*social.City{a, b}, nil)
}

func TestMerchantTwoCityRoute(t *testing.T) {
	a, b, world := twoCityWorld()
	m := NewMerchant(singleGoodCatalog(t), world, 0)

	trend, ok := m.MarketTrend(a, 1)
	require.True(t, ok)
	assert.InDelta(t, 0.4, trend, 1e-9)
	assert.InDelta(t, 1.4, m.DemandRatio(b, 1), 1e-9)
	assert.True(t, m.ShouldBuyGood(a, 1))
	assert.True(t, m.ShouldSellGood(b, 1))
	assert.False(t, m.ShouldBuyGood(b, 1))

	routes := m.FindBestTradeRoutes(a)
	require.Len(t, routes, 1)
	assert.Equal(t, a.ID, routes[0].From)
	assert.Equal(t, b.ID, routes[0].To)
	assert.Equal(t, []economy.GoodID{1}, routes[0].Goods)
	// (80 − 40) × 20 units × (1 − 0.1 risk)
	assert.InDelta(t, 720, routes[0].Profit, 1e-6)

	assert.Empty(t, m.FindBestTradeRoutes(b))
}

func TestMerchantCachesUntilUpdate(t *testing.T) {
	a, _, world := twoCityWorld()
	m := NewMerchant(singleGoodCatalog(t), world, 0)

	trend, _ := m.MarketTrend(a, 1)
	a.Prices[1] = 90
	cached, _ := m.MarketTrend(a, 1)
	assert.Equal(t, trend, cached)

	m.Update(1)
	fresh, _ := m.MarketTrend(a, 1)
	assert.InDelta(t, 0.9, fresh, 1e-9)

	_, ok := m.MarketTrend(a, 42)
	assert.False(t, ok)
}

func TestOptimalQuantityBoundedByHold(t *testing.T) {
	a, _, world := twoCityWorld()
	m := NewMerchant(singleGoodCatalog(t), world, 7.5)
	assert.Equal(t, 7, m.OptimalQuantity(a, 1))

	m = NewMerchant(singleGoodCatalog(t), world, 500)
	assert.Equal(t, 20, m.OptimalQuantity(a, 1))
}

func TestRiskLevelIsClamped(t *testing.T) {
	a, b, world := twoCityWorld()
	m := NewMerchant(singleGoodCatalog(t), world, 0)
	b.X = 1e6
	assert.Equal(t, maxRisk, m.RiskLevel(a, b))
}

func TestGovernorRaisesTaxesWhenBroke(t *testing.T) {
	c := social.NewCity(1, "Mudwall", economy.CityFarming)
	c.Wealth = 0
	g := NewGovernor()

	actions := g.EvaluateDevelopmentActions(c)
	require.NotEmpty(t, actions)
	assert.IsNonIncreasing(t, priorities(actions))

	done, ok := g.ExecuteBestAction(c)
	require.True(t, ok)
	assert.Equal(t, DevelopRaiseTaxes, done.Kind)
	assert.Equal(t, 12, c.TaxRate)
}

func TestGovernorBuildsMarketplaceFirst(t *testing.T) {
	c := social.NewCity(2, "Goldcrest", economy.CityCapital)
	c.Wealth = 10000
	c.Population = 3000
	g := NewGovernor()

	assert.InDelta(t, 65, g.EconomicHealth(c), 1e-9)
	assert.Zero(t, g.InfrastructureLevel(c))

	done, ok := g.ExecuteBestAction(c)
	require.True(t, ok)
	assert.Equal(t, DevelopBuildFacility, done.Kind)
	assert.Equal(t, social.FacilityMarketplace, done.Facility)
	assert.True(t, c.Facilities.Marketplace)
	assert.Equal(t, 9000, c.Wealth)
	assert.Greater(t, g.InfrastructureLevel(c), 0.0, "score recomputed after acting")
}

func priorities(actions []DevelopmentAction) []float64 {
	out := make([]float64, len(actions))
	for i, a := range actions {
		out[i] = a.Priority
	}
	return out
}

func hostileKingdoms() (*social.Kingdom, *social.Kingdom, *StaticWorld) {
	fort := social.NewCity(1, "Fort", economy.CityCapital)
	fort.DefenseLevel = 100

	a := social.NewKingdom(1, "Aldmere", "Aldmere")
	a.Cities = []social.CityID{fort.ID}
	b := social.NewKingdom(2, "Brethren", "Brethren")
	social.SetRelation(a, b, -80)

	return a, b, NewStaticWorld([]*social.City{fort}, []*social.Kingdom{a, b})
}

func TestDiplomatRanksActions(t *testing.T) {
	a, _, world := hostileKingdoms()
	d := NewDiplomat(world, trade.NewSystem(singleGoodCatalog(t), trade.DefaultConfig()))

	assert.Equal(t, 1.0, d.MilitaryBalance(a, mustKingdom(t, world, 2)))

	actions := d.EvaluateDiplomaticActions(a)
	require.Len(t, actions, 3)
	assert.Equal(t, DiplomacyImproveRelations, actions[0].Kind)
	assert.Equal(t, DiplomacyImposeEmbargo, actions[1].Kind)
	assert.Equal(t, DiplomacyDeclareWar, actions[2].Kind)
}

func TestDiplomatWarAndPeaceDrivePriceModifiers(t *testing.T) {
	a, b, world := hostileKingdoms()
	ts := trade.NewSystem(singleGoodCatalog(t), trade.DefaultConfig())
	d := NewDiplomat(world, ts)

	require.NoError(t, d.ApplyAction(DiplomaticAction{Kind: DiplomacyDeclareWar, From: a.ID, Target: b.ID}))
	assert.True(t, a.AtWarWith(b.ID))
	assert.True(t, b.AtWarWith(a.ID))
	assert.Equal(t, social.MinRelation, a.Relation(b.ID))
	assert.Equal(t, 125, ts.CalculateFinalPrice(100, "x", "y"))

	actions := d.EvaluateDiplomaticActions(b)
	require.Len(t, actions, 1)
	assert.Equal(t, DiplomacyMakePeace, actions[0].Kind)

	require.NoError(t, d.ApplyAction(actions[0]))
	assert.False(t, a.AtWarWith(b.ID))
	assert.Empty(t, ts.ActiveModifiers())
	assert.Equal(t, -85.0, a.Relation(b.ID))

	err := d.ApplyAction(DiplomaticAction{Kind: DiplomacyMakePeace, From: a.ID, Target: 9})
	assert.ErrorIs(t, err, ErrUnknownKingdom)
}

func TestEmbargoCancelsTradeAgreement(t *testing.T) {
	a, b, world := hostileKingdoms()
	ts := trade.NewSystem(singleGoodCatalog(t), trade.DefaultConfig())
	d := NewDiplomat(world, ts)

	require.NoError(t, d.ApplyAction(DiplomaticAction{Kind: DiplomacyProposeTradeAgreement, From: b.ID, Target: a.ID}))
	assert.True(t, a.TradeAgreements[b.ID])
	require.Len(t, ts.ActiveModifiers(), 1)

	require.NoError(t, d.ApplyAction(DiplomaticAction{Kind: DiplomacyImposeEmbargo, From: a.ID, Target: b.ID}))
	assert.False(t, a.TradeAgreements[b.ID])
	assert.True(t, b.Embargoes[a.ID])
	mods := ts.ActiveModifiers()
	require.Len(t, mods, 1)
	assert.Equal(t, trade.ModifierEmbargo, mods[0].Type)
}

func TestPactModifiersFollowPacts(t *testing.T) {
	a, b, world := hostileKingdoms()
	ts := trade.NewSystem(singleGoodCatalog(t), trade.DefaultConfig())
	d := NewDiplomat(world, ts)

	require.NoError(t, d.ApplyAction(DiplomaticAction{Kind: DiplomacyImposeEmbargo, From: a.ID, Target: b.ID}))
	require.Len(t, ts.ActiveModifiers(), 1)
	assert.Zero(t, ts.ActiveModifiers()[0].ExpiryTime, "lasts as long as the embargo")

	require.NoError(t, d.LiftEmbargo(b.ID, a.ID))
	assert.False(t, a.Embargoes[b.ID])
	assert.Empty(t, ts.ActiveModifiers())
	assert.ErrorIs(t, d.LiftEmbargo(a.ID, 9), ErrUnknownKingdom)

	// A standing agreement whose modifier went missing gets it back, and a
	// modifier left behind by a dissolved pact is removed.
	social.SetPact(a, b, social.TradeAgreements, true)
	ts.AddPriceModifier(trade.ModifierWar, pactName("War", a, b), warPriceFactor, 0)
	assert.Equal(t, 2, d.ReconcileModifiers())
	mods := ts.ActiveModifiers()
	require.Len(t, mods, 1)
	assert.Equal(t, trade.ModifierTradeAgreement, mods[0].Type)
	assert.Zero(t, d.ReconcileModifiers())

	// War tears up the agreement and its discount.
	require.NoError(t, d.ApplyAction(DiplomaticAction{Kind: DiplomacyDeclareWar, From: a.ID, Target: b.ID}))
	mods = ts.ActiveModifiers()
	require.Len(t, mods, 1)
	assert.Equal(t, trade.ModifierWar, mods[0].Type)
}

func mustKingdom(t *testing.T, w World, id social.KingdomID) *social.Kingdom {
	t.Helper()
	k, ok := w.Kingdom(id)
	require.True(t, ok)
	return k
}

func TestEventDirectorLifecycle(t *testing.T) {
	ts := trade.NewSystem(singleGoodCatalog(t), trade.DefaultConfig())
	src := &fixedSource{f: 0}
	d := NewEventDirector(ts, src)
	city := social.NewCity(1, "Harrow", economy.CityPort)

	triggered, resolved := d.Update(1, []*social.City{city})
	assert.Empty(t, resolved)
	require.Len(t, triggered, len(eventTable))
	assert.Len(t, ts.ActiveModifiers(), 5, "one modifier per market category")

	plague := triggered[0]
	assert.Equal(t, "Plague", plague.KindName)
	assert.Equal(t, 2, plague.Severity)
	assert.Equal(t, -40, plague.Effects.Population)
	assert.Equal(t, 72.0, plague.Remaining)

	src.f = 0.99
	triggered, resolved = d.Update(10, []*social.City{city})
	assert.Empty(t, triggered)
	assert.Len(t, resolved, 1, "only the six-hour storm has run its course")
	assert.Equal(t, "Storm", resolved[0].KindName)
	assert.Len(t, ts.ActiveModifiers(), 4)

	_, resolved = d.Update(1000, []*social.City{city})
	assert.Len(t, resolved, len(eventTable)-1)
	assert.Empty(t, d.Active())
	assert.Empty(t, ts.ActiveModifiers())
}

func TestGenerationMemo(t *testing.T) {
	var gen Generation
	m := newMemo[int, int](&gen)
	calls := 0
	compute := func() int { calls++; return calls }

	assert.Equal(t, 1, m.get(7, compute))
	assert.Equal(t, 1, m.get(7, compute))
	assert.Equal(t, 1, m.len())

	gen.Advance()
	assert.Equal(t, uint64(1), gen.Current())
	assert.Zero(t, m.len())
	assert.Equal(t, 2, m.get(7, compute))

	m.forget(7)
	assert.Equal(t, 3, m.get(7, compute))
}
