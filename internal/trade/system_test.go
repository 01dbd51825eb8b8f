package trade

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tradewinds/internal/economy"
	"github.com/talgya/tradewinds/internal/entropy"
	"github.com/talgya/tradewinds/internal/social"
)

const (
	grain  = 1
	fish   = 2
	tools  = 5
	wine   = 8
	cannon = 10
	silk   = 14
)

func newTestSystem(t *testing.T, cfg Config) *System {
	t.Helper()
	return NewSystem(economy.DefaultCatalog(), cfg)
}

func newPort() *social.City {
	c := social.NewCity(1, "Saltmarsh", economy.CityPort)
	c.Faction = "Aldmere"
	c.Prices[grain] = 10
	c.Availability[grain] = 50
	return c
}

type snapshot struct {
	gold      int
	inventory map[economy.GoodID]int
	cargo     map[economy.GoodID]int
	stock     map[economy.GoodID]int
	wealth    int
}

func takeSnapshot(p *Player, c *social.City) snapshot {
	s := snapshot{
		gold:      p.Gold,
		inventory: maps.Clone(p.Inventory),
		stock:     maps.Clone(c.Availability),
		wealth:    c.Wealth,
	}
	if len(p.Ships) > 0 {
		s.cargo = maps.Clone(p.Ships[0].Cargo)
	}
	return s
}

func TestBuyGoodsToInventory(t *testing.T) {
	sys := newTestSystem(t, DefaultConfig())
	city := newPort()
	p := NewPlayer("Ann", "League", 1000)

	tx, err := sys.BuyGoods(p, city, grain, 10, NoShip)
	require.NoError(t, err)

	assert.Equal(t, 900, p.Gold)
	assert.Equal(t, 10, p.Inventory[grain])
	assert.Equal(t, 40, city.Stock(grain))
	assert.Equal(t, 100, tx.TotalPrice)
	assert.Equal(t, 10.0, tx.UnitPrice)
	assert.Equal(t, "Grain", tx.GoodName)
	assert.Equal(t, "Saltmarsh", tx.CityName)
	assert.Equal(t, "Ann", tx.Trader)
	assert.True(t, tx.IsBuy)
	assert.NotEmpty(t, tx.ID)
}

func TestBuyGoodsFailuresLeaveStateUntouched(t *testing.T) {
	sys := newTestSystem(t, DefaultConfig())
	city := newPort()
	p := NewPlayer("Ann", "League", 1000)
	p.AddShip(NewShip(1, "Gull", 5))

	cases := []struct {
		name string
		good economy.GoodID
		qty  int
		ship ShipID
		gold int
		want error
	}{
		{"zero quantity", grain, 0, NoShip, 1000, ErrInvalidQuantity},
		{"unknown good", 99, 1, NoShip, 1000, ErrUnknownGood},
		{"untraded good", fish, 1, NoShip, 1000, ErrGoodNotTraded},
		{"short stock", grain, 51, NoShip, 1000, ErrInsufficientStock},
		{"short funds", grain, 10, NoShip, 50, ErrInsufficientFunds},
		{"unknown ship", grain, 1, 9, 1000, ErrUnknownShip},
		{"hold too small", grain, 10, 1, 1000, ErrCargoFull},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p.Gold = tc.gold
			before := takeSnapshot(p, city)

			_, err := sys.BuyGoods(p, city, tc.good, tc.qty, tc.ship)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, before, takeSnapshot(p, city))
		})
	}
	assert.Zero(t, sys.TransactionCount())
}

func TestBuyGoodsIntoShip(t *testing.T) {
	sys := newTestSystem(t, DefaultConfig())
	city := newPort()
	p := NewPlayer("Ann", "League", 1000)
	ship := NewShip(1, "Gull", 12)
	p.AddShip(ship)

	_, err := sys.BuyGoods(p, city, grain, 12, 1)
	require.NoError(t, err)
	assert.Equal(t, 12, ship.Cargo[grain])
	assert.Equal(t, 12, p.Owned(grain, 1))
	assert.Zero(t, p.Owned(grain, NoShip))
	assert.Zero(t, p.Owned(grain, 9), "unknown ships hold nothing")
	assert.Equal(t, 12.0, ship.CargoWeight(sys.Catalog()))
	assert.Empty(t, p.Inventory)

	_, err = sys.BuyGoods(p, city, grain, 1, 1)
	assert.ErrorIs(t, err, ErrCargoFull)
}

func TestSellGoodsUsesBasePriceForUntrackedGood(t *testing.T) {
	sys := newTestSystem(t, DefaultConfig())
	city := newPort()
	p := NewPlayer("Ann", "League", 0)
	p.Inventory[fish] = 5

	tx, err := sys.SellGoods(p, city, fish, 5, NoShip)
	require.NoError(t, err)

	assert.Equal(t, 60, p.Gold)
	assert.NotContains(t, p.Inventory, fish)
	assert.Equal(t, 5, city.Stock(fish))
	assert.False(t, tx.IsBuy)

	_, err = sys.SellGoods(p, city, fish, 1, NoShip)
	assert.ErrorIs(t, err, ErrInsufficientGoods)
}

func TestSellGoodsRespectsStockCap(t *testing.T) {
	sys := newTestSystem(t, DefaultConfig())
	city := newPort()
	city.StockCap = 52
	p := NewPlayer("Ann", "League", 0)
	p.Inventory[grain] = 5

	_, err := sys.SellGoods(p, city, grain, 5, NoShip)
	assert.ErrorIs(t, err, social.ErrStockCapExceeded)
	assert.Equal(t, 5, p.Inventory[grain])
	assert.Equal(t, 0, p.Gold)
}

func TestSameFactionDiscount(t *testing.T) {
	sys := newTestSystem(t, DefaultConfig())

	assert.Equal(t, 95, sys.CalculateFinalPrice(100, "A", "A"))
	assert.Equal(t, 100, sys.CalculateFinalPrice(100, "A", "B"))
	assert.Less(t, sys.CalculateFinalPrice(37, "A", "A"), sys.CalculateFinalPrice(37, "A", "B"))
	assert.Equal(t, 1, sys.CalculateFinalPrice(0.2, "A", "B"), "price floors at 1")
}

func TestEventModifierExpires(t *testing.T) {
	sys := newTestSystem(t, DefaultConfig())
	sys.AddPriceModifier(ModifierEvent, "Harbour festival", 1.2, 10)

	assert.Equal(t, 120, sys.CalculateFinalPrice(100, "A", "B"))

	assert.Equal(t, 1, sys.UpdatePriceModifiers(11))
	assert.Equal(t, 100, sys.CalculateFinalPrice(100, "A", "B"))
	assert.Equal(t, 11.0, sys.Now())

	sys.UpdatePriceModifiers(3)
	assert.Equal(t, 11.0, sys.Now(), "game time never runs backwards")
}

func TestPermanentModifierSurvivesUpdates(t *testing.T) {
	sys := newTestSystem(t, DefaultConfig())
	sys.AddPriceModifier(ModifierWar, "War between A and B", 1.25, 0)
	sys.UpdatePriceModifiers(1e6)
	assert.Len(t, sys.ActiveModifiers(), 1)

	assert.False(t, sys.RemovePriceModifier(ModifierEmbargo, "War between A and B"))
	assert.True(t, sys.RemovePriceModifier(ModifierWar, "War between A and B"))
	assert.Empty(t, sys.ActiveModifiers())
}

func TestRemovePriceModifierTakesFirstMatch(t *testing.T) {
	sys := newTestSystem(t, DefaultConfig())
	sys.AddPriceModifier(ModifierPolicy, "Tariff", 1.1, 0)
	sys.AddPriceModifier(ModifierPolicy, "Tariff", 1.3, 0)

	require.True(t, sys.RemovePriceModifier(ModifierPolicy, "Tariff"))
	mods := sys.ActiveModifiers()
	require.Len(t, mods, 1)
	assert.Equal(t, 1.3, mods[0].Value)
}

func TestModifierEviction(t *testing.T) {
	t.Run("oldest", func(t *testing.T) {
		sys := newTestSystem(t, Config{MaxModifiers: 2, Eviction: EvictOldest})
		sys.AddPriceModifier(ModifierEvent, "a", 1.1, 50)
		sys.AddPriceModifier(ModifierEvent, "b", 1.1, 5)
		sys.AddPriceModifier(ModifierEvent, "c", 1.1, 0)

		assert.Equal(t, []string{"b", "c"}, descriptions(sys.ActiveModifiers()))
	})

	t.Run("soonest expiring", func(t *testing.T) {
		sys := newTestSystem(t, Config{MaxModifiers: 2, Eviction: EvictSoonestExpiring})
		sys.AddPriceModifier(ModifierEvent, "a", 1.1, 50)
		sys.AddPriceModifier(ModifierEvent, "b", 1.1, 5)
		sys.AddPriceModifier(ModifierEvent, "c", 1.1, 0)
		assert.Equal(t, []string{"a", "c"}, descriptions(sys.ActiveModifiers()))

		sys.AddPriceModifier(ModifierEvent, "d", 1.1, 0)
		assert.Equal(t, []string{"c", "d"}, descriptions(sys.ActiveModifiers()))
	})
}

func descriptions(mods []PriceModifier) []string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.Description
	}
	return out
}

func TestHistoryRingEvictsOldest(t *testing.T) {
	sys := newTestSystem(t, Config{HistorySize: 3})
	city := newPort()
	p := NewPlayer("Ann", "League", 10000)

	var seen int
	sys.SetOnTransaction(func(TradeTransaction) { seen++ })

	for q := 1; q <= 5; q++ {
		_, err := sys.BuyGoods(p, city, grain, q, NoShip)
		require.NoError(t, err)
	}

	assert.Equal(t, 5, seen)
	assert.Equal(t, []int{3, 4, 5}, quantities(sys.History()))
	assert.Equal(t, []int{5, 4}, quantities(sys.RecentTransactions(2)))
	assert.Equal(t, []int{5, 4, 3}, quantities(sys.RecentTransactions(10)))
}

func quantities(txs []TradeTransaction) []int {
	out := make([]int, len(txs))
	for i, tx := range txs {
		out[i] = tx.Quantity
	}
	return out
}

func TestCalculateTransportCost(t *testing.T) {
	sys := newTestSystem(t, DefaultConfig())
	a := social.NewCity(1, "A", economy.CityPort)
	b := social.NewCity(2, "B", economy.CityPort)
	b.X, b.Y = 3, 4

	assert.Equal(t, 8, sys.CalculateTransportCost(a, b, 3))
	assert.Equal(t, 1, sys.CalculateTransportCost(a, a, 10))
}

func TestUpdateCityGoods(t *testing.T) {
	sys := newTestSystem(t, DefaultConfig())
	c := social.NewCity(3, "Brightford", economy.CityFarming)
	c.Prices[99] = 5
	c.Availability[99] = 5
	c.Prices[cannon] = 200
	c.Prices[silk] = 180
	c.Availability[silk] = 3

	sys.UpdateCityGoods(c, entropy.NewSeeded(7))

	assert.NotContains(t, c.Prices, 99)
	assert.NotContains(t, c.Availability, 99)
	assert.NotContains(t, c.Prices, cannon, "non-native good without stock is dropped")
	assert.Equal(t, 3, c.Availability[silk])

	assert.GreaterOrEqual(t, c.Stock(grain), 10)
	assert.LessOrEqual(t, c.Stock(grain), 50)
	assert.GreaterOrEqual(t, c.Stock(tools), 5)
	assert.LessOrEqual(t, c.Stock(tools), 20)
	assert.True(t, c.Trades(wine))

	assert.GreaterOrEqual(t, c.Prices[grain], 8.0)
	assert.LessOrEqual(t, c.Prices[grain], 12.0)

	for id := range c.Prices {
		assert.True(t, sys.Catalog().Has(id))
	}
}
