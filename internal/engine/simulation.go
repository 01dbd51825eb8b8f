// Simulation ties together all world systems and runs them each tick.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/talgya/tradewinds/internal/ai"
	"github.com/talgya/tradewinds/internal/economy"
	"github.com/talgya/tradewinds/internal/entropy"
	"github.com/talgya/tradewinds/internal/logs"
	"github.com/talgya/tradewinds/internal/social"
	"github.com/talgya/tradewinds/internal/trade"
	"github.com/talgya/tradewinds/internal/world"
)

var (
	ErrUnknownCity    = errors.New("unknown city")
	ErrUnknownCaptain = errors.New("unknown captain")
	ErrNotDocked      = errors.New("captain is not docked at that city")
	ErrSameCity       = errors.New("captain is already in that port")
)

// Options tunes a Simulation.
type Options struct {
	Seed         int64 // 0 = crypto randomness
	Trade        trade.Config
	EventLogSize int
	StockCap     int // Applied to every city; 0 = unlimited
}

// State is everything a Simulation needs to resume.
type State struct {
	Tick      uint64                `json:"tick"`
	WorldSeed int64                 `json:"world_seed"`
	Cities    []*social.City        `json:"cities"`
	Kingdoms  []*social.Kingdom     `json:"kingdoms"`
	Captains  []*Captain            `json:"captains"`
	Modifiers []trade.PriceModifier `json:"modifiers"`
}

// Simulation holds the complete world state and wires systems together.
// The tick handlers are the only writers; readers go through the accessor
// methods, which take the read lock.
type Simulation struct {
	mu sync.RWMutex

	catalog  *economy.Catalog
	worldMap *world.Map
	src      entropy.Source

	cities      []*social.City
	cityIndex   map[social.CityID]*social.City
	kingdoms    []*social.Kingdom
	kingdomIdx  map[social.KingdomID]*social.Kingdom
	cityKingdom map[social.CityID]social.KingdomID
	captains    []*Captain

	trade     *trade.System
	merchants *ai.Merchant
	governor  *ai.Governor
	diplomat  *ai.Diplomat
	director  *ai.EventDirector

	events    *eventLog
	lastTick  uint64
	worldSeed int64
	season    uint8
	stats     SimStats

	pendingTx     []trade.TradeTransaction
	onEvent       func(Event)
	onTransaction func(trade.TradeTransaction)
}

// maxPendingTransactions bounds the trades held for the next save.
const maxPendingTransactions = 100_000

// SimStats tracks aggregate world statistics.
type SimStats struct {
	TotalPopulation int     `json:"total_population"`
	TotalWealth     int     `json:"total_wealth"`
	TreasuryTotal   int     `json:"treasury_total"`
	CaptainGold     int     `json:"captain_gold"`
	AvgStability    float64 `json:"avg_stability"`
	Wars            int     `json:"wars"`
	Voyages         int     `json:"voyages"`
}

// New builds a simulation over restored or freshly generated state.
func New(cat *economy.Catalog, m *world.Map, st State, opts Options) *Simulation {
	if opts.EventLogSize <= 0 {
		opts.EventLogSize = 1000
	}
	s := &Simulation{
		catalog:     cat,
		worldMap:    m,
		src:         entropy.FromSeed(opts.Seed),
		cities:      st.Cities,
		cityIndex:   make(map[social.CityID]*social.City, len(st.Cities)),
		kingdoms:    st.Kingdoms,
		kingdomIdx:  make(map[social.KingdomID]*social.Kingdom, len(st.Kingdoms)),
		cityKingdom: make(map[social.CityID]social.KingdomID),
		captains:    st.Captains,
		trade:       trade.NewSystem(cat, opts.Trade),
		events:      newEventLog(opts.EventLogSize),
		lastTick:    st.Tick,
		worldSeed:   st.WorldSeed,
	}
	sort.Slice(s.cities, func(i, j int) bool { return s.cities[i].ID < s.cities[j].ID })
	sort.Slice(s.kingdoms, func(i, j int) bool { return s.kingdoms[i].ID < s.kingdoms[j].ID })

	for _, c := range s.cities {
		s.cityIndex[c.ID] = c
		if opts.StockCap > 0 {
			c.StockCap = opts.StockCap
		}
	}
	for _, k := range s.kingdoms {
		s.kingdomIdx[k.ID] = k
		for _, id := range k.Cities {
			s.cityKingdom[id] = k.ID
		}
	}

	view := worldView{s}
	s.merchants = ai.NewMerchant(cat, view, CaptainHold)
	s.governor = ai.NewGovernor()
	s.diplomat = ai.NewDiplomat(view, s.trade)
	s.director = ai.NewEventDirector(s.trade, s.src)
	s.trade.SetOnTransaction(s.recordTransaction)

	s.trade.UpdatePriceModifiers(GameHours(st.Tick))
	for _, m := range st.Modifiers {
		if m.Type == trade.ModifierSeason || m.Type == trade.ModifierEvent {
			continue // re-derived below; event modifiers die with their events
		}
		s.trade.AddPriceModifier(m.Type, m.Description, m.Value, m.ExpiryTime)
	}
	s.applySeason(SeasonOf(st.Tick))
	s.diplomat.ReconcileModifiers()
	s.updateStats()
	return s
}

// worldView exposes the simulation to the AI layers without locking; it is
// only used from inside tick handlers, which already hold the write lock.
type worldView struct{ s *Simulation }

func (w worldView) Cities() []*social.City { return w.s.cities }

func (w worldView) City(id social.CityID) (*social.City, bool) {
	c, ok := w.s.cityIndex[id]
	return c, ok
}

func (w worldView) Kingdoms() []*social.Kingdom { return w.s.kingdoms }

func (w worldView) Kingdom(id social.KingdomID) (*social.Kingdom, bool) {
	k, ok := w.s.kingdomIdx[id]
	return k, ok
}

// Attach registers the tick handlers on an engine.
func (s *Simulation) Attach(e *Engine) {
	e.OnTick = s.TickMinute
	e.OnHour = s.TickHour
	e.OnDay = s.TickDay
	e.OnWeek = s.TickWeek
	e.OnSeason = s.TickSeason
}

// SetOnTransaction forwards every completed trade to fn. fn runs under the
// simulation lock and must not block or call back into the simulation.
func (s *Simulation) SetOnTransaction(fn func(trade.TradeTransaction)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTransaction = fn
}

// recordTransaction queues a completed trade for the archive. The trading
// system's history is a ring, so the queue is what persistence drains.
func (s *Simulation) recordTransaction(tx trade.TradeTransaction) {
	if len(s.pendingTx) >= maxPendingTransactions {
		s.pendingTx = s.pendingTx[1:]
		logs.Warn("unsaved trade queue full, dropping oldest", zap.Int("limit", maxPendingTransactions))
	}
	s.pendingTx = append(s.pendingTx, tx)
	if s.onTransaction != nil {
		s.onTransaction(tx)
	}
}

// SetOnEvent forwards every emitted event to fn under the same rules as
// SetOnTransaction.
func (s *Simulation) SetOnEvent(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvent = fn
}

// TickMinute records the tick; nothing in the trade world moves faster than an hour.
func (s *Simulation) TickMinute(tick uint64) {
	s.mu.Lock()
	s.lastTick = tick
	s.mu.Unlock()
}

// TickHour runs every sim-hour: modifiers expire, markets move, captains trade.
func (s *Simulation) TickHour(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTick = tick

	if n := s.trade.UpdatePriceModifiers(GameHours(tick)); n > 0 {
		logs.Debug("price modifiers expired", zap.Int("count", n), zap.String("time", SimTime(tick)))
	}
	for _, c := range s.cities {
		c.UpdateMarket(s.src)
	}
	s.merchants.Update(1)
	s.sailCaptains(tick)
}

// TickDay runs every sim-day: growth, events, governance, taxes and sieges.
func (s *Simulation) TickDay(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.cities {
		c.UpdatePopulation()
	}
	s.rollEvents(tick)
	s.processGovernance(tick)
	s.collectTaxes()
	s.processSieges(tick)
	s.updateStats()

	logs.Info("daily report",
		zap.Uint64("tick", tick),
		zap.String("time", SimTime(tick)),
		zap.String("population", humanize.Comma(int64(s.stats.TotalPopulation))),
		zap.String("city_wealth", humanize.Comma(int64(s.stats.TotalWealth))),
		zap.String("treasuries", humanize.Comma(int64(s.stats.TreasuryTotal))),
		zap.String("captain_gold", humanize.Comma(int64(s.stats.CaptainGold))),
		zap.Float64("avg_stability", s.stats.AvgStability),
		zap.Int("wars", s.stats.Wars),
		zap.Int("transactions", s.trade.TransactionCount()),
		zap.Float64("price_level", s.trade.CombinedModifier()),
	)
}

// TickWeek runs every sim-week: goods turnover and diplomacy.
func (s *Simulation) TickWeek(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.cities {
		s.trade.UpdateCityGoods(c, s.src)
	}
	s.processDiplomacy(tick)

	logs.Info("weekly summary",
		zap.Uint64("tick", tick),
		zap.String("time", SimTime(tick)),
		zap.Int("events_logged", s.events.len()),
		zap.Int("modifiers", len(s.trade.ActiveModifiers())),
	)
}

// TickSeason runs every sim-season.
func (s *Simulation) TickSeason(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processSeason(tick)
}

// rollEvents lets the event director strike and reports what happened.
func (s *Simulation) rollEvents(tick uint64) {
	triggered, resolved := s.director.Update(24, s.cities)
	for _, ev := range triggered {
		s.EmitEvent(Event{
			Tick:        tick,
			Description: describeTriggered(ev),
			Category:    CategoryDisaster,
			CityID:      ev.CityID,
		})
	}
	for _, ev := range resolved {
		s.EmitEvent(Event{
			Tick:        tick,
			Description: fmt.Sprintf("The %s in %s has passed", ev.KindName, ev.CityName),
			Category:    CategoryDisaster,
			CityID:      ev.CityID,
		})
	}
}

func describeTriggered(ev ai.ActiveEvent) string {
	desc := fmt.Sprintf("%s strikes %s (severity %d)", ev.KindName, ev.CityName, ev.Severity)
	if ev.Effects.PriceFactor != 0 {
		desc += fmt.Sprintf(", prices x%.2f", ev.Effects.PriceFactor)
	}
	return desc
}

func (s *Simulation) updateStats() {
	var st SimStats
	stability := 0.0
	for _, c := range s.cities {
		st.TotalPopulation += c.Population
		st.TotalWealth += c.Wealth
		stability += c.Stability
	}
	if len(s.cities) > 0 {
		st.AvgStability = stability / float64(len(s.cities))
	}
	for _, k := range s.kingdoms {
		st.TreasuryTotal += k.Treasury
		st.Wars += len(k.Wars)
	}
	st.Wars /= 2
	for _, cpt := range s.captains {
		st.CaptainGold += cpt.Player.Gold
		st.Voyages += cpt.Voyages
	}
	s.stats = st
}

func (s *Simulation) kingdomOf(c *social.City) (*social.Kingdom, bool) {
	id, ok := s.cityKingdom[c.ID]
	if !ok {
		return nil, false
	}
	k, ok := s.kingdomIdx[id]
	return k, ok
}
