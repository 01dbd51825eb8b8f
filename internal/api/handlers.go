package api

import (
	"net/http"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/talgya/tradewinds/internal/economy"
	"github.com/talgya/tradewinds/internal/engine"
	"github.com/talgya/tradewinds/internal/logs"
	"github.com/talgya/tradewinds/internal/trade"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"name":    "Tradewinds",
		"speed":   s.Eng.Speed(),
		"running": s.Eng.Running(),
		"world":   s.Sim.Status(),
		"stream": map[string]any{
			"clients": s.Hub().Clients(),
			"dropped": s.Hub().Dropped(),
		},
	})
}

func (s *Server) handleGoods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Catalog().All())
}

// handleMap returns all hexes for a map renderer.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	m := s.Sim.Map()
	if m == nil {
		http.Error(w, "no map loaded", http.StatusNotFound)
		return
	}

	type hexEntry struct {
		Q         int     `json:"q"`
		R         int     `json:"r"`
		Terrain   string  `json:"terrain"`
		Elevation float64 `json:"elevation"`
		Harbour   float64 `json:"harbour,omitempty"`
		CityID    *int    `json:"city_id,omitempty"`
	}
	coords := m.Coords()
	hexes := make([]hexEntry, 0, len(coords))
	for _, c := range coords {
		h := m.Get(c)
		hexes = append(hexes, hexEntry{
			Q:         c.Q,
			R:         c.R,
			Terrain:   h.Terrain.String(),
			Elevation: h.Elevation,
			Harbour:   h.Harbour,
			CityID:    h.CityID,
		})
	}
	writeJSON(w, map[string]any{
		"radius": m.Radius,
		"hexes":  hexes,
	})
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	type citySummary struct {
		ID         int     `json:"id"`
		Name       string  `json:"name"`
		Type       string  `json:"type"`
		Faction    string  `json:"faction"`
		X          float64 `json:"x"`
		Y          float64 `json:"y"`
		Population int     `json:"population"`
		Wealth     int     `json:"wealth"`
		Stability  float64 `json:"stability"`
		Goods      int     `json:"goods"`
	}

	cities := s.Sim.Cities()
	out := make([]citySummary, 0, len(cities))
	for _, c := range cities {
		out = append(out, citySummary{
			ID:         c.ID,
			Name:       c.Name,
			Type:       c.Type,
			Faction:    c.Faction,
			X:          c.X,
			Y:          c.Y,
			Population: c.Population,
			Wealth:     c.Wealth,
			Stability:  c.Stability,
			Goods:      len(c.Prices),
		})
	}
	writeJSON(w, out)
}

// handleCity returns a city with its market board, one row per good traded there.
func (s *Server) handleCity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid city id", http.StatusBadRequest)
		return
	}
	c, ok := s.Sim.City(id)
	if !ok {
		http.Error(w, "city not found", http.StatusNotFound)
		return
	}

	type marketRow struct {
		GoodID   economy.GoodID `json:"good_id"`
		Name     string         `json:"name"`
		Price    float64        `json:"price"`
		Stock    int            `json:"stock"`
		Produced bool           `json:"produced"`
	}
	cat := s.Sim.Catalog()
	market := make([]marketRow, 0, len(c.Prices))
	for gid, price := range c.Prices {
		g, ok := cat.Get(gid)
		if !ok {
			continue
		}
		market = append(market, marketRow{
			GoodID:   gid,
			Name:     g.Name,
			Price:    price,
			Stock:    c.Stock(gid),
			Produced: g.ProducedBy(c.Type),
		})
	}
	sort.Slice(market, func(i, j int) bool { return market[i].GoodID < market[j].GoodID })

	writeJSON(w, map[string]any{
		"city":   c,
		"market": market,
	})
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid city id", http.StatusBadRequest)
		return
	}
	routes, err := s.Sim.Routes(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, routes)
}

func (s *Server) handleKingdoms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Kingdoms())
}

func (s *Server) handleCaptains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Captains())
}

// handleTransactions serves the in-memory trade history, or the stored
// archive with ?source=archive.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50, 1000)
	if r.URL.Query().Get("source") == "archive" {
		if s.DB == nil {
			http.Error(w, "database not available", http.StatusServiceUnavailable)
			return
		}
		txs, err := s.DB.RecentTransactions(limit)
		if err != nil {
			logs.Error("transaction archive query failed", zap.Error(err))
			http.Error(w, "query failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, txs)
		return
	}

	txs := s.Sim.RecentTransactions(limit)
	if city := r.URL.Query().Get("city"); city != "" {
		id, err := strconv.Atoi(city)
		if err != nil {
			http.Error(w, "invalid city", http.StatusBadRequest)
			return
		}
		filtered := txs[:0]
		for _, tx := range txs {
			if tx.CityID == id {
				filtered = append(filtered, tx)
			}
		}
		txs = filtered
	}
	if txs == nil {
		txs = []trade.TradeTransaction{}
	}
	writeJSON(w, txs)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50, 500)
	events := s.Sim.RecentEvents(limit)

	// Optional category filter.
	if cat := r.URL.Query().Get("category"); cat != "" {
		filtered := make([]engine.Event, 0, len(events))
		for _, e := range events {
			if e.Category == cat {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	if events == nil {
		events = []engine.Event{}
	}
	writeJSON(w, events)
}

func (s *Server) handleActiveEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.ActiveEvents())
}

func (s *Server) handleModifiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Modifiers())
}
