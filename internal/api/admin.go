// Admin control plane: speed, manual captains, snapshots, interventions.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/talgya/tradewinds/internal/economy"
	"github.com/talgya/tradewinds/internal/engine"
	"github.com/talgya/tradewinds/internal/logs"
	"github.com/talgya/tradewinds/internal/social"
	"github.com/talgya/tradewinds/internal/trade"
)

const maxSpeed = 1000

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownCity),
		errors.Is(err, engine.ErrUnknownCaptain),
		errors.Is(err, engine.ErrUnknownKingdom),
		errors.Is(err, engine.ErrUnknownGood),
		errors.Is(err, trade.ErrUnknownGood),
		errors.Is(err, trade.ErrUnknownShip):
		return http.StatusNotFound
	case errors.Is(err, trade.ErrInsufficientFunds),
		errors.Is(err, trade.ErrInsufficientStock),
		errors.Is(err, trade.ErrCargoFull),
		errors.Is(err, trade.ErrInsufficientGoods),
		errors.Is(err, trade.ErrGoodNotTraded),
		errors.Is(err, social.ErrStockCapExceeded),
		errors.Is(err, engine.ErrNotDocked):
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Speed < 0 || req.Speed > maxSpeed {
		http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
		return
	}
	s.Eng.SetSpeed(req.Speed)
	logs.Info("speed changed", zap.Float64("speed", req.Speed))

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Captain  string         `json:"captain"`
		CityID   social.CityID  `json:"city_id"`
		GoodID   economy.GoodID `json:"good_id"`
		Quantity int            `json:"quantity"`
		Action   string         `json:"action"` // "buy" or "sell"
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Action != "buy" && req.Action != "sell" {
		http.Error(w, "action must be buy or sell", http.StatusBadRequest)
		return
	}

	tx, err := s.Sim.Trade(engine.TradeRequest{
		Captain: req.Captain,
		CityID:  req.CityID,
		GoodID:  req.GoodID,
		Qty:     req.Quantity,
		Buy:     req.Action == "buy",
	})
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, tx)
}

func (s *Server) handleSail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Captain string        `json:"captain"`
		To      social.CityID `json:"to"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Sim.Sail(req.Captain, req.To); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	for _, c := range s.Sim.Captains() {
		if c.Player.Name == req.Captain {
			writeJSON(w, c)
			return
		}
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	if err := s.DB.SaveWorldState(s.Sim); err != nil {
		logs.Error("snapshot save failed", zap.Error(err))
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"tick":    s.Sim.CurrentTick(),
		"message": "snapshot saved",
	})
}

func (s *Server) handleIntervention(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type      string           `json:"type"`
		CityID    social.CityID    `json:"city_id"`
		KingdomID social.KingdomID `json:"kingdom_id"`
		GoodID    economy.GoodID   `json:"good_id"`
		Quantity  int              `json:"quantity"`
		Event     string           `json:"event"`
		Amount    int              `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}

	switch req.Type {
	case "provision":
		n, err := s.Sim.ProvisionCity(req.CityID, req.GoodID, req.Quantity)
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		writeJSON(w, map[string]int{"delivered": n})
	case "event":
		ev, err := s.Sim.TriggerEvent(req.Event, req.CityID)
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		writeJSON(w, ev)
	case "treasury":
		total, err := s.Sim.GrantTreasury(req.KingdomID, req.Amount)
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		writeJSON(w, map[string]int{"treasury": total})
	default:
		http.Error(w, "unknown intervention type (use: provision, event, treasury)", http.StatusBadRequest)
	}
}
