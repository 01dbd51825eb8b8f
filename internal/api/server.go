// Package api provides the HTTP API for observing and steering the trade world.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/talgya/tradewinds/internal/engine"
	"github.com/talgya/tradewinds/internal/logs"
	"github.com/talgya/tradewinds/internal/persistence"
	"github.com/talgya/tradewinds/internal/trade"
)

// Server serves the world state over HTTP.
type Server struct {
	Sim        *engine.Simulation
	Eng        *engine.Engine
	DB         *persistence.DB // Optional; snapshot and archive endpoints need it
	Addr       string
	AdminToken string   // Bearer token for POST endpoints. Empty = POST disabled.
	RateLimit  int      // Requests per minute per IP, 0 = unlimited
	Origins    []string // Extra CORS origins beyond the local dev servers

	hub *Hub
}

var devOrigins = []string{
	"http://localhost:5173",
	"http://localhost:4173",
	"http://localhost:3000",
}

// Hub returns the stream hub, creating it on first use.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub()
	}
	return s.hub
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: append(append([]string{}, devOrigins...), s.Origins...),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if s.RateLimit > 0 {
				r.Use(NewRateLimiter(s.RateLimit, time.Minute).Middleware)
			}
			r.Get("/status", s.handleStatus)
			r.Get("/goods", s.handleGoods)
			r.Get("/map", s.handleMap)
			r.Get("/cities", s.handleCities)
			r.Get("/cities/{id}", s.handleCity)
			r.Get("/cities/{id}/routes", s.handleRoutes)
			r.Get("/kingdoms", s.handleKingdoms)
			r.Get("/captains", s.handleCaptains)
			r.Get("/transactions", s.handleTransactions)
			r.Get("/events", s.handleEvents)
			r.Get("/events/active", s.handleActiveEvents)
			r.Get("/modifiers", s.handleModifiers)
		})
		r.Get("/stream", s.Hub().ServeWS)

		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Post("/speed", s.handleSpeed)
			r.Post("/trade", s.handleTrade)
			r.Post("/sail", s.handleSail)
			r.Post("/snapshot", s.handleSnapshot)
			r.Post("/intervention", s.handleIntervention)
		})
	})
	return r
}

// attach starts the hub and feeds it every trade and event.
func (s *Server) attach(ctx context.Context) {
	hub := s.Hub()
	go hub.Run(ctx)
	s.Sim.SetOnTransaction(func(tx trade.TradeTransaction) { hub.Publish("transaction", tx) })
	s.Sim.SetOnEvent(func(e engine.Event) { hub.Publish("event", e) })
}

// Start wires the live stream into the simulation and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	s.attach(ctx)

	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()

	logs.Info("HTTP API starting", zap.String("addr", s.Addr), zap.Bool("admin_auth", s.AdminToken != ""), zap.Int("rate_limit", s.RateLimit))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminToken
}

// adminOnly requires bearer token auth.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AdminToken == "" {
			http.Error(w, "admin endpoints disabled (no api.admin_token set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

func queryLimit(r *http.Request, def, maxLimit int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= maxLimit {
			return n
		}
	}
	return def
}

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil
}
