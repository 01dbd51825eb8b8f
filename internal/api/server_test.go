package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tradewinds/internal/economy"
	"github.com/talgya/tradewinds/internal/engine"
	"github.com/talgya/tradewinds/internal/entropy"
	"github.com/talgya/tradewinds/internal/persistence"
	"github.com/talgya/tradewinds/internal/trade"
	"github.com/talgya/tradewinds/internal/world"
)

const token = "s3cret"

func newServer(t *testing.T) *Server {
	t.Helper()
	cat := economy.DefaultCatalog()
	cfg := engine.GenesisConfig{World: world.SmallTestConfig(), PlayerName: "Player", PlayerGold: 50000}
	m, st := engine.Genesis(cat, cfg, entropy.NewSeeded(2))
	sim := engine.New(cat, m, st, engine.Options{Seed: 2, Trade: trade.DefaultConfig()})
	return &Server{Sim: sim, Eng: engine.NewEngine(0), AdminToken: token}
}

func do(t *testing.T, h http.Handler, method, path, body string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func playerLocation(t *testing.T, s *Server) int {
	t.Helper()
	for _, c := range s.Sim.Captains() {
		if c.Manual {
			return c.Location
		}
	}
	t.Fatal("no manual captain")
	return 0
}

func TestReadEndpoints(t *testing.T) {
	s := newServer(t)
	h := s.Router()

	for _, path := range []string{
		"/api/v1/status", "/api/v1/goods", "/api/v1/map", "/api/v1/cities",
		"/api/v1/cities/1", "/api/v1/cities/1/routes", "/api/v1/kingdoms",
		"/api/v1/captains", "/api/v1/transactions", "/api/v1/events",
		"/api/v1/events/active", "/api/v1/modifiers",
	} {
		rec := do(t, h, http.MethodGet, path, "", false)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"), path)
	}

	var goods []map[string]any
	require.NoError(t, json.Unmarshal(do(t, h, http.MethodGet, "/api/v1/goods", "", false).Body.Bytes(), &goods))
	assert.Len(t, goods, s.Sim.Catalog().Len())

	var cities []map[string]any
	require.NoError(t, json.Unmarshal(do(t, h, http.MethodGet, "/api/v1/cities", "", false).Body.Bytes(), &cities))
	assert.Len(t, cities, len(s.Sim.Cities()))

	var status struct {
		World  engine.Status `json:"world"`
		Stream struct {
			Clients int    `json:"clients"`
			Dropped uint64 `json:"dropped"`
		} `json:"stream"`
	}
	require.NoError(t, json.Unmarshal(do(t, h, http.MethodGet, "/api/v1/status", "", false).Body.Bytes(), &status))
	assert.Equal(t, len(s.Sim.Cities()), status.World.Cities)
	assert.Equal(t, "Spring", status.World.Season)
	assert.Zero(t, status.Stream.Clients)
	assert.Zero(t, status.Stream.Dropped)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/cities/999", "", false).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/cities/abc", "", false).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/cities/999/routes", "", false).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/api/v1/transactions?source=archive", "", false).Code)
}

func TestAdminRequiresToken(t *testing.T) {
	s := newServer(t)
	h := s.Router()

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/api/v1/speed", `{"speed":2}`, false).Code)

	s.AdminToken = ""
	h = s.Router()
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodPost, "/api/v1/speed", `{"speed":2}`, true).Code)
}

func TestSpeed(t *testing.T) {
	s := newServer(t)
	h := s.Router()

	rec := do(t, h, http.MethodPost, "/api/v1/speed", `{"speed":5}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5.0, s.Eng.Speed())

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/speed", `{"speed":2000}`, true).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/speed", `nope`, true).Code)
	assert.Equal(t, 5.0, s.Eng.Speed())
}

func TestManualTradeAndSail(t *testing.T) {
	s := newServer(t)
	h := s.Router()
	home := playerLocation(t, s)

	rec := do(t, h, http.MethodPost, "/api/v1/intervention",
		`{"type":"provision","city_id":`+strconv.Itoa(home)+`,"good_id":1,"quantity":20}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/v1/trade",
		`{"captain":"Player","city_id":`+strconv.Itoa(home)+`,"good_id":1,"quantity":2,"action":"buy"}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tx trade.TradeTransaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
	assert.Equal(t, 2, tx.Quantity)
	assert.True(t, tx.IsBuy)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/v1/trade",
		`{"captain":"Ghost","city_id":1,"good_id":1,"quantity":1,"action":"sell"}`, true).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/trade",
		`{"captain":"Player","city_id":1,"good_id":1,"quantity":1,"action":"steal"}`, true).Code)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/sail",
		`{"captain":"Player","to":`+strconv.Itoa(home)+`}`, true).Code)

	dest := 1
	if home == 1 {
		dest = 2
	}
	rec = do(t, h, http.MethodPost, "/api/v1/sail", `{"captain":"Player","to":`+strconv.Itoa(dest)+`}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cpt engine.Captain
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cpt))
	assert.Equal(t, dest, cpt.Destination)

	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/v1/trade",
		`{"captain":"Player","city_id":`+strconv.Itoa(home)+`,"good_id":1,"quantity":1,"action":"sell"}`, true).Code)

	var txs []trade.TradeTransaction
	require.NoError(t, json.Unmarshal(do(t, h, http.MethodGet, "/api/v1/transactions?city="+strconv.Itoa(home), "", false).Body.Bytes(), &txs))
	require.Len(t, txs, 1)
}

func TestStatusForDomainErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: %q", engine.ErrUnknownCaptain, "Ghost"), http.StatusNotFound},
		{trade.ErrUnknownShip, http.StatusNotFound},
		{trade.ErrUnknownGood, http.StatusNotFound},
		{trade.ErrGoodNotTraded, http.StatusConflict},
		{trade.ErrInsufficientFunds, http.StatusConflict},
		{engine.ErrNotDocked, http.StatusConflict},
		{trade.ErrInvalidQuantity, http.StatusBadRequest},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestTradeInUntradedGoodConflicts(t *testing.T) {
	s := newServer(t)
	h := s.Router()
	home := playerLocation(t, s)

	city, ok := s.Sim.City(home)
	require.True(t, ok)
	var untraded economy.GoodID
	for _, g := range s.Sim.Catalog().All() {
		if _, priced := city.GoodPrice(g.ID); !priced {
			untraded = g.ID
			break
		}
	}
	require.NotZero(t, untraded, "every good is priced in the home port")

	rec := do(t, h, http.MethodPost, "/api/v1/trade",
		`{"captain":"Player","city_id":`+strconv.Itoa(home)+`,"good_id":`+strconv.Itoa(untraded)+`,"quantity":1,"action":"buy"}`, true)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestInterventions(t *testing.T) {
	s := newServer(t)
	h := s.Router()

	rec := do(t, h, http.MethodPost, "/api/v1/intervention", `{"type":"event","event":"storm","city_id":1}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, s.Sim.ActiveEvents(), 1)

	rec = do(t, h, http.MethodPost, "/api/v1/intervention", `{"type":"treasury","kingdom_id":1,"amount":100}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/v1/intervention", `{"type":"event","event":"storm","city_id":999}`, true).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/intervention", `{"type":"event","event":"comet","city_id":1}`, true).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/intervention", `{"type":"miracle"}`, true).Code)

	var events []engine.Event
	require.NoError(t, json.Unmarshal(do(t, h, http.MethodGet, "/api/v1/events?category=economy", "", false).Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Description, "treasury")
}

func TestSnapshot(t *testing.T) {
	s := newServer(t)
	h := s.Router()
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodPost, "/api/v1/snapshot", "", true).Code)

	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	defer db.Close()
	s.DB = db

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/snapshot", "", true).Code)
	assert.True(t, db.HasWorldState())
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/transactions?source=archive", "", false).Code)
}

func TestRateLimitedReads(t *testing.T) {
	s := newServer(t)
	s.RateLimit = 2
	h := s.Router()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/status", "", false).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/status", "", false).Code)
	rec := do(t, h, http.MethodGet, "/api/v1/status", "", false)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Admin endpoints are not metered.
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/speed", `{"speed":1}`, true).Code)
}

func TestStreamDeliversEvents(t *testing.T) {
	s := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.attach(ctx)

	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.Hub().Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = s.Sim.GrantTreasury(1, 10)
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string       `json:"type"`
		Data engine.Event `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "event", msg.Type)
	assert.Equal(t, 1, msg.Data.KingdomID)
}
