// Package persistence provides SQLite-based world state storage.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/talgya/tradewinds/internal/engine"
	"github.com/talgya/tradewinds/internal/logs"
	"github.com/talgya/tradewinds/internal/social"
	"github.com/talgya/tradewinds/internal/trade"
)

// Meta keys.
const (
	MetaLastTick  = "last_tick"
	MetaWorldSeed = "world_seed"
	MetaModifiers = "modifiers"
)

// DB wraps a SQLite connection for world state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cities (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		state_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS kingdoms (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		state_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS captains (
		name TEXT PRIMARY KEY,
		faction TEXT NOT NULL,
		gold INTEGER NOT NULL,
		state_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		good_id INTEGER NOT NULL,
		good_name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price REAL NOT NULL,
		total_price INTEGER NOT NULL,
		city_id INTEGER NOT NULL,
		city_name TEXT NOT NULL,
		trader TEXT NOT NULL,
		is_buy INTEGER NOT NULL,
		game_hour REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		city_id INTEGER NOT NULL DEFAULT 0,
		kingdom_id INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_transactions_hour ON transactions(game_hour);
	CREATE INDEX IF NOT EXISTS idx_transactions_city ON transactions(city_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveCities writes all cities to the database (full replace).
func (db *DB) SaveCities(cities []*social.City) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveCities(tx, cities); err != nil {
		return err
	}
	return tx.Commit()
}

func saveCities(tx *sqlx.Tx, cities []*social.City) error {
	if _, err := tx.Exec("DELETE FROM cities"); err != nil {
		return err
	}
	stmt, err := tx.Preparex("INSERT INTO cities (id, name, state_json) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range cities {
		data, err := social.EncodeCity(c)
		if err != nil {
			return fmt.Errorf("encode city %d: %w", c.ID, err)
		}
		if _, err := stmt.Exec(c.ID, c.Name, string(data)); err != nil {
			return fmt.Errorf("insert city %d: %w", c.ID, err)
		}
	}
	return nil
}

func saveKingdoms(tx *sqlx.Tx, kingdoms []*social.Kingdom) error {
	if _, err := tx.Exec("DELETE FROM kingdoms"); err != nil {
		return err
	}
	for _, k := range kingdoms {
		data, err := json.Marshal(k)
		if err != nil {
			return fmt.Errorf("encode kingdom %d: %w", k.ID, err)
		}
		if _, err := tx.Exec("INSERT INTO kingdoms (id, name, state_json) VALUES (?, ?, ?)", k.ID, k.Name, string(data)); err != nil {
			return fmt.Errorf("insert kingdom %d: %w", k.ID, err)
		}
	}
	return nil
}

func saveCaptains(tx *sqlx.Tx, captains []*engine.Captain) error {
	if _, err := tx.Exec("DELETE FROM captains"); err != nil {
		return err
	}
	for _, c := range captains {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode captain %q: %w", c.Player.Name, err)
		}
		if _, err := tx.Exec("INSERT INTO captains (name, faction, gold, state_json) VALUES (?, ?, ?, ?)",
			c.Player.Name, c.Player.Faction, c.Player.Gold, string(data)); err != nil {
			return fmt.Errorf("insert captain %q: %w", c.Player.Name, err)
		}
	}
	return nil
}

// txRow is the transactions table layout.
type txRow struct {
	ID         string  `db:"id"`
	GoodID     int     `db:"good_id"`
	GoodName   string  `db:"good_name"`
	Quantity   int     `db:"quantity"`
	UnitPrice  float64 `db:"unit_price"`
	TotalPrice int     `db:"total_price"`
	CityID     int     `db:"city_id"`
	CityName   string  `db:"city_name"`
	Trader     string  `db:"trader"`
	IsBuy      bool    `db:"is_buy"`
	GameHour   float64 `db:"game_hour"`
}

func (r txRow) transaction() trade.TradeTransaction {
	return trade.TradeTransaction{
		ID:         r.ID,
		GoodID:     r.GoodID,
		GoodName:   r.GoodName,
		Quantity:   r.Quantity,
		UnitPrice:  r.UnitPrice,
		TotalPrice: r.TotalPrice,
		CityID:     r.CityID,
		CityName:   r.CityName,
		Trader:     r.Trader,
		IsBuy:      r.IsBuy,
		Timestamp:  r.GameHour,
	}
}

// SaveTransactions appends trades; ones already stored are skipped.
func (db *DB) SaveTransactions(txs []trade.TradeTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range txs {
		row := txRow{
			ID: t.ID, GoodID: t.GoodID, GoodName: t.GoodName, Quantity: t.Quantity,
			UnitPrice: t.UnitPrice, TotalPrice: t.TotalPrice, CityID: t.CityID,
			CityName: t.CityName, Trader: t.Trader, IsBuy: t.IsBuy, GameHour: t.Timestamp,
		}
		_, err := tx.NamedExec(`INSERT OR IGNORE INTO transactions
			(id, good_id, good_name, quantity, unit_price, total_price, city_id, city_name, trader, is_buy, game_hour)
			VALUES (:id, :good_id, :good_name, :quantity, :unit_price, :total_price, :city_id, :city_name, :trader, :is_buy, :game_hour)`,
			row)
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (tick, description, category, city_id, kingdom_id) VALUES (?, ?, ?, ?, ?)",
			e.Tick, e.Description, e.Category, e.CityID, e.KingdomID,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// SaveState writes a full snapshot in one transaction.
func (db *DB) SaveState(st engine.State) error {
	mods, err := json.Marshal(st.Modifiers)
	if err != nil {
		return fmt.Errorf("encode modifiers: %w", err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveCities(tx, st.Cities); err != nil {
		return fmt.Errorf("save cities: %w", err)
	}
	if err := saveKingdoms(tx, st.Kingdoms); err != nil {
		return fmt.Errorf("save kingdoms: %w", err)
	}
	if err := saveCaptains(tx, st.Captains); err != nil {
		return fmt.Errorf("save captains: %w", err)
	}
	meta := map[string]string{
		MetaLastTick:  strconv.FormatUint(st.Tick, 10),
		MetaWorldSeed: strconv.FormatInt(st.WorldSeed, 10),
		MetaModifiers: string(mods),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// SaveWorldState performs a full save of all world state.
func (db *DB) SaveWorldState(sim *engine.Simulation) error {
	st, journal := sim.Snapshot()
	logs.Info("saving world state",
		zap.Int("cities", len(st.Cities)),
		zap.Int("captains", len(st.Captains)),
		zap.Int("trades", len(journal.Transactions)),
		zap.Uint64("tick", st.Tick),
	)

	if err := db.SaveState(st); err != nil {
		return err
	}
	if err := db.SaveEvents(journal.Events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveTransactions(journal.Transactions); err != nil {
		return fmt.Errorf("save transactions: %w", err)
	}

	logs.Info("world state saved", zap.Uint64("tick", st.Tick))
	return nil
}

// HasWorldState reports whether a previous run left cities behind.
func (db *DB) HasWorldState() bool {
	var n int
	if err := db.conn.Get(&n, "SELECT COUNT(*) FROM cities"); err != nil {
		return false
	}
	return n > 0
}

// LoadCities restores every city. Fields the decoder had to repair are logged,
// not fatal.
func (db *DB) LoadCities() ([]*social.City, error) {
	var rows []struct {
		ID    int    `db:"id"`
		State string `db:"state_json"`
	}
	if err := db.conn.Select(&rows, "SELECT id, state_json FROM cities ORDER BY id"); err != nil {
		return nil, err
	}

	cities := make([]*social.City, 0, len(rows))
	for _, r := range rows {
		c, diags, err := social.DecodeCity([]byte(r.State))
		if err != nil {
			return nil, fmt.Errorf("decode city %d: %w", r.ID, err)
		}
		if len(diags) > 0 {
			logs.Warn("city restored with issues", zap.Int("city", r.ID), zap.String("issues", diags.Summary()))
		}
		cities = append(cities, c)
	}
	return cities, nil
}

// LoadKingdoms restores every kingdom.
func (db *DB) LoadKingdoms() ([]*social.Kingdom, error) {
	var rows []string
	if err := db.conn.Select(&rows, "SELECT state_json FROM kingdoms ORDER BY id"); err != nil {
		return nil, err
	}
	kingdoms := make([]*social.Kingdom, 0, len(rows))
	for _, r := range rows {
		k := social.NewKingdom(0, "", "")
		if err := json.Unmarshal([]byte(r), k); err != nil {
			return nil, fmt.Errorf("decode kingdom: %w", err)
		}
		kingdoms = append(kingdoms, k)
	}
	return kingdoms, nil
}

// LoadCaptains restores every merchant captain with their ship and purse.
func (db *DB) LoadCaptains() ([]*engine.Captain, error) {
	var rows []string
	if err := db.conn.Select(&rows, "SELECT state_json FROM captains ORDER BY name"); err != nil {
		return nil, err
	}
	captains := make([]*engine.Captain, 0, len(rows))
	for _, r := range rows {
		var c engine.Captain
		if err := json.Unmarshal([]byte(r), &c); err != nil {
			return nil, fmt.Errorf("decode captain: %w", err)
		}
		if c.Player == nil {
			return nil, errors.New("decode captain: missing player")
		}
		captains = append(captains, &c)
	}
	return captains, nil
}

// LoadState restores a full snapshot written by SaveState.
func (db *DB) LoadState() (engine.State, error) {
	var st engine.State
	var err error
	if st.Cities, err = db.LoadCities(); err != nil {
		return st, fmt.Errorf("load cities: %w", err)
	}
	if st.Kingdoms, err = db.LoadKingdoms(); err != nil {
		return st, fmt.Errorf("load kingdoms: %w", err)
	}
	if st.Captains, err = db.LoadCaptains(); err != nil {
		return st, fmt.Errorf("load captains: %w", err)
	}

	if v, err := db.GetMeta(MetaLastTick); err == nil {
		if st.Tick, err = strconv.ParseUint(v, 10, 64); err != nil {
			return st, fmt.Errorf("meta %s: %w", MetaLastTick, err)
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return st, err
	}
	if v, err := db.GetMeta(MetaWorldSeed); err == nil {
		if st.WorldSeed, err = strconv.ParseInt(v, 10, 64); err != nil {
			return st, fmt.Errorf("meta %s: %w", MetaWorldSeed, err)
		}
	}
	if v, err := db.GetMeta(MetaModifiers); err == nil {
		if err := json.Unmarshal([]byte(v), &st.Modifiers); err != nil {
			logs.Warn("dropping unreadable price modifiers", zap.Error(err))
			st.Modifiers = nil
		}
	}
	return st, nil
}

// RecentTransactions returns the most recent N stored trades, newest first.
func (db *DB) RecentTransactions(limit int) ([]trade.TradeTransaction, error) {
	var rows []txRow
	err := db.conn.Select(&rows, "SELECT * FROM transactions ORDER BY game_hour DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	out := make([]trade.TradeTransaction, len(rows))
	for i, r := range rows {
		out[i] = r.transaction()
	}
	return out, nil
}

// RecentEvents returns the most recent N events.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category, city_id, kingdom_id FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}
