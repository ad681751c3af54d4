// Package persistence records simulation runs in SQLite: run metadata,
// per-tick metrics and an end-of-run snapshot of houses and owners.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/housemarket/internal/agents"
	"github.com/talgya/housemarket/internal/config"
	"github.com/talgya/housemarket/internal/engine"
)

// DB wraps a SQLite connection for run recording.
type DB struct {
	conn *sqlx.DB
}

// Run is one recorded simulation run.
type Run struct {
	ID        string `db:"id" json:"id"`
	Seed      int64  `db:"seed" json:"seed"`
	Scenario  string `db:"scenario" json:"scenario"`
	Config    string `db:"config_json" json:"-"`
	StartedAt string `db:"started_at" json:"started_at"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

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
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		scenario TEXT NOT NULL,
		config_json TEXT NOT NULL,
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tick_metrics (
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		houses INTEGER NOT NULL,
		owners INTEGER NOT NULL,
		realtors INTEGER NOT NULL,
		records INTEGER NOT NULL,
		seeking_home INTEGER NOT NULL,
		empty_houses INTEGER NOT NULL,
		negative_equity INTEGER NOT NULL,
		demolished INTEGER NOT NULL,
		moving_up INTEGER NOT NULL,
		moving_down INTEGER NOT NULL,
		median_for_sale REAL NOT NULL,
		median_sold REAL NOT NULL,
		gini_prices REAL NOT NULL,
		gini_incomes REAL NOT NULL,
		repayment_income REAL NOT NULL,
		price_income REAL NOT NULL,
		median_time_on_market REAL NOT NULL,
		transactions INTEGER NOT NULL,
		interest_rate REAL NOT NULL,
		inflation_rate REAL NOT NULL,
		stamp_duty REAL NOT NULL,
		cycles_detected INTEGER NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS houses (
		run_id TEXT NOT NULL REFERENCES runs(id),
		id INTEGER NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		owner_id INTEGER,
		quality REAL NOT NULL,
		for_sale INTEGER NOT NULL,
		sale_price REAL NOT NULL,
		end_of_life INTEGER NOT NULL,
		PRIMARY KEY (run_id, id)
	);

	CREATE TABLE IF NOT EXISTS owners (
		run_id TEXT NOT NULL REFERENCES runs(id),
		id INTEGER NOT NULL,
		house_id INTEGER,
		income REAL NOT NULL,
		capital REAL NOT NULL,
		mortgage REAL NOT NULL,
		repayment REAL NOT NULL,
		homeless INTEGER NOT NULL,
		PRIMARY KEY (run_id, id)
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

const metricColumns = `tick, houses, owners, realtors, records,
	seeking_home, empty_houses, negative_equity, demolished, moving_up, moving_down,
	median_for_sale, median_sold, gini_prices, gini_incomes, repayment_income,
	price_income, median_time_on_market, transactions, interest_rate,
	inflation_rate, stamp_duty, cycles_detected`

// StartRun registers a new run and returns its ID.
func (db *DB) StartRun(cfg *config.Config) (string, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	id := uuid.NewString()
	_, err = db.conn.Exec(
		"INSERT INTO runs (id, seed, scenario, config_json, started_at) VALUES (?, ?, ?, ?, ?)",
		id, cfg.Seed, string(cfg.Scenario), string(cfgJSON), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	if err := db.SaveMeta("last_run", id); err != nil {
		return "", fmt.Errorf("save meta: %w", err)
	}
	slog.Info("run started", "run", id, "seed", cfg.Seed, "scenario", cfg.Scenario)
	return id, nil
}

// GetRun loads a run by ID.
func (db *DB) GetRun(id string) (Run, error) {
	var r Run
	err := db.conn.Get(&r, "SELECT id, seed, scenario, config_json, started_at FROM runs WHERE id = ?", id)
	return r, err
}

// Runs lists recorded runs, newest first.
func (db *DB) Runs() ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs, "SELECT id, seed, scenario, config_json, started_at FROM runs ORDER BY started_at DESC, rowid DESC")
	return runs, err
}

type tickRow struct {
	RunID string `db:"run_id"`
	engine.Metrics
}

// RecordTick stores the metrics of one tick.
func (db *DB) RecordTick(runID string, m engine.Metrics) error {
	_, err := db.conn.NamedExec(`INSERT OR REPLACE INTO tick_metrics (run_id, tick, houses, owners, realtors, records,
		seeking_home, empty_houses, negative_equity, demolished, moving_up, moving_down,
		median_for_sale, median_sold, gini_prices, gini_incomes, repayment_income,
		price_income, median_time_on_market, transactions, interest_rate,
		inflation_rate, stamp_duty, cycles_detected)
		VALUES (:run_id, :tick, :houses, :owners, :realtors, :records,
		:seeking_home, :empty_houses, :negative_equity, :demolished, :moving_up, :moving_down,
		:median_for_sale, :median_sold, :gini_prices, :gini_incomes, :repayment_income,
		:price_income, :median_time_on_market, :transactions, :interest_rate,
		:inflation_rate, :stamp_duty, :cycles_detected)`,
		tickRow{RunID: runID, Metrics: m},
	)
	if err != nil {
		return fmt.Errorf("insert tick %d: %w", m.Tick, err)
	}
	return nil
}

// History returns the last limit ticks of a run in tick order. A limit of
// zero or less returns the whole run.
func (db *DB) History(runID string, limit int) ([]engine.Metrics, error) {
	if limit <= 0 {
		limit = -1
	}
	var rows []engine.Metrics
	err := db.conn.Select(&rows,
		"SELECT "+metricColumns+" FROM tick_metrics WHERE run_id = ? ORDER BY tick DESC LIMIT ?",
		runID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	slices.Reverse(rows)
	return rows, nil
}

// SaveSnapshot writes the houses and owners of sim at the end of a run.
func (db *DB) SaveSnapshot(runID string, sim *engine.Simulation) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var houses, owners int
	var saveErr error
	sim.View(func(s *engine.Simulation) {
		houses = s.Pop.Count(agents.KindHouse)
		owners = s.Pop.Count(agents.KindOwner)
		saveErr = saveHouses(tx, runID, s.Pop.Houses())
		if saveErr == nil {
			saveErr = saveOwners(tx, runID, s.Pop.Owners())
		}
	})
	if saveErr != nil {
		return saveErr
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	slog.Info("snapshot saved", "run", runID, "houses", houses, "owners", owners)
	return nil
}

func saveHouses(tx *sqlx.Tx, runID string, houses []*agents.House) error {
	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO houses
		(run_id, id, x, y, owner_id, quality, for_sale, sale_price, end_of_life)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, h := range houses {
		if _, err := stmt.Exec(runID, h.ID, h.Pos.X, h.Pos.Y, nullID(h.Owner), h.Quality, h.ForSale, h.SalePrice, h.EndOfLife); err != nil {
			return fmt.Errorf("insert house %d: %w", h.ID, err)
		}
	}
	return nil
}

func saveOwners(tx *sqlx.Tx, runID string, owners []*agents.Owner) error {
	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO owners
		(run_id, id, house_id, income, capital, mortgage, repayment, homeless)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range owners {
		if _, err := stmt.Exec(runID, o.ID, nullID(o.House), o.Income, o.Capital, o.Mortgage, o.Repayment, o.Homeless); err != nil {
			return fmt.Errorf("insert owner %d: %w", o.ID, err)
		}
	}
	return nil
}

// nullID maps NoID to SQL NULL.
func nullID(id agents.ID) any {
	if id == agents.NoID {
		return nil
	}
	return int64(id)
}

// HouseRow is a house as stored in a snapshot.
type HouseRow struct {
	ID        int64   `db:"id" json:"id"`
	X         int     `db:"x" json:"x"`
	Y         int     `db:"y" json:"y"`
	OwnerID   *int64  `db:"owner_id" json:"owner_id"`
	Quality   float64 `db:"quality" json:"quality"`
	ForSale   bool    `db:"for_sale" json:"for_sale"`
	SalePrice float64 `db:"sale_price" json:"sale_price"`
	EndOfLife int     `db:"end_of_life" json:"end_of_life"`
}

// SnapshotHouses returns the houses saved for a run.
func (db *DB) SnapshotHouses(runID string) ([]HouseRow, error) {
	var rows []HouseRow
	err := db.conn.Select(&rows,
		"SELECT id, x, y, owner_id, quality, for_sale, sale_price, end_of_life FROM houses WHERE run_id = ? ORDER BY id",
		runID,
	)
	return rows, err
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE key = ?", key)
	return value, err
}
