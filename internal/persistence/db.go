// Package persistence provides SQLite-based storage for finished and
// in-flight simulation runs.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/commodity-market/internal/config"
	"github.com/talgya/commodity-market/internal/engine"
)

// Run statuses stored in the runs table.
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// DB wraps a SQLite connection for run storage.
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
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		seed INTEGER NOT NULL,
		num_days INTEGER NOT NULL,
		status TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		config_json TEXT NOT NULL,
		summary_json TEXT
	);

	CREATE TABLE IF NOT EXISTS wholesale_trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		day INTEGER NOT NULL,
		seller TEXT NOT NULL,
		buyer TEXT NOT NULL,
		price INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		total_value INTEGER NOT NULL,
		status TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS market_sales (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		day INTEGER NOT NULL,
		seller TEXT NOT NULL,
		buyer TEXT NOT NULL,
		price INTEGER NOT NULL,
		quantity INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS unmet_demand (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		day INTEGER NOT NULL,
		shopper_unit_id TEXT NOT NULL,
		willing_to_pay INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agent_ledgers (
		run_id TEXT NOT NULL,
		agent TEXT NOT NULL,
		ledger_json TEXT NOT NULL,
		PRIMARY KEY (run_id, agent)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		day INTEGER NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trades_run ON wholesale_trades(run_id, day);
	CREATE INDEX IF NOT EXISTS idx_sales_run ON market_sales(run_id, day);
	CREATE INDEX IF NOT EXISTS idx_unmet_run ON unmet_demand(run_id, day);
	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, day);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// RunRow is one row of the runs table.
type RunRow struct {
	ID          string  `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Seed        int64   `db:"seed" json:"seed"`
	NumDays     int     `db:"num_days" json:"num_days"`
	Status      string  `db:"status" json:"status"`
	StartedAt   string  `db:"started_at" json:"started_at"`
	FinishedAt  *string `db:"finished_at" json:"finished_at,omitempty"`
	ConfigJSON  string  `db:"config_json" json:"-"`
	SummaryJSON *string `db:"summary_json" json:"-"`
}

// CreateRun registers a new run in the running state.
func (db *DB) CreateRun(id string, cfg config.Simulation) error {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = db.conn.Exec(
		`INSERT INTO runs (id, name, seed, num_days, status, started_at, config_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, cfg.Name, cfg.Seed, cfg.NumDays, StatusRunning,
		time.Now().UTC().Format(time.RFC3339), string(cfgJSON),
	)
	return err
}

// FinishRun marks a run terminal. The summary may be nil on failure.
func (db *DB) FinishRun(id, status string, summary *engine.Summary) error {
	var summaryJSON *string
	if summary != nil {
		raw, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}
		s := string(raw)
		summaryJSON = &s
	}
	_, err := db.conn.Exec(
		"UPDATE runs SET status = ?, finished_at = ?, summary_json = ? WHERE id = ?",
		status, time.Now().UTC().Format(time.RFC3339), summaryJSON, id,
	)
	return err
}

// SaveRunResults writes a finished simulation's logs in one transaction.
func (db *DB) SaveRunResults(id string, sim *engine.Simulation) error {
	slog.Info("saving run results",
		"run", id,
		"trades", len(sim.WholesaleLog),
		"sales", len(sim.MarketLog),
		"unmet", len(sim.UnmetLog),
		"events", len(sim.Events))

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range sim.WholesaleLog {
		_, err := tx.Exec(
			`INSERT INTO wholesale_trades (run_id, day, seller, buyer, price, quantity, total_value, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, t.Day, t.Seller.String(), t.Buyer.String(), t.Price, t.Quantity, t.TotalValue, t.Status,
		)
		if err != nil {
			return fmt.Errorf("insert trade: %w", err)
		}
	}

	stmt, err := tx.Preparex(
		`INSERT INTO market_sales (run_id, day, seller, buyer, price, quantity)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, s := range sim.MarketLog {
		if _, err := stmt.Exec(id, s.Day, s.Seller.String(), s.Buyer, s.Price, s.Quantity); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
	}

	unmetStmt, err := tx.Preparex(
		`INSERT INTO unmet_demand (run_id, day, shopper_unit_id, willing_to_pay)
		 VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer unmetStmt.Close()
	for _, u := range sim.UnmetLog {
		if _, err := unmetStmt.Exec(id, u.Day, u.ShopperUnitID, u.WillingToPay); err != nil {
			return fmt.Errorf("insert unmet demand: %w", err)
		}
	}

	for agentID, led := range sim.Ledgers {
		ledJSON, err := json.Marshal(led)
		if err != nil {
			return fmt.Errorf("marshal ledger %s: %w", agentID, err)
		}
		_, err = tx.Exec(
			`INSERT OR REPLACE INTO agent_ledgers (run_id, agent, ledger_json) VALUES (?, ?, ?)`,
			id, agentID.String(), string(ledJSON),
		)
		if err != nil {
			return fmt.Errorf("insert ledger %s: %w", agentID, err)
		}
	}

	for _, e := range sim.Events {
		_, err := tx.Exec(
			"INSERT INTO events (run_id, day, category, description) VALUES (?, ?, ?, ?)",
			id, e.Day, e.Category, e.Description,
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns the most recently started runs.
func (db *DB) RecentRuns(limit int) ([]RunRow, error) {
	var runs []RunRow
	err := db.conn.Select(&runs,
		"SELECT * FROM runs ORDER BY started_at DESC LIMIT ?", limit)
	return runs, err
}

// GetRun returns one run row by ID.
func (db *DB) GetRun(id string) (*RunRow, error) {
	var run RunRow
	if err := db.conn.Get(&run, "SELECT * FROM runs WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &run, nil
}

// Summary decodes the stored summary of a finished run.
func (r *RunRow) Summary() (*engine.Summary, error) {
	if r.SummaryJSON == nil {
		return nil, nil
	}
	var sum engine.Summary
	if err := json.Unmarshal([]byte(*r.SummaryJSON), &sum); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &sum, nil
}

// Config decodes the stored configuration of a run.
func (r *RunRow) Config() (config.Simulation, error) {
	var cfg config.Simulation
	if err := json.Unmarshal([]byte(r.ConfigJSON), &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// TradesForRun returns all wholesale trades of a run in day order.
func (db *DB) TradesForRun(id string) ([]TradeRow, error) {
	var trades []TradeRow
	err := db.conn.Select(&trades,
		"SELECT day, seller, buyer, price, quantity, total_value, status FROM wholesale_trades WHERE run_id = ? ORDER BY day, id",
		id)
	return trades, err
}

// TradeRow is one stored wholesale trade.
type TradeRow struct {
	Day        int    `db:"day" json:"day"`
	Seller     string `db:"seller" json:"seller"`
	Buyer      string `db:"buyer" json:"buyer"`
	Price      int    `db:"price" json:"price"`
	Quantity   int    `db:"quantity" json:"quantity"`
	TotalValue int    `db:"total_value" json:"total_value"`
	Status     string `db:"status" json:"status"`
}
