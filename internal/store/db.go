// Package store persists signal snapshots, raw market data, trades, and
// cross-market records to SQLite, and serves them back out to the signal
// context builder, the settlement sweep, and the offline validation pass.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite connection pool shared by every repository method in
// this package.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and runs migrations.
// WAL mode lets the signal context builder's read queries proceed
// concurrently with the data service's writes.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return s, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	version := 0
	s.db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := s.db.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS signal_snapshots (
				id             INTEGER PRIMARY KEY AUTOINCREMENT,
				timestamp      TEXT NOT NULL,
				signal_name    TEXT NOT NULL,
				symbol         TEXT NOT NULL,
				exchange       TEXT NOT NULL,
				direction      TEXT NOT NULL,
				strength       REAL NOT NULL,
				confidence     REAL NOT NULL,
				metadata_json  TEXT NOT NULL DEFAULT '{}',
				forward_return REAL
			);
			CREATE INDEX IF NOT EXISTS idx_signal_snapshots_name_ts ON signal_snapshots(signal_name, timestamp);
			CREATE INDEX IF NOT EXISTS idx_signal_snapshots_symbol_ts ON signal_snapshots(symbol, timestamp);

			CREATE TABLE IF NOT EXISTS paper_trades (
				id               TEXT PRIMARY KEY,
				session_id       TEXT NOT NULL,
				timestamp        TEXT NOT NULL,
				condition_id     TEXT NOT NULL,
				question         TEXT NOT NULL DEFAULT '',
				side             TEXT NOT NULL,
				shares           TEXT NOT NULL,
				entry_price      TEXT NOT NULL,
				stake            TEXT NOT NULL,
				estimated_prob   REAL NOT NULL DEFAULT 0,
				expected_value   TEXT NOT NULL DEFAULT '0',
				kelly_fraction   REAL NOT NULL DEFAULT 0,
				signal_strength  REAL NOT NULL DEFAULT 0,
				signal_snapshot  TEXT NOT NULL DEFAULT '',
				status           TEXT NOT NULL,
				outcome          TEXT NOT NULL DEFAULT '',
				pnl              TEXT NOT NULL DEFAULT '0',
				fees             TEXT NOT NULL DEFAULT '0',
				window_start     TEXT NOT NULL,
				window_end       TEXT NOT NULL,
				start_price      TEXT NOT NULL DEFAULT '0',
				end_price        TEXT NOT NULL DEFAULT '0',
				settled_at       TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_paper_trades_status_end ON paper_trades(status, window_end);
			CREATE INDEX IF NOT EXISTS idx_paper_trades_session ON paper_trades(session_id, timestamp);

			CREATE TABLE IF NOT EXISTS live_trades (
				id               TEXT PRIMARY KEY,
				session_id       TEXT NOT NULL,
				timestamp        TEXT NOT NULL,
				condition_id     TEXT NOT NULL,
				question         TEXT NOT NULL DEFAULT '',
				side             TEXT NOT NULL,
				shares           TEXT NOT NULL,
				entry_price      TEXT NOT NULL,
				stake            TEXT NOT NULL,
				estimated_prob   REAL NOT NULL DEFAULT 0,
				expected_value   TEXT NOT NULL DEFAULT '0',
				kelly_fraction   REAL NOT NULL DEFAULT 0,
				signal_strength  REAL NOT NULL DEFAULT 0,
				signal_snapshot  TEXT NOT NULL DEFAULT '',
				status           TEXT NOT NULL,
				outcome          TEXT NOT NULL DEFAULT '',
				pnl              TEXT NOT NULL DEFAULT '0',
				fees             TEXT NOT NULL DEFAULT '0',
				window_start     TEXT NOT NULL,
				window_end       TEXT NOT NULL,
				start_price      TEXT NOT NULL DEFAULT '0',
				end_price        TEXT NOT NULL DEFAULT '0',
				settled_at       TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_live_trades_status_end ON live_trades(status, window_end);
			CREATE INDEX IF NOT EXISTS idx_live_trades_session ON live_trades(session_id, timestamp);

			CREATE TABLE IF NOT EXISTS cross_market_opportunities (
				id           TEXT PRIMARY KEY,
				session_id   TEXT NOT NULL,
				timestamp    TEXT NOT NULL,
				coin1        TEXT NOT NULL,
				coin2        TEXT NOT NULL,
				combination  TEXT NOT NULL,
				total_cost   TEXT NOT NULL,
				status       TEXT NOT NULL,
				trade_result TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX IF NOT EXISTS idx_cross_market_session ON cross_market_opportunities(session_id, timestamp);

			CREATE TABLE IF NOT EXISTS ohlcv (
				symbol    TEXT NOT NULL,
				exchange  TEXT NOT NULL,
				timestamp TEXT NOT NULL,
				open      REAL NOT NULL,
				high      REAL NOT NULL,
				low       REAL NOT NULL,
				close     REAL NOT NULL,
				volume    REAL NOT NULL,
				PRIMARY KEY (symbol, exchange, timestamp)
			);

			CREATE TABLE IF NOT EXISTS orderbook_snapshots (
				symbol    TEXT NOT NULL,
				exchange  TEXT NOT NULL,
				timestamp TEXT NOT NULL,
				bids_json TEXT NOT NULL,
				asks_json TEXT NOT NULL,
				imbalance REAL NOT NULL DEFAULT 0,
				PRIMARY KEY (symbol, exchange, timestamp)
			);
			CREATE INDEX IF NOT EXISTS idx_orderbook_symbol_ts ON orderbook_snapshots(symbol, exchange, timestamp);

			CREATE TABLE IF NOT EXISTS funding_rates (
				symbol     TEXT NOT NULL,
				exchange   TEXT NOT NULL,
				timestamp  TEXT NOT NULL,
				rate       REAL NOT NULL,
				z_score    REAL NOT NULL DEFAULT 0,
				percentile REAL NOT NULL DEFAULT 0,
				PRIMARY KEY (symbol, exchange, timestamp)
			);
			CREATE INDEX IF NOT EXISTS idx_funding_symbol_ts ON funding_rates(symbol, exchange, timestamp);

			CREATE TABLE IF NOT EXISTS liquidation_events (
				symbol    TEXT NOT NULL,
				exchange  TEXT NOT NULL,
				timestamp TEXT NOT NULL,
				side      TEXT NOT NULL,
				usd_value REAL NOT NULL,
				PRIMARY KEY (symbol, exchange, timestamp, side, usd_value)
			);
			CREATE INDEX IF NOT EXISTS idx_liquidation_symbol_ts ON liquidation_events(symbol, exchange, timestamp);

			CREATE TABLE IF NOT EXISTS news_events (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				source      TEXT NOT NULL,
				title       TEXT NOT NULL,
				sentiment   REAL NOT NULL DEFAULT 0,
				urgency     REAL NOT NULL DEFAULT 0,
				currencies  TEXT NOT NULL DEFAULT '[]',
				timestamp   TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_news_timestamp ON news_events(timestamp);

			CREATE TABLE IF NOT EXISTS cvd_aggregates (
				symbol    TEXT NOT NULL,
				exchange  TEXT NOT NULL,
				timestamp TEXT NOT NULL,
				cvd       REAL NOT NULL,
				PRIMARY KEY (symbol, exchange, timestamp)
			);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}

	return nil
}
