package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"bazaar-flipper/internal/logger"
	_ "modernc.org/sqlite"
)

// memoryPath opens a private in-memory database.
const memoryPath = ":memory:"

// DB wraps a SQLite database connection.
type DB struct {
	sql *sql.DB
}

func resolvePath(path string) string {
	if path == "" {
		path = "flipper.db"
	}
	if path == memoryPath || filepath.IsAbs(path) {
		return path
	}
	// Prefer working directory so the DB is stable across go run / go build.
	// Fall back to executable directory for deployed builds.
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, path)
	}
	exe, _ := os.Executable()
	return filepath.Join(filepath.Dir(exe), path)
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*DB, error) {
	path = resolvePath(path)
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == memoryPath {
		// Each pooled connection would get its own empty database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path))
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	// Missing table on a fresh file leaves version at 0.
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS scan_history (
				id                 INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id             TEXT NOT NULL DEFAULT '',
				timestamp          TEXT NOT NULL,
				kind               TEXT NOT NULL,
				count              INTEGER NOT NULL,
				craftable          INTEGER NOT NULL DEFAULT 0,
				top_profit         REAL NOT NULL DEFAULT 0,
				top_item           TEXT NOT NULL DEFAULT '',
				total_craft_profit REAL NOT NULL DEFAULT 0,
				duration_ms        INTEGER NOT NULL DEFAULT 0,
				snapshot_time      TEXT NOT NULL DEFAULT '',
				params_json        TEXT DEFAULT '{}'
			);
			CREATE INDEX IF NOT EXISTS idx_scan_history_ts ON scan_history(timestamp);
			CREATE INDEX IF NOT EXISTS idx_scan_history_kind ON scan_history(kind);

			CREATE TABLE IF NOT EXISTS profit_results (
				id              INTEGER PRIMARY KEY AUTOINCREMENT,
				scan_id         INTEGER NOT NULL REFERENCES scan_history(id),
				item_id         TEXT NOT NULL,
				name            TEXT,
				wiki            TEXT,
				buy_price       REAL,
				sell_price      REAL,
				profit          REAL,
				sell_volume     INTEGER,
				buy_volume      INTEGER,
				buy_moving_week INTEGER,
				craftable       INTEGER,
				craft_profit    REAL,
				craft_cost      REAL,
				anomalous       INTEGER,
				materials_json  TEXT DEFAULT '{}'
			);
			CREATE INDEX IF NOT EXISTS idx_profit_scan ON profit_results(scan_id);
			CREATE INDEX IF NOT EXISTS idx_profit_item ON profit_results(item_id);

			CREATE TABLE IF NOT EXISTS auction_results (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				scan_id    INTEGER NOT NULL REFERENCES scan_history(id),
				item_id    TEXT NOT NULL,
				item_name  TEXT,
				price      REAL,
				auction_id TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_auction_scan ON auction_results(scan_id);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1")
	}

	if version < 2 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS watchlist (
				item_id         TEXT PRIMARY KEY,
				item_name       TEXT NOT NULL,
				added_at        TEXT NOT NULL,
				alert_enabled   INTEGER NOT NULL DEFAULT 0,
				alert_metric    TEXT NOT NULL DEFAULT 'profit',
				alert_threshold REAL NOT NULL DEFAULT 0
			);

			CREATE TABLE IF NOT EXISTS alert_history (
				id              INTEGER PRIMARY KEY AUTOINCREMENT,
				item_id         TEXT NOT NULL,
				item_name       TEXT NOT NULL,
				alert_metric    TEXT NOT NULL,
				alert_threshold REAL NOT NULL,
				current_value   REAL NOT NULL,
				message         TEXT NOT NULL,
				sent_at         TEXT NOT NULL,
				scan_id         INTEGER
			);
			CREATE INDEX IF NOT EXISTS idx_alert_history_item ON alert_history(item_id, alert_metric);

			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`)
		if err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
		logger.Info("DB", "Applied migration v2 (watchlist)")
	}

	return nil
}
