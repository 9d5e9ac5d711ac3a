package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds application settings (in-memory representation).
type Config struct {
	BazaarURL   string   `toml:"bazaar_url" json:"bazaar_url"`
	AuctionsURL string   `toml:"auctions_url" json:"auctions_url"`
	HTTPTimeout Duration `toml:"http_timeout" json:"http_timeout"`
	SnapshotTTL Duration `toml:"snapshot_ttl" json:"snapshot_ttl"`

	CatalogPath string `toml:"catalog_path" json:"catalog_path"`
	DBPath      string `toml:"db_path" json:"db_path"`
	ExportDir   string `toml:"export_dir" json:"export_dir"`
	WikiBaseURL string `toml:"wiki_base_url" json:"wiki_base_url"`

	Port int `toml:"port" json:"port"`

	// Auction-house scan.
	AuctionWorkers int `toml:"auction_workers" json:"auction_workers"`

	// Craft evaluation thresholds.
	AnomalySpreadPercent float64 `toml:"anomaly_spread_percent" json:"anomaly_spread_percent"`
	AnomalySpreadAbs     float64 `toml:"anomaly_spread_abs" json:"anomaly_spread_abs"`
	MaterialityRatio     float64 `toml:"materiality_ratio" json:"materiality_ratio"`

	TopResults int `toml:"top_results" json:"top_results"`
}

// Duration is a time.Duration that decodes from TOML strings like "15s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		BazaarURL:            "https://api.hypixel.net/v2/skyblock/bazaar",
		AuctionsURL:          "https://api.hypixel.net/v2/skyblock/auctions",
		HTTPTimeout:          Duration{15 * time.Second},
		SnapshotTTL:          Duration{60 * time.Second},
		CatalogPath:          "data/items.json",
		DBPath:               "flipper.db",
		ExportDir:            "data",
		WikiBaseURL:          "https://wiki.hypixel.net/",
		Port:                 13371,
		AuctionWorkers:       8,
		AnomalySpreadPercent: 80,
		AnomalySpreadAbs:     100,
		MaterialityRatio:     0.05,
		TopResults:           15,
	}
}

// Load reads a TOML file at path on top of Default(), then applies .env and
// BAZAAR_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the scanner cannot run with.
func (c *Config) Validate() error {
	if c.BazaarURL == "" {
		return errors.New("config: bazaar_url is required")
	}
	if c.CatalogPath == "" {
		return errors.New("config: catalog_path is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.AuctionWorkers < 1 {
		c.AuctionWorkers = 1
	}
	if c.AnomalySpreadPercent < 0 || c.AnomalySpreadAbs < 0 {
		return errors.New("config: anomaly thresholds must be non-negative")
	}
	if c.MaterialityRatio < 0 || c.MaterialityRatio >= 1 {
		return fmt.Errorf("config: materiality_ratio %v must be in [0,1)", c.MaterialityRatio)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.BazaarURL, "BAZAAR_API_URL")
	setStr(&cfg.AuctionsURL, "BAZAAR_AUCTIONS_URL")
	setDuration(&cfg.HTTPTimeout, "BAZAAR_HTTP_TIMEOUT")
	setDuration(&cfg.SnapshotTTL, "BAZAAR_SNAPSHOT_TTL")
	setStr(&cfg.CatalogPath, "BAZAAR_CATALOG_PATH")
	setStr(&cfg.DBPath, "BAZAAR_DB_PATH")
	setStr(&cfg.ExportDir, "BAZAAR_EXPORT_DIR")
	setStr(&cfg.WikiBaseURL, "BAZAAR_WIKI_BASE_URL")
	setInt(&cfg.Port, "BAZAAR_PORT")
	setInt(&cfg.AuctionWorkers, "BAZAAR_AUCTION_WORKERS")
	setFloat64(&cfg.AnomalySpreadPercent, "BAZAAR_ANOMALY_SPREAD_PERCENT")
	setFloat64(&cfg.AnomalySpreadAbs, "BAZAAR_ANOMALY_SPREAD_ABS")
	setFloat64(&cfg.MaterialityRatio, "BAZAAR_MATERIALITY_RATIO")
	setInt(&cfg.TopResults, "BAZAAR_TOP_RESULTS")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
