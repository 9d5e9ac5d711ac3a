package db

import (
	"time"
)

// Alert metrics a watchlist item can track.
const (
	MetricProfit        = "profit"
	MetricCraftProfit   = "craft_profit"
	MetricProfitPerCoin = "profit_per_coin"
)

// WatchlistItem is a bazaar item the user wants alerts for.
type WatchlistItem struct {
	ItemID         string  `json:"item_id"`
	ItemName       string  `json:"item_name"`
	AddedAt        string  `json:"added_at"`
	AlertEnabled   bool    `json:"alert_enabled"`
	AlertMetric    string  `json:"alert_metric"`
	AlertThreshold float64 `json:"alert_threshold"`
}

// ValidMetric reports whether m is a known alert metric.
func ValidMetric(m string) bool {
	switch m {
	case MetricProfit, MetricCraftProfit, MetricProfitPerCoin:
		return true
	}
	return false
}

func normalizeWatch(item *WatchlistItem) {
	if item.AlertMetric == "" {
		item.AlertMetric = MetricProfit
	}
	if item.AlertThreshold < 0 {
		item.AlertThreshold = 0
	}
	if item.ItemName == "" {
		item.ItemName = item.ItemID
	}
}

// GetWatchlist returns all watchlist items, newest first.
func (d *DB) GetWatchlist() []WatchlistItem {
	rows, err := d.sql.Query(`
		SELECT item_id, item_name, added_at, alert_enabled, alert_metric, alert_threshold
		  FROM watchlist
		 ORDER BY added_at DESC, item_id
	`)
	if err != nil {
		return []WatchlistItem{}
	}
	defer rows.Close()

	var items []WatchlistItem
	for rows.Next() {
		var item WatchlistItem
		if err := rows.Scan(
			&item.ItemID,
			&item.ItemName,
			&item.AddedAt,
			&item.AlertEnabled,
			&item.AlertMetric,
			&item.AlertThreshold,
		); err != nil {
			continue
		}
		items = append(items, item)
	}
	if items == nil {
		return []WatchlistItem{}
	}
	return items
}

// HasWatchlistItem checks if an item is already in the watchlist.
func (d *DB) HasWatchlistItem(itemID string) bool {
	var count int
	d.sql.QueryRow("SELECT COUNT(*) FROM watchlist WHERE item_id = ?", itemID).Scan(&count)
	return count > 0
}

// AddWatchlistItem inserts a watchlist item. Returns true if inserted, false if duplicate.
func (d *DB) AddWatchlistItem(item WatchlistItem) bool {
	normalizeWatch(&item)
	if item.AddedAt == "" {
		item.AddedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if item.AlertThreshold > 0 && !item.AlertEnabled {
		item.AlertEnabled = true
	}
	res, err := d.sql.Exec(
		`INSERT OR IGNORE INTO watchlist
		   (item_id, item_name, added_at, alert_enabled, alert_metric, alert_threshold)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		item.ItemID,
		item.ItemName,
		item.AddedAt,
		item.AlertEnabled,
		item.AlertMetric,
		item.AlertThreshold,
	)
	if err != nil {
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

// UpdateWatchlistItem updates alert settings for a watchlist item.
func (d *DB) UpdateWatchlistItem(itemID string, alertEnabled bool, alertMetric string, alertThreshold float64) {
	item := WatchlistItem{ItemID: itemID, AlertMetric: alertMetric, AlertThreshold: alertThreshold}
	normalizeWatch(&item)
	d.sql.Exec(
		`UPDATE watchlist
		    SET alert_enabled = ?, alert_metric = ?, alert_threshold = ?
		  WHERE item_id = ?`,
		alertEnabled,
		item.AlertMetric,
		item.AlertThreshold,
		itemID,
	)
}

// DeleteWatchlistItem removes a watchlist item and its alert history.
func (d *DB) DeleteWatchlistItem(itemID string) {
	d.sql.Exec("DELETE FROM watchlist WHERE item_id = ?", itemID)
	d.DeleteAlertHistory(itemID)
}
