package db

import (
	"time"
)

// PricePoint is one item's quote as seen by one stored bazaar scan.
type PricePoint struct {
	ScanID      int64   `json:"scan_id"`
	Timestamp   string  `json:"timestamp"`
	BuyPrice    float64 `json:"buy_price"`
	SellPrice   float64 `json:"sell_price"`
	Profit      float64 `json:"profit"`
	CraftProfit float64 `json:"craft_profit"`
	WeeklyBuy   int64   `json:"buy_moving_week"`
}

// maxHistoryDays bounds how far back GetItemHistory looks.
const maxHistoryDays = 90

// GetItemHistory returns an item's quotes across stored scans from the last
// days days (capped at 90), oldest first.
func (d *DB) GetItemHistory(itemID string, days int) []PricePoint {
	if days <= 0 || days > maxHistoryDays {
		days = maxHistoryDays
	}
	cutoff := time.Now().AddDate(0, 0, -days).Format(time.RFC3339)

	rows, err := d.sql.Query(`
		SELECT h.id, h.timestamp, p.buy_price, p.sell_price, p.profit, p.craft_profit, p.buy_moving_week
		  FROM profit_results p
		  JOIN scan_history h ON h.id = p.scan_id
		 WHERE p.item_id = ? AND h.timestamp >= ?
		 ORDER BY h.timestamp, h.id
	`, itemID, cutoff)
	if err != nil {
		return []PricePoint{}
	}
	defer rows.Close()

	points := []PricePoint{}
	for rows.Next() {
		var p PricePoint
		if err := rows.Scan(&p.ScanID, &p.Timestamp, &p.BuyPrice, &p.SellPrice, &p.Profit, &p.CraftProfit, &p.WeeklyBuy); err != nil {
			continue
		}
		points = append(points, p)
	}
	return points
}
