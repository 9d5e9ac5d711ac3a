package db

import (
	"encoding/json"
	"fmt"

	"bazaar-flipper/internal/bazaar"
	"bazaar-flipper/internal/engine"
	"bazaar-flipper/internal/logger"
)

// InsertProfitResults bulk-inserts profit records linked to a scan history record.
func (d *DB) InsertProfitResults(scanID int64, results []engine.ProfitRecord) {
	if scanID == 0 || len(results) == 0 {
		return
	}

	tx, err := d.sql.Begin()
	if err != nil {
		logger.Warn("DB", fmt.Sprintf("InsertProfitResults begin tx: %v", err))
		return
	}

	stmt, err := tx.Prepare(`INSERT INTO profit_results (
		scan_id, item_id, name, wiki, buy_price, sell_price, profit,
		sell_volume, buy_volume, buy_moving_week,
		craftable, craft_profit, craft_cost, anomalous, materials_json
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		logger.Warn("DB", fmt.Sprintf("InsertProfitResults prepare: %v", err))
		return
	}
	defer stmt.Close()

	for _, r := range results {
		materials, _ := json.Marshal(r.Craft.Materials)
		stmt.Exec(
			scanID, r.ItemID, r.Name, r.WikiURL, r.BuyPrice, r.SellPrice, r.Profit,
			r.SellVolume, r.BuyVolume, r.WeeklyBuyVolume,
			r.Craft.Craftable, r.Craft.CraftProfit, r.Craft.CraftCost, r.Craft.Anomalous, string(materials),
		)
	}

	if err := tx.Commit(); err != nil {
		logger.Warn("DB", fmt.Sprintf("InsertProfitResults commit: %v", err))
	}
}

// GetProfitResults retrieves profit records for a scan in item-id order.
func (d *DB) GetProfitResults(scanID int64) []engine.ProfitRecord {
	rows, err := d.sql.Query(`
		SELECT item_id, name, wiki, buy_price, sell_price, profit,
			sell_volume, buy_volume, buy_moving_week,
			craftable, craft_profit, craft_cost, anomalous, materials_json
		FROM profit_results WHERE scan_id = ? ORDER BY item_id
	`, scanID)
	if err != nil {
		return []engine.ProfitRecord{}
	}
	defer rows.Close()

	results := []engine.ProfitRecord{}
	for rows.Next() {
		var r engine.ProfitRecord
		var materials string
		if err := rows.Scan(
			&r.ItemID, &r.Name, &r.WikiURL, &r.BuyPrice, &r.SellPrice, &r.Profit,
			&r.SellVolume, &r.BuyVolume, &r.WeeklyBuyVolume,
			&r.Craft.Craftable, &r.Craft.CraftProfit, &r.Craft.CraftCost, &r.Craft.Anomalous, &materials,
		); err != nil {
			continue
		}
		r.Craft.Materials = map[string]int{}
		json.Unmarshal([]byte(materials), &r.Craft.Materials)
		results = append(results, r)
	}
	return results
}

// InsertAuctionResults bulk-inserts lowest-BIN results linked to a scan history record.
func (d *DB) InsertAuctionResults(scanID int64, results []bazaar.LowestAuction) {
	if scanID == 0 || len(results) == 0 {
		return
	}

	tx, err := d.sql.Begin()
	if err != nil {
		logger.Warn("DB", fmt.Sprintf("InsertAuctionResults begin tx: %v", err))
		return
	}

	stmt, err := tx.Prepare(`INSERT INTO auction_results (
		scan_id, item_id, item_name, price, auction_id
	) VALUES (?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		logger.Warn("DB", fmt.Sprintf("InsertAuctionResults prepare: %v", err))
		return
	}
	defer stmt.Close()

	for _, r := range results {
		stmt.Exec(scanID, r.ItemID, r.ItemName, r.Price, r.AuctionID)
	}

	if err := tx.Commit(); err != nil {
		logger.Warn("DB", fmt.Sprintf("InsertAuctionResults commit: %v", err))
	}
}

// GetAuctionResults retrieves lowest-BIN results for a scan in item-id order.
func (d *DB) GetAuctionResults(scanID int64) []bazaar.LowestAuction {
	rows, err := d.sql.Query(`
		SELECT item_id, item_name, price, auction_id
		FROM auction_results WHERE scan_id = ? ORDER BY item_id
	`, scanID)
	if err != nil {
		return []bazaar.LowestAuction{}
	}
	defer rows.Close()

	results := []bazaar.LowestAuction{}
	for rows.Next() {
		var r bazaar.LowestAuction
		if err := rows.Scan(&r.ItemID, &r.ItemName, &r.Price, &r.AuctionID); err != nil {
			continue
		}
		results = append(results, r)
	}
	return results
}
