package db

import (
	"encoding/json"
	"time"

	"bazaar-flipper/internal/engine"
)

// Scan kinds stored in scan_history.kind.
const (
	KindBazaar   = "bazaar"
	KindAuctions = "auctions"
)

// ScanRecord represents a scan history entry.
type ScanRecord struct {
	ID               int64           `json:"id"`
	RunID            string          `json:"run_id"`
	Timestamp        string          `json:"timestamp"`
	Kind             string          `json:"kind"`
	Count            int             `json:"count"`
	Craftable        int             `json:"craftable"`
	TopProfit        float64         `json:"top_profit"`
	TopItem          string          `json:"top_item"`
	TotalCraftProfit float64         `json:"total_craft_profit"`
	DurationMs       int64           `json:"duration_ms"`
	SnapshotTime     string          `json:"snapshot_time,omitempty"`
	Params           json.RawMessage `json:"params"`
}

const historyColumns = `id, run_id, timestamp, kind, count, craftable, top_profit, top_item,
	total_craft_profit, duration_ms, snapshot_time, COALESCE(params_json, '{}')`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (ScanRecord, error) {
	var r ScanRecord
	var paramsStr string
	err := row.Scan(&r.ID, &r.RunID, &r.Timestamp, &r.Kind, &r.Count, &r.Craftable, &r.TopProfit, &r.TopItem,
		&r.TotalCraftProfit, &r.DurationMs, &r.SnapshotTime, &paramsStr)
	r.Params = json.RawMessage(paramsStr)
	return r, err
}

// InsertHistory inserts a minimal scan history record and returns its ID.
func (d *DB) InsertHistory(kind, runID string, count int, topProfit float64) int64 {
	result, err := d.sql.Exec(
		"INSERT INTO scan_history (run_id, timestamp, kind, count, top_profit) VALUES (?, ?, ?, ?, ?)",
		runID, time.Now().Format(time.RFC3339), kind, count, topProfit,
	)
	if err != nil {
		return 0
	}
	id, _ := result.LastInsertId()
	return id
}

// InsertHistoryFull inserts a bazaar scan's summary and returns its ID.
func (d *DB) InsertHistoryFull(res *engine.ScanResult, params interface{}) int64 {
	if res == nil {
		return 0
	}
	paramsJSON, _ := json.Marshal(params)
	snapTime := ""
	if !res.SnapshotTime.IsZero() {
		snapTime = res.SnapshotTime.UTC().Format(time.RFC3339)
	}
	s := res.Summary
	result, err := d.sql.Exec(
		`INSERT INTO scan_history (run_id, timestamp, kind, count, craftable, top_profit, top_item,
		 total_craft_profit, duration_ms, snapshot_time, params_json) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.StartedAt.Format(time.RFC3339), KindBazaar, s.Count, s.Craftable, s.TopProfit, s.TopProfitItem,
		s.TotalCraftProfit, res.Duration.Milliseconds(), snapTime, string(paramsJSON),
	)
	if err != nil {
		return 0
	}
	id, _ := result.LastInsertId()
	return id
}

// SaveScan stores a bazaar scan's summary and every record. Returns the
// history id, or 0 when nothing was written.
func (d *DB) SaveScan(res *engine.ScanResult, params interface{}) int64 {
	id := d.InsertHistoryFull(res, params)
	if id == 0 {
		return 0
	}
	d.InsertProfitResults(id, res.Records)
	return id
}

// GetHistory returns the last N scan history records (newest first).
func (d *DB) GetHistory(limit int) []ScanRecord {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.Query(
		"SELECT "+historyColumns+" FROM scan_history ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return []ScanRecord{}
	}
	defer rows.Close()

	var records []ScanRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			continue
		}
		records = append(records, r)
	}
	if records == nil {
		return []ScanRecord{}
	}
	return records
}

// GetHistoryByID returns a single scan history record.
func (d *DB) GetHistoryByID(id int64) *ScanRecord {
	r, err := scanRecord(d.sql.QueryRow("SELECT "+historyColumns+" FROM scan_history WHERE id = ?", id))
	if err != nil {
		return nil
	}
	return &r
}

// LatestScan returns the newest record of the given kind, or nil.
func (d *DB) LatestScan(kind string) *ScanRecord {
	r, err := scanRecord(d.sql.QueryRow(
		"SELECT "+historyColumns+" FROM scan_history WHERE kind = ? ORDER BY id DESC LIMIT 1", kind))
	if err != nil {
		return nil
	}
	return &r
}

// DeleteHistory deletes a scan history record and its associated results.
func (d *DB) DeleteHistory(id int64) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return err
	}
	tx.Exec("DELETE FROM profit_results WHERE scan_id = ?", id)
	tx.Exec("DELETE FROM auction_results WHERE scan_id = ?", id)
	tx.Exec("DELETE FROM scan_history WHERE id = ?", id)
	return tx.Commit()
}

// ClearHistory deletes all scan history records older than given days.
// Zero or negative days clears everything.
func (d *DB) ClearHistory(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays).Format(time.RFC3339)
	if olderThanDays <= 0 {
		// RFC3339 timestamps all sort below this.
		cutoff = "9999"
	}

	rows, err := d.sql.Query("SELECT id FROM scan_history WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		rows.Scan(&id)
		ids = append(ids, id)
	}
	rows.Close()

	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := d.sql.Begin()
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		tx.Exec("DELETE FROM profit_results WHERE scan_id = ?", id)
		tx.Exec("DELETE FROM auction_results WHERE scan_id = ?", id)
	}
	result, err := tx.Exec("DELETE FROM scan_history WHERE timestamp < ?", cutoff)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	count, _ := result.RowsAffected()
	return count, nil
}
