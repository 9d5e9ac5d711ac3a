package db

import (
	"database/sql"
	"time"
)

// AlertHistoryEntry represents a fired watchlist alert.
type AlertHistoryEntry struct {
	ID             int64   `json:"id"`
	ItemID         string  `json:"item_id"`
	ItemName       string  `json:"item_name"`
	AlertMetric    string  `json:"alert_metric"`
	AlertThreshold float64 `json:"alert_threshold"`
	CurrentValue   float64 `json:"current_value"`
	Message        string  `json:"message"`
	SentAt         string  `json:"sent_at"`
	ScanID         *int64  `json:"scan_id,omitempty"`
}

// SaveAlertHistory records a fired alert.
func (d *DB) SaveAlertHistory(entry AlertHistoryEntry) error {
	if entry.SentAt == "" {
		entry.SentAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := d.sql.Exec(`
		INSERT INTO alert_history (
			item_id, item_name, alert_metric, alert_threshold,
			current_value, message, sent_at, scan_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ItemID,
		entry.ItemName,
		entry.AlertMetric,
		entry.AlertThreshold,
		entry.CurrentValue,
		entry.Message,
		entry.SentAt,
		entry.ScanID,
	)
	return err
}

// GetAlertHistory returns alert history, newest first. An empty itemID
// returns all alerts; limit 0 means unlimited.
func (d *DB) GetAlertHistory(itemID string, limit int) ([]AlertHistoryEntry, error) {
	query := `
		SELECT id, item_id, item_name, alert_metric, alert_threshold,
		       current_value, message, sent_at, scan_id
		  FROM alert_history
	`
	var args []interface{}
	if itemID != "" {
		query += " WHERE item_id = ?"
		args = append(args, itemID)
	}
	query += " ORDER BY sent_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.sql.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AlertHistoryEntry
	for rows.Next() {
		var e AlertHistoryEntry
		var scanID sql.NullInt64
		if err := rows.Scan(
			&e.ID,
			&e.ItemID,
			&e.ItemName,
			&e.AlertMetric,
			&e.AlertThreshold,
			&e.CurrentValue,
			&e.Message,
			&e.SentAt,
			&scanID,
		); err != nil {
			return nil, err
		}
		if scanID.Valid {
			sid := scanID.Int64
			e.ScanID = &sid
		}
		entries = append(entries, e)
	}
	if entries == nil {
		return []AlertHistoryEntry{}, nil
	}
	return entries, rows.Err()
}

// GetLastAlertTime returns when the last alert for an item/metric/threshold
// fired, or the zero time if never.
func (d *DB) GetLastAlertTime(itemID, metric string, threshold float64) (time.Time, error) {
	var sentAt string
	err := d.sql.QueryRow(`
		SELECT sent_at FROM alert_history
		 WHERE item_id = ? AND alert_metric = ? AND alert_threshold = ?
		 ORDER BY sent_at DESC
		 LIMIT 1
	`, itemID, metric, threshold).Scan(&sentAt)

	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, sentAt)
}

// DeleteAlertHistory removes alert history for one item.
func (d *DB) DeleteAlertHistory(itemID string) error {
	_, err := d.sql.Exec("DELETE FROM alert_history WHERE item_id = ?", itemID)
	return err
}

// CleanupOldAlertHistory removes alert history older than the specified number of days.
func (d *DB) CleanupOldAlertHistory(olderThanDays int) (int64, error) {
	if olderThanDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays).Format(time.RFC3339)
	res, err := d.sql.Exec("DELETE FROM alert_history WHERE sent_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
