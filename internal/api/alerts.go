package api

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"bazaar-flipper/internal/db"
	"bazaar-flipper/internal/engine"
	"bazaar-flipper/internal/logger"
)

const (
	// DefaultAlertCooldown is the minimum time between repeat alerts for the same item/metric/threshold.
	DefaultAlertCooldown = time.Hour
)

// AlertCheckResult describes one alert that should fire.
type AlertCheckResult struct {
	ItemID       string
	ItemName     string
	Metric       string
	Threshold    float64
	CurrentValue float64
	Message      string
}

// CheckWatchlistAlerts evaluates watchlist items against scan records and
// returns the alerts to fire, skipping any still inside the cooldown.
func (s *Server) CheckWatchlistAlerts(records []engine.ProfitRecord) []AlertCheckResult {
	byID := make(map[string]engine.ProfitRecord, len(records))
	for _, r := range records {
		byID[r.ItemID] = r
	}

	var alerts []AlertCheckResult
	for _, item := range s.db.GetWatchlist() {
		if !item.AlertEnabled || item.AlertThreshold <= 0 {
			continue
		}
		rec, ok := byID[item.ItemID]
		if !ok {
			continue
		}
		current, ok := metricValue(rec, item.AlertMetric)
		if !ok || current < item.AlertThreshold {
			continue
		}

		last, err := s.db.GetLastAlertTime(item.ItemID, item.AlertMetric, item.AlertThreshold)
		if err != nil {
			logger.Warn("Alert", fmt.Sprintf("last alert lookup for %s: %v", item.ItemID, err))
			continue
		}
		if !last.IsZero() && time.Since(last) < DefaultAlertCooldown {
			continue
		}

		alerts = append(alerts, AlertCheckResult{
			ItemID:       item.ItemID,
			ItemName:     rec.Name,
			Metric:       item.AlertMetric,
			Threshold:    item.AlertThreshold,
			CurrentValue: current,
			Message:      formatAlertMessage(rec.Name, item.AlertMetric, item.AlertThreshold, current),
		})
	}
	return alerts
}

// processWatchlistAlerts logs every triggered alert and records it in history.
func (s *Server) processWatchlistAlerts(records []engine.ProfitRecord, scanID int64) {
	for _, alert := range s.CheckWatchlistAlerts(records) {
		entry := db.AlertHistoryEntry{
			ItemID:         alert.ItemID,
			ItemName:       alert.ItemName,
			AlertMetric:    alert.Metric,
			AlertThreshold: alert.Threshold,
			CurrentValue:   alert.CurrentValue,
			Message:        alert.Message,
		}
		if scanID > 0 {
			id := scanID
			entry.ScanID = &id
		}
		if err := s.db.SaveAlertHistory(entry); err != nil {
			logger.Warn("Alert", fmt.Sprintf("save history: %v", err))
		}
		logger.Success("Alert", alert.Message)
	}
}

func metricValue(r engine.ProfitRecord, metric string) (float64, bool) {
	switch metric {
	case db.MetricProfit:
		return r.Profit, true
	case db.MetricCraftProfit:
		return r.Craft.CraftProfit, true
	case db.MetricProfitPerCoin:
		return r.ProfitPerCoin(), true
	default:
		return 0, false
	}
}

func formatAlertMessage(name, metric string, threshold, current float64) string {
	switch metric {
	case db.MetricProfit:
		return fmt.Sprintf("%s: Profit %s coins >= %s", name,
			humanize.CommafWithDigits(current, 1), humanize.CommafWithDigits(threshold, 1))
	case db.MetricCraftProfit:
		return fmt.Sprintf("%s: Craft Profit %s coins >= %s", name,
			humanize.Comma(int64(current)), humanize.Comma(int64(threshold)))
	case db.MetricProfitPerCoin:
		return fmt.Sprintf("%s: Return %.2f%% >= %.2f%%", name, current*100, threshold*100)
	default:
		return fmt.Sprintf("%s: %s %.2f >= %.2f", name, metric, current, threshold)
	}
}
