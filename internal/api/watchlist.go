package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"bazaar-flipper/internal/db"
)

func (s *Server) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	writeJSON(w, s.db.GetWatchlist())
}

func (s *Server) handleAddWatchlist(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	var item db.WatchlistItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, 400, "invalid json")
		return
	}
	item.ItemID = strings.TrimSpace(item.ItemID)
	if item.ItemID == "" {
		writeError(w, 400, "item_id is required")
		return
	}
	if item.AlertMetric != "" && !db.ValidMetric(item.AlertMetric) {
		writeError(w, 400, "unknown alert_metric "+item.AlertMetric)
		return
	}
	// Prefer the catalog's display name when a scan has loaded it.
	if latest := s.Latest(); latest != nil && item.ItemName == "" {
		item.ItemName = latest.Catalog.DisplayName(item.ItemID)
	}
	inserted := s.db.AddWatchlistItem(item)

	type addResponse struct {
		Items    []db.WatchlistItem `json:"items"`
		Inserted bool               `json:"inserted"`
	}
	writeJSON(w, addResponse{
		Items:    s.db.GetWatchlist(),
		Inserted: inserted,
	})
}

func (s *Server) handleDeleteWatchlist(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	s.db.DeleteWatchlistItem(r.PathValue("itemID"))
	writeJSON(w, s.db.GetWatchlist())
}

func (s *Server) handleUpdateWatchlist(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	var body struct {
		AlertEnabled   bool    `json:"alert_enabled"`
		AlertMetric    string  `json:"alert_metric"`
		AlertThreshold float64 `json:"alert_threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, 400, "invalid json")
		return
	}
	if body.AlertMetric != "" && !db.ValidMetric(body.AlertMetric) {
		writeError(w, 400, "unknown alert_metric "+body.AlertMetric)
		return
	}
	itemID := r.PathValue("itemID")
	if !s.db.HasWatchlistItem(itemID) {
		writeError(w, 404, "not found")
		return
	}
	s.db.UpdateWatchlistItem(itemID, body.AlertEnabled, body.AlertMetric, body.AlertThreshold)
	writeJSON(w, s.db.GetWatchlist())
}

func (s *Server) handleGetAlertHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	limit := 100
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	entries, err := s.db.GetAlertHistory(r.URL.Query().Get("item"), limit)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, entries)
}
