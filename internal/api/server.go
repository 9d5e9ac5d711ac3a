package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"bazaar-flipper/internal/config"
	"bazaar-flipper/internal/db"
	"bazaar-flipper/internal/engine"
)

// HealthReporter exposes the time of the last successful upstream call.
type HealthReporter interface {
	HealthStatus() time.Time
}

// Server is the HTTP API server that connects the bazaar client, scanner and database.
type Server struct {
	cfg     *config.Config
	scanner *engine.Scanner
	health  HealthReporter
	db      *db.DB

	// scanMu serializes scans; a second request while one runs gets 409.
	scanMu sync.Mutex

	mu     sync.RWMutex
	latest *engine.ScanResult
}

// NewServer creates a Server. health and database may be nil.
func NewServer(cfg *config.Config, scanner *engine.Scanner, health HealthReporter, database *db.DB) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Server{
		cfg:     cfg,
		scanner: scanner,
		health:  health,
		db:      database,
	}
}

// ParamsFromConfig maps the configured thresholds onto engine parameters.
func ParamsFromConfig(cfg *config.Config) engine.Params {
	return engine.Params{
		AnomalySpreadPercent: cfg.AnomalySpreadPercent,
		AnomalySpreadAbs:     cfg.AnomalySpreadAbs,
		MaterialityRatio:     cfg.MaterialityRatio,
		WikiBaseURL:          cfg.WikiBaseURL,
	}
}

// Latest returns the most recent in-memory scan, if any.
func (s *Server) Latest() *engine.ScanResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Server) setLatest(res *engine.ScanResult) {
	s.mu.Lock()
	s.latest = res
	s.mu.Unlock()
}

// Handler returns the HTTP handler with all API routes and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("POST /api/scan", s.handleScan)
	mux.HandleFunc("GET /api/profits", s.handleGetProfits)
	mux.HandleFunc("GET /api/ingredients", s.handleGetIngredients)
	mux.HandleFunc("POST /api/auctions/scan", s.handleScanAuctions)
	mux.HandleFunc("GET /api/scan/history", s.handleGetHistory)
	mux.HandleFunc("GET /api/scan/history/{id}", s.handleGetHistoryByID)
	mux.HandleFunc("GET /api/scan/history/{id}/results", s.handleGetHistoryResults)
	mux.HandleFunc("DELETE /api/scan/history/{id}", s.handleDeleteHistory)
	mux.HandleFunc("POST /api/scan/history/clear", s.handleClearHistory)
	mux.HandleFunc("GET /api/items/{itemID}/history", s.handleGetItemHistory)
	mux.HandleFunc("GET /api/watchlist", s.handleGetWatchlist)
	mux.HandleFunc("POST /api/watchlist", s.handleAddWatchlist)
	mux.HandleFunc("PUT /api/watchlist/{itemID}", s.handleUpdateWatchlist)
	mux.HandleFunc("DELETE /api/watchlist/{itemID}", s.handleDeleteWatchlist)
	mux.HandleFunc("GET /api/alerts/history", s.handleGetAlertHistory)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// requireDB writes 503 and returns false when the server runs without storage.
func (s *Server) requireDB(w http.ResponseWriter) bool {
	if s.db == nil {
		writeError(w, 503, "history storage disabled")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, 400, "invalid id")
		return 0, false
	}
	return id, true
}

// --- Handlers ---

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	result := map[string]interface{}{
		"scanner_ready": s.scanner != nil,
		"db_enabled":    s.db != nil,
	}
	if s.health != nil {
		if lastOK := s.health.HealthStatus(); !lastOK.IsZero() {
			result["bazaar_last_ok"] = lastOK.Unix()
		}
	}
	if latest := s.Latest(); latest != nil {
		result["last_scan"] = map[string]interface{}{
			"run_id":     latest.RunID,
			"started_at": latest.StartedAt.Format(time.RFC3339),
			"summary":    latest.Summary,
		}
	}
	writeJSON(w, result)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.cfg)
}

// --- Scan History ---

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	limitStr := r.URL.Query().Get("limit")
	limit := 50
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	writeJSON(w, s.db.GetHistory(limit))
}

func (s *Server) handleGetHistoryByID(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	record := s.db.GetHistoryByID(id)
	if record == nil {
		writeError(w, 404, "not found")
		return
	}
	writeJSON(w, record)
}

func (s *Server) handleGetHistoryResults(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	record := s.db.GetHistoryByID(id)
	if record == nil {
		writeError(w, 404, "not found")
		return
	}

	var results interface{}
	switch record.Kind {
	case db.KindAuctions:
		results = s.db.GetAuctionResults(id)
	default:
		results = s.db.GetProfitResults(id)
	}

	writeJSON(w, map[string]interface{}{
		"scan":    record,
		"results": results,
	})
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteHistory(id); err != nil {
		writeError(w, 500, "delete failed: "+err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "deleted"})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	var req struct {
		OlderThanDays int `json:"older_than_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req.OlderThanDays = 7 // default: clear older than 7 days
	}
	if req.OlderThanDays < 1 {
		req.OlderThanDays = 7
	}
	count, err := s.db.ClearHistory(req.OlderThanDays)
	if err != nil {
		writeError(w, 500, "clear failed: "+err.Error())
		return
	}
	alerts, err := s.db.CleanupOldAlertHistory(req.OlderThanDays)
	if err != nil {
		writeError(w, 500, "clear failed: "+err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"status": "cleared", "deleted": count, "alerts_deleted": alerts})
}

func (s *Server) handleGetItemHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	writeJSON(w, s.db.GetItemHistory(r.PathValue("itemID"), days))
}
