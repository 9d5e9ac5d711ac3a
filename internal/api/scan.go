package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"bazaar-flipper/internal/bazaar"
	"bazaar-flipper/internal/db"
	"bazaar-flipper/internal/engine"
	"bazaar-flipper/internal/export"
	"bazaar-flipper/internal/logger"
)

// ErrScanInProgress is returned when a scan is requested while another runs.
var ErrScanInProgress = errors.New("scan already in progress")

// ScanOutcome is what RunScan produced and where it was stored.
type ScanOutcome struct {
	Result *engine.ScanResult
	ScanID int64 // 0 when storage is disabled
}

// RunScan performs one bazaar scan, stores it, exports the JSON artifacts and
// fires watchlist alerts. progress may be nil.
func (s *Server) RunScan(ctx context.Context, progress func(string)) (*ScanOutcome, error) {
	if s.scanner == nil {
		return nil, errors.New("scanner not configured")
	}
	if !s.scanMu.TryLock() {
		return nil, ErrScanInProgress
	}
	defer s.scanMu.Unlock()
	return s.runScanLocked(ctx, progress)
}

// runScanLocked is RunScan for callers already holding scanMu.
func (s *Server) runScanLocked(ctx context.Context, progress func(string)) (*ScanOutcome, error) {
	res, err := s.scanner.Run(ctx, progress)
	if err != nil {
		return nil, err
	}
	s.setLatest(res)

	out := &ScanOutcome{Result: res}
	if s.db != nil {
		out.ScanID = s.db.SaveScan(res, s.scanner.Params)
	}
	if s.cfg.ExportDir != "" {
		if _, err := export.WriteProfits(s.cfg.ExportDir, res.Records); err != nil {
			logger.Warn("Export", err.Error())
		}
		if _, err := export.WriteIngredients(s.cfg.ExportDir, engine.CraftIndex(res.Catalog, res.Snapshot)); err != nil {
			logger.Warn("Export", err.Error())
		}
	}
	if s.db != nil {
		s.processWatchlistAlerts(res.Records, out.ScanID)
	}
	logger.Success("Scan", fmt.Sprintf("%d items, %d craftable in %s",
		res.Summary.Count, res.Summary.Craftable, res.Duration.Round(time.Millisecond)))
	return out, nil
}

// AuctionOutcome is what RunAuctionScan produced and where it was stored.
type AuctionOutcome struct {
	Scan   *bazaar.AuctionScan
	ScanID int64
}

// RunAuctionScan finds the cheapest BIN listing for every craft ingredient,
// then stores and exports it.
func (s *Server) RunAuctionScan(ctx context.Context, progress func(string)) (*AuctionOutcome, error) {
	if s.scanner == nil {
		return nil, errors.New("scanner not configured")
	}
	if !s.scanMu.TryLock() {
		return nil, ErrScanInProgress
	}
	defer s.scanMu.Unlock()

	scan, err := s.scanner.ScanAuctions(ctx, s.cfg.AuctionWorkers, progress)
	if err != nil {
		return nil, err
	}
	out := &AuctionOutcome{Scan: scan}
	if s.db != nil {
		out.ScanID = s.db.InsertHistory(db.KindAuctions, uuid.NewString(), len(scan.Lowest), 0)
		s.db.InsertAuctionResults(out.ScanID, scan.Lowest)
	}
	if s.cfg.ExportDir != "" {
		if _, err := export.WriteLowestAuctions(s.cfg.ExportDir, scan.Lowest); err != nil {
			logger.Warn("Export", err.Error())
		}
	}
	logger.Success("Auctions", fmt.Sprintf("%d pages (%d failed), %d matching BIN listings, %d items priced",
		scan.Pages, scan.FailedPages, scan.Processed, len(scan.Lowest)))
	return out, nil
}

func scanErrorStatus(err error) int {
	switch {
	case errors.Is(err, ErrScanInProgress):
		return 409
	case errors.Is(err, engine.ErrNoData):
		return 502
	default:
		return 500
	}
}

// handleScan streams progress as NDJSON, then a result line.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		writeError(w, 503, "scanner not configured")
		return
	}
	if !s.scanMu.TryLock() {
		writeError(w, 409, ErrScanInProgress.Error())
		return
	}
	defer s.scanMu.Unlock()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, 500, "streaming not supported")
		return
	}

	emit := func(v interface{}) {
		line, _ := json.Marshal(v)
		fmt.Fprintf(w, "%s\n", line)
		flusher.Flush()
	}

	out, err := s.runScanLocked(r.Context(), func(msg string) {
		emit(map[string]string{"type": "progress", "message": msg})
	})
	if err != nil {
		logger.Error("API", fmt.Sprintf("Scan error: %v", err))
		emit(map[string]interface{}{"type": "error", "message": err.Error(), "status": scanErrorStatus(err)})
		return
	}

	emit(map[string]interface{}{
		"type":    "result",
		"run_id":  out.Result.RunID,
		"scan_id": out.ScanID,
		"count":   len(out.Result.Records),
		"summary": out.Result.Summary,
	})
}

func (s *Server) handleScanAuctions(w http.ResponseWriter, r *http.Request) {
	out, err := s.RunAuctionScan(r.Context(), nil)
	if err != nil {
		writeError(w, scanErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{
		"scan_id":      out.ScanID,
		"pages":        out.Scan.Pages,
		"failed_pages": out.Scan.FailedPages,
		"processed":    out.Scan.Processed,
		"lowest":       out.Scan.Lowest,
	})
}

// latestRecords returns the newest bazaar records, from memory or storage.
func (s *Server) latestRecords() ([]engine.ProfitRecord, bool) {
	if latest := s.Latest(); latest != nil {
		return latest.Records, true
	}
	if s.db == nil {
		return nil, false
	}
	rec := s.db.LatestScan(db.KindBazaar)
	if rec == nil {
		return nil, false
	}
	return s.db.GetProfitResults(rec.ID), true
}

// handleGetProfits serves the latest records.
// Query: craftable=true, sort=profit|craft_profit, limit=N.
func (s *Server) handleGetProfits(w http.ResponseWriter, r *http.Request) {
	records, ok := s.latestRecords()
	if !ok {
		writeError(w, 404, "no scan yet")
		return
	}
	q := r.URL.Query()

	out := make([]engine.ProfitRecord, len(records))
	copy(out, records)
	if craftable, _ := strconv.ParseBool(q.Get("craftable")); craftable {
		out = engine.FilterCraftable(out)
	}
	switch q.Get("sort") {
	case "profit":
		engine.SortByProfit(out)
	case "craft_profit":
		engine.SortByCraftProfit(out)
	case "":
	default:
		writeError(w, 400, "sort must be profit or craft_profit")
		return
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l < len(out) {
		out = out[:l]
	}
	writeJSON(w, out)
}

func (s *Server) handleGetIngredients(w http.ResponseWriter, r *http.Request) {
	latest := s.Latest()
	if latest == nil {
		writeError(w, 404, "no scan yet")
		return
	}
	writeJSON(w, engine.CraftIndex(latest.Catalog, latest.Snapshot))
}
