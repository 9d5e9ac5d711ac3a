package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"bazaar-flipper/internal/bazaar"
	"bazaar-flipper/internal/catalog"
	"bazaar-flipper/internal/config"
	"bazaar-flipper/internal/db"
	"bazaar-flipper/internal/engine"
	"bazaar-flipper/internal/export"
)

type stubMarket struct {
	snap *bazaar.Snapshot
	err  error
}

func (m stubMarket) FetchSnapshot(ctx context.Context) (*bazaar.Snapshot, error) {
	return m.snap, m.err
}

type stubCatalog struct{ cat *catalog.Catalog }

func (c stubCatalog) LoadCatalog() (*catalog.Catalog, error) { return c.cat, nil }

type stubAuctions struct{}

func (stubAuctions) FetchLowestBIN(ctx context.Context, wanted map[string]string, workers int) (*bazaar.AuctionScan, error) {
	var lowest []bazaar.LowestAuction
	for name, id := range wanted {
		lowest = append(lowest, bazaar.LowestAuction{ItemID: id, ItemName: name, Price: 20, AuctionID: "a-" + id})
	}
	return &bazaar.AuctionScan{Pages: 2, Processed: len(lowest), Lowest: lowest}, nil
}

type stubHealth struct{ at time.Time }

func (h stubHealth) HealthStatus() time.Time { return h.at }

func level(ask float64, bid float64) bazaar.Product {
	return bazaar.Product{
		SellSummary: []bazaar.OrderSummary{{PricePerUnit: ask, Amount: 10, Orders: 1}},
		BuySummary:  []bazaar.OrderSummary{{PricePerUnit: bid, Amount: 10, Orders: 1}},
	}
}

func testScanner(market engine.MarketProvider) *engine.Scanner {
	cat := catalog.New(
		&catalog.Item{ID: "A", Name: "Alpha", Recipe: catalog.RawRecipe{"1": "B:2"}},
		&catalog.Item{ID: "B", Name: "Beta"},
	)
	if market == nil {
		market = stubMarket{snap: &bazaar.Snapshot{Success: true, Products: map[string]bazaar.Product{
			"A": level(100, 90),
			"B": level(30, 25),
		}}}
	}
	s := engine.NewScanner(market, stubCatalog{cat: cat})
	s.Auctions = stubAuctions{}
	return s
}

func newTestServer(t *testing.T, withDB bool) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.ExportDir = t.TempDir()
	var database *db.DB
	if withDB {
		var err error
		database, err = db.Open(":memory:")
		if err != nil {
			t.Fatalf("open db: %v", err)
		}
		t.Cleanup(func() { database.Close() })
	}
	return NewServer(cfg, testScanner(nil), stubHealth{at: time.Unix(1700000000, 0)}, database)
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// ndjsonLines decodes every line of a streamed scan response.
func ndjsonLines(t *testing.T, body string) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		var m map[string]interface{}
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("bad ndjson line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

func TestHandleGetConfig_ReturnsConfig(t *testing.T) {
	srv := newTestServer(t, false)
	srv.cfg.Port = 9100

	rec := do(t, srv, http.MethodGet, "/api/config", "")
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/config status = %d, want 200", rec.Code)
	}
	var out config.Config
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if out.Port != 9100 || out.MaterialityRatio != 0.05 {
		t.Errorf("config = %+v", out)
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv := newTestServer(t, false)
	rec := do(t, srv, http.MethodOptions, "/api/scan", "")
	if rec.Code != 204 {
		t.Errorf("OPTIONS status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t, false)
	rec := do(t, srv, http.MethodGet, "/api/status", "")
	var out map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&out)
	if out["scanner_ready"] != true || out["db_enabled"] != false {
		t.Errorf("status = %v", out)
	}
	if out["bazaar_last_ok"] != float64(1700000000) {
		t.Errorf("bazaar_last_ok = %v", out["bazaar_last_ok"])
	}
	if _, ok := out["last_scan"]; ok {
		t.Error("last_scan should be absent before any scan")
	}
}

func TestHandleScan_StreamsProgressAndResult(t *testing.T) {
	srv := newTestServer(t, true)

	rec := do(t, srv, http.MethodPost, "/api/scan", "")
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("Content-Type = %q", ct)
	}
	lines := ndjsonLines(t, rec.Body.String())
	if len(lines) < 2 {
		t.Fatalf("got %d lines, want progress + result", len(lines))
	}
	if lines[0]["type"] != "progress" {
		t.Errorf("first line = %v", lines[0])
	}
	last := lines[len(lines)-1]
	if last["type"] != "result" || last["count"] != 2.0 {
		t.Fatalf("result line = %v", last)
	}
	if id, _ := last["scan_id"].(float64); id <= 0 {
		t.Errorf("scan_id = %v, want stored scan", last["scan_id"])
	}

	for _, name := range []string{export.ProfitsFile, export.IngredientsFile} {
		if _, err := os.Stat(filepath.Join(srv.cfg.ExportDir, name)); err != nil {
			t.Errorf("export %s: %v", name, err)
		}
	}
}

func TestHandleScan_ErrorLine(t *testing.T) {
	srv := newTestServer(t, false)
	srv.scanner = testScanner(stubMarket{err: bazaar.ErrUnavailable})

	lines := ndjsonLines(t, do(t, srv, http.MethodPost, "/api/scan", "").Body.String())
	last := lines[len(lines)-1]
	if last["type"] != "error" || last["status"] != 502.0 {
		t.Errorf("last line = %v", last)
	}
}

func TestRunScan_RejectsConcurrentScan(t *testing.T) {
	srv := newTestServer(t, false)
	srv.scanMu.Lock()
	defer srv.scanMu.Unlock()
	if _, err := srv.RunScan(context.Background(), nil); !errors.Is(err, ErrScanInProgress) {
		t.Fatalf("err = %v, want ErrScanInProgress", err)
	}
}

func TestHandleScan_ConflictWhileRunning(t *testing.T) {
	srv := newTestServer(t, false)
	srv.scanMu.Lock()
	defer srv.scanMu.Unlock()

	rec := do(t, srv, http.MethodPost, "/api/scan", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestHandleGetProfits(t *testing.T) {
	srv := newTestServer(t, false)

	if rec := do(t, srv, http.MethodGet, "/api/profits", ""); rec.Code != 404 {
		t.Fatalf("before scan status = %d, want 404", rec.Code)
	}
	if _, err := srv.RunScan(context.Background(), nil); err != nil {
		t.Fatalf("RunScan: %v", err)
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"A", "B"}},
		{"?craftable=true", []string{"A"}},
		{"?sort=profit", []string{"B", "A"}},
		{"?sort=profit&limit=1", []string{"B"}},
		{"?sort=craft_profit", []string{"A", "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, "/api/profits"+tt.query, "")
			var got []engine.ProfitRecord
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ItemID != id {
					t.Errorf("[%d] = %s, want %s", i, got[i].ItemID, id)
				}
			}
		})
	}

	if rec := do(t, srv, http.MethodGet, "/api/profits?sort=name", ""); rec.Code != 400 {
		t.Errorf("bad sort status = %d, want 400", rec.Code)
	}
}

func TestHandleGetProfits_FallsBackToStorage(t *testing.T) {
	srv := newTestServer(t, true)
	if _, err := srv.RunScan(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	restarted := NewServer(srv.cfg, srv.scanner, nil, srv.db)
	rec := do(t, restarted, http.MethodGet, "/api/profits?craftable=true", "")
	var got []engine.ProfitRecord
	json.NewDecoder(rec.Body).Decode(&got)
	if len(got) != 1 || got[0].ItemID != "A" || got[0].Craft.CraftProfit != 30 {
		t.Errorf("got %+v", got)
	}
}

func TestHandleGetIngredients(t *testing.T) {
	srv := newTestServer(t, false)
	srv.RunScan(context.Background(), nil)
	var got map[string]engine.CraftEntry
	json.NewDecoder(do(t, srv, http.MethodGet, "/api/ingredients", "").Body).Decode(&got)
	if got["A"].Ingredients["B"] != 2 {
		t.Errorf("ingredients = %+v", got)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	srv := newTestServer(t, true)
	out, err := srv.RunScan(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}

	var history []db.ScanRecord
	json.NewDecoder(do(t, srv, http.MethodGet, "/api/scan/history", "").Body).Decode(&history)
	if len(history) != 1 || history[0].ID != out.ScanID || history[0].Craftable != 1 {
		t.Fatalf("history = %+v", history)
	}

	path := "/api/scan/history/" + itoa(out.ScanID)
	if rec := do(t, srv, http.MethodGet, path, ""); rec.Code != 200 {
		t.Errorf("GET %s = %d", path, rec.Code)
	}
	var results struct {
		Scan    db.ScanRecord         `json:"scan"`
		Results []engine.ProfitRecord `json:"results"`
	}
	json.NewDecoder(do(t, srv, http.MethodGet, path+"/results", "").Body).Decode(&results)
	if len(results.Results) != 2 || results.Scan.RunID != out.Result.RunID {
		t.Errorf("results = %+v", results)
	}

	if rec := do(t, srv, http.MethodGet, "/api/scan/history/abc", ""); rec.Code != 400 {
		t.Errorf("invalid id status = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, path, ""); rec.Code != 200 {
		t.Errorf("DELETE status = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, path, ""); rec.Code != 404 {
		t.Errorf("after delete status = %d, want 404", rec.Code)
	}

	srv.RunScan(context.Background(), nil)
	var points []db.PricePoint
	json.NewDecoder(do(t, srv, http.MethodGet, "/api/items/A/history?days=1", "").Body).Decode(&points)
	if len(points) != 1 || points[0].BuyPrice != 100 {
		t.Errorf("item history = %+v", points)
	}

	rec := do(t, srv, http.MethodPost, "/api/scan/history/clear", `{"older_than_days": 30}`)
	var cleared map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&cleared)
	if cleared["status"] != "cleared" {
		t.Errorf("clear = %v", cleared)
	}
}

func TestHistoryEndpoints_NoDB(t *testing.T) {
	srv := newTestServer(t, false)
	for _, path := range []string{"/api/scan/history", "/api/watchlist", "/api/alerts/history"} {
		if rec := do(t, srv, http.MethodGet, path, ""); rec.Code != 503 {
			t.Errorf("GET %s = %d, want 503", path, rec.Code)
		}
	}
}

func TestHandleScanAuctions(t *testing.T) {
	srv := newTestServer(t, true)
	rec := do(t, srv, http.MethodPost, "/api/auctions/scan", "")
	if rec.Code != 200 {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		ScanID int64                  `json:"scan_id"`
		Pages  int                    `json:"pages"`
		Lowest []bazaar.LowestAuction `json:"lowest"`
	}
	json.NewDecoder(rec.Body).Decode(&out)
	if out.Pages != 2 || len(out.Lowest) != 1 || out.Lowest[0].ItemID != "B" {
		t.Fatalf("out = %+v", out)
	}

	var results struct {
		Results []bazaar.LowestAuction `json:"results"`
	}
	json.NewDecoder(do(t, srv, http.MethodGet, "/api/scan/history/"+itoa(out.ScanID)+"/results", "").Body).Decode(&results)
	if len(results.Results) != 1 || results.Results[0].AuctionID != "a-B" {
		t.Errorf("stored = %+v", results.Results)
	}
	if _, err := os.Stat(filepath.Join(srv.cfg.ExportDir, export.AuctionsFile)); err != nil {
		t.Errorf("auction export: %v", err)
	}
}

func TestWatchlistAndAlerts(t *testing.T) {
	srv := newTestServer(t, true)

	rec := do(t, srv, http.MethodPost, "/api/watchlist", `{"item_id":"A","alert_metric":"craft_profit","alert_threshold":20}`)
	var added struct {
		Items    []db.WatchlistItem `json:"items"`
		Inserted bool               `json:"inserted"`
	}
	json.NewDecoder(rec.Body).Decode(&added)
	if !added.Inserted || len(added.Items) != 1 || !added.Items[0].AlertEnabled {
		t.Fatalf("add = %+v", added)
	}
	do(t, srv, http.MethodPost, "/api/watchlist", `{"item_id":"B","alert_threshold":100}`)

	if rec := do(t, srv, http.MethodPost, "/api/watchlist", `{"item_id":"C","alert_metric":"volume"}`); rec.Code != 400 {
		t.Errorf("bad metric status = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodPost, "/api/watchlist", `{"alert_threshold":1}`); rec.Code != 400 {
		t.Errorf("missing id status = %d", rec.Code)
	}

	// A crafts for 30 >= 20; B's profit -5 stays below 100.
	srv.RunScan(context.Background(), nil)
	srv.RunScan(context.Background(), nil) // within cooldown

	var alerts []db.AlertHistoryEntry
	json.NewDecoder(do(t, srv, http.MethodGet, "/api/alerts/history", "").Body).Decode(&alerts)
	if len(alerts) != 1 {
		t.Fatalf("alerts = %+v, want exactly one", alerts)
	}
	if alerts[0].ItemID != "A" || alerts[0].CurrentValue != 30 || !strings.Contains(alerts[0].Message, "Alpha") {
		t.Errorf("alert = %+v", alerts[0])
	}

	if rec := do(t, srv, http.MethodPut, "/api/watchlist/A", `{"alert_enabled":false,"alert_metric":"profit","alert_threshold":5}`); rec.Code != 200 {
		t.Errorf("PUT status = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodPut, "/api/watchlist/ZZZ", `{}`); rec.Code != 404 {
		t.Errorf("PUT unknown status = %d", rec.Code)
	}
	var items []db.WatchlistItem
	json.NewDecoder(do(t, srv, http.MethodDelete, "/api/watchlist/A", "").Body).Decode(&items)
	if len(items) != 1 || items[0].ItemID != "B" {
		t.Errorf("after delete = %+v", items)
	}
}

func TestFormatAlertMessage(t *testing.T) {
	tests := []struct {
		metric string
		want   string
	}{
		{db.MetricProfit, "Alpha: Profit 1,234.5 coins >= 1,000"},
		{db.MetricCraftProfit, "Alpha: Craft Profit 1,234 coins >= 1,000"},
	}
	for _, tt := range tests {
		if got := formatAlertMessage("Alpha", tt.metric, 1000, 1234.5); got != tt.want {
			t.Errorf("formatAlertMessage(%s) = %q, want %q", tt.metric, got, tt.want)
		}
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
