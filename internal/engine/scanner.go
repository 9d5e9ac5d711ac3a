package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bazaar-flipper/internal/bazaar"
	"bazaar-flipper/internal/catalog"
)

// ErrNoData means the catalog or the market snapshot could not be obtained.
var ErrNoData = errors.New("no data")

// MarketProvider supplies one bazaar snapshot per call.
type MarketProvider interface {
	FetchSnapshot(ctx context.Context) (*bazaar.Snapshot, error)
}

// CatalogProvider supplies the full static catalog.
type CatalogProvider interface {
	LoadCatalog() (*catalog.Catalog, error)
}

// AuctionSource finds the cheapest BIN listing for a set of item names.
type AuctionSource interface {
	FetchLowestBIN(ctx context.Context, wanted map[string]string, workers int) (*bazaar.AuctionScan, error)
}

// ScanResult is the outcome of one scan.
type ScanResult struct {
	RunID        string         `json:"run_id"`
	StartedAt    time.Time      `json:"started_at"`
	Duration     time.Duration  `json:"duration"`
	SnapshotTime time.Time      `json:"snapshot_time"`
	Summary      Summary        `json:"summary"`
	Records      []ProfitRecord `json:"records"`

	Catalog  *catalog.Catalog `json:"-"`
	Snapshot *bazaar.Snapshot `json:"-"`
}

// Scanner loads both inputs and runs the profitability engine over them.
type Scanner struct {
	Market   MarketProvider
	Catalog  CatalogProvider
	Auctions AuctionSource
	Params   Params
}

// NewScanner creates a Scanner with default thresholds.
func NewScanner(market MarketProvider, cat CatalogProvider) *Scanner {
	return &Scanner{
		Market:  market,
		Catalog: cat,
		Params:  DefaultParams(),
	}
}

// load fetches the catalog and the snapshot concurrently.
func (s *Scanner) load(ctx context.Context) (*catalog.Catalog, *bazaar.Snapshot, error) {
	var (
		cat  *catalog.Catalog
		snap *bazaar.Snapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.Catalog.LoadCatalog()
		if err != nil {
			return fmt.Errorf("%w: catalog: %w", ErrNoData, err)
		}
		cat = c
		return nil
	})
	g.Go(func() error {
		sn, err := s.Market.FetchSnapshot(gctx)
		if err != nil {
			return fmt.Errorf("%w: bazaar: %w", ErrNoData, err)
		}
		snap = sn
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if cat.Len() == 0 {
		return nil, nil, fmt.Errorf("%w: catalog is empty", ErrNoData)
	}
	if snap == nil || len(snap.Products) == 0 {
		return nil, nil, fmt.Errorf("%w: bazaar snapshot is empty", ErrNoData)
	}
	return cat, snap, nil
}

// Run performs one full scan. progress may be nil.
func (s *Scanner) Run(ctx context.Context, progress func(string)) (*ScanResult, error) {
	if progress == nil {
		progress = func(string) {}
	}
	started := time.Now()

	progress("Loading catalog and bazaar snapshot...")
	cat, snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	progress(fmt.Sprintf("Computing profitability for %d products...", len(snap.Products)))
	records := Compute(snap, cat, s.Params)

	res := &ScanResult{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Duration:  time.Since(started),
		Summary:   Summarize(records),
		Records:   records,
		Catalog:   cat,
		Snapshot:  snap,
	}
	if snap.LastUpdated > 0 {
		res.SnapshotTime = time.UnixMilli(snap.LastUpdated)
	}
	progress(fmt.Sprintf("Found %d tradable items, %d craftable", res.Summary.Count, res.Summary.Craftable))
	return res, nil
}

// ScanAuctions finds the cheapest BIN listing for every ingredient used by a
// bazaar-tradable recipe.
func (s *Scanner) ScanAuctions(ctx context.Context, workers int, progress func(string)) (*bazaar.AuctionScan, error) {
	if s.Auctions == nil {
		return nil, errors.New("auction source not configured")
	}
	if progress == nil {
		progress = func(string) {}
	}
	cat, snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	wanted := IngredientNames(cat, CraftIndex(cat, snap))
	progress(fmt.Sprintf("Scanning auction house for %d ingredients...", len(wanted)))
	if len(wanted) == 0 {
		return &bazaar.AuctionScan{Lowest: []bazaar.LowestAuction{}}, nil
	}
	return s.Auctions.FetchLowestBIN(ctx, wanted, workers)
}
