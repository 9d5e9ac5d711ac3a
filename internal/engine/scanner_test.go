package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"bazaar-flipper/internal/bazaar"
	"bazaar-flipper/internal/catalog"
)

type fakeMarket struct {
	snap *bazaar.Snapshot
	err  error
}

func (f fakeMarket) FetchSnapshot(ctx context.Context) (*bazaar.Snapshot, error) {
	return f.snap, f.err
}

type fakeCatalog struct {
	cat *catalog.Catalog
	err error
}

func (f fakeCatalog) LoadCatalog() (*catalog.Catalog, error) {
	return f.cat, f.err
}

type fakeAuctions struct {
	gotWanted  map[string]string
	gotWorkers int
}

func (f *fakeAuctions) FetchLowestBIN(ctx context.Context, wanted map[string]string, workers int) (*bazaar.AuctionScan, error) {
	f.gotWanted = wanted
	f.gotWorkers = workers
	return &bazaar.AuctionScan{Pages: 1, Lowest: []bazaar.LowestAuction{{ItemID: "B", ItemName: "Beta", Price: 20}}}, nil
}

func TestScannerRun(t *testing.T) {
	snap, cat := exampleInputs()
	snap.LastUpdated = 1700000000000
	s := NewScanner(fakeMarket{snap: snap}, fakeCatalog{cat: cat})

	var msgs []string
	res, err := s.Run(context.Background(), func(m string) { msgs = append(msgs, m) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RunID == "" {
		t.Error("RunID should be set")
	}
	if len(res.Records) != 2 || res.Summary.Count != 2 || res.Summary.Craftable != 1 {
		t.Errorf("result = %d records, summary %+v", len(res.Records), res.Summary)
	}
	if !res.SnapshotTime.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("SnapshotTime = %v", res.SnapshotTime)
	}
	if len(msgs) == 0 {
		t.Error("expected progress messages")
	}
}

func TestScannerRun_NilProgress(t *testing.T) {
	snap, cat := exampleInputs()
	s := NewScanner(fakeMarket{snap: snap}, fakeCatalog{cat: cat})
	if _, err := s.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestScannerRun_NoData(t *testing.T) {
	snap, cat := exampleInputs()
	tests := []struct {
		name   string
		market fakeMarket
		cat    fakeCatalog
	}{
		{"bazaar error", fakeMarket{err: bazaar.ErrUnavailable}, fakeCatalog{cat: cat}},
		{"catalog error", fakeMarket{snap: snap}, fakeCatalog{err: catalog.ErrEmpty}},
		{"empty catalog", fakeMarket{snap: snap}, fakeCatalog{cat: catalog.New()}},
		{"empty snapshot", fakeMarket{snap: &bazaar.Snapshot{Success: true}}, fakeCatalog{cat: cat}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScanner(tt.market, tt.cat)
			_, err := s.Run(context.Background(), nil)
			if !errors.Is(err, ErrNoData) {
				t.Fatalf("err = %v, want ErrNoData", err)
			}
		})
	}
}

func TestScannerRun_WrapsCause(t *testing.T) {
	_, cat := exampleInputs()
	s := NewScanner(fakeMarket{err: bazaar.ErrUnavailable}, fakeCatalog{cat: cat})
	_, err := s.Run(context.Background(), nil)
	if !errors.Is(err, bazaar.ErrUnavailable) {
		t.Fatalf("err = %v, want wrapped ErrUnavailable", err)
	}
}

func TestScannerScanAuctions(t *testing.T) {
	snap, cat := exampleInputs()
	s := NewScanner(fakeMarket{snap: snap}, fakeCatalog{cat: cat})
	if _, err := s.ScanAuctions(context.Background(), 4, nil); err == nil {
		t.Fatal("expected error without an auction source")
	}

	fa := &fakeAuctions{}
	s.Auctions = fa
	scan, err := s.ScanAuctions(context.Background(), 4, nil)
	if err != nil {
		t.Fatalf("ScanAuctions: %v", err)
	}
	if fa.gotWorkers != 4 {
		t.Errorf("workers = %d, want 4", fa.gotWorkers)
	}
	if len(fa.gotWanted) != 1 || fa.gotWanted["Beta"] != "B" {
		t.Errorf("wanted = %v, want {Beta: B}", fa.gotWanted)
	}
	if len(scan.Lowest) != 1 {
		t.Errorf("Lowest = %v", scan.Lowest)
	}
}

func TestCraftIndex(t *testing.T) {
	cat := catalog.New(
		&catalog.Item{ID: "A", Name: "Alpha", Recipe: catalog.RawRecipe{"1": "B:2", "2": "B:1", "3": ""}},
		&catalog.Item{ID: "OFF_BAZAAR", Name: "Off", Recipe: catalog.RawRecipe{"1": "B:1"}},
		&catalog.Item{ID: "B", Name: "Beta"},
	)
	snap := snapshotOf(map[string]bazaar.Product{
		"A": book(100, 5, 90, 5),
		"B": book(30, 10, 25, 10),
	})
	idx := CraftIndex(cat, snap)
	if len(idx) != 1 {
		t.Fatalf("len(index) = %d, want 1", len(idx))
	}
	if idx["A"].Ingredients["B"] != 3 {
		t.Errorf("A ingredients = %v, want B:3", idx["A"].Ingredients)
	}
	if got := CraftIndex(cat, nil); len(got) != 0 {
		t.Errorf("nil snapshot index = %v", got)
	}
	names := IngredientNames(cat, idx)
	if len(names) != 1 || names["Beta"] != "B" {
		t.Errorf("IngredientNames = %v", names)
	}
}
