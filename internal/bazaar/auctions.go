package bazaar

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// LowestAuction is the cheapest BIN listing seen for one item.
type LowestAuction struct {
	ItemID    string  `json:"item_id"`
	ItemName  string  `json:"item_name"`
	Price     float64 `json:"price"`
	AuctionID string  `json:"auction_id"`
}

// AuctionScan is the outcome of one pass over the auction house.
type AuctionScan struct {
	Pages       int             `json:"pages"`
	FailedPages int             `json:"failed_pages"`
	Processed   int             `json:"processed"` // matching BIN auctions seen
	Lowest      []LowestAuction `json:"lowest"`
}

// FetchLowestBIN pages through the auction house and keeps, for every item
// in wanted (display name -> item id), the cheapest buy-it-now listing.
// Page 0 must succeed; later pages that fail are counted and skipped.
func (c *Client) FetchLowestBIN(ctx context.Context, wanted map[string]string, workers int) (*AuctionScan, error) {
	var first AuctionPage
	if err := c.GetJSON(ctx, c.pageURL(0), &first); err != nil {
		return nil, fmt.Errorf("fetch auctions page 0: %w", err)
	}
	if !first.Success {
		return nil, ErrUnavailable
	}

	var (
		mu     sync.Mutex
		failed int
		seen   int
		lowest = make(map[string]LowestAuction)
	)
	collect := func(page *AuctionPage) {
		mu.Lock()
		defer mu.Unlock()
		seen += mergeLowest(lowest, page.Auctions, wanted)
	}
	collect(&first)

	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for p := 1; p < first.TotalPages; p++ {
		pageNum := p
		g.Go(func() error {
			var page AuctionPage
			if err := c.GetJSON(gctx, c.pageURL(pageNum), &page); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			collect(&page)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]LowestAuction, 0, len(lowest))
	for _, a := range lowest {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })

	pages := first.TotalPages
	if pages < 1 {
		pages = 1
	}
	return &AuctionScan{
		Pages:       pages,
		FailedPages: failed,
		Processed:   seen,
		Lowest:      out,
	}, nil
}

func (c *Client) pageURL(page int) string {
	return fmt.Sprintf("%s?page=%d", c.auctionsURL, page)
}

// mergeLowest folds BIN auctions of wanted items into lowest and returns how
// many matched.
func mergeLowest(lowest map[string]LowestAuction, auctions []Auction, wanted map[string]string) int {
	n := 0
	for _, a := range auctions {
		if !a.BIN {
			continue
		}
		id, ok := wanted[a.ItemName]
		if !ok {
			continue
		}
		n++
		cur, ok := lowest[id]
		if !ok || a.StartingBid < cur.Price {
			lowest[id] = LowestAuction{
				ItemID:    id,
				ItemName:  a.ItemName,
				Price:     a.StartingBid,
				AuctionID: a.UUID,
			}
		}
	}
	return n
}
