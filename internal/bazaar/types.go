package bazaar

// OrderSummary is one aggregated price level of a product's order book.
type OrderSummary struct {
	Amount       int64   `json:"amount"`
	PricePerUnit float64 `json:"pricePerUnit"`
	Orders       int     `json:"orders"`
}

// QuickStatus mirrors the bazaar quick_status block. Only BuyMovingWeek is
// used by the engine (trailing weekly instant-buy volume).
type QuickStatus struct {
	ProductID      string  `json:"productId"`
	SellPrice      float64 `json:"sellPrice"`
	SellVolume     int64   `json:"sellVolume"`
	SellMovingWeek int64   `json:"sellMovingWeek"`
	SellOrders     int     `json:"sellOrders"`
	BuyPrice       float64 `json:"buyPrice"`
	BuyVolume      int64   `json:"buyVolume"`
	BuyMovingWeek  int64   `json:"buyMovingWeek"`
	BuyOrders      int     `json:"buyOrders"`
}

// Product is the order-book summary of one item.
//
// SellSummary lists active sell offers, cheapest first: its head is what an
// instant-buy pays. BuySummary lists active buy orders, highest first: its
// head is what an instant-sell receives.
type Product struct {
	ProductID   string         `json:"product_id"`
	SellSummary []OrderSummary `json:"sell_summary"`
	BuySummary  []OrderSummary `json:"buy_summary"`
	QuickStatus *QuickStatus   `json:"quick_status,omitempty"`
}

// BestSellOrder returns the lowest active sell offer.
func (p Product) BestSellOrder() (OrderSummary, bool) {
	if len(p.SellSummary) == 0 {
		return OrderSummary{}, false
	}
	return p.SellSummary[0], true
}

// BestBuyOrder returns the highest active buy order.
func (p Product) BestBuyOrder() (OrderSummary, bool) {
	if len(p.BuySummary) == 0 {
		return OrderSummary{}, false
	}
	return p.BuySummary[0], true
}

// WeeklyBuyVolume returns the trailing weekly counter, if the API sent one.
func (p Product) WeeklyBuyVolume() (int64, bool) {
	if p.QuickStatus == nil {
		return 0, false
	}
	return p.QuickStatus.BuyMovingWeek, true
}

// Snapshot is one point-in-time read of every bazaar product.
type Snapshot struct {
	Success     bool               `json:"success"`
	LastUpdated int64              `json:"lastUpdated"` // unix millis
	Products    map[string]Product `json:"products"`
}

// Auction is the subset of an auction-house listing the scan needs.
type Auction struct {
	UUID        string  `json:"uuid"`
	ItemName    string  `json:"item_name"`
	StartingBid float64 `json:"starting_bid"`
	BIN         bool    `json:"bin"`
}

// AuctionPage mirrors one page of /skyblock/auctions.
type AuctionPage struct {
	Success       bool      `json:"success"`
	Page          int       `json:"page"`
	TotalPages    int       `json:"totalPages"`
	TotalAuctions int       `json:"totalAuctions"`
	LastUpdated   int64     `json:"lastUpdated"`
	Auctions      []Auction `json:"auctions"`
}
