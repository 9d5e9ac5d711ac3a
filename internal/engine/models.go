package engine

// CraftInfo describes whether an item is worth crafting from bazaar-bought
// ingredients instead of buying it outright.
type CraftInfo struct {
	Craftable   bool           `json:"craftable"`
	CraftProfit float64        `json:"craft_profit"` // 0 unless Craftable
	CraftCost   float64        `json:"craft_cost"`   // sum of priced ingredient legs
	Anomalous   bool           `json:"anomalous,omitempty"`
	Materials   map[string]int `json:"materials"` // ingredient display name -> quantity
}

// ProfitRecord is the engine's output for one tradable item.
//
// BuyPrice is what an instant-buy costs (best sell offer); SellPrice is what
// an instant-sell returns (best buy order).
type ProfitRecord struct {
	ItemID          string    `json:"item"`
	Name            string    `json:"name"`
	WikiURL         string    `json:"wiki,omitempty"`
	BuyPrice        float64   `json:"buy_price"`
	SellPrice       float64   `json:"sell_price"`
	Profit          float64   `json:"profit"`
	SellVolume      int64     `json:"sell_volume"`
	BuyVolume       int64     `json:"buy_volume"`
	WeeklyBuyVolume int64     `json:"buy_moving_week"`
	Craft           CraftInfo `json:"craft"`
}

// ProfitPerCoin is profit relative to the capital one unit ties up.
func (r ProfitRecord) ProfitPerCoin() float64 {
	if r.BuyPrice == 0 {
		return 0
	}
	return r.Profit / r.BuyPrice
}

// Params holds the craft-evaluation thresholds.
type Params struct {
	// An ingredient whose instant-sell price exceeds its instant-buy price by
	// more than AnomalySpreadPercent percent AND AnomalySpreadAbs coins is
	// treated as bad data and zeroes the craft evaluation.
	AnomalySpreadPercent float64
	AnomalySpreadAbs     float64
	// Craft cost must exceed MaterialityRatio * item buy price for the recipe
	// to count as priced.
	MaterialityRatio float64
	// WikiBaseURL builds a wiki link from the display name when the catalog
	// entry has none. Empty disables it.
	WikiBaseURL string
}

// DefaultParams returns the stock thresholds.
func DefaultParams() Params {
	return Params{
		AnomalySpreadPercent: 80,
		AnomalySpreadAbs:     100,
		MaterialityRatio:     0.05,
	}
}

// Summary aggregates one run's records.
type Summary struct {
	Count            int     `json:"count"`
	Craftable        int     `json:"craftable"`
	TopProfit        float64 `json:"top_profit"`
	TopProfitItem    string  `json:"top_profit_item"`
	TopCraftProfit   float64 `json:"top_craft_profit"`
	TopCraftItem     string  `json:"top_craft_item"`
	TotalCraftProfit float64 `json:"total_craft_profit"`
}
