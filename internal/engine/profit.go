package engine

import (
	"net/url"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"bazaar-flipper/internal/bazaar"
	"bazaar-flipper/internal/catalog"
)

// ComputeProfitability runs Compute with DefaultParams.
func ComputeProfitability(snap *bazaar.Snapshot, cat *catalog.Catalog) []ProfitRecord {
	return Compute(snap, cat, DefaultParams())
}

// Compute derives one ProfitRecord per bazaar product that has both an
// active sell offer and an active buy order with non-zero prices. Records are
// ordered by item id. A missing snapshot or catalog yields an empty list.
func Compute(snap *bazaar.Snapshot, cat *catalog.Catalog, params Params) []ProfitRecord {
	records := []ProfitRecord{}
	if snap == nil || len(snap.Products) == 0 || cat.Len() == 0 {
		return records
	}

	recipes := cat.Recipes()

	ids := make([]string, 0, len(snap.Products))
	for id := range snap.Products {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		product := snap.Products[id]
		bestSell, okSell := product.BestSellOrder()
		bestBuy, okBuy := product.BestBuyOrder()
		if !okSell || !okBuy {
			continue
		}
		buyPrice := bestSell.PricePerUnit
		sellPrice := bestBuy.PricePerUnit
		if buyPrice == 0 || sellPrice == 0 {
			continue
		}

		rec := ProfitRecord{
			ItemID:     id,
			Name:       cat.DisplayName(id),
			WikiURL:    wikiURL(cat, id, params.WikiBaseURL),
			BuyPrice:   buyPrice,
			SellPrice:  sellPrice,
			Profit:     roundTo(sellPrice-buyPrice, 1),
			SellVolume: bestSell.Amount,
			BuyVolume:  bestBuy.Amount,
			Craft:      CraftInfo{Materials: map[string]int{}},
		}
		if w, ok := product.WeeklyBuyVolume(); ok {
			rec.WeeklyBuyVolume = w
		}
		if recipe, ok := recipes[id]; ok {
			rec.Craft = evaluateCraft(recipe, snap, cat, params, buyPrice, sellPrice)
		}
		records = append(records, rec)
	}
	return records
}

// evaluateCraft prices a flattened recipe against the snapshot. Ingredients
// with an empty order-book side cost nothing.
func evaluateCraft(recipe catalog.FlatRecipe, snap *bazaar.Snapshot, cat *catalog.Catalog, params Params, buyPrice, sellPrice float64) CraftInfo {
	info := CraftInfo{Materials: make(map[string]int, len(recipe))}
	cost := decimal.Zero
	anomalous := false

	for _, ingID := range recipe.IngredientIDs() {
		qty := recipe[ingID]
		info.Materials[cat.DisplayName(ingID)] += qty

		ing, ok := snap.Products[ingID]
		if !ok {
			continue
		}
		ask, okAsk := ing.BestSellOrder()
		bid, okBid := ing.BestBuyOrder()
		if !okAsk || !okBid {
			continue
		}
		if isAnomalousSpread(ask.PricePerUnit, bid.PricePerUnit, params) {
			anomalous = true
		}
		leg := decimal.NewFromFloat(ask.PricePerUnit).Round(1).Mul(decimal.NewFromInt(int64(qty)))
		cost = cost.Add(leg)
	}

	if anomalous {
		info.Anomalous = true
		return info
	}

	info.CraftCost = cost.InexactFloat64()
	if info.CraftCost <= params.MaterialityRatio*buyPrice {
		return info
	}
	profit := decimal.NewFromFloat(sellPrice).Sub(cost).Round(0).InexactFloat64()
	if profit > 0 {
		info.Craftable = true
		info.CraftProfit = profit
	}
	return info
}

// isAnomalousSpread reports an ingredient whose instant-sell price sits far
// above its instant-buy price, which only happens with manipulated books.
func isAnomalousSpread(ask, bid float64, params Params) bool {
	if ask <= 0 {
		return false
	}
	pct := (bid/ask - 1) * 100
	return pct > params.AnomalySpreadPercent && bid-ask > params.AnomalySpreadAbs
}

func wikiURL(cat *catalog.Catalog, id, base string) string {
	it, ok := cat.Get(id)
	if !ok {
		return ""
	}
	if it.WikiURL != "" {
		return it.WikiURL
	}
	if base == "" || it.Name == "" || it.Name == id {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(strings.ReplaceAll(it.Name, " ", "_"))
}

// Summarize aggregates records for history and console output.
func Summarize(records []ProfitRecord) Summary {
	s := Summary{Count: len(records)}
	for i, r := range records {
		if i == 0 || r.Profit > s.TopProfit {
			s.TopProfit = r.Profit
			s.TopProfitItem = r.ItemID
		}
		if !r.Craft.Craftable {
			continue
		}
		s.Craftable++
		s.TotalCraftProfit += r.Craft.CraftProfit
		if r.Craft.CraftProfit > s.TopCraftProfit {
			s.TopCraftProfit = r.Craft.CraftProfit
			s.TopCraftItem = r.ItemID
		}
	}
	return s
}

// SortByProfit orders records by direct profit, highest first. Ties keep
// item-id order.
func SortByProfit(records []ProfitRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Profit > records[j].Profit
	})
}

// SortByCraftProfit orders records by craft profit, highest first.
func SortByCraftProfit(records []ProfitRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Craft.CraftProfit > records[j].Craft.CraftProfit
	})
}

// FilterCraftable returns the craftable records, preserving order.
func FilterCraftable(records []ProfitRecord) []ProfitRecord {
	out := make([]ProfitRecord, 0, len(records))
	for _, r := range records {
		if r.Craft.Craftable {
			out = append(out, r)
		}
	}
	return out
}
