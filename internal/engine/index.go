package engine

import (
	"bazaar-flipper/internal/bazaar"
	"bazaar-flipper/internal/catalog"
)

// CraftEntry is one bazaar-tradable item together with its flattened recipe.
type CraftEntry struct {
	ItemID      string             `json:"item_id"`
	Ingredients catalog.FlatRecipe `json:"ingredients"`
}

// CraftIndex lists the catalog recipes whose product is traded on the
// bazaar, keyed by item id.
func CraftIndex(cat *catalog.Catalog, snap *bazaar.Snapshot) map[string]CraftEntry {
	out := make(map[string]CraftEntry)
	if snap == nil {
		return out
	}
	for id, recipe := range cat.Recipes() {
		if _, ok := snap.Products[id]; !ok {
			continue
		}
		out[id] = CraftEntry{ItemID: id, Ingredients: recipe}
	}
	return out
}

// IngredientNames maps the display name of every ingredient used by a
// bazaar-tradable recipe to its item id. Used to match auction listings,
// which only carry names.
func IngredientNames(cat *catalog.Catalog, index map[string]CraftEntry) map[string]string {
	out := make(map[string]string)
	for _, e := range index {
		for ingID := range e.Ingredients {
			it, ok := cat.Get(ingID)
			if !ok || it.Name == "" {
				continue
			}
			out[it.Name] = ingID
		}
	}
	return out
}
