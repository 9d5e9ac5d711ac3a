package catalog

import (
	"sort"
	"strconv"
	"strings"
)

// SlotKind tags a parsed recipe slot.
type SlotKind int

const (
	// SlotOther is an empty, non-string or malformed slot.
	SlotOther SlotKind = iota
	// SlotIngredient is an "ITEM_ID:qty" slot.
	SlotIngredient
)

// SlotValue is one parsed recipe slot. ID and Qty are set only for
// SlotIngredient.
type SlotValue struct {
	Kind SlotKind
	ID   string
	Qty  int
}

// FlatRecipe maps ingredient id -> total quantity (always >= 1).
type FlatRecipe map[string]int

// ParseSlot classifies a raw slot value. Only strings of the form
// "<id>:<positive integer>" are ingredients.
func ParseSlot(v interface{}) SlotValue {
	s, ok := v.(string)
	if !ok {
		return SlotValue{Kind: SlotOther}
	}
	id, qtyStr, found := strings.Cut(s, ":")
	if !found || id == "" || strings.Contains(qtyStr, ":") {
		return SlotValue{Kind: SlotOther}
	}
	qty, err := strconv.Atoi(qtyStr)
	if err != nil || qty < 1 {
		return SlotValue{Kind: SlotOther}
	}
	return SlotValue{Kind: SlotIngredient, ID: id, Qty: qty}
}

// Flatten sums ingredient quantities across all slots of a raw recipe.
// Slots that are not ingredients are skipped.
func Flatten(raw RawRecipe) FlatRecipe {
	out := make(FlatRecipe)
	for _, v := range raw {
		slot := ParseSlot(v)
		if slot.Kind != SlotIngredient {
			continue
		}
		out[slot.ID] += slot.Qty
	}
	return out
}

// IngredientIDs returns the recipe's ingredient ids in sorted order.
func (r FlatRecipe) IngredientIDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Recipes flattens every item recipe once. Items whose recipe yields no
// ingredients are left out.
func (c *Catalog) Recipes() map[string]FlatRecipe {
	out := make(map[string]FlatRecipe)
	if c == nil {
		return out
	}
	for id, it := range c.Items {
		if len(it.Recipe) == 0 {
			continue
		}
		flat := Flatten(it.Recipe)
		if len(flat) == 0 {
			continue
		}
		out[id] = flat
	}
	return out
}
