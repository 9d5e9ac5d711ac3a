// Package catalog holds the static item/recipe reference data.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"bazaar-flipper/internal/logger"
)

// ErrEmpty is returned when a catalog file parses but holds no items.
var ErrEmpty = errors.New("catalog: no items")

// RawRecipe is an item's recipe as stored: slot label -> slot value. Values
// are usually "ITEM_ID:qty" strings but may be empty strings or numbers.
type RawRecipe map[string]interface{}

// Item is one static item definition.
type Item struct {
	ID      string    `json:"itemId"`
	Name    string    `json:"name"`
	WikiURL string    `json:"wiki,omitempty"`
	Recipe  RawRecipe `json:"recipe,omitempty"`
}

// Catalog maps item id -> definition. It is read-only once loaded.
type Catalog struct {
	Items map[string]*Item
}

// New builds a catalog from a list of items, keyed by ID.
func New(items ...*Item) *Catalog {
	c := &Catalog{Items: make(map[string]*Item, len(items))}
	for _, it := range items {
		if it == nil || it.ID == "" {
			continue
		}
		c.Items[it.ID] = it
	}
	return c
}

// Len returns the number of items; nil-safe.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

// Get returns the item with the given id.
func (c *Catalog) Get(id string) (*Item, bool) {
	if c == nil {
		return nil, false
	}
	it, ok := c.Items[id]
	return it, ok
}

// DisplayName resolves an id to its display name, falling back to the id.
func (c *Catalog) DisplayName(id string) string {
	if it, ok := c.Get(id); ok && it.Name != "" {
		return it.Name
	}
	return id
}

// IDs returns all item ids in sorted order.
func (c *Catalog) IDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.Items))
	for id := range c.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// catalogEntry is one items.json value before its recipe is checked.
type catalogEntry struct {
	ID      string          `json:"itemId"`
	Name    string          `json:"name"`
	WikiURL string          `json:"wiki"`
	Recipe  json.RawMessage `json:"recipe"`
}

// parseRecipe decodes a stored recipe. A value that is not an object yields
// a nil recipe and false; a missing or null recipe is nil and true.
func parseRecipe(raw json.RawMessage) (RawRecipe, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, true
	}
	var recipe RawRecipe
	if err := json.Unmarshal(raw, &recipe); err != nil {
		return nil, false
	}
	return recipe, true
}

// Load reads an items.json catalog: {"ITEM_ID": {"name", "recipe", "itemId", "wiki"}}.
// Entries that fail to decode are skipped, and a recipe that is not an object
// leaves its item uncraftable; neither aborts the load.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	c := &Catalog{Items: make(map[string]*Item, len(entries))}
	for key, body := range entries {
		var e catalogEntry
		if err := json.Unmarshal(body, &e); err != nil {
			logger.Warn("Catalog", fmt.Sprintf("Skipping %s: %v", key, err))
			continue
		}
		if string(body) == "null" {
			continue
		}
		recipe, ok := parseRecipe(e.Recipe)
		if !ok {
			logger.Warn("Catalog", fmt.Sprintf("Ignoring malformed recipe for %s", key))
		}
		// The map key is authoritative; itemId is informational.
		c.Items[key] = &Item{ID: key, Name: e.Name, WikiURL: e.WikiURL, Recipe: recipe}
	}
	if len(c.Items) == 0 {
		return nil, ErrEmpty
	}
	logger.Info("Catalog", fmt.Sprintf("Loaded %d items from %s", len(c.Items), path))
	return c, nil
}

// Save writes the catalog in the items.json layout.
func (c *Catalog) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c.Items, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// FileProvider loads the catalog from a file on every call.
type FileProvider struct {
	Path string
}

// LoadCatalog implements engine.CatalogProvider.
func (p FileProvider) LoadCatalog() (*Catalog, error) {
	return Load(p.Path)
}
