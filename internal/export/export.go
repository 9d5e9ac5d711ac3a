// Package export writes scan artifacts as indented JSON files.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"bazaar-flipper/internal/bazaar"
	"bazaar-flipper/internal/engine"
	"bazaar-flipper/internal/logger"
)

// File names inside the export directory.
const (
	ProfitsFile     = "Profits.json"
	IngredientsFile = "Ingredients.json"
	AuctionsFile    = "lowest_auction_data.json"
)

// WriteProfits writes the records as a JSON array.
func WriteProfits(dir string, records []engine.ProfitRecord) (string, error) {
	if records == nil {
		records = []engine.ProfitRecord{}
	}
	return writeJSON(dir, ProfitsFile, records)
}

// WriteIngredients writes the craft index keyed by item id.
func WriteIngredients(dir string, index map[string]engine.CraftEntry) (string, error) {
	if index == nil {
		index = map[string]engine.CraftEntry{}
	}
	return writeJSON(dir, IngredientsFile, index)
}

// WriteLowestAuctions writes the cheapest BIN listing per item.
func WriteLowestAuctions(dir string, lowest []bazaar.LowestAuction) (string, error) {
	if lowest == nil {
		lowest = []bazaar.LowestAuction{}
	}
	return writeJSON(dir, AuctionsFile, lowest)
}

// writeJSON replaces dir/name via a temp file so readers never see a
// half-written artifact.
func writeJSON(dir, name string, v interface{}) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export %s: %w", name, err)
	}
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return "", fmt.Errorf("export %s: %w", name, err)
	}
	path := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("export %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("export %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("export %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("export %s: %w", name, err)
	}
	logger.Info("Export", fmt.Sprintf("Wrote %s", path))
	return path, nil
}
