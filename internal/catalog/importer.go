package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"bazaar-flipper/internal/logger"
)

// formattingCode matches in-game text formatting codes such as "§6" or "§l".
var formattingCode = regexp.MustCompile(`§.`)

// StripFormatting removes in-game formatting codes from s.
func StripFormatting(s string) string {
	return strings.TrimSpace(formattingCode.ReplaceAllString(s, ""))
}

// neuItem is the subset of a community repo item file used for the catalog.
type neuItem struct {
	InternalName string          `json:"internalname"`
	DisplayName  string          `json:"displayname"`
	Recipe       json.RawMessage `json:"recipe"`
	Info         json.RawMessage `json:"info"`
}

// ImportItems builds a catalog from a directory of already extracted item
// definition files (one JSON object per file). Malformed files are skipped.
func ImportItems(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("import items: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("import items: %s is not a directory", dir)
	}

	c := &Catalog{Items: make(map[string]*Item)}
	skipped := 0
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}
		it, perr := parseItemFile(path)
		if perr != nil {
			skipped++
			logger.Warn("Catalog", fmt.Sprintf("Skipping %s: %v", filepath.Base(path), perr))
			return nil
		}
		if it == nil {
			return nil
		}
		c.Items[it.ID] = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, ErrEmpty
	}

	logger.Section("Catalog Import")
	logger.Stats("Items", len(c.Items))
	logger.Stats("Craftable", len(c.Recipes()))
	logger.Stats("Skipped files", skipped)
	return c, nil
}

func parseItemFile(path string) (*Item, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var n neuItem
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, err
	}
	if n.InternalName == "" {
		return nil, nil
	}
	recipe, _ := parseRecipe(n.Recipe)
	return &Item{
		ID:      n.InternalName,
		Name:    StripFormatting(n.DisplayName),
		WikiURL: lastInfoLink(n.Info),
		Recipe:  recipe,
	}, nil
}

// lastInfoLink returns the last entry of the "info" list; older files
// carry a plain string there.
func lastInfoLink(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return ""
		}
		return list[len(list)-1]
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
