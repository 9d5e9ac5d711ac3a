package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ItemsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	body := `{
		"ENCHANTED_BREAD": {"name": "Enchanted Bread", "recipe": {"A1": "WHEAT:10", "A2": "WHEAT:50", "A3": ""}, "itemId": "ENCHANTED_BREAD", "wiki": "https://wiki.hypixel.net/Enchanted_Bread"},
		"WHEAT": {"name": "Wheat", "recipe": {}, "itemId": "WHEAT", "wiki": ""}
	}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	bread, ok := c.Get("ENCHANTED_BREAD")
	if !ok {
		t.Fatal("ENCHANTED_BREAD missing")
	}
	if bread.WikiURL != "https://wiki.hypixel.net/Enchanted_Bread" {
		t.Errorf("WikiURL = %q", bread.WikiURL)
	}
	if got := c.Recipes()["ENCHANTED_BREAD"]["WHEAT"]; got != 60 {
		t.Errorf("flattened WHEAT = %d, want 60", got)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Load(missing) should fail")
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0644)
	if _, err := Load(bad); err == nil {
		t.Error("Load(bad json) should fail")
	}

	empty := filepath.Join(dir, "empty.json")
	os.WriteFile(empty, []byte("{}"), 0644)
	if _, err := Load(empty); !errors.Is(err, ErrEmpty) {
		t.Errorf("Load(empty) err = %v, want ErrEmpty", err)
	}
}

func TestLoad_MalformedEntriesDoNotAbort(t *testing.T) {
	tests := []struct {
		name string
		bad  string
	}{
		{"empty string recipe", `{"name": "Bad", "recipe": ""}`},
		{"array recipe", `{"name": "Bad", "recipe": []}`},
		{"numeric recipe", `{"name": "Bad", "recipe": 7}`},
		{"entry not an object", `"Bad"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "items.json")
			body := `{"A": {"name": "Alpha", "recipe": {"A1": "B:2"}}, "BAD": ` + tt.bad + `}`
			if err := os.WriteFile(path, []byte(body), 0644); err != nil {
				t.Fatal(err)
			}

			c, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := c.Recipes(); len(got) != 1 || got["A"]["B"] != 2 {
				t.Errorf("Recipes() = %v, want only A with B:2", got)
			}
			if bad, ok := c.Get("BAD"); ok && bad.Recipe != nil {
				t.Errorf("BAD recipe = %v, want nil", bad.Recipe)
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "items.json")
	c := New(&Item{ID: "A", Name: "Alpha", Recipe: RawRecipe{"1": "B:2"}})
	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.DisplayName("A") != "Alpha" {
		t.Errorf("DisplayName(A) = %q", got.DisplayName("A"))
	}
}

func TestDisplayName_FallsBackToID(t *testing.T) {
	c := New(&Item{ID: "A", Name: "Alpha"}, &Item{ID: "N"})
	if got := c.DisplayName("A"); got != "Alpha" {
		t.Errorf("DisplayName(A) = %q", got)
	}
	if got := c.DisplayName("N"); got != "N" {
		t.Errorf("DisplayName(N) with empty name = %q, want N", got)
	}
	if got := c.DisplayName("UNKNOWN"); got != "UNKNOWN" {
		t.Errorf("DisplayName(UNKNOWN) = %q", got)
	}
	var nilCat *Catalog
	if got := nilCat.DisplayName("X"); got != "X" {
		t.Errorf("nil catalog DisplayName = %q", got)
	}
}

func TestStripFormatting(t *testing.T) {
	tests := map[string]string{
		"§9Enchanted Diamond": "Enchanted Diamond",
		"§6§lGolden Tooth":    "Golden Tooth",
		"Plain":               "Plain",
		"§fWheat §7(x64)":     "Wheat (x64)",
		"":                    "",
	}
	for in, want := range tests {
		if got := StripFormatting(in); got != want {
			t.Errorf("StripFormatting(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestImportItems(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"ENCHANTED_BREAD.json": `{"internalname":"ENCHANTED_BREAD","displayname":"§aEnchanted Bread",
			"recipe":{"A1":"WHEAT:10","A2":"WHEAT:10","A3":""},
			"info":["https://hypixel-skyblock.fandom.com/wiki/Enchanted_Bread","https://wiki.hypixel.net/Enchanted_Bread"]}`,
		"WHEAT.json":  `{"internalname":"WHEAT","displayname":"§fWheat","info":"https://wiki.hypixel.net/Wheat"}`,
		"ODD.json":    `{"internalname":"ODD","displayname":"Odd","recipe":["not","an","object"]}`,
		"BROKEN.json": `{"internalname":`,
		"notes.txt":   `ignored`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}

	c, err := ImportItems(dir)
	if err != nil {
		t.Fatalf("ImportItems: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3 (broken file skipped)", c.Len())
	}
	bread, _ := c.Get("ENCHANTED_BREAD")
	if bread.Name != "Enchanted Bread" {
		t.Errorf("Name = %q", bread.Name)
	}
	if bread.WikiURL != "https://wiki.hypixel.net/Enchanted_Bread" {
		t.Errorf("WikiURL = %q, want last info link", bread.WikiURL)
	}
	wheat, _ := c.Get("WHEAT")
	if wheat.WikiURL != "https://wiki.hypixel.net/Wheat" {
		t.Errorf("WHEAT WikiURL = %q", wheat.WikiURL)
	}
	odd, _ := c.Get("ODD")
	if len(odd.Recipe) != 0 {
		t.Errorf("ODD recipe = %v, want empty", odd.Recipe)
	}
	if got := c.Recipes()["ENCHANTED_BREAD"]["WHEAT"]; got != 20 {
		t.Errorf("flattened WHEAT = %d, want 20", got)
	}
}

func TestImportItems_NotADirectory(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.json")
	os.WriteFile(f, []byte("{}"), 0644)
	if _, err := ImportItems(f); err == nil {
		t.Error("ImportItems(file) should fail")
	}
}
