package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != 3000 || cfg.Backend != BackendSQLite {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestLoadConfigMergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"backend": "sheets", "spreadsheet_id": "abc123"}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Backend != BackendSheets {
		t.Errorf("Expected sheets backend, got %q", cfg.Backend)
	}
	if cfg.SpreadsheetID != "abc123" {
		t.Errorf("Expected spreadsheet id kept, got %q", cfg.SpreadsheetID)
	}
	if cfg.Port != 3000 || cfg.SheetName != "Sheet1" {
		t.Errorf("Expected defaults merged into zero fields, got %+v", cfg)
	}
}
