// Package config centralizes runtime configuration for fbd. It loads a
// JSON configuration file and exposes defaults good enough for local
// development, so tests and dev builds run with no file present.
// Operators point CONFIG_FILE at a JSON file for production settings;
// credentials and the spreadsheet id can also arrive via environment
// variables (see main).
package config

import (
	"encoding/json"
	"os"
)

// Backend names for the ledger store.
const (
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
)

// Config holds configurable options for the fbd service.
type Config struct {
	Port                  int    `json:"port"`
	DocRoot               string `json:"doc_root"`
	Backend               string `json:"backend"` // sqlite or sheets
	DBFile                string `json:"db_file"`
	SpreadsheetID         string `json:"spreadsheet_id"`
	SheetName             string `json:"sheet_name"`
	CredentialsFile       string `json:"credentials_file"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
	LogBuffer             int    `json:"log_buffer"`
}

func defaults() *Config {
	return &Config{
		Port:                  3000,
		DocRoot:               "public",
		Backend:               BackendSQLite,
		DBFile:                "flowerboard.db",
		SheetName:             "Sheet1",
		CredentialsFile:       "credentials.json",
		RequestTimeoutSeconds: 10,
		LogBuffer:             200,
	}
}

// LoadConfig reads a JSON file at path. If the file does not exist or
// cannot be parsed, LoadConfig returns defaults (and no error) so the
// application can run in development with minimal friction.
func LoadConfig(path string) (*Config, error) {
	def := defaults()

	if path == "" {
		return def, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return def, nil
	}

	var c Config
	if err := json.Unmarshal(b, &c); err != nil {
		return def, nil
	}

	// merge defaults for any zero-value fields
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.DocRoot == "" {
		c.DocRoot = def.DocRoot
	}
	if c.Backend == "" {
		c.Backend = def.Backend
	}
	if c.DBFile == "" {
		c.DBFile = def.DBFile
	}
	if c.SheetName == "" {
		c.SheetName = def.SheetName
	}
	if c.CredentialsFile == "" {
		c.CredentialsFile = def.CredentialsFile
	}
	if c.RequestTimeoutSeconds == 0 {
		c.RequestTimeoutSeconds = def.RequestTimeoutSeconds
	}
	if c.LogBuffer == 0 {
		c.LogBuffer = def.LogBuffer
	}

	return &c, nil
}
