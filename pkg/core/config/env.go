package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Settings are the process-level knobs that do not belong in a run file:
// credentials, endpoints and local paths. They come from the environment,
// usually via a .env file loaded by the binary.
type Settings struct {
	// DatabaseURL enables the Postgres run store when set.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	// FMPAPIKey authorizes the market profile client.
	FMPAPIKey string `envconfig:"FMP_API_KEY"`
	// FinnhubAPIKey authorizes the peer listing client.
	FinnhubAPIKey string `envconfig:"FINNHUB_API_KEY"`
	// ERPWorkbook points at a country risk workbook overriding the
	// compiled-in table.
	ERPWorkbook string `envconfig:"ERP_WORKBOOK"`
	// ColumnMapping points at a YAML file renaming scraped statement rows.
	ColumnMapping string `envconfig:"COLUMN_MAPPING"`
	// CacheDir is where fetched fundamentals are kept between runs.
	CacheDir string `envconfig:"CACHE_DIR" default:"cache"`
	// ListenAddr is the API server bind address.
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`
}

// LoadSettings reads the settings from the environment.
func LoadSettings() (Settings, error) {
	var settings Settings
	if err := envconfig.Process("", &settings); err != nil {
		return Settings{}, fmt.Errorf("settings: %w", err)
	}
	return settings, nil
}
