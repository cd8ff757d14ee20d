package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ClientConfig holds the sync client's compiled-in defaults.
// DefaultServerURL and HistorySyncOptIn can be overridden by rows in the
// local settings table once the store is open (clientstore.SyncServerURL,
// clientstore.HistorySyncEnabled); for those two this struct supplies the
// fallback values.
type ClientConfig struct {
	DataDir           string `env:"CLIPSLOT_DATA_DIR" envDefault:""`
	DefaultServerURL  string `env:"CLIPSLOT_SERVER_URL" envDefault:"http://localhost:3000"`
	HistoryLimit      int    `env:"CLIPSLOT_HISTORY_LIMIT" envDefault:"500"`
	HistorySyncOptIn  bool   `env:"CLIPSLOT_HISTORY_SYNC" envDefault:"true"`
	LogLevel          string `env:"CLIPSLOT_LOG_LEVEL" envDefault:"info"`
	LogFile           string `env:"CLIPSLOT_LOG_FILE" envDefault:""`
	LogFileThreshold  int64  `env:"CLIPSLOT_LOG_FILE_THRESHOLD_BYTES" envDefault:"2097152"`
}

// LoadClientConfig loads .env (if present) then parses environment
// variables into a ClientConfig.
func LoadClientConfig() (*ClientConfig, error) {
	_ = godotenv.Load()

	cfg := &ClientConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse client config: %w", err)
	}
	return cfg, nil
}
