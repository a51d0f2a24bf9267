package app

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is populated from TURBOWHEEL_* environment variables.
type Config struct {
	Addr        string   `env:"TURBOWHEEL_ADDR"             envDefault:":8080"`
	DataDir     string   `env:"TURBOWHEEL_DATA_DIR"         envDefault:"data"`
	ClientDir   string   `env:"TURBOWHEEL_CLIENT_DIR"`
	MemoryStore bool     `env:"TURBOWHEEL_MEMORY_STORE"`
	LogSinks    []string `env:"TURBOWHEEL_LOG_SINKS"        envSeparator:"," envDefault:"console"`
	LogJSONPath string   `env:"TURBOWHEEL_LOG_JSON_PATH"    envDefault:"logs/events.ndjson"`
	TopN        int      `env:"TURBOWHEEL_LEADERBOARD_SIZE" envDefault:"10"`
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
