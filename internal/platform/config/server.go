package config

import (
	"fmt"
	"time"
)

// Server holds the process-level settings of sinandgrace-server.
type Server struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	DBDriver    string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBPath      string `env:"DB_PATH" envDefault:"data/sinandgrace.db"`
	DatabaseURL string `env:"DATABASE_URL"`

	TickInterval   time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
	BroadcastEvery int           `env:"BROADCAST_EVERY" envDefault:"5"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	CatalogPath string `env:"CATALOG_PATH"`

	SnapshotCacheSize int           `env:"SNAPSHOT_CACHE_SIZE" envDefault:"256"`
	SnapshotCacheTTL  time.Duration `env:"SNAPSHOT_CACHE_TTL" envDefault:"30s"`

	ClientRate  float64 `env:"CLIENT_RATE" envDefault:"10"`
	ClientBurst int     `env:"CLIENT_BURST" envDefault:"20"`

	TuningProfile string `env:"TUNING_PROFILE" envDefault:"default"`
}

// LoadServer parses Server from the environment and checks it.
func LoadServer() (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return Server{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (s Server) Validate() error {
	switch s.DBDriver {
	case "sqlite":
		if s.DBPath == "" {
			return fmt.Errorf("config: DB_PATH is required for sqlite")
		}
	case "postgres":
		if s.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for postgres")
		}
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q", s.DBDriver)
	}
	if s.TickInterval <= 0 {
		return fmt.Errorf("config: TICK_INTERVAL must be positive")
	}
	if s.BroadcastEvery < 1 {
		return fmt.Errorf("config: BROADCAST_EVERY must be >= 1")
	}
	if s.ClientRate <= 0 || s.ClientBurst < 1 {
		return fmt.Errorf("config: CLIENT_RATE and CLIENT_BURST must be positive")
	}
	return nil
}
