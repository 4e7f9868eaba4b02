package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath       string
	ServerPort   string
	SyncBaseURL  string
	SyncAPIKey   string
	SyncAccounts []string
	SyncInterval time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:       getEnv("DB_PATH", "splat.db"),
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		SyncBaseURL:  getEnv("SYNC_BASE_URL", ""),
		SyncAPIKey:   getEnv("SYNC_API_KEY", ""),
		SyncInterval: 5 * time.Minute,
	}

	if raw := os.Getenv("SYNC_ACCOUNTS"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cfg.SyncAccounts = append(cfg.SyncAccounts, id)
			}
		}
	}

	if raw := os.Getenv("SYNC_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.SyncInterval = d
		} else {
			logger.Warn().Str("sync_interval", raw).Msg("invalid SYNC_INTERVAL, using default")
		}
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Bool("sync_enabled", cfg.SyncBaseURL != "").
		Dur("sync_interval", cfg.SyncInterval).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
