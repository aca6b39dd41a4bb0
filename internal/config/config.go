package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// AppConfig holds environment-driven settings for the heatmap service.
type AppConfig struct {
	Port string

	// Upstream forecast API.
	OpenMeteoBaseURL string
	OpenMeteoAPIKey  string
	OpenMeteoModel   string
	HTTPTimeout      time.Duration

	// Fetch pipeline.
	BatchSize     int           // coordinates per request, capped at 100 upstream
	ChunkDelay    time.Duration // pause between chunk requests
	MaxRetries    int           // bounded retries per chunk
	FetchInterval time.Duration // how often the dataset is refreshed

	// Optional palette override.
	PaletteFile string
}

// Load reads configuration from environment variables (optionally .env) with
// sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.WithError(err).Info("no .env file loaded")
	}

	cfg := &AppConfig{
		Port:             getenvDefault("PORT", "8080"),
		OpenMeteoBaseURL: getenvDefault("OPENMETEO_BASE_URL", "https://api.open-meteo.com/v1/forecast"),
		OpenMeteoAPIKey:  os.Getenv("OPENMETEO_API_KEY"),
		OpenMeteoModel:   getenvDefault("OPENMETEO_MODEL", "gfs_seamless"),
		PaletteFile:      os.Getenv("PALETTE_FILE"),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ChunkDelay, err = getenvDuration("CHUNK_DELAY", 100*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	cfg.BatchSize = getenvInt("BATCH_SIZE", 100)
	if cfg.BatchSize <= 0 || cfg.BatchSize > 100 {
		return nil, fmt.Errorf("BATCH_SIZE must be between 1 and 100, got %d", cfg.BatchSize)
	}

	cfg.MaxRetries = getenvInt("MAX_RETRIES", 3)
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("MAX_RETRIES must not be negative, got %d", cfg.MaxRetries)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
