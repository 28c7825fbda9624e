package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server  ServerConfig
	Source  SourceConfig
	Geocode GeocodeConfig
	Enrich  EnrichConfig
	View    ViewConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host      string
	Port      int
	RateLimit int
}

const (
	SourceFile   = "file"
	SourceHTTP   = "http"
	SourceSQLite = "sqlite"
)

type SourceConfig struct {
	Kind   string
	Path   string
	URL    string
	DBPath string
}

type GeocodeConfig struct {
	URL         string
	UserAgent   string
	Languages   string
	Timeout     time.Duration
	MinInterval time.Duration
	CacheSize   int
}

type EnrichConfig struct {
	Interval   time.Duration
	BufferSize int
}

type ViewConfig struct {
	PageSize int
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:      getEnv("SERVER_HOST", "localhost"),
			Port:      getEnvInt("SERVER_PORT", 8080),
			RateLimit: getEnvInt("API_RATE_LIMIT", 20),
		},
		Source: SourceConfig{
			Kind:   getEnv("SOURCE_KIND", SourceFile),
			Path:   getEnv("SOURCE_PATH", "./data/settlements.json"),
			URL:    getEnv("SOURCE_URL", ""),
			DBPath: getEnv("SOURCE_DB_PATH", "./data/settlements.db"),
		},
		Geocode: GeocodeConfig{
			URL:         getEnv("GEOCODE_URL", "https://nominatim.openstreetmap.org"),
			UserAgent:   getEnv("GEOCODE_USER_AGENT", "go-settlements/1.0"),
			Languages:   getEnv("GEOCODE_LANGUAGES", "uk,ru,en"),
			Timeout:     getEnvDuration("GEOCODE_TIMEOUT", 10*time.Second),
			MinInterval: getEnvDuration("GEOCODE_MIN_INTERVAL", time.Second),
			CacheSize:   getEnvInt("GEOCODE_CACHE_SIZE", 10000),
		},
		Enrich: EnrichConfig{
			Interval:   getEnvDuration("ENRICH_INTERVAL", 100*time.Millisecond),
			BufferSize: getEnvInt("ENRICH_BUFFER_SIZE", 16),
		},
		View: ViewConfig{
			PageSize: getEnvInt("PAGE_SIZE", 20),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimit < 1 {
		return fmt.Errorf("API rate limit must be positive: %d", c.Server.RateLimit)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	switch c.Source.Kind {
	case SourceFile:
		if c.Source.Path == "" {
			return fmt.Errorf("SOURCE_PATH is required for file sources")
		}
	case SourceHTTP:
		if c.Source.URL == "" {
			return fmt.Errorf("SOURCE_URL is required for http sources")
		}
	case SourceSQLite:
		if c.Source.DBPath == "" {
			return fmt.Errorf("SOURCE_DB_PATH is required for sqlite sources")
		}
	default:
		return fmt.Errorf("invalid source kind: %s", c.Source.Kind)
	}

	if c.Geocode.URL == "" {
		return fmt.Errorf("GEOCODE_URL is required")
	}
	if c.Geocode.Timeout <= 0 {
		return fmt.Errorf("geocode timeout must be positive")
	}
	if c.Geocode.MinInterval < 0 {
		return fmt.Errorf("geocode min interval must not be negative")
	}
	if c.Geocode.CacheSize < 1 {
		return fmt.Errorf("geocode cache size must be positive: %d", c.Geocode.CacheSize)
	}

	if c.Enrich.Interval < 0 {
		return fmt.Errorf("enrich interval must not be negative")
	}
	if c.Enrich.BufferSize < 1 {
		return fmt.Errorf("enrich buffer size must be positive: %d", c.Enrich.BufferSize)
	}

	if c.View.PageSize < 1 || c.View.PageSize > 500 {
		return fmt.Errorf("page size must be between 1 and 500: %d", c.View.PageSize)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
