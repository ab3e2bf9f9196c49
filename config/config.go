// Package config reads server settings from the environment (and .env).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"vigil/database"
	"vigil/filter"
	"vigil/models"
)

var ErrMissingDatabaseURL = errors.New("DATABASE_URL not set")

// Config holds the server settings.
type Config struct {
	DatabaseURL string
	ListenAddr  string
	// APIToken guards /api/v1. Empty disables authentication.
	APIToken string
	LogLevel log.Level

	DefaultRows int
	MaxRows     int

	// DefaultFilters are merged under every list request for their type.
	DefaultFilters map[models.EntityType]filter.Filter
}

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DatabaseURL: getenv("DATABASE_URL"),
		ListenAddr:  stringOr(getenv("LISTEN_ADDR"), ":8080"),
		APIToken:    getenv("API_TOKEN"),
	}
	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	level, err := log.ParseLevel(stringOr(getenv("LOG_LEVEL"), "info"))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	if cfg.DefaultRows, err = intOr(getenv("DEFAULT_ROWS"), filter.DefaultRows); err != nil {
		return nil, fmt.Errorf("DEFAULT_ROWS: %w", err)
	}
	if cfg.MaxRows, err = intOr(getenv("MAX_ROWS"), 1000); err != nil {
		return nil, fmt.Errorf("MAX_ROWS: %w", err)
	}
	if cfg.DefaultRows < 1 || cfg.MaxRows < cfg.DefaultRows {
		return nil, fmt.Errorf("DEFAULT_ROWS (%d) must be at least 1 and at most MAX_ROWS (%d)", cfg.DefaultRows, cfg.MaxRows)
	}

	if path := getenv("DEFAULT_FILTERS_FILE"); path != "" {
		if cfg.DefaultFilters, err = LoadDefaultFilters(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// ListOptions returns the paging limits for database list queries.
func (c *Config) ListOptions() database.ListOptions {
	return database.ListOptions{
		DefaultRows: c.DefaultRows,
		MaxRows:     c.MaxRows,
	}
}

// LoadDefaultFilters reads a YAML file mapping entity types to filter
// strings, e.g.
//
//	targets: sort=name rows=25
//	result: sort-reverse=severity severity>0
func LoadDefaultFilters(path string) (map[models.EntityType]filter.Filter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read default filters: %w", err)
	}
	return ParseDefaultFilters(data)
}

func ParseDefaultFilters(data []byte) (map[models.EntityType]filter.Filter, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse default filters: %w", err)
	}

	defaults := make(map[models.EntityType]filter.Filter, len(raw))
	for key, term := range raw {
		entityType, err := models.ParseEntityType(key)
		if err != nil {
			return nil, fmt.Errorf("default filters: %w", err)
		}
		defaults[entityType] = filter.Parse(term)
	}
	return defaults, nil
}

func stringOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func intOr(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	return strconv.Atoi(s)
}
