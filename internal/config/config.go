// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"deskboard/internal/models"
	"deskboard/internal/slug"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// Document store
	StoreDriver string // "badger" or "postgres"
	BadgerPath  string // empty means in-memory

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache). An empty host disables caching.
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// Read retry policy
	ReadMaxAttempts int
	ReadBackoffBase time.Duration

	// System categories, from CATEGORIES_FILE or the built-in set
	SystemCategories []models.Category
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode.
func Load() (*Config, error) {
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		StoreDriver: envOrDefault("STORE_DRIVER", DriverBadger),
		BadgerPath:  envOrDefault("BADGER_PATH", "data/deskboard"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "deskboard"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "deskboard"),

		ValkeyHost:     os.Getenv("VALKEY_HOST"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),
	}

	attempts, err := strconv.Atoi(envOrDefault("READ_MAX_ATTEMPTS", "3"))
	if err != nil || attempts < 1 {
		return nil, fmt.Errorf("READ_MAX_ATTEMPTS must be a positive integer")
	}
	cfg.ReadMaxAttempts = attempts

	base, err := time.ParseDuration(envOrDefault("READ_BACKOFF_BASE", "1s"))
	if err != nil || base <= 0 {
		return nil, fmt.Errorf("READ_BACKOFF_BASE must be a positive duration")
	}
	cfg.ReadBackoffBase = base

	switch cfg.StoreDriver {
	case DriverBadger, DriverPostgres:
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverBadger, DriverPostgres, cfg.StoreDriver)
	}

	cfg.SystemCategories = models.DefaultSystemCategories()
	if path := os.Getenv("CATEGORIES_FILE"); path != "" {
		cats, err := LoadCategories(path)
		if err != nil {
			return nil, err
		}
		cfg.SystemCategories = cats
	}

	if cfg.Env == "production" {
		if cfg.StoreDriver == DriverPostgres && cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}

	return cfg, nil
}

// categoriesFile is the YAML layout of CATEGORIES_FILE.
type categoriesFile struct {
	Categories []models.Category `yaml:"categories"`
}

// LoadCategories reads the system category list from a YAML file. The list
// must be non-empty, contain the fallback category, and have unique ids.
func LoadCategories(path string) ([]models.Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}

	var f categoriesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse categories file: %w", err)
	}

	seen := map[string]bool{}
	for i, c := range f.Categories {
		if c.ID == "" {
			return nil, fmt.Errorf("categories file: entry %d has no id", i)
		}
		if !slug.Valid(c.ID) {
			return nil, fmt.Errorf("categories file: id %q is not a slug", c.ID)
		}
		if c.ID == models.AllCategoriesID {
			return nil, fmt.Errorf("categories file: id %q is reserved", c.ID)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("categories file: duplicate id %q", c.ID)
		}
		seen[c.ID] = true
		if c.Name == "" {
			f.Categories[i].Name = c.ID
		}
	}
	if !seen[models.DefaultCategoryID] {
		return nil, fmt.Errorf("categories file must declare %q", models.DefaultCategoryID)
	}
	return f.Categories, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// CacheEnabled reports whether a Valkey host is configured.
func (c *Config) CacheEnabled() bool {
	return c.ValkeyHost != ""
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
