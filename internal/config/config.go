// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverFirestore = "firestore"
	DriverPostgres  = "postgres"
	DriverMemory    = "memory"
)

// Config holds every setting the service reads.
type Config struct {
	AppEnv   string
	LogLevel string
	HTTPAddr string

	StoreDriver              string
	FirestoreProjectID       string
	FirestoreCredentialsFile string
	DatabaseURL              string

	RedisAddr string
	RedisTTL  time.Duration

	PageSize         int
	MaxPageSize      int
	Debounce         time.Duration
	SearchMatchRate  float64
	BatchConcurrency int

	AuthEnabled bool

	// AllowedOrigins enables CORS for the listed origins.
	AllowedOrigins []string
}

// Local reports whether the service runs on a developer machine.
func (c Config) Local() bool {
	return c.AppEnv == "local"
}

// LoadEnv loads .env.local into the process environment when APP_ENV is
// "local". A missing file is not an error.
func LoadEnv() error {
	if os.Getenv("APP_ENV") != "local" {
		return nil
	}
	if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env.local: %w", err)
	}
	return nil
}

// New returns a viper instance bound to the environment with defaults set.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("STORE_DRIVER", DriverMemory)
	v.SetDefault("REDIS_TTL", "5m")
	v.SetDefault("PAGE_SIZE", 12)
	v.SetDefault("MAX_PAGE_SIZE", 100)
	v.SetDefault("DEBOUNCE", "300ms")
	v.SetDefault("SEARCH_MATCH_RATE", 0.2)
	v.SetDefault("BATCH_CONCURRENCY", 4)
	v.SetDefault("AUTH_ENABLED", false)
	return v
}

// Load reads .env.local when local and builds a validated Config.
func Load() (Config, error) {
	if err := LoadEnv(); err != nil {
		return Config{}, err
	}
	return FromViper(New())
}

// FromViper builds a validated Config from v.
func FromViper(v *viper.Viper) (Config, error) {
	c := Config{
		AppEnv:                   v.GetString("APP_ENV"),
		LogLevel:                 v.GetString("LOG_LEVEL"),
		HTTPAddr:                 v.GetString("HTTP_ADDR"),
		StoreDriver:              strings.ToLower(v.GetString("STORE_DRIVER")),
		FirestoreProjectID:       v.GetString("FIRESTORE_PROJECT_ID"),
		FirestoreCredentialsFile: v.GetString("FIRESTORE_CREDENTIALS_FILE"),
		DatabaseURL:              v.GetString("DATABASE_URL"),
		RedisAddr:                v.GetString("REDIS_ADDR"),
		RedisTTL:                 v.GetDuration("REDIS_TTL"),
		PageSize:                 v.GetInt("PAGE_SIZE"),
		MaxPageSize:              v.GetInt("MAX_PAGE_SIZE"),
		Debounce:                 v.GetDuration("DEBOUNCE"),
		SearchMatchRate:          v.GetFloat64("SEARCH_MATCH_RATE"),
		BatchConcurrency:         v.GetInt("BATCH_CONCURRENCY"),
		AuthEnabled:              v.GetBool("AUTH_ENABLED"),
		AllowedOrigins:           v.GetStringSlice("CORS_ALLOWED_ORIGINS"),
	}
	return c, c.Validate()
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverFirestore:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("config: FIRESTORE_PROJECT_ID is required for the firestore driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.AuthEnabled && c.FirestoreProjectID == "" {
		return fmt.Errorf("config: FIRESTORE_PROJECT_ID is required when AUTH_ENABLED is set")
	}
	if c.PageSize <= 0 || c.MaxPageSize < c.PageSize {
		return fmt.Errorf("config: PAGE_SIZE must be positive and not above MAX_PAGE_SIZE")
	}
	if c.SearchMatchRate <= 0 || c.SearchMatchRate > 1 {
		return fmt.Errorf("config: SEARCH_MATCH_RATE must be in (0, 1]")
	}
	if c.BatchConcurrency <= 0 {
		return fmt.Errorf("config: BATCH_CONCURRENCY must be positive")
	}
	if c.Debounce < 0 {
		return fmt.Errorf("config: DEBOUNCE must not be negative")
	}
	return nil
}
