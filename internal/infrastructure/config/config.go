// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml), with ${VAR} expansion
//  2. Environment variables (fallback)
//
// A .env file in the working directory is loaded first when present, so
// both paths can read secrets from it.
//
// Example usage:
//
//	cfg, err := config.LoadOrEnv("config.yaml")
//	dbPath := cfg.Storage.DatabasePath
//	tol := cfg.Matching.Tolerance()
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/matcher"
)

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the entire application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Matching      MatchingConfig      `yaml:"matching"`
	Forecast      ForecastConfig      `yaml:"forecast"`
	Sweep         SweepConfig         `yaml:"sweep"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           int             `yaml:"port" validate:"min=1,max=65535"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is a per-client token bucket. Zero RequestsPerSecond
// disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst" validate:"gte=0"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" validate:"required"`
}

// MatchingConfig holds the default match tolerances. Organization
// overrides stored in the database take precedence.
type MatchingConfig struct {
	PricePercentage    float64 `yaml:"price_percentage" validate:"gte=0"`
	QuantityPercentage float64 `yaml:"quantity_percentage" validate:"gte=0"`
	TaxFreightCap      float64 `yaml:"tax_freight_cap" validate:"gte=0"`
	DeliveryPercentage float64 `yaml:"delivery_percentage" validate:"gte=0"`
}

// Tolerance converts the configured defaults into a matcher tolerance.
func (m MatchingConfig) Tolerance() matcher.Tolerance {
	return matcher.Tolerance{
		PricePercentage:    decimal.NewFromFloat(m.PricePercentage),
		QuantityPercentage: decimal.NewFromFloat(m.QuantityPercentage),
		TaxFreightCap:      decimal.NewFromFloat(m.TaxFreightCap),
		DeliveryPercentage: decimal.NewFromFloat(m.DeliveryPercentage),
	}
}

// ForecastConfig holds forecast report settings
type ForecastConfig struct {
	RevenueMarkup  float64 `yaml:"revenue_markup" validate:"gte=0"`
	IncludePending bool    `yaml:"include_pending"`
	FromBudget     bool    `yaml:"from_budget"` // cost forecast I = A + F
}

// SweepConfig controls the background re-match of pending invoices
type SweepConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Interval    time.Duration `yaml:"interval" validate:"required_if=Enabled true"`
	Concurrency int           `yaml:"concurrency" validate:"min=1"`
}

// NotificationsConfig holds notification delivery settings
type NotificationsConfig struct {
	WebhookURL string        `yaml:"webhook_url" validate:"omitempty,url"`
	MaxRetries int           `yaml:"max_retries" validate:"gte=0"`
	Timeout    time.Duration `yaml:"timeout" validate:"gte=0"` // per notification, retries included
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// Defaults returns the configuration used for any unset field.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000"},
			RateLimit:      RateLimitConfig{RequestsPerSecond: 20, Burst: 40},
		},
		Storage: StorageConfig{DatabasePath: "sitebuy.db"},
		Matching: MatchingConfig{
			PricePercentage:    2.0,
			QuantityPercentage: 1.0,
			TaxFreightCap:      50.0,
			DeliveryPercentage: 5.0,
		},
		Forecast:      ForecastConfig{RevenueMarkup: 0.15},
		Sweep:         SweepConfig{Enabled: true, Interval: 15 * time.Minute, Concurrency: 4},
		Notifications: NotificationsConfig{MaxRetries: 3, Timeout: 5 * time.Second},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{Level: "info", Format: "text"},
		},
	}
}

// Load reads and parses the config file. Keys absent from the file keep
// their Defaults value.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${WEBHOOK_URL})
	expanded := os.ExpandEnv(string(data))

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	d := Defaults()
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvInt("SITEBUY_PORT", d.Server.Port),
			AllowedOrigins: getEnvList("SITEBUY_ALLOWED_ORIGINS", d.Server.AllowedOrigins),
			RateLimit: RateLimitConfig{
				RequestsPerSecond: getEnvFloat("SITEBUY_RATE_LIMIT_RPS", d.Server.RateLimit.RequestsPerSecond),
				Burst:             getEnvInt("SITEBUY_RATE_LIMIT_BURST", d.Server.RateLimit.Burst),
			},
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("SITEBUY_DB_PATH", d.Storage.DatabasePath),
		},
		Matching: MatchingConfig{
			PricePercentage:    getEnvFloat("MATCH_PRICE_PERCENTAGE", d.Matching.PricePercentage),
			QuantityPercentage: getEnvFloat("MATCH_QUANTITY_PERCENTAGE", d.Matching.QuantityPercentage),
			TaxFreightCap:      getEnvFloat("MATCH_TAX_FREIGHT_CAP", d.Matching.TaxFreightCap),
			DeliveryPercentage: getEnvFloat("MATCH_DELIVERY_PERCENTAGE", d.Matching.DeliveryPercentage),
		},
		Forecast: ForecastConfig{
			RevenueMarkup:  getEnvFloat("FORECAST_REVENUE_MARKUP", d.Forecast.RevenueMarkup),
			IncludePending: getEnvBool("FORECAST_INCLUDE_PENDING", d.Forecast.IncludePending),
			FromBudget:     getEnvBool("FORECAST_FROM_BUDGET", d.Forecast.FromBudget),
		},
		Sweep: SweepConfig{
			Enabled:     getEnvBool("SWEEP_ENABLED", d.Sweep.Enabled),
			Interval:    getEnvDuration("SWEEP_INTERVAL", d.Sweep.Interval),
			Concurrency: getEnvInt("SWEEP_CONCURRENCY", d.Sweep.Concurrency),
		},
		Notifications: NotificationsConfig{
			WebhookURL: os.Getenv("WEBHOOK_URL"),
			MaxRetries: getEnvInt("WEBHOOK_MAX_RETRIES", d.Notifications.MaxRetries),
			Timeout:    getEnvDuration("WEBHOOK_TIMEOUT", d.Notifications.Timeout),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", d.Observability.Logging.Level),
				Format: getEnv("LOG_FORMAT", d.Observability.Logging.Format),
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrEnv tries to load from path, falls back to environment variables
// when the file does not exist. A file that exists but is malformed or
// invalid is an error.
func LoadOrEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return LoadFromEnv()
	}
	return nil, err
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and wraps failures in ErrInvalid.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.Atoi(val); err == nil {
			return result
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.ParseFloat(val, 64); err == nil {
			return result
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.ParseBool(val); err == nil {
			return result
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if result, err := time.ParseDuration(val); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvList splits a comma-separated variable
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
