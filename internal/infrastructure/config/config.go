// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg, err := config.LoadOrEnv()
//	threshold := cfg.Matching.MatchThreshold
//	token := cfg.YNAB.AccessToken
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matcher"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the entire application configuration
type Config struct {
	Matching      MatchingConfig      `yaml:"matching"`
	State         StateConfig         `yaml:"state"`
	YNAB          YNABConfig          `yaml:"ynab"`
	Amazon        AmazonConfig        `yaml:"amazon"`
	Storage       StorageConfig       `yaml:"storage"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// MatchingConfig holds the matcher thresholds
type MatchingConfig struct {
	MatchThreshold       int `yaml:"match_threshold" envconfig:"MATCH_THRESHOLD" default:"80"`
	DateToleranceDays    int `yaml:"date_tolerance_days" envconfig:"DATE_TOLERANCE_DAYS" default:"2"`
	AmountToleranceCents int `yaml:"amount_tolerance_cents" envconfig:"AMOUNT_TOLERANCE_CENTS" default:"50"`
	MaxBatchGroupSize    int `yaml:"max_batch_group_size" envconfig:"MAX_BATCH_GROUP_SIZE" default:"20"`
}

// StateConfig holds match-state ledger settings
type StateConfig struct {
	EnableStateTracking bool       `yaml:"enable_state_tracking" envconfig:"ENABLE_STATE_TRACKING" default:"true"`
	RetentionDays       int        `yaml:"state_retention_days" envconfig:"STATE_RETENTION_DAYS" default:"90"`
	StateFile           string     `yaml:"state_file" envconfig:"STATE_FILE" default:"transaction_match_state.json"`
	Backend             string     `yaml:"backend" envconfig:"STATE_BACKEND" default:"file"` // "file" or "sqlite"
	Lock                LockConfig `yaml:"lock"`
}

// LockConfig holds the optional distributed run lock
type LockConfig struct {
	RedisAddr string        `yaml:"redis_addr" envconfig:"LOCK_REDIS_ADDR"`
	Key       string        `yaml:"key" envconfig:"LOCK_KEY" default:"amazon-ynab-sync:run"`
	TTL       time.Duration `yaml:"ttl" envconfig:"LOCK_TTL" default:"5m"`
	Wait      time.Duration `yaml:"wait" envconfig:"LOCK_WAIT" default:"0s"` // 0 fails at once when another run holds the lock
}

// YNABConfig holds YNAB API configuration
type YNABConfig struct {
	AccessToken string        `yaml:"access_token" envconfig:"YNAB_ACCESS_TOKEN"`
	BudgetID    string        `yaml:"budget_id" envconfig:"YNAB_BUDGET_ID" default:"last-used"`
	CacheTTL    time.Duration `yaml:"cache_ttl" envconfig:"YNAB_CACHE_TTL" default:"5m"`
	AmazonOnly  bool          `yaml:"amazon_only" envconfig:"YNAB_AMAZON_ONLY" default:"true"`
	MaxRetries  uint64        `yaml:"max_retries" envconfig:"YNAB_MAX_RETRIES" default:"3"`
}

// AmazonConfig holds Amazon order import settings
type AmazonConfig struct {
	OrdersFile   string `yaml:"orders_file" envconfig:"AMAZON_ORDERS_FILE"`
	LookbackDays int    `yaml:"lookback_days" envconfig:"AMAZON_LOOKBACK_DAYS" default:"30"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" envconfig:"SYNC_DB_PATH" default:"amazon_ynab_sync.db"`
}

// APIConfig holds HTTP API settings
type APIConfig struct {
	Port           int      `yaml:"port" envconfig:"API_PORT" default:"8085"`
	AllowedOrigins []string `yaml:"allowed_origins" envconfig:"API_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL" default:"info"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT" default:"text"`
}

// Load reads and parses the config file. Keys missing from the file keep
// their environment or default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${YNAB_ACCESS_TOKEN})
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() (*Config, error) {
	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	return &cfg, nil
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() (*Config, error) {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from the given path. A missing file falls
// back to environment variables; a file that exists but is broken is an error.
func LoadOrEnvWithPath(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return LoadFromEnv()
	}
	return nil, err
}

// Validate rejects settings the matcher and ledger cannot work with.
func (c *Config) Validate() error {
	if err := c.MatcherConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.State.EnableStateTracking && c.State.RetentionDays <= 0 {
		return fmt.Errorf("%w: state_retention_days must be positive, got %d", ErrInvalidConfig, c.State.RetentionDays)
	}
	if c.State.Lock.Wait < 0 {
		return fmt.Errorf("%w: lock wait must not be negative, got %s", ErrInvalidConfig, c.State.Lock.Wait)
	}
	switch c.State.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("%w: unknown state backend %q", ErrInvalidConfig, c.State.Backend)
	}
	return nil
}

// MatcherConfig converts the matching section to the matcher's config type.
func (c *Config) MatcherConfig() matcher.Config {
	return matcher.Config{
		MatchThreshold:       c.Matching.MatchThreshold,
		DateToleranceDays:    c.Matching.DateToleranceDays,
		AmountToleranceCents: c.Matching.AmountToleranceCents,
		MaxBatchGroupSize:    c.Matching.MaxBatchGroupSize,
	}
}

// RetentionWindow returns the ledger retention as a duration.
func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.State.RetentionDays) * 24 * time.Hour
}

// GetAPIKey retrieves an API key from config first, then tries multiple environment variable names
// Usage: GetAPIKey(cfg.YNAB.AccessToken, "YNAB_ACCESS_TOKEN", "YNAB_TOKEN")
func (c *Config) GetAPIKey(configValue string, envVarNames ...string) string {
	if configValue != "" {
		return configValue
	}

	for _, envVar := range envVarNames {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
	}

	return ""
}
