// Package config loads engine configuration from config.yaml with
// environment variable overrides. Secrets only come from the
// environment.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the propquery engine.
// Environment variables always override YAML values for fields that
// support both; password and API key fields are env-only (yaml:"-").
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	// Database is the property store, which also hosts feedback_records.
	Database DatabaseConfig `yaml:"database"`

	// Redis optionally caches learning-store similarity lookups.
	Redis RedisConfig `yaml:"redis"`

	// Engine tunes the validation-correction loop.
	Engine EngineConfig `yaml:"engine"`

	// Candidate selects and configures the initial SQL source.
	Candidate CandidateConfig `yaml:"candidate"`

	// SchemaOverridesPath points at an optional YAML file replacing the
	// built-in county list or property-type synonym table.
	SchemaOverridesPath string `yaml:"schema_overrides_path" env:"SCHEMA_OVERRIDES_PATH" env-default:""`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"propquery"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"propquery"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds optional Redis settings. An empty host disables
// the similarity cache entirely.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// EngineConfig is the closed option set for the feedback loop.
type EngineConfig struct {
	// MaxIterations bounds correction rounds per request.
	MaxIterations int `yaml:"max_iterations" env:"ENGINE_MAX_ITERATIONS" env-default:"3"`

	// DefaultLimit caps row counts when the utterance names none.
	DefaultLimit int `yaml:"default_limit" env:"ENGINE_DEFAULT_LIMIT" env-default:"50"`

	// DefaultOrderColumn and DefaultOrderDirection order results when
	// the utterance expresses no preference.
	DefaultOrderColumn    string `yaml:"default_order_column" env:"ENGINE_DEFAULT_ORDER_COLUMN" env-default:"asking_price"`
	DefaultOrderDirection string `yaml:"default_order_direction" env:"ENGINE_DEFAULT_ORDER_DIRECTION" env-default:"ASC"`

	// ExecutionTimeout is the per-statement budget for the executor.
	ExecutionTimeout time.Duration `yaml:"execution_timeout" env:"ENGINE_EXECUTION_TIMEOUT" env-default:"30s"`
}

// CandidateConfig selects the candidate SQL source. Provider is one of
// "rules", "openai", or "anthropic"; the endpoint/model/key fields only
// apply to the LLM-backed providers.
type CandidateConfig struct {
	Provider string `yaml:"provider" env:"CANDIDATE_PROVIDER" env-default:"rules"`
	Endpoint string `yaml:"endpoint" env:"CANDIDATE_ENDPOINT" env-default:""`
	Model    string `yaml:"model" env:"CANDIDATE_MODEL" env-default:""`
	APIKey   string `yaml:"-" env:"CANDIDATE_API_KEY"` // Secret - not in YAML
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on
// the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate enforces the documented bounds on the closed option set.
func (c *Config) Validate() error {
	if c.Engine.MaxIterations < 0 {
		return fmt.Errorf("engine.max_iterations must be >= 0, got %d", c.Engine.MaxIterations)
	}
	if c.Engine.DefaultLimit < 1 {
		return fmt.Errorf("engine.default_limit must be >= 1, got %d", c.Engine.DefaultLimit)
	}
	if c.Engine.ExecutionTimeout <= 0 {
		return fmt.Errorf("engine.execution_timeout must be positive, got %s", c.Engine.ExecutionTimeout)
	}
	switch c.Engine.DefaultOrderDirection {
	case "ASC", "DESC":
	default:
		return fmt.Errorf("engine.default_order_direction must be ASC or DESC, got %q", c.Engine.DefaultOrderDirection)
	}
	switch c.Candidate.Provider {
	case "rules", "openai", "anthropic":
	default:
		return fmt.Errorf("candidate.provider must be rules, openai, or anthropic, got %q", c.Candidate.Provider)
	}
	return nil
}
