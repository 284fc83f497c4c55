package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for sqlpilot-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// MigrationsPath is the directory containing SQL migration files.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// Database configuration (PostgreSQL with pgvector)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional settings/prompt cache)
	Redis RedisConfig `yaml:"redis"`

	// AI model endpoints
	AI AIConfig `yaml:"ai"`

	// Retrieval defaults, overridable per tenant via settings
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"sqlpilot"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"sqlpilot_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds Redis cache configuration. Leave Host empty to disable caching.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// AIConfig holds LLM and embedding endpoint configuration.
// Generation can run against any OpenAI-compatible endpoint or the Anthropic API;
// embeddings always use an OpenAI-compatible endpoint.
type AIConfig struct {
	// Provider selects the generation backend: "openai" or "anthropic".
	Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"`

	LLMBaseURL string `yaml:"llm_base_url" env:"AI_LLM_BASE_URL" env-default:"https://api.openai.com/v1"`
	LLMModel   string `yaml:"llm_model" env:"AI_LLM_MODEL" env-default:"gpt-4o"`
	LLMAPIKey  string `yaml:"-" env:"AI_LLM_API_KEY"` // Secret - not in YAML

	EmbeddingBaseURL string `yaml:"embedding_base_url" env:"AI_EMBEDDING_BASE_URL" env-default:"https://api.openai.com/v1"`
	EmbeddingModel   string `yaml:"embedding_model" env:"AI_EMBEDDING_MODEL" env-default:"text-embedding-3-large"`
	EmbeddingAPIKey  string `yaml:"-" env:"AI_EMBEDDING_API_KEY"` // Secret - not in YAML

	// EmbeddingDimensions must match the vector columns in the database schema.
	EmbeddingDimensions int `yaml:"embedding_dimensions" env:"AI_EMBEDDING_DIMENSIONS" env-default:"1024"`
}

// RetrievalConfig holds server-level retrieval defaults.
// table_retrieve_threshold can be overridden per tenant via settings.
type RetrievalConfig struct {
	TableRetrieveThreshold float64 `yaml:"table_retrieve_threshold" env:"TABLE_RETRIEVE_THRESHOLD" env-default:"0.7"`
	RecallTopK             int     `yaml:"recall_top_k" env:"RECALL_TOP_K" env-default:"5"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AI.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown ai.provider %q (want openai or anthropic)", c.AI.Provider)
	}
	if c.AI.EmbeddingDimensions <= 0 {
		return fmt.Errorf("ai.embedding_dimensions must be positive")
	}
	if c.Retrieval.TableRetrieveThreshold < 0 || c.Retrieval.TableRetrieveThreshold > 1 {
		return fmt.Errorf("retrieval.table_retrieve_threshold must be in [0,1]")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
