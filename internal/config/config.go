// Package config loads service configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/causeway-ops/causeway/internal/models"
)

// Config holds all configuration for the investigation service.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Storage    StorageConfig    `mapstructure:"storage"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Clustering ClusteringConfig `mapstructure:"clustering"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Chat       ChatConfig       `mapstructure:"chat"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	Env          string        `mapstructure:"env"`
}

// LoggingConfig holds log level and format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnString renders a pgx-compatible connection string.
func (p PostgresConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// RedisConfig holds Redis configuration for the chat quota store.
type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

// NATSConfig holds connection settings for the telemetry bus.
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Name    string `mapstructure:"name"`
	Enabled bool   `mapstructure:"enabled"`
}

// StorageConfig holds OpenSearch settings for the knowledge-base indices.
type StorageConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Insecure bool   `mapstructure:"insecure"`
}

// LLMConfig holds completion-service settings.
type LLMConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ClusteringConfig holds log-clustering service settings.
type ClusteringConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SecretsConfig holds the credential sealing key.
type SecretsConfig struct {
	Key string `mapstructure:"key"`
}

// ChatConfig bounds chat usage per organization.
type ChatConfig struct {
	QuotaLimit  int           `mapstructure:"quota_limit"`
	QuotaWindow time.Duration `mapstructure:"quota_window"`
}

// PipelineConfig tunes the investigation pipeline.
type PipelineConfig struct {
	QueryCount       int              `mapstructure:"query_count"`
	TopKPerQuery     int              `mapstructure:"top_k_per_query"`
	TopDocuments     int              `mapstructure:"top_documents"`
	LogSampleSize    int              `mapstructure:"log_sample_size"`
	LogFetchLimit    int              `mapstructure:"log_fetch_limit"`
	MaxLogChars      int              `mapstructure:"max_log_chars"`
	DefaultTimeframe models.Timeframe `mapstructure:"default_timeframe"`
	CallTimeout      time.Duration    `mapstructure:"call_timeout"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.env", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "causeway")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.database", "causeway")
	v.SetDefault("database.postgres.sslmode", "disable")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", true)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.name", "causeway")
	v.SetDefault("nats.enabled", true)

	v.SetDefault("storage.url", "https://localhost:9200")
	v.SetDefault("storage.username", "admin")
	v.SetDefault("storage.password", "")
	v.SetDefault("storage.insecure", true)

	v.SetDefault("llm.base_url", "https://api.openai.com")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.timeout", "60s")

	// A default must exist for AutomaticEnv to surface the key at Unmarshal.
	v.SetDefault("secrets.key", "")

	v.SetDefault("clustering.url", "http://localhost:8070")
	v.SetDefault("clustering.timeout", "30s")

	v.SetDefault("chat.quota_limit", 100)
	v.SetDefault("chat.quota_window", "24h")

	v.SetDefault("pipeline.query_count", 3)
	v.SetDefault("pipeline.top_k_per_query", 3)
	v.SetDefault("pipeline.top_documents", 3)
	v.SetDefault("pipeline.log_sample_size", 2)
	v.SetDefault("pipeline.log_fetch_limit", 200)
	v.SetDefault("pipeline.max_log_chars", 10000)
	v.SetDefault("pipeline.default_timeframe", string(models.TimeframeLast24H))
	v.SetDefault("pipeline.call_timeout", "30s")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override file config.
	v.SetEnvPrefix("CAUSEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if !cfg.Pipeline.DefaultTimeframe.Valid() {
		return nil, fmt.Errorf("invalid default timeframe %q", cfg.Pipeline.DefaultTimeframe)
	}

	return &cfg, nil
}
