package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	Search     SearchConfig
	Logging    LoggingConfig
	OpenAI     OpenAIConfig
	Redis      RedisConfig
	Backfill   BackfillConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, takes precedence over the parts below
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SearchConfig holds search-related configuration
type SearchConfig struct {
	DefaultLimit         int
	MaxLimit             int
	DefaultMinSimilarity float64
	CandidatePoolSize    int // rows fetched by the lexical strategies
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey              string
	APIBase             string
	ChatModel           string // Model for intent analysis
	ChatTemperature     float64
	ChatMaxTokens       int
	EmbeddingModel      string
	EmbeddingDimensions int
	Timeout             time.Duration
	Enabled             bool
}

// RedisConfig holds the embedding cache configuration. An empty Addr disables the cache.
type RedisConfig struct {
	Addr              string
	Password          string
	DB                int
	EmbeddingCacheTTL time.Duration
}

// BackfillConfig bounds the embedding backfill job.
type BackfillConfig struct {
	Concurrency       int
	RequestsPerSecond float64 // 0 disables throttling
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", ""))),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "rentals"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnvAsList("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS"),
			AllowedHeaders: getEnvAsList("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Search: SearchConfig{
			DefaultLimit:         getEnvAsInt("SEARCH_DEFAULT_LIMIT", 10),
			MaxLimit:             getEnvAsInt("SEARCH_MAX_LIMIT", 100),
			DefaultMinSimilarity: getEnvAsFloat("SEARCH_DEFAULT_MIN_SIMILARITY", 0.3),
			CandidatePoolSize:    getEnvAsInt("SEARCH_CANDIDATE_POOL_SIZE", 50),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			APIBase:             getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
			ChatModel:           getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			ChatTemperature:     getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.1),
			ChatMaxTokens:       getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 500),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 1536),
			Timeout:             getEnvAsDuration("OPENAI_TIMEOUT", 30*time.Second),
			Enabled:             getEnv("OPENAI_API_KEY", "") != "",
		},
		Redis: RedisConfig{
			Addr:              getEnv("REDIS_ADDR", ""),
			Password:          getEnv("REDIS_PASSWORD", ""),
			DB:                getEnvAsInt("REDIS_DB", 0),
			EmbeddingCacheTTL: getEnvAsDuration("EMBEDDING_CACHE_TTL", 24*time.Hour),
		},
		Backfill: BackfillConfig{
			Concurrency:       getEnvAsInt("EMBEDDING_BACKFILL_CONCURRENCY", 4),
			RequestsPerSecond: getEnvAsFloat("EMBEDDING_BACKFILL_RPS", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks the values that would otherwise break the search cascade at runtime.
func (c *Config) Validate() error {
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("SEARCH_DEFAULT_LIMIT must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("SEARCH_MAX_LIMIT (%d) must be >= SEARCH_DEFAULT_LIMIT (%d)",
			c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	if c.Search.DefaultMinSimilarity < 0 || c.Search.DefaultMinSimilarity > 1 {
		return fmt.Errorf("SEARCH_DEFAULT_MIN_SIMILARITY must be within [0,1], got %f", c.Search.DefaultMinSimilarity)
	}
	if c.Search.CandidatePoolSize <= 0 {
		return fmt.Errorf("SEARCH_CANDIDATE_POOL_SIZE must be positive, got %d", c.Search.CandidatePoolSize)
	}
	if c.Backfill.Concurrency <= 0 {
		return fmt.Errorf("EMBEDDING_BACKFILL_CONCURRENCY must be positive, got %d", c.Backfill.Concurrency)
	}
	if c.Backfill.RequestsPerSecond < 0 {
		return fmt.Errorf("EMBEDDING_BACKFILL_RPS must not be negative, got %f", c.Backfill.RequestsPerSecond)
	}
	if c.PostgreSQL.MaxConnections <= 0 {
		return fmt.Errorf("PG_MAX_CONNECTIONS must be positive, got %d", c.PostgreSQL.MaxConnections)
	}
	return nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go duration strings ("30s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration value for %s, using default %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
