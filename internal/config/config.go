package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL  PostgreSQLConfig
	Server      ServerConfig
	Search      SearchConfig
	VectorIndex VectorIndexConfig
	Embedding   EmbeddingConfig
	Sessions    SessionsConfig
	OpenAI      OpenAIConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, takes precedence
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
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// SearchConfig holds search-related configuration
type SearchConfig struct {
	DefaultLimit       int
	Oversample         int
	BackfillBatch      int
	BackfillConcurrent int
}

// VectorIndexConfig holds the vector service configuration
type VectorIndexConfig struct {
	URL        string
	Collection string
	Dimension  int
	Timeout    time.Duration
}

// EmbeddingConfig holds the local embedding service configuration
type EmbeddingConfig struct {
	LocalURL  string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// SessionsConfig holds chat session retention configuration
type SessionsConfig struct {
	TTL         time.Duration
	MaxSessions int
	MaxTurns    int
}

// OpenAIConfig holds OpenAI-compatible API configuration
type OpenAIConfig struct {
	APIKey              string
	APIBase             string
	ChatModel           string
	ChatTemperature     float64
	ChatMaxTokens       int
	EmbeddingModel      string
	EmbeddingDimensions int
	BatchSize           int
	Timeout             int
	Enabled             bool
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
			Database:           getEnv("PG_DATABASE", "recipes"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Search: SearchConfig{
			DefaultLimit:       getEnvAsInt("SEARCH_DEFAULT_LIMIT", 10),
			Oversample:         getEnvAsInt("SEARCH_OVERSAMPLE", 50),
			BackfillBatch:      getEnvAsInt("BACKFILL_BATCH_SIZE", 100),
			BackfillConcurrent: getEnvAsInt("BACKFILL_CONCURRENCY", 4),
		},
		VectorIndex: VectorIndexConfig{
			URL:        getEnv("VECTOR_INDEX_URL", "http://localhost:6333"),
			Collection: getEnv("VECTOR_INDEX_COLLECTION", "recipes"),
			Dimension:  getEnvAsInt("VECTOR_INDEX_DIMENSION", 768),
			Timeout:    time.Duration(getEnvAsInt("VECTOR_INDEX_TIMEOUT", 30)) * time.Second,
		},
		Embedding: EmbeddingConfig{
			LocalURL:  getEnv("EMBEDDING_LOCAL_URL", "http://localhost:11434"),
			Model:     getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			Dimension: getEnvAsInt("EMBEDDING_DIMENSION", 768),
			Timeout:   time.Duration(getEnvAsInt("EMBEDDING_TIMEOUT", 30)) * time.Second,
		},
		Sessions: SessionsConfig{
			TTL:         time.Duration(getEnvAsInt("SESSION_TTL_MINUTES", 60)) * time.Minute,
			MaxSessions: getEnvAsInt("SESSION_MAX_SESSIONS", 1000),
			MaxTurns:    getEnvAsInt("SESSION_MAX_TURNS", 20),
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			APIBase:             getEnv("OPENAI_API_BASE", "https://integrate.api.nvidia.com/v1"),
			ChatModel:           getEnv("OPENAI_CHAT_MODEL", "deepseek-ai/deepseek-v3.1-terminus"),
			ChatTemperature:     getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.2),
			ChatMaxTokens:       getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 8192),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "baai/bge-m3"),
			EmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 768),
			BatchSize:           getEnvAsInt("OPENAI_BATCH_SIZE", 100),
			Timeout:             getEnvAsInt("OPENAI_TIMEOUT", 30),
			Enabled:             getEnv("OPENAI_API_KEY", "") != "",
		},
	}

	return cfg, nil
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
