// Package config provides configuration management for DriftWatch.
// It loads settings from environment variables with the DRIFTWATCH_
// prefix and provides sensible defaults for all configuration options.
//
// Engine tuning (indicator thresholds and weights) can additionally be
// loaded from a YAML file pointed at by DRIFTWATCH_ENGINE_CONFIG; the
// file overrides the built-in defaults but not explicit code overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stridehq/driftwatch/internal/engine"
)

// Config holds all configuration settings for the DriftWatch application.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Embedding EmbeddingConfig
	Security  SecurityConfig
	Ingest    IngestConfig
	Engine    engine.Config
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    // Server port (default: 6464)
	Host string // Server host (default: 127.0.0.1)
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	StorageEngine   string // Storage engine type: sqlite (default: sqlite)
	DataPath        string // Path to data directory (default: ./data)
	VectorBackend   string // Vector index backend: memory, postgres (default: memory)
	VectorDimension int    // Embedding dimension (default: 384)
	PostgresURL     string // Postgres connection string for the pgvector backend
	SnapshotPath    string // Path to the vector snapshot database (empty disables snapshots)
}

// EmbeddingConfig contains embedding provider configuration.
type EmbeddingConfig struct {
	Provider       string        // Embedding provider: ollama, hash (default: ollama)
	OllamaURL      string        // Ollama API URL (default: http://localhost:11434)
	EmbeddingModel string        // Ollama embedding model (default: nomic-embed-text)
	Timeout        time.Duration // Per-request timeout (default: 5s)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string  // Security mode: development, production (default: development)
	APIToken     string  // API authentication token
	RateLimit    float64 // Requests per second per client (default: 20)
	RateBurst    int     // Burst allowance (default: 40)
}

// IngestConfig contains drop-directory ingestion settings.
type IngestConfig struct {
	Enabled bool   // Enable the drop-directory watcher (default: false)
	DropDir string // Directory watched for .event files (default: ./data/ingest)
}

// LoadConfig loads configuration from environment variables with
// sensible defaults. All environment variables use the DRIFTWATCH_
// prefix. When DRIFTWATCH_ENGINE_CONFIG names a YAML file, engine
// thresholds and weights are loaded from it.
func LoadConfig() (*Config, error) {
	cfg := buildBaseConfig()
	if path := os.Getenv("DRIFTWATCH_ENGINE_CONFIG"); path != "" {
		engineCfg, err := LoadEngineConfig(path)
		if err != nil {
			return nil, err
		}
		cfg.Engine = engineCfg
	}
	return cfg, nil
}

// LoadEngineConfig reads engine thresholds and weights from a YAML
// file. Fields absent from the file keep their defaults.
func LoadEngineConfig(path string) (engine.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Config{}, fmt.Errorf("config: read engine config %s: %w", path, err)
	}
	var cfg engine.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return engine.Config{}, fmt.Errorf("config: parse engine config %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// buildBaseConfig constructs a Config with values from environment
// variables and defaults.
func buildBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("DRIFTWATCH_PORT", 6464),
			Host: getEnv("DRIFTWATCH_HOST", "127.0.0.1"),
		},
		Storage: StorageConfig{
			StorageEngine:   getEnv("DRIFTWATCH_STORAGE_ENGINE", "sqlite"),
			DataPath:        getEnv("DRIFTWATCH_DATA_PATH", "./data"),
			VectorBackend:   getEnv("DRIFTWATCH_VECTOR_BACKEND", "memory"),
			VectorDimension: getEnvInt("DRIFTWATCH_VECTOR_DIMENSION", 384),
			PostgresURL:     getEnv("DRIFTWATCH_POSTGRES_URL", ""),
			SnapshotPath:    getEnv("DRIFTWATCH_SNAPSHOT_PATH", ""),
		},
		Embedding: EmbeddingConfig{
			Provider:       getEnv("DRIFTWATCH_EMBEDDING_PROVIDER", "ollama"),
			OllamaURL:      getEnv("DRIFTWATCH_OLLAMA_URL", "http://localhost:11434"),
			EmbeddingModel: getEnv("DRIFTWATCH_EMBEDDING_MODEL", "nomic-embed-text"),
			Timeout:        getEnvDuration("DRIFTWATCH_EMBEDDING_TIMEOUT", 5*time.Second),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("DRIFTWATCH_SECURITY_MODE", "development"),
			APIToken:     getEnv("DRIFTWATCH_API_TOKEN", ""),
			RateLimit:    getEnvFloat("DRIFTWATCH_RATE_LIMIT", 20),
			RateBurst:    getEnvInt("DRIFTWATCH_RATE_BURST", 40),
		},
		Ingest: IngestConfig{
			Enabled: getEnvBool("DRIFTWATCH_INGEST_ENABLED", false),
			DropDir: getEnv("DRIFTWATCH_INGEST_DIR", "./data/ingest"),
		},
		Engine: engine.DefaultConfig(),
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (e.g. "5s")
// or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// It recognizes "true", "1", "yes" as true and "false", "0", "no" as false (case-insensitive).
// If the environment variable exists but cannot be parsed as a boolean,
// it returns the default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}
