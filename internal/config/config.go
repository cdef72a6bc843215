// Package config provides configuration management for Keepsake. Settings
// load from environment variables with the KEEPSAKE_ prefix, with sensible
// defaults for every option. An optional YAML file (pointed at by
// KEEPSAKE_CONFIG) overlays the environment values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the Keepsake service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	LLM      LLMConfig      `yaml:"llm"`
	Security SecurityConfig `yaml:"security"`
	Jobs     JobsConfig     `yaml:"jobs"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"` // default: 7171
	Host string `yaml:"host"` // default: 0.0.0.0
}

// StorageConfig contains database configuration.
type StorageConfig struct {
	// Engine selects the storage backend: sqlite or postgres.
	Engine string `yaml:"engine"`

	// DataPath is the SQLite database path (default: ./data/keepsake.db).
	DataPath string `yaml:"data_path"`

	// PostgresDSN is the connection string for the postgres engine.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// LLMConfig contains completion-service provider configuration.
type LLMConfig struct {
	Provider             string `yaml:"provider"`               // anthropic or ollama (default: ollama)
	OllamaURL            string `yaml:"ollama_url"`             // default: http://localhost:11434
	OllamaModel          string `yaml:"ollama_model"`           // default: qwen2.5:7b
	OllamaEmbeddingModel string `yaml:"ollama_embedding_model"` // default: nomic-embed-text
	AnthropicAPIKey      string `yaml:"anthropic_api_key"`
	AnthropicModel       string `yaml:"anthropic_model"`
}

// SecurityConfig contains authentication settings.
type SecurityConfig struct {
	// MaintenanceSecret is the shared secret required by the scheduled
	// maintenance endpoint. Empty disables the endpoint.
	MaintenanceSecret string `yaml:"maintenance_secret"`

	// RateLimitPerSec is the sustained API request rate (default: 20).
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`

	// RateLimitBurst is the maximum burst size (default: 40).
	RateLimitBurst int `yaml:"rate_limit_burst"`
}

// JobsConfig contains maintenance job scheduling settings.
type JobsConfig struct {
	// SweepInterval enables the internal maintenance ticker when > 0.
	// Deployments with an external scheduler leave it at zero and call
	// the maintenance endpoint instead.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// LoadConfig loads configuration from the environment, then overlays the
// YAML file named by KEEPSAKE_CONFIG when set.
func LoadConfig() (*Config, error) {
	cfg := buildBaseConfig()

	if path := os.Getenv("KEEPSAKE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildBaseConfig reads all environment variables and applies defaults.
func buildBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: envInt("KEEPSAKE_PORT", 7171),
			Host: envString("KEEPSAKE_HOST", "0.0.0.0"),
		},
		Storage: StorageConfig{
			Engine:      envString("KEEPSAKE_STORAGE_ENGINE", "sqlite"),
			DataPath:    envString("KEEPSAKE_DATA_PATH", "./data/keepsake.db"),
			PostgresDSN: envString("KEEPSAKE_POSTGRES_DSN", ""),
		},
		LLM: LLMConfig{
			Provider:             envString("KEEPSAKE_LLM_PROVIDER", "ollama"),
			OllamaURL:            envString("KEEPSAKE_OLLAMA_URL", "http://localhost:11434"),
			OllamaModel:          envString("KEEPSAKE_OLLAMA_MODEL", "qwen2.5:7b"),
			OllamaEmbeddingModel: envString("KEEPSAKE_OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			AnthropicAPIKey:      envString("KEEPSAKE_ANTHROPIC_API_KEY", ""),
			AnthropicModel:       envString("KEEPSAKE_ANTHROPIC_MODEL", ""),
		},
		Security: SecurityConfig{
			MaintenanceSecret: envString("KEEPSAKE_MAINTENANCE_SECRET", ""),
			RateLimitPerSec:   envFloat("KEEPSAKE_RATE_LIMIT_PER_SEC", 20),
			RateLimitBurst:    envInt("KEEPSAKE_RATE_LIMIT_BURST", 40),
		},
		Jobs: JobsConfig{
			SweepInterval: envDuration("KEEPSAKE_SWEEP_INTERVAL", 0),
		},
	}
}

func (c *Config) validate() error {
	switch c.Storage.Engine {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported storage engine %q", c.Storage.Engine)
	}
	if c.Storage.Engine == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("config: postgres engine requires KEEPSAKE_POSTGRES_DSN")
	}
	switch c.LLM.Provider {
	case "anthropic", "ollama", "":
	default:
		return fmt.Errorf("config: unsupported LLM provider %q", c.LLM.Provider)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
