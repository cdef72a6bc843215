package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duetware/keepsake/internal/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	clearKeepsakeEnv(t)

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 7171, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "sqlite", cfg.Storage.Engine)
	assert.Equal(t, "./data/keepsake.db", cfg.Storage.DataPath)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.OllamaURL)
	assert.Equal(t, float64(20), cfg.Security.RateLimitPerSec)
	assert.Equal(t, 40, cfg.Security.RateLimitBurst)
	assert.Equal(t, time.Duration(0), cfg.Jobs.SweepInterval)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearKeepsakeEnv(t)
	t.Setenv("KEEPSAKE_PORT", "9090")
	t.Setenv("KEEPSAKE_LLM_PROVIDER", "anthropic")
	t.Setenv("KEEPSAKE_ANTHROPIC_API_KEY", "test-key")
	t.Setenv("KEEPSAKE_SWEEP_INTERVAL", "6h")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "test-key", cfg.LLM.AnthropicAPIKey)
	assert.Equal(t, 6*time.Hour, cfg.Jobs.SweepInterval)
}

func TestLoadConfig_InvalidEnvValueFallsBack(t *testing.T) {
	clearKeepsakeEnv(t)
	t.Setenv("KEEPSAKE_PORT", "not-a-number")
	t.Setenv("KEEPSAKE_SWEEP_INTERVAL", "soon")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 7171, cfg.Server.Port)
	assert.Equal(t, time.Duration(0), cfg.Jobs.SweepInterval)
}

func TestLoadConfig_YAMLOverlay(t *testing.T) {
	clearKeepsakeEnv(t)
	t.Setenv("KEEPSAKE_PORT", "9090")

	path := filepath.Join(t.TempDir(), "keepsake.yaml")
	yaml := `
server:
  port: 8080
security:
  maintenance_secret: overlay-secret
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("KEEPSAKE_CONFIG", path)

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	// YAML wins over the environment for keys it sets.
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "overlay-secret", cfg.Security.MaintenanceSecret)
	// Untouched keys keep their env/default values.
	assert.Equal(t, "sqlite", cfg.Storage.Engine)
}

func TestLoadConfig_MissingYAMLFile(t *testing.T) {
	clearKeepsakeEnv(t)
	t.Setenv("KEEPSAKE_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := config.LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	t.Run("unknown storage engine", func(t *testing.T) {
		clearKeepsakeEnv(t)
		t.Setenv("KEEPSAKE_STORAGE_ENGINE", "mysql")
		_, err := config.LoadConfig()
		assert.Error(t, err)
	})

	t.Run("postgres without DSN", func(t *testing.T) {
		clearKeepsakeEnv(t)
		t.Setenv("KEEPSAKE_STORAGE_ENGINE", "postgres")
		_, err := config.LoadConfig()
		assert.Error(t, err)
	})

	t.Run("postgres with DSN", func(t *testing.T) {
		clearKeepsakeEnv(t)
		t.Setenv("KEEPSAKE_STORAGE_ENGINE", "postgres")
		t.Setenv("KEEPSAKE_POSTGRES_DSN", "postgres://localhost/keepsake")
		_, err := config.LoadConfig()
		assert.NoError(t, err)
	})

	t.Run("unknown LLM provider", func(t *testing.T) {
		clearKeepsakeEnv(t)
		t.Setenv("KEEPSAKE_LLM_PROVIDER", "openai")
		_, err := config.LoadConfig()
		assert.Error(t, err)
	})

	t.Run("out of range port", func(t *testing.T) {
		clearKeepsakeEnv(t)
		t.Setenv("KEEPSAKE_PORT", "70000")
		_, err := config.LoadConfig()
		assert.Error(t, err)
	})
}

// clearKeepsakeEnv unsets every KEEPSAKE_ variable this suite touches so
// tests do not leak into each other through the process environment.
func clearKeepsakeEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"KEEPSAKE_CONFIG", "KEEPSAKE_PORT", "KEEPSAKE_HOST",
		"KEEPSAKE_STORAGE_ENGINE", "KEEPSAKE_DATA_PATH", "KEEPSAKE_POSTGRES_DSN",
		"KEEPSAKE_LLM_PROVIDER", "KEEPSAKE_OLLAMA_URL", "KEEPSAKE_OLLAMA_MODEL",
		"KEEPSAKE_OLLAMA_EMBEDDING_MODEL", "KEEPSAKE_ANTHROPIC_API_KEY",
		"KEEPSAKE_ANTHROPIC_MODEL", "KEEPSAKE_MAINTENANCE_SECRET",
		"KEEPSAKE_RATE_LIMIT_PER_SEC", "KEEPSAKE_RATE_LIMIT_BURST",
		"KEEPSAKE_SWEEP_INTERVAL",
	} {
		t.Setenv(key, "")
	}
}
