package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		_ = os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoadAppliesDefaultsWhenUnset(t *testing.T) {
	clearEnv(t, "PORT", "DB_PATH", "MAX_BYTES", "IGNORE_PARTS", "CORS_ENABLED",
		"CORRELATOR_WINDOW_SECONDS", "WORKER_POOL_SIZE", "OPENAI_API_KEY")

	cfg := Load()

	require.Equal(t, 4381, cfg.Port)
	require.Equal(t, "recorder.db", cfg.DBPath)
	require.Equal(t, int64(2_000_000), cfg.MaxBytes)
	require.Equal(t, []string{".git", "node_modules", ".venv", ".idea", ".vscode", "__pycache__"}, cfg.IgnoreParts)
	require.False(t, cfg.CORSEnabled)
	require.Equal(t, 300*time.Second, cfg.CorrelatorWindow)
	require.Equal(t, 4, cfg.WorkerPoolSize)
	require.False(t, cfg.HasLLM())
}

func TestLoadReadsOverridesFromEnvironment(t *testing.T) {
	clearEnv(t, "PORT", "CORS_ORIGINS", "CORS_ENABLED", "OPENAI_API_KEY")
	os.Setenv("PORT", "9090")
	os.Setenv("CORS_ENABLED", "true")
	os.Setenv("CORS_ORIGINS", "http://localhost:3000, http://localhost:5173")
	os.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := Load()

	require.Equal(t, 9090, cfg.Port)
	require.True(t, cfg.CORSEnabled)
	require.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
	require.True(t, cfg.HasLLM())
}

func TestLoadIgnoresUnparseableIntAndFallsBackToDefault(t *testing.T) {
	clearEnv(t, "PORT")
	os.Setenv("PORT", "not-a-number")

	cfg := Load()

	require.Equal(t, 4381, cfg.Port)
}
