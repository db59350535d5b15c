// Package config loads the recorder's process configuration from the
// environment, the way both codeready-toolchain-tarsy and
// recera-onyx-coding-agent load theirs: an optional .env file via
// github.com/joho/godotenv, then os.Getenv with documented defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-recognized key the recorder reads on startup.
type Config struct {
	OpenAIAPIKey       string
	OpenAIModel        string
	OpenAIMatchModel   string
	Port               int
	DBPath             string
	RepoPath           string
	MaxBytes           int64
	IgnoreParts        []string
	CORSEnabled        bool
	CORSOrigins        []string
	CorrelatorWindow   time.Duration
	LLMTimeout         time.Duration
	WorkerPoolSize     int
	WatchDebounce      time.Duration
}

// Load reads .env (if present) then the environment, applying documented defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getString("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIMatchModel: getString("OPENAI_MATCHING_MODEL", "gpt-4o"),
		Port:             getInt("PORT", 4381),
		DBPath:           getString("DB_PATH", "recorder.db"),
		RepoPath:         os.Getenv("REPO_PATH"),
		MaxBytes:         getInt64("MAX_BYTES", 2_000_000),
		IgnoreParts:      getList("IGNORE_PARTS", []string{".git", "node_modules", ".venv", ".idea", ".vscode", "__pycache__"}),
		CORSEnabled:      getBool("CORS_ENABLED", false),
		CORSOrigins:      getList("CORS_ORIGINS", nil),
		CorrelatorWindow: time.Duration(getInt("CORRELATOR_WINDOW_SECONDS", 300)) * time.Second,
		LLMTimeout:       time.Duration(getInt("LLM_TIMEOUT_SECONDS", 60)) * time.Second,
		WorkerPoolSize:   getInt("WORKER_POOL_SIZE", 4),
		WatchDebounce:    time.Duration(getInt("WATCH_DEBOUNCE_MS", 0)) * time.Millisecond,
	}
}

// HasLLM reports whether the Correlator and Architecture Tracker should use
// the HTTP-backed LLM capability rather than the no-op one.
func (c *Config) HasLLM() bool { return c.OpenAIAPIKey != "" }

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
