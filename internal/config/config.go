package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries all runtime settings. Every field has a default so the
// service starts with no environment at all (offline mode, in-memory only).
type Config struct {
	Port string

	// Empty disables the session archive.
	DatabaseURL    string
	MigrationsPath string

	OpenAIAPIKey    string
	OpenAIChatModel string

	PlivoAuthID    string
	PlivoAuthToken string
	PlivoNumber    string

	SessionTimeout time.Duration
	SweepInterval  time.Duration

	// Optional file paths; empty selects built-in defaults.
	ContentPath string
	CorpusPath  string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}

// Load reads all environment variables and builds the config.
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "file://migrations"),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIChatModel: getEnv("OPENAI_MODEL_CHAT", "gpt-4o-mini"),

		PlivoAuthID:    getEnv("PLIVO_AUTH_ID", ""),
		PlivoAuthToken: getEnv("PLIVO_AUTH_TOKEN", ""),
		PlivoNumber:    getEnv("PLIVO_WHATSAPP_NUMBER", ""),

		SessionTimeout: getDurationEnv("SESSION_TIMEOUT", time.Hour),
		SweepInterval:  getDurationEnv("SESSION_SWEEP_INTERVAL", 10*time.Minute),

		ContentPath: getEnv("BOT_CONTENT_PATH", ""),
		CorpusPath:  getEnv("CORPUS_PATH", ""),
	}
}
