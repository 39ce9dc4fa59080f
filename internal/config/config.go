package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	Env         string
	FrontendURL string

	// Database
	DBDriver    string // "postgres" | "sqlite"
	DatabaseURL string
	SQLitePath  string

	// Redis (optional: progress events and processing locks)
	RedisURL string

	// Auth
	JWTSecret      string
	AccessTokenTTL time.Duration
	AllowSignup    bool

	// LLM
	LLMProvider    string // "gemini" | "openai" | "demo"
	GeminiAPIKey   string
	GeminiModel    string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	LLMConcurrency int
	LLMTimeout     time.Duration

	// Limits
	MaxUploadMB       int
	MaxInputTokens    int
	UploadDir         string
	ProcessingWorkers int

	// Cache maintenance
	CacheRetentionDays int
	JanitorInterval    time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:               getEnvOrDefault("PORT", "8080"),
		Env:                getEnvOrDefault("ENV", "development"),
		FrontendURL:        getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
		DBDriver:           strings.ToLower(getEnvOrDefault("DB_DRIVER", "postgres")),
		SQLitePath:         getEnvOrDefault("SQLITE_PATH", "studybuddy.db"),
		RedisURL:           getEnvOrDefault("REDIS_URL", ""),
		JWTSecret:          mustGetEnv("JWT_SECRET"),
		AccessTokenTTL:     getEnvAsDurationOrDefault("ACCESS_TOKEN_TTL", 24*time.Hour),
		AllowSignup:        getEnvAsBoolOrDefault("ALLOW_SIGNUP", true),
		LLMProvider:        strings.ToLower(getEnvOrDefault("LLM_PROVIDER", "demo")),
		GeminiModel:        getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIModel:        getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:      getEnvOrDefault("OPENAI_BASE_URL", ""),
		LLMConcurrency:     getEnvAsIntOrDefault("LLM_CONCURRENCY", 5),
		LLMTimeout:         getEnvAsDurationOrDefault("LLM_TIMEOUT", 90*time.Second),
		MaxUploadMB:        getEnvAsIntOrDefault("MAX_UPLOAD_MB", 50),
		MaxInputTokens:     getEnvAsIntOrDefault("MAX_INPUT_TOKENS", 12000),
		UploadDir:          getEnvOrDefault("UPLOAD_DIR", os.TempDir()),
		ProcessingWorkers:  getEnvAsIntOrDefault("PROCESSING_WORKERS", 8),
		CacheRetentionDays: getEnvAsIntOrDefault("CACHE_RETENTION_DAYS", 30),
		JanitorInterval:    getEnvAsDurationOrDefault("JANITOR_INTERVAL", time.Hour),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", "text"),
	}

	if cfg.DBDriver == "postgres" {
		cfg.DatabaseURL = mustGetEnv("DATABASE_URL")
	}

	switch cfg.LLMProvider {
	case "gemini":
		cfg.GeminiAPIKey = mustGetEnv("GEMINI_API_KEY")
	case "openai":
		cfg.OpenAIAPIKey = mustGetEnv("OPENAI_API_KEY")
	}

	return cfg
}

// MaxUploadBytes is the hard ceiling applied before any plan-specific check.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
