package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	DatabaseURL     string
	RedisURL        string
	LLMProvider     string
	LLMModel        string
	MaxUploadBytes  int64
	AnalysisTimeout time.Duration
	JWTSecret       string
	Env             string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:     dbURL,
		RedisURL:        getEnv("REDIS_URL", ""),
		LLMProvider:     normalizeProvider(getEnv("LLM_PROVIDER", "openai")),
		LLMModel:        getEnv("LLM_MODEL", ""),
		MaxUploadBytes:  getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),
		AnalysisTimeout: time.Duration(getEnvInt64("ANALYSIS_TIMEOUT_SECONDS", 120)) * time.Second,
		JWTSecret:       getEnv("JWT_SECRET", ""),
		Env:             env,
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || val <= 0 {
		log.Printf("config: %s invalid value %q, using default", key, raw)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "anthropic":
		return "anthropic"
	default:
		return "openai"
	}
}
