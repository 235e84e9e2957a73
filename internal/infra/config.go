package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	GeminiAPIKey       string
	GeminiModel        string
	GeminiProModel     string
	GeminiImageModel   string
	GeminiBaseURL      string
	DefaultModelTier   string
	StoreBackend       string
	DatabaseURL        string
	DBMaxConns         int
	SQLitePath         string
	CacheBackend       string
	CachePath          string
	RedisURL           string
	BreakerThreshold   int
	BreakerTimeout     time.Duration
	RetryMaxAttempts   int
	TaskRetention      time.Duration
	CleanupInterval    time.Duration
	DefaultImageCount  int
	ParallelGeneration bool
	JPEGQuality        int
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiProModel:     getEnv("GEMINI_PRO_MODEL", "gemini-2.5-pro"),
		GeminiImageModel:   getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		DefaultModelTier:   strings.ToLower(getEnv("GEMINI_MODEL_TIER", "auto")),
		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", "sqlite")),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 10),
		SQLitePath:         getEnv("SQLITE_PATH", "data/studio.db"),
		CacheBackend:       strings.ToLower(getEnv("CACHE_BACKEND", "file")),
		CachePath:          getEnv("CACHE_PATH", "data/cache"),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		BreakerThreshold:   getEnvInt("BREAKER_THRESHOLD", 5),
		BreakerTimeout:     time.Second * time.Duration(getEnvInt("BREAKER_TIMEOUT_SECONDS", 60)),
		RetryMaxAttempts:   getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		TaskRetention:      24 * time.Hour * time.Duration(getEnvInt("TASK_RETENTION_DAYS", 30)),
		CleanupInterval:    time.Minute * time.Duration(getEnvInt("CLEANUP_INTERVAL_MINUTES", 60)),
		DefaultImageCount:  getEnvInt("DEFAULT_IMAGE_COUNT", 4),
		ParallelGeneration: getEnvBool("PARALLEL_GENERATION", true),
		JPEGQuality:        getEnvInt("STORAGE_JPEG_QUALITY", 70),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}

	switch cfg.StoreBackend {
	case "memory", "sqlite":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_BACKEND %q", cfg.StoreBackend)
	}

	switch cfg.CacheBackend {
	case "memory", "file", "redis":
	case "db":
		if cfg.StoreBackend == "memory" {
			return nil, fmt.Errorf("CACHE_BACKEND=db needs a sqlite or postgres STORE_BACKEND")
		}
	default:
		return nil, fmt.Errorf("unsupported CACHE_BACKEND %q", cfg.CacheBackend)
	}

	if cfg.BreakerThreshold < 1 {
		return nil, fmt.Errorf("BREAKER_THRESHOLD must be positive")
	}
	if cfg.DBMaxConns < 1 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.RetryMaxAttempts < 1 {
		return nil, fmt.Errorf("RETRY_MAX_ATTEMPTS must be positive")
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return nil, fmt.Errorf("STORAGE_JPEG_QUALITY must be within 1..100")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
