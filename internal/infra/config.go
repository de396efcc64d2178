package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Job store backends accepted by JOB_STORE.
const (
	JobStoreMemory   = "memory"
	JobStorePostgres = "postgres"
	JobStoreRedis    = "redis"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv    string
	LogLevel  string
	Port      string
	OutputDir string

	JobStore    string
	DatabaseURL string
	RedisURL    string

	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiImageModel string
	GeminiTextModel  string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIOrg        string
	OpenAIImageModel string
	OpenAITextModel  string

	DefaultImageModel string
	ThemeProvider     string

	GenerationWorkers int
	RetryMaxAttempts  int
	RetryDelay        time.Duration
	CleanupInterval   time.Duration
	MaxJobAge         time.Duration

	S3Bucket  string
	S3Prefix  string
	AWSRegion string

	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  os.Getenv("LOG_LEVEL"),
		Port:      getEnv("PORT", "8000"),
		OutputDir: getEnv("OUTPUT_DIR", "output"),

		JobStore:    strings.ToLower(getEnv("JOB_STORE", JobStoreMemory)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "gemini-3-pro-image-preview"),
		GeminiTextModel:  getEnv("GEMINI_TEXT_MODEL", "gemini-2.0-flash-exp"),

		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:        os.Getenv("OPENAI_ORG"),
		OpenAIImageModel: getEnv("OPENAI_IMAGE_MODEL", "gpt-image-1"),
		OpenAITextModel:  getEnv("OPENAI_TEXT_MODEL", "gpt-4o"),

		DefaultImageModel: getEnv("DEFAULT_IMAGE_MODEL", "gemini-3-pro-image-preview"),
		ThemeProvider:     strings.ToLower(getEnv("THEME_PROVIDER", "gemini")),

		GenerationWorkers: getEnvInt("GENERATION_WORKERS", 2),
		RetryMaxAttempts:  getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryDelay:        time.Second * time.Duration(getEnvInt("RETRY_DELAY_SECONDS", 10)),
		CleanupInterval:   time.Minute * time.Duration(getEnvInt("CLEANUP_INTERVAL_MINUTES", 60)),
		MaxJobAge:         time.Hour * time.Duration(getEnvInt("MAX_JOB_AGE_HOURS", 24)),

		S3Bucket:  os.Getenv("S3_BUCKET"),
		S3Prefix:  getEnv("S3_PREFIX", "banners"),
		AWSRegion: os.Getenv("AWS_REGION"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	switch c.JobStore {
	case JobStoreMemory:
	case JobStorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when JOB_STORE=%s", JobStorePostgres)
		}
	case JobStoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when JOB_STORE=%s", JobStoreRedis)
		}
	default:
		return fmt.Errorf("JOB_STORE %q is not supported", c.JobStore)
	}

	switch c.ThemeProvider {
	case "gemini", "openai", "static":
	default:
		return fmt.Errorf("THEME_PROVIDER %q is not supported", c.ThemeProvider)
	}

	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("OUTPUT_DIR is required")
	}
	if c.GenerationWorkers <= 0 {
		return fmt.Errorf("GENERATION_WORKERS must be positive, got %d", c.GenerationWorkers)
	}
	if c.RetryMaxAttempts <= 0 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be positive, got %d", c.RetryMaxAttempts)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("RETRY_DELAY_SECONDS must not be negative")
	}
	if c.CleanupInterval <= 0 || c.MaxJobAge <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL_MINUTES and MAX_JOB_AGE_HOURS must be positive")
	}
	return nil
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

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
