package infra

import (
	"strings"
	"testing"
	"time"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "PORT", "OUTPUT_DIR", "JOB_STORE", "DATABASE_URL", "REDIS_URL",
		"THEME_PROVIDER", "GENERATION_WORKERS", "RETRY_MAX_ATTEMPTS", "RETRY_DELAY_SECONDS",
		"CLEANUP_INTERVAL_MINUTES", "MAX_JOB_AGE_HOURS", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.JobStore != JobStoreMemory {
		t.Fatalf("JobStore mismatch: got %q want %q", cfg.JobStore, JobStoreMemory)
	}
	if cfg.OutputDir != "output" {
		t.Fatalf("OutputDir mismatch: got %q want %q", cfg.OutputDir, "output")
	}
	if cfg.RetryMaxAttempts != 3 || cfg.RetryDelay != 10*time.Second {
		t.Fatalf("retry defaults mismatch: attempts=%d delay=%s", cfg.RetryMaxAttempts, cfg.RetryDelay)
	}
	if cfg.GenerationWorkers != 2 {
		t.Fatalf("GenerationWorkers mismatch: got %d want 2", cfg.GenerationWorkers)
	}
	if cfg.CleanupInterval != time.Hour || cfg.MaxJobAge != 24*time.Hour {
		t.Fatalf("cleanup defaults mismatch: interval=%s age=%s", cfg.CleanupInterval, cfg.MaxJobAge)
	}
	if cfg.DefaultImageModel != "gemini-3-pro-image-preview" {
		t.Fatalf("DefaultImageModel mismatch: got %q", cfg.DefaultImageModel)
	}
}

func TestLoadConfigParsesOrigins(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.CORSAllowedOrigins) != len(expected) {
		t.Fatalf("CORSAllowedOrigins mismatch: got %#v want %#v", cfg.CORSAllowedOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], origin)
		}
	}
}

func TestLoadConfigRejectsInvalidCombinations(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "postgres_without_url", env: map[string]string{"JOB_STORE": "postgres"}, want: "DATABASE_URL"},
		{name: "redis_without_url", env: map[string]string{"JOB_STORE": "redis"}, want: "REDIS_URL"},
		{name: "unknown_store", env: map[string]string{"JOB_STORE": "etcd"}, want: "JOB_STORE"},
		{name: "unknown_theme_provider", env: map[string]string{"THEME_PROVIDER": "claude"}, want: "THEME_PROVIDER"},
		{name: "zero_workers", env: map[string]string{"GENERATION_WORKERS": "0"}, want: "GENERATION_WORKERS"},
		{name: "zero_attempts", env: map[string]string{"RETRY_MAX_ATTEMPTS": "0"}, want: "RETRY_MAX_ATTEMPTS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			if err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadConfigAcceptsPostgresWithURL(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("JOB_STORE", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.JobStore != JobStorePostgres {
		t.Fatalf("JobStore mismatch: got %q want %q", cfg.JobStore, JobStorePostgres)
	}
}
