package config

import (
	"errors"
	"testing"
	"time"
)

var configEnvKeys = []string{
	"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL", "RUN_MIGRATIONS", "REDIS_URL", "PROFILE_CACHE_TTL_MIN",
	"SUPABASE_URL", "VITE_SUPABASE_URL", "SUPABASE_KEY", "VITE_SUPABASE_ANON_KEY", "SUPABASE_TABLE",
	"APIFY_TOKEN", "APIFY_ACTOR_ID", "APIFY_BASE_URL",
	"MISTRAL_API_KEY", "MISTRA_API_KEY", "MISTRAL_BASE_URL", "MISTRAL_MODEL", "MISTRAL_TEMPERATURE",
	"ALLOWED_ORIGINS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/outreach")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "4000" {
		t.Errorf("expected port 4000, got %s", cfg.Port)
	}
	if cfg.ApifyActorID != DefaultApifyActorID {
		t.Errorf("expected default actor, got %s", cfg.ApifyActorID)
	}
	if cfg.MistralModel != "mistral-small-latest" {
		t.Errorf("expected mistral-small-latest, got %s", cfg.MistralModel)
	}
	if cfg.MistralTemperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", cfg.MistralTemperature)
	}
	if cfg.ProfileCacheTTL != time.Hour {
		t.Errorf("expected 1h cache ttl, got %v", cfg.ProfileCacheTTL)
	}
	if cfg.HasScraper() || cfg.HasCompletion() || cfg.HasRedis() {
		t.Error("expected optional integrations to be disabled")
	}
	if cfg.UseSupabaseREST() {
		t.Error("expected direct database connection")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug level in development, got %s", cfg.LogLevel)
	}
}

func TestLoadFailsWithoutPersistence(t *testing.T) {
	clearEnv(t)
	t.Setenv("APIFY_TOKEN", "token")

	_, err := Load()
	if !errors.Is(err, ErrNoPersistence) {
		t.Fatalf("expected ErrNoPersistence, got %v", err)
	}
}

func TestLoadSupabaseFallbackSpellings(t *testing.T) {
	clearEnv(t)
	t.Setenv("VITE_SUPABASE_URL", "https://abc.supabase.co/")
	t.Setenv("VITE_SUPABASE_ANON_KEY", "anon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SupabaseURL != "https://abc.supabase.co" {
		t.Errorf("expected trimmed url, got %s", cfg.SupabaseURL)
	}
	if !cfg.UseSupabaseREST() {
		t.Error("expected PostgREST store")
	}
	if !cfg.UsingViteEnvVars {
		t.Error("expected VITE_* usage to be flagged")
	}
}

func TestLoadMistralKeySpellings(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"canonical", "MISTRAL_API_KEY"},
		{"legacy typo", "MISTRA_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DATABASE_URL", "postgres://localhost/outreach")
			t.Setenv(tt.key, "secret")

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.MistralAPIKey != "secret" || !cfg.HasCompletion() {
				t.Errorf("expected key from %s", tt.key)
			}
		})
	}
}

func TestLoadKeepsZeroTemperature(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/outreach")
	t.Setenv("MISTRAL_TEMPERATURE", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MistralTemperature != 0 {
		t.Errorf("expected temperature 0, got %v", cfg.MistralTemperature)
	}
}
