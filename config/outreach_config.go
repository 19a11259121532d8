package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultApifyActorID is the LinkedIn company scraper used when APIFY_ACTOR_ID is unset.
const DefaultApifyActorID = "z2Fffb9ooRhoCtS15"

// ErrNoPersistence is returned by Validate when no profile store is configured.
var ErrNoPersistence = errors.New("missing persistence configuration: set DATABASE_URL, or SUPABASE_URL and SUPABASE_KEY (VITE_SUPABASE_URL / VITE_SUPABASE_ANON_KEY)")

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Database
	DatabaseURL      string
	RunMigrations    bool
	RedisURL         string
	ProfileCacheTTL  time.Duration
	SupabaseURL      string
	SupabaseKey      string
	SupabaseTable    string
	UsingViteEnvVars bool

	// Apify
	ApifyToken   string
	ApifyActorID string
	ApifyBaseURL string

	// Mistral
	MistralAPIKey      string
	MistralBaseURL     string
	MistralModel       string
	MistralTemperature float64

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	env := getEnv("ENV", "development")
	defaultLevel := "info"
	if env == "development" {
		defaultLevel = "debug"
	}

	supabaseURL, urlFromVite := firstEnv("SUPABASE_URL", "VITE_SUPABASE_URL")
	supabaseKey, keyFromVite := firstEnv("SUPABASE_KEY", "VITE_SUPABASE_ANON_KEY")
	// Both spellings are accepted for the Mistral key.
	mistralKey, _ := firstEnv("MISTRAL_API_KEY", "MISTRA_API_KEY")

	cfg := &Config{
		Port:        getEnv("PORT", "4000"),
		Environment: env,
		LogLevel:    getEnv("LOG_LEVEL", defaultLevel),

		// Database
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RunMigrations:    getEnvBool("RUN_MIGRATIONS", true),
		RedisURL:         getEnv("REDIS_URL", ""),
		ProfileCacheTTL:  time.Duration(getEnvInt("PROFILE_CACHE_TTL_MIN", 60)) * time.Minute,
		SupabaseURL:      strings.TrimRight(supabaseURL, "/"),
		SupabaseKey:      supabaseKey,
		SupabaseTable:    getEnv("SUPABASE_TABLE", "profiles"),
		UsingViteEnvVars: urlFromVite || keyFromVite,

		// Apify
		ApifyToken:   getEnv("APIFY_TOKEN", ""),
		ApifyActorID: getEnv("APIFY_ACTOR_ID", DefaultApifyActorID),
		ApifyBaseURL: strings.TrimRight(getEnv("APIFY_BASE_URL", "https://api.apify.com"), "/"),

		// Mistral
		MistralAPIKey:      mistralKey,
		MistralBaseURL:     getEnv("MISTRAL_BASE_URL", "https://api.mistral.ai/v1"),
		MistralModel:       getEnv("MISTRAL_MODEL", "mistral-small-latest"),
		MistralTemperature: getEnvFloat("MISTRAL_TEMPERATURE", 0.7),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"*"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the one hard requirement: a profile store. Scraper and
// completion credentials are optional and degrade to mock values.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && (c.SupabaseURL == "" || c.SupabaseKey == "") {
		return ErrNoPersistence
	}
	return nil
}

// UseSupabaseREST reports whether the PostgREST store is used instead of a direct connection.
func (c *Config) UseSupabaseREST() bool {
	return c.DatabaseURL == ""
}

func (c *Config) HasScraper() bool    { return c.ApifyToken != "" }
func (c *Config) HasCompletion() bool { return c.MistralAPIKey != "" }
func (c *Config) HasRedis() bool      { return c.RedisURL != "" }

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// firstEnv returns the first non-empty variable among keys and whether it
// came from a fallback spelling.
func firstEnv(keys ...string) (string, bool) {
	for i, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value, i > 0
		}
	}
	return "", false
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
