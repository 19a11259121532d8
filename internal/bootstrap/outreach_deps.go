package bootstrap

import (
	"context"

	"outreach_server/adapter/out/llm"
	"outreach_server/adapter/out/persistence"
	"outreach_server/adapter/out/scraper"
	"outreach_server/adapter/out/supabase"
	"outreach_server/config"
	"outreach_server/core/port/out"
	"outreach_server/core/service/outreach"
	"outreach_server/infra/database"
	"outreach_server/pkg/cache"
	"outreach_server/pkg/logger"
	"outreach_server/pkg/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const profileCachePrefix = "outreach:profile"

type Dependencies struct {
	Config *config.Config

	// Metrics
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// Storage
	DB          *pgxpool.Pool
	SQLDB       *sqlx.DB
	Redis       *redis.Client
	ProfileRepo out.ProfileRepository
	Store       out.Pinger

	// Gateways (nil when the credential is not configured)
	Scraper   out.ScrapeGateway
	Completer out.CompletionGateway

	// Services
	OutreachService *outreach.Service
}

func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	deps.Registry = prometheus.NewRegistry()
	deps.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deps.Metrics = metrics.New(deps.Registry)

	zlog := logger.Default().Zerolog()

	// Profile store
	if cfg.UseSupabaseREST() {
		if cfg.UsingViteEnvVars {
			logger.Warn("Using VITE_SUPABASE_* variables for the profile store; prefer SUPABASE_URL and SUPABASE_KEY")
		}
		deps.ProfileRepo = supabase.NewProfileStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseTable, nil, deps.Metrics)
		logger.Info("Profile store: Supabase REST (%s)", cfg.SupabaseURL)
	} else {
		if cfg.RunMigrations {
			if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
				return nil, nil, err
			}
		}

		pool, err := database.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		deps.DB = pool
		cleanups = append(cleanups, pool.Close)

		deps.SQLDB = database.NewSQLX(pool)
		cleanups = append(cleanups, func() { _ = deps.SQLDB.Close() })
		deps.Metrics.RegisterDB("profiles", deps.SQLDB.DB)

		deps.ProfileRepo = persistence.NewProfileAdapter(deps.SQLDB)
		logger.Info("Profile store: PostgreSQL")
	}

	// Optional profile cache
	if cfg.HasRedis() {
		client, err := database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, profile cache disabled")
		} else {
			deps.Redis = client
			cleanups = append(cleanups, func() { _ = client.Close() })
			deps.ProfileRepo = persistence.NewCachedProfileRepository(
				deps.ProfileRepo,
				cache.NewRedisCache(client, profileCachePrefix),
				cfg.ProfileCacheTTL,
				zlog.With().Str("component", "profile_cache").Logger(),
			)
			logger.Info("Profile cache enabled (ttl: %v)", cfg.ProfileCacheTTL)
		}
	}
	deps.Store, _ = deps.ProfileRepo.(out.Pinger)

	// Scraper
	if cfg.HasScraper() {
		deps.Scraper = scraper.NewApifyClient(scraper.Config{
			Token:   cfg.ApifyToken,
			ActorID: cfg.ApifyActorID,
			BaseURL: cfg.ApifyBaseURL,
		}, deps.Metrics, zlog.With().Str("component", "apify").Logger())
	} else {
		logger.Warn("APIFY_TOKEN is not set; profiles will use mock data")
	}

	// Completion
	if cfg.HasCompletion() {
		deps.Completer = llm.NewClient(llm.ClientConfig{
			APIKey:      cfg.MistralAPIKey,
			BaseURL:     cfg.MistralBaseURL,
			Model:       cfg.MistralModel,
			Temperature: &cfg.MistralTemperature,
		}, deps.Metrics, zlog.With().Str("component", "mistral").Logger())
	} else {
		logger.Warn("MISTRAL_API_KEY is not set; emails will be mocked")
	}

	deps.OutreachService = outreach.NewService(
		deps.ProfileRepo,
		deps.Scraper,
		deps.Completer,
		outreach.WithMetrics(deps.Metrics),
		outreach.WithLogger(zlog.With().Str("component", "outreach").Logger()),
	)

	return deps, cleanup, nil
}
