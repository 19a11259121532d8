package persistence

import (
	"context"
	"time"

	"outreach_server/core/domain"
	"outreach_server/core/port/out"
	"outreach_server/pkg/cache"
	"outreach_server/pkg/logger"

	"github.com/rs/zerolog"
)

var (
	_ out.ProfileRepository = (*CachedProfileRepository)(nil)
	_ out.Pinger            = (*CachedProfileRepository)(nil)
)

// CachedProfileRepository wraps a ProfileRepository with Redis read-through
// caching for point lookups. Listing always goes to the store.
type CachedProfileRepository struct {
	delegate out.ProfileRepository
	cache    *cache.RedisCache
	ttl      time.Duration
	log      zerolog.Logger
}

// NewCachedProfileRepository creates a cached repository. Records are cached
// for ttl after every read or write.
func NewCachedProfileRepository(delegate out.ProfileRepository, redisCache *cache.RedisCache, ttl time.Duration, log zerolog.Logger) *CachedProfileRepository {
	return &CachedProfileRepository{
		delegate: delegate,
		cache:    redisCache,
		ttl:      ttl,
		log:      log,
	}
}

func urlCacheKey(linkedinURL string) string { return "url:" + linkedinURL }
func idCacheKey(id string) string           { return "id:" + id }

func (r *CachedProfileRepository) FindByURL(ctx context.Context, linkedinURL string) (*domain.Profile, error) {
	return r.lookup(ctx, urlCacheKey(linkedinURL), func() (*domain.Profile, error) {
		return r.delegate.FindByURL(ctx, linkedinURL)
	})
}

func (r *CachedProfileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	return r.lookup(ctx, idCacheKey(id), func() (*domain.Profile, error) {
		return r.delegate.FindByID(ctx, id)
	})
}

func (r *CachedProfileRepository) lookup(ctx context.Context, key string, load func() (*domain.Profile, error)) (*domain.Profile, error) {
	var cached domain.Profile
	found, err := r.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		logger.Ctx(ctx, r.log).Warn().Err(err).Str("key", key).Msg("profile cache read failed")
	}
	if found {
		return &cached, nil
	}

	profile, err := load()
	if err != nil {
		return nil, err
	}
	r.store(ctx, profile)
	return profile, nil
}

func (r *CachedProfileRepository) Insert(ctx context.Context, linkedinURL string, raw domain.RawProfile) (*domain.Profile, error) {
	profile, err := r.delegate.Insert(ctx, linkedinURL, raw)
	if err != nil {
		return nil, err
	}
	r.store(ctx, profile)
	return profile, nil
}

func (r *CachedProfileRepository) UpsertByURL(ctx context.Context, linkedinURL string, raw domain.RawProfile) (*domain.Profile, error) {
	profile, err := r.delegate.UpsertByURL(ctx, linkedinURL, raw)
	if err != nil {
		// The row may or may not have changed; drop the stale entry.
		_ = r.cache.Delete(ctx, urlCacheKey(linkedinURL))
		return nil, err
	}
	r.store(ctx, profile)
	return profile, nil
}

func (r *CachedProfileRepository) List(ctx context.Context, limit, offset int) (*domain.ProfilePage, error) {
	return r.delegate.List(ctx, limit, offset)
}

// Ping checks the delegate store only; a Redis outage degrades to uncached reads.
func (r *CachedProfileRepository) Ping(ctx context.Context) error {
	if p, ok := r.delegate.(out.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (r *CachedProfileRepository) store(ctx context.Context, p *domain.Profile) {
	if p == nil {
		return
	}
	entries := map[string]interface{}{urlCacheKey(p.LinkedInURL): p}
	if p.ID != "" {
		entries[idCacheKey(p.ID)] = p
	}
	if err := r.cache.SetMultiJSON(ctx, entries, r.ttl); err != nil {
		logger.Ctx(ctx, r.log).Warn().Err(err).Str("linkedin_url", p.LinkedInURL).Msg("profile cache write failed")
	}
}

