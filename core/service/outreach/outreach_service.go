// Package outreach coordinates profile resolution, prompt building and email
// generation across the profile store, the scraper and the completion API.
package outreach

import (
	"context"
	"errors"
	"time"

	"outreach_server/core/domain"
	"outreach_server/core/port/in"
	"outreach_server/core/port/out"
	"outreach_server/pkg/apperr"
	"outreach_server/pkg/logger"
	"outreach_server/pkg/metrics"

	"github.com/rs/zerolog"
)

const serviceScraper = "apify"

// Fallback kinds reported to metrics.
const (
	fallbackScraper    = "scraper"
	fallbackCompletion = "completion"
)

var _ in.OutreachService = (*Service)(nil)

// Service is the cache-or-fetch orchestrator.
//
// A nil scraper or completer means the credential is not configured; the
// service then serves labelled mock values instead of failing. Concurrent
// misses for the same URL are not coordinated: both requests scrape, and the
// store's unique key keeps a single row.
type Service struct {
	repo      out.ProfileRepository
	scraper   out.ScrapeGateway
	completer out.CompletionGateway
	analyzer  Analyzer
	metrics   *metrics.Metrics
	log       zerolog.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithAnalyzer(a Analyzer) Option {
	return func(s *Service) { s.analyzer = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(repo out.ProfileRepository, scraper out.ScrapeGateway, completer out.CompletionGateway, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		scraper:   scraper,
		completer: completer,
		analyzer:  NewRandomAnalyzer(nil),
		log:       zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveProfile returns the stored profile for linkedinURL, scraping and
// persisting it first on a miss. A record with empty raw_data counts as a miss.
func (s *Service) ResolveProfile(ctx context.Context, linkedinURL string) (*domain.Profile, error) {
	existing, err := s.cachedProfile(ctx, linkedinURL)
	if err != nil {
		return nil, err
	}
	if existing.HasData() {
		logger.Ctx(ctx, s.log).Debug().Str("linkedin_url", linkedinURL).Msg("using cached profile")
		return existing, nil
	}

	logger.Ctx(ctx, s.log).Info().Str("linkedin_url", linkedinURL).Msg("profile not cached, scraping")
	raw, err := s.scrapeFirst(ctx, linkedinURL, resolveMock)
	if err != nil {
		return nil, err
	}

	var saved *domain.Profile
	if existing != nil {
		saved, err = s.repo.UpsertByURL(ctx, linkedinURL, raw)
	} else {
		saved, err = s.repo.Insert(ctx, linkedinURL, raw)
	}
	if err != nil {
		// The scrape already happened; serve it unsaved rather than fail.
		logger.Ctx(ctx, s.log).Error().Err(err).Str("linkedin_url", linkedinURL).Msg("failed to persist scraped profile")
		return &domain.Profile{LinkedInURL: linkedinURL, RawData: raw, CreatedAt: s.now().UTC()}, nil
	}
	return saved, nil
}

// GenerateEmail drafts an outreach email for the company at linkedinURL.
func (s *Service) GenerateEmail(ctx context.Context, linkedinURL string) (*domain.EmailResponse, error) {
	profile, err := s.ResolveProfile(ctx, linkedinURL)
	if err != nil {
		return nil, err
	}
	raw := profile.RawData

	var email string
	if s.completer == nil {
		logger.Ctx(ctx, s.log).Warn().Msg("MISTRAL_API_KEY is missing; falling back to mock email")
		s.metrics.Fallback(fallbackCompletion)
		email = MockEmail(raw)
	} else {
		email = s.completer.Complete(ctx, GenerationPrompt(raw))
	}

	return &domain.EmailResponse{
		Profile:  raw,
		Email:    email,
		Analysis: s.analyzer.Analyze(email),
	}, nil
}

// BuildPrompt returns the sender-aware prompt without calling the model.
// A miss is scraped but not persisted.
func (s *Service) BuildPrompt(ctx context.Context, linkedinURL string, sender domain.Sender) (string, error) {
	existing, err := s.cachedProfile(ctx, linkedinURL)
	if err != nil {
		return "", err
	}

	var raw domain.RawProfile
	if existing.HasData() {
		raw = existing.RawData
	} else {
		logger.Ctx(ctx, s.log).Info().Str("linkedin_url", linkedinURL).Msg("profile not cached, scraping for prompt")
		raw, err = s.scrapeFirst(ctx, linkedinURL, resolveMock)
		if err != nil {
			return "", err
		}
	}

	return SenderPrompt(raw, sender), nil
}

// FetchProfileOnly always scrapes and never persists.
func (s *Service) FetchProfileOnly(ctx context.Context, linkedinURL string) (domain.RawProfile, error) {
	return s.scrapeFirst(ctx, linkedinURL, fetchMock)
}

func (s *Service) ListProfiles(ctx context.Context, limit, offset int) (*domain.ProfilePage, error) {
	page, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, apperr.DatabaseError(err)
	}
	return page, nil
}

func (s *Service) GetProfile(ctx context.Context, id domain.Identifier) (*domain.Profile, error) {
	var (
		profile *domain.Profile
		err     error
	)
	if id.ByID {
		profile, err = s.repo.FindByID(ctx, id.Value)
	} else {
		profile, err = s.repo.FindByURL(ctx, id.Value)
	}
	if errors.Is(err, domain.ErrProfileNotFound) {
		return nil, apperr.NotFound("Profile")
	}
	if err != nil {
		return nil, apperr.DatabaseError(err)
	}
	return profile, nil
}

func (s *Service) GetRawProfile(ctx context.Context, id domain.Identifier) (domain.RawProfile, error) {
	profile, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile.RawData == nil {
		return domain.RawProfile{}, nil
	}
	return profile.RawData, nil
}

// cachedProfile looks up linkedinURL, mapping not-found to (nil, nil).
func (s *Service) cachedProfile(ctx context.Context, linkedinURL string) (*domain.Profile, error) {
	profile, err := s.repo.FindByURL(ctx, linkedinURL)
	if errors.Is(err, domain.ErrProfileNotFound) {
		s.metrics.CacheMiss()
		return nil, nil
	}
	if err != nil {
		return nil, apperr.DatabaseError(err)
	}
	if profile.HasData() {
		s.metrics.CacheHit()
	} else {
		s.metrics.CacheMiss()
	}
	return profile, nil
}

// scrapeFirst returns the first dataset item, an empty profile when the actor
// found nothing, or mock(url) when no scraper is configured.
func (s *Service) scrapeFirst(ctx context.Context, linkedinURL string, mock func(string) domain.RawProfile) (domain.RawProfile, error) {
	if s.scraper == nil {
		logger.Ctx(ctx, s.log).Warn().Msg("no APIFY_TOKEN, using mock data")
		s.metrics.Fallback(fallbackScraper)
		return mock(linkedinURL), nil
	}

	items, err := s.scraper.Scrape(ctx, linkedinURL)
	if err != nil {
		return nil, apperr.ExternalError(serviceScraper, err)
	}
	if len(items) == 0 || items[0] == nil {
		return domain.RawProfile{}, nil
	}
	return items[0], nil
}
