package outreach

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"outreach_server/core/domain"
	"outreach_server/internal/profiletest"
	"outreach_server/pkg/apperr"
	"outreach_server/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const acmeURL = "https://www.linkedin.com/company/acme"

type fakeScraper struct {
	mu    sync.Mutex
	items []domain.RawProfile
	err   error
	calls int
}

func (f *fakeScraper) Scrape(context.Context, string) ([]domain.RawProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.items, f.err
}

type fakeCompleter struct {
	reply   string
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) string {
	f.prompts = append(f.prompts, prompt)
	return f.reply
}

func TestResolveProfileCacheHitSkipsScraper(t *testing.T) {
	repo := profiletest.NewMemoryRepository()
	seeded := repo.Seed(&domain.Profile{LinkedInURL: acmeURL, RawData: domain.RawProfile{"name": "Acme"}})
	scraper := &fakeScraper{}
	svc := NewService(repo, scraper, nil)

	for i := 0; i < 2; i++ {
		got, err := svc.ResolveProfile(context.Background(), acmeURL)
		require.NoError(t, err)
		assert.Equal(t, seeded.ID, got.ID)
		assert.Equal(t, "Acme", got.RawData["name"])
	}
	assert.Zero(t, scraper.calls)
	assert.Zero(t, repo.Inserts)
}

func TestResolveProfileMissScrapesOnceAndPersists(t *testing.T) {
	repo := profiletest.NewMemoryRepository()
	scraper := &fakeScraper{items: []domain.RawProfile{{"name": "Acme"}, {"name": "Ignored"}}}
	svc := NewService(repo, scraper, nil)

	first, err := svc.ResolveProfile(context.Background(), acmeURL)
	require.NoError(t, err)
	second, err := svc.ResolveProfile(context.Background(), acmeURL)
	require.NoError(t, err)

	assert.Equal(t, 1, scraper.calls)
	assert.Equal(t, 1, repo.Len())
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Acme", second.RawData["name"])
}

func TestResolveProfileEmptyRecordIsRescraped(t *testing.T) {
	repo := profiletest.NewMemoryRepository()
	seeded := repo.Seed(&domain.Profile{LinkedInURL: acmeURL, RawData: domain.RawProfile{}})
	scraper := &fakeScraper{items: []domain.RawProfile{{"name": "Acme"}}}
	svc := NewService(repo, scraper, nil)

	got, err := svc.ResolveProfile(context.Background(), acmeURL)
	require.NoError(t, err)

	assert.Equal(t, 1, scraper.calls)
	assert.Equal(t, seeded.ID, got.ID)
	assert.Equal(t, 1, repo.Len())
	assert.Equal(t, "Acme", got.RawData["name"])
}

func TestResolveProfileNoItemsStoresEmptyPayload(t *testing.T) {
	repo := profiletest.NewMemoryRepository()
	svc := NewService(repo, &fakeScraper{}, nil)

	got, err := svc.ResolveProfile(context.Background(), acmeURL)
	require.NoError(t, err)
	assert.NotNil(t, got.RawData)
	assert.Empty(t, got.RawData)
	assert.Equal(t, 1, repo.Len())
}

func TestResolveProfileScraperFailure(t *testing.T) {
	svc := NewService(profiletest.NewMemoryRepository(), &fakeScraper{err: errors.New("actor run FAILED")}, nil)

	_, err := svc.ResolveProfile(context.Background(), acmeURL)
	require.Error(t, err)
	assert.Equal(t, 500, apperr.GetHTTPStatus(err))
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "actor run FAILED", appErr.Message)
}

func TestResolveProfilePersistFailureServesTransientRecord(t *testing.T) {
	repo := profiletest.NewMemoryRepository()
	repo.Fail = errors.New("connection refused")
	svc := NewService(repo, &fakeScraper{items: []domain.RawProfile{{"name": "Acme"}}}, nil)

	got, err := svc.ResolveProfile(context.Background(), acmeURL)
	require.NoError(t, err)
	assert.Empty(t, got.ID)
	assert.Equal(t, acmeURL, got.LinkedInURL)
	assert.Equal(t, "Acme", got.RawData["name"])
}

func TestGenerateEmailWithoutCompletionCredential(t *testing.T) {
	repo := profiletest.NewMemoryRepository()
	svc := NewService(repo, &fakeScraper{items: []domain.RawProfile{{"name": "Acme"}}}, nil)

	resp, err := svc.GenerateEmail(context.Background(), acmeURL)
	require.NoError(t, err)

	assert.Equal(t, "Acme", resp.Profile["name"])
	assert.Contains(t, resp.Email, "mock email")
	assert.True(t, strings.HasPrefix(resp.Email, "Subject: Hello Acme"))
	assert.Equal(t, placeholderTrend, resp.Analysis.Trend)
	assert.Equal(t, 1, repo.Len())
}

func TestGenerateEmailWithoutAnyCredential(t *testing.T) {
	repo := profiletest.NewMemoryRepository()
	svc := NewService(repo, nil, nil)

	resp, err := svc.GenerateEmail(context.Background(), acmeURL)
	require.NoError(t, err)

	assert.Equal(t, "Mock Company", resp.Profile["name"])
	assert.Equal(t, "Technology", resp.Profile["industry"])
	assert.Contains(t, resp.Email, "Hello Mock Company")

	stored, err := repo.FindByURL(context.Background(), acmeURL)
	require.NoError(t, err)
	assert.Equal(t, "Mock Company", stored.RawData["name"])
}

func TestGenerateEmailUsesCompleter(t *testing.T) {
	repo := profiletest.NewMemoryRepository()
	repo.Seed(&domain.Profile{LinkedInURL: acmeURL, RawData: domain.RawProfile{
		"company_name": "Acme",
		"headline":     "Rockets",
		"about":        "We build rockets.",
	}})
	completer := &fakeCompleter{reply: "Hi Acme team"}
	svc := NewService(repo, nil, completer)

	resp, err := svc.GenerateEmail(context.Background(), acmeURL)
	require.NoError(t, err)

	assert.Equal(t, "Hi Acme team", resp.Email)
	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], "outreach email to Acme.")
	assert.Contains(t, completer.prompts[0], "industry/headline is: Rockets.")
	assert.Contains(t, completer.prompts[0], "About them: We build rockets.")
}

func TestBuildPromptDoesNotPersist(t *testing.T) {
	repo := profiletest.NewMemoryRepository()
	scraper := &fakeScraper{items: []domain.RawProfile{{"name": "Acme", "industry": "Aerospace"}}}
	svc := NewService(repo, scraper, nil)

	prompt, err := svc.BuildPrompt(context.Background(), acmeURL, domain.Sender{Name: "Jane", Company: "Globex"})
	require.NoError(t, err)

	assert.Equal(t, 0, repo.Len())
	assert.Equal(t, 1, scraper.calls)
	assert.True(t, strings.HasPrefix(prompt, "Write a **short and simple outreach email** from Jane at Globex to Acme."))
	assert.Contains(t, prompt, `Greeting: "Hi [Acme],"`)
	assert.Contains(t, prompt, "Industry/Headline: Aerospace")
	assert.Contains(t, prompt, "About them: N/A")
	assert.Equal(t, strings.TrimSpace(prompt), prompt)
}

func TestBuildPromptUsesCachedProfile(t *testing.T) {
	repo := profiletest.NewMemoryRepository()
	repo.Seed(&domain.Profile{LinkedInURL: acmeURL, RawData: domain.RawProfile{"company_name": "Acme"}})
	scraper := &fakeScraper{}
	svc := NewService(repo, scraper, nil)

	prompt, err := svc.BuildPrompt(context.Background(), acmeURL, domain.Sender{Name: "Jane", Company: "Globex"})
	require.NoError(t, err)
	assert.Zero(t, scraper.calls)
	assert.Contains(t, prompt, "to Acme.")
}

func TestFetchProfileOnly(t *testing.T) {
	t.Run("mock without scraper", func(t *testing.T) {
		repo := profiletest.NewMemoryRepository()
		svc := NewService(repo, nil, nil)

		raw, err := svc.FetchProfileOnly(context.Background(), acmeURL)
		require.NoError(t, err)
		assert.Equal(t, domain.RawProfile{
			"company_name":     "Mock Company",
			"company_about_us": "Mock data",
			"input_url":        acmeURL,
		}, raw)
		assert.Zero(t, repo.Len())
	})

	t.Run("always scrapes", func(t *testing.T) {
		repo := profiletest.NewMemoryRepository()
		repo.Seed(&domain.Profile{LinkedInURL: acmeURL, RawData: domain.RawProfile{"name": "Old"}})
		scraper := &fakeScraper{items: []domain.RawProfile{{"name": "Fresh"}}}
		svc := NewService(repo, scraper, nil)

		raw, err := svc.FetchProfileOnly(context.Background(), acmeURL)
		require.NoError(t, err)
		assert.Equal(t, "Fresh", raw["name"])
		assert.Equal(t, 1, scraper.calls)

		stored, _ := repo.FindByURL(context.Background(), acmeURL)
		assert.Equal(t, "Old", stored.RawData["name"])
	})
}

func TestGetProfile(t *testing.T) {
	repo := profiletest.NewMemoryRepository()
	seeded := repo.Seed(&domain.Profile{LinkedInURL: acmeURL, RawData: domain.RawProfile{"name": "Acme"}})
	svc := NewService(repo, nil, nil)

	tests := []struct {
		name       string
		id         domain.Identifier
		wantStatus int
	}{
		{"by id", domain.Identifier{ByID: true, Value: seeded.ID}, 0},
		{"by url", domain.Identifier{Value: acmeURL}, 0},
		{"unknown url", domain.Identifier{Value: "https://www.linkedin.com/company/nobody"}, 404},
		{"unknown id", domain.Identifier{ByID: true, Value: "00000000-0000-0000-0000-000000000000"}, 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.GetProfile(context.Background(), tt.id)
			if tt.wantStatus != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantStatus, apperr.GetHTTPStatus(err))
				appErr, ok := apperr.As(err)
				require.True(t, ok)
				assert.Equal(t, "Profile not found", appErr.Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, seeded.ID, got.ID)
		})
	}

	raw, err := svc.GetRawProfile(context.Background(), domain.Identifier{Value: acmeURL})
	require.NoError(t, err)
	assert.Equal(t, domain.RawProfile{"name": "Acme"}, raw)
}

func TestRandomAnalyzerRanges(t *testing.T) {
	a := NewRandomAnalyzer(rand.NewPCG(1, 2))
	for i := 0; i < 100; i++ {
		r := a.Analyze("anything")
		if r.SpamScore < 0 || r.SpamScore >= 10 {
			t.Fatalf("spam score out of range: %v", r.SpamScore)
		}
		if r.ReadabilityScore < 0 || r.ReadabilityScore >= 100 {
			t.Fatalf("readability score out of range: %v", r.ReadabilityScore)
		}
		if r.Trend != placeholderTrend {
			t.Fatalf("unexpected trend %q", r.Trend)
		}
	}
}

func TestServiceLogsCarryRequestID(t *testing.T) {
	var buf bytes.Buffer
	svc := NewService(profiletest.NewMemoryRepository(), nil, nil, WithLogger(zerolog.New(&buf)))
	ctx := context.WithValue(context.Background(), logger.RequestIDKey, "req-42")

	_, err := svc.GenerateEmail(ctx, acmeURL)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	for _, line := range lines {
		assert.Contains(t, line, `"request_id":"req-42"`)
	}
}
