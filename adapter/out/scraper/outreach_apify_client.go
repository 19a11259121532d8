// Package scraper runs the LinkedIn company actor on Apify.
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"outreach_server/core/domain"
	"outreach_server/core/port/out"
	"outreach_server/pkg/httputil"
	"outreach_server/pkg/logger"
	"outreach_server/pkg/metrics"
	"outreach_server/pkg/resilience"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const (
	DefaultBaseURL = "https://api.apify.com"

	waitForFinishSeconds = 60
	datasetPageSize      = 100
)

const statusSucceeded = "SUCCEEDED"

// pendingStatuses are the run states that are not yet final.
var pendingStatuses = map[string]bool{
	"READY":      true,
	"RUNNING":    true,
	"TIMING-OUT": true,
	"ABORTING":   true,
}

var _ out.ScrapeGateway = (*ApifyClient)(nil)

// Config configures an ApifyClient.
type Config struct {
	Token   string
	ActorID string
	BaseURL string

	// PollInterval is the pause between run status checks on top of the
	// server-side long poll.
	PollInterval time.Duration
	HTTPClient   *http.Client
	Breaker      *resilience.CircuitBreakerConfig
}

// ApifyClient starts an actor run per URL, waits for it and returns the dataset.
type ApifyClient struct {
	token        string
	actorPath    string
	baseURL      string
	pollInterval time.Duration
	httpClient   *http.Client
	cb           *gobreaker.CircuitBreaker
	metrics      *metrics.Metrics
	log          zerolog.Logger
}

func NewApifyClient(cfg Config, m *metrics.Metrics, log zerolog.Logger) *ApifyClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httputil.NewOptimizedClient(httputil.ApifyClientConfig())
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.Breaker == nil {
		cfg.Breaker = resilience.DefaultCircuitBreakerConfig("apify")
	}

	return &ApifyClient{
		token:        cfg.Token,
		actorPath:    strings.ReplaceAll(cfg.ActorID, "/", "~"),
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		pollInterval: cfg.PollInterval,
		httpClient:   cfg.HTTPClient,
		cb: resilience.NewCircuitBreaker(cfg.Breaker, func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			m.SetBreakerState(name, resilience.StateValue(to))
		}),
		metrics: m,
		log:     log,
	}
}

type actorInput struct {
	CompanyProfileURLs []string `json:"company_profile_urls"`
	ProxyGroup         string   `json:"proxy_group"`
}

type actorRun struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

type runEnvelope struct {
	Data actorRun `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Scrape returns every dataset item produced for linkedinURL, in dataset order.
func (c *ApifyClient) Scrape(ctx context.Context, linkedinURL string) ([]domain.RawProfile, error) {
	start := time.Now()
	items, err := resilience.Execute(c.cb, func() ([]domain.RawProfile, error) {
		return c.scrape(ctx, linkedinURL)
	})

	outcome := metrics.OutcomeSuccess
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case len(items) == 0:
		outcome = metrics.OutcomeEmpty
	}
	c.metrics.ObserveGateway(metrics.GatewayScraper, outcome, time.Since(start))

	if err != nil {
		logger.Ctx(ctx, c.log).Error().Err(err).Str("linkedin_url", linkedinURL).Msg("apify scrape failed")
		return nil, err
	}
	logger.Ctx(ctx, c.log).Info().Str("linkedin_url", linkedinURL).Int("items", len(items)).Dur("duration", time.Since(start)).Msg("apify scrape finished")
	return items, nil
}

func (c *ApifyClient) scrape(ctx context.Context, linkedinURL string) ([]domain.RawProfile, error) {
	run, err := c.startRun(ctx, linkedinURL)
	if err != nil {
		return nil, err
	}

	for pendingStatuses[run.Status] {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
		if run, err = c.getRun(ctx, run.ID); err != nil {
			return nil, err
		}
	}
	if run.Status != statusSucceeded {
		return nil, fmt.Errorf("Apify actor run %s finished with status %s", run.ID, run.Status)
	}

	return c.datasetItems(ctx, run.DefaultDatasetID)
}

func (c *ApifyClient) startRun(ctx context.Context, linkedinURL string) (*actorRun, error) {
	body, err := json.Marshal(actorInput{
		CompanyProfileURLs: []string{linkedinURL},
		ProxyGroup:         "DATACENTER",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode actor input: %w", err)
	}

	q := url.Values{"waitForFinish": {strconv.Itoa(waitForFinishSeconds)}}
	var env runEnvelope
	if err := c.call(ctx, http.MethodPost, "/v2/acts/"+c.actorPath+"/runs", q, body, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *ApifyClient) getRun(ctx context.Context, runID string) (*actorRun, error) {
	q := url.Values{"waitForFinish": {strconv.Itoa(waitForFinishSeconds)}}
	var env runEnvelope
	if err := c.call(ctx, http.MethodGet, "/v2/actor-runs/"+url.PathEscape(runID), q, nil, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *ApifyClient) datasetItems(ctx context.Context, datasetID string) ([]domain.RawProfile, error) {
	items := []domain.RawProfile{}
	for offset := 0; ; offset += datasetPageSize {
		q := url.Values{
			"format": {"json"},
			"clean":  {"1"},
			"offset": {strconv.Itoa(offset)},
			"limit":  {strconv.Itoa(datasetPageSize)},
		}
		var page []domain.RawProfile
		if err := c.call(ctx, http.MethodGet, "/v2/datasets/"+url.PathEscape(datasetID)+"/items", q, nil, &page); err != nil {
			return nil, err
		}
		items = append(items, page...)
		if len(page) < datasetPageSize {
			return items, nil
		}
	}
}

func (c *ApifyClient) call(ctx context.Context, method, path string, q url.Values, body []byte, dest any) error {
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("apify request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read apify response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var env errorEnvelope
		if json.Unmarshal(data, &env) == nil && env.Error.Message != "" {
			return fmt.Errorf("Apify API error (%d): %s", resp.StatusCode, env.Error.Message)
		}
		return fmt.Errorf("Apify API error: status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode apify response: %w", err)
	}
	return nil
}
