// Package supabase implements the profile store over the Supabase PostgREST API.
package supabase

import (
	"bytes"
	"context"
	"errors"
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
	"outreach_server/pkg/metrics"

	"github.com/goccy/go-json"
)

// PostgREST error codes.
const (
	// codeNoRows: a single-object request matched nothing.
	codeNoRows = "PGRST116"
	// codeRangeNotSatisfiable: offset is past the last row of a count=exact request.
	codeRangeNotSatisfiable = "PGRST103"
)

const objectMediaType = "application/vnd.pgrst.object+json"

var (
	_ out.ProfileRepository = (*ProfileStore)(nil)
	_ out.Pinger            = (*ProfileStore)(nil)
)

// APIError is a PostgREST error body.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("supabase: unexpected status %d", e.Status)
	}
	return e.Message
}

func (e *APIError) rangeNotSatisfiable() bool {
	return e.Code == codeRangeNotSatisfiable || e.Status == http.StatusRequestedRangeNotSatisfiable
}

// ProfileStore talks to {baseURL}/rest/v1/{table}.
type ProfileStore struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// NewProfileStore creates a PostgREST-backed store. A nil client uses the
// package's tuned default.
func NewProfileStore(baseURL, apiKey, table string, client *http.Client, m *metrics.Metrics) *ProfileStore {
	if client == nil {
		client = httputil.NewOptimizedClient(httputil.SupabaseClientConfig())
	}
	if table == "" {
		table = "profiles"
	}
	return &ProfileStore{
		endpoint:   strings.TrimRight(baseURL, "/") + "/rest/v1/" + table,
		apiKey:     apiKey,
		httpClient: client,
		metrics:    m,
	}
}

type profileRecord struct {
	ID          string            `json:"id"`
	LinkedInURL string            `json:"linkedin_url"`
	RawData     domain.RawProfile `json:"raw_data"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (r *profileRecord) toEntity() *domain.Profile {
	raw := r.RawData
	if raw == nil {
		raw = domain.RawProfile{}
	}
	return &domain.Profile{ID: r.ID, LinkedInURL: r.LinkedInURL, RawData: raw, CreatedAt: r.CreatedAt}
}

type insertRecord struct {
	LinkedInURL string            `json:"linkedin_url"`
	RawData     domain.RawProfile `json:"raw_data"`
}

func (s *ProfileStore) FindByURL(ctx context.Context, linkedinURL string) (*domain.Profile, error) {
	return s.getOne(ctx, url.Values{"linkedin_url": {"eq." + linkedinURL}})
}

func (s *ProfileStore) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	return s.getOne(ctx, url.Values{"id": {"eq." + id}})
}

func (s *ProfileStore) getOne(ctx context.Context, filter url.Values) (*domain.Profile, error) {
	filter.Set("select", "*")
	var rec profileRecord
	if _, err := s.do(ctx, http.MethodGet, filter, nil, map[string]string{"Accept": objectMediaType}, &rec); err != nil {
		return nil, err
	}
	return rec.toEntity(), nil
}

func (s *ProfileStore) Insert(ctx context.Context, linkedinURL string, raw domain.RawProfile) (*domain.Profile, error) {
	return s.write(ctx, nil, "return=representation", linkedinURL, raw)
}

func (s *ProfileStore) UpsertByURL(ctx context.Context, linkedinURL string, raw domain.RawProfile) (*domain.Profile, error) {
	q := url.Values{"on_conflict": {"linkedin_url"}}
	return s.write(ctx, q, "resolution=merge-duplicates,return=representation", linkedinURL, raw)
}

func (s *ProfileStore) write(ctx context.Context, q url.Values, prefer, linkedinURL string, raw domain.RawProfile) (*domain.Profile, error) {
	if raw == nil {
		raw = domain.RawProfile{}
	}
	body, err := json.Marshal(insertRecord{LinkedInURL: linkedinURL, RawData: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}
	headers := map[string]string{
		"Accept":       objectMediaType,
		"Content-Type": "application/json",
		"Prefer":       prefer,
	}
	var rec profileRecord
	if _, err := s.do(ctx, http.MethodPost, q, body, headers, &rec); err != nil {
		return nil, err
	}
	return rec.toEntity(), nil
}

// List reads the total from the Content-Range header of a count=exact request.
func (s *ProfileStore) List(ctx context.Context, limit, offset int) (*domain.ProfilePage, error) {
	q := url.Values{
		"select": {"*"},
		"order":  {"created_at.desc,id.desc"},
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
	var recs []profileRecord
	header, err := s.do(ctx, http.MethodGet, q, nil, map[string]string{"Prefer": "count=exact"}, &recs)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.rangeNotSatisfiable() {
		return &domain.ProfilePage{
			Profiles: []*domain.Profile{},
			Total:    parseContentRangeTotal(header.Get("Content-Range"), 0),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	page := &domain.ProfilePage{Profiles: make([]*domain.Profile, 0, len(recs))}
	for i := range recs {
		page.Profiles = append(page.Profiles, recs[i].toEntity())
	}
	page.Total = parseContentRangeTotal(header.Get("Content-Range"), len(recs))
	return page, nil
}

func (s *ProfileStore) Ping(ctx context.Context) error {
	var recs []profileRecord
	_, err := s.do(ctx, http.MethodGet, url.Values{"select": {"id"}, "limit": {"1"}}, nil, nil, &recs)
	return err
}

func (s *ProfileStore) do(ctx context.Context, method string, q url.Values, body []byte, headers map[string]string, dest any) (http.Header, error) {
	target := s.endpoint
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.metrics.ObserveGateway(metrics.GatewayStore, metrics.OutcomeError, time.Since(start))
		return nil, fmt.Errorf("supabase request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		s.metrics.ObserveGateway(metrics.GatewayStore, metrics.OutcomeError, time.Since(start))
		return nil, fmt.Errorf("failed to read supabase response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		if apiErr.Code == codeNoRows {
			s.metrics.ObserveGateway(metrics.GatewayStore, metrics.OutcomeEmpty, time.Since(start))
			return resp.Header, domain.ErrProfileNotFound
		}
		if apiErr.rangeNotSatisfiable() {
			s.metrics.ObserveGateway(metrics.GatewayStore, metrics.OutcomeEmpty, time.Since(start))
			return resp.Header, apiErr
		}
		s.metrics.ObserveGateway(metrics.GatewayStore, metrics.OutcomeError, time.Since(start))
		return resp.Header, apiErr
	}
	s.metrics.ObserveGateway(metrics.GatewayStore, metrics.OutcomeSuccess, time.Since(start))

	if dest != nil && len(data) > 0 {
		if err := json.Unmarshal(data, dest); err != nil {
			return nil, fmt.Errorf("failed to decode supabase response: %w", err)
		}
	}
	return resp.Header, nil
}

// parseContentRangeTotal reads "0-9/42" or "*/42". Without a total it falls
// back to the number of rows returned.
func parseContentRangeTotal(header string, fallback int) int {
	i := strings.LastIndexByte(header, '/')
	if i < 0 {
		return fallback
	}
	total, err := strconv.Atoi(header[i+1:])
	if err != nil {
		return fallback
	}
	return total
}
