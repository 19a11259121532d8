package http

import (
	"context"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"outreach_server/core/domain"
	"outreach_server/core/service/outreach"
	"outreach_server/infra/middleware"
	"outreach_server/internal/profiletest"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

const acmeURL = "https://www.linkedin.com/company/acme"

func newTestApp(repo *profiletest.MemoryRepository) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	app.Use(middleware.RequestID())
	NewOutreachHandler(outreach.NewService(repo, nil, nil)).RegisterRoutes(app)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return resp.StatusCode, out
}

func TestValidationErrors(t *testing.T) {
	app := newTestApp(profiletest.NewMemoryRepository())

	tests := []struct {
		name    string
		path    string
		body    string
		wantMsg string
	}{
		{"generate without url", "/generate-email", `{}`, "LinkedIn URL is required"},
		{"generate with blank url", "/generate-email", `{"linkedinUrl":"  "}`, "LinkedIn URL is required"},
		{"generate without body", "/generate-email", "", "LinkedIn URL is required"},
		{"prompt without sender", "/prepare-prompt", `{"linkedinUrl":"` + acmeURL + `"}`, "linkedinUrl, senderName, and senderCompany are required"},
		{"fetch without url", "/fetch-profile", `{"other":1}`, "linkedinUrl is required"},
		{"malformed json", "/generate-email", `{"linkedinUrl":`, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, app, "POST", tt.path, tt.body)
			if status != fiber.StatusBadRequest {
				t.Errorf("expected 400, got %d", status)
			}
			if body["error"] != tt.wantMsg || body["message"] != tt.wantMsg {
				t.Errorf("expected message %q, got %v", tt.wantMsg, body)
			}
		})
	}
}

func TestGenerateEmailWithoutCredentials(t *testing.T) {
	repo := profiletest.NewMemoryRepository()
	app := newTestApp(repo)

	status, body := doJSON(t, app, "POST", "/generate-email", `{"linkedinUrl":"`+acmeURL+`"}`)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	profile, _ := body["profile"].(map[string]any)
	if profile["name"] != "Mock Company" || profile["industry"] != "Technology" {
		t.Errorf("unexpected profile %v", profile)
	}
	if email, _ := body["email"].(string); !strings.Contains(email, "mock email") {
		t.Errorf("expected mock email, got %q", email)
	}
	analysis, _ := body["analysis"].(map[string]any)
	if analysis["trend"] != "Positive trend detected in engagement." {
		t.Errorf("unexpected analysis %v", analysis)
	}
	if _, ok := analysis["spamScore"].(float64); !ok {
		t.Errorf("expected numeric spamScore, got %v", analysis["spamScore"])
	}
	if repo.Len() != 1 {
		t.Errorf("expected profile to be persisted, got %d rows", repo.Len())
	}
}

func TestGenerateEmailFromCachedProfileWithoutCompletionKey(t *testing.T) {
	repo := profiletest.NewMemoryRepository()
	repo.Seed(&domain.Profile{LinkedInURL: acmeURL, RawData: domain.RawProfile{"name": "Acme"}})
	app := newTestApp(repo)

	status, body := doJSON(t, app, "POST", "/generate-email", `{"linkedinUrl":"`+acmeURL+`"}`)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	profile, _ := body["profile"].(map[string]any)
	if profile["name"] != "Acme" {
		t.Errorf("expected cached profile name Acme, got %v", profile)
	}
	email, _ := body["email"].(string)
	if !strings.Contains(email, "mock email") || !strings.Contains(email, "Subject: Hello Acme") {
		t.Errorf("expected mock email addressed to Acme, got %q", email)
	}
	if repo.Len() != 1 || repo.Inserts != 0 {
		t.Errorf("expected the cached row to be reused, got %d rows and %d inserts", repo.Len(), repo.Inserts)
	}
}

func TestPreparePromptReturnsPrompt(t *testing.T) {
	repo := profiletest.NewMemoryRepository()
	repo.Seed(&domain.Profile{LinkedInURL: acmeURL, RawData: domain.RawProfile{"name": "Acme"}})
	app := newTestApp(repo)

	status, body := doJSON(t, app, "POST", "/prepare-prompt",
		`{"linkedinUrl":"`+acmeURL+`","senderName":"Jane","senderCompany":"Globex"}`)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	prompt, _ := body["prompt"].(string)
	if !strings.Contains(prompt, "from Jane at Globex to Acme.") {
		t.Errorf("unexpected prompt %q", prompt)
	}
}

func TestFetchProfileMock(t *testing.T) {
	repo := profiletest.NewMemoryRepository()
	app := newTestApp(repo)

	status, body := doJSON(t, app, "POST", "/fetch-profile", `{"linkedinUrl":"`+acmeURL+`"}`)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["company_name"] != "Mock Company" || body["company_about_us"] != "Mock data" || body["input_url"] != acmeURL {
		t.Errorf("unexpected body %v", body)
	}
	if repo.Len() != 0 {
		t.Errorf("fetch-profile must not persist, got %d rows", repo.Len())
	}
}

func seedFive(repo *profiletest.MemoryRepository) []*domain.Profile {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var seeded []*domain.Profile
	for i, name := range []string{"a", "b", "c", "d", "e"} {
		seeded = append(seeded, repo.Seed(&domain.Profile{
			LinkedInURL: "https://www.linkedin.com/company/" + name,
			RawData:     domain.RawProfile{"name": name},
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}))
	}
	return seeded
}

func TestListProfiles(t *testing.T) {
	repo := profiletest.NewMemoryRepository()
	seedFive(repo)
	app := newTestApp(repo)

	tests := []struct {
		name       string
		query      string
		wantCount  int
		wantLimit  float64
		wantOffset float64
		wantFirst  string
	}{
		{"limit 2", "?limit=2", 2, 2, 0, "e"},
		{"offset", "?limit=2&offset=2", 2, 2, 2, "c"},
		{"non-numeric limit", "?limit=abc", 5, 100, 0, "e"},
		{"defaults", "", 5, 100, 0, "e"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, app, "GET", "/profiles"+tt.query, "")
			if status != fiber.StatusOK {
				t.Fatalf("expected 200, got %d", status)
			}
			profiles, _ := body["profiles"].([]any)
			if len(profiles) != tt.wantCount {
				t.Fatalf("expected %d profiles, got %d", tt.wantCount, len(profiles))
			}
			if body["total"] != float64(5) {
				t.Errorf("expected total 5, got %v", body["total"])
			}
			if body["limit"] != tt.wantLimit || body["offset"] != tt.wantOffset {
				t.Errorf("unexpected paging echo %v/%v", body["limit"], body["offset"])
			}
			first, _ := profiles[0].(map[string]any)
			raw, _ := first["raw_data"].(map[string]any)
			if raw["name"] != tt.wantFirst {
				t.Errorf("expected newest %q first, got %v", tt.wantFirst, raw["name"])
			}
		})
	}
}

func TestGetProfileByIDAndURL(t *testing.T) {
	repo := profiletest.NewMemoryRepository()
	seeded := seedFive(repo)
	app := newTestApp(repo)
	target := seeded[2]

	for _, path := range []string{
		"/profiles/" + target.ID,
		"/profiles/" + url.PathEscape(target.LinkedInURL),
		"/profiles/" + url.QueryEscape(target.LinkedInURL),
	} {
		status, body := doJSON(t, app, "GET", path, "")
		if status != fiber.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, status)
		}
		if body["id"] != target.ID || body["linkedin_url"] != target.LinkedInURL {
			t.Errorf("%s: unexpected record %v", path, body)
		}
	}
}

func TestGetRawProfileMatchesRecord(t *testing.T) {
	repo := profiletest.NewMemoryRepository()
	seeded := repo.Seed(&domain.Profile{LinkedInURL: acmeURL, RawData: domain.RawProfile{"name": "Acme", "followers": 42.0}})
	app := newTestApp(repo)

	stored, err := repo.FindByID(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}

	status, body := doJSON(t, app, "GET", "/profiles/"+url.QueryEscape(acmeURL)+"/raw", "")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(body) != len(stored.RawData) || body["name"] != "Acme" || body["followers"] != 42.0 {
		t.Errorf("raw mismatch: %v vs %v", body, stored.RawData)
	}
}

func TestGetProfileNotFound(t *testing.T) {
	app := newTestApp(profiletest.NewMemoryRepository())

	for _, path := range []string{
		"/profiles/" + url.QueryEscape("https://www.linkedin.com/company/nobody"),
		"/profiles/00000000-0000-0000-0000-000000000000/raw",
	} {
		status, body := doJSON(t, app, "GET", path, "")
		if status != fiber.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, status)
		}
		if body["error"] != "Profile not found" {
			t.Errorf("%s: unexpected body %v", path, body)
		}
	}
}

func TestHealth(t *testing.T) {
	app := fiber.New()
	NewHealthHandler(profiletest.NewMemoryRepository(), nil).Register(app)

	for _, path := range []string{"/health", "/ready"} {
		status, body := doJSON(t, app, "GET", path, "")
		if status != fiber.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, status)
		}
		if path == "/ready" && body["status"] != "ready" {
			t.Errorf("unexpected readiness %v", body)
		}
	}
}
