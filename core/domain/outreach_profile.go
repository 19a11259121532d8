package domain

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ErrProfileNotFound is returned by stores when no row matches a lookup.
var ErrProfileNotFound = errors.New("profile not found")

// RawProfile is the scraper payload, stored as-is. Its shape is owned by the
// scraping actor and differs between actor versions.
type RawProfile map[string]any

// Profile is one persisted scrape, unique per LinkedInURL.
type Profile struct {
	ID          string     `json:"id" db:"id"`
	LinkedInURL string     `json:"linkedin_url" db:"linkedin_url"`
	RawData     RawProfile `json:"raw_data" db:"raw_data"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// HasData reports whether the record carries a usable scrape.
func (p *Profile) HasData() bool {
	return p != nil && len(p.RawData) > 0
}

// ProfilePage is one page of a newest-first listing.
type ProfilePage struct {
	Profiles []*Profile
	Total    int
}

// Value implements driver.Valuer so RawProfile can be written to a JSONB
// column. Text rather than bytes, so the simple query protocol does not send
// it as bytea.
func (r RawProfile) Value() (driver.Value, error) {
	if r == nil {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]any(r))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for JSON/JSONB columns.
func (r *RawProfile) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*r = RawProfile{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("raw_data: unsupported scan type %T", src)
	}
	m := RawProfile{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("raw_data: %w", err)
		}
	}
	*r = m
	return nil
}

// Field is an ordered list of candidate keys for one logical attribute.
// Upstream actors name the same attribute differently; the first key holding
// a non-empty value wins.
type Field []string

var (
	FieldName     = Field{"name", "company_name"}
	FieldIndustry = Field{"industry", "headline"}
	FieldAbout    = Field{"description", "about"}
)

// Lookup returns the first non-empty candidate value rendered as text.
func (r RawProfile) Lookup(f Field) (string, bool) {
	for _, key := range f {
		v, ok := r[key]
		if !ok || isBlank(v) {
			continue
		}
		if s, ok := v.(string); ok {
			return s, true
		}
		return fmt.Sprint(v), true
	}
	return "", false
}

// Get is Lookup with a default for missing attributes.
func (r RawProfile) Get(f Field, fallback string) string {
	if v, ok := r.Lookup(f); ok {
		return v
	}
	return fallback
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	case json.Number:
		return t == "" || t == "0"
	}
	return false
}

// Identifier addresses a profile either by store id or by LinkedIn URL.
type Identifier struct {
	ByID  bool
	Value string
}

// ParseIdentifier applies the route dispatch rule: a canonical 36-character
// UUID is an id, anything else is a percent-encoded LinkedIn URL.
func ParseIdentifier(raw string) (Identifier, error) {
	if len(raw) == 36 {
		if _, err := uuid.Parse(raw); err == nil {
			return Identifier{ByID: true, Value: strings.ToLower(raw)}, nil
		}
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return Identifier{}, fmt.Errorf("malformed identifier: %w", err)
	}
	return Identifier{Value: decoded}, nil
}
