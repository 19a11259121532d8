// Package profiletest provides an in-memory profile store for tests and for
// running the server without a database.
package profiletest

import (
	"context"
	"sort"
	"sync"
	"time"

	"outreach_server/core/domain"
	"outreach_server/core/port/out"

	"github.com/google/uuid"
)

var _ out.ProfileRepository = (*MemoryRepository)(nil)

// MemoryRepository keeps profiles keyed by LinkedIn URL.
type MemoryRepository struct {
	mu    sync.RWMutex
	byURL map[string]*domain.Profile
	clock func() time.Time

	// Fail, when set, is returned by every write.
	Fail error
	// Inserts counts successful Insert and UpsertByURL calls.
	Inserts int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byURL: make(map[string]*domain.Profile),
		clock: time.Now,
	}
}

// Seed stores a profile directly, assigning an id and timestamp when missing.
func (r *MemoryRepository) Seed(p *domain.Profile) *domain.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = r.clock().UTC()
	}
	r.byURL[cp.LinkedInURL] = &cp
	return copyProfile(&cp)
}

func (r *MemoryRepository) FindByURL(_ context.Context, linkedinURL string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byURL[linkedinURL]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return copyProfile(p), nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.byURL {
		if p.ID == id {
			return copyProfile(p), nil
		}
	}
	return nil, domain.ErrProfileNotFound
}

// Insert behaves like UpsertByURL; the unique key never allows a second row.
func (r *MemoryRepository) Insert(ctx context.Context, linkedinURL string, raw domain.RawProfile) (*domain.Profile, error) {
	return r.UpsertByURL(ctx, linkedinURL, raw)
}

func (r *MemoryRepository) UpsertByURL(_ context.Context, linkedinURL string, raw domain.RawProfile) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return nil, r.Fail
	}
	if raw == nil {
		raw = domain.RawProfile{}
	}
	if p, ok := r.byURL[linkedinURL]; ok {
		p.RawData = raw
		r.Inserts++
		return copyProfile(p), nil
	}
	p := &domain.Profile{
		ID:          uuid.NewString(),
		LinkedInURL: linkedinURL,
		RawData:     raw,
		CreatedAt:   r.clock().UTC(),
	}
	r.byURL[linkedinURL] = p
	r.Inserts++
	return copyProfile(p), nil
}

// List orders newest first, breaking ties by URL for stable pages.
func (r *MemoryRepository) List(_ context.Context, limit, offset int) (*domain.ProfilePage, error) {
	r.mu.RLock()
	all := make([]*domain.Profile, 0, len(r.byURL))
	for _, p := range r.byURL {
		all = append(all, copyProfile(p))
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].LinkedInURL < all[j].LinkedInURL
	})

	page := &domain.ProfilePage{Profiles: []*domain.Profile{}, Total: len(all)}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) || limit <= 0 {
		return page, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	page.Profiles = all[offset:end]
	return page, nil
}

func (r *MemoryRepository) Ping(context.Context) error { return nil }

// Len returns the number of stored rows.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byURL)
}

func copyProfile(p *domain.Profile) *domain.Profile {
	cp := *p
	if p.RawData != nil {
		cp.RawData = make(domain.RawProfile, len(p.RawData))
		for k, v := range p.RawData {
			cp.RawData[k] = v
		}
	}
	return &cp
}
