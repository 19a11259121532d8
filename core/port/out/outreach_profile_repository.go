package out

import (
	"context"

	"outreach_server/core/domain"
)

// ProfileRepository is the Profile Store port. Lookups return
// domain.ErrProfileNotFound when no row matches; every other failure is a
// store error.
type ProfileRepository interface {
	FindByURL(ctx context.Context, linkedinURL string) (*domain.Profile, error)
	FindByID(ctx context.Context, id string) (*domain.Profile, error)

	// Insert creates a record; the store assigns id and created_at.
	Insert(ctx context.Context, linkedinURL string, raw domain.RawProfile) (*domain.Profile, error)

	// UpsertByURL inserts or fully replaces raw_data of the record keyed by linkedinURL.
	UpsertByURL(ctx context.Context, linkedinURL string, raw domain.RawProfile) (*domain.Profile, error)

	// List returns a newest-first page and the exact total row count.
	List(ctx context.Context, limit, offset int) (*domain.ProfilePage, error)
}

// Pinger is implemented by stores that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}
