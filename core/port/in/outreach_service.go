package in

import (
	"context"

	"outreach_server/core/domain"
)

// OutreachService is what the HTTP layer needs from the orchestrator.
type OutreachService interface {
	ResolveProfile(ctx context.Context, linkedinURL string) (*domain.Profile, error)
	GenerateEmail(ctx context.Context, linkedinURL string) (*domain.EmailResponse, error)
	BuildPrompt(ctx context.Context, linkedinURL string, sender domain.Sender) (string, error)
	FetchProfileOnly(ctx context.Context, linkedinURL string) (domain.RawProfile, error)

	ListProfiles(ctx context.Context, limit, offset int) (*domain.ProfilePage, error)
	GetProfile(ctx context.Context, id domain.Identifier) (*domain.Profile, error)
	GetRawProfile(ctx context.Context, id domain.Identifier) (domain.RawProfile, error)
}
