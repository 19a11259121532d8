package out

import (
	"context"

	"outreach_server/core/domain"
)

// ScrapeGateway runs the external scraping actor for one company URL and
// returns every dataset item. An empty slice means the actor found nothing.
type ScrapeGateway interface {
	Scrape(ctx context.Context, linkedinURL string) ([]domain.RawProfile, error)
}

// CompletionGateway turns a prompt into generated text. Failures come back as
// human-readable sentinel text rather than errors so they can be shown inline.
type CompletionGateway interface {
	Complete(ctx context.Context, prompt string) string
}
