package outreach

import (
	"math/rand/v2"
	"sync"

	"outreach_server/core/domain"
)

const placeholderTrend = "Positive trend detected in engagement."

// Analyzer scores a generated email.
type Analyzer interface {
	Analyze(email string) domain.AnalysisResult
}

// RandomAnalyzer is a placeholder that ignores the email text. Scores are
// uniform in [0,10) for spam and [0,100) for readability.
type RandomAnalyzer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomAnalyzer uses src when given, otherwise the runtime's global source.
func NewRandomAnalyzer(src rand.Source) *RandomAnalyzer {
	a := &RandomAnalyzer{}
	if src != nil {
		a.rng = rand.New(src)
	}
	return a
}

func (a *RandomAnalyzer) Analyze(string) domain.AnalysisResult {
	return domain.AnalysisResult{
		SpamScore:        a.float() * 10,
		ReadabilityScore: a.float() * 100,
		Trend:            placeholderTrend,
	}
}

func (a *RandomAnalyzer) float() float64 {
	if a.rng == nil {
		return rand.Float64()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Float64()
}
