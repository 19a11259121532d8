package domain

// AnalysisResult is the score triple attached to a generated email.
type AnalysisResult struct {
	SpamScore        float64 `json:"spamScore"`
	ReadabilityScore float64 `json:"readabilityScore"`
	Trend            string  `json:"trend"`
}

// EmailResponse is returned by email generation and never persisted.
type EmailResponse struct {
	Profile  RawProfile     `json:"profile"`
	Email    string         `json:"email"`
	Analysis AnalysisResult `json:"analysis"`
}

// Sender identifies who the outreach email is from.
type Sender struct {
	Name    string
	Company string
}
