package outreach

import (
	"fmt"
	"strings"

	"outreach_server/core/domain"
)

const generationTemplate = `Write a personalized outreach email to %s.
Their industry/headline is: %s.
About them: %s.

The email should be professional, engaging, and mention their recent work if possible.`

const senderTemplate = `Write a **short and simple outreach email** from %[1]s at %[2]s to %[3]s.

Industry/Headline: %[4]s  
About them: %[5]s

Email Structure (follow this exactly):
1. Greeting: "Hi [%[6]s],"
2. Introduction: One sentence introducing %[1]s and %[2]s.
3. Personal Connection: One sentence about their work, industry, or recent achievement.
4. Value Proposition: One sentence about what you offer or propose.
5. Call-to-Action: One sentence suggesting a simple next step.
6. Closing: "Best regards," followed by %[1]s and %[2]s.

Tone: Professional, friendly, concise. Avoid long paragraphs.

Output: Return only the complete email text, ready to send.`

const mockEmailTemplate = "Subject: Hello %s\n\nThis is a mock email because MISTRAL_API_KEY is missing.\n\nBest,\nSender"

// GenerationPrompt builds the prompt for /generate-email.
func GenerationPrompt(raw domain.RawProfile) string {
	return fmt.Sprintf(generationTemplate,
		raw.Get(domain.FieldName, "the company"),
		raw.Get(domain.FieldIndustry, "Unknown"),
		raw.Get(domain.FieldAbout, "N/A"),
	)
}

// SenderPrompt builds the sender-aware prompt returned by /prepare-prompt.
func SenderPrompt(raw domain.RawProfile, sender domain.Sender) string {
	prompt := fmt.Sprintf(senderTemplate,
		sender.Name,
		sender.Company,
		raw.Get(domain.FieldName, "the company"),
		raw.Get(domain.FieldIndustry, "Unknown"),
		raw.Get(domain.FieldAbout, "N/A"),
		raw.Get(domain.FieldName, "Company Name"),
	)
	return strings.TrimSpace(prompt)
}

// MockEmail is served when no completion credential is configured.
func MockEmail(raw domain.RawProfile) string {
	return fmt.Sprintf(mockEmailTemplate, raw.Get(domain.FieldName, "there"))
}

func resolveMock(string) domain.RawProfile {
	return domain.RawProfile{"name": "Mock Company", "industry": "Technology"}
}

func fetchMock(linkedinURL string) domain.RawProfile {
	return domain.RawProfile{
		"company_name":     "Mock Company",
		"company_about_us": "Mock data",
		"input_url":        linkedinURL,
	}
}
