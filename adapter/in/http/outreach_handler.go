package http

import (
	"strings"

	"outreach_server/core/domain"
	"outreach_server/core/port/in"
	"outreach_server/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// OutreachHandler exposes profile resolution and email generation.
type OutreachHandler struct {
	service in.OutreachService
}

func NewOutreachHandler(service in.OutreachService) *OutreachHandler {
	return &OutreachHandler{service: service}
}

// RegisterRoutes registers outreach routes.
func (h *OutreachHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/generate-email", h.GenerateEmail)
	router.Post("/prepare-prompt", h.PreparePrompt)
	router.Post("/fetch-profile", h.FetchProfile)

	profiles := router.Group("/profiles")
	profiles.Get("/", h.ListProfiles)
	profiles.Get("/:identifier/raw", h.GetRawProfile)
	profiles.Get("/:identifier", h.GetProfile)
}

type generateEmailRequest struct {
	LinkedInURL string `json:"linkedinUrl"`
}

type preparePromptRequest struct {
	LinkedInURL   string `json:"linkedinUrl"`
	SenderName    string `json:"senderName"`
	SenderCompany string `json:"senderCompany"`
}

type preparePromptResponse struct {
	Prompt string `json:"prompt"`
}

type listProfilesResponse struct {
	Profiles []*domain.Profile `json:"profiles"`
	Total    int               `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// GenerateEmail handles POST /generate-email
func (h *OutreachHandler) GenerateEmail(c *fiber.Ctx) error {
	var req generateEmailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	linkedinURL := strings.TrimSpace(req.LinkedInURL)
	if linkedinURL == "" {
		return apperr.MissingFields("LinkedIn URL is required", "linkedinUrl")
	}

	resp, err := h.service.GenerateEmail(c.UserContext(), linkedinURL)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// PreparePrompt handles POST /prepare-prompt
func (h *OutreachHandler) PreparePrompt(c *fiber.Ctx) error {
	var req preparePromptRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	var missing []string
	if strings.TrimSpace(req.LinkedInURL) == "" {
		missing = append(missing, "linkedinUrl")
	}
	if strings.TrimSpace(req.SenderName) == "" {
		missing = append(missing, "senderName")
	}
	if strings.TrimSpace(req.SenderCompany) == "" {
		missing = append(missing, "senderCompany")
	}
	if len(missing) > 0 {
		return apperr.MissingFields("linkedinUrl, senderName, and senderCompany are required", missing...)
	}

	prompt, err := h.service.BuildPrompt(c.UserContext(), strings.TrimSpace(req.LinkedInURL), domain.Sender{
		Name:    req.SenderName,
		Company: req.SenderCompany,
	})
	if err != nil {
		return err
	}
	return c.JSON(preparePromptResponse{Prompt: prompt})
}

// FetchProfile handles POST /fetch-profile
func (h *OutreachHandler) FetchProfile(c *fiber.Ctx) error {
	var req generateEmailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	linkedinURL := strings.TrimSpace(req.LinkedInURL)
	if linkedinURL == "" {
		return apperr.MissingFields("linkedinUrl is required", "linkedinUrl")
	}

	raw, err := h.service.FetchProfileOnly(c.UserContext(), linkedinURL)
	if err != nil {
		return err
	}
	if raw == nil {
		raw = domain.RawProfile{}
	}
	return c.JSON(raw)
}

// ListProfiles handles GET /profiles
func (h *OutreachHandler) ListProfiles(c *fiber.Ctx) error {
	params := GetPaginationParams(c)

	page, err := h.service.ListProfiles(c.UserContext(), params.Limit, params.Offset)
	if err != nil {
		return err
	}
	profiles := page.Profiles
	if profiles == nil {
		profiles = []*domain.Profile{}
	}
	return c.JSON(listProfilesResponse{
		Profiles: profiles,
		Total:    page.Total,
		Limit:    params.Limit,
		Offset:   params.Offset,
	})
}

// GetProfile handles GET /profiles/:identifier
func (h *OutreachHandler) GetProfile(c *fiber.Ctx) error {
	id, err := identifierParam(c)
	if err != nil {
		return err
	}
	profile, err := h.service.GetProfile(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

// GetRawProfile handles GET /profiles/:identifier/raw
func (h *OutreachHandler) GetRawProfile(c *fiber.Ctx) error {
	id, err := identifierParam(c)
	if err != nil {
		return err
	}
	raw, err := h.service.GetRawProfile(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(raw)
}
