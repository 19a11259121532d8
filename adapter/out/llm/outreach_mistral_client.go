// Package llm calls the Mistral chat-completion API through its OpenAI-compatible endpoint.
package llm

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	"outreach_server/core/port/out"
	"outreach_server/pkg/httputil"
	"outreach_server/pkg/logger"
	"outreach_server/pkg/metrics"
	"outreach_server/pkg/resilience"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

const (
	DefaultBaseURL     = "https://api.mistral.ai/v1"
	DefaultModel       = "mistral-small-latest"
	DefaultTemperature = 0.7
)

// Sentinel replies returned in place of an email. Completion never fails the
// request; callers show these strings to the user.
const (
	ReplyRequestFailed = "Error generating email with Mistral AI."
	ReplyNoContent     = "Error: No content generated."
)

var _ out.CompletionGateway = (*Client)(nil)

type ClientConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	// Temperature defaults to DefaultTemperature when nil; zero is honoured.
	Temperature *float64
	HTTPClient  *http.Client
	Breaker     *resilience.CircuitBreakerConfig
}

type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	cb          *gobreaker.CircuitBreaker
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

func NewClient(cfg ClientConfig, m *metrics.Metrics, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	temperature := float32(DefaultTemperature)
	if cfg.Temperature != nil {
		temperature = float32(*cfg.Temperature)
	}
	if temperature == 0 {
		// go-openai drops a zero temperature from the request body.
		temperature = math.SmallestNonzeroFloat32
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httputil.NewOptimizedClient(httputil.MistralClientConfig())
	}
	if cfg.Breaker == nil {
		cfg.Breaker = resilience.DefaultCircuitBreakerConfig("mistral")
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	oc.HTTPClient = cfg.HTTPClient

	return &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: temperature,
		cb: resilience.NewCircuitBreaker(cfg.Breaker, func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			m.SetBreakerState(name, resilience.StateValue(to))
		}),
		metrics: m,
		log:     log,
	}
}

// Complete sends prompt as a single user message and returns the first
// choice's content, or one of the sentinel replies.
func (c *Client) Complete(ctx context.Context, prompt string) string {
	start := time.Now()
	content, err := resilience.Execute(c.cb, func() (string, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Temperature: c.temperature,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", nil
		}
		return resp.Choices[0].Message.Content, nil
	})

	if err != nil {
		c.metrics.ObserveGateway(metrics.GatewayCompletion, metrics.OutcomeError, time.Since(start))
		logger.Ctx(ctx, c.log).Error().Err(err).Str("model", c.model).Msg("error calling Mistral AI")
		return ReplyRequestFailed
	}
	if content == "" {
		c.metrics.ObserveGateway(metrics.GatewayCompletion, metrics.OutcomeEmpty, time.Since(start))
		return ReplyNoContent
	}
	c.metrics.ObserveGateway(metrics.GatewayCompletion, metrics.OutcomeSuccess, time.Since(start))
	return content
}
