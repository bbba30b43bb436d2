package openrouter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/korzhov-lab/microscan/internal/core/domain"
)

const defaultModel = "deepseek/deepseek-chat"

// Client talks to an OpenRouter-compatible chat/completions endpoint.
// Calls are never retried automatically; the only client-side discipline
// is a polite request rate limit.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func New(baseURL, apiKey, model string, rps, burst int) *Client {
	if model == "" {
		model = defaultModel
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// ExtractEntities sends the full document text with the fixed schema
// instruction and returns the inner message content: a JSON-encoded string
// that still has to survive normalization.
func (c *Client) ExtractEntities(ctx context.Context, text string, opts domain.ExtractionOptions) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = c.model
	}
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = c.apiKey
	}
	if apiKey == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract entities",
			errors.New("no api key configured"))
	}

	request := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": buildExtractionPrompt(text)},
		},
		"response_format": map[string]string{"type": "json_object"},
	}

	var envelope struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.postJSON(ctx, "/chat/completions", apiKey, request, &envelope, "extract"); err != nil {
		return nil, err
	}
	if len(envelope.Choices) == 0 {
		return nil, fmt.Errorf("no choices in model response")
	}

	content := strings.TrimSpace(envelope.Choices[0].Message.Content)
	return []byte(extractJSONObject(content)), nil
}

// extractJSONObject trims the content to its outermost braces; models
// occasionally wrap the object in markdown fences or prose.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
