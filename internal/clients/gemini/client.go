// Package gemini provides a client for the Google Gemini API
package gemini

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
)

const (
	DefaultModel   = "gemini-3-flash-preview"
	DefaultBackoff = 2 * time.Second
)

// Client implements the LLMClient interface
type Client struct {
	client  *genai.Client
	model   string
	backoff time.Duration
	logger  *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the model to use
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithBackoff sets the wait before the single transient-failure retry
func WithBackoff(backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.backoff = backoff
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{
		client:  genaiClient,
		model:   DefaultModel,
		backoff: DefaultBackoff,
		logger:  common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Complete generates text for the prompt. Transient failures (rate limit,
// timeout) are retried once with backoff; other errors return immediately.
func (c *Client) Complete(ctx context.Context, prompt string, opts interfaces.CompleteOptions) (string, error) {
	text, err := c.generate(ctx, prompt, opts)
	if err == nil {
		return text, nil
	}

	kind := ClassifyError(err)
	if kind == interfaces.LLMErrOther {
		return "", err
	}

	wait := c.backoff
	if apiDelay := extractRetryDelay(err); apiDelay > 0 {
		wait = apiDelay
	}
	c.logger.Warn().
		Err(err).
		Str("kind", string(kind)).
		Dur("backoff", wait).
		Msg("Transient model failure, retrying once")

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(wait):
	}

	return c.generate(ctx, prompt, opts)
}

func (c *Client) generate(ctx context.Context, prompt string, opts interfaces.CompleteOptions) (string, error) {
	c.logger.Debug().Str("model", c.model).Int("prompt_bytes", len(prompt)).Msg("Generating content")

	config := &genai.GenerateContentConfig{}
	if opts.Temperature > 0 {
		config.Temperature = genai.Ptr(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = opts.MaxTokens
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return extractTextFromResponse(result)
}

// extractTextFromResponse extracts text from a generate content response
func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	text := ""
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	return text, nil
}

var _ interfaces.LLMClient = (*Client)(nil)
