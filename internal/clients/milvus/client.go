// Package milvus provides a client for the vector search gateway
package milvus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

const (
	DefaultBaseURL   = "http://localhost:19121"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

// Client talks to the search gateway in front of the vector store. The
// gateway embeds the query text server side and runs the similarity search.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the gateway base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithCollection sets the collection searched
func WithCollection(collection string) ClientOption {
	return func(c *Client) {
		c.collection = collection
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new vector search client
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		baseURL:    DefaultBaseURL,
		collection: "financial_reports",
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     common.NewDefaultLogger(),
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type searchRequest struct {
	Collection string `json:"collection"`
	Query      string `json:"query"`
	TopK       int    `json:"top_k"`
}

type searchHit struct {
	ID    string      `json:"id"`
	Text  string      `json:"chunk_text"`
	Score flexFloat64 `json:"score"`
}

type searchResponse struct {
	Results []searchHit `json:"results"`
}

// Search runs one similarity query and returns the scored chunks.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]models.Chunk, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(searchRequest{
		Collection: c.collection,
		Query:      query,
		TopK:       topK,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	chunks := make([]models.Chunk, 0, len(parsed.Results))
	for _, hit := range parsed.Results {
		if hit.Text == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{
			ID:    hit.ID,
			Text:  hit.Text,
			Score: float64(hit.Score),
		})
	}

	c.logger.Debug().Str("query", query).Int("hits", len(chunks)).Msg("Vector search completed")
	return chunks, nil
}

var _ interfaces.VectorSearchClient = (*Client)(nil)
