// Package interfaces defines service contracts for Finsight
package interfaces

import (
	"context"
	"errors"

	"github.com/bobmcallan/finsight/internal/models"
)

// ErrNotFound signals that a requested record does not exist in a
// collaborator's store.
var ErrNotFound = errors.New("not found")

// FinancialDataClient fetches structured statement data from the financial
// data store.
type FinancialDataClient interface {
	// Fetch returns the three statement groups for the given period, plus
	// the prior-period statements when includePrevious is set and available.
	// Returns ErrNotFound when the company/period has no data.
	Fetch(ctx context.Context, stockCode, period, reportType string, includePrevious bool) (*models.FinancialData, error)

	Close()
}

// VectorSearchClient issues similarity searches against the vector store.
type VectorSearchClient interface {
	// Search returns up to topK chunks ranked by similarity to the query.
	Search(ctx context.Context, query string, topK int) ([]models.Chunk, error)
}

// CompleteOptions tunes a single LLM completion call.
type CompleteOptions struct {
	Temperature float32
	MaxTokens   int32
}

// LLMError classification, used for retry decisions at the call site.
type LLMErrorKind string

const (
	LLMErrTimeout   LLMErrorKind = "timeout"
	LLMErrRateLimit LLMErrorKind = "rate_limit"
	LLMErrOther     LLMErrorKind = "other"
)

// LLMClient generates natural-language completions.
type LLMClient interface {
	// Complete returns the model's text for the prompt. Implementations
	// retry once with backoff on transient failures before returning.
	Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error)
}

// IndustryConfigProvider supplies industry-specific analysis configuration.
type IndustryConfigProvider interface {
	// GetThresholds returns qualitative-label thresholds by indicator name.
	GetThresholds(industry string) (map[string]float64, error)

	// GetFacetQueries returns the retrieval query set per analysis facet.
	GetFacetQueries(industry string) (map[string][]string, error)
}

// QualityEvaluator scores a generated report semantically.
type QualityEvaluator interface {
	// Evaluate returns a score in [0,100] for the report given its context.
	Evaluate(ctx context.Context, reportText string, contextText string) (int, error)
}
