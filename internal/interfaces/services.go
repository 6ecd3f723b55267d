package interfaces

import (
	"context"

	"github.com/bobmcallan/finsight/internal/models"
)

// AnalysisService runs the staged financial-report analysis pipeline.
type AnalysisService interface {
	// Analyze executes one full pipeline run for a company/period and
	// returns the presentation-layer result. The returned error is non-nil
	// only for fatal conditions (missing statements, invalid request);
	// degraded runs return a result with Degraded set.
	Analyze(ctx context.Context, req AnalysisRequest) (*models.AnalysisResult, error)
}

// AnalysisRequest identifies one company/period analysis run.
type AnalysisRequest struct {
	CompanyName  string `json:"company_name"`
	StockCode    string `json:"stock_code"`
	ReportPeriod string `json:"report_period"`
	Industry     string `json:"industry"`
	ReportType   string `json:"report_type,omitempty"` // "A" consolidated (default), "B" parent-only
}

// FacetResult is the outcome of retrieving one facet's context.
type FacetResult struct {
	Facet       string
	Chunks      []models.Chunk
	Calls       int      // Search calls issued
	QueryErrors []string // Failed queries; degradation, never fatal
}

// RetrievalService retrieves and deduplicates facet context.
type RetrievalService interface {
	// RetrieveFacet runs every query of a facet, merges the results,
	// deduplicates by chunk id keeping the highest score, and returns the
	// chunks ordered by descending score, truncated to the facet cap.
	// Query failures degrade to zero chunks for that query.
	RetrieveFacet(ctx context.Context, facet string, queries []string, topK int) FacetResult
}

// QualityGate scores a draft report and decides the retry loop.
type QualityGate interface {
	// Score returns a stable integer in [0,100] for the report text.
	// Re-scoring identical text yields the identical score.
	Score(ctx context.Context, reportText string, indicators map[string]*models.Indicator, contextByFacet map[string][]models.Chunk) int
}
