package models

import (
	"time"

	"github.com/google/uuid"
)

// ErrorKind classifies pipeline errors for the run's error log.
type ErrorKind string

const (
	ErrKindDataFetch   ErrorKind = "data_fetch"
	ErrKindCalculation ErrorKind = "calculation"
	ErrKindRetrieval   ErrorKind = "retrieval"
	ErrKindLLM         ErrorKind = "llm"
	ErrKindCancelled   ErrorKind = "cancelled"
)

// StageError is one recorded error from a pipeline stage.
type StageError struct {
	Stage   string    `json:"stage"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// StageTiming records wall-clock duration of one stage execution.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// AnalysisState is the single mutable record threaded through a pipeline
// run. It is owned exclusively by one orchestrator run and discarded when
// the run returns; stages add fields and never delete prior results, except
// Report and QualityScore which may be overwritten on a regeneration.
type AnalysisState struct {
	// Identity
	RunID        string
	CompanyName  string
	StockCode    string
	ReportPeriod string
	Industry     string
	ReportType   string

	// Raw statements, absent until fetched
	Statements *FinancialData

	// Computed indicators by name
	Indicators map[string]*Indicator

	// Deduplicated context chunks by facet, ordered by descending score
	ContextByFacet map[string][]Chunk

	// Generated narrative per facet/stage
	AnalysisTexts map[string]string

	// Report assembly and quality loop
	Report       string
	QualityScore *int // nil until the first quality check
	Attempts     int  // Report generations performed
	BestReport   string
	BestScore    int
	Degraded     bool

	// Diagnostics
	Errors         []StageError
	Timings        []StageTiming
	LLMCalls       int
	RetrievalCalls int
	StartedAt      time.Time
}

// NewAnalysisState creates a run state with identity fields only.
func NewAnalysisState(companyName, stockCode, reportPeriod, industry, reportType string) *AnalysisState {
	return &AnalysisState{
		RunID:          uuid.NewString(),
		CompanyName:    companyName,
		StockCode:      stockCode,
		ReportPeriod:   reportPeriod,
		Industry:       industry,
		ReportType:     reportType,
		Indicators:     make(map[string]*Indicator),
		ContextByFacet: make(map[string][]Chunk),
		AnalysisTexts:  make(map[string]string),
		BestScore:      -1,
		StartedAt:      time.Now(),
	}
}

// RecordError appends an error to the run's error log.
func (s *AnalysisState) RecordError(stage string, kind ErrorKind, message string) {
	s.Errors = append(s.Errors, StageError{Stage: stage, Kind: kind, Message: message})
}

// RecordTiming appends a stage duration to the run's timing metadata.
func (s *AnalysisState) RecordTiming(stage string, d time.Duration) {
	s.Timings = append(s.Timings, StageTiming{Stage: stage, Duration: d})
}

// SetIndicator stores a computed indicator. Recomputation with the same
// inputs yields the same value, so overwriting is a no-op in practice; the
// first write wins to keep the map append-only.
func (s *AnalysisState) SetIndicator(ind *Indicator) {
	if ind == nil {
		return
	}
	if _, exists := s.Indicators[ind.Name]; exists {
		return
	}
	s.Indicators[ind.Name] = ind
}

// IndicatorsByTier returns the stored indicators belonging to one tier.
func (s *AnalysisState) IndicatorsByTier(tier IndicatorTier) []*Indicator {
	var out []*Indicator
	for _, ind := range s.Indicators {
		if ind.Tier == tier {
			out = append(out, ind)
		}
	}
	return out
}

// SetQualityScore records the score of the current report attempt and
// retains the best-scoring report seen so far.
func (s *AnalysisState) SetQualityScore(score int) {
	s.QualityScore = &score
	if score > s.BestScore {
		s.BestScore = score
		s.BestReport = s.Report
	}
}

// ProcessingTime returns elapsed wall-clock time since the run started.
func (s *AnalysisState) ProcessingTime() time.Duration {
	return time.Since(s.StartedAt)
}
