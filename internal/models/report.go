package models

import (
	"encoding/gob"
	"fmt"
	"time"
)

func init() {
	gob.Register(AnalysisReport{})
}

// AnalysisReport is a stored, completed analysis run.
type AnalysisReport struct {
	Key            string                `json:"key" badgerhold:"key"` // stockCode:period
	CompanyName    string                `json:"company_name"`
	StockCode      string                `json:"stock_code"`
	ReportPeriod   string                `json:"report_period"`
	Industry       string                `json:"industry"`
	GeneratedAt    time.Time             `json:"generated_at" badgerhold:"index"`
	Report         string                `json:"report"`
	QualityScore   int                   `json:"quality_score"`
	Degraded       bool                  `json:"degraded"`
	Indicators     map[string]*Indicator `json:"indicators"`
	Errors         []StageError          `json:"errors,omitempty"`
	LLMCalls       int                   `json:"llm_calls"`
	RetrievalCalls int                   `json:"retrieval_calls"`
}

// ReportKey builds the storage key for a company/period analysis.
func ReportKey(stockCode, period string) string {
	return fmt.Sprintf("%s:%s", stockCode, period)
}

// AnalysisResult is the output handed to the presentation layer.
type AnalysisResult struct {
	Success               bool                  `json:"success"`
	Report                string                `json:"report"`
	QualityScore          int                   `json:"quality_score"`
	Degraded              bool                  `json:"degraded"`
	Indicators            map[string]*Indicator `json:"indicators"`
	Errors                []StageError          `json:"errors"`
	LLMCalls              int                   `json:"llm_calls"`
	RetrievalCalls        int                   `json:"retrieval_calls"`
	ProcessingTimeSeconds float64               `json:"processing_time_seconds"`
}
