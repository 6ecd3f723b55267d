package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/industry"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

// fakeData serves per-stock statement fixtures.
type fakeData struct {
	byCode map[string]*models.FinancialData
	err    error
}

func (f *fakeData) Fetch(ctx context.Context, stockCode, period, reportType string, includePrevious bool) (*models.FinancialData, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.byCode[stockCode]
	if !ok {
		return nil, fmt.Errorf("financial data for %s: %w", stockCode, interfaces.ErrNotFound)
	}
	return data, nil
}

func (f *fakeData) Close() {}

// fakeRetrieval serves canned facet results or simulates a dead store.
type fakeRetrieval struct {
	down   bool
	chunks map[string][]models.Chunk
}

func (f *fakeRetrieval) RetrieveFacet(ctx context.Context, facet string, queries []string, topK int) interfaces.FacetResult {
	res := interfaces.FacetResult{Facet: facet, Calls: len(queries)}
	if f.down {
		for _, q := range queries {
			res.QueryErrors = append(res.QueryErrors, fmt.Sprintf("search '%s' failed: store unreachable", q))
		}
		return res
	}
	res.Chunks = f.chunks[facet]
	return res
}

// fakeLLM returns reportResponses in sequence for report prompts and a
// fixed narrative for the per-facet analysis prompts.
type fakeLLM struct {
	mu              sync.Mutex
	reportResponses []string
	reportCalls     int
	totalCalls      int
	err             error
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string, opts interfaces.CompleteOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.totalCalls++
	if f.err != nil {
		return "", f.err
	}
	if strings.Contains(prompt, "Assemble the final analysis report") {
		idx := f.reportCalls
		f.reportCalls++
		if idx < len(f.reportResponses) {
			return f.reportResponses[idx], nil
		}
		return "fallback report", nil
	}
	return "narrative analysis of the indicators", nil
}

// fakeGate scores by exact report text.
type fakeGate struct {
	mu      sync.Mutex
	scores  map[string]int
	invoked []string
}

func (f *fakeGate) Score(ctx context.Context, reportText string, indicators map[string]*models.Indicator, contextByFacet map[string][]models.Chunk) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoked = append(f.invoked, reportText)
	return f.scores[reportText]
}

// fakeStorage records saved reports.
type fakeStorage struct {
	mu    sync.Mutex
	saved []*models.AnalysisReport
}

func (f *fakeStorage) GetReport(ctx context.Context, stockCode, period string) (*models.AnalysisReport, error) {
	return nil, interfaces.ErrNotFound
}

func (f *fakeStorage) SaveReport(ctx context.Context, report *models.AnalysisReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, report)
	return nil
}

func (f *fakeStorage) ListReports(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeStorage) DeleteReport(ctx context.Context, stockCode, period string) error { return nil }

func testRegistry() *industry.Registry {
	r := industry.NewRegistry()
	r.Register(&industry.Config{
		Code: "testind",
		Name: "Test Industry",
		Indicators: []industry.IndicatorSpec{
			{Name: "revenue_growth", DisplayName: "Revenue", Tier: models.TierCore, Kind: industry.KindGrowth, Statement: "income", Field: "revenue"},
		},
		Thresholds: map[string]float64{},
		FacetQueries: map[string][]string{
			"risk":     {"risk factors"},
			"strategy": {"operating strategy", "expansion plans"},
		},
	})
	return r
}

func statements(revenue, previousRevenue float64) *models.FinancialData {
	return &models.FinancialData{
		StockCode:      "000001",
		Period:         "2024-03-31",
		ReportType:     "A",
		Current:        &models.StatementSet{Income: map[string]float64{"revenue": revenue}},
		PreviousPeriod: "2023-12-31",
		Previous:       &models.StatementSet{Income: map[string]float64{"revenue": previousRevenue}},
	}
}

func testOptions() Options {
	return Options{QualityThreshold: 60, MaxRetries: 2, TopK: 5, ContextBudget: 2000}
}

func request(stockCode string) interfaces.AnalysisRequest {
	return interfaces.AnalysisRequest{
		CompanyName:  "Acme Compute",
		StockCode:    stockCode,
		ReportPeriod: "2024-03-31",
		Industry:     "testind",
	}
}

func TestSuccessfulRun(t *testing.T) {
	data := &fakeData{byCode: map[string]*models.FinancialData{"000001": statements(30.5, 26.8)}}
	retrieval := &fakeRetrieval{chunks: map[string][]models.Chunk{
		"strategy": {{ID: "s1", Text: "expansion into cloud", Score: 0.9}},
		"risk":     {{ID: "r1", Text: "customer concentration", Score: 0.8}},
	}}
	llm := &fakeLLM{reportResponses: []string{"good report"}}
	gate := &fakeGate{scores: map[string]int{"good report": 85}}
	storage := &fakeStorage{}

	svc := NewService(data, retrieval, llm, gate, testRegistry(), storage, testOptions(), common.NewSilentLogger())
	result, err := svc.Analyze(context.Background(), request("000001"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if !result.Success || result.Degraded {
		t.Fatalf("expected clean success, got success=%v degraded=%v", result.Success, result.Degraded)
	}
	if result.Report != "good report" || result.QualityScore != 85 {
		t.Fatalf("unexpected report/score: %q %d", result.Report, result.QualityScore)
	}
	ind := result.Indicators["revenue_growth"]
	if ind == nil || ind.Display != "+13.81%" {
		t.Fatalf("revenue growth not computed: %+v", ind)
	}
	if result.RetrievalCalls != 3 {
		t.Fatalf("expected 3 retrieval calls, got %d", result.RetrievalCalls)
	}
	// core analysis + report (no auxiliary or specific indicators configured)
	if llm.totalCalls != 2 {
		t.Fatalf("expected 2 completions, got %d", llm.totalCalls)
	}
	if len(storage.saved) != 1 || storage.saved[0].Key != "000001:2024-03-31" {
		t.Fatalf("report not persisted: %+v", storage.saved)
	}
}

func TestRetryBoundAndBestReportRetention(t *testing.T) {
	data := &fakeData{byCode: map[string]*models.FinancialData{"000001": statements(30.5, 26.8)}}
	llm := &fakeLLM{reportResponses: []string{"first draft", "second draft"}}
	gate := &fakeGate{scores: map[string]int{"first draft": 40, "second draft": 30}}

	svc := NewService(data, &fakeRetrieval{}, llm, gate, testRegistry(), nil, testOptions(), common.NewSilentLogger())
	result, err := svc.Analyze(context.Background(), request("000001"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if llm.reportCalls != 2 {
		t.Fatalf("expected exactly 2 generations for maxRetries=2, got %d", llm.reportCalls)
	}
	if !result.Success {
		t.Fatal("budget exhaustion is a designed terminal condition, not a failure")
	}
	if !result.Degraded {
		t.Fatal("run below threshold must be flagged degraded")
	}
	if result.Report != "first draft" || result.QualityScore != 40 {
		t.Fatalf("best-scoring attempt not retained: %q score %d", result.Report, result.QualityScore)
	}
}

func TestAbortOnDataFetchFailure(t *testing.T) {
	data := &fakeData{err: errors.New("connection refused")}
	svc := NewService(data, &fakeRetrieval{}, &fakeLLM{}, &fakeGate{}, testRegistry(), nil, testOptions(), common.NewSilentLogger())

	result, err := svc.Analyze(context.Background(), request("000001"))
	if err == nil {
		t.Fatal("expected error for aborted run")
	}
	if result == nil || result.Success {
		t.Fatalf("aborted run must report success=false, got %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].Kind != models.ErrKindDataFetch {
		t.Fatalf("expected one data_fetch error, got %+v", result.Errors)
	}
}

func TestVectorStoreDownStillSucceeds(t *testing.T) {
	data := &fakeData{byCode: map[string]*models.FinancialData{"000001": statements(30.5, 26.8)}}
	llm := &fakeLLM{reportResponses: []string{"indicator-only report"}}
	gate := &fakeGate{scores: map[string]int{"indicator-only report": 70}}

	svc := NewService(data, &fakeRetrieval{down: true}, llm, gate, testRegistry(), nil, testOptions(), common.NewSilentLogger())
	result, err := svc.Analyze(context.Background(), request("000001"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if !result.Success {
		t.Fatal("unreachable vector store must not fail the run")
	}
	if !result.Degraded {
		t.Fatal("run with lost context must be flagged degraded")
	}
	retrievalErrors := 0
	for _, e := range result.Errors {
		if e.Kind == models.ErrKindRetrieval {
			retrievalErrors++
		}
	}
	if retrievalErrors != 3 {
		t.Fatalf("expected 3 logged retrieval errors, got %d", retrievalErrors)
	}
}

func TestLLMFailureDegradesRun(t *testing.T) {
	data := &fakeData{byCode: map[string]*models.FinancialData{"000001": statements(30.5, 26.8)}}
	llm := &fakeLLM{err: errors.New("model unavailable")}
	gate := &fakeGate{scores: map[string]int{}}

	svc := NewService(data, &fakeRetrieval{}, llm, gate, testRegistry(), nil, testOptions(), common.NewSilentLogger())
	result, err := svc.Analyze(context.Background(), request("000001"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	// Every draft is empty, so the run terminates with the budget spent and
	// nothing publishable.
	if result.Success {
		t.Fatal("run with no generated report must not claim success")
	}
	if !result.Degraded {
		t.Fatal("expected degraded flag")
	}
	llmErrors := 0
	for _, e := range result.Errors {
		if e.Kind == models.ErrKindLLM {
			llmErrors++
		}
	}
	if llmErrors == 0 {
		t.Fatal("expected logged llm errors")
	}
}

func TestCancellationBetweenStages(t *testing.T) {
	data := &fakeData{byCode: map[string]*models.FinancialData{"000001": statements(30.5, 26.8)}}
	svc := NewService(data, &fakeRetrieval{}, &fakeLLM{}, &fakeGate{}, testRegistry(), nil, testOptions(), common.NewSilentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := svc.Analyze(ctx, request("000001"))
	if err == nil {
		t.Fatal("expected error for cancelled run")
	}
	if result.Success {
		t.Fatal("cancelled run must not claim success")
	}
	if len(result.Errors) == 0 || result.Errors[0].Kind != models.ErrKindCancelled {
		t.Fatalf("expected cancellation recorded, got %+v", result.Errors)
	}
}

func TestUnknownIndustryRejected(t *testing.T) {
	svc := NewService(&fakeData{}, &fakeRetrieval{}, &fakeLLM{}, &fakeGate{}, testRegistry(), nil, testOptions(), common.NewSilentLogger())
	req := request("000001")
	req.Industry = "shipbuilding"
	if _, err := svc.Analyze(context.Background(), req); err == nil {
		t.Fatal("expected error for unregistered industry")
	}
}

func TestConcurrentRunIsolation(t *testing.T) {
	data := &fakeData{byCode: map[string]*models.FinancialData{
		"000001": statements(30.5, 26.8),
		"000002": statements(50, 25),
	}}
	llm := &fakeLLM{reportResponses: []string{"report a", "report b"}}
	gate := &fakeGate{scores: map[string]int{"report a": 80, "report b": 80, "fallback report": 80}}

	svc := NewService(data, &fakeRetrieval{}, llm, gate, testRegistry(), nil, testOptions(), common.NewSilentLogger())

	var wg sync.WaitGroup
	results := make(map[string]*models.AnalysisResult)
	var mu sync.Mutex
	for _, code := range []string{"000001", "000002"} {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			res, err := svc.Analyze(context.Background(), request(code))
			if err != nil {
				t.Errorf("Analyze(%s): %v", code, err)
				return
			}
			mu.Lock()
			results[code] = res
			mu.Unlock()
		}(code)
	}
	wg.Wait()

	first := results["000001"].Indicators["revenue_growth"]
	second := results["000002"].Indicators["revenue_growth"]
	if first == nil || second == nil {
		t.Fatal("both runs must compute their indicator")
	}
	if first.Display != "+13.81%" {
		t.Fatalf("run one contaminated: %s", first.Display)
	}
	if second.Display != "+100.00%" {
		t.Fatalf("run two contaminated: %s", second.Display)
	}
}
