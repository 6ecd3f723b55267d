package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/finsight/internal/app"
	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/industry"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

type stubAnalysis struct {
	result *models.AnalysisResult
	err    error
	gotReq interfaces.AnalysisRequest
}

func (s *stubAnalysis) Analyze(ctx context.Context, req interfaces.AnalysisRequest) (*models.AnalysisResult, error) {
	s.gotReq = req
	return s.result, s.err
}

type stubReports struct {
	reports map[string]*models.AnalysisReport
}

func (s *stubReports) GetReport(ctx context.Context, stockCode, period string) (*models.AnalysisReport, error) {
	report, ok := s.reports[models.ReportKey(stockCode, period)]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return report, nil
}

func (s *stubReports) SaveReport(ctx context.Context, report *models.AnalysisReport) error {
	s.reports[report.Key] = report
	return nil
}

func (s *stubReports) ListReports(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.reports))
	for k := range s.reports {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *stubReports) DeleteReport(ctx context.Context, stockCode, period string) error {
	delete(s.reports, models.ReportKey(stockCode, period))
	return nil
}

type stubStorage struct {
	reports *stubReports
}

func (s *stubStorage) ReportStorage() interfaces.ReportStorage { return s.reports }
func (s *stubStorage) Close() error                            { return nil }

func newTestServer(analysis *stubAnalysis, reports *stubReports) *Server {
	if reports == nil {
		reports = &stubReports{reports: make(map[string]*models.AnalysisReport)}
	}
	a := &app.App{
		Config:          common.NewDefaultConfig(),
		Logger:          common.NewSilentLogger(),
		Storage:         &stubStorage{reports: reports},
		Industries:      industry.NewRegistry(),
		AnalysisService: analysis,
		StartupTime:     time.Now(),
	}
	return NewServer(a)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&stubAnalysis{}, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestVersionEndpoint(t *testing.T) {
	srv := newTestServer(&stubAnalysis{}, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["version"])
}

func TestIndustriesEndpoint(t *testing.T) {
	srv := newTestServer(&stubAnalysis{}, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/industries", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["industries"], "computer")
}

func TestAnalyzeSuccess(t *testing.T) {
	stub := &stubAnalysis{result: &models.AnalysisResult{
		Success:      true,
		Report:       "final report",
		QualityScore: 85,
	}}
	srv := newTestServer(stub, nil)

	payload := `{"company_name":"Acme","stock_code":"000001","report_period":"2024-03-31","industry":"computer"}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewBufferString(payload)))

	require.Equal(t, http.StatusOK, rec.Code)
	var result models.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 85, result.QualityScore)
	assert.Equal(t, "000001", stub.gotReq.StockCode)
}

func TestAnalyzeValidation(t *testing.T) {
	srv := newTestServer(&stubAnalysis{}, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewBufferString(`{"stock_code":"000001"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewBufferString("not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAnalyzeNotFound(t *testing.T) {
	stub := &stubAnalysis{err: interfaces.ErrNotFound}
	srv := newTestServer(stub, nil)

	payload := `{"stock_code":"999999","report_period":"2024-03-31","industry":"computer"}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewBufferString(payload)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzeAbortedRunReturnsDiagnostics(t *testing.T) {
	stub := &stubAnalysis{
		result: &models.AnalysisResult{
			Success: false,
			Errors:  []models.StageError{{Stage: "fetch_data", Kind: models.ErrKindDataFetch, Message: "connection refused"}},
		},
		err: assert.AnError,
	}
	srv := newTestServer(stub, nil)

	payload := `{"stock_code":"000001","report_period":"2024-03-31","industry":"computer"}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewBufferString(payload)))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var result models.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, models.ErrKindDataFetch, result.Errors[0].Kind)
}

func TestReportGetAndDelete(t *testing.T) {
	reports := &stubReports{reports: map[string]*models.AnalysisReport{
		"000001:2024-03-31": {
			Key:          "000001:2024-03-31",
			StockCode:    "000001",
			ReportPeriod: "2024-03-31",
			Report:       "stored report",
			QualityScore: 80,
		},
	}}
	srv := newTestServer(&stubAnalysis{}, reports)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/000001/2024-03-31", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var report models.AnalysisReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "stored report", report.Report)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/000001/2019-12-31", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/reports/000001/2024-03-31", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/000001/2024-03-31", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportList(t *testing.T) {
	reports := &stubReports{reports: map[string]*models.AnalysisReport{
		"000001:2024-03-31": {Key: "000001:2024-03-31"},
	}}
	srv := newTestServer(&stubAnalysis{}, reports)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"000001:2024-03-31"}, body["reports"])
}

func TestReportBadPath(t *testing.T) {
	srv := newTestServer(&stubAnalysis{}, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/only-one-segment", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
