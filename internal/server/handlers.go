package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
)

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"uptime":  time.Since(s.app.StartupTime).String(),
		"version": common.GetVersion(),
	})
}

// handleVersion handles GET /api/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleIndustries handles GET /api/industries.
func (s *Server) handleIndustries(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string][]string{
		"industries": s.app.Industries.List(),
	})
}

// handleAnalyze handles POST /api/analyze: runs one full pipeline and
// returns the result, which carries a degraded flag and error log for
// partial runs.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req interfaces.AnalysisRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.StockCode == "" || req.ReportPeriod == "" || req.Industry == "" {
		WriteError(w, http.StatusBadRequest, "stock_code, report_period and industry are required")
		return
	}

	result, err := s.app.AnalysisService.Analyze(r.Context(), req)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		if result != nil {
			// Aborted run: surface the diagnostics alongside the failure.
			WriteJSON(w, http.StatusUnprocessableEntity, result)
			return
		}
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// handleReportList handles GET /api/reports.
func (s *Server) handleReportList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	keys, err := s.app.Storage.ReportStorage().ListReports(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if keys == nil {
		keys = []string{}
	}
	WriteJSON(w, http.StatusOK, map[string][]string{"reports": keys})
}

// routeReports handles /api/reports/{stockCode}/{period}.
func (s *Server) routeReports(w http.ResponseWriter, r *http.Request) {
	parts := PathParts(r, "/api/reports/")
	if len(parts) != 2 {
		WriteError(w, http.StatusNotFound, "Expected /api/reports/{stock_code}/{period}")
		return
	}
	stockCode, period := parts[0], parts[1]

	switch r.Method {
	case http.MethodGet:
		report, err := s.app.Storage.ReportStorage().GetReport(r.Context(), stockCode, period)
		if err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				WriteError(w, http.StatusNotFound, err.Error())
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, report)

	case http.MethodDelete:
		if err := s.app.Storage.ReportStorage().DeleteReport(r.Context(), stockCode, period); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodDelete)
	}
}
