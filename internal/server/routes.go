package server

import "net/http"

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/industries", s.handleIndustries)

	// Analysis
	mux.HandleFunc("/api/analyze", s.handleAnalyze)

	// Stored reports
	mux.HandleFunc("/api/reports/", s.routeReports)
	mux.HandleFunc("/api/reports", s.handleReportList)
}
