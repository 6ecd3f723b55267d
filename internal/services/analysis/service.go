package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/industry"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

// Options bounds the pipeline loop and prompt sizes.
type Options struct {
	QualityThreshold int
	MaxRetries       int
	TopK             int
	ContextBudget    int
}

// OptionsFromConfig maps the analysis configuration onto pipeline options.
func OptionsFromConfig(cfg *common.Config) Options {
	return Options{
		QualityThreshold: cfg.Analysis.QualityThreshold,
		MaxRetries:       cfg.Analysis.MaxRetries,
		TopK:             cfg.Analysis.TopK,
		ContextBudget:    cfg.Analysis.ContextBudget,
	}
}

// Service runs the analysis pipeline end to end.
type Service struct {
	data       interfaces.FinancialDataClient
	retrieval  interfaces.RetrievalService
	llm        interfaces.LLMClient
	gate       interfaces.QualityGate
	industries *industry.Registry
	reports    interfaces.ReportStorage // nil disables persistence
	opts       Options
	logger     *common.Logger
}

// NewService creates the pipeline service with its collaborators.
func NewService(
	data interfaces.FinancialDataClient,
	retrieval interfaces.RetrievalService,
	llm interfaces.LLMClient,
	gate interfaces.QualityGate,
	industries *industry.Registry,
	reports interfaces.ReportStorage,
	opts Options,
	logger *common.Logger,
) *Service {
	return &Service{
		data:       data,
		retrieval:  retrieval,
		llm:        llm,
		gate:       gate,
		industries: industries,
		reports:    reports,
		opts:       opts,
		logger:     logger,
	}
}

// Analyze executes one pipeline run. Each run owns its AnalysisState; runs
// for different companies or periods are independent and may execute
// concurrently. A non-nil error is returned only for invalid requests or a
// fatal data fetch failure; all other failures degrade the run.
func (s *Service) Analyze(ctx context.Context, req interfaces.AnalysisRequest) (*models.AnalysisResult, error) {
	if req.StockCode == "" || req.ReportPeriod == "" {
		return nil, fmt.Errorf("stock code and report period are required")
	}
	if req.ReportType == "" {
		req.ReportType = "A"
	}
	cfg, err := s.industries.Get(req.Industry)
	if err != nil {
		return nil, err
	}

	state := models.NewAnalysisState(req.CompanyName, req.StockCode, req.ReportPeriod, cfg.Code, req.ReportType)
	machine := NewMachine(s.opts.QualityThreshold, s.opts.MaxRetries)

	s.logger.Info().
		Str("run_id", state.RunID).
		Str("stock_code", state.StockCode).
		Str("period", state.ReportPeriod).
		Str("industry", cfg.Code).
		Msg("Starting analysis run")

	stage := StageFetchData
	for !stage.Terminal() {
		// Cooperative cancellation, checked between stages. State up to the
		// last completed stage stays inspectable.
		if ctxErr := ctx.Err(); ctxErr != nil {
			state.RecordError(stage.String(), models.ErrKindCancelled, ctxErr.Error())
			stage = StageAborted
			break
		}

		start := time.Now()
		aborted := s.runStage(ctx, stage, state, cfg)
		state.RecordTiming(stage.String(), time.Since(start))

		if aborted {
			stage = StageAborted
			break
		}
		stage = machine.Next(stage, state)
	}

	done := stage == StageDone
	if done {
		// Never ship a worse retry over a better earlier attempt.
		state.Report = state.BestReport
		if !machine.Accepted(state) {
			state.Degraded = true
		}
		s.persist(ctx, state)
	}

	result := buildResult(state, done)
	s.logger.Info().
		Str("run_id", state.RunID).
		Bool("success", result.Success).
		Bool("degraded", result.Degraded).
		Int("quality_score", result.QualityScore).
		Int("attempts", state.Attempts).
		Int("llm_calls", state.LLMCalls).
		Float64("seconds", result.ProcessingTimeSeconds).
		Msg("Analysis run finished")

	if !done {
		return result, fmt.Errorf("analysis run aborted: %s", lastErrorMessage(state))
	}
	return result, nil
}

// runStage executes one stage. The returned flag aborts the run; only the
// data fetch stage may set it.
func (s *Service) runStage(ctx context.Context, stage Stage, state *models.AnalysisState, cfg *industry.Config) bool {
	s.logger.Debug().Str("run_id", state.RunID).Str("stage", stage.String()).Msg("Stage started")

	switch stage {
	case StageFetchData:
		return s.fetchData(ctx, state)
	case StageComputeIndicators:
		s.computeIndicators(state, cfg)
	case StageRetrieveContext:
		s.retrieveContext(ctx, state, cfg)
	case StageAnalyzeCore:
		s.analyzeCore(ctx, state, cfg)
	case StageAnalyzeAuxiliary:
		s.analyzeAuxiliary(ctx, state, cfg)
	case StageAnalyzeSpecific:
		s.analyzeSpecific(ctx, state, cfg)
	case StageGenerateReport:
		s.generateReport(ctx, state, cfg)
	case StageQualityCheck:
		s.qualityCheck(ctx, state)
	}
	return false
}

func (s *Service) persist(ctx context.Context, state *models.AnalysisState) {
	if s.reports == nil || state.Report == "" {
		return
	}
	score := 0
	if state.QualityScore != nil {
		score = state.BestScore
	}
	stored := &models.AnalysisReport{
		Key:            models.ReportKey(state.StockCode, state.ReportPeriod),
		CompanyName:    state.CompanyName,
		StockCode:      state.StockCode,
		ReportPeriod:   state.ReportPeriod,
		Industry:       state.Industry,
		GeneratedAt:    time.Now(),
		Report:         state.Report,
		QualityScore:   score,
		Degraded:       state.Degraded,
		Indicators:     state.Indicators,
		Errors:         state.Errors,
		LLMCalls:       state.LLMCalls,
		RetrievalCalls: state.RetrievalCalls,
	}
	if err := s.reports.SaveReport(ctx, stored); err != nil {
		s.logger.Warn().Err(err).Str("key", stored.Key).Msg("Failed to persist analysis report")
	}
}

func buildResult(state *models.AnalysisState, done bool) *models.AnalysisResult {
	score := 0
	if state.QualityScore != nil {
		score = state.BestScore
	}
	return &models.AnalysisResult{
		Success:               done && state.Report != "",
		Report:                state.Report,
		QualityScore:          score,
		Degraded:              state.Degraded,
		Indicators:            state.Indicators,
		Errors:                state.Errors,
		LLMCalls:              state.LLMCalls,
		RetrievalCalls:        state.RetrievalCalls,
		ProcessingTimeSeconds: state.ProcessingTime().Seconds(),
	}
}

func lastErrorMessage(state *models.AnalysisState) string {
	if len(state.Errors) == 0 {
		return "unknown error"
	}
	last := state.Errors[len(state.Errors)-1]
	return fmt.Sprintf("%s: %s", last.Stage, last.Message)
}

var _ interfaces.AnalysisService = (*Service)(nil)
