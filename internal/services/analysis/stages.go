package analysis

import (
	"context"
	"sync"

	"github.com/bobmcallan/finsight/internal/industry"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
	"github.com/bobmcallan/finsight/internal/services/indicator"
)

// fetchData loads the statements. A missing or unreachable data store is
// the only fatal condition in the pipeline.
func (s *Service) fetchData(ctx context.Context, state *models.AnalysisState) bool {
	data, err := s.data.Fetch(ctx, state.StockCode, state.ReportPeriod, state.ReportType, true)
	if err != nil {
		state.RecordError(StageFetchData.String(), models.ErrKindDataFetch, err.Error())
		s.logger.Error().Err(err).
			Str("run_id", state.RunID).
			Str("stock_code", state.StockCode).
			Msg("Financial data fetch failed, aborting run")
		return true
	}

	state.Statements = data
	if data.Previous == nil {
		s.logger.Warn().Str("run_id", state.RunID).Msg("No prior period on record, growth indicators will be unavailable")
	}
	return false
}

// computeIndicators evaluates every configured indicator. A malformed
// input fails only that indicator.
func (s *Service) computeIndicators(state *models.AnalysisState, cfg *industry.Config) {
	for _, spec := range cfg.Indicators {
		ind, err := indicator.Compute(spec, state.Statements, cfg.Thresholds)
		if err != nil {
			state.RecordError(StageComputeIndicators.String(), models.ErrKindCalculation, err.Error())
			s.logger.Warn().Err(err).Str("indicator", spec.Name).Msg("Indicator computation failed")
		}
		state.SetIndicator(ind)
	}

	s.logger.Info().
		Str("run_id", state.RunID).
		Int("indicators", len(state.Indicators)).
		Msg("Indicators computed")
}

// retrieveContext runs all facets concurrently; facets have no data
// dependency on each other. Query failures degrade to partial context.
func (s *Service) retrieveContext(ctx context.Context, state *models.AnalysisState, cfg *industry.Config) {
	facets := cfg.Facets()
	results := make([]interfaces.FacetResult, len(facets))

	var wg sync.WaitGroup
	for i, facet := range facets {
		wg.Add(1)
		go func(i int, facet string) {
			defer wg.Done()
			results[i] = s.retrieval.RetrieveFacet(ctx, facet, cfg.FacetQueries[facet], s.opts.TopK)
		}(i, facet)
	}
	wg.Wait()

	total := 0
	for _, res := range results {
		state.ContextByFacet[res.Facet] = res.Chunks
		state.RetrievalCalls += res.Calls
		total += len(res.Chunks)
		for _, msg := range res.QueryErrors {
			state.RecordError(StageRetrieveContext.String(), models.ErrKindRetrieval, msg)
			state.Degraded = true
		}
	}

	s.logger.Info().
		Str("run_id", state.RunID).
		Int("facets", len(facets)).
		Int("chunks", total).
		Msg("Context retrieved")
}

func (s *Service) analyzeCore(ctx context.Context, state *models.AnalysisState, cfg *industry.Config) {
	if len(state.IndicatorsByTier(models.TierCore)) == 0 {
		state.AnalysisTexts["core"] = "Core indicator data is unavailable for this period."
		return
	}
	state.AnalysisTexts["core"] = s.generateText(ctx, state, StageAnalyzeCore.String(), buildCorePrompt(state, cfg))
}

// analyzeAuxiliary reads a bounded summary of the core analysis, so it runs
// strictly after it.
func (s *Service) analyzeAuxiliary(ctx context.Context, state *models.AnalysisState, cfg *industry.Config) {
	if len(state.IndicatorsByTier(models.TierAuxiliary)) == 0 {
		state.AnalysisTexts["auxiliary"] = "Auxiliary indicator data is unavailable for this period."
		return
	}
	coreSummary := summarize(orMissing(state.AnalysisTexts["core"]), coreSummaryLength)
	state.AnalysisTexts["auxiliary"] = s.generateText(ctx, state, StageAnalyzeAuxiliary.String(), buildAuxiliaryPrompt(state, cfg, coreSummary))
}

func (s *Service) analyzeSpecific(ctx context.Context, state *models.AnalysisState, cfg *industry.Config) {
	if len(state.IndicatorsByTier(models.TierSpecific)) == 0 {
		state.AnalysisTexts["specific"] = "No applicable leading indicators for this period."
		return
	}
	state.AnalysisTexts["specific"] = s.generateText(ctx, state, StageAnalyzeSpecific.String(), buildSpecificPrompt(state, cfg, businessTypeHint(state)))
}

// generateReport assembles the final narrative. Each entry here counts
// against the attempt budget, whether the completion succeeds or not.
func (s *Service) generateReport(ctx context.Context, state *models.AnalysisState, cfg *industry.Config) {
	state.Attempts++
	contextText := assembleContext(state, cfg, s.opts.ContextBudget)
	state.Report = s.generateText(ctx, state, StageGenerateReport.String(), buildReportPrompt(state, cfg, contextText))

	s.logger.Info().
		Str("run_id", state.RunID).
		Int("attempt", state.Attempts).
		Int("report_bytes", len(state.Report)).
		Msg("Report generated")
}

func (s *Service) qualityCheck(ctx context.Context, state *models.AnalysisState) {
	score := s.gate.Score(ctx, state.Report, state.Indicators, state.ContextByFacet)
	state.SetQualityScore(score)

	event := s.logger.Info()
	if score < s.opts.QualityThreshold {
		event = s.logger.Warn()
	}
	event.
		Str("run_id", state.RunID).
		Int("score", score).
		Int("attempt", state.Attempts).
		Msg("Quality check")
}

// generateText runs one completion, degrading to an empty result on
// failure. The model never fabricates a stage's content silently; a failed
// stage is visibly empty and logged.
func (s *Service) generateText(ctx context.Context, state *models.AnalysisState, stage, prompt string) string {
	text, err := s.llm.Complete(ctx, prompt, interfaces.CompleteOptions{
		Temperature: 0.7,
		MaxTokens:   4096,
	})
	state.LLMCalls++
	if err != nil {
		state.RecordError(stage, models.ErrKindLLM, err.Error())
		state.Degraded = true
		s.logger.Warn().Err(err).Str("run_id", state.RunID).Str("stage", stage).Msg("Completion failed, continuing degraded")
		return ""
	}
	return text
}
