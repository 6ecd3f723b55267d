package analysis

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/finsight/internal/industry"
	"github.com/bobmcallan/finsight/internal/models"
	"github.com/bobmcallan/finsight/internal/services/indicator"
)

const (
	noContextMarker   = "(no reference material retrieved for this facet)"
	coreSummaryLength = 500
)

// systemPreamble frames every analysis prompt with the analyst role and the
// company under review.
func systemPreamble(cfg *industry.Config, state *models.AnalysisState) string {
	return fmt.Sprintf(`You are a senior equity analyst covering the %s industry.
You are analyzing %s (%s) for the reporting period %s.
Base every statement on the figures and reference material provided. Do not
invent numbers; quote the computed values exactly as given.`,
		cfg.Name, state.CompanyName, state.StockCode, state.ReportPeriod)
}

// indicatorLines renders the computed indicators of one tier in config
// order, one line each. Unavailable indicators are listed as N/A so the
// model knows the data is missing rather than omitted.
func indicatorLines(state *models.AnalysisState, cfg *industry.Config, tier models.IndicatorTier) string {
	var lines []string
	for _, spec := range cfg.IndicatorsByTier(tier) {
		ind, ok := state.Indicators[spec.Name]
		if !ok {
			continue
		}
		lines = append(lines, indicatorLine(ind))
	}
	return strings.Join(lines, "\n")
}

func indicatorLine(ind *models.Indicator) string {
	name := ind.DisplayName
	if name == "" {
		name = ind.Name
	}
	if !ind.Available() {
		return fmt.Sprintf("- %s: N/A", name)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "- %s: %s", name, ind.Display)
	if ind.Current != nil && ind.Unit != "" {
		fmt.Fprintf(&sb, " (current %s %s)", indicator.FormatAmount(*ind.Current), ind.Unit)
	}
	if ind.DeltaPoints != nil {
		fmt.Fprintf(&sb, ", change %+.2fpp", *ind.DeltaPoints)
	}
	if ind.Label != "" {
		fmt.Fprintf(&sb, ", %s", ind.Label)
	}
	return sb.String()
}

func buildCorePrompt(state *models.AnalysisState, cfg *industry.Config) string {
	return fmt.Sprintf(`%s

Core indicators:
%s

Write a focused analysis of the company's revenue and profit performance
this period. Cover growth drivers, profit quality, and how the core numbers
compare to the prior period. Keep it under 400 words.`,
		systemPreamble(cfg, state), indicatorLines(state, cfg, models.TierCore))
}

func buildAuxiliaryPrompt(state *models.AnalysisState, cfg *industry.Config, coreSummary string) string {
	return fmt.Sprintf(`%s

Summary of the core indicator analysis:
%s

Auxiliary indicators:
%s

Write an analysis of margins and expense structure. Relate margin and
expense movements to the core performance summarized above. Keep it under
300 words.`,
		systemPreamble(cfg, state), coreSummary, indicatorLines(state, cfg, models.TierAuxiliary))
}

func buildSpecificPrompt(state *models.AnalysisState, cfg *industry.Config, businessType string) string {
	return fmt.Sprintf(`%s

Business model signal: %s

Leading indicators:
%s

Write a short analysis of what these forward-looking balance sheet signals
imply about demand for the next period. Keep it under 250 words.`,
		systemPreamble(cfg, state), businessType, indicatorLines(state, cfg, models.TierSpecific))
}

func buildReportPrompt(state *models.AnalysisState, cfg *industry.Config, contextText string) string {
	return fmt.Sprintf(`%s

Core indicator analysis:
%s

Auxiliary indicator analysis:
%s

Leading indicator analysis:
%s

Reference material from the company's filings:
%s

Assemble the final analysis report. Use exactly these four section
headings, in this order:

Core Conclusions
Detailed Analysis
Overall Judgment
Investment View

Cite the computed indicator values verbatim. Ground qualitative claims in
the reference material where it is available.`,
		systemPreamble(cfg, state),
		orMissing(state.AnalysisTexts["core"]),
		orMissing(state.AnalysisTexts["auxiliary"]),
		orMissing(state.AnalysisTexts["specific"]),
		contextText)
}

// assembleContext flattens the retrieved chunks into one bounded text
// block, in fixed facet order so reassembly is deterministic. Facets with
// no chunks carry an explicit marker.
func assembleContext(state *models.AnalysisState, cfg *industry.Config, budget int) string {
	var sb strings.Builder
	for _, facet := range cfg.Facets() {
		fmt.Fprintf(&sb, "## %s\n", facet)
		chunks := state.ContextByFacet[facet]
		if len(chunks) == 0 {
			sb.WriteString(noContextMarker)
			sb.WriteString("\n")
			continue
		}
		for _, c := range chunks {
			sb.WriteString(c.Text)
			sb.WriteString("\n")
		}
	}

	text := sb.String()
	if budget > 0 && len(text) > budget {
		text = text[:budget] + "\n...(truncated)"
	}
	return text
}

// businessTypeHint infers the business model from which leading indicators
// are populated: contract liabilities point at subscription revenue,
// inventory at hardware.
func businessTypeHint(state *models.AnalysisState) string {
	hasContract := false
	hasInventory := false
	for _, ind := range state.IndicatorsByTier(models.TierSpecific) {
		if !ind.Available() {
			continue
		}
		if strings.Contains(ind.Name, "contract_liability") {
			hasContract = true
		}
		if strings.Contains(ind.Name, "inventory") {
			hasInventory = true
		}
	}
	switch {
	case hasContract && hasInventory:
		return "mixed subscription and hardware"
	case hasContract:
		return "subscription/SaaS"
	case hasInventory:
		return "hardware/compute"
	default:
		return "general"
	}
}

// summarize bounds a narrative to n bytes for reuse in downstream prompts.
func summarize(text string, n int) string {
	if len(text) <= n {
		return text
	}
	return text[:n]
}

func orMissing(text string) string {
	if strings.TrimSpace(text) == "" {
		return "(not available)"
	}
	return text
}
