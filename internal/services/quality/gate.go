// Package quality scores generated reports and anchors the retry loop
package quality

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

// Required report sections, checked structurally.
var requiredSections = []string{
	"Core Conclusions",
	"Detailed Analysis",
	"Overall Judgment",
	"Investment View",
}

var numberPattern = regexp.MustCompile(`\d+\.?\d*%?`)

const (
	minReportLength    = 500
	minNumberMentions  = 5
	structuralWeight   = 0.6
	semanticWeight     = 0.4
	shortReportPenalty = 20
	sectionPenalty     = 15
	numbersPenalty     = 10
	facetPenalty       = 5
	indicatorPenalty   = 5
)

// Gate combines deterministic structural checks with a semantic score from
// an external evaluator. Scores are memoized by report text so re-scoring
// identical input always yields the identical result.
type Gate struct {
	evaluator interfaces.QualityEvaluator // may be nil: structural-only
	logger    *common.Logger

	mu   sync.Mutex
	memo map[string]int
}

// NewGate creates a quality gate. evaluator may be nil, in which case the
// score is purely structural.
func NewGate(evaluator interfaces.QualityEvaluator, logger *common.Logger) *Gate {
	return &Gate{
		evaluator: evaluator,
		logger:    logger,
		memo:      make(map[string]int),
	}
}

// Score returns a stable integer in [0,100] for the report text.
func (g *Gate) Score(ctx context.Context, reportText string, indicators map[string]*models.Indicator, contextByFacet map[string][]models.Chunk) int {
	if reportText == "" {
		return 0
	}

	key := hashText(reportText)
	g.mu.Lock()
	if cached, ok := g.memo[key]; ok {
		g.mu.Unlock()
		return cached
	}
	g.mu.Unlock()

	structural := g.structuralScore(reportText, indicators, contextByFacet)

	score := structural
	if g.evaluator != nil {
		semantic, err := g.evaluator.Evaluate(ctx, reportText, contextDigest(contextByFacet))
		if err != nil {
			g.logger.Warn().Err(err).Msg("Semantic evaluation failed, using structural score only")
		} else {
			blended := structuralWeight*float64(structural) + semanticWeight*float64(clamp(semantic))
			score = int(math.Round(blended))
		}
	}
	score = clamp(score)

	g.mu.Lock()
	g.memo[key] = score
	g.mu.Unlock()

	g.logger.Debug().Int("score", score).Int("structural", structural).Msg("Report scored")
	return score
}

// structuralScore applies the deterministic checks: length, required
// sections, numeric citations, facet coverage, and mentions of the
// available core indicators.
func (g *Gate) structuralScore(reportText string, indicators map[string]*models.Indicator, contextByFacet map[string][]models.Chunk) int {
	score := 100
	lower := strings.ToLower(reportText)

	if len(reportText) < minReportLength {
		score -= shortReportPenalty
	}

	for _, section := range requiredSections {
		if !strings.Contains(lower, strings.ToLower(section)) {
			score -= sectionPenalty
		}
	}

	if len(numberPattern.FindAllString(reportText, -1)) < minNumberMentions {
		score -= numbersPenalty
	}

	// Every facet that produced context deserves a trace in the report.
	for facet, chunks := range contextByFacet {
		if len(chunks) == 0 {
			continue
		}
		if !strings.Contains(lower, strings.ToLower(facet)) {
			score -= facetPenalty
		}
	}

	// Available core indicators should be cited with their computed value.
	for _, ind := range indicators {
		if ind.Tier != models.TierCore || !ind.Available() {
			continue
		}
		if !strings.Contains(reportText, ind.Display) {
			score -= indicatorPenalty
		}
	}

	return clamp(score)
}

func contextDigest(contextByFacet map[string][]models.Chunk) string {
	var sb strings.Builder
	for _, chunks := range contextByFacet {
		for _, c := range chunks {
			sb.WriteString(c.Text)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

var _ interfaces.QualityGate = (*Gate)(nil)
