package quality

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
)

const evaluatorContextBudget = 2000

var scorePattern = regexp.MustCompile(`\b(\d{1,3})\b`)

// Evaluator asks a language model to judge how well a report is grounded
// in its retrieved context, returning an integer in [0,100].
type Evaluator struct {
	llm    interfaces.LLMClient
	logger *common.Logger
}

func NewEvaluator(llm interfaces.LLMClient, logger *common.Logger) *Evaluator {
	return &Evaluator{llm: llm, logger: logger}
}

func (e *Evaluator) Evaluate(ctx context.Context, reportText, contextText string) (int, error) {
	if len(contextText) > evaluatorContextBudget {
		contextText = contextText[:evaluatorContextBudget]
	}

	prompt := fmt.Sprintf(`You are reviewing a financial analysis report for accuracy and grounding.

Reference material:
%s

Report under review:
%s

Rate how well the report is supported by the reference material and its own
figures, on a scale of 0 to 100. Respond with the integer score only.`, contextText, reportText)

	raw, err := e.llm.Complete(ctx, prompt, interfaces.CompleteOptions{
		Temperature: 0,
		MaxTokens:   16,
	})
	if err != nil {
		return 0, fmt.Errorf("semantic evaluation: %w", err)
	}

	score, err := parseScore(raw)
	if err != nil {
		e.logger.Warn().Str("response", raw).Msg("Unparseable evaluation response")
		return 0, err
	}
	return score, nil
}

// parseScore extracts the first integer in [0,100] from the model output.
func parseScore(raw string) (int, error) {
	for _, match := range scorePattern.FindAllString(strings.TrimSpace(raw), -1) {
		n, err := strconv.Atoi(match)
		if err != nil {
			continue
		}
		if n >= 0 && n <= 100 {
			return n, nil
		}
	}
	return 0, fmt.Errorf("no score found in %q", raw)
}

var _ interfaces.QualityEvaluator = (*Evaluator)(nil)
