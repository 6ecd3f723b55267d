package gemini

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/finsight/internal/interfaces"
)

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns
// in Gemini rate limit errors.
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// ClassifyError buckets a model error for retry decisions. Rate limits and
// timeouts are transient; everything else is not retried.
func ClassifyError(err error) interfaces.LLMErrorKind {
	if err == nil {
		return interfaces.LLMErrOther
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return interfaces.LLMErrTimeout
	}

	errStr := err.Error()
	if strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "quota") {
		return interfaces.LLMErrRateLimit
	}
	if strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "504") {
		return interfaces.LLMErrTimeout
	}
	return interfaces.LLMErrOther
}

// extractRetryDelay parses the API-suggested retry delay from a rate limit
// error. Returns 0 when the message carries no delay hint.
func extractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}
	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}
	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
