// Package indicator computes financial indicators deterministically from
// statement data. All functions are pure: numeric results come from code,
// never from text generation.
package indicator

import (
	"fmt"
	"math"

	"github.com/bobmcallan/finsight/internal/industry"
	"github.com/bobmcallan/finsight/internal/models"
)

// Compute evaluates one indicator spec against the fetched statements.
// Inputs that prevent computation (missing previous period, zero
// denominator) yield an unavailable indicator and no error. Malformed
// inputs (non-finite values) return an error so the caller can record a
// calculation failure; the returned indicator is still usable as
// unavailable.
func Compute(spec industry.IndicatorSpec, data *models.FinancialData, thresholds map[string]float64) (*models.Indicator, error) {
	ind := &models.Indicator{
		Name:        spec.Name,
		DisplayName: spec.DisplayName,
		Tier:        spec.Tier,
		Unit:        spec.Unit,
		Status:      models.IndicatorUnavailable,
		Display:     "N/A",
	}

	if data == nil || data.Current == nil {
		return ind, nil
	}

	switch spec.Kind {
	case industry.KindGrowth:
		return computeGrowth(spec, data, ind)
	case industry.KindRatio, industry.KindMargin:
		return computeRatio(spec, data, ind, thresholds)
	default:
		return ind, fmt.Errorf("unknown indicator kind '%s' for %s", spec.Kind, spec.Name)
	}
}

func computeGrowth(spec industry.IndicatorSpec, data *models.FinancialData, ind *models.Indicator) (*models.Indicator, error) {
	current := fieldValue(data.Current, spec.Statement, spec.Field)
	var previous *float64
	if data.Previous != nil {
		previous = fieldValue(data.Previous, spec.Statement, spec.Field)
	}
	ind.Current = current
	ind.Previous = previous

	if err := checkFinite(spec.Name, current, previous); err != nil {
		return ind, err
	}

	rate := GrowthRate(current, previous)
	if rate == nil {
		return ind, nil
	}

	ind.Value = rate
	ind.Status = models.IndicatorOK
	ind.Display = fmt.Sprintf("%+.2f%%", *rate)
	return ind, nil
}

func computeRatio(spec industry.IndicatorSpec, data *models.FinancialData, ind *models.Indicator, thresholds map[string]float64) (*models.Indicator, error) {
	num := fieldValue(data.Current, spec.Statement, spec.Numerator)
	den := fieldValue(data.Current, spec.Statement, spec.Denominator)
	ind.Current = num

	if err := checkFinite(spec.Name, num, den); err != nil {
		return ind, err
	}

	var value *float64
	if spec.Kind == industry.KindMargin {
		value = Margin(num, den)
	} else {
		value = Ratio(num, den)
	}
	if value == nil {
		return ind, nil
	}

	ind.Value = value
	ind.Status = models.IndicatorOK
	ind.Display = fmt.Sprintf("%.2f%%", *value)

	// Change vs prior period, in percentage points
	if data.Previous != nil {
		prevNum := fieldValue(data.Previous, spec.Statement, spec.Numerator)
		prevDen := fieldValue(data.Previous, spec.Statement, spec.Denominator)
		if checkFinite(spec.Name, prevNum, prevDen) == nil {
			var prev *float64
			if spec.Kind == industry.KindMargin {
				prev = Margin(prevNum, prevDen)
			} else {
				prev = Ratio(prevNum, prevDen)
			}
			if prev != nil {
				delta := round2(*value - *prev)
				ind.DeltaPoints = &delta
			}
		}
	}

	// Qualitative label resolved against the industry threshold, not
	// hard-coded: the same ratio classifies differently per industry.
	if threshold, ok := thresholds[spec.Name]; ok {
		if *value >= threshold {
			ind.Label = spec.HighLabel
		} else {
			ind.Label = spec.LowLabel
		}
	}

	return ind, nil
}

// GrowthRate computes (current - previous) / abs(previous) * 100, rounded
// to two decimals. Returns nil when previous is nil or zero, or either
// input is missing.
func GrowthRate(current, previous *float64) *float64 {
	if current == nil || previous == nil || *previous == 0 {
		return nil
	}
	rate := round2((*current - *previous) / math.Abs(*previous) * 100)
	return &rate
}

// Ratio computes numerator / denominator * 100, rounded to two decimals.
// Returns nil when the denominator is nil or zero, or the numerator is
// missing.
func Ratio(numerator, denominator *float64) *float64 {
	if numerator == nil || denominator == nil || *denominator == 0 {
		return nil
	}
	r := round2(*numerator / *denominator * 100)
	return &r
}

// Margin computes (denominator - numerator) / denominator * 100, the gross
// margin form: numerator is the cost, denominator the revenue.
func Margin(numerator, denominator *float64) *float64 {
	if numerator == nil || denominator == nil || *denominator == 0 {
		return nil
	}
	m := round2((*denominator - *numerator) / *denominator * 100)
	return &m
}

// FormatAmount renders a large currency amount compactly: 1.23B, 45.60M,
// or the plain value below a million.
func FormatAmount(v float64) string {
	abs := math.Abs(v)
	sign := ""
	if v < 0 {
		sign = "-"
	}
	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%s%.2fB", sign, abs/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%s%.2fM", sign, abs/1_000_000)
	default:
		return fmt.Sprintf("%s%.2f", sign, abs)
	}
}

func fieldValue(set *models.StatementSet, statement, field string) *float64 {
	if set == nil || field == "" {
		return nil
	}
	switch statement {
	case "income":
		return models.Value(set.Income, field)
	case "balance":
		return models.Value(set.Balance, field)
	case "cash_flow":
		return models.Value(set.CashFlow, field)
	default:
		return nil
	}
}

func checkFinite(name string, values ...*float64) error {
	for _, v := range values {
		if v == nil {
			continue
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return fmt.Errorf("non-numeric input for indicator %s", name)
		}
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
