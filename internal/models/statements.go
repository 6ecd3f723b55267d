// Package models defines data structures for Finsight
package models

// StatementSet holds the three financial statement groups for one period.
// Each statement is a flat mapping of field name to numeric value.
type StatementSet struct {
	Income   map[string]float64 `json:"income"`
	Balance  map[string]float64 `json:"balance"`
	CashFlow map[string]float64 `json:"cash_flow"`
}

// FinancialData is the result of a financial data store fetch: the current
// period statements plus, optionally, the matching prior-period statements.
type FinancialData struct {
	StockCode      string        `json:"stock_code"`
	Period         string        `json:"period"`
	ReportType     string        `json:"report_type"`
	Current        *StatementSet `json:"current"`
	PreviousPeriod string        `json:"previous_period,omitempty"`
	Previous       *StatementSet `json:"previous,omitempty"`
}

// Value returns the named field from a statement map, or nil when the field
// is absent. Callers treat nil as "not reported".
func Value(statement map[string]float64, field string) *float64 {
	if statement == nil {
		return nil
	}
	v, ok := statement[field]
	if !ok {
		return nil
	}
	return &v
}
