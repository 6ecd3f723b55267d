package industry

import "github.com/bobmcallan/finsight/internal/models"

// computerIndustryConfig is the built-in configuration for the computer /
// TMT sector: growth-led valuation, revenue growth dominating, R&D spend as
// the leading strategic signal.
func computerIndustryConfig() *Config {
	return &Config{
		Code:        "computer",
		Name:        "Computer",
		Description: "High-growth TMT sector; valuation driven by revenue growth and forward signals",
		Indicators: []IndicatorSpec{
			// Core: growth metrics that move the stock
			{
				Name:        "revenue_growth",
				DisplayName: "Revenue Growth",
				Tier:        models.TierCore,
				Kind:        KindGrowth,
				Statement:   "income",
				Field:       "revenue",
				Unit:        "%",
			},
			{
				Name:        "net_profit_growth",
				DisplayName: "Net Profit Growth",
				Tier:        models.TierCore,
				Kind:        KindGrowth,
				Statement:   "income",
				Field:       "net_profit",
				Unit:        "%",
			},
			{
				Name:        "net_profit_parent_growth",
				DisplayName: "Net Profit Attributable to Parent Growth",
				Tier:        models.TierCore,
				Kind:        KindGrowth,
				Statement:   "income",
				Field:       "net_profit_parent",
				Unit:        "%",
			},

			// Auxiliary: quality and efficiency of the growth
			{
				Name:        "gross_margin",
				DisplayName: "Gross Margin",
				Tier:        models.TierAuxiliary,
				Kind:        KindMargin,
				Statement:   "income",
				Numerator:   "cost",
				Denominator: "revenue",
				Unit:        "%",
				HighLabel:   "strong pricing power",
				LowLabel:    "thin margins",
			},
			{
				Name:        "rd_expense_ratio",
				DisplayName: "R&D Expense Ratio",
				Tier:        models.TierAuxiliary,
				Kind:        KindRatio,
				Statement:   "income",
				Numerator:   "rd_expense",
				Denominator: "revenue",
				Unit:        "%",
				HighLabel:   "high R&D intensity",
				LowLabel:    "low R&D intensity",
			},
			{
				Name:        "sales_expense_ratio",
				DisplayName: "Sales Expense Ratio",
				Tier:        models.TierAuxiliary,
				Kind:        KindRatio,
				Statement:   "income",
				Numerator:   "sales_expense",
				Denominator: "revenue",
				Unit:        "%",
				HighLabel:   "sales-heavy go-to-market",
				LowLabel:    "lean sales spend",
			},

			// Specific: leading signals for particular business models
			{
				Name:        "contract_liability_change",
				DisplayName: "Contract Liability Change",
				Tier:        models.TierSpecific,
				Kind:        KindGrowth,
				Statement:   "balance",
				Field:       "contract_liability",
				Unit:        "%",
			},
			{
				Name:        "inventory_change",
				DisplayName: "Inventory Change",
				Tier:        models.TierSpecific,
				Kind:        KindGrowth,
				Statement:   "balance",
				Field:       "inventory",
				Unit:        "%",
			},
		},
		Thresholds: map[string]float64{
			"gross_margin":        50,
			"rd_expense_ratio":    10,
			"sales_expense_ratio": 15,
		},
		FacetQueries: map[string][]string{
			"strategy": {
				"company strategy and product roadmap",
				"research and development direction",
				"market expansion plans",
			},
			"performance": {
				"revenue and profit drivers for the period",
				"segment performance and order backlog",
			},
			"risk": {
				"risk factors and uncertainties",
				"customer concentration and receivables risk",
			},
			"cashflow": {
				"operating cash flow commentary",
				"capital expenditure and financing activities",
			},
		},
	}
}
