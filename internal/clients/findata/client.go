// Package findata provides a client for the structured financial data store
package findata

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

const DefaultTimeout = 30 * time.Second

const (
	incomeQuery = `
		SELECT revenue, cost, business_tax, sales_expense, admin_expense,
		       rd_expense, finance_expense, operating_profit, total_profit,
		       net_profit, net_profit_parent
		FROM financial.income_statement
		WHERE stock_code = $1 AND report_period = $2 AND report_type = $3
		LIMIT 1`

	balanceQuery = `
		SELECT current_assets, non_current_assets, total_assets,
		       current_liabilities, non_current_liabilities, total_liabilities,
		       total_equity, parent_equity, inventory, contract_liability
		FROM financial.balance_sheet
		WHERE stock_code = $1 AND report_period = $2 AND report_type = $3
		LIMIT 1`

	cashFlowQuery = `
		SELECT operating_cash_inflow, operating_cash_outflow, net_operating_cash_flow,
		       investing_cash_inflow, investing_cash_outflow, net_investing_cash_flow,
		       financing_cash_inflow, financing_cash_outflow, net_financing_cash_flow,
		       net_cash_increase
		FROM financial.cashflow_statement
		WHERE stock_code = $1 AND report_period = $2 AND report_type = $3
		LIMIT 1`

	previousPeriodQuery = `
		SELECT DISTINCT report_period
		FROM financial.income_statement
		WHERE stock_code = $1 AND report_period < $2
		ORDER BY report_period DESC
		LIMIT 1`
)

// Client reads financial statements from PostgreSQL.
type Client struct {
	pool    *pgxpool.Pool
	logger  *common.Logger
	timeout time.Duration
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the per-fetch timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// NewClient connects to the financial data store at the given DSN.
func NewClient(ctx context.Context, dsn string, opts ...ClientOption) (*Client, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach financial data store: %w", err)
	}

	client := &Client{
		pool:    pool,
		logger:  common.NewDefaultLogger(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger.Info().Msg("Connected to financial data store")
	return client, nil
}

// Fetch loads the three statements for a company and period. When
// includePrevious is set it also loads the most recent earlier period on
// record, which indicator computation uses as the comparison base.
func (c *Client) Fetch(ctx context.Context, stockCode, period, reportType string, includePrevious bool) (*models.FinancialData, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	current, err := c.fetchStatements(ctx, stockCode, period, reportType)
	if err != nil {
		return nil, err
	}
	if current == nil {
		c.logger.Warn().Str("stock_code", stockCode).Str("period", period).Msg("No financial data found")
		return nil, fmt.Errorf("financial data for %s %s: %w", stockCode, period, interfaces.ErrNotFound)
	}

	data := &models.FinancialData{
		StockCode:  stockCode,
		Period:     period,
		ReportType: reportType,
		Current:    current,
	}

	if includePrevious {
		previousPeriod, err := c.previousPeriod(ctx, stockCode, period)
		if err != nil {
			return nil, err
		}
		if previousPeriod != "" {
			previous, err := c.fetchStatements(ctx, stockCode, previousPeriod, reportType)
			if err != nil {
				return nil, err
			}
			if previous != nil {
				data.PreviousPeriod = previousPeriod
				data.Previous = previous
			}
		}
	}

	c.logger.Info().
		Str("stock_code", stockCode).
		Str("period", period).
		Bool("has_previous", data.Previous != nil).
		Msg("Fetched financial data")
	return data, nil
}

// fetchStatements loads the three statement maps for one period. Returns
// nil when none of the statements exist.
func (c *Client) fetchStatements(ctx context.Context, stockCode, period, reportType string) (*models.StatementSet, error) {
	income, err := c.queryStatement(ctx, incomeQuery, stockCode, period, reportType)
	if err != nil {
		return nil, fmt.Errorf("income statement: %w", err)
	}
	balance, err := c.queryStatement(ctx, balanceQuery, stockCode, period, reportType)
	if err != nil {
		return nil, fmt.Errorf("balance sheet: %w", err)
	}
	cashFlow, err := c.queryStatement(ctx, cashFlowQuery, stockCode, period, reportType)
	if err != nil {
		return nil, fmt.Errorf("cash flow statement: %w", err)
	}

	if income == nil && balance == nil && cashFlow == nil {
		return nil, nil
	}
	return &models.StatementSet{Income: income, Balance: balance, CashFlow: cashFlow}, nil
}

// queryStatement runs a single-row statement query and maps the returned
// columns into a field map, skipping NULL and non-numeric values.
func (c *Client) queryStatement(ctx context.Context, query string, args ...any) (map[string]float64, error) {
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	values, err := rows.Values()
	if err != nil {
		return nil, err
	}
	fields := rows.FieldDescriptions()

	statement := make(map[string]float64, len(fields))
	for i, field := range fields {
		if i >= len(values) {
			break
		}
		v, ok := toFloat64(values[i])
		if !ok {
			continue
		}
		statement[string(field.Name)] = v
	}
	return statement, rows.Err()
}

func (c *Client) previousPeriod(ctx context.Context, stockCode, period string) (string, error) {
	var previous string
	err := c.pool.QueryRow(ctx, previousPeriodQuery, stockCode, period).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("previous period lookup: %w", err)
	}
	return previous, nil
}

// Close releases the connection pool.
func (c *Client) Close() {
	c.pool.Close()
	c.logger.Info().Msg("Financial data store connection closed")
}

// toFloat64 coerces the driver value types a statement column may carry.
// Numeric columns arrive as pgtype.Numeric, floats, ints, or occasionally
// strings depending on the column definition.
func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case int:
		return float64(val), true
	case pgtype.Numeric:
		if !val.Valid {
			return 0, false
		}
		f8, err := val.Float64Value()
		if err != nil || !f8.Valid {
			return 0, false
		}
		return f8.Float64, true
	case string:
		if val == "" || val == "N/A" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

var _ interfaces.FinancialDataClient = (*Client)(nil)
