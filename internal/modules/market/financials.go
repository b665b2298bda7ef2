package market

import (
	"fmt"
	"math"
	"time"
)

// FinancialItem identifies one line item on the financial statements.
type FinancialItem string

// Income statement, balance sheet and cash flow items, as reported
// by the statements provider.
const (
	ItemTotalRevenue    FinancialItem = "TotalRevenue"
	ItemGrossProfit     FinancialItem = "GrossProfit"
	ItemOperatingIncome FinancialItem = "OperatingIncome"
	ItemNetIncome       FinancialItem = "NetIncome"
	ItemEBIT            FinancialItem = "EBIT"
	ItemEBITDA          FinancialItem = "NormalizedEBITDA"
	ItemTotalAssets     FinancialItem = "TotalAssets"
	ItemTotalDebt       FinancialItem = "TotalDebt"
	ItemFreeCashFlow    FinancialItem = "FreeCashFlow"
	ItemOperatingCash   FinancialItem = "OperatingCashFlow"
)

// DefaultFinancialItem is used when a request does not name one.
const DefaultFinancialItem = ItemNetIncome

// FinancialsMatrix holds raw statement values for one line item across
// tickers. Rows follow Periods in chronological order; cells may be NaN
// where a company has not reported.
type FinancialsMatrix struct {
	Periods []time.Time
	Tickers []string
	Data    [][]float64
}

// NewFinancialsMatrix validates the shape and builds a financials matrix.
func NewFinancialsMatrix(periods []time.Time, tickers []string, data [][]float64) (*FinancialsMatrix, error) {
	if len(data) != len(periods) {
		return nil, fmt.Errorf("financials matrix has %d rows for %d periods", len(data), len(periods))
	}
	for i, row := range data {
		if len(row) != len(tickers) {
			return nil, fmt.Errorf("financials matrix row %d has %d columns for %d tickers", i, len(row), len(tickers))
		}
	}
	return &FinancialsMatrix{Periods: periods, Tickers: tickers, Data: data}, nil
}

// IsEmpty reports whether the matrix holds no observations.
func (f *FinancialsMatrix) IsEmpty() bool {
	return len(f.Periods) == 0 || len(f.Tickers) == 0
}

// HasNaN reports whether any cell is NaN.
func (f *FinancialsMatrix) HasNaN() bool {
	for _, row := range f.Data {
		for _, v := range row {
			if math.IsNaN(v) {
				return true
			}
		}
	}
	return false
}

// NonNullCount returns how many reported values a ticker column holds.
func (f *FinancialsMatrix) NonNullCount(col int) int {
	n := 0
	for _, row := range f.Data {
		if !math.IsNaN(row[col]) {
			n++
		}
	}
	return n
}
