package market

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/optifolio/pkg/formulas"
)

// ReturnsMatrix is a time-indexed, asset-keyed table of periodic linear
// returns. Rows follow Dates, columns follow Tickers. A matrix handed to the
// solver must be NaN-free; completeness filtering happens in the provider.
type ReturnsMatrix struct {
	Dates   []time.Time
	Tickers []string
	Data    [][]float64
}

// NewReturnsMatrix validates the shape and builds a returns matrix.
func NewReturnsMatrix(dates []time.Time, tickers []string, data [][]float64) (*ReturnsMatrix, error) {
	if len(data) != len(dates) {
		return nil, fmt.Errorf("returns matrix has %d rows for %d dates", len(data), len(dates))
	}
	for i, row := range data {
		if len(row) != len(tickers) {
			return nil, fmt.Errorf("returns matrix row %d has %d columns for %d tickers", i, len(row), len(tickers))
		}
	}
	return &ReturnsMatrix{Dates: dates, Tickers: tickers, Data: data}, nil
}

// NumPeriods returns the number of observation rows.
func (m *ReturnsMatrix) NumPeriods() int {
	return len(m.Dates)
}

// NumAssets returns the number of ticker columns.
func (m *ReturnsMatrix) NumAssets() int {
	return len(m.Tickers)
}

// HasNaN reports whether any cell is NaN.
func (m *ReturnsMatrix) HasNaN() bool {
	for _, row := range m.Data {
		for _, v := range row {
			if math.IsNaN(v) {
				return true
			}
		}
	}
	return false
}

// Column returns the return series for one ticker.
func (m *ReturnsMatrix) Column(ticker string) ([]float64, bool) {
	col := -1
	for j, t := range m.Tickers {
		if t == ticker {
			col = j
			break
		}
	}
	if col < 0 {
		return nil, false
	}
	out := make([]float64, len(m.Data))
	for i, row := range m.Data {
		out[i] = row[col]
	}
	return out, true
}

// MeanReturns returns the per-asset mean of the periodic returns.
func (m *ReturnsMatrix) MeanReturns() []float64 {
	return formulas.ColumnMeans(m.Data)
}

// CovarianceMatrix returns the sample covariance matrix of the returns.
func (m *ReturnsMatrix) CovarianceMatrix() [][]float64 {
	return formulas.CovarianceMatrix(m.Data)
}
