package formulas

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualization base for daily return series.
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// AnnualizedVolatility calculates annualized volatility from daily returns
// Formula: Std Dev of Daily Returns × sqrt(252 trading days)
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}

	stdDev := StdDev(dailyReturns)
	return stdDev * math.Sqrt(TradingDaysPerYear)
}

// CalculateReturns converts prices to percentage returns
// Returns[i] = (Price[i] - Price[i-1]) / Price[i-1]
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// ColumnMeans calculates the mean of each column of a row-major matrix
func ColumnMeans(data [][]float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	cols := len(data[0])
	means := make([]float64, cols)
	col := make([]float64, len(data))
	for j := 0; j < cols; j++ {
		for i := range data {
			col[i] = data[i][j]
		}
		means[j] = stat.Mean(col, nil)
	}
	return means
}

// CovarianceMatrix calculates the sample covariance matrix of a row-major
// observations matrix (rows = periods, columns = series)
func CovarianceMatrix(data [][]float64) [][]float64 {
	rows := len(data)
	if rows == 0 {
		return nil
	}
	cols := len(data[0])

	dense := mat.NewDense(rows, cols, nil)
	for i, row := range data {
		dense.SetRow(i, row)
	}

	var sym mat.SymDense
	stat.CovarianceMatrix(&sym, dense, nil)

	out := make([][]float64, cols)
	for i := range out {
		out[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			out[i][j] = sym.At(i, j)
		}
	}
	return out
}
