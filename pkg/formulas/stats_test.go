package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-12)
}

func TestStdDev(t *testing.T) {
	assert.Equal(t, 0.0, StdDev(nil))
	// Sample standard deviation of {2, 4, 4, 4, 5, 5, 7, 9}.
	assert.InDelta(t, 2.138089935299395, StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
}

func TestCalculateReturns(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   []float64
	}{
		{name: "too short", prices: []float64{100}, want: []float64{}},
		{name: "simple", prices: []float64{100, 110, 99}, want: []float64{0.1, -0.1}},
		{name: "zero price yields zero return", prices: []float64{0, 100}, want: []float64{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateReturns(tt.prices)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-12)
			}
		})
	}
}

func TestAnnualizedVolatility(t *testing.T) {
	assert.Equal(t, 0.0, AnnualizedVolatility(nil))

	returns := []float64{0.01, -0.01, 0.02, 0.0}
	want := StdDev(returns) * 15.874507866387544 // sqrt(252)
	assert.InDelta(t, want, AnnualizedVolatility(returns), 1e-12)
}

func TestColumnMeans(t *testing.T) {
	assert.Nil(t, ColumnMeans(nil))

	means := ColumnMeans([][]float64{
		{1, 10},
		{2, 20},
		{3, 30},
	})
	require.Len(t, means, 2)
	assert.InDelta(t, 2.0, means[0], 1e-12)
	assert.InDelta(t, 20.0, means[1], 1e-12)
}

func TestCovarianceMatrix(t *testing.T) {
	assert.Nil(t, CovarianceMatrix(nil))

	// Perfectly anti-correlated columns.
	cov := CovarianceMatrix([][]float64{
		{1, -1},
		{2, -2},
		{3, -3},
	})
	require.Len(t, cov, 2)
	assert.InDelta(t, 1.0, cov[0][0], 1e-12)
	assert.InDelta(t, -1.0, cov[0][1], 1e-12)
	assert.InDelta(t, cov[0][1], cov[1][0], 1e-12)
	assert.InDelta(t, 1.0, cov[1][1], 1e-12)
}
