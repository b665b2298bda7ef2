package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateRSI(t *testing.T) {
	assert.Nil(t, CalculateRSI([]float64{100, 101}, 14))

	// A series that only rises has no average loss: RSI pegs at 100.
	rising := make([]float64, 30)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	rsi := CalculateRSI(rising, 14)
	require.NotNil(t, rsi)
	assert.InDelta(t, 100.0, *rsi, 1e-9)

	falling := make([]float64, 30)
	for i := range falling {
		falling[i] = 100 - float64(i)
	}
	rsi = CalculateRSI(falling, 14)
	require.NotNil(t, rsi)
	assert.InDelta(t, 0.0, *rsi, 1e-9)
}

func TestCalculateSMA(t *testing.T) {
	assert.Nil(t, CalculateSMA([]float64{100}, 20))

	closes := []float64{1, 2, 3, 4, 5, 6}
	sma := CalculateSMA(closes, 3)
	require.NotNil(t, sma)
	assert.InDelta(t, 5.0, *sma, 1e-12)
}
