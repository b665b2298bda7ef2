package market

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInvestmentUniverse(t *testing.T) {
	tests := []struct {
		name     string
		tickers  []string
		universe UniverseName
		wantErr  bool
		wantLen  int
	}{
		{name: "explicit tickers", tickers: []string{"AAPL", "MSFT"}, wantLen: 2},
		{name: "named universe", universe: UniverseFAANG, wantLen: 5},
		{name: "both is an error", tickers: []string{"AAPL"}, universe: UniverseFAANG, wantErr: true},
		{name: "unknown name", universe: "sp500", wantErr: true},
		{name: "neither", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := NewInvestmentUniverse(tt.tickers, tt.universe)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, u.Len())
			assert.Equal(t, tt.universe, u.Name())
		})
	}
}

func TestInvestmentUniverse_Tickers_ReturnsCopy(t *testing.T) {
	u, err := NewInvestmentUniverse([]string{"AAPL", "MSFT"}, "")
	require.NoError(t, err)

	out := u.Tickers()
	out[0] = "TSLA"

	assert.Equal(t, []string{"AAPL", "MSFT"}, u.Tickers())
}

func TestAllUniverseTickers(t *testing.T) {
	all := AllUniverseTickers()

	assert.True(t, sort.StringsAreSorted(all))

	seen := make(map[string]int)
	for _, ticker := range all {
		seen[ticker]++
	}
	for ticker, count := range seen {
		assert.Equal(t, 1, count, "duplicate ticker %s", ticker)
	}

	// Tickers shared between universes appear once.
	assert.Contains(t, all, "AAPL")
	assert.Contains(t, all, "COIN")
}
