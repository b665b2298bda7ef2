package market

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/optifolio/internal/database"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "market.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	return NewRepository(db.Conn(), zerolog.Nop())
}

func day(d int) time.Time {
	return time.Date(2023, 1, d, 0, 0, 0, 0, time.UTC)
}

func pricePoints(closes map[int]float64) []PricePoint {
	out := make([]PricePoint, 0, len(closes))
	for d, c := range closes {
		out = append(out, PricePoint{Date: day(d), Close: c})
	}
	return out
}

func TestRepository_UpsertPrices_ReplacesOnConflict(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertPrices(ctx, "AAPL", pricePoints(map[int]float64{2: 100, 3: 101})))
	require.NoError(t, repo.UpsertPrices(ctx, "AAPL", pricePoints(map[int]float64{3: 99, 4: 102})))

	points, err := repo.GetClosePrices(ctx, "AAPL", day(1), day(10))
	require.NoError(t, err)

	require.Len(t, points, 3)
	assert.Equal(t, day(2), points[0].Date)
	assert.Equal(t, 100.0, points[0].Close)
	assert.Equal(t, 99.0, points[1].Close)
	assert.Equal(t, 102.0, points[2].Close)
}

func TestRepository_GetClosePrices_WindowIsHalfOpen(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertPrices(ctx, "AAPL", pricePoints(map[int]float64{2: 100, 3: 101, 4: 102})))

	points, err := repo.GetClosePrices(ctx, "AAPL", day(2), day(4))
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.Equal(t, day(3), points[1].Date)
}

func TestRepository_GetTotalReturns_ComputesLinearReturns(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertPrices(ctx, "AAPL", pricePoints(map[int]float64{2: 100, 3: 110, 4: 99})))
	require.NoError(t, repo.UpsertPrices(ctx, "MSFT", pricePoints(map[int]float64{2: 200, 3: 200, 4: 210})))

	returns, err := repo.GetTotalReturns(ctx, []string{"AAPL", "MSFT"}, day(1), day(10))
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT"}, returns.Tickers)
	require.Equal(t, 2, returns.NumPeriods())
	assert.Equal(t, day(3), returns.Dates[0])
	assert.InDelta(t, 0.10, returns.Data[0][0], 1e-12)
	assert.InDelta(t, 0.00, returns.Data[0][1], 1e-12)
	assert.InDelta(t, -0.10, returns.Data[1][0], 1e-12)
	assert.InDelta(t, 0.05, returns.Data[1][1], 1e-12)
	assert.False(t, returns.HasNaN())
}

func TestRepository_GetTotalReturns_DropsIncompleteTickers(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertPrices(ctx, "AAPL", pricePoints(map[int]float64{
		2: 100, 3: 101, 4: 102, 5: 103, 6: 104,
	})))
	// One close out of five is far below any sensible threshold.
	require.NoError(t, repo.UpsertPrices(ctx, "SPARSE", pricePoints(map[int]float64{4: 50})))

	returns, err := repo.GetTotalReturns(ctx, []string{"AAPL", "SPARSE"}, day(1), day(10))
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL"}, returns.Tickers)
	assert.False(t, returns.HasNaN())
}

func TestRepository_GetTotalReturns_NotEnoughHistory(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertPrices(ctx, "AAPL", pricePoints(map[int]float64{2: 100})))

	_, err := repo.GetTotalReturns(ctx, []string{"AAPL"}, day(1), day(10))
	assert.Error(t, err)
}

func TestRepository_GetMultiFinancialsByItem(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	q1 := time.Date(2022, 3, 31, 0, 0, 0, 0, time.UTC)
	q2 := time.Date(2022, 6, 30, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertFinancials(ctx, "AAPL", ItemNetIncome, []FinancialPoint{
		{Period: q1, Value: 1e9},
		{Period: q2, Value: 1.1e9},
	}))
	require.NoError(t, repo.UpsertFinancials(ctx, "MSFT", ItemNetIncome, []FinancialPoint{
		{Period: q2, Value: 2e9},
	}))
	// Values for another line item must not leak in.
	require.NoError(t, repo.UpsertFinancials(ctx, "AAPL", ItemTotalRevenue, []FinancialPoint{
		{Period: q1, Value: 5e9},
	}))

	m, err := repo.GetMultiFinancialsByItem(ctx, []string{"AAPL", "MSFT"}, ItemNetIncome)
	require.NoError(t, err)

	require.Equal(t, []time.Time{q1, q2}, m.Periods)
	assert.Equal(t, 1e9, m.Data[0][0])
	assert.True(t, math.IsNaN(m.Data[0][1]))
	assert.Equal(t, 1.1e9, m.Data[1][0])
	assert.Equal(t, 2e9, m.Data[1][1])
}
