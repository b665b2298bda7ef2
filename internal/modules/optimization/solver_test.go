package optimization

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/optifolio/internal/cvx"
	"github.com/aristath/optifolio/internal/modules/market"
)

// syntheticReturns builds a seeded i.i.d. returns matrix.
func syntheticReturns(t *testing.T, tickers []string, periods int, seed int64) *market.ReturnsMatrix {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))

	dates := make([]time.Time, periods)
	data := make([][]float64, periods)
	day := time.Date(2023, time.January, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < periods; i++ {
		dates[i] = day
		day = day.AddDate(0, 0, 1)
		row := make([]float64, len(tickers))
		for j := range row {
			// Small daily returns with per-asset dispersion.
			row[j] = rng.NormFloat64()*0.01*(1+float64(j)*0.5) + 0.0002
		}
		data[i] = row
	}
	m, err := market.NewReturnsMatrix(dates, tickers, data)
	require.NoError(t, err)
	return m
}

func longOnlyConstraints() []Constraint {
	return []Constraint{NewSumToOneConstraint(), NewNoShortSellConstraint()}
}

func TestNewSolver_InputValidation(t *testing.T) {
	valid := syntheticReturns(t, []string{"AAPL", "MSFT"}, 30, 1)

	nanData := [][]float64{{0.01, math.NaN()}, {0.0, 0.01}}
	nanReturns, err := market.NewReturnsMatrix(
		[]time.Time{valid.Dates[0], valid.Dates[1]},
		[]string{"AAPL", "MSFT"},
		nanData,
	)
	require.NoError(t, err)

	tests := []struct {
		name       string
		returns    *market.ReturnsMatrix
		objectives []Objective
		financials *market.FinancialsMatrix
	}{
		{
			name:       "nil returns",
			returns:    nil,
			objectives: []Objective{NewCovarianceObjective(1)},
		},
		{
			name:       "NaN cell in returns",
			returns:    nanReturns,
			objectives: []Objective{NewCovarianceObjective(1)},
		},
		{
			name:       "no objectives",
			returns:    valid,
			objectives: nil,
		},
		{
			name:       "financials objective without matrix",
			returns:    valid,
			objectives: []Objective{NewFinancialsObjective(1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSolver(tt.returns, tt.objectives, longOnlyConstraints(), tt.financials, nil, zerolog.Nop())
			assert.ErrorIs(t, err, ErrInput)
		})
	}
}

func TestSolver_Solve_LongOnlyInvariants(t *testing.T) {
	returns := syntheticReturns(t, []string{"AAPL", "MSFT", "GOOGL"}, 60, 7)

	for _, objective := range []Objective{
		NewCovarianceObjective(1),
		NewMADObjective(1),
		NewCVaRObjective(0.7, 1),
	} {
		t.Run(string(objective.Name()), func(t *testing.T) {
			solver, err := NewSolver(returns, []Objective{objective}, longOnlyConstraints(), nil, nil, zerolog.Nop())
			require.NoError(t, err)

			ptf, err := solver.Solve(context.Background(), SolveOptions{})
			require.NoError(t, err)

			sum := 0.0
			for _, w := range ptf.Weights() {
				assert.GreaterOrEqual(t, w, 0.0)
				sum += w
			}
			assert.LessOrEqual(t, 1-sum, DefaultWeightsTolerance)
		})
	}
}

func TestSolver_Solve_CVaRScenario(t *testing.T) {
	returns := syntheticReturns(t, []string{"AAPL", "MSFT", "GOOGL"}, 60, 42)

	solver, err := NewSolver(returns,
		[]Objective{NewCVaRObjective(0.7, 1)},
		longOnlyConstraints(), nil, nil, zerolog.Nop())
	require.NoError(t, err)

	ptf, err := solver.Solve(context.Background(), SolveOptions{})
	require.NoError(t, err)

	sum := 0.0
	for _, w := range ptf.Weights() {
		assert.GreaterOrEqual(t, w, 0.0)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-3)

	values := ptf.ObjectiveValues()
	require.Len(t, values, 1)
	assert.Equal(t, ObjectiveCVaR, values[0].Name)
}

func TestSolver_Solve_Deterministic(t *testing.T) {
	returns := syntheticReturns(t, []string{"AAPL", "MSFT", "GOOGL"}, 60, 11)

	solve := func() map[string]float64 {
		solver, err := NewSolver(returns, []Objective{NewCovarianceObjective(1)}, longOnlyConstraints(), nil, nil, zerolog.Nop())
		require.NoError(t, err)
		ptf, err := solver.Solve(context.Background(), SolveOptions{})
		require.NoError(t, err)
		return ptf.Weights()
	}

	first := solve()
	second := solve()
	for ticker, w := range first {
		assert.InDelta(t, w, second[ticker], 1e-6)
	}
}

func TestSolver_Solve_ZeroesWeightsBelowTolerance(t *testing.T) {
	returns := syntheticReturns(t, []string{"AAPL", "MSFT"}, 40, 3)

	solver, err := NewSolver(returns, []Objective{NewCovarianceObjective(1)}, longOnlyConstraints(), nil, nil, zerolog.Nop())
	require.NoError(t, err)

	// A tolerance above every solved weight zeroes the entire vector, and
	// the sum-to-one check must then fail.
	_, err = solver.Solve(context.Background(), SolveOptions{WeightsTolerance: 0.999})
	assert.ErrorIs(t, err, ErrTolerance)
}

// failingBackend always errors, to exercise the retry-then-propagate path.
type failingBackend struct {
	calls int
}

func (b *failingBackend) Solve(ctx context.Context, p *cvx.Problem, opts cvx.Options) (*cvx.Solution, error) {
	b.calls++
	return nil, assert.AnError
}

func TestSolver_Solve_RetriesOnceThenPropagates(t *testing.T) {
	returns := syntheticReturns(t, []string{"AAPL", "MSFT"}, 30, 5)
	backend := &failingBackend{}

	solver, err := NewSolver(returns, []Objective{NewCovarianceObjective(1)}, longOnlyConstraints(), nil, backend, zerolog.Nop())
	require.NoError(t, err)

	_, err = solver.Solve(context.Background(), SolveOptions{})
	assert.Error(t, err)
	assert.Equal(t, 2, backend.calls)
}

// statusBackend returns a fixed non-optimal status.
type statusBackend struct {
	status string
}

func (b *statusBackend) Solve(ctx context.Context, p *cvx.Problem, opts cvx.Options) (*cvx.Solution, error) {
	return &cvx.Solution{Status: b.status}, nil
}

func TestSolver_Solve_NonOptimalStatus(t *testing.T) {
	returns := syntheticReturns(t, []string{"AAPL", "MSFT"}, 30, 5)
	backend := &statusBackend{status: cvx.StatusInfeasible}

	solver, err := NewSolver(returns, []Objective{NewCovarianceObjective(1)}, longOnlyConstraints(), nil, backend, zerolog.Nop())
	require.NoError(t, err)

	_, err = solver.Solve(context.Background(), SolveOptions{})
	assert.ErrorIs(t, err, ErrNotOptimal)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, cvx.StatusInfeasible, statusErr.Status)
}

func TestSolver_Solve_FinancialsObjective(t *testing.T) {
	tickers := []string{"AAPL", "MSFT"}
	returns := syntheticReturns(t, tickers, 40, 9)

	periods := []time.Time{
		time.Date(2022, time.March, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2022, time.June, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2022, time.September, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2022, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
	// AAPL income grows steadily, MSFT shrinks.
	financials, err := market.NewFinancialsMatrix(periods, tickers, [][]float64{
		{100, 200},
		{110, 180},
		{125, 160},
		{140, 150},
	})
	require.NoError(t, err)

	solver, err := NewSolver(returns,
		[]Objective{NewFinancialsObjective(1)},
		longOnlyConstraints(), financials, nil, zerolog.Nop())
	require.NoError(t, err)

	ptf, err := solver.Solve(context.Background(), SolveOptions{})
	require.NoError(t, err)

	// Growth maximization should favor the growing company.
	assert.Greater(t, ptf.Weight("AAPL"), ptf.Weight("MSFT"))
}

func TestSolver_Solve_StampsCreatedAt(t *testing.T) {
	returns := syntheticReturns(t, []string{"AAPL", "MSFT"}, 30, 2)
	createdAt := time.Date(2023, time.June, 30, 0, 0, 0, 0, time.UTC)

	solver, err := NewSolver(returns, []Objective{NewCovarianceObjective(1)}, longOnlyConstraints(), nil, nil, zerolog.Nop())
	require.NoError(t, err)

	ptf, err := solver.Solve(context.Background(), SolveOptions{CreatedAt: createdAt})
	require.NoError(t, err)
	assert.Equal(t, createdAt, ptf.CreatedAt())
}

func TestSolver_PrepareFinancials_ShortHistoryPenalized(t *testing.T) {
	tickers := []string{"AAPL", "NEWCO"}
	returns := syntheticReturns(t, tickers, 40, 13)

	periods := []time.Time{
		time.Date(2022, time.March, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2022, time.June, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2022, time.September, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2022, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
	// NEWCO only reported twice.
	financials, err := market.NewFinancialsMatrix(periods, tickers, [][]float64{
		{100, math.NaN()},
		{110, math.NaN()},
		{125, 50},
		{140, 55},
	})
	require.NoError(t, err)

	solver, err := NewSolver(returns,
		[]Objective{NewFinancialsObjective(1)},
		longOnlyConstraints(), financials, nil, zerolog.Nop())
	require.NoError(t, err)

	ptf, err := solver.Solve(context.Background(), SolveOptions{})
	require.NoError(t, err)

	// The short-history company is penalized, never favored.
	assert.Greater(t, ptf.Weight("AAPL"), ptf.Weight("NEWCO"))
}
