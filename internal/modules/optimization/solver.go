package optimization

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/optifolio/internal/cvx"
	"github.com/aristath/optifolio/internal/modules/market"
)

const (
	// DefaultWeightsTolerance is the threshold below which a solved weight
	// is treated as zero, and within which the sum-to-one and
	// non-negativity invariants must hold.
	DefaultWeightsTolerance = 1e-6

	// minFinancialObservations is how many reported statement periods a
	// ticker needs before its growth is trusted. Shorter histories are
	// penalized with financialsPenalty instead of being dropped, pushing
	// the optimizer away from those assets.
	minFinancialObservations = 4
	financialsPenalty        = -1e12
)

// SolveOptions tune one solve call. The zero value asks for defaults.
type SolveOptions struct {
	// WeightsTolerance zeroes out solved weights below it. Zero means
	// DefaultWeightsTolerance; negative disables zeroing.
	WeightsTolerance float64

	// CreatedAt stamps the resulting portfolio; zero means now. Backtests
	// pass the rebalance date here.
	CreatedAt time.Time

	// RescaleWeights divides the solved weights by their sum before
	// validation when a sum-to-one constraint is active, absorbing solver
	// numerical drift. Nil means true.
	RescaleWeights *bool

	// Backend options are forwarded to the solving backend. On a backend
	// error the solve is retried once with default backend options.
	Backend cvx.Options
}

func (o SolveOptions) tolerance() float64 {
	if o.WeightsTolerance == 0 {
		return DefaultWeightsTolerance
	}
	return o.WeightsTolerance
}

func (o SolveOptions) rescale() bool {
	return o.RescaleWeights == nil || *o.RescaleWeights
}

// Solver composes the selected objectives and constraints into one convex
// program, delegates solving to the backend, validates the result and
// emits a Portfolio. A Solver is built fresh per solve window; it never
// mutates its inputs.
type Solver struct {
	returns     *market.ReturnsMatrix
	growth      *market.ReturnsMatrix
	objectives  []Objective
	constraints []Constraint
	backend     cvx.Backend
	log         zerolog.Logger
}

// NewSolver validates the inputs and creates a solver. financials may be
// nil unless a Financials objective is selected. backend may be nil to use
// the in-process reference backend.
func NewSolver(
	returns *market.ReturnsMatrix,
	objectives []Objective,
	constraints []Constraint,
	financials *market.FinancialsMatrix,
	backend cvx.Backend,
	log zerolog.Logger,
) (*Solver, error) {
	if returns == nil || returns.NumAssets() == 0 {
		return nil, inputErrorf("returns matrix is empty")
	}
	if returns.HasNaN() {
		return nil, inputErrorf("passed returns contains NaN")
	}
	if len(objectives) == 0 {
		return nil, inputErrorf("at least one objective is needed")
	}

	s := &Solver{
		returns:     returns,
		objectives:  objectives,
		constraints: constraints,
		backend:     backend,
		log:         log.With().Str("component", "solver").Logger(),
	}
	if s.backend == nil {
		s.backend = cvx.NewReferenceBackend(s.log)
	}

	if hasObjective(objectives, ObjectiveFinancials) {
		if financials == nil {
			return nil, inputErrorf("a Financials objective requires the financials matrix")
		}
		if financials.IsEmpty() {
			return nil, inputErrorf("passed financials matrix is empty")
		}
		growth, err := s.prepareFinancials(financials)
		if err != nil {
			return nil, err
		}
		s.growth = growth
	}

	return s, nil
}

// prepareFinancials turns raw statement values into a growth matrix.
// Columns with too few reported periods are filled with a large negative
// penalty before the percent change, so the optimizer avoids those assets.
func (s *Solver) prepareFinancials(financials *market.FinancialsMatrix) (*market.ReturnsMatrix, error) {
	data := financials.Data
	periods := financials.Periods

	if financials.HasNaN() {
		trimmed := make([][]float64, minFinancialObservations)
		for i := range trimmed {
			trimmed[i] = make([]float64, len(financials.Tickers))
		}
		for j := range financials.Tickers {
			if reported := financials.NonNullCount(j); reported < minFinancialObservations {
				s.log.Warn().
					Str("symbol", financials.Tickers[j]).
					Int("observations", reported).
					Int("required", minFinancialObservations).
					Msg("Short financials history, penalizing")
				for i := range trimmed {
					trimmed[i][j] = financialsPenalty
				}
				continue
			}
			i := 0
			for _, row := range data {
				if math.IsNaN(row[j]) {
					continue
				}
				trimmed[i][j] = row[j]
				if i++; i == minFinancialObservations {
					break
				}
			}
		}
		data = trimmed
		periods = periods[:min(len(periods), minFinancialObservations)]
		for len(periods) < minFinancialObservations {
			periods = append(periods, periods[len(periods)-1].AddDate(0, 3, 0))
		}
	}

	if len(data) < 2 {
		return nil, inputErrorf("financials matrix needs at least two periods")
	}

	growth := make([][]float64, len(data)-1)
	for i := 1; i < len(data); i++ {
		row := make([]float64, len(financials.Tickers))
		for j := range row {
			prev := data[i-1][j]
			if prev != 0 {
				row[j] = (data[i][j] - prev) / prev
			}
			if math.IsNaN(row[j]) || math.IsInf(row[j], 0) {
				row[j] = 0
			}
		}
		growth[i-1] = row
	}

	return market.NewReturnsMatrix(periods[1:], financials.Tickers, growth)
}

// Solve builds and solves the composed program, then validates and
// post-processes the result into a Portfolio.
func (s *Solver) Solve(ctx context.Context, opts SolveOptions) (*Portfolio, error) {
	tickers := s.returns.Tickers
	w := cvx.NewVariable("weights", len(tickers))

	problem := cvx.NewProblem()
	for _, obj := range s.objectives {
		input := s.returns
		if obj.Name() == ObjectiveFinancials {
			input = s.growth
		}
		term, aux, err := obj.Terms(input, w)
		if err != nil {
			return nil, fmt.Errorf("objective %s: %w", obj.Name(), err)
		}
		problem.AddTerm(term)
		problem.AddConstraints(aux)
	}
	for _, con := range s.constraints {
		list, err := con.Apply(w)
		if err != nil {
			return nil, fmt.Errorf("constraint %s: %w", con.Name(), err)
		}
		problem.AddConstraints(list)
	}

	solution, err := s.backend.Solve(ctx, problem, opts.Backend)
	if err != nil {
		// Retry once with the backend's default configuration before
		// propagating, matching the solver service contract.
		s.log.Warn().Err(err).Msg("Solve failed, retrying with default backend options")
		solution, err = s.backend.Solve(ctx, problem, cvx.Options{})
		if err != nil {
			return nil, fmt.Errorf("solve failed after default-configuration retry: %w", err)
		}
	}

	if solution.Status != cvx.StatusOptimal {
		return nil, &StatusError{Status: solution.Status}
	}
	solved, ok := solution.Values[w.ID]
	if !ok || len(solved) != len(tickers) {
		return nil, fmt.Errorf("backend returned no weight values: %w", ErrNotOptimal)
	}

	weights := make(map[string]float64, len(tickers))
	sum := 0.0
	for i, ticker := range tickers {
		weights[ticker] = solved[i]
		sum += solved[i]
	}

	tolerance := opts.tolerance()
	sumToOne := hasConstraint(s.constraints, ConstraintSumToOne)

	if sumToOne && opts.rescale() && sum != 0 {
		for ticker := range weights {
			weights[ticker] /= sum
		}
	}
	if tolerance > 0 {
		for ticker, v := range weights {
			if math.Abs(v) < tolerance {
				weights[ticker] = 0
			}
		}
	}

	total := 0.0
	for _, v := range weights {
		total += v
	}
	if sumToOne {
		if 1-total > tolerance {
			return nil, fmt.Errorf("weights sum to %.9f: %w", total, ErrTolerance)
		}
	} else if hasConstraint(s.constraints, ConstraintNoShortSell) {
		for ticker, v := range weights {
			if v < 0 {
				return nil, fmt.Errorf("weight for %s is negative (%.9f): %w", ticker, v, ErrTolerance)
			}
		}
	}

	objectiveValues := make([]ObjectiveValue, len(s.objectives))
	for i, obj := range s.objectives {
		objectiveValues[i] = ObjectiveValue{
			Name:   obj.Name(),
			Value:  problem.Terms()[i].Expr.Eval(solution.Values),
			Weight: obj.Weight(),
		}
	}

	createdAt := opts.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	s.log.Debug().
		Int("num_assets", len(tickers)).
		Float64("objective", solution.Objective).
		Time("created_at", createdAt).
		Msg("Solve completed")

	return NewPortfolio(weights, objectiveValues, createdAt), nil
}

func hasObjective(objectives []Objective, name ObjectiveName) bool {
	for _, o := range objectives {
		if o.Name() == name {
			return true
		}
	}
	return false
}
