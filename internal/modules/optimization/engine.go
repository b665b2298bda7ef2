package optimization

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/optifolio/internal/cvx"
	"github.com/aristath/optifolio/internal/modules/market"
)

// defaultLookbackDays is the returns window used when a request gives an
// end date but no start date.
const defaultLookbackDays = 365 * 2

// Engine is the portfolio-construction facade: it owns the investment
// universe, the live objective and constraint selection and the solving
// backend, and runs one Solver per request window. The backtester and the
// REST layer both drive it.
type Engine struct {
	provider    market.Provider
	universe    *market.InvestmentUniverse
	objectives  *ObjectivesMap
	constraints []Constraint
	backend     cvx.Backend
	log         zerolog.Logger
}

// NewEngine creates an engine. Nil constraints default to sum-to-one plus
// long-only; nil backend defaults to the in-process reference backend.
func NewEngine(
	provider market.Provider,
	universe *market.InvestmentUniverse,
	objectives []Objective,
	constraints []Constraint,
	backend cvx.Backend,
	log zerolog.Logger,
) *Engine {
	if constraints == nil {
		constraints = []Constraint{NewSumToOneConstraint(), NewNoShortSellConstraint()}
	}
	return &Engine{
		provider:    provider,
		universe:    universe,
		objectives:  NewObjectivesMap(objectives...),
		constraints: constraints,
		backend:     backend,
		log:         log.With().Str("component", "engine").Logger(),
	}
}

// Provider returns the market data collaborator.
func (e *Engine) Provider() market.Provider {
	return e.provider
}

// Universe returns the investment universe.
func (e *Engine) Universe() *market.InvestmentUniverse {
	return e.universe
}

// AddObjective selects an objective, or updates its weight if selected.
func (e *Engine) AddObjective(name ObjectiveName, weight float64) error {
	return e.objectives.Add(name, weight)
}

// AddConstraint appends a constraint to the base selection.
func (e *Engine) AddConstraint(c Constraint) {
	e.constraints = append(e.constraints, c)
}

// SolveRequest scopes one portfolio construction. Zero integer fields are
// treated as unset.
type SolveRequest struct {
	Start time.Time
	End   time.Time

	WeightsTolerance float64

	// Cardinality: either the exact number of assets, or a min/max range.
	// Supplying both is an input error.
	NumAssets    int
	MinNumAssets int
	MaxNumAssets int

	// Per-asset weight bounds in percent.
	MinWeightPct int
	MaxWeightPct int

	// FinancialItem selects the statement line item for a Financials
	// objective; empty means net income.
	FinancialItem market.FinancialItem
}

// Solve fetches the date-scoped market data, assembles the per-request
// constraint list and runs one solve.
//
// When the exact number of assets equals the universe size, the
// cardinality constraint degenerates: instead of the mixed-integer
// formulation the engine substitutes a 1% minimum weight for every asset,
// which forces all of them into the portfolio.
func (e *Engine) Solve(ctx context.Context, req SolveRequest) (*Portfolio, error) {
	end := req.End
	if end.IsZero() {
		end = time.Now().UTC()
	}
	start := req.Start
	if start.IsZero() {
		start = end.AddDate(0, 0, -defaultLookbackDays)
	}

	constraints, err := e.requestConstraints(req)
	if err != nil {
		return nil, err
	}

	tickers := e.universe.Tickers()
	returns, err := e.provider.GetTotalReturns(ctx, tickers, start, end)
	if err != nil {
		return nil, err
	}

	var financials *market.FinancialsMatrix
	objectives := e.objectives.Objectives()
	if hasObjective(objectives, ObjectiveFinancials) {
		item := req.FinancialItem
		if item == "" {
			item = market.DefaultFinancialItem
		}
		financials, err = e.provider.GetMultiFinancialsByItem(ctx, tickers, item)
		if err != nil {
			return nil, err
		}
	}

	solver, err := NewSolver(returns, objectives, constraints, financials, e.backend, e.log)
	if err != nil {
		return nil, err
	}

	portfolio, err := solver.Solve(ctx, SolveOptions{
		WeightsTolerance: req.WeightsTolerance,
		CreatedAt:        req.End,
	})
	if err != nil {
		return nil, err
	}
	portfolio.AttachMarketData(e.provider)

	e.log.Info().
		Time("end", end).
		Int("num_assets", len(portfolio.Tickers(true))).
		Msg("Computed optimal portfolio")

	return portfolio, nil
}

// requestConstraints builds the per-request constraint list: the base
// selection plus any cardinality or weight-bound constraints from the
// request. The base selection is never mutated.
func (e *Engine) requestConstraints(req SolveRequest) ([]Constraint, error) {
	constraints := make([]Constraint, len(e.constraints))
	copy(constraints, e.constraints)

	switch {
	case req.NumAssets > 0:
		if req.MinNumAssets > 0 || req.MaxNumAssets > 0 {
			return nil, inputErrorf("cannot combine an exact number of assets with a minimum or maximum")
		}
		if req.NumAssets == e.universe.Len() {
			// Every asset must appear: a 1% floor replaces the
			// mixed-integer cardinality constraint.
			lower := 1
			var upper *int
			if req.MaxWeightPct > 0 {
				upper = &req.MaxWeightPct
			}
			constraints = append(constraints, NewWeightsBoundsConstraint(&lower, upper))
		} else {
			n := req.NumAssets
			constraints = append(constraints, NewNumberOfAssetsConstraint(&n, &n))
		}
	case req.MinNumAssets > 0 || req.MaxNumAssets > 0:
		var lower, upper *int
		if req.MinNumAssets > 0 {
			lower = &req.MinNumAssets
		}
		if req.MaxNumAssets > 0 {
			upper = &req.MaxNumAssets
		}
		constraints = append(constraints, NewNumberOfAssetsConstraint(lower, upper))
	case req.MinWeightPct > 0 || req.MaxWeightPct > 0:
		var lower, upper *int
		if req.MinWeightPct > 0 {
			lower = &req.MinWeightPct
		}
		if req.MaxWeightPct > 0 {
			upper = &req.MaxWeightPct
		}
		constraints = append(constraints, NewWeightsBoundsConstraint(lower, upper))
	}

	return constraints, nil
}
