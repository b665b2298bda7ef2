package optimization

import (
	"time"
)

// dateLayout is the wire format for request dates.
const dateLayout = "2006-01-02"

// ObjectiveSpec selects one objective in a request body.
type ObjectiveSpec struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight,omitempty"`
}

// ConstraintSpec selects one constraint in a request body. Bounds only
// apply to the bounded variants.
type ConstraintSpec struct {
	Name       string `json:"name"`
	LowerBound *int   `json:"lower_bound,omitempty"`
	UpperBound *int   `json:"upper_bound,omitempty"`
}

// OptimizationRequest is the body of POST /api/optimization. Either
// tickers or universe_name must be set, not both.
type OptimizationRequest struct {
	Tickers          []string         `json:"tickers,omitempty"`
	UniverseName     string           `json:"universe_name,omitempty"`
	StartDate        string           `json:"start_date,omitempty"`
	EndDate          string           `json:"end_date,omitempty"`
	Objectives       []ObjectiveSpec  `json:"objectives"`
	Constraints      []ConstraintSpec `json:"constraints,omitempty"`
	WeightsTolerance float64          `json:"weights_tolerance,omitempty"`
	FinancialItem    string           `json:"financial_item,omitempty"`
}

// OptimizationResponse is the body of a successful optimization.
type OptimizationResponse struct {
	Weights         map[string]float64 `json:"weights"`
	ObjectiveValues []ObjectiveValue   `json:"objective_values"`
	CreatedAt       time.Time          `json:"created_at"`
}

// BacktestRequest is the body of POST /api/backtest: an optimization
// problem plus a rebalance frequency and window.
type BacktestRequest struct {
	OptimizationRequest
	RebalanceFrequency string `json:"rebalance_frequency"`
}

// PortfolioSnapshot is one rebalanced allocation in a backtest response.
type PortfolioSnapshot struct {
	Date    string             `json:"date"`
	Weights map[string]float64 `json:"weights"`
}

// WealthPoint is one observation of the compounded wealth curve.
type WealthPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// parseDate parses an optional request date; empty yields the zero time.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

// buildObjectives maps request specs to objective instances.
func buildObjectives(specs []ObjectiveSpec) ([]Objective, error) {
	objectives := make([]Objective, 0, len(specs))
	for _, spec := range specs {
		weight := spec.Weight
		if weight == 0 {
			weight = DefaultObjectiveWeight
		}
		obj, err := NewObjective(ObjectiveName(spec.Name), weight)
		if err != nil {
			return nil, err
		}
		objectives = append(objectives, obj)
	}
	return objectives, nil
}

// buildConstraints maps request specs to constraint instances. Nil specs
// yield nil, letting the engine apply its defaults.
func buildConstraints(specs []ConstraintSpec) ([]Constraint, error) {
	if specs == nil {
		return nil, nil
	}
	constraints := make([]Constraint, 0, len(specs))
	for _, spec := range specs {
		c, err := NewConstraint(ConstraintName(spec.Name), spec.LowerBound, spec.UpperBound)
		if err != nil {
			return nil, err
		}
		constraints = append(constraints, c)
	}
	return constraints, nil
}
