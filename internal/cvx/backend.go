package cvx

import "context"

// Solver statuses, mirroring the conventions of the solver service.
const (
	StatusOptimal    = "optimal"
	StatusInfeasible = "infeasible"
	StatusUnbounded  = "unbounded"
	StatusInaccurate = "optimal_inaccurate"
)

// Options are backend tuning knobs. The zero value asks the backend
// for its default configuration.
type Options struct {
	Solver        string
	MaxIterations int
	Tolerance     float64
}

// Solution is the outcome of one solve call. Values maps variable IDs
// to their solved vectors. Values is only populated when the backend
// reached a solution, optimal or not.
type Solution struct {
	Status    string
	Objective float64
	Values    map[string][]float64
}

// Backend solves a convex program. Implementations must be safe for
// sequential reuse across problems; no state is carried between calls.
type Backend interface {
	Solve(ctx context.Context, p *Problem, opts Options) (*Solution, error)
}
