package cvx

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

const (
	// maxBooleanDims caps the indicator dimensions the local backend will
	// enumerate. Larger cardinality problems need the solver service.
	maxBooleanDims = 16

	defaultInnerIterations = 400
	feasibilityTolerance   = 1e-5
)

// ReferenceBackend is a deterministic in-process solver used when no solver
// service is configured. It minimizes the objective with a quadratic-penalty
// projected-gradient scheme and handles boolean variables by enumeration.
// It is a local fallback, not a replacement for a real conic solver.
type ReferenceBackend struct {
	log zerolog.Logger
}

// NewReferenceBackend creates a new local backend.
func NewReferenceBackend(log zerolog.Logger) *ReferenceBackend {
	return &ReferenceBackend{
		log: log.With().Str("component", "reference_backend").Logger(),
	}
}

// Solve implements Backend.
func (b *ReferenceBackend) Solve(ctx context.Context, p *Problem, opts Options) (*Solution, error) {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = defaultInnerIterations
	}

	var booleans []*Variable
	boolDims := 0
	for _, v := range p.Variables() {
		if v.Boolean {
			booleans = append(booleans, v)
			boolDims += v.N
		}
	}
	if boolDims > maxBooleanDims {
		return nil, fmt.Errorf("reference backend cannot enumerate %d boolean dimensions (max %d)", boolDims, maxBooleanDims)
	}

	assignments := enumerateAssignments(booleans)

	var best *Solution
	for _, fixed := range assignments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		values, err := b.minimizeContinuous(ctx, p, fixed, opts)
		if err != nil {
			return nil, err
		}
		if maxViolation(p, values) > feasibilityTolerance {
			continue
		}
		obj := p.ObjectiveValue(values)
		if best == nil || obj < best.Objective {
			best = &Solution{Status: StatusOptimal, Objective: obj, Values: values}
		}
	}

	if best == nil {
		return &Solution{Status: StatusInfeasible}, nil
	}

	b.log.Debug().
		Float64("objective", best.Objective).
		Int("boolean_dims", boolDims).
		Msg("Local solve completed")

	return best, nil
}

// enumerateAssignments yields every {0,1} assignment of the boolean variables.
// With no boolean variables it yields one empty assignment.
func enumerateAssignments(booleans []*Variable) []map[string][]float64 {
	total := 0
	for _, v := range booleans {
		total += v.N
	}
	count := 1 << total
	out := make([]map[string][]float64, 0, count)
	for mask := 0; mask < count; mask++ {
		fixed := make(map[string][]float64, len(booleans))
		bit := 0
		for _, v := range booleans {
			vals := make([]float64, v.N)
			for i := 0; i < v.N; i++ {
				if mask&(1<<bit) != 0 {
					vals[i] = 1
				}
				bit++
			}
			fixed[v.ID] = vals
		}
		out = append(out, fixed)
	}
	return out
}

// flat index bookkeeping for the continuous subproblem.
type flatSpace struct {
	vars    []*Variable
	offsets map[string]int
	dim     int
	lo, hi  []float64
}

// penaltyRow is one linearized constraint row over the flat vector:
// coeffs . x + c  (<=|==)  0.
type penaltyRow struct {
	coeffs []float64
	c      float64
	eq     bool
}

func (b *ReferenceBackend) minimizeContinuous(
	ctx context.Context,
	p *Problem,
	fixed map[string][]float64,
	opts Options,
) (map[string][]float64, error) {
	space := buildSpace(p, fixed)
	rows := buildRows(p, space, fixed)

	x := make([]float64, space.dim)
	projectBox(x, space)

	grad := make([]float64, space.dim)
	trial := make([]float64, space.dim)

	rho := 1e2
	for outer := 0; outer < 8; outer++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		step := 1.0
		for iter := 0; iter < opts.MaxIterations; iter++ {
			objGrad(p, space, fixed, x, grad)
			penaltyGrad(rows, x, rho, grad)

			fx := penalizedValue(p, space, fixed, rows, x, rho)
			gradNorm := 0.0
			for _, g := range grad {
				gradNorm += g * g
			}
			if gradNorm < 1e-18 {
				break
			}

			// Backtracking line search with box projection.
			step = math.Min(step*2, 1.0)
			moved := false
			for step > 1e-16 {
				for i := range trial {
					trial[i] = x[i] - step*grad[i]
				}
				projectBox(trial, space)
				if penalizedValue(p, space, fixed, rows, trial, rho) <= fx-1e-4*step*gradNorm {
					moved = true
					break
				}
				step /= 2
			}
			if !moved {
				break
			}
			delta := 0.0
			for i := range x {
				d := trial[i] - x[i]
				delta += d * d
				x[i] = trial[i]
			}
			if delta < 1e-20 {
				break
			}
		}
		rho *= 10
	}

	return space.assemble(x, fixed), nil
}

func buildSpace(p *Problem, fixed map[string][]float64) *flatSpace {
	s := &flatSpace{offsets: make(map[string]int)}
	for _, v := range p.Variables() {
		if _, isFixed := fixed[v.ID]; isFixed {
			continue
		}
		s.offsets[v.ID] = s.dim
		s.vars = append(s.vars, v)
		s.dim += v.N
	}
	s.lo = make([]float64, s.dim)
	s.hi = make([]float64, s.dim)
	for i := range s.lo {
		s.lo[i] = math.Inf(-1)
		s.hi[i] = math.Inf(1)
	}
	for _, v := range s.vars {
		if v.NonNeg {
			off := s.offsets[v.ID]
			for i := 0; i < v.N; i++ {
				s.lo[off+i] = 0
			}
		}
	}
	// Fold simple per-element bound constraints into the box so they hold
	// exactly rather than approximately through the penalty.
	for _, c := range p.Constraints() {
		if c.Rel != LE || len(c.Terms) != 1 {
			continue
		}
		t := c.Terms[0]
		off, free := s.offsets[t.Var.ID]
		if !free || c.Rows != t.Var.N || !isDiagonal(t.M) {
			continue
		}
		for i := 0; i < c.Rows; i++ {
			d := t.M[i][i]
			if d == 0 {
				continue
			}
			bound := -c.Const[i] / d
			if d > 0 {
				s.hi[off+i] = math.Min(s.hi[off+i], bound)
			} else {
				s.lo[off+i] = math.Max(s.lo[off+i], bound)
			}
		}
	}
	return s
}

func isDiagonal(m [][]float64) bool {
	for i, row := range m {
		for j, v := range row {
			if i != j && v != 0 {
				return false
			}
		}
	}
	return true
}

// buildRows flattens every non-box constraint into penalty rows,
// folding fixed-variable contributions into the constants.
func buildRows(p *Problem, s *flatSpace, fixed map[string][]float64) []penaltyRow {
	var rows []penaltyRow
	for _, c := range p.Constraints() {
		if isBoxConstraint(c, s) {
			continue
		}
		for i := 0; i < c.Rows; i++ {
			row := penaltyRow{
				coeffs: make([]float64, s.dim),
				c:      c.Const[i],
				eq:     c.Rel == EQ,
			}
			for _, t := range c.Terms {
				if vals, isFixed := fixed[t.Var.ID]; isFixed {
					for j, coef := range t.M[i] {
						row.c += coef * vals[j]
					}
					continue
				}
				off := s.offsets[t.Var.ID]
				for j, coef := range t.M[i] {
					row.coeffs[off+j] += coef
				}
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func isBoxConstraint(c *Constraint, s *flatSpace) bool {
	if c.Rel != LE || len(c.Terms) != 1 {
		return false
	}
	t := c.Terms[0]
	if _, free := s.offsets[t.Var.ID]; !free {
		return false
	}
	return c.Rows == t.Var.N && isDiagonal(t.M)
}

func projectBox(x []float64, s *flatSpace) {
	for i := range x {
		if x[i] < s.lo[i] {
			x[i] = s.lo[i]
		}
		if x[i] > s.hi[i] {
			x[i] = s.hi[i]
		}
	}
}

func (s *flatSpace) assemble(x []float64, fixed map[string][]float64) map[string][]float64 {
	values := make(map[string][]float64, len(s.vars)+len(fixed))
	for _, v := range s.vars {
		off := s.offsets[v.ID]
		vals := make([]float64, v.N)
		copy(vals, x[off:off+v.N])
		values[v.ID] = vals
	}
	for id, vals := range fixed {
		out := make([]float64, len(vals))
		copy(out, vals)
		values[id] = out
	}
	return values
}

// objGrad writes the objective gradient over the flat vector into grad.
func objGrad(p *Problem, s *flatSpace, fixed map[string][]float64, x []float64, grad []float64) {
	for i := range grad {
		grad[i] = 0
	}
	for _, term := range p.Terms() {
		for _, qt := range term.Expr.Quads {
			off, free := s.offsets[qt.Var.ID]
			if !free {
				continue
			}
			n := qt.Var.N
			for i := 0; i < n; i++ {
				g := 0.0
				for j := 0; j < n; j++ {
					g += (qt.Q[i][j] + qt.Q[j][i]) * x[off+j]
				}
				grad[off+i] += g
			}
		}
		for _, lt := range term.Expr.Lins {
			off, free := s.offsets[lt.Var.ID]
			if !free {
				continue
			}
			for i, c := range lt.Coeffs {
				grad[off+i] += c
			}
		}
	}
}

func penaltyGrad(rows []penaltyRow, x []float64, rho float64, grad []float64) {
	for _, row := range rows {
		r := row.c
		for i, coef := range row.coeffs {
			r += coef * x[i]
		}
		if !row.eq && r <= 0 {
			continue
		}
		k := 2 * rho * r
		for i, coef := range row.coeffs {
			if coef != 0 {
				grad[i] += k * coef
			}
		}
	}
}

func penalizedValue(p *Problem, s *flatSpace, fixed map[string][]float64, rows []penaltyRow, x []float64, rho float64) float64 {
	values := s.assemble(x, fixed)
	total := p.ObjectiveValue(values)
	for _, row := range rows {
		r := row.c
		for i, coef := range row.coeffs {
			r += coef * x[i]
		}
		if row.eq || r > 0 {
			total += rho * r * r
		}
	}
	return total
}

// maxViolation reports the worst constraint violation of an assignment.
func maxViolation(p *Problem, values map[string][]float64) float64 {
	worst := 0.0
	for _, c := range p.Constraints() {
		for _, r := range c.Residual(values) {
			v := r
			if c.Rel == EQ {
				v = math.Abs(r)
			}
			if v > worst {
				worst = v
			}
		}
	}
	for _, v := range p.Variables() {
		if !v.NonNeg {
			continue
		}
		for _, x := range values[v.ID] {
			if -x > worst {
				worst = -x
			}
		}
	}
	return worst
}
