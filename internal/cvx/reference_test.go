package cvx

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestBackend builds a reference backend with a silent logger.
func newTestBackend() *ReferenceBackend {
	return NewReferenceBackend(zerolog.Nop())
}

func TestReferenceBackend_Solve_MinVarianceTwoAssets(t *testing.T) {
	// min w' Q w with Q = diag(1, 4), sum(w) == 1, w >= 0.
	// Closed form: w = (4/5, 1/5).
	w := NewNonNegVariable("w", 2)

	p := NewProblem()
	p.AddTerm(Term{Name: "variance", Expr: QuadForm(w, [][]float64{{1, 0}, {0, 4}})})
	p.AddConstraint(SumTo(w, 1))

	sol, err := newTestBackend().Solve(context.Background(), p, Options{})
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)

	got := sol.Values["w"]
	require.Len(t, got, 2)
	assert.InDelta(t, 0.8, got[0], 1e-2)
	assert.InDelta(t, 0.2, got[1], 1e-2)
	assert.InDelta(t, 0.8, sol.Objective, 5e-2)
}

func TestReferenceBackend_Solve_RespectsBoxBounds(t *testing.T) {
	// Minimizing sum(w) with w <= 0.6 elementwise and sum(w) == 1 forces
	// both weights strictly inside [0.4, 0.6].
	w := NewNonNegVariable("w", 2)

	p := NewProblem()
	p.AddTerm(Term{Name: "risk", Expr: QuadForm(w, [][]float64{{1, 0}, {0, 1}})})
	p.AddConstraint(SumTo(w, 1))
	p.AddConstraint(LessEqual(w, 0.6))

	sol, err := newTestBackend().Solve(context.Background(), p, Options{})
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)

	for _, v := range sol.Values["w"] {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 0.6+1e-9)
	}
}

func TestReferenceBackend_Solve_LowerBoundFoldedExactly(t *testing.T) {
	// GreaterEqual maps to the box, so the floor holds exactly even for an
	// objective that pushes against it.
	w := NewNonNegVariable("w", 3)

	p := NewProblem()
	p.AddTerm(Term{Name: "concentrate", Expr: Dot(w, []float64{0, 1, 1})})
	p.AddConstraint(SumTo(w, 1))
	p.AddConstraint(GreaterEqual(w, 0.1))

	sol, err := newTestBackend().Solve(context.Background(), p, Options{})
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)

	for _, v := range sol.Values["w"] {
		assert.GreaterOrEqual(t, v, 0.1-1e-12)
	}
}

func TestReferenceBackend_Solve_BooleanEnumeration(t *testing.T) {
	// Pick at most one of two assets; asset 0 has the lower cost, so the
	// indicator should select it alone.
	w := NewNonNegVariable("w", 2)
	b := NewBooleanVariable("b", 2)

	p := NewProblem()
	p.AddTerm(Term{Name: "cost", Expr: Dot(w, []float64{1, 2}).Add(QuadForm(w, [][]float64{{1, 0}, {0, 1}}))})
	p.AddConstraint(SumTo(w, 1))
	p.AddConstraint(ElementwiseLE(w, b))

	// sum(b) <= 1
	card := NewConstraint(LE, 1).AddDot(b, []float64{1, 1})
	card.Const[0] = -1
	p.AddConstraint(card)

	sol, err := newTestBackend().Solve(context.Background(), p, Options{})
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)

	assert.InDelta(t, 1.0, sol.Values["b"][0], 1e-9)
	assert.InDelta(t, 0.0, sol.Values["b"][1], 1e-9)
	assert.InDelta(t, 1.0, sol.Values["w"][0], 1e-3)
}

func TestReferenceBackend_Solve_TooManyBooleanDims(t *testing.T) {
	b := NewBooleanVariable("b", maxBooleanDims+1)

	p := NewProblem()
	p.AddTerm(Term{Name: "count", Expr: Sum(b)})

	_, err := newTestBackend().Solve(context.Background(), p, Options{})
	assert.Error(t, err)
}

func TestReferenceBackend_Solve_InfeasibleProblem(t *testing.T) {
	// sum(w) == 1 with w <= 0.2 on 2 nonnegative dims cannot be met.
	w := NewNonNegVariable("w", 2)

	p := NewProblem()
	p.AddTerm(Term{Name: "risk", Expr: QuadForm(w, [][]float64{{1, 0}, {0, 1}})})
	p.AddConstraint(SumTo(w, 1))
	p.AddConstraint(LessEqual(w, 0.2))

	sol, err := newTestBackend().Solve(context.Background(), p, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)
}

func TestReferenceBackend_Solve_Deterministic(t *testing.T) {
	build := func() *Problem {
		w := NewNonNegVariable("w", 3)
		p := NewProblem()
		p.AddTerm(Term{Name: "variance", Expr: QuadForm(w, [][]float64{
			{2, 0.3, 0.1},
			{0.3, 1, 0.2},
			{0.1, 0.2, 3},
		})})
		p.AddConstraint(SumTo(w, 1))
		return p
	}

	first, err := newTestBackend().Solve(context.Background(), build(), Options{})
	require.NoError(t, err)
	second, err := newTestBackend().Solve(context.Background(), build(), Options{})
	require.NoError(t, err)

	for i := range first.Values["w"] {
		assert.InDelta(t, first.Values["w"][i], second.Values["w"][i], 1e-12)
	}
}
