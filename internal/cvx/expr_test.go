package cvx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpr_Eval_Linear(t *testing.T) {
	v := NewVariable("w", 3)
	expr := Dot(v, []float64{1, 2, 3})

	got := expr.Eval(map[string][]float64{"w": {1, 1, 2}})
	assert.InDelta(t, 9.0, got, 1e-12)
}

func TestExpr_Eval_Sum(t *testing.T) {
	v := NewVariable("w", 4)
	expr := Sum(v)

	got := expr.Eval(map[string][]float64{"w": {0.1, 0.2, 0.3, 0.4}})
	assert.InDelta(t, 1.0, got, 1e-12)
}

func TestExpr_Eval_QuadForm(t *testing.T) {
	v := NewVariable("w", 2)
	q := [][]float64{
		{2, 0},
		{0, 8},
	}
	expr := QuadForm(v, q)

	// 2*0.5^2 + 8*0.5^2 = 2.5
	got := expr.Eval(map[string][]float64{"w": {0.5, 0.5}})
	assert.InDelta(t, 2.5, got, 1e-12)
}

func TestExpr_Scale_DoesNotMutateOriginal(t *testing.T) {
	v := NewVariable("w", 2)
	expr := Dot(v, []float64{1, 1})
	scaled := expr.Scale(3)

	values := map[string][]float64{"w": {1, 2}}
	assert.InDelta(t, 3.0, expr.Eval(values), 1e-12)
	assert.InDelta(t, 9.0, scaled.Eval(values), 1e-12)
}

func TestExpr_Add_CombinesTermsAndConstants(t *testing.T) {
	v := NewVariable("w", 2)
	a := Dot(v, []float64{1, 0})
	b := Dot(v, []float64{0, 1})
	b.Const = 5

	sum := a.Add(b)
	got := sum.Eval(map[string][]float64{"w": {2, 3}})
	assert.InDelta(t, 10.0, got, 1e-12)
}

func TestExpr_Variables_CoversQuadAndLinear(t *testing.T) {
	w := NewVariable("w", 2)
	u := NewNonNegVariable("u", 3)

	expr := QuadForm(w, [][]float64{{1, 0}, {0, 1}}).Add(Sum(u))
	vars := expr.Variables()

	assert.Len(t, vars, 2)
	ids := []string{vars[0].ID, vars[1].ID}
	assert.Contains(t, ids, "w")
	assert.Contains(t, ids, "u")
}

func TestConstraint_Residual(t *testing.T) {
	v := NewVariable("w", 3)

	tests := []struct {
		name       string
		constraint *Constraint
		values     []float64
		want       []float64
	}{
		{
			name:       "sum to one satisfied",
			constraint: SumTo(v, 1),
			values:     []float64{0.2, 0.3, 0.5},
			want:       []float64{0},
		},
		{
			name:       "sum to one violated",
			constraint: SumTo(v, 1),
			values:     []float64{0.5, 0.5, 0.5},
			want:       []float64{0.5},
		},
		{
			name:       "greater equal zero",
			constraint: GreaterEqual(v, 0),
			values:     []float64{0.1, -0.2, 0.3},
			want:       []float64{-0.1, 0.2, -0.3},
		},
		{
			name:       "less equal bound",
			constraint: LessEqual(v, 0.5),
			values:     []float64{0.6, 0.5, 0.1},
			want:       []float64{0.1, 0, -0.4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.constraint.Residual(map[string][]float64{"w": tt.values})
			assert.Len(t, got, len(tt.want))
			for i, want := range tt.want {
				assert.InDelta(t, want, got[i], 1e-12)
			}
		})
	}
}

func TestConstraint_ElementwiseLE(t *testing.T) {
	w := NewVariable("w", 2)
	b := NewBooleanVariable("b", 2)

	con := ElementwiseLE(w, b)
	got := con.Residual(map[string][]float64{
		"w": {0.4, 0.7},
		"b": {1, 0},
	})

	assert.InDelta(t, -0.6, got[0], 1e-12)
	assert.InDelta(t, 0.7, got[1], 1e-12)
}

func TestProblem_Variables_FirstSeenOrder(t *testing.T) {
	w := NewVariable("w", 2)
	u := NewNonNegVariable("u", 2)
	b := NewBooleanVariable("b", 2)

	p := NewProblem()
	p.AddTerm(Term{Name: "risk", Expr: QuadForm(w, [][]float64{{1, 0}, {0, 1}})})
	p.AddTerm(Term{Name: "aux", Expr: Sum(u)})
	p.AddConstraint(ElementwiseLE(w, b))

	vars := p.Variables()
	assert.Equal(t, []string{"w", "u", "b"}, []string{vars[0].ID, vars[1].ID, vars[2].ID})
	assert.True(t, p.IsMixedInteger())
}

func TestProblem_ObjectiveValue_SumsTerms(t *testing.T) {
	w := NewVariable("w", 2)

	p := NewProblem()
	p.AddTerm(Term{Name: "a", Expr: Dot(w, []float64{1, 0})})
	p.AddTerm(Term{Name: "b", Expr: Dot(w, []float64{0, 2})})

	got := p.ObjectiveValue(map[string][]float64{"w": {3, 4}})
	assert.InDelta(t, 11.0, got, 1e-12)
}
