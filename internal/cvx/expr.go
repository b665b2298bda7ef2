package cvx

// LinTerm is a linear scalar term: coeffs . v
type LinTerm struct {
	Var    *Variable
	Coeffs []float64
}

// QuadTerm is a quadratic scalar term: v' Q v
type QuadTerm struct {
	Var *Variable
	Q   [][]float64
}

// Expr is a scalar expression: sum of quadratic forms, linear terms and a constant.
// Expressions are built once per solve and never mutated; combinators return new values.
type Expr struct {
	Quads []QuadTerm
	Lins  []LinTerm
	Const float64
}

// Dot builds the linear expression coeffs . v.
func Dot(v *Variable, coeffs []float64) *Expr {
	c := make([]float64, len(coeffs))
	copy(c, coeffs)
	return &Expr{Lins: []LinTerm{{Var: v, Coeffs: c}}}
}

// Sum builds the expression sum(v).
func Sum(v *Variable) *Expr {
	ones := make([]float64, v.N)
	for i := range ones {
		ones[i] = 1
	}
	return &Expr{Lins: []LinTerm{{Var: v, Coeffs: ones}}}
}

// QuadForm builds the quadratic expression v' Q v. Q must be N x N.
func QuadForm(v *Variable, q [][]float64) *Expr {
	return &Expr{Quads: []QuadTerm{{Var: v, Q: copyMatrix(q)}}}
}

// Scale returns k * e as a new expression.
func (e *Expr) Scale(k float64) *Expr {
	out := &Expr{Const: e.Const * k}
	for _, qt := range e.Quads {
		q := copyMatrix(qt.Q)
		for i := range q {
			for j := range q[i] {
				q[i][j] *= k
			}
		}
		out.Quads = append(out.Quads, QuadTerm{Var: qt.Var, Q: q})
	}
	for _, lt := range e.Lins {
		c := make([]float64, len(lt.Coeffs))
		for i, v := range lt.Coeffs {
			c[i] = v * k
		}
		out.Lins = append(out.Lins, LinTerm{Var: lt.Var, Coeffs: c})
	}
	return out
}

// Add returns e + o as a new expression.
func (e *Expr) Add(o *Expr) *Expr {
	out := &Expr{Const: e.Const + o.Const}
	out.Quads = append(out.Quads, e.Quads...)
	out.Quads = append(out.Quads, o.Quads...)
	out.Lins = append(out.Lins, e.Lins...)
	out.Lins = append(out.Lins, o.Lins...)
	return out
}

// Eval computes the expression value for the given variable assignment.
func (e *Expr) Eval(values map[string][]float64) float64 {
	total := e.Const
	for _, qt := range e.Quads {
		x := values[qt.Var.ID]
		for i := range qt.Q {
			for j := range qt.Q[i] {
				total += x[i] * qt.Q[i][j] * x[j]
			}
		}
	}
	for _, lt := range e.Lins {
		x := values[lt.Var.ID]
		for i, c := range lt.Coeffs {
			total += c * x[i]
		}
	}
	return total
}

// Variables returns every variable referenced by the expression.
func (e *Expr) Variables() []*Variable {
	var vars []*Variable
	for _, qt := range e.Quads {
		vars = append(vars, qt.Var)
	}
	for _, lt := range e.Lins {
		vars = append(vars, lt.Var)
	}
	return vars
}

func copyMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		copy(out[i], row)
	}
	return out
}
