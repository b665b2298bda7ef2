package cvx

// Relation is the sense of a constraint: expr <= 0 or expr == 0.
type Relation int

const (
	LE Relation = iota
	EQ
)

// MatTerm is a matrix-vector product inside a constraint: M . v,
// where M has Constraint.Rows rows and Var.N columns.
type MatTerm struct {
	Var *Variable
	M   [][]float64
}

// Constraint is a vector linear constraint:
//
//	sum_v(M_v . v) + Const  (<=|==)  0
type Constraint struct {
	Rel   Relation
	Rows  int
	Terms []MatTerm
	Const []float64
}

// NewConstraint creates an empty constraint with the given sense and row count.
func NewConstraint(rel Relation, rows int) *Constraint {
	return &Constraint{Rel: rel, Rows: rows, Const: make([]float64, rows)}
}

// AddMatrix adds the term m . v. m must be Rows x v.N.
func (c *Constraint) AddMatrix(v *Variable, m [][]float64) *Constraint {
	c.Terms = append(c.Terms, MatTerm{Var: v, M: copyMatrix(m)})
	return c
}

// AddDot adds coeffs . v to a single-row constraint.
func (c *Constraint) AddDot(v *Variable, coeffs []float64) *Constraint {
	row := make([]float64, len(coeffs))
	copy(row, coeffs)
	c.Terms = append(c.Terms, MatTerm{Var: v, M: [][]float64{row}})
	return c
}

// AddIdentity adds k * I . v. The variable length must equal Rows.
func (c *Constraint) AddIdentity(v *Variable, k float64) *Constraint {
	m := make([][]float64, c.Rows)
	for i := range m {
		m[i] = make([]float64, v.N)
		m[i][i] = k
	}
	c.Terms = append(c.Terms, MatTerm{Var: v, M: m})
	return c
}

// AddBroadcast adds k * z to every row, where z is a scalar (length-1) variable.
func (c *Constraint) AddBroadcast(v *Variable, k float64) *Constraint {
	m := make([][]float64, c.Rows)
	for i := range m {
		m[i] = []float64{k}
	}
	c.Terms = append(c.Terms, MatTerm{Var: v, M: m})
	return c
}

// AddConst adds b to the constant vector.
func (c *Constraint) AddConst(b []float64) *Constraint {
	for i, v := range b {
		c.Const[i] += v
	}
	return c
}

// Residual evaluates sum(M.v) + Const per row for a variable assignment.
func (c *Constraint) Residual(values map[string][]float64) []float64 {
	out := make([]float64, c.Rows)
	copy(out, c.Const)
	for _, t := range c.Terms {
		x := values[t.Var.ID]
		for i := range t.M {
			for j, coef := range t.M[i] {
				out[i] += coef * x[j]
			}
		}
	}
	return out
}

// Convenience constructors used by the formulation layer.

// SumTo builds sum(v) == total.
func SumTo(v *Variable, total float64) *Constraint {
	ones := make([]float64, v.N)
	for i := range ones {
		ones[i] = 1
	}
	c := NewConstraint(EQ, 1).AddDot(v, ones)
	c.Const[0] = -total
	return c
}

// GreaterEqual builds v >= lo elementwise, as lo - v <= 0.
func GreaterEqual(v *Variable, lo float64) *Constraint {
	c := NewConstraint(LE, v.N).AddIdentity(v, -1)
	for i := range c.Const {
		c.Const[i] = lo
	}
	return c
}

// LessEqual builds v <= hi elementwise, as v - hi <= 0.
func LessEqual(v *Variable, hi float64) *Constraint {
	c := NewConstraint(LE, v.N).AddIdentity(v, 1)
	for i := range c.Const {
		c.Const[i] = -hi
	}
	return c
}

// DotEq builds coeffs . v == rhs.
func DotEq(v *Variable, coeffs []float64, rhs float64) *Constraint {
	c := NewConstraint(EQ, 1).AddDot(v, coeffs)
	c.Const[0] = -rhs
	return c
}

// ElementwiseLE builds a <= b elementwise, as a - b <= 0.
// Both variables must have the same length.
func ElementwiseLE(a, b *Variable) *Constraint {
	return NewConstraint(LE, a.N).AddIdentity(a, 1).AddIdentity(b, -1)
}
