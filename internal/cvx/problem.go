package cvx

// Term is one named piece of the minimization objective.
// The solver sums every term into a single minimize expression
// and reads per-term optimal values back out after solving.
type Term struct {
	Name string
	Expr *Expr
}

// Problem is a convex (possibly mixed-integer) minimization program.
type Problem struct {
	terms       []Term
	constraints []*Constraint
	vars        map[string]*Variable
	order       []string
}

// NewProblem creates an empty problem.
func NewProblem() *Problem {
	return &Problem{vars: make(map[string]*Variable)}
}

// AddTerm appends a named objective term and registers its variables.
func (p *Problem) AddTerm(t Term) {
	p.terms = append(p.terms, t)
	for _, v := range t.Expr.Variables() {
		p.register(v)
	}
}

// AddConstraint appends a constraint and registers its variables.
func (p *Problem) AddConstraint(c *Constraint) {
	p.constraints = append(p.constraints, c)
	for _, t := range c.Terms {
		p.register(t.Var)
	}
}

// AddConstraints appends several constraints.
func (p *Problem) AddConstraints(cs []*Constraint) {
	for _, c := range cs {
		p.AddConstraint(c)
	}
}

// Terms returns the objective terms in insertion order.
func (p *Problem) Terms() []Term {
	return p.terms
}

// Constraints returns the constraints in insertion order.
func (p *Problem) Constraints() []*Constraint {
	return p.constraints
}

// Variables returns every registered variable in first-seen order.
func (p *Problem) Variables() []*Variable {
	out := make([]*Variable, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.vars[id])
	}
	return out
}

// IsMixedInteger reports whether the problem contains a boolean variable.
func (p *Problem) IsMixedInteger() bool {
	for _, v := range p.vars {
		if v.Boolean {
			return true
		}
	}
	return false
}

// ObjectiveValue evaluates the summed objective for a variable assignment.
func (p *Problem) ObjectiveValue(values map[string][]float64) float64 {
	total := 0.0
	for _, t := range p.terms {
		total += t.Expr.Eval(values)
	}
	return total
}

func (p *Problem) register(v *Variable) {
	if _, ok := p.vars[v.ID]; ok {
		return
	}
	p.vars[v.ID] = v
	p.order = append(p.order, v.ID)
}
