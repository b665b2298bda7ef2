package cvx

// Variable is a vector decision variable in a convex program.
// NonNeg restricts every element to be >= 0. Boolean marks the
// variable as {0,1}-valued, which makes the program mixed-integer.
type Variable struct {
	ID      string
	N       int
	NonNeg  bool
	Boolean bool
}

// NewVariable creates an unrestricted vector variable of length n.
func NewVariable(id string, n int) *Variable {
	return &Variable{ID: id, N: n}
}

// NewNonNegVariable creates a vector variable restricted to non-negative values.
func NewNonNegVariable(id string, n int) *Variable {
	return &Variable{ID: id, N: n, NonNeg: true}
}

// NewBooleanVariable creates a {0,1} indicator vector variable.
func NewBooleanVariable(id string, n int) *Variable {
	return &Variable{ID: id, N: n, Boolean: true}
}
