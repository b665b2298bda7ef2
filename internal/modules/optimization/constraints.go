package optimization

import (
	"github.com/aristath/optifolio/internal/cvx"
)

// Constraint turns the weight variable into a list of linear or
// mixed-integer constraints.
type Constraint interface {
	Name() ConstraintName
	Apply(w *cvx.Variable) ([]*cvx.Constraint, error)
}

// SumToOneConstraint forces the weights to sum to one.
type SumToOneConstraint struct{}

// NewSumToOneConstraint creates a sum-to-one constraint.
func NewSumToOneConstraint() *SumToOneConstraint {
	return &SumToOneConstraint{}
}

func (c *SumToOneConstraint) Name() ConstraintName {
	return ConstraintSumToOne
}

func (c *SumToOneConstraint) Apply(w *cvx.Variable) ([]*cvx.Constraint, error) {
	return []*cvx.Constraint{cvx.SumTo(w, 1)}, nil
}

// NoShortSellConstraint forces every weight to be non-negative.
type NoShortSellConstraint struct{}

// NewNoShortSellConstraint creates a long-only constraint.
func NewNoShortSellConstraint() *NoShortSellConstraint {
	return &NoShortSellConstraint{}
}

func (c *NoShortSellConstraint) Name() ConstraintName {
	return ConstraintNoShortSell
}

func (c *NoShortSellConstraint) Apply(w *cvx.Variable) ([]*cvx.Constraint, error) {
	return []*cvx.Constraint{cvx.GreaterEqual(w, 0)}, nil
}

// NumberOfAssetsConstraint bounds the count of non-zero weights through a
// boolean indicator vector, making the program mixed-integer. A backend
// without mixed-integer support will fail the solve.
type NumberOfAssetsConstraint struct {
	LowerBound *int
	UpperBound *int
}

// NewNumberOfAssetsConstraint creates a cardinality constraint. Either
// bound may be nil to leave that side open.
func NewNumberOfAssetsConstraint(lowerBound, upperBound *int) *NumberOfAssetsConstraint {
	return &NumberOfAssetsConstraint{LowerBound: lowerBound, UpperBound: upperBound}
}

func (c *NumberOfAssetsConstraint) Name() ConstraintName {
	return ConstraintNumberOfAssets
}

func (c *NumberOfAssetsConstraint) Apply(w *cvx.Variable) ([]*cvx.Constraint, error) {
	indicator := cvx.NewBooleanVariable("asset_indicator", w.N)

	constraints := []*cvx.Constraint{cvx.ElementwiseLE(w, indicator)}

	ones := make([]float64, indicator.N)
	for i := range ones {
		ones[i] = 1
	}
	if c.LowerBound != nil {
		// sum(b) >= lower, as lower - sum(b) <= 0
		con := cvx.NewConstraint(cvx.LE, 1)
		negOnes := make([]float64, indicator.N)
		for i := range negOnes {
			negOnes[i] = -1
		}
		con.AddDot(indicator, negOnes)
		con.Const[0] = float64(*c.LowerBound)
		constraints = append(constraints, con)
	}
	if c.UpperBound != nil {
		// sum(b) <= upper
		con := cvx.NewConstraint(cvx.LE, 1)
		con.AddDot(indicator, ones)
		con.Const[0] = -float64(*c.UpperBound)
		constraints = append(constraints, con)
	}
	return constraints, nil
}

// WeightsBoundsConstraint bounds every weight between percentages of the
// portfolio, validated to lie in [0, 100].
type WeightsBoundsConstraint struct {
	LowerBound *int
	UpperBound *int
}

// NewWeightsBoundsConstraint creates a per-asset percentage bound
// constraint. Either bound may be nil to leave that side open.
func NewWeightsBoundsConstraint(lowerBound, upperBound *int) *WeightsBoundsConstraint {
	return &WeightsBoundsConstraint{LowerBound: lowerBound, UpperBound: upperBound}
}

func (c *WeightsBoundsConstraint) Name() ConstraintName {
	return ConstraintWeightsBounds
}

func (c *WeightsBoundsConstraint) Apply(w *cvx.Variable) ([]*cvx.Constraint, error) {
	const total = 100

	var constraints []*cvx.Constraint
	if c.LowerBound != nil {
		if *c.LowerBound < 0 {
			return nil, inputErrorf("the lower bound percentage cannot be less than 0")
		}
		if *c.LowerBound > total {
			return nil, inputErrorf("the lower bound percentage cannot be more than %d", total)
		}
		constraints = append(constraints, cvx.GreaterEqual(w, float64(*c.LowerBound)/total))
	}
	if c.UpperBound != nil {
		if *c.UpperBound > total {
			return nil, inputErrorf("the upper bound percentage cannot be more than %d", total)
		}
		constraints = append(constraints, cvx.LessEqual(w, float64(*c.UpperBound)/total))
	}
	return constraints, nil
}

// NewConstraint builds a constraint by name. Bounds apply only to the
// bounded variants and are ignored otherwise.
func NewConstraint(name ConstraintName, lowerBound, upperBound *int) (Constraint, error) {
	switch name {
	case ConstraintSumToOne:
		return NewSumToOneConstraint(), nil
	case ConstraintNoShortSell:
		return NewNoShortSellConstraint(), nil
	case ConstraintNumberOfAssets:
		return NewNumberOfAssetsConstraint(lowerBound, upperBound), nil
	case ConstraintWeightsBounds:
		return NewWeightsBoundsConstraint(lowerBound, upperBound), nil
	}
	return nil, inputErrorf("unknown constraint name %q", name)
}

// hasConstraint reports whether a constraint with the given name is present.
func hasConstraint(constraints []Constraint, name ConstraintName) bool {
	for _, c := range constraints {
		if c.Name() == name {
			return true
		}
	}
	return false
}
