package optimization

import (
	"math"

	"github.com/aristath/optifolio/internal/cvx"
	"github.com/aristath/optifolio/internal/modules/market"
	"github.com/aristath/optifolio/pkg/formulas"
)

// Defaults for objective construction.
const (
	DefaultObjectiveWeight     = 1.0
	DefaultCVaRConfidenceLevel = 0.7

	// expectedReturnWeight is the default weight of return-seeking
	// objectives, kept lower than the risk objectives so a blended
	// problem is not dominated by the return term.
	expectedReturnWeight = 0.25

	// financialsScale makes statement-growth magnitudes comparable with
	// the return-based objective terms.
	financialsScale = 1e-4
)

// Objective turns a returns matrix and a weight variable into one named
// minimization term plus optional auxiliary constraints. All selected
// objectives are scalarized into a single weighted sum; there is no
// Pareto front.
type Objective interface {
	Name() ObjectiveName
	Weight() float64
	SetWeight(weight float64)

	// Terms returns the weighted minimization term and its auxiliary
	// constraints for the given returns matrix and weight variable.
	Terms(returns *market.ReturnsMatrix, w *cvx.Variable) (cvx.Term, []*cvx.Constraint, error)
}

type baseObjective struct {
	name   ObjectiveName
	weight float64
}

func (b *baseObjective) Name() ObjectiveName {
	return b.name
}

func (b *baseObjective) Weight() float64 {
	return b.weight
}

func (b *baseObjective) SetWeight(weight float64) {
	b.weight = weight
}

func newBase(name ObjectiveName, weight float64) baseObjective {
	if weight <= 0 {
		weight = DefaultObjectiveWeight
	}
	return baseObjective{name: name, weight: weight}
}

// CVaRObjective is the Rockafellar-Uryasev formulation of Conditional
// Value at Risk: the expected loss beyond the value-at-risk threshold at
// the configured confidence level.
type CVaRObjective struct {
	baseObjective
	ConfidenceLevel float64
}

// NewCVaRObjective creates a CVaR objective. Non-positive arguments fall
// back to the defaults (confidence 0.7, weight 1).
func NewCVaRObjective(confidenceLevel, weight float64) *CVaRObjective {
	if confidenceLevel <= 0 || confidenceLevel >= 1 {
		confidenceLevel = DefaultCVaRConfidenceLevel
	}
	return &CVaRObjective{
		baseObjective:   newBase(ObjectiveCVaR, weight),
		ConfidenceLevel: confidenceLevel,
	}
}

// Terms introduces a nonnegative per-period loss-excess vector u and a
// value-at-risk scalar z, minimizing z + 1/((1-a)T) * sum(u) subject to
// -R.w - z - u <= 0.
func (o *CVaRObjective) Terms(returns *market.ReturnsMatrix, w *cvx.Variable) (cvx.Term, []*cvx.Constraint, error) {
	nObs := returns.NumPeriods()
	u := cvx.NewNonNegVariable("cvar_loss_excess", nObs)
	z := cvx.NewVariable("cvar_value_at_risk", 1)

	expr := cvx.Dot(z, []float64{1}).
		Add(cvx.Sum(u).Scale(1 / ((1 - o.ConfidenceLevel) * float64(nObs))))

	con := cvx.NewConstraint(cvx.LE, nObs).
		AddMatrix(w, scaleMatrix(returns.Data, -1)).
		AddBroadcast(z, -1).
		AddIdentity(u, -1)

	return cvx.Term{Name: string(o.name), Expr: expr.Scale(o.weight)}, []*cvx.Constraint{con}, nil
}

// CovarianceObjective minimizes the annualized portfolio variance
// w' (252 * Sigma) w.
type CovarianceObjective struct {
	baseObjective
}

// NewCovarianceObjective creates a variance objective.
func NewCovarianceObjective(weight float64) *CovarianceObjective {
	return &CovarianceObjective{baseObjective: newBase(ObjectiveCovariance, weight)}
}

func (o *CovarianceObjective) Terms(returns *market.ReturnsMatrix, w *cvx.Variable) (cvx.Term, []*cvx.Constraint, error) {
	sigma := scaleMatrix(returns.CovarianceMatrix(), formulas.TradingDaysPerYear)
	expr := cvx.QuadForm(w, sigma)
	return cvx.Term{Name: string(o.name), Expr: expr.Scale(o.weight)}, nil, nil
}

// ExpectedReturnObjective maximizes the annualized expected return by
// minimizing its negation.
type ExpectedReturnObjective struct {
	baseObjective
}

// NewExpectedReturnObjective creates an expected-return objective with a
// default weight of 0.25.
func NewExpectedReturnObjective(weight float64) *ExpectedReturnObjective {
	if weight <= 0 {
		weight = expectedReturnWeight
	}
	return &ExpectedReturnObjective{baseObjective: baseObjective{name: ObjectiveExpectedReturn, weight: weight}}
}

func (o *ExpectedReturnObjective) Terms(returns *market.ReturnsMatrix, w *cvx.Variable) (cvx.Term, []*cvx.Constraint, error) {
	means := returns.MeanReturns()
	coeffs := make([]float64, len(means))
	for i, m := range means {
		coeffs[i] = -formulas.TradingDaysPerYear * m
	}
	return cvx.Term{Name: string(o.name), Expr: cvx.Dot(w, coeffs).Scale(o.weight)}, nil, nil
}

// MADObjective minimizes the mean absolute deviation of portfolio returns
// from their mean, a dispersion-based risk proxy.
type MADObjective struct {
	baseObjective
}

// NewMADObjective creates a mean-absolute-deviation objective.
func NewMADObjective(weight float64) *MADObjective {
	return &MADObjective{baseObjective: newBase(ObjectiveMAD, weight)}
}

// Terms introduces a nonnegative per-period deviation vector a, minimizing
// sum(a)/T subject to +-(R - mean).w - a <= 0.
func (o *MADObjective) Terms(returns *market.ReturnsMatrix, w *cvx.Variable) (cvx.Term, []*cvx.Constraint, error) {
	nObs := returns.NumPeriods()
	a := cvx.NewNonNegVariable("mad_deviations", nObs)

	means := returns.MeanReturns()
	demeaned := make([][]float64, nObs)
	for i, row := range returns.Data {
		demeaned[i] = make([]float64, len(row))
		for j, v := range row {
			demeaned[i][j] = v - means[j]
		}
	}

	expr := cvx.Sum(a).Scale(1 / float64(nObs))

	upper := cvx.NewConstraint(cvx.LE, nObs).
		AddMatrix(w, demeaned).
		AddIdentity(a, -1)
	lower := cvx.NewConstraint(cvx.LE, nObs).
		AddMatrix(w, scaleMatrix(demeaned, -1)).
		AddIdentity(a, -1)

	return cvx.Term{Name: string(o.name), Expr: expr.Scale(o.weight)}, []*cvx.Constraint{upper, lower}, nil
}

// FinancialsObjective maximizes the growth of one financial statement line
// item. It has the same shape as ExpectedReturnObjective but operates on a
// statement-growth matrix passed in place of the returns; the solver is
// responsible for routing that matrix here.
type FinancialsObjective struct {
	baseObjective
}

// NewFinancialsObjective creates a financials objective with a default
// weight of 0.25.
func NewFinancialsObjective(weight float64) *FinancialsObjective {
	if weight <= 0 {
		weight = expectedReturnWeight
	}
	return &FinancialsObjective{baseObjective: baseObjective{name: ObjectiveFinancials, weight: weight}}
}

// Terms receives the statement-growth matrix as returns.
func (o *FinancialsObjective) Terms(returns *market.ReturnsMatrix, w *cvx.Variable) (cvx.Term, []*cvx.Constraint, error) {
	coeffs := make([]float64, returns.NumAssets())
	for _, row := range returns.Data {
		for j, v := range row {
			coeffs[j] += -v * financialsScale
		}
	}
	return cvx.Term{Name: string(o.name), Expr: cvx.Dot(w, coeffs).Scale(o.weight)}, nil, nil
}

// MostDiversifiedObjective maximizes the diversification ratio: the
// weighted average of asset volatilities over the portfolio volatility.
// It minimizes y' Sigma y over a separate nonnegative auxiliary vector y
// with y . sqrt(diag(Sigma)) = 1; the true portfolio weights are recovered
// by normalization outside the objective. Combining it additively with
// other objectives needs care since the auxiliary vector is not the shared
// weight variable.
type MostDiversifiedObjective struct {
	baseObjective
}

// NewMostDiversifiedObjective creates a most-diversified-portfolio objective.
func NewMostDiversifiedObjective(weight float64) *MostDiversifiedObjective {
	return &MostDiversifiedObjective{baseObjective: newBase(ObjectiveMostDiversified, weight)}
}

func (o *MostDiversifiedObjective) Terms(returns *market.ReturnsMatrix, w *cvx.Variable) (cvx.Term, []*cvx.Constraint, error) {
	aux := cvx.NewNonNegVariable("mdp_weights", w.N)
	cov := returns.CovarianceMatrix()

	sqrtDiag := make([]float64, len(cov))
	for i := range cov {
		sqrtDiag[i] = math.Sqrt(cov[i][i])
	}

	expr := cvx.QuadForm(aux, cov)
	con := cvx.DotEq(aux, sqrtDiag, 1)

	return cvx.Term{Name: string(o.name), Expr: expr.Scale(o.weight)}, []*cvx.Constraint{con}, nil
}

// NewObjective builds an objective by name with the given weight. CVaR
// uses the default confidence level; construct CVaRObjective directly to
// override it.
func NewObjective(name ObjectiveName, weight float64) (Objective, error) {
	switch name {
	case ObjectiveCVaR:
		return NewCVaRObjective(DefaultCVaRConfidenceLevel, weight), nil
	case ObjectiveCovariance:
		return NewCovarianceObjective(weight), nil
	case ObjectiveExpectedReturn:
		return NewExpectedReturnObjective(weight), nil
	case ObjectiveMAD:
		return NewMADObjective(weight), nil
	case ObjectiveFinancials:
		return NewFinancialsObjective(weight), nil
	case ObjectiveMostDiversified:
		return NewMostDiversifiedObjective(weight), nil
	}
	return nil, inputErrorf("unknown objective name %q", name)
}

// ObjectivesMap holds the live objective selection, keyed by name.
// Adding an already-selected objective updates its weight in place.
type ObjectivesMap struct {
	objectives []Objective
}

// NewObjectivesMap creates a map over an initial selection.
func NewObjectivesMap(objectives ...Objective) *ObjectivesMap {
	return &ObjectivesMap{objectives: objectives}
}

// Objectives returns the selection in insertion order.
func (m *ObjectivesMap) Objectives() []Objective {
	return m.objectives
}

// Names returns the selected objective names in insertion order.
func (m *ObjectivesMap) Names() []ObjectiveName {
	out := make([]ObjectiveName, len(m.objectives))
	for i, o := range m.objectives {
		out[i] = o.Name()
	}
	return out
}

// ByName returns the selected objective with the given name.
func (m *ObjectivesMap) ByName(name ObjectiveName) (Objective, bool) {
	for _, o := range m.objectives {
		if o.Name() == name {
			return o, true
		}
	}
	return nil, false
}

// Add selects an objective, or updates the weight of an existing selection.
func (m *ObjectivesMap) Add(name ObjectiveName, weight float64) error {
	if existing, ok := m.ByName(name); ok {
		if weight > 0 && existing.Weight() != weight {
			existing.SetWeight(weight)
		}
		return nil
	}
	obj, err := NewObjective(name, weight)
	if err != nil {
		return err
	}
	m.objectives = append(m.objectives, obj)
	return nil
}

func scaleMatrix(m [][]float64, k float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = v * k
		}
	}
	return out
}
