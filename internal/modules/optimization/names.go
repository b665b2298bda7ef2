package optimization

// ObjectiveName identifies one of the supported objective functions.
type ObjectiveName string

const (
	ObjectiveCVaR            ObjectiveName = "CVaR"
	ObjectiveCovariance      ObjectiveName = "Covariance"
	ObjectiveExpectedReturn  ObjectiveName = "ExpectedReturn"
	ObjectiveMAD             ObjectiveName = "MeanAbsoluteDeviation"
	ObjectiveFinancials      ObjectiveName = "Financials"
	ObjectiveMostDiversified ObjectiveName = "MostDiversified"
)

// ObjectiveNames lists every supported objective.
func ObjectiveNames() []ObjectiveName {
	return []ObjectiveName{
		ObjectiveCVaR,
		ObjectiveCovariance,
		ObjectiveExpectedReturn,
		ObjectiveMAD,
		ObjectiveFinancials,
		ObjectiveMostDiversified,
	}
}

// ConstraintName identifies one of the supported constraint functions.
type ConstraintName string

const (
	ConstraintSumToOne       ConstraintName = "SumToOne"
	ConstraintNoShortSell    ConstraintName = "NoShortSell"
	ConstraintNumberOfAssets ConstraintName = "NumberOfAssets"
	ConstraintWeightsBounds  ConstraintName = "WeightsBounds"
)

// ConstraintNames lists every supported constraint.
func ConstraintNames() []ConstraintName {
	return []ConstraintName{
		ConstraintSumToOne,
		ConstraintNoShortSell,
		ConstraintNumberOfAssets,
		ConstraintWeightsBounds,
	}
}
