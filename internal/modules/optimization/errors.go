package optimization

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every failure out of the solver wraps one of these
// sentinels so callers can branch with errors.Is.
var (
	// ErrInput marks invalid inputs: NaN returns, missing financials for a
	// Financials objective, conflicting cardinality parameters, bad bounds.
	ErrInput = errors.New("invalid optimization input")

	// ErrNotOptimal marks a solve whose status was not optimal after the
	// one-time default-configuration retry.
	ErrNotOptimal = errors.New("solver did not reach an optimal solution")

	// ErrTolerance marks a post-solve invariant violation: the solved
	// weights broke sum-to-one or non-negativity outside tolerance. This is
	// a modeling or numerical-precision defect, not a recoverable state.
	ErrTolerance = errors.New("solved weights violate tolerance")
)

func inputErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrInput)...)
}

// StatusError reports the solver status that prevented an optimal solution.
type StatusError struct {
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("problem status is not optimal but: %s", e.Status)
}

// Unwrap makes errors.Is(err, ErrNotOptimal) hold.
func (e *StatusError) Unwrap() error {
	return ErrNotOptimal
}
