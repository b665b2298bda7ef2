package market

import "time"

// Series is a simple date-indexed value series (e.g., a wealth curve).
type Series struct {
	Dates  []time.Time
	Values []float64
}

// Len returns the number of points.
func (s *Series) Len() int {
	return len(s.Dates)
}

// Last returns the final value, or 0 for an empty series.
func (s *Series) Last() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return s.Values[len(s.Values)-1]
}
