package backtest

import (
	"fmt"
	"time"
)

// Frequency is the calendar spacing between two portfolio rebalances.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// Frequencies returns all supported rebalance frequencies.
func Frequencies() []Frequency {
	return []Frequency{
		FrequencyDaily,
		FrequencyWeekly,
		FrequencyMonthly,
		FrequencyQuarterly,
		FrequencyYearly,
	}
}

// ParseFrequency maps a request string to a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	for _, f := range Frequencies() {
		if s == string(f) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown rebalance frequency %q", s)
}

// monthStep returns the number of months between month-end rebalances, or
// zero for the day-based frequencies.
func (f Frequency) monthStep() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencyYearly:
		return 12
	}
	return 0
}

// Dates generates the rebalance calendar between start and end inclusive,
// normalized to midnight UTC. Daily steps every calendar day, weekly every
// Sunday, and the month-based frequencies fall on month ends, so e.g.
// monthly between 2023-01-01 and 2023-03-03 yields Jan 31 and Feb 28.
func (f Frequency) Dates(start, end time.Time) []time.Time {
	start = normalize(start)
	end = normalize(end)
	if end.Before(start) {
		return nil
	}

	var dates []time.Time
	switch f {
	case FrequencyDaily:
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			dates = append(dates, d)
		}
	case FrequencyWeekly:
		d := start
		for d.Weekday() != time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
		for ; !d.After(end); d = d.AddDate(0, 0, 7) {
			dates = append(dates, d)
		}
	default:
		step := f.monthStep()
		d := endOfMonth(start)
		for !d.After(end) {
			dates = append(dates, d)
			d = endOfMonth(d.AddDate(0, step, -d.Day()+1))
		}
	}
	return dates
}

func normalize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// endOfMonth returns midnight UTC of the last day of t's month.
func endOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}
