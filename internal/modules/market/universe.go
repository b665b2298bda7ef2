package market

import (
	"fmt"
	"sort"
)

// UniverseName identifies a predefined investment universe.
type UniverseName string

const (
	UniverseFAANG         UniverseName = "faang"
	UniversePopularStocks UniverseName = "popular_stocks"
)

var universeTickers = map[UniverseName][]string{
	UniverseFAANG: {
		"META",
		"AAPL",
		"AMZN",
		"NFLX",
		"GOOGL",
	},
	UniversePopularStocks: {
		"AAPL",
		"AMZN",
		"TSLA",
		"GOOGL",
		"BRK.B",
		"V",
		"JPM",
		"NVDA",
		"MSFT",
		"DIS",
		"NFLX",
		"META",
		"WMT",
		"BABA",
		"AMD",
		"ACN",
		"PFE",
		"ORCL",
		"ZM",
		"SHOP",
		"COIN",
	},
}

// AllUniverseTickers returns the deduplicated union of every predefined
// universe, sorted for stable iteration.
func AllUniverseTickers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, tickers := range universeTickers {
		for _, t := range tickers {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}

// InvestmentUniverse is the set of tickers an optimization considers,
// either an explicit list or a named predefined universe.
type InvestmentUniverse struct {
	name    UniverseName
	tickers []string
}

// NewInvestmentUniverse builds a universe from exactly one of an explicit
// ticker list or a universe name.
func NewInvestmentUniverse(tickers []string, name UniverseName) (*InvestmentUniverse, error) {
	if len(tickers) > 0 && name != "" {
		return nil, fmt.Errorf("only one of tickers or universe name must be provided")
	}
	if len(tickers) > 0 {
		owned := make([]string, len(tickers))
		copy(owned, tickers)
		return &InvestmentUniverse{tickers: owned}, nil
	}
	known, ok := universeTickers[name]
	if !ok {
		return nil, fmt.Errorf("unknown universe name: %q", name)
	}
	owned := make([]string, len(known))
	copy(owned, known)
	return &InvestmentUniverse{name: name, tickers: owned}, nil
}

// Name returns the universe name, empty for explicit ticker lists.
func (u *InvestmentUniverse) Name() UniverseName {
	return u.name
}

// Tickers returns the tickers in the universe.
func (u *InvestmentUniverse) Tickers() []string {
	out := make([]string, len(u.tickers))
	copy(out, u.tickers)
	return out
}

// Len returns the number of tickers.
func (u *InvestmentUniverse) Len() int {
	return len(u.tickers)
}
