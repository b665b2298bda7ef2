package optimization

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/aristath/optifolio/internal/modules/market"
)

// ObjectiveValue maps an objective to its optimal value and the weight it
// carried in the scalarized problem.
type ObjectiveValue struct {
	Name   ObjectiveName `json:"name"`
	Value  float64       `json:"value"`
	Weight float64       `json:"weight"`
}

// Portfolio is the immutable result of one solve: the optimal weights,
// the per-objective optimal values and the creation timestamp. A market
// data provider may be attached later for derived computations only; the
// weights never change after construction.
type Portfolio struct {
	weights         map[string]float64
	objectiveValues []ObjectiveValue
	createdAt       time.Time
	marketData      market.Provider
}

// NewPortfolio creates a portfolio over a copy of the given weights.
func NewPortfolio(weights map[string]float64, objectiveValues []ObjectiveValue, createdAt time.Time) *Portfolio {
	owned := make(map[string]float64, len(weights))
	for ticker, w := range weights {
		owned[ticker] = w
	}
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return &Portfolio{
		weights:         owned,
		objectiveValues: objectiveValues,
		createdAt:       createdAt,
	}
}

// Weights returns a copy of all weights, zero entries included.
func (p *Portfolio) Weights() map[string]float64 {
	out := make(map[string]float64, len(p.weights))
	for ticker, w := range p.weights {
		out[ticker] = w
	}
	return out
}

// Weight returns the weight for one ticker, 0 if absent.
func (p *Portfolio) Weight(ticker string) float64 {
	return p.weights[ticker]
}

// NonZeroWeights returns the non-zero weights, rounded to the given number
// of decimals. Pass a negative value to skip rounding.
func (p *Portfolio) NonZeroWeights(roundDecimals int) map[string]float64 {
	out := make(map[string]float64)
	for ticker, w := range p.weights {
		if w == 0 {
			continue
		}
		if roundDecimals >= 0 {
			factor := math.Pow(10, float64(roundDecimals))
			w = math.Round(w*factor) / factor
		}
		out[ticker] = w
	}
	return out
}

// Tickers returns the portfolio tickers in lexical order.
func (p *Portfolio) Tickers(onlyNonZero bool) []string {
	var out []string
	for ticker, w := range p.weights {
		if onlyNonZero && w == 0 {
			continue
		}
		out = append(out, ticker)
	}
	sort.Strings(out)
	return out
}

// ObjectiveValues returns the per-objective optimal values in the order
// the objectives were selected.
func (p *Portfolio) ObjectiveValues() []ObjectiveValue {
	out := make([]ObjectiveValue, len(p.objectiveValues))
	copy(out, p.objectiveValues)
	return out
}

// CreatedAt returns the portfolio creation timestamp.
func (p *Portfolio) CreatedAt() time.Time {
	return p.createdAt
}

// AttachMarketData sets the provider used by derived computations.
func (p *Portfolio) AttachMarketData(provider market.Provider) {
	p.marketData = provider
}

// History computes the portfolio wealth over [start, end): one unit of
// wealth compounded with the realized returns of the held tickers. The
// provider must have been attached or passed explicitly.
func (p *Portfolio) History(ctx context.Context, provider market.Provider, start, end time.Time) (*market.Series, error) {
	if provider == nil {
		provider = p.marketData
	}
	if provider == nil {
		return nil, fmt.Errorf("a market data provider is required to compute history")
	}

	tickers := p.Tickers(true)
	if len(tickers) == 0 {
		return &market.Series{}, nil
	}

	returns, err := provider.GetTotalReturns(ctx, tickers, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get returns for history: %w", err)
	}

	series := &market.Series{
		Dates:  returns.Dates,
		Values: make([]float64, returns.NumPeriods()),
	}
	cumulative := 0.0
	for i, row := range returns.Data {
		for j, ticker := range returns.Tickers {
			cumulative += row[j] * p.weights[ticker]
		}
		series.Values[i] = 1 + cumulative
	}
	return series, nil
}

// String summarizes the non-zero weights and objective values.
func (p *Portfolio) String() string {
	var sb strings.Builder
	sb.WriteString("Portfolio(weights={")
	for i, ticker := range p.Tickers(true) {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %.5f", ticker, p.weights[ticker])
	}
	sb.WriteString("}")
	if len(p.objectiveValues) > 0 {
		sb.WriteString(", objectives={")
		for i, ov := range p.objectiveValues {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s: %.6f", ov.Name, ov.Value)
		}
		sb.WriteString("}")
	}
	sb.WriteString(")")
	return sb.String()
}
