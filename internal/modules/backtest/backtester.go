package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/optifolio/internal/modules/market"
	"github.com/aristath/optifolio/internal/modules/optimization"
)

// defaultWindowDays is the backtest window used when no start date is
// given.
const defaultWindowDays = 365 * 2

// Backtester re-solves the same allocation problem at each date of a
// rebalance calendar and compounds the realized out-of-sample returns into
// a wealth curve.
type Backtester struct {
	engine    *optimization.Engine
	frequency Frequency
	start     time.Time
	end       time.Time
	log       zerolog.Logger

	// Parallelism bounds the number of concurrent per-date solves.
	// Values below two keep the solves sequential.
	Parallelism int

	portfolios []*optimization.Portfolio
}

// NewBacktester creates a backtester. A zero end defaults to today, a zero
// start to two years before end.
func NewBacktester(
	engine *optimization.Engine,
	frequency Frequency,
	start, end time.Time,
	log zerolog.Logger,
) *Backtester {
	if end.IsZero() {
		end = time.Now().UTC()
	}
	end = normalize(end)
	if start.IsZero() {
		start = end.AddDate(0, 0, -defaultWindowDays)
	}
	return &Backtester{
		engine:    engine,
		frequency: frequency,
		start:     normalize(start),
		end:       end,
		log:       log.With().Str("component", "backtester").Logger(),
	}
}

// RebalanceDates returns the rebalance calendar between start and end.
func (b *Backtester) RebalanceDates() []time.Time {
	return b.frequency.Dates(b.start, b.end)
}

// ComputePortfolios solves the allocation problem once per rebalance date,
// in chronological order, using only data available up to each date. Any
// per-date failure aborts the whole run: a gap in the rebalance sequence
// would corrupt the cumulative wealth computation.
func (b *Backtester) ComputePortfolios(ctx context.Context) ([]*optimization.Portfolio, error) {
	dates := b.RebalanceDates()
	portfolios := make([]*optimization.Portfolio, len(dates))

	if b.Parallelism > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(b.Parallelism)
		for i, date := range dates {
			i, date := i, date
			g.Go(func() error {
				ptf, err := b.solveAt(gctx, date)
				if err != nil {
					return err
				}
				portfolios[i] = ptf
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, date := range dates {
			ptf, err := b.solveAt(ctx, date)
			if err != nil {
				return nil, err
			}
			portfolios[i] = ptf
		}
	}

	b.portfolios = portfolios
	return portfolios, nil
}

func (b *Backtester) solveAt(ctx context.Context, date time.Time) (*optimization.Portfolio, error) {
	b.log.Debug().Time("rebalance_date", date).Msg("Computing optimal portfolio")
	ptf, err := b.engine.Solve(ctx, optimization.SolveRequest{End: date})
	if err != nil {
		return nil, fmt.Errorf("solve at %s: %w", date.Format("2006-01-02"), err)
	}
	return ptf, nil
}

// ComputeHistoryValues compounds the realized daily returns of the
// rebalanced portfolios into a wealth series over [start, end]. The most
// recent rebalance weights are carried forward onto every trading day;
// days before the first rebalance contribute nothing, so the series starts
// at exactly 1.
func (b *Backtester) ComputeHistoryValues(ctx context.Context) (*market.Series, error) {
	if b.portfolios == nil {
		if _, err := b.ComputePortfolios(ctx); err != nil {
			return nil, err
		}
	}

	universe := b.engine.Universe()
	returns, err := b.engine.Provider().GetTotalReturns(ctx, universe.Tickers(), b.start, b.end)
	if err != nil {
		return nil, fmt.Errorf("fetch realized returns: %w", err)
	}

	series := &market.Series{
		Dates:  make([]time.Time, returns.NumPeriods()),
		Values: make([]float64, returns.NumPeriods()),
	}
	cumulative := 0.0
	next := 0 // index of the next rebalance to apply
	var weights map[string]float64
	for t, date := range returns.Dates {
		for next < len(b.portfolios) && !b.portfolios[next].CreatedAt().After(date) {
			weights = b.portfolios[next].Weights()
			next++
		}
		daily := 0.0
		for j, ticker := range returns.Tickers {
			daily += returns.Data[t][j] * weights[ticker]
		}
		cumulative += daily
		series.Dates[t] = date
		series.Values[t] = 1 + cumulative
	}
	return series, nil
}
