package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/optifolio/internal/modules/market"
)

// PriceSource fetches daily bars from an external data vendor.
type PriceSource interface {
	GetDailyCloses(ctx context.Context, symbol string, start, end time.Time) ([]market.PricePoint, error)
}

// refreshLookbackDays covers weekends, holidays and late vendor
// corrections on each daily run.
const refreshLookbackDays = 7

// PriceRefreshJob pulls recent daily closes for every tracked symbol and
// upserts them into the local store.
type PriceRefreshJob struct {
	source  PriceSource
	repo    *market.Repository
	symbols []string
	log     zerolog.Logger
}

// NewPriceRefreshJob creates the daily price refresh job.
func NewPriceRefreshJob(source PriceSource, repo *market.Repository, symbols []string, log zerolog.Logger) *PriceRefreshJob {
	return &PriceRefreshJob{
		source:  source,
		repo:    repo,
		symbols: symbols,
		log:     log.With().Str("component", "price_refresh").Logger(),
	}
}

// Name returns the job name
func (j *PriceRefreshJob) Name() string {
	return "price_refresh"
}

// Run fetches and stores the last few days of closes for every symbol.
// Per-symbol failures are logged and skipped so one bad ticker does not
// starve the rest of the universe.
func (j *PriceRefreshJob) Run(ctx context.Context) error {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -refreshLookbackDays)

	var refreshed int
	for _, symbol := range j.symbols {
		points, err := j.source.GetDailyCloses(ctx, symbol, start, end)
		if err != nil {
			j.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to fetch prices")
			continue
		}
		if len(points) == 0 {
			continue
		}
		if err := j.repo.UpsertPrices(ctx, symbol, points); err != nil {
			j.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to store prices")
			continue
		}
		refreshed++
	}

	j.log.Info().
		Int("symbols", len(j.symbols)).
		Int("refreshed", refreshed).
		Msg("Price refresh complete")
	return nil
}
