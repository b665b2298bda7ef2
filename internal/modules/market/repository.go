package market

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// PricePoint is one daily close for a symbol.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// FinancialPoint is one reported statement value for a symbol.
type FinancialPoint struct {
	Period time.Time `json:"period"`
	Value  float64   `json:"value"`
}

// Repository is the sqlite-backed market data provider. It implements
// Provider on top of locally persisted prices and financial statements.
type Repository struct {
	db                    *sql.DB
	completenessThreshold float64
	log                   zerolog.Logger
}

// NewRepository creates a market data repository with the default
// completeness threshold.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:                    db,
		completenessThreshold: DefaultCompletenessThreshold,
		log:                   log.With().Str("component", "market_repository").Logger(),
	}
}

// SetCompletenessThreshold overrides the minimum column coverage.
func (r *Repository) SetCompletenessThreshold(threshold float64) {
	r.completenessThreshold = threshold
}

// UpsertPrices writes daily closes for a symbol, replacing existing rows.
func (r *Repository) UpsertPrices(ctx context.Context, symbol string, points []PricePoint) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO prices (symbol, date, close)
		VALUES (?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET close = excluded.close
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare price upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, symbol, normalize(p.Date).Format(dateLayout), p.Close); err != nil {
			return fmt.Errorf("failed to upsert price for %s: %w", symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price upsert: %w", err)
	}
	return nil
}

// UpsertFinancials writes statement values for a symbol and line item.
func (r *Repository) UpsertFinancials(ctx context.Context, symbol string, item FinancialItem, points []FinancialPoint) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO financials (symbol, period, item, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol, period, item) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare financials upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, symbol, normalize(p.Period).Format(dateLayout), string(item), p.Value); err != nil {
			return fmt.Errorf("failed to upsert financials for %s: %w", symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit financials upsert: %w", err)
	}
	return nil
}

// GetClosePrices fetches the close series for one symbol over [start, end).
func (r *Repository) GetClosePrices(ctx context.Context, symbol string, start, end time.Time) ([]PricePoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, close
		FROM prices
		WHERE symbol = ? AND date >= ? AND date < ?
		ORDER BY date
	`, symbol, normalize(start).Format(dateLayout), normalize(end).Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for %s: %w", symbol, err)
	}
	defer rows.Close()

	var points []PricePoint
	for rows.Next() {
		var dateStr string
		var p PricePoint
		if err := rows.Scan(&dateStr, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		date, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse price date %q: %w", dateStr, err)
		}
		p.Date = date
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price rows: %w", err)
	}
	return points, nil
}

// GetTotalReturns implements Provider. Tickers below the completeness
// threshold are dropped; the remaining columns are aligned on the dates
// every kept ticker covers, so the result is NaN-free.
func (r *Repository) GetTotalReturns(ctx context.Context, tickers []string, start, end time.Time) (*ReturnsMatrix, error) {
	closes := make(map[string]map[time.Time]float64, len(tickers))
	dateSet := make(map[time.Time]struct{})

	for _, ticker := range tickers {
		points, err := r.GetClosePrices(ctx, ticker, start, end)
		if err != nil {
			return nil, err
		}
		if len(points) == 0 {
			continue
		}
		series := make(map[time.Time]float64, len(points))
		for _, p := range points {
			series[p.Date] = p.Close
			dateSet[p.Date] = struct{}{}
		}
		closes[ticker] = series
	}

	if len(dateSet) < 2 {
		return nil, fmt.Errorf("not enough price history between %s and %s",
			start.Format(dateLayout), end.Format(dateLayout))
	}

	allDates := sortedDates(dateSet)

	// Drop incomplete columns rather than letting NaN reach the solver.
	var kept []string
	for _, ticker := range tickers {
		series, ok := closes[ticker]
		if !ok {
			continue
		}
		coverage := float64(len(series)) / float64(len(allDates))
		if coverage < r.completenessThreshold {
			r.log.Warn().
				Str("symbol", ticker).
				Float64("coverage", coverage).
				Msg("Dropping ticker below completeness threshold")
			continue
		}
		kept = append(kept, ticker)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("no ticker meets the completeness threshold")
	}

	// Keep only dates every remaining ticker covers.
	var dates []time.Time
	for _, d := range allDates {
		full := true
		for _, ticker := range kept {
			if _, ok := closes[ticker][d]; !ok {
				full = false
				break
			}
		}
		if full {
			dates = append(dates, d)
		}
	}
	if len(dates) < 2 {
		return nil, fmt.Errorf("not enough overlapping price history for %d tickers", len(kept))
	}

	data := make([][]float64, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		row := make([]float64, len(kept))
		for j, ticker := range kept {
			prev := closes[ticker][dates[i-1]]
			curr := closes[ticker][dates[i]]
			if prev != 0 {
				row[j] = (curr - prev) / prev
			}
		}
		data[i-1] = row
	}

	return NewReturnsMatrix(dates[1:], kept, data)
}

// GetMultiFinancialsByItem implements Provider. Missing periods are NaN;
// the solver decides how to treat short histories.
func (r *Repository) GetMultiFinancialsByItem(ctx context.Context, tickers []string, item FinancialItem) (*FinancialsMatrix, error) {
	values := make(map[string]map[time.Time]float64, len(tickers))
	periodSet := make(map[time.Time]struct{})

	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, period, value
		FROM financials
		WHERE item = ?
		ORDER BY period
	`, string(item))
	if err != nil {
		return nil, fmt.Errorf("failed to query financials for %s: %w", item, err)
	}
	defer rows.Close()

	wanted := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		wanted[t] = true
	}

	for rows.Next() {
		var symbol, periodStr string
		var value float64
		if err := rows.Scan(&symbol, &periodStr, &value); err != nil {
			return nil, fmt.Errorf("failed to scan financials row: %w", err)
		}
		if !wanted[symbol] {
			continue
		}
		period, err := time.Parse(dateLayout, periodStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse financials period %q: %w", periodStr, err)
		}
		if values[symbol] == nil {
			values[symbol] = make(map[time.Time]float64)
		}
		values[symbol][period] = value
		periodSet[period] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating financials rows: %w", err)
	}

	periods := sortedDates(periodSet)
	data := make([][]float64, len(periods))
	for i, period := range periods {
		row := make([]float64, len(tickers))
		for j, ticker := range tickers {
			if v, ok := values[ticker][period]; ok {
				row[j] = v
			} else {
				row[j] = math.NaN()
			}
		}
		data[i] = row
	}

	return NewFinancialsMatrix(periods, tickers, data)
}

func sortedDates(set map[time.Time]struct{}) []time.Time {
	out := make([]time.Time, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func normalize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
