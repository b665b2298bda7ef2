package market

import (
	"context"
	"time"
)

// DefaultCompletenessThreshold is the minimum fraction of trading days a
// ticker must cover to stay in a returns matrix. Columns under the
// threshold are dropped before the matrix reaches the solver.
const DefaultCompletenessThreshold = 0.95

// Provider is the market-data collaborator the optimization core consumes.
// Implementations are stateless from the caller's point of view: the same
// arguments always describe the same window of history.
type Provider interface {
	// GetTotalReturns returns periodic linear returns for the tickers over
	// [start, end). The result is NaN-free; tickers that do not meet the
	// completeness threshold are excluded.
	GetTotalReturns(ctx context.Context, tickers []string, start, end time.Time) (*ReturnsMatrix, error)

	// GetMultiFinancialsByItem returns the raw values of one financial
	// statement line item for the tickers, oldest period first.
	GetMultiFinancialsByItem(ctx context.Context, tickers []string, item FinancialItem) (*FinancialsMatrix, error)
}
