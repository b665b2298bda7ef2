package market

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/optifolio/pkg/formulas"
)

// Handler handles HTTP requests for market data lookups.
type Handler struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandler creates a new market data handler.
func NewHandler(repo *Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("component", "market_handler").Logger(),
	}
}

// HandleGetUniverse handles GET /api/universe/{name} - returns universe tickers.
func (h *Handler) HandleGetUniverse(w http.ResponseWriter, r *http.Request) {
	name := UniverseName(chi.URLParam(r, "name"))

	universe, err := NewInvestmentUniverse(nil, name)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":    universe.Name(),
		"tickers": universe.Tickers(),
	})
}

// HandleGetIndicators handles GET /api/assets/{ticker}/indicators -
// returns RSI and moving averages from the stored price history.
func (h *Handler) HandleGetIndicators(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	end := time.Now().UTC()
	start := end.AddDate(-1, 0, 0)

	points, err := h.repo.GetClosePrices(r.Context(), ticker, start, end)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", ticker).Msg("Failed to get prices")
		h.writeError(w, http.StatusInternalServerError, "Failed to get prices")
		return
	}
	if len(points) == 0 {
		h.writeError(w, http.StatusNotFound, "No price history for ticker")
		return
	}

	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":                ticker,
		"observations":          len(closes),
		"rsi_14":                formulas.CalculateRSI(closes, 14),
		"sma_20":                formulas.CalculateSMA(closes, 20),
		"sma_50":                formulas.CalculateSMA(closes, 50),
		"annualized_volatility": formulas.AnnualizedVolatility(formulas.CalculateReturns(closes)),
		"sharpe_ratio":          formulas.CalculateSharpeFromPrices(closes, 0),
		"momentum_90d":          formulas.CalculateMomentum(closes, 90),
		"pct_below_52w_high":    formulas.CalculateDistanceFrom52WeekHigh(closes),
		"drawdown":              formulas.CalculateDrawdownMetrics(closes),
	})
}

// HTTP helpers

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}
