package backtest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/optifolio/internal/modules/optimization"
)

const dateLayout = "2006-01-02"

// Handler handles HTTP requests for backtests.
type Handler struct {
	problems *optimization.Handler
	log      zerolog.Logger
}

// NewHandler creates a new backtest handler; problem bodies are assembled
// through the optimization handler.
func NewHandler(problems *optimization.Handler, log zerolog.Logger) *Handler {
	return &Handler{
		problems: problems,
		log:      log.With().Str("component", "backtest_handler").Logger(),
	}
}

// HandleBacktest handles POST /api/backtest - rebalances the requested
// allocation problem over the window and returns the portfolio sequence
// plus the compounded wealth curve.
func (h *Handler) HandleBacktest(w http.ResponseWriter, r *http.Request) {
	var req optimization.BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	frequency, err := ParseFrequency(req.RebalanceFrequency)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	engine, solveReq, err := h.problems.BuildProblem(req.OptimizationRequest)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	backtester := NewBacktester(engine, frequency, solveReq.Start, solveReq.End, h.log)
	portfolios, err := backtester.ComputePortfolios(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Backtest failed")
		h.writeError(w, statusFor(err), err.Error())
		return
	}
	history, err := backtester.ComputeHistoryValues(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute wealth history")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := BacktestResponse{
		Portfolios: make([]optimization.PortfolioSnapshot, len(portfolios)),
		History:    make([]optimization.WealthPoint, len(history.Dates)),
	}
	for i, ptf := range portfolios {
		resp.Portfolios[i] = optimization.PortfolioSnapshot{
			Date:    ptf.CreatedAt().Format(dateLayout),
			Weights: ptf.NonZeroWeights(-1),
		}
	}
	for i, date := range history.Dates {
		resp.History[i] = optimization.WealthPoint{
			Date:  date.Format(dateLayout),
			Value: history.Values[i],
		}
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// BacktestResponse is the body of a successful backtest.
type BacktestResponse struct {
	Portfolios []optimization.PortfolioSnapshot `json:"portfolios"`
	History    []optimization.WealthPoint       `json:"history"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, optimization.ErrInput):
		return http.StatusBadRequest
	case errors.Is(err, optimization.ErrNotOptimal):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
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
