package optimization

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/optifolio/internal/cvx"
	"github.com/aristath/optifolio/internal/modules/market"
)

// Handler handles HTTP requests for portfolio optimization.
type Handler struct {
	provider         market.Provider
	backend          cvx.Backend
	defaultTolerance float64
	log              zerolog.Logger
}

// NewHandler creates a new optimization handler. defaultTolerance is the
// weights tolerance applied to requests that omit their own; zero keeps
// the solver default.
func NewHandler(provider market.Provider, backend cvx.Backend, defaultTolerance float64, log zerolog.Logger) *Handler {
	return &Handler{
		provider:         provider,
		backend:          backend,
		defaultTolerance: defaultTolerance,
		log:              log.With().Str("component", "optimization_handler").Logger(),
	}
}

// HandleOptimize handles POST /api/optimization - solves one allocation
// problem and returns the optimal weights.
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	engine, solveReq, err := h.buildProblem(req)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	portfolio, err := engine.Solve(r.Context(), solveReq)
	if err != nil {
		h.log.Error().Err(err).Msg("Optimization failed")
		h.writeError(w, statusFor(err), err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, OptimizationResponse{
		Weights:         portfolio.NonZeroWeights(-1),
		ObjectiveValues: portfolio.ObjectiveValues(),
		CreatedAt:       portfolio.CreatedAt(),
	})
}

// BuildProblem assembles the engine and solve request for an optimization
// body. The backtest handler reuses it for its embedded problem.
func (h *Handler) BuildProblem(req OptimizationRequest) (*Engine, SolveRequest, error) {
	return h.buildProblem(req)
}

func (h *Handler) buildProblem(req OptimizationRequest) (*Engine, SolveRequest, error) {
	var none SolveRequest

	universe, err := market.NewInvestmentUniverse(req.Tickers, market.UniverseName(req.UniverseName))
	if err != nil {
		return nil, none, err
	}
	if len(req.Objectives) == 0 {
		return nil, none, errors.New("at least one objective is needed")
	}
	objectives, err := buildObjectives(req.Objectives)
	if err != nil {
		return nil, none, err
	}
	constraints, err := buildConstraints(req.Constraints)
	if err != nil {
		return nil, none, err
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, none, err
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return nil, none, err
	}

	tolerance := req.WeightsTolerance
	if tolerance == 0 {
		tolerance = h.defaultTolerance
	}

	engine := NewEngine(h.provider, universe, objectives, constraints, h.backend, h.log)
	solveReq := SolveRequest{
		Start:            start,
		End:              end,
		WeightsTolerance: tolerance,
		FinancialItem:    market.FinancialItem(req.FinancialItem),
	}
	return engine, solveReq, nil
}

// statusFor maps the error taxonomy to HTTP statuses: bad inputs are the
// client's fault, infeasible problems are unprocessable, tolerance
// violations are internal defects.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotOptimal):
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
