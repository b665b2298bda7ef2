package cvx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPBackend ships the assembled program to a convex-solver microservice
// as JSON and reads the solution back. It carries no solve logic itself.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewHTTPBackend creates a new solver service client.
func NewHTTPBackend(baseURL string, log zerolog.Logger) *HTTPBackend {
	return &HTTPBackend{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 60 * time.Second, // MIP solves can take time
		},
		log: log.With().Str("client", "solver").Logger(),
	}
}

// Request/response types (mirror the solver microservice).

type variablePayload struct {
	ID      string `json:"id"`
	N       int    `json:"n"`
	NonNeg  bool   `json:"nonneg"`
	Boolean bool   `json:"boolean"`
}

type matTermPayload struct {
	Var    string      `json:"var"`
	Matrix [][]float64 `json:"matrix"`
}

type constraintPayload struct {
	Relation string           `json:"relation"` // "le" or "eq"
	Rows     int              `json:"rows"`
	Terms    []matTermPayload `json:"terms"`
	Const    []float64        `json:"const"`
}

type linPayload struct {
	Var    string    `json:"var"`
	Coeffs []float64 `json:"coeffs"`
}

type quadPayload struct {
	Var string      `json:"var"`
	Q   [][]float64 `json:"q"`
}

type termPayload struct {
	Name  string        `json:"name"`
	Quads []quadPayload `json:"quads,omitempty"`
	Lins  []linPayload  `json:"lins,omitempty"`
	Const float64       `json:"const"`
}

type solveRequest struct {
	Variables   []variablePayload   `json:"variables"`
	Constraints []constraintPayload `json:"constraints"`
	Objective   []termPayload       `json:"objective"`
	Solver      string              `json:"solver,omitempty"`
	MaxIter     int                 `json:"max_iterations,omitempty"`
	Tolerance   float64             `json:"tolerance,omitempty"`
}

type solveData struct {
	Status    string               `json:"status"`
	Objective float64              `json:"objective"`
	Values    map[string][]float64 `json:"values"`
}

type serviceResponse struct {
	Success   bool       `json:"success"`
	Data      *solveData `json:"data"`
	Error     *string    `json:"error"`
	Timestamp string     `json:"timestamp"`
}

// Solve implements Backend.
func (b *HTTPBackend) Solve(ctx context.Context, p *Problem, opts Options) (*Solution, error) {
	payload := encodeProblem(p, opts)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal solve request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/solve", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create solve request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("solver service request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read solver response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("solver service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var envelope serviceResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse solver response: %w", err)
	}

	if !envelope.Success || envelope.Data == nil {
		msg := "unknown error"
		if envelope.Error != nil {
			msg = *envelope.Error
		}
		return nil, fmt.Errorf("solver service error: %s", msg)
	}

	b.log.Debug().
		Str("status", envelope.Data.Status).
		Float64("objective", envelope.Data.Objective).
		Dur("elapsed", time.Since(start)).
		Msg("Solve completed")

	return &Solution{
		Status:    envelope.Data.Status,
		Objective: envelope.Data.Objective,
		Values:    envelope.Data.Values,
	}, nil
}

func encodeProblem(p *Problem, opts Options) solveRequest {
	req := solveRequest{
		Solver:    opts.Solver,
		MaxIter:   opts.MaxIterations,
		Tolerance: opts.Tolerance,
	}
	for _, v := range p.Variables() {
		req.Variables = append(req.Variables, variablePayload{
			ID:      v.ID,
			N:       v.N,
			NonNeg:  v.NonNeg,
			Boolean: v.Boolean,
		})
	}
	for _, c := range p.Constraints() {
		cp := constraintPayload{
			Relation: relationString(c.Rel),
			Rows:     c.Rows,
			Const:    c.Const,
		}
		for _, t := range c.Terms {
			cp.Terms = append(cp.Terms, matTermPayload{Var: t.Var.ID, Matrix: t.M})
		}
		req.Constraints = append(req.Constraints, cp)
	}
	for _, t := range p.Terms() {
		tp := termPayload{Name: t.Name, Const: t.Expr.Const}
		for _, q := range t.Expr.Quads {
			tp.Quads = append(tp.Quads, quadPayload{Var: q.Var.ID, Q: q.Q})
		}
		for _, l := range t.Expr.Lins {
			tp.Lins = append(tp.Lins, linPayload{Var: l.Var.ID, Coeffs: l.Coeffs})
		}
		req.Objective = append(req.Objective, tp)
	}
	return req
}

func relationString(r Relation) string {
	if r == EQ {
		return "eq"
	}
	return "le"
}
