package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/copyleftdev/bbdob/internal/benchmark"
	"github.com/copyleftdev/bbdob/internal/config"
	"github.com/copyleftdev/bbdob/internal/encoding"
	apierrors "github.com/copyleftdev/bbdob/internal/errors"
	"github.com/copyleftdev/bbdob/internal/logging"
	"github.com/copyleftdev/bbdob/internal/objective"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Server implements the HTTP and JSON-RPC API over a registry of
// objectives. Evaluation is synchronous: a request returns once its whole
// population is scored.
type Server struct {
	cfg      *config.Config
	logger   Logger
	registry *benchmark.Registry

	evaluations atomic.Int64
}

// NewServer creates a new server instance with the given config and logger
// The logger parameter accepts any type that implements the Logger interface
func NewServer(cfg *config.Config, logger Logger, registry *benchmark.Registry) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/objectives", s.handleList)
		r.Get("/objectives/{name}", s.handleDescribe)
		r.Post("/objectives/{name}/evaluate", s.handleEvaluate)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// Evaluations returns the number of successful evaluation requests served.
func (s *Server) Evaluations() int64 {
	return s.evaluations.Load()
}

// ObjectiveInfo describes a registered objective.
type ObjectiveInfo struct {
	Name       string `json:"name"`
	Objective  string `json:"objective"`
	Kind       string `json:"kind,omitempty"`
	Dim        int    `json:"dim"`
	Categories []int  `json:"categories"`
	Cmax       int    `json:"cmax"`
	Minimize   bool   `json:"minimize"`
	// OptimalValue is null when the optimum is unknown.
	OptimalValue *float64 `json:"optimal_value"`
	Description  string   `json:"description"`
}

// EvaluateRequest carries either one-hot candidates, rank 2 or 3, or plain
// category indices.
type EvaluateRequest struct {
	Objective  string          `json:"objective,omitempty"`
	Candidates json.RawMessage `json:"candidates,omitempty"`
	Indices    [][]int         `json:"indices,omitempty"`
}

// EvaluateResponse is the scored population.
type EvaluateResponse struct {
	EvaluationID string               `json:"evaluation_id"`
	Objective    string               `json:"objective"`
	Fitness      []float64            `json:"fitness"`
	Info         map[string][]float64 `json:"info"`
	IsOptimum    []bool               `json:"is_optimum"`
}

func (s *Server) lookup(name string) (objective.Objective, error) {
	o, ok := s.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("objective %q: %w", name, apierrors.ErrNotFound)
	}
	return o, nil
}

func (s *Server) describe(name string) (ObjectiveInfo, error) {
	o, err := s.lookup(name)
	if err != nil {
		return ObjectiveInfo{}, err
	}
	info := ObjectiveInfo{
		Name:        name,
		Objective:   o.Name(),
		Dim:         o.Dim(),
		Categories:  o.Categories(),
		Cmax:        o.Cmax(),
		Minimize:    o.Minimize(),
		Description: o.String(),
	}
	if p, ok := s.registry.Preset(name); ok {
		info.Kind = string(p.Kind)
	}
	if v := o.OptimalValue(); !math.IsInf(v, 0) {
		info.OptimalValue = &v
	}
	return info, nil
}

func (s *Server) list() []ObjectiveInfo {
	names := s.registry.Names()
	out := make([]ObjectiveInfo, 0, len(names))
	for _, n := range names {
		info, err := s.describe(n)
		if err != nil {
			continue
		}
		out = append(out, info)
	}
	return out
}

func decodeCandidates(raw json.RawMessage) (*encoding.Tensor, error) {
	var pop [][][]float64
	if err := json.Unmarshal(raw, &pop); err == nil {
		t, err := encoding.FromPopulation(pop)
		if err != nil {
			return nil, objective.Violation(objective.ErrInvalidInput, "%v", err)
		}
		return t, nil
	}
	var single [][]float64
	if err := json.Unmarshal(raw, &single); err == nil {
		t, err := encoding.FromMatrix(single)
		if err != nil {
			return nil, objective.Violation(objective.ErrInvalidInput, "%v", err)
		}
		return t, nil
	}
	return nil, objective.Violation(objective.ErrInvalidInput,
		"candidates must be a (dim, Cmax) or (population, dim, Cmax) array of numbers")
}

// evaluate scores a request against the named objective.
func (s *Server) evaluate(ctx context.Context, name string, req EvaluateRequest) (*EvaluateResponse, error) {
	o, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	hasCandidates := len(req.Candidates) > 0 && string(req.Candidates) != "null"
	var res *objective.Result
	switch {
	case hasCandidates && req.Indices != nil:
		return nil, objective.Violation(objective.ErrInvalidInput, "give either candidates or indices, not both")
	case hasCandidates:
		c, err := decodeCandidates(req.Candidates)
		if err != nil {
			return nil, err
		}
		res, err = objective.EvaluateParallel(ctx, o, c, s.cfg.Benchmark.Workers)
		if err != nil {
			return nil, err
		}
	case req.Indices != nil:
		res, err = evaluateIndices(o, req.Indices)
		if err != nil {
			return nil, err
		}
	default:
		return nil, objective.Violation(objective.ErrInvalidInput, "candidates or indices are required")
	}

	resp := &EvaluateResponse{
		EvaluationID: uuid.NewString(),
		Objective:    name,
		Fitness:      res.Fitness,
		Info:         res.Info,
		IsOptimum:    make([]bool, len(res.Fitness)),
	}
	for i, f := range res.Fitness {
		resp.IsOptimum[i] = f == o.OptimalValue()
	}
	s.evaluations.Add(1)

	s.logger.Debug("Population evaluated", map[string]interface{}{
		"evaluation_id": resp.EvaluationID,
		"objective":     name,
		"population":    len(res.Fitness),
	})
	return resp, nil
}

func evaluateIndices(o objective.Objective, x [][]int) (*objective.Result, error) {
	if ie, ok := o.(objective.IndexEvaluator); ok {
		return ie.EvaluateIndices(x)
	}
	c, err := encoding.OneHotPopulation(x, o.Cmax())
	if err != nil {
		return nil, objective.Violation(objective.ErrCardinality, "%v", err)
	}
	return o.Evaluate(c)
}

func (s *Server) isOptimum(name string, candidate [][]float64) (bool, error) {
	o, err := s.lookup(name)
	if err != nil {
		return false, err
	}
	c, err := encoding.FromMatrix(candidate)
	if err != nil {
		return false, objective.Violation(objective.ErrInvalidInput, "%v", err)
	}
	return objective.IsOptimum(o, c)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", map[string]interface{}{"error": err})
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	e := apierrors.WriteJSON(w, err)
	if e.Status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", map[string]interface{}{
			"error": e.Err,
			"stack": e.StackTrace(),
		})
	}
}

// handleList handles GET /api/v1/objectives
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"objectives": s.list()})
}

// handleDescribe handles GET /api/v1/objectives/{name}
func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	info, err := s.describe(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

// handleEvaluate handles POST /api/v1/objectives/{name}/evaluate
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if s.cfg.HTTP.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.HTTP.MaxBodyBytes)
	}

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, objective.Violation(objective.ErrInvalidInput, "invalid request body: %v", err))
		return
	}

	resp, err := s.evaluate(r.Context(), chi.URLParam(r, "name"), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// Close cleans up resources
func (s *Server) Close() error {
	s.logger.Info("Server closed", map[string]interface{}{
		"evaluations": s.Evaluations(),
	})
	return nil
}
