package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	apierrors "github.com/copyleftdev/bbdob/internal/errors"
	"github.com/copyleftdev/bbdob/internal/objective"
)

// JSON-RPC 2.0 error codes.
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcServerError    = -32000
)

// rpcError carries a JSON-RPC error code out of a method handler.
type rpcError struct {
	code    int
	message string
}

func (e *rpcError) Error() string { return e.message }

func invalidParams(format string, args ...interface{}) error {
	return &rpcError{code: rpcInvalidParams, message: fmt.Sprintf(format, args...)}
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	if s.cfg.HTTP.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.HTTP.MaxBodyBytes)
	}

	var request struct {
		JSONRPC string            `json:"jsonrpc"`
		ID      interface{}       `json:"id"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, rpcParseError, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" {
		s.respondWithError(w, rpcInvalidRequest, "Invalid Request", request.ID)
		return
	}

	// Route to appropriate handler
	var result interface{}
	var err error

	switch request.Method {
	case "objective.list":
		result = map[string]interface{}{"objectives": s.list()}
	case "objective.describe":
		result, err = s.rpcDescribe(request.Params)
	case "objective.evaluate":
		result, err = s.rpcEvaluate(r, request.Params)
	case "objective.is_optimum":
		result, err = s.rpcIsOptimum(request.Params)
	default:
		s.respondWithError(w, rpcMethodNotFound, "Method not found", request.ID)
		return
	}

	if err != nil {
		var rerr *rpcError
		switch {
		case errors.As(err, &rerr):
			s.respondWithError(w, rerr.code, rerr.message, request.ID)
		case objective.IsContractViolation(err), errors.Is(err, apierrors.ErrNotFound):
			s.respondWithError(w, rpcInvalidParams, err.Error(), request.ID)
		default:
			s.logger.Error("RPC method failed", map[string]interface{}{
				"method": request.Method,
				"error":  err,
			})
			s.respondWithError(w, rpcServerError, "Server error", request.ID)
		}
		return
	}

	// Send successful response
	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// firstParam decodes the first positional parameter into v.
func firstParam(params []json.RawMessage, v interface{}) error {
	if len(params) == 0 {
		return invalidParams("missing required parameters")
	}
	if err := json.Unmarshal(params[0], v); err != nil {
		return invalidParams("invalid parameter format, expected object: %v", err)
	}
	return nil
}

// rpcDescribe handles objective.describe.
// Expected parameters: [{"objective": "onemax-5"}]
func (s *Server) rpcDescribe(params []json.RawMessage) (interface{}, error) {
	var p struct {
		Objective string `json:"objective"`
	}
	if err := firstParam(params, &p); err != nil {
		return nil, err
	}
	if p.Objective == "" {
		return nil, invalidParams("objective is required")
	}
	return s.describe(p.Objective)
}

// rpcEvaluate handles objective.evaluate.
// Expected parameters: [{"objective": "onemax-5", "indices": [[0, 1, 1, 0, 1]]}]
// or the same with one-hot "candidates".
func (s *Server) rpcEvaluate(r *http.Request, params []json.RawMessage) (interface{}, error) {
	var req EvaluateRequest
	if err := firstParam(params, &req); err != nil {
		return nil, err
	}
	if req.Objective == "" {
		return nil, invalidParams("objective is required")
	}
	return s.evaluate(r.Context(), req.Objective, req)
}

// rpcIsOptimum handles objective.is_optimum.
// Expected parameters: [{"objective": "onemax-5", "candidate": [[0, 1], ...]}]
// Returns: {"is_optimum": true}
func (s *Server) rpcIsOptimum(params []json.RawMessage) (interface{}, error) {
	var p struct {
		Objective string      `json:"objective"`
		Candidate [][]float64 `json:"candidate"`
	}
	if err := firstParam(params, &p); err != nil {
		return nil, err
	}
	if p.Objective == "" {
		return nil, invalidParams("objective is required")
	}
	ok, err := s.isOptimum(p.Objective, p.Candidate)
	if err != nil {
		return nil, err
	}
	return map[string]bool{"is_optimum": ok}, nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Warn("RPC error", map[string]interface{}{
		"status":  code,
		"message": message,
	})

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
