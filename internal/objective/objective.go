// Package objective defines the evaluation contract shared by every
// benchmark objective: shape validation, one-hot decoding, the sign
// convention and optimum tracking.
package objective

import (
	"github.com/copyleftdev/bbdob/internal/encoding"
)

// Objective is a black-box fitness function over fixed-length categorical
// strings.
type Objective interface {
	// Evaluate scores a candidate (dim, Cmax) or a population
	// (population, dim, Cmax) of one-hot encoded candidates.
	Evaluate(c *encoding.Tensor) (*Result, error)

	// Name identifies the objective in logs and metrics.
	Name() string

	// Dim returns the number of positions in a candidate.
	Dim() int

	// Categories returns the number of symbols allowed at each position.
	Categories() []int

	// Cmax returns the length of the one-hot axis.
	Cmax() int

	// Minimize reports whether smaller fitness values are better.
	Minimize() bool

	// OptimalValue returns the fitness of a global optimum, or an infinity
	// when it is unknown.
	OptimalValue() float64

	String() string
}

// IndexEvaluator is implemented by objectives that accept decoded category
// indices directly, skipping the one-hot representation.
type IndexEvaluator interface {
	EvaluateIndices(x [][]int) (*Result, error)
}

// DeferredEvaluator is implemented by objectives whose evaluation has side
// effects on shared state. EvaluateDeferred scores c and returns a commit
// that applies those effects; EvaluateParallel runs the commits only once
// every chunk of the batch has succeeded. A nil commit has nothing to apply.
type DeferredEvaluator interface {
	EvaluateDeferred(c *encoding.Tensor) (*Result, func(), error)
}

// RejectionObserver is notified of batches EvaluateParallel rejects before
// any chunk reaches Evaluate.
type RejectionObserver interface {
	ObserveRejection(err error)
}

// Result is the outcome of evaluating a population.
type Result struct {
	// Fitness holds one value per candidate.
	Fitness []float64 `json:"fitness"`
	// Info holds per-candidate diagnostics keyed by name.
	Info map[string][]float64 `json:"info"`
}

// NewResult allocates a result for n candidates with the given info keys.
func NewResult(n int, keys ...string) *Result {
	r := &Result{
		Fitness: make([]float64, n),
		Info:    make(map[string][]float64, len(keys)),
	}
	for _, k := range keys {
		r.Info[k] = make([]float64, n)
	}
	return r
}

// EvaluateFunc is the callable form of an objective.
type EvaluateFunc func(c *encoding.Tensor) (*Result, error)

// Func returns o as a plain scoring function.
func Func(o Objective) EvaluateFunc {
	return o.Evaluate
}

// IsOptimum evaluates the single candidate x and reports whether its fitness
// equals the objective's optimal value exactly. x must be a rank-2 tensor.
func IsOptimum(o Objective, x *encoding.Tensor) (bool, error) {
	const op = "IsOptimum"

	if x == nil {
		return false, Violation(ErrInvalidInput, "candidate is nil").WithOperation(op)
	}
	if x.Rank() != 2 {
		return false, Violation(ErrRank,
			"the shape must be (dim, one_hot); the shape of the input was %v", x.Shape).
			WithOperation(op)
	}
	res, err := o.Evaluate(x)
	if err != nil {
		return false, err
	}
	return res.Fitness[0] == o.OptimalValue(), nil
}
