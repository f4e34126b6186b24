package combinatorial

import (
	"fmt"

	"github.com/copyleftdev/bbdob/internal/encoding"
	"github.com/copyleftdev/bbdob/internal/objective"
)

// TwoMin measures the Hamming distance to the nearer of a hidden target y and
// its complement, so both are global minima.
//
//	f(c) = min(H(c, y), H(c, not y))
type TwoMin struct {
	objective.Base
	y []int
}

// TwoMinOption configures a TwoMin objective.
type TwoMinOption func(*twoMinConfig)

type twoMinConfig struct {
	seed   int64
	target []int
}

// WithSeed draws the target from a generator seeded with seed.
func WithSeed(seed int64) TwoMinOption {
	return func(c *twoMinConfig) { c.seed = seed }
}

// WithTarget fixes the target string.
func WithTarget(y []int) TwoMinOption {
	return func(c *twoMinConfig) { c.target = append([]int(nil), y...) }
}

// NewTwoMin creates a TwoMin objective. Without options the target is drawn
// from a clock-seeded generator.
func NewTwoMin(dim int, minimize bool, opts ...TwoMinOption) (*TwoMin, error) {
	b, err := objective.NewBase("TwoMin", dim, minimize, objective.Minimization)
	if err != nil {
		return nil, err
	}

	var cfg twoMinConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	y := cfg.target
	if y == nil {
		rng := newRand(cfg.seed)
		y = make([]int, dim)
		for i := range y {
			y[i] = rng.Intn(2)
		}
	}
	if len(y) != dim {
		return nil, objective.Violation(objective.ErrInvalidParameter,
			"target has %d bits, want %d", len(y), dim).WithComponent("TwoMin").WithOperation("New")
	}
	for i, v := range y {
		if v != 0 && v != 1 {
			return nil, objective.Violation(objective.ErrInvalidParameter,
				"target bit %d is %d, want 0 or 1", i, v).WithComponent("TwoMin").WithOperation("New")
		}
	}

	o := &TwoMin{Base: b, y: y}
	o.SetOptimum(0)
	return o, nil
}

// Target returns a copy of the target string y.
func (o *TwoMin) Target() []int {
	return append([]int(nil), o.y...)
}

// Evaluate scores one-hot encoded candidates. Info carries
// "distance_to_target" and "distance_to_complement".
func (o *TwoMin) Evaluate(c *encoding.Tensor) (*objective.Result, error) {
	x, err := o.CheckShape(c)
	if err != nil {
		return nil, err
	}
	return o.score(x), nil
}

// EvaluateIndices scores decoded candidates.
func (o *TwoMin) EvaluateIndices(x [][]int) (*objective.Result, error) {
	if err := o.CheckIndices(x); err != nil {
		return nil, err
	}
	return o.score(x), nil
}

func (o *TwoMin) score(x [][]int) *objective.Result {
	dim := o.Dim()
	r := objective.NewResult(len(x), "distance_to_target", "distance_to_complement")
	for n, row := range x {
		d := hamming(row, o.y)
		// every bit that differs from y matches its complement
		dc := dim - d
		r.Fitness[n] = float64(min(d, dc))
		r.Info["distance_to_target"][n] = float64(d)
		r.Info["distance_to_complement"][n] = float64(dc)
	}
	o.Orient(r.Fitness)
	return r
}

func (o *TwoMin) String() string {
	return o.Describe(fmt.Sprintf("target: %v", o.y))
}
