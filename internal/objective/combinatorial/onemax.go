// Package combinatorial implements closed-form benchmark objectives over
// binary strings.
package combinatorial

import (
	"github.com/copyleftdev/bbdob/internal/encoding"
	"github.com/copyleftdev/bbdob/internal/objective"
)

// OneMax counts the ones in a bit string.
//
//	f(c) = sum_{i=1}^{D} c_i,  c in {0, 1}^D
type OneMax struct {
	objective.Base
}

// NewOneMax creates a OneMax objective of the given dimension.
func NewOneMax(dim int, minimize bool) (*OneMax, error) {
	b, err := objective.NewBase("OneMax", dim, minimize, objective.Maximization)
	if err != nil {
		return nil, err
	}
	o := &OneMax{Base: b}
	o.SetOptimum(float64(dim))
	return o, nil
}

// Evaluate scores one-hot encoded candidates.
func (o *OneMax) Evaluate(c *encoding.Tensor) (*objective.Result, error) {
	x, err := o.CheckShape(c)
	if err != nil {
		return nil, err
	}
	return o.score(x), nil
}

// EvaluateIndices scores decoded candidates.
func (o *OneMax) EvaluateIndices(x [][]int) (*objective.Result, error) {
	if err := o.CheckIndices(x); err != nil {
		return nil, err
	}
	return o.score(x), nil
}

func (o *OneMax) score(x [][]int) *objective.Result {
	r := objective.NewResult(len(x))
	for n, row := range x {
		r.Fitness[n] = float64(ones(row))
	}
	o.Orient(r.Fitness)
	return r
}

func (o *OneMax) String() string {
	return o.Describe()
}
