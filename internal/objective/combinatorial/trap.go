package combinatorial

import (
	"fmt"

	"github.com/copyleftdev/bbdob/internal/encoding"
	"github.com/copyleftdev/bbdob/internal/objective"
)

// DeceptiveTrap concatenates dim/k fully deceptive trap functions. A block
// with u ones scores k when u == k and k-1-u otherwise, so every block's
// gradient leads towards all zeros while the optimum is all ones.
type DeceptiveTrap struct {
	objective.Base
	k int
}

// NewDeceptiveTrap creates a trap objective with blocks of k bits. dim must be
// a multiple of k and k must be at least 2.
func NewDeceptiveTrap(dim, k int, minimize bool) (*DeceptiveTrap, error) {
	b, err := objective.NewBase("DeceptiveTrap", dim, minimize, objective.Maximization)
	if err != nil {
		return nil, err
	}
	if k < 2 || dim%k != 0 {
		return nil, objective.Violation(objective.ErrInvalidParameter,
			"block size k (%d) must be at least 2 and divide dim (%d)", k, dim).
			WithComponent("DeceptiveTrap").WithOperation("New")
	}
	o := &DeceptiveTrap{Base: b, k: k}
	o.SetOptimum(float64(dim))
	return o, nil
}

// K returns the block size.
func (o *DeceptiveTrap) K() int { return o.k }

// Evaluate scores one-hot encoded candidates. Info carries "solved_blocks".
func (o *DeceptiveTrap) Evaluate(c *encoding.Tensor) (*objective.Result, error) {
	x, err := o.CheckShape(c)
	if err != nil {
		return nil, err
	}
	return o.score(x), nil
}

// EvaluateIndices scores decoded candidates.
func (o *DeceptiveTrap) EvaluateIndices(x [][]int) (*objective.Result, error) {
	if err := o.CheckIndices(x); err != nil {
		return nil, err
	}
	return o.score(x), nil
}

func (o *DeceptiveTrap) score(x [][]int) *objective.Result {
	k := o.k
	r := objective.NewResult(len(x), "solved_blocks")
	for n, row := range x {
		v, solved := 0, 0
		for i := 0; i < len(row); i += k {
			u := ones(row[i : i+k])
			if u == k {
				v += k
				solved++
			} else {
				v += k - 1 - u
			}
		}
		r.Fitness[n] = float64(v)
		r.Info["solved_blocks"][n] = float64(solved)
	}
	o.Orient(r.Fitness)
	return r
}

func (o *DeceptiveTrap) String() string {
	return o.Describe(fmt.Sprintf("block size k: %d", o.k))
}
