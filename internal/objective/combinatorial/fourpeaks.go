package combinatorial

import (
	"fmt"

	"github.com/copyleftdev/bbdob/internal/encoding"
	"github.com/copyleftdev/bbdob/internal/objective"
)

// FourPeaks is the four-peaks function of Baluja and Caruana (1995).
//
//	f(c) = max(o(c), z(c)) + REWARD
//	o(c) = number of contiguous ones starting at the first position
//	z(c) = number of contiguous zeros ending at the last position
//	REWARD = D if o(c) > T and z(c) > T, else 0
//
// The two global optima score 2D - T - 1; the all-ones and all-zeros strings
// are deceptive local optima scoring D.
type FourPeaks struct {
	objective.Base
	t int
}

// NewFourPeaks creates a four-peaks objective. The threshold t must satisfy
// 0 < t < dim/2.
func NewFourPeaks(dim, t int, minimize bool) (*FourPeaks, error) {
	b, err := objective.NewBase("FourPeaks", dim, minimize, objective.Maximization)
	if err != nil {
		return nil, err
	}
	if t <= 0 || t >= dim/2 {
		return nil, objective.Violation(objective.ErrInvalidParameter,
			"threshold T (%d) must be in 1..%d for dim %d", t, dim/2-1, dim).
			WithComponent("FourPeaks").WithOperation("New")
	}
	o := &FourPeaks{Base: b, t: t}
	o.SetOptimum(float64(2*dim - t - 1))
	return o, nil
}

// T returns the reward threshold.
func (o *FourPeaks) T() int { return o.t }

// Evaluate scores one-hot encoded candidates. Info carries "o_c" and "z_c".
func (o *FourPeaks) Evaluate(c *encoding.Tensor) (*objective.Result, error) {
	x, err := o.CheckShape(c)
	if err != nil {
		return nil, err
	}
	return o.score(x), nil
}

// EvaluateIndices scores decoded candidates.
func (o *FourPeaks) EvaluateIndices(x [][]int) (*objective.Result, error) {
	if err := o.CheckIndices(x); err != nil {
		return nil, err
	}
	return o.score(x), nil
}

func (o *FourPeaks) score(x [][]int) *objective.Result {
	dim := o.Dim()
	r := objective.NewResult(len(x), "o_c", "z_c")
	for n, row := range x {
		oc := 0
		for oc < dim && row[oc] == 1 {
			oc++
		}
		zc := 0
		for zc < dim && row[dim-1-zc] == 0 {
			zc++
		}
		v := max(oc, zc)
		if oc > o.t && zc > o.t {
			v += dim
		}
		r.Fitness[n] = float64(v)
		r.Info["o_c"][n] = float64(oc)
		r.Info["z_c"][n] = float64(zc)
	}
	o.Orient(r.Fitness)
	return r
}

func (o *FourPeaks) String() string {
	return o.Describe(fmt.Sprintf("threshold T: %d", o.t))
}
