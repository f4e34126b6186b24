package objective

import (
	"math"
	"testing"

	"github.com/copyleftdev/bbdob/internal/encoding"
)

// countObjective scores a candidate by the sum of its category indices.
type countObjective struct {
	Base
}

func newCountObjective(t *testing.T, dim int, minimize bool) *countObjective {
	t.Helper()

	b, err := NewBase("Count", dim, minimize, Maximization)
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}
	o := &countObjective{Base: b}
	o.SetOptimum(float64(dim))
	return o
}

func (o *countObjective) Evaluate(c *encoding.Tensor) (*Result, error) {
	x, err := o.CheckShape(c)
	if err != nil {
		return nil, err
	}
	return o.EvaluateIndices(x)
}

func (o *countObjective) EvaluateIndices(x [][]int) (*Result, error) {
	if err := o.CheckIndices(x); err != nil {
		return nil, err
	}
	r := NewResult(len(x), "first")
	for n, row := range x {
		for _, v := range row {
			r.Fitness[n] += float64(v)
		}
		r.Info["first"][n] = float64(row[0])
	}
	o.Orient(r.Fitness)
	return r, nil
}

func (o *countObjective) String() string { return o.Describe() }

// assertFloat64SlicesEqual checks if two float64 slices are approximately equal
func assertFloat64SlicesEqual(t *testing.T, got, want []float64, tol float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("at index %d: got %v, want %v (tolerance %v)", i, got[i], want[i], tol)
		}
	}
}
