package objective

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/copyleftdev/bbdob/internal/encoding"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewBase(t *testing.T) {
	_, err := NewBase("Count", 0, true, Maximization)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	assert.True(t, IsContractViolation(err))

	_, err = NewBase("Count", -1, true, Maximization)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	b, err := NewBase("Count", 4, true, Maximization)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 2, 2}, b.Categories())
	assert.Equal(t, 2, b.Cmax())
	assert.True(t, math.IsInf(b.OptimalValue(), -1), "unknown optimum when minimizing")

	b, err = NewBase("Count", 4, false, Maximization)
	require.NoError(t, err)
	assert.True(t, math.IsInf(b.OptimalValue(), 1), "unknown optimum when maximizing")

	require.NoError(t, b.SetCategories(2, 4, 5))
	assert.Equal(t, []int{2, 2, 5, 5}, b.Categories())
	assert.Equal(t, 5, b.Cmax())
	assert.Error(t, b.SetCategories(3, 5, 2))
	assert.Error(t, b.SetCategories(0, 1, 0))
}

func TestOrient(t *testing.T) {
	tests := []struct {
		name     string
		minimize bool
		natural  Sense
		want     float64
	}{
		{"maximization problem maximized", false, Maximization, 3},
		{"maximization problem minimized", true, Maximization, -3},
		{"minimization problem minimized", true, Minimization, 3},
		{"minimization problem maximized", false, Minimization, -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBase("Count", 1, tt.minimize, tt.natural)
			require.NoError(t, err)
			assert.Equal(t, tt.want, b.OrientValue(3))
			assert.Equal(t, []float64{tt.want, 0}, b.Orient([]float64{3, 0}))
			b.SetOptimum(3)
			assert.Equal(t, tt.want, b.OptimalValue())
		})
	}
}

func TestOrientKeepsPositiveZero(t *testing.T) {
	b, err := NewBase("Count", 1, true, Maximization)
	require.NoError(t, err)

	assert.False(t, math.Signbit(b.OrientValue(0)))
	for i, v := range b.Orient([]float64{4, 0, 1, 0}) {
		assert.False(t, math.Signbit(v), "index %d", i)
	}
}

func TestDecodeAcceptsSingleAndPopulation(t *testing.T) {
	o := newCountObjective(t, 3, false)

	single, err := encoding.FromMatrix([][]float64{{1, 0}, {1, 0}, {0, 1}})
	require.NoError(t, err)
	res, err := o.Evaluate(single)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, res.Fitness)

	pop, err := encoding.FromPopulation([][][]float64{
		{{1, 0}, {1, 0}, {0, 1}},
		{{0, 1}, {1, 0}, {0, 1}},
	})
	require.NoError(t, err)
	res, err = o.Evaluate(pop)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, res.Fitness)
	assert.Equal(t, []float64{0, 1}, res.Info["first"])

	res, err = Func(o)(pop)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, res.Fitness)
}

func TestDecodeRejections(t *testing.T) {
	o := newCountObjective(t, 3, false)

	tests := []struct {
		name  string
		input *encoding.Tensor
		want  error
	}{
		{"nil tensor", nil, ErrInvalidInput},
		{"data does not match shape", &encoding.Tensor{Shape: []int{3, 2}, Data: []float64{1, 0}}, ErrInvalidInput},
		{"rank 1", encoding.FromVector([]int{1, 0, 1}), ErrRank},
		{"rank 4", encoding.Zeros(1, 1, 3, 2), ErrRank},
		{"too few positions", encoding.MustOneHotPopulation([][]int{{0, 1}}, 2), ErrDimension},
		{"too many positions", encoding.MustOneHotPopulation([][]int{{0, 1, 0, 1}}, 2), ErrDimension},
		{"too many columns", encoding.MustOneHotPopulation([][]int{{0, 1, 0}}, 3), ErrCardinality},
		{"too few columns", encoding.MustOneHotPopulation([][]int{{0, 0, 0}}, 1), ErrCardinality},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Evaluate(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsContractViolation(err))

			var oerr *Error
			require.True(t, errors.As(err, &oerr))
			assert.Equal(t, "Count", oerr.Component)
		})
	}
}

func TestDecodeRejectsPaddingColumn(t *testing.T) {
	categories := []int{2, 3}
	c, err := encoding.FromMatrix([][]float64{{0, 0, 1}, {0, 0, 1}})
	require.NoError(t, err)

	_, derr := Decode(c, 2, categories)
	require.NotNil(t, derr)
	assert.ErrorIs(t, derr, ErrCardinality)

	c, err = encoding.FromMatrix([][]float64{{0, 1, 0}, {0, 0, 1}})
	require.NoError(t, err)
	x, derr := Decode(c, 2, categories)
	require.Nil(t, derr)
	assert.Equal(t, [][]int{{1, 2}}, x)
}

func TestCheckIndices(t *testing.T) {
	o := newCountObjective(t, 3, true)

	res, err := o.EvaluateIndices([][]int{{1, 1, 1}, {0, 0, 1}})
	require.NoError(t, err)
	assert.Equal(t, []float64{-3, -1}, res.Fitness)

	_, err = o.EvaluateIndices([][]int{{1, 1}})
	assert.ErrorIs(t, err, ErrDimension)
	_, err = o.EvaluateIndices([][]int{{1, 2, 0}})
	assert.ErrorIs(t, err, ErrCardinality)
	_, err = o.EvaluateIndices([][]int{{1, -1, 0}})
	assert.ErrorIs(t, err, ErrCardinality)
}

func TestIsOptimum(t *testing.T) {
	o := newCountObjective(t, 4, false)

	ok, err := IsOptimum(o, encoding.MustOneHotVector([]int{1, 1, 1, 1}, 2))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsOptimum(o, encoding.MustOneHotVector([]int{1, 0, 1, 1}, 2))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = IsOptimum(o, encoding.MustOneHotPopulation([][]int{{1, 1, 1, 1}}, 2))
	assert.ErrorIs(t, err, ErrRank)

	_, err = IsOptimum(o, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEvaluateParallelMatchesSerial(t *testing.T) {
	o := newCountObjective(t, 8, true)

	rng := rand.New(rand.NewSource(7))
	x := make([][]int, 37)
	for i := range x {
		x[i] = make([]int, 8)
		for j := range x[i] {
			x[i][j] = rng.Intn(2)
		}
	}
	c := encoding.MustOneHotPopulation(x, 2)

	want, err := o.Evaluate(c)
	require.NoError(t, err)

	for _, workers := range []int{0, 1, 2, 3, 8, 64} {
		got, err := EvaluateParallel(context.Background(), o, c, workers)
		require.NoError(t, err)
		assertFloat64SlicesEqual(t, got.Fitness, want.Fitness, 0)
		assertFloat64SlicesEqual(t, got.Info["first"], want.Info["first"], 0)
	}
}

func TestEvaluateParallelRejectsWholeBatch(t *testing.T) {
	o := newCountObjective(t, 3, true)
	_, err := EvaluateParallel(context.Background(), o, encoding.MustOneHotPopulation([][]int{{0, 1}}, 2), 4)
	assert.ErrorIs(t, err, ErrDimension)
}

func TestEvaluateParallelCancelled(t *testing.T) {
	o := newCountObjective(t, 2, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := EvaluateParallel(ctx, o, encoding.MustOneHotPopulation([][]int{{0, 1}, {1, 1}, {0, 0}}, 2), 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluateParallelCommitsOnlyCompleteBatches(t *testing.T) {
	tests := []struct {
		name          string
		pop           [][]int
		wantErr       bool
		wantCommitted int64
	}{
		{"all chunks succeed", [][]int{{0, 1}, {0, 0}, {0, 1}, {0, 1}, {0, 0}, {0, 1}}, false, 6},
		{"one chunk fails", [][]int{{0, 1}, {0, 0}, {0, 1}, {0, 1}, {0, 0}, {1, 1}}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &committingObjective{countObjective: newCountObjective(t, 2, true)}

			res, err := EvaluateParallel(context.Background(), o, encoding.MustOneHotPopulation(tt.pop, 2), 3)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, res)
			} else {
				require.NoError(t, err)
				assert.Len(t, res.Fitness, len(tt.pop))
			}
			assert.Equal(t, tt.wantCommitted, o.committed.Load())
			assert.Zero(t, o.rejected.Load())
		})
	}
}

func TestEvaluateParallelReportsRejectedBatch(t *testing.T) {
	o := &committingObjective{countObjective: newCountObjective(t, 3, true)}

	_, err := EvaluateParallel(context.Background(), o, encoding.MustOneHotPopulation([][]int{{0, 1}, {1, 1}}, 2), 4)
	require.ErrorIs(t, err, ErrDimension)
	assert.Equal(t, int64(1), o.rejected.Load())
	assert.Zero(t, o.committed.Load())
}

// committingObjective defers a per-candidate count until the batch commits
// and fails any chunk holding a candidate whose first symbol is 1.
type committingObjective struct {
	*countObjective
	committed atomic.Int64
	rejected  atomic.Int64
}

func (o *committingObjective) EvaluateDeferred(c *encoding.Tensor) (*Result, func(), error) {
	res, err := o.Evaluate(c)
	if err != nil {
		return nil, nil, err
	}
	for _, first := range res.Info["first"] {
		if first == 1 {
			return nil, nil, errors.New("storage failure")
		}
	}
	n := int64(len(res.Fitness))
	return res, func() { o.committed.Add(n) }, nil
}

func (o *committingObjective) ObserveRejection(error) { o.rejected.Add(1) }

func TestMerge(t *testing.T) {
	a := &Result{Fitness: []float64{1}, Info: map[string][]float64{"k": {10}}}
	b := &Result{Fitness: []float64{2, 3}, Info: map[string][]float64{"k": {20, 30}}}
	m := Merge(a, b)
	assert.Equal(t, []float64{1, 2, 3}, m.Fitness)
	assert.Equal(t, []float64{10, 20, 30}, m.Info["k"])
	assert.Empty(t, Merge().Fitness)
}

func TestErrorString(t *testing.T) {
	err := Violation(ErrDimension, "got %d", 2).WithOperation("Decode").WithComponent("OneMax")
	assert.Equal(t, "OneMax: Decode: dimension mismatch: got 2", err.Error())
	assert.Equal(t, "<nil>", (*Error)(nil).Error())
	assert.False(t, IsContractViolation(errors.New("boom")))
}
