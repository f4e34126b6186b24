package nasbench

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/bbdob/internal/encoding"
	"github.com/copyleftdev/bbdob/internal/objective"
)

// countingDataset records how often it is queried. It fails every query
// when err is set, or only the failAt-th one when failAt is positive.
type countingDataset struct {
	Dataset
	calls  atomic.Int64
	err    error
	failAt int64
}

func (d *countingDataset) Query(spec *ModelSpec, epochs int) (Metrics, error) {
	n := d.calls.Add(1)
	if d.err != nil {
		return Metrics{}, d.err
	}
	if d.failAt > 0 && n == d.failAt {
		return Metrics{}, errors.New("disk gone")
	}
	return d.Dataset.Query(spec, epochs)
}

// chain wires input -> 1 -> 2 -> ... -> output with the given ops.
func chain(ops ...int) []int {
	x := make([]int, Dim)
	for _, i := range []int{0, 6, 11, 15, 18, 20} {
		x[i] = 1
	}
	copy(x[MatrixElements:], ops)
	return x
}

func chainMetrics() Metrics {
	return Metrics{ValidationAccuracy: 0.9, TestAccuracy: 0.88, TrainingTime: 1500}
}

func newTestTable(t *testing.T) *Table {
	t.Helper()
	s, err := NewModelSpec(Adjacency(chain()), []string{OpInput, OpConv1x1, OpConv1x1, OpConv1x1, OpConv1x1, OpConv1x1, OpOutput})
	require.NoError(t, err)
	tbl := NewTable()
	tbl.Add(s.Hash(), DefaultEpochs, chainMetrics())
	return tbl
}

func TestNewValidatesParameters(t *testing.T) {
	_, err := New(nil, true)
	assert.ErrorIs(t, err, objective.ErrInvalidParameter)

	_, err = New(NewTable(), true, WithEpochs(100))
	assert.ErrorIs(t, err, objective.ErrInvalidParameter)

	o, err := New(NewTable(), true, WithEpochs(36))
	require.NoError(t, err)
	assert.Equal(t, 36, o.Epochs())
	assert.Equal(t, Dim, o.Dim())
	assert.Equal(t, 3, o.Cmax())
	cats := o.Categories()
	assert.Equal(t, 2, cats[0])
	assert.Equal(t, 2, cats[MatrixElements-1])
	assert.Equal(t, 3, cats[MatrixElements])
	assert.Equal(t, 3, cats[Dim-1])
	assert.Contains(t, o.String(), "epochs: 36")
}

func TestEvaluateScoresTabulatedCell(t *testing.T) {
	o, err := New(newTestTable(t), true)
	require.NoError(t, err)

	res, err := o.Evaluate(encoding.MustOneHotVector(chain(), len(Ops)))
	require.NoError(t, err)
	assert.InDelta(t, 0.1, res.Fitness[0], 1e-12)
	assert.InDelta(t, 0.12, res.Info["test_error"][0], 1e-12)
	assert.Equal(t, 1500.0, res.Info["training_time"][0])
	assert.Equal(t, 1500.0, o.EstimatedWallClockTime())

	o, err = New(newTestTable(t), false)
	require.NoError(t, err)
	res, err = o.EvaluateIndices([][]int{chain()})
	require.NoError(t, err)
	assert.InDelta(t, -0.1, res.Fitness[0], 1e-12)
}

func TestEvaluatePenalisesOutOfDomain(t *testing.T) {
	full := make([]int, Dim)
	for i := 0; i < MatrixElements; i++ {
		full[i] = 1
	}

	tests := []struct {
		name    string
		x       []int
		queried bool
	}{
		{"too many edges", full, false},
		{"disconnected", make([]int, Dim), true},
		{"not tabulated", chain(2, 2, 2, 2, 2), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := &countingDataset{Dataset: newTestTable(t)}
			o, err := New(ds, true)
			require.NoError(t, err)

			res, err := o.EvaluateIndices([][]int{tt.x})
			require.NoError(t, err)
			assert.Equal(t, 1.0, res.Fitness[0])
			assert.Equal(t, 1.0, res.Info["test_error"][0])
			assert.Equal(t, 0.0, res.Info["training_time"][0])
			assert.Equal(t, 0.0, o.EstimatedWallClockTime())
			assert.Equal(t, tt.queried, ds.calls.Load() > 0)
		})
	}
}

func TestEvaluatePropagatesStorageErrors(t *testing.T) {
	ds := &countingDataset{Dataset: newTestTable(t), err: errors.New("disk gone")}
	o, err := New(ds, true)
	require.NoError(t, err)

	_, err = o.EvaluateIndices([][]int{chain()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
	assert.False(t, objective.IsContractViolation(err))
}

func TestEvaluateRejectsBadShapes(t *testing.T) {
	o, err := New(NewTable(), true)
	require.NoError(t, err)

	_, err = o.Evaluate(encoding.MustOneHotVector(chain()[:Dim-1], len(Ops)))
	assert.ErrorIs(t, err, objective.ErrDimension)

	// An op index in an adjacency position.
	x := chain()
	x[3] = 2
	_, err = o.EvaluateIndices([][]int{x})
	assert.ErrorIs(t, err, objective.ErrCardinality)
}

func TestClockIsSafeUnderParallelEvaluation(t *testing.T) {
	o, err := New(newTestTable(t), true)
	require.NoError(t, err)

	pop := make([][]int, 40)
	for i := range pop {
		if i%2 == 0 {
			pop[i] = chain()
		} else {
			pop[i] = make([]int, Dim)
		}
	}
	res, err := objective.EvaluateParallel(context.Background(), o, encoding.MustOneHotPopulation(pop, len(Ops)), 8)
	require.NoError(t, err)

	sum := 0.0
	for _, v := range res.Info["training_time"] {
		sum += v
	}
	assert.Equal(t, 20*1500.0, sum)
	assert.Equal(t, sum, o.EstimatedWallClockTime())

	o.Clock().Reset()
	assert.Equal(t, 0.0, o.EstimatedWallClockTime())
}

func TestFailedBatchLeavesClockUntouched(t *testing.T) {
	pop := [][]int{chain(), chain(), chain(), chain()}

	tests := []struct {
		name     string
		evaluate func(o *NasBench101) (*objective.Result, error)
	}{
		{"parallel", func(o *NasBench101) (*objective.Result, error) {
			return objective.EvaluateParallel(context.Background(), o, encoding.MustOneHotPopulation(pop, len(Ops)), 4)
		}},
		{"serial", func(o *NasBench101) (*objective.Result, error) {
			return o.EvaluateIndices(pop)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := &countingDataset{Dataset: newTestTable(t), failAt: int64(len(pop))}
			o, err := New(ds, true)
			require.NoError(t, err)

			_, err = tt.evaluate(o)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "disk gone")
			assert.Equal(t, int64(len(pop)), ds.calls.Load())
			assert.Equal(t, 0.0, o.EstimatedWallClockTime())

			ds.failAt = 0
			_, err = tt.evaluate(o)
			require.NoError(t, err)
			assert.Equal(t, float64(len(pop))*chainMetrics().TrainingTime, o.EstimatedWallClockTime())
		})
	}
}

func TestSharedClock(t *testing.T) {
	clock := &Clock{}
	a, err := New(newTestTable(t), true, WithClock(clock))
	require.NoError(t, err)
	b, err := New(newTestTable(t), false, WithClock(clock))
	require.NoError(t, err)

	_, err = a.EvaluateIndices([][]int{chain()})
	require.NoError(t, err)
	_, err = b.EvaluateIndices([][]int{chain()})
	require.NoError(t, err)
	assert.Equal(t, 3000.0, clock.Total())
}

func TestLoadJSONL(t *testing.T) {
	input := strings.Join([]string{
		`{"matrix":[[0,1,0],[0,0,1],[0,0,0]],"ops":["input","maxpool3x3","output"],"epochs":108,"validation_accuracy":0.8,"test_accuracy":0.79,"training_time":900}`,
		``,
		`{"module_hash":"00000000000000000000000000000000","epochs":4,"validation_accuracy":0.5,"test_accuracy":0.5,"training_time":100}`,
	}, "\n")
	tbl, err := LoadJSONL(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())

	s := mustSpec(t, [][]int{{0, 1, 0}, {0, 0, 1}, {0, 0, 0}}, []string{OpInput, OpMaxPool, OpOutput})
	m, err := tbl.Query(s, 108)
	require.NoError(t, err)
	assert.Equal(t, 0.8, m.ValidationAccuracy)

	_, err = tbl.Query(s, 4)
	assert.ErrorIs(t, err, ErrOutOfDomain)

	_, err = LoadJSONL(strings.NewReader(`{"epochs":108}`))
	assert.Error(t, err)
	_, err = LoadJSONL(strings.NewReader(`{"module_hash":"x","epochs":0}`))
	assert.Error(t, err)
	_, err = LoadJSONL(strings.NewReader(`not json`))
	assert.Error(t, err)
}
