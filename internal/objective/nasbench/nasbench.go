// Package nasbench adapts the NAS-Bench-101 tabular benchmark to the
// objective contract. A candidate encodes a cell: 21 bits for the strict
// upper triangle of a 7x7 adjacency matrix followed by 5 op choices for the
// intermediate vertices.
package nasbench

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/bbdob/internal/encoding"
	"github.com/copyleftdev/bbdob/internal/objective"
)

const (
	// Vertices is the size of the full cell.
	Vertices = 7
	// MatrixElements is the number of strict upper-triangle positions.
	MatrixElements = Vertices * (Vertices - 1) / 2
	// Dim is the candidate length.
	Dim = MatrixElements + Vertices - 2
	// DefaultEpochs is the training budget queried unless overridden.
	DefaultEpochs = 108

	// YStarValid is the best tabulated mean validation error at 108 epochs.
	YStarValid = 0.04944576819737756
	// YStarTest is the best tabulated mean test error at 108 epochs.
	YStarTest = 0.056824247042338016
)

// Ops is the op alphabet for the intermediate vertices, indexed by category.
var Ops = []string{OpConv1x1, OpConv3x3, OpMaxPool}

var budgets = map[int]bool{4: true, 12: true, 36: true, 108: true}

var adjacencyPool = newMatrixPool(Vertices)

// NasBench101 scores cells by their tabulated validation error.
type NasBench101 struct {
	objective.Base

	dataset Dataset
	epochs  int
	clock   *Clock
	logger  *zap.Logger
}

// Option configures a NasBench101 objective.
type Option func(*NasBench101)

// WithEpochs sets the training budget: 4, 12, 36 or 108.
func WithEpochs(epochs int) Option {
	return func(o *NasBench101) { o.epochs = epochs }
}

// WithClock shares a clock between adapters.
func WithClock(c *Clock) Option {
	return func(o *NasBench101) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the logger for penalised candidates.
func WithLogger(l *zap.Logger) Option {
	return func(o *NasBench101) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates the adapter over dataset.
func New(dataset Dataset, minimize bool, opts ...Option) (*NasBench101, error) {
	const name = "NasBench101"

	if dataset == nil {
		return nil, objective.Violation(objective.ErrInvalidParameter, "dataset is nil").
			WithComponent(name).WithOperation("New")
	}
	b, err := objective.NewBase(name, Dim, minimize, objective.Minimization)
	if err != nil {
		return nil, err
	}
	if err := b.SetCategories(MatrixElements, Dim, len(Ops)); err != nil {
		return nil, err
	}

	o := &NasBench101{
		Base:    b,
		dataset: dataset,
		epochs:  DefaultEpochs,
		clock:   &Clock{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if !budgets[o.epochs] {
		return nil, objective.Violation(objective.ErrInvalidParameter,
			"epochs must be one of 4, 12, 36 or 108, got %d", o.epochs).
			WithComponent(name).WithOperation("New")
	}
	return o, nil
}

// Epochs returns the queried training budget.
func (o *NasBench101) Epochs() int { return o.epochs }

// Clock returns the accumulated training time clock.
func (o *NasBench101) Clock() *Clock { return o.clock }

// EstimatedWallClockTime returns the total simulated training time, in
// seconds, of every cell scored so far.
func (o *NasBench101) EstimatedWallClockTime() float64 { return o.clock.Total() }

// Evaluate scores one-hot encoded candidates.
func (o *NasBench101) Evaluate(c *encoding.Tensor) (*objective.Result, error) {
	r, commit, err := o.EvaluateDeferred(c)
	if err != nil {
		return nil, err
	}
	commit()
	return r, nil
}

// EvaluateDeferred scores one-hot encoded candidates without touching the
// clock. The returned commit adds the batch's training time to it.
func (o *NasBench101) EvaluateDeferred(c *encoding.Tensor) (*objective.Result, func(), error) {
	x, err := o.CheckShape(c)
	if err != nil {
		return nil, nil, err
	}
	r, elapsed, err := o.score(x)
	if err != nil {
		return nil, nil, err
	}
	return r, func() { o.clock.Add(elapsed) }, nil
}

// EvaluateIndices scores decoded candidates.
func (o *NasBench101) EvaluateIndices(x [][]int) (*objective.Result, error) {
	if err := o.CheckIndices(x); err != nil {
		return nil, err
	}
	r, elapsed, err := o.score(x)
	if err != nil {
		return nil, err
	}
	o.clock.Add(elapsed)
	return r, nil
}

// score returns the results and the summed training time of x.
func (o *NasBench101) score(x [][]int) (*objective.Result, float64, error) {
	r := objective.NewResult(len(x), "test_error", "training_time")
	elapsed := 0.0

	for n, row := range x {
		matrix := adjacencyPool.GetDense()
		fillAdjacency(matrix, row)
		if edges := int(mat.Sum(matrix)); edges > MaxEdges {
			adjacencyPool.PutDense(matrix)
			o.penalize(r, n)
			o.logger.Debug("too many edges", zap.Int("candidate", n), zap.Int("edges", edges))
			continue
		}

		ops := make([]string, 0, Vertices)
		ops = append(ops, OpInput)
		for _, v := range row[MatrixElements:] {
			ops = append(ops, Ops[v])
		}
		ops = append(ops, OpOutput)

		spec, err := NewModelSpec(matrix, ops)
		adjacencyPool.PutDense(matrix)
		if err != nil {
			return nil, 0, fmt.Errorf("candidate %d: %w", n, err)
		}
		m, err := o.dataset.Query(spec, o.epochs)
		if errors.Is(err, ErrOutOfDomain) {
			o.penalize(r, n)
			o.logger.Debug("out of domain", zap.Int("candidate", n), zap.Error(err))
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("candidate %d: %w", n, err)
		}

		r.Fitness[n] = 1 - m.ValidationAccuracy
		r.Info["test_error"][n] = 1 - m.TestAccuracy
		r.Info["training_time"][n] = m.TrainingTime
		elapsed += m.TrainingTime
	}

	o.Orient(r.Fitness)
	return r, elapsed, nil
}

func (o *NasBench101) penalize(r *objective.Result, n int) {
	r.Fitness[n] = 1
	r.Info["test_error"][n] = 1
	r.Info["training_time"][n] = 0
}

// Adjacency fills the strict upper triangle of a Vertices x Vertices matrix,
// row by row, from the first MatrixElements entries of x.
func Adjacency(x []int) *mat.Dense {
	m := mat.NewDense(Vertices, Vertices, nil)
	fillAdjacency(m, x)
	return m
}

func fillAdjacency(m *mat.Dense, x []int) {
	k := 0
	for i := 0; i < Vertices; i++ {
		for j := i + 1; j < Vertices; j++ {
			m.Set(i, j, float64(x[k]))
			k++
		}
	}
}

func (o *NasBench101) String() string {
	return o.Describe(fmt.Sprintf("epochs: %d", o.epochs))
}
