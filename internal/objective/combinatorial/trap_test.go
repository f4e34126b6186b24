package combinatorial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/bbdob/internal/encoding"
	"github.com/copyleftdev/bbdob/internal/objective"
)

func TestDeceptiveTrap(t *testing.T) {
	o, err := NewDeceptiveTrap(6, 3, false)
	require.NoError(t, err)
	assert.Equal(t, 6.0, o.OptimalValue())

	res, err := o.EvaluateIndices([][]int{
		{1, 1, 1, 1, 1, 1},
		{0, 0, 0, 0, 0, 0},
		{1, 1, 0, 0, 1, 0},
		{1, 1, 1, 0, 0, 0},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 4, 1, 5}, res.Fitness)
	assert.Equal(t, []float64{2, 0, 0, 1}, res.Info["solved_blocks"])

	ok, err := objective.IsOptimum(o, encoding.MustOneHotVector([]int{1, 1, 1, 1, 1, 1}, 2))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeceptiveTrapMinimize(t *testing.T) {
	o, err := NewDeceptiveTrap(4, 4, true)
	require.NoError(t, err)
	assert.Equal(t, -4.0, o.OptimalValue())

	res, err := o.Evaluate(encoding.MustOneHotPopulation([][]int{{0, 0, 0, 0}, {0, 1, 1, 1}}, 2))
	require.NoError(t, err)
	assert.Equal(t, []float64{-3, 0}, res.Fitness)
}

func TestDeceptiveTrapParameters(t *testing.T) {
	_, err := NewDeceptiveTrap(7, 3, true)
	assert.ErrorIs(t, err, objective.ErrInvalidParameter)
	_, err = NewDeceptiveTrap(6, 1, true)
	assert.ErrorIs(t, err, objective.ErrInvalidParameter)
	o, err := NewDeceptiveTrap(12, 4, true)
	require.NoError(t, err)
	assert.Equal(t, 4, o.K())
}
