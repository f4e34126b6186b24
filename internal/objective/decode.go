package objective

import (
	"github.com/copyleftdev/bbdob/internal/encoding"
)

// Decode validates a one-hot candidate tensor and reduces it to category
// indices of shape (population, dim).
//
// A rank-2 tensor is a single candidate and is promoted to a population of
// one. The one-hot axis must have exactly max(categories) columns, and no
// position may select a column at or beyond its own cardinality.
func Decode(c *encoding.Tensor, dim int, categories []int) ([][]int, *Error) {
	const op = "Decode"

	cmax := 0
	for _, k := range categories {
		if k > cmax {
			cmax = k
		}
	}

	if c == nil {
		return nil, Violation(ErrInvalidInput, "candidate tensor is nil").WithOperation(op)
	}
	if !c.Valid() {
		return nil, Violation(ErrInvalidInput,
			"tensor data has %d values, shape %v needs %d", len(c.Data), c.Shape, c.Size()).
			WithOperation(op)
	}
	if r := c.Rank(); r < 2 || r > 3 {
		return nil, Violation(ErrRank,
			"the shape must be (%d, %d) or (population_size, %d, %d); the shape of the input was %v",
			dim, cmax, dim, cmax, c.Shape).WithOperation(op)
	}
	if c.Rank() == 2 {
		c = c.Expand()
	}

	if d := c.Shape[1]; d != dim {
		return nil, Violation(ErrDimension,
			"the dimension of the vector (%d) does not match that of the problem (%d)", d, dim).
			WithOperation(op)
	}
	if k := c.Shape[2]; k != cmax {
		return nil, Violation(ErrCardinality,
			"the cardinality of the vector (%d) does not match that of the problem (%d)", k, cmax).
			WithOperation(op)
	}

	decoded, err := encoding.ArgMax(c)
	if err != nil {
		return nil, Violation(ErrInvalidInput, "%v", err).WithOperation(op)
	}

	pop := c.Shape[0]
	x := make([][]int, pop)
	for n := range x {
		x[n] = make([]int, dim)
		for i := range x[n] {
			x[n][i] = int(decoded.Data[n*dim+i])
		}
	}
	if verr := checkIndices(x, dim, categories); verr != nil {
		return nil, verr.WithOperation(op)
	}
	return x, nil
}

func checkIndices(x [][]int, dim int, categories []int) *Error {
	const op = "CheckIndices"

	for n, row := range x {
		if len(row) != dim {
			return Violation(ErrDimension,
				"candidate %d has %d positions, the problem has %d", n, len(row), dim).WithOperation(op)
		}
		for i, v := range row {
			if v < 0 || v >= categories[i] {
				return Violation(ErrCardinality,
					"candidate %d selects symbol %d at position %d, which allows %d", n, v, i, categories[i]).
					WithOperation(op)
			}
		}
	}
	return nil
}
