package objective

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/bbdob/internal/encoding"
)

// Sense is the direction in which an objective's raw score improves.
type Sense int

const (
	// Maximization means larger raw scores are better.
	Maximization Sense = iota
	// Minimization means smaller raw scores are better.
	Minimization
)

// Base holds the state every objective shares and implements the common
// parts of the Objective interface. Concrete objectives embed it.
type Base struct {
	name         string
	dim          int
	categories   []int
	minimize     bool
	natural      Sense
	optimalValue float64
}

// NewBase validates dim and returns a binary-alphabet base. natural is the
// direction the raw score of the objective improves in; scores are negated
// when minimize disagrees with it.
func NewBase(name string, dim int, minimize bool, natural Sense) (Base, error) {
	if dim <= 0 {
		return Base{}, Violation(ErrInvalidParameter, "dim must be a positive integer, got %d", dim).
			WithComponent(name).WithOperation("New")
	}
	categories := make([]int, dim)
	for i := range categories {
		categories[i] = 2
	}
	b := Base{
		name:       name,
		dim:        dim,
		categories: categories,
		minimize:   minimize,
		natural:    natural,
	}
	b.optimalValue = math.Inf(1)
	if minimize {
		b.optimalValue = math.Inf(-1)
	}
	return b, nil
}

// Name returns the objective's display name.
func (b *Base) Name() string { return b.name }

// Dim returns the number of positions in a candidate.
func (b *Base) Dim() int { return b.dim }

// Categories returns a copy of the per-position cardinalities.
func (b *Base) Categories() []int {
	return append([]int(nil), b.categories...)
}

// Cmax returns the largest per-position cardinality.
func (b *Base) Cmax() int {
	m := 0
	for _, c := range b.categories {
		if c > m {
			m = c
		}
	}
	return m
}

// Minimize reports whether smaller fitness values are better.
func (b *Base) Minimize() bool { return b.minimize }

// OptimalValue returns the signed fitness of a global optimum.
func (b *Base) OptimalValue() float64 { return b.optimalValue }

// SetCategories sets the cardinality of positions [from, to) to k.
func (b *Base) SetCategories(from, to, k int) error {
	if from < 0 || to > b.dim || from > to {
		return Violation(ErrInvalidParameter, "positions [%d, %d) outside [0, %d)", from, to, b.dim).
			WithComponent(b.name)
	}
	if k < 1 {
		return Violation(ErrInvalidParameter, "cardinality must be positive, got %d", k).
			WithComponent(b.name)
	}
	for i := from; i < to; i++ {
		b.categories[i] = k
	}
	return nil
}

// SetOptimum records the raw score of a known global optimum.
func (b *Base) SetOptimum(raw float64) {
	b.optimalValue = b.OrientValue(raw)
}

func (b *Base) flipped() bool {
	return b.minimize != (b.natural == Minimization)
}

// OrientValue applies the sign convention to a single raw score.
func (b *Base) OrientValue(raw float64) float64 {
	if b.flipped() && raw != 0 {
		return -raw
	}
	return raw
}

// Orient applies the sign convention to raw scores in place and returns them.
func (b *Base) Orient(raw []float64) []float64 {
	if b.flipped() {
		floats.Scale(-1, raw)
		// Scale turns 0 into -0.
		for i, v := range raw {
			if v == 0 {
				raw[i] = 0
			}
		}
	}
	return raw
}

// CheckShape validates a one-hot candidate tensor against this objective and
// returns the decoded population.
func (b *Base) CheckShape(c *encoding.Tensor) ([][]int, error) {
	x, err := Decode(c, b.dim, b.categories)
	if err != nil {
		return nil, err.WithComponent(b.name)
	}
	return x, nil
}

// CheckIndices validates an already decoded population.
func (b *Base) CheckIndices(x [][]int) error {
	if err := checkIndices(x, b.dim, b.categories); err != nil {
		return err.WithComponent(b.name)
	}
	return nil
}

// Describe renders the objective's configuration, one field per line.
func (b *Base) Describe(extra ...string) string {
	var sb strings.Builder
	sb.WriteString(b.name)
	sb.WriteString("(\n")
	fmt.Fprintf(&sb, "    dim: %d\n", b.dim)
	fmt.Fprintf(&sb, "    minimize: %t\n", b.minimize)
	for _, e := range extra {
		sb.WriteString("    ")
		sb.WriteString(e)
		sb.WriteString("\n")
	}
	sb.WriteString(")")
	return sb.String()
}
