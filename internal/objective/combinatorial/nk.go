package combinatorial

import (
	"fmt"

	"github.com/copyleftdev/bbdob/internal/encoding"
	"github.com/copyleftdev/bbdob/internal/objective"
)

// MaxExhaustiveDim is the largest dimension for which NewNKLandscape
// enumerates the search space to find the optimum.
const MaxExhaustiveDim = 16

// NKLandscape is Kauffman's NK fitness landscape with random neighbourhoods.
// Locus i interacts with k other loci; the packed bits of the locus and its
// neighbours index a table of uniform random contributions. Fitness is the
// mean contribution over all loci.
type NKLandscape struct {
	objective.Base
	k         int
	seed      int64
	neighbors [][]int
	tables    [][]float64
}

// NewNKLandscape creates an NK landscape with 0 <= k < dim, drawing the
// neighbourhoods and tables from a generator seeded with seed. The optimum
// is known only for dim <= MaxExhaustiveDim.
func NewNKLandscape(dim, k int, minimize bool, seed int64) (*NKLandscape, error) {
	b, err := objective.NewBase("NKLandscape", dim, minimize, objective.Maximization)
	if err != nil {
		return nil, err
	}
	if k < 0 || k >= dim {
		return nil, objective.Violation(objective.ErrInvalidParameter,
			"epistasis k (%d) must be in 0..%d", k, dim-1).
			WithComponent("NKLandscape").WithOperation("New")
	}

	rng := newRand(seed)
	o := &NKLandscape{
		Base:      b,
		k:         k,
		seed:      seed,
		neighbors: make([][]int, dim),
		tables:    make([][]float64, dim),
	}
	for i := 0; i < dim; i++ {
		loci := []int{i}
		for _, j := range rng.Perm(dim) {
			if len(loci) == k+1 {
				break
			}
			if j != i {
				loci = append(loci, j)
			}
		}
		o.neighbors[i] = loci

		table := make([]float64, 1<<(k+1))
		for v := range table {
			table[v] = rng.Float64()
		}
		o.tables[i] = table
	}

	if dim <= MaxExhaustiveDim {
		o.SetOptimum(o.exhaustiveMax())
	}
	return o, nil
}

// K returns the number of neighbours per locus.
func (o *NKLandscape) K() int { return o.k }

// Neighbors returns the loci locus i depends on, itself first.
func (o *NKLandscape) Neighbors(i int) []int {
	return append([]int(nil), o.neighbors[i]...)
}

// Evaluate scores one-hot encoded candidates.
func (o *NKLandscape) Evaluate(c *encoding.Tensor) (*objective.Result, error) {
	x, err := o.CheckShape(c)
	if err != nil {
		return nil, err
	}
	return o.score(x), nil
}

// EvaluateIndices scores decoded candidates.
func (o *NKLandscape) EvaluateIndices(x [][]int) (*objective.Result, error) {
	if err := o.CheckIndices(x); err != nil {
		return nil, err
	}
	return o.score(x), nil
}

func (o *NKLandscape) score(x [][]int) *objective.Result {
	r := objective.NewResult(len(x))
	for n, row := range x {
		r.Fitness[n] = o.raw(row)
	}
	o.Orient(r.Fitness)
	return r
}

func (o *NKLandscape) raw(row []int) float64 {
	bits := make([]int, o.k+1)
	sum := 0.0
	for i, loci := range o.neighbors {
		for j, l := range loci {
			bits[j] = row[l]
		}
		sum += o.tables[i][encoding.PackRow(bits, true)]
	}
	return sum / float64(len(row))
}

func (o *NKLandscape) exhaustiveMax() float64 {
	dim := o.Dim()
	row := make([]int, dim)
	best := 0.0
	for mask := 0; mask < 1<<dim; mask++ {
		for i := range row {
			row[i] = (mask >> i) & 1
		}
		if v := o.raw(row); v > best {
			best = v
		}
	}
	return best
}

func (o *NKLandscape) String() string {
	return o.Describe(fmt.Sprintf("epistasis K: %d", o.k), fmt.Sprintf("seed: %d", o.seed))
}
