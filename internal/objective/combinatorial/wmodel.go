package combinatorial

import (
	"fmt"

	"github.com/copyleftdev/bbdob/internal/encoding"
	"github.com/copyleftdev/bbdob/internal/objective"
)

// WModelConfig selects the W-model transformations. Zero values disable them.
type WModelConfig struct {
	// Mu is the neutrality block size; dim must be a multiple of it.
	Mu int `yaml:"mu" json:"mu"`
	// Nu is the epistasis block size on the reduced string.
	Nu int `yaml:"nu" json:"nu"`
	// Gamma is the number of inversions in the ruggedness permutation.
	Gamma int `yaml:"gamma" json:"gamma"`
}

// WModel is a tunable W-model problem after Weise and Wu (2018). A candidate
// passes through
//
//  1. neutrality: each block of Mu bits becomes 1 when at least half are ones,
//     leaving n = dim/Mu bits;
//  2. epistasis: each block of Nu bits is replaced by its prefix parities, a
//     bijection in which every output bit depends on several inputs;
//  3. scoring: the number of ones, with the all-ones string optimal at n;
//  4. ruggedness: non-optimal scores are permuted by a ranking with exactly
//     Gamma inversions.
type WModel struct {
	objective.Base
	cfg     WModelConfig
	n       int
	ranking []int
}

// NewWModel creates a W-model objective.
func NewWModel(dim int, minimize bool, cfg WModelConfig) (*WModel, error) {
	b, err := objective.NewBase("WModel", dim, minimize, objective.Maximization)
	if err != nil {
		return nil, err
	}
	if cfg.Mu == 0 {
		cfg.Mu = 1
	}
	if cfg.Mu < 1 || dim%cfg.Mu != 0 {
		return nil, wmodelViolation("neutrality mu (%d) must be positive and divide dim (%d)", cfg.Mu, dim)
	}
	n := dim / cfg.Mu
	if cfg.Nu < 0 || cfg.Nu > n {
		return nil, wmodelViolation("epistasis nu (%d) must be in 0..%d", cfg.Nu, n)
	}
	if limit := n * (n - 1) / 2; cfg.Gamma < 0 || cfg.Gamma > limit {
		return nil, wmodelViolation("ruggedness gamma (%d) must be in 0..%d", cfg.Gamma, limit)
	}

	o := &WModel{Base: b, cfg: cfg, n: n, ranking: inversionRanking(n, cfg.Gamma)}
	o.SetOptimum(float64(n))
	return o, nil
}

func wmodelViolation(format string, args ...interface{}) error {
	return objective.Violation(objective.ErrInvalidParameter, format, args...).
		WithComponent("WModel").WithOperation("New")
}

// inversionRanking returns the permutation of 0..m-1 whose Lehmer code
// greedily spends gamma inversions from the front.
func inversionRanking(m, gamma int) []int {
	remaining := make([]int, m)
	for i := range remaining {
		remaining[i] = i
	}
	perm := make([]int, m)
	for p := range perm {
		c := min(gamma, len(remaining)-1)
		perm[p] = remaining[c]
		remaining = append(remaining[:c], remaining[c+1:]...)
		gamma -= c
	}
	return perm
}

// Config returns the transformation settings.
func (o *WModel) Config() WModelConfig { return o.cfg }

// Evaluate scores one-hot encoded candidates. Info carries "raw", the score
// before ruggedness.
func (o *WModel) Evaluate(c *encoding.Tensor) (*objective.Result, error) {
	x, err := o.CheckShape(c)
	if err != nil {
		return nil, err
	}
	return o.score(x), nil
}

// EvaluateIndices scores decoded candidates.
func (o *WModel) EvaluateIndices(x [][]int) (*objective.Result, error) {
	if err := o.CheckIndices(x); err != nil {
		return nil, err
	}
	return o.score(x), nil
}

func (o *WModel) score(x [][]int) *objective.Result {
	r := objective.NewResult(len(x), "raw")
	for n, row := range x {
		raw := ones(o.transform(row))
		v := o.n
		if raw < o.n {
			v = o.ranking[raw]
		}
		r.Fitness[n] = float64(v)
		r.Info["raw"][n] = float64(raw)
	}
	o.Orient(r.Fitness)
	return r
}

func (o *WModel) transform(row []int) []int {
	mu := o.cfg.Mu
	out := make([]int, o.n)
	for j := range out {
		if 2*ones(row[j*mu:(j+1)*mu]) >= mu {
			out[j] = 1
		}
	}
	if nu := o.cfg.Nu; nu > 1 {
		for start := 0; start < o.n; start += nu {
			parity := 0
			for j := start; j < min(start+nu, o.n); j++ {
				parity ^= out[j]
				out[j] = parity
			}
		}
	}
	return out
}

func (o *WModel) String() string {
	return o.Describe(
		fmt.Sprintf("neutrality mu: %d", o.cfg.Mu),
		fmt.Sprintf("epistasis nu: %d", o.cfg.Nu),
		fmt.Sprintf("ruggedness gamma: %d", o.cfg.Gamma),
	)
}
