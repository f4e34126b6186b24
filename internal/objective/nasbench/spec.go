package nasbench

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
	"gonum.org/v1/gonum/mat"
)

// Operation labels of a NAS-Bench-101 cell.
const (
	OpInput     = "input"
	OpOutput    = "output"
	OpConv1x1   = "conv1x1-bn-relu"
	OpConv3x3   = "conv3x3-bn-relu"
	OpMaxPool   = "maxpool3x3"
	MaxVertices = 7
	MaxEdges    = 9
)

// availableOps is the dataset's op order; fingerprints label ops by their
// index in it.
var availableOps = []string{OpConv3x3, OpConv1x1, OpMaxPool}

// ModelSpec is a cell: a DAG over vertices in topological order, given as a
// strictly upper-triangular adjacency matrix, with one op label per vertex.
// Vertices that are not on a path from the input to the output are pruned
// on construction.
type ModelSpec struct {
	// Matrix is the pruned adjacency matrix, nil when the spec is invalid.
	Matrix *mat.Dense
	// Ops are the pruned op labels, nil when the spec is invalid.
	Ops []string

	valid bool
}

// NewModelSpec builds and prunes a spec. It fails when the matrix is not
// square, not strictly upper triangular, or does not match len(ops).
func NewModelSpec(matrix mat.Matrix, ops []string) (*ModelSpec, error) {
	r, c := matrix.Dims()
	if r != c {
		return nil, fmt.Errorf("adjacency matrix must be square, got %dx%d", r, c)
	}
	if len(ops) != r {
		return nil, fmt.Errorf("%d ops for %d vertices", len(ops), r)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := matrix.At(i, j)
			if v != 0 && v != 1 {
				return nil, fmt.Errorf("adjacency entry (%d,%d) is %v, want 0 or 1", i, j, v)
			}
			if v == 1 && j <= i {
				return nil, fmt.Errorf("adjacency matrix must be strictly upper triangular, edge (%d,%d)", i, j)
			}
		}
	}

	s := &ModelSpec{
		Matrix: mat.DenseCopyOf(matrix),
		Ops:    append([]string(nil), ops...),
		valid:  true,
	}
	s.prune()
	return s, nil
}

// MatrixFromRows converts an integer adjacency matrix.
func MatrixFromRows(rows [][]int) *mat.Dense {
	n := len(rows)
	if n == 0 {
		return &mat.Dense{}
	}
	m := mat.NewDense(n, n, nil)
	for i, row := range rows {
		for j, v := range row {
			m.Set(i, j, float64(v))
		}
	}
	return m
}

func (s *ModelSpec) prune() {
	n, _ := s.Matrix.Dims()
	if n == 0 {
		s.invalidate()
		return
	}

	forward := simple.NewDirectedGraph()
	backward := simple.NewDirectedGraph()
	for i := 0; i < n; i++ {
		forward.AddNode(simple.Node(i))
		backward.AddNode(simple.Node(i))
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if s.Matrix.At(i, j) == 1 {
				forward.SetEdge(forward.NewEdge(simple.Node(i), simple.Node(j)))
				backward.SetEdge(backward.NewEdge(simple.Node(j), simple.Node(i)))
			}
		}
	}

	fromInput := reachable(forward, 0)
	toOutput := reachable(backward, int64(n-1))

	var keep []int
	for i := 0; i < n; i++ {
		if fromInput[int64(i)] && toOutput[int64(i)] {
			keep = append(keep, i)
		}
	}
	if n-len(keep) > n-2 {
		s.invalidate()
		return
	}
	if len(keep) == n {
		return
	}

	pruned := mat.NewDense(len(keep), len(keep), nil)
	ops := make([]string, len(keep))
	for a, i := range keep {
		ops[a] = s.Ops[i]
		for b, j := range keep {
			pruned.Set(a, b, s.Matrix.At(i, j))
		}
	}
	s.Matrix = pruned
	s.Ops = ops
}

func reachable(g traverse.Graph, from int64) map[int64]bool {
	seen := map[int64]bool{}
	bf := traverse.BreadthFirst{
		Visit: func(n graph.Node) { seen[n.ID()] = true },
	}
	bf.Walk(g, simple.Node(from), nil)
	seen[from] = true
	return seen
}

func (s *ModelSpec) invalidate() {
	s.Matrix = nil
	s.Ops = nil
	s.valid = false
}

// Valid reports whether the input and output are connected.
func (s *ModelSpec) Valid() bool { return s.valid }

// NumVertices returns the number of vertices after pruning.
func (s *ModelSpec) NumVertices() int { return len(s.Ops) }

// NumEdges returns the number of edges after pruning.
func (s *ModelSpec) NumEdges() int {
	if s.Matrix == nil {
		return 0
	}
	return int(mat.Sum(s.Matrix))
}

// CheckSpec reports ErrOutOfDomain when the spec cannot be in the dataset.
func CheckSpec(s *ModelSpec) error {
	if !s.valid {
		return fmt.Errorf("%w: invalid spec, provided graph is disconnected", ErrOutOfDomain)
	}
	if v := s.NumVertices(); v > MaxVertices {
		return fmt.Errorf("%w: too many vertices, got %d (max vertices = %d)", ErrOutOfDomain, v, MaxVertices)
	}
	if e := s.NumEdges(); e > MaxEdges {
		return fmt.Errorf("%w: too many edges, got %d (max edges = %d)", ErrOutOfDomain, e, MaxEdges)
	}
	if s.Ops[0] != OpInput {
		return fmt.Errorf("%w: first op should be %q", ErrOutOfDomain, OpInput)
	}
	if s.Ops[len(s.Ops)-1] != OpOutput {
		return fmt.Errorf("%w: last op should be %q", ErrOutOfDomain, OpOutput)
	}
	for _, op := range s.Ops[1 : len(s.Ops)-1] {
		if opIndex(op) < 0 {
			return fmt.Errorf("%w: unsupported op %q", ErrOutOfDomain, op)
		}
	}
	return nil
}

func opIndex(op string) int {
	for i, a := range availableOps {
		if a == op {
			return i
		}
	}
	return -1
}

// Hash returns the module fingerprint used as the dataset key. Isomorphic
// cells share a fingerprint. The spec must pass CheckSpec.
func (s *ModelSpec) Hash() string {
	n := len(s.Ops)
	labels := make([]int, n)
	for i, op := range s.Ops {
		switch {
		case i == 0:
			labels[i] = -1
		case i == n-1:
			labels[i] = -2
		default:
			labels[i] = opIndex(op)
		}
	}

	in := make([]int, n)
	out := make([]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if s.Matrix.At(i, j) == 1 {
				out[i]++
				in[j]++
			}
		}
	}

	hashes := make([]string, n)
	for v := 0; v < n; v++ {
		hashes[v] = md5Hex(fmt.Sprintf("(%d, %d, %d)", out[v], in[v], labels[v]))
	}

	// n rounds cover the longest path.
	for round := 0; round < n; round++ {
		next := make([]string, n)
		for v := 0; v < n; v++ {
			var ins, outs []string
			for w := 0; w < n; w++ {
				if s.Matrix.At(w, v) == 1 {
					ins = append(ins, hashes[w])
				}
				if s.Matrix.At(v, w) == 1 {
					outs = append(outs, hashes[w])
				}
			}
			sort.Strings(ins)
			sort.Strings(outs)
			next[v] = md5Hex(strings.Join(ins, "") + "|" + strings.Join(outs, "") + "|" + hashes[v])
		}
		hashes = next
	}

	sort.Strings(hashes)
	quoted := make([]string, n)
	for i, h := range hashes {
		quoted[i] = "'" + h + "'"
	}
	return md5Hex("[" + strings.Join(quoted, ", ") + "]")
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
