package nasbench

import (
	"sync"

	"gonum.org/v1/gonum/mat"
)

// matrixPool recycles square adjacency matrices between evaluations. It is
// safe for concurrent use.
type matrixPool struct {
	pool sync.Pool
}

func newMatrixPool(n int) *matrixPool {
	return &matrixPool{pool: sync.Pool{
		New: func() any { return mat.NewDense(n, n, nil) },
	}}
}

// GetDense returns a zeroed matrix from the pool or creates a new one
func (p *matrixPool) GetDense() *mat.Dense {
	m := p.pool.Get().(*mat.Dense)
	m.Zero()
	return m
}

// PutDense returns a matrix to the pool
func (p *matrixPool) PutDense(m *mat.Dense) {
	p.pool.Put(m)
}
