// Package encoding provides the dense tensor type candidates are passed in,
// together with one-hot and bit-packing helpers shared by every objective.
package encoding

import (
	"fmt"
	"strings"
)

// Tensor is a dense, row-major array of float64 values with an explicit shape.
// A single candidate is a rank-2 tensor (dim, Cmax); a population is a rank-3
// tensor (population, dim, Cmax).
type Tensor struct {
	Shape []int
	Data  []float64
}

// NewTensor creates a tensor with the given shape over data.
// The data slice is not copied.
func NewTensor(shape []int, data []float64) (*Tensor, error) {
	size := 1
	for _, s := range shape {
		if s < 0 {
			return nil, fmt.Errorf("negative extent in shape %v", shape)
		}
		size *= s
	}
	if len(data) != size {
		return nil, fmt.Errorf("shape %v needs %d values, got %d", shape, size, len(data))
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: data}, nil
}

// Zeros returns a zero-filled tensor of the given shape.
func Zeros(shape ...int) *Tensor {
	size := 1
	for _, s := range shape {
		size *= s
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: make([]float64, size)}
}

// FromVector builds a rank-1 tensor from integer values.
func FromVector(v []int) *Tensor {
	data := make([]float64, len(v))
	for i, x := range v {
		data[i] = float64(x)
	}
	return &Tensor{Shape: []int{len(v)}, Data: data}
}

// FromMatrix builds a rank-2 tensor from a rectangular matrix.
func FromMatrix(m [][]float64) (*Tensor, error) {
	if len(m) == 0 {
		return &Tensor{Shape: []int{0, 0}}, nil
	}
	cols := len(m[0])
	data := make([]float64, 0, len(m)*cols)
	for i, row := range m {
		if len(row) != cols {
			return nil, fmt.Errorf("ragged matrix: row %d has %d columns, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return &Tensor{Shape: []int{len(m), cols}, Data: data}, nil
}

// FromIntMatrix builds a rank-2 tensor from a rectangular integer matrix.
func FromIntMatrix(m [][]int) (*Tensor, error) {
	f := make([][]float64, len(m))
	for i, row := range m {
		f[i] = make([]float64, len(row))
		for j, v := range row {
			f[i][j] = float64(v)
		}
	}
	return FromMatrix(f)
}

// FromPopulation builds a rank-3 tensor from a population of matrices.
func FromPopulation(p [][][]float64) (*Tensor, error) {
	if len(p) == 0 {
		return &Tensor{Shape: []int{0, 0, 0}}, nil
	}
	rows := len(p[0])
	cols := 0
	if rows > 0 {
		cols = len(p[0][0])
	}
	data := make([]float64, 0, len(p)*rows*cols)
	for n, m := range p {
		if len(m) != rows {
			return nil, fmt.Errorf("ragged population: member %d has %d rows, want %d", n, len(m), rows)
		}
		for i, row := range m {
			if len(row) != cols {
				return nil, fmt.Errorf("ragged population: member %d row %d has %d columns, want %d", n, i, len(row), cols)
			}
			data = append(data, row...)
		}
	}
	return &Tensor{Shape: []int{len(p), rows, cols}, Data: data}, nil
}

// Rank returns the number of axes.
func (t *Tensor) Rank() int {
	return len(t.Shape)
}

// Size returns the number of elements implied by the shape.
func (t *Tensor) Size() int {
	size := 1
	for _, s := range t.Shape {
		size *= s
	}
	return size
}

// Valid reports whether the data length matches the shape.
func (t *Tensor) Valid() bool {
	if t == nil {
		return false
	}
	for _, s := range t.Shape {
		if s < 0 {
			return false
		}
	}
	return len(t.Data) == t.Size()
}

// At returns the element at the given index.
func (t *Tensor) At(idx ...int) float64 {
	if len(idx) != len(t.Shape) {
		panic(fmt.Sprintf("encoding: index rank %d does not match tensor rank %d", len(idx), len(t.Shape)))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= t.Shape[i] {
			panic(fmt.Sprintf("encoding: index %v out of range for shape %v", idx, t.Shape))
		}
		off = off*t.Shape[i] + x
	}
	return t.Data[off]
}

// Expand returns a view with a unit axis prepended.
func (t *Tensor) Expand() *Tensor {
	return &Tensor{Shape: append([]int{1}, t.Shape...), Data: t.Data}
}

// Slice returns a view of entries [from, to) along the first axis.
func (t *Tensor) Slice(from, to int) *Tensor {
	if t.Rank() == 0 || from < 0 || to > t.Shape[0] || from > to {
		panic(fmt.Sprintf("encoding: slice [%d:%d] out of range for shape %v", from, to, t.Shape))
	}
	stride := 1
	for _, s := range t.Shape[1:] {
		stride *= s
	}
	shape := append([]int{to - from}, t.Shape[1:]...)
	return &Tensor{Shape: shape, Data: t.Data[from*stride : to*stride]}
}

// IntMatrix returns a rank-2 tensor as an integer matrix, truncating values.
func (t *Tensor) IntMatrix() ([][]int, error) {
	if t.Rank() != 2 {
		return nil, fmt.Errorf("IntMatrix needs a rank-2 tensor, got shape %v", t.Shape)
	}
	rows, cols := t.Shape[0], t.Shape[1]
	out := make([][]int, rows)
	for i := range out {
		out[i] = make([]int, cols)
		for j := range out[i] {
			out[i][j] = int(t.Data[i*cols+j])
		}
	}
	return out, nil
}

func (t *Tensor) String() string {
	if t == nil {
		return "Tensor(<nil>)"
	}
	dims := make([]string, len(t.Shape))
	for i, s := range t.Shape {
		dims[i] = fmt.Sprint(s)
	}
	return fmt.Sprintf("Tensor(%s)", strings.Join(dims, "x"))
}
