package encoding

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// OneHot converts category indices into one-hot rows. The result keeps every
// leading axis of indices and appends an axis of length maxSize.
//
//	OneHot([1 2 0 2], 3) = [[0 1 0] [0 0 1] [1 0 0] [0 0 1]]
func OneHot(indices *Tensor, maxSize int) (*Tensor, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("max size (%d) must be a positive integer", maxSize)
	}
	if !indices.Valid() {
		return nil, fmt.Errorf("malformed index tensor %v", indices)
	}
	out := Zeros(append(append([]int(nil), indices.Shape...), maxSize)...)
	for i, v := range indices.Data {
		if v != math.Trunc(v) || v < 0 || v >= float64(maxSize) {
			return nil, fmt.Errorf("index %v at position %d is outside [0, %d)", v, i, maxSize)
		}
		out.Data[i*maxSize+int(v)] = 1
	}
	return out, nil
}

// OneHotVector encodes a single candidate of indices as a (len(x), maxSize) tensor.
func OneHotVector(x []int, maxSize int) (*Tensor, error) {
	return OneHot(FromVector(x), maxSize)
}

// OneHotPopulation encodes a population of index rows as a
// (len(x), len(x[0]), maxSize) tensor.
func OneHotPopulation(x [][]int, maxSize int) (*Tensor, error) {
	m, err := FromIntMatrix(x)
	if err != nil {
		return nil, err
	}
	return OneHot(m, maxSize)
}

// MustOneHotVector is like OneHotVector but panics on error.
func MustOneHotVector(x []int, maxSize int) *Tensor {
	t, err := OneHotVector(x, maxSize)
	if err != nil {
		panic(err)
	}
	return t
}

// MustOneHotPopulation is like OneHotPopulation but panics on error.
func MustOneHotPopulation(x [][]int, maxSize int) *Tensor {
	t, err := OneHotPopulation(x, maxSize)
	if err != nil {
		panic(err)
	}
	return t
}

// ArgMax reduces the last axis to the index of its maximum. Ties resolve to
// the first maximum.
func ArgMax(t *Tensor) (*Tensor, error) {
	if !t.Valid() || t.Rank() == 0 {
		return nil, fmt.Errorf("cannot reduce tensor %v", t)
	}
	last := t.Shape[t.Rank()-1]
	if last == 0 {
		return nil, fmt.Errorf("cannot arg-max an empty axis of %v", t)
	}
	out := Zeros(t.Shape[:t.Rank()-1]...)
	for i := range out.Data {
		out.Data[i] = float64(floats.MaxIdx(t.Data[i*last : (i+1)*last]))
	}
	return out, nil
}

// PackBits converts bit strings along the last axis to integers. With reverse
// set, the first element of the axis is the most significant bit.
//
//	PackBits([0 0 1 1], true)  = 3
//	PackBits([0 0 1 1], false) = 12
func PackBits(bits *Tensor, reverse bool) (*Tensor, error) {
	if !bits.Valid() || bits.Rank() == 0 {
		return nil, fmt.Errorf("cannot pack tensor %v", bits)
	}
	n := bits.Shape[bits.Rank()-1]
	weights := make([]float64, n)
	for i := range weights {
		p := i
		if reverse {
			p = n - 1 - i
		}
		weights[i] = math.Ldexp(1, p)
	}
	out := Zeros(bits.Shape[:bits.Rank()-1]...)
	for i := range out.Data {
		out.Data[i] = floats.Dot(bits.Data[i*n:(i+1)*n], weights)
	}
	return out, nil
}

// PackRow is the integer form of PackBits for a single bit string.
func PackRow(bits []int, reverse bool) int {
	v := 0
	n := len(bits)
	for i, b := range bits {
		p := i
		if reverse {
			p = n - 1 - i
		}
		v += b << p
	}
	return v
}
