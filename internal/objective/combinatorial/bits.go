package combinatorial

import (
	"math/rand"
	"time"
)

func ones(bits []int) int {
	n := 0
	for _, b := range bits {
		n += b
	}
	return n
}

func hamming(a, b []int) int {
	d := 0
	for i := range a {
		if a[i] != b[i] {
			d++
		}
	}
	return d
}

// newRand returns a seeded generator; a zero seed draws one from the clock.
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
