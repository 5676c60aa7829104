package techtree

import (
	"math/bits"
	"slices"
)

// bitset is an immutable set of technology handles. Mutating operations
// return a copy so that older states keep their own view.
type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) has(h int) bool {
	if h < 0 || h/64 >= len(b) {
		return false
	}
	return b[h/64]&(1<<(uint(h)%64)) != 0
}

func (b bitset) with(h int) bitset {
	c := slices.Clone(b)
	c[h/64] |= 1 << (uint(h) % 64)
	return c
}

func (b bitset) count() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}
