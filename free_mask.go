package slab

import "math/bits"

// freeMask tracks the occupancy of the units of one block. Bit i set means
// unit i is free, bit i clear means it is allocated.
type freeMask uint64

const (
	maskAllFree freeMask = 1<<UnitsPerBlock - 1
	maskAllUsed freeMask = 0
)

func (m freeMask) isFree(i uint32) bool {
	return m&(1<<i) != 0
}

func (m *freeMask) setFree(i uint32) {
	*m |= 1 << i
}

func (m *freeMask) setUsed(i uint32) {
	*m &^= 1 << i
}

// lowestFree returns the index of the lowest free unit. The result is only
// meaningful when at least one bit is set.
func (m freeMask) lowestFree() uint32 {
	return uint32(bits.TrailingZeros64(uint64(m)))
}

// freeCount returns the number of free units
func (m freeMask) freeCount() int {
	return bits.OnesCount64(uint64(m))
}
