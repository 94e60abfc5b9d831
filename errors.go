package slab

import "github.com/pkg/errors"

var (
	// ErrUnitSize is returned when an allocator is configured with a unit size
	// outside of 0-MaxUnitSize.
	ErrUnitSize = errors.New("slab: unit size out of range")

	// ErrNilPointer is returned when nil is handed to Deallocate.
	ErrNilPointer = errors.New("slab: nil pointer")

	// ErrBadSlot is returned when the unit header in front of a pointer carries
	// a slot index that can't exist in a block.
	ErrBadSlot = errors.New("slab: invalid unit slot")

	// ErrForeignPointer is returned when a pointer was not handed out by the
	// allocator it is returned to.
	ErrForeignPointer = errors.New("slab: pointer not owned by this allocator")

	// ErrDoubleFree is returned when a unit that is already free gets freed again.
	ErrDoubleFree = errors.New("slab: unit is already free")

	// ErrBulkTooLarge is returned by PrepareBulk for counts above UnitsPerBlock.
	ErrBulkTooLarge = errors.New("slab: bulk count exceeds units per block")

	// ErrClosed is returned by every operation on a closed allocator.
	ErrClosed = errors.New("slab: allocator is closed")

	// ErrSourceExhausted is returned when a memory source can't satisfy a block request.
	ErrSourceExhausted = errors.New("slab: memory source exhausted")

	// ErrMisaligned is returned when a memory source hands out a region that is not 8-byte aligned.
	ErrMisaligned = errors.New("slab: memory source returned misaligned region")

	// ErrPointerType is returned by NewPool for value types the pool can't hold.
	ErrPointerType = errors.New("slab: pool value type must be pointer-free with alignment <= 8")

	// ErrMmapUnsupported is returned by MmapSource on platforms without mmap.
	ErrMmapUnsupported = errors.New("slab: mmap is not supported on this platform")
)
