package slab

import (
	"unsafe"

	"github.com/pkg/errors"
)

// UnitsPerBlock is the number of units every block holds, one per bit of its free mask
const UnitsPerBlock = 64

// nilIndex terminates the block list and marks an unset cache
const nilIndex int32 = -1

// handle identifies a block in the allocator's block table. The low 32 bits are
// the table index, the high 32 bits the generation of that table slot, so a
// handle of a destroyed block never resolves to the block that reuses its slot.
type handle uint64

func makeHandle(idx int32, gen uint32) handle {
	return handle(uint64(gen)<<32 | uint64(uint32(idx)))
}

func (h handle) index() int32 {
	return int32(uint32(h))
}

func (h handle) gen() uint32 {
	return uint32(h >> 32)
}

// blockHeader sits at the start of every block's memory region, it's what a
// unit's offset leads to
type blockHeader struct {
	owner  uint64 // token of the allocator that created the block
	handle handle
}

const blockHeaderSize = unsafe.Sizeof(blockHeader{})

// block is the allocator's bookkeeping for one 64-unit region. The region
// itself only carries the block header and the units, everything that changes
// on the hot path lives here.
type block struct {
	mem  []byte
	free freeMask
	gen  uint32
	next int32
	prev int32
	live bool
}

// blockSize returns the number of bytes needed for a block of units with the given stride
func blockSize(stride uintptr) int {
	return int(blockHeaderSize + UnitsPerBlock*stride)
}

// newBlock requests a region from the memory source and lays out the block
// header and all 64 unit headers in it. On success every unit is free and the
// block is not linked into any list.
func newBlock(src Source, owner uint64, h handle, stride uintptr) (block, error) {
	mem, err := src.Alloc(blockSize(stride))
	if err != nil {
		return block{}, err
	}
	if len(mem) < blockSize(stride) {
		src.Free(mem)
		return block{}, errors.Wrapf(ErrSourceExhausted, "got %d bytes, need %d", len(mem), blockSize(stride))
	}
	if uintptr(unsafe.Pointer(&mem[0]))%8 != 0 {
		src.Free(mem)
		return block{}, ErrMisaligned
	}

	b := block{
		mem:  mem,
		free: maskAllFree,
		gen:  h.gen(),
		next: nilIndex,
		prev: nilIndex,
		live: true,
	}

	hdr := b.header()
	hdr.owner = owner
	hdr.handle = h

	for i := uint32(0); i < UnitsPerBlock; i++ {
		offset := blockHeaderSize + uintptr(i)*stride
		u := (*unit)(unsafe.Add(b.base(), offset))
		u.slot = i
		u.offset = uint32(offset)
	}

	return b, nil
}

// base returns the address of the first byte of the block's region
func (b *block) base() unsafe.Pointer {
	return unsafe.Pointer(&b.mem[0])
}

func (b *block) header() *blockHeader {
	return (*blockHeader)(b.base())
}

// unitAt returns the header of the unit at the given slot
func (b *block) unitAt(slot uint32, stride uintptr) *unit {
	return (*unit)(unsafe.Add(b.base(), blockHeaderSize+uintptr(slot)*stride))
}

func (b *block) full() bool {
	return b.free == maskAllUsed
}

func (b *block) empty() bool {
	return b.free == maskAllFree
}

func (b *block) used() int {
	return UnitsPerBlock - b.free.freeCount()
}

// take marks the lowest free unit as used and returns it. The block must not be full.
func (b *block) take(stride uintptr) *unit {
	slot := b.free.lowestFree()
	b.free.setUsed(slot)
	return b.unitAt(slot, stride)
}

// release marks the unit at slot as free again. Callers must have checked
// that it was in use.
func (b *block) release(slot uint32) {
	b.free.setFree(slot)
}

// destroy hands the whole region back to the memory source
func (b *block) destroy(src Source) error {
	mem := b.mem
	b.mem = nil
	b.live = false
	return src.Free(mem)
}
