package slab

import (
	"sync/atomic"
	"unsafe"

	"github.com/bits-and-blooms/bitset"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// lastToken hands out the owner tokens stamped into block headers
var lastToken atomic.Uint64

// Allocator serves fixed size units out of 64-unit blocks. It keeps all of its
// blocks in one list, remembers the block that last had capacity as its cache
// and retains up to ReservedLimit empty blocks before handing memory back to
// its Source.
//
// An Allocator is not safe for concurrent use.
type Allocator struct {
	src     Source
	log     logrus.FieldLogger
	token   uint64
	closed  bool
	promote int

	unitSize uintptr // payload size, multiple of 8
	stride   uintptr // unit header plus payload

	// blocks is indexed by the index part of a handle. vacant has a bit set
	// for every table slot that doesn't hold a live block.
	blocks []block
	vacant *bitset.BitSet

	head  int32
	cache int32

	total         int
	reserved      int
	reservedLimit int
	inUse         int
}

// New returns an allocator for units of unitSize bytes that retains at most
// reservedLimit empty blocks. All other settings are the defaults of NewConfig.
func New(unitSize, reservedLimit int) (*Allocator, error) {
	cfg := NewConfig(unitSize)
	cfg.ReservedLimit = reservedLimit
	return NewWithConfig(cfg)
}

// NewWithConfig returns an allocator with the given configuration. One empty
// block is created right away, so this fails if the memory source can't
// provide it.
func NewWithConfig(cfg Config) (*Allocator, error) {
	cfg = cfg.normalize()
	if cfg.UnitSize < 0 || cfg.UnitSize > MaxUnitSize {
		return nil, errors.Wrapf(ErrUnitSize, "got %d, limit is %d", cfg.UnitSize, MaxUnitSize)
	}

	size := alignUp(uintptr(cfg.UnitSize))
	a := &Allocator{
		src:           cfg.Source,
		token:         lastToken.Add(1),
		promote:       cfg.PromoteThreshold,
		unitSize:      size,
		stride:        unitHeaderSize + size,
		vacant:        bitset.New(0),
		head:          nilIndex,
		cache:         nilIndex,
		reservedLimit: cfg.ReservedLimit,
	}
	a.log = cfg.Logger.WithFields(logrus.Fields{
		"unit_size": a.unitSize,
		"owner":     a.token,
	})

	idx, err := a.grow()
	if err != nil {
		return nil, err
	}
	a.cache = idx

	return a, nil
}

// alignUp rounds a unit size up to the next multiple of 8. A size of 0 is
// treated as 8 so every payload is addressable.
func alignUp(size uintptr) uintptr {
	if size == 0 {
		size = 1
	}
	return (size + 7) &^ 7
}

// UnitSize returns the payload size of every unit in bytes
func (a *Allocator) UnitSize() int {
	return int(a.unitSize)
}

// TotalBlocks returns the number of live blocks
func (a *Allocator) TotalBlocks() int {
	return a.total
}

// ReservedBlocks returns the number of live blocks that are empty
func (a *Allocator) ReservedBlocks() int {
	return a.reserved
}

// ReservedLimit returns the number of empty blocks retained before one is evicted
func (a *Allocator) ReservedLimit() int {
	return a.reservedLimit
}

// InUse returns the number of units currently handed out
func (a *Allocator) InUse() int {
	return a.inUse
}

// Bytes returns the payload of the unit at p as a byte slice of UnitSize bytes.
// p must be a live result of Allocate.
func (a *Allocator) Bytes(p unsafe.Pointer) []byte {
	return unsafe.Slice((*byte)(p), a.unitSize)
}

// Allocate hands out the payload address of a free unit. It serves from the
// cached block when possible, otherwise it scans the block list from the front
// and creates a new block when every block is full. The only error is a
// failure of the memory source while creating that block.
func (a *Allocator) Allocate() (unsafe.Pointer, error) {
	if a.closed {
		return nil, ErrClosed
	}

	if a.cache != nilIndex && !a.blocks[a.cache].full() {
		return a.take(a.cache), nil
	}

	steps := 0
	current := a.head
	for current != nilIndex && a.blocks[current].full() {
		current = a.blocks[current].next
		steps++
	}

	if current == nilIndex {
		idx, err := a.grow()
		if err != nil {
			return nil, err
		}
		current = idx
	} else if steps > a.promote {
		a.unlink(current)
		a.pushFront(current)
	}

	a.cache = current
	return a.take(current), nil
}

// take serves one unit out of the block at idx, which must not be full
func (a *Allocator) take(idx int32) unsafe.Pointer {
	b := &a.blocks[idx]
	if b.empty() {
		a.decReserved()
	}
	a.inUse++
	return b.take(a.stride).payload()
}

// Deallocate returns the unit at p to its block. Misuse (nil, a pointer of
// another allocator, a unit that is already free) is reported through the
// returned error and the logger, and leaves the allocator untouched.
//
// When the block becomes empty it counts as reserved; once there are more
// reserved blocks than the limit allows, the block is handed back to the
// memory source right away.
func (a *Allocator) Deallocate(p unsafe.Pointer) error {
	if a.closed {
		return ErrClosed
	}

	idx, u, err := a.locate(p)
	if err != nil {
		a.log.WithError(err).Warn("deallocate rejected")
		return err
	}

	b := &a.blocks[idx]
	if b.free.isFree(u.slot) {
		a.log.WithField("slot", u.slot).Warn("deallocate: double free")
		return errors.Wrapf(ErrDoubleFree, "slot %d", u.slot)
	}

	b.release(u.slot)
	a.inUse--
	if !b.empty() {
		return nil
	}

	a.reserved++
	if a.reserved <= a.reservedLimit {
		return nil
	}

	a.unlink(idx)
	a.decReserved()
	if a.cache == idx {
		a.cache = a.head
	}
	a.log.WithField("block", idx).Debug("evicting empty block")
	return a.destroy(idx)
}

// locate recovers the block table index and the unit header of a payload
// pointer and checks that both belong to this allocator. It doesn't modify
// any state.
func (a *Allocator) locate(p unsafe.Pointer) (int32, *unit, error) {
	if p == nil {
		return 0, nil, ErrNilPointer
	}

	u := unitFromPayload(p)
	if u.slot >= UnitsPerBlock {
		return 0, nil, errors.Wrapf(ErrBadSlot, "slot %d", u.slot)
	}

	// a unit of this allocator sits at a fixed distance from its block start,
	// anything else was laid out with a different stride
	if uintptr(u.offset) != blockHeaderSize+uintptr(u.slot)*a.stride {
		return 0, nil, errors.Wrap(ErrForeignPointer, "unit offset mismatch")
	}

	hdr := u.header()
	if hdr.owner != a.token {
		return 0, nil, errors.Wrap(ErrForeignPointer, "owner mismatch")
	}

	idx := hdr.handle.index()
	if idx < 0 || int(idx) >= len(a.blocks) {
		return 0, nil, errors.Wrapf(ErrForeignPointer, "block index %d out of range", idx)
	}
	b := &a.blocks[idx]
	if !b.live || b.gen != hdr.handle.gen() || b.base() != unsafe.Pointer(hdr) {
		return 0, nil, errors.Wrapf(ErrForeignPointer, "stale block handle %d", idx)
	}

	return idx, u, nil
}

// check returns nil if p is a unit of this allocator that is currently handed out
func (a *Allocator) check(p unsafe.Pointer) error {
	if a.closed {
		return ErrClosed
	}

	idx, u, err := a.locate(p)
	if err != nil {
		return err
	}
	if a.blocks[idx].free.isFree(u.slot) {
		return errors.Wrapf(ErrDoubleFree, "slot %d", u.slot)
	}
	return nil
}

// PrepareBulk makes sure the cached block has at least n free units, so the
// next n calls to Allocate are served without creating a block. When no block
// has enough room, a new one is created and cached.
func (a *Allocator) PrepareBulk(n int) error {
	if a.closed {
		return ErrClosed
	}
	if n > UnitsPerBlock {
		a.log.WithField("count", n).Warn("prepare bulk: count too large")
		return errors.Wrapf(ErrBulkTooLarge, "got %d", n)
	}

	current := a.head
	for current != nilIndex && a.blocks[current].free.freeCount() < n {
		current = a.blocks[current].next
	}

	if current == nilIndex {
		idx, err := a.grow()
		if err != nil {
			return err
		}
		current = idx
	}

	a.cache = current
	return nil
}

// Reclaim hands every empty block back to the memory source, regardless of the
// reserved limit, and returns how many blocks were freed. Afterwards the cache
// points to the front of the list.
func (a *Allocator) Reclaim() (int, error) {
	if a.closed {
		return 0, ErrClosed
	}

	var result error
	freed := 0
	current := a.head
	for current != nilIndex {
		next := a.blocks[current].next
		if a.blocks[current].empty() {
			a.unlink(current)
			a.decReserved()
			if err := a.destroy(current); err != nil {
				result = multierror.Append(result, err)
			}
			freed++
		}
		current = next
	}

	a.cache = a.head
	a.log.WithField("freed", freed).Debug("reclaimed empty blocks")

	return freed, result
}

// Close hands all blocks back to the memory source. Outstanding units become
// invalid and the allocator can't be used anymore.
func (a *Allocator) Close() error {
	if a.closed {
		return ErrClosed
	}

	var result error
	for a.head != nilIndex {
		idx := a.head
		if a.blocks[idx].empty() {
			a.decReserved()
		}
		a.unlink(idx)
		if err := a.destroy(idx); err != nil {
			result = multierror.Append(result, err)
		}
	}

	a.cache = nilIndex
	a.inUse = 0
	a.closed = true

	return result
}

// grow creates a new block, links it at the front of the list and returns its
// index. The new block is empty, so it counts as reserved.
func (a *Allocator) grow() (int32, error) {
	idx, gen := a.claimSlot()

	b, err := newBlock(a.src, a.token, makeHandle(idx, gen), a.stride)
	if err != nil {
		a.vacant.Set(uint(idx))
		a.log.WithError(err).Error("failed to create block")
		return nilIndex, errors.Wrap(err, "slab: create block")
	}

	a.blocks[idx] = b
	a.pushFront(idx)
	a.total++
	a.reserved++
	a.log.WithField("block", idx).Debug("created block")

	return idx, nil
}

// claimSlot picks the lowest vacant slot of the block table, or appends one,
// and returns its index with the generation the next block in it will carry
func (a *Allocator) claimSlot() (int32, uint32) {
	if i, ok := a.vacant.NextSet(0); ok {
		a.vacant.Clear(i)
		idx := int32(i)
		return idx, a.blocks[idx].gen + 1
	}

	a.blocks = append(a.blocks, block{})
	return int32(len(a.blocks) - 1), 1
}

// destroy frees the block at idx, which must already be unlinked, and vacates its table slot
func (a *Allocator) destroy(idx int32) error {
	if a.total == 0 {
		panic("slab: total block count underflow")
	}
	a.total--
	a.vacant.Set(uint(idx))

	if err := a.blocks[idx].destroy(a.src); err != nil {
		a.log.WithError(err).WithField("block", idx).Error("failed to free block")
		return err
	}
	return nil
}

func (a *Allocator) decReserved() {
	if a.reserved == 0 {
		panic("slab: reserved block count underflow")
	}
	a.reserved--
}

// pushFront links the block at idx in as the new head of the list
func (a *Allocator) pushFront(idx int32) {
	b := &a.blocks[idx]
	b.prev = nilIndex
	b.next = a.head
	if a.head != nilIndex {
		a.blocks[a.head].prev = idx
	}
	a.head = idx
}

// unlink removes the block at idx from the list and isolates it
func (a *Allocator) unlink(idx int32) {
	b := &a.blocks[idx]
	if b.prev != nilIndex {
		a.blocks[b.prev].next = b.next
	} else {
		a.head = b.next
	}
	if b.next != nilIndex {
		a.blocks[b.next].prev = b.prev
	}
	b.next = nilIndex
	b.prev = nilIndex
}
