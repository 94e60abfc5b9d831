package slab

import (
	"runtime"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sync/errgroup"
)

// Walk calls fn with the payload address of every allocated unit, block by
// block in list order and by slot within a block. It stops early when fn
// returns false. fn must not allocate or deallocate on this allocator.
func (a *Allocator) Walk(fn func(p unsafe.Pointer) bool) {
	for current := a.head; current != nilIndex; current = a.blocks[current].next {
		b := &a.blocks[current]
		for slot := uint32(0); slot < UnitsPerBlock; slot++ {
			if b.free.isFree(slot) {
				continue
			}
			if !fn(b.unitAt(slot, a.stride).payload()) {
				return
			}
		}
	}
}

// Find searches all allocated units for one whose payload satisfies match.
// The blocks are searched in parallel, so match must be safe to call from
// several goroutines, and no other call may be made on the allocator until
// Find returns. When several units match, any one of them may be returned.
func (a *Allocator) Find(match func(payload []byte) bool) (unsafe.Pointer, bool) {
	var result atomic.Pointer[byte]

	g := errgroup.Group{}
	g.SetLimit(runtime.GOMAXPROCS(0))

	for current := a.head; current != nilIndex; current = a.blocks[current].next {
		b := &a.blocks[current]
		if b.empty() {
			continue
		}

		g.Go(func() error {
			for slot := uint32(0); slot < UnitsPerBlock; slot++ {
				// another block already produced a hit
				if result.Load() != nil {
					return nil
				}
				if b.free.isFree(slot) {
					continue
				}

				p := b.unitAt(slot, a.stride).payload()
				if match(a.Bytes(p)) {
					result.CompareAndSwap(nil, (*byte)(p))
					return nil
				}
			}
			return nil
		})

		if result.Load() != nil {
			break
		}
	}

	// the workers never return an error
	_ = g.Wait()

	found := result.Load()
	return unsafe.Pointer(found), found != nil
}
