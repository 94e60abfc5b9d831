// Package slab implements a fixed size unit allocator.
//
// An Allocator hands out units of one size, up to 4096 bytes, from blocks of
// 64 units each. A single 64-bit word per block tracks which units are free,
// and every payload is preceded by a small header that leads back to its
// block, so Deallocate finds the owning block without any search.
//
// Blocks are kept in one list. The allocator caches the block it last served
// from, scans the list from the front when the cache is full and moves blocks
// that were found deep in the list to the front. Empty blocks are retained up
// to a configurable limit before their memory is given back to the Source.
//
//	a, err := slab.New(32, 2)
//	if err != nil {
//		return err
//	}
//	defer a.Close()
//
//	p, err := a.Allocate()
//	if err != nil {
//		return err
//	}
//	copy(a.Bytes(p), payload)
//	...
//	err = a.Deallocate(p)
//
// Pool builds typed values in slab memory on top of an Allocator.
//
// Slab memory is not scanned by the garbage collector. Payloads must not be
// used to hold Go pointers, and neither Allocator nor Pool are safe for
// concurrent use.
package slab
