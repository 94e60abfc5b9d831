package slab

import (
	"sync"

	"github.com/pkg/errors"
)

// Source is the raw memory provider behind an allocator. Every block is one
// Alloc call, and the allocator only ever frees a region it received from Alloc,
// always as a whole.
type Source interface {
	// Alloc returns a region of at least size bytes, aligned to 8 bytes
	Alloc(size int) ([]byte, error)

	// Free releases a region previously returned by Alloc
	Free(mem []byte) error
}

// HeapSource allocates blocks on the Go heap. The garbage collector reclaims a
// region once the allocator drops its last reference to it.
type HeapSource struct{}

// Alloc returns a zeroed byte slice of the given size
func (HeapSource) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Errorf("slab: invalid region size %d", size)
	}
	return make([]byte, size), nil
}

// Free is a no-op, the region becomes garbage once it's unreferenced
func (HeapSource) Free([]byte) error {
	return nil
}

// LimitSource wraps another Source and refuses requests that would push the
// number of outstanding bytes over its limit. It is safe for concurrent use so
// several allocators can share one budget.
type LimitSource struct {
	src   Source
	limit int

	mu   sync.Mutex
	used int
}

// NewLimitSource returns a Source that allows at most limit outstanding bytes from src
func NewLimitSource(src Source, limit int) *LimitSource {
	return &LimitSource{src: src, limit: limit}
}

// Alloc forwards to the wrapped source if the budget allows it, otherwise it
// returns ErrSourceExhausted
func (l *LimitSource) Alloc(size int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.used+size > l.limit {
		return nil, errors.Wrapf(ErrSourceExhausted, "%d of %d bytes in use, requested %d", l.used, l.limit, size)
	}

	mem, err := l.src.Alloc(size)
	if err != nil {
		return nil, err
	}
	l.used += len(mem)
	return mem, nil
}

// Free returns the region to the wrapped source and credits the budget
func (l *LimitSource) Free(mem []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.src.Free(mem); err != nil {
		return err
	}
	l.used -= len(mem)
	return nil
}

// Used returns the number of bytes currently handed out
func (l *LimitSource) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used
}
