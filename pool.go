package slab

import (
	"reflect"
	"unsafe"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Pool stores values of type T in slab memory. A value is live between the
// Acquire that built it and the Release that tears it down, the pool runs the
// destroy hook for every value that is still live when it is closed.
//
// Slab memory is not scanned by the garbage collector, so T must not contain
// pointers, strings, slices, maps, channels, funcs or interfaces. NewPool
// rejects such types.
type Pool[T any] struct {
	alloc   *Allocator
	destroy func(*T)
}

// NewPool returns a pool for values of type T that retains at most reservedLimit
// empty blocks. destroy may be nil, otherwise it runs on every value before its
// memory is given back.
func NewPool[T any](reservedLimit int, destroy func(*T)) (*Pool[T], error) {
	cfg := NewConfig(0)
	cfg.ReservedLimit = reservedLimit
	return NewPoolWithConfig(cfg, destroy)
}

// NewPoolWithConfig returns a pool using cfg for its allocator. The unit size of
// cfg is ignored and replaced with the size of T.
func NewPoolWithConfig[T any](cfg Config, destroy func(*T)) (*Pool[T], error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if hasPointers(typ) || typ.Align() > 8 {
		return nil, errors.Wrapf(ErrPointerType, "type %s", typ)
	}

	cfg.UnitSize = int(typ.Size())
	a, err := NewWithConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &Pool[T]{alloc: a, destroy: destroy}, nil
}

// hasPointers reports whether values of t hold anything the garbage collector
// would have to trace
func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Slice, reflect.String,
		reflect.Interface, reflect.Chan, reflect.Func:
		return true
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}

// Acquire stores a copy of v in a free slot and returns a pointer to it
func (p *Pool[T]) Acquire(v T) (*T, error) {
	ptr, err := p.alloc.Allocate()
	if err != nil {
		return nil, err
	}

	t := (*T)(ptr)
	*t = v
	return t, nil
}

// AcquireFunc zeroes a free slot and lets init build the value in place. If
// init fails, the slot is given back and its error is returned.
func (p *Pool[T]) AcquireFunc(init func(*T) error) (*T, error) {
	ptr, err := p.alloc.Allocate()
	if err != nil {
		return nil, err
	}

	t := (*T)(ptr)
	var zero T
	*t = zero

	if init != nil {
		if err := init(t); err != nil {
			var result error = err
			if derr := p.alloc.Deallocate(ptr); derr != nil {
				result = multierror.Append(result, derr)
			}
			return nil, result
		}
	}
	return t, nil
}

// Release runs the destroy hook on v and gives its slot back. v must not be
// used afterwards. Values that don't belong to this pool or were already
// released are rejected before the hook runs.
func (p *Pool[T]) Release(v *T) error {
	ptr := unsafe.Pointer(v)
	if err := p.alloc.check(ptr); err != nil {
		p.alloc.log.WithError(err).Warn("release rejected")
		return err
	}

	if p.destroy != nil {
		p.destroy(v)
	}
	var zero T
	*v = zero

	return p.alloc.Deallocate(ptr)
}

// Find returns a live value satisfying pred. pred is called from several
// goroutines at once.
func (p *Pool[T]) Find(pred func(*T) bool) (*T, bool) {
	ptr, ok := p.alloc.Find(func(payload []byte) bool {
		return pred((*T)(unsafe.Pointer(&payload[0])))
	})
	return (*T)(ptr), ok
}

// Each calls fn for every live value until fn returns false. fn must not
// acquire or release values of this pool.
func (p *Pool[T]) Each(fn func(*T) bool) {
	p.alloc.Walk(func(ptr unsafe.Pointer) bool {
		return fn((*T)(ptr))
	})
}

// Len returns the number of live values
func (p *Pool[T]) Len() int {
	return p.alloc.InUse()
}

// PrepareBulk makes sure the next n acquisitions don't need a new block
func (p *Pool[T]) PrepareBulk(n int) error {
	return p.alloc.PrepareBulk(n)
}

// Reclaim frees every empty block and returns how many were freed
func (p *Pool[T]) Reclaim() (int, error) {
	return p.alloc.Reclaim()
}

// Allocator returns the allocator behind the pool, for stats and inspection
func (p *Pool[T]) Allocator() *Allocator {
	return p.alloc
}

// Close runs the destroy hook on every live value and frees all blocks
func (p *Pool[T]) Close() error {
	if p.alloc.closed {
		return ErrClosed
	}

	if p.destroy != nil {
		p.alloc.Walk(func(ptr unsafe.Pointer) bool {
			p.destroy((*T)(ptr))
			return true
		})
	}

	return p.alloc.Close()
}
