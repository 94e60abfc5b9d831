//go:build unix

package slab

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// MmapSource backs every block with its own anonymous private mapping. The
// regions live outside of the Go heap and are unmapped when the block is freed.
type MmapSource struct{}

// Alloc maps size bytes of zeroed, page aligned memory
func (MmapSource) Alloc(size int) ([]byte, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(ErrSourceExhausted, "mmap %d bytes: %v", size, err)
	}
	return data, nil
}

// Free unmaps a region returned by Alloc
func (MmapSource) Free(mem []byte) error {
	if err := unix.Munmap(mem); err != nil {
		return errors.Wrap(err, "slab: munmap")
	}
	return nil
}
