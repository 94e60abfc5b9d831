//go:build !unix

package slab

// MmapSource is only available on unix platforms, elsewhere it fails every request
type MmapSource struct{}

func (MmapSource) Alloc(int) ([]byte, error) {
	return nil, ErrMmapUnsupported
}

func (MmapSource) Free([]byte) error {
	return ErrMmapUnsupported
}
