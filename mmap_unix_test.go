//go:build unix

package slab

import (
	"testing"
	"unsafe"

	"github.com/sirupsen/logrus/hooks/test"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMmapSource(t *testing.T) {
	Convey("When backing an allocator with mmap", t, func() {
		cfg := NewConfig(48)
		cfg.ReservedLimit = 1
		cfg.Source = MmapSource{}
		cfg.Logger, _ = test.NewNullLogger()

		a, err := NewWithConfig(cfg)
		So(err, ShouldBeNil)

		Convey("units can be written, freed and blocks evicted", func() {
			var ptrs []unsafe.Pointer
			for i := 0; i < 3*UnitsPerBlock; i++ {
				p, err := a.Allocate()
				So(err, ShouldBeNil)
				a.Bytes(p)[0] = byte(i)
				ptrs = append(ptrs, p)
			}
			So(a.TotalBlocks(), ShouldEqual, 3)

			for i, p := range ptrs {
				So(a.Bytes(p)[0], ShouldEqual, byte(i))
				So(a.Deallocate(p), ShouldBeNil)
			}
			So(a.TotalBlocks(), ShouldEqual, 1)
			So(a.ReservedBlocks(), ShouldEqual, 1)

			So(a.Close(), ShouldBeNil)
		})
	})
}
