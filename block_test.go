package slab

import (
	"testing"
	"unsafe"

	. "github.com/smartystreets/goconvey/convey"
)

func TestHandle(t *testing.T) {
	Convey("A handle keeps index and generation apart", t, func() {
		h := makeHandle(7, 3)
		So(h.index(), ShouldEqual, 7)
		So(h.gen(), ShouldEqual, 3)

		h = makeHandle(1<<31-1, 1<<32-1)
		So(h.index(), ShouldEqual, 1<<31-1)
		So(h.gen(), ShouldEqual, uint32(1<<32-1))
	})
}

func TestNewBlock(t *testing.T) {
	Convey("When creating a new block", t, func() {
		stride := unitHeaderSize + 24
		h := makeHandle(2, 5)
		b, err := newBlock(HeapSource{}, 99, h, stride)
		So(err, ShouldBeNil)
		So(len(b.mem), ShouldEqual, blockSize(stride))

		Convey("all of its units are free and it isn't linked", func() {
			So(b.empty(), ShouldBeTrue)
			So(b.full(), ShouldBeFalse)
			So(b.used(), ShouldEqual, 0)
			So(b.next, ShouldEqual, nilIndex)
			So(b.prev, ShouldEqual, nilIndex)
			So(b.gen, ShouldEqual, 5)
		})

		Convey("the block header carries owner and handle", func() {
			So(b.header().owner, ShouldEqual, 99)
			So(b.header().handle, ShouldEqual, h)
		})

		Convey("every unit leads back to the block start", func() {
			for i := uint32(0); i < UnitsPerBlock; i++ {
				u := b.unitAt(i, stride)
				So(u.slot, ShouldEqual, i)
				So(uintptr(u.offset), ShouldEqual, blockHeaderSize+uintptr(i)*stride)
				So(unsafe.Pointer(u.header()), ShouldEqual, b.base())
				So(unitFromPayload(u.payload()), ShouldEqual, u)
			}
		})

		Convey("units are taken lowest slot first", func() {
			So(b.take(stride).slot, ShouldEqual, 0)
			So(b.take(stride).slot, ShouldEqual, 1)
			So(b.take(stride).slot, ShouldEqual, 2)
			So(b.used(), ShouldEqual, 3)

			b.release(1)
			So(b.take(stride).slot, ShouldEqual, 1)

			Convey("until the block is full", func() {
				for !b.full() {
					b.take(stride)
				}
				So(b.used(), ShouldEqual, UnitsPerBlock)
			})
		})

		Convey("destroying it drops the region", func() {
			So(b.destroy(HeapSource{}), ShouldBeNil)
			So(b.mem, ShouldBeNil)
			So(b.live, ShouldBeFalse)
		})
	})

	Convey("A source that returns a short region is refused", t, func() {
		_, err := newBlock(shortSource{}, 1, makeHandle(0, 1), unitHeaderSize+8)
		So(err, ShouldNotBeNil)
	})
}

type shortSource struct{}

func (shortSource) Alloc(size int) ([]byte, error) {
	return make([]byte, size/2), nil
}

func (shortSource) Free([]byte) error {
	return nil
}
