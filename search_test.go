package slab

import (
	"encoding/binary"
	"testing"
	"unsafe"

	. "github.com/smartystreets/goconvey/convey"
)

func TestWalkAndFind(t *testing.T) {
	Convey("Given 500 units holding their sequence number", t, func() {
		a, _ := newTestAllocator(8, 2)
		ptrs := allocateN(a, 500)
		for i, p := range ptrs {
			binary.LittleEndian.PutUint64(a.Bytes(p), uint64(i))
		}
		// punch some holes so walking has to skip free units
		for i := 0; i < 500; i += 3 {
			So(a.Deallocate(ptrs[i]), ShouldBeNil)
		}

		Convey("Walk visits exactly the allocated units", func() {
			seen := make(map[unsafe.Pointer]bool)
			a.Walk(func(p unsafe.Pointer) bool {
				seen[p] = true
				return true
			})
			So(len(seen), ShouldEqual, a.InUse())
			for i, p := range ptrs {
				So(seen[p], ShouldEqual, i%3 != 0)
			}
		})

		Convey("Walk stops when asked to", func() {
			count := 0
			a.Walk(func(unsafe.Pointer) bool {
				count++
				return count < 10
			})
			So(count, ShouldEqual, 10)
		})

		Convey("Find returns the unit holding a value", func() {
			for _, want := range []uint64{1, 250, 499, 32} {
				p, ok := a.Find(func(payload []byte) bool {
					return binary.LittleEndian.Uint64(payload) == want
				})
				So(ok, ShouldBeTrue)
				So(p, ShouldEqual, ptrs[want])
			}
		})

		Convey("Find doesn't return freed units", func() {
			_, ok := a.Find(func(payload []byte) bool {
				return binary.LittleEndian.Uint64(payload) == 300
			})
			So(ok, ShouldBeFalse)
		})
	})
}
