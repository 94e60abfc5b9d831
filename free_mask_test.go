package slab

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFreeMask(t *testing.T) {
	Convey("When starting with all units free", t, func() {
		m := maskAllFree
		So(m.freeCount(), ShouldEqual, UnitsPerBlock)
		So(m.lowestFree(), ShouldEqual, 0)

		Convey("marking units as used clears their bits", func() {
			m.setUsed(0)
			m.setUsed(1)
			m.setUsed(63)
			So(m.isFree(0), ShouldBeFalse)
			So(m.isFree(1), ShouldBeFalse)
			So(m.isFree(2), ShouldBeTrue)
			So(m.isFree(63), ShouldBeFalse)
			So(m.freeCount(), ShouldEqual, 61)
			So(m.lowestFree(), ShouldEqual, 2)

			Convey("and freeing one again makes it the lowest free unit", func() {
				m.setFree(1)
				So(m.isFree(1), ShouldBeTrue)
				So(m.lowestFree(), ShouldEqual, 1)
				So(m.freeCount(), ShouldEqual, 62)
			})
		})

		Convey("using every unit leaves an empty mask", func() {
			for i := uint32(0); i < UnitsPerBlock; i++ {
				So(m.lowestFree(), ShouldEqual, i)
				m.setUsed(m.lowestFree())
			}
			So(m, ShouldEqual, maskAllUsed)
			So(m.freeCount(), ShouldEqual, 0)
		})
	})
}
