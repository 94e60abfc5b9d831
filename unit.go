package slab

import "unsafe"

// unit is the header written in front of every payload. Units are never
// created on their own, they are laid out in place when their block is created
// and stay valid until the whole block is destroyed.
type unit struct {
	slot   uint32 // position within the block, 0-63
	offset uint32 // distance in bytes from the unit back to the start of its block
}

// unitHeaderSize is the distance between a unit header and its payload.
// It's a multiple of 8, so payloads keep the alignment of their unit.
const unitHeaderSize = unsafe.Sizeof(unit{})

// unitFromPayload takes a payload pointer and returns the header in front of it.
// The pointer is trusted to be the result of an earlier Allocate call.
func unitFromPayload(p unsafe.Pointer) *unit {
	return (*unit)(unsafe.Add(p, -int(unitHeaderSize)))
}

// payload returns the address handed out to callers for this unit
func (u *unit) payload() unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(u), unitHeaderSize)
}

// header returns the in-memory header of the block this unit belongs to
func (u *unit) header() *blockHeader {
	return (*blockHeader)(unsafe.Add(unsafe.Pointer(u), -int(u.offset)))
}
