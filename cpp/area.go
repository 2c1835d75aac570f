// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpp

import (
	"encoding/binary"
	"log"
)

// AREA_NAME_RESERVED names areas allocated without an explicit owner.
const AREA_NAME_RESERVED = "(reserved)"

// Area is a bound window into one bus target's address space.
//
// Lifecycle: alloc, then any number of acquire/use/release rounds, then
// free. Read, Write, and Iomem are valid only while the area is acquired.
type Area struct {
	cpp      *Cpp
	name     string
	id       ID
	offset   uint64
	size     uint32
	acquired bool
	priv     any
}

// AreaAlloc constructs an area descriptor over size bytes at address within
// the ID's target address space. The descriptor holds no mapping window
// until acquired. Alloc is not serialized; concurrent allocs on independent
// areas are safe.
func (cpp *Cpp) AreaAlloc(id ID, address uint64, size uint32) (area *Area, err error) {
	return cpp.AreaAllocWithName(id, AREA_NAME_RESERVED, address, size)
}

// AreaAllocWithName is AreaAlloc with an owner name attached for diagnostics.
// Names are a convention, not enforced to be unique.
func (cpp *Cpp) AreaAllocWithName(id ID, name string, address uint64, size uint32) (area *Area, err error) {
	if id.Target() >= TRANSLATION_ENTRIES {
		err = ErrTargetInvalid
		return
	}
	if size == 0 {
		err = ErrSizeInvalid
		return
	}

	area = &Area{
		cpp:    cpp,
		name:   name,
		id:     id,
		offset: address,
		size:   size,
	}

	err = cpp.ops.AreaInit(area, id, address, size)
	if err != nil {
		area = nil
		return
	}

	if cpp.Verbose {
		log.Printf("cpp: area %v alloc %v@0x%x+0x%x", name, id, address, size)
	}

	return
}

// Free releases the area descriptor. If the area is still acquired, its
// mapping window is released first.
func (area *Area) Free() {
	if area.acquired {
		area.Release()
	}
	area.cpp.ops.AreaCleanup(area)
}

// Acquire claims a physical mapping window for the area. The window pool is
// a bounded shared resource; Acquire fails with ErrNoWindow when none is
// free. Every successful Acquire must be matched by exactly one Release.
func (area *Area) Acquire() (err error) {
	err = area.cpp.ops.AreaAcquire(area)
	if err != nil {
		return
	}
	area.acquired = true

	if area.cpp.Verbose {
		log.Printf("cpp: area %v acquire %v@0x%x", area.name, area.id, area.offset)
	}
	return
}

// Release returns the area's mapping window to the shared pool. The
// descriptor remains valid and may be re-acquired.
func (area *Area) Release() {
	if !area.acquired {
		return
	}
	area.acquired = false
	area.cpp.ops.AreaRelease(area)
}

// AreaAllocAcquire allocates an area and immediately acquires it. If the
// acquire fails, the just-allocated area is freed before returning, leaving
// nothing dangling.
func (cpp *Cpp) AreaAllocAcquire(id ID, address uint64, size uint32) (area *Area, err error) {
	area, err = cpp.AreaAlloc(id, address, size)
	if err != nil {
		return
	}

	err = area.Acquire()
	if err != nil {
		area.Free()
		area = nil
		return
	}

	return
}

// ReleaseFree releases the area's mapping window and frees the descriptor.
func (area *Area) ReleaseFree() {
	area.Release()
	area.Free()
}

// MapArea allocates and acquires an area and returns its direct byte
// window. The caller owns the returned area and must ReleaseFree it when
// done with the mapping.
func (cpp *Cpp) MapArea(id ID, address uint64, size uint32) (mem []byte, area *Area, err error) {
	area, err = cpp.AreaAllocAcquire(id, address, size)
	if err != nil {
		return
	}

	mem = area.Iomem()
	if mem == nil {
		area.ReleaseFree()
		area = nil
		err = ErrNotAcquired
	}
	return
}

// bounds validates an access of length bytes at offset against the area
// state, without transferring anything.
func (area *Area) bounds(offset uint32, length int) (err error) {
	if !area.acquired {
		return ErrNotAcquired
	}
	if uint64(offset)+uint64(length) > uint64(area.size) {
		return ErrOutOfRange
	}
	return
}

// Read copies len(p) bytes from the acquired area at offset into p.
// An access past the end of the area fails without a partial transfer.
func (area *Area) Read(offset uint32, p []byte) (n int, err error) {
	err = area.bounds(offset, len(p))
	if err != nil {
		return
	}
	return area.cpp.ops.AreaRead(area, offset, p)
}

// Write copies len(p) bytes from p into the acquired area at offset.
// An access past the end of the area fails without a partial transfer.
func (area *Area) Write(offset uint32, p []byte) (n int, err error) {
	err = area.bounds(offset, len(p))
	if err != nil {
		return
	}
	return area.cpp.ops.AreaWrite(area, offset, p)
}

// ReadL reads one 32-bit word at a 4-byte-aligned offset.
func (area *Area) ReadL(offset uint32) (value uint32, err error) {
	if offset%4 != 0 {
		err = ErrMisaligned
		return
	}

	var word [4]byte
	_, err = area.Read(offset, word[:])
	if err != nil {
		return
	}
	value = binary.LittleEndian.Uint32(word[:])
	return
}

// WriteL writes one 32-bit word at a 4-byte-aligned offset.
func (area *Area) WriteL(offset uint32, value uint32) (err error) {
	if offset%4 != 0 {
		return ErrMisaligned
	}

	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], value)
	_, err = area.Write(offset, word[:])
	return
}

// ReadQ reads one 64-bit word at an 8-byte-aligned offset.
func (area *Area) ReadQ(offset uint32) (value uint64, err error) {
	if offset%8 != 0 {
		err = ErrMisaligned
		return
	}

	var word [8]byte
	_, err = area.Read(offset, word[:])
	if err != nil {
		return
	}
	value = binary.LittleEndian.Uint64(word[:])
	return
}

// WriteQ writes one 64-bit word at an 8-byte-aligned offset.
func (area *Area) WriteQ(offset uint32, value uint64) (err error) {
	if offset%8 != 0 {
		return ErrMisaligned
	}

	var word [8]byte
	binary.LittleEndian.PutUint64(word[:], value)
	_, err = area.Write(offset, word[:])
	return
}

// Iomem returns a direct byte window into the mapped area, or nil if the
// area is not acquired or the transport has no direct mapping.
func (area *Area) Iomem() []byte {
	if !area.acquired {
		return nil
	}
	return area.cpp.ops.AreaIomem(area)
}

// Cpp returns the handle the area was allocated against.
func (area *Area) Cpp() *Cpp {
	return area.cpp
}

// Name returns the owner name given at allocation.
func (area *Area) Name() string {
	return area.name
}

// ID returns the CPP identifier the area is bound to.
func (area *Area) ID() ID {
	return area.id
}

// Offset returns the area's base offset within its target address space.
func (area *Area) Offset() uint64 {
	return area.offset
}

// Size returns the area size in bytes.
func (area *Area) Size() uint32 {
	return area.size
}

// Priv returns the transport's private area state. Valid only between a
// successful Acquire and the matching Release, unless the transport
// documents otherwise.
func (area *Area) Priv() any {
	return area.priv
}

// SetPriv stores the transport's private area state.
func (area *Area) SetPriv(priv any) {
	area.priv = priv
}
