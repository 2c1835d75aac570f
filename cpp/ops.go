package cpp

// Operations is the capability set a transport supplies to carry CPP bus
// traffic. Exactly one implementation is injected when a handle is opened;
// the core calls the physical access strategy only through this interface.
//
// Serialization contract: AreaAcquire, AreaRelease, AreaRead, and AreaWrite
// are serialized by the implementation, because the pool of physical mapping
// windows is a bounded shared resource. AreaInit, AreaCleanup, and AreaIomem
// are not serialized; the caller must not invoke them concurrently on the
// same area.
type Operations interface {
	// Init instantiates the device connection behind a new handle.
	// The handle's model, interface, and serial identity are expected to
	// be set before Init returns.
	Init(cpp *Cpp, device any) error

	// Free tears down the device connection. Called exactly once.
	Free(cpp *Cpp)

	// AreaInit binds an area descriptor to a window of the target's
	// address space. Not serialized.
	AreaInit(area *Area, id ID, address uint64, size uint32) error

	// AreaCleanup undoes AreaInit before the descriptor is freed.
	// Not serialized.
	AreaCleanup(area *Area)

	// AreaAcquire claims a physical mapping window for the area.
	// Serialized. Fails with ErrNoWindow when the pool is exhausted.
	AreaAcquire(area *Area) error

	// AreaRelease returns the area's mapping window to the pool.
	// Serialized.
	AreaRelease(area *Area)

	// AreaIomem returns a direct byte window into the mapped area, or nil
	// if the transport has no direct mapping. Not serialized.
	AreaIomem(area *Area) []byte

	// AreaRead copies up to len(p) bytes from the acquired area at offset.
	// Serialized.
	AreaRead(area *Area, offset uint32, p []byte) (int, error)

	// AreaWrite copies up to len(p) bytes into the acquired area at offset.
	// Serialized.
	AreaWrite(area *Area, offset uint32, p []byte) (int, error)
}
