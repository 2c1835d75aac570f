package cpp

// Register-level convenience accessors. Each call allocates a transient
// area sized to the single access, acquires it, performs one transfer, and
// releases/frees it again. They are meant for infrequent control-plane
// accesses; a caller hitting the same region repeatedly should hold a
// long-lived acquired area instead.

// Read copies len(p) bytes from address in the ID's address space into p.
func (cpp *Cpp) Read(id ID, address uint64, p []byte) (n int, err error) {
	area, err := cpp.AreaAllocAcquire(id, address, uint32(len(p)))
	if err != nil {
		return
	}
	defer area.ReleaseFree()

	return area.Read(0, p)
}

// Write copies len(p) bytes from p to address in the ID's address space.
func (cpp *Cpp) Write(id ID, address uint64, p []byte) (n int, err error) {
	area, err := cpp.AreaAllocAcquire(id, address, uint32(len(p)))
	if err != nil {
		return
	}
	defer area.ReleaseFree()

	return area.Write(0, p)
}

// ReadL reads one 32-bit word at address in the ID's address space.
func (cpp *Cpp) ReadL(id ID, address uint64) (value uint32, err error) {
	area, err := cpp.AreaAllocAcquire(id, address, 4)
	if err != nil {
		return
	}
	defer area.ReleaseFree()

	return area.ReadL(0)
}

// WriteL writes one 32-bit word at address in the ID's address space.
func (cpp *Cpp) WriteL(id ID, address uint64, value uint32) (err error) {
	area, err := cpp.AreaAllocAcquire(id, address, 4)
	if err != nil {
		return
	}
	defer area.ReleaseFree()

	return area.WriteL(0, value)
}

// ReadQ reads one 64-bit word at address in the ID's address space.
func (cpp *Cpp) ReadQ(id ID, address uint64) (value uint64, err error) {
	area, err := cpp.AreaAllocAcquire(id, address, 8)
	if err != nil {
		return
	}
	defer area.ReleaseFree()

	return area.ReadQ(0)
}

// WriteQ writes one 64-bit word at address in the ID's address space.
func (cpp *Cpp) WriteQ(id ID, address uint64, value uint64) (err error) {
	area, err := cpp.AreaAllocAcquire(id, address, 8)
	if err != nil {
		return
	}
	defer area.ReleaseFree()

	return area.WriteQ(0, value)
}

const (
	// XPB_ISLAND_MASK masks the island field of an XPB address.
	XPB_ISLAND_MASK = 0x3f << 24
	// XPB_GLOBAL_BIT routes an island-addressed access out through the
	// global XPBM bus instead of the local island ring.
	XPB_GLOBAL_BIT = 1 << 30
)

// xpbToCpp maps an XPB target+address to its CPP identifier on the cluster
// target, adjusting the address for global routing when the access names an
// island other than the local one.
func (cpp *Cpp) xpbToCpp(xpbAddr uint32) (id ID, address uint64) {
	id = MakeID(TARGET_CT_XPB, ACTION_RW, 0)

	if xpbAddr&XPB_ISLAND_MASK != 0 {
		xpbAddr |= XPB_GLOBAL_BIT
	}
	address = uint64(xpbAddr)
	return
}

// XpbReadL reads one 32-bit register on the XPB bus.
func (cpp *Cpp) XpbReadL(xpbAddr uint32) (value uint32, err error) {
	id, address := cpp.xpbToCpp(xpbAddr)
	return cpp.ReadL(id, address)
}

// XpbWriteL writes one 32-bit register on the XPB bus.
func (cpp *Cpp) XpbWriteL(xpbAddr uint32, value uint32) (err error) {
	id, address := cpp.xpbToCpp(xpbAddr)
	return cpp.WriteL(id, address, value)
}
