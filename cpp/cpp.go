// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package cpp is the bus-abstraction core of the CPP hardware interconnect.
// It addresses independently numbered on-device resources through packed
// 32-bit identifiers, multiplexes a bounded pool of physical mapping windows
// across logical address-space areas, and provides a hardware-backed
// distributed mutex built on the memory unit's atomic engine.
package cpp

import (
	"sync"
)

const (
	// IMB_XPB_BASE is the XPB address of the island translation CSR bank.
	// One 32-bit entry per bus target, read once when a handle is opened.
	IMB_XPB_BASE = 0x000a0000

	// IMB_ADDR_MODE_40 selects 40-bit addressing in a translation entry.
	IMB_ADDR_MODE_40 = 0x00000400

	// TRANSLATION_ENTRIES is the size of the translation table.
	TRANSLATION_ENTRIES = 16
)

// Cpp is a handle to one connection to the CPP bus. All bus operations are
// reached through it. A handle is safe for concurrent use once opened;
// the identity setters are reserved for transport initialization.
type Cpp struct {
	Verbose bool // If set, enables verbose logging.

	ops        Operations
	model      uint32
	iface      uint16
	serial     []byte
	priv       any
	lockNeeded bool

	// Originating-island translation, indexed by bus target.
	// Populated from the local island XPB CSRs at open time.
	imbCatTable [TRANSLATION_ENTRIES]uint32

	// Bit offset of the MU access-locality field, derived from the MU
	// entry of the translation table.
	muLocalityLsb uint32

	mu         sync.Mutex // Guards mutexCache.
	mutexCache map[mutexKey]*Mutex
}

// Open connects a new handle to a CPP device through the given transport.
// The device argument is opaque to the core and passed to the transport's
// Init. lockNeeded records whether callers must hold an external advisory
// lock around serialized operations on this device.
func Open(ops Operations, device any, lockNeeded bool) (cpp *Cpp, err error) {
	cpp = &Cpp{
		ops:        ops,
		model:      MODEL_INVALID,
		lockNeeded: lockNeeded,
		mutexCache: map[mutexKey]*Mutex{},
	}

	err = ops.Init(cpp, device)
	if err != nil {
		cpp = nil
		return
	}

	for target := range cpp.imbCatTable {
		var entry uint32
		entry, err = cpp.XpbReadL(IMB_XPB_BASE + uint32(target)*4)
		if err != nil {
			ops.Free(cpp)
			cpp = nil
			return
		}
		cpp.imbCatTable[target] = entry
	}

	if cpp.imbCatTable[TARGET_MU]&IMB_ADDR_MODE_40 != 0 {
		cpp.muLocalityLsb = 38
	} else {
		cpp.muLocalityLsb = 32
	}

	return
}

// Free releases the handle and its device connection. Call it exactly once;
// reusing the handle afterward, or freeing it twice, is a caller error.
func (cpp *Cpp) Free() {
	cpp.ops.Free(cpp)
}

// Model returns the device model identifier.
func (cpp *Cpp) Model() uint32 {
	return cpp.model
}

// SetModel records the device model identifier. Transport init only.
func (cpp *Cpp) SetModel(model uint32) {
	cpp.model = model
}

// Interface returns the 16-bit interface identifier of this connection.
func (cpp *Cpp) Interface() uint16 {
	return cpp.iface
}

// SetInterface records the interface identifier. Transport init only.
// The identifier must be unique among live handles sharing the bus fabric;
// it doubles as the owner field of hardware mutex words.
func (cpp *Cpp) SetInterface(iface uint16) {
	cpp.iface = iface
}

// Serial returns a reference to the device serial number and its length.
// The slice is shared, not copied.
func (cpp *Cpp) Serial() (serial []byte, length int) {
	return cpp.serial, len(cpp.serial)
}

// SetSerial records the device serial number. Transport init only.
func (cpp *Cpp) SetSerial(serial []byte) {
	cpp.serial = serial
}

// Priv returns the transport's private device state.
func (cpp *Cpp) Priv() any {
	return cpp.priv
}

// SetPriv stores the transport's private device state. Transport init only.
func (cpp *Cpp) SetPriv(priv any) {
	cpp.priv = priv
}

// LockNeeded reports whether an external cross-process advisory lock is
// required around serialized operations on this device.
func (cpp *Cpp) LockNeeded() bool {
	return cpp.lockNeeded
}

// Translation returns the island translation entry for a bus target.
func (cpp *Cpp) Translation(target int) (entry uint32, err error) {
	if target < 0 || target >= TRANSLATION_ENTRIES {
		err = ErrTargetInvalid
		return
	}
	entry = cpp.imbCatTable[target]
	return
}

// MuLocalityLsb returns the bit offset of the MU access-locality field.
func (cpp *Cpp) MuLocalityLsb() uint32 {
	return cpp.muLocalityLsb
}
