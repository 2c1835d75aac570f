// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpp

import (
	"fmt"
)

// ID is a packed 32-bit CPP address identifier, selecting the bus target,
// access token, bus action, and (optionally) the physical island to route to.
//
//	target: bits 31..24 (7 bits)
//	token:  bits 23..16
//	action: bits 15..8
//	island: bits  7..0
type ID uint32

const (
	// ACTION_RW is the wildcard action, standing in for either the read
	// or the write action of the target. Both access directions accept it.
	ACTION_RW = 32

	TARGET_MASK = 0x7f // Valid bits of a target identifier.
)

// Well-known CPP bus targets.
const (
	TARGET_INVALID = 0  // No target selected.
	TARGET_NBI     = 1  // Network bus interface.
	TARGET_QDR     = 2  // External QDR memory.
	TARGET_ILA     = 6  // Inter-chip link.
	TARGET_MU      = 7  // Memory unit, hosts the atomic engine.
	TARGET_PCIE    = 9  // PCIe interface.
	TARGET_ARM     = 10 // ARM subsystem.
	TARGET_CRYPTO  = 12 // Crypto engine.
	TARGET_CT_XPB  = 14 // Cluster target; carries the XPB register bus.
	TARGET_CLS     = 15 // Cluster local scratch.
)

// MU atomic engine actions. Reads and writes issued with these actions are
// executed by the target's atomic engine as a single bus transaction.
const (
	ACTION_ATOMIC_READ  = 3 // One-shot atomic read.
	ACTION_ATOMIC_WRITE = 4 // One-shot atomic write.
	ACTION_CMP_SWAP     = 5 // 32-bit compare-and-swap; see Mutex.
)

// MakeID packs a target, action, and token into a CPP ID.
// Out-of-range inputs are truncated to their field widths.
func MakeID(target int, action int, token int) ID {
	return MakeIslandID(target, action, token, 0)
}

// MakeIslandID packs a target, action, token, and island into a CPP ID.
// Out-of-range inputs are truncated to their field widths.
func MakeIslandID(target int, action int, token int, island int) ID {
	return ID((uint32(target)&TARGET_MASK)<<24 |
		(uint32(token)&0xff)<<16 |
		(uint32(action)&0xff)<<8 |
		(uint32(island) & 0xff))
}

// Target returns the bus target of the ID.
func (id ID) Target() int {
	return int((uint32(id) >> 24) & TARGET_MASK)
}

// Token returns the access token of the ID.
func (id ID) Token() int {
	return int((uint32(id) >> 16) & 0xff)
}

// Action returns the bus action of the ID.
func (id ID) Action() int {
	return int((uint32(id) >> 8) & 0xff)
}

// Island returns the routing island of the ID, 0 if unrouted.
func (id ID) Island() int {
	return int(uint32(id) & 0xff)
}

// String renders the ID as target:action:token:island.
func (id ID) String() string {
	return fmt.Sprintf("%d:%d:%d:%d", id.Target(), id.Action(), id.Token(), id.Island())
}

// Interface types of a CPP connection.
const (
	INTERFACE_TYPE_INVALID = 0x0
	INTERFACE_TYPE_PCI     = 0x1
	INTERFACE_TYPE_ARM     = 0x2
	INTERFACE_TYPE_RPC     = 0x3
	INTERFACE_TYPE_ILA     = 0x4
)

// MakeInterface packs an interface type, unit, and channel into a 16-bit
// interface identifier. The 16-bit limit allows an interface identifier to
// serve as the owner field of a hardware mutex word.
//
//	type:    bits 15..12
//	unit:    bits 11..8
//	channel: bits  7..0
func MakeInterface(typ int, unit int, channel int) uint16 {
	return uint16((typ&0xf)<<12 | (unit&0xf)<<8 | (channel & 0xff))
}

// InterfaceType returns the type field of an interface identifier.
func InterfaceType(iface uint16) int {
	return int((iface >> 12) & 0xf)
}

// InterfaceUnit returns the unit field of an interface identifier.
func InterfaceUnit(iface uint16) int {
	return int((iface >> 8) & 0xf)
}

// InterfaceChannel returns the channel field of an interface identifier.
func InterfaceChannel(iface uint16) int {
	return int(iface & 0xff)
}

// MODEL_INVALID marks a device model that was never detected.
const MODEL_INVALID = 0xffffffff

// ModelChip returns the 16-bit chip discriminant of a model identifier.
func ModelChip(model uint32) uint32 {
	return (model >> 16) & 0xffff
}

// ModelIs6000 reports whether the model belongs to the 6000 chip family.
// The 4000 series is addressed as a 6000 family variant.
func ModelIs6000(model uint32) bool {
	chip := ModelChip(model)
	return chip >= 0x3800 && chip < 0x7000
}
