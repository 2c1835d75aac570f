// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package sim provides an in-memory CPP transport: per-target memory banks,
// a bounded pool of mapping windows, an emulated MU atomic engine, and an
// XPB register bank. One Device may back any number of bus handles, which
// then contend for windows and mutexes exactly as independent clients of a
// physical device would.
package sim

import (
	"encoding/binary"
	"log"
	"sync"

	"github.com/ezrec/cppbus/cpp"
)

const (
	// WINDOWS_DEFAULT is the size of the mapping window pool when the
	// geometry does not set one.
	WINDOWS_DEFAULT = 8

	// Default bank sizes for an empty geometry.
	MU_SIZE_DEFAULT  = 65536
	CLS_SIZE_DEFAULT = 16384

	MODEL_DEFAULT     = 0x62000010
	INTERFACE_DEFAULT = 0x1000 // PCI, unit 0, channel 0.
)

// Device is a simulated CPP device implementing cpp.Operations.
type Device struct {
	Verbose bool // If set, enables verbose logging.

	geom   Geometry
	serial []byte

	mu       sync.Mutex // Serializes acquire/release/read/write.
	banks    map[int][]byte
	xpb      map[uint32]uint32
	windows  int
	attached int
	channels int // Monotonic; freed channels are not reissued.
}

var _ cpp.Operations = (*Device)(nil)

// simArea is the per-area private state of this transport.
type simArea struct {
	bank []byte // nil for the XPB register space
	base uint64
}

// NewDevice builds a simulated device from a geometry. Zero-valued fields
// fall back to defaults; an empty target list populates the MU and CLS
// targets.
func NewDevice(geom Geometry) (dev *Device, err error) {
	serial, err := geom.serial()
	if err != nil {
		return
	}

	if geom.Model == 0 {
		geom.Model = MODEL_DEFAULT
	}
	if geom.Interface == 0 {
		geom.Interface = INTERFACE_DEFAULT
	}
	if geom.Windows == 0 {
		geom.Windows = WINDOWS_DEFAULT
	}
	if len(geom.Targets) == 0 {
		geom.Targets = []Bank{
			{Target: cpp.TARGET_MU, Size: MU_SIZE_DEFAULT},
			{Target: cpp.TARGET_CLS, Size: CLS_SIZE_DEFAULT},
		}
	}

	banks := map[int][]byte{}
	for _, bank := range geom.Targets {
		if bank.Target < 0 || bank.Target >= cpp.TRANSLATION_ENTRIES {
			err = ErrTargetUnknown
			return
		}
		banks[bank.Target] = make([]byte, bank.Size)
	}

	xpb := map[uint32]uint32{}
	for addr, value := range geom.Xpb {
		xpb[addr] = value
	}

	dev = &Device{
		geom:   geom,
		serial: serial,
		banks:  banks,
		xpb:    xpb,
	}
	return
}

// Init attaches a new bus handle to the device. Each connection is handed
// the next interface channel, so handles sharing one device contend as
// distinct owners.
func (dev *Device) Init(c *cpp.Cpp, device any) (err error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	c.SetModel(dev.geom.Model)
	c.SetInterface(dev.geom.Interface + uint16(dev.channels))
	c.SetSerial(dev.serial)
	c.SetPriv(dev)
	dev.channels++
	dev.attached++

	if dev.Verbose {
		log.Printf("sim: init interface:0x%04x", c.Interface())
	}
	return
}

// Free detaches a bus handle.
func (dev *Device) Free(c *cpp.Cpp) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.attached--
}

// Attached returns the number of live bus handles on the device.
func (dev *Device) Attached() int {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	return dev.attached
}

// AreaInit binds an area to a window of a populated target, or to the XPB
// register space.
func (dev *Device) AreaInit(area *cpp.Area, id cpp.ID, address uint64, size uint32) (err error) {
	priv := &simArea{base: address}

	if id.Target() != cpp.TARGET_CT_XPB {
		bank, ok := dev.banks[id.Target()]
		if !ok {
			return ErrTargetUnknown
		}
		if address+uint64(size) > uint64(len(bank)) {
			return ErrAddressInvalid
		}
		priv.bank = bank
	}

	area.SetPriv(priv)
	return
}

// AreaCleanup drops the area's private state.
func (dev *Device) AreaCleanup(area *cpp.Area) {
	area.SetPriv(nil)
}

// AreaAcquire claims one of the device's mapping windows.
func (dev *Device) AreaAcquire(area *cpp.Area) (err error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.windows >= dev.geom.Windows {
		return cpp.ErrNoWindow
	}
	dev.windows++

	if dev.Verbose {
		log.Printf("sim: acquire %v (%d/%d windows)",
			area.Name(), dev.windows, dev.geom.Windows)
	}
	return
}

// AreaRelease returns the area's window to the pool.
func (dev *Device) AreaRelease(area *cpp.Area) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	dev.windows--
}

// AreaIomem exposes the bank memory behind the area. The XPB register
// space has no direct mapping.
func (dev *Device) AreaIomem(area *cpp.Area) []byte {
	priv := area.Priv().(*simArea)
	if priv.bank == nil {
		return nil
	}
	return priv.bank[priv.base : priv.base+uint64(area.Size())]
}

// AreaRead carries a read transaction.
func (dev *Device) AreaRead(area *cpp.Area, offset uint32, p []byte) (n int, err error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	priv := area.Priv().(*simArea)
	if priv.bank == nil {
		return dev.xpbRead(priv.base+uint64(offset), p)
	}

	n = copy(p, priv.bank[priv.base+uint64(offset):])
	return
}

// AreaWrite carries a write transaction. Writes on the MU atomic engine's
// compare-and-swap action are interpreted as a single-transaction CAS on
// the addressed 32-bit word: the payload holds the expected value in its
// low half and the replacement in its high half.
func (dev *Device) AreaWrite(area *cpp.Area, offset uint32, p []byte) (n int, err error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	priv := area.Priv().(*simArea)
	if priv.bank == nil {
		return dev.xpbWrite(priv.base+uint64(offset), p)
	}

	if area.ID().Action() == cpp.ACTION_CMP_SWAP {
		return dev.compareSwap(priv, offset, p)
	}

	n = copy(priv.bank[priv.base+uint64(offset):], p)
	return
}

// compareSwap executes one CAS transaction under the serialization lock.
func (dev *Device) compareSwap(priv *simArea, offset uint32, p []byte) (n int, err error) {
	if len(p) != 8 {
		return 0, ErrAccessInvalid
	}

	word := priv.bank[priv.base+uint64(offset):]
	expect := binary.LittleEndian.Uint32(p[0:4])
	next := binary.LittleEndian.Uint32(p[4:8])

	current := binary.LittleEndian.Uint32(word)
	if current != expect {
		return 0, cpp.ErrCompareMiss
	}

	binary.LittleEndian.PutUint32(word, next)
	return 8, nil
}

// xpbKey canonicalizes an XPB address by dropping the global-routing bit.
func xpbKey(address uint64) uint32 {
	return uint32(address) &^ cpp.XPB_GLOBAL_BIT
}

func (dev *Device) xpbRead(address uint64, p []byte) (n int, err error) {
	if len(p) != 4 {
		return 0, ErrAccessInvalid
	}

	binary.LittleEndian.PutUint32(p, dev.xpb[xpbKey(address)])
	return 4, nil
}

func (dev *Device) xpbWrite(address uint64, p []byte) (n int, err error) {
	if len(p) != 4 {
		return 0, ErrAccessInvalid
	}

	dev.xpb[xpbKey(address)] = binary.LittleEndian.Uint32(p)
	return 4, nil
}
