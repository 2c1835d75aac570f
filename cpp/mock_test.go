package cpp

import (
	"encoding/binary"
	"sync"
)

// mockOps is a minimal in-package transport for exercising the core
// without the sim backend.
type mockOps struct {
	mu         sync.Mutex
	banks      map[int][]byte
	xpb        map[uint32]uint32
	windows    int
	maxWindows int

	inits    int
	cleanups int
	acquires int
	releases int

	failAcquire bool
}

type mockArea struct {
	bank []byte
	base uint64
}

func newMockOps() *mockOps {
	return &mockOps{
		banks: map[int][]byte{
			TARGET_MU:  make([]byte, 4096),
			TARGET_CLS: make([]byte, 1024),
		},
		xpb:        map[uint32]uint32{},
		maxWindows: 4,
	}
}

func (m *mockOps) Init(cpp *Cpp, device any) error {
	cpp.SetModel(0x38000000)
	cpp.SetInterface(MakeInterface(INTERFACE_TYPE_PCI, 0, 1))
	cpp.SetSerial([]byte{0x00, 0x15, 0x4d, 0x00, 0x00, 0x01})
	cpp.SetPriv(m)
	return nil
}

func (m *mockOps) Free(cpp *Cpp) {}

func (m *mockOps) AreaInit(area *Area, id ID, address uint64, size uint32) error {
	priv := &mockArea{base: address}
	if id.Target() != TARGET_CT_XPB {
		bank, ok := m.banks[id.Target()]
		if !ok {
			return ErrTargetInvalid
		}
		if address+uint64(size) > uint64(len(bank)) {
			return ErrOutOfRange
		}
		priv.bank = bank
	}
	area.SetPriv(priv)

	m.mu.Lock()
	m.inits++
	m.mu.Unlock()
	return nil
}

func (m *mockOps) AreaCleanup(area *Area) {
	m.mu.Lock()
	m.cleanups++
	m.mu.Unlock()
}

func (m *mockOps) AreaAcquire(area *Area) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAcquire || m.windows >= m.maxWindows {
		return ErrNoWindow
	}
	m.windows++
	m.acquires++
	return nil
}

func (m *mockOps) AreaRelease(area *Area) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.windows--
	m.releases++
}

func (m *mockOps) AreaIomem(area *Area) []byte {
	priv := area.Priv().(*mockArea)
	if priv.bank == nil {
		return nil
	}
	return priv.bank[priv.base : priv.base+uint64(area.Size())]
}

func (m *mockOps) AreaRead(area *Area, offset uint32, p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	priv := area.Priv().(*mockArea)
	if priv.bank == nil {
		binary.LittleEndian.PutUint32(p, m.xpb[uint32(priv.base)+offset])
		return 4, nil
	}
	return copy(p, priv.bank[priv.base+uint64(offset):]), nil
}

func (m *mockOps) AreaWrite(area *Area, offset uint32, p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	priv := area.Priv().(*mockArea)
	if priv.bank == nil {
		m.xpb[uint32(priv.base)+offset] = binary.LittleEndian.Uint32(p)
		return 4, nil
	}
	return copy(priv.bank[priv.base+uint64(offset):], p), nil
}

var _ Operations = (*mockOps)(nil)
