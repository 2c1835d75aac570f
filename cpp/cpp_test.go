// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenIdentity(t *testing.T) {
	assert := assert.New(t)

	ops := newMockOps()
	handle, err := Open(ops, nil, true)
	require.NoError(t, err)
	defer handle.Free()

	assert.Equal(uint32(0x38000000), handle.Model())
	assert.True(ModelIs6000(handle.Model()))
	assert.Equal(MakeInterface(INTERFACE_TYPE_PCI, 0, 1), handle.Interface())
	assert.True(handle.LockNeeded())
	assert.Same(ops, handle.Priv())

	serial, length := handle.Serial()
	assert.Equal(6, length)
	// Serial is a shared reference, not a copy.
	serial[0] = 0xa5
	again, _ := handle.Serial()
	assert.Equal(uint8(0xa5), again[0])
}

func TestOpenTranslationTable(t *testing.T) {
	assert := assert.New(t)

	ops := newMockOps()
	for target := 0; target < TRANSLATION_ENTRIES; target++ {
		ops.xpb[IMB_XPB_BASE+uint32(target)*4] = 0x1000 + uint32(target)
	}

	handle, err := Open(ops, nil, false)
	require.NoError(t, err)
	defer handle.Free()

	for target := 0; target < TRANSLATION_ENTRIES; target++ {
		entry, err := handle.Translation(target)
		assert.NoError(err)
		assert.Equal(0x1000+uint32(target), entry)
	}

	_, err = handle.Translation(TRANSLATION_ENTRIES)
	assert.ErrorIs(err, ErrTargetInvalid)
	_, err = handle.Translation(-1)
	assert.ErrorIs(err, ErrTargetInvalid)
}

func TestMuLocality(t *testing.T) {
	assert := assert.New(t)

	// 32-bit addressing by default.
	handle, err := Open(newMockOps(), nil, false)
	require.NoError(t, err)
	assert.Equal(uint32(32), handle.MuLocalityLsb())
	handle.Free()

	// 40-bit addressing moves the locality field up.
	ops := newMockOps()
	ops.xpb[IMB_XPB_BASE+uint32(TARGET_MU)*4] = IMB_ADDR_MODE_40
	handle, err = Open(ops, nil, false)
	require.NoError(t, err)
	assert.Equal(uint32(38), handle.MuLocalityLsb())
	handle.Free()
}

func TestBusAccessors(t *testing.T) {
	assert := assert.New(t)
	ops, handle := openMock(t)

	id := MakeID(TARGET_MU, ACTION_RW, 0)

	assert.NoError(handle.WriteL(id, 0x20, 0xcafef00d))
	value, err := handle.ReadL(id, 0x20)
	assert.NoError(err)
	assert.Equal(uint32(0xcafef00d), value)

	assert.NoError(handle.WriteQ(id, 0x28, 0x1122334455667788))
	value64, err := handle.ReadQ(id, 0x28)
	assert.NoError(err)
	assert.Equal(uint64(0x1122334455667788), value64)

	payload := []byte("control plane")
	n, err := handle.Write(id, 0x40, payload)
	assert.NoError(err)
	assert.Equal(len(payload), n)

	got := make([]byte, len(payload))
	n, err = handle.Read(id, 0x40, got)
	assert.NoError(err)
	assert.Equal(len(payload), n)
	assert.Equal(payload, got)

	// Every one-shot accessor rolled its transient area back.
	assert.Equal(ops.inits, ops.cleanups)
	assert.Equal(ops.acquires, ops.releases)
	assert.Equal(0, ops.windows)
}

func TestXpbAccessors(t *testing.T) {
	assert := assert.New(t)
	ops, handle := openMock(t)

	assert.NoError(handle.XpbWriteL(0x00080014, 0x0000beef))
	value, err := handle.XpbReadL(0x00080014)
	assert.NoError(err)
	assert.Equal(uint32(0x0000beef), value)

	// Island-addressed access routes through the global bus bit.
	assert.NoError(handle.XpbWriteL(0x21080014, 0x12345678))
	assert.Equal(uint32(0x12345678), ops.xpb[0x21080014|XPB_GLOBAL_BIT])
}
