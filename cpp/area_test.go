package cpp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMock(t *testing.T) (*mockOps, *Cpp) {
	t.Helper()

	ops := newMockOps()
	handle, err := Open(ops, nil, false)
	require.NoError(t, err)
	t.Cleanup(handle.Free)

	// Discount the window traffic Open used for the translation table.
	ops.mu.Lock()
	ops.inits = 0
	ops.cleanups = 0
	ops.acquires = 0
	ops.releases = 0
	ops.mu.Unlock()

	return ops, handle
}

func TestAreaLifecycle(t *testing.T) {
	assert := assert.New(t)
	ops, handle := openMock(t)

	id := MakeID(TARGET_MU, ACTION_RW, 0)
	area, err := handle.AreaAllocWithName(id, "test", 0x100, 64)
	require.NoError(t, err)
	assert.Equal("test", area.Name())
	assert.Equal(id, area.ID())
	assert.Equal(uint64(0x100), area.Offset())
	assert.Equal(uint32(64), area.Size())
	assert.Same(handle, area.Cpp())

	// Unacquired use is a usage error.
	var word [4]byte
	_, err = area.Read(0, word[:])
	assert.ErrorIs(err, ErrNotAcquired)
	_, err = area.Write(0, word[:])
	assert.ErrorIs(err, ErrNotAcquired)
	assert.Nil(area.Iomem())

	require.NoError(t, area.Acquire())
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	n, err := area.Write(8, payload)
	assert.NoError(err)
	assert.Equal(4, n)

	got := make([]byte, 4)
	n, err = area.Read(8, got)
	assert.NoError(err)
	assert.Equal(4, n)
	assert.True(bytes.Equal(payload, got))

	assert.NotNil(area.Iomem())

	area.Release()
	_, err = area.Read(8, got)
	assert.ErrorIs(err, ErrNotAcquired)

	area.Free()
	assert.Equal(ops.acquires, ops.releases)
	assert.Equal(ops.inits, ops.cleanups)
}

func TestAreaAllocValidation(t *testing.T) {
	assert := assert.New(t)
	_, handle := openMock(t)

	// Target index must fit the translation table.
	_, err := handle.AreaAlloc(MakeID(0x20, ACTION_RW, 0), 0, 64)
	assert.ErrorIs(err, ErrTargetInvalid)

	// Zero-sized areas are rejected.
	_, err = handle.AreaAlloc(MakeID(TARGET_MU, ACTION_RW, 0), 0, 0)
	assert.ErrorIs(err, ErrSizeInvalid)
}

func TestAreaBounds(t *testing.T) {
	assert := assert.New(t)
	_, handle := openMock(t)

	area, err := handle.AreaAllocAcquire(MakeID(TARGET_MU, ACTION_RW, 0), 0, 16)
	require.NoError(t, err)
	defer area.ReleaseFree()

	table := []struct {
		Offset uint32
		Length int
		Err    error
	}{
		{Offset: 0, Length: 16},
		{Offset: 12, Length: 4},
		{Offset: 12, Length: 5, Err: ErrOutOfRange},
		{Offset: 16, Length: 1, Err: ErrOutOfRange},
		{Offset: 0xffffffff, Length: 1, Err: ErrOutOfRange},
	}

	for _, testcase := range table {
		p := make([]byte, testcase.Length)
		_, err = area.Read(testcase.Offset, p)
		assert.ErrorIs(err, testcase.Err)
		_, err = area.Write(testcase.Offset, p)
		assert.ErrorIs(err, testcase.Err)
	}
}

func TestAreaAlignment(t *testing.T) {
	assert := assert.New(t)
	_, handle := openMock(t)

	area, err := handle.AreaAllocAcquire(MakeID(TARGET_MU, ACTION_RW, 0), 0, 64)
	require.NoError(t, err)
	defer area.ReleaseFree()

	for _, offset := range []uint32{1, 2, 3, 5, 42} {
		if offset%4 != 0 {
			_, err = area.ReadL(offset)
			assert.ErrorIs(err, ErrMisaligned)
			assert.ErrorIs(area.WriteL(offset, 0), ErrMisaligned)
		}
		if offset%8 != 0 {
			_, err = area.ReadQ(offset)
			assert.ErrorIs(err, ErrMisaligned)
			assert.ErrorIs(area.WriteQ(offset, 0), ErrMisaligned)
		}
	}

	assert.NoError(area.WriteL(4, 0x01020304))
	value, err := area.ReadL(4)
	assert.NoError(err)
	assert.Equal(uint32(0x01020304), value)

	assert.NoError(area.WriteQ(8, 0x0102030405060708))
	value64, err := area.ReadQ(8)
	assert.NoError(err)
	assert.Equal(uint64(0x0102030405060708), value64)
}

func TestAreaAllocAcquireRollback(t *testing.T) {
	assert := assert.New(t)
	ops, handle := openMock(t)

	ops.failAcquire = true
	area, err := handle.AreaAllocAcquire(MakeID(TARGET_MU, ACTION_RW, 0), 0x40, 16)
	assert.ErrorIs(err, ErrNoWindow)
	assert.Nil(area)

	// The failed composite leaves nothing allocated behind.
	assert.Equal(ops.inits, ops.cleanups)

	// A later alloc at the same address succeeds.
	ops.failAcquire = false
	area, err = handle.AreaAllocAcquire(MakeID(TARGET_MU, ACTION_RW, 0), 0x40, 16)
	assert.NoError(err)
	area.ReleaseFree()
}

func TestAreaFreeWhileAcquired(t *testing.T) {
	assert := assert.New(t)
	ops, handle := openMock(t)

	area, err := handle.AreaAllocAcquire(MakeID(TARGET_MU, ACTION_RW, 0), 0, 16)
	require.NoError(t, err)

	// Free of a still-acquired area releases the window first.
	area.Free()
	assert.Equal(ops.acquires, ops.releases)
	assert.Equal(0, ops.windows)
}

func TestMapArea(t *testing.T) {
	assert := assert.New(t)
	_, handle := openMock(t)

	mem, area, err := handle.MapArea(MakeID(TARGET_CLS, ACTION_RW, 0), 0x10, 32)
	require.NoError(t, err)
	defer area.ReleaseFree()

	assert.Len(mem, 32)
	mem[0] = 0x5a

	value, err := area.ReadL(0)
	assert.NoError(err)
	assert.Equal(uint32(0x5a), value)
}
