// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpp

import (
	"errors"
	"time"
)

// Mutex is a software handle to a hardware-resident distributed lock.
//
// The lock lives in a 64-bit device memory word at an 8-byte-aligned
// address on an atomic-engine-capable target. The low half holds the owner
// interface and reentrancy depth, the high half a key identifying the lock.
// Mutual exclusion is coordinated purely by the atomic engine's
// compare-and-swap: contenders may be separate processes, or separate
// hosts, that share nothing but the device. No locally cached lock state is
// ever trusted; every Lock, TryLock, and Unlock issues fresh bus
// transactions.
//
// Within one process, handles for the same (target, address) collapse to a
// single cached instance owned by the Cpp handle.
type Mutex struct {
	cpp     *Cpp
	target  int
	address uint64
	key     uint32

	refs int // Guarded by cpp.mu.
}

type mutexKey struct {
	target  int
	address uint64
}

const (
	// MUTEX_RETRY_MIN is the initial backoff of a blocking Lock.
	MUTEX_RETRY_MIN = 100 * time.Microsecond
	// MUTEX_RETRY_MAX caps the backoff. The retry count is unbounded;
	// Lock has no timeout of its own.
	MUTEX_RETRY_MAX = 10 * time.Millisecond
)

// mutexValue packs the owner/depth half of the lock word.
func mutexValue(owner uint16, depth uint16) uint32 {
	return uint32(owner)<<16 | uint32(depth)
}

// mutexValidate rejects locations and handles that the atomic engine
// cannot serve.
func mutexValidate(cpp *Cpp, target int, address uint64) (err error) {
	if InterfaceType(cpp.Interface()) == INTERFACE_TYPE_INVALID {
		return ErrNotOwner
	}
	if target != TARGET_MU && target != TARGET_CLS {
		return ErrTargetInvalid
	}
	if address%8 != 0 {
		return ErrMisaligned
	}
	return
}

// MutexInit establishes the lock word at (target, address): the key is
// stored and the lock is left held by this handle's interface at depth 1.
//
// This is a plain bring-up write, not an atomic transition. It must run
// exactly once per physical location, before any contention begins;
// re-running it while other handles hold the lock corrupts their view.
func (cpp *Cpp) MutexInit(target int, address uint64, key uint32) (err error) {
	err = mutexValidate(cpp, target, address)
	if err != nil {
		return
	}

	muw := MakeID(target, ACTION_ATOMIC_WRITE, 0)
	word := uint64(key)<<32 | uint64(mutexValue(cpp.Interface(), 1))
	return cpp.WriteQ(muw, address, word)
}

// MutexAlloc attaches a handle to the lock word at (target, address). The
// stored key must match; a mismatch means the location was never
// initialized, or belongs to someone else, and fails with ErrKeyMismatch.
// Repeated allocs of the same location within one process share one cached
// handle.
func (cpp *Cpp) MutexAlloc(target int, address uint64, key uint32) (mutex *Mutex, err error) {
	err = mutexValidate(cpp, target, address)
	if err != nil {
		return
	}

	mur := MakeID(target, ACTION_ATOMIC_READ, 0)
	stored, err := cpp.ReadL(mur, address+4)
	if err != nil {
		return
	}
	if stored != key {
		err = ErrKeyMismatch
		return
	}

	cpp.mu.Lock()
	defer cpp.mu.Unlock()

	cached, ok := cpp.mutexCache[mutexKey{target, address}]
	if ok {
		cached.refs++
		mutex = cached
		return
	}

	mutex = &Mutex{
		cpp:     cpp,
		target:  target,
		address: address,
		key:     key,
		refs:    1,
	}
	cpp.mutexCache[mutexKey{target, address}] = mutex
	return
}

// Free drops this software reference to the lock. The hardware lock state
// is never touched; a held lock stays held. The cache entry is reclaimed
// when the last reference is dropped.
func (mutex *Mutex) Free() {
	cpp := mutex.cpp

	cpp.mu.Lock()
	defer cpp.mu.Unlock()

	mutex.refs--
	if mutex.refs <= 0 {
		delete(cpp.mutexCache, mutexKey{mutex.target, mutex.address})
	}
}

// Target returns the bus target holding the lock word.
func (mutex *Mutex) Target() int {
	return mutex.target
}

// Address returns the lock word's address within its target.
func (mutex *Mutex) Address() uint64 {
	return mutex.address
}

// readValue observes the owner/depth half of the lock word through the
// atomic engine's read path.
func (mutex *Mutex) readValue() (value uint32, err error) {
	mur := MakeID(mutex.target, ACTION_ATOMIC_READ, 0)
	return mutex.cpp.ReadL(mur, mutex.address)
}

// compareSwap issues one compare-and-swap transaction against the
// owner/depth half: the word moves from expect to next, or the transport
// reports ErrCompareMiss and nothing changes.
func (mutex *Mutex) compareSwap(expect uint32, next uint32) (err error) {
	mus := MakeID(mutex.target, ACTION_CMP_SWAP, 0)
	payload := uint64(next)<<32 | uint64(expect)
	return mutex.cpp.WriteQ(mus, mutex.address, payload)
}

// TryLock makes one attempt to take the lock. Reentrant acquisition by the
// current owner increments the depth. A lock held by another owner fails
// immediately with ErrWouldBlock, as does losing a compare-and-swap race.
func (mutex *Mutex) TryLock() (err error) {
	value, err := mutex.readValue()
	if err != nil {
		return
	}

	owner := uint16(value >> 16)
	depth := uint16(value)
	self := mutex.cpp.Interface()

	switch {
	case value == 0:
		err = mutex.compareSwap(0, mutexValue(self, 1))
	case owner == self:
		if depth == 0xffff {
			return ErrDepthLimit
		}
		err = mutex.compareSwap(value, mutexValue(self, depth+1))
	default:
		return ErrWouldBlock
	}

	if errors.Is(err, ErrCompareMiss) {
		err = ErrWouldBlock
	}
	return
}

// Lock takes the lock, blocking as long as another owner holds it. Retries
// back off up to MUTEX_RETRY_MAX but never stop; a caller needing a bound
// must impose one externally.
func (mutex *Mutex) Lock() (err error) {
	delay := MUTEX_RETRY_MIN
	for {
		err = mutex.TryLock()
		if !errors.Is(err, ErrWouldBlock) {
			return
		}

		time.Sleep(delay)
		delay *= 2
		if delay > MUTEX_RETRY_MAX {
			delay = MUTEX_RETRY_MAX
		}
	}
}

// Unlock releases one level of the lock. Only the current owner may
// unlock; anyone else fails with ErrNotOwner and the word is not touched.
// The word reaches UNLOCKED only when the depth returns to zero.
func (mutex *Mutex) Unlock() (err error) {
	self := mutex.cpp.Interface()

	for {
		var value uint32
		value, err = mutex.readValue()
		if err != nil {
			return
		}

		owner := uint16(value >> 16)
		depth := uint16(value)
		if owner != self || depth == 0 {
			return ErrNotOwner
		}

		var next uint32
		if depth > 1 {
			next = mutexValue(self, depth-1)
		}

		err = mutex.compareSwap(value, next)
		if !errors.Is(err, ErrCompareMiss) {
			return
		}
		// Lost a race against another thread on this same handle;
		// observe the new depth and try again.
	}
}
