package cpp

import (
	"errors"

	"github.com/ezrec/cppbus/translate"
)

var f = translate.From

var (
	// Argument validation errors
	ErrTargetInvalid = errors.New(f("target invalid"))
	ErrSizeInvalid   = errors.New(f("size invalid"))
	ErrMisaligned    = errors.New(f("offset misaligned"))
	ErrOutOfRange    = errors.New(f("offset out of range"))
	ErrNotAcquired   = errors.New(f("area not acquired"))

	// Resource errors
	ErrNoWindow = errors.New(f("no mapping window free"))

	// Mutex errors
	ErrKeyMismatch = errors.New(f("mutex key mismatch"))
	ErrNotOwner    = errors.New(f("mutex not owned"))
	ErrWouldBlock  = errors.New(f("mutex held by another owner"))
	ErrDepthLimit  = errors.New(f("mutex depth limit")) // lock depth counter saturated

	// ErrCompareMiss is returned by the transport when a compare-and-swap
	// transaction observes a value other than the expected one.
	ErrCompareMiss = errors.New(f("compare-and-swap miss"))
)
