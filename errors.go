package tracegc

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacityExceeded is returned when the handle table cannot grow or the
	// byte budget is exhausted. The failed registration can be retried after a
	// collection.
	ErrCapacityExceeded = errors.New("tracegc: capacity exceeded")

	// ErrPinOverflow is returned when a pin would exceed the configured maximum.
	ErrPinOverflow = errors.New("tracegc: pin count overflow")

	// ErrPinUnderflow is returned when unpinning a handle whose pin count is zero.
	ErrPinUnderflow = errors.New("tracegc: pin count underflow")

	// ErrDuplicateRegistration is returned when an address is registered while
	// a live handle already owns it.
	ErrDuplicateRegistration = errors.New("tracegc: duplicate registration")

	// ErrCollectionInProgress is returned by Collect when another cycle is running.
	ErrCollectionInProgress = errors.New("tracegc: collection in progress")

	// ErrReentrantFinalize is returned when a finalizer tries to register an object.
	ErrReentrantFinalize = errors.New("tracegc: registration from finalizer")

	// ErrInvalidHandle is returned when pinning or unpinning an expired handle.
	ErrInvalidHandle = errors.New("tracegc: invalid handle")

	// ErrInvalidObject is returned when registering something that is not a
	// non-nil pointer, or a pointer to a zero-sized value.
	ErrInvalidObject = errors.New("tracegc: object must be a non-nil pointer")

	// ErrClosed is returned when the collector has been closed.
	ErrClosed = errors.New("tracegc: collector closed")
)

// DuplicateRegistrationError reports the address and the live handle that
// already owns it.
//
// errors.Is(err, ErrDuplicateRegistration) holds for every instance.
type DuplicateRegistrationError struct {
	Addr     uintptr
	Existing Handle
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("tracegc: duplicate registration of %#x (owned by %s)", e.Addr, e.Existing)
}

func (e *DuplicateRegistrationError) Unwrap() error { return ErrDuplicateRegistration }

// FinalizerPanicError wraps a value recovered from a panicking finalizer.
type FinalizerPanicError struct {
	Handle Handle
	Tag    TypeTag
	Value  any
}

func (e *FinalizerPanicError) Error() string {
	return fmt.Sprintf("tracegc: finalizer for %s (tag %d) panicked: %v", e.Handle, e.Tag, e.Value)
}
