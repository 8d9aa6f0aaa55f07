package ringdbg

import "errors"

// Error kinds specific to ring/allocator/area operations. ConfigMismatch
// and FileSystem live in package mapping, since they only ever arise
// from Create/Attach.
var (
	// ErrExhausted is returned by Allocate when no free ring remains.
	// It is a normal, expected outcome — the AUT continues uninstrumented.
	ErrExhausted = errors.New("ringdbg: no free ring")

	// ErrTooLarge is returned when a global-area write exceeds global_sz.
	ErrTooLarge = errors.New("ringdbg: payload exceeds configured bound")

	// ErrNotOwner is returned by Free when called on a Ring handle that
	// did not itself allocate the ring (e.g. a Monitor's read/write view
	// obtained via Core.RingAt).
	ErrNotOwner = errors.New("ringdbg: handle does not own this ring")

	// ErrTorn is reserved for reader-side snapshot validation. Snapshot
	// does not currently detect torn reads (they are tolerated by
	// design), so this is never returned today.
	ErrTorn = errors.New("ringdbg: torn read")
)
