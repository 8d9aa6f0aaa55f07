package ringdbg

import (
	"os"

	"github.com/AlephTX/ringdbg/layout"
	"github.com/AlephTX/ringdbg/mapping"
)

// Allocate scans the free-map for the lowest free index under the global
// lock, claims it, and stamps pid/tid/policy flags.
//
// If the pool is exhausted, Allocate returns the null Ring handle
// alongside ErrExhausted — the caller is expected to keep using the
// returned handle (every method on it is a no-op) rather than branch on
// the error, so an AUT that loses the allocation race simply runs
// uninstrumented.
func (c *Core) Allocate() (*Ring, error) {
	idx := -1
	err := c.m.WithGlobalLock(func() error {
		freeMap := c.m.FreeMap()
		for i, b := range freeMap {
			if b == 1 {
				idx = i
				freeMap[i] = 0
				break
			}
		}
		if idx < 0 {
			return ErrExhausted
		}

		rf := c.m.RingFixed(idx)
		rf.Pid = int32(os.Getpid())
		rf.Tid = int32(mapping.ThreadID())
		rf.CurrSlot = 0
		rf.Depth = 0
		rf.BaseOff = int32(c.m.Layout().RingOffset(idx))
		rf.Trace = c.m.Header().TraceOnCreate
		rf.Signal = c.m.Header().StopOnCreate
		rf.Watches = [4]layout.Watch{}
		rf.Cmdready = 0
		rf.Command = [4]byte{}
		rf.Msglen = 0
		return nil
	})
	if err != nil {
		return &Ring{core: c, idx: -1}, err
	}
	return &Ring{core: c, idx: idx, owned: true}, nil
}

// Free releases a ring back to the pool under the global lock, zeroing
// its pid/tid. A freed handle becomes a null handle, so calling Free twice
// on the same owned handle is safe and does nothing the second time.
// Calling it on a handle obtained via
// RingAt (which does not own the ring) returns ErrNotOwner and leaves the
// pool untouched.
func (c *Core) Free(r *Ring) error {
	if r == nil || r.idx < 0 {
		return nil
	}
	if !r.owned {
		return ErrNotOwner
	}
	err := c.m.WithGlobalLock(func() error {
		rf := c.m.RingFixed(r.idx)
		rf.Pid = 0
		rf.Tid = 0
		c.m.FreeMap()[r.idx] = 1
		return nil
	})
	if err == nil {
		r.idx = -1
	}
	return err
}
