package ringdbg

import (
	"sync/atomic"

	"github.com/AlephTX/ringdbg/layout"
)

// Ring is a per-thread façade over one ring record (spec.md §4.D). AUT
// threads call Enter/Leave/Record/flag accessors with no locking; the
// Monitor drives the same methods plus the mailbox and watch operations
// defined in mailbox.go and watch.go.
//
// A Ring with idx < 0 is the "null handle" Allocate returns alongside
// ErrExhausted: every method on it is a no-op, so an AUT that failed to
// get a ring can keep calling into it unconditionally (spec.md §7).
type Ring struct {
	core  *Core
	idx   int
	owned bool
}

// Index returns the ring's slot in the pool, or -1 for a null handle.
func (r *Ring) Index() int { return r.idx }

func (r *Ring) fixed() *layout.RingFixed {
	if r == nil || r.idx < 0 {
		return nil
	}
	return r.core.m.RingFixed(r.idx)
}

// Pid returns the owning process id at allocation time.
func (r *Ring) Pid() int32 {
	rf := r.fixed()
	if rf == nil {
		return 0
	}
	return rf.Pid
}

// Tid returns the owning OS thread id at allocation time.
func (r *Ring) Tid() int32 {
	rf := r.fixed()
	if rf == nil {
		return 0
	}
	return rf.Tid
}

// Depth returns the logical stack depth, which may exceed the slot count.
func (r *Ring) Depth() int32 {
	rf := r.fixed()
	if rf == nil {
		return 0
	}
	return rf.Depth
}

// Enter pushes a new call frame: depth increments, currSlot advances
// (wrapping) once depth exceeds 1, and the truncated, NUL-terminated
// subroutine name is written into the new current slot. Line number and
// timestamp are left for the following Record call.
func (r *Ring) Enter(name string) {
	rf := r.fixed()
	if rf == nil {
		return
	}
	slots := int32(r.core.m.Layout().Config.Slots)
	rf.Depth++
	if rf.Depth > 1 {
		rf.CurrSlot = (rf.CurrSlot + 1) % slots
	}
	sub := r.core.m.Subroutine(r.idx, int(rf.CurrSlot))
	max := len(sub) - 1
	n := len(name)
	if n > max {
		n = max
	}
	copy(sub[:n], name)
	sub[n] = 0
}

// Leave pops the current call frame. depth never goes negative; a Leave
// with no matching Enter is a no-op, preserving the depth >= 0 invariant.
func (r *Ring) Leave() {
	rf := r.fixed()
	if rf == nil || rf.Depth <= 0 {
		return
	}
	slots := int32(r.core.m.Layout().Config.Slots)
	rf.Depth--
	if rf.Depth > 0 {
		rf.CurrSlot = (rf.CurrSlot - 1 + slots) % slots
	}
}

// Record overwrites the current slot's line number and timestamp. It
// takes no lock and performs no allocation; the two field writes are not
// atomic with each other, so a concurrent Monitor snapshot may observe a
// torn update (spec.md §5 accepts this).
func (r *Ring) Record(line int32, timestamp float64) {
	rf := r.fixed()
	if rf == nil {
		return
	}
	sf := r.core.m.SlotFixed(r.idx, int(rf.CurrSlot))
	sf.LineNumber = line
	sf.Timestamp = timestamp
}

// Slot is one recorded execution frame, as returned by Snapshot.
type Slot struct {
	Line       int32
	Timestamp  float64
	Subroutine string
}

// Snapshot returns the min(depth, slots) most recent slots, from the
// current slot back, in logical-stack order (most recent frame first). It is
// a best-effort reader-side helper: concurrent AUT writes may be observed
// torn, and the caller is expected to re-snapshot on its own refresh
// cadence rather than treat any one snapshot as authoritative.
func (r *Ring) Snapshot() []Slot {
	rf := r.fixed()
	if rf == nil {
		return nil
	}
	slots := r.core.m.Layout().Config.Slots
	depth := int(rf.Depth)
	k := depth
	if k > slots {
		k = slots
	}
	if k <= 0 {
		return nil
	}
	cur := int(rf.CurrSlot)
	out := make([]Slot, 0, k)
	for n := 0; n < k; n++ {
		idx := ((cur-n)%slots + slots) % slots
		sf := r.core.m.SlotFixed(r.idx, idx)
		sub := r.core.m.Subroutine(r.idx, idx)
		out = append(out, Slot{
			Line:       sf.LineNumber,
			Timestamp:  sf.Timestamp,
			Subroutine: cString(sub),
		})
	}
	return out
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// Flag is a scalar accessor presented to the AUT's debug hook as if it
// were an ordinary integer variable — the "tied scalar" design note in
// spec.md §9. It wraps a plain aligned int32 load/store; there is no lock
// and, for Trace/Signal, no single-writer assumption (spec.md §5: "races
// are last-writer-wins by design").
type Flag struct {
	ptr *int32
}

// Get performs an atomic load.
func (f Flag) Get() int32 {
	if f.ptr == nil {
		return 0
	}
	return atomic.LoadInt32(f.ptr)
}

// Set performs an atomic store.
func (f Flag) Set(v int32) {
	if f.ptr == nil {
		return
	}
	atomic.StoreInt32(f.ptr, v)
}

// TraceFlag exposes this ring's per-thread trace flag.
func (r *Ring) TraceFlag() Flag {
	rf := r.fixed()
	if rf == nil {
		return Flag{}
	}
	return Flag{ptr: &rf.Trace}
}

// SignalFlag exposes this ring's per-thread signal (stop request) flag.
func (r *Ring) SignalFlag() Flag {
	rf := r.fixed()
	if rf == nil {
		return Flag{}
	}
	return Flag{ptr: &rf.Signal}
}
