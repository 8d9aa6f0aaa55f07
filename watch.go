package ringdbg

import (
	"sync/atomic"

	"github.com/AlephTX/ringdbg/layout"
)

// Watch states, as (inuse, resready) pairs (spec.md §4.F):
//
//	Free      (0, 0)
//	Armed     (1, 0)
//	Resolved  (1, 1)
//	Releasing (-2, *)
const (
	watchFree      int32 = 0
	watchInUse     int32 = 1
	watchReleasing int32 = -2
)

// NumWatches is the fixed per-ring watch slot count (spec.md §1 caps this
// at 4; there is no configuration option for it).
const NumWatches = 4

func (r *Ring) watch(slot int) *layout.Watch {
	rf := r.fixed()
	if rf == nil || slot < 0 || slot >= NumWatches {
		return nil
	}
	return &rf.Watches[slot]
}

// FindFreeWatch scans this ring's 4 watch slots for one in the Free
// state. ok is false if all four are in use — spec.md §4.F's "exhaustion
// is reported to the Monitor by scanning for a Free slot and finding
// none".
func (r *Ring) FindFreeWatch() (slot int, ok bool) {
	rf := r.fixed()
	if rf == nil {
		return -1, false
	}
	for i := range rf.Watches {
		if atomic.LoadInt32(&rf.Watches[i].Inuse) == watchFree {
			return i, true
		}
	}
	return -1, false
}

// ArmWatch is the Monitor's Free→Armed transition: it writes the
// expression, then publishes inuse=1 with a release store. It is a no-op
// returning false if the slot was not Free.
func (r *Ring) ArmWatch(slot int, expr string) bool {
	w := r.watch(slot)
	if w == nil {
		return false
	}
	if atomic.LoadInt32(&w.Inuse) != watchFree {
		return false
	}
	n := len(expr)
	if n > layout.ExprMax {
		n = layout.ExprMax
	}
	copy(w.Expr[:], expr[:n])
	w.ExprLength = int32(n)
	w.ResReady = 0
	atomic.StoreInt32(&w.Inuse, watchInUse)
	return true
}

// TakeWatch is the AUT's read of an Armed-but-not-yet-resolved slot,
// returning the expression to evaluate. ok is false for any other state.
func (r *Ring) TakeWatch(slot int) (expr string, ok bool) {
	w := r.watch(slot)
	if w == nil {
		return "", false
	}
	if atomic.LoadInt32(&w.Inuse) != watchInUse || atomic.LoadInt32(&w.ResReady) != 0 {
		return "", false
	}
	n := int(w.ExprLength)
	if n < 0 || n > layout.ExprMax {
		n = 0
	}
	return string(w.Expr[:n]), true
}

// PostWatchResult is the AUT's Armed→Resolved transition: it writes the
// (possibly truncated) result and a reslength — negative denotes
// evaluation failure, with the error text in result — then publishes
// resready=1 with a release store.
func (r *Ring) PostWatchResult(slot int, result []byte, resLength int32) bool {
	w := r.watch(slot)
	if w == nil {
		return false
	}
	if atomic.LoadInt32(&w.Inuse) != watchInUse || atomic.LoadInt32(&w.ResReady) != 0 {
		return false
	}
	n := len(result)
	if n > layout.ResultMax {
		n = layout.ResultMax
	}
	copy(w.Result[:], result[:n])
	w.ResLength = resLength
	atomic.StoreInt32(&w.ResReady, 1)
	return true
}

// ReadWatchResult is the Monitor's read of a Resolved slot.
func (r *Ring) ReadWatchResult(slot int) (result []byte, resLength int32, ok bool) {
	w := r.watch(slot)
	if w == nil {
		return nil, 0, false
	}
	if atomic.LoadInt32(&w.Inuse) != watchInUse || atomic.LoadInt32(&w.ResReady) != 1 {
		return nil, 0, false
	}
	resLength = w.ResLength
	n := int(resLength)
	if n < 0 {
		n = -n // negative reslength denotes failure; magnitude is the error text's length
	}
	if n > layout.ResultMax {
		n = layout.ResultMax
	}
	result = append([]byte(nil), w.Result[:n]...)
	ok = true
	return
}

// RearmWatch is the Monitor's Resolved→Armed transition, requesting
// re-evaluation of the same expression by resetting resready=0.
func (r *Ring) RearmWatch(slot int) bool {
	w := r.watch(slot)
	if w == nil {
		return false
	}
	if atomic.LoadInt32(&w.Inuse) != watchInUse || atomic.LoadInt32(&w.ResReady) != 1 {
		return false
	}
	atomic.StoreInt32(&w.ResReady, 0)
	return true
}

// ReleaseWatch is the Monitor's Any→Releasing transition.
func (r *Ring) ReleaseWatch(slot int) bool {
	w := r.watch(slot)
	if w == nil {
		return false
	}
	atomic.StoreInt32(&w.Inuse, watchReleasing)
	return true
}

// ReclaimWatch is the AUT's Releasing→Free transition, completing the
// teardown handshake. ok is false if the slot was not Releasing.
func (r *Ring) ReclaimWatch(slot int) bool {
	w := r.watch(slot)
	if w == nil {
		return false
	}
	if atomic.LoadInt32(&w.Inuse) != watchReleasing {
		return false
	}
	w.ResReady = 0
	atomic.StoreInt32(&w.Inuse, watchFree)
	return true
}
