package ringdbg

import "sync/atomic"

// Mailbox states.
const (
	cmdIdle     int32 = 0
	cmdRequest  int32 = 1
	cmdResponse int32 = -2
)

// PostCommand is the Monitor-side half of step 1 of the mailbox protocol:
// it writes command/msg and publishes cmdready=1 with a release store so
// the AUT's acquire load is guaranteed to see the payload. It is a no-op
// returning false if the mailbox is not idle (protocol misuse is silently
// ignored) or if msg does not fit msgarea_sz.
func (r *Ring) PostCommand(cmd [4]byte, msg []byte) bool {
	rf := r.fixed()
	if rf == nil {
		return false
	}
	if atomic.LoadInt32(&rf.Cmdready) != cmdIdle {
		return false
	}
	ma := r.core.m.MsgArea(r.idx)
	if len(msg) > len(ma) {
		return false
	}
	copy(ma, msg)
	rf.Command = cmd
	rf.Msglen = int32(len(msg))
	atomic.StoreInt32(&rf.Cmdready, cmdRequest)
	return true
}

// TakeRequest is the AUT-side half of step 2: an acquire load of cmdready
// that, if a request is posted, returns a copy of the command and
// message. ok is false if no request is pending.
func (r *Ring) TakeRequest() (cmd [4]byte, msg []byte, ok bool) {
	rf := r.fixed()
	if rf == nil {
		return
	}
	if atomic.LoadInt32(&rf.Cmdready) != cmdRequest {
		return
	}
	cmd = rf.Command
	n := int(rf.Msglen)
	ma := r.core.m.MsgArea(r.idx)
	if n > len(ma) {
		n = len(ma)
	}
	msg = append([]byte(nil), ma[:n]...)
	ok = true
	return
}

// PostResponse is the rest of step 2: the AUT writes its response and
// publishes cmdready=-2 with a release store. It is a no-op returning
// false if no request is pending (for example because the Monitor
// abandoned it) or if msg does not fit msgarea_sz.
func (r *Ring) PostResponse(msg []byte) bool {
	rf := r.fixed()
	if rf == nil {
		return false
	}
	if atomic.LoadInt32(&rf.Cmdready) != cmdRequest {
		return false
	}
	ma := r.core.m.MsgArea(r.idx)
	if len(msg) > len(ma) {
		return false
	}
	copy(ma, msg)
	rf.Msglen = int32(len(msg))
	return atomic.CompareAndSwapInt32(&rf.Cmdready, cmdRequest, cmdResponse)
}

// ReadResponse is the Monitor-side half of step 3: an acquire load of
// cmdready that, if a response is ready, returns a copy of it. ok is
// false if no response is ready yet.
func (r *Ring) ReadResponse() (msg []byte, ok bool) {
	rf := r.fixed()
	if rf == nil {
		return
	}
	if atomic.LoadInt32(&rf.Cmdready) != cmdResponse {
		return
	}
	n := int(rf.Msglen)
	ma := r.core.m.MsgArea(r.idx)
	if n > len(ma) {
		n = len(ma)
	}
	msg = append([]byte(nil), ma[:n]...)
	ok = true
	return
}

// AckResponse completes step 3 by publishing cmdready=0, returning the
// mailbox to idle for the next request.
func (r *Ring) AckResponse() {
	rf := r.fixed()
	if rf == nil {
		return
	}
	atomic.StoreInt32(&rf.Cmdready, cmdIdle)
}

// AbandonCommand lets the Monitor give up on a request an AUT thread
// never serviced, by resetting cmdready=0 directly. Spec.md §4.E notes
// the AUT's eventual cmdready=-2 store is then silently lost; the
// Monitor MUST call ReadResponse again (it will see idle, not a stale
// response) before trusting any response to this request.
func (r *Ring) AbandonCommand() {
	rf := r.fixed()
	if rf == nil {
		return
	}
	atomic.StoreInt32(&rf.Cmdready, cmdIdle)
}
