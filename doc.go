// Package ringdbg implements the shared-memory ring-buffer facility used
// to instrument a running Application Under Test (AUT) out of band, from
// a separate Monitor process. An AUT thread allocates a Ring once and
// then pushes/pops call frames into it (Enter/Leave/Record) without ever
// taking a lock; the Monitor reads and drives rings, the mailbox, and the
// watch-expression channel through lock-free atomic state words, and the
// global message area under a process-local mutex plus an OS-level
// advisory file lock (package mapping), which also guards allocation.
// There is no broker and no background goroutine: every
// operation is either wait-free or blocks on that one lock.
package ringdbg
