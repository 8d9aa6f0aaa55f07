// Package mapping owns the backing file, the mmap'd region, and the
// two-level (process-local mutex + OS advisory file lock) locking
// discipline: the mutex is always acquired before the file lock, so one
// process's threads never race each other while that process holds the
// file lock. Everything above this package treats the mapping as an
// opaque, lockable byte region plus a typed Header view.
package mapping

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"github.com/AlephTX/ringdbg/layout"
)

// Mapping is a handle to one ringdbg backing file, shared by every AUT
// thread and the Monitor that has opened it.
type Mapping struct {
	file   *os.File
	data   []byte
	layout layout.Layout
	path   string

	// mu is the intra-process thread mutex. It is always acquired before
	// the OS file lock, in that order, so that two threads of the same
	// process racing for with_global_lock never deadlock against the
	// file lock this process itself holds.
	mu sync.Mutex
}

// Create initializes a zeroed mapping at path sized per cfg, or attaches
// to it if the file already exists with matching dimensions (idempotent
// in shape). A pre-existing file whose header disagrees with cfg fails
// with ErrConfigMismatch.
func Create(path string, cfg layout.Config) (*Mapping, error) {
	l := layout.New(cfg)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, ErrFileSystem, err)
	}

	m := &Mapping{file: f, layout: l, path: path}

	if err := m.lockBoth(); err != nil {
		f.Close()
		return nil, err
	}
	defer m.unlockBoth()

	// Size must be (re-)read under the lock: two AUT processes racing to
	// create the same new path both see an empty file before either
	// acquires the lock, and the second to acquire it must attach to what
	// the first already initialized, not re-initialize over it.
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w: %w", path, ErrFileSystem, err)
	}

	if fi.Size() == 0 {
		if err := m.initialize(l); err != nil {
			f.Close()
			return nil, err
		}
		return m, nil
	}

	if err := m.attachLocked(l); err != nil {
		f.Close()
		return nil, err
	}
	return m, nil
}

// Attach opens an existing mapping and validates that its on-disk header
// is self-consistent with cfg. Unlike Create it never initializes a new
// file.
func Attach(path string, cfg layout.Config) (*Mapping, error) {
	l := layout.New(cfg)

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, ErrFileSystem, err)
	}

	m := &Mapping{file: f, layout: l, path: path}

	if err := m.lockBoth(); err != nil {
		f.Close()
		return nil, err
	}
	defer m.unlockBoth()

	if err := m.attachLocked(l); err != nil {
		f.Close()
		return nil, err
	}
	return m, nil
}

// initialize truncates the file to size (zero-filled), maps it, writes
// the header's size fields, and marks every free-map entry free. Caller
// must already hold both locks.
func (m *Mapping) initialize(l layout.Layout) error {
	if err := m.file.Truncate(int64(l.TotalSize)); err != nil {
		return fmt.Errorf("truncate %s: %w: %w", m.path, ErrFileSystem, err)
	}

	data, err := mmap(int(m.file.Fd()), l.TotalSize)
	if err != nil {
		return err
	}
	m.data = data

	h := m.headerPtr()
	h.Single = 0
	h.MsgAreaSz = int32(l.Config.MsgSize)
	h.MaxBuffers = int32(l.Config.Buffers)
	h.Slots = int32(l.Config.Slots)
	h.SlotSz = int32(l.Config.SlotSize)
	h.StopOnCreate = l.Config.StopOnCreate
	h.TraceOnCreate = l.Config.TraceOnCreate
	h.GlobalSz = int32(l.Config.GlobalSize)
	h.GlobMsgSz = 0

	freeMap := m.FreeMap()
	for i := range freeMap {
		freeMap[i] = 1 // every ring starts free
	}

	return nil
}

// attachLocked maps an existing, already-sized file and validates its
// header against l. Caller must already hold both locks.
func (m *Mapping) attachLocked(l layout.Layout) error {
	fi, err := m.file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w: %w", m.path, ErrFileSystem, err)
	}
	if int(fi.Size()) != l.TotalSize {
		return fmt.Errorf("%s: file size %d, expected %d: %w", m.path, fi.Size(), l.TotalSize, ErrConfigMismatch)
	}

	data, err := mmap(int(m.file.Fd()), l.TotalSize)
	if err != nil {
		return err
	}
	m.data = data

	if !l.Matches(*m.headerPtr()) {
		munmap(data)
		m.data = nil
		return fmt.Errorf("%s: header shape disagrees with config: %w", m.path, ErrConfigMismatch)
	}
	return nil
}

func (m *Mapping) lockBoth() error {
	m.mu.Lock()
	if err := flockExclusive(int(m.file.Fd())); err != nil {
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Mapping) unlockBoth() {
	flockUnlock(int(m.file.Fd()))
	m.mu.Unlock()
}

// WithGlobalLock runs fn under the process-local mutex and the OS
// advisory file lock, in that order, and guarantees both are released on
// every exit path including a panic unwinding through fn.
func (m *Mapping) WithGlobalLock(fn func() error) error {
	if err := m.lockBoth(); err != nil {
		return err
	}
	defer m.unlockBoth()
	return fn()
}

// Teardown unmaps the region and closes the backing file. If unlink is
// true the backing file is also removed; otherwise it is left in place
// for post-mortem inspection.
func (m *Mapping) Teardown(unlink bool) error {
	var err error
	if m.data != nil {
		err = munmap(m.data)
		m.data = nil
	}
	if cerr := m.file.Close(); err == nil {
		err = cerr
	}
	if unlink {
		if rerr := os.Remove(m.path); err == nil {
			err = rerr
		}
	}
	return err
}

// Layout returns the computed offsets for this mapping's configuration.
func (m *Mapping) Layout() layout.Layout { return m.layout }

// Path returns the backing file path.
func (m *Mapping) Path() string { return m.path }

// Data returns the raw mapped bytes. Components above this package use
// Layout's offsets to carve typed views out of it.
func (m *Mapping) Data() []byte { return m.data }

func (m *Mapping) headerPtr() *layout.Header {
	return (*layout.Header)(unsafe.Pointer(&m.data[0]))
}

// Header returns a pointer into the live mapping; reads/writes through it
// observe and mutate the shared header directly.
func (m *Mapping) Header() *layout.Header { return m.headerPtr() }

// GlobalBuffer returns the global message area as a byte window.
func (m *Mapping) GlobalBuffer() []byte {
	return m.data[m.layout.GlobalOff : m.layout.GlobalOff+m.layout.Config.GlobalSize]
}

// FreeMap returns the free-map as a byte window; 1 means free, 0 in use.
func (m *Mapping) FreeMap() []byte {
	return m.data[m.layout.FreeMapOff : m.layout.FreeMapOff+m.layout.Config.Buffers]
}

// RingFixed returns a pointer to ring i's fixed-size field prefix.
func (m *Mapping) RingFixed(i int) *layout.RingFixed {
	off := m.layout.RingOffset(i)
	return (*layout.RingFixed)(unsafe.Pointer(&m.data[off]))
}

// MsgArea returns ring i's mailbox message-area window.
func (m *Mapping) MsgArea(i int) []byte {
	off := m.layout.MsgAreaOffset(i)
	return m.data[off : off+m.layout.Config.MsgSize]
}

// SlotFixed returns a pointer to slot j's fixed-size field prefix within ring i.
func (m *Mapping) SlotFixed(i, j int) *layout.SlotFixed {
	off := m.layout.SlotOffset(i, j)
	return (*layout.SlotFixed)(unsafe.Pointer(&m.data[off]))
}

// Subroutine returns the NUL-terminated name window of slot j within ring i.
func (m *Mapping) Subroutine(i, j int) []byte {
	off := m.layout.SubroutineOffset(i, j)
	return m.data[off : off+m.layout.Config.SlotSize]
}

// ThreadID returns the calling OS thread's id, used by the allocator to
// stamp a newly allocated ring's tid.
func ThreadID() int { return threadID() }
