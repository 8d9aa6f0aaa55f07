package ringdbg

import (
	"github.com/AlephTX/ringdbg/config"
	"github.com/AlephTX/ringdbg/mapping"
)

// Core is a handle to one ringdbg mapping, shared (by attaching to the
// same path) across every AUT process and the Monitor.
type Core struct {
	m *mapping.Mapping
}

// Create initializes, or idempotently attaches to, the mapping at path
// (spec.md §4.B). The first process to create a fresh file becomes its
// creator and, under the global lock, writes the header, marks every
// free-map entry free, and leaves the ring array zeroed; later processes
// attach.
func Create(path string, cfg config.Config) (*Core, error) {
	m, err := mapping.Create(path, cfg.ToLayout())
	if err != nil {
		return nil, err
	}
	return &Core{m: m}, nil
}

// Attach opens an existing mapping and validates it is shaped like cfg.
func Attach(path string, cfg config.Config) (*Core, error) {
	m, err := mapping.Attach(path, cfg.ToLayout())
	if err != nil {
		return nil, err
	}
	return &Core{m: m}, nil
}

// Teardown unmaps and closes the mapping, optionally unlinking the
// backing file.
func (c *Core) Teardown(unlink bool) error {
	return c.m.Teardown(unlink)
}

// NumRings returns max_buffers, the size of the ring pool.
func (c *Core) NumRings() int {
	return c.m.Layout().Config.Buffers
}

// RingAt returns a handle onto ring i regardless of its allocation state,
// for Monitor-side inspection and flag/mailbox/watch control. The
// returned handle does not own the ring — Free on it returns ErrNotOwner.
func (c *Core) RingAt(i int) *Ring {
	return &Ring{core: c, idx: i, owned: false}
}

// SingleFlag exposes the header's global single-step request (spec.md
// §4.H). The AUT must not write it; only the Monitor does in practice.
func (c *Core) SingleFlag() Flag {
	return Flag{ptr: &c.m.Header().Single}
}

// ReadGlobal returns a copy of the first globmsg_sz bytes of the global
// message area (spec.md §4.G).
func (c *Core) ReadGlobal() []byte {
	var out []byte
	c.m.WithGlobalLock(func() error {
		n := int(c.m.Header().GlobMsgSz)
		buf := c.m.GlobalBuffer()
		out = append([]byte(nil), buf[:n]...)
		return nil
	})
	return out
}

// WriteGlobal replaces the global message area's contents. It fails with
// ErrTooLarge, leaving the buffer untouched, if b does not fit.
func (c *Core) WriteGlobal(b []byte) error {
	return c.m.WithGlobalLock(func() error {
		buf := c.m.GlobalBuffer()
		if len(b) > len(buf) {
			return ErrTooLarge
		}
		copy(buf, b)
		c.m.Header().GlobMsgSz = int32(len(b))
		return nil
	})
}

// AppendGlobal appends as much of b as fits after the current contents
// and returns how many bytes were consumed, enabling chunked transfer of
// payloads larger than global_sz (spec.md §4.G).
func (c *Core) AppendGlobal(b []byte) (int, error) {
	var n int
	err := c.m.WithGlobalLock(func() error {
		buf := c.m.GlobalBuffer()
		h := c.m.Header()
		cur := int(h.GlobMsgSz)
		room := len(buf) - cur
		if room < 0 {
			room = 0
		}
		n = len(b)
		if n > room {
			n = room
		}
		copy(buf[cur:cur+n], b[:n])
		h.GlobMsgSz = int32(cur + n)
		return nil
	})
	return n, err
}

// ClearGlobal resets the global message area's logical length to zero,
// without touching its bytes — the Monitor calls this after draining a
// chunk so the next AppendGlobal starts from an empty buffer.
func (c *Core) ClearGlobal() error {
	return c.m.WithGlobalLock(func() error {
		c.m.Header().GlobMsgSz = 0
		return nil
	})
}
