package ringdbg

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AlephTX/ringdbg/config"
)

func testCfg(t *testing.T, buffers, slots, slotSize, msgSize, globalSize int) config.Config {
	return config.Config{
		Buffers:    buffers,
		Slots:      slots,
		SlotSize:   slotSize,
		MsgSize:    msgSize,
		GlobalSize: globalSize,
		Path:       filepath.Join(t.TempDir(), "ring.map"),
	}
}

// Allocation/free with buffers=3.
func TestAllocateFreeLowestIndexFirst(t *testing.T) {
	cfg := testCfg(t, 3, 4, 64, 64, 1024)
	c, err := Create(cfg.Path, cfg)
	require.NoError(t, err)
	defer c.Teardown(true)

	r0, err := c.Allocate()
	require.NoError(t, err)
	require.Equal(t, 0, r0.Index())
	requireFreeMap(t, c, []byte{0, 1, 1})

	r1, err := c.Allocate()
	require.NoError(t, err)
	require.Equal(t, 1, r1.Index())
	requireFreeMap(t, c, []byte{0, 0, 1})

	require.NoError(t, c.Free(r0))
	requireFreeMap(t, c, []byte{1, 0, 1})

	r2, err := c.Allocate()
	require.NoError(t, err)
	require.Equal(t, 0, r2.Index())
}

func TestAllocateStampsPidTidAndPolicy(t *testing.T) {
	cfg := testCfg(t, 2, 4, 64, 64, 1024)
	cfg.TraceOnCreate = true
	c, err := Create(cfg.Path, cfg)
	require.NoError(t, err)
	defer c.Teardown(true)

	r, err := c.Allocate()
	require.NoError(t, err)
	require.NotZero(t, r.Pid())
	require.NotZero(t, r.Tid())
	require.EqualValues(t, 1, r.TraceFlag().Get())
	require.Zero(t, r.Depth())
}

func TestFreeIsIdempotent(t *testing.T) {
	cfg := testCfg(t, 2, 4, 64, 64, 1024)
	c, err := Create(cfg.Path, cfg)
	require.NoError(t, err)
	defer c.Teardown(true)

	r, err := c.Allocate()
	require.NoError(t, err)
	require.NoError(t, c.Free(r))
	require.NoError(t, c.Free(r))
}

func TestFreeOnUnownedHandleIsRejected(t *testing.T) {
	cfg := testCfg(t, 2, 4, 64, 64, 1024)
	c, err := Create(cfg.Path, cfg)
	require.NoError(t, err)
	defer c.Teardown(true)

	_, err = c.Allocate()
	require.NoError(t, err)

	view := c.RingAt(0)
	require.ErrorIs(t, c.Free(view), ErrNotOwner)
}

// Exhaustion is non-fatal.
func TestAllocateExhaustedYieldsNoOpHandle(t *testing.T) {
	cfg := testCfg(t, 1, 4, 64, 64, 1024)
	c, err := Create(cfg.Path, cfg)
	require.NoError(t, err)
	defer c.Teardown(true)

	r1, err := c.Allocate()
	require.NoError(t, err)
	require.Equal(t, 0, r1.Index())

	r2, err := c.Allocate()
	require.ErrorIs(t, err, ErrExhausted)
	require.Equal(t, -1, r2.Index())

	// The null handle must not panic and must behave as a no-op.
	r2.Enter("whatever")
	r2.Record(1, 2.0)
	r2.Leave()
	require.Zero(t, r2.Depth())
	require.Nil(t, r2.Snapshot())
	require.False(t, r2.PostCommand([4]byte{'S', 'T', 'E', 'P'}, nil))
	require.NoError(t, c.Free(r2))
}

func requireFreeMap(t *testing.T, c *Core, want []byte) {
	t.Helper()
	got := c.m.FreeMap()
	require.Equal(t, want, []byte(got))
}
