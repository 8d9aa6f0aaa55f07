package ringdbg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Slot wrap with slots=3.
func TestEnterRecordLeaveWrap(t *testing.T) {
	cfg := testCfg(t, 1, 3, 64, 64, 1024)
	c, err := Create(cfg.Path, cfg)
	require.NoError(t, err)
	defer c.Teardown(true)

	r, err := c.Allocate()
	require.NoError(t, err)

	r.Enter("a")
	r.Record(10, 1.0)
	r.Enter("b")
	r.Record(20, 2.0)
	r.Enter("c")
	r.Record(30, 3.0)
	r.Enter("d")
	r.Record(40, 4.0)

	require.EqualValues(t, 4, r.Depth())
	require.EqualValues(t, 0, r.fixed().CurrSlot)

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	require.Equal(t, "d", snap[0].Subroutine)
	require.EqualValues(t, 40, snap[0].Line)
	require.Equal(t, 4.0, snap[0].Timestamp)
	require.Equal(t, "c", snap[1].Subroutine)
	require.Equal(t, "b", snap[2].Subroutine)
}

func TestLeaveNeverUnderflows(t *testing.T) {
	cfg := testCfg(t, 1, 3, 64, 64, 1024)
	c, err := Create(cfg.Path, cfg)
	require.NoError(t, err)
	defer c.Teardown(true)

	r, err := c.Allocate()
	require.NoError(t, err)

	r.Leave()
	r.Leave()
	require.Zero(t, r.Depth())

	r.Enter("a")
	r.Leave()
	r.Leave() // extra Leave, must not panic or go negative
	require.Zero(t, r.Depth())
}

func TestEnterTruncatesLongSubroutineName(t *testing.T) {
	cfg := testCfg(t, 1, 2, 8, 64, 1024)
	c, err := Create(cfg.Path, cfg)
	require.NoError(t, err)
	defer c.Teardown(true)

	r, err := c.Allocate()
	require.NoError(t, err)

	r.Enter("this_name_is_longer_than_slot_sz")
	r.Record(1, 1.0)

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	require.Len(t, snap[0].Subroutine, 7) // slot_sz(8) - 1 for the NUL
}

func TestSnapshotEmptyWhenDepthZero(t *testing.T) {
	cfg := testCfg(t, 1, 2, 8, 64, 1024)
	c, err := Create(cfg.Path, cfg)
	require.NoError(t, err)
	defer c.Teardown(true)

	r, err := c.Allocate()
	require.NoError(t, err)
	require.Nil(t, r.Snapshot())
}
