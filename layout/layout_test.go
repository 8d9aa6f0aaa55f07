package layout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func smallConfig() Config {
	return Config{
		Buffers:    3,
		Slots:      4,
		SlotSize:   64,
		MsgSize:    64,
		GlobalSize: 1024,
	}
}

func TestTotalSizeCoversEveryRegion(t *testing.T) {
	cfg := smallConfig()
	l := New(cfg)

	require.Equal(t, l.HeaderSize, l.GlobalOff)
	require.Equal(t, l.GlobalOff+cfg.GlobalSize, l.FreeMapOff)
	require.GreaterOrEqual(t, l.RingsOff, l.FreeMapOff+cfg.Buffers)
	require.Equal(t, l.RingsOff+cfg.Buffers*l.RingStride, l.TotalSize)

	for i := 0; i < cfg.Buffers; i++ {
		require.Less(t, l.RingOffset(i)+l.RingStride, l.TotalSize+1)
	}
}

func TestRingOffsetsAreAlignedAndNonOverlapping(t *testing.T) {
	cfg := smallConfig()
	l := New(cfg)

	require.Zero(t, l.RingsOff%8, "rings array must start 8-byte aligned")

	for i := 0; i < cfg.Buffers; i++ {
		for j := 0; j < cfg.Slots; j++ {
			off := l.SlotOffset(i, j)
			require.Zero(t, off%8, "slot %d/%d timestamp must be 8-byte aligned", i, j)
		}
		if i+1 < cfg.Buffers {
			require.LessOrEqual(t, l.RingOffset(i)+l.RingStride, l.RingOffset(i+1))
		}
	}
}

func TestOddSlotSizeStillAligns(t *testing.T) {
	cfg := smallConfig()
	cfg.SlotSize = 13 // deliberately unaligned
	l := New(cfg)

	require.Zero(t, l.SlotStride%8)
	for j := 0; j < cfg.Slots; j++ {
		require.Zero(t, l.SlotOffset(0, j)%8)
	}
}

func TestMatches(t *testing.T) {
	cfg := smallConfig()
	l := New(cfg)

	h := Header{
		MaxBuffers: int32(cfg.Buffers),
		Slots:      int32(cfg.Slots),
		SlotSz:     int32(cfg.SlotSize),
		MsgAreaSz:  int32(cfg.MsgSize),
		GlobalSz:   int32(cfg.GlobalSize),
	}
	require.True(t, l.Matches(h))

	h.Slots = int32(cfg.Slots + 1)
	require.False(t, l.Matches(h))
}
