package ringdbg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSingleFlagIsSharedAcrossRings(t *testing.T) {
	cfg := testCfg(t, 2, 4, 64, 64, 1024)
	c, err := Create(cfg.Path, cfg)
	require.NoError(t, err)
	defer c.Teardown(true)

	f := c.SingleFlag()
	require.Zero(t, f.Get())
	f.Set(1)
	require.EqualValues(t, 1, c.SingleFlag().Get())
}

func TestTraceAndSignalFlagsArePerRing(t *testing.T) {
	cfg := testCfg(t, 2, 4, 64, 64, 1024)
	c, err := Create(cfg.Path, cfg)
	require.NoError(t, err)
	defer c.Teardown(true)

	r0, err := c.Allocate()
	require.NoError(t, err)
	r1, err := c.Allocate()
	require.NoError(t, err)

	r0.TraceFlag().Set(1)
	require.EqualValues(t, 1, r0.TraceFlag().Get())
	require.Zero(t, r1.TraceFlag().Get())

	r1.SignalFlag().Set(1)
	require.EqualValues(t, 1, r1.SignalFlag().Get())
	require.Zero(t, r0.SignalFlag().Get())
}

func TestNullHandleFlagsAreSafeNoOps(t *testing.T) {
	cfg := testCfg(t, 1, 4, 64, 64, 1024)
	c, err := Create(cfg.Path, cfg)
	require.NoError(t, err)
	defer c.Teardown(true)

	_, err = c.Allocate()
	require.NoError(t, err)

	r2, err := c.Allocate()
	require.ErrorIs(t, err, ErrExhausted)

	r2.TraceFlag().Set(1)
	require.Zero(t, r2.TraceFlag().Get())
	require.Zero(t, r2.SignalFlag().Get())
}
