package ringdbg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// End-to-end mailbox round-trip.
func TestMailboxRoundTrip(t *testing.T) {
	cfg := testCfg(t, 1, 4, 64, 64, 1024)
	c, err := Create(cfg.Path, cfg)
	require.NoError(t, err)
	defer c.Teardown(true)

	r, err := c.Allocate()
	require.NoError(t, err)

	ok := r.PostCommand([4]byte{'S', 'T', 'E', 'P'}, nil)
	require.True(t, ok)

	cmd, msg, ok := r.TakeRequest()
	require.True(t, ok)
	require.Equal(t, [4]byte{'S', 'T', 'E', 'P'}, cmd)
	require.Empty(t, msg)

	require.True(t, r.PostResponse([]byte("OK")))

	resp, ok := r.ReadResponse()
	require.True(t, ok)
	require.Equal(t, "OK", string(resp))

	r.AckResponse()
	require.EqualValues(t, cmdIdle, r.fixed().Cmdready)
}

func TestPostCommandNoOpWhileBusy(t *testing.T) {
	cfg := testCfg(t, 1, 4, 64, 64, 1024)
	c, err := Create(cfg.Path, cfg)
	require.NoError(t, err)
	defer c.Teardown(true)

	r, err := c.Allocate()
	require.NoError(t, err)

	require.True(t, r.PostCommand([4]byte{'A'}, []byte("first")))
	require.False(t, r.PostCommand([4]byte{'B'}, []byte("second")))

	cmd, msg, ok := r.TakeRequest()
	require.True(t, ok)
	require.Equal(t, byte('A'), cmd[0])
	require.Equal(t, "first", string(msg))
}

func TestPostCommandRejectsOversizedMessage(t *testing.T) {
	cfg := testCfg(t, 1, 4, 64, 4, 1024)
	c, err := Create(cfg.Path, cfg)
	require.NoError(t, err)
	defer c.Teardown(true)

	r, err := c.Allocate()
	require.NoError(t, err)
	require.False(t, r.PostCommand([4]byte{'A'}, []byte("way too long")))
	require.EqualValues(t, cmdIdle, r.fixed().Cmdready)
}

func TestAbandonCommandAllowsMonitorToGiveUp(t *testing.T) {
	cfg := testCfg(t, 1, 4, 64, 64, 1024)
	c, err := Create(cfg.Path, cfg)
	require.NoError(t, err)
	defer c.Teardown(true)

	r, err := c.Allocate()
	require.NoError(t, err)

	require.True(t, r.PostCommand([4]byte{'A'}, nil))
	r.AbandonCommand()

	_, ok := r.ReadResponse()
	require.False(t, ok)
	require.True(t, r.PostCommand([4]byte{'B'}, nil))
}
