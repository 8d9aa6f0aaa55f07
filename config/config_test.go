package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultBuffers, cfg.Buffers)
	require.Equal(t, DefaultSlots, cfg.Slots)
	require.Equal(t, DefaultSlotSize, cfg.SlotSize)
	require.Equal(t, DefaultMsgSize, cfg.MsgSize)
	require.Equal(t, DefaultGlobalSize, cfg.GlobalSize)
	require.NotEmpty(t, cfg.Path)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("RINGDBG_BUFFERS", "5")
	t.Setenv("RINGDBG_GLOBAL_SZ", "2KB")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 5, cfg.Buffers)
	require.Equal(t, 2048, cfg.GlobalSize)
}

func TestOptionsOverrideEnv(t *testing.T) {
	t.Setenv("RINGDBG_BUFFERS", "5")

	cfg, err := Load("", WithBuffers(7), WithPath("/tmp/explicit"))
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Buffers)
	require.Equal(t, "/tmp/explicit", cfg.Path)
}

func TestToLayoutProjectsFlags(t *testing.T) {
	cfg := Default()
	cfg.StopOnCreate = true
	l := cfg.ToLayout()
	require.EqualValues(t, 1, l.StopOnCreate)
	require.EqualValues(t, 0, l.TraceOnCreate)
}
