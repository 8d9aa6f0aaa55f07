// Package config resolves ringdbg's Config from, in ascending
// precedence: documented defaults, an optional TOML file,
// RINGDBG_-prefixed environment variables, and finally functional
// options passed at construction.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/AlephTX/ringdbg/layout"
)

const (
	DefaultBuffers       = 20
	DefaultSlots         = 10
	DefaultSlotSize      = 200
	DefaultMsgSize       = 256
	DefaultGlobalSize    = 16384
	DefaultStopOnCreate  = false
	DefaultTraceOnCreate = false
)

// Config is the resolved set of options for one ringdbg mapping.
type Config struct {
	Buffers       int    `toml:"buffers"`
	Slots         int    `toml:"slots"`
	SlotSize      int    `toml:"slot_sz"`
	MsgSize       int    `toml:"msg_sz"`
	GlobalSize    int    `toml:"global_sz"`
	StopOnCreate  bool   `toml:"stop_on_create"`
	TraceOnCreate bool   `toml:"trace_on_create"`
	Path          string `toml:"file"`
}

// Default returns the documented defaults with no file path set.
func Default() Config {
	return Config{
		Buffers:       DefaultBuffers,
		Slots:         DefaultSlots,
		SlotSize:      DefaultSlotSize,
		MsgSize:       DefaultMsgSize,
		GlobalSize:    DefaultGlobalSize,
		StopOnCreate:  DefaultStopOnCreate,
		TraceOnCreate: DefaultTraceOnCreate,
	}
}

// Option overrides a resolved Config at construction time — the highest
// precedence level.
type Option func(*Config)

func WithPath(path string) Option         { return func(c *Config) { c.Path = path } }
func WithBuffers(n int) Option            { return func(c *Config) { c.Buffers = n } }
func WithSlots(n int) Option              { return func(c *Config) { c.Slots = n } }
func WithSlotSize(n int) Option           { return func(c *Config) { c.SlotSize = n } }
func WithMsgSize(n int) Option            { return func(c *Config) { c.MsgSize = n } }
func WithGlobalSize(n int) Option         { return func(c *Config) { c.GlobalSize = n } }
func WithStopOnCreate(stop bool) Option   { return func(c *Config) { c.StopOnCreate = stop } }
func WithTraceOnCreate(trace bool) Option { return func(c *Config) { c.TraceOnCreate = trace } }

// Load resolves a Config. tomlPath may be empty, in which case the file
// layer is skipped. A ".env" in the current directory, if present, is
// loaded into the process environment first (best effort — a missing
// file is not an error), so RINGDBG_* variables can be supplied that way
// in local development.
func Load(tomlPath string, opts ...Option) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if tomlPath != "" {
		b, err := os.ReadFile(tomlPath)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", tomlPath, err)
		}
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", tomlPath, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Path == "" {
		cfg.Path = defaultPath()
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("RINGDBG_BUFFERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: RINGDBG_BUFFERS: %w", err)
		}
		cfg.Buffers = n
	}
	if v, ok := os.LookupEnv("RINGDBG_SLOTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: RINGDBG_SLOTS: %w", err)
		}
		cfg.Slots = n
	}
	if v, ok := os.LookupEnv("RINGDBG_SLOT_SZ"); ok {
		n, err := parseSize(v)
		if err != nil {
			return fmt.Errorf("config: RINGDBG_SLOT_SZ: %w", err)
		}
		cfg.SlotSize = n
	}
	if v, ok := os.LookupEnv("RINGDBG_MSG_SZ"); ok {
		n, err := parseSize(v)
		if err != nil {
			return fmt.Errorf("config: RINGDBG_MSG_SZ: %w", err)
		}
		cfg.MsgSize = n
	}
	if v, ok := os.LookupEnv("RINGDBG_GLOBAL_SZ"); ok {
		n, err := parseSize(v)
		if err != nil {
			return fmt.Errorf("config: RINGDBG_GLOBAL_SZ: %w", err)
		}
		cfg.GlobalSize = n
	}
	if v, ok := os.LookupEnv("RINGDBG_STOP_ON_CREATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: RINGDBG_STOP_ON_CREATE: %w", err)
		}
		cfg.StopOnCreate = b
	}
	if v, ok := os.LookupEnv("RINGDBG_TRACE_ON_CREATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: RINGDBG_TRACE_ON_CREATE: %w", err)
		}
		cfg.TraceOnCreate = b
	}
	if v, ok := os.LookupEnv("RINGDBG_FILE"); ok {
		cfg.Path = v
	}
	return nil
}

// parseSize accepts either a bare byte count ("16384") or a
// human-friendly size ("16KB") for the size-valued options.
func parseSize(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	var sz datasize.ByteSize
	if err := sz.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return int(sz.Bytes()), nil
}

// defaultPath builds "<tmpdir>/<scriptname>.<pid>_<mon>_<day>_<HH:MM:SS>"
// when no file path is configured.
func defaultPath() string {
	script := filepath.Base(os.Args[0])
	now := time.Now()
	return filepath.Join(os.TempDir(), fmt.Sprintf("%s.%d_%02d_%02d_%02d:%02d:%02d",
		script, os.Getpid(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second()))
}

// ToLayout projects the size-related fields into a layout.Config.
func (c Config) ToLayout() layout.Config {
	return layout.Config{
		Buffers:       c.Buffers,
		Slots:         c.Slots,
		SlotSize:      c.SlotSize,
		MsgSize:       c.MsgSize,
		GlobalSize:    c.GlobalSize,
		StopOnCreate:  boolToFlag(c.StopOnCreate),
		TraceOnCreate: boolToFlag(c.TraceOnCreate),
	}
}

func boolToFlag(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
