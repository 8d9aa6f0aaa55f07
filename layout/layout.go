// Package layout computes the byte offsets of the ringdbg mapping and
// exposes the fixed-size typed views that the rest of the module casts
// onto the mapped region. Nothing here touches a file or a mapping; it is
// pure arithmetic over a Config, so it can be unit-tested without mmap.
package layout

import "unsafe"

// Fixed sizes mandated by the wire format — these are not configurable,
// unlike Buffers/Slots/SlotSize/MsgSize/GlobalSize.
const (
	ExprMax     = 256
	ResultMax   = 512
	CommandLen  = 4
	watchCount  = 4
	headerWords = 9
)

// Header is the fixed-size mapping header (spec §3 "Header").
type Header struct {
	Single        int32
	MsgAreaSz     int32
	MaxBuffers    int32
	Slots         int32
	SlotSz        int32
	StopOnCreate  int32
	TraceOnCreate int32
	GlobalSz      int32
	GlobMsgSz     int32
}

// Watch is one of the four per-ring watch-expression slots (spec §3
// "Watch record"). Size is fixed regardless of configuration.
type Watch struct {
	Inuse      int32
	ExprLength int32
	Expr       [ExprMax]byte
	ResReady   int32
	ResLength  int32
	Result     [ResultMax]byte
}

// RingFixed is the fixed-size prefix of a per-ring record (spec §3
// "Per-ring record"), everything except the variable-length mailbox
// message area and the slot array. Those are addressed as raw byte
// windows via Layout, since their size depends on Config.
type RingFixed struct {
	Pid      int32
	Tid      int32
	CurrSlot int32
	Depth    int32
	Trace    int32
	Signal   int32
	BaseOff  int32
	Watches  [watchCount]Watch
	Cmdready int32
	Command  [CommandLen]byte
	Msglen   int32
}

// SlotFixed is the fixed-size prefix of one execution slot (spec §3
// "Slot"): everything but the trailing subroutine-name bytes.
type SlotFixed struct {
	LineNumber int32
	_          int32 // alignment padding so Timestamp lands on an 8-byte boundary
	Timestamp  float64
}

var (
	headerSize    = int(unsafe.Sizeof(Header{}))
	ringFixedSize = int(unsafe.Sizeof(RingFixed{}))
	slotFixedSize = int(unsafe.Sizeof(SlotFixed{}))
)

// Config carries the five size parameters plus the two creation-policy
// flags. It does not carry the backing path; that lives one layer up in
// package config.
type Config struct {
	Buffers       int
	Slots         int
	SlotSize      int
	MsgSize       int
	GlobalSize    int
	StopOnCreate  int32
	TraceOnCreate int32
}

// Layout is the set of computed offsets for one Config. All fields are
// relative to the start of the mapping unless documented otherwise.
type Layout struct {
	Config Config

	HeaderSize int
	GlobalOff  int
	FreeMapOff int
	RingsOff   int

	RingFixedSize int
	SlotsRelOff   int // relative to a ring record's start
	SlotStride    int
	RingStride    int

	TotalSize int
}

func align8(n int) int {
	return (n + 7) &^ 7
}

// New computes a Layout for cfg. It does not validate cfg against an
// on-disk header; callers that attach to an existing mapping should
// additionally call Layout.Matches.
func New(cfg Config) Layout {
	l := Layout{
		Config:        cfg,
		HeaderSize:    headerSize,
		RingFixedSize: ringFixedSize,
	}
	l.GlobalOff = l.HeaderSize
	l.FreeMapOff = l.GlobalOff + cfg.GlobalSize
	l.RingsOff = align8(l.FreeMapOff + cfg.Buffers)

	l.SlotsRelOff = align8(l.RingFixedSize + cfg.MsgSize)
	l.SlotStride = align8(slotFixedSize + cfg.SlotSize)
	l.RingStride = l.SlotsRelOff + cfg.Slots*l.SlotStride

	l.TotalSize = l.RingsOff + cfg.Buffers*l.RingStride
	return l
}

// RingOffset returns the absolute byte offset of ring record i.
func (l Layout) RingOffset(i int) int {
	return l.RingsOff + i*l.RingStride
}

// MsgAreaOffset returns the absolute offset of ring i's mailbox message area.
func (l Layout) MsgAreaOffset(i int) int {
	return l.RingOffset(i) + l.RingFixedSize
}

// SlotOffset returns the absolute offset of slot j within ring i.
func (l Layout) SlotOffset(i, j int) int {
	return l.RingOffset(i) + l.SlotsRelOff + j*l.SlotStride
}

// SubroutineOffset returns the absolute offset of the subroutine-name
// bytes of slot j within ring i.
func (l Layout) SubroutineOffset(i, j int) int {
	return l.SlotOffset(i, j) + slotFixedSize
}

// FreeMapByte returns the absolute offset of free_map[i].
func (l Layout) FreeMapByte(i int) int {
	return l.FreeMapOff + i
}

// Matches reports whether an on-disk header describes the same shape as
// l.Config — used by Mapping.Attach to detect ConfigMismatch.
func (l Layout) Matches(h Header) bool {
	return int(h.MaxBuffers) == l.Config.Buffers &&
		int(h.Slots) == l.Config.Slots &&
		int(h.SlotSz) == l.Config.SlotSize &&
		int(h.MsgAreaSz) == l.Config.MsgSize &&
		int(h.GlobalSz) == l.Config.GlobalSize
}
