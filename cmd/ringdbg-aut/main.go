// Command ringdbg-aut is a demo Application Under Test: it allocates a
// ring, drives a synthetic call stack on a ticker, and services mailbox
// and watch requests from a Monitor. It exists to exercise the ringdbg
// core end to end, not as a production instrumentation target.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/AlephTX/ringdbg"
	"github.com/AlephTX/ringdbg/config"
)

// callStack is the synthetic subroutine stack this demo AUT walks, grounded
// in the same random-walk-driven ticker loop as a real AUT's debug hook.
var callStack = []string{"main", "handle_request", "parse_body", "validate", "dispatch", "commit"}

func main() {
	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load(os.Getenv("RINGDBG_TOML"))
	if err != nil {
		log.Fatal("config load failed", zap.Error(err))
	}

	core, err := ringdbg.Create(cfg.Path, *cfg)
	if err != nil {
		log.Fatal("mapping create failed", zap.Error(err), zap.String("path", cfg.Path))
	}
	defer core.Teardown(false)

	r, err := core.Allocate()
	if err != nil {
		log.Warn("ring exhausted, running uninstrumented", zap.Error(err))
	}
	defer core.Free(r)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("aut started",
		zap.String("path", cfg.Path),
		zap.Int("ring", r.Index()),
		zap.Int("pid", os.Getpid()),
	)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	rng := newXorshift(uint64(time.Now().UnixNano()) | 1)
	var line int32
	depth := 0

	for {
		select {
		case <-ctx.Done():
			log.Info("aut stopping")
			return
		case <-ticker.C:
			if r.SignalFlag().Get() != 0 {
				log.Info("signal flag set, AUT would stop here")
			}

			if rng.next()%3 != 0 || depth >= len(callStack)-1 {
				for depth > 0 {
					r.Leave()
					depth--
				}
			} else {
				r.Enter(callStack[depth])
				depth++
			}
			line += int32(rng.next()%7) + 1
			r.Record(line, float64(time.Now().UnixNano())/1e9)

			serviceMailbox(log, r)
			serviceWatches(log, r)
		}
	}
}

func serviceMailbox(log *zap.Logger, r *ringdbg.Ring) {
	cmd, msg, ok := r.TakeRequest()
	if !ok {
		return
	}
	log.Debug("mailbox request", zap.ByteString("cmd", cmd[:]), zap.ByteString("msg", msg))
	switch string(cmd[:]) {
	case "PING":
		r.PostResponse([]byte("PONG"))
	case "STEP":
		r.PostResponse([]byte("OK"))
	default:
		r.PostResponse(nil)
	}
}

func serviceWatches(log *zap.Logger, r *ringdbg.Ring) {
	for i := 0; i < ringdbg.NumWatches; i++ {
		if r.ReclaimWatch(i) {
			continue
		}
		expr, ok := r.TakeWatch(i)
		if !ok {
			continue
		}
		log.Debug("watch request", zap.Int("slot", i), zap.String("expr", expr))
		// Expression evaluation is an external collaborator's job; this
		// demo just echoes the expression back as its own "result".
		r.PostWatchResult(i, []byte(expr), int32(len(expr)))
	}
}

// xorshift is a tiny allocation-free PRNG, avoiding a dependency on
// math/rand's global lock for a hot ticker loop.
type xorshift struct{ s uint64 }

func newXorshift(seed uint64) *xorshift { return &xorshift{s: seed} }

func (x *xorshift) next() uint64 {
	x.s ^= x.s << 13
	x.s ^= x.s >> 7
	x.s ^= x.s << 17
	return x.s
}
