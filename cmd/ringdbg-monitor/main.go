// Command ringdbg-monitor is a demo Monitor: it attaches to an existing
// ringdbg mapping and exposes snapshot/poke/watch subcommands against it,
// optionally forwarding resolved events to a notify subscriber.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AlephTX/ringdbg"
	"github.com/AlephTX/ringdbg/config"
	"github.com/AlephTX/ringdbg/notify"
)

var (
	tomlPath   string
	notifySock string
	log        *zap.Logger
)

func main() {
	var err error
	log, err = zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	root := &cobra.Command{
		Use:   "ringdbg-monitor",
		Short: "Inspect and steer a ringdbg-instrumented AUT",
	}
	root.PersistentFlags().StringVar(&tomlPath, "config", "", "ringdbg TOML config path")
	root.PersistentFlags().StringVar(&notifySock, "notify", "", "Unix socket to forward events to")

	root.AddCommand(snapshotCmd(), pokeCmd(), watchCmd())

	if err := root.Execute(); err != nil {
		log.Fatal("command failed", zap.Error(err))
	}
}

func attach() (*ringdbg.Core, *config.Config, error) {
	cfg, err := config.Load(tomlPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	core, err := ringdbg.Attach(cfg.Path, *cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("attach %s: %w", cfg.Path, err)
	}
	return core, cfg, nil
}

// ringAt validates ring against core's pool size before indexing into the
// mapping — core.RingAt itself does not bounds-check, since the Monitor is
// the only caller that takes the index from untrusted CLI input.
func ringAt(core *ringdbg.Core, ring int) (*ringdbg.Ring, error) {
	if ring < 0 || ring >= core.NumRings() {
		return nil, fmt.Errorf("ring %d out of range [0,%d)", ring, core.NumRings())
	}
	return core.RingAt(ring), nil
}

func maybeNotifier() *notify.Publisher {
	if notifySock == "" {
		return nil
	}
	return notify.NewPublisher(notifySock, log)
}

// snapshotCmd dumps every allocated ring's current call stack, polling
// concurrently across the whole ring pool via errgroup — a read-only
// pass that never takes the global lock per ring (spec.md §4.D).
func snapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print the call stack of every allocated ring",
		RunE: func(cmd *cobra.Command, args []string) error {
			core, _, err := attach()
			if err != nil {
				return err
			}
			defer core.Teardown(false)

			type found struct {
				idx   int
				slots []ringdbg.Slot
			}
			results := make([]found, core.NumRings())

			g, _ := errgroup.WithContext(cmd.Context())
			for i := 0; i < core.NumRings(); i++ {
				i := i
				g.Go(func() error {
					r := core.RingAt(i)
					if r.Pid() == 0 {
						return nil
					}
					results[i] = found{idx: i, slots: r.Snapshot()}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			for _, f := range results {
				if f.slots == nil {
					continue
				}
				fmt.Printf("ring %d:\n", f.idx)
				for _, s := range f.slots {
					fmt.Printf("  %-32s line=%d ts=%.3f\n", s.Subroutine, s.Line, s.Timestamp)
				}
			}
			return nil
		},
	}
}

// pokeCmd posts a mailbox command to one ring and waits for its response.
func pokeCmd() *cobra.Command {
	var ring int
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "poke <cmd> [msg]",
		Short: "Post a mailbox command to a ring and print the response",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, _, err := attach()
			if err != nil {
				return err
			}
			defer core.Teardown(false)

			var tag [4]byte
			copy(tag[:], args[0])
			var msg []byte
			if len(args) > 1 {
				msg = []byte(args[1])
			}

			r, err := ringAt(core, ring)
			if err != nil {
				return err
			}
			if !r.PostCommand(tag, msg) {
				return fmt.Errorf("mailbox busy or message too large for ring %d", ring)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			notifier := maybeNotifier()
			if notifier != nil {
				defer notifier.Close()
			}

			ticker := time.NewTicker(20 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					r.AbandonCommand()
					return fmt.Errorf("timed out waiting for ring %d", ring)
				case <-ticker.C:
					if resp, ok := r.ReadResponse(); ok {
						r.AckResponse()
						fmt.Println(string(resp))
						if notifier != nil {
							notifier.Publish(ctx, notify.Event{Type: "response", Ring: ring})
						}
						return nil
					}
				}
			}
		},
	}
	cmd.Flags().IntVar(&ring, "ring", 0, "ring index")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "how long to wait for a response")
	return cmd
}

// watchCmd arms a watch expression on a ring and waits for it to resolve.
func watchCmd() *cobra.Command {
	var ring int
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "watch <expr>",
		Short: "Arm a watch expression on a ring and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, _, err := attach()
			if err != nil {
				return err
			}
			defer core.Teardown(false)

			r, err := ringAt(core, ring)
			if err != nil {
				return err
			}
			slot, ok := r.FindFreeWatch()
			if !ok {
				return fmt.Errorf("ring %d has no free watch slot", ring)
			}
			if !r.ArmWatch(slot, args[0]) {
				return fmt.Errorf("failed to arm watch slot %d", slot)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			notifier := maybeNotifier()
			if notifier != nil {
				defer notifier.Close()
			}

			ticker := time.NewTicker(20 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					r.ReleaseWatch(slot)
					return fmt.Errorf("timed out waiting for watch %q on ring %d", args[0], ring)
				case <-ticker.C:
					if result, resLength, ok := r.ReadWatchResult(slot); ok {
						if resLength < 0 {
							fmt.Printf("eval error: %s\n", result)
						} else {
							fmt.Println(string(result))
						}
						if notifier != nil {
							notifier.Publish(ctx, notify.Event{Type: "watch", Ring: ring})
						}
						r.ReleaseWatch(slot)
						return nil
					}
				}
			}
		},
	}
	cmd.Flags().IntVar(&ring, "ring", 0, "ring index")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "how long to wait for a result")
	return cmd
}
