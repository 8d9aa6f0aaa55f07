// Package notify streams ringdbg events to an external subscriber over a
// Unix socket, for the demo Monitor CLI. It is not part of the core
// read/write path: a subscriber that is slow, absent, or gone entirely
// never affects Monitor or AUT operations, only notify's own best-effort
// delivery.
package notify

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Event is the envelope written to the subscriber, one JSON object per line.
type Event struct {
	Type    string          `json:"type"`
	Ring    int             `json:"ring"`
	Payload json.RawMessage `json:"payload"`
}

// Publisher dials a Unix socket and forwards Events to it, reconnecting
// with backoff when the subscriber is unavailable.
type Publisher struct {
	path string
	log  *zap.Logger

	mu   sync.Mutex
	conn net.Conn
}

// NewPublisher returns a Publisher for path. Connection is best-effort and
// lazy: a missing subscriber at startup is not an error.
func NewPublisher(path string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Publisher{path: path, log: log}
	p.dial()
	return p
}

func (p *Publisher) dial() {
	conn, err := net.Dial("unix", p.path)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()
	p.log.Debug("notify: connected", zap.String("path", p.path))
}

// Publish encodes and sends an event, retrying a short backoff schedule if
// the subscriber is currently unreachable. It never blocks the caller
// indefinitely: the backoff has a max elapsed time, after which the event
// is dropped and logged.
func (p *Publisher) Publish(ctx context.Context, evt Event) {
	raw, err := json.Marshal(evt)
	if err != nil {
		p.log.Warn("notify: encode failed", zap.Error(err))
		return
	}
	raw = append(raw, '\n')

	op := func() (struct{}, error) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if p.conn == nil {
			conn, err := net.Dial("unix", p.path)
			if err != nil {
				return struct{}{}, err
			}
			p.conn = conn
		}
		if _, err := p.conn.Write(raw); err != nil {
			p.conn.Close()
			p.conn = nil
			return struct{}{}, err
		}
		return struct{}{}, nil
	}

	_, err = backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(2*time.Second),
	)
	if err != nil {
		p.log.Debug("notify: publish dropped", zap.String("type", evt.Type), zap.Error(err))
	}
}

// Close releases the underlying connection, if any.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
