// Package redisstream publishes lifecycle events to a Redis Stream so
// external consumers can follow graph runs live.
package redisstream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/graphtap/graphtap/event"
)

const (
	defaultPrefix = "graphtap"
	defaultMaxLen = 10000
)

// Listener implements event.Listener by appending each event to a Redis
// Stream. Publishing is fire-and-forget: a failed XAdd is counted but
// never interrupts the run being observed.
type Listener struct {
	client   *goredis.Client
	addr     string
	password string
	db       int
	prefix   string
	stream   string
	maxLen   int64
	timeout  time.Duration

	dropped int64
}

type Option func(*Listener)

func WithClient(client *goredis.Client) Option {
	return func(l *Listener) {
		if client != nil {
			l.client = client
		}
	}
}

func WithPrefix(prefix string) Option {
	return func(l *Listener) {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" {
			l.prefix = prefix
		}
	}
}

func WithPassword(password string) Option {
	return func(l *Listener) { l.password = password }
}

func WithDB(db int) Option {
	return func(l *Listener) { l.db = db }
}

// WithMaxLen caps the stream length; older entries are trimmed
// approximately.
func WithMaxLen(n int64) Option {
	return func(l *Listener) {
		if n > 0 {
			l.maxLen = n
		}
	}
}

func New(addr string, opts ...Option) (*Listener, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	l := &Listener{
		addr:    addr,
		prefix:  defaultPrefix,
		maxLen:  defaultMaxLen,
		timeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.client == nil {
		l.client = goredis.NewClient(&goredis.Options{Addr: l.addr, Password: l.password, DB: l.db})
	}
	if err := l.client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	l.stream = l.prefix + ":events"
	return l, nil
}

// Stream returns the stream key events are published to.
func (l *Listener) Stream() string {
	if l == nil {
		return ""
	}
	return l.stream
}

// Dropped reports how many events failed to publish.
func (l *Listener) Dropped() int64 {
	if l == nil {
		return 0
	}
	return l.dropped
}

func (l *Listener) publish(kind string, e event.Event) {
	if l == nil || l.client == nil {
		return
	}
	e.Normalize()
	payload, err := json.Marshal(e)
	if err != nil {
		l.dropped++
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	err = l.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: l.stream,
		MaxLen: l.maxLen,
		Approx: true,
		Values: map[string]any{
			"kind":    kind,
			"payload": string(payload),
		},
	}).Err()
	if err != nil {
		l.dropped++
	}
}

func (l *Listener) GraphStarted(e event.Event)  { l.publish("graph.started", e) }
func (l *Listener) GraphFinished(e event.Event) { l.publish("graph.finished", e) }
func (l *Listener) GraphFailed(e event.Event)   { l.publish("graph.failed", e) }
func (l *Listener) NodeStarted(e event.Event)   { l.publish("node.started", e) }
func (l *Listener) NodeFinished(e event.Event)  { l.publish("node.finished", e) }
func (l *Listener) NodeFailed(e event.Event)    { l.publish("node.failed", e) }

func (l *Listener) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}

var _ event.Listener = (*Listener)(nil)
