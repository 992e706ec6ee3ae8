// Package loop serializes state transitions of a view through a single
// consumer mailbox.
//
// Send never blocks on the handler: the first sender finding the mailbox idle
// drains it on its own goroutine, later senders (including the handler
// itself) only enqueue. At most one message is being handled at any time.
package loop

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Option configures a Mailbox.
type Option func(*config)

type config struct {
	logger zerolog.Logger
	name   string
}

// WithLogger sets the logger used for dropped messages and handler panics.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithName labels log lines of the mailbox.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// Mailbox delivers messages of type M to one handler, in send order.
type Mailbox[M any] struct {
	mu       sync.Mutex
	queue    []M
	draining bool
	closed   bool
	idle     *sync.Cond
	handle   func(M)
	cfg      config
}

func New[M any](handle func(M), opts ...Option) *Mailbox[M] {
	cfg := config{logger: zerolog.Nop(), name: "mailbox"}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	m := &Mailbox[M]{handle: handle, cfg: cfg}
	m.idle = sync.NewCond(&m.mu)
	return m
}

// Send enqueues msg. It reports false when the mailbox is closed and the
// message was dropped.
func (m *Mailbox[M]) Send(msg M) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.cfg.logger.Debug().Str("mailbox", m.cfg.name).Msg("message dropped after close")
		return false
	}
	m.queue = append(m.queue, msg)
	if m.draining {
		m.mu.Unlock()
		return true
	}
	m.draining = true
	m.mu.Unlock()

	m.drain()
	return true
}

func (m *Mailbox[M]) drain() {
	for {
		m.mu.Lock()
		if len(m.queue) == 0 || m.closed {
			m.queue = nil
			m.draining = false
			m.idle.Broadcast()
			m.mu.Unlock()
			return
		}
		msg := m.queue[0]
		var zero M
		m.queue[0] = zero
		m.queue = m.queue[1:]
		m.mu.Unlock()

		m.deliver(msg)
	}
}

func (m *Mailbox[M]) deliver(msg M) {
	defer func() {
		if r := recover(); r != nil {
			m.cfg.logger.Error().
				Str("mailbox", m.cfg.name).
				Str("panic", fmt.Sprint(r)).
				Msg("message handler panicked")
		}
	}()
	m.handle(msg)
}

// Wait blocks until no message is queued or being handled. It must not be
// called from the handler.
func (m *Mailbox[M]) Wait() {
	m.mu.Lock()
	for m.draining {
		m.idle.Wait()
	}
	m.mu.Unlock()
}

// Close stops delivery. Queued messages are discarded and later sends are
// dropped. Close does not wait for the message being handled.
func (m *Mailbox[M]) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// Closed reports whether Close was called.
func (m *Mailbox[M]) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
