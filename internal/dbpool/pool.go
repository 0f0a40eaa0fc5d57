// Package dbpool bounds the number of live connections held against one
// logical database. Each logical database gets its own Pool instance,
// constructed explicitly and injected into the storage layer.
package dbpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrPoolExhausted is returned when the pool could not dial a new
	// connection. Waiting for an existing connection never produces it.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrPoolClosed is returned by Acquire after Close has been called.
	ErrPoolClosed = errors.New("connection pool closed")
)

const defaultSweepInterval = 30 * time.Second

// Options configures a Pool.
type Options[C any] struct {
	// Max bounds the number of live connections, idle or checked out.
	Max int

	// IdleTimeout is how long a connection may sit unused before the
	// sweep closes it. Zero disables eviction.
	IdleTimeout time.Duration

	// SweepInterval controls how often idle connections are examined.
	// Defaults to 30s when IdleTimeout is set.
	SweepInterval time.Duration

	// Dial creates a new connection. Dial failures surface to the
	// acquiring caller as ErrPoolExhausted; they are not retried.
	Dial func(ctx context.Context) (C, error)

	// Close tears down a connection evicted or drained from the pool.
	Close func(conn C) error
}

type idleConn[C any] struct {
	conn     C
	lastUsed time.Time
}

// Pool is a bounded set of live connections with idle-timeout eviction.
// Connections are checked out exclusively: a connection handed to one
// caller is never shared until released.
type Pool[C any] struct {
	opts Options[C]

	mu      sync.Mutex
	idle    []idleConn[C]
	live    int
	waiters []chan C
	closed  bool

	done chan struct{}
}

// New builds a pool and starts its idle sweep. Max must be positive and
// Dial must be set.
func New[C any](opts Options[C]) (*Pool[C], error) {
	if opts.Max <= 0 {
		return nil, fmt.Errorf("dbpool: max connections must be positive, got %d", opts.Max)
	}
	if opts.Dial == nil {
		return nil, errors.New("dbpool: dial function is required")
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}

	p := &Pool[C]{
		opts: opts,
		done: make(chan struct{}),
	}
	if opts.IdleTimeout > 0 {
		go p.sweepLoop()
	}
	return p, nil
}

// Acquire returns a connection, reusing an idle one when available and
// dialing a new one while fewer than Max connections are live. When the
// pool is saturated the caller suspends until a connection is released or
// ctx is done; with a background context it waits indefinitely.
func (p *Pool[C]) Acquire(ctx context.Context) (C, error) {
	var zero C

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return zero, ErrPoolClosed
	}

	if n := len(p.idle); n > 0 {
		conn := p.idle[n-1].conn
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return conn, nil
	}

	if p.live < p.opts.Max {
		p.live++
		p.mu.Unlock()

		conn, err := p.opts.Dial(ctx)
		if err != nil {
			p.mu.Lock()
			p.live--
			p.mu.Unlock()
			return zero, fmt.Errorf("%w: %v", ErrPoolExhausted, err)
		}
		return conn, nil
	}

	w := make(chan C, 1)
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	select {
	case conn, ok := <-w:
		if !ok {
			return zero, ErrPoolClosed
		}
		return conn, nil
	case <-ctx.Done():
		p.removeWaiter(w)
		// A release may have handed us a connection while we were
		// cancelling; put it back so it is not leaked.
		select {
		case conn, ok := <-w:
			if ok {
				p.Release(conn)
			}
		default:
		}
		return zero, ctx.Err()
	}
}

// Release returns a checked-out connection to the pool, handing it
// directly to a waiting acquirer when one exists.
func (p *Pool[C]) Release(conn C) {
	p.mu.Lock()
	if p.closed {
		p.live--
		p.mu.Unlock()
		p.closeConn(conn)
		return
	}

	if len(p.waiters) > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		// The send must happen under the lock: removeWaiter serializes
		// on it, so a cancelling waiter's drain always observes the
		// connection. Cap 1 keeps the send non-blocking.
		w <- conn
		p.mu.Unlock()
		return
	}

	p.idle = append(p.idle, idleConn[C]{conn: conn, lastUsed: time.Now()})
	p.mu.Unlock()
}

// Discard removes a broken connection from the pool instead of returning
// it to the idle set, freeing its slot for a fresh dial.
func (p *Pool[C]) Discard(conn C) {
	p.mu.Lock()
	p.live--
	p.mu.Unlock()
	p.closeConn(conn)
}

// Stats reports current pool occupancy.
type Stats struct {
	Live int
	Idle int
}

// Stats returns a snapshot of pool occupancy.
func (p *Pool[C]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Live: p.live, Idle: len(p.idle)}
}

// Close drains the pool: idle connections are closed, pending acquirers
// fail with ErrPoolClosed, and later Acquire calls fail immediately.
// Checked-out connections are closed as they are released.
func (p *Pool[C]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	waiters := p.waiters
	p.waiters = nil
	p.live -= len(idle)
	close(p.done)
	p.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
	for _, ic := range idle {
		p.closeConn(ic.conn)
	}
}

func (p *Pool[C]) sweepLoop() {
	ticker := time.NewTicker(p.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			p.evictIdle(now)
		case <-p.done:
			return
		}
	}
}

// evictIdle closes connections unused for longer than IdleTimeout and
// returns how many were evicted.
func (p *Pool[C]) evictIdle(now time.Time) int {
	cutoff := now.Add(-p.opts.IdleTimeout)

	p.mu.Lock()
	var expired []C
	kept := p.idle[:0]
	for _, ic := range p.idle {
		if ic.lastUsed.Before(cutoff) {
			expired = append(expired, ic.conn)
		} else {
			kept = append(kept, ic)
		}
	}
	p.idle = kept
	p.live -= len(expired)
	p.mu.Unlock()

	for _, conn := range expired {
		p.closeConn(conn)
	}
	return len(expired)
}

func (p *Pool[C]) removeWaiter(w chan C) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, other := range p.waiters {
		if other == w {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return
		}
	}
}

func (p *Pool[C]) closeConn(conn C) {
	if p.opts.Close != nil {
		_ = p.opts.Close(conn)
	}
}
