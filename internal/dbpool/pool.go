package dbpool

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Conn is a pooled database connection. Implementations wrap a real driver
// connection; tests substitute fakes.
type Conn interface {
	// Ping probes liveness. A nil return means the connection is usable.
	Ping(ctx context.Context) error
	// Close tears the connection down. Called on recycle, probe failure,
	// and pool shutdown.
	Close() error
}

// Factory dials a fresh connection. Called lazily: the pool opens
// connections on demand, never ahead of it.
type Factory func(ctx context.Context) (Conn, error)

// Options tunes the pool lifecycle policy.
type Options struct {
	// Capacity bounds the number of live connections (base size plus any
	// deployment-level overflow).
	Capacity int
	// AcquireTimeout bounds the wait for a free slot when the pool is
	// fully checked out.
	AcquireTimeout time.Duration
	// ConnMaxAge is the recycle interval: a handle older than this is
	// discarded and replaced instead of being handed out again.
	ConnMaxAge time.Duration
	// PingRetries bounds how many candidate connections are probed per
	// acquisition before giving up with ErrConnectionUnavailable.
	PingRetries int
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

func (o *Options) withDefaults() {
	if o.Capacity < 1 {
		o.Capacity = 1
	}
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = 30 * time.Second
	}
	if o.ConnMaxAge <= 0 {
		o.ConnMaxAge = time.Hour
	}
	if o.PingRetries < 1 {
		o.PingRetries = 3
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Handle is one borrowed connection. A handle is exclusively owned by its
// borrower between Acquire and Release and must be released exactly once.
type Handle struct {
	conn      Conn
	createdAt time.Time
	released  bool // guarded by pool.mu
}

// Conn returns the underlying connection.
func (h *Handle) Conn() Conn { return h.conn }

// CreatedAt reports when the underlying connection was dialed.
func (h *Handle) CreatedAt() time.Time { return h.createdAt }

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	Idle     int   // handles sitting in the freelist
	InUse    int   // handles currently borrowed
	Dials    int64 // total connections created
	Discards int64 // total connections closed due to age or probe failure
}

// Pool owns a bounded set of database connections. It is safe for concurrent
// Acquire/Release from multiple goroutines; waiting blocks only the caller.
type Pool struct {
	factory Factory
	opts    Options
	log     zerolog.Logger

	slots chan struct{} // capacity permits; one held per borrowed/idle slot in use

	mu       sync.Mutex
	idle     []*Handle // LIFO freelist
	inUse    int
	dials    int64
	discards int64
	closed   bool
}

// New builds a pool around factory. No connection is dialed until the first
// Acquire.
func New(factory Factory, opts Options, log zerolog.Logger) *Pool {
	opts.withDefaults()
	p := &Pool{
		factory: factory,
		opts:    opts,
		log:     log,
		slots:   make(chan struct{}, opts.Capacity),
	}
	for i := 0; i < opts.Capacity; i++ {
		p.slots <- struct{}{}
	}
	return p
}

// Acquire borrows a validated connection handle. Every handout is preceded by
// a successful liveness probe, and handles past the recycle interval are
// discarded and replaced before probing. The wait for a free slot is bounded
// by AcquireTimeout (ErrPoolExhausted) and by ctx.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	if err := p.waitSlot(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < p.opts.PingRetries; attempt++ {
		h, err := p.candidate(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if err := h.conn.Ping(ctx); err != nil {
			lastErr = err
			p.discard(h.conn)
			if ctx.Err() != nil {
				break
			}
			p.log.Warn().Err(err).Int("attempt", attempt+1).Msg("liveness probe failed, discarding connection")
			continue
		}
		p.mu.Lock()
		p.inUse++
		p.mu.Unlock()
		return h, nil
	}

	p.slots <- struct{}{}
	// A cancelled caller is not an infrastructure fault.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.log.Error().Err(lastErr).Int("retries", p.opts.PingRetries).Msg("could not acquire a live connection")
	return nil, ErrConnectionUnavailable
}

// Release returns a handle to the pool. It must be called exactly once per
// successful Acquire; a second call returns ErrHandleReleased.
func (p *Pool) Release(h *Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h.released {
		return ErrHandleReleased
	}
	h.released = true
	p.inUse--

	if p.closed {
		p.closeLocked(h.conn)
		return nil
	}
	p.idle = append(p.idle, h)
	p.slots <- struct{}{}
	return nil
}

// WithConn runs fn with a validated connection and guarantees the handle is
// released on every exit path, including a panic inside fn.
func (p *Pool) WithConn(ctx context.Context, fn func(ctx context.Context, c Conn) error) error {
	h, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = p.Release(h) }()
	return fn(ctx, h.conn)
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Idle:     len(p.idle),
		InUse:    p.inUse,
		Dials:    p.dials,
		Discards: p.discards,
	}
}

// Close shuts the pool down: idle connections are closed and subsequent
// Acquire calls fail with ErrPoolClosed. Handles still borrowed are closed
// when released.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for _, h := range p.idle {
		p.closeLocked(h.conn)
	}
	p.idle = nil
	return nil
}

// waitSlot claims a capacity permit within the configured bounds.
func (p *Pool) waitSlot(ctx context.Context) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrPoolClosed
	}

	select {
	case <-p.slots:
		return nil
	default:
	}

	timer := time.NewTimer(p.opts.AcquireTimeout)
	defer timer.Stop()
	select {
	case <-p.slots:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrPoolExhausted
	}
}

// candidate produces the next connection to probe: the freshest idle handle
// if one exists (recycled first when past ConnMaxAge), otherwise a new dial.
func (p *Pool) candidate(ctx context.Context) (*Handle, error) {
	p.mu.Lock()
	var h *Handle
	if n := len(p.idle); n > 0 {
		h = p.idle[n-1]
		p.idle = p.idle[:n-1]
	}
	p.mu.Unlock()

	if h != nil {
		if age := p.opts.Now().Sub(h.createdAt); age >= p.opts.ConnMaxAge {
			p.discard(h.conn)
			p.log.Debug().Dur("age", age).Msg("recycling connection past max age")
			h = nil
		} else {
			h.released = false
			return h, nil
		}
	}

	conn, err := p.factory(ctx)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.dials++
	p.mu.Unlock()
	return &Handle{conn: conn, createdAt: p.opts.Now()}, nil
}

func (p *Pool) discard(c Conn) {
	_ = c.Close()
	p.mu.Lock()
	p.discards++
	p.mu.Unlock()
}

// closeLocked closes a connection while p.mu is held.
func (p *Pool) closeLocked(c Conn) {
	_ = c.Close()
	p.discards++
}
