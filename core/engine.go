package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/searchktools/pageserver/config"
	"github.com/searchktools/pageserver/core/http"
	"github.com/searchktools/pageserver/core/logging"
	"github.com/searchktools/pageserver/core/observability"
	"github.com/searchktools/pageserver/core/poller"
	"github.com/searchktools/pageserver/core/pools"
	"github.com/searchktools/pageserver/core/router"
)

// minSweepInterval bounds how often the idle sweep wakes the loop
const minSweepInterval = 10 * time.Millisecond

// Engine is a single-threaded static page server driven by epoll/kqueue.
//
// One goroutine (the one calling Serve) owns the listener, the poller and
// every slot. Only Stats, Addr and context cancellation are safe to use from
// other goroutines.
type Engine struct {
	cfg      config.Config
	logger   *slog.Logger
	monitor  *observability.Monitor
	resolver *router.Resolver
	limits   http.Limits
	pool     *pools.SlotPool[*Slot]

	lfd    int
	addr   *net.TCPAddr
	poller poller.Poller

	// ready merges the events of one Wait per descriptor
	ready map[int]poller.Event

	wakeMu sync.Mutex
	closed bool
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMonitor records finished responses into m
func WithMonitor(m *observability.Monitor) Option {
	return func(e *Engine) {
		if m != nil {
			e.monitor = m
		}
	}
}

// NewEngine creates an engine with a preallocated slot pool
func NewEngine(cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	resolver := router.NewResolver(cfg.Root, cfg.MaxPathLen)
	resolver.PageFile = cfg.PageFile

	e := &Engine{
		cfg:      cfg,
		logger:   logging.Discard(),
		monitor:  observability.NewMonitor(),
		resolver: resolver,
		limits:   cfg.Limits(),
		lfd:      -1,
		ready:    make(map[int]poller.Event, cfg.Capacity+1),
	}
	e.pool = pools.NewSlotPool(cfg.Capacity, func() *Slot {
		return newSlot(cfg.RequestBufferSize, cfg.HeaderBufferSize, cfg.ChunkSize)
	})

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Listen binds the listening socket and creates the poller.
// The backlog equals the pool capacity.
func (e *Engine) Listen() error {
	if e.poller != nil {
		return ErrListening
	}

	lfd, addr, err := listen(e.cfg.Port, e.cfg.Capacity)
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", e.cfg.Port, err)
	}

	p, err := poller.NewPoller(e.cfg.Capacity + 1)
	if err != nil {
		unix.Close(lfd)
		return fmt.Errorf("create poller: %w", err)
	}
	if err := p.Add(lfd, poller.Read); err != nil {
		p.Close()
		unix.Close(lfd)
		return fmt.Errorf("register listener: %w", err)
	}

	e.lfd = lfd
	e.addr = addr
	e.poller = p
	e.wakeMu.Lock()
	e.closed = false
	e.wakeMu.Unlock()

	e.logger.Info("listening",
		slog.String("addr", addr.String()),
		slog.Int("capacity", e.cfg.Capacity),
		slog.String("root", e.cfg.Root),
	)
	return nil
}

// Addr returns the bound listener address, nil before Listen
func (e *Engine) Addr() *net.TCPAddr {
	return e.addr
}

// Run listens and serves until ctx is cancelled
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Listen(); err != nil {
		return err
	}
	return e.Serve(ctx)
}

// Serve runs the event loop until ctx is cancelled or the poller fails.
// On return every connection is closed without draining and the listener
// is shut down. Cancellation is not an error.
func (e *Engine) Serve(ctx context.Context) error {
	if e.poller == nil {
		return ErrNotListening
	}
	defer e.shutdown()

	stop := context.AfterFunc(ctx, e.wake)
	defer stop()

	timeout := -1
	if e.cfg.IdleTimeout > 0 {
		timeout = int(max(e.cfg.IdleTimeout/4, minSweepInterval).Milliseconds())
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		events, err := e.poller.Wait(timeout)
		if err != nil {
			return fmt.Errorf("wait for events: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}

		e.collect(events)
		e.tick(time.Now())
	}
}

func (e *Engine) wake() {
	e.wakeMu.Lock()
	defer e.wakeMu.Unlock()
	if e.closed || e.poller == nil {
		return
	}
	if err := e.poller.Wake(); err != nil {
		e.logger.Warn("wake poller", logging.Error(err))
	}
}

func (e *Engine) collect(events []poller.Event) {
	clear(e.ready)
	for _, ev := range events {
		r := e.ready[ev.Fd]
		r.Fd = ev.Fd
		r.Readable = r.Readable || ev.Readable
		r.Writable = r.Writable || ev.Writable
		e.ready[ev.Fd] = r
	}
}

// tick runs one loop iteration: accept first, then every active slot in order
func (e *Engine) tick(now time.Time) {
	if ev, ok := e.ready[e.lfd]; ok && ev.Readable {
		e.acceptOne(now)
	}

	e.pool.ForEachActive(func(id int, s *Slot) bool {
		ev, ok := e.ready[s.fd()]
		if !ok {
			return true
		}

		switch {
		case s.state == StateReading && ev.Readable:
			e.onReadable(id, s, now)
		case s.prepared() && ev.Writable:
			e.dispatch(id, s, now, false)
		}
		return true
	})

	e.sweepIdle(now)
}

func (e *Engine) acceptOne(now time.Time) {
	nfd, remote, err := accept(e.lfd)
	if err != nil {
		if !errors.Is(err, unix.EAGAIN) {
			e.logger.Warn("accept failed", logging.Error(err))
		}
		return
	}

	id, s, ok := e.pool.Acquire()
	if !ok {
		e.pool.Reject()
		unix.Close(nfd)
		e.logger.Debug("connection rejected, no free slot",
			slog.String("remote", remote.String()),
			slog.Int("capacity", e.pool.Cap()),
		)
		return
	}

	s.attach(newFDSocket(nfd), remote, now)
	if err := e.poller.Add(nfd, poller.Read); err != nil {
		e.logger.Warn("register connection", logging.Fd(nfd), logging.Error(err))
		e.pool.Release(id)
		return
	}

	e.logger.Debug("connection accepted", logging.Fd(nfd), slog.String("remote", remote.String()))
}

// onReadable reads request bytes and, once a request line can be parsed,
// prepares the response and tries to send it right away.
func (e *Engine) onReadable(id int, s *Slot, now time.Time) {
	s.lastActive = now

	n, err := s.sock.Read(s.reqBuf[len(s.reqBuf):cap(s.reqBuf)])
	switch {
	case errors.Is(err, ErrWouldBlock):
		return
	case errors.Is(err, io.EOF):
		if len(s.reqBuf) == 0 {
			e.finish(id, s, nil)
			return
		}
		// Half-closed peer: answer whatever was received
	case err != nil:
		e.finish(id, s, fmt.Errorf("read request: %w", err))
		return
	default:
		s.reqBuf = s.reqBuf[:len(s.reqBuf)+n]
		if !e.requestReady(s.reqBuf) {
			if len(s.reqBuf) < cap(s.reqBuf) {
				return
			}
			e.reject(s, http.StatusBadRequest, ErrRequestTooLarge)
			e.dispatch(id, s, now, true)
			return
		}
	}

	e.prepare(s)
	e.dispatch(id, s, now, true)
}

// requestReady reports whether buf can be answered without waiting for
// more bytes: a line end has arrived or method and URI are already present.
func (e *Engine) requestReady(buf []byte) bool {
	if http.HasLineEnd(buf) {
		return true
	}
	_, err := http.ParseRequestLine(buf, e.limits)
	return err == nil
}

// prepare turns the buffered request into a ready-to-send response
func (e *Engine) prepare(s *Slot) {
	line, err := http.ParseRequestLine(s.reqBuf, e.limits)
	if err != nil {
		e.reject(s, http.StatusBadRequest, err)
		return
	}
	s.line = line

	if line.Method != http.MethodGet {
		e.reject(s, http.StatusMethodNotAllowed, fmt.Errorf("%w: %q", ErrMethodNotAllowed, line.RawMethod))
		return
	}

	path, err := e.resolver.Resolve(line.URI)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, router.ErrTraversal) {
			status = http.StatusBadRequest
		}
		e.reject(s, status, err)
		return
	}

	if err := s.buildSuccess(path, e.cfg.HeaderBufferSize); err != nil {
		e.logger.Debug("page unavailable",
			slog.String("uri", line.URI),
			slog.Int("status", s.status),
			logging.Error(err),
		)
	}
}

func (e *Engine) reject(s *Slot, status int, cause error) {
	e.logger.Debug("request refused", logging.Fd(s.fd()), slog.Int("status", status), logging.Error(cause))
	if err := s.buildError(status, e.cfg.HeaderBufferSize); err != nil {
		e.logger.Warn("build error response", logging.Fd(s.fd()), logging.Error(err))
	}
}

// dispatch invokes the sender once. arm switches the descriptor from read
// to write interest when the response could not be completed immediately.
func (e *Engine) dispatch(id int, s *Slot, now time.Time, arm bool) {
	s.lastActive = now

	res, err := s.send()
	if err != nil || res == ResultDone {
		e.finish(id, s, err)
		return
	}

	if arm {
		if err := e.poller.Modify(s.fd(), poller.Write); err != nil {
			e.finish(id, s, fmt.Errorf("watch for write: %w", err))
		}
	}
}

// finish logs and records the outcome of a slot and releases it
func (e *Engine) finish(id int, s *Slot, err error) {
	fd := s.fd()

	switch {
	case err != nil:
		e.monitor.RecordFailure()
		e.logger.Warn("connection dropped",
			logging.Fd(fd),
			slog.String("remote", s.remote.String()),
			slog.String("state", s.state.String()),
			logging.Error(err),
		)
	case s.state == StateDone:
		elapsed := time.Since(s.started)
		written := int64(len(s.header)) + s.bytesSent
		e.monitor.RecordResponse(s.status, written, elapsed)
		e.logger.Info("request",
			slog.String("method", s.line.RawMethod),
			slog.String("uri", s.line.URI),
			slog.String("status", logging.Status(s.status)),
			slog.Int64("bytes", written),
			slog.Duration("duration", elapsed),
		)
	default:
		e.logger.Debug("connection closed by peer", logging.Fd(fd))
	}

	e.release(id, s)
}

func (e *Engine) release(id int, s *Slot) {
	if fd := s.fd(); fd >= 0 {
		if err := e.poller.Remove(fd); err != nil {
			e.logger.Debug("unregister connection", logging.Fd(fd), logging.Error(err))
		}
	}
	if err := e.pool.Release(id); err != nil && !errors.Is(err, pools.ErrNotActive) {
		e.logger.Debug("close connection", logging.Error(err))
	}
}

// sweepIdle releases slots that made no progress within IdleTimeout
func (e *Engine) sweepIdle(now time.Time) {
	if e.cfg.IdleTimeout <= 0 {
		return
	}

	e.pool.ForEachActive(func(id int, s *Slot) bool {
		if now.Sub(s.lastActive) > e.cfg.IdleTimeout {
			e.logger.Debug("connection idle, releasing",
				logging.Fd(s.fd()),
				slog.String("state", s.state.String()),
			)
			e.release(id, s)
		}
		return true
	})
}

func (e *Engine) shutdown() {
	e.wakeMu.Lock()
	e.closed = true
	e.wakeMu.Unlock()

	e.pool.ForEachActive(func(id int, s *Slot) bool {
		e.release(id, s)
		return true
	})

	if err := unix.Close(e.lfd); err != nil {
		e.logger.Debug("close listener", logging.Error(err))
	}
	if err := e.poller.Close(); err != nil {
		e.logger.Debug("close poller", logging.Error(err))
	}
	e.lfd = -1
	e.poller = nil

	stats := e.Stats()
	e.logger.Info("server stopped",
		slog.Uint64("accepted", stats.Pool.Acquired),
		slog.Uint64("rejected", stats.Pool.Rejected),
		slog.Uint64("responses", stats.Responses.Responses),
		slog.Uint64("failures", stats.Responses.Failures),
	)
}
