package telemetry

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/hostpulse/hostpulse/internal/errors"
	"github.com/hostpulse/hostpulse/internal/logger"
)

// Pool defaults.
const (
	DefaultIdleTTL     = 5 * time.Minute
	DefaultDialTimeout = 10 * time.Second

	minSweepInterval = 15 * time.Second
)

// PoolOptions configures a Pool. Zero values fall back to defaults.
type PoolOptions struct {
	// IdleTTL is how long a session may sit unused before the background
	// sweep closes it.
	IdleTTL time.Duration

	// DialTimeout bounds the single connect attempt made on a cache miss.
	DialTimeout time.Duration

	// SweepInterval overrides the eviction sweep cadence (default IdleTTL/2).
	SweepInterval time.Duration

	// Logger receives debug output. Defaults to the env logger.
	Logger logger.Logger
}

// Pool is a keyed cache of authenticated remote command channels.
// Sessions are created on demand, reused across calls with identical
// credentials, serialized so only one command is ever in flight per
// channel, and evicted once idle longer than the TTL.
type Pool struct {
	mu       sync.Mutex
	sessions map[string]*session
	closed   bool

	dialer        Dialer
	idleTTL       time.Duration
	dialTimeout   time.Duration
	sweepInterval time.Duration
	log           logger.Logger

	stop chan struct{}
	done chan struct{}
}

// NewPool creates a session pool backed by the given dialer and starts its
// idle-eviction sweeper. Call Shutdown to release all sessions.
func NewPool(dialer Dialer, opts PoolOptions) *Pool {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = opts.IdleTTL / 2
		if opts.SweepInterval < minSweepInterval {
			opts.SweepInterval = minSweepInterval
		}
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewEnvLogger("[pool]")
	}

	p := &Pool{
		sessions:      make(map[string]*session),
		dialer:        dialer,
		idleTTL:       opts.IdleTTL,
		dialTimeout:   opts.DialTimeout,
		sweepInterval: opts.SweepInterval,
		log:           opts.Logger,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go p.sweep()
	return p
}

// Execute runs a command on the session for the given credentials, creating
// the session if needed. Commands against the same session are serialized
// in arrival order; different keys execute fully concurrently.
//
// A channel that breaks mid-command is invalidated and retried exactly once
// on a fresh session before a CONNECT error is surfaced. Deadline expiry
// yields a TIMEOUT error; cancellation and timeouts both proactively
// invalidate the session, since an abandoned remote command cannot be
// guaranteed to have stopped writing output.
func (p *Pool) Execute(ctx context.Context, creds Credentials, cmd string) (string, error) {
	key := creds.SessionKey()

	s, err := p.acquire(ctx, key)
	if err != nil {
		return "", err
	}
	defer p.release(s)

	return p.runLocked(ctx, s, creds, cmd)
}

// Size returns the number of sessions currently in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// Shutdown stops the sweeper and closes every pooled session. In-flight
// commands fail when their channel closes underneath them. The pool
// rejects further calls afterwards.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	sessions := p.sessions
	p.sessions = make(map[string]*session)
	p.mu.Unlock()

	close(p.stop)
	<-p.done

	for _, s := range sessions {
		if s.transport != nil {
			_ = s.transport.Close()
		}
	}
	p.log.Debug("pool shut down, closed %d session(s)", len(sessions))
}

// acquire returns the live session entry for key with its command slot
// held. Waiting respects ctx; entries evicted while we queued are retried
// against the current map state so a key never has two live sessions.
func (p *Pool) acquire(ctx context.Context, key string) (*session, error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, errPoolClosed()
		}
		s, ok := p.sessions[key]
		if !ok {
			s = newSession(key)
			p.sessions[key] = s
		}
		p.mu.Unlock()

		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, errors.WrapWithCode(ctx.Err(), errors.ErrTimeout,
					fmt.Sprintf("Timed out waiting for the session to %s to become free", key),
					"Another command is still running on this host. Raise the timeout or reduce concurrent callers.")
			}
			return nil, ctx.Err()
		}

		p.mu.Lock()
		live := p.sessions[key] == s
		closed := p.closed
		p.mu.Unlock()

		if closed {
			<-s.sem
			return nil, errPoolClosed()
		}
		if live {
			return s, nil
		}
		// Entry was evicted while we queued; start over with the current one.
		<-s.sem
	}
}

// release stamps the idle clock and frees the session's command slot.
func (p *Pool) release(s *session) {
	s.lastUsed = time.Now()
	<-s.sem
}

// runLocked executes cmd on s, which must be held by the caller.
func (p *Pool) runLocked(ctx context.Context, s *session, creds Credentials, cmd string) (string, error) {
	retried := false

	for {
		if s.transport == nil {
			t, err := p.dial(ctx, creds)
			if err != nil {
				s.state = stateFailed
				p.evict(s)
				return "", err
			}
			s.transport = t
			s.state = stateConnected
			p.log.Debug("session %s connected", s.key)
		}

		out, err := s.transport.Run(ctx, cmd)
		if err == nil {
			return out, nil
		}

		// The channel can't be trusted after any mid-command failure.
		p.invalidate(s)

		switch {
		case stderrors.Is(err, context.DeadlineExceeded):
			p.evict(s)
			return "", errors.WrapWithCode(err, errors.ErrTimeout,
				fmt.Sprintf("Command on %s did not finish before the deadline", s.key),
				"Raise the sampling timeout or check load on the remote host.")
		case stderrors.Is(err, context.Canceled):
			p.evict(s)
			return "", err
		case isChannelError(err) && !retried:
			retried = true
			p.log.Debug("session %s channel broke mid-command, retrying once with a fresh session", s.key)
			continue
		default:
			s.state = stateFailed
			p.evict(s)
			var hpErr *errors.Error
			if stderrors.As(err, &hpErr) {
				return "", err
			}
			return "", errors.WrapWithCode(err, errors.ErrConnect,
				fmt.Sprintf("Command on %s failed", s.key),
				"The connection dropped and a fresh session did not help. Check the host: ssh "+creds.Address())
		}
	}
}

// dial makes the single bounded connect attempt for a cache miss.
func (p *Pool) dial(ctx context.Context, creds Credentials) (Transport, error) {
	dctx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()

	t, err := p.dialer.Dial(dctx, creds)
	if err != nil {
		var hpErr *errors.Error
		if stderrors.As(err, &hpErr) {
			return nil, err
		}
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.WrapWithCode(err, errors.ErrTimeout,
				fmt.Sprintf("Connecting to %s timed out", creds.Address()),
				"Host might be offline or blocked by a firewall.")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConnect,
			fmt.Sprintf("Could not open a session to %s", creds.Address()),
			"Check the host is reachable and the key is authorized: ssh "+creds.Address())
	}
	return t, nil
}

// invalidate closes the session's channel but keeps the entry so the
// holder can re-dial on it.
func (p *Pool) invalidate(s *session) {
	if s.transport != nil {
		_ = s.transport.Close()
		s.transport = nil
	}
	s.state = stateInvalid
}

// evict invalidates s and removes its entry from the map. Callers queued
// on the old entry notice in acquire and retry against the current map.
func (p *Pool) evict(s *session) {
	p.invalidate(s)
	p.mu.Lock()
	if p.sessions[s.key] == s {
		delete(p.sessions, s.key)
	}
	p.mu.Unlock()
}

// sweep periodically evicts sessions idle longer than the TTL.
func (p *Pool) sweep() {
	defer close(p.done)

	ticker := time.NewTicker(p.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.evictIdle(time.Now())
		}
	}
}

// evictIdle closes sessions whose idle time exceeds the TTL. Sessions with
// a command in flight are by definition not idle and are skipped.
func (p *Pool) evictIdle(now time.Time) {
	p.mu.Lock()
	snapshot := make([]*session, 0, len(p.sessions))
	for _, s := range p.sessions {
		snapshot = append(snapshot, s)
	}
	p.mu.Unlock()

	for _, s := range snapshot {
		select {
		case s.sem <- struct{}{}:
			if now.Sub(s.lastUsed) >= p.idleTTL {
				p.log.Debug("evicting idle session %s (idle %s)", s.key, now.Sub(s.lastUsed).Round(time.Second))
				p.evict(s)
			}
			<-s.sem
		default:
			// Busy session; leave it alone.
		}
	}
}

func errPoolClosed() error {
	return errors.New(errors.ErrConnect,
		"Session pool is shut down",
		"Create a new pool before gathering stats.")
}

// isChannelError reports whether err indicates the underlying channel died
// (EOF, broken pipe, reset) as opposed to the command itself failing.
func isChannelError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) || stderrors.Is(err, net.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{
		"broken pipe",
		"connection reset",
		"connection lost",
		"use of closed network connection",
		"channel closed",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
