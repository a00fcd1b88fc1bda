// Package testing provides fake transports and dialers for exercising the
// telemetry core without network access.
package testing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hostpulse/hostpulse/internal/telemetry"
)

// FakeDialer hands out FakeTransports and records every dial.
type FakeDialer struct {
	mu         sync.Mutex
	dialCount  int
	transports []*FakeTransport

	// Respond produces the output for each command. Shared by every
	// transport this dialer creates.
	Respond func(cmd string) (string, error)

	// DialErr, when set, fails every dial attempt.
	DialErr error

	// RunDelay slows each command down, for exercising serialization and
	// deadlines.
	RunDelay time.Duration

	// FailRunsPerTransport makes each new transport fail its first n Run
	// calls with RunErr (default "broken pipe").
	FailRunsPerTransport int
	RunErr               error
}

// Dial creates a new fake transport, or fails with DialErr.
func (d *FakeDialer) Dial(ctx context.Context, creds telemetry.Credentials) (telemetry.Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dialCount++
	if d.DialErr != nil {
		return nil, d.DialErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t := &FakeTransport{
		respond:  d.Respond,
		delay:    d.RunDelay,
		FailRuns: d.FailRunsPerTransport,
		RunErr:   d.RunErr,
	}
	d.transports = append(d.transports, t)
	return t, nil
}

// DialCount returns how many dial attempts were made.
func (d *FakeDialer) DialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dialCount
}

// Transports returns every transport handed out so far.
func (d *FakeDialer) Transports() []*FakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*FakeTransport, len(d.transports))
	copy(out, d.transports)
	return out
}

// FakeTransport is a scriptable command channel. It records commands,
// detects concurrent use (which the pool must prevent), and can be told to
// fail a number of runs or run slowly.
type FakeTransport struct {
	mu       sync.Mutex
	respond  func(cmd string) (string, error)
	delay    time.Duration
	commands []string
	closed   bool
	inFlight bool

	// FailRuns fails the next n Run calls with RunErr before responding
	// normally again.
	FailRuns int
	RunErr   error

	// Overlapped is set if two commands were ever in flight at once.
	Overlapped bool
}

// Run executes a scripted command.
func (t *FakeTransport) Run(ctx context.Context, cmd string) (string, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return "", errors.New("use of closed network connection")
	}
	if t.inFlight {
		t.Overlapped = true
	}
	t.inFlight = true
	t.commands = append(t.commands, cmd)
	failing := t.FailRuns > 0
	if failing {
		t.FailRuns--
	}
	respond := t.respond
	delay := t.delay
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.inFlight = false
		t.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if failing {
		err := t.RunErr
		if err == nil {
			err = errors.New("broken pipe")
		}
		return "", err
	}
	if respond == nil {
		return "", nil
	}
	return respond(cmd)
}

// Close marks the transport closed.
func (t *FakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Closed reports whether Close was called.
func (t *FakeTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Commands returns every command run on this transport.
func (t *FakeTransport) Commands() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.commands))
	copy(out, t.commands)
	return out
}
