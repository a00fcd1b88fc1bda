package telemetry

import "context"

// Transport is one authenticated, long-lived command channel to a host.
// Implementations must support running one command at a time; the pool
// guarantees callers never run commands concurrently on the same transport.
type Transport interface {
	// Run executes a command and returns its stdout. If the context is
	// canceled or its deadline passes, Run abandons the command and
	// returns the context error; the channel must then be considered
	// corrupted by the caller.
	Run(ctx context.Context, cmd string) (string, error)

	// Close releases the underlying channel.
	Close() error
}

// Dialer establishes new transports. The real implementation lives in
// pkg/sshutil; tests inject fakes so no network access is needed.
type Dialer interface {
	Dial(ctx context.Context, creds Credentials) (Transport, error)
}
