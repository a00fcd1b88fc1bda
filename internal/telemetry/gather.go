// Package telemetry turns one SSH round trip into CPU, memory, and network
// throughput metrics for a remote Linux host. A pool of reusable sessions
// keeps the per-call cost to a single command exchange; a two-sample delta
// engine converts raw kernel pseudo-file counters into rates.
package telemetry

import (
	"context"
	"time"

	"github.com/hostpulse/hostpulse/internal/logger"
)

// DefaultGatherTimeout comfortably covers connect + command execution +
// the fixed one-second in-command sleep.
const DefaultGatherTimeout = 15 * time.Second

// Gatherer is the core's public surface: it composes the session pool, the
// sampling protocol, the parsers, and the stats computation.
type Gatherer struct {
	pool *Pool
	log  logger.Logger
}

// NewGatherer creates a gatherer backed by the given dialer. Pool options
// follow PoolOptions defaults when zero.
func NewGatherer(dialer Dialer, opts PoolOptions) *Gatherer {
	log := opts.Logger
	if log == nil {
		log = logger.NewEnvLogger("[telemetry]")
	}
	return &Gatherer{
		pool: NewPool(dialer, opts),
		log:  log,
	}
}

// GatherStats runs one sampling round trip against the host described by
// creds and returns its computed metrics. The session is reused across
// calls with identical credentials. Callers should bound ctx with a
// deadline (DefaultGatherTimeout is a sensible one); the gatherer applies
// no retry policy of its own beyond the pool's single mid-command
// reconnect.
func (g *Gatherer) GatherStats(ctx context.Context, creds Credentials) (*StatsResult, error) {
	start := time.Now()

	first, second, err := sample(ctx, g.pool, creds)
	if err != nil {
		return nil, err
	}

	result := Compute(ParseSample(first), ParseSample(second))
	g.log.Debug("gathered stats for %s in %s", creds.Address(), time.Since(start).Round(time.Millisecond))
	return &result, nil
}

// Shutdown closes all pooled sessions.
func (g *Gatherer) Shutdown() {
	g.pool.Shutdown()
}

// PoolSize reports the number of live sessions (exposed for diagnostics).
func (g *Gatherer) PoolSize() int {
	return g.pool.Size()
}
