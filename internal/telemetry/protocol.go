package telemetry

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hostpulse/hostpulse/internal/errors"
)

// SampleInterval is the in-command sleep separating the two counter
// snapshots. It is also the nominal denominator for rate computation; see
// Compute.
const SampleInterval = time.Second

// sentinelSeq makes sentinel markers unique across concurrent samples so a
// stale or interleaved response can never split cleanly by accident.
var sentinelSeq atomic.Uint64

// sampleCommand returns the composite remote command for one sampling round
// trip, and the sentinel line that separates the two snapshots in its
// output.
//
// A single command keeps the round-trip cost to one exchange and takes both
// snapshots inside the same remote process, so there is no clock skew
// between them. Order within the first snapshot: network counters, CPU
// counters, memory counters, core count. After the sleep only network and
// CPU are re-dumped; memory is not re-sampled.
func sampleCommand() (cmd, sentinel string) {
	sentinel = fmt.Sprintf("__HOSTPULSE_SAMPLE_%d_%d__", time.Now().UnixNano(), sentinelSeq.Add(1))
	cmd = strings.Join([]string{
		"cat /proc/net/dev",
		"cat /proc/stat",
		"cat /proc/meminfo",
		"nproc 2>/dev/null || grep -c ^processor /proc/cpuinfo",
		"sleep 1",
		"echo " + sentinel,
		"cat /proc/net/dev",
		"cat /proc/stat",
	}, "; ")
	return cmd, sentinel
}

// splitSamples cuts the combined command output into the two raw snapshots.
// A missing sentinel means the remote response was truncated or corrupted.
func splitSamples(output, sentinel string) (first, second string, err error) {
	idx := strings.Index(output, sentinel)
	if idx < 0 {
		return "", "", errors.New(errors.ErrProtocol,
			"Sampling output is missing its sentinel marker",
			"The remote response was truncated or corrupted. Retry the stats collection.")
	}
	first = output[:idx]
	second = output[idx+len(sentinel):]
	return first, second, nil
}

// sample executes one sampling round trip through the pool and returns the
// two raw snapshots.
func sample(ctx context.Context, pool *Pool, creds Credentials) (first, second string, err error) {
	cmd, sentinel := sampleCommand()
	out, err := pool.Execute(ctx, creds, cmd)
	if err != nil {
		return "", "", err
	}
	return splitSamples(out, sentinel)
}
