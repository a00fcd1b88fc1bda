package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostpulse/hostpulse/internal/config"
	"github.com/hostpulse/hostpulse/internal/errors"
	"github.com/hostpulse/hostpulse/internal/logger"
	"github.com/hostpulse/hostpulse/internal/telemetry"
	ttest "github.com/hostpulse/hostpulse/internal/telemetry/testing"
)

// sentinelOf extracts the echo marker from a sampling command so the fake
// host can produce a correctly delimited response.
func sentinelOf(cmd string) string {
	for _, step := range strings.Split(cmd, "; ") {
		if marker, ok := strings.CutPrefix(step, "echo "); ok {
			return marker
		}
	}
	return ""
}

func netDevBlock(ethRx, ethTx int64) string {
	return "Inter-|   Receive                                                |  Transmit\n" +
		" face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed\n" +
		"    lo:  999999     100    0    0    0     0          0         0   999999     100    0    0    0     0       0          0\n" +
		fmt.Sprintf("  eth0: %d    5000    0    0    0     0          0         0  %d    4000    0    0    0     0       0          0\n", ethRx, ethTx)
}

// fakeHost scripts a plausible Linux host: two /proc snapshots either side
// of the sentinel, CPU advancing 10 busy jiffies out of 50.
func fakeHost(cmd string) (string, error) {
	sentinel := sentinelOf(cmd)

	first := netDevBlock(1_000_000, 2_000_000) +
		"cpu  100 0 100 800 0 0 0 0 0 0\n" +
		"MemTotal:        8000000 kB\n" +
		"MemAvailable:    2000000 kB\n" +
		"4\n"
	second := netDevBlock(1_524_288, 3_048_576) +
		"cpu  105 0 105 840 0 0 0 0 0 0\n"

	return first + sentinel + "\n" + second, nil
}

func TestStatsFlow_ConfigToMetrics(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, ".hostpulse.yaml")
	content := `
version: 1
hosts:
  web:
    host: web-01.internal
    user: deploy
default: web
sampling:
  timeout: 10s
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := config.Load(configPath)
	require.NoError(t, err)
	require.Equal(t, "web", cfg.Default)

	host := cfg.Hosts[cfg.Default]
	creds := telemetry.Credentials{
		Host:       host.Host,
		Port:       host.Port,
		User:       host.User,
		PrivateKey: []byte("test-key-material"),
	}

	dialer := &ttest.FakeDialer{Respond: fakeHost}
	gatherer := telemetry.NewGatherer(dialer, telemetry.PoolOptions{
		IdleTTL: cfg.Sampling.IdleTTL,
		Logger:  logger.Noop(),
	})
	defer gatherer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Sampling.Timeout)
	defer cancel()

	res, err := gatherer.GatherStats(ctx, creds)
	require.NoError(t, err)

	// 10 busy jiffies out of 50 total
	assert.Equal(t, 20.0, res.CPU.UsagePercent)
	assert.Equal(t, 4, res.CPU.Cores)

	// 6,000,000 kB used of 8,000,000 kB
	assert.Equal(t, 75.0, res.RAM.Percent)
	assert.Equal(t, 5.72, res.RAM.UsedGB)
	assert.Equal(t, 7.63, res.RAM.TotalGB)

	// eth0 deltas: 512 KiB received, 1 MiB transmitted over the 1s window
	assert.Equal(t, "512.0 KB/s", res.Network.RxRate)
	assert.Equal(t, "1.0 MB/s", res.Network.TxRate)

	// Second gather reuses the pooled session
	_, err = gatherer.GatherStats(ctx, creds)
	require.NoError(t, err)
	assert.Equal(t, 1, dialer.DialCount())
	assert.Equal(t, 1, gatherer.PoolSize())
}

func TestStatsFlow_TimeoutSurfacesCode(t *testing.T) {
	dialer := &ttest.FakeDialer{
		Respond:  fakeHost,
		RunDelay: 200 * time.Millisecond,
	}
	gatherer := telemetry.NewGatherer(dialer, telemetry.PoolOptions{Logger: logger.Noop()})
	defer gatherer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := gatherer.GatherStats(ctx, telemetry.Credentials{Host: "slow-01", User: "deploy"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTimeout), "got: %v", err)
}
