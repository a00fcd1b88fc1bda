package telemetry_test

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostpulse/hostpulse/internal/errors"
	"github.com/hostpulse/hostpulse/internal/logger"
	"github.com/hostpulse/hostpulse/internal/telemetry"
	ttest "github.com/hostpulse/hostpulse/internal/telemetry/testing"
)

func testCreds(host string) telemetry.Credentials {
	return telemetry.Credentials{
		Host:       host,
		Port:       22,
		User:       "ops",
		PrivateKey: []byte("key material for " + host),
	}
}

func newTestPool(t *testing.T, dialer *ttest.FakeDialer, opts telemetry.PoolOptions) *telemetry.Pool {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}
	pool := telemetry.NewPool(dialer, opts)
	t.Cleanup(pool.Shutdown)
	return pool
}

func TestPoolReusesSession(t *testing.T) {
	dialer := &ttest.FakeDialer{
		Respond: func(cmd string) (string, error) { return "ok", nil },
	}
	pool := newTestPool(t, dialer, telemetry.PoolOptions{})

	creds := testCreds("alpha")
	for i := 0; i < 3; i++ {
		out, err := pool.Execute(context.Background(), creds, "echo 1")
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
	}

	assert.Equal(t, 1, dialer.DialCount(), "identical credentials must reuse one session")
	assert.Equal(t, 1, pool.Size())
}

func TestPoolSeparateSessionsPerKey(t *testing.T) {
	dialer := &ttest.FakeDialer{
		Respond: func(cmd string) (string, error) { return "ok", nil },
	}
	pool := newTestPool(t, dialer, telemetry.PoolOptions{})

	_, err := pool.Execute(context.Background(), testCreds("alpha"), "echo 1")
	require.NoError(t, err)
	_, err = pool.Execute(context.Background(), testCreds("beta"), "echo 1")
	require.NoError(t, err)

	assert.Equal(t, 2, dialer.DialCount())
	assert.Equal(t, 2, pool.Size())
}

func TestPoolSameKeyNeverInterleaves(t *testing.T) {
	dialer := &ttest.FakeDialer{
		Respond:  func(cmd string) (string, error) { return "ok", nil },
		RunDelay: 30 * time.Millisecond,
	}
	pool := newTestPool(t, dialer, telemetry.PoolOptions{})

	creds := testCreds("alpha")
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pool.Execute(context.Background(), creds, "echo 1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	transports := dialer.Transports()
	require.Len(t, transports, 1)
	assert.False(t, transports[0].Overlapped,
		"commands on one session must be serialized, never interleaved")
	assert.Len(t, transports[0].Commands(), 4)
}

func TestPoolRetriesOnceWhenChannelBreaks(t *testing.T) {
	dialer := &ttest.FakeDialer{
		Respond: func(cmd string) (string, error) { return "ok", nil },
	}
	pool := newTestPool(t, dialer, telemetry.PoolOptions{})
	creds := testCreds("alpha")

	// Prime the session, then break its channel.
	_, err := pool.Execute(context.Background(), creds, "echo 1")
	require.NoError(t, err)
	dialer.Transports()[0].FailRuns = 1

	out, err := pool.Execute(context.Background(), creds, "echo 2")
	require.NoError(t, err, "a broken channel gets one transparent retry")
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, dialer.DialCount())
	assert.True(t, dialer.Transports()[0].Closed(), "broken session must be closed")
}

func TestPoolSurfacesConnectErrorAfterSecondFailure(t *testing.T) {
	dialer := &ttest.FakeDialer{
		Respond:              func(cmd string) (string, error) { return "ok", nil },
		FailRunsPerTransport: 1,
	}
	pool := newTestPool(t, dialer, telemetry.PoolOptions{})

	_, err := pool.Execute(context.Background(), testCreds("alpha"), "echo 1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConnect))
	assert.Equal(t, 2, dialer.DialCount(), "exactly one fresh session before giving up")
	assert.Equal(t, 0, pool.Size(), "failed session must not stay cached")
}

func TestPoolDialFailure(t *testing.T) {
	dialer := &ttest.FakeDialer{DialErr: stderrors.New("auth failed")}
	pool := newTestPool(t, dialer, telemetry.PoolOptions{})

	_, err := pool.Execute(context.Background(), testCreds("alpha"), "echo 1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConnect))
	assert.Equal(t, 1, dialer.DialCount(), "one bounded connect attempt, no silent retry loop")
	assert.Equal(t, 0, pool.Size())
}

func TestPoolDeadlineYieldsTimeout(t *testing.T) {
	dialer := &ttest.FakeDialer{
		Respond:  func(cmd string) (string, error) { return "ok", nil },
		RunDelay: 500 * time.Millisecond,
	}
	pool := newTestPool(t, dialer, telemetry.PoolOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	_, err := pool.Execute(ctx, testCreds("alpha"), "echo 1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTimeout))
	assert.Equal(t, 0, pool.Size(), "a timed-out session cannot be trusted and must be evicted")
}

func TestPoolCancellationInvalidatesSession(t *testing.T) {
	dialer := &ttest.FakeDialer{
		Respond:  func(cmd string) (string, error) { return "ok", nil },
		RunDelay: 500 * time.Millisecond,
	}
	pool := newTestPool(t, dialer, telemetry.PoolOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(40 * time.Millisecond)
		cancel()
	}()

	_, err := pool.Execute(ctx, testCreds("alpha"), "echo 1")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.Canceled))
	assert.Equal(t, 0, pool.Size())
	assert.True(t, dialer.Transports()[0].Closed())
}

func TestPoolWaiterTimesOutWhileSessionBusy(t *testing.T) {
	dialer := &ttest.FakeDialer{
		Respond:  func(cmd string) (string, error) { return "ok", nil },
		RunDelay: 300 * time.Millisecond,
	}
	pool := newTestPool(t, dialer, telemetry.PoolOptions{})
	creds := testCreds("alpha")

	started := make(chan struct{})
	go func() {
		close(started)
		_, _ = pool.Execute(context.Background(), creds, "slow")
	}()
	<-started
	time.Sleep(30 * time.Millisecond) // let the first command claim the session

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := pool.Execute(ctx, creds, "queued")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTimeout))
}

func TestPoolEvictsIdleSessions(t *testing.T) {
	dialer := &ttest.FakeDialer{
		Respond: func(cmd string) (string, error) { return "ok", nil },
	}
	pool := newTestPool(t, dialer, telemetry.PoolOptions{
		IdleTTL:       40 * time.Millisecond,
		SweepInterval: 10 * time.Millisecond,
	})

	_, err := pool.Execute(context.Background(), testCreds("alpha"), "echo 1")
	require.NoError(t, err)
	require.Equal(t, 1, pool.Size())

	assert.Eventually(t, func() bool { return pool.Size() == 0 },
		time.Second, 10*time.Millisecond, "idle session should be swept after the TTL")
	assert.True(t, dialer.Transports()[0].Closed())

	// A fresh call re-establishes the session.
	_, err = pool.Execute(context.Background(), testCreds("alpha"), "echo 2")
	require.NoError(t, err)
	assert.Equal(t, 2, dialer.DialCount())
}

func TestPoolShutdown(t *testing.T) {
	dialer := &ttest.FakeDialer{
		Respond: func(cmd string) (string, error) { return "ok", nil },
	}
	pool := telemetry.NewPool(dialer, telemetry.PoolOptions{Logger: logger.Noop()})

	_, err := pool.Execute(context.Background(), testCreds("alpha"), "echo 1")
	require.NoError(t, err)
	_, err = pool.Execute(context.Background(), testCreds("beta"), "echo 1")
	require.NoError(t, err)

	pool.Shutdown()

	assert.Equal(t, 0, pool.Size())
	for _, tr := range dialer.Transports() {
		assert.True(t, tr.Closed(), "shutdown must close every pooled session")
	}

	_, err = pool.Execute(context.Background(), testCreds("alpha"), "echo 1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConnect))

	// Shutdown is idempotent.
	pool.Shutdown()
}
