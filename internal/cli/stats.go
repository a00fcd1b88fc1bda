package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hostpulse/hostpulse/internal/config"
	"github.com/hostpulse/hostpulse/internal/logger"
	"github.com/hostpulse/hostpulse/internal/telemetry"
	"github.com/hostpulse/hostpulse/internal/watch"
	"github.com/hostpulse/hostpulse/pkg/sshutil"
)

// statsCommand gathers one snapshot and prints it.
func statsCommand(target string, jsonOut bool, timeout time.Duration) error {
	cfg, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return err
	}

	creds, display, err := resolveTarget(cfg, target)
	if err != nil {
		return reportError(jsonOut, err)
	}
	if err := promptPassphraseIfNeeded(&creds); err != nil {
		return reportError(jsonOut, err)
	}

	if timeout <= 0 {
		timeout = cfg.Sampling.Timeout
	}
	if timeout <= 0 {
		timeout = telemetry.DefaultGatherTimeout
	}

	gatherer := newGatherer(cfg, timeout)
	defer gatherer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res, err := gatherer.GatherStats(ctx, creds)
	if err != nil {
		return reportError(jsonOut, err)
	}

	if jsonOut {
		return WriteJSONSuccess(os.Stdout, res)
	}

	fmt.Println(watch.RenderOnce(display, res))
	return nil
}

// newGatherer builds the telemetry gatherer shared by stats and watch.
func newGatherer(cfg *config.Config, timeout time.Duration) *telemetry.Gatherer {
	return telemetry.NewGatherer(
		sshutil.Dialer{Timeout: timeout},
		telemetry.PoolOptions{
			IdleTTL: cfg.Sampling.IdleTTL,
			Logger:  logger.NewEnvLogger("[hostpulse]"),
		},
	)
}

// reportError writes the JSON error envelope in machine mode before
// returning the error for the usual exit-code handling.
func reportError(jsonOut bool, err error) error {
	if jsonOut {
		_ = WriteJSONFromError(os.Stdout, err)
	}
	return err
}
