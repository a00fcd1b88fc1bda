package cli

import (
	"time"

	"github.com/hostpulse/hostpulse/internal/config"
	"github.com/hostpulse/hostpulse/internal/telemetry"
	"github.com/hostpulse/hostpulse/internal/watch"
)

// watchCommand starts the live dashboard for one host.
func watchCommand(target string, interval, timeout time.Duration) error {
	cfg, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return err
	}

	creds, display, err := resolveTarget(cfg, target)
	if err != nil {
		return err
	}
	if err := promptPassphraseIfNeeded(&creds); err != nil {
		return err
	}

	if interval <= 0 {
		interval = cfg.Sampling.Interval
	}
	if timeout <= 0 {
		timeout = cfg.Sampling.Timeout
	}
	if timeout <= 0 {
		timeout = telemetry.DefaultGatherTimeout
	}

	gatherer := newGatherer(cfg, timeout)
	defer gatherer.Shutdown()

	return watch.Run(gatherer, creds, watch.Options{
		Target:   display,
		Interval: interval,
		Timeout:  timeout,
	})
}
