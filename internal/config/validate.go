package config

import (
	"fmt"
	"strings"

	"github.com/hostpulse/hostpulse/internal/errors"
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but hostpulse only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Grab the latest hostpulse release.")
	}

	for name, host := range cfg.Hosts {
		if err := validateHost(name, host); err != nil {
			return err
		}
	}

	if cfg.Default != "" {
		if _, ok := cfg.Hosts[cfg.Default]; !ok {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Default host '%s' isn't defined under hosts", cfg.Default),
				"Add it to the 'hosts' section, or point 'default' at a host that exists.")
		}
	}

	return validateSampling(cfg.Sampling)
}

func validateHost(name string, host Host) error {
	if strings.ContainsAny(name, "@/ ") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host name '%s' contains special characters", name),
			"Use a simple alias as the key; put the connection string in the 'host' field.")
	}
	if host.Host == "" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host '%s' has no 'host' field", name),
			"Set 'host' to the hostname, IP, or SSH config alias to connect to.")
	}
	if host.Port < 0 || host.Port > 65535 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host '%s' has an invalid port %d", name, host.Port),
			"Ports are 1-65535; leave it out for the default 22.")
	}
	return nil
}

func validateSampling(s SamplingConfig) error {
	if s.Timeout < 0 {
		return errors.New(errors.ErrConfig,
			"sampling.timeout can't be negative",
			"Use a duration like '15s', or leave it out for the default.")
	}
	if s.IdleTTL < 0 {
		return errors.New(errors.ErrConfig,
			"sampling.idle_ttl can't be negative",
			"Use a duration like '5m', or leave it out for the default.")
	}
	if s.Interval < 0 {
		return errors.New(errors.ErrConfig,
			"sampling.interval can't be negative",
			"Use a duration like '3s', or leave it out for the default.")
	}
	return nil
}
