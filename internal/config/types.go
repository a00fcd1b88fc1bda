package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .hostpulse.yaml configuration file.
type Config struct {
	Version  int             `yaml:"version" mapstructure:"version"`
	Hosts    map[string]Host `yaml:"hosts" mapstructure:"hosts"`
	Default  string          `yaml:"default" mapstructure:"default"`
	Sampling SamplingConfig  `yaml:"sampling" mapstructure:"sampling"`
}

// Host defines a remote machine and its connection settings.
type Host struct {
	// Host is the hostname or IP to connect to. Can also be an SSH
	// config alias, in which case ~/.ssh/config fills in the rest.
	Host string `yaml:"host" mapstructure:"host"`

	// Port is the SSH port. Zero means 22.
	Port int `yaml:"port" mapstructure:"port"`

	// User is the SSH login name. Empty falls back to ~/.ssh/config
	// and then the local user.
	User string `yaml:"user" mapstructure:"user"`

	// IdentityFile is the private key path. Supports ~ expansion.
	// Empty falls back to ~/.ssh/config and the default key names.
	IdentityFile string `yaml:"identity_file" mapstructure:"identity_file"`

	// Tags for filtering hosts with --tag flag.
	Tags []string `yaml:"tags" mapstructure:"tags"`
}

// SamplingConfig controls how metrics are gathered.
type SamplingConfig struct {
	// Timeout bounds a single gather, including connect time.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// IdleTTL is how long an unused session stays in the pool.
	IdleTTL time.Duration `yaml:"idle_ttl" mapstructure:"idle_ttl"`

	// Interval is the refresh cadence of the watch dashboard.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// MarshalYAML writes durations as strings ("15s", not nanosecond counts)
// so generated config files stay readable.
func (s SamplingConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Timeout  string `yaml:"timeout"`
		IdleTTL  string `yaml:"idle_ttl"`
		Interval string `yaml:"interval"`
	}{
		Timeout:  s.Timeout.String(),
		IdleTTL:  s.IdleTTL.String(),
		Interval: s.Interval.String(),
	}, nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Hosts:   make(map[string]Host),
		Sampling: SamplingConfig{
			Timeout:  15 * time.Second,
			IdleTTL:  5 * time.Minute,
			Interval: 3 * time.Second,
		},
	}
}

// HasTag reports whether the host carries the given tag.
func (h Host) HasTag(tag string) bool {
	for _, t := range h.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
