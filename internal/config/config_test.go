package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, CurrentConfigVersion, cfg.Version)
	assert.NotNil(t, cfg.Hosts)
	assert.Empty(t, cfg.Hosts)
	assert.Equal(t, 15*time.Second, cfg.Sampling.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Sampling.IdleTTL)
	assert.Equal(t, 3*time.Second, cfg.Sampling.Interval)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, ".hostpulse.yaml")

	content := `
version: 1
hosts:
  web:
    host: web-01.internal
    port: 2222
    user: deploy
    identity_file: ~/.ssh/id_deploy
    tags: [prod, frontend]
  db:
    host: db-01.internal
default: web
sampling:
  timeout: 20s
  interval: 5s
`
	err := os.WriteFile(configPath, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Version)
	assert.Len(t, cfg.Hosts, 2)
	assert.Equal(t, "web", cfg.Default)

	web := cfg.Hosts["web"]
	assert.Equal(t, "web-01.internal", web.Host)
	assert.Equal(t, 2222, web.Port)
	assert.Equal(t, "deploy", web.User)
	assert.Equal(t, []string{"prod", "frontend"}, web.Tags)
	assert.True(t, web.HasTag("prod"))
	assert.False(t, web.HasTag("staging"))

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".ssh", "id_deploy"), web.IdentityFile)

	// Explicit values win, unspecified fields keep defaults
	assert.Equal(t, 20*time.Second, cfg.Sampling.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Sampling.Interval)
	assert.Equal(t, 5*time.Minute, cfg.Sampling.IdleTTL)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, ".hostpulse.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("hosts: [not: a map"), 0644))

	_, err := Load(configPath)
	require.Error(t, err)
}

func TestFind_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("version: 1"), 0644))

	found, err := Find(configPath)
	require.NoError(t, err)
	assert.Equal(t, configPath, found)
}

func TestFind_ExplicitPathMissing(t *testing.T) {
	_, err := Find(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults pass",
			mutate: func(cfg *Config) {},
		},
		{
			name: "future version",
			mutate: func(cfg *Config) {
				cfg.Version = CurrentConfigVersion + 1
			},
			wantErr: "from the future",
		},
		{
			name: "host missing host field",
			mutate: func(cfg *Config) {
				cfg.Hosts["web"] = Host{}
			},
			wantErr: "no 'host' field",
		},
		{
			name: "host name with special chars",
			mutate: func(cfg *Config) {
				cfg.Hosts["deploy@web"] = Host{Host: "web-01"}
			},
			wantErr: "special characters",
		},
		{
			name: "bad port",
			mutate: func(cfg *Config) {
				cfg.Hosts["web"] = Host{Host: "web-01", Port: 99999}
			},
			wantErr: "invalid port",
		},
		{
			name: "unknown default host",
			mutate: func(cfg *Config) {
				cfg.Default = "ghost"
			},
			wantErr: "isn't defined",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Sampling.Timeout = -time.Second
			},
			wantErr: "can't be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Hosts["web"] = Host{
		Host: "web-01.internal",
		User: "deploy",
		Tags: []string{"prod"},
	}
	cfg.Default = "web"

	require.NoError(t, Write(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Default, loaded.Default)
	assert.Equal(t, cfg.Hosts["web"].Host, loaded.Hosts["web"].Host)
	assert.Equal(t, cfg.Hosts["web"].User, loaded.Hosts["web"].User)
	assert.Equal(t, cfg.Sampling.Timeout, loaded.Sampling.Timeout)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# hostpulse configuration")
}
