package sshutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"

	"github.com/hostpulse/hostpulse/internal/errors"
	"github.com/hostpulse/hostpulse/internal/telemetry"
)

// HostEntry represents a parsed host entry from SSH config.
type HostEntry struct {
	Alias        string // The Host pattern (alias)
	Hostname     string // The HostName value (actual host to connect to)
	User         string // The User value
	Port         string // The Port value
	IdentityFile string // The IdentityFile value
}

// Description returns a user-friendly description of the host.
func (h HostEntry) Description() string {
	parts := []string{}

	if h.Hostname != "" && h.Hostname != h.Alias {
		parts = append(parts, h.Hostname)
	}

	if h.User != "" {
		parts = append(parts, "user: "+h.User)
	}

	if h.Port != "" && h.Port != "22" {
		parts = append(parts, "port: "+h.Port)
	}

	if len(parts) == 0 {
		return h.Alias
	}

	return strings.Join(parts, ", ")
}

// Resolve turns a target like "host", "user@host", or "user@host:2222" into
// connect-ready credentials, consulting ~/.ssh/config for anything the
// target itself doesn't say and reading the identity file into memory.
func Resolve(target string) (telemetry.Credentials, error) {
	return ResolveWithConfig(target, filepath.Join(homeDir(), ".ssh", "config"))
}

// ResolveWithConfig is Resolve against a specific SSH config file path.
func ResolveWithConfig(target, configPath string) (telemetry.Credentials, error) {
	user, host, port, err := parseTarget(target)
	if err != nil {
		return telemetry.Credentials{}, err
	}

	entry := lookupHost(host, configPath)

	creds := telemetry.Credentials{Host: host, Port: port, User: user}
	if entry.Hostname != "" {
		creds.Host = entry.Hostname
	}
	if creds.User == "" {
		creds.User = entry.User
	}
	if creds.User == "" {
		creds.User = currentUser()
	}
	if creds.Port == 0 && entry.Port != "" {
		if p, err := strconv.Atoi(entry.Port); err == nil {
			creds.Port = p
		}
	}

	keyPath := entry.IdentityFile
	if keyPath == "" {
		keyPath = defaultKeyPath()
	}
	if keyPath == "" {
		return telemetry.Credentials{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("No SSH key found for %s", target),
			"Set IdentityFile for this host in ~/.ssh/config, or create a key: ssh-keygen -t ed25519")
	}

	key, err := os.ReadFile(keyPath)
	if err != nil {
		return telemetry.Credentials{}, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Couldn't read the SSH key at %s", keyPath),
			"Check the IdentityFile path for this host.")
	}
	creds.PrivateKey = key

	return creds, nil
}

// parseTarget splits "user@host:port" into its parts. User and port are
// optional; port 0 means unspecified.
func parseTarget(target string) (user, host string, port int, err error) {
	rest := target
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		user = rest[:at]
		rest = rest[at+1:]
	}
	if colon := strings.LastIndex(rest, ":"); colon >= 0 {
		p, perr := strconv.Atoi(rest[colon+1:])
		if perr != nil || p <= 0 || p > 65535 {
			return "", "", 0, errors.New(errors.ErrConfig,
				fmt.Sprintf("Invalid port in target %q", target),
				"Use host, user@host, or user@host:port.")
		}
		port = p
		rest = rest[:colon]
	}
	host = rest
	if host == "" {
		return "", "", 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("No host in target %q", target),
			"Use host, user@host, or user@host:port.")
	}
	return user, host, port, nil
}

// lookupHost returns whatever ~/.ssh/config knows about the host. A missing
// or unreadable config just means an empty entry.
func lookupHost(host, configPath string) HostEntry {
	entry := HostEntry{Alias: host}

	content, _, err := preprocessSSHConfig(configPath)
	if err != nil {
		return entry
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return entry
	}

	if hostname, _ := cfg.Get(host, "HostName"); hostname != "" {
		entry.Hostname = hostname
	}
	if user, _ := cfg.Get(host, "User"); user != "" {
		entry.User = user
	}
	if port, _ := cfg.Get(host, "Port"); port != "" {
		entry.Port = port
	}
	if identity, _ := cfg.Get(host, "IdentityFile"); identity != "" {
		entry.IdentityFile = expandPath(identity)
	}

	return entry
}

// ListHosts parses ~/.ssh/config and returns all concrete host aliases,
// skipping wildcards.
func ListHosts() ([]HostEntry, error) {
	return ListHostsFromFile(filepath.Join(homeDir(), ".ssh", "config"))
}

// ListHostsFromFile parses the specified SSH config file.
func ListHostsFromFile(configPath string) ([]HostEntry, error) {
	content, _, err := preprocessSSHConfig(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No SSH config is fine
		}
		return nil, err
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var hosts []HostEntry
	seen := make(map[string]bool)

	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()

			if strings.Contains(alias, "*") || strings.Contains(alias, "?") {
				continue
			}
			if seen[alias] {
				continue
			}
			seen[alias] = true

			entry := HostEntry{Alias: alias}
			if hostname, _ := cfg.Get(alias, "HostName"); hostname != "" {
				entry.Hostname = hostname
			}
			if user, _ := cfg.Get(alias, "User"); user != "" {
				entry.User = user
			}
			if port, _ := cfg.Get(alias, "Port"); port != "" {
				entry.Port = port
			}
			if identity, _ := cfg.Get(alias, "IdentityFile"); identity != "" {
				entry.IdentityFile = expandPath(identity)
			}
			hosts = append(hosts, entry)
		}
	}

	sort.Slice(hosts, func(i, j int) bool {
		return hosts[i].Alias < hosts[j].Alias
	})

	return hosts, nil
}

// preprocessSSHConfig reads the SSH config and returns content up to the
// first Match directive, which the decoder can't represent. Also returns
// the line number where Match was found (0 if not found).
func preprocessSSHConfig(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	var result []string
	matchLine := 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), "match ") {
			matchLine = i + 1
			break
		}
		result = append(result, line)
	}

	return []byte(strings.Join(result, "\n")), matchLine, nil
}

// defaultKeyPath returns the first default key that exists in ~/.ssh.
func defaultKeyPath() string {
	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		path := filepath.Join(homeDir(), ".ssh", name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
