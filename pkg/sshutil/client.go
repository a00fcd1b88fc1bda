// Package sshutil implements the real SSH transport behind the telemetry
// pool: dialing from explicit credentials, bounded command execution, and
// resolution of host aliases through ~/.ssh/config.
package sshutil

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/hostpulse/hostpulse/internal/errors"
	"github.com/hostpulse/hostpulse/internal/telemetry"
)

// StrictHostKeyChecking controls host key verification behavior.
// When true (default), host keys are verified against ~/.ssh/known_hosts.
// When false, host key verification is skipped (insecure, for CI/automation).
var StrictHostKeyChecking = true

// Client wraps an SSH connection with its resolved address.
// It satisfies telemetry.Transport.
type Client struct {
	*ssh.Client
	Address string
}

// Dial establishes an SSH connection using the key material carried in
// creds. One bounded attempt; no retry.
func Dial(creds telemetry.Credentials, timeout time.Duration) (*Client, error) {
	config, err := buildSSHConfig(creds, timeout)
	if err != nil {
		return nil, err
	}

	address := creds.Address()
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConnect,
			fmt.Sprintf("Can't reach %s", address),
			suggestionForDialError(err))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()

		var hostKeyErr *HostKeyMismatchError
		if stderrors.As(err, &hostKeyErr) {
			return nil, errors.New(errors.ErrConnect,
				hostKeyErr.Error(),
				hostKeyErr.Suggestion())
		}

		return nil, errors.WrapWithCode(err, errors.ErrConnect,
			fmt.Sprintf("SSH handshake with %s didn't go through", address),
			suggestionForHandshakeError(err))
	}

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Address: address,
	}, nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// Dialer adapts Dial to the telemetry.Dialer interface.
type Dialer struct {
	// Timeout bounds each connect attempt. The context deadline wins
	// when it is closer. Defaults to 10s.
	Timeout time.Duration
}

// Dial opens a transport for the given credentials.
func (d Dialer) Dial(ctx context.Context, creds telemetry.Credentials) (telemetry.Transport, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}
	return Dial(creds, timeout)
}

// buildSSHConfig creates an SSH client config from explicit key material.
func buildSSHConfig(creds telemetry.Credentials, timeout time.Duration) (*ssh.ClientConfig, error) {
	if len(creds.PrivateKey) == 0 {
		return nil, errors.New(errors.ErrConnect,
			fmt.Sprintf("No private key material for %s", creds.Address()),
			"Set identity_file for this host, or pass user@host with a key in ~/.ssh.")
	}

	var signer ssh.Signer
	var err error
	if creds.Passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(creds.PrivateKey, []byte(creds.Passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(creds.PrivateKey)
	}
	if err != nil {
		if KeyIsEncrypted(creds.PrivateKey) && creds.Passphrase == "" {
			return nil, errors.WrapWithCode(err, errors.ErrConnect,
				"Private key is encrypted and no passphrase was provided",
				"Provide the key's passphrase, or use an unencrypted key for automation.")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConnect,
			"Couldn't parse the private key",
			"Check the key file is a valid OpenSSH or PEM private key.")
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey() //nolint:gosec // Explicitly disabled by the caller
	if StrictHostKeyChecking {
		knownHostsPath := filepath.Join(homeDir(), ".ssh", "known_hosts")
		hostKeyCallback, err = createHostKeyCallback(knownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
	}

	user := creds.User
	if user == "" {
		user = currentUser()
	}

	return &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}, nil
}

// KeyIsEncrypted reports whether the private key material requires a
// passphrase to parse.
func KeyIsEncrypted(key []byte) bool {
	_, err := ssh.ParsePrivateKey(key)
	if err == nil {
		return false
	}
	var missing *ssh.PassphraseMissingError
	return stderrors.As(err, &missing) || isEncryptedPEM(key)
}

// isEncryptedPEM checks if PEM data contains encryption markers.
func isEncryptedPEM(data []byte) bool {
	return strings.Contains(string(data), "ENCRYPTED")
}

// HostKeyMismatchError provides helpful context when known_hosts verification fails.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns actionable steps to fix the host key mismatch.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return fmt.Sprintf(
		"The server's host key doesn't match what's in known_hosts.\n"+
			"  To update known_hosts:\n"+
			"    ssh-keyscan -t rsa,ecdsa,ed25519 %s >> %s\n"+
			"  Or remove the old entry:\n"+
			"    ssh-keygen -R %s",
		host, e.KnownHosts, host)
}

// createHostKeyCallback wraps the knownhosts callback to provide better error messages.
func createHostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	// Create known_hosts if it doesn't exist yet
	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		dir := filepath.Dir(knownHostsPath)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create .ssh directory: %w", err)
		}
		if err := os.WriteFile(knownHostsPath, []byte{}, 0600); err != nil {
			return nil, fmt.Errorf("failed to create known_hosts: %w", err)
		}
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		if err != nil {
			var keyErr *knownhosts.KeyError
			if stderrors.As(err, &keyErr) && len(keyErr.Want) > 0 {
				return &HostKeyMismatchError{
					Hostname:     hostname,
					ReceivedType: key.Type(),
					KnownHosts:   knownHostsPath,
				}
			}
		}
		return err
	}, nil
}

// Helper functions

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") {
		return "Is SSH running on that box? Try: ssh <host>"
	}
	if strings.Contains(errStr, "no route to host") || strings.Contains(errStr, "network is unreachable") {
		return "Can't route to the host. Check your network connection."
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "i/o timeout") {
		return "Connection timed out. Host might be offline or blocked by a firewall."
	}
	return "Make sure the host is reachable: ping <host>"
}

func suggestionForHandshakeError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "unable to authenticate") || strings.Contains(errStr, "no supported methods") {
		return "Auth failed. Check the key is authorized on the remote host."
	}
	if strings.Contains(errStr, "host key") {
		return "Host key issue. Try connecting manually first: ssh <host>"
	}
	return "Something went wrong during SSH setup. Try: ssh <host>"
}
