package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/hostpulse/hostpulse/internal/config"
	"github.com/hostpulse/hostpulse/internal/errors"
	"github.com/hostpulse/hostpulse/internal/telemetry"
	"github.com/hostpulse/hostpulse/pkg/sshutil"
)

// resolveTarget turns a CLI target into connect-ready credentials.
// Resolution order: hostpulse config alias, then ~/.ssh/config via
// sshutil.Resolve. An empty target falls back to the config's default host.
func resolveTarget(cfg *config.Config, target string) (telemetry.Credentials, string, error) {
	if target == "" {
		if cfg.Default == "" {
			return telemetry.Credentials{}, "", errors.New(errors.ErrConfig,
				"No target given and no default host configured",
				"Pass a target (host, user@host, or alias), or set 'default' in your config.")
		}
		target = cfg.Default
	}

	if h, ok := cfg.Hosts[target]; ok {
		creds, err := credsFromHost(target, h)
		return creds, target, err
	}

	creds, err := sshutil.Resolve(target)
	return creds, target, err
}

// credsFromHost builds credentials for a config host entry. The entry's
// 'host' field may itself be an SSH config alias; explicit fields in the
// entry win over what ~/.ssh/config says.
func credsFromHost(name string, h config.Host) (telemetry.Credentials, error) {
	creds, err := sshutil.Resolve(h.Host)
	if err != nil {
		return telemetry.Credentials{}, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Couldn't resolve host '%s'", name),
			"Check the 'host' and 'identity_file' fields for this entry.")
	}

	if h.User != "" {
		creds.User = h.User
	}
	if h.Port != 0 {
		creds.Port = h.Port
	}
	if h.IdentityFile != "" {
		key, err := os.ReadFile(h.IdentityFile)
		if err != nil {
			return telemetry.Credentials{}, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Couldn't read the SSH key for host '%s'", name),
				"Check the identity_file path: "+h.IdentityFile)
		}
		creds.PrivateKey = key
	}

	return creds, nil
}

// promptPassphraseIfNeeded asks for the key passphrase when the resolved
// key is encrypted and we're attached to a terminal.
func promptPassphraseIfNeeded(creds *telemetry.Credentials) error {
	if !sshutil.KeyIsEncrypted(creds.PrivateKey) {
		return nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New(errors.ErrConnect,
			"The SSH key is encrypted and there's no terminal to prompt on",
			"Use an unencrypted key for automation, or run interactively.")
	}

	fmt.Fprintf(os.Stderr, "Passphrase for SSH key: ")
	passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConnect,
			"Couldn't read the passphrase",
			"Check terminal compatibility.")
	}

	creds.Passphrase = string(passphrase)
	return nil
}
