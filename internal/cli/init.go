package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/hostpulse/hostpulse/internal/config"
	"github.com/hostpulse/hostpulse/internal/errors"
)

// initCommand creates a new hostpulse config file interactively.
func initCommand(force, global bool) error {
	configPath := filepath.Join(".", config.ConfigFileName)
	if global {
		var err error
		configPath, err = config.GlobalConfigPath()
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't locate the global config directory",
				"Check that HOME is set.")
		}
	}

	if _, err := os.Stat(configPath); err == nil && !force {
		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", configPath)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	var alias, sshHost, user, identityFile string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Host alias").
				Description("A friendly name for this host").
				Placeholder("web").
				Value(&alias).
				Validate(func(s string) error {
					s = strings.TrimSpace(s)
					if s == "" {
						return fmt.Errorf("alias is required")
					}
					if strings.ContainsAny(s, "@/ \t") {
						return fmt.Errorf("alias cannot contain @, /, or whitespace")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Host").
				Description("Hostname, IP, or ~/.ssh/config alias").
				Placeholder("web-01.internal or 192.168.1.100").
				Value(&sshHost).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("host is required")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("User (optional)").
				Description("SSH login name; empty falls back to ~/.ssh/config").
				Placeholder("deploy").
				Value(&user),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Identity file (optional)").
				Description("Private key path; empty uses ~/.ssh defaults").
				Placeholder("~/.ssh/id_ed25519").
				Value(&identityFile),
		),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility")
	}

	cfg := config.DefaultConfig()
	cfg.Hosts[alias] = config.Host{
		Host:         strings.TrimSpace(sshHost),
		User:         strings.TrimSpace(user),
		IdentityFile: strings.TrimSpace(identityFile),
	}
	cfg.Default = alias

	if err := config.Write(cfg, configPath); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write config file",
			"Check permissions on "+filepath.Dir(configPath))
	}

	fmt.Printf("Wrote %s\n", configPath)
	fmt.Printf("Try it: hostpulse stats %s\n", alias)
	return nil
}
