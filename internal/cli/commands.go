package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hostpulse/hostpulse/internal/errors"
)

// Command-specific flags
var (
	statsJSONFlag     bool
	statsTimeoutFlag  string
	watchIntervalFlag string
	watchTimeoutFlag  string
	hostsJSONFlag     bool
	hostsTagFlag      string
	initForce         bool
	initGlobal        bool
)

// statsCmd gathers one metrics snapshot from a host
var statsCmd = &cobra.Command{
	Use:   "stats <target>",
	Short: "Show CPU, RAM, and network stats for a host",
	Long: `Gather a single metrics snapshot from a remote host.

The target can be a hostname, user@host[:port], an ~/.ssh/config alias,
or an alias from your hostpulse config. Each snapshot takes roughly one
second: the remote side reads /proc twice around a one-second sleep so
rates come from real counter deltas.

Examples:
  hostpulse stats web-01.internal
  hostpulse stats deploy@web-01:2222
  hostpulse stats web --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := ""
		if len(args) > 0 {
			target = args[0]
		}
		timeout, err := parseDurationFlag(statsTimeoutFlag, "timeout")
		if err != nil {
			return err
		}
		return statsCommand(target, statsJSONFlag, timeout)
	},
}

// watchCmd starts the live dashboard for a host
var watchCmd = &cobra.Command{
	Use:   "watch <target>",
	Short: "Live metrics dashboard for a host",
	Long: `Start a live terminal dashboard showing CPU, RAM, and network
metrics for one host, refreshed on an interval over a reused SSH session.

Keyboard shortcuts:
  q / Ctrl+C  Quit
  r           Force refresh

Examples:
  hostpulse watch web-01.internal
  hostpulse watch web --interval 5s`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := ""
		if len(args) > 0 {
			target = args[0]
		}
		interval, err := parseDurationFlag(watchIntervalFlag, "interval")
		if err != nil {
			return err
		}
		if interval != 0 && interval < 500*time.Millisecond {
			return errors.New(errors.ErrConfig,
				"Interval too short",
				"Minimum interval is 500ms to avoid overwhelming hosts")
		}
		timeout, err := parseDurationFlag(watchTimeoutFlag, "timeout")
		if err != nil {
			return err
		}
		return watchCommand(target, interval, timeout)
	},
}

// hostsCmd lists known hosts
var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "List hosts from your config and ~/.ssh/config",
	Long: `List every host hostpulse knows about: aliases from the hostpulse
config first, then concrete aliases from ~/.ssh/config.

Examples:
  hostpulse hosts
  hostpulse hosts --tag prod
  hostpulse hosts --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostsCommand(hostsJSONFlag, hostsTagFlag)
	},
}

// initCmd creates a hostpulse config file
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a hostpulse config file",
	Long: `Initialize a hostpulse configuration file with an interactive prompt.

Writes .hostpulse.yaml in the current directory, or the global
~/.config/hostpulse/config.yaml with --global.

Examples:
  hostpulse init
  hostpulse init --global
  hostpulse init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(initForce, initGlobal)
	},
}

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for hostpulse.

Examples:
  # Bash
  hostpulse completion bash > /etc/bash_completion.d/hostpulse

  # Zsh
  hostpulse completion zsh > "${fpath[1]}/_hostpulse"

  # Fish
  hostpulse completion fish > ~/.config/fish/completions/hostpulse.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(os.Stdout)
		default:
			return errors.New(errors.ErrConfig,
				"Unknown shell: "+args[0],
				"Supported shells: bash, zsh, fish, powershell")
		}
	},
}

// parseDurationFlag parses an optional duration flag value. Empty means
// zero, letting the caller fall back to config or defaults.
func parseDurationFlag(value, name string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Invalid %s: %s", name, value),
			"Use a valid duration like 2s, 5s, or 1m")
	}
	return d, nil
}

func init() {
	// stats command flags
	statsCmd.Flags().BoolVar(&statsJSONFlag, "json", false, "output machine-readable JSON")
	statsCmd.Flags().StringVar(&statsTimeoutFlag, "timeout", "", "gather timeout (e.g., 15s, 1m)")

	// watch command flags
	watchCmd.Flags().StringVar(&watchIntervalFlag, "interval", "", "refresh interval (e.g., 2s, 5s)")
	watchCmd.Flags().StringVar(&watchTimeoutFlag, "timeout", "", "per-refresh timeout (e.g., 15s)")

	// hosts command flags
	hostsCmd.Flags().BoolVar(&hostsJSONFlag, "json", false, "output machine-readable JSON")
	hostsCmd.Flags().StringVar(&hostsTagFlag, "tag", "", "only show hosts with this tag")

	// init command flags
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config")
	initCmd.Flags().BoolVar(&initGlobal, "global", false, "write ~/.config/hostpulse/config.yaml instead of .hostpulse.yaml")

	// Register all commands
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(hostsCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(completionCmd)
}
