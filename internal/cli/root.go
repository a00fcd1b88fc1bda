// Package cli wires the hostpulse commands together with cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Persistent flags
var configFlag string

// rootCmd is the base command for hostpulse.
var rootCmd = &cobra.Command{
	Use:   "hostpulse",
	Short: "Lightweight system metrics for remote hosts over SSH",
	Long: `hostpulse samples CPU, RAM, and network throughput from remote Linux
hosts over plain SSH - no agents, no exporters, nothing to install on the
target. Each reading is a single command round trip against /proc.

Targets can be a hostname, user@host, an ~/.ssh/config alias, or an alias
from your hostpulse config.

Examples:
  hostpulse stats web-01.internal
  hostpulse stats deploy@web-01:2222 --json
  hostpulse watch web --interval 5s
  hostpulse hosts`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default: .hostpulse.yaml, then ~/.config/hostpulse/config.yaml)")
}

// Execute runs the root command and exits non-zero on error. Structured
// errors already carry their own formatting, so they print as-is.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
