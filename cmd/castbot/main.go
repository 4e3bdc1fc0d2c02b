// Command castbot runs a Farcaster-style social bot: it derives a signing
// identity from config, talks to a hub node, and serves an interactive
// Telegram front end.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "castbot",
		Short:         "Telegram bot client for a Farcaster-style social network",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.castbot/config.json)")

	root.AddCommand(runCmd())
	root.AddCommand(whoamiCmd())
	root.AddCommand(postCmd())
	root.AddCommand(statusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
