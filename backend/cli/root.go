// Package cli is the cactus command line: the HTTP server, the one-shot sweep
// for external cron, and per-user inspection commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "cactus",
	Short:         "Cactus backend: daily task cycles with a mood companion",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	rootCmd.AddCommand(
		newServeCmd(),
		newSweepCmd(),
		newStatusCmd(),
		newResetCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error: "+err.Error())
		os.Exit(1)
	}
}
