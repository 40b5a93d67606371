// Package main implements the errtrail CLI for diagnosing failures offline
// and inspecting the built-in pattern library.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version information
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "errtrail",
		Short: "Diagnose runtime failures from the command line",
		Long: `errtrail runs the runtime diagnostic engine outside a host process.
It classifies a failure message and stack against the pattern library and
prints the resulting report.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newDiagnoseCmd())
	root.AddCommand(newPatternsCmd())
	return root
}
