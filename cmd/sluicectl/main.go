// Package main implements the sluicectl CLI for operating sluice log
// configurations: validating config files and pruning rotated files
// outside a running engine.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "sluicectl",
		Short:   "sluice logging engine CLI",
		Long:    `sluicectl validates sluice configuration files and maintains the log directories they describe.`,
		Version: version,
	}

	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(pruneCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
