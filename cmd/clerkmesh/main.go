// Command clerkmesh is a thin CLI over the public engine API: it runs demo
// batches against the simulated collaborators and prints session summaries,
// memory query results and trace diagrams.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "clerkmesh",
		Short:         "clerkmesh: coordinate admin-task handlers from the terminal",
		Long:          "clerkmesh runs cooperating admin-task handlers (bill scanning, form workflows, payment monitoring, schedule aggregation) over shared memory and prints the resulting session state.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.clerkmesh.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newStatusCmd(),
		newMemoryCmd(),
		newTraceCmd(),
	)

	return rootCmd
}
