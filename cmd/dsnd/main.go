// Command dsnd is a thin CLI wrapping the DSN core library: it loads a
// single node's identity and knobs from a YAML config file and runs it
// (cmd/dsnd is explicitly outside spec.md's scope for the core itself, but
// every deployable binary in this pack is structured this way around its
// library).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dsnd",
	Short: "Run and inspect a DSN node",
	Long: `dsnd wires a single synchronizer node (channel, store, field, and
synchronizer) from a YAML config file and runs it against its configured
peers, optionally serving the long-poll/SSE demo endpoints other nodes can
dial into.`,
}

func main() {
	rootCmd.AddCommand(
		runCmd(),
		statusCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
