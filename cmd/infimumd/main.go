// Command infimumd runs the Infimum poll engine host adapter, grounded on
// luxfi-consensus's cobra root-command layout: one subcommand per operating
// mode (serve, devnet, keys verify).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "infimumd",
	Short: "Infimum poll engine: HTTP host adapter, devnet simulator, and key tooling",
	Long: `infimumd hosts the Infimum MACI-style poll engine: it exposes the
eight chain-facing extrinsics (coordinator registration, poll lifecycle,
participant registration, interaction, merge, and outcome commitment) over
HTTP, runs an in-memory devnet simulation of a full poll lifecycle, and
offers an offline Groth16 verify-key sanity check.`,
}

func main() {
	rootCmd.AddCommand(serveCmd(), devnetCmd(), keysCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
