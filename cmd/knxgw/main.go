// Knxgw finds KNXnet/IP gateways on the local network.
//
// It multicasts a SEARCH_REQUEST to the KNXnet/IP system setup group and
// lists every gateway that answers, or sends a DESCRIPTION_REQUEST to one
// known gateway and prints what it reports about itself.
//
// Usage:
//
//	knxgw [command] [flags]
//
// See 'knxgw --help' for available commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/libknx/knxgw/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var shown *reportedError
		if !errors.As(err, &shown) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "knxgw",
	Short: "KNXnet/IP gateway discovery",
	Long: `Find and describe KNXnet/IP gateways (IP interfaces and routers).

search    multicasts a SEARCH_REQUEST and lists the gateways that answer
describe  asks one gateway for its DESCRIPTION_RESPONSE
scan      searches, then describes every gateway found

Protocol constants come from the config file (see 'knxgw config show').
Flags override them for a single run.`,
	Version:           version.Version,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	Example: `  # List gateways, waiting 5 seconds for answers
  knxgw search --window 5s

  # Describe a known gateway
  knxgw describe 192.168.1.10

  # Search and describe everything, as JSON
  knxgw scan --format json`,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Fprintf(cmd.OutOrStdout(), "knxgw %s (commit: %s, %s, %s)\n",
			info.Version, info.Commit, info.GoVersion, info.Platform)
	},
}

// reportedError marks an error the command already rendered.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }
