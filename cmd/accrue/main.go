// Command accrue runs an event-categorization job over synthetic or JSON
// lines data, on any of the accrue back-ends, or starts a cluster node.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-sif/accrue/logging"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:          "accrue",
		Short:        "Process chunked event data and merge the results",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logging.Default().SetLevel(level)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "minimum level of log messages (TRACE, DEBUG, INFO, WARN, ERROR)")
	root.AddCommand(newRunCommand(), newNodeCommand(), newManifestCommand())
	return root
}

func printf(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
