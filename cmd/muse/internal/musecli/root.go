package musecli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// NewRootCommand assembles the muse command tree.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "muse",
		Short:         "muse is the client for the Muse Hub music version control core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newInitCommand(),
		newCloneCommand(),
		newPushCommand(),
		newPullCommand(),
		newFetchCommand(),
		newRemoteCommand(),
	)

	return cmd
}

// Execute runs the command tree and exits the process with the exit
// code the failing command's error carries, or 0 on success.
func Execute() {
	cobra.EnableCommandSorting = false

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "muse:", err)
	}

	os.Exit(exitCode(err))
}
