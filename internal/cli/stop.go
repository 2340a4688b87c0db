// Package cli — stop.go implements the "devenv stop" command.
//
// The stop command gracefully stops an environment's container. The
// container is kept, so a later start resumes it with its filesystem
// state intact. Stopping an environment that is not running succeeds
// without changing anything.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewStopCommand creates the "stop" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewStopCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop [name]",
		Short: "Stop a development environment",
		Long: `Stop the container for an environment.

With a name, the environment is looked up in the registry. Without one,
the current directory's devenv.toml is used. The container is retained
and can be resumed with 'devenv start'.

Examples:
  devenv stop
  devenv stop my-api`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runStop(cmd.Context(), name)
		},
	}

	return cmd
}

// runStop is the main logic function for the stop command.
func runStop(ctx context.Context, name string) error {
	c, cleanup, err := newCoordinator()
	if err != nil {
		return err
	}
	defer cleanup()

	return c.Stop(ctx, name)
}
