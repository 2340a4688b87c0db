// Package cli — attach.go implements the "devenv attach" command.
//
// The attach command opens an interactive login shell inside a running
// environment container. The session prefers bash and falls back to sh.
// Exiting the shell leaves the container running.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// NewAttachCommand creates the "attach" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewAttachCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach [name]",
		Short: "Open a shell inside a running environment",
		Long: `Open an interactive shell inside the environment container.

With a name, the environment is looked up in the registry. Without one,
the current directory's devenv.toml is used. The container must be
running; exiting the shell does not stop it.

Examples:
  devenv attach
  devenv attach my-api`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runAttach(cmd.Context(), name)
		},
	}

	return cmd
}

// runAttach is the main logic function for the attach command.
func runAttach(ctx context.Context, name string) error {
	c, cleanup, err := newCoordinator()
	if err != nil {
		return err
	}
	defer cleanup()

	return c.Attach(ctx, name, os.Stdin, os.Stdout)
}
