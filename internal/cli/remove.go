// Package cli — remove.go implements the "devenv remove" command.
//
// The remove command deletes an environment's container (stopping it
// first when running) and drops the environment from the registry. It
// operates on the environment name directly, so it works even when the
// project directory or registry entry has already disappeared.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRemoveCommand creates the "remove" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewRemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a development environment",
		Long: `Remove the container for an environment and unregister it.

A running container is stopped first. The project directory, its
devenv.toml, and the built image are left untouched. Removing an
environment that has no container or registry entry is not an error.

Without a name, the environment is taken from the current directory's
devenv.toml.

Examples:
  devenv remove
  devenv remove my-api
  devenv rm my-api`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runRemove(cmd.Context(), name)
		},
	}

	return cmd
}

// runRemove is the main logic function for the remove command.
func runRemove(ctx context.Context, name string) error {
	c, cleanup, err := newCoordinator()
	if err != nil {
		return err
	}
	defer cleanup()

	return c.Remove(ctx, name)
}
