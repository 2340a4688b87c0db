// Package cli — restart.go implements the "devenv restart" command.
//
// The restart command stops a running environment and starts it again.
// An environment that is stopped or has no container yet is simply
// started, with a notice about the state it was found in. It accepts the
// same flags as start, so the post-start behavior (editor, shell) is
// identical.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRestartCommand creates the "restart" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewRestartCommand() *cobra.Command {
	flags := &startFlags{}

	cmd := &cobra.Command{
		Use:   "restart [name]",
		Short: "Restart a development environment",
		Long: `Stop and start the container for an environment.

With a name, the environment is looked up in the registry. Without one,
the current directory's devenv.toml is used. When the environment is not
running, restart behaves like start. All start flags are accepted.

Examples:
  devenv restart
  devenv restart my-api --rebuild
  devenv restart my-api --open --attach`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runRestart(cmd.Context(), name, flags)
		},
	}

	// Restart accepts the identical flag set to start.
	registerStartFlags(cmd, flags)

	return cmd
}

// runRestart is the main logic function for the restart command.
func runRestart(ctx context.Context, name string, flags *startFlags) error {
	c, cleanup, err := newCoordinator()
	if err != nil {
		return err
	}
	defer cleanup()

	env, err := c.Restart(ctx, name, flags.options())
	if err != nil {
		return err
	}

	return finishStart(ctx, c, env, flags)
}
