// Package cli — init.go implements the "devenv init" command.
//
// The init command turns the current directory into a devenv environment:
// it writes a devenv.toml (detecting a suitable base image from the
// project files), generates the Dockerfile, registers the environment by
// name, and builds the image so a subsequent start is instant.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/petehayes102/devenv/internal/model"
)

// NewInitCommand creates the "init" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [name]",
		Short: "Initialize the current directory as a devenv environment",
		Long: `Initialize the current directory as a devenv environment.

A devenv.toml is created if one does not exist, with a base image
detected from the project files (Cargo.toml, package.json, go.mod, ...).
The environment is registered under the given name, or the directory
name when omitted, and the image is built.

Examples:
  devenv init
  devenv init my-api`,

		// The environment name is optional; it defaults to the
		// directory's base name.
		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runInit(cmd.Context(), name)
		},
	}

	return cmd
}

// runInit is the main logic function for the init command.
func runInit(ctx context.Context, name string) error {
	// Step 1: Resolve the project directory.
	dir, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to determine current directory", err)
	}

	// Step 2: Connect to the engine and registry.
	c, cleanup, err := newCoordinator()
	if err != nil {
		return err
	}
	defer cleanup()

	// Step 3: Create or reuse the configuration, register, and build.
	_, err = c.Init(ctx, dir, name)
	return err
}
