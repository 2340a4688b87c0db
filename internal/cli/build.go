// Package cli — build.go implements the "devenv build" command.
//
// The build command regenerates the Dockerfile from devenv.toml and
// builds the environment image, without touching the container. It is
// useful for pre-building images and for refreshing base layers with
// --pull.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/petehayes102/devenv/internal/lifecycle"
)

// buildFlags holds the flag values for the build command.
type buildFlags struct {
	// rebuild regenerates an out-of-sync Dockerfile before building.
	rebuild bool

	// pull forces re-fetching newer base image layers.
	pull bool

	// noCache disables the layer cache for a fully fresh build.
	noCache bool
}

// NewBuildCommand creates the "build" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewBuildCommand() *cobra.Command {
	flags := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build [name]",
		Short: "Build the image for a development environment",
		Long: `Build the image for an environment from its Dockerfile.

The image is rebuilt even when one already exists. A missing Dockerfile
is generated from devenv.toml first; an out-of-sync one is rewritten
only with --rebuild, and otherwise warned about and built as-is. The
running container, if any, keeps using the old image until the
environment is started with --rebuild.

Examples:
  devenv build
  devenv build my-api --rebuild
  devenv build my-api --pull`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runBuild(cmd.Context(), name, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.rebuild, "rebuild", false, "Regenerate an out-of-sync Dockerfile, then build ignoring the layer cache")
	cmd.Flags().BoolVar(&flags.pull, "pull", false, "Always pull newer versions of the base image")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "Build without the layer cache, keeping the Dockerfile as it is")

	return cmd
}

// runBuild is the main logic function for the build command.
func runBuild(ctx context.Context, name string, flags *buildFlags) error {
	c, cleanup, err := newCoordinator()
	if err != nil {
		return err
	}
	defer cleanup()

	return c.Build(ctx, name, lifecycle.BuildOptions{
		Rebuild: flags.rebuild,
		Pull:    flags.pull,
		NoCache: flags.noCache,
	})
}
