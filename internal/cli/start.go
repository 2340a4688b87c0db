// Package cli — start.go implements the "devenv start" command.
//
// The start command brings an environment's container to the running
// state: the Dockerfile is regenerated when missing, the image is built
// when absent (or when --rebuild is given), and the container is created
// and started. Optionally the command opens an editor on the environment
// or attaches an interactive shell afterwards.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/petehayes102/devenv/internal/lifecycle"
	"github.com/petehayes102/devenv/internal/model"
)

// startFlags holds the flag values for the start command.
// These are bound to cobra flags in NewStartCommand.
type startFlags struct {
	// rebuild regenerates the Dockerfile, rebuilds the image without
	// cache, and recreates the container.
	rebuild bool

	// noBuild skips image building; starting fails if no image exists.
	noBuild bool

	// open names an editor to launch against the environment after it is
	// running. The bare flag defaults to "zed".
	open string

	// attach opens an interactive shell once the environment is running.
	attach bool
}

// NewStartCommand creates the "start" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewStartCommand() *cobra.Command {
	flags := &startFlags{}

	cmd := &cobra.Command{
		Use:   "start [name]",
		Short: "Start a development environment",
		Long: `Start the container for an environment.

With a name, the environment is looked up in the registry. Without one,
the current directory's devenv.toml is used. Starting an environment
that is already running succeeds without changing anything.

When the environment has remote access enabled, an SSH keypair is
provisioned under .devenv/ and its public key installed in the
container, so editors can connect over SSH.

Examples:
  devenv start
  devenv start my-api
  devenv start my-api --rebuild
  devenv start my-api --open
  devenv start my-api --attach`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runStart(cmd.Context(), name, flags)
		},
	}

	registerStartFlags(cmd, flags)

	return cmd
}

// registerStartFlags binds the start flag set to a command. The restart
// command registers the same set so both accept identical flags.
func registerStartFlags(cmd *cobra.Command, flags *startFlags) {
	cmd.Flags().BoolVar(&flags.rebuild, "rebuild", false, "Regenerate the Dockerfile and rebuild the image from scratch")
	cmd.Flags().BoolVar(&flags.noBuild, "no-build", false, "Never build; fail if the image does not exist")
	cmd.Flags().StringVar(&flags.open, "open", "", "Open an editor on the environment (defaults to zed)")
	cmd.Flags().BoolVar(&flags.attach, "attach", false, "Attach an interactive shell after starting")

	// --open without a value means the default editor.
	cmd.Flags().Lookup("open").NoOptDefVal = "zed"
}

// options converts the flag values into lifecycle start options.
func (f *startFlags) options() lifecycle.StartOptions {
	return lifecycle.StartOptions{
		Rebuild: f.rebuild,
		NoBuild: f.noBuild,
	}
}

// runStart is the main logic function for the start command.
func runStart(ctx context.Context, name string, flags *startFlags) error {
	// Step 1: Connect to the engine and registry.
	c, cleanup, err := newCoordinator()
	if err != nil {
		return err
	}
	defer cleanup()

	// Step 2: Drive the environment to the running state.
	env, err := c.Start(ctx, name, flags.options())
	if err != nil {
		return err
	}

	// Step 3: Editor and shell, when requested.
	return finishStart(ctx, c, env, flags)
}

// finishStart runs the post-start steps shared by start and restart:
// launching the editor and attaching an interactive shell.
func finishStart(ctx context.Context, c *lifecycle.Coordinator, env *lifecycle.Environment, flags *startFlags) error {
	// The editor runs detached; devenv does not wait for it.
	if flags.open != "" {
		if err := openEditor(flags.open, env); err != nil {
			return err
		}
	}

	// Attaching blocks until the shell exits.
	if flags.attach {
		return c.Attach(ctx, env.Name, os.Stdin, os.Stdout)
	}
	return nil
}

// openEditor launches the named editor against the environment and
// returns without waiting for it to exit.
//
// For remote-enabled environments the editor is pointed at the
// container's workspace over SSH; otherwise it opens the project
// directory on the host.
func openEditor(editor string, env *lifecycle.Environment) error {
	target := env.ProjectDir
	if env.Config.RemoteEnabled() {
		target = fmt.Sprintf("ssh://%s@localhost:%d/workspace",
			env.Config.SSHUser(), env.Config.SSHHostPort())
	}

	VerboseLog("Launching %s %s", editor, target)
	cmd := exec.Command(editor, target)
	if err := cmd.Start(); err != nil {
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to launch editor %q", editor), err)
	}
	// Release the child so it outlives this process.
	return cmd.Process.Release()
}
