// Package cli implements the cobra-based CLI commands for devenv.
//
// Each subcommand (init, start, stop, restart, build, remove, attach,
// list) is defined in its own file within this package. This file defines
// the root command that serves as the parent for all subcommands, handles
// global flags, and translates errors into process exit codes.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petehayes102/devenv/internal/engine"
	"github.com/petehayes102/devenv/internal/lifecycle"
	"github.com/petehayes102/devenv/internal/model"
	"github.com/petehayes102/devenv/internal/registry"
)

// verbose enables detailed logging output for debugging.
// It is bound to the --verbose persistent flag on the root command,
// which makes it available to every subcommand automatically.
var verbose bool

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// This is the entry point for the entire CLI application.
//
// The root command itself does not perform any action — it only provides
// help text and global flags. Actual functionality lives in the
// subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "devenv",
		Short: "Containerized development environment manager",
		Long: `devenv manages named, containerized development environments.

Each environment is described by a devenv.toml in the project directory.
devenv generates a Dockerfile from it, builds an image, and runs a
container with the project bind-mounted at /workspace. Environments are
registered by name, so any of them can be started, stopped, or attached
to from anywhere.`,

		// SilenceUsage prevents cobra from printing usage on every error.
		// We handle error output ourselves for cleaner UX.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// Execute formats them and picks the exit code.
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	// Register subcommands. Each subcommand is defined in its own file
	// (init.go, start.go, etc.) and returns a *cobra.Command.
	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewStartCommand())
	rootCmd.AddCommand(NewStopCommand())
	rootCmd.AddCommand(NewRestartCommand())
	rootCmd.AddCommand(NewBuildCommand())
	rootCmd.AddCommand(NewRemoveCommand())
	rootCmd.AddCommand(NewAttachCommand())
	rootCmd.AddCommand(NewListCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// It inspects errors returned by cobra commands and translates them
// into appropriate OS exit codes. CLIError types carry their own
// exit codes; other errors default to exit code 1.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		code, message, underlying := exitStatus(err)
		printError(message, underlying)
		os.Exit(int(code))
	}
}

// exitStatus resolves the exit code and error message for an error.
// errors.As finds a CLIError anywhere in the wrap chain, so codes
// survive fmt.Errorf("...: %w", err) wrapping in lower layers; anything
// else is a generic failure with exit code 1.
func exitStatus(err error) (model.ExitCode, string, error) {
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code, cliErr.Message, cliErr.Err
	}
	return model.ExitGeneralError, err.Error(), nil
}

// printError outputs "Error: <message>" on stderr, with the underlying
// cause appended when present.
func printError(message string, underlying error) {
	if underlying != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	}
}

// VerboseLog prints a message to stderr only when verbose mode is enabled.
// This is used throughout the CLI for debug/trace output that helps
// users understand what operations are being performed.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// newCoordinator connects to the container engine and the environment
// registry and wires them into a lifecycle coordinator. The returned
// cleanup function closes the engine client.
//
// Every subcommand goes through this helper, so engine connection
// failures surface uniformly as ExitEngineUnavailable.
func newCoordinator() (*lifecycle.Coordinator, func(), error) {
	eng, err := engine.NewDocker()
	if err != nil {
		return nil, nil, err
	}
	VerboseLog("Connected to container engine")

	regPath, err := registry.DefaultPath()
	if err != nil {
		_ = eng.Close()
		return nil, nil, err
	}
	VerboseLog("Using registry at %s", regPath)

	c := lifecycle.New(eng, registry.Open(regPath))
	c.Verbose = verbose
	cleanup := func() { _ = eng.Close() }
	return c, cleanup, nil
}
