package model

import "fmt"

// ExitCode defines standard CLI exit codes. These codes allow scripts and
// CI systems to programmatically determine the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates devenv.toml was missing, unparseable,
	// or no project context was available to resolve it.
	ExitConfigError ExitCode = 2

	// ExitEngineUnavailable indicates the container engine daemon is
	// not accessible.
	ExitEngineUnavailable ExitCode = 3

	// ExitBuildFailure indicates the image build failed, or an image
	// was required but absent and building was disabled.
	ExitBuildFailure ExitCode = 4

	// ExitEnvNotFound indicates the named environment does not exist
	// in the registry.
	ExitEnvNotFound ExitCode = 5

	// ExitContainerNotFound indicates an operation targeted a container
	// that is absent (or not running) at the engine.
	ExitContainerNotFound ExitCode = 6

	// ExitCredentialError indicates SSH keypair generation failed or
	// the keypair tooling is unavailable.
	ExitCredentialError ExitCode = 7

	// ExitPortConflict indicates the SSH host port to publish is
	// already in use on the host.
	ExitPortConflict ExitCode = 8
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
