// Package engine abstracts the container engine daemon behind a
// capability interface: build an image, create/start/stop/remove a
// container, run commands inside it, and stream output.
//
// The devenv core never talks to the Docker SDK directly — it drives this
// interface. The real implementation (Docker) wraps the Docker Engine SDK
// with automatic socket detection; the in-memory Fake implements the same
// surface for deterministic tests that never touch a daemon.
package engine

import (
	"context"
	"io"

	"github.com/petehayes102/devenv/internal/model"
)

// BuildOptions controls an image build.
type BuildOptions struct {
	// Tag is the image tag to apply, e.g. "devenv-foo:latest".
	Tag string

	// Pull forces re-fetching newer base layers.
	Pull bool

	// NoCache disables the layer cache.
	NoCache bool

	// Output receives the live build output stream. Callers decide
	// whether that is a terminal (verbose mode) or a buffer that is
	// surfaced only on failure.
	Output io.Writer
}

// ContainerSpec describes the container to create for an environment.
type ContainerSpec struct {
	// Name is the container name ("devenv-<env>").
	Name string

	// EnvName is the environment name, stored as a label on the container.
	EnvName string

	// Image is the image tag to run.
	Image string

	// ProjectDir is bind-mounted at /workspace inside the container.
	ProjectDir string

	// SSHHostPort, when non-zero, publishes container port 22 to this
	// host port for remote access.
	SSHHostPort int
}

// Engine is the capability interface over the container daemon.
// All operations are idempotent at the devenv layer: callers inspect
// state first and skip transitions that already hold.
type Engine interface {
	// Ping verifies the daemon is reachable. Lifecycle operations abort
	// with ExitEngineUnavailable when it is not.
	Ping(ctx context.Context) error

	// BuildImage builds the Dockerfile in contextDir, streaming build
	// output to opts.Output.
	BuildImage(ctx context.Context, contextDir string, opts BuildOptions) error

	// ImageExists reports whether an image with the given tag is present.
	ImageExists(ctx context.Context, tag string) (bool, error)

	// CreateContainer creates (but does not start) a container and
	// returns its engine ID.
	CreateContainer(ctx context.Context, spec ContainerSpec) (string, error)

	// StartContainer starts a created or stopped container by name.
	StartContainer(ctx context.Context, name string) error

	// StopContainer gracefully stops a running container by name.
	StopContainer(ctx context.Context, name string) error

	// RemoveContainer deletes a container by name. With force, a running
	// container is killed first.
	RemoveContainer(ctx context.Context, name string, force bool) error

	// Inspect returns the handle for a named container. A container the
	// engine does not know yields a handle in StateAbsent, not an error.
	Inspect(ctx context.Context, name string) (model.ContainerHandle, error)

	// List returns handles for all containers (running or not) whose
	// name carries the given prefix.
	List(ctx context.Context, prefix string) ([]model.ContainerHandle, error)

	// Exec runs a shell script inside a running container as the given
	// user ("" means the container default) and returns its combined
	// output. A non-zero exit status is an error carrying that output.
	Exec(ctx context.Context, container, user, script string) (string, error)

	// InteractiveShell attaches a bidirectional interactive shell to a
	// running container, copying stdin/stdout until the remote shell
	// exits or ctx is cancelled. Cancellation terminates the session
	// only — it never alters the container's lifecycle state.
	InteractiveShell(ctx context.Context, container string, stdin io.Reader, stdout io.Writer) error

	// Close releases any resources held by the engine client.
	Close() error
}
