package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"golang.org/x/term"

	"github.com/petehayes102/devenv/internal/model"
)

// Label keys stored on every container this tool creates. The registry
// is the source of truth for name resolution; the labels exist so that
// `docker inspect` output identifies devenv-owned containers.
const (
	// LabelManagedBy identifies containers created by devenv.
	LabelManagedBy = "devenv.managed-by"

	// LabelName stores the environment name.
	LabelName = "devenv.name"

	// ManagedByValue is the constant value for LabelManagedBy.
	ManagedByValue = "devenv"
)

// defaultPingTimeout is the maximum duration to wait for a daemon
// response during a Ping operation. 5 seconds is generous enough for
// most environments, including Docker Desktop on macOS which can be
// slower than native Linux Docker.
const defaultPingTimeout = 5 * time.Second

// Docker implements Engine against a real Docker daemon via the Docker
// Engine SDK. It handles automatic socket detection across platforms
// (Linux, macOS, Windows).
//
// Usage:
//
//	eng, err := engine.NewDocker()
//	if err != nil { /* handle */ }
//	defer eng.Close()
type Docker struct {
	cli *client.Client
}

// Docker implements Engine.
var _ Engine = (*Docker)(nil)

// NewDocker creates a Docker engine with automatic socket detection.
//
// The detection strategy follows this priority order:
//  1. DOCKER_HOST environment variable (if set, used as-is)
//  2. Platform-specific default socket paths:
//     - Linux: /var/run/docker.sock
//     - macOS: /var/run/docker.sock, then ~/.docker/run/docker.sock
//     - Windows: npipe:////./pipe/docker_engine
//
// Returns a model.CLIError with ExitEngineUnavailable if no socket is
// found or the client cannot be created.
func NewDocker() (*Docker, error) {
	dockerHost := os.Getenv("DOCKER_HOST")
	if dockerHost != "" {
		return newDockerWithHost(dockerHost)
	}

	host, err := detectDockerHost()
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitEngineUnavailable,
			"container engine socket not found",
			err,
		)
	}

	return newDockerWithHost(host)
}

// newDockerWithHost creates a client connected to the specified host.
// API version negotiation keeps the client compatible across daemon
// versions without hardcoding a specific API version.
func newDockerWithHost(host string) (*Docker, error) {
	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitEngineUnavailable,
			fmt.Sprintf("failed to create engine client for host %q", host),
			err,
		)
	}

	return &Docker{cli: c}, nil
}

// detectDockerHost determines the Docker socket path for the current
// platform. It probes known socket paths and returns the first that
// exists. Existence is checked rather than attempting a connection
// because existence checks are fast and don't require a running daemon;
// Ping handles connectivity verification.
func detectDockerHost() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return detectUnixSocket([]string{
			"/var/run/docker.sock",
		})

	case "darwin":
		// macOS has two possible socket locations: the standard path
		// (Docker Desktop creates a symlink there) and the per-user path
		// used when the symlink is not created.
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return detectUnixSocket([]string{
				"/var/run/docker.sock",
			})
		}
		return detectUnixSocket([]string{
			"/var/run/docker.sock",
			homeDir + "/.docker/run/docker.sock",
		})

	case "windows":
		// Windows uses a named pipe. os.Stat does not work on named
		// pipes, so probe with a brief dial instead.
		pipePath := `//./pipe/docker_engine`
		conn, err := net.DialTimeout("pipe", pipePath, 1*time.Second)
		if err == nil {
			conn.Close()
			return "npipe://" + pipePath, nil
		}
		return "", fmt.Errorf("engine named pipe not found at %s: %w", pipePath, err)

	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// detectUnixSocket probes a list of Unix socket paths and returns the
// host URI for the first socket that exists on the filesystem.
func detectUnixSocket(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf(
		"engine socket not found at any of: %v — is Docker running?",
		paths,
	)
}

// Ping verifies that the daemon is reachable and responsive.
func (d *Docker) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if _, err := d.cli.Ping(pingCtx); err != nil {
		return model.WrapCLIError(
			model.ExitEngineUnavailable,
			"container engine is not responding — is Docker running?",
			err,
		)
	}
	return nil
}

// Close releases all resources held by the engine client.
// Safe to call multiple times.
func (d *Docker) Close() error {
	if d.cli != nil {
		return d.cli.Close()
	}
	return nil
}

// BuildImage sends contextDir as a tar build context and builds the
// Dockerfile at its root. The daemon's JSON progress stream is decoded
// and the textual output written to opts.Output; an error reported in
// the stream surfaces as a BuildFailure.
func (d *Docker) BuildImage(ctx context.Context, contextDir string, opts BuildOptions) error {
	buildCtx, err := tarBuildContext(contextDir)
	if err != nil {
		return model.WrapCLIError(model.ExitBuildFailure, "preparing build context", err)
	}

	resp, err := d.cli.ImageBuild(ctx, buildCtx, build.ImageBuildOptions{
		Tags:       []string{opts.Tag},
		Dockerfile: "Dockerfile",
		Remove:     true,
		PullParent: opts.Pull,
		NoCache:    opts.NoCache,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitBuildFailure,
			fmt.Sprintf("image build request for %q failed", opts.Tag),
			err,
		)
	}
	defer func() { _ = resp.Body.Close() }()

	return decodeBuildStream(resp.Body, opts.Output, opts.Tag)
}

// buildMessage is the subset of the daemon's build progress stream that
// matters here: textual output and a terminal error.
type buildMessage struct {
	Stream      string `json:"stream"`
	Status      string `json:"status"`
	Error       string `json:"error"`
	ErrorDetail struct {
		Message string `json:"message"`
	} `json:"errorDetail"`
}

// decodeBuildStream consumes the build progress stream, writing output
// to out as it arrives. A message carrying an error terminates the build
// with ExitBuildFailure.
func decodeBuildStream(body io.Reader, out io.Writer, tag string) error {
	if out == nil {
		out = io.Discard
	}

	dec := json.NewDecoder(body)
	for {
		var msg buildMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return model.WrapCLIError(
				model.ExitBuildFailure,
				fmt.Sprintf("reading build output for %q", tag),
				err,
			)
		}

		if msg.Stream != "" {
			_, _ = io.WriteString(out, msg.Stream)
		} else if msg.Status != "" {
			// Pull progress arrives as status lines.
			_, _ = io.WriteString(out, msg.Status+"\n")
		}

		if msg.Error != "" {
			detail := msg.ErrorDetail.Message
			if detail == "" {
				detail = msg.Error
			}
			return model.NewCLIError(
				model.ExitBuildFailure,
				fmt.Sprintf("image build for %q failed: %s", tag, detail),
			)
		}
	}
}

// ImageExists reports whether an image with the given tag is present
// locally. Listing with a reference filter is used instead of inspect
// because it is stable across engine API versions.
func (d *Docker) ImageExists(ctx context.Context, tag string) (bool, error) {
	images, err := d.cli.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", tag)),
	})
	if err != nil {
		return false, model.WrapCLIError(
			model.ExitEngineUnavailable,
			fmt.Sprintf("failed to list images matching %q", tag),
			err,
		)
	}
	return len(images) > 0, nil
}

// CreateContainer creates the environment container: project directory
// bind-mounted at /workspace, a keep-alive command so the container
// stays up for exec sessions, and container port 22 published to the
// configured host port when remote access is enabled.
func (d *Docker) CreateContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	cfg := &container.Config{
		Image:      spec.Image,
		Cmd:        []string{"/bin/sh", "-lc", "tail -f /dev/null"},
		WorkingDir: "/workspace",
		Labels: map[string]string{
			LabelManagedBy: ManagedByValue,
			LabelName:      spec.EnvName,
		},
	}

	hostCfg := &container.HostConfig{
		Binds: []string{spec.ProjectDir + ":/workspace"},
	}

	if spec.SSHHostPort != 0 {
		sshPort := nat.Port("22/tcp")
		cfg.ExposedPorts = nat.PortSet{sshPort: struct{}{}}
		hostCfg.PortBindings = nat.PortMap{
			sshPort: []nat.PortBinding{{
				HostIP:   "0.0.0.0",
				HostPort: strconv.Itoa(spec.SSHHostPort),
			}},
		}
	}

	resp, err := d.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitEngineUnavailable,
			fmt.Sprintf("failed to create container %q", spec.Name),
			err,
		)
	}
	return resp.ID, nil
}

// StartContainer starts a created or stopped container by name.
func (d *Docker) StartContainer(ctx context.Context, name string) error {
	if err := d.cli.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return model.WrapCLIError(
			model.ExitEngineUnavailable,
			fmt.Sprintf("failed to start container %q", name),
			err,
		)
	}
	return nil
}

// StopContainer stops a running container by name. The daemon sends
// SIGTERM and escalates to SIGKILL after its default timeout.
func (d *Docker) StopContainer(ctx context.Context, name string) error {
	if err := d.cli.ContainerStop(ctx, name, container.StopOptions{}); err != nil {
		return model.WrapCLIError(
			model.ExitEngineUnavailable,
			fmt.Sprintf("failed to stop container %q", name),
			err,
		)
	}
	return nil
}

// RemoveContainer deletes a container by name.
func (d *Docker) RemoveContainer(ctx context.Context, name string, force bool) error {
	if err := d.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: force}); err != nil {
		return model.WrapCLIError(
			model.ExitEngineUnavailable,
			fmt.Sprintf("failed to remove container %q", name),
			err,
		)
	}
	return nil
}

// Inspect resolves the current state of a named container. A container
// unknown to the daemon yields StateAbsent rather than an error, so
// callers can branch on the state machine without error inspection.
func (d *Docker) Inspect(ctx context.Context, name string) (model.ContainerHandle, error) {
	resp, err := d.cli.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return model.ContainerHandle{Name: name, State: model.StateAbsent}, nil
		}
		return model.ContainerHandle{}, model.WrapCLIError(
			model.ExitEngineUnavailable,
			fmt.Sprintf("failed to inspect container %q", name),
			err,
		)
	}

	state := model.StateStopped
	status := ""
	if resp.State != nil {
		status = resp.State.Status
		if resp.State.Running {
			state = model.StateRunning
		}
	}

	imageRef := ""
	if resp.Config != nil {
		imageRef = resp.Config.Image
	}

	return model.ContainerHandle{
		ID:     resp.ID,
		Name:   strings.TrimPrefix(resp.Name, "/"),
		Image:  imageRef,
		State:  state,
		Status: status,
	}, nil
}

// List returns handles for all containers, running or not, whose name
// starts with prefix. The daemon filters server-side; the prefix match
// is re-checked here because the engine name filter is a substring
// match, not an anchored one.
func (d *Docker) List(ctx context.Context, prefix string) ([]model.ContainerHandle, error) {
	containers, err := d.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", prefix)),
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitEngineUnavailable,
			"failed to list containers",
			err,
		)
	}

	handles := make([]model.ContainerHandle, 0, len(containers))
	for _, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			// The engine returns names with a leading "/".
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		if !strings.HasPrefix(name, prefix) {
			continue
		}

		state := model.StateStopped
		if c.State == "running" {
			state = model.StateRunning
		}

		handles = append(handles, model.ContainerHandle{
			ID:     c.ID,
			Name:   name,
			Image:  c.Image,
			State:  state,
			Status: c.Status,
		})
	}
	return handles, nil
}

// Exec runs a shell script inside a running container and returns its
// combined stdout/stderr. The script runs under /bin/sh, which every
// supported base image carries.
func (d *Docker) Exec(ctx context.Context, containerName, user, script string) (string, error) {
	created, err := d.cli.ContainerExecCreate(ctx, containerName, container.ExecOptions{
		User:         user,
		Cmd:          []string{"/bin/sh", "-lc", script},
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitEngineUnavailable,
			fmt.Sprintf("failed to create exec in container %q", containerName),
			err,
		)
	}

	attach, err := d.cli.ContainerExecAttach(ctx, created.ID, container.ExecStartOptions{})
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitEngineUnavailable,
			fmt.Sprintf("failed to attach exec in container %q", containerName),
			err,
		)
	}
	defer attach.Close()

	// The non-TTY exec stream multiplexes stdout and stderr; stdcopy
	// demuxes it. Both go into one buffer since callers only need the
	// combined output.
	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, attach.Reader); err != nil {
		return buf.String(), model.WrapCLIError(
			model.ExitEngineUnavailable,
			fmt.Sprintf("reading exec output from container %q", containerName),
			err,
		)
	}

	inspect, err := d.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return buf.String(), model.WrapCLIError(
			model.ExitEngineUnavailable,
			fmt.Sprintf("failed to inspect exec in container %q", containerName),
			err,
		)
	}
	if inspect.ExitCode != 0 {
		return buf.String(), fmt.Errorf(
			"command in container %q exited with status %d: %s",
			containerName, inspect.ExitCode, strings.TrimSpace(buf.String()),
		)
	}

	return buf.String(), nil
}

// interactiveShellCmd prefers a bash login shell and falls back to sh
// for slim images that don't ship bash.
const interactiveShellCmd = "command -v bash >/dev/null 2>&1 && exec bash -l; exec sh -l"

// InteractiveShell attaches a TTY exec session to a running container,
// wiring the caller's stdin/stdout to the remote shell. When stdin is a
// terminal, it is switched to raw mode for the duration of the session
// so control sequences pass through unmangled.
//
// The session ends when the remote shell exits or ctx is cancelled.
// Either way the container keeps running — only the exec session dies.
func (d *Docker) InteractiveShell(ctx context.Context, containerName string, stdin io.Reader, stdout io.Writer) error {
	created, err := d.cli.ContainerExecCreate(ctx, containerName, container.ExecOptions{
		Tty:          true,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          []string{"/bin/sh", "-lc", interactiveShellCmd},
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitEngineUnavailable,
			fmt.Sprintf("failed to create interactive session in container %q", containerName),
			err,
		)
	}

	attach, err := d.cli.ContainerExecAttach(ctx, created.ID, container.ExecStartOptions{Tty: true})
	if err != nil {
		return model.WrapCLIError(
			model.ExitEngineUnavailable,
			fmt.Sprintf("failed to attach to container %q", containerName),
			err,
		)
	}
	defer attach.Close()

	// Put the local terminal into raw mode so the remote TTY handles
	// echo and line editing. Restore on exit, including cancellation.
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		oldState, rawErr := term.MakeRaw(int(f.Fd()))
		if rawErr == nil {
			defer func() { _ = term.Restore(int(f.Fd()), oldState) }()
		}
	}

	// Forward local input to the remote shell. This goroutine ends when
	// stdin closes or the attach connection is torn down.
	go func() {
		_, _ = io.Copy(attach.Conn, stdin)
		_ = attach.CloseWrite()
	}()

	// Stream remote output until the shell exits or the context is
	// cancelled. Cancellation closes the attach connection, which
	// unblocks the copy; the container itself is left untouched.
	done := make(chan error, 1)
	go func() {
		_, copyErr := io.Copy(stdout, attach.Reader)
		done <- copyErr
	}()

	select {
	case <-ctx.Done():
		attach.Close()
		<-done
		return nil
	case copyErr := <-done:
		if copyErr != nil && !errors.Is(copyErr, io.EOF) {
			return fmt.Errorf("interactive session ended abnormally: %w", copyErr)
		}
		return nil
	}
}
