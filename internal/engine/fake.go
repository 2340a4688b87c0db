package engine

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/petehayes102/devenv/internal/model"
)

// fakeContainer is the Fake's record of one created container.
type fakeContainer struct {
	id      int
	spec    ContainerSpec
	running bool
}

// ExecCall records one Exec invocation against the Fake.
type ExecCall struct {
	Container string
	User      string
	Script    string
}

// Fake is an in-memory Engine for deterministic tests. It models the
// container state machine (absent → stopped ⇄ running) and image
// presence without touching a real daemon.
//
// All mutating behavior can be overridden per test via the error fields
// and the ExecFunc hook. The zero value is not usable; construct with
// NewFake.
type Fake struct {
	mu sync.Mutex

	images     map[string]bool
	containers map[string]*fakeContainer
	nextID     int

	// BuildCalls counts BuildImage invocations.
	BuildCalls int

	// BuildOutput is written to BuildOptions.Output on every build,
	// emulating the daemon's streamed output.
	BuildOutput string

	// BuildErr, when set, fails BuildImage after emitting BuildOutput.
	BuildErr error

	// PingErr, when set, is returned by Ping.
	PingErr error

	// StartCalls and StopCalls count state transitions requested.
	StartCalls int
	StopCalls  int

	// ExecCalls records every Exec invocation in order.
	ExecCalls []ExecCall

	// ExecFunc, when set, handles Exec calls. The default returns empty
	// output and success.
	ExecFunc func(container, user, script string) (string, error)

	// ShellSessions counts InteractiveShell invocations.
	ShellSessions int
}

// Fake implements Engine.
var _ Engine = (*Fake)(nil)

// NewFake returns an empty in-memory engine.
func NewFake() *Fake {
	return &Fake{
		images:     make(map[string]bool),
		containers: make(map[string]*fakeContainer),
	}
}

// AddImage marks an image tag as present, as if previously built.
func (f *Fake) AddImage(tag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[tag] = true
}

// AddContainer seeds a container in the given state. The spec's Name
// field keys the container.
func (f *Fake) AddContainer(spec ContainerSpec, running bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.containers[spec.Name] = &fakeContainer{id: f.nextID, spec: spec, running: running}
}

// Ping returns PingErr.
func (f *Fake) Ping(ctx context.Context) error {
	return f.PingErr
}

// Close is a no-op.
func (f *Fake) Close() error { return nil }

// BuildImage records the build, emits BuildOutput, and registers the
// tag on success.
func (f *Fake) BuildImage(ctx context.Context, contextDir string, opts BuildOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.BuildCalls++
	if opts.Output != nil && f.BuildOutput != "" {
		_, _ = io.WriteString(opts.Output, f.BuildOutput)
	}
	if f.BuildErr != nil {
		return f.BuildErr
	}
	f.images[opts.Tag] = true
	return nil
}

// ImageExists reports seeded or built image tags.
func (f *Fake) ImageExists(ctx context.Context, tag string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.images[tag], nil
}

// CreateContainer creates a container in the stopped state. Creating a
// name that already exists is an error, mirroring the daemon.
func (f *Fake) CreateContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.containers[spec.Name]; ok {
		return "", fmt.Errorf("container name %q already in use", spec.Name)
	}
	f.nextID++
	f.containers[spec.Name] = &fakeContainer{id: f.nextID, spec: spec}
	return f.idString(f.nextID), nil
}

// StartContainer transitions a container to running.
func (f *Fake) StartContainer(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.containers[name]
	if !ok {
		return fmt.Errorf("no such container: %s", name)
	}
	f.StartCalls++
	c.running = true
	return nil
}

// StopContainer transitions a container to stopped.
func (f *Fake) StopContainer(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.containers[name]
	if !ok {
		return fmt.Errorf("no such container: %s", name)
	}
	f.StopCalls++
	c.running = false
	return nil
}

// RemoveContainer deletes a container. Removing a running container
// without force is an error, mirroring the daemon.
func (f *Fake) RemoveContainer(ctx context.Context, name string, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.containers[name]
	if !ok {
		return fmt.Errorf("no such container: %s", name)
	}
	if c.running && !force {
		return fmt.Errorf("cannot remove running container %s", name)
	}
	delete(f.containers, name)
	return nil
}

// Inspect returns the handle for name, or an absent handle.
func (f *Fake) Inspect(ctx context.Context, name string) (model.ContainerHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.containers[name]
	if !ok {
		return model.ContainerHandle{Name: name, State: model.StateAbsent}, nil
	}
	return f.handleLocked(c), nil
}

// List returns handles for containers whose name carries prefix,
// sorted by name for deterministic assertions.
func (f *Fake) List(ctx context.Context, prefix string) ([]model.ContainerHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	handles := make([]model.ContainerHandle, 0, len(f.containers))
	for name, c := range f.containers {
		if strings.HasPrefix(name, prefix) {
			handles = append(handles, f.handleLocked(c))
		}
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i].Name < handles[j].Name })
	return handles, nil
}

// Exec records the call and delegates to ExecFunc. Exec against a
// container that is not running fails, mirroring the daemon.
func (f *Fake) Exec(ctx context.Context, container, user, script string) (string, error) {
	f.mu.Lock()
	c, ok := f.containers[container]
	running := ok && c.running
	f.ExecCalls = append(f.ExecCalls, ExecCall{Container: container, User: user, Script: script})
	hook := f.ExecFunc
	f.mu.Unlock()

	if !running {
		return "", fmt.Errorf("container %s is not running", container)
	}
	if hook != nil {
		return hook(container, user, script)
	}
	return "", nil
}

// InteractiveShell counts the session and succeeds if the container is
// running.
func (f *Fake) InteractiveShell(ctx context.Context, container string, stdin io.Reader, stdout io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.containers[container]
	if !ok || !c.running {
		return fmt.Errorf("container %s is not running", container)
	}
	f.ShellSessions++
	return nil
}

// State exposes a container's current state to tests.
func (f *Fake) State(name string) model.ContainerState {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.containers[name]
	if !ok {
		return model.StateAbsent
	}
	if c.running {
		return model.StateRunning
	}
	return model.StateStopped
}

// handleLocked builds a ContainerHandle; the caller holds f.mu.
func (f *Fake) handleLocked(c *fakeContainer) model.ContainerHandle {
	state := model.StateStopped
	status := "Exited (0)"
	if c.running {
		state = model.StateRunning
		status = "Up"
	}
	return model.ContainerHandle{
		ID:     f.idString(c.id),
		Name:   c.spec.Name,
		Image:  c.spec.Image,
		State:  state,
		Status: status,
	}
}

// idString renders a stable pseudo container ID.
func (f *Fake) idString(id int) string {
	return fmt.Sprintf("fake%08d", id)
}
