package lifecycle

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petehayes102/devenv/internal/config"
	"github.com/petehayes102/devenv/internal/dockerfile"
	"github.com/petehayes102/devenv/internal/engine"
	"github.com/petehayes102/devenv/internal/model"
	"github.com/petehayes102/devenv/internal/registry"
)

// fakeKeygen writes deterministic key material without shelling out to
// ssh-keygen.
type fakeKeygen struct {
	calls int
}

func (f *fakeKeygen) Generate(ctx context.Context, privateKeyPath, comment string) error {
	f.calls++
	if err := os.WriteFile(privateKeyPath, []byte("PRIVATE KEY\n"), 0o600); err != nil {
		return err
	}
	pub := fmt.Sprintf("ssh-ed25519 AAAAfakekey %s\n", comment)
	return os.WriteFile(privateKeyPath+".pub", []byte(pub), 0o644)
}

// newCoordinator wires a Coordinator to an in-memory engine and a fresh
// registry, capturing user-facing output in buffers.
func newCoordinator(t *testing.T) (*Coordinator, *engine.Fake, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	fake := engine.NewFake()
	reg := registry.Open(filepath.Join(t.TempDir(), "registry.json"))
	out := &bytes.Buffer{}
	errs := &bytes.Buffer{}
	c := New(fake, reg)
	c.Keygen = &fakeKeygen{}
	c.Out = out
	c.Errs = errs
	return c, fake, out, errs
}

// newProject creates a registered project directory with a saved config.
func newProject(t *testing.T, c *Coordinator, cfg *config.Env) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, config.Save(dir, cfg))
	require.NoError(t, c.Registry.Register(cfg.Name, dir))
	return dir
}

// writeDockerfile puts the current generated Dockerfile on disk, as a
// previous start would have.
func writeDockerfile(t *testing.T, dir string, cfg *config.Env) {
	t.Helper()
	path := filepath.Join(dir, dockerfile.FileName)
	require.NoError(t, os.WriteFile(path, []byte(dockerfile.Generate(cfg)), 0o644))
}

func exitCode(t *testing.T, err error) model.ExitCode {
	t.Helper()
	var cerr *model.CLIError
	require.ErrorAs(t, err, &cerr)
	return cerr.Code
}

// freePort reserves an ephemeral port and releases it for the test to use.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// TestStart_AbsentBuildsCreatesAndStarts verifies the full cold-start
// path: Dockerfile written, image built, container created and started.
func TestStart_AbsentBuildsCreatesAndStarts(t *testing.T) {
	c, fake, out, _ := newCoordinator(t)
	cfg := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
	dir := newProject(t, c, cfg)

	env, err := c.Start(context.Background(), "foo", StartOptions{})
	require.NoError(t, err)

	assert.Equal(t, "foo", env.Name)
	assert.Equal(t, dir, env.ProjectDir)
	assert.Equal(t, 1, fake.BuildCalls)
	assert.Equal(t, model.StateRunning, fake.State("devenv-foo"))
	assert.FileExists(t, filepath.Join(dir, dockerfile.FileName))
	assert.Contains(t, out.String(), `Environment "foo" is running.`)
}

// TestStart_RunningIsInformational verifies that starting a running
// environment neither errors nor touches the container.
func TestStart_RunningIsInformational(t *testing.T) {
	c, fake, out, _ := newCoordinator(t)
	cfg := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
	dir := newProject(t, c, cfg)
	writeDockerfile(t, dir, cfg)
	fake.AddImage("devenv-foo:latest")
	fake.AddContainer(engine.ContainerSpec{Name: "devenv-foo", EnvName: "foo", Image: "devenv-foo:latest"}, true)

	_, err := c.Start(context.Background(), "foo", StartOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, fake.BuildCalls)
	assert.Equal(t, 0, fake.StartCalls)
	assert.Contains(t, out.String(), `Environment "foo" is already running.`)
}

// TestStart_StoppedStartsExistingContainer verifies that a stopped
// container is resumed in place, without a rebuild or a recreate.
func TestStart_StoppedStartsExistingContainer(t *testing.T) {
	c, fake, _, _ := newCoordinator(t)
	cfg := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
	dir := newProject(t, c, cfg)
	writeDockerfile(t, dir, cfg)
	fake.AddImage("devenv-foo:latest")
	fake.AddContainer(engine.ContainerSpec{Name: "devenv-foo", EnvName: "foo", Image: "devenv-foo:latest"}, false)

	_, err := c.Start(context.Background(), "foo", StartOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, fake.BuildCalls)
	assert.Equal(t, 1, fake.StartCalls)
	assert.Equal(t, model.StateRunning, fake.State("devenv-foo"))
}

// TestStart_NoBuildWithoutImage verifies the distinct failure when
// building is disabled but no image exists yet.
func TestStart_NoBuildWithoutImage(t *testing.T) {
	c, fake, _, _ := newCoordinator(t)
	cfg := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
	newProject(t, c, cfg)

	_, err := c.Start(context.Background(), "foo", StartOptions{NoBuild: true})
	require.Error(t, err)

	assert.Equal(t, model.ExitBuildFailure, exitCode(t, err))
	assert.Contains(t, err.Error(), "--no-build")
	assert.Equal(t, 0, fake.BuildCalls)
}

// TestStart_DriftWarnsWithoutRebuild verifies that a stale Dockerfile
// produces a warning but is left untouched unless --rebuild is given.
func TestStart_DriftWarnsWithoutRebuild(t *testing.T) {
	c, fake, _, errs := newCoordinator(t)
	cfg := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
	dir := newProject(t, c, cfg)
	stale := "FROM ubuntu:20.04\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, dockerfile.FileName), []byte(stale), 0o644))
	fake.AddImage("devenv-foo:latest")
	fake.AddContainer(engine.ContainerSpec{Name: "devenv-foo", EnvName: "foo", Image: "devenv-foo:latest"}, true)

	_, err := c.Start(context.Background(), "foo", StartOptions{})
	require.NoError(t, err)

	assert.Contains(t, errs.String(), "out of sync")
	assert.Equal(t, 0, fake.BuildCalls)
	got, err := os.ReadFile(filepath.Join(dir, dockerfile.FileName))
	require.NoError(t, err)
	assert.Equal(t, stale, string(got), "stale Dockerfile must not be rewritten")
}

// TestStart_RebuildRegeneratesAndRecreates verifies that --rebuild
// rewrites the Dockerfile, rebuilds the image, and replaces the running
// container with one from the fresh image.
func TestStart_RebuildRegeneratesAndRecreates(t *testing.T) {
	c, fake, out, _ := newCoordinator(t)
	cfg := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
	dir := newProject(t, c, cfg)
	require.NoError(t, os.WriteFile(filepath.Join(dir, dockerfile.FileName), []byte("FROM ubuntu:20.04\n"), 0o644))
	fake.AddImage("devenv-foo:latest")
	fake.AddContainer(engine.ContainerSpec{Name: "devenv-foo", EnvName: "foo", Image: "devenv-foo:latest"}, true)

	_, err := c.Start(context.Background(), "foo", StartOptions{Rebuild: true})
	require.NoError(t, err)

	assert.Equal(t, 1, fake.BuildCalls)
	assert.Equal(t, 1, fake.StopCalls)
	assert.Equal(t, model.StateRunning, fake.State("devenv-foo"))
	assert.Contains(t, out.String(), `Environment "foo" is running.`)
	got, err := os.ReadFile(filepath.Join(dir, dockerfile.FileName))
	require.NoError(t, err)
	assert.Equal(t, dockerfile.Generate(cfg), string(got))
}

// TestStart_RemoteAccessProvisioning verifies the post-start sequence for
// remote-enabled environments: sshd start, keypair on the host, public
// key installed in the container, and .gitignore updated.
func TestStart_RemoteAccessProvisioning(t *testing.T) {
	c, fake, out, _ := newCoordinator(t)
	cfg := &config.Env{
		Name:  "foo",
		Image: "debian:bookworm-slim",
		ZedRemote: &config.ZedRemote{
			Enabled: true,
			SSHPort: freePort(t),
		},
	}
	dir := newProject(t, c, cfg)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("target\n"), 0o644))

	_, err := c.Start(context.Background(), "foo", StartOptions{})
	require.NoError(t, err)

	require.Len(t, fake.ExecCalls, 3)
	assert.Contains(t, fake.ExecCalls[0].Script, "sshd", "first exec starts the ssh daemon")
	assert.Contains(t, fake.ExecCalls[1].Script, "cat", "second exec reads authorized_keys")
	assert.Contains(t, fake.ExecCalls[2].Script, ">>", "third exec appends the public key")

	assert.FileExists(t, filepath.Join(dir, ".devenv", "zed_ed25519"))
	assert.FileExists(t, filepath.Join(dir, ".devenv", "zed_ed25519.pub"))
	gitignore, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(gitignore), "/.devenv")
	assert.Contains(t, out.String(), "Remote access ready")
}

// TestStart_PortConflict verifies the pre-flight check before creating a
// container that publishes the SSH port.
func TestStart_PortConflict(t *testing.T) {
	c, _, _, _ := newCoordinator(t)

	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer l.Close()
	taken := l.Addr().(*net.TCPAddr).Port

	cfg := &config.Env{
		Name:  "foo",
		Image: "debian:bookworm-slim",
		ZedRemote: &config.ZedRemote{
			Enabled: true,
			SSHPort: taken,
		},
	}
	newProject(t, c, cfg)

	_, err = c.Start(context.Background(), "foo", StartOptions{})
	require.Error(t, err)
	assert.Equal(t, model.ExitPortConflict, exitCode(t, err))
}

// TestStop covers the running, stopped, and absent cases: only a running
// container transitions, and nothing is ever an error.
func TestStop(t *testing.T) {
	t.Run("running", func(t *testing.T) {
		c, fake, out, _ := newCoordinator(t)
		cfg := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
		newProject(t, c, cfg)
		fake.AddContainer(engine.ContainerSpec{Name: "devenv-foo", EnvName: "foo", Image: "devenv-foo:latest"}, true)

		require.NoError(t, c.Stop(context.Background(), "foo"))
		assert.Equal(t, model.StateStopped, fake.State("devenv-foo"))
		assert.Contains(t, out.String(), `Stopped environment "foo".`)
	})

	t.Run("stopped", func(t *testing.T) {
		c, fake, out, _ := newCoordinator(t)
		cfg := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
		newProject(t, c, cfg)
		fake.AddContainer(engine.ContainerSpec{Name: "devenv-foo", EnvName: "foo", Image: "devenv-foo:latest"}, false)

		require.NoError(t, c.Stop(context.Background(), "foo"))
		assert.Equal(t, 0, fake.StopCalls)
		assert.Contains(t, out.String(), `Environment "foo" is not running.`)
	})

	t.Run("absent", func(t *testing.T) {
		c, fake, out, _ := newCoordinator(t)
		cfg := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
		newProject(t, c, cfg)

		require.NoError(t, c.Stop(context.Background(), "foo"))
		assert.Equal(t, 0, fake.StopCalls)
		assert.Contains(t, out.String(), `Environment "foo" is not running.`)
	})
}

// TestRestart_RunningCycles verifies stop-then-start for a running
// environment.
func TestRestart_RunningCycles(t *testing.T) {
	c, fake, out, _ := newCoordinator(t)
	cfg := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
	dir := newProject(t, c, cfg)
	writeDockerfile(t, dir, cfg)
	fake.AddImage("devenv-foo:latest")
	fake.AddContainer(engine.ContainerSpec{Name: "devenv-foo", EnvName: "foo", Image: "devenv-foo:latest"}, true)

	_, err := c.Restart(context.Background(), "foo", StartOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, fake.StopCalls)
	assert.Equal(t, 1, fake.StartCalls)
	assert.Equal(t, model.StateRunning, fake.State("devenv-foo"))
	assert.Contains(t, out.String(), `Environment "foo" is running.`)
}

// TestRestart_AbsentStartsFresh verifies that restarting a never-created
// environment falls through to a normal start with a notice.
func TestRestart_AbsentStartsFresh(t *testing.T) {
	c, fake, out, _ := newCoordinator(t)
	cfg := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
	newProject(t, c, cfg)

	_, err := c.Restart(context.Background(), "foo", StartOptions{})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "starting fresh")
	assert.Equal(t, model.StateRunning, fake.State("devenv-foo"))
}

// TestBuild_DriftWarnsAndKeepsDockerfile verifies that building with a
// hand-edited, out-of-sync Dockerfile warns and builds it as-is rather
// than silently overwriting it.
func TestBuild_DriftWarnsAndKeepsDockerfile(t *testing.T) {
	c, fake, out, errs := newCoordinator(t)
	cfg := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
	dir := newProject(t, c, cfg)
	stale := "# operator-tuned definition\nFROM alpine:3.20\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, dockerfile.FileName), []byte(stale), 0o644))
	fake.AddImage("devenv-foo:latest")

	require.NoError(t, c.Build(context.Background(), "foo", BuildOptions{}))

	assert.Equal(t, 1, fake.BuildCalls)
	assert.Contains(t, errs.String(), "out of sync")
	assert.Contains(t, out.String(), `Built image "devenv-foo:latest".`)
	got, err := os.ReadFile(filepath.Join(dir, dockerfile.FileName))
	require.NoError(t, err)
	assert.Equal(t, stale, string(got), "edited Dockerfile must survive a plain build")
}

// TestBuild_RebuildRegeneratesDockerfile verifies that --rebuild is the
// explicit request that rewrites a stale Dockerfile before building.
func TestBuild_RebuildRegeneratesDockerfile(t *testing.T) {
	c, fake, out, _ := newCoordinator(t)
	cfg := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
	dir := newProject(t, c, cfg)
	require.NoError(t, os.WriteFile(filepath.Join(dir, dockerfile.FileName), []byte("FROM ubuntu:20.04\n"), 0o644))
	fake.AddImage("devenv-foo:latest")

	require.NoError(t, c.Build(context.Background(), "foo", BuildOptions{Rebuild: true}))

	assert.Equal(t, 1, fake.BuildCalls)
	assert.Contains(t, out.String(), `Built image "devenv-foo:latest".`)
	got, err := os.ReadFile(filepath.Join(dir, dockerfile.FileName))
	require.NoError(t, err)
	assert.Equal(t, dockerfile.Generate(cfg), string(got))
}

// TestBuild_MissingDockerfileIsGenerated verifies that a first build
// writes the Dockerfile without needing --rebuild.
func TestBuild_MissingDockerfileIsGenerated(t *testing.T) {
	c, fake, _, errs := newCoordinator(t)
	cfg := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
	dir := newProject(t, c, cfg)

	require.NoError(t, c.Build(context.Background(), "foo", BuildOptions{}))

	assert.Equal(t, 1, fake.BuildCalls)
	assert.NotContains(t, errs.String(), "out of sync")
	got, err := os.ReadFile(filepath.Join(dir, dockerfile.FileName))
	require.NoError(t, err)
	assert.Equal(t, dockerfile.Generate(cfg), string(got))
}

// TestBuild_FailureSurfacesOutput verifies that buffered build output is
// written to stderr when a non-verbose build fails.
func TestBuild_FailureSurfacesOutput(t *testing.T) {
	c, fake, _, errs := newCoordinator(t)
	cfg := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
	newProject(t, c, cfg)
	fake.BuildOutput = "Step 1/4 : FROM debian:bookworm-slim\napt-get: package not found\n"
	fake.BuildErr = model.NewCLIError(model.ExitBuildFailure, "image build failed")

	err := c.Build(context.Background(), "foo", BuildOptions{})
	require.Error(t, err)

	assert.Equal(t, model.ExitBuildFailure, exitCode(t, err))
	assert.Contains(t, errs.String(), "package not found")
}

// TestRemove_RunningContainerAndRegistryEntry verifies the full removal:
// stop, delete container, drop the registry entry.
func TestRemove_RunningContainerAndRegistryEntry(t *testing.T) {
	c, fake, out, _ := newCoordinator(t)
	cfg := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
	newProject(t, c, cfg)
	fake.AddContainer(engine.ContainerSpec{Name: "devenv-foo", EnvName: "foo", Image: "devenv-foo:latest"}, true)

	require.NoError(t, c.Remove(context.Background(), "foo"))

	assert.Equal(t, model.StateAbsent, fake.State("devenv-foo"))
	assert.Contains(t, out.String(), `Removed container "devenv-foo".`)
	assert.Contains(t, out.String(), `Unregistered environment "foo".`)

	_, err := c.Registry.Lookup("foo")
	assert.Equal(t, model.ExitEnvNotFound, exitCode(t, err))
}

// TestRemove_EmptyNameUsesCwd verifies that the name is taken from the
// current directory's devenv.toml when omitted, without needing a
// registry entry.
func TestRemove_EmptyNameUsesCwd(t *testing.T) {
	c, fake, out, _ := newCoordinator(t)
	dir := t.TempDir()
	cfg := &config.Env{Name: "cwd-env", Image: "debian:bookworm-slim"}
	require.NoError(t, config.Save(dir, cfg))
	fake.AddContainer(engine.ContainerSpec{Name: "devenv-cwd-env", EnvName: "cwd-env", Image: "devenv-cwd-env:latest"}, false)
	t.Chdir(dir)

	require.NoError(t, c.Remove(context.Background(), ""))

	assert.Equal(t, model.StateAbsent, fake.State("devenv-cwd-env"))
	assert.Contains(t, out.String(), `Removed container "devenv-cwd-env".`)
}

// TestRemove_EmptyNameWithoutConfig verifies that removal refuses to
// guess a target when no name is given and no devenv.toml is present.
func TestRemove_EmptyNameWithoutConfig(t *testing.T) {
	c, _, _, _ := newCoordinator(t)
	t.Chdir(t.TempDir())

	err := c.Remove(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, model.ExitConfigError, exitCode(t, err))
}

// TestRemove_AbsentEverywhere verifies that removing an environment with
// no container and no registry entry reports both and still succeeds.
func TestRemove_AbsentEverywhere(t *testing.T) {
	c, _, out, _ := newCoordinator(t)

	require.NoError(t, c.Remove(context.Background(), "ghost"))

	assert.Contains(t, out.String(), `No container named "devenv-ghost" found.`)
	assert.Contains(t, out.String(), `Environment "ghost" not found in registry.`)
}

// TestAttach verifies that attaching requires a running container.
func TestAttach(t *testing.T) {
	t.Run("running", func(t *testing.T) {
		c, fake, _, _ := newCoordinator(t)
		cfg := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
		newProject(t, c, cfg)
		fake.AddContainer(engine.ContainerSpec{Name: "devenv-foo", EnvName: "foo", Image: "devenv-foo:latest"}, true)

		var stdout bytes.Buffer
		err := c.Attach(context.Background(), "foo", strings.NewReader(""), &stdout)
		require.NoError(t, err)
		assert.Equal(t, 1, fake.ShellSessions)
	})

	t.Run("stopped", func(t *testing.T) {
		c, fake, _, _ := newCoordinator(t)
		cfg := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
		newProject(t, c, cfg)
		fake.AddContainer(engine.ContainerSpec{Name: "devenv-foo", EnvName: "foo", Image: "devenv-foo:latest"}, false)

		err := c.Attach(context.Background(), "foo", strings.NewReader(""), &bytes.Buffer{})
		require.Error(t, err)
		assert.Equal(t, model.ExitContainerNotFound, exitCode(t, err))
		assert.Equal(t, 0, fake.ShellSessions)
	})
}

// TestResolve covers name resolution: registry lookup, current-directory
// fallback, and the two not-found failures.
func TestResolve(t *testing.T) {
	t.Run("registered name", func(t *testing.T) {
		c, _, _, _ := newCoordinator(t)
		cfg := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
		dir := newProject(t, c, cfg)

		env, err := c.Resolve("foo")
		require.NoError(t, err)
		assert.Equal(t, "foo", env.Name)
		assert.Equal(t, dir, env.ProjectDir)
	})

	t.Run("empty name uses current directory", func(t *testing.T) {
		c, _, _, _ := newCoordinator(t)
		dir := t.TempDir()
		cfg := &config.Env{Name: "cwd-env", Image: "debian:bookworm-slim"}
		require.NoError(t, config.Save(dir, cfg))
		t.Chdir(dir)

		env, err := c.Resolve("")
		require.NoError(t, err)
		assert.Equal(t, "cwd-env", env.Name)
	})

	t.Run("empty name without config", func(t *testing.T) {
		c, _, _, _ := newCoordinator(t)
		t.Chdir(t.TempDir())

		_, err := c.Resolve("")
		require.Error(t, err)
		assert.Equal(t, model.ExitConfigError, exitCode(t, err))
	})

	t.Run("unknown name", func(t *testing.T) {
		c, _, _, _ := newCoordinator(t)

		_, err := c.Resolve("nope")
		require.Error(t, err)
		assert.Equal(t, model.ExitEnvNotFound, exitCode(t, err))
	})
}

// TestInit_FreshProject verifies first-time setup: base image detection,
// config and Dockerfile creation, registration, and an initial build.
func TestInit_FreshProject(t *testing.T) {
	c, fake, out, _ := newCoordinator(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte("[package]\n"), 0o644))

	env, err := c.Init(context.Background(), dir, "foo")
	require.NoError(t, err)

	assert.Equal(t, "foo", env.Name)
	assert.Equal(t, "rust:latest", env.Config.Image)
	assert.FileExists(t, filepath.Join(dir, config.FileName))
	assert.FileExists(t, filepath.Join(dir, dockerfile.FileName))
	assert.Equal(t, 1, fake.BuildCalls)
	assert.Contains(t, out.String(), `Environment "foo" is ready.`)

	path, err := c.Registry.Lookup("foo")
	require.NoError(t, err)
	assert.Equal(t, dir, path)
}

// TestInit_ExistingConfigWins verifies that a second init reuses the
// existing devenv.toml, ignoring the name argument.
func TestInit_ExistingConfigWins(t *testing.T) {
	c, fake, out, _ := newCoordinator(t)
	dir := t.TempDir()
	cfg := &config.Env{Name: "original", Image: "node:20"}
	require.NoError(t, config.Save(dir, cfg))
	fake.AddImage("devenv-original:latest")

	env, err := c.Init(context.Background(), dir, "renamed")
	require.NoError(t, err)

	assert.Equal(t, "original", env.Name)
	assert.Equal(t, 0, fake.BuildCalls, "existing image must not be rebuilt")
	assert.Contains(t, out.String(), "existing")
}

// TestInit_DefaultNameFromDirectory verifies that the environment name
// defaults to the project directory's base name.
func TestInit_DefaultNameFromDirectory(t *testing.T) {
	c, _, _, _ := newCoordinator(t)
	dir := filepath.Join(t.TempDir(), "myproj")
	require.NoError(t, os.Mkdir(dir, 0o755))

	env, err := c.Init(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, "myproj", env.Name)
}

// TestList returns only devenv-managed containers.
func TestList(t *testing.T) {
	c, fake, _, _ := newCoordinator(t)
	fake.AddContainer(engine.ContainerSpec{Name: "devenv-alpha", EnvName: "alpha", Image: "devenv-alpha:latest"}, true)
	fake.AddContainer(engine.ContainerSpec{Name: "devenv-beta", EnvName: "beta", Image: "devenv-beta:latest"}, false)
	fake.AddContainer(engine.ContainerSpec{Name: "unrelated", EnvName: "", Image: "nginx"}, true)

	handles, err := c.List(context.Background())
	require.NoError(t, err)

	require.Len(t, handles, 2)
	assert.Equal(t, "devenv-alpha", handles[0].Name)
	assert.Equal(t, model.StateRunning, handles[0].State)
	assert.Equal(t, "devenv-beta", handles[1].Name)
	assert.Equal(t, model.StateStopped, handles[1].State)
}

// TestEngineUnavailable verifies that lifecycle operations abort with the
// engine-unavailable code when the daemon cannot be reached.
func TestEngineUnavailable(t *testing.T) {
	c, fake, _, _ := newCoordinator(t)
	cfg := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
	newProject(t, c, cfg)
	fake.PingErr = model.NewCLIError(model.ExitEngineUnavailable, "cannot connect to the container engine")

	_, err := c.Start(context.Background(), "foo", StartOptions{})
	require.Error(t, err)
	assert.Equal(t, model.ExitEngineUnavailable, exitCode(t, err))
}
