// Package lifecycle implements the devenv state machine: resolving an
// environment to its project directory, keeping the generated Dockerfile
// in sync with devenv.toml, ensuring the image exists, and driving the
// container through absent/stopped/running transitions.
//
// Every operation is idempotent: asking for a state that already holds
// prints an informational message and succeeds.
package lifecycle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/petehayes102/devenv/internal/config"
	"github.com/petehayes102/devenv/internal/detect"
	"github.com/petehayes102/devenv/internal/dockerfile"
	"github.com/petehayes102/devenv/internal/engine"
	"github.com/petehayes102/devenv/internal/model"
	"github.com/petehayes102/devenv/internal/port"
	"github.com/petehayes102/devenv/internal/registry"
	"github.com/petehayes102/devenv/internal/sshkey"
)

// Environment is a resolved environment: its registry name, the project
// directory holding devenv.toml, and the parsed configuration.
type Environment struct {
	Name       string
	ProjectDir string
	Config     *config.Env
}

// ContainerName returns the engine-side container name for the environment.
func (e *Environment) ContainerName() string {
	return model.ContainerName(e.Name)
}

// ImageTag returns the image tag built for the environment.
func (e *Environment) ImageTag() string {
	return model.ImageTag(e.Name)
}

// StartOptions control the Start operation.
type StartOptions struct {
	// Rebuild regenerates the Dockerfile, rebuilds the image without the
	// layer cache, and recreates the container from the fresh image.
	Rebuild bool

	// NoBuild skips image building entirely. Starting fails if no image
	// exists yet.
	NoBuild bool
}

// BuildOptions control the Build operation.
type BuildOptions struct {
	// Rebuild regenerates an out-of-sync Dockerfile before building and
	// ignores the layer cache. Without it, a drifted Dockerfile is left
	// untouched and only warned about.
	Rebuild bool

	// Pull forces re-fetching newer base layers.
	Pull bool

	// NoCache disables the layer cache.
	NoCache bool
}

// Coordinator orchestrates environment lifecycle operations against a
// container engine, the environment registry, and the SSH credential
// tooling. The zero value is not usable; construct with New.
type Coordinator struct {
	Engine   engine.Engine
	Registry *registry.Store
	Keygen   sshkey.Keygen
	Ports    *port.Scanner

	// Out receives user-facing progress messages, Errs warnings and
	// surfaced build output.
	Out  io.Writer
	Errs io.Writer

	// Verbose streams build output live instead of buffering it until
	// failure, and enables diagnostic messages.
	Verbose bool
}

// New creates a Coordinator with production defaults: ssh-keygen for key
// material, a live port scanner, and stdout/stderr for output.
func New(eng engine.Engine, reg *registry.Store) *Coordinator {
	return &Coordinator{
		Engine:   eng,
		Registry: reg,
		Keygen:   sshkey.ExecKeygen{},
		Ports:    port.NewScanner(),
		Out:      os.Stdout,
		Errs:     os.Stderr,
	}
}

func (c *Coordinator) vlog(format string, args ...any) {
	if c.Verbose {
		fmt.Fprintf(c.Errs, format+"\n", args...)
	}
}

// Resolve maps a name to its environment. An empty name means the current
// directory, which must contain devenv.toml. A non-empty name is looked up
// in the registry and the configuration loaded from the registered path.
func (c *Coordinator) Resolve(name string) (*Environment, error) {
	if name == "" {
		dir, err := os.Getwd()
		if err != nil {
			return nil, model.WrapCLIError(model.ExitGeneralError, "failed to determine current directory", err)
		}
		if !config.Exists(dir) {
			return nil, model.NewCLIError(model.ExitConfigError,
				fmt.Sprintf("no %s in the current directory; pass an environment name or run 'devenv init'", config.FileName))
		}
		cfg, err := config.Load(dir)
		if err != nil {
			return nil, err
		}
		return &Environment{Name: cfg.Name, ProjectDir: dir, Config: cfg}, nil
	}

	dir, err := c.Registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if cfg.Name != name {
		// Registry key wins over config: containers and images are keyed
		// by the registered name.
		c.vlog("registry name %q differs from config name %q; using %q", name, cfg.Name, name)
	}
	return &Environment{Name: name, ProjectDir: dir, Config: cfg}, nil
}

// ResolveName maps an optional name to an environment name without
// consulting the registry. An empty name reads the current directory's
// devenv.toml, so removal works for environments whose registry entry is
// already gone.
func (c *Coordinator) ResolveName(name string) (string, error) {
	if name != "" {
		if err := model.ValidateName(name); err != nil {
			return "", err
		}
		return name, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", model.WrapCLIError(model.ExitGeneralError, "failed to determine current directory", err)
	}
	if !config.Exists(dir) {
		return "", model.NewCLIError(model.ExitConfigError,
			fmt.Sprintf("no %s in the current directory; pass an environment name", config.FileName))
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return "", err
	}
	return cfg.Name, nil
}

// syncDockerfile regenerates the Dockerfile from the environment config.
// A missing Dockerfile is always written. An out-of-sync one is rewritten
// only when rewrite is set; otherwise a warning is printed and the stale
// file is left untouched. Reports whether the file on disk changed.
func (c *Coordinator) syncDockerfile(env *Environment, rewrite bool) (bool, error) {
	want := dockerfile.Generate(env.Config)
	path := filepath.Join(env.ProjectDir, dockerfile.FileName)

	existing, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if werr := os.WriteFile(path, []byte(want), 0o644); werr != nil {
			return false, model.WrapCLIError(model.ExitGeneralError, "failed to write Dockerfile", werr)
		}
		c.vlog("wrote %s", path)
		return true, nil
	}
	if err != nil {
		return false, model.WrapCLIError(model.ExitGeneralError, "failed to read Dockerfile", err)
	}

	if string(existing) == want {
		return false, nil
	}
	if !rewrite {
		fmt.Fprintf(c.Errs, "Warning: Dockerfile is out of sync with %s. Run 'devenv start %s --rebuild' to regenerate.\n",
			config.FileName, env.Name)
		return false, nil
	}
	if err := os.WriteFile(path, []byte(want), 0o644); err != nil {
		return false, model.WrapCLIError(model.ExitGeneralError, "failed to write Dockerfile", err)
	}
	c.vlog("regenerated %s", path)
	return true, nil
}

// buildImage builds the environment image from its project directory.
// In verbose mode build output streams live; otherwise it is buffered and
// surfaced only when the build fails.
func (c *Coordinator) buildImage(ctx context.Context, env *Environment, pull, noCache bool) error {
	var buf bytes.Buffer
	out := io.Writer(&buf)
	if c.Verbose {
		out = c.Out
	}

	fmt.Fprintf(c.Out, "Building image %q...\n", env.ImageTag())
	err := c.Engine.BuildImage(ctx, env.ProjectDir, engine.BuildOptions{
		Tag:     env.ImageTag(),
		Pull:    pull,
		NoCache: noCache,
		Output:  out,
	})
	if err != nil && !c.Verbose && buf.Len() > 0 {
		io.Copy(c.Errs, &buf)
	}
	return err
}

// ensureImage makes sure the environment image exists, building it when
// needed. With noBuild set, a missing image is an error instead.
// forceBuild rebuilds even when an image is already present.
func (c *Coordinator) ensureImage(ctx context.Context, env *Environment, forceBuild, noBuild bool) error {
	exists, err := c.Engine.ImageExists(ctx, env.ImageTag())
	if err != nil {
		return err
	}
	if noBuild {
		if !exists {
			return model.NewCLIError(model.ExitBuildFailure,
				fmt.Sprintf("image %q not found and --no-build was given; run 'devenv build %s' first", env.ImageTag(), env.Name))
		}
		return nil
	}
	if exists && !forceBuild {
		return nil
	}
	return c.buildImage(ctx, env, false, forceBuild)
}

// Start brings the environment container to the running state, creating
// the image and container as needed. Starting an already-running
// environment is informational, not an error.
func (c *Coordinator) Start(ctx context.Context, name string, opts StartOptions) (*Environment, error) {
	env, err := c.Resolve(name)
	if err != nil {
		return nil, err
	}
	if err := c.Engine.Ping(ctx); err != nil {
		return nil, err
	}

	changed, err := c.syncDockerfile(env, opts.Rebuild)
	if err != nil {
		return nil, err
	}
	if err := c.ensureImage(ctx, env, opts.Rebuild || changed, opts.NoBuild); err != nil {
		return nil, err
	}

	handle, err := c.Engine.Inspect(ctx, env.ContainerName())
	if err != nil {
		return nil, err
	}

	// A rebuilt image only takes effect for a fresh container.
	if opts.Rebuild && handle.State != model.StateAbsent {
		if handle.State == model.StateRunning {
			if err := c.Engine.StopContainer(ctx, env.ContainerName()); err != nil {
				return nil, err
			}
		}
		if err := c.Engine.RemoveContainer(ctx, env.ContainerName(), false); err != nil {
			return nil, err
		}
		c.vlog("recreating container %s from rebuilt image", env.ContainerName())
		handle.State = model.StateAbsent
	}

	switch handle.State {
	case model.StateRunning:
		fmt.Fprintf(c.Out, "Environment %q is already running.\n", env.Name)
		return env, nil
	case model.StateStopped:
		if err := c.Engine.StartContainer(ctx, env.ContainerName()); err != nil {
			return nil, err
		}
	case model.StateAbsent:
		if env.Config.RemoteEnabled() {
			hostPort := env.Config.SSHHostPort()
			if !c.Ports.IsAvailable(hostPort) {
				return nil, model.NewCLIError(model.ExitPortConflict,
					fmt.Sprintf("host port %d is already in use; change ssh_port in %s", hostPort, config.FileName))
			}
		}
		if _, err := c.Engine.CreateContainer(ctx, engine.ContainerSpec{
			Name:        env.ContainerName(),
			EnvName:     env.Name,
			Image:       env.ImageTag(),
			ProjectDir:  env.ProjectDir,
			SSHHostPort: env.Config.SSHHostPort(),
		}); err != nil {
			return nil, err
		}
		if err := c.Engine.StartContainer(ctx, env.ContainerName()); err != nil {
			return nil, err
		}
	}

	if env.Config.RemoteEnabled() {
		if err := c.provisionRemoteAccess(ctx, env); err != nil {
			return nil, err
		}
	}

	fmt.Fprintf(c.Out, "Environment %q is running.\n", env.Name)
	return env, nil
}

// provisionRemoteAccess prepares SSH access for a running container:
// start sshd, make sure the keypair exists on the host, and install the
// public key inside the container.
func (c *Coordinator) provisionRemoteAccess(ctx context.Context, env *Environment) error {
	if err := sshkey.StartSSHD(ctx, c.Engine, env.ContainerName()); err != nil {
		// sshd may already be running or managed by the image itself.
		c.vlog("sshd startup inside %s reported: %v", env.ContainerName(), err)
	}
	if err := sshkey.EnsureGitignore(env.ProjectDir); err != nil {
		return err
	}
	kp, err := sshkey.EnsureKeyPair(ctx, c.Keygen, env.ProjectDir, env.Name)
	if err != nil {
		return err
	}
	user := env.Config.SSHUser()
	if err := sshkey.InjectAuthorizedKey(ctx, c.Engine, env.ContainerName(), user, kp.PublicKey); err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Remote access ready: ssh -i %s -p %d %s@localhost\n",
		kp.PrivateKeyPath, env.Config.SSHHostPort(), user)
	return nil
}

// Stop gracefully stops the environment container. A container that is
// not running is informational, not an error.
func (c *Coordinator) Stop(ctx context.Context, name string) error {
	env, err := c.Resolve(name)
	if err != nil {
		return err
	}
	if err := c.Engine.Ping(ctx); err != nil {
		return err
	}

	handle, err := c.Engine.Inspect(ctx, env.ContainerName())
	if err != nil {
		return err
	}
	if handle.State != model.StateRunning {
		fmt.Fprintf(c.Out, "Environment %q is not running.\n", env.Name)
		return nil
	}
	if err := c.Engine.StopContainer(ctx, env.ContainerName()); err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Stopped environment %q.\n", env.Name)
	return nil
}

// Restart stops the environment container if it is running, then starts
// it again. A stopped or absent environment is simply started.
func (c *Coordinator) Restart(ctx context.Context, name string, opts StartOptions) (*Environment, error) {
	env, err := c.Resolve(name)
	if err != nil {
		return nil, err
	}
	if err := c.Engine.Ping(ctx); err != nil {
		return nil, err
	}

	handle, err := c.Engine.Inspect(ctx, env.ContainerName())
	if err != nil {
		return nil, err
	}
	switch handle.State {
	case model.StateRunning:
		if err := c.Engine.StopContainer(ctx, env.ContainerName()); err != nil {
			return nil, err
		}
	case model.StateStopped:
		fmt.Fprintf(c.Out, "Environment %q is not running; starting it now.\n", env.Name)
	case model.StateAbsent:
		fmt.Fprintf(c.Out, "Environment %q has no container yet; starting fresh.\n", env.Name)
	}
	return c.Start(ctx, name, opts)
}

// Build builds the environment image, regardless of whether one already
// exists. A missing Dockerfile is generated first; an out-of-sync one is
// rewritten only when Rebuild is requested, and otherwise warned about
// and built as-is.
func (c *Coordinator) Build(ctx context.Context, name string, opts BuildOptions) error {
	env, err := c.Resolve(name)
	if err != nil {
		return err
	}
	if err := c.Engine.Ping(ctx); err != nil {
		return err
	}
	if _, err := c.syncDockerfile(env, opts.Rebuild); err != nil {
		return err
	}
	if err := c.buildImage(ctx, env, opts.Pull, opts.NoCache || opts.Rebuild); err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Built image %q.\n", env.ImageTag())
	return nil
}

// Remove deletes the environment container and drops the environment from
// the registry. It operates on the container name directly, so it works
// even when the registry entry or project directory is gone. An empty
// name is taken from the current directory's devenv.toml. Removing an
// already-absent environment is not an error.
func (c *Coordinator) Remove(ctx context.Context, name string) error {
	name, err := c.ResolveName(name)
	if err != nil {
		return err
	}
	if err := c.Engine.Ping(ctx); err != nil {
		return err
	}

	containerName := model.ContainerName(name)
	handle, err := c.Engine.Inspect(ctx, containerName)
	if err != nil {
		return err
	}
	switch handle.State {
	case model.StateAbsent:
		fmt.Fprintf(c.Out, "No container named %q found.\n", containerName)
	case model.StateRunning:
		if err := c.Engine.StopContainer(ctx, containerName); err != nil {
			return err
		}
		fallthrough
	case model.StateStopped:
		if err := c.Engine.RemoveContainer(ctx, containerName, false); err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "Removed container %q.\n", containerName)
	}

	removed, err := c.Registry.Unregister(name)
	if err != nil {
		return err
	}
	if removed {
		fmt.Fprintf(c.Out, "Unregistered environment %q.\n", name)
	} else {
		fmt.Fprintf(c.Out, "Environment %q not found in registry.\n", name)
	}
	return nil
}

// Attach opens an interactive shell in the environment container. The
// container must be running.
func (c *Coordinator) Attach(ctx context.Context, name string, stdin io.Reader, stdout io.Writer) error {
	env, err := c.Resolve(name)
	if err != nil {
		return err
	}
	if err := c.Engine.Ping(ctx); err != nil {
		return err
	}

	handle, err := c.Engine.Inspect(ctx, env.ContainerName())
	if err != nil {
		return err
	}
	if handle.State != model.StateRunning {
		return model.NewCLIError(model.ExitContainerNotFound,
			fmt.Sprintf("environment %q is not running; run 'devenv start %s' first", env.Name, env.Name))
	}
	return c.Engine.InteractiveShell(ctx, env.ContainerName(), stdin, stdout)
}

// Init sets up a project directory as a devenv environment: create
// devenv.toml if missing (detecting a base image from the project files),
// write the Dockerfile, register the environment, and build the image.
// An existing devenv.toml is reused, and its name wins over the argument.
func (c *Coordinator) Init(ctx context.Context, projectDir, name string) (*Environment, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to resolve project directory", err)
	}

	var cfg *config.Env
	if config.Exists(abs) {
		cfg, err = config.Load(abs)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(c.Out, "Using existing %s for environment %q.\n", config.FileName, cfg.Name)
	} else {
		if name == "" {
			name = filepath.Base(abs)
		}
		if err := model.ValidateName(name); err != nil {
			return nil, err
		}
		image := detect.BaseImageOrDefault(abs)
		cfg = &config.Env{Name: name, Image: image}
		if err := config.Save(abs, cfg); err != nil {
			return nil, err
		}
		fmt.Fprintf(c.Out, "Created %s for environment %q (image %s).\n", config.FileName, name, image)
	}

	env := &Environment{Name: cfg.Name, ProjectDir: abs, Config: cfg}
	if _, err := c.syncDockerfile(env, false); err != nil {
		return nil, err
	}
	if err := c.Registry.Register(env.Name, abs); err != nil {
		return nil, err
	}
	if err := c.Engine.Ping(ctx); err != nil {
		return nil, err
	}
	if err := c.ensureImage(ctx, env, false, false); err != nil {
		return nil, err
	}
	fmt.Fprintf(c.Out, "Environment %q is ready. Run 'devenv start %s' to launch it.\n", env.Name, env.Name)
	return env, nil
}

// List returns handles for all devenv-managed containers known to the
// engine, running or not.
func (c *Coordinator) List(ctx context.Context) ([]model.ContainerHandle, error) {
	if err := c.Engine.Ping(ctx); err != nil {
		return nil, err
	}
	return c.Engine.List(ctx, model.NamePrefix)
}
