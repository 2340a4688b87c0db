// Package config loads and persists the declarative environment
// configuration (devenv.toml) for a project directory.
//
// The configuration is owned by the project directory and is loaded fresh
// on every invocation — it is never cached across invocations. All other
// state (the generated Dockerfile, the registry, the container itself) is
// derived from or keyed by this file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/petehayes102/devenv/internal/model"
)

// FileName is the configuration file name inside a project directory.
const FileName = "devenv.toml"

// DefaultSSHPort is the host port published for remote access when
// zed_remote.ssh_port is not set.
const DefaultSSHPort = 2222

// File is the top-level TOML document. The schema is a single [devenv]
// section with an optional nested [devenv.zed_remote] sub-section.
type File struct {
	DevEnv Env `toml:"devenv"`
}

// Env is the declarative environment configuration.
type Env struct {
	// Name is the unique environment name (defaults to the directory name).
	Name string `toml:"name"`

	// Image is the base image reference. When empty, it is resolved by
	// project-file detection at init time.
	Image string `toml:"image"`

	// Packages lists extra OS packages to install (apt-based images only).
	// Order is preserved in the generated image definition.
	Packages []string `toml:"packages,omitempty"`

	// Commands lists provisioning commands baked into the image, in order.
	Commands []string `toml:"commands,omitempty"`

	// UserName, UserUID and UserGID optionally describe a non-root user
	// to create inside the image.
	UserName string `toml:"user_name,omitempty"`
	UserUID  int    `toml:"user_uid,omitempty"`
	UserGID  int    `toml:"user_gid,omitempty"`

	// ProvisionAsNonRoot runs the provisioning commands as the configured
	// non-root user instead of the image default.
	ProvisionAsNonRoot bool `toml:"provision_as_non_root,omitempty"`

	// ZedRemote optionally enables SSH-based remote editor access.
	ZedRemote *ZedRemote `toml:"zed_remote,omitempty"`
}

// ZedRemote configures the SSH-based remote access feature.
type ZedRemote struct {
	Enabled bool `toml:"enabled"`

	// SSHPort is the host port that container port 22 is published to.
	// Defaults to DefaultSSHPort.
	SSHPort int `toml:"ssh_port,omitempty"`

	// SSHUser is the container account used for SSH logins.
	// Defaults to the configured user_name, then root.
	SSHUser string `toml:"ssh_user,omitempty"`
}

// RemoteEnabled reports whether the remote-access feature is on.
func (e *Env) RemoteEnabled() bool {
	return e.ZedRemote != nil && e.ZedRemote.Enabled
}

// SSHHostPort returns the host port to publish for remote access,
// or 0 when remote access is disabled.
func (e *Env) SSHHostPort() int {
	if !e.RemoteEnabled() {
		return 0
	}
	if e.ZedRemote.SSHPort != 0 {
		return e.ZedRemote.SSHPort
	}
	return DefaultSSHPort
}

// SSHUser resolves the account that receives the authorized key.
// Resolution order: explicit zed_remote.ssh_user, then user_name,
// then the image's root account.
func (e *Env) SSHUser() string {
	if e.ZedRemote != nil && e.ZedRemote.SSHUser != "" {
		return e.ZedRemote.SSHUser
	}
	if e.UserName != "" {
		return e.UserName
	}
	return "root"
}

// NonRootUser returns the configured non-root user name, or "" when no
// user should be created in the image.
func (e *Env) NonRootUser() string {
	if e.UserName == "" || e.UserName == "root" {
		return ""
	}
	return e.UserName
}

// Path returns the configuration file path for a project directory.
func Path(projectDir string) string {
	return filepath.Join(projectDir, FileName)
}

// Exists reports whether a configuration file is present in projectDir.
func Exists(projectDir string) bool {
	_, err := os.Stat(Path(projectDir))
	return err == nil
}

// Load reads and parses the configuration in projectDir.
//
// Returns a model.CLIError with ExitConfigError when the file is missing
// or unparseable, so callers can surface a proper exit code without
// inspecting the error further.
func Load(projectDir string) (*Env, error) {
	path := Path(projectDir)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitConfigError,
			fmt.Sprintf("no devenv configuration at %s (run 'devenv init' first)", path),
			err,
		)
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, model.WrapCLIError(
			model.ExitConfigError,
			fmt.Sprintf("parsing %s", path),
			err,
		)
	}

	if err := model.ValidateName(f.DevEnv.Name); err != nil {
		return nil, model.WrapCLIError(
			model.ExitConfigError,
			fmt.Sprintf("invalid configuration at %s", path),
			err,
		)
	}

	return &f.DevEnv, nil
}

// Save writes the configuration to projectDir as TOML.
func Save(projectDir string, env *Env) error {
	data, err := toml.Marshal(File{DevEnv: *env})
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError, "encoding devenv.toml", err)
	}
	if err := os.WriteFile(Path(projectDir), data, 0o644); err != nil {
		return model.WrapCLIError(model.ExitConfigError, "writing devenv.toml", err)
	}
	return nil
}
