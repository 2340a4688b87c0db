package dockerfile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petehayes102/devenv/internal/config"
)

// TestGenerate_Deterministic verifies that two runs over the same
// configuration produce byte-identical output.
func TestGenerate_Deterministic(t *testing.T) {
	env := &config.Env{
		Name:     "foo",
		Image:    "debian:bookworm-slim",
		Packages: []string{"git", "curl"},
		Commands: []string{"echo one", "echo two"},
		UserName: "dev",
		ZedRemote: &config.ZedRemote{
			Enabled: true,
		},
	}

	first := Generate(env)
	second := Generate(env)
	assert.Equal(t, first, second)
}

// TestGenerate_BaseImageAndWorkspace verifies the minimal definition:
// managed header, FROM line, workspace setup, keep-alive command.
func TestGenerate_BaseImageAndWorkspace(t *testing.T) {
	env := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}
	out := Generate(env)

	assert.True(t, strings.HasPrefix(out, "# Generated by devenv."))
	assert.Contains(t, out, "FROM debian:bookworm-slim\n")
	assert.Contains(t, out, "WORKDIR /workspace\n")
	assert.Contains(t, out, `CMD ["/bin/sh", "-lc", "tail -f /dev/null"]`)
}

// TestGenerate_PackagesOnAptImage covers the common case: a rust image
// with packages yields a base-image line, a package-install line, and no
// user-creation block.
func TestGenerate_PackagesOnAptImage(t *testing.T) {
	env := &config.Env{
		Name:     "foo",
		Image:    "rust:latest",
		Packages: []string{"build-essential"},
	}
	out := Generate(env)

	assert.Contains(t, out, "FROM rust:latest")
	assert.Contains(t, out, "apt-get install -y build-essential")
	assert.NotContains(t, out, "useradd", "no user-creation block expected")
}

// TestGenerate_PackagesOmittedOnNonAptImage verifies that packages are
// silently dropped when the base image has no apt package manager.
func TestGenerate_PackagesOmittedOnNonAptImage(t *testing.T) {
	env := &config.Env{
		Name:     "foo",
		Image:    "alpine:3.20",
		Packages: []string{"git"},
	}
	out := Generate(env)

	assert.NotContains(t, out, "apt-get install")
	assert.NotContains(t, out, "git")
}

// TestGenerate_PackageOrderPreserved verifies packages appear in config
// order, not sorted.
func TestGenerate_PackageOrderPreserved(t *testing.T) {
	env := &config.Env{
		Name:     "foo",
		Image:    "debian:bookworm-slim",
		Packages: []string{"zsh", "git", "curl"},
	}
	out := Generate(env)

	assert.Contains(t, out, "apt-get install -y zsh git curl")
}

// TestGenerate_UserBlock verifies the non-root user creation instructions
// and the uid/gid defaulting (uid 1000, gid defaults to uid).
func TestGenerate_UserBlock(t *testing.T) {
	env := &config.Env{Name: "foo", Image: "debian:bookworm-slim", UserName: "dev"}
	out := Generate(env)

	assert.Contains(t, out, "groupadd -g 1000 dev")
	assert.Contains(t, out, "useradd -m -u 1000 -g 1000 -s /bin/bash dev")
	assert.Contains(t, out, "mkdir -p /home/dev/.ssh && chown -R dev:dev /home/dev")

	// Explicit uid/gid are respected.
	env.UserUID = 1234
	env.UserGID = 4321
	out = Generate(env)
	assert.Contains(t, out, "useradd -m -u 1234 -g 4321 -s /bin/bash dev")

	// "root" is never created as a user.
	out = Generate(&config.Env{Name: "foo", Image: "debian:bookworm-slim", UserName: "root"})
	assert.NotContains(t, out, "useradd")
}

// TestGenerate_RemoteAccessBlock verifies the SSH server install and the
// port exposure marker when zed_remote is enabled, and their absence
// otherwise.
func TestGenerate_RemoteAccessBlock(t *testing.T) {
	env := &config.Env{
		Name:      "foo",
		Image:     "debian:bookworm-slim",
		ZedRemote: &config.ZedRemote{Enabled: true},
	}
	out := Generate(env)
	assert.Contains(t, out, "openssh-server")
	assert.Contains(t, out, "EXPOSE 22")

	env.ZedRemote.Enabled = false
	out = Generate(env)
	assert.NotContains(t, out, "openssh-server")
	assert.NotContains(t, out, "EXPOSE 22")
}

// TestGenerate_ProvisioningCommands verifies that commands become RUN
// instructions in order, and that provision_as_non_root brackets them
// with USER directives only when a user is configured.
func TestGenerate_ProvisioningCommands(t *testing.T) {
	env := &config.Env{
		Name:     "foo",
		Image:    "debian:bookworm-slim",
		Commands: []string{"echo one", "echo two"},
	}
	out := Generate(env)

	oneIdx := strings.Index(out, "RUN echo one")
	twoIdx := strings.Index(out, "RUN echo two")
	require.Greater(t, oneIdx, 0)
	require.Greater(t, twoIdx, 0)
	assert.Less(t, oneIdx, twoIdx, "command order must be preserved")
	assert.NotContains(t, out, "USER ", "no USER directives without non-root provisioning")

	// Non-root provisioning with a configured user brackets the commands.
	env.UserName = "dev"
	env.ProvisionAsNonRoot = true
	out = Generate(env)
	assert.Contains(t, out, "USER dev\nRUN echo one")
	assert.Contains(t, out, "RUN echo two\nUSER root")

	// Non-root provisioning without a user falls back to the image default.
	env.UserName = ""
	out = Generate(env)
	assert.NotContains(t, out, "USER dev")
}

// TestDrift verifies that drift holds exactly when the text differs from
// the generated definition.
func TestDrift(t *testing.T) {
	env := &config.Env{Name: "foo", Image: "debian:bookworm-slim"}

	current := Generate(env)
	assert.False(t, Drift(current, env), "freshly generated text has no drift")
	assert.True(t, Drift(current+"# extra\n", env))
	assert.True(t, Drift("", env))

	// Changing the config drifts the previously generated text.
	env.Packages = []string{"git"}
	assert.True(t, Drift(current, env))
}

// TestSupportsApt spot-checks the apt-capability table.
func TestSupportsApt(t *testing.T) {
	assert.True(t, SupportsApt("debian:bookworm-slim"))
	assert.True(t, SupportsApt("ubuntu:24.04"))
	assert.True(t, SupportsApt("rust:latest"))
	assert.True(t, SupportsApt("mcr.microsoft.com/dotnet/sdk:8.0"))
	assert.False(t, SupportsApt("alpine:3.20"))
	assert.False(t, SupportsApt("scratch"))
}
