// Package dockerfile translates an environment configuration into a
// container image definition (a Dockerfile) and detects drift between a
// previously generated definition and the current configuration.
//
// Generation is a pure function of the configuration: the same Env value
// produces byte-identical output on any run and any machine. Nothing is
// emitted speculatively — a config field that is absent produces no
// corresponding instruction.
package dockerfile

import (
	"fmt"
	"strings"

	"github.com/petehayes102/devenv/internal/config"
)

// FileName is the generated image definition file inside a project
// directory. The tool owns its contents once generated; operators edit
// devenv.toml and regenerate instead.
const FileName = "Dockerfile"

// header marks the file as tool-managed. It is part of the generated
// text and therefore of the drift comparison.
const header = `# Generated by devenv. Do not edit manually.
# Edit devenv.toml and use 'devenv start --rebuild' instead.`

// aptCapablePrefixes lists image references known to be Debian-based and
// therefore apt-capable. These are exactly the images the project-type
// detection can choose, plus the plain distro images. Packages configured
// against any other base image are silently omitted, not an error.
var aptCapablePrefixes = []string{
	"debian",
	"ubuntu",
	"rust",
	"node",
	"python",
	"golang",
	"ruby",
	"eclipse-temurin",
	"mcr.microsoft.com/dotnet",
	"php",
	"elixir",
}

// SupportsApt reports whether the image reference is known to carry an
// apt-based package manager.
func SupportsApt(image string) bool {
	for _, prefix := range aptCapablePrefixes {
		if strings.HasPrefix(image, prefix) {
			return true
		}
	}
	return false
}

// Generate renders the image definition for env. The instruction order is
// fixed: base image, package install, non-root user creation, remote-access
// support, provisioning commands, then the workspace setup.
func Generate(env *config.Env) string {
	lines := []string{header, "FROM " + env.Image}

	if len(env.Packages) > 0 && SupportsApt(env.Image) {
		lines = append(lines, "", "# Extra packages from devenv.toml")
		lines = append(lines, fmt.Sprintf(
			"RUN apt-get update && apt-get install -y %s && rm -rf /var/lib/apt/lists/*",
			strings.Join(env.Packages, " "),
		))
	}

	if user := env.NonRootUser(); user != "" {
		uid := env.UserUID
		if uid == 0 {
			uid = 1000
		}
		gid := env.UserGID
		if gid == 0 {
			gid = uid
		}
		lines = append(lines, "", "# Non-root user")
		lines = append(lines, fmt.Sprintf("RUN (getent group %d || groupadd -g %d %s) || true", gid, gid, user))
		lines = append(lines, fmt.Sprintf("RUN (id -u %s >/dev/null 2>&1 || useradd -m -u %d -g %d -s /bin/bash %s) || true", user, uid, gid, user))
		lines = append(lines, fmt.Sprintf("RUN mkdir -p /home/%s/.ssh && chown -R %s:%s /home/%s", user, user, user, user))
	}

	if env.RemoteEnabled() {
		lines = append(lines, "", "# SSH server for Zed remote access")
		lines = append(lines, "RUN (command -v apt-get >/dev/null 2>&1 && apt-get update && apt-get install -y openssh-server && rm -rf /var/lib/apt/lists/*) || true")
		lines = append(lines, "RUN mkdir -p /run/sshd /root/.ssh && chmod 700 /root/.ssh")
		lines = append(lines, "EXPOSE 22")
	}

	if len(env.Commands) > 0 {
		lines = append(lines, "", "# Provisioning commands from devenv.toml")
		asUser := env.ProvisionAsNonRoot && env.NonRootUser() != ""
		if asUser {
			lines = append(lines, "USER "+env.NonRootUser())
		}
		for _, cmd := range env.Commands {
			lines = append(lines, "RUN "+cmd)
		}
		if asUser {
			lines = append(lines, "USER root")
		}
	}

	lines = append(lines, "", "WORKDIR /workspace")
	lines = append(lines, `CMD ["/bin/sh", "-lc", "tail -f /dev/null"]`)

	return strings.Join(lines, "\n") + "\n"
}

// Drift reports whether an existing image definition no longer matches
// what the current configuration would generate. The comparison is
// byte-for-byte over the rendered text.
func Drift(existing string, env *config.Env) bool {
	return existing != Generate(env)
}
