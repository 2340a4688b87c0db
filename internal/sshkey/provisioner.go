// Package sshkey provisions the SSH credentials behind the remote-access
// feature: a project-local keypair and the authorized-keys entry inside
// the running container.
//
// Key generation is modelled as a capability (Keygen) with the real
// ssh-keygen subprocess as a swappable adapter, so everything above it
// can be tested without touching the host's SSH tooling.
package sshkey

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/petehayes102/devenv/internal/engine"
	"github.com/petehayes102/devenv/internal/model"
)

// StateDirName is the hidden per-project state directory holding the
// keypair. It is excluded from image build contexts and gitignored.
const StateDirName = ".devenv"

// Key file names inside the state directory.
const (
	privateKeyName = "zed_ed25519"
	publicKeyName  = "zed_ed25519.pub"
)

// KeyPair is a generated SSH keypair on disk.
type KeyPair struct {
	// PrivateKeyPath and PublicKeyPath locate the key files.
	PrivateKeyPath string
	PublicKeyPath  string

	// PublicKey is the trimmed contents of the public key file, ready
	// to append to an authorized_keys file.
	PublicKey string
}

// Keygen generates an SSH keypair at privateKeyPath (the public half at
// privateKeyPath + ".pub"). Implementations must not overwrite existing
// files; EnsureKeyPair never calls Generate when the pair exists.
type Keygen interface {
	Generate(ctx context.Context, privateKeyPath, comment string) error
}

// ExecKeygen shells out to ssh-keygen, the standard OpenSSH tool.
type ExecKeygen struct{}

// Generate creates an ed25519 keypair with an empty passphrase.
func (ExecKeygen) Generate(ctx context.Context, privateKeyPath, comment string) error {
	cmd := exec.CommandContext(ctx, "ssh-keygen",
		"-t", "ed25519",
		"-N", "",
		"-C", comment,
		"-f", privateKeyPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return model.WrapCLIError(
			model.ExitCredentialError,
			fmt.Sprintf("ssh-keygen failed: %s", strings.TrimSpace(string(out))),
			err,
		)
	}
	return nil
}

// Dir returns the project's hidden state directory.
func Dir(projectDir string) string {
	return filepath.Join(projectDir, StateDirName)
}

// EnsureKeyPair returns the project keypair, generating it on first use.
// An existing pair is returned unchanged — it is never regenerated or
// overwritten, so the key material is stable across invocations.
func EnsureKeyPair(ctx context.Context, kg Keygen, projectDir, envName string) (KeyPair, error) {
	stateDir := Dir(projectDir)
	pair := KeyPair{
		PrivateKeyPath: filepath.Join(stateDir, privateKeyName),
		PublicKeyPath:  filepath.Join(stateDir, publicKeyName),
	}

	if !fileExists(pair.PrivateKeyPath) || !fileExists(pair.PublicKeyPath) {
		if err := os.MkdirAll(stateDir, 0o700); err != nil {
			return KeyPair{}, model.WrapCLIError(
				model.ExitCredentialError,
				fmt.Sprintf("creating state dir %s", stateDir),
				err,
			)
		}
		comment := fmt.Sprintf("devenv-%s zed", envName)
		if err := kg.Generate(ctx, pair.PrivateKeyPath, comment); err != nil {
			return KeyPair{}, err
		}
	}

	pub, err := os.ReadFile(pair.PublicKeyPath)
	if err != nil {
		return KeyPair{}, model.WrapCLIError(
			model.ExitCredentialError,
			fmt.Sprintf("reading public key %s", pair.PublicKeyPath),
			err,
		)
	}
	pair.PublicKey = strings.TrimSpace(string(pub))
	return pair, nil
}

// homeDir resolves the target account's home inside the container.
func homeDir(user string) string {
	if user == "root" {
		return "/root"
	}
	return "/home/" + user
}

// shellQuote wraps s in single quotes, escaping embedded single quotes,
// so the value survives the container shell unmodified.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// InjectAuthorizedKey appends publicKey to the target user's
// authorized_keys inside a running container. The current file is read
// first and the append is skipped when the key is already present, so
// repeated invocations leave exactly one matching entry.
func InjectAuthorizedKey(ctx context.Context, eng engine.Engine, containerName, user, publicKey string) error {
	home := homeDir(user)
	authKeys := home + "/.ssh/authorized_keys"

	current, err := eng.Exec(ctx, containerName, "",
		fmt.Sprintf("cat %s 2>/dev/null || true", authKeys))
	if err != nil {
		return fmt.Errorf("reading authorized keys in container %q: %w", containerName, err)
	}

	for _, line := range strings.Split(current, "\n") {
		if strings.TrimSpace(line) == publicKey {
			// Desired state already holds.
			return nil
		}
	}

	script := fmt.Sprintf(
		"install -d -m 700 %[1]s/.ssh && printf '%%s\\n' %[2]s >> %[3]s && chown -R %[4]s:%[4]s %[1]s/.ssh && chmod 600 %[3]s",
		home, shellQuote(publicKey), authKeys, user,
	)
	if _, err := eng.Exec(ctx, containerName, "", script); err != nil {
		return fmt.Errorf("appending authorized key in container %q: %w", containerName, err)
	}
	return nil
}

// StartSSHD starts the SSH daemon inside a running container. Images
// differ in how sshd is wired up (service wrapper, absolute path, bare
// binary), so each form is tried in turn. Best effort: the caller
// treats failure as non-fatal since the operator may have provisioned
// sshd differently.
func StartSSHD(ctx context.Context, eng engine.Engine, containerName string) error {
	script := "mkdir -p /run/sshd && (service ssh start || (test -x /usr/sbin/sshd && /usr/sbin/sshd) || (command -v sshd >/dev/null 2>&1 && sshd) || true)"
	_, err := eng.Exec(ctx, containerName, "", script)
	return err
}

// EnsureGitignore adds the state directory to the project's .gitignore
// when one exists, keeping the private key out of version control. A
// project without a .gitignore is left alone.
func EnsureGitignore(projectDir string) error {
	path := filepath.Join(projectDir, ".gitignore")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	const line = "/" + StateDirName
	for _, l := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(l) == line {
			return nil
		}
	}

	content := string(data)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += line + "\n"
	return os.WriteFile(path, []byte(content), 0o644)
}

// fileExists reports whether path names an existing file.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
