// Package cli — root_test.go contains unit tests for error-to-exit-code
// translation and for the command flag surfaces.
package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petehayes102/devenv/internal/model"
)

// TestExitStatus verifies that CLIError codes are honored even when the
// error has been wrapped further up the chain, and that plain errors
// fall back to the general exit code.
func TestExitStatus(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    model.ExitCode
		wantMessage string
	}{
		{
			name:        "bare CLIError",
			err:         model.NewCLIError(model.ExitEnvNotFound, "environment not registered"),
			wantCode:    model.ExitEnvNotFound,
			wantMessage: "environment not registered",
		},
		{
			name:        "wrapped CLIError keeps its code",
			err:         fmt.Errorf("failed to install public key: %w", model.NewCLIError(model.ExitCredentialError, "ssh-keygen failed")),
			wantCode:    model.ExitCredentialError,
			wantMessage: "ssh-keygen failed",
		},
		{
			name:        "doubly wrapped CLIError keeps its code",
			err:         fmt.Errorf("start: %w", fmt.Errorf("provisioning: %w", model.NewCLIError(model.ExitEngineUnavailable, "daemon unreachable"))),
			wantCode:    model.ExitEngineUnavailable,
			wantMessage: "daemon unreachable",
		},
		{
			name:        "plain error is a general failure",
			err:         errors.New("something unexpected"),
			wantCode:    model.ExitGeneralError,
			wantMessage: "something unexpected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, message, _ := exitStatus(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMessage, message)
		})
	}
}

// TestRestartAcceptsStartFlags verifies that restart registers the same
// flag set as start, so the two commands stay behaviorally identical.
func TestRestartAcceptsStartFlags(t *testing.T) {
	startCmd := NewStartCommand()
	restartCmd := NewRestartCommand()

	for _, name := range []string{"rebuild", "no-build", "open", "attach"} {
		startFlag := startCmd.Flags().Lookup(name)
		restartFlag := restartCmd.Flags().Lookup(name)
		require.NotNil(t, startFlag, "start must define --%s", name)
		require.NotNil(t, restartFlag, "restart must define --%s", name)
		assert.Equal(t, startFlag.DefValue, restartFlag.DefValue, "--%s defaults must match", name)
		assert.Equal(t, startFlag.NoOptDefVal, restartFlag.NoOptDefVal, "--%s bare-flag values must match", name)
	}
}

// TestRemoveNameIsOptional verifies that remove accepts zero arguments,
// deferring to the current directory's configuration.
func TestRemoveNameIsOptional(t *testing.T) {
	cmd := NewRemoveCommand()

	assert.NoError(t, cmd.Args(cmd, []string{}))
	assert.NoError(t, cmd.Args(cmd, []string{"my-api"}))
	assert.Error(t, cmd.Args(cmd, []string{"a", "b"}))
}

// TestBuildDefinesRebuildFlag verifies the build command exposes the
// explicit rebuild request alongside the cache-only knob.
func TestBuildDefinesRebuildFlag(t *testing.T) {
	cmd := NewBuildCommand()

	require.NotNil(t, cmd.Flags().Lookup("rebuild"))
	require.NotNil(t, cmd.Flags().Lookup("no-cache"))
	require.NotNil(t, cmd.Flags().Lookup("pull"))
}
