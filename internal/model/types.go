// Package model defines the domain types for the devenv CLI.
//
// All entities in this package are transient representations reconstructed
// from container-engine queries or the registry at runtime. The container
// name is always derived deterministically from the environment name, so a
// handle can be addressed without any stored state.
package model

import (
	"fmt"
	"regexp"
	"strings"
)

// ContainerState represents the lifecycle state of an environment's
// container as observed at the engine. The state transitions are:
//
//	Absent → Stopped ⇄ Running → Absent (after remove)
type ContainerState string

const (
	// StateAbsent indicates no container with the environment's name
	// exists at the engine.
	StateAbsent ContainerState = "absent"

	// StateStopped indicates the container exists but is not running.
	// Configuration and data are preserved.
	StateStopped ContainerState = "stopped"

	// StateRunning indicates the container's main process is running.
	StateRunning ContainerState = "running"
)

// String returns the string representation of ContainerState.
// This method satisfies the fmt.Stringer interface, enabling
// human-readable output in CLI commands and logging.
func (s ContainerState) String() string {
	return string(s)
}

// IsValid checks whether the ContainerState value is one of the
// predefined valid states.
func (s ContainerState) IsValid() bool {
	switch s {
	case StateAbsent, StateStopped, StateRunning:
		return true
	default:
		return false
	}
}

// ParseContainerState converts a string to a ContainerState.
// Returns an error if the string does not match any valid state.
func ParseContainerState(s string) (ContainerState, error) {
	state := ContainerState(strings.ToLower(s))
	if !state.IsValid() {
		return "", fmt.Errorf("invalid container state: %q (valid: absent, stopped, running)", s)
	}
	return state, nil
}

// ContainerHandle holds runtime information about an environment's
// container. This data is fetched dynamically from the container engine
// and is never persisted.
type ContainerHandle struct {
	// ID is the engine's container identifier (SHA-256 hash prefix).
	// Empty when State is StateAbsent.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Name is the container name, always "devenv-<env name>".
	Name string `json:"name" yaml:"name"`

	// Image is the image reference the container was created from.
	Image string `json:"image,omitempty" yaml:"image,omitempty"`

	// State is the observed lifecycle state.
	State ContainerState `json:"state" yaml:"state"`

	// Status is the engine's human-readable status line
	// (e.g., "Up 2 hours", "Exited (0) 5 minutes ago").
	Status string `json:"status,omitempty" yaml:"status,omitempty"`
}

// EnvName returns the environment name encoded in the container name,
// or the full name if it does not carry the reserved prefix.
func (h ContainerHandle) EnvName() string {
	return strings.TrimPrefix(h.Name, NamePrefix)
}

// NamePrefix is the reserved prefix for all containers and image tags
// owned by this tool. Filtering engine listings by this prefix ensures
// only devenv-managed containers are ever shown or mutated.
const NamePrefix = "devenv-"

// ContainerName derives the container name for an environment.
// The mapping is deterministic: the same environment name always
// yields the same container name on any machine.
func ContainerName(envName string) string {
	return NamePrefix + envName
}

// ImageTag derives the image tag for an environment, e.g.
// "devenv-myproject:latest".
func ImageTag(envName string) string {
	return NamePrefix + envName + ":latest"
}

// nameRegex validates environment names: alphanumeric, hyphens and
// underscores only, must start and end with alphanumeric.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)

// ValidateName checks if the given name is a valid environment name.
// The name becomes part of a container name and an image tag, so it is
// restricted to characters both accept.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("environment name must not be empty")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("invalid environment name %q: must contain only alphanumeric characters, hyphens and underscores, and start/end with alphanumeric", name)
	}
	return nil
}
