// Package model defines the domain types and value objects for the
// devenv CLI.
//
// This package contains pure data structures with no external dependencies.
// Container handles (ContainerHandle) are transient representations derived
// from container-engine queries at runtime — the only persistent state is
// the environment registry and each project's devenv.toml/Dockerfile pair,
// which live in other packages.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
