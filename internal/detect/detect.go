// Package detect guesses a reasonable base image for a project directory
// by probing for well-known toolchain manifests (Cargo.toml, package.json,
// go.mod, ...).
//
// Detection is intentionally shallow and heuristic. It only feeds the
// default written by "devenv init" — the operator can always override the
// image in devenv.toml afterwards.
package detect

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultImage is used when no project type can be detected.
const DefaultImage = "debian:bookworm-slim"

// csprojMaxDepth bounds the directory walk when probing for .csproj files,
// which .NET projects conventionally keep one level below the root.
const csprojMaxDepth = 2

// BaseImage detects a base image from files in the project root.
// It returns the image reference and true on a match, or "" and false
// when the project type is unknown.
func BaseImage(projectDir string) (string, bool) {
	exists := func(name string) bool {
		_, err := os.Stat(filepath.Join(projectDir, name))
		return err == nil
	}

	switch {
	case exists("Cargo.toml"):
		return "rust:latest", true
	case exists("package.json"):
		return "node:20", true
	case exists("pyproject.toml") || exists("requirements.txt"):
		return "python:3.11", true
	case exists("go.mod"):
		return "golang:1.22", true
	case exists("Gemfile"):
		return "ruby:3.3", true
	case exists("pom.xml") || exists("build.gradle") || exists("build.gradle.kts"):
		return "eclipse-temurin:21-jdk", true
	case hasExtension(projectDir, ".csproj", csprojMaxDepth):
		return "mcr.microsoft.com/dotnet/sdk:8.0", true
	case exists("composer.json"):
		return "php:8.3-cli", true
	case exists("mix.exs"):
		return "elixir:1.16", true
	}

	return "", false
}

// BaseImageOrDefault detects a base image, falling back to DefaultImage.
func BaseImageOrDefault(projectDir string) string {
	if image, ok := BaseImage(projectDir); ok {
		return image
	}
	return DefaultImage
}

// hasExtension reports whether any regular file with the given extension
// exists under root, at most maxDepth directory levels down.
func hasExtension(root, ext string, maxDepth int) bool {
	found := false

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped rather than failing detection.
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}

		if d.IsDir() {
			// strings.Count over the relative path gives the depth of the
			// directory itself; children are one deeper.
			if rel != "." && strings.Count(rel, string(os.PathSeparator))+1 >= maxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if filepath.Ext(path) == ext {
			found = true
			return filepath.SkipAll
		}
		return nil
	})

	return found
}
