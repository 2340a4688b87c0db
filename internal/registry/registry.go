// Package registry maintains the durable name → project-path index that
// lets environments be addressed by name from any working directory.
//
// The registry is a single JSON file under the user's configuration
// directory. Persistence is read-modify-write with an atomic replace
// (write to a temp file, then rename over the old one), which bounds
// corruption if an update is interrupted. Concurrent writers racing on
// the same file are NOT serialized — the design is single-operator,
// last-write-wins.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tidwall/jsonc"

	"github.com/petehayes102/devenv/internal/model"
)

// Entry is a single registered environment.
type Entry struct {
	// Name is the unique environment name.
	Name string `json:"name"`

	// Path is the absolute project directory the environment is bound to.
	Path string `json:"path"`
}

// file is the on-disk JSON document shape.
type file struct {
	Envs map[string]string `json:"envs"`
}

// Store is an explicit registry handle bound to one file path. It is
// passed into the lifecycle coordinator rather than accessed as a
// process-wide singleton.
type Store struct {
	path string
}

// DefaultPath returns the registry location under the user configuration
// directory (respecting XDG_CONFIG_HOME on Linux):
// <config dir>/devenv/registry.json.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config dir: %w", err)
	}
	return filepath.Join(base, "devenv", "registry.json"), nil
}

// Open returns a Store bound to the given registry file path.
// The file does not need to exist yet.
func Open(path string) *Store {
	return &Store{path: path}
}

// Path returns the registry file path this store is bound to.
func (s *Store) Path() string {
	return s.path
}

// load reads the registry file into a map. A missing file is an empty
// registry, not an error. The file is passed through a JSONC translation
// first, so hand-edited registries with comments or trailing commas
// still load.
func (s *Store) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading registry %s: %w", s.path, err)
	}

	var f file
	if err := json.Unmarshal(jsonc.ToJSON(data), &f); err != nil {
		return nil, fmt.Errorf("parsing registry %s: %w", s.path, err)
	}
	if f.Envs == nil {
		f.Envs = map[string]string{}
	}
	return f.Envs, nil
}

// save persists the registry with an atomic replace: the new content is
// written to a temp file in the same directory, then renamed over the
// registry file. Rename within one filesystem is atomic, so readers see
// either the old or the new registry, never a partial write.
func (s *Store) save(envs map[string]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating registry dir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(file{Envs: envs}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".registry-*.json")
	if err != nil {
		return fmt.Errorf("creating temp registry file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing temp registry file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp registry file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing registry %s: %w", s.path, err)
	}
	return nil
}

// Register upserts the name → path mapping. An existing entry for the
// same name is overwritten; the last write wins.
func (s *Store) Register(name, path string) error {
	envs, err := s.load()
	if err != nil {
		return err
	}
	envs[name] = path
	return s.save(envs)
}

// Lookup resolves a name to its project path. A miss is a CLIError with
// ExitEnvNotFound so the CLI can exit with the right code.
func (s *Store) Lookup(name string) (string, error) {
	envs, err := s.load()
	if err != nil {
		return "", err
	}
	path, ok := envs[name]
	if !ok {
		return "", model.NewCLIError(
			model.ExitEnvNotFound,
			fmt.Sprintf("environment %q not found in registry (run 'devenv init' in its project directory)", name),
		)
	}
	return path, nil
}

// Unregister removes the entry for name. It returns true when an entry
// was removed. A missing entry is a no-op, not an error, and does not
// rewrite the file.
func (s *Store) Unregister(name string) (bool, error) {
	envs, err := s.load()
	if err != nil {
		return false, err
	}
	if _, ok := envs[name]; !ok {
		return false, nil
	}
	delete(envs, name)
	if err := s.save(envs); err != nil {
		return false, err
	}
	return true, nil
}

// List returns all entries sorted by name.
func (s *Store) List() ([]Entry, error) {
	envs, err := s.load()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(envs))
	for name, path := range envs {
		entries = append(entries, Entry{Name: name, Path: path})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}
