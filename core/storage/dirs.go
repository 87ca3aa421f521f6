// Package storage resolves the platform-native directories museswarm reads
// its configuration and credentials from and writes its logs to.
package storage

import (
	"os"
	"path/filepath"
	"sync"
)

// AppName is the directory name used under every resolved base directory.
const AppName = "museswarm"

// Dirs provides platform-native directory resolution with XDG support.
type Dirs struct {
	Config string // User configuration (config.yaml, credentials.yaml)
	State  string // Runtime state (logs)
}

// ProjectDirs returns project-local directories.
type ProjectDirs struct {
	Root   string // .museswarm/
	Config string // .museswarm/config.yaml (committed)
	Local  string // .museswarm/local/ (gitignored)
}

var (
	globalDirs     *Dirs
	globalDirsOnce sync.Once
	globalDirsErr  error
)

// ResolveDirs returns platform-appropriate directories.
// Results are cached after first call.
func ResolveDirs() (*Dirs, error) {
	globalDirsOnce.Do(func() {
		globalDirs, globalDirsErr = resolveDirsImpl()
	})
	return globalDirs, globalDirsErr
}

func resolveDirsImpl() (*Dirs, error) {
	dirs := &Dirs{
		Config: resolveDir("XDG_CONFIG_HOME", platformConfigDefault()),
		State:  resolveDir("XDG_STATE_HOME", platformStateDefault()),
	}
	return dirs, nil
}

func resolveDir(envVar, fallback string) string {
	if dir := os.Getenv(envVar); dir != "" {
		return filepath.Join(dir, AppName)
	}
	return fallback
}

// ResolveProjectDirs returns project-local directories for the given project root.
func ResolveProjectDirs(projectRoot string) *ProjectDirs {
	root := filepath.Join(projectRoot, "."+AppName)
	return &ProjectDirs{
		Root:   root,
		Config: filepath.Join(root, "config.yaml"),
		Local:  filepath.Join(root, "local"),
	}
}

// EnsureDir creates a directory with the specified permissions if it doesn't exist.
// Uses 0700 when perm is zero.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = 0700
	}
	return os.MkdirAll(path, perm)
}

// EnsureSensitiveDir creates a directory with restricted permissions (0700).
func EnsureSensitiveDir(path string) error {
	return EnsureDir(path, 0700)
}

// EnsureStandardDir creates a directory with standard permissions (0755).
func EnsureStandardDir(path string) error {
	return EnsureDir(path, 0755)
}

// ConfigDir returns the config subdirectory path.
func (d *Dirs) ConfigDir(subpath ...string) string {
	return filepath.Join(append([]string{d.Config}, subpath...)...)
}

// StateDir returns the state subdirectory path.
func (d *Dirs) StateDir(subpath ...string) string {
	return filepath.Join(append([]string{d.State}, subpath...)...)
}

// CredentialsFile returns the path of the credentials file.
func (d *Dirs) CredentialsFile() string {
	return d.ConfigDir("credentials.yaml")
}

// LogDir returns the log directory.
func (d *Dirs) LogDir() string {
	return d.StateDir("logs")
}

// EnsureAll creates the config dir (0700) and the state and log dirs (0755).
func (d *Dirs) EnsureAll() error {
	if err := EnsureSensitiveDir(d.Config); err != nil {
		return err
	}
	for _, dir := range []string{d.State, d.LogDir()} {
		if err := EnsureStandardDir(dir); err != nil {
			return err
		}
	}
	return nil
}
