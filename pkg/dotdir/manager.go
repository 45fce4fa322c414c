// Package dotdir manages the .stylectl/ and ~/.stylectl directories.
//
// The directory holds config.toml and the upload journal, which records the
// chat exports already embedded so repeated uploads and the watcher can skip
// them.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the name of the stylectl directory.
	DirName = ".stylectl"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .stylectl/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.stylectl/ dir
//  3. Home ~/.stylectl/ dir, created if missing
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, DirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, DirName)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating stylectl directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// InitLocal creates ./.stylectl in the working directory. It reports whether
// the directory already existed.
func (m *Manager) InitLocal() (string, bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, DirName)
	if m.localDirExists() {
		return dir, true, nil
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", false, fmt.Errorf("creating %s directory: %w", DirName, err)
	}
	return dir, false, nil
}

// localDirExists checks whether a .stylectl/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, DirName))
	return err == nil && info.IsDir()
}
