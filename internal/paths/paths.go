package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// DefaultProjectFile is the document name looked up in a project directory.
const DefaultProjectFile = "emwy.yaml"

// ProjectPaths captures canonical locations for an emwy project.
type ProjectPaths struct {
	Root        string
	ProjectFile string
	MetaDir     string
	LogsDir     string
	StateFile   string
	LockFile    string
}

// Resolve determines the project from the optional --project flag, which
// may name a document or a directory, or the current working directory
// when the flag is empty.
func Resolve(projectFlag string) (ProjectPaths, error) {
	projectFlag = strings.TrimSpace(projectFlag)
	if projectFlag == "" {
		root, err := os.Getwd()
		if err != nil {
			return ProjectPaths{}, errors.Wrap(err, "resolve project root")
		}
		return newProjectPaths(root, DefaultProjectFile), nil
	}

	abs, err := filepath.Abs(projectFlag)
	if err != nil {
		return ProjectPaths{}, errors.Wrap(err, "resolve project root")
	}
	if isDocument(abs) {
		return newProjectPaths(filepath.Dir(abs), filepath.Base(abs)), nil
	}
	return newProjectPaths(abs, DefaultProjectFile), nil
}

func isDocument(path string) bool {
	if info, err := os.Stat(path); err == nil {
		return info.Mode().IsRegular()
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func newProjectPaths(root, file string) ProjectPaths {
	metaDir := filepath.Join(root, ".emwy")
	return ProjectPaths{
		Root:        root,
		ProjectFile: filepath.Join(root, file),
		MetaDir:     metaDir,
		LogsDir:     filepath.Join(metaDir, "logs"),
		StateFile:   filepath.Join(metaDir, "state.json"),
		LockFile:    filepath.Join(metaDir, "state.lock"),
	}
}

// stem is the project file path without its extension.
func (p ProjectPaths) stem() string {
	return strings.TrimSuffix(p.ProjectFile, filepath.Ext(p.ProjectFile))
}

// ExportFile returns the default path for an export beside the project
// document, e.g. talk.yaml -> talk.mlt.
func (p ProjectPaths) ExportFile(ext string) string {
	return p.stem() + ext
}

// ResolveOutput returns value relative to the project root, or fallback
// when value is empty.
func (p ProjectPaths) ResolveOutput(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return resolveProjectPath(p.Root, value)
}

func resolveProjectPath(root, value string) string {
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(root, value)
}

// EnsureRoot makes sure the project root exists on disk.
func (p ProjectPaths) EnsureRoot() error {
	if err := os.MkdirAll(p.Root, 0o755); err != nil {
		return errors.Wrap(err, "create project root")
	}
	return nil
}

// EnsureMetaDirs creates the hidden .emwy directory and its logs dir.
func (p ProjectPaths) EnsureMetaDirs() error {
	for _, dir := range []string{p.MetaDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create directory %s", dir)
		}
	}
	return nil
}

// ConfigDir returns the user-level emwy settings directory
// (~/.config/emwy on Linux). It is not created.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "detect user config dir")
	}
	return filepath.Join(base, "emwy"), nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
