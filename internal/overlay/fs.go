package overlay

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// FileSystem is the file access a File overlay needs.
type FileSystem interface {
	// List returns the files directly in dir whose names match the glob
	// pattern, sorted by name. dir is taken literally. A missing directory
	// or a malformed pattern yields no matches.
	List(dir, pattern string) ([]string, error)
	ReadFile(name string) ([]byte, error)
	IsDir(name string) bool
}

// OSFileSystem reads from the host file system.
type OSFileSystem struct{}

// List implements FileSystem.
func (o OSFileSystem) List(dir, pattern string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || !o.IsDir(dir) {
			return nil, nil
		}
		return nil, err
	}
	return matchEntries(entries, pattern, filepath.Match, func(name string) string {
		return filepath.Join(dir, name)
	}), nil
}

// ReadFile implements FileSystem.
func (OSFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// IsDir implements FileSystem.
func (OSFileSystem) IsDir(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.IsDir()
}

type ioFS struct {
	fsys fs.FS
}

// NewFS adapts an io/fs file system. Paths are slash-separated and relative
// to the root of fsys, so overlays built on it use roots like "." or "config".
func NewFS(fsys fs.FS) FileSystem {
	return ioFS{fsys: fsys}
}

func (f ioFS) List(dir, pattern string) ([]string, error) {
	entries, err := fs.ReadDir(f.fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) || !f.IsDir(dir) {
			return nil, nil
		}
		return nil, err
	}
	return matchEntries(entries, pattern, path.Match, func(name string) string {
		return path.Join(dir, name)
	}), nil
}

func (f ioFS) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(f.fsys, name)
}

func (f ioFS) IsDir(name string) bool {
	info, err := fs.Stat(f.fsys, name)
	return err == nil && info.IsDir()
}

// matchEntries keeps the non-directory entries whose names match pattern.
// A malformed pattern matches nothing.
func matchEntries(entries []fs.DirEntry, pattern string, match func(pattern, name string) (bool, error), join func(string) string) []string {
	if _, err := match(pattern, ""); err != nil {
		return nil
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ok, err := match(pattern, entry.Name())
		if err != nil {
			return nil
		}
		if ok {
			out = append(out, join(entry.Name()))
		}
	}
	return out
}
