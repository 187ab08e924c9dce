package fsops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Entry is one directory listing row.
type Entry struct {
	Name  string
	IsDir bool
}

// Executor performs every tree mutation the engines need. OS applies them to
// disk; Overlay records them in memory for dry runs.
type Executor interface {
	Exists(dir, name string) bool
	ReadDir(dir string) ([]Entry, error)
	Rename(dir, from, to string) error
	Move(src, destDir, destName string) error
	CreateContainer(parent, name string) (bool, error)
	RemoveIfEmpty(dir string) (bool, error)
	// Backing maps a possibly virtual path to the file that holds its bytes.
	Backing(path string) string
}

// OS is the Executor backed by the real filesystem.
type OS struct{}

// NewOS returns the disk executor.
func NewOS() *OS { return &OS{} }

// Exists reports whether dir/name is present, without following symlinks.
func (*OS) Exists(dir, name string) bool {
	_, err := os.Lstat(filepath.Join(dir, name))
	return err == nil
}

// ReadDir lists dir in name order.
func (*OS) ReadDir(dir string) ([]Entry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, Entry{Name: entry.Name(), IsDir: entry.IsDir()})
	}
	return out, nil
}

// Rename changes a leaf name inside dir.
func (o *OS) Rename(dir, from, to string) error {
	return o.Move(filepath.Join(dir, from), dir, to)
}

// Move relocates src to destDir/destName, refusing to overwrite. A move
// across filesystems falls back to a verified copy plus removal.
func (o *OS) Move(src, destDir, destName string) error {
	dst := filepath.Join(destDir, destName)
	if src == dst {
		return nil
	}
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("move %s: %w", dst, fs.ErrExist)
	}
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, unix.EXDEV) {
		return fmt.Errorf("move %s: %w", src, err)
	}
	if err := copyFileVerified(src, dst); err != nil {
		return fmt.Errorf("copy %s across devices: %w", src, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove %s after copy: %w", src, err)
	}
	return nil
}

// CreateContainer makes parent/name, reporting whether it was new.
func (*OS) CreateContainer(parent, name string) (bool, error) {
	path := filepath.Join(parent, name)
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("create %s: %w", path, fs.ErrExist)
		}
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return false, fmt.Errorf("create %s: %w", path, err)
	}
	return true, nil
}

// RemoveIfEmpty deletes dir when it holds nothing.
func (*OS) RemoveIfEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	if len(entries) > 0 {
		return false, nil
	}
	if err := os.Remove(dir); err != nil {
		return false, err
	}
	return true, nil
}

// Backing is the identity on disk.
func (*OS) Backing(path string) string { return path }
