package bridge

import (
	"io/fs"
	"os"
)

// OSFileSystem implements FileSystem using the operating system primitives.
type OSFileSystem struct{}

// Stat retrieves file metadata following symbolic links.
func (OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// Lstat retrieves file metadata without following symbolic links.
func (OSFileSystem) Lstat(path string) (fs.FileInfo, error) {
	return os.Lstat(path)
}

// Readlink resolves the target of a symbolic link.
func (OSFileSystem) Readlink(path string) (string, error) {
	return os.Readlink(path)
}

// Symlink creates a symbolic link pointing at target.
func (OSFileSystem) Symlink(target string, linkPath string) error {
	return os.Symlink(target, linkPath)
}

// Rename renames a path.
func (OSFileSystem) Rename(oldPath string, newPath string) error {
	return os.Rename(oldPath, newPath)
}

// Remove deletes a single path.
func (OSFileSystem) Remove(path string) error {
	return os.Remove(path)
}

// MkdirAll ensures a directory hierarchy exists with the provided permissions.
func (OSFileSystem) MkdirAll(path string, permissions fs.FileMode) error {
	return os.MkdirAll(path, permissions)
}

// ReadDir lists directory entries.
func (OSFileSystem) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}

// ReadFile reads file contents.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes data to a file with the supplied permissions.
func (OSFileSystem) WriteFile(path string, data []byte, permissions fs.FileMode) error {
	return os.WriteFile(path, data, permissions)
}
