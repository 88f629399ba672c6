package adapter

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSystem defines an interface for the read-only file operations of the
// file alert source to enable mocking
//
//go:generate mockgen -source=filesystem.go -destination=../mocks/filesystem.go -package=mocks -mock_names=FileSystem=MockFileSystem
type FileSystem interface {
	// Open opens the named file for reading
	Open(name string) (File, error)

	// Stat returns the file info of the named file
	Stat(name string) (fs.FileInfo, error)

	// Glob returns the names of all files matching pattern
	Glob(pattern string) ([]string, error)

	// WalkDir walks the file tree rooted at root
	WalkDir(root string, fn fs.WalkDirFunc) error
}

// File defines an interface for file operations
type File interface {
	io.Reader
	io.Closer
}

// RealFileSystem implements FileSystem using the standard os package
type RealFileSystem struct{}

// NewFileSystem creates a new real file system
func NewFileSystem() FileSystem {
	return &RealFileSystem{}
}

// Open opens the named file for reading
func (f *RealFileSystem) Open(name string) (File, error) {
	return os.Open(name) //nolint:gosec,G304
}

// Stat returns the file info of the named file
func (f *RealFileSystem) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

// Glob returns the names of all files matching pattern
func (f *RealFileSystem) Glob(pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}

// WalkDir walks the file tree rooted at root
func (f *RealFileSystem) WalkDir(root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn)
}
