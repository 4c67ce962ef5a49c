package types

import (
	"io"
	"io/fs"
)

// File is the subset of *os.File used for streaming downloads and reading
// archives. afero.File satisfies it as well.
type File interface {
	io.Reader
	io.ReaderAt
	io.Writer
	io.Closer
	Stat() (fs.FileInfo, error)
}

// FS is the filesystem interface required for modsync operations
type FS interface {
	// File operations
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	Open(name string) (File, error)
	Create(name string) (File, error)

	// Directory operations
	MkdirAll(path string, perm fs.FileMode) error
	ReadDir(name string) ([]fs.DirEntry, error)

	// Other operations
	Remove(name string) error
	RemoveAll(path string) error
	Rename(oldpath, newpath string) error
}

// Pather provides paths for modsync operations
type Pather interface {
	// DataDir returns the XDG data directory for modsync
	DataDir() string

	// ConfigDir returns the XDG config directory for modsync
	ConfigDir() string

	// CacheDir returns the XDG cache directory for modsync
	CacheDir() string

	// StateDir returns the XDG state directory for modsync
	StateDir() string
}
