package fs

import (
	"io"
	"io/fs"
	"os"

	"fpscan/internal/scan"
)

// OSFilesystem is the real filesystem implementation of scan.Filesystem.
type OSFilesystem struct{}

// NewOSFilesystem creates a filesystem that operates on the real filesystem.
func NewOSFilesystem() *OSFilesystem {
	return &OSFilesystem{}
}

// Lstat returns metadata for path without following symlinks.
func (m *OSFilesystem) Lstat(path string) (fs.FileInfo, error) {
	return os.Lstat(path)
}

// ReadDir returns the entry names of a directory in the order the
// filesystem reports them.
func (m *OSFilesystem) ReadDir(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Readdirnames(-1)
}

// Open opens a file for reading.
func (m *OSFilesystem) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Compile-time check that OSFilesystem implements scan.Filesystem interface
var _ scan.Filesystem = (*OSFilesystem)(nil)
