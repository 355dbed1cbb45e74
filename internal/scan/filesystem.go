package scan

import (
	"errors"
	"io"
	"io/fs"
	"syscall"
)

// Filesystem provides the filesystem queries the scopes and scanners issue.
// It abstracts file access to enable testing without touching the real filesystem.
type Filesystem interface {
	// Lstat returns metadata for path without following a final symlink.
	Lstat(path string) (fs.FileInfo, error)

	// ReadDir returns the names of the entries in the directory at path.
	ReadDir(path string) ([]string, error)

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)
}

// IsTolerable reports whether err is a filesystem race the scan skips over:
// the entry disappeared or became inaccessible after it was listed.
func IsTolerable(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, syscall.ENOTDIR)
}

// statFile returns metadata for the file at path, or nil if there is no
// longer a file there. A directory that replaced the file counts as absent.
func statFile(fsys Filesystem, path string) (fs.FileInfo, error) {
	info, err := fsys.Lstat(path)
	if err != nil {
		if IsTolerable(err) {
			return nil, nil
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, nil
	}
	return info, nil
}
