package testutil

import (
	"bytes"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"fpscan/internal/scan"
)

// DefaultModTime is the modification time given to entries added without one.
var DefaultModTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// MockFile represents an entry in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	IsDirectory bool
	IsSymlink   bool
}

// MockFilesystem is an in-memory scan.Filesystem for testing.
// Parent directories are created implicitly when entries are added.
type MockFilesystem struct {
	files     map[string]*MockFile
	statErrs  map[string]error
	openErrs  map[string]error
	openCount map[string]int
}

// NewMockFilesystem creates an empty mock filesystem.
func NewMockFilesystem() *MockFilesystem {
	return &MockFilesystem{
		files:     make(map[string]*MockFile),
		statErrs:  make(map[string]error),
		openErrs:  make(map[string]error),
		openCount: make(map[string]int),
	}
}

// AddFile adds a regular file with DefaultModTime.
func (m *MockFilesystem) AddFile(path string, content []byte) {
	m.AddFileWithModTime(path, content, DefaultModTime)
}

// AddFileWithModTime adds a regular file with the given modification time.
func (m *MockFilesystem) AddFileWithModTime(path string, content []byte, modTime time.Time) {
	path = filepath.Clean(path)
	m.addParents(path)
	m.files[path] = &MockFile{
		Content:     content,
		Permissions: 0644,
		ModTime:     modTime,
	}
}

// AddDirectory adds a directory and its parents.
func (m *MockFilesystem) AddDirectory(path string) {
	path = filepath.Clean(path)
	m.addParents(path)
	m.files[path] = &MockFile{
		Permissions: fs.ModeDir | 0755,
		ModTime:     DefaultModTime,
		IsDirectory: true,
	}
}

// AddSymlink adds a symbolic link. Its target is never resolved.
func (m *MockFilesystem) AddSymlink(path string) {
	path = filepath.Clean(path)
	m.addParents(path)
	m.files[path] = &MockFile{
		Permissions: fs.ModeSymlink | 0777,
		ModTime:     DefaultModTime,
		IsSymlink:   true,
	}
}

func (m *MockFilesystem) addParents(path string) {
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		if _, ok := m.files[dir]; !ok {
			m.files[dir] = &MockFile{
				Permissions: fs.ModeDir | 0755,
				ModTime:     DefaultModTime,
				IsDirectory: true,
			}
		}
		if dir == filepath.Dir(dir) {
			return
		}
	}
}

// WriteFile replaces the content of an existing file and sets its
// modification time.
func (m *MockFilesystem) WriteFile(path string, content []byte, modTime time.Time) {
	path = filepath.Clean(path)
	if f, ok := m.files[path]; ok && !f.IsDirectory {
		f.Content = content
		f.ModTime = modTime
		return
	}
	m.AddFileWithModTime(path, content, modTime)
}

// SetModTime changes the modification time of an entry.
func (m *MockFilesystem) SetModTime(path string, modTime time.Time) {
	if f, ok := m.files[filepath.Clean(path)]; ok {
		f.ModTime = modTime
	}
}

// Remove deletes an entry and everything below it.
func (m *MockFilesystem) Remove(path string) {
	path = filepath.Clean(path)
	prefix := path + string(filepath.Separator)
	for p := range m.files {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(m.files, p)
		}
	}
}

// FailStat makes Lstat of path return err.
func (m *MockFilesystem) FailStat(path string, err error) {
	m.statErrs[filepath.Clean(path)] = err
}

// FailOpen makes Open of path return err.
func (m *MockFilesystem) FailOpen(path string, err error) {
	m.openErrs[filepath.Clean(path)] = err
}

// OpenCount returns how many times path has been opened.
func (m *MockFilesystem) OpenCount(path string) int {
	return m.openCount[filepath.Clean(path)]
}

func (m *MockFilesystem) Lstat(path string) (fs.FileInfo, error) {
	path = filepath.Clean(path)
	if err, ok := m.statErrs[path]; ok {
		return nil, &fs.PathError{Op: "lstat", Path: path, Err: err}
	}
	file, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "lstat", Path: path, Err: fs.ErrNotExist}
	}
	return newMockFileInfo(path, file), nil
}

func (m *MockFilesystem) ReadDir(path string) ([]string, error) {
	path = filepath.Clean(path)
	file, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: fs.ErrNotExist}
	}
	if !file.IsDirectory {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: syscall.ENOTDIR}
	}

	var names []string
	for p := range m.files {
		if p != path && filepath.Dir(p) == path {
			names = append(names, filepath.Base(p))
		}
	}
	// Real directories are not sorted; the mock returns them reversed so that
	// callers relying on order are caught.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func (m *MockFilesystem) Open(path string) (io.ReadCloser, error) {
	path = filepath.Clean(path)
	m.openCount[path]++
	if err, ok := m.openErrs[path]; ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}
	file, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	if file.IsDirectory {
		return nil, &fs.PathError{Op: "open", Path: path, Err: syscall.EISDIR}
	}
	return io.NopCloser(bytes.NewReader(file.Content)), nil
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func newMockFileInfo(path string, file *MockFile) *mockFileInfo {
	return &mockFileInfo{
		name:    filepath.Base(path),
		size:    int64(len(file.Content)),
		mode:    file.Permissions,
		modTime: file.ModTime,
	}
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.mode.IsDir() }
func (m *mockFileInfo) Sys() any           { return nil }

// Compile-time check
var _ scan.Filesystem = (*MockFilesystem)(nil)
