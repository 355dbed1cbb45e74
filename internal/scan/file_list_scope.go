package scan

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileListScope is a scope over an explicit, ordered list of file paths.
type FileListScope struct {
	fsys  Filesystem
	paths []string
}

// NewFileListScope creates a scope over the given paths. Paths are cleaned
// but otherwise used as given; callers pass absolute paths.
func NewFileListScope(fsys Filesystem, paths []string) *FileListScope {
	cleaned := make([]string, len(paths))
	for i, p := range paths {
		cleaned[i] = filepath.Clean(p)
	}
	return &FileListScope{fsys: fsys, paths: cleaned}
}

func (s *FileListScope) Name() string {
	if len(s.paths) == 1 {
		return s.paths[0]
	}
	return fmt.Sprintf("files[%s]", strings.Join(s.paths, ","))
}

// Paths returns the paths of the scope.
func (s *FileListScope) Paths() []string {
	return s.paths
}

func (s *FileListScope) Entries() EntryIterator {
	return &fileListEntries{scope: s}
}

func (s *FileListScope) Fingerprints(store Store) (FingerprintIterator, error) {
	return &fileListFingerprints{scope: s, store: store}, nil
}

type fileListEntries struct {
	scope *FileListScope
	next  int
}

func (it *fileListEntries) Next() (*Entry, error) {
	for it.next < len(it.scope.paths) {
		path := it.scope.paths[it.next]
		it.next++

		info, err := it.scope.fsys.Lstat(path)
		if err != nil {
			if IsTolerable(err) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		return &Entry{Path: path, Info: info}, nil
	}
	return nil, nil
}

// fileListFingerprints looks each path up directly; every fingerprint found
// is in scope by definition.
type fileListFingerprints struct {
	scope *FileListScope
	store Store
	next  int
}

func (it *fileListFingerprints) Total() int {
	return len(it.scope.paths)
}

func (it *fileListFingerprints) Next() (*Candidate, error) {
	for it.next < len(it.scope.paths) {
		path := it.scope.paths[it.next]
		it.next++

		fp, err := it.store.GetFingerprint(path)
		if err != nil {
			return nil, fmt.Errorf("looking up fingerprint for %s: %w", path, err)
		}
		if fp == nil {
			continue
		}

		info, err := statFile(it.scope.fsys, path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		return &Candidate{
			Fingerprint: fp,
			Info:        info,
			InScope:     true,
			Progress:    fraction(it.next, len(it.scope.paths)),
		}, nil
	}
	return nil, nil
}

var _ Scope = (*FileListScope)(nil)
