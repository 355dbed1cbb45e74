package scan

import (
	"fmt"
	"path/filepath"
	"sort"

	"fpscan/internal/model"
)

// DirectoryScope is a scope over a directory tree, narrowed by a Filter.
//
// The forward iteration is a depth-first walk whose children are visited in
// byte order of their names, which keeps neighbouring files close together
// in the store's path order.
type DirectoryScope struct {
	fsys     Filesystem
	root     string
	filter   *Filter
	pageSize int
}

// NewDirectoryScope creates a scope over the tree rooted at root with no filter rules.
func NewDirectoryScope(fsys Filesystem, root string) *DirectoryScope {
	root = filepath.Clean(root)
	return &DirectoryScope{
		fsys:     fsys,
		root:     root,
		filter:   NewFilter(root),
		pageSize: PageSize,
	}
}

// Exclude adds name or path-element exclusion patterns.
func (s *DirectoryScope) Exclude(patterns ...string) *DirectoryScope {
	s.filter.excludes = append(s.filter.excludes, normalizePatterns(patterns)...)
	return s
}

// IncludeFiles restricts files to those whose name matches one of the patterns.
// Directories are not affected.
func (s *DirectoryScope) IncludeFiles(patterns ...string) *DirectoryScope {
	s.filter.includes = append(s.filter.includes, normalizePatterns(patterns)...)
	return s
}

// ExcludeFilesSmallerThan excludes files smaller than size bytes.
func (s *DirectoryScope) ExcludeFilesSmallerThan(size int64) *DirectoryScope {
	s.filter.minSize = size
	return s
}

// ExcludeFilesLargerThan excludes files larger than size bytes.
func (s *DirectoryScope) ExcludeFilesLargerThan(size int64) *DirectoryScope {
	s.filter.maxSize = size
	return s
}

func (s *DirectoryScope) Name() string {
	return s.root
}

// Root returns the root directory of the scope.
func (s *DirectoryScope) Root() string {
	return s.root
}

// Filter returns the filter applied to every candidate path.
func (s *DirectoryScope) Filter() *Filter {
	return s.filter
}

func (s *DirectoryScope) Entries() EntryIterator {
	return &directoryEntries{scope: s, stack: []string{s.root}}
}

func (s *DirectoryScope) Fingerprints(store Store) (FingerprintIterator, error) {
	total, err := store.CountFingerprints(s.root)
	if err != nil {
		return nil, fmt.Errorf("counting fingerprints under %s: %w", s.root, err)
	}
	return &directoryFingerprints{scope: s, store: store, total: total}, nil
}

// directoryEntries walks the tree with an explicit stack. Children are pushed
// in reverse order so they pop in ascending order.
type directoryEntries struct {
	scope *DirectoryScope
	stack []string
}

func (it *directoryEntries) Next() (*Entry, error) {
	for len(it.stack) > 0 {
		path := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]

		info, err := it.scope.fsys.Lstat(path)
		if err != nil {
			if IsTolerable(err) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		isRoot := path == it.scope.root
		if info.IsDir() {
			if !isRoot && it.scope.filter.IsExcluded(path, info) {
				continue
			}
			names, err := it.scope.fsys.ReadDir(path)
			if err != nil {
				if IsTolerable(err) {
					continue
				}
				return nil, fmt.Errorf("listing %s: %w", path, err)
			}
			sort.Strings(names)
			for i := len(names) - 1; i >= 0; i-- {
				it.stack = append(it.stack, filepath.Join(path, names[i]))
			}
			continue
		}

		if it.scope.filter.IsExcluded(path, info) {
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		return &Entry{Path: path, Info: info}, nil
	}
	return nil, nil
}

// directoryFingerprints pages through the fingerprints stored under the root.
// A page shorter than the requested size is the last one.
type directoryFingerprints struct {
	scope     *DirectoryScope
	store     Store
	total     int
	offset    int
	processed int
	page      []*model.Fingerprint
	exhausted bool
}

func (it *directoryFingerprints) Total() int {
	return it.total
}

func (it *directoryFingerprints) Next() (*Candidate, error) {
	if len(it.page) == 0 && !it.exhausted {
		if err := it.fetch(); err != nil {
			return nil, err
		}
	}
	if len(it.page) == 0 {
		return nil, nil
	}

	fp := it.page[0]
	it.page = it.page[1:]
	it.processed++

	info, err := statFile(it.scope.fsys, fp.LongFilename)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", fp.LongFilename, err)
	}
	return &Candidate{
		Fingerprint: fp,
		Info:        info,
		InScope:     !it.scope.filter.IsExcluded(fp.LongFilename, info),
		Progress:    fraction(it.processed, it.total),
	}, nil
}

func (it *directoryFingerprints) fetch() error {
	fps, err := it.store.GetFingerprintsPage(it.scope.root, it.offset, it.scope.pageSize)
	if err != nil {
		return fmt.Errorf("loading fingerprints under %s at offset %d: %w", it.scope.root, it.offset, err)
	}
	it.offset += len(fps)
	if len(fps) < it.scope.pageSize {
		it.exhausted = true
	}
	it.page = fps
	return nil
}

var _ Scope = (*DirectoryScope)(nil)
