package scan

import (
	"io/fs"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Filter decides which entries below a directory scope's root are excluded.
//
// Patterns are matched case-insensitively against NFC-normalized names. A
// pattern starting with '*' matches any name ending with the rest of the
// pattern; any other pattern matches a name exactly. Exclusion patterns
// without '*' also match any directory element of the path below the root.
type Filter struct {
	root     string
	excludes []string
	includes []string
	minSize  int64 // 0 = no lower bound
	maxSize  int64 // 0 = no upper bound
}

// NewFilter creates a Filter with no restrictions for entries below root.
func NewFilter(root string) *Filter {
	return &Filter{root: filepath.Clean(root)}
}

// normalizeName folds a name or pattern into the form used for matching.
func normalizeName(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

func normalizePatterns(patterns []string) []string {
	var out []string
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, normalizeName(p))
	}
	return out
}

// matchName reports whether a normalized name matches a normalized pattern.
func matchName(name, pattern string) bool {
	if suffix, ok := strings.CutPrefix(pattern, "*"); ok {
		return strings.HasSuffix(name, suffix)
	}
	return name == pattern
}

// IsExcluded reports whether path is outside the scope.
// info may be nil when the entry no longer exists; the entry is then treated
// as a file and only the name rules apply.
func (f *Filter) IsExcluded(path string, info fs.FileInfo) bool {
	isDir := info != nil && info.IsDir()

	if info != nil {
		if info.Mode()&fs.ModeSymlink != 0 {
			return true
		}
		if !isDir {
			size := info.Size()
			if f.minSize > 0 && size < f.minSize {
				return true
			}
			if f.maxSize > 0 && size > f.maxSize {
				return true
			}
			// Files without an extension are never indexed by a directory scope.
			if filepath.Ext(path) == "" {
				return true
			}
			if size == 0 {
				return true
			}
		}
	}

	name := normalizeName(filepath.Base(path))
	for _, p := range f.excludes {
		if matchName(name, p) {
			return true
		}
	}
	if len(f.excludes) > 0 && f.matchesPathElement(path) {
		return true
	}

	if !isDir && len(f.includes) > 0 {
		for _, p := range f.includes {
			if matchName(name, p) {
				return false
			}
		}
		return true
	}

	return false
}

// matchesPathElement reports whether any directory between the root and path
// equals an exclusion pattern.
func (f *Filter) matchesPathElement(path string) bool {
	rel, err := filepath.Rel(f.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	elements := strings.Split(filepath.ToSlash(rel), "/")
	for _, el := range elements[:len(elements)-1] {
		el = normalizeName(el)
		for _, p := range f.excludes {
			if !strings.HasPrefix(p, "*") && el == p {
				return true
			}
		}
	}
	return false
}
