package scan

import (
	"io/fs"

	"fpscan/internal/model"
)

// Scope is the set of filesystem entries a scan considers.
// It exposes two independent iterations: Entries walks the filesystem for
// the forward scan, Fingerprints walks the store for the reverse scan.
type Scope interface {
	// Name identifies the scope in logs and scan history.
	Name() string

	// Entries starts a forward iteration over the files in scope.
	Entries() EntryIterator

	// Fingerprints starts a reverse iteration over the stored fingerprints
	// this scope is responsible for.
	Fingerprints(store Store) (FingerprintIterator, error)
}

// Entry is a regular file yielded by a forward iteration.
type Entry struct {
	Path string
	Info fs.FileInfo
}

// EntryIterator yields the files of a forward iteration.
type EntryIterator interface {
	// Next returns the next file, or nil when the iteration is exhausted.
	Next() (*Entry, error)
}

// Candidate is a stored fingerprint yielded by a reverse iteration together
// with what the filesystem currently says about it.
type Candidate struct {
	Fingerprint *model.Fingerprint
	Info        fs.FileInfo // nil if the entry no longer exists
	InScope     bool
	Progress    float64 // fraction of the iteration completed, in [0, 1]
}

// FingerprintIterator yields the candidates of a reverse iteration.
type FingerprintIterator interface {
	// Next returns the next candidate, or nil when the iteration is exhausted.
	Next() (*Candidate, error)

	// Total returns the number of fingerprints the iteration expects to yield.
	Total() int
}

// fraction returns done/total, treating an empty iteration as complete.
func fraction(done, total int) float64 {
	if total <= 0 || done >= total {
		return 1
	}
	return float64(done) / float64(total)
}
