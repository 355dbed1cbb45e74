package scan

import (
	"errors"
	"fmt"
	"path/filepath"

	"fpscan/internal/model"
)

// errSkipEntry marks a file that vanished between being listed and being read.
var errSkipEntry = errors.New("entry vanished during digest")

// ForwardStats are the totals of one forward scan.
// Errors is always zero: filesystem races are absorbed by the scope.
type ForwardStats struct {
	Scanned   int
	Processed int
	Inserted  int
	Updated   int
	Errors    int
}

// ForwardScanner walks a scope's files and inserts or updates their fingerprints.
type ForwardScanner struct {
	store    Store
	fsys     Filesystem
	digester Digester
	observer Observer
	logger   Logger
	cache    *fingerprintCache
	stats    ForwardStats
}

// NewForwardScanner creates a ForwardScanner with an empty cache.
// digester, observer and logger may be nil.
func NewForwardScanner(store Store, fsys Filesystem, digester Digester, observer Observer, logger Logger) *ForwardScanner {
	if digester == nil {
		digester = MD5Digester{}
	}
	return &ForwardScanner{
		store:    store,
		fsys:     fsys,
		digester: digester,
		observer: observerOrNop(observer),
		logger:   loggerOrNop(logger),
		cache:    newFingerprintCache(CacheHighWater),
	}
}

// Run walks every file of scope once and returns the totals.
func (s *ForwardScanner) Run(scope Scope, opts Options) (ForwardStats, error) {
	s.stats = ForwardStats{}

	entries := scope.Entries()
	for {
		entry, err := entries.Next()
		if err != nil {
			return s.stats, err
		}
		if entry == nil {
			break
		}

		if err := s.process(entry, opts); err != nil {
			return s.stats, err
		}
		s.report()
	}

	s.report()
	return s.stats, nil
}

// process decides whether entry needs a new fingerprint, an update, or nothing.
func (s *ForwardScanner) process(entry *Entry, opts Options) error {
	s.stats.Scanned++

	existing, err := s.lookup(entry.Path)
	if err != nil {
		return err
	}

	if existing == nil {
		return s.insert(entry)
	}

	if !opts.Force && !entry.Info.ModTime().After(existing.MTime) {
		return nil
	}
	return s.update(entry, existing)
}

func (s *ForwardScanner) insert(entry *Entry) error {
	digest, err := s.digest(entry.Path)
	if errors.Is(err, errSkipEntry) {
		return nil
	}
	if err != nil {
		return err
	}

	fp := &model.Fingerprint{
		ShortFilename: filepath.Base(entry.Path),
		LongFilename:  entry.Path,
		MTime:         entry.Info.ModTime(),
		Size:          entry.Info.Size(),
		MD5:           digest,
		OwnerID:       model.NoOwnerID,
	}
	if err := s.store.InsertFingerprint(fp); err != nil {
		return fmt.Errorf("inserting fingerprint for %s: %w", entry.Path, err)
	}
	s.cache.put(fp)
	s.cache.evict()

	s.stats.Inserted++
	s.stats.Processed++
	s.logger.Debug("fingerprint inserted", "path", entry.Path, "uuid", fp.UUID)
	return nil
}

func (s *ForwardScanner) update(entry *Entry, existing *model.Fingerprint) error {
	digest, err := s.digest(entry.Path)
	if errors.Is(err, errSkipEntry) {
		return nil
	}
	if err != nil {
		return err
	}

	mtime := entry.Info.ModTime()
	size := entry.Info.Size()
	patch := model.FingerprintPatch{
		UUID:  existing.UUID,
		MTime: &mtime,
		Size:  &size,
		MD5:   &digest,
	}
	if err := s.store.UpdateFingerprint(patch); err != nil {
		return fmt.Errorf("updating fingerprint for %s: %w", entry.Path, err)
	}
	existing.MTime = mtime
	existing.Size = size
	existing.MD5 = digest

	s.stats.Updated++
	s.stats.Processed++
	s.logger.Debug("fingerprint updated", "path", entry.Path, "uuid", existing.UUID)
	return nil
}

// lookup returns the stored fingerprint for path, or nil if there is none.
// On a cache miss it preloads the fingerprints that follow path in store
// order; since path itself would be the first of them, a miss after the
// preload means no fingerprint exists.
func (s *ForwardScanner) lookup(path string) (*model.Fingerprint, error) {
	if fp, ok := s.cache.get(path); ok {
		return fp, nil
	}

	fps, err := s.store.PreloadFingerprints(path, PreloadCount)
	if err != nil {
		return nil, fmt.Errorf("preloading fingerprints from %s: %w", path, err)
	}

	var found *model.Fingerprint
	for _, fp := range fps {
		s.cache.put(fp)
		if fp.LongFilename == path {
			found = fp
		}
	}
	if evicted := s.cache.evict(); evicted > 0 {
		s.logger.Debug("fingerprint cache evicted", "count", evicted, "size", s.cache.size())
	}
	return found, nil
}

// digest computes the content digest of the file at path. A file that
// disappeared or became unreadable since it was listed yields errSkipEntry.
func (s *ForwardScanner) digest(path string) (string, error) {
	f, err := s.fsys.Open(path)
	if err != nil {
		if IsTolerable(err) {
			s.logger.Debug("skipping file that vanished before digest", "path", path, "error", err)
			return "", errSkipEntry
		}
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	digest, err := s.digester.Digest(f)
	if err != nil {
		if IsTolerable(err) {
			s.logger.Debug("skipping file that vanished during digest", "path", path, "error", err)
			return "", errSkipEntry
		}
		return "", fmt.Errorf("digesting %s: %w", path, err)
	}
	return digest, nil
}

func (s *ForwardScanner) report() {
	s.observer.ForwardScanProgress(ForwardProgress{
		Scanned:   s.stats.Scanned,
		Processed: s.stats.Processed,
		Inserted:  s.stats.Inserted,
		Updated:   s.stats.Updated,
	})
}
