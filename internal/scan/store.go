package scan

import (
	"time"

	"fpscan/internal/model"
)

// Store provides the persistence operations the scanners need.
//
// Ordering contract: GetFingerprintsPage and PreloadFingerprints return
// fingerprints ordered by LongFilename in byte order. PreloadFingerprints
// returns only fingerprints whose LongFilename is >= startPath, so a
// fingerprint stored under startPath is always the first one returned.
type Store interface {
	// GetFingerprint returns the fingerprint stored under an exact path.
	// Returns nil if there is none.
	GetFingerprint(path string) (*model.Fingerprint, error)

	// GetFingerprintsPage returns up to limit fingerprints located at or
	// below root, skipping the first offset of them.
	GetFingerprintsPage(root string, offset, limit int) ([]*model.Fingerprint, error)

	// CountFingerprints returns the number of fingerprints located at or below root.
	CountFingerprints(root string) (int, error)

	// InsertFingerprint creates a new fingerprint and assigns its UUID.
	InsertFingerprint(fp *model.Fingerprint) error

	// UpdateFingerprint applies a partial update to the fingerprint identified by patch.UUID.
	UpdateFingerprint(patch model.FingerprintPatch) error

	// PreloadFingerprints returns up to count fingerprints starting at startPath.
	PreloadFingerprints(startPath string, count int) ([]*model.Fingerprint, error)

	// CurrentVanishedTimestamp returns the store's notion of "now" for vanishedAt.
	CurrentVanishedTimestamp() (time.Time, error)
}
