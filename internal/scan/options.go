package scan

const (
	// PageSize is the number of fingerprints requested per reverse-scan page.
	PageSize = 5000

	// PreloadCount is the number of fingerprints loaded on a forward-scan cache miss.
	PreloadCount = 1000

	// CacheHighWater is the forward-scan cache size above which the oldest
	// entries are evicted.
	CacheHighWater = 1100
)

// Options controls a single scan.
type Options struct {
	// Force re-digests and updates every in-scope file on the forward pass,
	// regardless of modification time.
	Force bool
}
