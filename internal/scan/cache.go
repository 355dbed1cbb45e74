package scan

import "fpscan/internal/model"

// fingerprintCache maps paths to fingerprints and evicts in insertion order
// (FIFO, not LRU) once it grows past its high-water mark.
type fingerprintCache struct {
	entries   map[string]*model.Fingerprint
	order     []string // keys in insertion order, order[head:] are live
	head      int
	highWater int
}

func newFingerprintCache(highWater int) *fingerprintCache {
	return &fingerprintCache{
		entries:   make(map[string]*model.Fingerprint),
		highWater: highWater,
	}
}

func (c *fingerprintCache) get(path string) (*model.Fingerprint, bool) {
	fp, ok := c.entries[path]
	return fp, ok
}

// put stores fp under its LongFilename. Replacing an existing entry keeps
// its original insertion position.
func (c *fingerprintCache) put(fp *model.Fingerprint) {
	if _, ok := c.entries[fp.LongFilename]; !ok {
		c.order = append(c.order, fp.LongFilename)
	}
	c.entries[fp.LongFilename] = fp
}

// evict drops the oldest entries until the cache is at its high-water mark.
// It returns the number of entries dropped.
func (c *fingerprintCache) evict() int {
	evicted := 0
	for len(c.entries) > c.highWater {
		delete(c.entries, c.order[c.head])
		c.order[c.head] = ""
		c.head++
		evicted++
	}
	if c.head > len(c.order)/2 {
		c.order = append([]string(nil), c.order[c.head:]...)
		c.head = 0
	}
	return evicted
}

func (c *fingerprintCache) size() int {
	return len(c.entries)
}
