package scan

import (
	"fmt"
	"io/fs"

	"fpscan/internal/model"
)

// Handler is one step of the reverse-scan chain, run for every in-scope fingerprint.
type Handler interface {
	Name() string

	// ProcessNext reconciles fp with the filesystem. info is nil when the
	// entry no longer exists. It reports whether it changed anything.
	ProcessNext(fp *model.Fingerprint, info fs.FileInfo, inScope bool, opts Options) (bool, error)
}

// HandlerFactory builds a fresh Handler for one scan.
type HandlerFactory func(rs *ReverseScanner, opts Options) Handler

// ReverseStats are the totals of one reverse scan.
type ReverseStats struct {
	Total     int
	Scanned   int
	Processed int
	Errors    int
}

// ReverseScanner walks a scope's stored fingerprints through a handler chain.
type ReverseScanner struct {
	store    Store
	observer Observer
	logger   Logger
	stats    ReverseStats
}

// NewReverseScanner creates a ReverseScanner. observer and logger may be nil.
func NewReverseScanner(store Store, observer Observer, logger Logger) *ReverseScanner {
	return &ReverseScanner{
		store:    store,
		observer: observerOrNop(observer),
		logger:   loggerOrNop(logger),
	}
}

// Store returns the store handlers persist their changes to.
func (s *ReverseScanner) Store() Store {
	return s.store
}

// Logger returns the scanner's logger for use by handlers.
func (s *ReverseScanner) Logger() Logger {
	return s.logger
}

// Run passes every in-scope fingerprint of scope through handlers, in order.
// Out-of-scope fingerprints are skipped without being counted.
// A failing handler marks the fingerprint as an error but does not stop the
// chain or the scan.
func (s *ReverseScanner) Run(scope Scope, handlers []Handler, opts Options) (ReverseStats, error) {
	s.stats = ReverseStats{}

	it, err := scope.Fingerprints(s.store)
	if err != nil {
		return s.stats, err
	}
	s.stats.Total = it.Total()

	progress := 0.0
	for {
		c, err := it.Next()
		if err != nil {
			return s.stats, err
		}
		if c == nil {
			break
		}
		progress = c.Progress

		if c.InScope {
			s.stats.Scanned++
			failed, changed := s.runChain(c, handlers, opts)
			switch {
			case failed:
				s.stats.Errors++
			case changed:
				s.stats.Processed++
			}
		}
		s.report(progress)
	}

	s.report(1)
	return s.stats, nil
}

func (s *ReverseScanner) runChain(c *Candidate, handlers []Handler, opts Options) (failed, changed bool) {
	for _, h := range handlers {
		ok, err := runHandler(h, c, opts)
		if err != nil {
			s.logger.Error("handler failed",
				"handler", h.Name(),
				"path", c.Fingerprint.LongFilename,
				"uuid", c.Fingerprint.UUID,
				"error", err,
			)
			failed = true
			continue
		}
		if ok {
			changed = true
		}
	}
	return failed, changed
}

// runHandler invokes one handler, turning a panic into an error so the
// remaining handlers still run.
func runHandler(h Handler, c *Candidate, opts Options) (changed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.ProcessNext(c.Fingerprint, c.Info, c.InScope, opts)
}

func (s *ReverseScanner) report(progress float64) {
	s.observer.ReverseScanProgress(ReverseProgress{
		Total:      s.stats.Total,
		Scanned:    s.stats.Scanned,
		Processed:  s.stats.Processed,
		Errors:     s.stats.Errors,
		Completion: progress * 100,
	})
}
