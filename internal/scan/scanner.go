package scan

import (
	"fmt"

	"fpscan/internal/model"
)

// Result holds the totals of both phases of a scan.
type Result struct {
	Forward model.PhaseStats
	Reverse model.PhaseStats
}

// Scanner runs complete scans: a forward pass followed by a reverse pass
// over the same scope and store.
//
// A Scanner holds no state between scans, but it does not coordinate with
// other scanners; running two scans over the same store and scope at the
// same time is the caller's responsibility.
type Scanner struct {
	store    Store
	fsys     Filesystem
	digester Digester
	observer Observer
	logger   Logger
}

// NewScanner creates a Scanner with the provided dependencies.
// digester, observer and logger may be nil.
func NewScanner(store Store, fsys Filesystem, digester Digester, observer Observer, logger Logger) *Scanner {
	return &Scanner{
		store:    store,
		fsys:     fsys,
		digester: digester,
		observer: observerOrNop(observer),
		logger:   loggerOrNop(logger),
	}
}

// Scan runs one forward pass and then one reverse pass over scope. The
// reverse chain is the vanished-file handler followed by a fresh handler
// from each factory. On error the partial totals are discarded.
func (s *Scanner) Scan(scope Scope, factories []HandlerFactory, opts Options) (*Result, error) {
	rs := NewReverseScanner(s.store, s.observer, s.logger)
	handlers := make([]Handler, 0, len(factories)+1)
	handlers = append(handlers, NewVanishedHandler(rs, opts))
	for _, f := range factories {
		handlers = append(handlers, f(rs, opts))
	}

	s.observer.ScanStarted(scope, handlers, opts)
	defer s.observer.ScanEnded()

	s.observer.ForwardScanStarted()
	fwd := NewForwardScanner(s.store, s.fsys, s.digester, s.observer, s.logger)
	fstats, err := fwd.Run(scope, opts)
	if err != nil {
		return nil, fmt.Errorf("forward scan of %s: %w", scope.Name(), err)
	}
	s.observer.ForwardScanEnded()

	s.observer.ReverseScanStarted()
	rstats, err := rs.Run(scope, handlers, opts)
	if err != nil {
		return nil, fmt.Errorf("reverse scan of %s: %w", scope.Name(), err)
	}
	s.observer.ReverseScanEnded()

	return &Result{
		Forward: model.PhaseStats{
			Scanned:   fstats.Scanned,
			Processed: fstats.Processed,
			Errors:    fstats.Errors,
		},
		Reverse: model.PhaseStats{
			Scanned:   rstats.Scanned,
			Processed: rstats.Processed,
			Errors:    rstats.Errors,
		},
	}, nil
}
